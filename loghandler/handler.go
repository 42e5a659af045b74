package loghandler

import (
	"context"
	"io"
	"log/slog"
	"sync"
)

const timeFormat = "2006/01/02 15:04:05"

const tagKey = "tag"

// CompactHandler writes logs in a compact form:
// timestamp + level (WARN and above only) + optional [tag] prefix +
// message + key=value attrs. Timestamp format: 2006/01/02 15:04:05.
// If an attribute with key "tag" is present, it is rendered as "[tag] "
// and omitted from the key=value list.
type CompactHandler struct {
	mu    sync.Mutex
	w     io.Writer
	level slog.Level
	attrs []slog.Attr
}

// NewCompactHandler returns a handler that writes to w with minimum level.
func NewCompactHandler(w io.Writer, level slog.Level) *CompactHandler {
	return &CompactHandler{w: w, level: level}
}

// Enabled reports whether the handler handles records at the given level.
func (h *CompactHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

// Handle formats the record as: 2006/01/02 15:04:05 LEVEL [tag] message k=v ...
func (h *CompactHandler) Handle(_ context.Context, r slog.Record) error {
	var tag string
	var rest []slog.Attr
	collect := func(a slog.Attr) bool {
		if a.Key == tagKey && a.Value.Kind() == slog.KindString {
			tag = a.Value.String()
			return true
		}
		rest = append(rest, a)
		return true
	}
	for _, a := range h.attrs {
		collect(a)
	}
	r.Attrs(collect)

	buf := make([]byte, 0, 256)
	buf = append(buf, r.Time.Format(timeFormat)...)
	buf = append(buf, ' ')
	if r.Level >= slog.LevelWarn {
		buf = append(buf, r.Level.String()...)
		buf = append(buf, ' ')
	}
	if tag != "" {
		buf = append(buf, '[')
		buf = append(buf, tag...)
		buf = append(buf, "] "...)
	}
	buf = append(buf, r.Message...)
	for _, a := range rest {
		buf = append(buf, ' ')
		buf = append(buf, a.Key...)
		buf = append(buf, '=')
		buf = append(buf, a.Value.String()...)
	}
	buf = append(buf, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf)
	return err
}

// WithAttrs returns a new handler with the given attributes prepended
// to every record.
func (h *CompactHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &CompactHandler{w: h.w, level: h.level, attrs: merged}
}

// WithGroup returns a new handler for the given group (no-op for
// compact output).
func (h *CompactHandler) WithGroup(name string) slog.Handler {
	return h
}
