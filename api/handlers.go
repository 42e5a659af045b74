package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"memory-scramble-server/config"
	"memory-scramble-server/game"
	"memory-scramble-server/gameerrors"
)

// Handler holds dependencies for the HTTP endpoints. Each endpoint
// validates its path parameters, invokes exactly one board operation
// and writes the textual snapshot into the response body.
type Handler struct {
	Board  *game.Board
	Config *config.Config
}

// NewHandler creates a new API handler with the given dependencies.
func NewHandler(board *game.Board, cfg *config.Config) *Handler {
	return &Handler{Board: board, Config: cfg}
}

// Register installs the game routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/look/{playerId}", h.Look)
	mux.HandleFunc("/flip/{playerId}/{location}", h.Flip)
	mux.HandleFunc("/replace/{playerId}/{fromCard}/{toCard}", h.Replace)
	mux.HandleFunc("/watch/{playerId}", h.Watch)
	mux.HandleFunc("/reset/{playerId}", h.Reset)
}

// CORS sets CORS headers on the response. Call before writing body.
// Returns true if the request was a handled preflight.
func CORS(w http.ResponseWriter, r *http.Request) bool {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return true
	}
	return false
}

// guard applies CORS and the GET-only rule; returns false if the
// request was already answered.
func guard(w http.ResponseWriter, r *http.Request) bool {
	if CORS(w, r) {
		return false
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

// writeSnapshot writes the textual board snapshot with a 200.
func writeSnapshot(w http.ResponseWriter, snapshot string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if _, err := w.Write([]byte(snapshot)); err != nil {
		slog.Debug("write snapshot", "tag", "api", "err", err)
	}
}

// writeError maps a board error onto an HTTP status: invalid input is
// 400, flip rule violations are 409, anything else is a server fault.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, gameerrors.ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case gameerrors.IsFlipError(err):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, context.Canceled):
		// Client went away mid-wait; nothing useful to write.
	default:
		slog.Error("internal error", "tag", "api", "err", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// Look handles GET /look/{playerId}.
func (h *Handler) Look(w http.ResponseWriter, r *http.Request) {
	if !guard(w, r) {
		return
	}
	snapshot, err := h.Board.Look(r.PathValue("playerId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeSnapshot(w, snapshot)
}

// Flip handles GET /flip/{playerId}/{row},{col}. The response is the
// player's view of the board after the flip.
func (h *Handler) Flip(w http.ResponseWriter, r *http.Request) {
	if !guard(w, r) {
		return
	}
	playerID := r.PathValue("playerId")
	row, col, ok := parseLocation(r.PathValue("location"))
	if !ok {
		http.Error(w, "invalid location: expected row,col with integer coordinates", http.StatusBadRequest)
		return
	}

	if err := h.Board.Flip(r.Context(), playerID, row, col); err != nil {
		writeError(w, err)
		return
	}
	snapshot, err := h.Board.Look(playerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSnapshot(w, snapshot)
}

// Replace handles GET /replace/{playerId}/{fromCard}/{toCard}: every
// card labeled fromCard is relabeled toCard.
func (h *Handler) Replace(w http.ResponseWriter, r *http.Request) {
	if !guard(w, r) {
		return
	}
	playerID := r.PathValue("playerId")
	from := r.PathValue("fromCard")
	to := r.PathValue("toCard")

	replace := func(ctx context.Context, label string) (string, error) {
		if label == from {
			return to, nil
		}
		return label, nil
	}
	if err := h.Board.Map(r.Context(), replace); err != nil {
		writeError(w, err)
		return
	}
	snapshot, err := h.Board.Look(playerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSnapshot(w, snapshot)
}

// Watch handles GET /watch/{playerId}: a long-poll that answers with a
// snapshot once the board next changes.
func (h *Handler) Watch(w http.ResponseWriter, r *http.Request) {
	if !guard(w, r) {
		return
	}
	if !game.ValidPlayerID(r.PathValue("playerId")) {
		http.Error(w, "invalid player ID", http.StatusBadRequest)
		return
	}
	snapshot, err := h.Board.Watch(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeSnapshot(w, snapshot)
}

// Reset handles GET /reset/{playerId}: returns the board to its
// starting state.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	if !guard(w, r) {
		return
	}
	playerID := r.PathValue("playerId")
	if !game.ValidPlayerID(playerID) {
		http.Error(w, "invalid player ID", http.StatusBadRequest)
		return
	}
	h.Board.Reset()
	snapshot, err := h.Board.Look(playerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSnapshot(w, snapshot)
}

// parseLocation splits "row,col" into integer coordinates.
func parseLocation(location string) (row, col int, ok bool) {
	parts := strings.Split(location, ",")
	if len(parts) != 2 {
		return 0, 0, false
	}
	row, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, false
	}
	col, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, false
	}
	return row, col, true
}
