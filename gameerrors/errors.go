package gameerrors

import "errors"

// Sentinel errors shared by the game core and the HTTP layer.
// Kept in their own package so api can classify errors without
// importing game internals.
var (
	// ErrInvalidInput covers out-of-range positions, malformed player IDs
	// and bad card labels. The HTTP layer maps it to 400.
	ErrInvalidInput = errors.New("invalid input")

	// ErrCardRemoved is a flip rule violation: the target card has been
	// removed from the board.
	ErrCardRemoved = errors.New("card has been removed")

	// ErrCardControlled is a flip rule violation: the target card is
	// face up and already controlled.
	ErrCardControlled = errors.New("card is already controlled")

	// ErrInvalidState marks a violated internal precondition (e.g. a
	// second flip without a first card). Callers treat it as a
	// programmer error.
	ErrInvalidState = errors.New("invalid state")

	// ErrParse covers malformed or unreadable board files. Fatal at startup.
	ErrParse = errors.New("invalid board file")
)

// IsFlipError reports whether err is a flip rule violation
// (removed or controlled). The HTTP layer maps these to 409.
func IsFlipError(err error) bool {
	return errors.Is(err, ErrCardRemoved) || errors.Is(err, ErrCardControlled)
}
