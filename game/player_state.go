package game

import (
	"fmt"

	"memory-scramble-server/gameerrors"
)

// Position addresses one cell of the grid, 0-based.
type Position struct {
	Row, Col int
}

// String renders the position as "row,col".
func (p Position) String() string {
	return fmt.Sprintf("%d,%d", p.Row, p.Col)
}

// ValidPlayerID reports whether id is a legal player ID: non-empty,
// ASCII letters, digits and underscore only.
func ValidPlayerID(id string) bool {
	if id == "" {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '_':
		default:
			return false
		}
	}
	return true
}

// PlayerState is a player's turn memory: up to two held positions plus
// a pending-match marker. Entries are created on first mention of a
// player ID and never destroyed.
//
// Held positions may linger after control of the card was already
// cleared (mismatch, failed second flip); turn-boundary cleanup
// resolves them at the player's next first flip.
type PlayerState struct {
	PlayerID    string
	FirstCard   *Position
	SecondCard  *Position
	MatchedPair *[2]Position
}

// NewPlayerState creates an empty state for the given player.
func NewPlayerState(playerID string) (*PlayerState, error) {
	if !ValidPlayerID(playerID) {
		return nil, fmt.Errorf("%w: player ID %q must be non-empty letters, digits or underscore", gameerrors.ErrInvalidInput, playerID)
	}
	return &PlayerState{PlayerID: playerID}, nil
}

// HasControl reports whether the player holds any position.
func (p *PlayerState) HasControl() bool {
	return p.FirstCard != nil || p.SecondCard != nil
}

// ControlledPositions returns a fresh set of the held positions.
func (p *PlayerState) ControlledPositions() map[Position]struct{} {
	positions := make(map[Position]struct{}, 2)
	if p.FirstCard != nil {
		positions[*p.FirstCard] = struct{}{}
	}
	if p.SecondCard != nil {
		positions[*p.SecondCard] = struct{}{}
	}
	return positions
}

// MarkMatch records a matched pair for removal at the next turn boundary.
func (p *PlayerState) MarkMatch(a, b Position) {
	p.MatchedPair = &[2]Position{a, b}
}

// ClearState zeroes the held positions and the match marker. Idempotent.
func (p *PlayerState) ClearState() {
	p.FirstCard = nil
	p.SecondCard = nil
	p.MatchedPair = nil
}
