package game

import (
	"fmt"
	"unicode"

	"memory-scramble-server/gameerrors"
)

// Card is a single cell of the grid: a label plus on-board, face-up and
// controller flags. A removed card stays in the grid as a tombstone and
// keeps its label for stable identity.
//
// Cards are owned by a Board and are only mutated while the board's
// mutex is held; the type itself is not safe for concurrent use.
type Card struct {
	value          string
	onBoard        bool
	faceUp         bool
	controller     string // "" = uncontrolled
	lastController string // diagnostic only
}

// ValidLabel reports whether s is a legal card label: non-empty and
// free of whitespace (space, tab, newline, carriage return, and any
// other Unicode space).
func ValidLabel(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

// NewCard creates a face-down, uncontrolled, on-board card.
func NewCard(value string) (*Card, error) {
	if !ValidLabel(value) {
		return nil, fmt.Errorf("%w: card label %q must be non-empty without whitespace", gameerrors.ErrInvalidInput, value)
	}
	c := &Card{value: value, onBoard: true}
	c.checkRep()
	return c, nil
}

// Value returns the card's label.
func (c *Card) Value() string { return c.value }

// OnBoard reports whether the card has not been removed.
func (c *Card) OnBoard() bool { return c.onBoard }

// FaceUp reports whether the card is face up.
func (c *Card) FaceUp() bool { return c.faceUp }

// Controller returns the controlling player's ID, or "" if uncontrolled.
func (c *Card) Controller() string { return c.controller }

// LastController returns the previous controller recorded by SetController.
func (c *Card) LastController() string { return c.lastController }

// FlipUp turns the card face up. Fails on a removed card.
func (c *Card) FlipUp() error {
	if !c.onBoard {
		return fmt.Errorf("%w: cannot flip up a removed card", gameerrors.ErrInvalidState)
	}
	c.faceUp = true
	c.checkRep()
	return nil
}

// FlipDown turns the card face down, clearing its controller.
// Fails on a removed card.
func (c *Card) FlipDown() error {
	if !c.onBoard {
		return fmt.Errorf("%w: cannot flip down a removed card", gameerrors.ErrInvalidState)
	}
	c.faceUp = false
	c.controller = ""
	c.checkRep()
	return nil
}

// SetController records who controls the card. Passing "" always
// succeeds; a non-empty player ID fails if the card is removed or
// face down.
func (c *Card) SetController(playerID string) error {
	if playerID != "" {
		if !c.onBoard {
			return fmt.Errorf("%w: cannot control a removed card", gameerrors.ErrInvalidState)
		}
		if !c.faceUp {
			return fmt.Errorf("%w: cannot control a face-down card", gameerrors.ErrInvalidState)
		}
	}
	c.lastController = c.controller
	c.controller = playerID
	c.checkRep()
	return nil
}

// Remove takes the card off the board: not on board, face down,
// uncontrolled. Terminal; the label is retained.
func (c *Card) Remove() {
	c.onBoard = false
	c.faceUp = false
	c.controller = ""
	c.checkRep()
}

// relabel swaps the card's label without touching any flag. The board
// calls it while committing a Map group; label validity was checked
// upstream so a bad label panics via checkRep.
func (c *Card) relabel(value string) {
	c.value = value
	c.checkRep()
}

// reset returns the card to its initial state: on board, face down,
// uncontrolled, with its label intact.
func (c *Card) reset() {
	c.onBoard = true
	c.faceUp = false
	c.controller = ""
	c.lastController = ""
	c.checkRep()
}

// checkRep panics if a representation invariant is broken. Every
// mutation runs it, so a violation is caught at the faulty operation.
func (c *Card) checkRep() {
	if !ValidLabel(c.value) {
		panic(fmt.Sprintf("card: invalid label %q", c.value))
	}
	if !c.onBoard && (c.faceUp || c.controller != "") {
		panic("card: removed card must be face down and uncontrolled")
	}
	if !c.faceUp && c.controller != "" {
		panic("card: face-down card must be uncontrolled")
	}
}

// String renders the card for debugging.
func (c *Card) String() string {
	switch {
	case !c.onBoard:
		return fmt.Sprintf("Card(%q, removed)", c.value)
	case !c.faceUp:
		return fmt.Sprintf("Card(%q, down)", c.value)
	case c.controller != "":
		return fmt.Sprintf("Card(%q, up, controlled by %s)", c.value, c.controller)
	default:
		return fmt.Sprintf("Card(%q, up)", c.value)
	}
}
