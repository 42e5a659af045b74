package game

import (
	"errors"
	"testing"

	"memory-scramble-server/gameerrors"
)

func TestNewCard(t *testing.T) {
	card, err := NewCard("A")
	if err != nil {
		t.Fatalf("NewCard(\"A\") failed: %v", err)
	}
	if card.Value() != "A" {
		t.Errorf("expected value A, got %q", card.Value())
	}
	if !card.OnBoard() {
		t.Error("new card should be on board")
	}
	if card.FaceUp() {
		t.Error("new card should be face down")
	}
	if card.Controller() != "" {
		t.Errorf("new card should be uncontrolled, got %q", card.Controller())
	}
}

func TestNewCardRejectsBadLabels(t *testing.T) {
	bad := []string{"", " ", "a b", "a\tb", "a\nb", "a\rb", " "}
	for _, label := range bad {
		if _, err := NewCard(label); !errors.Is(err, gameerrors.ErrInvalidInput) {
			t.Errorf("NewCard(%q): expected invalid input error, got %v", label, err)
		}
	}
}

func TestNewCardAcceptsUnicodeLabels(t *testing.T) {
	for _, label := range []string{"🦄", "café", "A_1"} {
		if _, err := NewCard(label); err != nil {
			t.Errorf("NewCard(%q) failed: %v", label, err)
		}
	}
}

func TestCardFlipUpDown(t *testing.T) {
	card, _ := NewCard("A")

	if err := card.FlipUp(); err != nil {
		t.Fatalf("FlipUp failed: %v", err)
	}
	if !card.FaceUp() {
		t.Error("card should be face up")
	}

	if err := card.SetController("alice"); err != nil {
		t.Fatalf("SetController failed: %v", err)
	}
	if err := card.FlipDown(); err != nil {
		t.Fatalf("FlipDown failed: %v", err)
	}
	if card.FaceUp() {
		t.Error("card should be face down")
	}
	if card.Controller() != "" {
		t.Error("FlipDown should clear the controller")
	}
}

func TestCardSetController(t *testing.T) {
	card, _ := NewCard("A")

	// Cannot control a face-down card.
	if err := card.SetController("alice"); !errors.Is(err, gameerrors.ErrInvalidState) {
		t.Errorf("expected invalid state controlling a face-down card, got %v", err)
	}

	card.FlipUp()
	if err := card.SetController("alice"); err != nil {
		t.Fatalf("SetController failed: %v", err)
	}
	if card.Controller() != "alice" {
		t.Errorf("expected controller alice, got %q", card.Controller())
	}

	// Clearing always succeeds and records the previous controller.
	if err := card.SetController(""); err != nil {
		t.Fatalf("clearing controller failed: %v", err)
	}
	if card.Controller() != "" {
		t.Error("controller should be cleared")
	}
	if card.LastController() != "alice" {
		t.Errorf("expected last controller alice, got %q", card.LastController())
	}
}

func TestCardRemove(t *testing.T) {
	card, _ := NewCard("A")
	card.FlipUp()
	card.SetController("alice")

	card.Remove()
	if card.OnBoard() {
		t.Error("removed card should be off board")
	}
	if card.FaceUp() {
		t.Error("removed card should be face down")
	}
	if card.Controller() != "" {
		t.Error("removed card should be uncontrolled")
	}
	if card.Value() != "A" {
		t.Errorf("removed card keeps its label, got %q", card.Value())
	}

	// All mutations of a removed card fail; clearing control is a no-op.
	if err := card.FlipUp(); !errors.Is(err, gameerrors.ErrInvalidState) {
		t.Errorf("FlipUp on removed card: expected invalid state, got %v", err)
	}
	if err := card.FlipDown(); !errors.Is(err, gameerrors.ErrInvalidState) {
		t.Errorf("FlipDown on removed card: expected invalid state, got %v", err)
	}
	if err := card.SetController("bob"); !errors.Is(err, gameerrors.ErrInvalidState) {
		t.Errorf("SetController on removed card: expected invalid state, got %v", err)
	}
	if err := card.SetController(""); err != nil {
		t.Errorf("clearing controller on removed card should succeed, got %v", err)
	}
}
