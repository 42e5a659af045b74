package game

import (
	"context"
	"errors"
	"strings"
	"testing"

	"memory-scramble-server/gameerrors"
)

// mustParseBoard builds a board from file content, failing the test on error.
func mustParseBoard(t *testing.T, content string) *Board {
	t.Helper()
	board, err := ParseBoard(content)
	if err != nil {
		t.Fatalf("ParseBoard failed: %v", err)
	}
	return board
}

// mustFlip performs a unified flip, failing the test on error.
func mustFlip(t *testing.T, b *Board, playerID string, row, col int) {
	t.Helper()
	if err := b.Flip(context.Background(), playerID, row, col); err != nil {
		t.Fatalf("Flip(%s, %d, %d) failed: %v", playerID, row, col, err)
	}
}

// mustLook returns the player's snapshot, failing the test on error.
func mustLook(t *testing.T, b *Board, playerID string) string {
	t.Helper()
	s, err := b.Look(playerID)
	if err != nil {
		t.Fatalf("Look(%s) failed: %v", playerID, err)
	}
	return s
}

const boardAB22 = "2x2\nA\nB\nA\nB\n\n"

func TestNewBoardValidation(t *testing.T) {
	card := func(v string) *Card {
		c, err := NewCard(v)
		if err != nil {
			t.Fatalf("NewCard failed: %v", err)
		}
		return c
	}

	if _, err := NewBoard(0, 2, nil); !errors.Is(err, gameerrors.ErrInvalidInput) {
		t.Errorf("zero rows: expected invalid input, got %v", err)
	}
	if _, err := NewBoard(1, 1, [][]*Card{}); !errors.Is(err, gameerrors.ErrInvalidInput) {
		t.Errorf("row count mismatch: expected invalid input, got %v", err)
	}
	if _, err := NewBoard(1, 2, [][]*Card{{card("A")}}); !errors.Is(err, gameerrors.ErrInvalidInput) {
		t.Errorf("column count mismatch: expected invalid input, got %v", err)
	}

	board, err := NewBoard(1, 2, [][]*Card{{card("A"), card("A")}})
	if err != nil {
		t.Fatalf("NewBoard failed: %v", err)
	}
	rows, cols := board.Size()
	if rows != 1 || cols != 2 {
		t.Errorf("expected size 1x2, got %dx%d", rows, cols)
	}
}

func TestFlipFirstFaceDown(t *testing.T) {
	board := mustParseBoard(t, boardAB22)

	if err := board.FlipFirst(context.Background(), "alice", 0, 0); err != nil {
		t.Fatalf("FlipFirst failed: %v", err)
	}

	want := "2x2\nmy A\ndown\ndown\ndown\n"
	if got := mustLook(t, board, "alice"); got != want {
		t.Errorf("expected snapshot:\n%s\ngot:\n%s", want, got)
	}
	// Other players see the card face up but not theirs.
	want = "2x2\nup A\ndown\ndown\ndown\n"
	if got := mustLook(t, board, "bob"); got != want {
		t.Errorf("expected snapshot:\n%s\ngot:\n%s", want, got)
	}
	board.checkRep()
}

func TestFlipFirstFaceUpUncontrolled(t *testing.T) {
	board := mustParseBoard(t, boardAB22)

	// alice mismatches, leaving (0,0) and (0,1) face up and uncontrolled.
	mustFlip(t, board, "alice", 0, 0)
	mustFlip(t, board, "alice", 0, 1)

	// bob grabs the face-up A without flipping anything.
	if err := board.FlipFirst(context.Background(), "bob", 0, 0); err != nil {
		t.Fatalf("FlipFirst on face-up card failed: %v", err)
	}
	if got := mustLook(t, board, "bob"); !strings.HasPrefix(got, "2x2\nmy A\nup B\n") {
		t.Errorf("bob should control (0,0), got:\n%s", got)
	}
	board.checkRep()
}

func TestFlipFirstOutOfBounds(t *testing.T) {
	board := mustParseBoard(t, boardAB22)
	for _, pos := range []Position{{-1, 0}, {0, -1}, {2, 0}, {0, 2}} {
		err := board.FlipFirst(context.Background(), "alice", pos.Row, pos.Col)
		if !errors.Is(err, gameerrors.ErrInvalidInput) {
			t.Errorf("FlipFirst(%v): expected invalid input, got %v", pos, err)
		}
	}
}

func TestFlipFirstBadPlayerID(t *testing.T) {
	board := mustParseBoard(t, boardAB22)
	err := board.FlipFirst(context.Background(), "not ok", 0, 0)
	if !errors.Is(err, gameerrors.ErrInvalidInput) {
		t.Errorf("expected invalid input for bad player ID, got %v", err)
	}
}

func TestFlipSecondMatch(t *testing.T) {
	board := mustParseBoard(t, boardAB22)

	mustFlip(t, board, "alice", 0, 0)
	mustFlip(t, board, "alice", 1, 0)

	// Matched pair: both stay face up and controlled until the next
	// turn boundary.
	want := "2x2\nmy A\ndown\nmy A\ndown\n"
	if got := mustLook(t, board, "alice"); got != want {
		t.Errorf("expected snapshot:\n%s\ngot:\n%s", want, got)
	}
	board.checkRep()
}

func TestFlipSecondMismatchRelinquishes(t *testing.T) {
	board := mustParseBoard(t, boardAB22)

	mustFlip(t, board, "alice", 0, 0)
	mustFlip(t, board, "alice", 0, 1)

	// Both cards stay face up but uncontrolled.
	want := "2x2\nup A\nup B\ndown\ndown\n"
	if got := mustLook(t, board, "alice"); got != want {
		t.Errorf("expected snapshot:\n%s\ngot:\n%s", want, got)
	}
	board.checkRep()
}

func TestFlipSecondControlledFails(t *testing.T) {
	board := mustParseBoard(t, boardAB22)

	mustFlip(t, board, "bob", 0, 1)   // bob controls B at (0,1)
	mustFlip(t, board, "alice", 0, 0) // alice's first card

	err := board.FlipSecond("alice", 0, 1)
	if !errors.Is(err, gameerrors.ErrCardControlled) {
		t.Fatalf("expected controlled error, got %v", err)
	}

	// alice's first card was relinquished: face up, uncontrolled.
	if got := mustLook(t, board, "alice"); !strings.HasPrefix(got, "2x2\nup A\n") {
		t.Errorf("first card should be relinquished, got:\n%s", got)
	}
	board.checkRep()
}

func TestFlipSecondSameCardFails(t *testing.T) {
	board := mustParseBoard(t, boardAB22)

	mustFlip(t, board, "alice", 0, 0)
	// The second flip targets the card alice already controls.
	err := board.FlipSecond("alice", 0, 0)
	if !errors.Is(err, gameerrors.ErrCardControlled) {
		t.Errorf("expected controlled error flipping own first card, got %v", err)
	}
	board.checkRep()
}

func TestFlipSecondWithoutFirstIsInvalidState(t *testing.T) {
	board := mustParseBoard(t, boardAB22)
	if err := board.FlipSecond("alice", 0, 0); !errors.Is(err, gameerrors.ErrInvalidState) {
		t.Errorf("expected invalid state, got %v", err)
	}
}

// Match-and-remove: a matched pair is removed at the player's next turn
// boundary, and the flip that triggered cleanup fails on the tombstone.
func TestMatchAndRemoveScenario(t *testing.T) {
	board := mustParseBoard(t, "1x2\nA\nA\n\n")

	mustFlip(t, board, "p", 0, 0)
	mustFlip(t, board, "p", 0, 1)

	err := board.Flip(context.Background(), "p", 0, 0)
	if !errors.Is(err, gameerrors.ErrCardRemoved) {
		t.Fatalf("expected removed error on third flip, got %v", err)
	}

	want := "1x2\nnone\nnone\n"
	if got := mustLook(t, board, "p"); got != want {
		t.Errorf("expected snapshot:\n%s\ngot:\n%s", want, got)
	}
	board.checkRep()
}

// Mismatch flip-down: relinquished cards flip back down at the next
// turn boundary, before the new first flip takes effect.
func TestMismatchFlipDownScenario(t *testing.T) {
	board := mustParseBoard(t, boardAB22)

	mustFlip(t, board, "p", 0, 0)
	mustFlip(t, board, "p", 0, 1)
	mustFlip(t, board, "p", 1, 0)

	want := "2x2\ndown\ndown\nmy A\ndown\n"
	if got := mustLook(t, board, "p"); got != want {
		t.Errorf("expected snapshot:\n%s\ngot:\n%s", want, got)
	}
	board.checkRep()
}

// A relinquished card grabbed by a racing player is not flipped down by
// the original holder's cleanup.
func TestCleanupSkipsCardsGrabbedByOthers(t *testing.T) {
	board := mustParseBoard(t, boardAB22)

	mustFlip(t, board, "alice", 0, 0)
	mustFlip(t, board, "alice", 0, 1) // mismatch, both relinquished

	mustFlip(t, board, "bob", 0, 0) // bob grabs the face-up A

	// alice's next first flip cleans up: (0,1) flips down, (0,0) is
	// bob's and stays up.
	mustFlip(t, board, "alice", 1, 1)

	want := "2x2\nup A\ndown\ndown\nmy B\n"
	if got := mustLook(t, board, "alice"); got != want {
		t.Errorf("expected snapshot:\n%s\ngot:\n%s", want, got)
	}
	board.checkRep()
}

// A failed second flip leaves no cleanup work pending: the player's
// next first flip must not flip down the card they abandoned.
func TestFailedSecondFlipLeavesNoCleanup(t *testing.T) {
	board := mustParseBoard(t, boardAB22)

	mustFlip(t, board, "bob", 0, 1)
	mustFlip(t, board, "alice", 0, 0)
	if err := board.FlipSecond("alice", 0, 1); !errors.Is(err, gameerrors.ErrCardControlled) {
		t.Fatalf("expected controlled error, got %v", err)
	}

	// alice flips elsewhere; the abandoned A at (0,0) must stay face up.
	mustFlip(t, board, "alice", 1, 1)
	want := "2x2\nup A\nup B\ndown\nmy B\n"
	if got := mustLook(t, board, "alice"); got != want {
		t.Errorf("expected snapshot:\n%s\ngot:\n%s", want, got)
	}
	board.checkRep()
}

func TestLookDoesNotCreatePlayerState(t *testing.T) {
	board := mustParseBoard(t, boardAB22)

	mustLook(t, board, "ghost")
	board.mu.Lock()
	_, exists := board.players["ghost"]
	board.mu.Unlock()
	if exists {
		t.Error("Look must not create player state")
	}
}

func TestLookRejectsBadPlayerID(t *testing.T) {
	board := mustParseBoard(t, boardAB22)
	if _, err := board.Look("no way"); !errors.Is(err, gameerrors.ErrInvalidInput) {
		t.Errorf("expected invalid input, got %v", err)
	}
}

// Look is a pure function of board state: repeated calls are bytewise
// identical until a mutation occurs, and never advance the version.
func TestLookIsPure(t *testing.T) {
	board := mustParseBoard(t, boardAB22)
	mustFlip(t, board, "alice", 0, 0)

	v := board.Version()
	first := mustLook(t, board, "alice")
	for i := 0; i < 5; i++ {
		if got := mustLook(t, board, "alice"); got != first {
			t.Fatalf("Look changed without a mutation:\n%s\nvs\n%s", first, got)
		}
	}
	if board.Version() != v {
		t.Error("Look must not advance the version")
	}
}

func TestVersionAdvancesOnMutations(t *testing.T) {
	board := mustParseBoard(t, boardAB22)
	ctx := context.Background()

	v := board.Version()
	mustFlip(t, board, "alice", 0, 0)
	if board.Version() <= v {
		t.Error("version should advance on a first flip")
	}

	v = board.Version()
	mustFlip(t, board, "alice", 0, 1) // mismatch
	if board.Version() <= v {
		t.Error("version should advance on a second flip")
	}

	v = board.Version()
	if err := board.Map(ctx, func(_ context.Context, s string) (string, error) { return s + "x", nil }); err != nil {
		t.Fatalf("Map failed: %v", err)
	}
	if board.Version() <= v {
		t.Error("version should advance on a relabel")
	}

	v = board.Version()
	board.Reset()
	if board.Version() <= v {
		t.Error("version should advance on reset")
	}
}

// A failed second flip still advances the version: the relinquished
// first card is a visible change.
func TestVersionAdvancesOnFailedSecondFlip(t *testing.T) {
	board := mustParseBoard(t, boardAB22)

	mustFlip(t, board, "bob", 0, 1)
	mustFlip(t, board, "alice", 0, 0)
	v := board.Version()
	if err := board.FlipSecond("alice", 0, 1); !errors.Is(err, gameerrors.ErrCardControlled) {
		t.Fatalf("expected controlled error, got %v", err)
	}
	if board.Version() <= v {
		t.Error("version should advance when the first card is relinquished")
	}
}

func TestReset(t *testing.T) {
	board := mustParseBoard(t, boardAB22)

	// Leave a pending match and a controlled card on the table.
	mustFlip(t, board, "p", 0, 0)
	mustFlip(t, board, "p", 1, 0)
	mustFlip(t, board, "q", 0, 1)

	board.Reset()

	want := "2x2\ndown\ndown\ndown\ndown\n"
	if got := mustLook(t, board, "p"); got != want {
		t.Errorf("expected snapshot after reset:\n%s\ngot:\n%s", want, got)
	}
	board.mu.Lock()
	playerCount := len(board.players)
	board.mu.Unlock()
	if playerCount != 0 {
		t.Errorf("reset should clear the player table, %d entries left", playerCount)
	}
	board.checkRep()
}
