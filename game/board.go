package game

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"memory-scramble-server/gameerrors"
)

// Transformer rewrites one card label during Board.Map. Transformers for
// distinct labels run concurrently and may block.
type Transformer func(ctx context.Context, label string) (string, error)

// Board is a shared, mutable grid of cards that players flip concurrently
// to find matching pairs. All operations are safe for concurrent use.
//
// One mutex guards the grid, the player table, the version counter and
// the wakeup channels. Blocking operations (FlipFirst on a controlled
// card, Watch) release the mutex while suspended and re-check their
// guard predicate after waking. Wakeups are broadcast by closing a
// channel and replacing it, so every waiter observes the event and a
// suspended caller can also abort on context cancellation.
type Board struct {
	rows, cols int

	mu      sync.Mutex
	grid    [][]*Card
	players map[string]*PlayerState
	version uint64

	// spotChs[pos] is closed when control of pos is released or the
	// card there is removed; created lazily on first wait.
	spotChs map[Position]chan struct{}
	// watchCh is closed whenever version advances.
	watchCh chan struct{}
}

// NewBoard creates a board from a rows x cols grid of cards.
func NewBoard(rows, cols int, cards [][]*Card) (*Board, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("%w: board dimensions must be positive, got %dx%d", gameerrors.ErrInvalidInput, rows, cols)
	}
	if len(cards) != rows {
		return nil, fmt.Errorf("%w: expected %d rows, got %d", gameerrors.ErrInvalidInput, rows, len(cards))
	}
	for i, row := range cards {
		if len(row) != cols {
			return nil, fmt.Errorf("%w: row %d has %d cards, expected %d", gameerrors.ErrInvalidInput, i, len(row), cols)
		}
	}
	return &Board{
		rows:    rows,
		cols:    cols,
		grid:    cards,
		players: make(map[string]*PlayerState),
		spotChs: make(map[Position]chan struct{}),
		watchCh: make(chan struct{}),
	}, nil
}

// Size returns the board dimensions.
func (b *Board) Size() (rows, cols int) {
	return b.rows, b.cols
}

// Version returns the current change counter. It advances on every
// mutating operation.
func (b *Board) Version() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.version
}

func (b *Board) validatePos(row, col int) error {
	if row < 0 || row >= b.rows {
		return fmt.Errorf("%w: row %d out of bounds [0,%d)", gameerrors.ErrInvalidInput, row, b.rows)
	}
	if col < 0 || col >= b.cols {
		return fmt.Errorf("%w: column %d out of bounds [0,%d)", gameerrors.ErrInvalidInput, col, b.cols)
	}
	return nil
}

func (b *Board) cardAt(pos Position) *Card {
	return b.grid[pos.Row][pos.Col]
}

// playerLocked returns the state for playerID, creating it on first
// mention. Caller holds b.mu.
func (b *Board) playerLocked(playerID string) (*PlayerState, error) {
	if p, ok := b.players[playerID]; ok {
		return p, nil
	}
	p, err := NewPlayerState(playerID)
	if err != nil {
		return nil, err
	}
	b.players[playerID] = p
	return p, nil
}

// bumpVersionLocked advances the change counter and wakes all watchers.
// Caller holds b.mu.
func (b *Board) bumpVersionLocked() {
	b.version++
	close(b.watchCh)
	b.watchCh = make(chan struct{})
}

// spotWaitChLocked returns the wakeup channel for pos, creating it if
// absent. Caller holds b.mu.
func (b *Board) spotWaitChLocked(pos Position) chan struct{} {
	ch, ok := b.spotChs[pos]
	if !ok {
		ch = make(chan struct{})
		b.spotChs[pos] = ch
	}
	return ch
}

// releaseSpotLocked wakes every waiter on pos. Broadcast is mandatory:
// after a removal each waiter must observe the terminal state itself.
// Caller holds b.mu.
func (b *Board) releaseSpotLocked(pos Position) {
	if ch, ok := b.spotChs[pos]; ok {
		close(ch)
		delete(b.spotChs, pos)
	}
}

// cleanupLocked applies turn-boundary cleanup for player before their
// next first flip and returns the positions whose waiters must be woken.
//
// Matched branch: remove both cards of the pending pair. Relinquish
// branch: flip down each held card that is still on board, face up and
// uncontrolled; cards grabbed by another player in the meantime are
// left alone, as are removed cards. Either branch ends with a cleared
// player state. Caller holds b.mu.
func (b *Board) cleanupLocked(player *PlayerState) []Position {
	var released []Position

	if player.MatchedPair != nil {
		for _, pos := range player.MatchedPair {
			b.cardAt(pos).Remove()
			released = append(released, pos)
		}
		player.ClearState()
		return released
	}

	if player.FirstCard == nil && player.SecondCard == nil {
		return nil
	}
	for pos := range player.ControlledPositions() {
		card := b.cardAt(pos)
		if card.OnBoard() && card.FaceUp() && card.Controller() == "" {
			card.FlipDown()
			released = append(released, pos)
		}
	}
	player.ClearState()
	return released
}

// FlipFirst flips a player's first card of the turn.
//
// If the target is face up and controlled by another player, FlipFirst
// blocks until the card is released or removed, or ctx is cancelled.
// Once past the wait it runs turn-boundary cleanup for the player,
// then: a removed target
// fails, a face-down target is flipped up and controlled, a face-up
// uncontrolled target is controlled.
func (b *Board) FlipFirst(ctx context.Context, playerID string, row, col int) error {
	if !ValidPlayerID(playerID) {
		return fmt.Errorf("%w: bad player ID %q", gameerrors.ErrInvalidInput, playerID)
	}
	if err := b.validatePos(row, col); err != nil {
		return err
	}
	pos := Position{row, col}

	b.mu.Lock()
	defer b.mu.Unlock()

	// Wait only on cards controlled by another player. A card the
	// acting player controls themselves (e.g. a match-pending pair on a
	// tiny board) must fall through to cleanup instead of deadlocking.
	for {
		card := b.cardAt(pos)
		ctl := card.Controller()
		if !(card.OnBoard() && card.FaceUp() && ctl != "" && ctl != playerID) {
			break
		}
		ch := b.spotWaitChLocked(pos)
		b.mu.Unlock()
		select {
		case <-ch:
		case <-ctx.Done():
			b.mu.Lock()
			return ctx.Err()
		}
		b.mu.Lock()
	}

	player, err := b.playerLocked(playerID)
	if err != nil {
		return err
	}
	released := b.cleanupLocked(player)

	// Re-read: cleanup may have flipped down the target itself.
	card := b.cardAt(pos)

	var flipErr error
	switch {
	case !card.OnBoard():
		flipErr = fmt.Errorf("%w: no card at %v", gameerrors.ErrCardRemoved, pos)
	case !card.FaceUp():
		card.FlipUp()
		card.SetController(playerID)
		player.FirstCard = &pos
	default:
		// Face up and either uncontrolled (the wait loop excludes other
		// controllers) or still held by this player; take it either way.
		card.SetController(playerID)
		player.FirstCard = &pos
	}

	for _, p := range released {
		b.releaseSpotLocked(p)
	}
	if flipErr != nil {
		// The flip failed, but cleanup may still have changed the board.
		if len(released) > 0 {
			b.bumpVersionLocked()
		}
		return flipErr
	}
	b.bumpVersionLocked()
	return nil
}

// FlipSecond flips a player's second card of the turn. It never blocks.
//
// A removed or controlled target fails the turn: the first card is
// relinquished (it stays face up) before the error is returned.
// Otherwise the target is flipped up if needed and controlled; equal
// labels mark a match and both controllers are retained, unequal labels
// relinquish both cards while the held positions stay recorded for
// cleanup at the next turn boundary.
func (b *Board) FlipSecond(playerID string, row, col int) error {
	if !ValidPlayerID(playerID) {
		return fmt.Errorf("%w: bad player ID %q", gameerrors.ErrInvalidInput, playerID)
	}
	if err := b.validatePos(row, col); err != nil {
		return err
	}
	pos := Position{row, col}

	b.mu.Lock()
	defer b.mu.Unlock()

	player, err := b.playerLocked(playerID)
	if err != nil {
		return err
	}
	if player.FirstCard == nil {
		return fmt.Errorf("%w: second flip without a first card", gameerrors.ErrInvalidState)
	}
	if player.SecondCard != nil {
		return fmt.Errorf("%w: second card already flipped", gameerrors.ErrInvalidState)
	}

	firstPos := *player.FirstCard
	first := b.cardAt(firstPos)
	second := b.cardAt(pos)

	fail := func(cause error) error {
		first.SetController("")
		player.FirstCard = nil
		b.releaseSpotLocked(firstPos)
		b.bumpVersionLocked()
		return cause
	}

	if !second.OnBoard() {
		return fail(fmt.Errorf("%w: no card at %v", gameerrors.ErrCardRemoved, pos))
	}
	if second.FaceUp() && second.Controller() != "" {
		return fail(fmt.Errorf("%w: card at %v", gameerrors.ErrCardControlled, pos))
	}

	if !second.FaceUp() {
		second.FlipUp()
	}
	second.SetController(playerID)
	player.SecondCard = &pos

	if first.Value() == second.Value() {
		player.MarkMatch(firstPos, pos)
	} else {
		// Mismatch: relinquish both but keep the positions recorded so
		// the next turn boundary can flip down what remains eligible.
		first.SetController("")
		second.SetController("")
		b.releaseSpotLocked(firstPos)
		b.releaseSpotLocked(pos)
	}
	b.bumpVersionLocked()
	return nil
}

// Flip routes to FlipFirst or FlipSecond based on the player's state.
// A player is mid-turn, and routed to FlipSecond, only when they hold a
// first card, no second card, and no pending match; a pending match or
// a finished mismatch routes back to FlipFirst so turn-boundary cleanup
// runs before the new flip.
func (b *Board) Flip(ctx context.Context, playerID string, row, col int) error {
	if !ValidPlayerID(playerID) {
		return fmt.Errorf("%w: bad player ID %q", gameerrors.ErrInvalidInput, playerID)
	}

	b.mu.Lock()
	player, err := b.playerLocked(playerID)
	if err != nil {
		b.mu.Unlock()
		return err
	}
	midTurn := player.FirstCard != nil && player.SecondCard == nil && player.MatchedPair == nil
	b.mu.Unlock()

	if midTurn {
		return b.FlipSecond(playerID, row, col)
	}
	return b.FlipFirst(ctx, playerID, row, col)
}

// Look returns the board as seen by playerID: "rowsxcols" then one line
// per cell in row-major order ("none", "down", "my LABEL" or
// "up LABEL"), ending with a newline. Look creates no player state and
// does not advance the version.
func (b *Board) Look(playerID string) (string, error) {
	if !ValidPlayerID(playerID) {
		return "", fmt.Errorf("%w: bad player ID %q", gameerrors.ErrInvalidInput, playerID)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshotLocked(playerID), nil
}

// snapshotLocked renders the grid for viewer; an empty viewer is the
// neutral observer and never sees "my". Caller holds b.mu.
func (b *Board) snapshotLocked(viewer string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%dx%d\n", b.rows, b.cols)
	for r := 0; r < b.rows; r++ {
		for c := 0; c < b.cols; c++ {
			card := b.grid[r][c]
			switch {
			case !card.OnBoard():
				sb.WriteString("none\n")
			case !card.FaceUp():
				sb.WriteString("down\n")
			case viewer != "" && card.Controller() == viewer:
				sb.WriteString("my ")
				sb.WriteString(card.Value())
				sb.WriteByte('\n')
			default:
				sb.WriteString("up ")
				sb.WriteString(card.Value())
				sb.WriteByte('\n')
			}
		}
	}
	return sb.String()
}

// Snapshot returns the neutral observer's view of the board, in the
// same format as Look but with no "my" rows.
func (b *Board) Snapshot() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshotLocked("")
}

// Watch blocks until the board changes (any card flipped, removed or
// relabeled), then returns a neutral snapshot of the new state.
func (b *Board) Watch(ctx context.Context) (string, error) {
	b.mu.Lock()
	v0 := b.version
	for b.version == v0 {
		ch := b.watchCh
		b.mu.Unlock()
		select {
		case <-ch:
		case <-ctx.Done():
			return "", ctx.Err()
		}
		b.mu.Lock()
	}
	snapshot := b.snapshotLocked("")
	b.mu.Unlock()
	return snapshot, nil
}

// Map relabels the board while preserving which cards match which.
//
// Labels are collected into groups under the lock, transformed
// concurrently without it, then each group is committed under the lock:
// a concurrent flip sees either the whole old label or the whole new
// one for any group. Cards removed between collect and commit are
// skipped. Face-up state, control and player state are untouched.
//
// If a transformer fails nothing is committed; if a transformed label
// is invalid, groups committed before it stay committed.
func (b *Board) Map(ctx context.Context, transformer Transformer) error {
	b.mu.Lock()
	groups := make(map[string][]Position)
	for r := 0; r < b.rows; r++ {
		for c := 0; c < b.cols; c++ {
			card := b.grid[r][c]
			if card.OnBoard() {
				groups[card.Value()] = append(groups[card.Value()], Position{r, c})
			}
		}
	}
	b.mu.Unlock()

	if len(groups) == 0 {
		return nil
	}

	labels := make([]string, 0, len(groups))
	for label := range groups {
		labels = append(labels, label)
	}

	results := make([]string, len(labels))
	g, gctx := errgroup.WithContext(ctx)
	for i, label := range labels {
		g.Go(func() error {
			out, err := transformer(gctx, label)
			if err != nil {
				return fmt.Errorf("transform %q: %w", label, err)
			}
			results[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, label := range labels {
		newLabel := results[i]
		if !ValidLabel(newLabel) {
			return fmt.Errorf("%w: transformed label %q must be non-empty without whitespace", gameerrors.ErrInvalidInput, newLabel)
		}
		b.mu.Lock()
		for _, pos := range groups[label] {
			if card := b.cardAt(pos); card.OnBoard() {
				card.relabel(newLabel)
			}
		}
		b.bumpVersionLocked()
		b.mu.Unlock()
	}
	return nil
}

// Reset returns every card to the board face down and uncontrolled,
// clears the player table, and wakes all blocked flippers and watchers.
func (b *Board) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, row := range b.grid {
		for _, card := range row {
			card.reset()
		}
	}
	b.players = make(map[string]*PlayerState)
	for pos := range b.spotChs {
		b.releaseSpotLocked(pos)
	}
	b.bumpVersionLocked()
}

// checkRep panics if a board invariant is broken. Used by tests.
func (b *Board) checkRep() {
	b.mu.Lock()
	defer b.mu.Unlock()

	removed := make(map[string]int)
	for _, row := range b.grid {
		for _, card := range row {
			card.checkRep()
			if !card.OnBoard() {
				removed[card.Value()]++
			}
		}
	}
	// Cards leave the board only as matched pairs.
	for label, n := range removed {
		if n%2 != 0 {
			panic(fmt.Sprintf("board: %d removed cards labeled %q, want an even count", n, label))
		}
	}
}

// String renders the board dimensions for debugging.
func (b *Board) String() string {
	return fmt.Sprintf("Board(%dx%d)", b.rows, b.cols)
}
