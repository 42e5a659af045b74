// Package sim drives a board with concurrent simulated players, for
// demos and as a concurrency smoke test.
package sim

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"golang.org/x/sync/errgroup"

	"memory-scramble-server/game"
)

// Options configures a simulation run.
type Options struct {
	Players  int
	Flips    int // flip pairs attempted per player
	MaxDelay time.Duration
}

// Run plays Options.Players concurrent players against board, each
// attempting Options.Flips turns of two flips at random positions with
// random think delays. Failed flips are part of normal play and only
// logged; Run returns early only if ctx is cancelled.
func Run(ctx context.Context, board *game.Board, opts Options) error {
	rows, cols := board.Size()

	// A player that runs out of flips may exit while still controlling
	// a card, so a blocked flip could otherwise wait forever. Bound the
	// wait and count a timed-out flip as a failed one.
	flipWait := 50 * opts.MaxDelay
	if flipWait <= 0 {
		flipWait = time.Second
	}
	flip := func(playerID string, row, col int) error {
		flipCtx, cancel := context.WithTimeout(ctx, flipWait)
		defer cancel()
		return board.Flip(flipCtx, playerID, row, col)
	}

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < opts.Players; i++ {
		playerID := fmt.Sprintf("sim_%d", i)
		g.Go(func() error {
			for j := 0; j < opts.Flips; j++ {
				if err := sleep(ctx, opts.MaxDelay); err != nil {
					return err
				}
				if err := flip(playerID, rand.Intn(rows), rand.Intn(cols)); err != nil {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					slog.Debug("first flip failed", "tag", "sim", "player", playerID, "err", err)
					continue
				}

				if err := sleep(ctx, opts.MaxDelay); err != nil {
					return err
				}
				if err := flip(playerID, rand.Intn(rows), rand.Intn(cols)); err != nil {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					slog.Debug("second flip failed", "tag", "sim", "player", playerID, "err", err)
				}
			}
			return nil
		})
	}
	return g.Wait()
}

// sleep pauses for a random duration up to max, honoring cancellation.
func sleep(ctx context.Context, max time.Duration) error {
	if max <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(time.Duration(rand.Int63n(int64(max))))
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
