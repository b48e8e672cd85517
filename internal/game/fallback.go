package game

import (
	"context"
	"errors"
	"fmt"

	"github.com/DroopyTersen/mayi-sub006/engine"
	"github.com/DroopyTersen/mayi-sub006/internal/models"
)

// fallbackSteps bounds the fallback loop: draw, skip, discard plus one spare.
const fallbackSteps = 4

// fallbackTurn finishes the seat's pending decision deterministically: draw
// from stock, skip laying down, discard the first card, allow any May-I. Each
// step is persisted on its own so humans keep their window between phases.
func (c *Coordinator) fallbackTurn(ctx context.Context, seat models.PlayerMapping) error {
	for step := 0; step < fallbackSteps; step++ {
		st, g, err := c.load(ctx)
		if err != nil {
			return err
		}
		if g.AwaitingPlayerID() != seat.EngineID {
			return nil
		}
		ar := newActorAdapter(st, g, seat, c.log)
		applied := false
		for _, cmd := range fallbackCommands(g, seat.EngineID) {
			err := ar.apply(ctx, cmd)
			if err == nil {
				applied = true
				break
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
		}
		if !applied {
			return fmt.Errorf("no fallback move for %s in %s", seat.EngineID, g.DecisionCtx())
		}
		if err := c.persist(ctx, ar); err != nil {
			if errors.Is(err, ErrMergeConflict) {
				continue
			}
			return err
		}
	}
	return nil
}

// fallbackCommands lists, in preference order, the moves to try.
func fallbackCommands(g *engine.GameState, actorID string) []engine.Command {
	switch g.DecisionCtx() {
	case engine.CtxMayIResponse:
		return []engine.Command{{Action: engine.ActionAllowMayI}}
	case engine.CtxStartTurn:
		return []engine.Command{{Action: engine.ActionDrawStock}, {Action: engine.ActionDrawDiscard}}
	case engine.CtxPostDraw:
		return []engine.Command{{Action: engine.ActionSkipLayDown}}
	case engine.CtxMustDiscard:
		if p := g.Player(actorID); p != nil && len(p.Hand) > 0 {
			return []engine.Command{{Action: engine.ActionDiscard, CardID: p.Hand[0].ID}}
		}
	}
	return nil
}
