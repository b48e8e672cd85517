// Package bot provides built-in AI players for May-I rooms.
package bot

import (
	"context"
	"errors"
	"fmt"

	"github.com/DroopyTersen/mayi-sub006/engine"
	"github.com/DroopyTersen/mayi-sub006/internal/game"
	"github.com/sirupsen/logrus"
)

// ModelHeuristic is the model id of the built-in rule-based player. An empty
// model id resolves to it as well.
const ModelHeuristic = "heuristic"

// maxClaimHand stops the heuristic from claiming May-Is once its hand is
// already this large.
const maxClaimHand = 15

// New returns the agent for modelID.
func New(modelID string, log *logrus.Entry) (game.Agent, error) {
	switch modelID {
	case "", ModelHeuristic:
		return &Heuristic{log: log}, nil
	}
	return nil, fmt.Errorf("unknown AI model %q", modelID)
}

// Resolver adapts New for a game.SessionDeps.
func Resolver(log *logrus.Entry) game.AgentResolver {
	return func(modelID string) (game.Agent, error) { return New(modelID, log) }
}

// Heuristic plays by fixed rules: take cards that move it toward the
// contract, lay down as soon as the solver finds a meld, lay off and swap
// Jokers once down, and discard what it needs least.
type Heuristic struct {
	log *logrus.Entry
}

var errNoMove = errors.New("no move for decision")

func (h *Heuristic) ExecuteTurn(ctx context.Context, req game.TurnRequest) game.TurnResult {
	round := req.Tools.State().Round.Number
	var acts []engine.ActionType
	for step := 0; step < req.MaxSteps; step++ {
		if err := ctx.Err(); err != nil {
			return game.TurnResult{Actions: acts, Err: err}
		}
		g := req.Tools.State()
		if g.AwaitingPlayerID() != req.ActorID || g.Round.Number != round {
			return game.TurnResult{Success: true, Actions: acts}
		}
		act, err := h.step(ctx, req.Tools, g, req.ActorID)
		if err != nil {
			return game.TurnResult{Actions: acts, Err: fmt.Errorf("%s: %w", g.DecisionCtx(), err)}
		}
		acts = append(acts, act)
		if h.log != nil {
			h.log.WithField("actor", req.ActorID).Debugf("heuristic chose %s", act)
		}
		if err := req.OnPersist(ctx); err != nil {
			return game.TurnResult{Actions: acts, Err: err}
		}
	}
	return game.TurnResult{Actions: acts, Err: fmt.Errorf("step limit %d reached", req.MaxSteps)}
}

func (h *Heuristic) step(ctx context.Context, t game.Tools, g *engine.GameState, me string) (engine.ActionType, error) {
	p := g.Player(me)
	round := g.Round.Number
	switch g.DecisionCtx() {
	case engine.CtxMayIResponse:
		if m := g.Round.MayI; m != nil && len(p.Hand) < maxClaimHand && wants(p.Hand, m.Card, round) {
			return engine.ActionClaimMayI, t.ClaimMayI(ctx)
		}
		return engine.ActionAllowMayI, t.AllowMayI(ctx)

	case engine.CtxStartTurn:
		top, ok := g.DiscardTop()
		open := ok && g.Round.DiscardClaimable
		if open && !p.IsDown && wants(p.Hand, top, round) {
			return engine.ActionDrawDiscard, t.DrawFromDiscard(ctx)
		}
		if open && len(g.Round.Stock) == 0 && len(g.Round.Discard) <= 1 {
			return engine.ActionDrawDiscard, t.DrawFromDiscard(ctx) // nothing left to reshuffle
		}
		return engine.ActionDrawStock, t.DrawFromStock(ctx)

	case engine.CtxPostDraw:
		if !p.IsDown {
			if groups, ok := SolveContract(p.Hand, round, g.Rules); ok {
				return engine.ActionLayDown, t.LayDown(ctx, groups)
			}
		}
		if meld, joker, swap, ok := findJokerSwap(g, me); ok {
			return engine.ActionSwapJoker, t.SwapJoker(ctx, meld, joker, swap)
		}
		if p.IsDown && !g.Round.Turn.LaidDownThisTurn {
			if card, meld, ok := findLayOff(g, me); ok {
				return engine.ActionLayOff, t.LayOff(ctx, card, meld)
			}
		}
		return engine.ActionSkipLayDown, t.Skip(ctx)

	case engine.CtxMustDiscard:
		if len(p.Hand) == 0 {
			return "", errNoMove
		}
		return engine.ActionDiscard, t.Discard(ctx, chooseDiscard(p.Hand, round, p.IsDown).ID)
	}
	return "", errNoMove
}
