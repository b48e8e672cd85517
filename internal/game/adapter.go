package game

import (
	"context"

	"github.com/DroopyTersen/mayi-sub006/engine"
	"github.com/DroopyTersen/mayi-sub006/internal/models"
	"github.com/sirupsen/logrus"
)

// actorAdapter is an AI actor's private working copy of the game. It applies
// commands locally under the actor's engine id and remembers, since the last
// sync, which revision it started from and which commands it applied.
// An adapter is driven from a single goroutine.
type actorAdapter struct {
	seat  models.PlayerMapping
	local *engine.GameState

	base     int64
	journal  []engine.Command
	activity []models.ActivityEntry

	log *logrus.Entry
}

var _ Tools = (*actorAdapter)(nil)

func newActorAdapter(st *models.StoredGameState, g *engine.GameState, seat models.PlayerMapping, log *logrus.Entry) *actorAdapter {
	a := &actorAdapter{seat: seat, log: log.WithField("actor", seat.EngineID)}
	a.sync(st.Revision, g)
	return a
}

// sync rebases the adapter on a stored revision and drops the journal.
func (a *actorAdapter) sync(revision int64, g *engine.GameState) {
	a.local = g.Clone()
	a.base = revision
	a.journal = nil
	a.activity = nil
}

func (a *actorAdapter) pending() bool { return len(a.journal) > 0 }

func (a *actorAdapter) apply(ctx context.Context, cmd engine.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cmd.PlayerID = a.seat.EngineID
	if err := a.local.Apply(cmd); err != nil {
		a.log.WithError(err).Debugf("tool %s rejected", cmd.Action)
		return err
	}
	a.journal = append(a.journal, cmd)
	a.activity = append(a.activity, commandActivity(a.seat.ExternalID, cmd))
	a.log.Debugf("tool %s applied locally", cmd.Action)
	return nil
}

func (a *actorAdapter) View() engine.GameSnapshot { return a.local.Snapshot(a.seat.EngineID) }
func (a *actorAdapter) State() *engine.GameState  { return a.local.Clone() }

func (a *actorAdapter) DrawFromStock(ctx context.Context) error {
	return a.apply(ctx, engine.Command{Action: engine.ActionDrawStock})
}

func (a *actorAdapter) DrawFromDiscard(ctx context.Context) error {
	return a.apply(ctx, engine.Command{Action: engine.ActionDrawDiscard})
}

func (a *actorAdapter) LayDown(ctx context.Context, groups []engine.MeldGroup) error {
	return a.apply(ctx, engine.Command{Action: engine.ActionLayDown, Groups: groups})
}

func (a *actorAdapter) LayOff(ctx context.Context, cardID, meldID string) error {
	return a.apply(ctx, engine.Command{Action: engine.ActionLayOff, CardID: cardID, MeldID: meldID})
}

func (a *actorAdapter) SwapJoker(ctx context.Context, meldID, jokerCardID, swapCardID string) error {
	return a.apply(ctx, engine.Command{Action: engine.ActionSwapJoker, MeldID: meldID, JokerCardID: jokerCardID, SwapCardID: swapCardID})
}

func (a *actorAdapter) Skip(ctx context.Context) error {
	return a.apply(ctx, engine.Command{Action: engine.ActionSkipLayDown})
}

func (a *actorAdapter) Discard(ctx context.Context, cardID string) error {
	return a.apply(ctx, engine.Command{Action: engine.ActionDiscard, CardID: cardID})
}

func (a *actorAdapter) AllowMayI(ctx context.Context) error {
	return a.apply(ctx, engine.Command{Action: engine.ActionAllowMayI})
}

func (a *actorAdapter) ClaimMayI(ctx context.Context) error {
	return a.apply(ctx, engine.Command{Action: engine.ActionClaimMayI})
}
