package game

import (
	"fmt"
	"slices"

	"github.com/DroopyTersen/mayi-sub006/engine"
)

// mergeAIState reconciles an AI actor's working copy with the freshest
// stored game.
//
// Actor-owned fields are the actor's hand and down status plus the turn and
// May-I flags its own commands move. Everything else (table, stock, discard,
// other hands, scores, history) is shared and always keeps the fresh value.
//
// If nothing was written since the adapter synced, fresh is the state the
// working copy grew from and local is returned as is. Otherwise the journal
// is replayed on a clone of fresh: shared fields start from the concurrent
// writer's values and only the actor's own transitions are layered on top.
// A replay the engine rejects, or one that leaves the actor holding a
// different hand than the one it planned with, is ErrMergeConflict and the
// fresh state stands.
func mergeAIState(fresh, local *engine.GameState, actorID string, diverged bool, journal []engine.Command) (*engine.GameState, error) {
	if !diverged {
		return local.Clone(), nil
	}
	merged := fresh.Clone()
	for _, cmd := range journal {
		if cmd.PlayerID != actorID {
			return nil, fmt.Errorf("%w: journal entry for %s in %s's adapter", ErrMergeConflict, cmd.PlayerID, actorID)
		}
		if err := merged.Apply(cmd); err != nil {
			return nil, fmt.Errorf("%w: replay %s: %v", ErrMergeConflict, cmd.Action, err)
		}
	}
	if !sameActorFields(merged, local, actorID) {
		return nil, fmt.Errorf("%w: %s's hand diverged during replay", ErrMergeConflict, actorID)
	}
	return merged, nil
}

func sameActorFields(a, b *engine.GameState, actorID string) bool {
	pa, pb := a.Player(actorID), b.Player(actorID)
	if pa == nil || pb == nil {
		return false
	}
	if pa.IsDown != pb.IsDown || len(pa.Hand) != len(pb.Hand) {
		return false
	}
	return slices.Equal(sortedIDs(pa.Hand), sortedIDs(pb.Hand))
}

func sortedIDs(cards []engine.Card) []string {
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = c.ID
	}
	slices.Sort(out)
	return out
}
