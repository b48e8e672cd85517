package engine

import (
	"fmt"
	"math/rand"
	"reflect"
	"testing"
)

func TestAvailableActionsByPhase(t *testing.T) {
	g := newTestGame(t, 4)

	if got := g.AvailableActions("p1"); !reflect.DeepEqual(got, []ActionType{ActionDrawStock, ActionDrawDiscard, ActionReorderHand}) {
		t.Errorf("awaiting draw: %v", got)
	}
	if got := g.AvailableActions("p2"); !reflect.DeepEqual(got, []ActionType{ActionCallMayI, ActionReorderHand}) {
		t.Errorf("off-turn: %v", got)
	}
	if got := g.AvailableActions("ghost"); got != nil {
		t.Errorf("unknown player: %v", got)
	}

	mustApply(t, g, Command{Action: ActionDrawStock, PlayerID: "p1"})
	if got := g.AvailableActions("p1"); !reflect.DeepEqual(got, []ActionType{ActionLayDown, ActionSkipLayDown, ActionReorderHand}) {
		t.Errorf("drawn: %v", got)
	}
	mustApply(t, g, Command{Action: ActionSkipLayDown, PlayerID: "p1"})
	if got := g.AvailableActions("p1"); !reflect.DeepEqual(got, []ActionType{ActionDiscard, ActionReorderHand}) {
		t.Errorf("awaiting discard: %v", got)
	}
	if g.DecisionCtx() != CtxMustDiscard {
		t.Errorf("decision = %s", g.DecisionCtx())
	}

	mustApply(t, g, Command{Action: ActionCallMayI, PlayerID: "p0"})
	if got := g.AvailableActions("p2"); !reflect.DeepEqual(got, []ActionType{ActionAllowMayI, ActionClaimMayI, ActionReorderHand}) {
		t.Errorf("prompted: %v", got)
	}
	if got := g.AvailableActions("p1"); !reflect.DeepEqual(got, []ActionType{ActionReorderHand}) {
		t.Errorf("suspended turn-holder: %v", got)
	}
}

func TestAvailableActionsWhenDown(t *testing.T) {
	g := newTestGame(t, 3)
	rigMeld(g, 1, MeldRun, "5S", "JK", "7S", "8S")
	mustApply(t, g, Command{Action: ActionDrawStock, PlayerID: "p1"})
	want := []ActionType{ActionLayOff, ActionSwapJoker, ActionSkipLayDown, ActionReorderHand}
	if got := g.AvailableActions("p1"); !reflect.DeepEqual(got, want) {
		t.Errorf("down player: %v, want %v", got, want)
	}
}

// randomPlayout drives a game with random legal-ish commands, applying a
// mix of valid and invalid ones, and checks the conservation and isDown
// invariants after every command.
func randomPlayout(t *testing.T, seed int64, players, steps int) {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	g := newTestGame(t, players)
	for step := 0; step < steps && !g.IsGameOver(); step++ {
		actor := g.Players[rng.Intn(players)]
		cmd := Command{PlayerID: actor.ID}
		acts := g.AvailableActions(actor.ID)
		cmd.Action = acts[rng.Intn(len(acts))]
		if len(actor.Hand) > 0 {
			cmd.CardID = actor.Hand[rng.Intn(len(actor.Hand))].ID
		}
		if cmd.Action == ActionReorderHand {
			for _, i := range rng.Perm(len(actor.Hand)) {
				cmd.CardIDs = append(cmd.CardIDs, actor.Hand[i].ID)
			}
		}
		if n := len(g.Round.Table); n > 0 {
			cmd.MeldID = g.Round.Table[rng.Intn(n)].ID
		}
		before := g.Version
		err := g.Apply(cmd)
		if err == nil && g.Version != before+1 {
			t.Fatalf("step %d: version %d -> %d", step, before, g.Version)
		}
		if err != nil && g.Version != before {
			t.Fatalf("step %d: rejected %s bumped version", step, cmd.Action)
		}
		if err := g.CheckInvariants(); err != nil {
			t.Fatalf("seed %d step %d after %s by %s: %v", seed, step, cmd.Action, cmd.PlayerID, err)
		}
	}
}

func TestRandomPlayoutInvariants(t *testing.T) {
	for seed := int64(1); seed <= 8; seed++ {
		players := 3 + int(seed)%6
		t.Run(fmt.Sprintf("seed%d_%dp", seed, players), func(t *testing.T) {
			randomPlayout(t, seed, players, 400)
		})
	}
}
