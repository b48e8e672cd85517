package engine

import (
	"reflect"
	"testing"
)

func TestHandPoints(t *testing.T) {
	if got := HandPoints(mkAll("AS", "JK", "KH", "7C", "2D")); got != 15+50+10+7+2 {
		t.Errorf("HandPoints = %d", got)
	}
	if got := HandPoints(nil); got != 0 {
		t.Errorf("empty hand = %d", got)
	}
}

func TestScoresAccumulateAcrossRounds(t *testing.T) {
	g := newTestGame(t, 3)
	rigHand(g, 0, "AS", "JK")
	rigHand(g, 2, "3C")
	g.endRound(1)
	rigHand(g, 0, "KH")
	rigHand(g, 1, "9D")
	g.endRound(2)

	if got := g.Players[0].TotalScore; got != 65+10 {
		t.Errorf("p0 total = %d, want 75", got)
	}
	if got := g.Players[1].TotalScore; got != 9 {
		t.Errorf("p1 total = %d, want 9", got)
	}
	if got := g.Players[2].TotalScore; got != 3 {
		t.Errorf("p2 total = %d, want 3", got)
	}
	if len(g.History) != 2 || g.History[1].Scores["p2"] != 0 {
		t.Errorf("history = %+v", g.History)
	}
	if g.Round.Number != 3 {
		t.Errorf("round = %d, want 3", g.Round.Number)
	}
}

func TestGameEndsAfterFinalRound(t *testing.T) {
	g := newTestGame(t, 3)
	g.Round.Number = FinalRound
	g.endRound(0)

	if !g.IsGameOver() || g.Phase != PhaseGameEnd {
		t.Fatalf("phase = %s", g.Phase)
	}
	if g.AwaitingPlayerID() != "" {
		t.Errorf("awaiting = %q after game end", g.AwaitingPlayerID())
	}
	assertRejected(t, g, Command{Action: ActionDrawStock, PlayerID: "p1"}, ErrGameOver)
	assertRejected(t, g, Command{Action: ActionCallMayI, PlayerID: "p2"}, ErrGameOver)
}

func TestWinners(t *testing.T) {
	g := newTestGame(t, 4)
	for i, s := range []int{40, 12, 55, 12} {
		g.Players[i].TotalScore = s
	}
	if got := g.Winners(); !reflect.DeepEqual(got, []string{"p1", "p3"}) {
		t.Errorf("Winners = %v", got)
	}
}
