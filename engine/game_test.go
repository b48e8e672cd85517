package engine

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
)

// newTestGame seats n players p0..p(n-1) and deals round 1.
func newTestGame(t *testing.T, n int) *GameState {
	t.Helper()
	players := make([]PlayerInfo, n)
	for i := range players {
		players[i] = PlayerInfo{ID: fmt.Sprintf("p%d", i), Name: fmt.Sprintf("Player %d", i)}
	}
	g, err := NewGame("g1", players, 42, DefaultHouseRules())
	if err != nil {
		t.Fatalf("NewGame: %v", err)
	}
	return g
}

// rigHand replaces a seat's hand with labelled test cards and recounts the
// shoe so CheckInvariants still balances.
func rigHand(g *GameState, seat int, labels ...string) {
	g.Players[seat].Hand = mkAll(labels...)
	recount(g)
}

// rigStockTop pushes labelled cards onto the stock; the last label is drawn first.
func rigStockTop(g *GameState, labels ...string) {
	g.Round.Stock = append(g.Round.Stock, mkAll(labels...)...)
	recount(g)
}

// rigMeld places a meld owned by seat and marks that seat down.
func rigMeld(g *GameState, seat int, typ MeldType, labels ...string) string {
	g.Round.MeldSeq++
	id := fmt.Sprintf("m%d", g.Round.MeldSeq)
	g.Round.Table = append(g.Round.Table, Meld{ID: id, Type: typ, OwnerID: g.Players[seat].ID, Cards: mkAll(labels...)})
	g.Players[seat].IsDown = true
	recount(g)
	return id
}

func recount(g *GameState) {
	n := len(g.Round.Stock) + len(g.Round.Discard)
	for _, p := range g.Players {
		n += len(p.Hand)
	}
	for _, m := range g.Round.Table {
		n += len(m.Cards)
	}
	g.Round.DeckSize = n
}

// mustApply fails the test if cmd is rejected.
func mustApply(t *testing.T, g *GameState, cmd Command) {
	t.Helper()
	if err := g.Apply(cmd); err != nil {
		t.Fatalf("%s by %s: %v", cmd.Action, cmd.PlayerID, err)
	}
}

// assertRejected applies cmd, expects want, and checks that nothing but
// LastError changed.
func assertRejected(t *testing.T, g *GameState, cmd Command, want error) {
	t.Helper()
	before := g.Clone()
	err := g.Apply(cmd)
	if !errors.Is(err, want) {
		t.Fatalf("%s by %s: err = %v, want %v", cmd.Action, cmd.PlayerID, err, want)
	}
	if g.LastError == nil || g.LastError.PlayerID != cmd.PlayerID || g.LastError.Action != cmd.Action {
		t.Fatalf("LastError = %+v", g.LastError)
	}
	after := g.Clone()
	after.LastError = nil
	before.LastError = nil
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("%s rejected but state changed", cmd.Action)
	}
}

func TestNewGameDeal(t *testing.T) {
	tests := []struct {
		players, deckSize int
	}{
		{3, 108},
		{5, 108},
		{6, 162},
		{8, 162},
	}
	for _, tt := range tests {
		g := newTestGame(t, tt.players)
		if g.Round.DeckSize != tt.deckSize {
			t.Errorf("%d players: deck = %d, want %d", tt.players, g.Round.DeckSize, tt.deckSize)
		}
		for _, p := range g.Players {
			if len(p.Hand) != 11 {
				t.Errorf("%s hand = %d, want 11", p.ID, len(p.Hand))
			}
		}
		if len(g.Round.Discard) != 1 {
			t.Errorf("discard = %d, want 1", len(g.Round.Discard))
		}
		wantStock := tt.deckSize - 11*tt.players - 1
		if len(g.Round.Stock) != wantStock {
			t.Errorf("stock = %d, want %d", len(g.Round.Stock), wantStock)
		}
		if err := g.CheckInvariants(); err != nil {
			t.Errorf("%d players: %v", tt.players, err)
		}
	}
}

func TestNewGameSeating(t *testing.T) {
	g := newTestGame(t, 4)
	if g.Phase != PhaseRoundActive {
		t.Errorf("phase = %s", g.Phase)
	}
	if g.Round.Number != 1 || g.Round.DealerIndex != 0 || g.Round.CurrentIndex != 1 {
		t.Errorf("round %d dealer %d current %d", g.Round.Number, g.Round.DealerIndex, g.Round.CurrentIndex)
	}
	if g.Round.Turn.Phase != TurnAwaitingDraw {
		t.Errorf("turn phase = %s", g.Round.Turn.Phase)
	}
	if !g.Round.DiscardClaimable || g.Round.DiscardedBy != "" {
		t.Errorf("up-card claimable=%v by=%q", g.Round.DiscardClaimable, g.Round.DiscardedBy)
	}
	if got := g.AwaitingPlayerID(); got != "p1" {
		t.Errorf("awaiting = %s, want p1", got)
	}
}

func TestNewGamePlayerCount(t *testing.T) {
	for _, n := range []int{0, 2, 9} {
		players := make([]PlayerInfo, n)
		for i := range players {
			players[i] = PlayerInfo{ID: fmt.Sprintf("p%d", i)}
		}
		if _, err := NewGame("g", players, 1, DefaultHouseRules()); !errors.Is(err, ErrPlayerCount) {
			t.Errorf("%d players: err = %v", n, err)
		}
	}
	dup := []PlayerInfo{{ID: "a"}, {ID: "b"}, {ID: "a"}}
	if _, err := NewGame("g", dup, 1, DefaultHouseRules()); err == nil {
		t.Error("duplicate ids should be rejected")
	}
}

func TestNewGameDeterministic(t *testing.T) {
	a := newTestGame(t, 3)
	b := newTestGame(t, 3)
	if !reflect.DeepEqual(a, b) {
		t.Error("same seed should deal the same game")
	}
}

func TestCloneIsDeep(t *testing.T) {
	g := newTestGame(t, 3)
	rigMeld(g, 0, MeldSet, "KH", "KD", "KC")
	c := g.Clone()
	c.Players[0].Hand[0] = mk("JK/9")
	c.Round.Table[0].Cards[0] = mk("JK/8")
	c.Round.Stock[0] = mk("JK/7")
	if g.Players[0].Hand[0].ID == "JK/9" || g.Round.Table[0].Cards[0].ID == "JK/8" || g.Round.Stock[0].ID == "JK/7" {
		t.Fatal("Clone shares slices with the original")
	}
}
