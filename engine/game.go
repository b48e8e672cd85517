// Package engine implements the rules of May-I Rummy.
//
// GameState is a plain value tree (slices, no pointers into other owners)
// that is mutated only through Apply. Apply either commits a command in
// full or leaves the state untouched and records why in LastError. The
// package has no dependencies beyond the standard library, so it can run
// inside a server session, an AI planner, or a test without wiring.
package engine

import "fmt"

// GamePhase is the top-level state of a game.
type GamePhase string

const (
	PhaseRoundActive   GamePhase = "ROUND_ACTIVE"
	PhaseResolvingMayI GamePhase = "RESOLVING_MAY_I"
	PhaseGameEnd       GamePhase = "GAME_END"
)

// TurnPhase is the state of the current player's turn.
type TurnPhase string

const (
	TurnAwaitingDraw    TurnPhase = "AWAITING_DRAW"
	TurnAwaitingAction  TurnPhase = "AWAITING_ACTION"
	TurnAwaitingDiscard TurnPhase = "AWAITING_DISCARD"
)

// Player is one seat at the table.
type Player struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Hand       []Card `json:"hand"`
	IsDown     bool   `json:"isDown"`
	TotalScore int    `json:"totalScore"`
}

// TurnState is the embedded state of the turn machine for the current player.
type TurnState struct {
	Phase            TurnPhase `json:"phase"`
	LaidDownThisTurn bool      `json:"laidDownThisTurn"`
	DrewFromDiscard  bool      `json:"drewFromDiscard"`
}

// MayIState tracks an in-progress May-I resolution.
type MayIState struct {
	CallerID   string `json:"callerId"`
	Card       Card   `json:"card"`
	PromptedID string `json:"promptedId,omitempty"`
	// Prompts counts how many players were asked before resolution.
	Prompts int `json:"prompts"`
}

// RoundState is the embedded state of the round machine.
type RoundState struct {
	Number       int    `json:"number"`
	DealerIndex  int    `json:"dealerIndex"`
	CurrentIndex int    `json:"currentIndex"`
	Stock        []Card `json:"stock"`
	Discard      []Card `json:"discard"`
	Table        []Meld `json:"table"`
	DeckSize     int    `json:"deckSize"`
	MeldSeq      int    `json:"meldSeq"`
	// DiscardClaimable is true from the moment a card lands on the discard
	// pile until the turn-holder draws it or a May-I awards it.
	DiscardClaimable bool `json:"discardClaimable"`
	// DiscardedBy is the player who put the top discard down; empty for the
	// up-card flipped at deal time.
	DiscardedBy string     `json:"discardedBy,omitempty"`
	Turn        TurnState  `json:"turn"`
	MayI        *MayIState `json:"mayI,omitempty"`
}

// RoundRecord is the outcome of a finished round.
type RoundRecord struct {
	Number      int            `json:"number"`
	DealerIndex int            `json:"dealerIndex"`
	WinnerID    string         `json:"winnerId"`
	Scores      map[string]int `json:"scores"`
}

// PlayerInfo seeds a seat in NewGame.
type PlayerInfo struct {
	ID   string
	Name string
}

// GameState holds the complete, self-contained state of a May-I game.
type GameState struct {
	ID        string        `json:"id"`
	Phase     GamePhase     `json:"phase"`
	Players   []Player      `json:"players"`
	Round     RoundState    `json:"round"`
	History   []RoundRecord `json:"history"`
	LastError *CommandError `json:"lastError,omitempty"`
	// Version increments on every accepted command.
	Version uint64     `json:"version"`
	RNG     uint64     `json:"rng"`
	Rules   HouseRules `json:"rules"`
}

// NewGame seats the players in order and deals round 1.
func NewGame(id string, players []PlayerInfo, seed uint64, rules HouseRules) (*GameState, error) {
	if _, err := decksFor(len(players)); err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(players))
	g := &GameState{ID: id, RNG: seed, Rules: rules}
	if g.RNG == 0 {
		g.RNG = 1 // xorshift can't start at 0
	}
	for _, p := range players {
		if p.ID == "" || seen[p.ID] {
			return nil, fmt.Errorf("%w: duplicate or empty id %q", ErrUnknownPlayer, p.ID)
		}
		seen[p.ID] = true
		g.Players = append(g.Players, Player{ID: p.ID, Name: p.Name})
	}
	g.startRound(1)
	return g, nil
}

// ---------------------------------------------------------------------------
// Query methods
// ---------------------------------------------------------------------------

// IsGameOver reports whether the final round has been scored.
func (g *GameState) IsGameOver() bool { return g.Phase == PhaseGameEnd }

// PlayerIndex returns the seat of id, or -1.
func (g *GameState) PlayerIndex(id string) int {
	for i := range g.Players {
		if g.Players[i].ID == id {
			return i
		}
	}
	return -1
}

// Player returns the seat for id, or nil.
func (g *GameState) Player(id string) *Player {
	if i := g.PlayerIndex(id); i >= 0 {
		return &g.Players[i]
	}
	return nil
}

// CurrentPlayer returns the player whose turn it is.
func (g *GameState) CurrentPlayer() *Player { return &g.Players[g.Round.CurrentIndex] }

// AwaitingPlayerID returns the player who must act next: the prompted player
// during May-I resolution, otherwise the turn-holder. Empty once the game ends.
func (g *GameState) AwaitingPlayerID() string {
	switch g.Phase {
	case PhaseGameEnd:
		return ""
	case PhaseResolvingMayI:
		if g.Round.MayI != nil {
			return g.Round.MayI.PromptedID
		}
	}
	return g.CurrentPlayer().ID
}

// DiscardTop returns the top of the discard pile.
func (g *GameState) DiscardTop() (Card, bool) {
	d := g.Round.Discard
	if len(d) == 0 {
		return Card{}, false
	}
	return d[len(d)-1], true
}

// Meld returns the table meld with the given id, or nil.
func (g *GameState) Meld(id string) *Meld {
	for i := range g.Round.Table {
		if g.Round.Table[i].ID == id {
			return &g.Round.Table[i]
		}
	}
	return nil
}

func (g *GameState) nextIndex(i int) int { return (i + 1) % len(g.Players) }

// ---------------------------------------------------------------------------
// Clone / Restore
// ---------------------------------------------------------------------------

// Clone returns a deep copy that shares no slices with g.
func (g *GameState) Clone() *GameState {
	c := *g
	c.Players = make([]Player, len(g.Players))
	for i, p := range g.Players {
		p.Hand = append([]Card(nil), p.Hand...)
		c.Players[i] = p
	}
	c.Round.Stock = append([]Card(nil), g.Round.Stock...)
	c.Round.Discard = append([]Card(nil), g.Round.Discard...)
	c.Round.Table = make([]Meld, len(g.Round.Table))
	for i, m := range g.Round.Table {
		m.Cards = append([]Card(nil), m.Cards...)
		c.Round.Table[i] = m
	}
	if g.Round.MayI != nil {
		m := *g.Round.MayI
		c.Round.MayI = &m
	}
	c.History = make([]RoundRecord, len(g.History))
	for i, h := range g.History {
		scores := make(map[string]int, len(h.Scores))
		for k, v := range h.Scores {
			scores[k] = v
		}
		h.Scores = scores
		c.History[i] = h
	}
	if g.LastError != nil {
		e := *g.LastError
		c.LastError = &e
	}
	return &c
}

// Restore replaces g with a copy of s.
func (g *GameState) Restore(s *GameState) { *g = *s.Clone() }
