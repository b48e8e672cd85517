package engine

import (
	"encoding/json"
	"fmt"
)

// stateSchemaVersion is bumped whenever the serialized GameState layout
// changes incompatibly.
const stateSchemaVersion = 1

type stateEnvelope struct {
	SchemaVersion int        `json:"schemaVersion"`
	State         *GameState `json:"state"`
}

// MarshalState serializes the full authoritative state, hidden cards included.
func MarshalState(g *GameState) ([]byte, error) {
	return json.Marshal(stateEnvelope{SchemaVersion: stateSchemaVersion, State: g})
}

// UnmarshalState is the inverse of MarshalState.
func UnmarshalState(b []byte) (*GameState, error) {
	var env stateEnvelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("decode game state: %w", err)
	}
	if env.SchemaVersion != stateSchemaVersion {
		return nil, fmt.Errorf("game state schema %d, want %d", env.SchemaVersion, stateSchemaVersion)
	}
	if env.State == nil {
		return nil, fmt.Errorf("game state missing")
	}
	return env.State, nil
}

// PlayerView is one seat as seen by a viewer. Hand is only filled for the
// viewer's own seat.
type PlayerView struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	HandSize   int    `json:"handSize"`
	Hand       []Card `json:"hand,omitempty"`
	IsDown     bool   `json:"isDown"`
	TotalScore int    `json:"totalScore"`
}

// GameSnapshot is the externally visible game state for one viewer.
type GameSnapshot struct {
	GameID          string          `json:"gameId"`
	Phase           GamePhase       `json:"phase"`
	TurnPhase       TurnPhase       `json:"turnPhase"`
	Round           int             `json:"round"`
	Contract        Contract        `json:"contract"`
	DealerID        string          `json:"dealerId"`
	CurrentPlayerID string          `json:"currentPlayerId"`
	AwaitingID      string          `json:"awaitingPlayerId"`
	Players         []PlayerView    `json:"players"`
	Table           []Meld          `json:"table"`
	StockSize       int             `json:"stockSize"`
	DiscardSize     int             `json:"discardSize"`
	DiscardTop      *Card           `json:"discardTop,omitempty"`
	DiscardOpen     bool            `json:"discardClaimable"`
	MayI            *MayIState      `json:"mayI,omitempty"`
	LastError       *CommandError   `json:"lastError,omitempty"`
	History         []RoundRecord   `json:"history"`
	Version         uint64          `json:"version"`
	Available       []ActionType    `json:"availableActions,omitempty"`
	Decision        DecisionContext `json:"decision"`
}

// Snapshot projects the state for viewerID. Other players' hands are reduced
// to counts and the stock is never revealed. A viewer that is not seated (a
// spectator, or "") sees no hands. LastError is only shown to the player whose
// command was rejected.
func (g *GameState) Snapshot(viewerID string) GameSnapshot {
	r := &g.Round
	s := GameSnapshot{
		GameID:          g.ID,
		Phase:           g.Phase,
		TurnPhase:       r.Turn.Phase,
		Round:           r.Number,
		Contract:        ContractFor(r.Number),
		DealerID:        g.Players[r.DealerIndex].ID,
		CurrentPlayerID: g.CurrentPlayer().ID,
		AwaitingID:      g.AwaitingPlayerID(),
		StockSize:       len(r.Stock),
		DiscardSize:     len(r.Discard),
		DiscardOpen:     r.DiscardClaimable,
		Version:         g.Version,
		Decision:        g.DecisionCtx(),
		Available:       g.AvailableActions(viewerID),
	}
	for _, p := range g.Players {
		v := PlayerView{ID: p.ID, Name: p.Name, HandSize: len(p.Hand), IsDown: p.IsDown, TotalScore: p.TotalScore}
		if p.ID == viewerID {
			v.Hand = append([]Card(nil), p.Hand...)
		}
		s.Players = append(s.Players, v)
	}
	c := g.Clone()
	s.Table = c.Round.Table
	s.History = c.History
	s.MayI = c.Round.MayI
	if top, ok := g.DiscardTop(); ok {
		s.DiscardTop = &top
	}
	if g.LastError != nil && g.LastError.PlayerID == viewerID {
		e := *g.LastError
		s.LastError = &e
	}
	return s
}
