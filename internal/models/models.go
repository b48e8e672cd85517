// Package models holds the persisted shapes shared by the session, the AI
// coordinator and the storage backends.
package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/DroopyTersen/mayi-sub006/engine"
	"github.com/google/uuid"
)

// PlayerMapping ties a lobby identity to an engine seat.
type PlayerMapping struct {
	ExternalID string `json:"externalId"`
	EngineID   string `json:"internalId"`
	Name       string `json:"name"`
	IsAI       bool   `json:"isAI"`
	AIModelID  string `json:"aiModelId,omitempty"`
}

// ActivityEntry is one line of the room's activity log.
type ActivityEntry struct {
	ID      uuid.UUID      `json:"id"`
	At      time.Time      `json:"at"`
	ActorID string         `json:"actorId,omitempty"` // external id; empty for system entries
	Action  string         `json:"action"`
	Detail  map[string]any `json:"detail,omitempty"`
}

// NewActivity builds an entry stamped with a fresh id and the current time.
func NewActivity(actorID, action string, detail map[string]any) ActivityEntry {
	return ActivityEntry{ID: uuid.New(), At: time.Now().UTC(), ActorID: actorID, Action: action, Detail: detail}
}

// StoredGameState is the unit of persistence for a room.
type StoredGameState struct {
	RoomID         uuid.UUID       `json:"roomId"`
	EngineSnapshot json.RawMessage `json:"engineSnapshot"`
	PlayerMappings []PlayerMapping `json:"playerMappings"`
	ActivityLog    []ActivityEntry `json:"activityLog"`
	// Revision increments on every write; stores reject a write whose
	// revision is not exactly one past the stored one.
	Revision  int64     `json:"revision"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Game decodes the engine snapshot.
func (s *StoredGameState) Game() (*engine.GameState, error) {
	if len(s.EngineSnapshot) == 0 {
		return nil, fmt.Errorf("room %s has no engine snapshot", s.RoomID)
	}
	return engine.UnmarshalState(s.EngineSnapshot)
}

// SetGame encodes g into the engine snapshot.
func (s *StoredGameState) SetGame(g *engine.GameState) error {
	b, err := engine.MarshalState(g)
	if err != nil {
		return fmt.Errorf("encode engine state: %w", err)
	}
	s.EngineSnapshot = b
	return nil
}

// Next returns a copy of s prepared for the following write: revision bumped,
// UpdatedAt refreshed, slices detached from s.
func (s *StoredGameState) Next() *StoredGameState {
	n := *s
	n.EngineSnapshot = append(json.RawMessage(nil), s.EngineSnapshot...)
	n.PlayerMappings = append([]PlayerMapping(nil), s.PlayerMappings...)
	n.ActivityLog = append([]ActivityEntry(nil), s.ActivityLog...)
	n.Revision = s.Revision + 1
	n.UpdatedAt = time.Now().UTC()
	return &n
}

// ByExternal finds the mapping for a lobby id.
func (s *StoredGameState) ByExternal(externalID string) (PlayerMapping, bool) {
	for _, m := range s.PlayerMappings {
		if m.ExternalID == externalID {
			return m, true
		}
	}
	return PlayerMapping{}, false
}

// ByEngine finds the mapping for an engine seat id.
func (s *StoredGameState) ByEngine(engineID string) (PlayerMapping, bool) {
	for _, m := range s.PlayerMappings {
		if m.EngineID == engineID {
			return m, true
		}
	}
	return PlayerMapping{}, false
}

// GameResult is the summary written when a game finishes.
type GameResult struct {
	RoomID     uuid.UUID            `json:"roomId"`
	GameID     string               `json:"gameId"`
	Winners    []string             `json:"winners"` // external ids
	Scores     map[string]int       `json:"scores"`  // external id -> total
	Rounds     []engine.RoundRecord `json:"rounds"`
	FinishedAt time.Time            `json:"finishedAt"`
}
