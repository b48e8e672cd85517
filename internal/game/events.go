package game

import (
	"fmt"

	"github.com/DroopyTersen/mayi-sub006/engine"
	"github.com/DroopyTersen/mayi-sub006/internal/models"
	"github.com/google/uuid"
)

// GameEventType names a message pushed to a client.
type GameEventType string

const (
	EventPrivateSyncState       GameEventType = "private_sync_state"       // Private: full per-viewer view.
	EventPrivateCommandRejected GameEventType = "private_command_rejected" // Private: the viewer's command failed.
	EventError                  GameEventType = "error"                    // Private: malformed message or server failure.
)

// GameEvent is the envelope for everything sent over a room socket.
type GameEvent struct {
	Type    GameEventType  `json:"type"`
	State   *View          `json:"state,omitempty"`
	Payload map[string]any `json:"payload,omitempty"`
}

// Broadcaster fans the latest stored state out to every observer.
type Broadcaster interface {
	Broadcast(st *models.StoredGameState)
}

// BroadcastFunc adapts a function to Broadcaster.
type BroadcastFunc func(st *models.StoredGameState)

func (f BroadcastFunc) Broadcast(st *models.StoredGameState) { f(st) }

// SeatView is a seat as shown to clients.
type SeatView struct {
	ID         string `json:"id"`
	ExternalID string `json:"externalId"`
	Name       string `json:"name"`
	IsAI       bool   `json:"isAI"`
}

// View is one viewer's projection of a room.
type View struct {
	RoomID   uuid.UUID              `json:"roomId"`
	Revision int64                  `json:"revision"`
	You      string                 `json:"you,omitempty"` // engine id; empty for spectators
	Seats    []SeatView             `json:"seats"`
	Game     engine.GameSnapshot    `json:"game"`
	Activity []models.ActivityEntry `json:"activity,omitempty"`
}

// viewActivity is how many trailing activity entries a View carries.
const viewActivity = 20

// BuildView projects st for externalID. Unknown ids get a spectator view.
func BuildView(st *models.StoredGameState, externalID string) (View, error) {
	g, err := st.Game()
	if err != nil {
		return View{}, fmt.Errorf("build view: %w", err)
	}
	return buildView(st, g, externalID), nil
}

func buildView(st *models.StoredGameState, g *engine.GameState, externalID string) View {
	v := View{RoomID: st.RoomID, Revision: st.Revision}
	if m, ok := st.ByExternal(externalID); ok {
		v.You = m.EngineID
	}
	for _, m := range st.PlayerMappings {
		v.Seats = append(v.Seats, SeatView{ID: m.EngineID, ExternalID: m.ExternalID, Name: m.Name, IsAI: m.IsAI})
	}
	v.Game = g.Snapshot(v.You)
	if n := len(st.ActivityLog); n > 0 {
		v.Activity = append(v.Activity, st.ActivityLog[max(0, n-viewActivity):]...)
	}
	return v
}
