package server

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/DroopyTersen/mayi-sub006/engine"
	"github.com/DroopyTersen/mayi-sub006/internal/game"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrRoomNotFound is returned for a room with no stored state.
var ErrRoomNotFound = errors.New("room not found")

// StoreProvider hands out the state store of a room.
type StoreProvider interface {
	Room(roomID uuid.UUID) game.StateStore
}

// MemoryRooms keeps every room in process memory.
type MemoryRooms struct {
	mu    sync.Mutex
	rooms map[uuid.UUID]*game.MemoryStore
}

func NewMemoryRooms() *MemoryRooms {
	return &MemoryRooms{rooms: make(map[uuid.UUID]*game.MemoryStore)}
}

func (m *MemoryRooms) Room(roomID uuid.UUID) game.StateStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rooms[roomID]
	if !ok {
		s = game.NewMemoryStore()
		m.rooms[roomID] = s
	}
	return s
}

// RegistryDeps configure the sessions a Registry opens.
type RegistryDeps struct {
	Stores      StoreProvider
	Agents      game.AgentResolver
	Activity    game.ActivityPublisher
	Results     game.ResultsRecorder
	Coordinator game.CoordinatorConfig
	Rules       engine.HouseRules
	Log         *logrus.Entry
}

type room struct {
	session *game.Session
	hub     *Hub
}

// Registry owns the live sessions of this process. Rooms stored by a
// previous process are reopened on first access.
type Registry struct {
	deps  RegistryDeps
	mu    sync.Mutex
	rooms map[uuid.UUID]*room
}

func NewRegistry(deps RegistryDeps) *Registry {
	if deps.Log == nil {
		deps.Log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Registry{deps: deps, rooms: make(map[uuid.UUID]*room)}
}

func (r *Registry) sessionDeps(roomID uuid.UUID, hub *Hub) game.SessionDeps {
	log := r.deps.Log
	return game.SessionDeps{
		Store:       r.deps.Stores.Room(roomID),
		Broadcaster: hub,
		Agents:      r.deps.Agents,
		Activity:    r.deps.Activity,
		Results:     r.deps.Results,
		Coordinator: r.deps.Coordinator,
		Log:         log,
		OnGameEnd: func(roomID uuid.UUID, winners []string, scores map[string]int) {
			log.WithField("room", roomID).Infof("final scores %v", scores)
		},
	}
}

// Create deals a new game for seats in a fresh room.
func (r *Registry) Create(ctx context.Context, seats []game.Seat, seed uint64) (uuid.UUID, error) {
	roomID := uuid.New()
	hub := NewHub(roomID, r.deps.Log.WithField("room", roomID))
	sess, err := game.CreateSession(ctx, roomID, seats, seed, r.deps.Rules, r.sessionDeps(roomID, hub))
	if err != nil {
		return uuid.Nil, err
	}
	r.mu.Lock()
	r.rooms[roomID] = &room{session: sess, hub: hub}
	r.mu.Unlock()
	return roomID, nil
}

// get returns the live room, reopening it from the store if needed.
func (r *Registry) get(ctx context.Context, roomID uuid.UUID) (*room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rm, ok := r.rooms[roomID]; ok {
		return rm, nil
	}
	store := r.deps.Stores.Room(roomID)
	if _, err := store.GetState(ctx); err != nil {
		if errors.Is(err, game.ErrNoState) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("open room %s: %w", roomID, err)
	}
	hub := NewHub(roomID, r.deps.Log.WithField("room", roomID))
	rm := &room{session: game.OpenSession(roomID, r.sessionDeps(roomID, hub)), hub: hub}
	r.rooms[roomID] = rm
	rm.session.Kick()
	r.deps.Log.WithField("room", roomID).Info("room reopened")
	return rm, nil
}

// Close stops every coordinator and disconnects every socket.
func (r *Registry) Close() {
	r.mu.Lock()
	rooms := r.rooms
	r.rooms = make(map[uuid.UUID]*room)
	r.mu.Unlock()
	for _, rm := range rooms {
		rm.session.Close()
		rm.hub.CloseAll("server shutting down")
	}
}
