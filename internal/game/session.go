package game

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/DroopyTersen/mayi-sub006/engine"
	"github.com/DroopyTersen/mayi-sub006/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// OnGameEndFunc is called once when a room's game finishes. winners and the
// keys of scores are external ids.
type OnGameEndFunc func(roomID uuid.UUID, winners []string, scores map[string]int)

// Seat describes one player joining a new game.
type Seat struct {
	ExternalID string `json:"externalId"`
	Name       string `json:"name"`
	IsAI       bool   `json:"isAI"`
	AIModelID  string `json:"aiModelId,omitempty"`
}

// SessionDeps are the collaborators of a Session. Everything but Store is
// optional.
type SessionDeps struct {
	Store       StateStore
	Broadcaster Broadcaster
	Agents      AgentResolver
	Activity    ActivityPublisher
	Results     ResultsRecorder
	OnGameEnd   OnGameEndFunc
	Coordinator CoordinatorConfig
	Log         *logrus.Entry
}

// Session is the entry point for one room: it translates lobby ids to engine
// seats, runs human commands against the stored state, and hands AI seats to
// its Coordinator.
type Session struct {
	RoomID uuid.UUID

	// mu serializes every read-modify-write of the store, human or AI.
	mu       sync.Mutex
	store    StateStore
	bc       Broadcaster
	activity ActivityPublisher
	results  ResultsRecorder
	coord    *Coordinator
	onEnd    OnGameEndFunc
	log      *logrus.Entry
}

// CreateSession deals a new game for seats, stores revision 1 and starts the
// coordinator if an AI seat is first to act.
func CreateSession(ctx context.Context, roomID uuid.UUID, seats []Seat, seed uint64, rules engine.HouseRules, deps SessionDeps) (*Session, error) {
	st, g, err := NewStoredGame(roomID, seats, seed, rules)
	if err != nil {
		return nil, err
	}
	if err := deps.Store.SetState(ctx, st); err != nil {
		return nil, fmt.Errorf("store initial state: %w", err)
	}

	s := OpenSession(roomID, deps)
	s.log.Infof("game %s dealt for %d players", g.ID, len(seats))
	s.committed(g, st, g, st.ActivityLog)
	s.coord.Kick()
	return s, nil
}

// NewStoredGame deals a game for seats and wraps it as revision 1. Seats get
// engine ids p1..pN in order.
func NewStoredGame(roomID uuid.UUID, seats []Seat, seed uint64, rules engine.HouseRules) (*models.StoredGameState, *engine.GameState, error) {
	infos := make([]engine.PlayerInfo, len(seats))
	mappings := make([]models.PlayerMapping, len(seats))
	seen := make(map[string]bool, len(seats))
	for i, s := range seats {
		if s.ExternalID == "" || seen[s.ExternalID] {
			return nil, nil, fmt.Errorf("%w: duplicate or empty external id %q", ErrUnknownPlayer, s.ExternalID)
		}
		seen[s.ExternalID] = true
		id := fmt.Sprintf("p%d", i+1)
		infos[i] = engine.PlayerInfo{ID: id, Name: s.Name}
		mappings[i] = models.PlayerMapping{ExternalID: s.ExternalID, EngineID: id, Name: s.Name, IsAI: s.IsAI, AIModelID: s.AIModelID}
	}
	g, err := engine.NewGame(uuid.NewString(), infos, seed, rules)
	if err != nil {
		return nil, nil, err
	}
	now := time.Now().UTC()
	st := &models.StoredGameState{
		RoomID:         roomID,
		PlayerMappings: mappings,
		ActivityLog:    []models.ActivityEntry{models.NewActivity("", ActivityGameStart, map[string]any{"players": len(seats)})},
		Revision:       1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := st.SetGame(g); err != nil {
		return nil, nil, err
	}
	return st, g, nil
}

// OpenSession attaches to a room whose state is already stored. Call Kick to
// resume AI seats.
func OpenSession(roomID uuid.UUID, deps SessionDeps) *Session {
	log := deps.Log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	s := &Session{
		RoomID:   roomID,
		store:    deps.Store,
		bc:       deps.Broadcaster,
		activity: deps.Activity,
		results:  deps.Results,
		onEnd:    deps.OnGameEnd,
		log:      log.WithField("room", roomID),
	}
	agents := deps.Agents
	if agents == nil {
		agents = func(modelID string) (Agent, error) { return nil, fmt.Errorf("no agents configured") }
	}
	s.coord = NewCoordinator(CoordinatorDeps{
		Store:    deps.Store,
		Lock:     &s.mu,
		Agents:   agents,
		OnCommit: s.committed,
		Log:      s.log,
	}, deps.Coordinator)
	return s
}

// Kick resumes AI seats if one is awaiting.
func (s *Session) Kick() { s.coord.Kick() }

// Wait blocks until the coordinator is idle.
func (s *Session) Wait() { s.coord.Wait() }

// Close stops the coordinator.
func (s *Session) Close() { s.coord.Close() }

// HandleCommand runs a human command for externalID. The result, accepted or
// not, is persisted and broadcast; a rejection also comes back as the error
// and is recorded as the seat's LastError. An accepted CALL_MAY_I aborts the
// in-flight AI turn before the coordinator is kicked again.
func (s *Session) HandleCommand(ctx context.Context, externalID string, cmd engine.Command) (View, error) {
	s.mu.Lock()
	st, err := s.store.GetState(ctx)
	if err != nil {
		s.mu.Unlock()
		return View{}, fmt.Errorf("load state: %w", err)
	}
	seat, ok := st.ByExternal(externalID)
	if !ok {
		s.mu.Unlock()
		return View{}, fmt.Errorf("%w: %q", ErrUnknownPlayer, externalID)
	}
	g, err := st.Game()
	if err != nil {
		s.mu.Unlock()
		return View{}, err
	}
	prev := g.Clone()
	cmd.PlayerID = seat.EngineID
	applyErr := g.Apply(cmd)

	next := st.Next()
	if err := next.SetGame(g); err != nil {
		s.mu.Unlock()
		return View{}, err
	}
	var added []models.ActivityEntry
	if applyErr == nil && cmd.Action != engine.ActionReorderHand {
		added = append(added, commandActivity(externalID, cmd))
	}
	added = append(added, transitionActivity(prev, g)...)
	next.ActivityLog = append(next.ActivityLog, added...)
	if err := s.store.SetState(ctx, next); err != nil {
		s.mu.Unlock()
		s.log.WithError(err).Error("persist command")
		return View{}, fmt.Errorf("store state: %w", err)
	}
	s.mu.Unlock()

	s.committed(prev, next, g, added)
	view := buildView(next, g, externalID)
	if applyErr != nil {
		s.log.WithError(applyErr).Warnf("%s rejected for %s", cmd.Action, seat.EngineID)
		return view, applyErr
	}
	if cmd.Action == engine.ActionCallMayI {
		s.coord.Abort()
	}
	s.coord.Kick()
	return view, nil
}

// View returns externalID's projection of the stored state.
func (s *Session) View(ctx context.Context, externalID string) (View, error) {
	st, err := s.store.GetState(ctx)
	if err != nil {
		return View{}, fmt.Errorf("load state: %w", err)
	}
	return BuildView(st, externalID)
}

// committed runs after every write, human or AI: broadcast, mirror the new
// activity entries and fire end-of-game hooks.
func (s *Session) committed(prev *engine.GameState, next *models.StoredGameState, g *engine.GameState, added []models.ActivityEntry) {
	if s.bc != nil {
		s.bc.Broadcast(next)
	}
	s.publish(added)
	for _, rec := range g.History[min(len(prev.History), len(g.History)):] {
		s.log.Infof("round %d won by %s", rec.Number, rec.WinnerID)
	}
	if g.IsGameOver() && !prev.IsGameOver() {
		s.finish(next, g)
	}
}

func (s *Session) publish(entries []models.ActivityEntry) {
	if s.activity == nil || len(entries) == 0 {
		return
	}
	go func(entries []models.ActivityEntry) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		for _, e := range entries {
			if err := s.activity.PublishActivity(ctx, s.RoomID, e); err != nil {
				s.log.WithError(err).Errorf("publish activity %s", e.Action)
				return
			}
		}
	}(entries)
}

func (s *Session) finish(st *models.StoredGameState, g *engine.GameState) {
	res := gameResult(st, g)
	s.log.Infof("game %s over, winners %v", g.ID, res.Winners)
	if s.results != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.results.RecordResult(ctx, res); err != nil && !errors.Is(err, context.Canceled) {
				s.log.WithError(err).Error("record game result")
			}
		}()
	}
	if s.onEnd != nil {
		s.onEnd(s.RoomID, res.Winners, res.Scores)
	}
}
