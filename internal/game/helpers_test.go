package game

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/DroopyTersen/mayi-sub006/engine"
	"github.com/DroopyTersen/mayi-sub006/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// mockBroadcaster captures every broadcast state for assertions.
type mockBroadcaster struct {
	mu     sync.Mutex
	states []*models.StoredGameState
}

func (mb *mockBroadcaster) Broadcast(st *models.StoredGameState) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.states = append(mb.states, st)
}

func (mb *mockBroadcaster) count() int {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	return len(mb.states)
}

func (mb *mockBroadcaster) getLast() *models.StoredGameState {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	if len(mb.states) == 0 {
		return nil
	}
	return mb.states[len(mb.states)-1]
}

// Seat order p1 alice (dealer), p2 bot (first to act), p3 carol.
var botSecond = []Seat{
	{ExternalID: "alice", Name: "Alice"},
	{ExternalID: "bot", Name: "Bot", IsAI: true, AIModelID: "scripted"},
	{ExternalID: "carol", Name: "Carol"},
}

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetLevel(logrus.DebugLevel)
	return logrus.NewEntry(l)
}

func quickConfig() CoordinatorConfig {
	return CoordinatorConfig{MaxChainedTurns: 8, MaxSteps: 20, FallbackEnabled: true}
}

func seedStore(t *testing.T, seats []Seat) *MemoryStore {
	t.Helper()
	st, _, err := NewStoredGame(uuid.New(), seats, 42, engine.DefaultHouseRules())
	require.NoError(t, err)
	store := NewMemoryStore()
	require.NoError(t, store.SetState(context.Background(), st))
	return store
}

func loadGame(t *testing.T, store StateStore) (*models.StoredGameState, *engine.GameState) {
	t.Helper()
	st, err := store.GetState(context.Background())
	require.NoError(t, err)
	g, err := st.Game()
	require.NoError(t, err)
	return st, g
}

// rig mutates the stored game outside the engine and writes it back.
func rig(t *testing.T, store StateStore, mutate func(g *engine.GameState)) {
	t.Helper()
	st, g := loadGame(t, store)
	mutate(g)
	require.NoError(t, g.CheckInvariants())
	next := st.Next()
	require.NoError(t, next.SetGame(g))
	require.NoError(t, store.SetState(context.Background(), next))
}

// writeAs applies cmd for engineID as a concurrent writer would: straight to
// the store, bypassing any session.
func writeAs(t *testing.T, store StateStore, engineID string, cmd engine.Command) {
	t.Helper()
	st, g := loadGame(t, store)
	cmd.PlayerID = engineID
	require.NoError(t, g.Apply(cmd))
	next := st.Next()
	require.NoError(t, next.SetGame(g))
	require.NoError(t, store.SetState(context.Background(), next))
}

func fixedAgent(a Agent) AgentResolver {
	return func(string) (Agent, error) { return a, nil }
}

// simpleAgent plays draw, skip, discard-first and allows every May-I,
// persisting after each tool. beforePersist runs between a tool and its
// persist.
type simpleAgent struct {
	beforePersist func(step int)
	mu            sync.Mutex
	calls         int
}

func (a *simpleAgent) invocations() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

func (a *simpleAgent) ExecuteTurn(ctx context.Context, req TurnRequest) TurnResult {
	a.mu.Lock()
	a.calls++
	a.mu.Unlock()
	var acts []engine.ActionType
	for step := 0; step < req.MaxSteps; step++ {
		v := req.Tools.View()
		if v.AwaitingID != req.ActorID {
			return TurnResult{Success: true, Actions: acts}
		}
		act, err := playSimple(ctx, req.Tools, v, req.ActorID)
		if err != nil {
			return TurnResult{Actions: acts, Err: err}
		}
		acts = append(acts, act)
		if a.beforePersist != nil {
			a.beforePersist(step)
		}
		if err := req.OnPersist(ctx); err != nil {
			return TurnResult{Actions: acts, Err: err}
		}
	}
	return TurnResult{Actions: acts, Err: errors.New("out of steps")}
}

func playSimple(ctx context.Context, tools Tools, v engine.GameSnapshot, actorID string) (engine.ActionType, error) {
	switch v.Decision {
	case engine.CtxStartTurn:
		return engine.ActionDrawStock, tools.DrawFromStock(ctx)
	case engine.CtxPostDraw:
		return engine.ActionSkipLayDown, tools.Skip(ctx)
	case engine.CtxMustDiscard:
		for _, p := range v.Players {
			if p.ID == actorID {
				return engine.ActionDiscard, tools.Discard(ctx, p.Hand[0].ID)
			}
		}
	case engine.CtxMayIResponse:
		return engine.ActionAllowMayI, tools.AllowMayI(ctx)
	}
	return "", errors.New("nothing to do")
}
