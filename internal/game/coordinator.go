package game

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/DroopyTersen/mayi-sub006/engine"
	"github.com/DroopyTersen/mayi-sub006/internal/models"
	"github.com/sirupsen/logrus"
)

// CoordinatorConfig tunes the AI turn loop.
type CoordinatorConfig struct {
	ThinkingDelay   time.Duration // before each AI turn
	InterTurnDelay  time.Duration // between chained AI turns
	ToolDelay       time.Duration // after each persisted tool action
	MaxChainedTurns int
	MaxSteps        int
	FallbackEnabled bool
}

func DefaultCoordinatorConfig() CoordinatorConfig {
	return CoordinatorConfig{
		ThinkingDelay:   800 * time.Millisecond,
		InterTurnDelay:  500 * time.Millisecond,
		ToolDelay:       300 * time.Millisecond,
		MaxChainedTurns: 8,
		MaxSteps:        20,
		FallbackEnabled: true,
	}
}

// Outcome is how a coordinator run ended.
type Outcome int

const (
	// OutcomeCompleted: no AI actor is awaiting, or the chain limit was hit.
	OutcomeCompleted Outcome = iota
	// OutcomeCancelled: Abort or the caller's context stopped the run after
	// the last persist landed. Not an error.
	OutcomeCancelled
	// OutcomeFailed: the agent and, if enabled, the fallback both failed.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeFailed:
		return "failed"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// RunReport summarizes one Run.
type RunReport struct {
	Outcome   Outcome
	Turns     int
	Fallbacks int
	Conflicts int
}

// CommitFunc is called after a write lands, outside the store lock. prev is
// the game before the write, next the stored record and g its decoded game;
// added lists the activity entries the write appended.
type CommitFunc func(prev *engine.GameState, next *models.StoredGameState, g *engine.GameState, added []models.ActivityEntry)

// CoordinatorDeps are the collaborators of a Coordinator.
type CoordinatorDeps struct {
	Store StateStore
	// Lock serializes read-merge-write cycles with other writers in this
	// process. It is never held while an agent is thinking.
	Lock        sync.Locker
	Broadcaster Broadcaster
	Agents      AgentResolver
	// OnCommit replaces the default broadcast after each write.
	OnCommit CommitFunc
	Log      *logrus.Entry
}

// Coordinator drives AI seats whenever one of them is the awaiting actor.
// One Coordinator serves one room.
type Coordinator struct {
	store    StateStore
	lock     sync.Locker
	agents   AgentResolver
	onCommit CommitFunc
	cfg      CoordinatorConfig
	log      *logrus.Entry

	mu      sync.Mutex
	base    context.Context
	stop    context.CancelFunc
	cancel  context.CancelFunc // in-flight Run
	running bool
	rerun   bool
	closed  bool
	wg      sync.WaitGroup
}

func NewCoordinator(deps CoordinatorDeps, cfg CoordinatorConfig) *Coordinator {
	if deps.Lock == nil {
		deps.Lock = &sync.Mutex{}
	}
	if deps.Log == nil {
		deps.Log = logrus.NewEntry(logrus.StandardLogger())
	}
	if cfg.MaxChainedTurns <= 0 {
		cfg.MaxChainedTurns = 1
	}
	c := &Coordinator{
		store:    deps.Store,
		lock:     deps.Lock,
		agents:   deps.Agents,
		onCommit: deps.OnCommit,
		cfg:      cfg,
		log:      deps.Log,
	}
	if c.onCommit == nil {
		bc := deps.Broadcaster
		c.onCommit = func(_ *engine.GameState, next *models.StoredGameState, _ *engine.GameState, _ []models.ActivityEntry) {
			if bc != nil {
				bc.Broadcast(next)
			}
		}
	}
	c.base, c.stop = context.WithCancel(context.Background())
	return c
}

// Kick starts a background run, or asks the running one to go again once it
// finishes.
func (c *Coordinator) Kick() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if c.running {
		c.rerun = true
		return
	}
	c.running = true
	c.wg.Add(1)
	go c.loop()
}

func (c *Coordinator) loop() {
	defer c.wg.Done()
	for {
		rep, err := c.Run(c.base)
		if err != nil {
			c.log.WithError(err).Errorf("AI run %s after %d turns", rep.Outcome, rep.Turns)
		} else {
			c.log.Debugf("AI run %s after %d turns", rep.Outcome, rep.Turns)
		}
		c.mu.Lock()
		if !c.rerun || c.closed {
			c.running = false
			c.mu.Unlock()
			return
		}
		c.rerun = false
		c.mu.Unlock()
	}
}

// Abort cancels the in-flight run, if any. Writes that already landed stay.
func (c *Coordinator) Abort() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
}

// Wait blocks until the background run, including reruns, has finished.
func (c *Coordinator) Wait() { c.wg.Wait() }

// Close aborts any run and waits for it. Kick is a no-op afterwards.
func (c *Coordinator) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.stop()
	c.wg.Wait()
}

func (c *Coordinator) setCancel(cancel context.CancelFunc) {
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()
}

type turnStatus int

const (
	turnDone turnStatus = iota
	turnCancelled
	turnFailed
)

// Run chains AI turns until a human (or nobody) is awaiting, the chain limit
// is reached, or ctx is cancelled. Only OutcomeFailed carries an error.
func (c *Coordinator) Run(ctx context.Context) (RunReport, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.setCancel(cancel)
	defer c.setCancel(nil)

	var rep RunReport
	for rep.Turns < c.cfg.MaxChainedTurns {
		st, g, err := c.load(ctx)
		if err != nil {
			if ctx.Err() != nil {
				rep.Outcome = OutcomeCancelled
				return rep, nil
			}
			rep.Outcome = OutcomeFailed
			return rep, err
		}
		seat, ok := awaitingAI(st, g)
		if !ok {
			rep.Outcome = OutcomeCompleted
			return rep, nil
		}
		if rep.Turns > 0 {
			if sleepCtx(ctx, c.cfg.InterTurnDelay) != nil {
				rep.Outcome = OutcomeCancelled
				return rep, nil
			}
		}
		if sleepCtx(ctx, c.cfg.ThinkingDelay) != nil {
			rep.Outcome = OutcomeCancelled
			return rep, nil
		}

		status, err := c.runActor(ctx, seat, &rep)
		rep.Turns++
		switch status {
		case turnCancelled:
			rep.Outcome = OutcomeCancelled
			return rep, nil
		case turnFailed:
			rep.Outcome = OutcomeFailed
			return rep, err
		}
	}
	c.log.Warnf("AI chain stopped after %d turns", rep.Turns)
	rep.Outcome = OutcomeCompleted
	return rep, nil
}

func awaitingAI(st *models.StoredGameState, g *engine.GameState) (models.PlayerMapping, bool) {
	id := g.AwaitingPlayerID()
	if id == "" {
		return models.PlayerMapping{}, false
	}
	m, ok := st.ByEngine(id)
	return m, ok && m.IsAI
}

// runActor gives one AI seat one decision loop, then falls back if the agent
// failed or left the seat still awaiting.
func (c *Coordinator) runActor(ctx context.Context, seat models.PlayerMapping, rep *RunReport) (turnStatus, error) {
	log := c.log.WithFields(logrus.Fields{"actor": seat.EngineID, "model": seat.AIModelID})
	st, g, err := c.load(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return turnCancelled, nil
		}
		return turnFailed, err
	}
	if g.AwaitingPlayerID() != seat.EngineID {
		return turnDone, nil
	}
	round := g.Round.Number
	log.Infof("AI turn: %s", g.DecisionCtx())

	var agentErr error
	agent, err := c.agents(seat.AIModelID)
	if err != nil {
		agentErr = fmt.Errorf("resolve agent %q: %w", seat.AIModelID, err)
	} else {
		ar := newActorAdapter(st, g, seat, c.log)
		turnCtx, cancelTurn := context.WithCancel(ctx)
		var conflict error
		onPersist := func(pctx context.Context) error {
			err := c.persist(pctx, ar)
			if errors.Is(err, ErrMergeConflict) {
				conflict = err
				cancelTurn()
			}
			return err
		}
		res := agent.ExecuteTurn(turnCtx, TurnRequest{
			ActorID:   seat.EngineID,
			View:      ar.View(),
			MaxSteps:  c.cfg.MaxSteps,
			Tools:     ar,
			OnPersist: onPersist,
		})
		cancelTurn()
		switch {
		case ctx.Err() != nil:
			return turnCancelled, nil
		case conflict != nil:
			rep.Conflicts++
			log.WithError(conflict).Warn("AI turn replanning after merge conflict")
			return turnDone, nil
		case res.Success:
			err := c.persist(ctx, ar)
			switch {
			case errors.Is(err, ErrMergeConflict):
				rep.Conflicts++
				log.WithError(err).Warn("AI turn replanning after merge conflict")
				return turnDone, nil
			case err != nil && ctx.Err() != nil:
				return turnCancelled, nil
			case err != nil:
				agentErr = err
			}
		default:
			agentErr = res.Err
			if agentErr == nil {
				agentErr = errors.New("agent reported failure")
			}
		}
	}

	if agentErr == nil {
		stalled, err := c.stalled(ctx, seat.EngineID, round)
		if err != nil {
			if ctx.Err() != nil {
				return turnCancelled, nil
			}
			return turnFailed, err
		}
		if !stalled {
			return turnDone, nil
		}
		agentErr = errors.New("agent left the decision unfinished")
	}

	if !c.cfg.FallbackEnabled {
		return turnFailed, fmt.Errorf("AI %s: %w", seat.EngineID, agentErr)
	}
	rep.Fallbacks++
	log.WithError(agentErr).Warn("running fallback turn")
	if err := c.fallbackTurn(ctx, seat); err != nil {
		if ctx.Err() != nil {
			return turnCancelled, nil
		}
		return turnFailed, fmt.Errorf("fallback for %s: %w", seat.EngineID, err)
	}
	return turnDone, nil
}

// stalled reports whether actorID is still awaiting in the same round.
func (c *Coordinator) stalled(ctx context.Context, actorID string, round int) (bool, error) {
	_, g, err := c.load(ctx)
	if err != nil {
		return false, err
	}
	return g.AwaitingPlayerID() == actorID && g.Round.Number == round, nil
}

func (c *Coordinator) load(ctx context.Context) (*models.StoredGameState, *engine.GameState, error) {
	st, err := c.store.GetState(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load state: %w", err)
	}
	g, err := st.Game()
	if err != nil {
		return nil, nil, err
	}
	return st, g, nil
}

// persist merges the adapter's working copy into the freshest stored state,
// writes it, then broadcasts and waits out the tool delay. Once the read has
// started the write is carried through even if ctx is cancelled, so a store
// never sees half of a cycle.
func (c *Coordinator) persist(ctx context.Context, a *actorAdapter) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !a.pending() {
		return nil
	}
	wctx := context.WithoutCancel(ctx)

	c.lock.Lock()
	st, fresh, err := c.load(wctx)
	if err != nil {
		c.lock.Unlock()
		return err
	}
	merged, err := mergeAIState(fresh, a.local, a.seat.EngineID, st.Revision != a.base, a.journal)
	if err != nil {
		a.sync(st.Revision, fresh)
		c.lock.Unlock()
		return err
	}
	next := st.Next()
	if err := next.SetGame(merged); err != nil {
		c.lock.Unlock()
		return err
	}
	added := append(append([]models.ActivityEntry(nil), a.activity...), transitionActivity(fresh, merged)...)
	next.ActivityLog = append(next.ActivityLog, added...)
	if err := c.store.SetState(wctx, next); err != nil {
		c.lock.Unlock()
		c.log.WithError(err).Error("persist AI state")
		return fmt.Errorf("store state: %w", err)
	}
	a.sync(next.Revision, merged)
	c.lock.Unlock()

	c.log.Debugf("persisted revision %d for %s", next.Revision, a.seat.EngineID)
	c.onCommit(fresh, next, merged, added)
	return sleepCtx(ctx, c.cfg.ToolDelay)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
