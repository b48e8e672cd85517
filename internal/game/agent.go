package game

import (
	"context"

	"github.com/DroopyTersen/mayi-sub006/engine"
)

// Tools is the command surface an Agent drives. Every call applies to the
// actor's local working copy only; nothing reaches the store until the
// agent calls TurnRequest.OnPersist.
type Tools interface {
	// View is the actor's projection of its working copy.
	View() engine.GameSnapshot
	// State returns a private clone of the working copy for planning.
	State() *engine.GameState

	DrawFromStock(ctx context.Context) error
	DrawFromDiscard(ctx context.Context) error
	LayDown(ctx context.Context, groups []engine.MeldGroup) error
	LayOff(ctx context.Context, cardID, meldID string) error
	SwapJoker(ctx context.Context, meldID, jokerCardID, swapCardID string) error
	Skip(ctx context.Context) error
	Discard(ctx context.Context, cardID string) error
	AllowMayI(ctx context.Context) error
	ClaimMayI(ctx context.Context) error
}

// TurnRequest is everything an Agent gets for one decision loop.
type TurnRequest struct {
	ActorID  string
	View     engine.GameSnapshot
	MaxSteps int
	Tools    Tools
	// OnPersist merges the working copy into the store. Agents call it after
	// each tool action; an error means the turn should stop.
	OnPersist func(ctx context.Context) error
}

// TurnResult is what an Agent reports back.
type TurnResult struct {
	Success bool
	Actions []engine.ActionType
	Err     error
}

// Agent is an opaque decision-maker for one AI seat. Implementations must
// return promptly once ctx is cancelled.
type Agent interface {
	ExecuteTurn(ctx context.Context, req TurnRequest) TurnResult
}

// AgentFunc adapts a function to Agent.
type AgentFunc func(ctx context.Context, req TurnRequest) TurnResult

func (f AgentFunc) ExecuteTurn(ctx context.Context, req TurnRequest) TurnResult { return f(ctx, req) }

// AgentResolver returns the agent for an AI model id.
type AgentResolver func(modelID string) (Agent, error)
