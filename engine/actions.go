package engine

import (
	"errors"
	"fmt"
)

// ActionType names a command verb.
type ActionType string

const (
	ActionDrawStock   ActionType = "DRAW_FROM_STOCK"
	ActionDrawDiscard ActionType = "DRAW_FROM_DISCARD"
	ActionLayDown     ActionType = "LAY_DOWN"
	ActionLayOff      ActionType = "LAY_OFF"
	ActionSwapJoker   ActionType = "SWAP_JOKER"
	ActionSkipLayDown ActionType = "SKIP_LAY_DOWN"
	ActionDiscard     ActionType = "DISCARD"
	ActionCallMayI    ActionType = "CALL_MAY_I"
	ActionAllowMayI   ActionType = "ALLOW_MAY_I"
	ActionClaimMayI   ActionType = "CLAIM_MAY_I"
	ActionReorderHand ActionType = "REORDER_HAND"
)

// turnActions are the verbs only the turn-holder may issue.
var turnActions = map[ActionType]bool{
	ActionDrawStock:   true,
	ActionDrawDiscard: true,
	ActionLayDown:     true,
	ActionLayOff:      true,
	ActionSwapJoker:   true,
	ActionSkipLayDown: true,
	ActionDiscard:     true,
}

// Command is one player action. Only the fields the verb needs are read.
type Command struct {
	Action      ActionType  `json:"action"`
	PlayerID    string      `json:"playerId"`
	CardID      string      `json:"cardId,omitempty"`
	MeldID      string      `json:"meldId,omitempty"`
	JokerCardID string      `json:"jokerCardId,omitempty"`
	SwapCardID  string      `json:"swapCardId,omitempty"`
	Groups      []MeldGroup `json:"groups,omitempty"`
	CardIDs     []string    `json:"cardIds,omitempty"`
}

// Apply runs cmd against g. On success the state advances, LastError is
// cleared and Version increments. On failure g is restored to its exact
// pre-command value, LastError records the rejection, and the error is
// returned.
func (g *GameState) Apply(cmd Command) error {
	saved := g.Clone()
	if err := g.apply(cmd); err != nil {
		g.Restore(saved)
		g.LastError = &CommandError{PlayerID: cmd.PlayerID, Action: cmd.Action, Message: err.Error()}
		return err
	}
	g.LastError = nil
	g.Version++
	return nil
}

func (g *GameState) apply(cmd Command) error {
	if g.IsGameOver() {
		return ErrGameOver
	}
	pi := g.PlayerIndex(cmd.PlayerID)
	if pi < 0 {
		return fmt.Errorf("%w: %q", ErrUnknownPlayer, cmd.PlayerID)
	}
	p := &g.Players[pi]

	switch cmd.Action {
	case ActionCallMayI:
		return g.callMayI(cmd.PlayerID)
	case ActionAllowMayI:
		return g.allowMayI(cmd.PlayerID)
	case ActionClaimMayI:
		return g.claimMayI(cmd.PlayerID)
	case ActionReorderHand:
		return g.reorderHand(p, cmd.CardIDs)
	}

	if !turnActions[cmd.Action] {
		return fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Action)
	}
	if g.Phase == PhaseResolvingMayI {
		return fmt.Errorf("%w: may-i resolution in progress", ErrWrongPhase)
	}
	if pi != g.Round.CurrentIndex {
		return fmt.Errorf("%w: waiting on %s", ErrNotYourTurn, g.CurrentPlayer().ID)
	}

	var err error
	switch cmd.Action {
	case ActionDrawStock:
		err = g.drawStock(p)
	case ActionDrawDiscard:
		err = g.drawDiscard(p)
	case ActionLayDown:
		err = g.layDown(p, cmd.Groups)
	case ActionLayOff:
		err = g.layOff(p, cmd.CardID, cmd.MeldID)
	case ActionSwapJoker:
		err = g.swapJoker(p, cmd.MeldID, cmd.JokerCardID, cmd.SwapCardID)
	case ActionSkipLayDown:
		err = g.skipLayDown(p)
	case ActionDiscard:
		err = g.discard(p, cmd.CardID)
	}
	if err != nil {
		return err
	}

	// Any transition that empties the hand goes out and ends the round.
	if len(p.Hand) == 0 {
		g.endRound(pi)
		return nil
	}
	if cmd.Action == ActionDiscard {
		g.advanceTurn()
	}
	return nil
}

// IsRejection reports whether err came from a rule guard rather than from
// something outside the engine.
func IsRejection(err error) bool {
	for _, target := range []error{
		ErrGameOver, ErrWrongPhase, ErrNotYourTurn, ErrUnknownPlayer, ErrUnknownCommand,
		ErrCardNotInHand, ErrMeldNotFound, ErrInvalidMeld, ErrContractNotMet, ErrAlreadyDown,
		ErrNotDown, ErrInvalidJokerSwap, ErrStockEmpty, ErrDiscardEmpty, ErrMayINotAllowed,
		ErrNotPrompted,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Verb helpers
// ---------------------------------------------------------------------------

func (g *GameState) DrawFromStock(playerID string) error {
	return g.Apply(Command{Action: ActionDrawStock, PlayerID: playerID})
}

func (g *GameState) DrawFromDiscard(playerID string) error {
	return g.Apply(Command{Action: ActionDrawDiscard, PlayerID: playerID})
}

func (g *GameState) LayDown(playerID string, groups []MeldGroup) error {
	return g.Apply(Command{Action: ActionLayDown, PlayerID: playerID, Groups: groups})
}

func (g *GameState) LayOff(playerID, cardID, meldID string) error {
	return g.Apply(Command{Action: ActionLayOff, PlayerID: playerID, CardID: cardID, MeldID: meldID})
}

func (g *GameState) SwapJoker(playerID, meldID, jokerCardID, swapCardID string) error {
	return g.Apply(Command{Action: ActionSwapJoker, PlayerID: playerID, MeldID: meldID, JokerCardID: jokerCardID, SwapCardID: swapCardID})
}

func (g *GameState) Skip(playerID string) error {
	return g.Apply(Command{Action: ActionSkipLayDown, PlayerID: playerID})
}

func (g *GameState) Discard(playerID, cardID string) error {
	return g.Apply(Command{Action: ActionDiscard, PlayerID: playerID, CardID: cardID})
}

func (g *GameState) CallMayI(playerID string) error {
	return g.Apply(Command{Action: ActionCallMayI, PlayerID: playerID})
}

func (g *GameState) AllowMayI(playerID string) error {
	return g.Apply(Command{Action: ActionAllowMayI, PlayerID: playerID})
}

func (g *GameState) ClaimMayI(playerID string) error {
	return g.Apply(Command{Action: ActionClaimMayI, PlayerID: playerID})
}

func (g *GameState) ReorderHand(playerID string, cardIDs []string) error {
	return g.Apply(Command{Action: ActionReorderHand, PlayerID: playerID, CardIDs: cardIDs})
}
