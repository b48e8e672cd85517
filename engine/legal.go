package engine

import "fmt"

// DecisionContext describes what kind of decision the awaiting player faces.
type DecisionContext string

const (
	CtxTerminal     DecisionContext = "terminal"
	CtxStartTurn    DecisionContext = "start_turn"
	CtxPostDraw     DecisionContext = "post_draw"
	CtxMustDiscard  DecisionContext = "must_discard"
	CtxMayIResponse DecisionContext = "may_i_response"
)

// DecisionCtx returns the decision context for the awaiting player.
func (g *GameState) DecisionCtx() DecisionContext {
	switch g.Phase {
	case PhaseGameEnd:
		return CtxTerminal
	case PhaseResolvingMayI:
		return CtxMayIResponse
	}
	switch g.Round.Turn.Phase {
	case TurnAwaitingAction:
		return CtxPostDraw
	case TurnAwaitingDiscard:
		return CtxMustDiscard
	}
	return CtxStartTurn
}

// CanMayI reports whether playerID may call May-I on the current discard.
func (g *GameState) CanMayI(playerID string) bool { return g.checkMayI(playerID) == nil }

// AvailableActions lists the verbs playerID could issue right now. Verbs that
// need arguments (LAY_DOWN, LAY_OFF, SWAP_JOKER) are listed when the phase and
// down-status allow them; whether a particular argument is legal is left to
// Apply. REORDER_HAND is always available to a seated player until game end.
func (g *GameState) AvailableActions(playerID string) []ActionType {
	p := g.Player(playerID)
	if p == nil || g.IsGameOver() {
		return nil
	}
	var out []ActionType
	if g.Phase == PhaseResolvingMayI {
		if g.Round.MayI != nil && g.Round.MayI.PromptedID == playerID {
			out = append(out, ActionAllowMayI, ActionClaimMayI)
		}
		return append(out, ActionReorderHand)
	}
	if g.CurrentPlayer().ID == playerID {
		switch g.Round.Turn.Phase {
		case TurnAwaitingDraw:
			out = append(out, ActionDrawStock)
			if g.Round.DiscardClaimable && len(g.Round.Discard) > 0 {
				out = append(out, ActionDrawDiscard)
			}
		case TurnAwaitingAction:
			if !p.IsDown {
				out = append(out, ActionLayDown)
			} else if !g.Round.Turn.LaidDownThisTurn && len(g.Round.Table) > 0 {
				out = append(out, ActionLayOff)
			}
			if g.hasSwappableJoker() {
				out = append(out, ActionSwapJoker)
			}
			out = append(out, ActionSkipLayDown)
		case TurnAwaitingDiscard:
			out = append(out, ActionDiscard)
		}
	} else if g.CanMayI(playerID) {
		out = append(out, ActionCallMayI)
	}
	return append(out, ActionReorderHand)
}

func (g *GameState) hasSwappableJoker() bool {
	for _, m := range g.Round.Table {
		if m.Type != MeldRun {
			continue
		}
		for _, c := range m.Cards {
			if c.IsJoker() {
				return true
			}
		}
	}
	return false
}

// CheckInvariants verifies card conservation (every card in exactly one
// zone, none missing) and that only players with melds on the table are down.
func (g *GameState) CheckInvariants() error {
	seen := make(map[string]string, g.Round.DeckSize)
	add := func(zone string, cards []Card) error {
		for _, c := range cards {
			if prev, dup := seen[c.ID]; dup {
				return fmt.Errorf("card %s in both %s and %s", c.ID, prev, zone)
			}
			seen[c.ID] = zone
		}
		return nil
	}
	for _, p := range g.Players {
		if err := add("hand:"+p.ID, p.Hand); err != nil {
			return err
		}
	}
	if err := add("stock", g.Round.Stock); err != nil {
		return err
	}
	if err := add("discard", g.Round.Discard); err != nil {
		return err
	}
	owners := make(map[string]bool)
	for _, m := range g.Round.Table {
		if err := add("meld:"+m.ID, m.Cards); err != nil {
			return err
		}
		owners[m.OwnerID] = true
	}
	if len(seen) != g.Round.DeckSize {
		return fmt.Errorf("%d cards in play, deck has %d", len(seen), g.Round.DeckSize)
	}
	for _, p := range g.Players {
		if p.IsDown != owners[p.ID] {
			return fmt.Errorf("player %s isDown=%v but owns melds=%v", p.ID, p.IsDown, owners[p.ID])
		}
	}
	return nil
}
