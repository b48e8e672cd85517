package engine

import "fmt"

// checkMayI reports why playerID cannot call May-I right now, or nil.
// It looks only at phase, seating and discard state; LastError from an
// earlier rejected command has no bearing on the answer.
func (g *GameState) checkMayI(playerID string) error {
	switch g.Phase {
	case PhaseGameEnd:
		return ErrGameOver
	case PhaseResolvingMayI:
		return fmt.Errorf("%w: a may-i is already being resolved", ErrMayINotAllowed)
	}
	p := g.Player(playerID)
	if p == nil {
		return fmt.Errorf("%w: %s", ErrUnknownPlayer, playerID)
	}
	r := &g.Round
	switch {
	case g.CurrentPlayer().ID == playerID:
		return fmt.Errorf("%w: cannot may-i on your own turn", ErrMayINotAllowed)
	case p.IsDown:
		return fmt.Errorf("%w: already down", ErrMayINotAllowed)
	case !r.DiscardClaimable || len(r.Discard) == 0:
		return fmt.Errorf("%w: discard already claimed", ErrMayINotAllowed)
	case r.DiscardedBy == playerID:
		return fmt.Errorf("%w: cannot claim your own discard", ErrMayINotAllowed)
	}
	return nil
}

// callMayI suspends the turn and starts the prompt walk. The walk begins at
// the seat after the turn-holder and stops at the caller.
func (g *GameState) callMayI(playerID string) error {
	if err := g.checkMayI(playerID); err != nil {
		return err
	}
	top, _ := g.DiscardTop()
	g.Round.MayI = &MayIState{CallerID: playerID, Card: top}
	g.Phase = PhaseResolvingMayI
	return g.promptFrom(g.Round.CurrentIndex)
}

// promptFrom advances the prompt to the first seat after from that is not
// down. Reaching the caller awards the card to the caller with no penalty.
func (g *GameState) promptFrom(from int) error {
	m := g.Round.MayI
	for i := g.nextIndex(from); ; i = g.nextIndex(i) {
		p := &g.Players[i]
		if p.ID == m.CallerID {
			return g.awardMayI(i, false)
		}
		if i == g.Round.CurrentIndex {
			// Caller not found in the walk; cannot happen once checkMayI passed.
			return fmt.Errorf("%w: caller %s not seated", ErrUnknownPlayer, m.CallerID)
		}
		if p.IsDown {
			continue
		}
		m.PromptedID = p.ID
		m.Prompts++
		return nil
	}
}

func (g *GameState) requirePrompted(playerID string) (int, error) {
	if g.Phase != PhaseResolvingMayI || g.Round.MayI == nil {
		return -1, fmt.Errorf("%w: no may-i in progress", ErrWrongPhase)
	}
	if g.Round.MayI.PromptedID != playerID {
		return -1, fmt.Errorf("%w: waiting on %s", ErrNotPrompted, g.Round.MayI.PromptedID)
	}
	return g.PlayerIndex(playerID), nil
}

// allowMayI passes the prompt on to the next eligible seat.
func (g *GameState) allowMayI(playerID string) error {
	i, err := g.requirePrompted(playerID)
	if err != nil {
		return err
	}
	return g.promptFrom(i)
}

// claimMayI ends resolution in the prompted player's favour, with penalty.
func (g *GameState) claimMayI(playerID string) error {
	i, err := g.requirePrompted(playerID)
	if err != nil {
		return err
	}
	return g.awardMayI(i, true)
}

// awardMayI gives the claimed discard to seat i and resumes the suspended
// turn in the phase it was left in.
func (g *GameState) awardMayI(i int, penalty bool) error {
	r := &g.Round
	m := r.MayI
	top, ok := g.DiscardTop()
	if !ok || top.ID != m.Card.ID {
		return fmt.Errorf("%w: %s no longer on top of discard", ErrMayINotAllowed, m.Card.ID)
	}
	p := &g.Players[i]
	r.Discard = r.Discard[:len(r.Discard)-1]
	p.Hand = append(p.Hand, top)
	if penalty {
		for k := 0; k < g.Rules.MayIPenaltyCards; k++ {
			c, err := g.drawFromStock()
			if err != nil {
				break // an exhausted shoe waives the penalty
			}
			p.Hand = append(p.Hand, c)
		}
	}
	r.DiscardClaimable = false
	r.MayI = nil
	g.Phase = PhaseRoundActive
	return nil
}
