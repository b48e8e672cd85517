package engine

import "fmt"

// Turn machine transitions. Each runs against the current player p and
// validates fully before touching state. Apply restores the pre-command
// state on any error, so a guard failing mid-way cannot leak partial work.

func (g *GameState) requireTurnPhase(want TurnPhase) error {
	if g.Round.Turn.Phase != want {
		return fmt.Errorf("%w: turn is %s, need %s", ErrWrongPhase, g.Round.Turn.Phase, want)
	}
	return nil
}

func (g *GameState) drawStock(p *Player) error {
	if err := g.requireTurnPhase(TurnAwaitingDraw); err != nil {
		return err
	}
	c, err := g.drawFromStock()
	if err != nil {
		return err
	}
	p.Hand = append(p.Hand, c)
	g.Round.Turn.Phase = TurnAwaitingAction
	return nil
}

func (g *GameState) drawDiscard(p *Player) error {
	if err := g.requireTurnPhase(TurnAwaitingDraw); err != nil {
		return err
	}
	r := &g.Round
	top, ok := g.DiscardTop()
	if !ok || !r.DiscardClaimable {
		return ErrDiscardEmpty
	}
	r.Discard = r.Discard[:len(r.Discard)-1]
	r.DiscardClaimable = false
	p.Hand = append(p.Hand, top)
	r.Turn.Phase = TurnAwaitingAction
	r.Turn.DrewFromDiscard = true
	return nil
}

// layDown validates every group before placing any of them.
func (g *GameState) layDown(p *Player, groups []MeldGroup) error {
	if err := g.requireTurnPhase(TurnAwaitingAction); err != nil {
		return err
	}
	if p.IsDown {
		return ErrAlreadyDown
	}
	r := &g.Round
	if err := ContractFor(r.Number).checkCounts(r.Number, groups, len(p.Hand)); err != nil {
		return err
	}

	used := make(map[string]bool, len(p.Hand))
	melds := make([]Meld, 0, len(groups))
	for gi, grp := range groups {
		cards := make([]Card, 0, len(grp.CardIDs))
		for _, id := range grp.CardIDs {
			if used[id] {
				return fmt.Errorf("%w: %s used twice", ErrInvalidMeld, id)
			}
			i := findCard(p.Hand, id)
			if i < 0 {
				return fmt.Errorf("%w: %s", ErrCardNotInHand, id)
			}
			used[id] = true
			cards = append(cards, p.Hand[i])
		}
		var err error
		switch grp.Type {
		case MeldSet:
			err = ValidateSet(cards, g.Rules.MinSetSize)
		case MeldRun:
			cards, err = ArrangeRun(cards, g.Rules.MinRunSize)
		}
		if err != nil {
			return fmt.Errorf("group %d: %w", gi+1, err)
		}
		melds = append(melds, Meld{Type: grp.Type, OwnerID: p.ID, Cards: cards})
	}

	hand := make([]Card, 0, len(p.Hand)-len(used))
	for _, c := range p.Hand {
		if !used[c.ID] {
			hand = append(hand, c)
		}
	}
	p.Hand = hand
	for i := range melds {
		r.MeldSeq++
		melds[i].ID = fmt.Sprintf("m%d", r.MeldSeq)
	}
	r.Table = append(r.Table, melds...)
	p.IsDown = true
	r.Turn.LaidDownThisTurn = true
	r.Turn.Phase = TurnAwaitingDiscard
	return nil
}

func (g *GameState) layOff(p *Player, cardID, meldID string) error {
	if err := g.requireTurnPhase(TurnAwaitingAction); err != nil {
		return err
	}
	if !p.IsDown {
		return ErrNotDown
	}
	if g.Round.Turn.LaidDownThisTurn {
		return fmt.Errorf("%w: cannot lay off on the turn you laid down", ErrWrongPhase)
	}
	i := findCard(p.Hand, cardID)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrCardNotInHand, cardID)
	}
	m := g.Meld(meldID)
	if m == nil {
		return fmt.Errorf("%w: %s", ErrMeldNotFound, meldID)
	}
	next, err := m.extend(p.Hand[i], g.Rules)
	if err != nil {
		return err
	}
	m.Cards = next
	p.Hand = removeCard(p.Hand, i)
	return nil
}

func (g *GameState) swapJoker(p *Player, meldID, jokerID, swapID string) error {
	if err := g.requireTurnPhase(TurnAwaitingAction); err != nil {
		return err
	}
	i := findCard(p.Hand, swapID)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrCardNotInHand, swapID)
	}
	m := g.Meld(meldID)
	if m == nil {
		return fmt.Errorf("%w: %s", ErrMeldNotFound, meldID)
	}
	next, joker, err := m.swapJoker(jokerID, p.Hand[i], g.Rules)
	if err != nil {
		return err
	}
	m.Cards = next
	p.Hand = append(removeCard(p.Hand, i), joker)
	return nil
}

func (g *GameState) skipLayDown(*Player) error {
	if err := g.requireTurnPhase(TurnAwaitingAction); err != nil {
		return err
	}
	g.Round.Turn.Phase = TurnAwaitingDiscard
	return nil
}

func (g *GameState) discard(p *Player, cardID string) error {
	if err := g.requireTurnPhase(TurnAwaitingDiscard); err != nil {
		return err
	}
	i := findCard(p.Hand, cardID)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrCardNotInHand, cardID)
	}
	c := p.Hand[i]
	p.Hand = removeCard(p.Hand, i)
	g.Round.Discard = append(g.Round.Discard, c)
	return nil
}

// reorderHand is legal at any time for the hand's owner; cardIDs must be an
// exact permutation of the current hand.
func (g *GameState) reorderHand(p *Player, cardIDs []string) error {
	if len(cardIDs) != len(p.Hand) {
		return fmt.Errorf("%w: reorder lists %d cards, hand has %d", ErrCardNotInHand, len(cardIDs), len(p.Hand))
	}
	next := make([]Card, 0, len(p.Hand))
	seen := make(map[string]bool, len(cardIDs))
	for _, id := range cardIDs {
		i := findCard(p.Hand, id)
		if i < 0 || seen[id] {
			return fmt.Errorf("%w: %s", ErrCardNotInHand, id)
		}
		seen[id] = true
		next = append(next, p.Hand[i])
	}
	p.Hand = next
	return nil
}
