package engine

// startRound shuffles a fresh shoe, deals, flips the up-card and hands the
// first turn to the player left of the dealer. The dealer rotates one seat
// per round, starting with seat 0.
func (g *GameState) startRound(number int) {
	n := len(g.Players)
	decks, _ := decksFor(n)
	deck := newDeck(decks, g.Rules.JokersPerDeck)
	deckSize := len(deck)
	g.shuffle(deck)

	dealer := (number - 1) % n
	for i := range g.Players {
		g.Players[i].Hand = make([]Card, 0, g.Rules.HandSize+2)
		g.Players[i].IsDown = false
	}
	for c := 0; c < g.Rules.HandSize; c++ {
		for k := 1; k <= n; k++ {
			p := &g.Players[(dealer+k)%n]
			p.Hand = append(p.Hand, deck[len(deck)-1])
			deck = deck[:len(deck)-1]
		}
	}
	up := deck[len(deck)-1]
	deck = deck[:len(deck)-1]

	g.Round = RoundState{
		Number:           number,
		DealerIndex:      dealer,
		CurrentIndex:     (dealer + 1) % n,
		Stock:            deck,
		Discard:          []Card{up},
		Table:            []Meld{},
		DeckSize:         deckSize,
		DiscardClaimable: true,
		Turn:             TurnState{Phase: TurnAwaitingDraw},
	}
	g.Phase = PhaseRoundActive
}

// advanceTurn passes play to the next seat after a discard that did not go out.
func (g *GameState) advanceTurn() {
	r := &g.Round
	r.DiscardedBy = g.Players[r.CurrentIndex].ID
	r.DiscardClaimable = true
	r.CurrentIndex = g.nextIndex(r.CurrentIndex)
	r.Turn = TurnState{Phase: TurnAwaitingDraw}
}
