package engine

import "fmt"

// newDeck builds an ordered shoe of decks*52 cards plus decks*jokersPerDeck jokers.
// Card IDs are "<deck>-<rank><suit>" and "<deck>-JK<n>".
func newDeck(decks, jokersPerDeck int) []Card {
	cards := make([]Card, 0, decks*(52+jokersPerDeck))
	for d := 0; d < decks; d++ {
		for s := SuitClubs; s <= SuitSpades; s++ {
			for r := RankAce; r <= RankKing; r++ {
				cards = append(cards, Card{
					ID:   fmt.Sprintf("%d-%s%s", d, r, s),
					Suit: s,
					Rank: r,
				})
			}
		}
		for j := 0; j < jokersPerDeck; j++ {
			cards = append(cards, Card{ID: fmt.Sprintf("%d-JK%d", d, j), Rank: RankJoker})
		}
	}
	return cards
}

// ---------------------------------------------------------------------------
// xorshift64 RNG, stored in GameState so shuffles survive persistence
// ---------------------------------------------------------------------------

func (g *GameState) nextRand() uint64 {
	x := g.RNG
	x ^= x << 13
	x ^= x >> 7
	x ^= x << 17
	g.RNG = x
	return x
}

// randN returns a random number in [0, n).
func (g *GameState) randN(n uint64) uint64 {
	return g.nextRand() % n
}

// shuffle performs an in-place Fisher-Yates shuffle.
func (g *GameState) shuffle(cards []Card) {
	for i := len(cards) - 1; i > 0; i-- {
		j := int(g.randN(uint64(i + 1)))
		cards[i], cards[j] = cards[j], cards[i]
	}
}

// reshuffle moves every discard except the top card back into the stock.
// Returns false when there is nothing to move.
func (g *GameState) reshuffle() bool {
	r := &g.Round
	if len(r.Discard) <= 1 {
		return false
	}
	top := r.Discard[len(r.Discard)-1]
	pile := append([]Card(nil), r.Discard[:len(r.Discard)-1]...)
	g.shuffle(pile)
	r.Stock = append(pile, r.Stock...)
	r.Discard = []Card{top}
	return true
}

// drawFromStock pops the top stock card, reshuffling the discard pile first
// when the stock is empty.
func (g *GameState) drawFromStock() (Card, error) {
	r := &g.Round
	if len(r.Stock) == 0 && !g.reshuffle() {
		return Card{}, ErrStockEmpty
	}
	c := r.Stock[len(r.Stock)-1]
	r.Stock = r.Stock[:len(r.Stock)-1]
	return c, nil
}
