package engine

import (
	"fmt"
	"sort"
)

// MeldType distinguishes sets from runs.
type MeldType string

const (
	MeldSet MeldType = "set"
	MeldRun MeldType = "run"
)

// Meld is a group of cards on the table. Run cards are kept in rank order,
// low to high, with wilds in the slot they represent.
type Meld struct {
	ID      string   `json:"id"`
	Type    MeldType `json:"type"`
	OwnerID string   `json:"ownerId"`
	Cards   []Card   `json:"cards"`
}

// ValidateSet checks that cards form a legal set: at least minSize cards of one
// rank, every natural card a different suit, at least one natural card.
func ValidateSet(cards []Card, minSize int) error {
	if len(cards) < minSize {
		return fmt.Errorf("%w: set needs at least %d cards, got %d", ErrInvalidMeld, minSize, len(cards))
	}
	var rank Rank
	suits := make(map[Suit]bool, 4)
	naturals := 0
	for _, c := range cards {
		if c.IsWild() {
			continue
		}
		naturals++
		if rank == 0 {
			rank = c.Rank
		} else if c.Rank != rank {
			return fmt.Errorf("%w: set mixes ranks %s and %s", ErrInvalidMeld, rank, c.Rank)
		}
		if suits[c.Suit] {
			return fmt.Errorf("%w: set repeats suit %s", ErrInvalidMeld, c.Suit)
		}
		suits[c.Suit] = true
	}
	if naturals == 0 {
		return fmt.Errorf("%w: set needs a natural card", ErrInvalidMeld)
	}
	if len(cards) > 4 {
		return fmt.Errorf("%w: set cannot exceed 4 cards", ErrInvalidMeld)
	}
	return nil
}

// ValidateRun checks that cards, in the given order, form a legal run: at
// least minSize consecutive ranks of one suit, Ace low, wilds standing in for
// missing ranks, at least one natural card.
func ValidateRun(cards []Card, minSize int) error {
	if len(cards) < minSize {
		return fmt.Errorf("%w: run needs at least %d cards, got %d", ErrInvalidMeld, minSize, len(cards))
	}
	if _, _, err := runBounds(cards); err != nil {
		return err
	}
	return nil
}

// runBounds returns the suit and starting rank the ordered cards represent.
func runBounds(cards []Card) (Suit, int, error) {
	suit := SuitNone
	start := 0
	found := false
	for i, c := range cards {
		if c.IsWild() {
			continue
		}
		s := int(c.Rank) - i
		if !found {
			suit, start, found = c.Suit, s, true
			continue
		}
		if c.Suit != suit {
			return 0, 0, fmt.Errorf("%w: run mixes suits %s and %s", ErrInvalidMeld, suit, c.Suit)
		}
		if s != start {
			return 0, 0, fmt.Errorf("%w: %s out of sequence", ErrInvalidMeld, c)
		}
	}
	if !found {
		return 0, 0, fmt.Errorf("%w: run needs a natural card", ErrInvalidMeld)
	}
	if start < int(RankAce) || start+len(cards)-1 > int(RankKing) {
		return 0, 0, fmt.Errorf("%w: run runs past Ace or King", ErrInvalidMeld)
	}
	return suit, start, nil
}

// ArrangeRun orders an unordered group into a run. If the given order is
// already valid it is kept. Otherwise naturals are sorted, wilds fill the
// gaps, and any surplus wilds extend above the top card, then below the
// lowest card once the King is reached.
func ArrangeRun(cards []Card, minSize int) ([]Card, error) {
	if len(cards) < minSize {
		return nil, fmt.Errorf("%w: run needs at least %d cards, got %d", ErrInvalidMeld, minSize, len(cards))
	}
	if ValidateRun(cards, minSize) == nil {
		return append([]Card(nil), cards...), nil
	}
	var naturals, wilds []Card
	for _, c := range cards {
		if c.IsWild() {
			wilds = append(wilds, c)
		} else {
			naturals = append(naturals, c)
		}
	}
	if len(naturals) == 0 {
		return nil, fmt.Errorf("%w: run needs a natural card", ErrInvalidMeld)
	}
	sort.SliceStable(naturals, func(i, j int) bool { return naturals[i].Rank < naturals[j].Rank })

	out := make([]Card, 0, len(cards))
	out = append(out, naturals[0])
	for i := 1; i < len(naturals); i++ {
		prev, cur := naturals[i-1], naturals[i]
		if cur.Suit != prev.Suit {
			return nil, fmt.Errorf("%w: run mixes suits %s and %s", ErrInvalidMeld, prev.Suit, cur.Suit)
		}
		gap := int(cur.Rank) - int(prev.Rank) - 1
		if gap < 0 {
			return nil, fmt.Errorf("%w: run repeats %s", ErrInvalidMeld, cur)
		}
		if gap > len(wilds) {
			return nil, fmt.Errorf("%w: not enough wilds to fill gap before %s", ErrInvalidMeld, cur)
		}
		out = append(out, wilds[:gap]...)
		wilds = wilds[gap:]
		out = append(out, cur)
	}

	low := int(naturals[0].Rank)
	high := int(naturals[len(naturals)-1].Rank)
	// A deuce of the run's suit sits naturally just below a Three.
	if low == int(RankThree) {
		for i, w := range wilds {
			if w.Rank == RankTwo && w.Suit == naturals[0].Suit {
				out = append([]Card{w}, out...)
				wilds = removeCard(wilds, i)
				low--
				break
			}
		}
	}
	for len(wilds) > 0 && high < int(RankKing) {
		out = append(out, wilds[0])
		wilds = wilds[1:]
		high++
	}
	for len(wilds) > 0 && low > int(RankAce) {
		out = append([]Card{wilds[0]}, out...)
		wilds = wilds[1:]
		low--
	}
	if len(wilds) > 0 {
		return nil, fmt.Errorf("%w: run longer than Ace to King", ErrInvalidMeld)
	}
	if err := ValidateRun(out, minSize); err != nil {
		return nil, err
	}
	return out, nil
}

// extend returns the meld's cards with c added, or an error if c does not fit.
// A card added to a run goes on the high end when both ends would work.
func (m *Meld) extend(c Card, rules HouseRules) ([]Card, error) {
	switch m.Type {
	case MeldSet:
		next := append(append([]Card(nil), m.Cards...), c)
		if err := ValidateSet(next, rules.MinSetSize); err != nil {
			return nil, err
		}
		return next, nil
	case MeldRun:
		high := append(append([]Card(nil), m.Cards...), c)
		if ValidateRun(high, rules.MinRunSize) == nil {
			return high, nil
		}
		low := append([]Card{c}, m.Cards...)
		if err := ValidateRun(low, rules.MinRunSize); err != nil {
			return nil, fmt.Errorf("%w: %s does not extend run %s", ErrInvalidMeld, c, m.ID)
		}
		return low, nil
	}
	return nil, fmt.Errorf("%w: unknown meld type %q", ErrInvalidMeld, m.Type)
}

// swapJoker returns the run's cards with the Joker replaced by the natural
// card it represents, plus the freed Joker.
func (m *Meld) swapJoker(jokerID string, natural Card, rules HouseRules) ([]Card, Card, error) {
	if m.Type != MeldRun {
		return nil, Card{}, fmt.Errorf("%w: jokers can only be taken from runs", ErrInvalidJokerSwap)
	}
	i := findCard(m.Cards, jokerID)
	if i < 0 {
		return nil, Card{}, fmt.Errorf("%w: %s not in meld %s", ErrInvalidJokerSwap, jokerID, m.ID)
	}
	joker := m.Cards[i]
	if !joker.IsJoker() {
		return nil, Card{}, fmt.Errorf("%w: %s is not a joker", ErrInvalidJokerSwap, jokerID)
	}
	if natural.IsWild() {
		return nil, Card{}, fmt.Errorf("%w: replacement must be a natural card", ErrInvalidJokerSwap)
	}
	suit, start, err := runBounds(m.Cards)
	if err != nil {
		return nil, Card{}, err
	}
	if natural.Suit != suit || int(natural.Rank) != start+i {
		return nil, Card{}, fmt.Errorf("%w: joker stands for %s%s, not %s",
			ErrInvalidJokerSwap, Rank(start+i), suit, natural)
	}
	next := append([]Card(nil), m.Cards...)
	next[i] = natural
	if err := ValidateRun(next, rules.MinRunSize); err != nil {
		return nil, Card{}, err
	}
	return next, joker, nil
}
