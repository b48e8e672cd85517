package engine

import (
	"fmt"
	"strconv"
)

// Suit of a card. Jokers carry SuitNone.
type Suit uint8

const (
	SuitNone Suit = iota
	SuitClubs
	SuitDiamonds
	SuitHearts
	SuitSpades
)

var suitLetters = [...]string{"", "C", "D", "H", "S"}

// Rank of a card. Ace is always low (1).
type Rank uint8

const (
	RankAce   Rank = 1
	RankTwo   Rank = 2
	RankThree Rank = 3
	RankFour  Rank = 4
	RankFive  Rank = 5
	RankSix   Rank = 6
	RankSeven Rank = 7
	RankEight Rank = 8
	RankNine  Rank = 9
	RankTen   Rank = 10
	RankJack  Rank = 11
	RankQueen Rank = 12
	RankKing  Rank = 13
	RankJoker Rank = 14
)

// Card is a single physical card. IDs are unique across all decks in play.
type Card struct {
	ID   string `json:"id"`
	Suit Suit   `json:"suit,omitempty"`
	Rank Rank   `json:"rank"`
}

// IsJoker reports whether c is a Joker.
func (c Card) IsJoker() bool { return c.Rank == RankJoker }

// IsWild reports whether c may stand in for any card. Jokers and deuces are wild.
func (c Card) IsWild() bool { return c.Rank == RankJoker || c.Rank == RankTwo }

// Points returns the penalty value of c when left in hand at round end.
//   - Three–Nine, Two → face value
//   - Ten, Jack, Queen, King → 10
//   - Ace → 15
//   - Joker → 50
func (c Card) Points() int {
	switch {
	case c.Rank == RankJoker:
		return 50
	case c.Rank == RankAce:
		return 15
	case c.Rank >= RankTen && c.Rank <= RankKing:
		return 10
	case c.Rank >= RankTwo && c.Rank <= RankNine:
		return int(c.Rank)
	}
	return 0
}

// String returns a short human label like "10H" or "JK".
func (c Card) String() string {
	if c.IsJoker() {
		return "JK"
	}
	return c.Rank.String() + c.Suit.String()
}

func (s Suit) String() string {
	if int(s) < len(suitLetters) {
		return suitLetters[s]
	}
	return "?"
}

func (r Rank) String() string {
	switch r {
	case RankAce:
		return "A"
	case RankJack:
		return "J"
	case RankQueen:
		return "Q"
	case RankKing:
		return "K"
	case RankJoker:
		return "JK"
	}
	if r >= RankTwo && r <= RankTen {
		return strconv.Itoa(int(r))
	}
	return "?"
}

// MarshalText encodes the suit as its single letter.
func (s Suit) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText decodes a suit letter.
func (s *Suit) UnmarshalText(b []byte) error {
	for i, l := range suitLetters {
		if l == string(b) {
			*s = Suit(i)
			return nil
		}
	}
	return fmt.Errorf("unknown suit %q", b)
}

// MarshalText encodes the rank as its label.
func (r Rank) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// UnmarshalText decodes a rank label.
func (r *Rank) UnmarshalText(b []byte) error {
	for x := RankAce; x <= RankJoker; x++ {
		if x.String() == string(b) {
			*r = x
			return nil
		}
	}
	return fmt.Errorf("unknown rank %q", b)
}

// findCard returns the index of the card with the given ID, or -1.
func findCard(cards []Card, id string) int {
	for i := range cards {
		if cards[i].ID == id {
			return i
		}
	}
	return -1
}

// removeCard returns cards without the element at i. The input slice is not reused.
func removeCard(cards []Card, i int) []Card {
	out := make([]Card, 0, len(cards)-1)
	out = append(out, cards[:i]...)
	return append(out, cards[i+1:]...)
}
