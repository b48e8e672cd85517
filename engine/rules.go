package engine

import "fmt"

const (
	MinPlayers = 3
	MaxPlayers = 8
	// FinalRound is the last round of a game; its contract must use the whole hand.
	FinalRound = 6
)

// HouseRules holds configurable game rule settings.
type HouseRules struct {
	HandSize         int // cards dealt to each player per round
	MayIPenaltyCards int // extra stock cards a prompted claimant takes
	JokersPerDeck    int
	MinSetSize       int
	MinRunSize       int
}

// DefaultHouseRules returns the standard May-I rules.
func DefaultHouseRules() HouseRules {
	return HouseRules{
		HandSize:         11,
		MayIPenaltyCards: 1,
		JokersPerDeck:    2,
		MinSetSize:       3,
		MinRunSize:       4,
	}
}

// decksFor returns how many 52-card decks are shuffled together for n players.
func decksFor(n int) (int, error) {
	switch {
	case n < MinPlayers || n > MaxPlayers:
		return 0, fmt.Errorf("%w: %d players (need %d-%d)", ErrPlayerCount, n, MinPlayers, MaxPlayers)
	case n <= 5:
		return 2, nil
	default:
		return 3, nil
	}
}
