package engine

import "fmt"

// Contract is the meld requirement for laying down in a round.
type Contract struct {
	Sets int `json:"sets"`
	Runs int `json:"runs"`
}

var contracts = [FinalRound + 1]Contract{
	1: {Sets: 2},
	2: {Sets: 1, Runs: 1},
	3: {Runs: 2},
	4: {Sets: 3},
	5: {Sets: 2, Runs: 1},
	6: {Sets: 1, Runs: 2},
}

// ContractFor returns the contract for a 1-based round number.
func ContractFor(round int) Contract {
	if round < 1 || round > FinalRound {
		return Contract{}
	}
	return contracts[round]
}

func (c Contract) String() string {
	return fmt.Sprintf("%d set(s) + %d run(s)", c.Sets, c.Runs)
}

// MeldGroup is one proposed meld in a lay-down, referencing cards in hand.
type MeldGroup struct {
	Type    MeldType `json:"type"`
	CardIDs []string `json:"cardIds"`
}

// checkCounts verifies the group shape against the round's contract.
// Rounds before the last need exactly the contract; the last round needs at
// least the contract and every card in hand.
func (c Contract) checkCounts(round int, groups []MeldGroup, handSize int) error {
	sets, runs, used := 0, 0, 0
	for _, g := range groups {
		switch g.Type {
		case MeldSet:
			sets++
		case MeldRun:
			runs++
		default:
			return fmt.Errorf("%w: unknown meld type %q", ErrInvalidMeld, g.Type)
		}
		used += len(g.CardIDs)
	}
	if round == FinalRound {
		if sets < c.Sets || runs < c.Runs {
			return fmt.Errorf("%w: round %d needs at least %s, got %d set(s) + %d run(s)",
				ErrContractNotMet, round, c, sets, runs)
		}
		if used != handSize {
			return fmt.Errorf("%w: round %d must use all %d cards in hand, got %d",
				ErrContractNotMet, round, handSize, used)
		}
		return nil
	}
	if sets != c.Sets || runs != c.Runs {
		return fmt.Errorf("%w: round %d needs %s, got %d set(s) + %d run(s)",
			ErrContractNotMet, round, c, sets, runs)
	}
	return nil
}
