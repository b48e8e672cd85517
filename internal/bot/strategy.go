package bot

import (
	"slices"

	"github.com/DroopyTersen/mayi-sub006/engine"
)

// progress scores how close hand is to contract: for sets, distinct suits
// per rank capped at three; for runs, naturals inside the best four-rank
// windows. Only the contract's count of best groups is summed.
func progress(hand []engine.Card, contract engine.Contract) int {
	score := 0
	if contract.Sets > 0 {
		suits := map[engine.Rank]map[engine.Suit]bool{}
		for _, c := range hand {
			if c.IsWild() {
				continue
			}
			if suits[c.Rank] == nil {
				suits[c.Rank] = map[engine.Suit]bool{}
			}
			suits[c.Rank][c.Suit] = true
		}
		var per []int
		for _, s := range suits {
			per = append(per, min(3, len(s)))
		}
		score += topSum(per, contract.Sets)
	}
	if contract.Runs > 0 {
		var windows []int
		for suit := engine.SuitClubs; suit <= engine.SuitSpades; suit++ {
			var have [engine.RankKing + 1]bool
			for _, c := range hand {
				if !c.IsWild() && c.Suit == suit {
					have[c.Rank] = true
				}
			}
			for start := int(engine.RankAce); start+3 <= int(engine.RankKing); start++ {
				n := 0
				for r := start; r < start+4; r++ {
					if have[r] {
						n++
					}
				}
				windows = append(windows, n)
			}
		}
		score += topSum(windows, contract.Runs)
	}
	return score
}

func topSum(xs []int, n int) int {
	slices.Sort(xs)
	slices.Reverse(xs)
	sum := 0
	for i := 0; i < n && i < len(xs); i++ {
		sum += xs[i]
	}
	return sum
}

// wants reports whether taking c would move a player who is not yet down
// closer to the round's contract. Wilds are always wanted.
func wants(hand []engine.Card, c engine.Card, round int) bool {
	if c.IsWild() {
		return true
	}
	contract := engine.ContractFor(round)
	return progress(append(slices.Clone(hand), c), contract) > progress(hand, contract)
}

// chooseDiscard picks the card whose loss hurts the contract least, breaking
// ties by the highest penalty value. Wilds go only when nothing else is left.
// A player who is down cannot meld again, so it sheds the heaviest natural.
func chooseDiscard(hand []engine.Card, round int, down bool) engine.Card {
	contract := engine.ContractFor(round)
	base := progress(hand, contract)
	best, bestLoss := -1, 0
	for i, c := range hand {
		if c.IsWild() {
			continue
		}
		loss := 0
		if !down {
			loss = base - progress(slices.Delete(slices.Clone(hand), i, i+1), contract)
		}
		if best < 0 || loss < bestLoss || (loss == bestLoss && c.Points() > hand[best].Points()) {
			best, bestLoss = i, loss
		}
	}
	if best < 0 {
		best = 0
		for i, c := range hand {
			if c.Points() < hand[best].Points() {
				best = i
			}
		}
	}
	return hand[best]
}

// findLayOff returns the first card of me's hand the engine would accept on
// a table meld.
func findLayOff(g *engine.GameState, me string) (cardID, meldID string, ok bool) {
	p := g.Player(me)
	for _, c := range p.Hand {
		for _, m := range g.Round.Table {
			if g.Clone().LayOff(me, c.ID, m.ID) == nil {
				return c.ID, m.ID, true
			}
		}
	}
	return "", "", false
}

// findJokerSwap returns a run Joker that one of me's naturals can replace.
func findJokerSwap(g *engine.GameState, me string) (meldID, jokerID, swapID string, ok bool) {
	p := g.Player(me)
	for _, m := range g.Round.Table {
		if m.Type != engine.MeldRun {
			continue
		}
		for _, j := range m.Cards {
			if !j.IsJoker() {
				continue
			}
			for _, c := range p.Hand {
				if c.IsWild() {
					continue
				}
				if g.Clone().SwapJoker(me, m.ID, j.ID, c.ID) == nil {
					return m.ID, j.ID, c.ID, true
				}
			}
		}
	}
	return "", "", "", false
}
