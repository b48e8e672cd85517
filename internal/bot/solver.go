package bot

import (
	"slices"

	"github.com/DroopyTersen/mayi-sub006/engine"
)

// searchBudget caps the nodes visited per solve; hands rarely need a tenth.
const searchBudget = 20000

type candidate struct {
	typ      engine.MeldType
	naturals []engine.Card
	wilds    int
}

func (c candidate) uses(used map[string]bool) bool {
	for _, n := range c.naturals {
		if used[n.ID] {
			return true
		}
	}
	return false
}

type solver struct {
	need   engine.Contract
	sets   []candidate
	runs   []candidate
	wilds  []engine.Card
	hand   []engine.Card
	rules  engine.HouseRules
	whole  bool // the final round must use every card
	budget int
}

// SolveContract looks for a lay-down of hand that satisfies round's contract.
// Groups name card ids only; the engine arranges runs itself.
func SolveContract(hand []engine.Card, round int, rules engine.HouseRules) ([]engine.MeldGroup, bool) {
	s := &solver{
		need:   engine.ContractFor(round),
		hand:   hand,
		rules:  rules,
		whole:  round >= engine.FinalRound,
		budget: searchBudget,
	}
	var naturals []engine.Card
	for _, c := range hand {
		if c.IsWild() {
			s.wilds = append(s.wilds, c)
		} else {
			naturals = append(naturals, c)
		}
	}
	// Deuces before Jokers so the 50-point cards stay for last.
	slices.SortStableFunc(s.wilds, func(a, b engine.Card) int { return a.Points() - b.Points() })
	s.sets = setCandidates(naturals, rules.MinSetSize)
	s.runs = runCandidates(naturals, rules.MinRunSize)

	var out []engine.MeldGroup
	s.search(0, 0, 0, 0, map[string]bool{}, nil, func(chosen []candidate) bool {
		groups, ok := s.materialize(chosen)
		if ok {
			out = groups
		}
		return ok
	})
	return out, out != nil
}

func (s *solver) search(si, ri, nSets, wildsUsed int, used map[string]bool, chosen []candidate, yield func([]candidate) bool) bool {
	s.budget--
	if s.budget <= 0 {
		return false
	}
	try := func(list []candidate, from int, next func(i int, c candidate) bool) bool {
		for i := from; i < len(list); i++ {
			c := list[i]
			if c.uses(used) || wildsUsed+c.wilds > len(s.wilds) {
				continue
			}
			for _, n := range c.naturals {
				used[n.ID] = true
			}
			ok := next(i, c)
			for _, n := range c.naturals {
				delete(used, n.ID)
			}
			if ok {
				return true
			}
		}
		return false
	}
	switch {
	case nSets < s.need.Sets:
		return try(s.sets, si, func(i int, c candidate) bool {
			return s.search(i+1, ri, nSets+1, wildsUsed+c.wilds, used, append(chosen, c), yield)
		})
	case len(chosen)-nSets < s.need.Runs:
		return try(s.runs, ri, func(i int, c candidate) bool {
			return s.search(si, i+1, nSets, wildsUsed+c.wilds, used, append(chosen, c), yield)
		})
	}
	return yield(slices.Clone(chosen))
}

// materialize hands out wilds, places leftovers in the final round, and
// checks every group with the engine's validators.
func (s *solver) materialize(chosen []candidate) ([]engine.MeldGroup, bool) {
	wi := 0
	used := map[string]bool{}
	groups := make([][]engine.Card, len(chosen))
	for i, c := range chosen {
		cards := slices.Clone(c.naturals)
		cards = append(cards, s.wilds[wi:wi+c.wilds]...)
		wi += c.wilds
		for _, x := range cards {
			used[x.ID] = true
		}
		groups[i] = cards
	}
	if s.whole {
		var rest []engine.Card
		for _, c := range s.hand {
			if !used[c.ID] {
				rest = append(rest, c)
			}
		}
		// naturals first so wilds can plug whatever gap remains
		slices.SortStableFunc(rest, func(a, b engine.Card) int {
			return boolInt(a.IsWild()) - boolInt(b.IsWild())
		})
		for _, c := range rest {
			placed := false
			for i := range groups {
				if s.valid(chosen[i].typ, append(slices.Clone(groups[i]), c)) {
					groups[i] = append(groups[i], c)
					placed = true
					break
				}
			}
			if !placed {
				return nil, false
			}
		}
	}
	out := make([]engine.MeldGroup, len(groups))
	for i, cards := range groups {
		if !s.valid(chosen[i].typ, cards) {
			return nil, false
		}
		out[i] = engine.MeldGroup{Type: chosen[i].typ, CardIDs: cardIDs(cards)}
	}
	return out, true
}

func (s *solver) valid(typ engine.MeldType, cards []engine.Card) bool {
	if typ == engine.MeldSet {
		return engine.ValidateSet(cards, s.rules.MinSetSize) == nil
	}
	_, err := engine.ArrangeRun(cards, s.rules.MinRunSize)
	return err == nil
}

// setCandidates offers, per rank, one natural per suit; with four suits also
// each three-suit subset so the fourth card can serve a run.
func setCandidates(naturals []engine.Card, minSize int) []candidate {
	byRank := map[engine.Rank][]engine.Card{}
	for _, c := range naturals {
		dup := slices.ContainsFunc(byRank[c.Rank], func(x engine.Card) bool { return x.Suit == c.Suit })
		if !dup {
			byRank[c.Rank] = append(byRank[c.Rank], c)
		}
	}
	var out []candidate
	for r := engine.RankAce; r <= engine.RankKing; r++ {
		cards := byRank[r]
		if len(cards) == 0 {
			continue
		}
		out = append(out, candidate{typ: engine.MeldSet, naturals: cards, wilds: max(0, minSize-len(cards))})
		if len(cards) == 4 && minSize <= 3 {
			for skip := range cards {
				sub := slices.Delete(slices.Clone(cards), skip, skip+1)
				out = append(out, candidate{typ: engine.MeldSet, naturals: sub})
			}
		}
	}
	sortCandidates(out)
	return out
}

// runCandidates offers, per suit, every window of at least minSize ranks
// that starts and ends on a natural, or is exactly minSize long.
func runCandidates(naturals []engine.Card, minSize int) []candidate {
	var out []candidate
	for suit := engine.SuitClubs; suit <= engine.SuitSpades; suit++ {
		var byRank [engine.RankKing + 1]*engine.Card
		for i := range naturals {
			c := &naturals[i]
			if c.Suit == suit && byRank[c.Rank] == nil {
				byRank[c.Rank] = c
			}
		}
		for start := int(engine.RankAce); start <= int(engine.RankKing); start++ {
			for end := start + minSize - 1; end <= int(engine.RankKing); end++ {
				edges := byRank[start] != nil && byRank[end] != nil
				if !edges && end-start+1 != minSize {
					continue
				}
				var cards []engine.Card
				for r := start; r <= end; r++ {
					if byRank[r] != nil {
						cards = append(cards, *byRank[r])
					}
				}
				if len(cards) == 0 {
					continue
				}
				out = append(out, candidate{typ: engine.MeldRun, naturals: cards, wilds: end - start + 1 - len(cards)})
			}
		}
	}
	sortCandidates(out)
	return out
}

// sortCandidates puts the cheapest, fullest groups first.
func sortCandidates(cs []candidate) {
	slices.SortStableFunc(cs, func(a, b candidate) int {
		if a.wilds != b.wilds {
			return a.wilds - b.wilds
		}
		return len(b.naturals) - len(a.naturals)
	})
}

func cardIDs(cards []engine.Card) []string {
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = c.ID
	}
	return out
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
