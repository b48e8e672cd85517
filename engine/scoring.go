package engine

// HandPoints sums the penalty value of the cards in hand.
func HandPoints(hand []Card) int {
	total := 0
	for _, c := range hand {
		total += c.Points()
	}
	return total
}

// endRound scores the round, folds it into History and either sets up the
// next round or ends the game. The player who went out scores zero.
func (g *GameState) endRound(winner int) {
	rec := RoundRecord{
		Number:      g.Round.Number,
		DealerIndex: g.Round.DealerIndex,
		WinnerID:    g.Players[winner].ID,
		Scores:      make(map[string]int, len(g.Players)),
	}
	for i := range g.Players {
		p := &g.Players[i]
		pts := 0
		if i != winner {
			pts = HandPoints(p.Hand)
		}
		rec.Scores[p.ID] = pts
		p.TotalScore += pts
	}
	g.History = append(g.History, rec)

	if g.Round.Number >= FinalRound {
		g.Phase = PhaseGameEnd
		g.Round.MayI = nil
		g.Round.DiscardClaimable = false
		return
	}
	g.startRound(g.Round.Number + 1)
}

// Winners returns the players with the lowest total score. Only meaningful
// once the game is over.
func (g *GameState) Winners() []string {
	var ids []string
	best := 0
	for i, p := range g.Players {
		switch {
		case i == 0 || p.TotalScore < best:
			best = p.TotalScore
			ids = []string{p.ID}
		case p.TotalScore == best:
			ids = append(ids, p.ID)
		}
	}
	return ids
}
