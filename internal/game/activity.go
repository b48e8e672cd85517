package game

import (
	"context"
	"time"

	"github.com/DroopyTersen/mayi-sub006/engine"
	"github.com/DroopyTersen/mayi-sub006/internal/models"
	"github.com/google/uuid"
)

// Activity actions that are not engine verbs.
const (
	ActivityGameStart = "game_start"
	ActivityRoundEnd  = "round_end"
	ActivityGameEnd   = "game_end"
)

// ActivityPublisher mirrors activity entries to an external sink.
type ActivityPublisher interface {
	PublishActivity(ctx context.Context, roomID uuid.UUID, e models.ActivityEntry) error
}

// ResultsRecorder stores the summary of a finished game.
type ResultsRecorder interface {
	RecordResult(ctx context.Context, r models.GameResult) error
}

func commandActivity(actorID string, cmd engine.Command) models.ActivityEntry {
	detail := map[string]any{}
	switch cmd.Action {
	case engine.ActionDiscard:
		detail["cardId"] = cmd.CardID
	case engine.ActionLayOff:
		detail["cardId"] = cmd.CardID
		detail["meldId"] = cmd.MeldID
	case engine.ActionSwapJoker:
		detail["meldId"] = cmd.MeldID
		detail["jokerCardId"] = cmd.JokerCardID
		detail["swapCardId"] = cmd.SwapCardID
	case engine.ActionLayDown:
		detail["groups"] = len(cmd.Groups)
	}
	if len(detail) == 0 {
		detail = nil
	}
	return models.NewActivity(actorID, string(cmd.Action), detail)
}

// transitionActivity lists the round and game ends between prev and next.
func transitionActivity(prev, next *engine.GameState) []models.ActivityEntry {
	var out []models.ActivityEntry
	for _, rec := range next.History[min(len(prev.History), len(next.History)):] {
		out = append(out, models.NewActivity("", ActivityRoundEnd, map[string]any{
			"round":    rec.Number,
			"winnerId": rec.WinnerID,
			"scores":   rec.Scores,
		}))
	}
	if next.IsGameOver() && !prev.IsGameOver() {
		out = append(out, models.NewActivity("", ActivityGameEnd, map[string]any{"winners": next.Winners()}))
	}
	return out
}

// gameResult maps the engine's final standings to external ids.
func gameResult(st *models.StoredGameState, g *engine.GameState) models.GameResult {
	r := models.GameResult{
		RoomID:     st.RoomID,
		GameID:     g.ID,
		Scores:     make(map[string]int, len(g.Players)),
		Rounds:     g.Clone().History,
		FinishedAt: time.Now().UTC(),
	}
	external := func(engineID string) string {
		if m, ok := st.ByEngine(engineID); ok {
			return m.ExternalID
		}
		return engineID
	}
	for _, p := range g.Players {
		r.Scores[external(p.ID)] = p.TotalScore
	}
	for _, id := range g.Winners() {
		r.Winners = append(r.Winners, external(id))
	}
	return r
}
