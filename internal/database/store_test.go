package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DroopyTersen/mayi-sub006/engine"
	"github.com/DroopyTersen/mayi-sub006/internal/game"
	"github.com/DroopyTersen/mayi-sub006/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roomBackend interface {
	Room(roomID uuid.UUID) game.StateStore
	RecordResult(ctx context.Context, res models.GameResult) error
	Results(ctx context.Context, roomID uuid.UUID) ([]models.GameResult, error)
}

var threeSeats = []game.Seat{{ExternalID: "a", Name: "Ann"}, {ExternalID: "b", Name: "Bo"}, {ExternalID: "c", Name: "Cy", IsAI: true}}

func exerciseRooms(t *testing.T, backend roomBackend) {
	t.Helper()
	ctx := context.Background()
	roomID := uuid.New()
	store := backend.Room(roomID)

	_, err := store.GetState(ctx)
	require.ErrorIs(t, err, game.ErrNoState)

	st, g, err := game.NewStoredGame(roomID, threeSeats, 11, engine.DefaultHouseRules())
	require.NoError(t, err)
	require.NoError(t, store.SetState(ctx, st))
	assert.ErrorIs(t, store.SetState(ctx, st), game.ErrStaleRevision, "second create")

	got, err := store.GetState(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Revision)
	assert.Equal(t, st.PlayerMappings, got.PlayerMappings)
	loaded, err := got.Game()
	require.NoError(t, err)
	assert.Equal(t, g.Round.Stock, loaded.Round.Stock)

	next := got.Next()
	require.NoError(t, loaded.DrawFromStock(loaded.CurrentPlayer().ID))
	require.NoError(t, next.SetGame(loaded))
	require.NoError(t, store.SetState(ctx, next))

	skipped := next.Next()
	skipped.Revision++
	assert.ErrorIs(t, store.SetState(ctx, skipped), game.ErrStaleRevision, "revision gap")
	assert.ErrorIs(t, store.SetState(ctx, got.Next()), game.ErrStaleRevision, "stale base")

	got, err = store.GetState(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Revision)

	other, err := backend.Room(uuid.New()).GetState(ctx)
	assert.Nil(t, other)
	assert.ErrorIs(t, err, game.ErrNoState)
}

func exerciseResults(t *testing.T, backend roomBackend) {
	t.Helper()
	ctx := context.Background()
	roomID := uuid.New()
	first := models.GameResult{
		RoomID:     roomID,
		GameID:     "g1",
		Winners:    []string{"a"},
		Scores:     map[string]int{"a": 40, "b": 95, "c": 120},
		Rounds:     []engine.RoundRecord{{Number: 1, WinnerID: "p1", Scores: map[string]int{"p1": 0, "p2": 30}}},
		FinishedAt: time.Now().UTC().Add(-time.Minute).Truncate(time.Millisecond),
	}
	second := first
	second.GameID = "g2"
	second.Winners = []string{"b", "c"}
	second.FinishedAt = first.FinishedAt.Add(30 * time.Second)

	require.NoError(t, backend.RecordResult(ctx, second))
	require.NoError(t, backend.RecordResult(ctx, first))

	got, err := backend.Results(ctx, roomID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "g1", got[0].GameID)
	assert.Equal(t, first.Scores, got[0].Scores)
	assert.Equal(t, first.Rounds, got[0].Rounds)
	assert.True(t, first.FinishedAt.Equal(got[0].FinishedAt))
	assert.Equal(t, []string{"b", "c"}, got[1].Winners)

	none, err := backend.Results(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, none)
}

func openTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "data", "mayi.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteRooms(t *testing.T)   { exerciseRooms(t, openTestSQLite(t)) }
func TestSQLiteResults(t *testing.T) { exerciseResults(t, openTestSQLite(t)) }

func TestSQLiteReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mayi.db")
	s, err := OpenSQLite(path)
	require.NoError(t, err)
	roomID := uuid.New()
	st, _, err := game.NewStoredGame(roomID, threeSeats, 5, engine.DefaultHouseRules())
	require.NoError(t, err)
	require.NoError(t, s.Room(roomID).SetState(context.Background(), st))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Room(roomID).GetState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, roomID, got.RoomID)
}

func TestOpenSQLiteRequiresPath(t *testing.T) {
	_, err := OpenSQLite("")
	assert.Error(t, err)
}

func openTestPostgres(t *testing.T) *PostgresStore {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	p, err := ConnectPostgres(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(p.Close)
	return p
}

func TestPostgresRooms(t *testing.T)   { exerciseRooms(t, openTestPostgres(t)) }
func TestPostgresResults(t *testing.T) { exerciseResults(t, openTestPostgres(t)) }
