package game

import (
	"context"
	"testing"

	"github.com/DroopyTersen/mayi-sub006/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRevisions(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.GetState(ctx)
	assert.ErrorIs(t, err, ErrNoState)

	st := &models.StoredGameState{RoomID: uuid.New(), Revision: 2}
	assert.ErrorIs(t, store.SetState(ctx, st), ErrStaleRevision, "first write must be revision 1")

	st.Revision = 1
	require.NoError(t, store.SetState(ctx, st))
	assert.ErrorIs(t, store.SetState(ctx, st), ErrStaleRevision, "same revision twice")

	next := st.Next()
	require.NoError(t, store.SetState(ctx, next))
	got, err := store.GetState(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Revision)
}

func TestMemoryStoreCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	st := &models.StoredGameState{
		RoomID:         uuid.New(),
		Revision:       1,
		PlayerMappings: []models.PlayerMapping{{ExternalID: "a", EngineID: "p1"}},
	}
	require.NoError(t, store.SetState(ctx, st))
	st.PlayerMappings[0].Name = "mutated"

	got, err := store.GetState(ctx)
	require.NoError(t, err)
	assert.Empty(t, got.PlayerMappings[0].Name)
	got.PlayerMappings[0].Name = "again"

	again, err := store.GetState(ctx)
	require.NoError(t, err)
	assert.Empty(t, again.PlayerMappings[0].Name)
}

func TestMemoryStoreHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMemoryStore().GetState(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
