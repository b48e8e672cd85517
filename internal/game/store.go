package game

import (
	"context"
	"fmt"
	"sync"

	"github.com/DroopyTersen/mayi-sub006/internal/models"
)

// StateStore holds the single persisted record for one room.
type StateStore interface {
	GetState(ctx context.Context) (*models.StoredGameState, error)
	SetState(ctx context.Context, s *models.StoredGameState) error
}

// CheckRevision enforces the write contract shared by every backend: the
// first write carries revision 1, later writes exactly stored+1.
func CheckRevision(stored *models.StoredGameState, next *models.StoredGameState) error {
	want := int64(1)
	if stored != nil {
		want = stored.Revision + 1
	}
	if next.Revision != want {
		return fmt.Errorf("%w: got %d, want %d", ErrStaleRevision, next.Revision, want)
	}
	return nil
}

// MemoryStore is a process-local StateStore. Values are copied on the way in
// and out so callers never share slices with the stored record.
type MemoryStore struct {
	mu    sync.Mutex
	state *models.StoredGameState
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (m *MemoryStore) GetState(ctx context.Context) (*models.StoredGameState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == nil {
		return nil, ErrNoState
	}
	return copyStored(m.state), nil
}

func (m *MemoryStore) SetState(ctx context.Context, s *models.StoredGameState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := CheckRevision(m.state, s); err != nil {
		return err
	}
	m.state = copyStored(s)
	return nil
}

func copyStored(s *models.StoredGameState) *models.StoredGameState {
	c := s.Next()
	c.Revision = s.Revision
	c.UpdatedAt = s.UpdatedAt
	return c
}
