// Package cache keeps room state and the activity queue in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/DroopyTersen/mayi-sub006/internal/game"
	"github.com/DroopyTersen/mayi-sub006/internal/models"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	roomKeyPrefix = "mayi:room:"
	activityKey   = "mayi:activity"
	// roomTTL is refreshed on every write; abandoned rooms expire.
	roomTTL = 24 * time.Hour
)

// Connect opens a client and pings it.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return rdb, nil
}

// Rooms hands out per-room stores backed by one client.
type Rooms struct {
	rdb *redis.Client
}

func NewRooms(rdb *redis.Client) *Rooms { return &Rooms{rdb: rdb} }

// Room returns the store for roomID.
func (r *Rooms) Room(roomID uuid.UUID) game.StateStore {
	return &RoomStore{rdb: r.rdb, key: roomKeyPrefix + roomID.String()}
}

// RoomStore is a game.StateStore over a single Redis key. Writes use
// WATCH/MULTI so two processes cannot both move the same revision forward.
type RoomStore struct {
	rdb *redis.Client
	key string
}

func (s *RoomStore) GetState(ctx context.Context) (*models.StoredGameState, error) {
	return getState(ctx, s.rdb, s.key)
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func getState(ctx context.Context, c getter, key string) (*models.StoredGameState, error) {
	raw, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, game.ErrNoState
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	var st models.StoredGameState
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return &st, nil
}

func (s *RoomStore) SetState(ctx context.Context, st *models.StoredGameState) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode room state: %w", err)
	}
	err = s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := getState(ctx, tx, s.key)
		if err != nil && !errors.Is(err, game.ErrNoState) {
			return err
		}
		if err := game.CheckRevision(cur, st); err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, s.key, raw, roomTTL)
			return nil
		})
		return err
	}, s.key)
	if errors.Is(err, redis.TxFailedErr) {
		return fmt.Errorf("%w: concurrent write to %s", game.ErrStaleRevision, s.key)
	}
	return err
}

// Historian pushes activity entries onto a Redis list for offline consumers.
type Historian struct {
	rdb *redis.Client
}

func NewHistorian(rdb *redis.Client) *Historian { return &Historian{rdb: rdb} }

// ActivityRecord is one element of the mayi:activity list.
type ActivityRecord struct {
	RoomID uuid.UUID            `json:"roomId"`
	Entry  models.ActivityEntry `json:"entry"`
}

func (h *Historian) PublishActivity(ctx context.Context, roomID uuid.UUID, e models.ActivityEntry) error {
	raw, err := json.Marshal(ActivityRecord{RoomID: roomID, Entry: e})
	if err != nil {
		return fmt.Errorf("encode activity: %w", err)
	}
	if err := h.rdb.RPush(ctx, activityKey, raw).Err(); err != nil {
		return fmt.Errorf("rpush %s: %w", activityKey, err)
	}
	return nil
}

// PopActivity removes and returns up to n records from the head of the list.
func (h *Historian) PopActivity(ctx context.Context, n int) ([]ActivityRecord, error) {
	raws, err := h.rdb.LPopCount(ctx, activityKey, n).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lpop %s: %w", activityKey, err)
	}
	out := make([]ActivityRecord, 0, len(raws))
	for _, raw := range raws {
		var rec ActivityRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("decode activity: %w", err)
		}
		out = append(out, rec)
	}
	return out, nil
}
