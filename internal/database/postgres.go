// Package database persists room state and final results in Postgres or
// SQLite.
package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/DroopyTersen/mayi-sub006/internal/game"
	"github.com/DroopyTersen/mayi-sub006/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS game_states (
		room_id    UUID PRIMARY KEY,
		revision   BIGINT NOT NULL,
		state      JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS game_results (
		id          UUID PRIMARY KEY,
		room_id     UUID NOT NULL,
		game_id     TEXT NOT NULL,
		winners     JSONB NOT NULL,
		scores      JSONB NOT NULL,
		rounds      JSONB NOT NULL,
		finished_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS game_results_room_idx ON game_results(room_id)`,
}

// PostgresStore is the pgx-backed store.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// ConnectPostgres opens a pool for url and applies the schema.
func ConnectPostgres(ctx context.Context, url string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	p := &PostgresStore{pool: pool}
	if err := p.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

func (p *PostgresStore) Close() { p.pool.Close() }

func (p *PostgresStore) Migrate(ctx context.Context) error {
	for _, stmt := range postgresSchema {
		if _, err := p.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate postgres: %w", err)
		}
	}
	return nil
}

// Room returns the store for roomID.
func (p *PostgresStore) Room(roomID uuid.UUID) game.StateStore {
	return &postgresRoom{pool: p.pool, roomID: roomID.String()}
}

type postgresRoom struct {
	pool   *pgxpool.Pool
	roomID string
}

func (r *postgresRoom) GetState(ctx context.Context) (*models.StoredGameState, error) {
	var raw []byte
	err := r.pool.QueryRow(ctx, `SELECT state FROM game_states WHERE room_id = $1`, r.roomID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, game.ErrNoState
	}
	if err != nil {
		return nil, fmt.Errorf("select room %s: %w", r.roomID, err)
	}
	return decodeState(raw)
}

func (r *postgresRoom) SetState(ctx context.Context, st *models.StoredGameState) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode room state: %w", err)
	}
	var sql string
	args := []any{r.roomID, st.Revision, raw}
	if st.Revision == 1 {
		sql = `INSERT INTO game_states (room_id, revision, state) VALUES ($1, $2, $3)
			ON CONFLICT (room_id) DO NOTHING`
	} else {
		sql = `UPDATE game_states SET revision = $2, state = $3, updated_at = now()
			WHERE room_id = $1 AND revision = $4`
		args = append(args, st.Revision-1)
	}
	tag, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("write room %s: %w", r.roomID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: room %s revision %d", game.ErrStaleRevision, r.roomID, st.Revision)
	}
	return nil
}

// RecordResult stores a finished game.
func (p *PostgresStore) RecordResult(ctx context.Context, res models.GameResult) error {
	winners, scores, rounds, err := encodeResult(res)
	if err != nil {
		return err
	}
	_, err = p.pool.Exec(ctx,
		`INSERT INTO game_results (id, room_id, game_id, winners, scores, rounds, finished_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.NewString(), res.RoomID.String(), res.GameID, winners, scores, rounds, res.FinishedAt)
	if err != nil {
		return fmt.Errorf("insert result for room %s: %w", res.RoomID, err)
	}
	return nil
}

// Results lists the finished games of a room, oldest first.
func (p *PostgresStore) Results(ctx context.Context, roomID uuid.UUID) ([]models.GameResult, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT game_id, winners, scores, rounds, finished_at FROM game_results
		 WHERE room_id = $1 ORDER BY finished_at`, roomID.String())
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()
	var out []models.GameResult
	for rows.Next() {
		res := models.GameResult{RoomID: roomID}
		var winners, scores, rounds []byte
		if err := rows.Scan(&res.GameID, &winners, &scores, &rounds, &res.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		if err := decodeResult(&res, winners, scores, rounds); err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func decodeState(raw []byte) (*models.StoredGameState, error) {
	var st models.StoredGameState
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("decode room state: %w", err)
	}
	return &st, nil
}

func encodeResult(res models.GameResult) (winners, scores, rounds []byte, err error) {
	if winners, err = json.Marshal(res.Winners); err != nil {
		return nil, nil, nil, fmt.Errorf("encode winners: %w", err)
	}
	if scores, err = json.Marshal(res.Scores); err != nil {
		return nil, nil, nil, fmt.Errorf("encode scores: %w", err)
	}
	if rounds, err = json.Marshal(res.Rounds); err != nil {
		return nil, nil, nil, fmt.Errorf("encode rounds: %w", err)
	}
	return winners, scores, rounds, nil
}

func decodeResult(res *models.GameResult, winners, scores, rounds []byte) error {
	if err := json.Unmarshal(winners, &res.Winners); err != nil {
		return fmt.Errorf("decode winners: %w", err)
	}
	if err := json.Unmarshal(scores, &res.Scores); err != nil {
		return fmt.Errorf("decode scores: %w", err)
	}
	if err := json.Unmarshal(rounds, &res.Rounds); err != nil {
		return fmt.Errorf("decode rounds: %w", err)
	}
	return nil
}
