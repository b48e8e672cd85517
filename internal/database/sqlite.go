package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/DroopyTersen/mayi-sub006/internal/game"
	"github.com/DroopyTersen/mayi-sub006/internal/models"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS game_states (
		room_id    TEXT PRIMARY KEY,
		revision   INTEGER NOT NULL,
		state      TEXT NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS game_results (
		id          TEXT PRIMARY KEY,
		room_id     TEXT NOT NULL,
		game_id     TEXT NOT NULL,
		winners     TEXT NOT NULL,
		scores      TEXT NOT NULL,
		rounds      TEXT NOT NULL,
		finished_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS game_results_room_idx ON game_results(room_id)`,
}

// finished_at is stored as fixed-width UTC text so it sorts.
const sqliteTime = "2006-01-02 15:04:05.000000000"

// SQLiteStore is a single-file store for development and small deployments.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and applies the
// schema. ":memory:" is accepted.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("sqlite path required")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{`PRAGMA journal_mode=WAL;`, `PRAGMA busy_timeout=5000;`} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	s := &SQLiteStore{db: db}
	if err := s.Migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	for _, stmt := range sqliteSchema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate sqlite: %w", err)
		}
	}
	return nil
}

// Room returns the store for roomID.
func (s *SQLiteStore) Room(roomID uuid.UUID) game.StateStore {
	return &sqliteRoom{db: s.db, roomID: roomID.String()}
}

type sqliteRoom struct {
	db     *sql.DB
	roomID string
}

func (r *sqliteRoom) GetState(ctx context.Context) (*models.StoredGameState, error) {
	var raw string
	err := r.db.QueryRowContext(ctx, `SELECT state FROM game_states WHERE room_id = ?`, r.roomID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, game.ErrNoState
	}
	if err != nil {
		return nil, fmt.Errorf("select room %s: %w", r.roomID, err)
	}
	return decodeState([]byte(raw))
}

func (r *sqliteRoom) SetState(ctx context.Context, st *models.StoredGameState) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode room state: %w", err)
	}
	var res sql.Result
	if st.Revision == 1 {
		res, err = r.db.ExecContext(ctx,
			`INSERT INTO game_states (room_id, revision, state) VALUES (?, ?, ?)
			 ON CONFLICT(room_id) DO NOTHING`, r.roomID, st.Revision, string(raw))
	} else {
		res, err = r.db.ExecContext(ctx,
			`UPDATE game_states SET revision = ?, state = ?, updated_at = CURRENT_TIMESTAMP
			 WHERE room_id = ? AND revision = ?`, st.Revision, string(raw), r.roomID, st.Revision-1)
	}
	if err != nil {
		return fmt.Errorf("write room %s: %w", r.roomID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("write room %s: %w", r.roomID, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: room %s revision %d", game.ErrStaleRevision, r.roomID, st.Revision)
	}
	return nil
}

// RecordResult stores a finished game.
func (s *SQLiteStore) RecordResult(ctx context.Context, res models.GameResult) error {
	winners, scores, rounds, err := encodeResult(res)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO game_results (id, room_id, game_id, winners, scores, rounds, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), res.RoomID.String(), res.GameID,
		string(winners), string(scores), string(rounds), res.FinishedAt.UTC().Format(sqliteTime))
	if err != nil {
		return fmt.Errorf("insert result for room %s: %w", res.RoomID, err)
	}
	return nil
}

// Results lists the finished games of a room, oldest first.
func (s *SQLiteStore) Results(ctx context.Context, roomID uuid.UUID) ([]models.GameResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT game_id, winners, scores, rounds, finished_at FROM game_results
		 WHERE room_id = ? ORDER BY finished_at`, roomID.String())
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()
	var out []models.GameResult
	for rows.Next() {
		res := models.GameResult{RoomID: roomID}
		var winners, scores, rounds, finished string
		if err := rows.Scan(&res.GameID, &winners, &scores, &rounds, &finished); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		if err := decodeResult(&res, []byte(winners), []byte(scores), []byte(rounds)); err != nil {
			return nil, err
		}
		if res.FinishedAt, err = time.Parse(sqliteTime, finished); err != nil {
			return nil, fmt.Errorf("parse finished_at: %w", err)
		}
		out = append(out, res)
	}
	return out, rows.Err()
}
