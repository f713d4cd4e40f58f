// Package sqlite provides a SQLite-backed game store.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"cribbage/game"
	"cribbage/store"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

//go:embed schema.sql
var schema string

// Store persists games in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite game store and creates its tables.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	return nil
}

func (s *Store) AppendEvent(ctx context.Context, event game.GameEvent) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(event.GameID) == "" {
		return fmt.Errorf("game id is required")
	}
	cards, err := json.Marshal(event.Cards)
	if err != nil {
		return fmt.Errorf("encode cards: %w", err)
	}
	breakdown, err := json.Marshal(event.ScoreBreakdown)
	if err != nil {
		return fmt.Errorf("encode score breakdown: %w", err)
	}

	_, err = s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO game_events (
		   game_id,
		   snapshot_id,
		   phase,
		   action_type,
		   player_id,
		   cards,
		   score_change,
		   score_breakdown,
		   created_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.GameID,
		event.SnapshotID,
		string(event.Phase),
		string(event.ActionType),
		event.PlayerID,
		string(cards),
		event.ScoreChange,
		string(breakdown),
		toMillis(event.Timestamp),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: event %s/%d", store.ErrAlreadyExists, event.GameID, event.SnapshotID)
		}
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (s *Store) AppendSnapshot(ctx context.Context, snapshot store.Snapshot) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if snapshot.State == nil {
		return fmt.Errorf("snapshot %s/%d has no state", snapshot.GameID, snapshot.SnapshotID)
	}
	state, err := json.Marshal(snapshot.State)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	_, err = s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO game_snapshots (game_id, snapshot_id, state) VALUES (?, ?, ?)`,
		snapshot.GameID,
		snapshot.SnapshotID,
		string(state),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: snapshot %s/%d", store.ErrAlreadyExists, snapshot.GameID, snapshot.SnapshotID)
		}
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

func (s *Store) Events(ctx context.Context, gameID string) ([]game.GameEvent, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT snapshot_id, phase, action_type, player_id, cards, score_change, score_breakdown, created_at
		 FROM game_events
		 WHERE game_id = ?
		 ORDER BY snapshot_id`,
		gameID,
	)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []game.GameEvent
	for rows.Next() {
		event := game.GameEvent{GameID: gameID}
		var (
			phase     string
			action    string
			cards     string
			breakdown string
			createdAt int64
		)
		if err := rows.Scan(&event.SnapshotID, &phase, &action, &event.PlayerID, &cards, &event.ScoreChange, &breakdown, &createdAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		event.Phase = game.Phase(phase)
		event.ActionType = game.ActionType(action)
		event.Timestamp = fromMillis(createdAt)
		if err := json.Unmarshal([]byte(cards), &event.Cards); err != nil {
			return nil, fmt.Errorf("decode cards of %s/%d: %w", gameID, event.SnapshotID, err)
		}
		if err := json.Unmarshal([]byte(breakdown), &event.ScoreBreakdown); err != nil {
			return nil, fmt.Errorf("decode score breakdown of %s/%d: %w", gameID, event.SnapshotID, err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

func (s *Store) LatestSnapshot(ctx context.Context, gameID string) (store.Snapshot, error) {
	if err := s.ready(ctx); err != nil {
		return store.Snapshot{}, err
	}
	snapshot := store.Snapshot{GameID: gameID}
	var state string
	err := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT snapshot_id, state FROM game_snapshots
		 WHERE game_id = ?
		 ORDER BY snapshot_id DESC
		 LIMIT 1`,
		gameID,
	).Scan(&snapshot.SnapshotID, &state)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Snapshot{}, fmt.Errorf("%w: snapshot for %s", store.ErrNotFound, gameID)
		}
		return store.Snapshot{}, fmt.Errorf("query snapshot: %w", err)
	}
	snapshot.State = &game.GameState{}
	if err := json.Unmarshal([]byte(state), snapshot.State); err != nil {
		return store.Snapshot{}, fmt.Errorf("decode state of %s/%d: %w", gameID, snapshot.SnapshotID, err)
	}
	return snapshot, nil
}

func (s *Store) FinalizeGame(ctx context.Context, record store.GameRecord) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	scores, err := json.Marshal(record.FinalScores)
	if err != nil {
		return fmt.Errorf("encode final scores: %w", err)
	}
	endedAt := record.EndedAt
	if endedAt.IsZero() {
		endedAt = time.Now()
	}
	_, err = s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO games (game_id, winner, rounds, final_scores, ended_at) VALUES (?, ?, ?, ?, ?)`,
		record.GameID,
		record.Winner,
		record.Rounds,
		string(scores),
		toMillis(endedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: game %s", store.ErrAlreadyExists, record.GameID)
		}
		return fmt.Errorf("insert game: %w", err)
	}
	return nil
}

func (s *Store) Game(ctx context.Context, gameID string) (store.GameRecord, error) {
	if err := s.ready(ctx); err != nil {
		return store.GameRecord{}, err
	}
	record := store.GameRecord{GameID: gameID}
	var (
		scores  string
		endedAt int64
	)
	err := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT winner, rounds, final_scores, ended_at FROM games WHERE game_id = ?`,
		gameID,
	).Scan(&record.Winner, &record.Rounds, &scores, &endedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.GameRecord{}, fmt.Errorf("%w: game %s", store.ErrNotFound, gameID)
		}
		return store.GameRecord{}, fmt.Errorf("query game: %w", err)
	}
	if err := json.Unmarshal([]byte(scores), &record.FinalScores); err != nil {
		return store.GameRecord{}, fmt.Errorf("decode final scores of %s: %w", gameID, err)
	}
	record.EndedAt = fromMillis(endedAt)
	return record, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

var _ store.Store = (*Store)(nil)
