// Package store persists game events, round boundary snapshots and finished
// game records.
package store

import (
	"context"
	"errors"
	"time"

	"cribbage/game"
)

var (
	// ErrNotFound indicates a requested record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists indicates a record with the same key was already stored.
	ErrAlreadyExists = errors.New("record already exists")
)

// Snapshot is the full state stored alongside one event.
type Snapshot struct {
	GameID     string
	SnapshotID int64
	State      *game.GameState
}

// GameRecord summarizes a finished game.
type GameRecord struct {
	GameID      string
	Winner      string
	Rounds      int
	FinalScores map[string]int
	EndedAt     time.Time
}

// Store is keyed by (gameID, snapshotID); appending an existing key fails
// with ErrAlreadyExists.
type Store interface {
	AppendEvent(ctx context.Context, event game.GameEvent) error
	AppendSnapshot(ctx context.Context, snapshot Snapshot) error
	Events(ctx context.Context, gameID string) ([]game.GameEvent, error)
	LatestSnapshot(ctx context.Context, gameID string) (Snapshot, error)
	FinalizeGame(ctx context.Context, record GameRecord) error
	Game(ctx context.Context, gameID string) (GameRecord, error)
}
