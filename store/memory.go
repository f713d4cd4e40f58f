package store

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"cribbage/game"

	"golang.org/x/exp/slices"
)

type key struct {
	gameID     string
	snapshotID int64
}

// Memory keeps everything in process. It is safe for concurrent use.
type Memory struct {
	mu        sync.RWMutex
	events    map[string][]game.GameEvent
	seen      map[key]bool
	snapshots map[key]*game.GameState
	latest    map[string]int64
	games     map[string]GameRecord
}

func NewMemory() *Memory {
	return &Memory{
		events:    make(map[string][]game.GameEvent),
		seen:      make(map[key]bool),
		snapshots: make(map[key]*game.GameState),
		latest:    make(map[string]int64),
		games:     make(map[string]GameRecord),
	}
}

func (m *Memory) AppendEvent(ctx context.Context, event game.GameEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key{event.GameID, event.SnapshotID}
	if m.seen[k] {
		return fmt.Errorf("%w: event %s/%d", ErrAlreadyExists, event.GameID, event.SnapshotID)
	}
	m.seen[k] = true
	event.Cards = slices.Clone(event.Cards)
	event.ScoreBreakdown = slices.Clone(event.ScoreBreakdown)
	m.events[event.GameID] = append(m.events[event.GameID], event)
	return nil
}

func (m *Memory) AppendSnapshot(ctx context.Context, snapshot Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if snapshot.State == nil {
		return fmt.Errorf("snapshot %s/%d has no state", snapshot.GameID, snapshot.SnapshotID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key{snapshot.GameID, snapshot.SnapshotID}
	if _, ok := m.snapshots[k]; ok {
		return fmt.Errorf("%w: snapshot %s/%d", ErrAlreadyExists, snapshot.GameID, snapshot.SnapshotID)
	}
	m.snapshots[k] = snapshot.State.Copy()
	if snapshot.SnapshotID > m.latest[snapshot.GameID] {
		m.latest[snapshot.GameID] = snapshot.SnapshotID
	}
	return nil
}

func (m *Memory) Events(ctx context.Context, gameID string) ([]game.GameEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	events := slices.Clone(m.events[gameID])
	slices.SortFunc(events, func(a, b game.GameEvent) int {
		return int(a.SnapshotID - b.SnapshotID)
	})
	return events, nil
}

func (m *Memory) LatestSnapshot(ctx context.Context, gameID string) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.latest[gameID]
	if !ok {
		return Snapshot{}, fmt.Errorf("%w: snapshot for %s", ErrNotFound, gameID)
	}
	return Snapshot{GameID: gameID, SnapshotID: id, State: m.snapshots[key{gameID, id}].Copy()}, nil
}

func (m *Memory) FinalizeGame(ctx context.Context, record GameRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.games[record.GameID]; ok {
		return fmt.Errorf("%w: game %s", ErrAlreadyExists, record.GameID)
	}
	record.FinalScores = maps.Clone(record.FinalScores)
	m.games[record.GameID] = record
	return nil
}

func (m *Memory) Game(ctx context.Context, gameID string) (GameRecord, error) {
	if err := ctx.Err(); err != nil {
		return GameRecord{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	record, ok := m.games[gameID]
	if !ok {
		return GameRecord{}, fmt.Errorf("%w: game %s", ErrNotFound, gameID)
	}
	record.FinalScores = maps.Clone(record.FinalScores)
	return record, nil
}

var _ Store = (*Memory)(nil)
