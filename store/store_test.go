package store

import (
	"context"
	"testing"
	"time"

	"cribbage/agent"
	"cribbage/engine"
	"cribbage/game"

	"github.com/stretchr/testify/require"
)

func event(gameID string, id int64, action game.ActionType, cards ...string) game.GameEvent {
	return game.GameEvent{
		GameID:     gameID,
		SnapshotID: id,
		Phase:      game.PeggingPhase,
		ActionType: action,
		PlayerID:   "a",
		Cards:      game.MustParseCards(cards...),
		Timestamp:  time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestMemory(t *testing.T) {
	ctx := context.Background()

	t.Run("events come back in snapshot order", func(t *testing.T) {
		m := NewMemory()
		require.NoError(t, m.AppendEvent(ctx, event("g", 2, game.GoAction)))
		require.NoError(t, m.AppendEvent(ctx, event("g", 1, game.PlayCardAction, "5H")))
		require.NoError(t, m.AppendEvent(ctx, event("other", 1, game.GoAction)))

		events, err := m.Events(ctx, "g")
		require.NoError(t, err)
		require.Len(t, events, 2)
		require.Equal(t, int64(1), events[0].SnapshotID)
		require.Equal(t, game.MustParseCards("5H"), events[0].Cards)
		require.Equal(t, int64(2), events[1].SnapshotID)
	})

	t.Run("duplicate keys are rejected", func(t *testing.T) {
		m := NewMemory()
		require.NoError(t, m.AppendEvent(ctx, event("g", 1, game.GoAction)))
		require.ErrorIs(t, m.AppendEvent(ctx, event("g", 1, game.GoAction)), ErrAlreadyExists)

		state := &game.GameState{GameID: "g", SnapshotID: 1}
		require.NoError(t, m.AppendSnapshot(ctx, Snapshot{GameID: "g", SnapshotID: 1, State: state}))
		require.ErrorIs(t, m.AppendSnapshot(ctx, Snapshot{GameID: "g", SnapshotID: 1, State: state}), ErrAlreadyExists)

		require.NoError(t, m.FinalizeGame(ctx, GameRecord{GameID: "g", Winner: "a"}))
		require.ErrorIs(t, m.FinalizeGame(ctx, GameRecord{GameID: "g", Winner: "b"}), ErrAlreadyExists)
	})

	t.Run("latest snapshot wins", func(t *testing.T) {
		m := NewMemory()
		_, err := m.LatestSnapshot(ctx, "g")
		require.ErrorIs(t, err, ErrNotFound)

		require.NoError(t, m.AppendSnapshot(ctx, Snapshot{GameID: "g", SnapshotID: 7, State: &game.GameState{SnapshotID: 7}}))
		require.NoError(t, m.AppendSnapshot(ctx, Snapshot{GameID: "g", SnapshotID: 3, State: &game.GameState{SnapshotID: 3}}))

		snap, err := m.LatestSnapshot(ctx, "g")
		require.NoError(t, err)
		require.Equal(t, int64(7), snap.SnapshotID)
		require.Equal(t, int64(7), snap.State.SnapshotID)
	})

	t.Run("stored records are isolated from callers", func(t *testing.T) {
		m := NewMemory()
		scores := map[string]int{"a": 121, "b": 90}
		require.NoError(t, m.FinalizeGame(ctx, GameRecord{GameID: "g", Winner: "a", FinalScores: scores}))
		scores["a"] = 0

		record, err := m.Game(ctx, "g")
		require.NoError(t, err)
		require.Equal(t, 121, record.FinalScores["a"])

		_, err = m.Game(ctx, "missing")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("cancelled context", func(t *testing.T) {
		m := NewMemory()
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		require.ErrorIs(t, m.AppendEvent(cancelled, event("g", 1, game.GoAction)), context.Canceled)
	})
}

func TestRecorder(t *testing.T) {
	t.Run("records a full game", func(t *testing.T) {
		m := NewMemory()
		rec := NewRecorder(m)
		g, err := game.NewGame("rec", []game.PlayerInfo{{ID: "a"}, {ID: "b"}}, game.WithObserver(rec.Observe))
		require.NoError(t, err)

		e := engine.New(g, map[string]engine.Agent{"a": agent.NewRandom(3), "b": agent.NewGreedy()})
		result, err := e.Run(context.Background())
		require.NoError(t, err)
		require.Equal(t, engine.RoundGameOver, result.Status)

		ctx := context.Background()
		events, err := m.Events(ctx, "rec")
		require.NoError(t, err)
		require.Equal(t, g.Events(), events)

		snap, err := m.LatestSnapshot(ctx, "rec")
		require.NoError(t, err)
		require.Equal(t, g.State(), snap.State, "The WIN snapshot is the final state")

		record, err := m.Game(ctx, "rec")
		require.NoError(t, err)
		state := g.State()
		require.Equal(t, state.Winner, record.Winner)
		require.Equal(t, state.RoundNumber, record.Rounds)
		require.GreaterOrEqual(t, record.FinalScores[state.Winner], state.TargetScore)
	})

	t.Run("storage errors do not reach the game", func(t *testing.T) {
		m := NewMemory()
		rec := NewRecorder(m)
		require.NoError(t, m.AppendEvent(context.Background(), game.GameEvent{GameID: "dup", SnapshotID: 1}))

		g, err := game.NewGame("dup", []game.PlayerInfo{{ID: "a"}, {ID: "b"}}, game.WithDealer("a"), game.WithObserver(rec.Observe))
		require.NoError(t, err)
		require.NoError(t, g.Deal("a"))

		events, err := m.Events(context.Background(), "dup")
		require.NoError(t, err)
		require.Len(t, events, len(g.Events()))
	})
}
