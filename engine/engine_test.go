package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"cribbage/agent"
	"cribbage/experiments/metrics"
	"cribbage/game"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/require"
)

func newGame(t *testing.T, ids ...string) *game.Game {
	t.Helper()
	players := make([]game.PlayerInfo, len(ids))
	for i, id := range ids {
		players[i] = game.PlayerInfo{ID: id, Name: id}
	}
	g, err := game.NewGame("test", players, game.WithRand(rand.New(rand.NewPCG(3, 4))))
	require.NoError(t, err)
	return g
}

func randomAgents(ids ...string) map[string]Agent {
	agents := make(map[string]Agent, len(ids))
	for i, id := range ids {
		agents[id] = agent.NewRandom(uint64(i + 1))
	}
	return agents
}

// wrongCard plays a card it does not hold a fixed number of times before
// deferring to the wrapped agent.
type wrongCard struct {
	Agent
	mu    sync.Mutex
	wrong int
}

func (w *wrongCard) MakeMove(ctx context.Context, snap game.GameSnapshot, playerID string) (*game.Card, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.wrong > 0 {
		w.wrong--
		for _, c := range game.NewDeck() {
			if !containsCard(snap.State.Player(playerID).PeggingHand, c) {
				return &c, nil
			}
		}
	}
	return w.Agent.MakeMove(ctx, snap, playerID)
}

func containsCard(cards []game.Card, c game.Card) bool {
	for _, x := range cards {
		if x == c {
			return true
		}
	}
	return false
}

// blocking waits for the context on every discard.
type blocking struct {
	Agent
	started chan struct{}
	once    sync.Once
}

func (b *blocking) Discard(ctx context.Context, _ game.GameSnapshot, _ string, _ int) ([]game.Card, error) {
	b.once.Do(func() { close(b.started) })
	<-ctx.Done()
	return nil, ctx.Err()
}

// blockingPlay pegs only once the context is done. Seats share one gate so
// the test knows a play is outstanding.
type blockingPlay struct {
	Agent
	gate *gate
}

type gate struct {
	started chan struct{}
	once    sync.Once
}

func (b *blockingPlay) MakeMove(ctx context.Context, _ game.GameSnapshot, _ string) (*game.Card, error) {
	b.gate.once.Do(func() { close(b.gate.started) })
	<-ctx.Done()
	return nil, ctx.Err()
}

type failing struct {
	Agent
}

func (failing) Discard(context.Context, game.GameSnapshot, string, int) ([]game.Card, error) {
	return nil, errors.New("connection lost")
}

func TestRun(t *testing.T) {
	for _, ids := range [][]string{{"a", "b"}, {"a", "b", "c"}, {"a", "b", "c", "d"}} {
		g := newGame(t, ids...)
		collector := metrics.NewCollector()
		e := New(g, randomAgents(ids...), WithRand(rand.New(rand.NewPCG(5, 6))), WithMetrics(collector))

		var snaps []game.GameSnapshot
		e.OnSnapshot(func(s game.GameSnapshot) { snaps = append(snaps, s) })

		result, err := e.Run(context.Background())

		require.NoError(t, err)
		require.Equal(t, RoundGameOver, result.Status)
		require.NotEmpty(t, result.Winner)
		require.Equal(t, g.State().Winner, result.Winner)
		for i, s := range snaps {
			require.Equal(t, int64(i+1), s.Event.SnapshotID)
		}
		require.Equal(t, game.WinAction, snaps[len(snaps)-1].Event.ActionType)
		require.Empty(t, e.Pending(), "No request outlives the game")
		require.Positive(t, collector.Complete().ByType[game.PlayCardDecision])
	}
}

func TestRunRound(t *testing.T) {
	t.Run("stops when the deal rotates", func(t *testing.T) {
		g := newGame(t, "a", "b")
		e := New(g, randomAgents("a", "b"))

		result, err := e.RunRound(context.Background())

		require.NoError(t, err)
		state := g.State()
		if result.Status == RoundGameOver {
			t.Skip("game ended in the first round")
		}
		require.Equal(t, RoundCompleted, result.Status)
		require.Equal(t, 1, result.Round)
		require.Equal(t, game.DealingPhase, state.CurrentPhase)
		require.Equal(t, 1, state.RoundNumber)
	})

	t.Run("missing agent is fatal", func(t *testing.T) {
		g := newGame(t, "a", "b")
		e := New(g, randomAgents("a"))

		_, err := e.Run(context.Background())

		var missing *MissingAgentError
		require.ErrorAs(t, err, &missing)
		require.Equal(t, "b", missing.PlayerID)
	})

	t.Run("agent failures are fatal", func(t *testing.T) {
		g := newGame(t, "a", "b")
		agents := randomAgents("a", "b")
		agents["b"] = failing{Agent: agents["b"]}
		e := New(g, agents)

		_, err := e.Run(context.Background())

		var agentErr *AgentError
		require.ErrorAs(t, err, &agentErr)
		require.Equal(t, "b", agentErr.PlayerID)
		require.Equal(t, game.DiscardDecision, agentErr.Decision)
		require.Empty(t, e.Pending())
	})
}

func TestReprompt(t *testing.T) {
	t.Run("invalid plays go back to the same agent", func(t *testing.T) {
		g := newGame(t, "a", "b")
		agents := randomAgents("a", "b")
		agents["a"] = &wrongCard{Agent: agents["a"], wrong: 3}
		collector := metrics.NewCollector()
		e := New(g, agents, WithMetrics(collector))

		result, err := e.Run(context.Background())

		require.NoError(t, err)
		require.Equal(t, RoundGameOver, result.Status)
		require.Equal(t, 3, collector.Complete().Rejections)
	})

	t.Run("attempts can be bounded", func(t *testing.T) {
		g := newGame(t, "a", "b")
		agents := randomAgents("a", "b")
		agents["a"] = &wrongCard{Agent: agents["a"], wrong: 1000}
		agents["b"] = &wrongCard{Agent: agents["b"], wrong: 1000}
		e := New(g, agents, WithMaxAttempts(2))

		_, err := e.Run(context.Background())

		require.ErrorIs(t, err, game.ErrCardNotHeld)
	})
}

// cancelOnce runs e until started fires, cancels it and reports how many
// snapshots arrived after the cancel.
func cancelOnce(t *testing.T, e *Engine, started <-chan struct{}) (RoundResult, int) {
	t.Helper()
	var mu sync.Mutex
	var after int
	cancelled := false
	e.OnSnapshot(func(game.GameSnapshot) {
		mu.Lock()
		defer mu.Unlock()
		if cancelled {
			after++
		}
	})

	go func() {
		<-started
		mu.Lock()
		cancelled = true
		mu.Unlock()
		e.Cancel()
	}()

	done := make(chan struct{})
	var result RoundResult
	var err error
	go func() {
		result, err = e.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("engine did not stop after cancel")
	}
	require.NoError(t, err)
	mu.Lock()
	defer mu.Unlock()
	return result, after
}

func TestCancel(t *testing.T) {
	t.Run("during discards", func(t *testing.T) {
		g := newGame(t, "a", "b")
		agents := randomAgents("a", "b")
		blocker := &blocking{Agent: agents["b"], started: make(chan struct{})}
		agents["a"] = &blocking{Agent: agents["a"], started: make(chan struct{})}
		agents["b"] = blocker
		e := New(g, agents)

		result, after := cancelOnce(t, e, blocker.started)

		require.Equal(t, RoundCancelled, result.Status)
		require.Zero(t, after, "No events after cancellation")
		require.Equal(t, game.DiscardingPhase, g.State().CurrentPhase)
	})

	t.Run("during a play", func(t *testing.T) {
		g := newGame(t, "a", "b")
		agents := randomAgents("a", "b")
		shared := &gate{started: make(chan struct{})}
		agents["a"] = &blockingPlay{Agent: agents["a"], gate: shared}
		agents["b"] = &blockingPlay{Agent: agents["b"], gate: shared}
		e := New(g, agents)

		result, after := cancelOnce(t, e, shared.started)

		require.Equal(t, RoundCancelled, result.Status)
		require.Zero(t, after, "No events after cancellation")
		state := g.State()
		require.Equal(t, game.PeggingPhase, state.CurrentPhase)
		require.Empty(t, state.PeggingStack)
		require.Empty(t, e.Pending())
	})
}

func TestSnapshots(t *testing.T) {
	g := newGame(t, "a", "b")
	e := New(g, randomAgents("a", "b"))

	var raw []game.GameSnapshot
	var viewed []game.GameSnapshot
	e.OnSnapshot(func(s game.GameSnapshot) { raw = append(raw, s) })
	e.OnSnapshot(Redacted("a", func(s game.GameSnapshot) { viewed = append(viewed, s) }))

	_, err := e.RunRound(context.Background())
	require.NoError(t, err)
	require.Len(t, viewed, len(raw))

	t.Run("discards carry the other open request", func(t *testing.T) {
		for _, s := range raw {
			if s.Event.ActionType != game.DiscardAction {
				continue
			}
			if s.State.CurrentPhase == game.DiscardingPhase {
				require.Len(t, s.PendingRequests, 1)
				require.NotEqual(t, s.Event.PlayerID, s.PendingRequests[0].PlayerID)
				require.Equal(t, game.DiscardDecision, s.PendingRequests[0].DecisionType)
			}
			return
		}
		t.Fatal("no discard seen")
	})

	t.Run("redacted view never shows the opponent's pegging hand", func(t *testing.T) {
		for _, s := range viewed {
			for _, c := range s.State.Player("b").PeggingHand {
				require.True(t, c.IsUnknown())
			}
			for _, req := range s.PendingRequests {
				if req.PlayerID == "b" {
					require.Nil(t, req.Data)
				}
			}
		}
	})
}

func TestLogging(t *testing.T) {
	previous := log.Logger
	t.Cleanup(func() { log.Logger = previous })
	var buf bytes.Buffer
	log.Logger = zerolog.New(&buf)

	g := newGame(t, "a", "b")
	e := New(g, randomAgents("a", "b"))
	_, err := e.Run(context.Background())
	require.NoError(t, err)

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.NotEmpty(t, lines)
	for _, line := range lines {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(line, &entry))
		require.Equal(t, "test", entry["game"], "every engine line names its game: %s", line)
	}
	require.Contains(t, string(lines[0]), "starting with 2 players")
}
