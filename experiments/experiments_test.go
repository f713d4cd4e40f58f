package experiments

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"cribbage/config"
	"cribbage/experiments/metrics"
	"cribbage/store/sqlite"

	"github.com/stretchr/testify/require"
)

func tournament(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	return config.Config{
		Name:        "test",
		Players:     3,
		Games:       2,
		TargetScore: 61,
		Seed:        7,
		Bots:        []string{config.GreedyBot, config.RandomBot},
		MaxAttempts: 3,
		LogLevel:    "info",
		LogFormat:   "json",
		OutputDir:   filepath.Join(dir, "results"),
		SQLitePath:  filepath.Join(dir, "games.db"),
	}
}

func TestRunTournament(t *testing.T) {
	t.Run("writes records", func(t *testing.T) {
		cfg := tournament(t)
		summary, err := RunTournament(context.Background(), cfg)
		require.NoError(t, err)

		require.Len(t, summary.Games, 2)
		require.Len(t, summary.Decisions, 2)
		require.Equal(t, []string{config.GreedyBot, config.RandomBot, config.GreedyBot},
			[]string{summary.Agents[0].Kind, summary.Agents[1].Kind, summary.Agents[2].Kind})

		wins := 0
		for _, n := range summary.Wins {
			wins += n
		}
		require.Equal(t, 2, wins)

		for _, g := range summary.Games {
			require.NotEmpty(t, g.Winner)
			require.GreaterOrEqual(t, g.FinalScores[g.Winner], 61)
			require.Equal(t, []int{1, 2, 3}, g.Agents)
			require.NotEmpty(t, g.Dealer)
		}
		for _, d := range summary.Decisions {
			require.Positive(t, d.Decisions)
		}

		for _, name := range []string{"agent_configs.csv", "game_records.csv", "decision_records.csv"} {
			_, err := os.Stat(filepath.Join(summary.Dir, name))
			require.NoError(t, err, name)
		}

		db, err := sqlite.Open(cfg.SQLitePath)
		require.NoError(t, err)
		defer db.Close()
		for _, g := range summary.Games {
			record, err := db.Game(context.Background(), g.GameID)
			require.NoError(t, err)
			require.Equal(t, g.Winner, record.Winner)
			require.Equal(t, g.Rounds, record.Rounds)
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		cfg := tournament(t)
		cfg.SQLitePath = ""
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		summary, err := RunTournament(ctx, cfg)
		require.NoError(t, err)
		require.Empty(t, summary.Games)
	})
}

func TestMeasureThroughput(t *testing.T) {
	games := []metrics.GameRecord{
		{GameMetric: metrics.GameMetric{Duration: time.Second}},
		{GameMetric: metrics.GameMetric{Duration: time.Second}},
	}
	decisions := []metrics.DecisionRecord{
		{DecisionMetric: metrics.DecisionMetric{Decisions: 10, Rejections: 1, TotalLatency: 20 * time.Millisecond}},
		{DecisionMetric: metrics.DecisionMetric{Decisions: 30, TotalLatency: 60 * time.Millisecond}},
	}

	got := MeasureThroughput(games, decisions)
	require.Equal(t, 40, got.Decisions)
	require.Equal(t, 1, got.Rejections)
	require.Equal(t, 2*time.Millisecond, got.AverageLatency)
	require.InDelta(t, 1.0, got.GamesPerSecond(), 1e-9)
	require.InDelta(t, 20.0, got.DecisionsPerSecond(), 1e-9)
	require.Zero(t, Throughput{}.GamesPerSecond())
}
