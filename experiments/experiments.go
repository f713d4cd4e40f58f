package experiments

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"cribbage/agent"
	"cribbage/config"
	"cribbage/engine"
	"cribbage/experiments/metrics"
	"cribbage/game"
	"cribbage/session"
	"cribbage/store"
	"cribbage/store/sqlite"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Summary is what a tournament produced.
type Summary struct {
	Dir       string
	Agents    []metrics.AgentConfig
	Games     []metrics.GameRecord
	Decisions []metrics.DecisionRecord
	Wins      map[string]int // by bot kind
}

// RunTournament plays cfg.Games bot games and writes the records as CSV under
// cfg.OutputDir. Events are also recorded to SQLite when a path is configured.
func RunTournament(ctx context.Context, cfg config.Config) (Summary, error) {
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	agents := make([]metrics.AgentConfig, cfg.Players)
	for seat := range agents {
		agents[seat] = metrics.AgentConfig{ID: seat + 1, Kind: cfg.Bot(seat), Seed: seed + uint64(seat)}
	}

	var recorder *store.Recorder
	if cfg.SQLitePath != "" {
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return Summary{}, fmt.Errorf("failed to open game store: %w", err)
		}
		defer db.Close()
		recorder = store.NewRecorder(db)
	}

	log.Info().Msgf("starting %s with %d games between %d players, seed %d", cfg.Name, cfg.Games, cfg.Players, seed)

	summary := Summary{Agents: agents, Wins: make(map[string]int)}
	for i := 0; i < cfg.Games; i++ {
		log.Info().Msgf("starting game %d of %d...", i+1, cfg.Games)

		gameMetric, decisionMetric, err := runGame(ctx, cfg, agents, seed+uint64(i)*uint64(len(agents)), recorder)
		if err != nil {
			return summary, fmt.Errorf("game %d: %w", i+1, err)
		}
		if ctx.Err() != nil {
			log.Warn().Msgf("%s cancelled after %d games", cfg.Name, i)
			break
		}
		summary.Games = append(summary.Games, metrics.GameRecord{
			ID:         i + 1,
			Agents:     agentIDs(agents),
			GameMetric: gameMetric,
		})
		summary.Decisions = append(summary.Decisions, metrics.DecisionRecord{Game: i + 1, DecisionMetric: decisionMetric})
		summary.Wins[kindOf(agents, gameMetric.Winner)]++

		log.Info().Msgf("completed game %d of %d with winner: %s after %d rounds", i+1, cfg.Games, gameMetric.Winner, gameMetric.Rounds)
	}

	log.Info().Msgf("completed %s", cfg.Name)

	writer, err := metrics.NewWriter(cfg.OutputDir, cfg.Name)
	if err != nil {
		return summary, fmt.Errorf("failed to create experiment writer: %w", err)
	}
	summary.Dir = writer.Dir()

	if err := writer.WriteAgentConfigs(agents); err != nil {
		return summary, fmt.Errorf("failed to store agent configs: %w", err)
	}
	log.Info().Msg("stored agent configs")

	if err := writer.WriteGameRecords(summary.Games); err != nil {
		return summary, fmt.Errorf("failed to write game records: %w", err)
	}
	log.Info().Msg("stored game records")

	if err := writer.WriteDecisionRecords(summary.Decisions); err != nil {
		return summary, fmt.Errorf("failed to write decision records: %w", err)
	}
	log.Info().Msg("stored decision records")

	logThroughput(summary)
	return summary, nil
}

// runGame plays one game to completion and returns its metrics.
func runGame(ctx context.Context, cfg config.Config, agents []metrics.AgentConfig, seed uint64, recorder *store.Recorder) (metrics.GameMetric, metrics.DecisionMetric, error) {
	roster := make([]game.PlayerInfo, len(agents))
	bots := make(map[string]engine.Agent, len(agents))
	for i, a := range agents {
		id := fmt.Sprintf("p%d", a.ID)
		roster[i] = game.PlayerInfo{ID: id, Name: fmt.Sprintf("%s %d", a.Kind, a.ID)}
		bots[id] = newBot(a.Kind, seed+uint64(i))
	}

	gameOptions := []game.Option{
		game.WithRules(&game.StandardRules{Target: cfg.TargetScore}),
		game.WithRand(rand.New(rand.NewPCG(seed, uint64(cfg.TargetScore)))),
	}
	if recorder != nil {
		gameOptions = append(gameOptions, game.WithObserver(recorder.Observe))
	}
	collector := metrics.NewCollector()
	s, err := session.New(uuid.NewString(), roster, bots,
		session.WithGame(gameOptions...),
		session.WithEngine(
			engine.WithMetrics(collector),
			engine.WithMaxAttempts(cfg.MaxAttempts),
			engine.WithRand(rand.New(rand.NewPCG(seed, 1))),
		),
	)
	if err != nil {
		return metrics.GameMetric{}, metrics.DecisionMetric{}, err
	}

	start := time.Now()
	collector.Start()
	if err := s.Start(ctx); err != nil {
		return metrics.GameMetric{}, metrics.DecisionMetric{}, err
	}
	result := s.Wait()
	end := time.Now()
	if result.Err != nil {
		return metrics.GameMetric{}, metrics.DecisionMetric{}, result.Err
	}

	state := s.Game().State()
	events := s.Game().Events()
	scores := make(map[string]int, len(state.Players))
	for _, p := range state.Players {
		scores[p.ID] = p.Score
	}
	gameMetric := metrics.GameMetric{
		GameID:      state.GameID,
		Dealer:      firstDealer(events),
		Winner:      result.Winner,
		Rounds:      state.RoundNumber,
		Events:      len(events),
		FinalScores: scores,
		StartTime:   start,
		EndTime:     end,
		Duration:    end.Sub(start),
	}
	return gameMetric, collector.Complete(), nil
}

func newBot(kind string, seed uint64) engine.Agent {
	if kind == config.GreedyBot {
		return agent.NewGreedy()
	}
	return agent.NewRandom(seed)
}

func firstDealer(events []game.GameEvent) string {
	for _, e := range events {
		if e.ActionType == game.DealerSelectedAction {
			return e.PlayerID
		}
	}
	return ""
}

func agentIDs(agents []metrics.AgentConfig) []int {
	ids := make([]int, len(agents))
	for i, a := range agents {
		ids[i] = a.ID
	}
	return ids
}

func kindOf(agents []metrics.AgentConfig, playerID string) string {
	for _, a := range agents {
		if fmt.Sprintf("p%d", a.ID) == playerID {
			return a.Kind
		}
	}
	return ""
}
