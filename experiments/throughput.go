package experiments

import (
	"time"

	"cribbage/experiments/metrics"

	"github.com/rs/zerolog/log"
)

// Throughput aggregates decision rates over a set of games.
type Throughput struct {
	Games          int
	Decisions      int
	Rejections     int
	Elapsed        time.Duration
	AverageLatency time.Duration
}

func (t Throughput) GamesPerSecond() float64 {
	if t.Elapsed <= 0 {
		return 0
	}
	return float64(t.Games) / t.Elapsed.Seconds()
}

func (t Throughput) DecisionsPerSecond() float64 {
	if t.Elapsed <= 0 {
		return 0
	}
	return float64(t.Decisions) / t.Elapsed.Seconds()
}

func MeasureThroughput(games []metrics.GameRecord, decisions []metrics.DecisionRecord) Throughput {
	t := Throughput{Games: len(games)}
	for _, g := range games {
		t.Elapsed += g.Duration
	}
	var latency time.Duration
	for _, d := range decisions {
		t.Decisions += d.Decisions
		t.Rejections += d.Rejections
		latency += d.TotalLatency
	}
	if t.Decisions > 0 {
		t.AverageLatency = latency / time.Duration(t.Decisions)
	}
	return t
}

func logThroughput(summary Summary) {
	t := MeasureThroughput(summary.Games, summary.Decisions)
	log.Info().
		Int("games", t.Games).
		Int("decisions", t.Decisions).
		Int("rejections", t.Rejections).
		Dur("average_latency", t.AverageLatency).
		Msgf("%.1f games/s, %.0f decisions/s", t.GamesPerSecond(), t.DecisionsPerSecond())
	for kind, wins := range summary.Wins {
		log.Info().Msgf("%s won %d of %d games", kind, wins, t.Games)
	}
}
