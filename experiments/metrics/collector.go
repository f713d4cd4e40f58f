package metrics

import (
	"sync/atomic"
	"time"

	"cribbage/game"
)

var decisionTypes = []game.DecisionType{
	game.SelectDealerCardDecision,
	game.DealDecision,
	game.DiscardDecision,
	game.CutDeckDecision,
	game.PlayCardDecision,
	game.ReadyForNextRoundDecision,
}

type DecisionMetric struct {
	Duration     time.Duration
	Decisions    int
	Rejections   int
	TotalLatency time.Duration
	ByType       map[game.DecisionType]int
}

// AverageLatency is the mean time an agent took to answer.
func (m DecisionMetric) AverageLatency() time.Duration {
	if m.Decisions == 0 {
		return 0
	}
	return m.TotalLatency / time.Duration(m.Decisions)
}

type GameMetric struct {
	GameID      string
	Dealer      string // first dealer
	Winner      string
	Rounds      int
	Events      int
	FinalScores map[string]int
	StartTime   time.Time
	EndTime     time.Time
	Duration    time.Duration
}

// Collector counts agent decisions. Engines call it from several goroutines.
type Collector interface {
	Start()
	AddDecision(decision game.DecisionType, latency time.Duration)
	AddRejection(decision game.DecisionType)
	Complete() DecisionMetric
}

type collector struct {
	startTime  time.Time
	decisions  atomic.Int64
	rejections atomic.Int64
	latency    atomic.Int64
	byType     map[game.DecisionType]*atomic.Int64
}

func NewCollector() Collector {
	m := &collector{byType: make(map[game.DecisionType]*atomic.Int64, len(decisionTypes))}
	for _, d := range decisionTypes {
		m.byType[d] = &atomic.Int64{}
	}
	return m
}

func (m *collector) Start() {
	m.startTime = time.Now()
}

func (m *collector) AddDecision(decision game.DecisionType, latency time.Duration) {
	m.decisions.Add(1)
	m.latency.Add(int64(latency))
	if counter, ok := m.byType[decision]; ok {
		counter.Add(1)
	}
}

func (m *collector) AddRejection(decision game.DecisionType) {
	m.rejections.Add(1)
}

func (m *collector) Complete() DecisionMetric {
	byType := make(map[game.DecisionType]int, len(m.byType))
	for d, counter := range m.byType {
		byType[d] = int(counter.Load())
	}
	var duration time.Duration
	if !m.startTime.IsZero() {
		duration = time.Since(m.startTime)
	}
	return DecisionMetric{
		Duration:     duration,
		Decisions:    int(m.decisions.Load()),
		Rejections:   int(m.rejections.Load()),
		TotalLatency: time.Duration(m.latency.Load()),
		ByType:       byType,
	}
}

type dummyCollector struct{}

func NewDummyCollector() Collector {
	return &dummyCollector{}
}

func (m *dummyCollector) Start()                                       {}
func (m *dummyCollector) AddDecision(game.DecisionType, time.Duration) {}
func (m *dummyCollector) AddRejection(game.DecisionType)               {}
func (m *dummyCollector) Complete() DecisionMetric                     { return DecisionMetric{} }
