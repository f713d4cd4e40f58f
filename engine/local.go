package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"cribbage/experiments/metrics"
	"cribbage/game"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Option func(e *Engine)

func WithRand(rng *rand.Rand) Option {
	return func(e *Engine) {
		if rng != nil {
			e.rng = rng
		}
	}
}

func WithMetrics(collector metrics.Collector) Option {
	return func(e *Engine) {
		if collector != nil {
			e.metrics = collector
		}
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) {
		e.log = logger
	}
}

// WithMaxAttempts bounds how often one decision is re-prompted after invalid
// responses. Zero re-prompts until the agent gets it right.
func WithMaxAttempts(n int) Option {
	return func(e *Engine) {
		e.maxAttempts = max(n, 0)
	}
}

// Engine drives one game: it asks the agents for each decision the game needs
// and applies their answers to the state machine.
type Engine struct {
	game   *game.Game
	agents map[string]Agent

	rng         *rand.Rand
	rngMu       sync.Mutex
	metrics     metrics.Collector
	log         zerolog.Logger
	maxAttempts int
	now         func() time.Time

	mu        sync.Mutex
	pending   []game.DecisionRequest
	observers []game.Observer
	stop      context.CancelFunc

	cancelled atomic.Bool
}

func New(g *game.Game, agents map[string]Agent, options ...Option) *Engine {
	e := &Engine{
		game:    g,
		agents:  make(map[string]Agent, len(agents)),
		rng:     rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		metrics: metrics.NewDummyCollector(),
		log:     log.With().Str("game", g.ID()).Logger(),
		now:     time.Now,
	}
	for id, a := range agents {
		e.agents[id] = a
	}
	for _, option := range options {
		option(e)
	}
	g.Observe(e.forward)
	return e
}

func (e *Engine) Game() *game.Game {
	return e.game
}

// SetAgent seats or replaces the agent for a player. It takes effect from the
// next decision issued to that player.
func (e *Engine) SetAgent(playerID string, agent Agent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.agents[playerID] = agent
}

func (e *Engine) agent(playerID string) (Agent, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	a, ok := e.agents[playerID]
	if !ok || a == nil {
		return nil, &MissingAgentError{PlayerID: playerID}
	}
	return a, nil
}

// OnSnapshot subscribes to every snapshot, decorated with the open requests.
func (e *Engine) OnSnapshot(observer game.Observer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observers = append(e.observers, observer)
}

// Redacted wraps an observer so it only sees what viewerID may see.
func Redacted(viewerID string, observer game.Observer) game.Observer {
	return func(snap game.GameSnapshot) {
		observer(snap.Redact(viewerID))
	}
}

func (e *Engine) forward(snap game.GameSnapshot) {
	e.mu.Lock()
	snap.PendingRequests = append([]game.DecisionRequest(nil), e.pending...)
	observers := append([]game.Observer(nil), e.observers...)
	e.mu.Unlock()

	for _, observer := range observers {
		observer(snap)
	}
}

// Cancel stops the engine at the next agent call or phase boundary. Agents
// blocked on the context passed to them are released.
func (e *Engine) Cancel() {
	e.cancelled.Store(true)
	e.mu.Lock()
	stop := e.stop
	e.mu.Unlock()
	if stop != nil {
		stop()
	}
}

func (e *Engine) stopped(ctx context.Context) bool {
	return e.cancelled.Load() || ctx.Err() != nil
}

// Run plays rounds until the game ends or is cancelled.
func (e *Engine) Run(ctx context.Context) (RoundResult, error) {
	e.log.Info().Msgf("starting with %d players", len(e.game.State().Players))
	for {
		result, err := e.RunRound(ctx)
		if err != nil || result.Status != RoundCompleted {
			return result, err
		}
	}
}

// RunRound drives the game until the deal rotates, the game ends, or the
// engine is cancelled. A restored game resumes from whatever phase it is in.
func (e *Engine) RunRound(ctx context.Context) (RoundResult, error) {
	ctx, stop := context.WithCancel(ctx)
	defer stop()
	e.mu.Lock()
	e.stop = stop
	e.mu.Unlock()

	progressed := false
	for {
		state := e.game.State()
		result := RoundResult{Round: state.RoundNumber, Winner: state.Winner}

		if state.IsOver() {
			result.Status = RoundGameOver
			e.log.Info().Msgf("game over in round %d, winner: %s", state.RoundNumber, state.Winner)
			return result, nil
		}
		if e.stopped(ctx) {
			result.Status = RoundCancelled
			e.log.Info().Msgf("cancelled in round %d during %s", state.RoundNumber, state.CurrentPhase)
			return result, nil
		}

		var err error
		switch state.CurrentPhase {
		case game.DealerSelectionPhase:
			err = e.selectDealer(ctx, state)
		case game.DealingPhase:
			if progressed {
				result.Status = RoundCompleted
				e.log.Info().Msgf("round %d complete", state.RoundNumber)
				return result, nil
			}
			err = e.deal(ctx, state)
		case game.DiscardingPhase:
			progressed = true
			err = e.discard(ctx, state)
		case game.CuttingPhase:
			progressed = true
			err = e.cut(ctx, state)
		case game.PeggingPhase:
			progressed = true
			err = e.peg(ctx, state)
		case game.CountingPhase:
			progressed = true
			err = e.count(ctx, state)
		default:
			err = fmt.Errorf("unknown phase %q", state.CurrentPhase)
		}

		if errors.Is(err, errCancelled) {
			continue
		}
		if err != nil {
			e.log.Error().Err(err).Msgf("round %d failed during %s", state.RoundNumber, state.CurrentPhase)
			return result, err
		}
	}
}

func (e *Engine) selectDealer(ctx context.Context, state *game.GameState) error {
	for _, p := range state.Players {
		if _, drawn := state.DealerSelectionCards[p.ID]; drawn {
			continue
		}
		data := game.SelectDealerCardData{MaxIndex: len(state.Deck) - 1}
		return e.exclusive(ctx, p.ID, data, func(resp game.DecisionResponse) error {
			return e.game.SelectDealerCard(p.ID, resp.Index)
		})
	}
	return fmt.Errorf("%w: dealer selection with every card drawn", game.ErrInvariant)
}

func (e *Engine) deal(ctx context.Context, state *game.GameState) error {
	dealer := state.DealerID()
	return e.exclusive(ctx, dealer, game.DealData{Round: state.RoundNumber + 1}, func(game.DecisionResponse) error {
		return e.game.Deal(dealer)
	})
}

func (e *Engine) discard(ctx context.Context, state *game.GameState) error {
	count := e.game.Rules().DiscardCount(len(state.Players))
	return e.fanOut(ctx, state.DiscardsPending(),
		func(id string) game.RequestData {
			return game.DiscardData{Hand: state.Player(id).Hand, Count: count}
		},
		func(resp game.DecisionResponse) error {
			return e.game.Discard(resp.PlayerID, resp.Cards)
		})
}

func (e *Engine) cut(ctx context.Context, state *game.GameState) error {
	cutter := state.CutterID()
	return e.exclusive(ctx, cutter, game.CutDeckData{MaxIndex: len(state.Deck) - 1}, func(resp game.DecisionResponse) error {
		return e.game.CutDeck(cutter, resp.Index)
	})
}

func (e *Engine) peg(ctx context.Context, state *game.GameState) error {
	id := state.PeggingTurn
	data := game.PlayCardData{
		PeggingHand:  state.Player(id).PeggingHand,
		PeggingStack: state.PeggingStack,
		PeggingTotal: state.PeggingTotal,
	}
	return e.exclusive(ctx, id, data, func(resp game.DecisionResponse) error {
		if resp.Card == nil {
			return e.game.Go(id)
		}
		return e.game.PlayCard(id, *resp.Card)
	})
}

func (e *Engine) count(ctx context.Context, state *game.GameState) error {
	if !state.CountingDone() {
		return e.game.ScoreNextHand()
	}
	return e.fanOut(ctx, state.ReadyPending(),
		func(string) game.RequestData {
			return game.AcknowledgeData{Round: state.RoundNumber}
		},
		func(resp game.DecisionResponse) error {
			return e.game.ReadyForNextRound(resp.PlayerID)
		})
}

// exclusive issues a single request and re-prompts the same agent until it
// gives an answer the game accepts.
func (e *Engine) exclusive(ctx context.Context, playerID string, data game.RequestData, apply func(game.DecisionResponse) error) error {
	agent, err := e.agent(playerID)
	if err != nil {
		return err
	}
	req := e.issue(playerID, data)
	defer e.resolve(req.RequestID)

	for attempt := 1; ; attempt++ {
		start := time.Now()
		resp, err := e.ask(ctx, agent, e.snapshotFor(playerID), req)
		e.metrics.AddDecision(req.DecisionType, time.Since(start))
		if e.stopped(ctx) {
			return errCancelled
		}
		if err != nil {
			return &AgentError{PlayerID: playerID, Decision: req.DecisionType, Err: err}
		}

		if err = e.accept(req, resp, apply); err == nil {
			return nil
		}
		if err = e.retry(req, attempt, err); err != nil {
			return err
		}
	}
}

// accept applies a response once it is known to answer req.
func (e *Engine) accept(req game.DecisionRequest, resp game.DecisionResponse, apply func(game.DecisionResponse) error) error {
	if err := resp.Matches(req); err != nil {
		return err
	}
	e.resolve(req.RequestID)
	if err := apply(resp); err != nil {
		e.track(req)
		return err
	}
	return nil
}

// retry decides whether a failed response is worth another prompt.
func (e *Engine) retry(req game.DecisionRequest, attempt int, err error) error {
	if !game.IsRejection(err) {
		return fmt.Errorf("%s for %s: %w", req.DecisionType, req.PlayerID, err)
	}
	e.metrics.AddRejection(req.DecisionType)
	if e.maxAttempts > 0 && attempt >= e.maxAttempts {
		return fmt.Errorf("%s gave %d invalid %s responses: %w", req.PlayerID, attempt, req.DecisionType, err)
	}
	e.log.Warn().Err(err).Str("player", req.PlayerID).Msgf("rejected %s, asking again", req.DecisionType)
	return nil
}
