package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"cribbage/engine"
	"cribbage/game"

	"github.com/rs/zerolog/log"
)

type Status string

const (
	Created    Status = "CREATED"
	Starting   Status = "STARTING"
	InProgress Status = "IN_PROGRESS"
	Ended      Status = "ENDED"
	Cancelled  Status = "CANCELLED"
)

func (s Status) terminal() bool {
	return s == Ended || s == Cancelled
}

// EndReason tells collaborators why a session stopped.
type EndReason string

const (
	WinReason       EndReason = "WIN"
	CancelledReason EndReason = "CANCELLED"
	ErrorReason     EndReason = "ERROR"
)

var ErrInvalidTransition = errors.New("invalid session transition")

type Result struct {
	Status Status
	Winner string
	Reason EndReason
	Err    error
}

type Option func(s *Session)

// WithGame passes options to the game created for a new session.
func WithGame(options ...game.Option) Option {
	return func(s *Session) {
		s.gameOptions = append(s.gameOptions, options...)
	}
}

func WithEngine(options ...engine.Option) Option {
	return func(s *Session) {
		s.engineOptions = append(s.engineOptions, options...)
	}
}

// Session wraps one game with a lifecycle. Agents are live connections and
// are never serialized; restored sessions need them attached again.
type Session struct {
	id     string
	roster []game.PlayerInfo

	gameOptions   []game.Option
	engineOptions []engine.Option

	game   *game.Game
	engine *engine.Engine

	mu     sync.Mutex
	status Status
	result Result
	done   chan struct{}
	closed bool
}

func New(id string, roster []game.PlayerInfo, agents map[string]engine.Agent, options ...Option) (*Session, error) {
	s := &Session{id: id, roster: roster, status: Created, done: make(chan struct{})}
	for _, option := range options {
		option(s)
	}
	g, err := game.NewGame(id, roster, s.gameOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to create session %s: %w", id, err)
	}
	s.attach(g, agents)
	return s, nil
}

func (s *Session) attach(g *game.Game, agents map[string]engine.Agent) {
	s.game = g
	s.engine = engine.New(g, agents, s.engineOptions...)
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Game() *game.Game {
	return s.game
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// OnSnapshot subscribes to the engine's snapshot stream.
func (s *Session) OnSnapshot(observer game.Observer) {
	s.engine.OnSnapshot(observer)
}

// AttachAgent seats an agent for a player, replacing any previous one.
func (s *Session) AttachAgent(playerID string, agent engine.Agent) error {
	if s.game.State().Player(playerID) == nil {
		return fmt.Errorf("%w: %q", game.ErrUnknownPlayer, playerID)
	}
	s.engine.SetAgent(playerID, agent)
	return nil
}

// Start runs the game on its own goroutine. It is only valid once, from CREATED.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.status != Created {
		status := s.status
		s.mu.Unlock()
		return fmt.Errorf("%w: start from %s", ErrInvalidTransition, status)
	}
	s.status = Starting
	s.mu.Unlock()

	log.Info().Msgf("session %s starting with %d players", s.id, len(s.roster))
	return s.launch(ctx, Starting)
}

// Resume continues a restored session that was in progress when it was saved.
func (s *Session) Resume(ctx context.Context) error {
	s.mu.Lock()
	if s.status != InProgress || s.running() {
		status := s.status
		s.mu.Unlock()
		return fmt.Errorf("%w: resume from %s", ErrInvalidTransition, status)
	}
	s.mu.Unlock()

	log.Info().Msgf("session %s resuming at snapshot %d", s.id, s.game.State().SnapshotID)
	return s.launch(ctx, InProgress)
}

// running reports whether a run goroutine owns the session. Callers hold mu.
func (s *Session) running() bool {
	return s.result.Status == InProgress
}

func (s *Session) launch(ctx context.Context, from Status) error {
	s.mu.Lock()
	if s.status != from {
		// Cancelled between the check and here.
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrInvalidTransition, s.status)
	}
	s.status = InProgress
	s.result = Result{Status: InProgress}
	s.mu.Unlock()

	go s.run(ctx)
	return nil
}

func (s *Session) run(ctx context.Context) {
	round, err := s.engine.Run(ctx)

	result := Result{Status: Ended, Winner: round.Winner}
	switch {
	case err != nil:
		result.Reason = ErrorReason
		result.Err = err
	case round.Status == engine.RoundGameOver:
		result.Reason = WinReason
	default:
		result.Status = Cancelled
		result.Reason = CancelledReason
	}

	if result.Err != nil {
		log.Error().Err(result.Err).Msgf("session %s aborted", s.id)
	} else {
		log.Info().Msgf("session %s ended: %s %s", s.id, result.Reason, result.Winner)
	}
	s.finish(result)
}

func (s *Session) finish(result Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = result.Status
	s.result = result
	if !s.closed {
		s.closed = true
		close(s.done)
	}
}

// Cancel stops the session. A running game stops at its next suspension
// point; Wait reports the final result.
func (s *Session) Cancel() {
	s.mu.Lock()
	status, running := s.status, s.running()
	s.mu.Unlock()

	switch {
	case status.terminal():
	case running:
		s.engine.Cancel()
	default:
		s.finish(Result{Status: Cancelled, Reason: CancelledReason})
	}
}

func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the session is over.
func (s *Session) Wait() Result {
	<-s.done
	return s.Result()
}

func (s *Session) Result() Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.result
	if !s.status.terminal() {
		r = Result{Status: s.status}
	}
	return r
}

// Record is the serialized form of a session.
type Record struct {
	ID          string            `json:"id"`
	Roster      []game.PlayerInfo `json:"roster"`
	Status      Status            `json:"status"`
	Winner      string            `json:"winner,omitempty"`
	EndReason   EndReason         `json:"endReason,omitempty"`
	Error       string            `json:"error,omitempty"`
	TargetScore int               `json:"targetScore"`
	State       *game.GameState   `json:"state"`
}

func (s *Session) Record() Record {
	state := s.game.State()
	result := s.Result()
	rec := Record{
		ID:          s.id,
		Roster:      s.roster,
		Status:      result.Status,
		Winner:      result.Winner,
		EndReason:   result.Reason,
		TargetScore: state.TargetScore,
		State:       state,
	}
	if result.Err != nil {
		rec.Error = result.Err.Error()
	}
	if rec.Winner == "" {
		rec.Winner = state.Winner
	}
	return rec
}

func (s *Session) Marshal() ([]byte, error) {
	return json.Marshal(s.Record())
}

// Unmarshal restores a session without agents. A session saved mid-game
// comes back IN_PROGRESS and continues with Resume once agents are attached.
func Unmarshal(data []byte, options ...Option) (*Session, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	if rec.State == nil {
		return nil, errors.New("failed to decode session: no game state")
	}

	s := &Session{id: rec.ID, roster: rec.Roster, status: rec.Status, done: make(chan struct{})}
	for _, option := range options {
		option(s)
	}
	gameOptions := append([]game.Option{game.WithRules(&game.StandardRules{Target: rec.TargetScore})}, s.gameOptions...)
	g, err := game.Restore(rec.State, gameOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to restore session %s: %w", rec.ID, err)
	}
	s.attach(g, nil)

	switch rec.Status {
	case Starting:
		s.status = InProgress
	case Ended, Cancelled:
		result := Result{Status: rec.Status, Winner: rec.Winner, Reason: rec.EndReason}
		if rec.Error != "" {
			result.Err = errors.New(rec.Error)
		}
		s.finish(result)
	}
	return s, nil
}
