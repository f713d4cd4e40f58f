package engine

import (
	"context"
	"errors"
	"fmt"

	"cribbage/game"
)

// Agent supplies decisions for one seat. Every agent can play and discard;
// the remaining decisions are optional capabilities detected at call time.
type Agent interface {
	// MakeMove returns the card to peg, or nil to say go.
	MakeMove(ctx context.Context, snap game.GameSnapshot, playerID string) (*game.Card, error)
	Discard(ctx context.Context, snap game.GameSnapshot, playerID string, n int) ([]game.Card, error)
}

type Dealer interface {
	Deal(ctx context.Context, snap game.GameSnapshot, playerID string) error
}

type DeckCutter interface {
	CutDeck(ctx context.Context, snap game.GameSnapshot, playerID string, maxIndex int) (int, error)
}

type DealerCardSelector interface {
	SelectDealerCard(ctx context.Context, snap game.GameSnapshot, playerID string, maxIndex int) (int, error)
}

type Acknowledger interface {
	Acknowledge(ctx context.Context, snap game.GameSnapshot, playerID string, decision game.DecisionType) error
}

// Responder answers requests directly. Agents relaying decisions from
// outside the process implement it so responses can be matched against the
// request they claim to answer.
type Responder interface {
	Respond(ctx context.Context, snap game.GameSnapshot, req game.DecisionRequest) (game.DecisionResponse, error)
}

type RoundStatus string

const (
	RoundCompleted RoundStatus = "COMPLETED"
	RoundGameOver  RoundStatus = "GAME_OVER"
	RoundCancelled RoundStatus = "CANCELLED"
)

type RoundResult struct {
	Status RoundStatus
	Round  int
	Winner string
}

// MissingAgentError is returned when a decision is due from a seat with no agent.
type MissingAgentError struct {
	PlayerID string
}

func (e *MissingAgentError) Error() string {
	return fmt.Sprintf("no agent for player %q", e.PlayerID)
}

// AgentError wraps a failure returned by an agent call.
type AgentError struct {
	PlayerID string
	Decision game.DecisionType
	Err      error
}

func (e *AgentError) Error() string {
	return fmt.Sprintf("agent for %q failed on %s: %v", e.PlayerID, e.Decision, e.Err)
}

func (e *AgentError) Unwrap() error {
	return e.Err
}

var errCancelled = errors.New("cancelled")
