package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"cribbage/game"

	"golang.org/x/exp/slices"
)

var (
	ErrUnknownRequest  = errors.New("no open request with that id")
	ErrAlreadyAnswered = errors.New("request already answered")
)

// Prompt is one decision waiting on the remote player.
type Prompt struct {
	Snapshot game.GameSnapshot
	Request  game.DecisionRequest
}

// Remote relays decisions to a player outside the process. The engine's
// requests appear on Requests; answers come back through Submit.
type Remote struct {
	playerID string
	prompts  chan Prompt

	mu      sync.Mutex
	waiting map[string]chan game.DecisionResponse
}

func NewRemote(playerID string, buffer int) *Remote {
	return &Remote{
		playerID: playerID,
		prompts:  make(chan Prompt, buffer),
		waiting:  make(map[string]chan game.DecisionResponse),
	}
}

func (r *Remote) PlayerID() string {
	return r.playerID
}

func (r *Remote) Requests() <-chan Prompt {
	return r.prompts
}

// Submit answers an open request. Responses for requests that are not open,
// or that name another player, are refused.
func (r *Remote) Submit(resp game.DecisionResponse) error {
	if resp.PlayerID != r.playerID {
		return fmt.Errorf("%w: player %q, want %q", game.ErrResponseMismatch, resp.PlayerID, r.playerID)
	}
	r.mu.Lock()
	reply, ok := r.waiting[resp.RequestID]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownRequest, resp.RequestID)
	}
	select {
	case reply <- resp:
		return nil
	default:
		return ErrAlreadyAnswered
	}
}

func (r *Remote) Respond(ctx context.Context, snap game.GameSnapshot, req game.DecisionRequest) (game.DecisionResponse, error) {
	reply := make(chan game.DecisionResponse, 1)
	r.mu.Lock()
	r.waiting[req.RequestID] = reply
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		delete(r.waiting, req.RequestID)
		r.mu.Unlock()
	}()

	select {
	case r.prompts <- Prompt{Snapshot: snap, Request: req}:
	case <-ctx.Done():
		return game.DecisionResponse{}, ctx.Err()
	}
	select {
	case resp := <-reply:
		return resp, nil
	case <-ctx.Done():
		return game.DecisionResponse{}, ctx.Err()
	}
}

func (r *Remote) MakeMove(ctx context.Context, snap game.GameSnapshot, playerID string) (*game.Card, error) {
	resp, err := r.respondTo(ctx, snap, playerID, game.PlayCardDecision)
	return resp.Card, err
}

func (r *Remote) Discard(ctx context.Context, snap game.GameSnapshot, playerID string, _ int) ([]game.Card, error) {
	resp, err := r.respondTo(ctx, snap, playerID, game.DiscardDecision)
	return resp.Cards, err
}

// respondTo serves callers that only hold a snapshot by finding the
// player's open request in it.
func (r *Remote) respondTo(ctx context.Context, snap game.GameSnapshot, playerID string, decision game.DecisionType) (game.DecisionResponse, error) {
	i := slices.IndexFunc(snap.PendingRequests, func(req game.DecisionRequest) bool {
		return req.PlayerID == playerID && req.DecisionType == decision
	})
	if i < 0 {
		return game.DecisionResponse{}, fmt.Errorf("no open %s request for %q", decision, playerID)
	}
	return r.Respond(ctx, snap, snap.PendingRequests[i])
}
