package engine

import (
	"context"
	"fmt"

	"cribbage/game"

	"github.com/google/uuid"
	"golang.org/x/exp/slices"
)

// issue records a new pending request for the player.
func (e *Engine) issue(playerID string, data game.RequestData) game.DecisionRequest {
	req := game.DecisionRequest{
		RequestID:    uuid.NewString(),
		PlayerID:     playerID,
		DecisionType: data.Decision(),
		Data:         data,
		Required:     true,
		Timestamp:    e.now().UTC(),
	}
	e.track(req)
	return req
}

func (e *Engine) track(req game.DecisionRequest) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if slices.IndexFunc(e.pending, func(r game.DecisionRequest) bool { return r.RequestID == req.RequestID }) < 0 {
		e.pending = append(e.pending, req)
	}
}

func (e *Engine) resolve(requestID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pending = slices.DeleteFunc(e.pending, func(r game.DecisionRequest) bool { return r.RequestID == requestID })
}

// Pending returns the requests currently awaiting a response.
func (e *Engine) Pending() []game.DecisionRequest {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.pending)
}

// snapshotFor builds the latest snapshot as the player may see it.
func (e *Engine) snapshotFor(playerID string) game.GameSnapshot {
	snap := e.game.Latest()
	snap.PendingRequests = e.Pending()
	return snap.Redact(playerID)
}

// ask turns a request into a response, through Respond when the agent
// supports it and through the matching capability otherwise.
func (e *Engine) ask(ctx context.Context, agent Agent, snap game.GameSnapshot, req game.DecisionRequest) (game.DecisionResponse, error) {
	if r, ok := agent.(Responder); ok {
		return r.Respond(ctx, snap, req)
	}

	resp := game.DecisionResponse{
		RequestID:    req.RequestID,
		PlayerID:     req.PlayerID,
		DecisionType: req.DecisionType,
	}
	var err error
	switch data := req.Data.(type) {
	case game.PlayCardData:
		resp.Card, err = agent.MakeMove(ctx, snap, req.PlayerID)
	case game.DiscardData:
		resp.Cards, err = agent.Discard(ctx, snap, req.PlayerID, data.Count)
	case game.CutDeckData:
		if cutter, ok := agent.(DeckCutter); ok {
			resp.Index, err = cutter.CutDeck(ctx, snap, req.PlayerID, data.MaxIndex)
		} else {
			resp.Index = e.randomIndex(data.MaxIndex)
		}
	case game.SelectDealerCardData:
		if selector, ok := agent.(DealerCardSelector); ok {
			resp.Index, err = selector.SelectDealerCard(ctx, snap, req.PlayerID, data.MaxIndex)
		} else {
			resp.Index = e.randomIndex(data.MaxIndex)
		}
	case game.DealData:
		if dealer, ok := agent.(Dealer); ok {
			err = dealer.Deal(ctx, snap, req.PlayerID)
		}
	case game.AcknowledgeData:
		if ack, ok := agent.(Acknowledger); ok {
			err = ack.Acknowledge(ctx, snap, req.PlayerID, req.DecisionType)
		}
	default:
		err = fmt.Errorf("unsupported request data %T", req.Data)
	}
	return resp, err
}

func (e *Engine) randomIndex(maxIndex int) int {
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	return e.rng.IntN(maxIndex + 1)
}
