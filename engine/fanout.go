package engine

import (
	"context"
	"time"

	"cribbage/game"

	"golang.org/x/sync/errgroup"
)

type reply struct {
	req     game.DecisionRequest
	resp    game.DecisionResponse
	err     error
	latency time.Duration
}

// fanOut asks every listed player at once and applies the answers one at a
// time, in the order they arrive. A rejected answer sends a fresh snapshot
// back to the same worker.
func (e *Engine) fanOut(
	ctx context.Context,
	players []string,
	data func(playerID string) game.RequestData,
	apply func(game.DecisionResponse) error,
) error {
	agents := make(map[string]Agent, len(players))
	for _, id := range players {
		a, err := e.agent(id)
		if err != nil {
			return err
		}
		agents[id] = a
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	grp, gctx := errgroup.WithContext(ctx)

	results := make(chan reply)
	prompts := make(map[string]chan game.GameSnapshot, len(players))
	requests := make(map[string]game.DecisionRequest, len(players))
	for _, id := range players {
		requests[id] = e.issue(id, data(id))
		prompts[id] = make(chan game.GameSnapshot, 1)
	}
	defer func() {
		for _, req := range requests {
			e.resolve(req.RequestID)
		}
	}()

	for _, id := range players {
		agent, req, prompt := agents[id], requests[id], prompts[id]
		prompt <- e.snapshotFor(id)
		grp.Go(func() error {
			for snap := range prompt {
				start := time.Now()
				resp, err := e.ask(gctx, agent, snap, req)
				select {
				case results <- reply{req: req, resp: resp, err: err, latency: time.Since(start)}:
				case <-gctx.Done():
					return nil
				}
			}
			return nil
		})
	}

	attempts := make(map[string]int, len(players))
	var failure error
	for len(prompts) > 0 && failure == nil {
		var r reply
		select {
		case r = <-results:
		case <-ctx.Done():
			failure = errCancelled
			continue
		}

		id := r.req.PlayerID
		attempts[id]++
		e.metrics.AddDecision(r.req.DecisionType, r.latency)
		switch {
		case e.stopped(ctx):
			failure = errCancelled
		case r.err != nil:
			failure = &AgentError{PlayerID: id, Decision: r.req.DecisionType, Err: r.err}
		default:
			err := e.accept(r.req, r.resp, apply)
			if err == nil {
				close(prompts[id])
				delete(prompts, id)
				continue
			}
			if failure = e.retry(r.req, attempts[id], err); failure == nil {
				prompts[id] <- e.snapshotFor(id)
			}
		}
	}

	cancel()
	for _, prompt := range prompts {
		close(prompt)
	}
	_ = grp.Wait()
	return failure
}
