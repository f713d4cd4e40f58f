package agent

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"

	"cribbage/game"
)

// Random picks uniformly among legal choices.
type Random struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewRandom(seed uint64) *Random {
	return &Random{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (r *Random) MakeMove(_ context.Context, snap game.GameSnapshot, playerID string) (*game.Card, error) {
	p, err := self(snap, playerID)
	if err != nil {
		return nil, err
	}
	legal := legalPlays(p.PeggingHand, snap.State.PeggingTotal)
	if len(legal) == 0 {
		return nil, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	card := legal[r.rng.IntN(len(legal))]
	return &card, nil
}

func (r *Random) Discard(_ context.Context, snap game.GameSnapshot, playerID string, n int) ([]game.Card, error) {
	p, err := self(snap, playerID)
	if err != nil {
		return nil, err
	}
	if n > len(p.Hand) {
		return nil, fmt.Errorf("cannot discard %d from %d cards", n, len(p.Hand))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	picks := r.rng.Perm(len(p.Hand))[:n]
	cards := make([]game.Card, n)
	for i, idx := range picks {
		cards[i] = p.Hand[idx]
	}
	return cards, nil
}

func (r *Random) CutDeck(_ context.Context, _ game.GameSnapshot, _ string, maxIndex int) (int, error) {
	return r.index(maxIndex), nil
}

func (r *Random) SelectDealerCard(_ context.Context, _ game.GameSnapshot, _ string, maxIndex int) (int, error) {
	return r.index(maxIndex), nil
}

func (r *Random) Deal(context.Context, game.GameSnapshot, string) error {
	return nil
}

func (r *Random) Acknowledge(context.Context, game.GameSnapshot, string, game.DecisionType) error {
	return nil
}

func (r *Random) index(maxIndex int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.IntN(maxIndex + 1)
}

func self(snap game.GameSnapshot, playerID string) (*game.Player, error) {
	if snap.State == nil {
		return nil, fmt.Errorf("snapshot without state")
	}
	p := snap.State.Player(playerID)
	if p == nil {
		return nil, fmt.Errorf("%w: %q", game.ErrUnknownPlayer, playerID)
	}
	return p, nil
}

func legalPlays(hand []game.Card, total int) []game.Card {
	var legal []game.Card
	for _, c := range hand {
		if game.CanPlay(c, total) {
			legal = append(legal, c)
		}
	}
	return legal
}
