package agent

import (
	"context"
	"fmt"

	"cribbage/game"

	"golang.org/x/exp/slices"
)

// Greedy keeps the four cards with the best average hand over every possible
// cut and pegs whatever scores most right now. It leaves cutting and dealer
// selection to the engine.
type Greedy struct{}

func NewGreedy() *Greedy {
	return &Greedy{}
}

func (g *Greedy) MakeMove(_ context.Context, snap game.GameSnapshot, playerID string) (*game.Card, error) {
	p, err := self(snap, playerID)
	if err != nil {
		return nil, err
	}
	legal := legalPlays(p.PeggingHand, snap.State.PeggingTotal)
	if len(legal) == 0 {
		return nil, nil
	}

	best, bestValue := legal[0], -1
	for _, c := range legal {
		if v := pegValue(snap.State.PeggingStack, c); v > bestValue {
			best, bestValue = c, v
		}
	}
	return &best, nil
}

// pegValue ranks a play by points scored, then by not leaving the next player
// an easy fifteen or thirty-one, then by shedding high cards.
func pegValue(stack []game.Card, c game.Card) int {
	next := append(slices.Clone(stack), c)
	value := game.ScorePegging(next).Total * 100
	switch total := game.StackTotal(next); total {
	case 5, 21:
	default:
		value += 20
	}
	return value + c.PointValue()
}

func (g *Greedy) Discard(_ context.Context, snap game.GameSnapshot, playerID string, n int) ([]game.Card, error) {
	p, err := self(snap, playerID)
	if err != nil {
		return nil, err
	}
	if n <= 0 || n >= len(p.Hand) {
		return nil, fmt.Errorf("cannot discard %d from %d cards", n, len(p.Hand))
	}

	var cuts []game.Card
	for _, c := range game.NewDeck() {
		if !slices.Contains(p.Hand, c) {
			cuts = append(cuts, c)
		}
	}

	var best []game.Card
	bestTotal := -1
	for _, discard := range combinations(p.Hand, n) {
		kept, err := game.RemoveCards(p.Hand, discard)
		if err != nil || len(kept) != game.HandSize {
			continue
		}
		total := 0
		for _, cut := range cuts {
			score, err := game.ScoreHand(kept, cut, false)
			if err != nil {
				return nil, err
			}
			total += score.Total
		}
		if total > bestTotal {
			best, bestTotal = discard, total
		}
	}
	if best == nil {
		return nil, fmt.Errorf("no discard of %d cards found", n)
	}
	return best, nil
}

// combinations lists every k card subset of cards in order.
func combinations(cards []game.Card, k int) [][]game.Card {
	var out [][]game.Card
	var walk func(start int, picked []game.Card)
	walk = func(start int, picked []game.Card) {
		if len(picked) == k {
			out = append(out, slices.Clone(picked))
			return
		}
		for i := start; i < len(cards); i++ {
			walk(i+1, append(picked, cards[i]))
		}
	}
	walk(0, nil)
	return out
}
