package game

import (
	"fmt"
	"math/rand/v2"
)

const DeckSize = 52

// NewDeck returns the ordered 52-card deck.
func NewDeck() []Card {
	deck := make([]Card, 0, DeckSize)
	for s := Spades; s <= Clubs; s++ {
		for r := Ace; r <= King; r++ {
			deck = append(deck, Card{Rank: r, Suit: s})
		}
	}
	return deck
}

// Shuffle shuffles the deck in place.
func Shuffle(deck []Card, rng *rand.Rand) {
	rng.Shuffle(len(deck), func(i, j int) {
		deck[i], deck[j] = deck[j], deck[i]
	})
}

// DrawAt removes the card at index and returns it along with the remaining deck.
func DrawAt(deck []Card, index int) (Card, []Card, error) {
	if index < 0 || index >= len(deck) {
		return Card{}, deck, fmt.Errorf("%w: index %d outside [0, %d]", ErrInvalidIndex, index, len(deck)-1)
	}
	card := deck[index]
	rest := make([]Card, 0, len(deck)-1)
	rest = append(rest, deck[:index]...)
	rest = append(rest, deck[index+1:]...)
	return card, rest, nil
}

// RemoveCards removes the given cards from a hand, failing if any is missing.
func RemoveCards(hand []Card, toRemove []Card) ([]Card, error) {
	removeCounts := make(map[Card]int, len(toRemove))
	for _, card := range toRemove {
		removeCounts[card]++
	}

	updated := make([]Card, 0, len(hand))
	for _, card := range hand {
		if count := removeCounts[card]; count > 0 {
			removeCounts[card] = count - 1
			continue
		}
		updated = append(updated, card)
	}

	for card, count := range removeCounts {
		if count > 0 {
			return hand, fmt.Errorf("%w: %s", ErrCardNotHeld, card)
		}
	}
	return updated, nil
}
