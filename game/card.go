package game

import (
	"fmt"
	"strings"
)

type Rank int

const (
	Ace Rank = iota + 1
	Two
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
)

type Suit int

const (
	Spades Suit = iota + 1
	Hearts
	Diamonds
	Clubs
)

var rankSymbols = map[Rank]string{
	Ace: "A", Two: "2", Three: "3", Four: "4", Five: "5", Six: "6", Seven: "7",
	Eight: "8", Nine: "9", Ten: "10", Jack: "J", Queen: "Q", King: "K",
}

var suitSymbols = map[Suit]string{
	Spades: "S", Hearts: "H", Diamonds: "D", Clubs: "C",
}

// Card is a playing card. The zero value is Unknown, a stand-in for a card
// hidden from the viewer.
type Card struct {
	Rank Rank
	Suit Suit
}

var Unknown = Card{}

func NewCard(rank Rank, suit Suit) Card {
	return Card{Rank: rank, Suit: suit}
}

func (c Card) IsUnknown() bool {
	return c == Unknown
}

func (c Card) Valid() bool {
	return c.Rank >= Ace && c.Rank <= King && c.Suit >= Spades && c.Suit <= Clubs
}

// PointValue is the value counted towards fifteens and the running pegging total.
func (c Card) PointValue() int {
	if c.Rank >= Ten {
		return 10
	}
	return int(c.Rank)
}

// RunValue orders cards for runs, Ace low.
func (c Card) RunValue() int {
	return int(c.Rank)
}

func (c Card) String() string {
	if !c.Valid() {
		return "??"
	}
	return rankSymbols[c.Rank] + suitSymbols[c.Suit]
}

// ParseCard reads the text form produced by String, e.g. "10H" or "AS".
func ParseCard(s string) (Card, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "??" {
		return Unknown, nil
	}
	if len(s) < 2 {
		return Card{}, fmt.Errorf("parse card %q: too short", s)
	}
	rankPart, suitPart := s[:len(s)-1], s[len(s)-1:]

	card := Card{}
	for r, sym := range rankSymbols {
		if sym == rankPart {
			card.Rank = r
		}
	}
	for st, sym := range suitSymbols {
		if sym == suitPart {
			card.Suit = st
		}
	}
	if !card.Valid() {
		return Card{}, fmt.Errorf("parse card %q: unknown rank or suit", s)
	}
	return card, nil
}

func (c Card) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Card) UnmarshalText(text []byte) error {
	card, err := ParseCard(string(text))
	if err != nil {
		return err
	}
	*c = card
	return nil
}

// MustParseCards is a helper for fixtures; it panics on malformed input.
func MustParseCards(cards ...string) []Card {
	out := make([]Card, 0, len(cards))
	for _, s := range cards {
		c, err := ParseCard(s)
		if err != nil {
			panic(err)
		}
		out = append(out, c)
	}
	return out
}
