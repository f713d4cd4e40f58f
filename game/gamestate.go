package game

import (
	"fmt"
	"maps"

	"golang.org/x/exp/slices"
)

type Phase string

const (
	DealerSelectionPhase Phase = "DEALER_SELECTION"
	DealingPhase         Phase = "DEALING"
	DiscardingPhase      Phase = "DISCARDING"
	CuttingPhase         Phase = "CUTTING"
	PeggingPhase         Phase = "PEGGING"
	CountingPhase        Phase = "COUNTING"
	EndPhase             Phase = "END"
)

// PegPositions mirrors the two pegs on a physical board. Display only.
type PegPositions struct {
	Current  int `json:"current"`
	Previous int `json:"previous"`
}

type Player struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Hand         []Card       `json:"hand"`
	PeggingHand  []Card       `json:"peggingHand"`
	PlayedCards  []Card       `json:"playedCards"`
	Score        int          `json:"score"`
	IsDealer     bool         `json:"isDealer"`
	PegPositions PegPositions `json:"pegPositions"`
}

// GameState is the authoritative state of one game. Players are listed in
// seating order, which is also turn order.
type GameState struct {
	GameID                string          `json:"gameId"`
	Players               []Player        `json:"players"`
	Deck                  []Card          `json:"deck"`
	Crib                  []Card          `json:"crib"`
	CribRevealed          bool            `json:"cribRevealed"`
	TurnCard              *Card           `json:"turnCard,omitempty"`
	CurrentPhase          Phase           `json:"currentPhase"`
	PeggingStack          []Card          `json:"peggingStack"`
	PeggingTotal          int             `json:"peggingTotal"`
	PeggingGoPlayers      []string        `json:"peggingGoPlayers"`
	PeggingLastCardPlayer string          `json:"peggingLastCardPlayer,omitempty"`
	PeggingTurn           string          `json:"peggingTurn,omitempty"`
	PlayedCards           []Card          `json:"playedCards"`
	CountedHands          int             `json:"countedHands"`
	ReadyPlayers          []string        `json:"readyPlayers"`
	DealerSelectionCards  map[string]Card `json:"dealerSelectionCards,omitempty"`
	DealerSelectionTied   []string        `json:"dealerSelectionTied,omitempty"`
	SnapshotID            int64           `json:"snapshotId"`
	RoundNumber           int             `json:"roundNumber"`
	TargetScore           int             `json:"targetScore"`
	Winner                string          `json:"winner,omitempty"`
}

func (gs *GameState) Copy() *GameState {
	players := make([]Player, len(gs.Players))
	for i, p := range gs.Players {
		players[i] = p
		players[i].Hand = slices.Clone(p.Hand)
		players[i].PeggingHand = slices.Clone(p.PeggingHand)
		players[i].PlayedCards = slices.Clone(p.PlayedCards)
	}

	var turnCard *Card
	if gs.TurnCard != nil {
		c := *gs.TurnCard
		turnCard = &c
	}

	var selection map[string]Card
	if gs.DealerSelectionCards != nil {
		selection = maps.Clone(gs.DealerSelectionCards)
	}

	cp := *gs
	cp.Players = players
	cp.Deck = slices.Clone(gs.Deck)
	cp.Crib = slices.Clone(gs.Crib)
	cp.TurnCard = turnCard
	cp.PeggingStack = slices.Clone(gs.PeggingStack)
	cp.PeggingGoPlayers = slices.Clone(gs.PeggingGoPlayers)
	cp.PlayedCards = slices.Clone(gs.PlayedCards)
	cp.ReadyPlayers = slices.Clone(gs.ReadyPlayers)
	cp.DealerSelectionCards = selection
	cp.DealerSelectionTied = slices.Clone(gs.DealerSelectionTied)
	return &cp
}

// PlayerIndex returns the seat of the player, or -1.
func (gs *GameState) PlayerIndex(id string) int {
	return slices.IndexFunc(gs.Players, func(p Player) bool { return p.ID == id })
}

// Player returns the player with the given id, or nil.
func (gs *GameState) Player(id string) *Player {
	i := gs.PlayerIndex(id)
	if i < 0 {
		return nil
	}
	return &gs.Players[i]
}

func (gs *GameState) PlayerIDs() []string {
	ids := make([]string, len(gs.Players))
	for i, p := range gs.Players {
		ids[i] = p.ID
	}
	return ids
}

// DealerIndex returns the dealer's seat, or -1 before a dealer is chosen.
func (gs *GameState) DealerIndex() int {
	return slices.IndexFunc(gs.Players, func(p Player) bool { return p.IsDealer })
}

func (gs *GameState) DealerID() string {
	if i := gs.DealerIndex(); i >= 0 {
		return gs.Players[i].ID
	}
	return ""
}

// CutterID is the player seated before the dealer, who cuts for the turn card.
func (gs *GameState) CutterID() string {
	d := gs.DealerIndex()
	if d < 0 {
		return ""
	}
	return gs.Players[gs.seat(d-1)].ID
}

// seat wraps an offset into a valid seat index.
func (gs *GameState) seat(i int) int {
	n := len(gs.Players)
	return ((i % n) + n) % n
}

// CountingOrder returns the player ids in the order their hands are counted:
// the seats after the dealer, then the dealer.
func (gs *GameState) CountingOrder() []string {
	d := gs.DealerIndex()
	order := make([]string, 0, len(gs.Players))
	for off := 1; off <= len(gs.Players); off++ {
		order = append(order, gs.Players[gs.seat(d+off)].ID)
	}
	return order
}

// CountingDone reports whether every hand and the crib have been counted.
func (gs *GameState) CountingDone() bool {
	return gs.CountedHands > len(gs.Players)
}

// handCounted reports whether the player's hand has been counted this round.
func (gs *GameState) handCounted(id string) bool {
	if gs.CountedHands == 0 || gs.DealerIndex() < 0 {
		return false
	}
	order := gs.CountingOrder()
	i := slices.Index(order, id)
	return i >= 0 && i < gs.CountedHands
}

// DiscardsPending lists the players that still owe cards to the crib.
func (gs *GameState) DiscardsPending() []string {
	if gs.CurrentPhase != DiscardingPhase {
		return nil
	}
	var pending []string
	for _, p := range gs.Players {
		if len(p.Hand) > HandSize {
			pending = append(pending, p.ID)
		}
	}
	return pending
}

// ReadyPending lists the players that have not acknowledged the end of the round.
func (gs *GameState) ReadyPending() []string {
	if gs.CurrentPhase != CountingPhase || !gs.CountingDone() {
		return nil
	}
	var pending []string
	for _, p := range gs.Players {
		if !slices.Contains(gs.ReadyPlayers, p.ID) {
			pending = append(pending, p.ID)
		}
	}
	return pending
}

func (gs *GameState) IsOver() bool {
	return gs.CurrentPhase == EndPhase
}

// CheckConservation verifies that deck, hands, crib, turn card and dealer
// selection cards partition the 52 card deck, and that pegging hands and
// played cards are drawn from their owner's hand.
func (gs *GameState) CheckConservation() error {
	seen := make(map[Card]string, DeckSize)
	mark := func(where string, cards ...Card) error {
		for _, c := range cards {
			if !c.Valid() {
				return fmt.Errorf("%w: invalid card %s in %s", ErrInvariant, c, where)
			}
			if prev, ok := seen[c]; ok {
				return fmt.Errorf("%w: %s in both %s and %s", ErrInvariant, c, prev, where)
			}
			seen[c] = where
		}
		return nil
	}

	if err := mark("deck", gs.Deck...); err != nil {
		return err
	}
	if err := mark("crib", gs.Crib...); err != nil {
		return err
	}
	if gs.TurnCard != nil {
		if err := mark("turn card", *gs.TurnCard); err != nil {
			return err
		}
	}
	for id, c := range gs.DealerSelectionCards {
		if err := mark("dealer selection of "+id, c); err != nil {
			return err
		}
	}

	var played []Card
	for _, p := range gs.Players {
		if err := mark("hand of "+p.ID, p.Hand...); err != nil {
			return err
		}
		for _, c := range append(slices.Clone(p.PeggingHand), p.PlayedCards...) {
			if !slices.Contains(p.Hand, c) {
				return fmt.Errorf("%w: %s pegging card %s not in hand", ErrInvariant, p.ID, c)
			}
		}
		if len(p.PeggingHand)+len(p.PlayedCards) > len(p.Hand) {
			return fmt.Errorf("%w: %s pegging cards exceed hand", ErrInvariant, p.ID)
		}
		played = append(played, p.PlayedCards...)
	}
	for _, c := range append(slices.Clone(gs.PeggingStack), gs.PlayedCards...) {
		if !slices.Contains(played, c) {
			return fmt.Errorf("%w: played card %s has no owner", ErrInvariant, c)
		}
	}

	if len(seen) != DeckSize {
		return fmt.Errorf("%w: %d of %d cards accounted for", ErrInvariant, len(seen), DeckSize)
	}
	return nil
}

// checkInvariants runs before every commit.
func (gs *GameState) checkInvariants() error {
	if err := gs.CheckConservation(); err != nil {
		return err
	}
	dealers := 0
	for _, p := range gs.Players {
		if p.IsDealer {
			dealers++
		}
		if p.Score < 0 {
			return fmt.Errorf("%w: negative score for %s", ErrInvariant, p.ID)
		}
	}
	if dealers > 1 || (dealers == 0 && gs.CurrentPhase != DealerSelectionPhase) {
		return fmt.Errorf("%w: %d dealers", ErrInvariant, dealers)
	}
	return nil
}
