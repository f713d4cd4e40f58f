package game

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/exp/slices"
)

type PlayerInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Option func(g *Game)

func WithRules(rules Rules) Option {
	return func(g *Game) {
		if rules != nil {
			g.rules = rules
		}
	}
}

func WithRand(rng *rand.Rand) Option {
	return func(g *Game) {
		if rng != nil {
			g.rng = rng
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(g *Game) {
		if now != nil {
			g.now = now
		}
	}
}

// WithDealer skips dealer selection and seats the given player as first dealer.
func WithDealer(playerID string) Option {
	return func(g *Game) {
		g.dealer = playerID
	}
}

func WithObserver(observer Observer) Option {
	return func(g *Game) {
		if observer != nil {
			g.observers = append(g.observers, observer)
		}
	}
}

// Game is the authoritative cribbage state machine. Every operation either
// applies completely, appending its events and notifying observers, or fails
// and leaves the state untouched.
type Game struct {
	mu        sync.RWMutex
	state     *GameState
	events    []GameEvent
	observers []Observer

	rules  Rules
	rng    *rand.Rand
	now    func() time.Time
	dealer string
}

// NewGame seats the players in the given order.
func NewGame(id string, players []PlayerInfo, options ...Option) (*Game, error) {
	if len(players) < MinPlayers || len(players) > MaxPlayers {
		return nil, fmt.Errorf("%w: got %d", ErrPlayerCount, len(players))
	}
	seen := make(map[string]bool, len(players))
	for _, p := range players {
		if p.ID == "" || seen[p.ID] {
			return nil, fmt.Errorf("player ids must be unique and non-empty: %q", p.ID)
		}
		seen[p.ID] = true
	}

	g := newGame(options...)
	state := &GameState{
		GameID:       id,
		Players:      make([]Player, len(players)),
		Deck:         NewDeck(),
		CurrentPhase: DealerSelectionPhase,
		TargetScore:  g.rules.TargetScore(),
	}
	for i, p := range players {
		state.Players[i] = Player{ID: p.ID, Name: p.Name}
	}
	Shuffle(state.Deck, g.rng)

	if g.dealer != "" {
		dealer := state.Player(g.dealer)
		if dealer == nil {
			return nil, fmt.Errorf("%w: dealer %q", ErrUnknownPlayer, g.dealer)
		}
		dealer.IsDealer = true
		state.CurrentPhase = DealingPhase
	}

	g.state = state
	return g, nil
}

// Restore resumes a game from a previously captured state. Snapshot ids
// continue from the state's SnapshotID.
func Restore(state *GameState, options ...Option) (*Game, error) {
	if state == nil {
		return nil, errors.New("restore: nil state")
	}
	if err := state.checkInvariants(); err != nil {
		return nil, fmt.Errorf("restore: %w", err)
	}
	g := newGame(options...)
	g.state = state.Copy()
	return g, nil
}

func newGame(options ...Option) *Game {
	g := &Game{
		rules: NewStandardRules(),
		rng:   rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		now:   time.Now,
	}
	for _, option := range options {
		option(g)
	}
	return g
}

func (g *Game) ID() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state.GameID
}

func (g *Game) Rules() Rules {
	return g.rules
}

// Observe registers an observer for all subsequent snapshots.
func (g *Game) Observe(observer Observer) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.observers = append(g.observers, observer)
}

// State returns a deep copy of the authoritative state.
func (g *Game) State() *GameState {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state.Copy()
}

// Redact returns the state as the given viewer may see it.
func (g *Game) Redact(viewerID string) *GameState {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state.Redact(viewerID)
}

// Events returns the events appended since the game was created or restored.
func (g *Game) Events() []GameEvent {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]GameEvent, len(g.events))
	for i, e := range g.events {
		out[i] = e.clone()
	}
	return out
}

// Latest returns the current state with the most recent event.
func (g *Game) Latest() GameSnapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()
	snap := GameSnapshot{State: g.state.Copy()}
	if n := len(g.events); n > 0 {
		snap.Event = g.events[n-1].clone()
	}
	return snap
}

// SelectDealerCard draws the card at index for the player during dealer
// selection. Once everyone has drawn the lowest card deals; players tied for
// lowest return their cards, the deck is reshuffled and only they draw again.
func (g *Game) SelectDealerCard(playerID string, index int) error {
	return g.apply(func(t *tx) error {
		s := t.s
		if err := t.requirePhase(DealerSelectionPhase); err != nil {
			return err
		}
		if s.Player(playerID) == nil {
			return fmt.Errorf("%w: %q", ErrUnknownPlayer, playerID)
		}
		if _, ok := s.DealerSelectionCards[playerID]; ok {
			return ErrAlreadyDrew
		}
		card, deck, err := DrawAt(s.Deck, index)
		if err != nil {
			return err
		}
		s.Deck = deck
		if s.DealerSelectionCards == nil {
			s.DealerSelectionCards = make(map[string]Card, len(s.Players))
		}
		s.DealerSelectionCards[playerID] = card
		t.emit(SelectDealerCardAction, playerID, []Card{card}, Score{})

		if len(s.DealerSelectionCards) < len(s.Players) {
			return nil
		}
		t.resolveDealer()
		return nil
	})
}

func (t *tx) resolveDealer() {
	s := t.s
	// After a tie only the tied players are still contending.
	contenders := s.DealerSelectionTied
	if len(contenders) == 0 {
		for _, p := range s.Players {
			contenders = append(contenders, p.ID)
		}
	}

	lowest := King + 1
	for _, id := range contenders {
		lowest = min(lowest, s.DealerSelectionCards[id].Rank)
	}

	var tied []string
	for _, id := range contenders {
		if s.DealerSelectionCards[id].Rank == lowest {
			tied = append(tied, id)
		}
	}

	if len(tied) > 1 {
		var returned []Card
		for _, id := range tied {
			returned = append(returned, s.DealerSelectionCards[id])
			delete(s.DealerSelectionCards, id)
		}
		s.DealerSelectionTied = tied
		s.Deck = append(s.Deck, returned...)
		Shuffle(s.Deck, t.g.rng)
		t.emit(DealerSelectionTieAction, "", returned, Score{})
		return
	}

	var drawn []Card
	for _, p := range s.Players {
		drawn = append(drawn, s.DealerSelectionCards[p.ID])
	}
	s.Deck = append(s.Deck, drawn...)
	s.DealerSelectionCards = nil
	s.DealerSelectionTied = nil
	s.Player(tied[0]).IsDealer = true
	s.CurrentPhase = DealingPhase
	t.emit(DealerSelectedAction, tied[0], drawn, Score{})
}

// Deal starts a round: the dealer shuffles a full deck and deals each player
// in turn starting left of the dealer. With three players one card goes
// straight from the deck to the crib.
func (g *Game) Deal(playerID string) error {
	return g.apply(func(t *tx) error {
		s := t.s
		if err := t.requirePhase(DealingPhase); err != nil {
			return err
		}
		if s.DealerID() != playerID {
			return fmt.Errorf("%w: %q", ErrNotDealer, playerID)
		}

		s.RoundNumber++
		t.emit(StartRoundAction, playerID, nil, Score{})

		s.Deck = NewDeck()
		Shuffle(s.Deck, t.g.rng)
		t.emit(ShuffleDeckAction, playerID, nil, Score{})

		n := len(s.Players)
		size := t.g.rules.DealSize(n)
		dealer := s.DealerIndex()
		for off := 1; off <= n; off++ {
			p := &s.Players[s.seat(dealer+off)]
			p.Hand = slices.Clone(s.Deck[:size])
			s.Deck = s.Deck[size:]
		}
		for off := 1; off <= n; off++ {
			p := s.Players[s.seat(dealer+off)]
			t.emit(DealAction, p.ID, slices.Clone(p.Hand), Score{})
		}

		for i := 0; i < t.g.rules.AutoCribCards(n); i++ {
			card := s.Deck[0]
			s.Deck = s.Deck[1:]
			s.Crib = append(s.Crib, card)
			t.emit(AutoCribCardAction, "", []Card{card}, Score{})
		}

		s.CurrentPhase = DiscardingPhase
		return nil
	})
}

// Discard moves the player's chosen cards to the crib. The round moves to
// cutting once the crib holds four cards.
func (g *Game) Discard(playerID string, cards []Card) error {
	return g.apply(func(t *tx) error {
		s := t.s
		if err := t.requirePhase(DiscardingPhase); err != nil {
			return err
		}
		p := s.Player(playerID)
		if p == nil {
			return fmt.Errorf("%w: %q", ErrUnknownPlayer, playerID)
		}
		if len(p.Hand) <= HandSize {
			return ErrAlreadyDiscarded
		}
		want := t.g.rules.DiscardCount(len(s.Players))
		if len(cards) != want {
			return fmt.Errorf("%w: got %d, want %d", ErrDiscardCount, len(cards), want)
		}
		if err := checkDistinct(cards); err != nil {
			return err
		}
		hand, err := RemoveCards(p.Hand, cards)
		if err != nil {
			return err
		}

		p.Hand = hand
		s.Crib = append(s.Crib, cards...)
		if len(s.Crib) == CribSize {
			s.CurrentPhase = CuttingPhase
		}
		t.emit(DiscardAction, playerID, slices.Clone(cards), Score{})
		return nil
	})
}

// CutDeck turns up the card at index. A Jack pays the dealer two for his heels.
func (g *Game) CutDeck(playerID string, index int) error {
	return g.apply(func(t *tx) error {
		s := t.s
		if err := t.requirePhase(CuttingPhase); err != nil {
			return err
		}
		if s.CutterID() != playerID {
			return fmt.Errorf("%w: %q", ErrNotCutter, playerID)
		}
		card, deck, err := DrawAt(s.Deck, index)
		if err != nil {
			return err
		}
		s.Deck = deck
		s.TurnCard = &card
		t.emit(CutDeckAction, playerID, []Card{card}, Score{})

		if heels := ScoreHeels(card); heels.Total > 0 {
			if !t.award(ScoreHeelsAction, s.DealerID(), []Card{card}, heels) {
				return nil
			}
		}
		t.beginPegging()
		return nil
	})
}

func (t *tx) beginPegging() {
	s := t.s
	for i := range s.Players {
		s.Players[i].PeggingHand = slices.Clone(s.Players[i].Hand)
		s.Players[i].PlayedCards = nil
	}
	s.PeggingStack = nil
	s.PeggingTotal = 0
	s.PeggingGoPlayers = nil
	s.PeggingLastCardPlayer = ""
	s.PlayedCards = nil
	s.PeggingTurn = s.Players[s.seat(s.DealerIndex()+1)].ID
	s.CurrentPhase = PeggingPhase
}

// PlayCard plays a card onto the pegging stack and pegs whatever it makes.
func (g *Game) PlayCard(playerID string, card Card) error {
	return g.apply(func(t *tx) error {
		s := t.s
		if err := t.requirePeggingTurn(playerID); err != nil {
			return err
		}
		p := s.Player(playerID)
		if !slices.Contains(p.PeggingHand, card) {
			return fmt.Errorf("%w: %s", ErrCardNotHeld, card)
		}
		if !CanPlay(card, s.PeggingTotal) {
			return fmt.Errorf("%w: %d + %d", ErrExceeds31, s.PeggingTotal, card.PointValue())
		}

		p.PeggingHand, _ = RemoveCards(p.PeggingHand, []Card{card})
		p.PlayedCards = append(p.PlayedCards, card)
		s.PeggingStack = append(s.PeggingStack, card)
		s.PlayedCards = append(s.PlayedCards, card)
		s.PeggingTotal += card.PointValue()
		s.PeggingLastCardPlayer = playerID

		if !t.award(PlayCardAction, playerID, []Card{card}, ScorePegging(s.PeggingStack)) {
			return nil
		}
		t.advancePegging(s.PlayerIndex(playerID))
		return nil
	})
}

// Go records that the player cannot play under 31. It is refused while the
// player still holds a card that fits.
func (g *Game) Go(playerID string) error {
	return g.apply(func(t *tx) error {
		s := t.s
		if err := t.requirePeggingTurn(playerID); err != nil {
			return err
		}
		p := s.Player(playerID)
		if HasLegalPlay(p.PeggingHand, s.PeggingTotal) {
			return ErrMustPlay
		}
		s.PeggingGoPlayers = append(s.PeggingGoPlayers, playerID)
		t.emit(GoAction, playerID, nil, Score{})
		t.advancePegging(s.PlayerIndex(playerID))
		return nil
	})
}

// advancePegging passes the turn on from seat. When nobody can continue the
// current count it pays the last card, resets the stack, and leads again from
// the seat after the last player. Pegging ends once every hand is empty.
func (t *tx) advancePegging(from int) {
	s := t.s
	if s.PeggingTotal != PeggingLimit {
		if next, ok := t.nextEligible(from); ok {
			s.PeggingTurn = s.Players[next].ID
			return
		}
		last := s.PeggingStack[len(s.PeggingStack)-1]
		if !t.award(LastCardAction, s.PeggingLastCardPlayer, []Card{last}, ScoreLastCard(last, s.PeggingTotal)) {
			return
		}
	}

	lastSeat := s.PlayerIndex(s.PeggingLastCardPlayer)
	s.PeggingStack = nil
	s.PeggingTotal = 0
	s.PeggingGoPlayers = nil
	s.PeggingLastCardPlayer = ""
	s.PeggingTurn = ""

	lead, ok := t.nextWithCards(lastSeat)
	if !ok {
		s.CurrentPhase = CountingPhase
		s.CountedHands = 0
		t.emit(PeggingResetAction, "", nil, Score{})
		return
	}
	s.PeggingTurn = s.Players[lead].ID
	t.emit(PeggingResetAction, "", nil, Score{})
}

// nextEligible finds the next seat after from, wrapping round to from itself,
// that still holds cards and has not said go in this count.
func (t *tx) nextEligible(from int) (int, bool) {
	s := t.s
	for off := 1; off <= len(s.Players); off++ {
		i := s.seat(from + off)
		p := s.Players[i]
		if len(p.PeggingHand) > 0 && !slices.Contains(s.PeggingGoPlayers, p.ID) {
			return i, true
		}
	}
	return -1, false
}

func (t *tx) nextWithCards(from int) (int, bool) {
	s := t.s
	for off := 1; off <= len(s.Players); off++ {
		i := s.seat(from + off)
		if len(s.Players[i].PeggingHand) > 0 {
			return i, true
		}
	}
	return -1, false
}

// ScoreNextHand counts the next hand in order: the seats after the dealer,
// the dealer, and finally the crib.
func (g *Game) ScoreNextHand() error {
	return g.apply(func(t *tx) error {
		s := t.s
		if err := t.requirePhase(CountingPhase); err != nil {
			return err
		}
		if s.CountingDone() {
			return ErrCountingDone
		}
		if s.TurnCard == nil {
			return fmt.Errorf("%w: no turn card", ErrInvariant)
		}

		order := s.CountingOrder()
		if s.CountedHands < len(order) {
			id := order[s.CountedHands]
			hand := slices.Clone(s.Player(id).Hand)
			score, err := ScoreHand(hand, *s.TurnCard, false)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrInvariant, err)
			}
			s.CountedHands++
			t.award(ScoreHandAction, id, hand, score)
			return nil
		}

		score, err := ScoreHand(s.Crib, *s.TurnCard, true)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvariant, err)
		}
		s.CountedHands++
		s.CribRevealed = true
		t.award(ScoreCribAction, s.DealerID(), slices.Clone(s.Crib), score)
		return nil
	})
}

// ReadyForNextRound acknowledges the counted round. When every player has
// acknowledged, the deal passes to the next seat and the next round can be dealt.
func (g *Game) ReadyForNextRound(playerID string) error {
	return g.apply(func(t *tx) error {
		s := t.s
		if err := t.requirePhase(CountingPhase); err != nil {
			return err
		}
		if s.Player(playerID) == nil {
			return fmt.Errorf("%w: %q", ErrUnknownPlayer, playerID)
		}
		if !s.CountingDone() {
			return ErrCountingPending
		}
		if slices.Contains(s.ReadyPlayers, playerID) {
			return ErrAlreadyReady
		}
		s.ReadyPlayers = append(s.ReadyPlayers, playerID)
		if len(s.ReadyPlayers) == len(s.Players) {
			t.rotate()
		}
		t.emit(ReadyForNextRoundAction, playerID, nil, Score{})
		return nil
	})
}

func (t *tx) rotate() {
	s := t.s
	dealer := s.DealerIndex()
	s.Players[dealer].IsDealer = false
	s.Players[s.seat(dealer+1)].IsDealer = true
	for i := range s.Players {
		s.Players[i].Hand = nil
		s.Players[i].PeggingHand = nil
		s.Players[i].PlayedCards = nil
	}
	s.Deck = NewDeck()
	s.Crib = nil
	s.CribRevealed = false
	s.TurnCard = nil
	s.PeggingStack = nil
	s.PeggingTotal = 0
	s.PeggingGoPlayers = nil
	s.PeggingLastCardPlayer = ""
	s.PeggingTurn = ""
	s.PlayedCards = nil
	s.CountedHands = 0
	s.ReadyPlayers = nil
	s.CurrentPhase = DealingPhase
}

// tx is the working copy of one operation.
type tx struct {
	g     *Game
	s     *GameState
	phase Phase
	snaps []GameSnapshot
}

func (g *Game) apply(fn func(t *tx) error) error {
	g.mu.Lock()
	if g.state.IsOver() {
		g.mu.Unlock()
		return ErrGameOver
	}

	t := &tx{g: g, s: g.state.Copy(), phase: g.state.CurrentPhase}
	if err := fn(t); err != nil {
		g.mu.Unlock()
		return err
	}
	if err := t.s.checkInvariants(); err != nil {
		g.mu.Unlock()
		log.Error().Err(err).Str("game", g.state.GameID).Msg("refusing mutation")
		return err
	}

	g.state = t.s
	for _, snap := range t.snaps {
		g.events = append(g.events, snap.Event)
	}
	observers := slices.Clone(g.observers)
	g.mu.Unlock()

	for _, snap := range t.snaps {
		for _, observer := range observers {
			observer(snap)
		}
	}
	return nil
}

func (t *tx) requirePhase(phase Phase) error {
	if t.s.CurrentPhase != phase {
		return fmt.Errorf("%w: in %s, need %s", ErrWrongPhase, t.s.CurrentPhase, phase)
	}
	return nil
}

func (t *tx) requirePeggingTurn(playerID string) error {
	if err := t.requirePhase(PeggingPhase); err != nil {
		return err
	}
	if t.s.Player(playerID) == nil {
		return fmt.Errorf("%w: %q", ErrUnknownPlayer, playerID)
	}
	if t.s.PeggingTurn != playerID {
		return fmt.Errorf("%w: %q, waiting on %q", ErrNotYourTurn, playerID, t.s.PeggingTurn)
	}
	return nil
}

// emit appends an event and captures the working state as its snapshot.
func (t *tx) emit(action ActionType, playerID string, cards []Card, score Score) {
	t.s.SnapshotID++
	phase := t.phase
	if action == WinAction {
		phase = EndPhase
	}
	event := GameEvent{
		GameID:         t.s.GameID,
		SnapshotID:     t.s.SnapshotID,
		Phase:          phase,
		ActionType:     action,
		PlayerID:       playerID,
		Cards:          cards,
		ScoreChange:    score.Total,
		Timestamp:      t.g.now().UTC(),
		ScoreBreakdown: score.Breakdown,
	}
	t.snaps = append(t.snaps, GameSnapshot{State: t.s.Copy(), Event: event.clone()})
}

// award pegs points for the player and records the event. It returns false
// when the points won the game, after moving to END and recording the win.
func (t *tx) award(action ActionType, playerID string, cards []Card, score Score) bool {
	p := t.s.Player(playerID)
	if score.Total > 0 {
		p.PegPositions = PegPositions{Current: p.Score + score.Total, Previous: p.Score}
		p.Score += score.Total
	}
	t.emit(action, playerID, cards, score)

	if p.Score < t.s.TargetScore {
		return true
	}
	t.s.CurrentPhase = EndPhase
	t.s.Winner = playerID
	t.s.PeggingTurn = ""
	t.emit(WinAction, playerID, nil, Score{})
	return false
}
