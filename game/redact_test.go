package game

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRedact(t *testing.T) {
	g, err := NewGame("g", twoPlayers, WithDealer("b"))
	require.NoError(t, err)
	var snaps []GameSnapshot
	g.Observe(func(s GameSnapshot) { snaps = append(snaps, s) })
	require.NoError(t, g.Deal("b"))

	t.Run("other hands and the deck are hidden", func(t *testing.T) {
		full := g.State()
		view := g.Redact("a")

		require.Equal(t, full.Player("a").Hand, view.Player("a").Hand, "Own hand stays visible")
		require.Len(t, view.Player("b").Hand, 6)
		for _, c := range view.Player("b").Hand {
			require.True(t, c.IsUnknown())
		}
		require.Len(t, view.Deck, len(full.Deck))
		for _, c := range view.Deck {
			require.True(t, c.IsUnknown())
		}
		require.Equal(t, full, g.State(), "Redaction works on a copy")
	})

	t.Run("deal events only show their own cards", func(t *testing.T) {
		var deals []GameEvent
		for _, s := range snaps {
			if s.Event.ActionType == DealAction {
				deals = append(deals, s.Event)
			}
		}
		require.Len(t, deals, 2)
		for _, e := range deals {
			own := e.Redact(e.PlayerID)
			require.Equal(t, e.Cards, own.Cards)
			other := e.Redact("someone else")
			require.Len(t, other.Cards, len(e.Cards))
			for _, c := range other.Cards {
				require.True(t, c.IsUnknown())
			}
		}
	})

	t.Run("crib stays hidden until counted", func(t *testing.T) {
		gs := fixture(CountingPhase, MustParseCards("5H", "5D", "2S", "9C"), MustParseCards("AH", "3H", "7S", "8S"),
			MustParseCards("2D", "3D", "4D", "6D"), cardPtr("KD"))
		restored, _ := restore(t, gs)

		require.True(t, restored.Redact("a").Crib[0].IsUnknown())
		require.True(t, restored.Redact("a").Player("b").Hand[0].IsUnknown())

		require.NoError(t, restored.ScoreNextHand())
		require.NoError(t, restored.ScoreNextHand())
		require.False(t, restored.Redact("a").Player("b").Hand[0].IsUnknown(), "Counted hands are public")
		require.True(t, restored.Redact("a").Crib[0].IsUnknown())

		require.NoError(t, restored.ScoreNextHand())
		require.Equal(t, gs.Crib, restored.Redact("a").Crib)
	})

	t.Run("other players' requests lose their payload", func(t *testing.T) {
		snap := GameSnapshot{
			State: g.State(),
			PendingRequests: []DecisionRequest{
				{RequestID: "1", PlayerID: "a", DecisionType: DiscardDecision, Data: DiscardData{Count: 2}},
				{RequestID: "2", PlayerID: "b", DecisionType: DiscardDecision, Data: DiscardData{Count: 2}},
			},
		}

		view := snap.Redact("a")

		require.NotNil(t, view.PendingRequests[0].Data)
		require.Nil(t, view.PendingRequests[1].Data)
		require.Equal(t, "b", view.PendingRequests[1].PlayerID)
		require.NotNil(t, snap.PendingRequests[1].Data, "The original snapshot is untouched")
	})
}

func TestSnapshotJSON(t *testing.T) {
	g, err := NewGame("g", twoPlayers, WithDealer("b"))
	require.NoError(t, err)
	require.NoError(t, g.Deal("b"))

	snap := g.Latest()
	snap.PendingRequests = []DecisionRequest{{
		RequestID:    "r1",
		PlayerID:     "a",
		DecisionType: DiscardDecision,
		Data:         DiscardData{Hand: g.State().Player("a").Hand, Count: 2},
		Required:     true,
	}}

	data, err := json.Marshal(snap.Redact("a"))
	require.NoError(t, err)

	var decoded GameSnapshot
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, DiscardingPhase, decoded.State.CurrentPhase)
	require.Equal(t, g.State().Player("a").Hand, decoded.State.Player("a").Hand)
	require.True(t, decoded.State.Player("b").Hand[0].IsUnknown(), "Hidden cards round trip as unknown")
	require.Equal(t, DiscardData{Hand: g.State().Player("a").Hand, Count: 2}, decoded.PendingRequests[0].Data)
}

func TestDecisionResponseMatches(t *testing.T) {
	req := DecisionRequest{RequestID: "r1", PlayerID: "a", DecisionType: PlayCardDecision}

	require.NoError(t, DecisionResponse{RequestID: "r1", PlayerID: "a"}.Matches(req))
	require.ErrorIs(t, DecisionResponse{RequestID: "r2", PlayerID: "a"}.Matches(req), ErrResponseMismatch)
	require.ErrorIs(t, DecisionResponse{RequestID: "r1", PlayerID: "b"}.Matches(req), ErrResponseMismatch)
	require.ErrorIs(t, DecisionResponse{RequestID: "r1", PlayerID: "a", DecisionType: DiscardDecision}.Matches(req), ErrResponseMismatch)
}
