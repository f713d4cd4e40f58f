package game

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func sumBreakdown(s Score) int {
	total := 0
	for _, item := range s.Breakdown {
		total += item.Points
	}
	return total
}

func countType(s Score, typ ScoreType) int {
	n := 0
	for _, item := range s.Breakdown {
		if item.Type == typ {
			n++
		}
	}
	return n
}

func TestScoreHand(t *testing.T) {
	t.Run("perfect hand scores 29", func(t *testing.T) {
		hand := MustParseCards("5H", "5D", "5C", "JS")
		cut := MustParseCards("5S")[0]

		score, err := ScoreHand(hand, cut, false)

		require.NoError(t, err)
		require.Equal(t, 29, score.Total)
		require.Equal(t, 8, countType(score, FifteenScore), "Every jack-five and five-five-five combination is a fifteen")
		require.Equal(t, 1, countType(score, DoublePairRoyalScore))
		require.Equal(t, 1, countType(score, NobsScore))
		require.Equal(t, score.Total, sumBreakdown(score))
	})

	t.Run("five card run with one fifteen scores 7", func(t *testing.T) {
		hand := MustParseCards("AS", "2H", "3D", "4C")
		cut := MustParseCards("5S")[0]

		score, err := ScoreHand(hand, cut, false)

		require.NoError(t, err)
		require.Equal(t, 7, score.Total)
		require.Equal(t, 1, countType(score, RunScore))
		require.Equal(t, 5, score.Breakdown[len(score.Breakdown)-1].Points)
		require.Equal(t, score.Total, sumBreakdown(score))
	})

	t.Run("double run reports each run separately", func(t *testing.T) {
		hand := MustParseCards("3H", "3D", "4S", "5C")
		cut := MustParseCards("KD")[0]

		score, err := ScoreHand(hand, cut, false)

		require.NoError(t, err)
		require.Equal(t, 12, score.Total)
		require.Equal(t, 2, countType(score, RunScore))
		require.Equal(t, 1, countType(score, PairScore))
		require.Equal(t, 2, countType(score, FifteenScore))
	})

	t.Run("four card flush counts in a hand but not in the crib", func(t *testing.T) {
		hand := MustParseCards("2H", "4H", "6H", "8H")
		cut := MustParseCards("KS")[0]

		score, err := ScoreHand(hand, cut, false)
		require.NoError(t, err)
		require.Equal(t, 4, score.Total)
		require.Equal(t, 1, countType(score, FlushScore))

		crib, err := ScoreHand(hand, cut, true)
		require.NoError(t, err)
		require.Equal(t, 0, crib.Total)
		require.Empty(t, crib.Breakdown)
	})

	t.Run("five card flush counts in the crib", func(t *testing.T) {
		hand := MustParseCards("2H", "4H", "6H", "8H")
		cut := MustParseCards("KH")[0]

		score, err := ScoreHand(hand, cut, true)

		require.NoError(t, err)
		require.Equal(t, 5, score.Total)
	})

	t.Run("nobs needs the jack of the cut suit", func(t *testing.T) {
		hand := MustParseCards("JH", "3S", "7C", "9D")

		with, err := ScoreHand(hand, MustParseCards("2H")[0], false)
		require.NoError(t, err)
		require.Equal(t, 1, countType(with, NobsScore))
		require.Equal(t, with.Total, sumBreakdown(with))

		without, err := ScoreHand(hand, MustParseCards("2S")[0], false)
		require.NoError(t, err)
		require.Equal(t, 0, countType(without, NobsScore))
	})

	t.Run("rejects malformed hands", func(t *testing.T) {
		cut := MustParseCards("5S")[0]

		_, err := ScoreHand(MustParseCards("AS", "2H", "3D"), cut, false)
		require.Error(t, err, "A hand needs four cards")

		_, err = ScoreHand(MustParseCards("AS", "2H", "3D", "5S"), cut, false)
		require.ErrorIs(t, err, ErrDuplicateCard, "The cut card cannot also be in the hand")
	})
}

func TestScoreHeels(t *testing.T) {
	require.Equal(t, 2, ScoreHeels(MustParseCards("JD")[0]).Total)
	require.Equal(t, 0, ScoreHeels(MustParseCards("QD")[0]).Total)
}
