package game

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScorePegging(t *testing.T) {
	tests := []struct {
		name  string
		stack []string
		want  int
		types []ScoreType
	}{
		{"lone card scores nothing", []string{"7H"}, 0, nil},
		{"fifteen", []string{"7H", "8S"}, 2, []ScoreType{FifteenScore}},
		{"pair", []string{"7H", "7S"}, 2, []ScoreType{PairScore}},
		{"pair royal", []string{"4H", "4S", "4D"}, 6, []ScoreType{PairRoyalScore}},
		{"double pair royal", []string{"2H", "2S", "2D", "2C"}, 12, []ScoreType{DoublePairRoyalScore}},
		{"run out of order", []string{"4H", "6S", "5D"}, 5, []ScoreType{FifteenScore, RunScore}},
		{"broken run", []string{"4H", "6S", "6D", "5D"}, 0, nil},
		{"thirty-one", []string{"KH", "QS", "AD", "JD"}, 2, []ScoreType{ThirtyOneScore}},
		{"run of four", []string{"AH", "3S", "2D", "4C"}, 4, []ScoreType{RunScore}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score := ScorePegging(MustParseCards(tt.stack...))

			require.Equal(t, tt.want, score.Total)
			require.Equal(t, score.Total, sumBreakdown(score))
			var types []ScoreType
			for _, item := range score.Breakdown {
				types = append(types, item.Type)
			}
			require.Equal(t, tt.types, types)
		})
	}
}

func TestLegalPlay(t *testing.T) {
	hand := MustParseCards("KH", "9S")

	require.True(t, CanPlay(MustParseCards("AS")[0], 30))
	require.False(t, CanPlay(MustParseCards("2S")[0], 30))
	require.True(t, HasLegalPlay(hand, 21))
	require.False(t, HasLegalPlay(hand, 23))
	require.False(t, HasLegalPlay(nil, 0))
}

func TestScoreLastCard(t *testing.T) {
	last := MustParseCards("5H")[0]
	require.Equal(t, 1, ScoreLastCard(last, 27).Total)
	require.Equal(t, 0, ScoreLastCard(last, PeggingLimit).Total, "31 is paid by the play itself")
}
