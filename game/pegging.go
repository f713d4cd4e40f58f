package game

import (
	"fmt"

	"golang.org/x/exp/slices"
)

// StackTotal sums the point values of the pegging stack.
func StackTotal(stack []Card) int {
	total := 0
	for _, c := range stack {
		total += c.PointValue()
	}
	return total
}

// CanPlay reports whether card fits under 31 on top of total.
func CanPlay(card Card, total int) bool {
	return total+card.PointValue() <= PeggingLimit
}

// HasLegalPlay reports whether any card in hand can be played.
func HasLegalPlay(hand []Card, total int) bool {
	return slices.IndexFunc(hand, func(c Card) bool { return CanPlay(c, total) }) >= 0
}

// ScorePegging scores the most recently played card (the last of stack)
// against the cards before it in the current count.
func ScorePegging(stack []Card) Score {
	var score Score
	if len(stack) == 0 {
		return score
	}
	last := stack[len(stack)-1]

	switch total := StackTotal(stack); total {
	case 15:
		score.add(ScoreItem{Type: FifteenScore, Points: 2, Cards: []Card{last}, Description: "fifteen"})
	case PeggingLimit:
		score.add(ScoreItem{Type: ThirtyOneScore, Points: 2, Cards: []Card{last}, Description: "thirty-one"})
	}

	// Same rank run at the top of the stack.
	same := 1
	for i := len(stack) - 2; i >= 0 && stack[i].Rank == last.Rank; i-- {
		same++
	}
	if same >= 2 {
		cards := slices.Clone(stack[len(stack)-same:])
		item := ScoreItem{Points: same * (same - 1), Cards: cards}
		switch same {
		case 2:
			item.Type, item.Description = PairScore, "pair"
		case 3:
			item.Type, item.Description = PairRoyalScore, "pair royal"
		default:
			item.Type, item.Description = DoublePairRoyalScore, "double pair royal"
		}
		score.add(item)
	}

	// Longest run formed by the trailing cards in any order.
	for m := min(len(stack), maxPegRun); m >= 3; m-- {
		tail := stack[len(stack)-m:]
		if isRun(tail) {
			score.add(ScoreItem{
				Type:        RunScore,
				Points:      m,
				Cards:       slices.Clone(tail),
				Description: fmt.Sprintf("run of %d", m),
			})
			break
		}
	}
	return score
}

// ScoreLastCard awards the go point to the last card of a count that ended
// below 31. A count that ended on 31 was already paid by ScorePegging.
func ScoreLastCard(last Card, total int) Score {
	var score Score
	if total == PeggingLimit || total == 0 {
		return score
	}
	score.add(ScoreItem{Type: LastCardScore, Points: 1, Cards: []Card{last}, Description: "last card"})
	return score
}

func isRun(cards []Card) bool {
	values := make([]int, len(cards))
	for i, c := range cards {
		values[i] = c.RunValue()
	}
	slices.Sort(values)
	for i := 1; i < len(values); i++ {
		if values[i] != values[i-1]+1 {
			return false
		}
	}
	return true
}
