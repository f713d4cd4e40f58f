package game

import (
	"fmt"

	"golang.org/x/exp/slices"
)

// ScoreType labels one line of a score breakdown.
type ScoreType string

const (
	FifteenScore         ScoreType = "FIFTEEN"
	PairScore            ScoreType = "PAIR"
	PairRoyalScore       ScoreType = "PAIR_ROYAL"
	DoublePairRoyalScore ScoreType = "DOUBLE_PAIR_ROYAL"
	RunScore             ScoreType = "RUN"
	FlushScore           ScoreType = "FLUSH"
	NobsScore            ScoreType = "NOBS"
	HeelsScore           ScoreType = "HEELS"
	ThirtyOneScore       ScoreType = "THIRTY_ONE"
	LastCardScore        ScoreType = "LAST_CARD"
)

const (
	HandSize     = 4
	CribSize     = 4
	PeggingLimit = 31
	maxPegRun    = 7
)

// ScoreItem is one scoring combination.
type ScoreItem struct {
	Type        ScoreType `json:"type"`
	Points      int       `json:"points"`
	Cards       []Card    `json:"cards"`
	Description string    `json:"description"`
}

// Score is a total together with the items that produce it. The items always
// sum to Total.
type Score struct {
	Total     int         `json:"total"`
	Breakdown []ScoreItem `json:"breakdown,omitempty"`
}

func (s *Score) add(item ScoreItem) {
	s.Total += item.Points
	s.Breakdown = append(s.Breakdown, item)
}

// ScoreHand counts a four card hand (or crib) with the cut card.
func ScoreHand(hand []Card, cut Card, isCrib bool) (Score, error) {
	if len(hand) != HandSize {
		return Score{}, fmt.Errorf("score hand: need %d cards, got %d", HandSize, len(hand))
	}
	group := append(slices.Clone(hand), cut)
	if err := checkDistinct(group); err != nil {
		return Score{}, fmt.Errorf("score hand: %w", err)
	}

	var score Score
	scoreFifteens(&score, group)
	scorePairs(&score, group)
	scoreRuns(&score, group)
	scoreFlush(&score, hand, cut, isCrib)
	scoreNobs(&score, hand, cut)
	return score, nil
}

// ScoreHeels awards the dealer for a Jack turned up as the cut card.
func ScoreHeels(cut Card) Score {
	if cut.Rank != Jack {
		return Score{}
	}
	var score Score
	score.add(ScoreItem{Type: HeelsScore, Points: 2, Cards: []Card{cut}, Description: "his heels"})
	return score
}

func checkDistinct(cards []Card) error {
	seen := make(map[Card]bool, len(cards))
	for _, c := range cards {
		if !c.Valid() {
			return fmt.Errorf("invalid card %s", c)
		}
		if seen[c] {
			return fmt.Errorf("%w: %s", ErrDuplicateCard, c)
		}
		seen[c] = true
	}
	return nil
}

// scoreFifteens walks every subset of two or more cards.
func scoreFifteens(score *Score, group []Card) {
	n := len(group)
	for mask := 1; mask < 1<<n; mask++ {
		var subset []Card
		sum := 0
		for i := 0; i < n; i++ {
			if mask&(1<<i) != 0 {
				subset = append(subset, group[i])
				sum += group[i].PointValue()
			}
		}
		if len(subset) >= 2 && sum == 15 {
			score.add(ScoreItem{
				Type:        FifteenScore,
				Points:      2,
				Cards:       subset,
				Description: fmt.Sprintf("fifteen %s", joinCards(subset, "+")),
			})
		}
	}
}

func scorePairs(score *Score, group []Card) {
	byRank := make(map[Rank][]Card)
	for _, c := range group {
		byRank[c.Rank] = append(byRank[c.Rank], c)
	}
	for r := Ace; r <= King; r++ {
		same := byRank[r]
		n := len(same)
		if n < 2 {
			continue
		}
		item := ScoreItem{Points: n * (n - 1), Cards: same}
		switch n {
		case 2:
			item.Type, item.Description = PairScore, "pair of "+rankSymbols[r]
		case 3:
			item.Type, item.Description = PairRoyalScore, "three "+rankSymbols[r]+"s"
		default:
			item.Type, item.Description = DoublePairRoyalScore, "four "+rankSymbols[r]+"s"
		}
		score.add(item)
	}
}

// scoreRuns finds the longest consecutive rank sequence of three or more. Each
// duplicated rank inside it doubles (or triples) the number of distinct runs.
func scoreRuns(score *Score, group []Card) {
	byRank := make(map[int][]Card)
	for _, c := range group {
		byRank[c.RunValue()] = append(byRank[c.RunValue()], c)
	}

	bestStart, bestLen := 0, 0
	for start := int(Ace); start <= int(King); start++ {
		length := 0
		for v := start; v <= int(King) && len(byRank[v]) > 0; v++ {
			length++
		}
		if length > bestLen {
			bestStart, bestLen = start, length
		}
	}
	if bestLen < 3 {
		return
	}

	runs := [][]Card{{}}
	for v := bestStart; v < bestStart+bestLen; v++ {
		var next [][]Card
		for _, run := range runs {
			for _, c := range byRank[v] {
				next = append(next, append(slices.Clone(run), c))
			}
		}
		runs = next
	}
	for _, run := range runs {
		score.add(ScoreItem{
			Type:        RunScore,
			Points:      bestLen,
			Cards:       run,
			Description: fmt.Sprintf("run of %d %s", bestLen, joinCards(run, "-")),
		})
	}
}

// scoreFlush allows a four card flush in a hand but only a five card flush in
// the crib.
func scoreFlush(score *Score, hand []Card, cut Card, isCrib bool) {
	suit := hand[0].Suit
	for _, c := range hand[1:] {
		if c.Suit != suit {
			return
		}
	}
	if cut.Suit == suit {
		cards := append(slices.Clone(hand), cut)
		score.add(ScoreItem{Type: FlushScore, Points: 5, Cards: cards, Description: "five card flush"})
		return
	}
	if isCrib {
		return
	}
	score.add(ScoreItem{Type: FlushScore, Points: 4, Cards: slices.Clone(hand), Description: "four card flush"})
}

func scoreNobs(score *Score, hand []Card, cut Card) {
	for _, c := range hand {
		if c.Rank == Jack && c.Suit == cut.Suit {
			score.add(ScoreItem{Type: NobsScore, Points: 1, Cards: []Card{c}, Description: "his nobs"})
			return
		}
	}
}

func joinCards(cards []Card, sep string) string {
	out := ""
	for i, c := range cards {
		if i > 0 {
			out += sep
		}
		out += c.String()
	}
	return out
}
