package game

const DefaultTargetScore = 121

// StandardRules deals six cards heads-up and five for three or four players.
// Three players each discard one and the deck tops the crib up to four.
type StandardRules struct {
	Target int
}

func NewStandardRules() *StandardRules {
	return &StandardRules{Target: DefaultTargetScore}
}

func (sr *StandardRules) TargetScore() int {
	if sr.Target <= 0 {
		return DefaultTargetScore
	}
	return sr.Target
}

func (sr *StandardRules) DealSize(players int) int {
	if players == 2 {
		return 6
	}
	return 5
}

func (sr *StandardRules) DiscardCount(players int) int {
	return sr.DealSize(players) - HandSize
}

func (sr *StandardRules) AutoCribCards(players int) int {
	return CribSize - players*sr.DiscardCount(players)
}
