package game

// ActionType identifies the transition recorded by a GameEvent.
type ActionType string

const (
	SelectDealerCardAction   ActionType = "SELECT_DEALER_CARD"
	DealerSelectionTieAction ActionType = "DEALER_SELECTION_TIE"
	DealerSelectedAction     ActionType = "DEALER_SELECTED"
	StartRoundAction         ActionType = "START_ROUND"
	ShuffleDeckAction        ActionType = "SHUFFLE_DECK"
	DealAction               ActionType = "DEAL"
	AutoCribCardAction       ActionType = "AUTO_CRIB_CARD"
	DiscardAction            ActionType = "DISCARD"
	CutDeckAction            ActionType = "CUT_DECK"
	ScoreHeelsAction         ActionType = "SCORE_HEELS"
	PlayCardAction           ActionType = "PLAY_CARD"
	GoAction                 ActionType = "GO"
	LastCardAction           ActionType = "LAST_CARD"
	PeggingResetAction       ActionType = "PEGGING_RESET"
	ScoreHandAction          ActionType = "SCORE_HAND"
	ScoreCribAction          ActionType = "SCORE_CRIB"
	ReadyForNextRoundAction  ActionType = "READY_FOR_NEXT_ROUND"
	WinAction                ActionType = "WIN"
)

// StoresSnapshot reports whether durable storage should keep the full state
// alongside events of this type (round boundaries and the terminal state).
func (a ActionType) StoresSnapshot() bool {
	switch a {
	case StartRoundAction, ReadyForNextRoundAction, WinAction:
		return true
	default:
		return false
	}
}

// hidesCards reports whether the event's cards belong only to its player.
func (a ActionType) hidesCards() bool {
	switch a {
	case DiscardAction, SelectDealerCardAction, DealAction:
		return true
	default:
		return false
	}
}
