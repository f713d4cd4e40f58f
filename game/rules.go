package game

type Rules interface {
	// TargetScore is the score that wins the game.
	TargetScore() int
	// DealSize is the number of cards dealt to each of n players.
	DealSize(players int) int
	// DiscardCount is the number of cards each of n players gives to the crib.
	DiscardCount(players int) int
	// AutoCribCards is the number of cards moved from the deck to the crib after dealing.
	AutoCribCards(players int) int
}

const (
	MinPlayers = 2
	MaxPlayers = 4
)
