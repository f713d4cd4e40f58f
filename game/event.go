package game

import (
	"time"

	"golang.org/x/exp/slices"
)

// GameEvent is an immutable record of one state transition. SnapshotID
// increases by exactly one per event within a game.
type GameEvent struct {
	GameID         string      `json:"gameId"`
	SnapshotID     int64       `json:"snapshotId"`
	Phase          Phase       `json:"phase"`
	ActionType     ActionType  `json:"actionType"`
	PlayerID       string      `json:"playerId,omitempty"`
	Cards          []Card      `json:"cards,omitempty"`
	ScoreChange    int         `json:"scoreChange"`
	Timestamp      time.Time   `json:"timestamp"`
	ScoreBreakdown []ScoreItem `json:"scoreBreakdown,omitempty"`
}

func (e GameEvent) clone() GameEvent {
	e.Cards = slices.Clone(e.Cards)
	if e.ScoreBreakdown != nil {
		items := make([]ScoreItem, len(e.ScoreBreakdown))
		for i, item := range e.ScoreBreakdown {
			item.Cards = slices.Clone(item.Cards)
			items[i] = item
		}
		e.ScoreBreakdown = items
	}
	return e
}

// GameSnapshot is one externally observable unit: the state after a mutation,
// the event that produced it, and the decisions currently open.
type GameSnapshot struct {
	State           *GameState        `json:"gameState"`
	Event           GameEvent         `json:"gameEvent"`
	PendingRequests []DecisionRequest `json:"pendingDecisionRequests"`
}

// Observer receives every snapshot in order. Observers run synchronously on
// the goroutine that applied the mutation and must not call back into the game.
type Observer func(GameSnapshot)
