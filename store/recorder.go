package store

import (
	"context"

	"cribbage/game"

	"github.com/rs/zerolog/log"
)

// Recorder writes the snapshot stream of a game to a Store. Every event is
// appended; the full state is kept for round boundaries and the final state.
// Storage failures are logged and never reach the game.
type Recorder struct {
	store Store
}

func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store}
}

// Observe is a game.Observer.
func (r *Recorder) Observe(snap game.GameSnapshot) {
	ctx := context.Background()
	event := snap.Event
	logger := log.With().Str("game", event.GameID).Int64("snapshot", event.SnapshotID).Logger()

	if err := r.store.AppendEvent(ctx, event); err != nil {
		logger.Error().Err(err).Msgf("failed to record %s", event.ActionType)
		return
	}
	if !event.ActionType.StoresSnapshot() || snap.State == nil {
		return
	}
	err := r.store.AppendSnapshot(ctx, Snapshot{GameID: event.GameID, SnapshotID: event.SnapshotID, State: snap.State})
	if err != nil {
		logger.Error().Err(err).Msg("failed to record snapshot")
		return
	}

	if event.ActionType != game.WinAction {
		return
	}
	scores := make(map[string]int, len(snap.State.Players))
	for _, p := range snap.State.Players {
		scores[p.ID] = p.Score
	}
	err = r.store.FinalizeGame(ctx, GameRecord{
		GameID:      event.GameID,
		Winner:      event.PlayerID,
		Rounds:      snap.State.RoundNumber,
		FinalScores: scores,
		EndedAt:     event.Timestamp,
	})
	if err != nil {
		logger.Error().Err(err).Msg("failed to finalize game")
		return
	}
	logger.Info().Msgf("recorded win for %s after %d rounds", event.PlayerID, snap.State.RoundNumber)
}
