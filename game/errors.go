package game

import "errors"

var (
	ErrGameOver         = errors.New("game is over - no moves allowed")
	ErrWrongPhase       = errors.New("action not allowed in current phase")
	ErrNotYourTurn      = errors.New("not your turn")
	ErrUnknownPlayer    = errors.New("player not found")
	ErrNotDealer        = errors.New("player is not the dealer")
	ErrNotCutter        = errors.New("player is not the designated cutter")
	ErrInvalidIndex     = errors.New("index out of range")
	ErrCardNotHeld      = errors.New("card not held by player")
	ErrDuplicateCard    = errors.New("duplicate card in response")
	ErrDiscardCount     = errors.New("wrong number of discards")
	ErrAlreadyDiscarded = errors.New("player already discarded")
	ErrAlreadyDrew      = errors.New("player already drew a dealer selection card")
	ErrAlreadyReady     = errors.New("player already acknowledged")
	ErrExceeds31        = errors.New("play would exceed 31")
	ErrMustPlay         = errors.New("player holds a legal card and cannot say go")
	ErrCountingDone     = errors.New("all hands have been counted")
	ErrCountingPending  = errors.New("hands are still being counted")
	ErrPlayerCount      = errors.New("cribbage needs 2 to 4 players")
	ErrInvariant        = errors.New("state invariant violated")
	ErrResponseMismatch = errors.New("response does not match request")
)

// IsRejection reports whether err is a rule violation that the caller can
// correct by choosing differently, as opposed to a fault or terminal state.
func IsRejection(err error) bool {
	for _, target := range []error{
		ErrNotYourTurn, ErrInvalidIndex, ErrCardNotHeld, ErrDuplicateCard,
		ErrDiscardCount, ErrExceeds31, ErrMustPlay, ErrResponseMismatch,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
