package game

import "errors"

// Validation errors. The request is wrong and retrying it will not help.
var (
	ErrGameNotFound        = errors.New("game not found")
	ErrPlayerNotFound      = errors.New("player not found")
	ErrNotHost             = errors.New("only the host can do this")
	ErrNotOwner            = errors.New("not your record")
	ErrGameNotWaiting      = errors.New("game has already started")
	ErrGameNotPlaying      = errors.New("game is not in progress")
	ErrGameNotEnded        = errors.New("game has not ended")
	ErrGameFull            = errors.New("game is full")
	ErrDuplicateName       = errors.New("player name already taken in this game")
	ErrPlayerCount         = errors.New("player count out of range")
	ErrPlayerEliminated    = errors.New("eliminated players cannot do this")
	ErrDeadVoter           = errors.New("eliminated players cannot vote")
	ErrDeadTarget          = errors.New("cannot vote for an eliminated player")
	ErrSelfVote            = errors.New("cannot vote for yourself")
	ErrNightVoteRestricted = errors.New("only traitors can vote at night")
	ErrMalformedVotes      = errors.New("malformed vote set")
	ErrInvalidInput        = errors.New("invalid input")
	ErrObjectNotFound      = errors.New("room object not found")
	ErrAlreadyInteracted   = errors.New("already interacted with this object this phase")
	ErrItemUnavailable     = errors.New("personal item not yours or already placed")
	ErrWhisperLimit        = errors.New("only one whisper per phase")
	ErrWhisperNotFound     = errors.New("whisper not found")
)

// ErrLockContention means another advance for the same game is in flight.
// Callers may retry.
var ErrLockContention = errors.New("game is being updated, try again")

// IsRetryable reports whether err is a transient contention failure
func IsRetryable(err error) bool {
	return errors.Is(err, ErrLockContention)
}
