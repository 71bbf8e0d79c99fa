package model

import "time"

// PlayerView is a player as seen by another player. Role is only filled
// for the viewer themself, or for everyone once the game has ended.
type PlayerView struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	IsAlive  bool   `json:"isAlive"`
	IsHost   bool   `json:"isHost"`
	Role     Role   `json:"role,omitempty"`
	HasVoted bool   `json:"hasVoted"`
}

// GameState is the polled view of a game
type GameState struct {
	Game          Game           `json:"game"`
	Players       []PlayerView   `json:"players"`
	VoteCounts    map[string]int `json:"voteCounts"`
	TimeRemaining *int64         `json:"timeRemainingMs,omitempty"`
	Viewer        *PlayerView    `json:"viewer,omitempty"`
	ViewerVote    string         `json:"viewerVote,omitempty"`
}

// StartResult is returned when a game starts
type StartResult struct {
	TraitorCount  int `json:"traitorCount"`
	FaithfulCount int `json:"faithfulCount"`
}

// PhaseResult describes one committed phase advance
type PhaseResult struct {
	GameID         string         `json:"gameId"`
	FromPhase      Phase          `json:"fromPhase"`
	FromDay        int            `json:"fromDay"`
	Phase          Phase          `json:"phase"`
	Day            int            `json:"day"`
	EliminatedID   string         `json:"eliminatedId,omitempty"`
	EliminatedName string         `json:"eliminatedName,omitempty"`
	EliminatedRole Role           `json:"eliminatedRole,omitempty"`
	Tally          map[string]int `json:"tally"`
	TieBroken      bool           `json:"tieBroken"`
	Ended          bool           `json:"ended"`
	Winner         Winner         `json:"winner,omitempty"`
	AdvancedAt     time.Time      `json:"advancedAt"`
}

// AutoPhaseAction is the outcome of one game in an auto-phase sweep
type AutoPhaseAction string

const (
	AutoPhaseAdvanced AutoPhaseAction = "phase_advanced"
	AutoPhaseNoAction AutoPhaseAction = "no_action"
	AutoPhaseBusy     AutoPhaseAction = "busy"
	AutoPhaseError    AutoPhaseAction = "error"
)

// AutoPhaseGameResult is the per-game entry of an auto-phase report
type AutoPhaseGameResult struct {
	GameID          string          `json:"gameId"`
	GameCode        string          `json:"gameCode"`
	Action          AutoPhaseAction `json:"action"`
	Result          *PhaseResult    `json:"result,omitempty"`
	TimeRemainingMs int64           `json:"timeRemainingMs,omitempty"`
	Error           string          `json:"error,omitempty"`
}

// AutoPhaseReport summarizes one auto-phase sweep
type AutoPhaseReport struct {
	CheckedAt time.Time             `json:"checkedAt"`
	Checked   int                   `json:"checked"`
	Advanced  int                   `json:"advanced"`
	Results   []AutoPhaseGameResult `json:"results"`
}

// AutoPhaseStatus is the auto-phase configuration of a game plus its timer
type AutoPhaseStatus struct {
	Enabled         bool       `json:"enabled"`
	DurationHours   float64    `json:"durationHours"`
	PhaseStartedAt  *time.Time `json:"phaseStartedAt,omitempty"`
	TimeRemainingMs *int64     `json:"timeRemainingMs,omitempty"`
}

// AutoPhaseRequest configures auto-phase for a game
type AutoPhaseRequest struct {
	Enabled       bool    `json:"enabled"`
	DurationHours float64 `json:"durationHours"`
}

// VoteRequest is the request body for casting a vote
type VoteRequest struct {
	TargetID string `json:"targetId"`
}

// Reveal is the full post-game disclosure
type Reveal struct {
	Game       Game           `json:"game"`
	Players    []Player       `json:"players"`
	Votes      []Vote         `json:"votes"`
	Narrations []Narration    `json:"narrations"`
	Chaos      []ChaosEvent   `json:"chaosEvents"`
	Whispers   []Whisper      `json:"whispers"`
	RoomLog    []RoomLogEntry `json:"roomLog"`
}

// StartCommit is everything written when a game starts
type StartCommit struct {
	Game  Game
	Roles map[string]Role
}

// PhaseCommit is everything written by one phase advance. It must be
// persisted atomically, and only if the stored game is still at FromPhase/FromDay.
type PhaseCommit struct {
	FromPhase  Phase
	FromDay    int
	Game       Game
	Eliminated *Player
}

// GameSnapshot is the raw state a game view is built from. It is what the
// state cache holds between mutations.
type GameSnapshot struct {
	Game    Game     `json:"game"`
	Players []Player `json:"players"`
	Votes   []Vote   `json:"votes"` // current phase and day only
}
