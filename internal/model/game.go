package model

import "time"

type GameStatus string

const (
	GameWaiting GameStatus = "WAITING"
	GamePlaying GameStatus = "PLAYING"
	GameEnded   GameStatus = "ENDED"
)

type Phase string

const (
	PhaseDay   Phase = "DAY"
	PhaseNight Phase = "NIGHT"
)

type Winner string

const (
	WinnerNone      Winner = ""
	WinnerFaithfuls Winner = "FAITHFULS"
	WinnerTraitors  Winner = "TRAITORS"
)

// DefaultPhaseDuration is used when a host enables auto-phase without a duration
const DefaultPhaseDuration = 12 * time.Hour

// Game is a single session of the game, persisted in the games collection
type Game struct {
	ID               string        `json:"id" bson:"_id"`
	Code             string        `json:"code" bson:"code"`
	HostID           string        `json:"hostId" bson:"hostId"`
	Status           GameStatus    `json:"status" bson:"status"`
	CurrentPhase     Phase         `json:"currentPhase" bson:"currentPhase"`
	CurrentDay       int           `json:"currentDay" bson:"currentDay"`
	Winner           Winner        `json:"winner,omitempty" bson:"winner"`
	AutoPhaseEnabled bool          `json:"autoPhaseEnabled" bson:"autoPhaseEnabled"`
	PhaseDuration    time.Duration `json:"phaseDuration" bson:"phaseDuration"` // nanoseconds
	PhaseStartedAt   *time.Time    `json:"phaseStartedAt,omitempty" bson:"phaseStartedAt,omitempty"`
	CreatedAt        time.Time     `json:"createdAt" bson:"createdAt"`
	StartedAt        *time.Time    `json:"startedAt,omitempty" bson:"startedAt,omitempty"`
	EndedAt          *time.Time    `json:"endedAt,omitempty" bson:"endedAt,omitempty"`
	RosterVersion    int64         `json:"-" bson:"rosterVersion"` // bumped by every join
}

// PhaseDeadline returns when the current phase is due to auto-advance.
// ok is false when there is no running timer.
func (g *Game) PhaseDeadline() (deadline time.Time, ok bool) {
	if g.PhaseStartedAt == nil {
		return time.Time{}, false
	}
	d := g.PhaseDuration
	if d <= 0 {
		d = DefaultPhaseDuration
	}
	return g.PhaseStartedAt.Add(d), true
}

// NextPhase returns the phase and day following (phase, day)
func NextPhase(phase Phase, day int) (Phase, int) {
	if phase == PhaseDay {
		return PhaseNight, day
	}
	return PhaseDay, day + 1
}
