package model

import "time"

// Vote is one player's choice for the given phase and day.
// There is at most one vote per (gameId, voterId, phase, day).
type Vote struct {
	ID        string    `json:"id" bson:"_id"`
	GameID    string    `json:"gameId" bson:"gameId"`
	VoterID   string    `json:"voterId" bson:"voterId"`
	TargetID  string    `json:"targetId" bson:"targetId"`
	Phase     Phase     `json:"phase" bson:"phase"`
	Day       int       `json:"day" bson:"day"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}
