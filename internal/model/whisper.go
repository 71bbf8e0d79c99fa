package model

import "time"

// MaxWhisperLength is the longest whisper a player may send, in characters
const MaxWhisperLength = 140

// Whisper is a private message between two players, at most one sent per
// player per phase. The sender stays anonymous until the recipient leaks it.
type Whisper struct {
	ID           string    `json:"id" bson:"_id"`
	GameID       string    `json:"gameId" bson:"gameId"`
	FromPlayerID string    `json:"fromPlayerId" bson:"fromPlayerId"`
	ToPlayerID   string    `json:"toPlayerId" bson:"toPlayerId"`
	Content      string    `json:"content" bson:"content"`
	Phase        Phase     `json:"phase" bson:"phase"`
	Day          int       `json:"day" bson:"day"`
	IsLeaked     bool      `json:"isLeaked" bson:"isLeaked"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
}

// WhisperView is a whisper as one player sees it
type WhisperView struct {
	ID             string    `json:"id"`
	FromPlayerID   string    `json:"fromPlayerId,omitempty"`
	FromPlayerName string    `json:"fromPlayerName,omitempty"`
	ToPlayerID     string    `json:"toPlayerId"`
	ToPlayerName   string    `json:"toPlayerName,omitempty"`
	Content        string    `json:"content"`
	Phase          Phase     `json:"phase"`
	Day            int       `json:"day"`
	IsLeaked       bool      `json:"isLeaked"`
	CreatedAt      time.Time `json:"createdAt"`
}

// WhisperInbox holds a player's whispers, newest first
type WhisperInbox struct {
	Sent     []WhisperView `json:"sent"`
	Received []WhisperView `json:"received"`
}

// WhisperRequest is the request body for sending a whisper
type WhisperRequest struct {
	ToPlayerID string `json:"toPlayerId"`
	Content    string `json:"content"`
}
