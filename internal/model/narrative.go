package model

import "time"

// Narration is the story text for one phase of a game
type Narration struct {
	ID        string    `json:"id" bson:"_id"`
	GameID    string    `json:"gameId" bson:"gameId"`
	Phase     Phase     `json:"phase" bson:"phase"`
	Day       int       `json:"day" bson:"day"`
	Content   string    `json:"content" bson:"content"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// Mission is a private social objective handed to one player for a phase
type Mission struct {
	ID        string    `json:"id" bson:"_id"`
	GameID    string    `json:"gameId" bson:"gameId"`
	PlayerID  string    `json:"playerId" bson:"playerId"`
	Phase     Phase     `json:"phase" bson:"phase"`
	Day       int       `json:"day" bson:"day"`
	Content   string    `json:"content" bson:"content"`
	Completed bool      `json:"completed" bson:"completed"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// ChaosEvent is a host-triggered twist, at most one per phase
type ChaosEvent struct {
	ID        string    `json:"id" bson:"_id"`
	GameID    string    `json:"gameId" bson:"gameId"`
	Type      string    `json:"type" bson:"type"`
	Phase     Phase     `json:"phase" bson:"phase"`
	Day       int       `json:"day" bson:"day"`
	Content   string    `json:"content" bson:"content"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

type RoomAction string

const (
	RoomActionDestroy RoomAction = "DESTROY"
	RoomActionClean   RoomAction = "CLEAN"
	RoomActionPlace   RoomAction = "PLACE"
	RoomActionVisit   RoomAction = "VISIT"
)

// Valid reports whether a is a known room action
func (a RoomAction) Valid() bool {
	switch a {
	case RoomActionDestroy, RoomActionClean, RoomActionPlace, RoomActionVisit:
		return true
	}
	return false
}

// RoomLogEntry records a player's interaction with an object in the shared room
type RoomLogEntry struct {
	ID         string     `json:"id" bson:"_id"`
	GameID     string     `json:"gameId" bson:"gameId"`
	PlayerID   string     `json:"playerId,omitempty" bson:"playerId"`
	Action     RoomAction `json:"action" bson:"action"`
	ObjectID   string     `json:"objectId" bson:"objectId"`
	ObjectName string     `json:"objectName" bson:"objectName"`
	ItemName   string     `json:"itemName,omitempty" bson:"itemName,omitempty"`
	Phase      Phase      `json:"phase" bson:"phase"`
	Day        int        `json:"day" bson:"day"`
	Content    string     `json:"content" bson:"content"`
	CreatedAt  time.Time  `json:"createdAt" bson:"createdAt"`
}

// GameContext is the summary handed to the narrator
type GameContext struct {
	GameID           string `json:"gameId"`
	CurrentPhase     Phase  `json:"currentPhase"`
	CurrentDay       int    `json:"currentDay"`
	PlayerCount      int    `json:"playerCount"`
	AlivePlayerCount int    `json:"alivePlayerCount"`
}

// PlayerContext describes the player a mission is generated for
type PlayerContext struct {
	Name    string `json:"name"`
	Role    Role   `json:"role"`
	IsAlive bool   `json:"isAlive"`
}

// RoomInteraction describes a room action to narrate
type RoomInteraction struct {
	Action     RoomAction `json:"action"`
	ObjectName string     `json:"objectName"`
	ItemName   string     `json:"itemName,omitempty"`
	PlayerName string     `json:"playerName"`
}

// NewGameContext builds a narrator context from a game and its roster
func NewGameContext(g *Game, players []Player) GameContext {
	alive := 0
	for _, p := range players {
		if p.IsAlive {
			alive++
		}
	}
	return GameContext{
		GameID:           g.ID,
		CurrentPhase:     g.CurrentPhase,
		CurrentDay:       g.CurrentDay,
		PlayerCount:      len(players),
		AlivePlayerCount: alive,
	}
}
