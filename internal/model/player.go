package model

import (
	"strings"
	"time"
)

type Role string

const (
	RoleUnassigned Role = ""
	RoleTraitor    Role = "TRAITOR"
	RoleFaithful   Role = "FAITHFUL"
)

// Player is a participant in a game. The host is a player too.
type Player struct {
	ID              string     `json:"id" bson:"_id"`
	GameID          string     `json:"gameId" bson:"gameId"`
	Name            string     `json:"name" bson:"name"`
	NameKey         string     `json:"-" bson:"nameKey"` // lower-cased, for uniqueness
	IsAlive         bool       `json:"isAlive" bson:"isAlive"`
	IsHost          bool       `json:"isHost" bson:"isHost"`
	Role            Role       `json:"role,omitempty" bson:"role"`
	JoinedAt        time.Time  `json:"joinedAt" bson:"joinedAt"`
	EliminatedAt    *time.Time `json:"eliminatedAt,omitempty" bson:"eliminatedAt,omitempty"`
	EliminatedPhase Phase      `json:"eliminatedPhase,omitempty" bson:"eliminatedPhase,omitempty"`
	EliminatedDay   int        `json:"eliminatedDay,omitempty" bson:"eliminatedDay,omitempty"`
}

// NameKey normalizes a display name for case-insensitive comparison
func NameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// FindPlayer returns the player with the given id, or nil
func FindPlayer(players []Player, id string) *Player {
	for i := range players {
		if players[i].ID == id {
			return &players[i]
		}
	}
	return nil
}

// AliveCounts returns the number of alive traitors and alive faithfuls
func AliveCounts(players []Player) (traitors, faithfuls int) {
	for _, p := range players {
		if !p.IsAlive {
			continue
		}
		switch p.Role {
		case RoleTraitor:
			traitors++
		case RoleFaithful:
			faithfuls++
		}
	}
	return traitors, faithfuls
}
