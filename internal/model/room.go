package model

import "time"

type ObjectState string

const (
	ObjectUntouched ObjectState = "UNTOUCHED"
	ObjectDestroyed ObjectState = "DESTROYED"
	ObjectCleaned   ObjectState = "CLEANED"
	ObjectPlaced    ObjectState = "PLACED"
	ObjectVisited   ObjectState = "VISITED"
)

// RoomObject is a piece of furniture in a game's shared room
type RoomObject struct {
	ID          string      `json:"id" bson:"_id"`
	GameID      string      `json:"gameId" bson:"gameId"`
	Name        string      `json:"name" bson:"name"`
	Description string      `json:"description" bson:"description"`
	State       ObjectState `json:"state" bson:"state"`
	LastAction  RoomAction  `json:"lastAction,omitempty" bson:"lastAction,omitempty"`
	UpdatedAt   *time.Time  `json:"updatedAt,omitempty" bson:"updatedAt,omitempty"`
}

// PersonalItem is a trinket dealt to one player. Placing it on a room object
// is permanent.
type PersonalItem struct {
	ID          string `json:"id" bson:"_id"`
	GameID      string `json:"gameId" bson:"gameId"`
	PlayerID    string `json:"playerId" bson:"playerId"`
	Name        string `json:"name" bson:"name"`
	ObjectID    string `json:"objectId,omitempty" bson:"objectId,omitempty"`
	PlacedPhase Phase  `json:"placedPhase,omitempty" bson:"placedPhase,omitempty"`
	PlacedDay   int    `json:"placedDay,omitempty" bson:"placedDay,omitempty"`
}

func (i *PersonalItem) Placed() bool {
	return i.ObjectID != ""
}

// RoomObjectView is a room object as one player sees it. Placed items are
// listed by name only.
type RoomObjectView struct {
	RoomObject
	PlacedItems []string `json:"placedItems"`
	CanInteract bool     `json:"canInteract"`
}

// RoomView is the shared room plus the viewer's own items
type RoomView struct {
	Phase   Phase            `json:"phase"`
	Day     int              `json:"day"`
	Objects []RoomObjectView `json:"objects"`
	Items   []PersonalItem   `json:"items"`
	Placed  []PersonalItem   `json:"placed"`
}

// RoomSummary reports the size of an initialized room
type RoomSummary struct {
	ObjectCount int  `json:"objectCount"`
	ItemCount   int  `json:"itemCount"`
	Created     bool `json:"created"`
}

// RoomInteractRequest is the request body for acting on a room object
type RoomInteractRequest struct {
	ObjectID string     `json:"objectId"`
	Action   RoomAction `json:"action"`
	ItemName string     `json:"itemName,omitempty"`
}

// RoomInteractionCommit is everything written by one room interaction. It
// only applies if Log is the actor's first entry for the object this phase
// and the item is still unplaced.
type RoomInteractionCommit struct {
	Object RoomObject
	Item   *PersonalItem
	Log    RoomLogEntry
}
