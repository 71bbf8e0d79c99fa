package game

import (
	"fmt"
	"math/rand/v2"
	"thetraitors/internal/model"
	"time"
)

// ItemsPerPlayer is how many personal items each player is dealt
const ItemsPerPlayer = 4

// RoomFixture is one object every room starts with
type RoomFixture struct {
	Name        string
	Description string
}

// RoomFixtures furnish every game's shared room
var RoomFixtures = []RoomFixture{
	{"Broken Mirror", "A shattered looking glass that reflects fractured truths"},
	{"Ancient Candle", "A melted candle that has witnessed countless secrets"},
	{"Dusty Portrait", "A painting of unknown nobility whose eyes seem to follow you"},
	{"Ornate Fountain", "A dry fountain where wishes once echoed"},
	{"Grandfather Clock", "Its hands stand still at midnight"},
	{"Velvet Armchair", "A throne where conspiracies were once whispered"},
	{"Crystal Chandelier", "Hanging crystals that scatter the light"},
	{"Mahogany Desk", "A writing surface scarred by urgent correspondence"},
	{"Stone Fireplace", "Cold ashes hide the remnants of burned evidence"},
	{"Silk Curtains", "Heavy drapes that conceal what lies beyond"},
	{"Persian Rug", "Intricate patterns that tell stories of distant lands"},
	{"Wooden Chest", "A locked container holding forgotten treasures"},
	{"Silver Goblet", "A chalice that has tasted both wine and poison"},
	{"Leather Journal", "Blank pages waiting for confessions"},
	{"Marble Statue", "A silent witness carved in stone"},
	{"Stained Glass Window", "Colored light filters through scenes of betrayal"},
	{"Antique Vase", "Delicate porcelain that holds more than flowers"},
	{"Brass Compass", "Points not north but toward hidden truths"},
	{"Ivory Chess Set", "A game where pawns become kings and kings fall"},
	{"Crystal Ball", "Clouded glass that shows futures best left unknown"},
	{"Copper Scales", "Justice weighs heavy in the balance"},
	{"Obsidian Dagger", "A blade as dark as the secrets it has carved"},
	{"Golden Hourglass", "Sand falls like tears, marking time"},
	{"Stone Gargoyle", "A guardian that watches over dark secrets"},
}

// PersonalItemNames is the pool personal items are dealt from
var PersonalItemNames = []string{
	"Silver Coin", "Pocket Watch", "Cracked Letter", "Silk Ribbon",
	"Brass Button", "Ivory Comb", "Leather Pouch", "Glass Marble",
	"Wooden Token", "Metal Thimble", "Paper Rose", "Wax Seal",
	"Bone Dice", "Cloth Patch", "Stone Pebble", "Shell Fragment",
	"Feather Plume", "Thread Spool", "Ink Vial", "Candle Stub",
	"Key Fragment", "Mirror Shard", "Pressed Flower", "Copper Wire",
}

// NewRoom furnishes a game's room and deals ItemsPerPlayer distinct items to
// each player. newID supplies record ids.
func NewRoom(gameID string, players []model.Player, shuffle Shuffler, newID func() string) ([]model.RoomObject, []model.PersonalItem) {
	if shuffle == nil {
		shuffle = rand.Shuffle
	}

	objects := make([]model.RoomObject, 0, len(RoomFixtures))
	for _, f := range RoomFixtures {
		objects = append(objects, model.RoomObject{
			ID:          newID(),
			GameID:      gameID,
			Name:        f.Name,
			Description: f.Description,
			State:       model.ObjectUntouched,
		})
	}

	items := make([]model.PersonalItem, 0, len(players)*ItemsPerPlayer)
	pool := make([]string, len(PersonalItemNames))
	for _, p := range players {
		copy(pool, PersonalItemNames)
		shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
		for _, name := range pool[:ItemsPerPlayer] {
			items = append(items, model.PersonalItem{
				ID:       newID(),
				GameID:   gameID,
				PlayerID: p.ID,
				Name:     name,
			})
		}
	}
	return objects, items
}

// Interacted reports whether the room log holds an entry by playerID on
// objectID during phase and day
func Interacted(roomLog []model.RoomLogEntry, objectID, playerID string, phase model.Phase, day int) bool {
	for _, e := range roomLog {
		if e.ObjectID == objectID && e.PlayerID == playerID && e.Phase == phase && e.Day == day {
			return true
		}
	}
	return false
}

// ApplyRoomAction validates actor's action on obj and returns the updated
// object and, for PLACE, the placed item. item is the actor's item named in
// the request, or nil. roomLog is the game's log so far.
func ApplyRoomAction(g *model.Game, actor *model.Player, obj model.RoomObject, action model.RoomAction, item *model.PersonalItem, roomLog []model.RoomLogEntry, now time.Time) (*model.RoomObject, *model.PersonalItem, error) {
	if g.Status != model.GamePlaying {
		return nil, nil, ErrGameNotPlaying
	}
	if actor == nil {
		return nil, nil, ErrPlayerNotFound
	}
	if !actor.IsAlive {
		return nil, nil, ErrPlayerEliminated
	}
	if obj.GameID != g.ID {
		return nil, nil, ErrObjectNotFound
	}
	if Interacted(roomLog, obj.ID, actor.ID, g.CurrentPhase, g.CurrentDay) {
		return nil, nil, ErrAlreadyInteracted
	}

	var placed *model.PersonalItem
	switch action {
	case model.RoomActionDestroy:
		obj.State = model.ObjectDestroyed
	case model.RoomActionClean:
		obj.State = model.ObjectCleaned
	case model.RoomActionVisit:
		obj.State = model.ObjectVisited
	case model.RoomActionPlace:
		if item == nil || item.PlayerID != actor.ID || item.Placed() {
			return nil, nil, ErrItemUnavailable
		}
		it := *item
		it.ObjectID = obj.ID
		it.PlacedPhase = g.CurrentPhase
		it.PlacedDay = g.CurrentDay
		placed = &it
		obj.State = model.ObjectPlaced
	default:
		return nil, nil, fmt.Errorf("%w: unknown action %q", ErrInvalidInput, action)
	}

	obj.LastAction = action
	obj.UpdatedAt = &now
	return &obj, placed, nil
}
