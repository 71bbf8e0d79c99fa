package game

import (
	"fmt"
	"testing"
	"thetraitors/internal/model"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func TestNewRoom(t *testing.T) {
	players := []model.Player{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	objects, items := NewRoom("g1", players, nil, sequentialIDs())

	require.Len(t, objects, len(RoomFixtures))
	for _, o := range objects {
		assert.Equal(t, "g1", o.GameID)
		assert.Equal(t, model.ObjectUntouched, o.State)
	}

	require.Len(t, items, len(players)*ItemsPerPlayer)
	byPlayer := map[string]map[string]bool{}
	for _, it := range items {
		if byPlayer[it.PlayerID] == nil {
			byPlayer[it.PlayerID] = map[string]bool{}
		}
		assert.False(t, byPlayer[it.PlayerID][it.Name], "player %s dealt %s twice", it.PlayerID, it.Name)
		byPlayer[it.PlayerID][it.Name] = true
		assert.False(t, it.Placed())
	}
	assert.Len(t, byPlayer, 3)

	// without shuffling everyone gets the head of the pool
	_, items = NewRoom("g1", players[:1], func(int, func(i, j int)) {}, sequentialIDs())
	for i, it := range items {
		assert.Equal(t, PersonalItemNames[i], it.Name)
	}
}

func TestApplyRoomAction(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	g := &model.Game{ID: "g1", Status: model.GamePlaying, CurrentPhase: model.PhaseNight, CurrentDay: 2}
	alice := &model.Player{ID: "alice", IsAlive: true}
	obj := model.RoomObject{ID: "o1", GameID: "g1", Name: "Antique Vase", State: model.ObjectUntouched}
	item := &model.PersonalItem{ID: "i1", GameID: "g1", PlayerID: "alice", Name: "Ink Vial"}

	updated, placed, err := ApplyRoomAction(g, alice, obj, model.RoomActionDestroy, nil, nil, now)
	require.NoError(t, err)
	assert.Nil(t, placed)
	assert.Equal(t, model.ObjectDestroyed, updated.State)
	assert.Equal(t, model.RoomActionDestroy, updated.LastAction)
	assert.Equal(t, model.ObjectUntouched, obj.State, "input object is not modified")

	updated, placed, err = ApplyRoomAction(g, alice, obj, model.RoomActionPlace, item, nil, now)
	require.NoError(t, err)
	require.NotNil(t, placed)
	assert.Equal(t, model.ObjectPlaced, updated.State)
	assert.Equal(t, "o1", placed.ObjectID)
	assert.Equal(t, model.PhaseNight, placed.PlacedPhase)
	assert.False(t, item.Placed(), "input item is not modified")

	// alice touched o1 this phase, then bob did
	touched := []model.RoomLogEntry{
		{ObjectID: "o1", PlayerID: "alice", Phase: model.PhaseNight, Day: 2},
		{ObjectID: "o1", PlayerID: "bob", Phase: model.PhaseNight, Day: 2},
	}
	yesterday := []model.RoomLogEntry{{ObjectID: "o1", PlayerID: "alice", Phase: model.PhaseDay, Day: 2}}
	otherObject := []model.RoomLogEntry{{ObjectID: "o2", PlayerID: "alice", Phase: model.PhaseNight, Day: 2}}
	placedItem := *item
	placedItem.ObjectID = "o2"

	tests := []struct {
		name   string
		game   *model.Game
		actor  *model.Player
		obj    model.RoomObject
		action model.RoomAction
		item   *model.PersonalItem
		log    []model.RoomLogEntry
		want   error
	}{
		{"game not playing", &model.Game{ID: "g1", Status: model.GameEnded}, alice, obj, model.RoomActionVisit, nil, nil, ErrGameNotPlaying},
		{"unknown player", g, nil, obj, model.RoomActionVisit, nil, nil, ErrPlayerNotFound},
		{"dead player", g, &model.Player{ID: "bob"}, obj, model.RoomActionVisit, nil, nil, ErrPlayerEliminated},
		{"other game's object", g, alice, model.RoomObject{ID: "o9", GameID: "g2"}, model.RoomActionVisit, nil, nil, ErrObjectNotFound},
		{"second touch this phase", g, alice, obj, model.RoomActionClean, nil, touched, ErrAlreadyInteracted},
		{"unknown action", g, alice, obj, "BURN", nil, nil, ErrInvalidInput},
		{"place without item", g, alice, obj, model.RoomActionPlace, nil, nil, ErrItemUnavailable},
		{"place someone else's item", g, alice, obj, model.RoomActionPlace, &model.PersonalItem{ID: "i2", PlayerID: "bob"}, nil, ErrItemUnavailable},
		{"place item twice", g, alice, obj, model.RoomActionPlace, &placedItem, nil, ErrItemUnavailable},
		{"touched in an earlier phase", g, alice, obj, model.RoomActionClean, nil, yesterday, nil},
		{"touched another object", g, alice, obj, model.RoomActionClean, nil, otherObject, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ApplyRoomAction(tt.game, tt.actor, tt.obj, tt.action, tt.item, tt.log, now)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
