package repository

import (
	"context"
	"errors"
	"thetraitors/internal/game"
	"thetraitors/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrDuplicate is returned when a per-phase record already exists
var ErrDuplicate = errors.New("record already exists")

// NarrativeRepo persists generated story content and the side games around
// it. Narrations and chaos events are unique per (game, phase, day); missions
// per (game, player, phase, day); whispers per (game, sender, phase, day).
type NarrativeRepo interface {
	GetNarration(ctx context.Context, gameID string, phase model.Phase, day int) (*model.Narration, error)
	InsertNarration(ctx context.Context, n *model.Narration) error
	ListNarrations(ctx context.Context, gameID string) ([]model.Narration, error)

	ListMissions(ctx context.Context, gameID string, phase model.Phase, day int) ([]model.Mission, error)
	ListPlayerMissions(ctx context.Context, gameID, playerID string) ([]model.Mission, error)
	InsertMissions(ctx context.Context, missions []model.Mission) error
	GetMission(ctx context.Context, id string) (*model.Mission, error)
	SetMissionCompleted(ctx context.Context, id string, completed bool) error

	GetChaosEvent(ctx context.Context, gameID string, phase model.Phase, day int) (*model.ChaosEvent, error)
	InsertChaosEvent(ctx context.Context, e *model.ChaosEvent) error
	ListChaosEvents(ctx context.Context, gameID string) ([]model.ChaosEvent, error)

	ListRoomLogs(ctx context.Context, gameID string) ([]model.RoomLogEntry, error)

	// InsertRoom stores a game's objects and items; ErrDuplicate if the room exists
	InsertRoom(ctx context.Context, objects []model.RoomObject, items []model.PersonalItem) error
	ListRoomObjects(ctx context.Context, gameID string) ([]model.RoomObject, error)
	GetRoomObject(ctx context.Context, id string) (*model.RoomObject, error)
	ListPersonalItems(ctx context.Context, gameID string) ([]model.PersonalItem, error)
	CommitRoomInteraction(ctx context.Context, c *model.RoomInteractionCommit) error

	InsertWhisper(ctx context.Context, w *model.Whisper) error
	GetWhisper(ctx context.Context, id string) (*model.Whisper, error)
	ListWhispers(ctx context.Context, gameID string) ([]model.Whisper, error)
	MarkWhisperLeaked(ctx context.Context, id string) error
}

type narrativeRepo struct {
	client      *mongo.Client
	narrations  *mongo.Collection
	missions    *mongo.Collection
	chaos       *mongo.Collection
	roomLogs    *mongo.Collection
	roomObjects *mongo.Collection
	items       *mongo.Collection
	whispers    *mongo.Collection
}

// NewNarrativeRepo creates a Mongo-backed narrative repository
func NewNarrativeRepo(db *mongo.Database) NarrativeRepo {
	repo := &narrativeRepo{
		client:      db.Client(),
		narrations:  db.Collection("narrations"),
		missions:    db.Collection("missions"),
		chaos:       db.Collection("chaos_events"),
		roomLogs:    db.Collection("room_logs"),
		roomObjects: db.Collection("room_objects"),
		items:       db.Collection("personal_items"),
		whispers:    db.Collection("whispers"),
	}
	repo.ensureIndexes(context.Background())
	return repo
}

func (r *narrativeRepo) ensureIndexes(ctx context.Context) {
	phaseKey := bson.D{
		{Key: "gameId", Value: 1},
		{Key: "phase", Value: 1},
		{Key: "day", Value: 1},
	}
	createIndex(ctx, r.narrations, phaseKey, true)
	createIndex(ctx, r.chaos, phaseKey, true)
	createIndex(ctx, r.missions, bson.D{
		{Key: "gameId", Value: 1},
		{Key: "playerId", Value: 1},
		{Key: "phase", Value: 1},
		{Key: "day", Value: 1},
	}, true)
	createIndex(ctx, r.roomLogs, bson.D{
		{Key: "gameId", Value: 1},
		{Key: "createdAt", Value: 1},
	}, false)
	// one interaction per player, object and phase
	createIndex(ctx, r.roomLogs, bson.D{
		{Key: "gameId", Value: 1},
		{Key: "objectId", Value: 1},
		{Key: "playerId", Value: 1},
		{Key: "phase", Value: 1},
		{Key: "day", Value: 1},
	}, true)
	createIndex(ctx, r.roomObjects, bson.D{
		{Key: "gameId", Value: 1},
		{Key: "name", Value: 1},
	}, true)
	createIndex(ctx, r.items, bson.D{
		{Key: "gameId", Value: 1},
		{Key: "playerId", Value: 1},
		{Key: "name", Value: 1},
	}, true)
	createIndex(ctx, r.whispers, bson.D{
		{Key: "gameId", Value: 1},
		{Key: "fromPlayerId", Value: 1},
		{Key: "phase", Value: 1},
		{Key: "day", Value: 1},
	}, true)
}

func phaseFilter(gameID string, phase model.Phase, day int) bson.M {
	return bson.M{"gameId": gameID, "phase": phase, "day": day}
}

func chronological() *options.FindOptions {
	return options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
}

func (r *narrativeRepo) GetNarration(ctx context.Context, gameID string, phase model.Phase, day int) (*model.Narration, error) {
	var n model.Narration
	err := r.narrations.FindOne(ctx, phaseFilter(gameID, phase, day)).Decode(&n)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &n, nil
}

func (r *narrativeRepo) InsertNarration(ctx context.Context, n *model.Narration) error {
	_, err := r.narrations.InsertOne(ctx, n)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}

func (r *narrativeRepo) ListNarrations(ctx context.Context, gameID string) ([]model.Narration, error) {
	var out []model.Narration
	if err := findAll(ctx, r.narrations, bson.M{"gameId": gameID}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *narrativeRepo) ListMissions(ctx context.Context, gameID string, phase model.Phase, day int) ([]model.Mission, error) {
	var out []model.Mission
	if err := findAll(ctx, r.missions, phaseFilter(gameID, phase, day), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *narrativeRepo) ListPlayerMissions(ctx context.Context, gameID, playerID string) ([]model.Mission, error) {
	var out []model.Mission
	if err := findAll(ctx, r.missions, bson.M{"gameId": gameID, "playerId": playerID}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *narrativeRepo) InsertMissions(ctx context.Context, missions []model.Mission) error {
	err := insertAll(ctx, r.missions, missions)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}

func (r *narrativeRepo) GetMission(ctx context.Context, id string) (*model.Mission, error) {
	var m model.Mission
	err := r.missions.FindOne(ctx, bson.M{"_id": id}).Decode(&m)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

func (r *narrativeRepo) SetMissionCompleted(ctx context.Context, id string, completed bool) error {
	_, err := r.missions.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"completed": completed}})
	return err
}

func (r *narrativeRepo) GetChaosEvent(ctx context.Context, gameID string, phase model.Phase, day int) (*model.ChaosEvent, error) {
	var e model.ChaosEvent
	err := r.chaos.FindOne(ctx, phaseFilter(gameID, phase, day)).Decode(&e)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

func (r *narrativeRepo) InsertChaosEvent(ctx context.Context, e *model.ChaosEvent) error {
	_, err := r.chaos.InsertOne(ctx, e)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}

func (r *narrativeRepo) ListChaosEvents(ctx context.Context, gameID string) ([]model.ChaosEvent, error) {
	var out []model.ChaosEvent
	if err := findAll(ctx, r.chaos, bson.M{"gameId": gameID}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *narrativeRepo) ListRoomLogs(ctx context.Context, gameID string) ([]model.RoomLogEntry, error) {
	var out []model.RoomLogEntry
	if err := findAll(ctx, r.roomLogs, bson.M{"gameId": gameID}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *narrativeRepo) InsertRoom(ctx context.Context, objects []model.RoomObject, items []model.PersonalItem) error {
	err := inTransaction(ctx, r.client, func(sc mongo.SessionContext) error {
		if err := insertAll(sc, r.roomObjects, objects); err != nil {
			return err
		}
		return insertAll(sc, r.items, items)
	})
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}

func (r *narrativeRepo) ListRoomObjects(ctx context.Context, gameID string) ([]model.RoomObject, error) {
	cursor, err := r.roomObjects.Find(ctx, bson.M{"gameId": gameID}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []model.RoomObject
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *narrativeRepo) GetRoomObject(ctx context.Context, id string) (*model.RoomObject, error) {
	var o model.RoomObject
	err := r.roomObjects.FindOne(ctx, bson.M{"_id": id}).Decode(&o)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &o, nil
}

func (r *narrativeRepo) ListPersonalItems(ctx context.Context, gameID string) ([]model.PersonalItem, error) {
	cursor, err := r.items.Find(ctx, bson.M{"gameId": gameID}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []model.PersonalItem
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *narrativeRepo) CommitRoomInteraction(ctx context.Context, c *model.RoomInteractionCommit) error {
	o := c.Object
	return inTransaction(ctx, r.client, func(sc mongo.SessionContext) error {
		if _, err := r.roomLogs.InsertOne(sc, c.Log); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return game.ErrAlreadyInteracted
			}
			return err
		}

		res, err := r.roomObjects.UpdateOne(sc,
			bson.M{"_id": o.ID, "gameId": o.GameID},
			bson.M{"$set": bson.M{
				"state":      o.State,
				"lastAction": o.LastAction,
				"updatedAt":  o.UpdatedAt,
			}})
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			return game.ErrObjectNotFound
		}

		if it := c.Item; it != nil {
			res, err := r.items.UpdateOne(sc,
				bson.M{"_id": it.ID, "playerId": it.PlayerID, "objectId": bson.M{"$in": bson.A{nil, ""}}},
				bson.M{"$set": bson.M{
					"objectId":    it.ObjectID,
					"placedPhase": it.PlacedPhase,
					"placedDay":   it.PlacedDay,
				}})
			if err != nil {
				return err
			}
			if res.MatchedCount == 0 {
				return game.ErrItemUnavailable
			}
		}
		return nil
	})
}

func (r *narrativeRepo) InsertWhisper(ctx context.Context, w *model.Whisper) error {
	_, err := r.whispers.InsertOne(ctx, w)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}

func (r *narrativeRepo) GetWhisper(ctx context.Context, id string) (*model.Whisper, error) {
	var w model.Whisper
	err := r.whispers.FindOne(ctx, bson.M{"_id": id}).Decode(&w)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &w, nil
}

func (r *narrativeRepo) ListWhispers(ctx context.Context, gameID string) ([]model.Whisper, error) {
	var out []model.Whisper
	if err := findAll(ctx, r.whispers, bson.M{"gameId": gameID}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *narrativeRepo) MarkWhisperLeaked(ctx context.Context, id string) error {
	_, err := r.whispers.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"isLeaked": true}})
	return err
}

func insertAll[T any](ctx context.Context, coll *mongo.Collection, records []T) error {
	if len(records) == 0 {
		return nil
	}
	docs := make([]interface{}, len(records))
	for i := range records {
		docs[i] = records[i]
	}
	_, err := coll.InsertMany(ctx, docs)
	return err
}

// findAll decodes every document matching filter, oldest first, into out
func findAll(ctx context.Context, coll *mongo.Collection, filter bson.M, out interface{}) error {
	cursor, err := coll.Find(ctx, filter, chronological())
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)
	return cursor.All(ctx, out)
}
