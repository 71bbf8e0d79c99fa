package repository

import (
	"context"
	"fmt"
	"log"
	"thetraitors/internal/game"
	"thetraitors/internal/model"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// GameRepo persists games, their players and votes.
// Getters return nil, nil when the record does not exist.
type GameRepo interface {
	CreateGame(ctx context.Context, g *model.Game, host *model.Player) error
	GetGame(ctx context.Context, id string) (*model.Game, error)
	GetGameByCode(ctx context.Context, code string) (*model.Game, error)
	// AddPlayer inserts p into a WAITING game holding fewer than maxPlayers players
	AddPlayer(ctx context.Context, p *model.Player, maxPlayers int) error
	ListPlayers(ctx context.Context, gameID string) ([]model.Player, error)
	UpsertVote(ctx context.Context, v *model.Vote) error
	ListVotes(ctx context.Context, gameID string, phase model.Phase, day int) ([]model.Vote, error)
	ListAllVotes(ctx context.Context, gameID string) ([]model.Vote, error)
	CommitStart(ctx context.Context, c *model.StartCommit) error
	CommitPhase(ctx context.Context, c *model.PhaseCommit) error
	UpdateAutoPhase(ctx context.Context, gameID string, enabled bool, d time.Duration, phaseStartedAt *time.Time) error
	ListAutoPhaseGames(ctx context.Context) ([]model.Game, error)
}

type gameRepo struct {
	client  *mongo.Client
	games   *mongo.Collection
	players *mongo.Collection
	votes   *mongo.Collection
}

// NewGameRepo creates a Mongo-backed game repository. Commits use
// multi-document transactions, so the server must be a replica set.
func NewGameRepo(db *mongo.Database) GameRepo {
	repo := &gameRepo{
		client:  db.Client(),
		games:   db.Collection("games"),
		players: db.Collection("players"),
		votes:   db.Collection("votes"),
	}
	repo.ensureIndexes(context.Background())
	return repo
}

func (r *gameRepo) ensureIndexes(ctx context.Context) {
	createIndex(ctx, r.games, bson.D{{Key: "code", Value: 1}}, true)
	createIndex(ctx, r.games, bson.D{
		{Key: "status", Value: 1},
		{Key: "autoPhaseEnabled", Value: 1},
	}, false)

	createIndex(ctx, r.players, bson.D{
		{Key: "gameId", Value: 1},
		{Key: "nameKey", Value: 1},
	}, true)

	createIndex(ctx, r.votes, bson.D{
		{Key: "gameId", Value: 1},
		{Key: "voterId", Value: 1},
		{Key: "phase", Value: 1},
		{Key: "day", Value: 1},
	}, true)
	createIndex(ctx, r.votes, bson.D{
		{Key: "gameId", Value: 1},
		{Key: "phase", Value: 1},
		{Key: "day", Value: 1},
	}, false)

	log.Println("Game indexes ensured")
}

func createIndex(ctx context.Context, coll *mongo.Collection, keys bson.D, unique bool) {
	opts := options.Index().SetUnique(unique)
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: keys, Options: opts})
	if err != nil {
		log.Printf("Warning: failed to create index on %s: %v", coll.Name(), err)
	}
}

func (r *gameRepo) CreateGame(ctx context.Context, g *model.Game, host *model.Player) error {
	return r.inTransaction(ctx, func(sc mongo.SessionContext) error {
		if _, err := r.games.InsertOne(sc, g); err != nil {
			return err
		}
		_, err := r.players.InsertOne(sc, host)
		return err
	})
}

func (r *gameRepo) GetGame(ctx context.Context, id string) (*model.Game, error) {
	return r.findGame(ctx, bson.M{"_id": id})
}

func (r *gameRepo) GetGameByCode(ctx context.Context, code string) (*model.Game, error) {
	return r.findGame(ctx, bson.M{"code": code})
}

func (r *gameRepo) findGame(ctx context.Context, filter bson.M) (*model.Game, error) {
	var g model.Game
	err := r.games.FindOne(ctx, filter).Decode(&g)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &g, nil
}

func (r *gameRepo) AddPlayer(ctx context.Context, p *model.Player, maxPlayers int) error {
	return r.inTransaction(ctx, func(sc mongo.SessionContext) error {
		// writing the game document makes concurrent joins and starts conflict,
		// so one of them is retried and sees the other's result
		res, err := r.games.UpdateOne(sc,
			bson.M{"_id": p.GameID, "status": model.GameWaiting},
			bson.M{"$inc": bson.M{"rosterVersion": 1}})
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			return game.ErrGameNotWaiting
		}

		n, err := r.players.CountDocuments(sc, bson.M{"gameId": p.GameID})
		if err != nil {
			return err
		}
		if int(n) >= maxPlayers {
			return game.ErrGameFull
		}

		_, err = r.players.InsertOne(sc, p)
		if mongo.IsDuplicateKeyError(err) {
			return game.ErrDuplicateName
		}
		return err
	})
}

func (r *gameRepo) ListPlayers(ctx context.Context, gameID string) ([]model.Player, error) {
	opts := options.Find().SetSort(bson.D{{Key: "joinedAt", Value: 1}})
	cursor, err := r.players.Find(ctx, bson.M{"gameId": gameID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var players []model.Player
	if err := cursor.All(ctx, &players); err != nil {
		return nil, err
	}
	return players, nil
}

func (r *gameRepo) UpsertVote(ctx context.Context, v *model.Vote) error {
	filter := bson.M{
		"gameId":  v.GameID,
		"voterId": v.VoterID,
		"phase":   v.Phase,
		"day":     v.Day,
	}
	update := bson.M{
		"$set": bson.M{
			"targetId":  v.TargetID,
			"updatedAt": v.UpdatedAt,
		},
		"$setOnInsert": bson.M{
			"_id":       v.ID,
			"createdAt": v.CreatedAt,
		},
	}
	_, err := r.votes.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

func (r *gameRepo) ListVotes(ctx context.Context, gameID string, phase model.Phase, day int) ([]model.Vote, error) {
	return r.findVotes(ctx, bson.M{"gameId": gameID, "phase": phase, "day": day})
}

func (r *gameRepo) ListAllVotes(ctx context.Context, gameID string) ([]model.Vote, error) {
	return r.findVotes(ctx, bson.M{"gameId": gameID})
}

func (r *gameRepo) findVotes(ctx context.Context, filter bson.M) ([]model.Vote, error) {
	opts := options.Find().SetSort(bson.D{{Key: "day", Value: 1}, {Key: "createdAt", Value: 1}})
	cursor, err := r.votes.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var votes []model.Vote
	if err := cursor.All(ctx, &votes); err != nil {
		return nil, err
	}
	return votes, nil
}

func (r *gameRepo) CommitStart(ctx context.Context, c *model.StartCommit) error {
	g := c.Game
	return r.inTransaction(ctx, func(sc mongo.SessionContext) error {
		// a player who joined after the roster was read would have no role
		n, err := r.players.CountDocuments(sc, bson.M{"gameId": g.ID})
		if err != nil {
			return err
		}
		if int(n) != len(c.Roles) {
			return fmt.Errorf("%w: roster changed while starting", game.ErrLockContention)
		}

		res, err := r.games.UpdateOne(sc,
			bson.M{"_id": g.ID, "status": model.GameWaiting},
			bson.M{"$set": bson.M{
				"status":         g.Status,
				"currentPhase":   g.CurrentPhase,
				"currentDay":     g.CurrentDay,
				"startedAt":      g.StartedAt,
				"phaseStartedAt": g.PhaseStartedAt,
			}})
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			return game.ErrGameNotWaiting
		}

		for playerID, role := range c.Roles {
			if _, err := r.players.UpdateOne(sc,
				bson.M{"_id": playerID, "gameId": g.ID},
				bson.M{"$set": bson.M{"role": role}}); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *gameRepo) CommitPhase(ctx context.Context, c *model.PhaseCommit) error {
	g := c.Game
	return r.inTransaction(ctx, func(sc mongo.SessionContext) error {
		res, err := r.games.UpdateOne(sc,
			bson.M{
				"_id":          g.ID,
				"status":       model.GamePlaying,
				"currentPhase": c.FromPhase,
				"currentDay":   c.FromDay,
			},
			bson.M{"$set": bson.M{
				"status":           g.Status,
				"currentPhase":     g.CurrentPhase,
				"currentDay":       g.CurrentDay,
				"winner":           g.Winner,
				"autoPhaseEnabled": g.AutoPhaseEnabled,
				"phaseStartedAt":   g.PhaseStartedAt,
				"endedAt":          g.EndedAt,
			}})
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			return fmt.Errorf("%w: game already left %s %d", game.ErrLockContention, c.FromPhase, c.FromDay)
		}

		if e := c.Eliminated; e != nil {
			res, err := r.players.UpdateOne(sc,
				bson.M{"_id": e.ID, "gameId": g.ID, "isAlive": true},
				bson.M{"$set": bson.M{
					"isAlive":         false,
					"eliminatedAt":    e.EliminatedAt,
					"eliminatedPhase": e.EliminatedPhase,
					"eliminatedDay":   e.EliminatedDay,
				}})
			if err != nil {
				return err
			}
			if res.MatchedCount == 0 {
				return fmt.Errorf("%w: player %s is not alive", game.ErrMalformedVotes, e.ID)
			}
		}
		return nil
	})
}

func (r *gameRepo) UpdateAutoPhase(ctx context.Context, gameID string, enabled bool, d time.Duration, phaseStartedAt *time.Time) error {
	res, err := r.games.UpdateOne(ctx,
		bson.M{"_id": gameID},
		bson.M{"$set": bson.M{
			"autoPhaseEnabled": enabled,
			"phaseDuration":    d,
			"phaseStartedAt":   phaseStartedAt,
		}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return game.ErrGameNotFound
	}
	return nil
}

func (r *gameRepo) ListAutoPhaseGames(ctx context.Context) ([]model.Game, error) {
	cursor, err := r.games.Find(ctx, bson.M{
		"status":           model.GamePlaying,
		"autoPhaseEnabled": true,
		"phaseStartedAt":   bson.M{"$ne": nil},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var games []model.Game
	if err := cursor.All(ctx, &games); err != nil {
		return nil, err
	}
	return games, nil
}

func (r *gameRepo) inTransaction(ctx context.Context, fn func(sc mongo.SessionContext) error) error {
	return inTransaction(ctx, r.client, fn)
}

// inTransaction runs fn inside a Mongo transaction; either every write in fn
// is applied or none is.
func inTransaction(ctx context.Context, client *mongo.Client, fn func(sc mongo.SessionContext) error) error {
	sess, err := client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}
