package app

import (
	"context"
	"fmt"
	"log"
	"thetraitors/internal/cache"
	"thetraitors/internal/config"
	"thetraitors/internal/game"
	"thetraitors/internal/repository"
	"thetraitors/internal/service"
	"thetraitors/internal/transport/rest"
	"thetraitors/internal/transport/rest/middleware"
	"thetraitors/internal/transport/ws"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// App wires storage, caches and services from a Config
type App struct {
	Config *config.Config

	GameRepo      repository.GameRepo
	NarrativeRepo repository.NarrativeRepo
	GameCache     cache.GameCache
	Locker        service.GameLocker

	Auth      *service.AuthService
	Games     *service.GameService
	Votes     *service.VoteService
	Phases    *service.PhaseService
	AutoPhase *service.AutoPhaseService
	Narrative *service.NarrativeService
	Rooms     *service.RoomService
	Whispers  *service.WhisperService
	Hub       *ws.Hub

	closers []func(context.Context) error
}

// New connects to the configured backends and builds every service
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	if err := a.initStorage(ctx); err != nil {
		a.Close(ctx)
		return nil, err
	}
	if err := a.initRedis(ctx); err != nil {
		a.Close(ctx)
		return nil, err
	}

	if cfg.UsesDefaultJWTSecret() {
		log.Println("Warning: auth.jwtsecret is the built-in default, set JWT_SECRET before exposing this server")
	}

	bounds := game.Bounds{MinPlayers: cfg.Game.MinPlayers, MaxPlayers: cfg.Game.MaxPlayers}
	narrator := service.NewGeminiNarrator(&cfg.AI)
	if cfg.AI.IsEnabled() {
		log.Printf("Narrator: Gemini (%s, %s)", cfg.AI.Models.Narration, cfg.AI.Models.RoomLog)
	} else {
		log.Println("Narrator: GEMINI_API_KEY not set, using fallback texts")
	}

	a.Auth = service.NewAuthService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	a.Games = service.NewGameService(a.GameRepo, a.GameCache, a.Auth, a.Locker, bounds)
	a.Votes = service.NewVoteService(a.GameRepo, a.GameCache)
	a.Narrative = service.NewNarrativeService(a.GameRepo, a.NarrativeRepo, narrator)
	a.Rooms = service.NewRoomService(a.GameRepo, a.NarrativeRepo, narrator)
	a.Whispers = service.NewWhisperService(a.GameRepo, a.NarrativeRepo)
	a.Phases = service.NewPhaseService(a.GameRepo, a.GameCache, a.Locker, game.NewResolver(nil), a.Narrative)
	a.Phases.SetNarrativeTimeout(cfg.Game.NarrativeTimeout)
	a.AutoPhase = service.NewAutoPhaseService(a.GameRepo, a.Phases, cfg.AutoPhase.Concurrency, cfg.Game.PhaseDuration)

	// Inject broadcaster (Hub implements service.Broadcaster)
	a.Hub = ws.NewHub()
	a.Games.SetBroadcaster(a.Hub)
	a.Votes.SetBroadcaster(a.Hub)
	a.Phases.SetBroadcaster(a.Hub)
	a.Narrative.SetBroadcaster(a.Hub)
	a.Rooms.SetBroadcaster(a.Hub)
	a.Whispers.SetBroadcaster(a.Hub)

	return a, nil
}

func (a *App) initStorage(ctx context.Context) error {
	if a.Config.Storage.Driver == "memory" {
		log.Println("Warning: using in-memory storage, games are lost on restart")
		store := repository.NewMemoryStore()
		a.GameRepo = store
		a.NarrativeRepo = store
		return nil
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(a.Config.Mongo.URI))
	if err != nil {
		return fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	a.closers = append(a.closers, client.Disconnect)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		return fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	log.Println("Connected to MongoDB")

	db := client.Database(a.Config.Mongo.Database)
	a.GameRepo = repository.NewGameRepo(db)
	a.NarrativeRepo = repository.NewNarrativeRepo(db)
	return nil
}

// initRedis sets up the state cache and lock. Redis is optional unless it is
// the configured lock backend.
func (a *App) initRedis(ctx context.Context) error {
	a.GameCache = cache.NewNoopGameCache()
	a.Locker = game.NewLockRegistry()
	needed := a.Config.Lock.Backend == "redis"

	if a.Config.Redis.Addr == "" {
		if needed {
			return fmt.Errorf("redis lock backend requires a redis address")
		}
		return nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     a.Config.Redis.Addr,
		Password: a.Config.Redis.Password,
		DB:       a.Config.Redis.DB,
	})
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		rdb.Close()
		if needed {
			return fmt.Errorf("failed to ping Redis: %w", err)
		}
		log.Printf("Warning: Redis unavailable (%v), game state cache disabled", err)
		return nil
	}
	a.closers = append(a.closers, func(context.Context) error { return rdb.Close() })
	log.Println("Connected to Redis")

	a.GameCache = cache.NewGameCache(rdb, a.Config.Game.StateCacheTTL)
	if needed {
		a.Locker = cache.NewPhaseLock(rdb, a.Config.Lock.TTL)
		log.Println("Using Redis phase lock")
	}
	return nil
}

// Container collects the router dependencies
func (a *App) Container() *rest.Container {
	var limiter *middleware.RateLimiter
	if a.Config.HTTP.RateLimit > 0 {
		limiter = middleware.NewRateLimiter(a.Config.HTTP.RateLimit, a.Config.HTTP.RateLimitBurst, a.Config.HTTP.TrustProxy)
	}
	return &rest.Container{
		AuthService:      a.Auth,
		GameService:      a.Games,
		VoteService:      a.Votes,
		PhaseService:     a.Phases,
		AutoPhaseService: a.AutoPhase,
		NarrativeService: a.Narrative,
		RoomService:      a.Rooms,
		WhisperService:   a.Whispers,
		WSHub:            a.Hub,
		RateLimiter:      limiter,
		MaxRequestSize:   a.Config.HTTP.MaxRequestSize,
		CronSecret:       a.Config.AutoPhase.CronSecret,
	}
}

// Scheduler returns the in-process auto-phase loop, or nil when disabled
func (a *App) Scheduler() *service.Scheduler {
	if a.Config.AutoPhase.Interval <= 0 {
		return nil
	}
	return service.NewScheduler(a.AutoPhase, a.Config.AutoPhase.Interval)
}

// Close waits for background narrative work, then releases backend
// connections in reverse order
func (a *App) Close(ctx context.Context) {
	if a.Phases != nil {
		if err := a.Phases.Wait(ctx); err != nil {
			log.Printf("Warning: narrative work still running at close: %v", err)
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			log.Printf("Warning: close failed: %v", err)
		}
	}
	a.closers = nil
}
