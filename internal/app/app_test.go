package app

import (
	"context"
	"testing"
	"thetraitors/internal/config"
	"thetraitors/internal/game"
	"thetraitors/internal/repository"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryConfig(t *testing.T) *config.Config {
	t.Setenv("STORAGE_DRIVER", "memory")
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Redis.Addr = ""
	return cfg
}

func TestNew_MemoryBackends(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.AutoPhase.Interval = time.Minute
	ctx := context.Background()

	a, err := New(ctx, cfg)
	require.NoError(t, err)
	defer a.Close(ctx)

	assert.IsType(t, &repository.MemoryStore{}, a.GameRepo)
	assert.IsType(t, &game.LockRegistry{}, a.Locker)
	assert.NotNil(t, a.Scheduler())

	c := a.Container()
	assert.Same(t, a.Games, c.GameService)
	assert.Same(t, a.Rooms, c.RoomService)
	assert.Same(t, a.Whispers, c.WhisperService)
	assert.NotNil(t, c.RateLimiter)

	created, err := a.Games.CreateGame(ctx, "Host")
	require.NoError(t, err)
	state, err := a.Games.GetState(ctx, created.GameID, created.HostID)
	require.NoError(t, err)
	assert.Len(t, state.Players, 1)
}

func TestNew_RedisLockNeedsAddress(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.Lock.Backend = "redis"

	_, err := New(context.Background(), cfg)
	assert.Error(t, err)
}

func TestScheduler_DisabledByZeroInterval(t *testing.T) {
	a := &App{Config: memoryConfig(t)}
	a.Config.AutoPhase.Interval = 0
	assert.Nil(t, a.Scheduler())
}
