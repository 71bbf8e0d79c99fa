package cache

import (
	"context"
	"fmt"
	"log"
	"thetraitors/internal/game"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only if it is still owned by the caller
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// PhaseLock is a per-game lock shared by every server process through Redis.
// Like the in-process registry it fails fast instead of waiting. The TTL
// bounds how long a crashed holder can block a game.
type PhaseLock struct {
	client *redis.Client
	ttl    time.Duration
}

// NewPhaseLock creates a Redis-backed game lock
func NewPhaseLock(client *redis.Client, ttl time.Duration) *PhaseLock {
	return &PhaseLock{
		client: client,
		ttl:    ttl,
	}
}

func (l *PhaseLock) key(gameID string) string {
	return fmt.Sprintf("game:%s:lock", gameID)
}

// WithLock runs fn while holding the lock for gameID
func (l *PhaseLock) WithLock(ctx context.Context, gameID string, fn func() error) error {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key(gameID), token, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to acquire game lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: game %s", game.ErrLockContention, gameID)
	}
	defer func() {
		// release even if the request context was cancelled
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, l.client, []string{l.key(gameID)}, token).Err(); err != nil {
			log.Printf("Warning: failed to release lock for game %s: %v", gameID, err)
		}
	}()
	return fn()
}
