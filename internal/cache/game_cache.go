package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"thetraitors/internal/model"
	"time"

	"github.com/redis/go-redis/v9"
)

// GameCache holds short-lived snapshots of game state for polling clients.
// Every mutation invalidates the snapshot, so the TTL only bounds staleness
// when an invalidation is lost.
type GameCache interface {
	Get(ctx context.Context, gameID string) (*model.GameSnapshot, error)
	Set(ctx context.Context, snap *model.GameSnapshot) error
	Invalidate(ctx context.Context, gameID string) error
}

type gameCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewGameCache creates a Redis-backed game cache
func NewGameCache(client *redis.Client, ttl time.Duration) GameCache {
	return &gameCache{
		client: client,
		ttl:    ttl,
	}
}

func (c *gameCache) key(gameID string) string {
	return fmt.Sprintf("game:%s:snapshot", gameID)
}

func (c *gameCache) Get(ctx context.Context, gameID string) (*model.GameSnapshot, error) {
	data, err := c.client.Get(ctx, c.key(gameID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var snap model.GameSnapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (c *gameCache) Set(ctx context.Context, snap *model.GameSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(snap.Game.ID), data, c.ttl).Err()
}

func (c *gameCache) Invalidate(ctx context.Context, gameID string) error {
	return c.client.Del(ctx, c.key(gameID)).Err()
}

type noopGameCache struct{}

// NewNoopGameCache returns a cache that never stores anything, for runs without Redis
func NewNoopGameCache() GameCache {
	return noopGameCache{}
}

func (noopGameCache) Get(context.Context, string) (*model.GameSnapshot, error) { return nil, nil }
func (noopGameCache) Set(context.Context, *model.GameSnapshot) error           { return nil }
func (noopGameCache) Invalidate(context.Context, string) error                 { return nil }
