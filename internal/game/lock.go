package game

import (
	"context"
	"fmt"
	"sync"
)

// LockRegistry allows at most one in-flight operation per game id in this
// process. A second caller fails fast with ErrLockContention rather than
// queueing. Entries are removed on release so the map only holds games that
// are being worked on right now.
type LockRegistry struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewLockRegistry creates an empty lock registry
func NewLockRegistry() *LockRegistry {
	return &LockRegistry{held: make(map[string]struct{})}
}

// WithLock runs fn while holding the lock for gameID. The lock is released
// when fn returns, errors or panics.
func (l *LockRegistry) WithLock(_ context.Context, gameID string, fn func() error) error {
	if !l.tryAcquire(gameID) {
		return fmt.Errorf("%w: game %s", ErrLockContention, gameID)
	}
	defer l.release(gameID)
	return fn()
}

// Held returns the number of locks currently held
func (l *LockRegistry) Held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.held)
}

func (l *LockRegistry) tryAcquire(gameID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[gameID]; ok {
		return false
	}
	l.held[gameID] = struct{}{}
	return true
}

func (l *LockRegistry) release(gameID string) {
	l.mu.Lock()
	delete(l.held, gameID)
	l.mu.Unlock()
}
