package service

import (
	"context"
	"testing"
	"thetraitors/internal/model"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_SweepsUntilCancelled(t *testing.T) {
	f := newFixture(t)
	gameID, ids := f.startedGame(t, 5)
	enableAutoPhase(t, f, gameID, ids[0], 1)
	castVotes(t, f, gameID, map[string]string{ids[1]: ids[2], ids[3]: ids[2]})
	f.clock.Advance(time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		NewScheduler(f.autoPhase, 5*time.Millisecond).Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return f.mustGame(t, gameID).CurrentPhase == model.PhaseNight
	}, time.Second, 5*time.Millisecond)

	// later ticks find nothing due because the timer was reset
	time.Sleep(30 * time.Millisecond)
	g := f.mustGame(t, gameID)
	assert.Equal(t, model.PhaseNight, g.CurrentPhase)
	assert.Equal(t, 1, g.CurrentDay)
	assert.False(t, f.mustPlayer(t, gameID, ids[2]).IsAlive)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
}
