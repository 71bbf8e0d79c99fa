package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"thetraitors/internal/game"
	"thetraitors/internal/model"
	"thetraitors/internal/repository"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func castVotes(t *testing.T, f *fixture, gameID string, votes map[string]string) {
	t.Helper()
	for voter, target := range votes {
		_, err := f.votes.CastVote(context.Background(), gameID, voter, target)
		require.NoError(t, err)
	}
}

func TestPhaseService_PluralityThenTraitorWin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	gameID, ids := f.startedGame(t, 4)
	traitor := ids[0]

	// day 1: 2-1-1
	castVotes(t, f, gameID, map[string]string{
		ids[1]: ids[2],
		ids[3]: ids[2],
		ids[0]: ids[1],
		ids[2]: ids[3],
	})
	res, err := f.phases.AdvancePhase(ctx, gameID, ids[0])
	require.NoError(t, err)
	assert.Equal(t, ids[2], res.EliminatedID)
	assert.Equal(t, model.RoleFaithful, res.EliminatedRole)
	assert.False(t, res.TieBroken)
	assert.False(t, res.Ended)
	assert.Equal(t, model.PhaseNight, res.Phase)
	assert.Equal(t, 1, res.Day)
	assert.Equal(t, map[string]int{ids[1]: 1, ids[2]: 2, ids[3]: 1}, res.Tally)
	assert.False(t, f.mustPlayer(t, gameID, ids[2]).IsAlive)

	// night 1: the traitor takes one of the two remaining faithfuls
	castVotes(t, f, gameID, map[string]string{traitor: ids[1]})
	res, err = f.phases.AdvancePhase(ctx, gameID, ids[0])
	require.NoError(t, err)
	assert.Equal(t, ids[1], res.EliminatedID)
	assert.True(t, res.Ended)
	assert.Equal(t, model.WinnerTraitors, res.Winner)

	g := f.mustGame(t, gameID)
	assert.Equal(t, model.GameEnded, g.Status)
	assert.Equal(t, model.WinnerTraitors, g.Winner)
	assert.Equal(t, model.PhaseNight, g.CurrentPhase, "phase is frozen on end")
	assert.Equal(t, 1, g.CurrentDay)
	require.NotNil(t, g.EndedAt)
	assert.Equal(t, 1, f.events.count(EventGameEnded))

	_, err = f.phases.AdvancePhase(ctx, gameID, ids[0])
	assert.ErrorIs(t, err, game.ErrGameNotPlaying)
}

func TestPhaseService_FaithfulsWinWhenTraitorEliminated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	gameID, ids := f.startedGame(t, 4)

	castVotes(t, f, gameID, map[string]string{
		ids[1]: ids[0],
		ids[2]: ids[0],
		ids[3]: ids[0],
	})
	res, err := f.phases.AdvancePhase(ctx, gameID, ids[0])
	require.NoError(t, err)
	assert.True(t, res.Ended)
	assert.Equal(t, model.WinnerFaithfuls, res.Winner)
	assert.Equal(t, model.PhaseDay, f.mustGame(t, gameID).CurrentPhase)
}

func TestPhaseService_TieBreakPicksFromTiedSet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	gameID, ids := f.startedGame(t, 7)

	// 2-2-2 across ids[4], ids[5], ids[6]
	castVotes(t, f, gameID, map[string]string{
		ids[0]: ids[4],
		ids[1]: ids[4],
		ids[2]: ids[5],
		ids[3]: ids[5],
		ids[4]: ids[6],
		ids[5]: ids[6],
	})
	res, err := f.phases.AdvancePhase(ctx, gameID, ids[0])
	require.NoError(t, err)
	assert.True(t, res.TieBroken)
	assert.Contains(t, []string{ids[4], ids[5], ids[6]}, res.EliminatedID)

	dead := 0
	for _, id := range ids {
		if !f.mustPlayer(t, gameID, id).IsAlive {
			dead++
		}
	}
	assert.Equal(t, 1, dead)
}

func TestPhaseService_NoVotesNoElimination(t *testing.T) {
	f := newFixture(t)
	gameID, ids := f.startedGame(t, 4)

	res, err := f.phases.AdvancePhase(context.Background(), gameID, ids[0])
	require.NoError(t, err)
	assert.Empty(t, res.EliminatedID)
	assert.Equal(t, model.PhaseNight, res.Phase)

	res, err = f.phases.AdvancePhase(context.Background(), gameID, ids[0])
	require.NoError(t, err)
	assert.Equal(t, model.PhaseDay, res.Phase)
	assert.Equal(t, 2, res.Day)
}

func TestPhaseService_HostOnly(t *testing.T) {
	f := newFixture(t)
	gameID, ids := f.startedGame(t, 4)

	_, err := f.phases.AdvancePhase(context.Background(), gameID, ids[1])
	assert.ErrorIs(t, err, game.ErrNotHost)
	assert.Equal(t, model.PhaseDay, f.mustGame(t, gameID).CurrentPhase)

	_, err = f.phases.AdvancePhase(context.Background(), "missing", ids[0])
	assert.ErrorIs(t, err, game.ErrGameNotFound)
}

// blockingRepo parks the first GetGame call until released, holding the
// game lock for as long as the test needs.
type blockingRepo struct {
	repository.GameRepo
	entered chan struct{}
	release chan struct{}
	blocked atomic.Bool
	armed   atomic.Bool
}

func (r *blockingRepo) GetGame(ctx context.Context, id string) (*model.Game, error) {
	if r.armed.Load() && r.blocked.CompareAndSwap(false, true) {
		close(r.entered)
		<-r.release
	}
	return r.GameRepo.GetGame(ctx, id)
}

func TestPhaseService_ConcurrentAdvanceIsRejected(t *testing.T) {
	blocker := &blockingRepo{entered: make(chan struct{}), release: make(chan struct{})}
	f := newFixtureWithRepo(t, repository.NewMemoryStore(), func(r repository.GameRepo) repository.GameRepo {
		blocker.GameRepo = r
		return blocker
	})
	ctx := context.Background()
	gameID, ids := f.startedGame(t, 4)
	castVotes(t, f, gameID, map[string]string{ids[1]: ids[2], ids[3]: ids[2]})
	blocker.armed.Store(true)

	var wg sync.WaitGroup
	var first *model.PhaseResult
	var firstErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		first, firstErr = f.phases.AdvancePhase(ctx, gameID, ids[0])
	}()

	<-blocker.entered
	_, err := f.phases.AdvancePhase(ctx, gameID, ids[0])
	assert.ErrorIs(t, err, game.ErrLockContention)
	assert.True(t, game.IsRetryable(err))

	close(blocker.release)
	wg.Wait()
	require.NoError(t, firstErr)
	assert.Equal(t, ids[2], first.EliminatedID)

	g := f.mustGame(t, gameID)
	assert.Equal(t, model.PhaseNight, g.CurrentPhase)
	assert.Equal(t, 1, g.CurrentDay)
	assert.Equal(t, 0, f.locks.Held())
}

type failingCommitRepo struct {
	repository.GameRepo
}

func (r failingCommitRepo) CommitPhase(context.Context, *model.PhaseCommit) error {
	return errInjected
}

func TestPhaseService_CommitFailureLeavesStateUnchanged(t *testing.T) {
	f := newFixtureWithRepo(t, repository.NewMemoryStore(), func(r repository.GameRepo) repository.GameRepo {
		return failingCommitRepo{r}
	})
	gameID, ids := f.startedGame(t, 4)
	castVotes(t, f, gameID, map[string]string{ids[1]: ids[2], ids[3]: ids[2]})

	_, err := f.phases.AdvancePhase(context.Background(), gameID, ids[0])
	assert.ErrorIs(t, err, errInjected)

	g := f.mustGame(t, gameID)
	assert.Equal(t, model.PhaseDay, g.CurrentPhase)
	assert.True(t, f.mustPlayer(t, gameID, ids[2]).IsAlive)
	assert.Equal(t, 0, f.events.count(EventPhaseAdvanced))
	assert.Equal(t, 0, f.narrator.called("narration"))
	assert.Equal(t, 0, f.locks.Held())
}

func TestPhaseService_GeneratesStoryForNewPhase(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	gameID, ids := f.startedGame(t, 5)
	castVotes(t, f, gameID, map[string]string{ids[1]: ids[2], ids[3]: ids[2]})

	_, err := f.phases.AdvancePhase(ctx, gameID, ids[0])
	require.NoError(t, err)
	f.settle(t)

	story, err := f.narrative.ListStory(ctx, gameID)
	require.NoError(t, err)
	require.Len(t, story, 1)
	assert.Equal(t, model.PhaseNight, story[0].Phase)
	assert.Equal(t, "narration NIGHT 1", story[0].Content)

	// one mission per alive player
	missions, err := f.store.ListMissions(ctx, gameID, model.PhaseNight, 1)
	require.NoError(t, err)
	assert.Len(t, missions, 4)
	assert.Equal(t, 4, f.events.count(EventMission))
}

func TestPhaseService_NarratorFailureFallsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.narrator.err = errInjected
	gameID, ids := f.startedGame(t, 4)

	res, err := f.phases.AdvancePhase(ctx, gameID, ids[0])
	require.NoError(t, err)
	assert.Equal(t, model.PhaseNight, res.Phase)
	f.settle(t)

	story, err := f.narrative.ListStory(ctx, gameID)
	require.NoError(t, err)
	require.Len(t, story, 1)
	assert.Equal(t, FallbackNarration, story[0].Content)

	missions, err := f.store.ListMissions(ctx, gameID, model.PhaseNight, 1)
	require.NoError(t, err)
	require.Len(t, missions, 4)
	for _, m := range missions {
		assert.Equal(t, FallbackMission, m.Content)
	}
}

// slowNarrator answers every request after delay
type slowNarrator struct {
	stubNarrator
	delay time.Duration
}

func (n *slowNarrator) GenerateNarration(ctx context.Context, gc model.GameContext, event string) (string, error) {
	time.Sleep(n.delay)
	return n.stubNarrator.GenerateNarration(ctx, gc, event)
}

func (n *slowNarrator) GenerateMission(ctx context.Context, gc model.GameContext, pc model.PlayerContext) (string, error) {
	time.Sleep(n.delay)
	return n.stubNarrator.GenerateMission(ctx, gc, pc)
}

func TestPhaseService_AdvanceDoesNotWaitForNarrator(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	slow := &slowNarrator{delay: 100 * time.Millisecond}
	f.narrative.narrator = slow
	gameID, ids := f.startedGame(t, 12)

	start := time.Now()
	res, err := f.phases.AdvancePhase(ctx, gameID, ids[0])
	elapsed := time.Since(start)
	require.NoError(t, err)
	assert.Equal(t, model.PhaseNight, res.Phase)
	assert.Less(t, elapsed, 100*time.Millisecond, "advance returned after %s", elapsed)

	f.settle(t)
	assert.Equal(t, 1, slow.called("narration"))
	assert.Equal(t, 12, slow.called("mission"))
	missions, err := f.store.ListMissions(ctx, gameID, model.PhaseNight, 1)
	require.NoError(t, err)
	assert.Len(t, missions, 12)
	for _, m := range missions {
		assert.NotEqual(t, FallbackMission, m.Content)
	}
}

func TestPhaseService_NarrativeTimeoutFallsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.narrative.narrator = &ctxNarrator{}
	f.phases.SetNarrativeTimeout(20 * time.Millisecond)
	gameID, ids := f.startedGame(t, 4)

	_, err := f.phases.AdvancePhase(ctx, gameID, ids[0])
	require.NoError(t, err)
	f.settle(t)

	story, err := f.narrative.ListStory(ctx, gameID)
	require.NoError(t, err)
	require.Len(t, story, 1)
	assert.Equal(t, FallbackNarration, story[0].Content)
}

// ctxNarrator blocks until the context is done
type ctxNarrator struct {
	stubNarrator
}

func (n *ctxNarrator) GenerateNarration(ctx context.Context, _ model.GameContext, _ string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func (n *ctxNarrator) GenerateMission(ctx context.Context, _ model.GameContext, _ model.PlayerContext) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestRecentEvent(t *testing.T) {
	assert.Equal(t, "No one was eliminated during DAY 1.",
		recentEvent(&model.PhaseResult{FromPhase: model.PhaseDay, FromDay: 1}))
	assert.Equal(t, "Ana was eliminated during NIGHT 2.",
		recentEvent(&model.PhaseResult{FromPhase: model.PhaseNight, FromDay: 2, EliminatedName: "Ana"}))
	assert.Equal(t, "Ana was eliminated after a tied vote during DAY 3.",
		recentEvent(&model.PhaseResult{FromPhase: model.PhaseDay, FromDay: 3, EliminatedName: "Ana", TieBroken: true}))
}
