package service

import (
	"context"
	"testing"
	"thetraitors/internal/game"
	"thetraitors/internal/model"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func enableAutoPhase(t *testing.T, f *fixture, gameID, hostID string, hours float64) *model.AutoPhaseStatus {
	t.Helper()
	st, err := f.autoPhase.Configure(context.Background(), gameID, hostID, &model.AutoPhaseRequest{Enabled: true, DurationHours: hours})
	require.NoError(t, err)
	return st
}

func resultsByGame(report *model.AutoPhaseReport) map[string]model.AutoPhaseGameResult {
	out := make(map[string]model.AutoPhaseGameResult, len(report.Results))
	for _, r := range report.Results {
		out[r.GameID] = r
	}
	return out
}

func TestAutoPhaseService_Configure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	gameID, ids := f.startedGame(t, 4)

	_, err := f.autoPhase.Configure(ctx, gameID, ids[1], &model.AutoPhaseRequest{Enabled: true})
	assert.ErrorIs(t, err, game.ErrNotHost)
	_, err = f.autoPhase.Configure(ctx, gameID, ids[0], &model.AutoPhaseRequest{Enabled: true, DurationHours: -1})
	assert.ErrorIs(t, err, game.ErrInvalidInput)

	f.clock.Advance(30 * time.Minute)
	st := enableAutoPhase(t, f, gameID, ids[0], 2)
	assert.True(t, st.Enabled)
	assert.Equal(t, 2.0, st.DurationHours)
	require.NotNil(t, st.TimeRemainingMs)
	assert.Equal(t, (2 * time.Hour).Milliseconds(), *st.TimeRemainingMs, "timer restarts when enabled")

	f.clock.Advance(time.Hour)
	st, err = f.autoPhase.Status(ctx, gameID)
	require.NoError(t, err)
	require.NotNil(t, st.TimeRemainingMs)
	assert.Equal(t, time.Hour.Milliseconds(), *st.TimeRemainingMs)

	st, err = f.autoPhase.Configure(ctx, gameID, ids[0], &model.AutoPhaseRequest{Enabled: false})
	require.NoError(t, err)
	assert.False(t, st.Enabled)
	assert.Nil(t, st.TimeRemainingMs)
	assert.Equal(t, model.DefaultPhaseDuration.Hours(), st.DurationHours)
}

func TestAutoPhaseService_TimeRemainingInState(t *testing.T) {
	f := newFixture(t)
	gameID, ids := f.startedGame(t, 4)
	enableAutoPhase(t, f, gameID, ids[0], 1)
	f.clock.Advance(15 * time.Minute)

	state, err := f.games.GetState(context.Background(), gameID, ids[1])
	require.NoError(t, err)
	require.NotNil(t, state.TimeRemaining)
	assert.Equal(t, (45 * time.Minute).Milliseconds(), *state.TimeRemaining)
}

func TestAutoPhaseService_CheckAndAdvanceAll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	dueID, dueIDs := f.startedGame(t, 4)
	laterID, laterIDs := f.startedGame(t, 4)
	offID, _ := f.startedGame(t, 4)
	enableAutoPhase(t, f, dueID, dueIDs[0], 1)
	enableAutoPhase(t, f, laterID, laterIDs[0], 3)

	castVotes(t, f, dueID, map[string]string{dueIDs[1]: dueIDs[2], dueIDs[3]: dueIDs[2]})
	f.clock.Advance(time.Hour)

	report, err := f.autoPhase.CheckAndAdvanceAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Checked)
	assert.Equal(t, 1, report.Advanced)

	results := resultsByGame(report)
	assert.NotContains(t, results, offID)

	due := results[dueID]
	assert.Equal(t, model.AutoPhaseAdvanced, due.Action)
	require.NotNil(t, due.Result)
	assert.Equal(t, dueIDs[2], due.Result.EliminatedID)

	later := results[laterID]
	assert.Equal(t, model.AutoPhaseNoAction, later.Action)
	assert.Equal(t, (2 * time.Hour).Milliseconds(), later.TimeRemainingMs)

	g := f.mustGame(t, dueID)
	assert.Equal(t, model.PhaseNight, g.CurrentPhase)
	require.NotNil(t, g.PhaseStartedAt)
	assert.Equal(t, f.clock.Now(), *g.PhaseStartedAt)

	// the new phase is not due yet
	report, err = f.autoPhase.CheckAndAdvanceAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Advanced)
}

func TestAutoPhaseService_BadGameDoesNotBlockOthers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	goodID, goodIDs := f.startedGame(t, 4)
	badID, badIDs := f.startedGame(t, 4)
	enableAutoPhase(t, f, goodID, goodIDs[0], 1)
	enableAutoPhase(t, f, badID, badIDs[0], 1)

	// a vote from a player that does not exist cannot be resolved
	require.NoError(t, f.store.UpsertVote(ctx, &model.Vote{
		ID:       "ghost-vote",
		GameID:   badID,
		VoterID:  "ghost",
		TargetID: badIDs[1],
		Phase:    model.PhaseDay,
		Day:      1,
	}))
	f.clock.Advance(time.Hour)

	report, err := f.autoPhase.CheckAndAdvanceAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Checked)
	assert.Equal(t, 1, report.Advanced)

	results := resultsByGame(report)
	assert.Equal(t, model.AutoPhaseAdvanced, results[goodID].Action)
	assert.Equal(t, model.AutoPhaseError, results[badID].Action)
	assert.NotEmpty(t, results[badID].Error)

	assert.Equal(t, model.PhaseNight, f.mustGame(t, goodID).CurrentPhase)
	assert.Equal(t, model.PhaseDay, f.mustGame(t, badID).CurrentPhase)
}

func TestAutoPhaseService_EndedGameIsSkipped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	gameID, ids := f.startedGame(t, 4)
	enableAutoPhase(t, f, gameID, ids[0], 1)

	castVotes(t, f, gameID, map[string]string{ids[1]: ids[0], ids[2]: ids[0]})
	_, err := f.phases.AdvancePhase(ctx, gameID, ids[0])
	require.NoError(t, err)
	assert.False(t, f.mustGame(t, gameID).AutoPhaseEnabled)

	f.clock.Advance(2 * time.Hour)
	report, err := f.autoPhase.CheckAndAdvanceAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Checked)

	_, err = f.autoPhase.Configure(ctx, gameID, ids[0], &model.AutoPhaseRequest{Enabled: true})
	assert.ErrorIs(t, err, game.ErrGameNotPlaying)
}

func TestPhaseService_AdvanceDueRechecksDeadline(t *testing.T) {
	f := newFixture(t)
	gameID, ids := f.startedGame(t, 4)
	enableAutoPhase(t, f, gameID, ids[0], 1)

	_, err := f.phases.AdvanceDue(context.Background(), gameID, f.clock.Now().Add(30*time.Minute))
	assert.ErrorIs(t, err, errNotDue)
	assert.Equal(t, model.PhaseDay, f.mustGame(t, gameID).CurrentPhase)

	res, err := f.phases.AdvanceDue(context.Background(), gameID, f.clock.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, model.PhaseNight, res.Phase)
}
