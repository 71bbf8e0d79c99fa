package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"thetraitors/internal/game"
	"thetraitors/internal/model"
	"thetraitors/internal/repository"
	"time"

	"golang.org/x/sync/errgroup"
)

// AutoPhaseService advances games whose phase timer has run out, and lets
// hosts configure that timer.
type AutoPhaseService struct {
	repo            repository.GameRepo
	phases          *PhaseService
	concurrency     int
	defaultDuration time.Duration
	now             func() time.Time
}

// NewAutoPhaseService creates a new auto-phase service. concurrency bounds
// how many games one sweep advances at the same time.
func NewAutoPhaseService(repo repository.GameRepo, phases *PhaseService, concurrency int, defaultDuration time.Duration) *AutoPhaseService {
	if concurrency < 1 {
		concurrency = 1
	}
	if defaultDuration <= 0 {
		defaultDuration = model.DefaultPhaseDuration
	}
	return &AutoPhaseService{
		repo:            repo,
		phases:          phases,
		concurrency:     concurrency,
		defaultDuration: defaultDuration,
		now:             time.Now,
	}
}

// Configure turns auto-phase on or off for a game. Host only. Enabling it
// on a running game restarts the phase timer from now.
func (s *AutoPhaseService) Configure(ctx context.Context, gameID, actorID string, req *model.AutoPhaseRequest) (*model.AutoPhaseStatus, error) {
	if req.DurationHours < 0 {
		return nil, fmt.Errorf("%w: durationHours must not be negative", game.ErrInvalidInput)
	}

	g, err := s.repo.GetGame(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}
	if g == nil {
		return nil, game.ErrGameNotFound
	}
	if g.HostID != actorID {
		return nil, game.ErrNotHost
	}
	if g.Status == model.GameEnded {
		return nil, game.ErrGameNotPlaying
	}

	duration := s.defaultDuration
	if req.DurationHours > 0 {
		duration = time.Duration(req.DurationHours * float64(time.Hour))
	}

	startedAt := g.PhaseStartedAt
	if req.Enabled && g.Status == model.GamePlaying && (!g.AutoPhaseEnabled || startedAt == nil) {
		now := s.now()
		startedAt = &now
	}

	if err := s.repo.UpdateAutoPhase(ctx, gameID, req.Enabled, duration, startedAt); err != nil {
		return nil, fmt.Errorf("failed to update auto-phase: %w", err)
	}

	g.AutoPhaseEnabled = req.Enabled
	g.PhaseDuration = duration
	g.PhaseStartedAt = startedAt
	log.Printf("Game %s auto-phase enabled=%v duration=%s", gameID, req.Enabled, duration)
	return s.statusOf(g), nil
}

// Status returns the auto-phase configuration and timer of a game
func (s *AutoPhaseService) Status(ctx context.Context, gameID string) (*model.AutoPhaseStatus, error) {
	g, err := s.repo.GetGame(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}
	if g == nil {
		return nil, game.ErrGameNotFound
	}
	return s.statusOf(g), nil
}

func (s *AutoPhaseService) statusOf(g *model.Game) *model.AutoPhaseStatus {
	d := g.PhaseDuration
	if d <= 0 {
		d = s.defaultDuration
	}
	st := &model.AutoPhaseStatus{
		Enabled:        g.AutoPhaseEnabled,
		DurationHours:  d.Hours(),
		PhaseStartedAt: g.PhaseStartedAt,
	}
	if g.AutoPhaseEnabled && g.Status == model.GamePlaying && g.PhaseStartedAt != nil {
		remaining := max(g.PhaseStartedAt.Add(d).Sub(s.now()), 0).Milliseconds()
		st.TimeRemainingMs = &remaining
	}
	return st
}

// CheckAndAdvanceAll advances every auto-phase game whose timer has expired.
// Games are handled independently: one failing or contended game never stops
// the others, and every game gets an entry in the report.
func (s *AutoPhaseService) CheckAndAdvanceAll(ctx context.Context) (*model.AutoPhaseReport, error) {
	games, err := s.repo.ListAutoPhaseGames(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list auto-phase games: %w", err)
	}

	now := s.now()
	results := make([]model.AutoPhaseGameResult, len(games))

	var eg errgroup.Group
	eg.SetLimit(s.concurrency)
	for i := range games {
		eg.Go(func() error {
			results[i] = s.checkGame(ctx, &games[i], now)
			return nil
		})
	}
	eg.Wait()

	report := &model.AutoPhaseReport{
		CheckedAt: now,
		Checked:   len(games),
		Results:   results,
	}
	for _, r := range results {
		if r.Action == model.AutoPhaseAdvanced {
			report.Advanced++
		}
	}
	return report, nil
}

func (s *AutoPhaseService) checkGame(ctx context.Context, g *model.Game, now time.Time) model.AutoPhaseGameResult {
	out := model.AutoPhaseGameResult{GameID: g.ID, GameCode: g.Code}

	deadline, ok := g.PhaseDeadline()
	if !ok || now.Before(deadline) {
		out.Action = model.AutoPhaseNoAction
		if ok {
			out.TimeRemainingMs = deadline.Sub(now).Milliseconds()
		}
		return out
	}

	result, err := s.phases.AdvanceDue(ctx, g.ID, now)
	switch {
	case err == nil:
		out.Action = model.AutoPhaseAdvanced
		out.Result = result
	case errors.Is(err, errNotDue):
		out.Action = model.AutoPhaseNoAction
	case game.IsRetryable(err):
		out.Action = model.AutoPhaseBusy
		out.Error = err.Error()
	default:
		log.Printf("Auto-phase: game %s failed: %v", g.ID, err)
		out.Action = model.AutoPhaseError
		out.Error = err.Error()
	}
	return out
}
