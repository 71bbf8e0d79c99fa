package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"thetraitors/internal/cache"
	"thetraitors/internal/game"
	"thetraitors/internal/model"
	"thetraitors/internal/repository"
	"sync"
	"time"
)

// defaultNarrativeTimeout bounds the narration and missions generated after an advance
const defaultNarrativeTimeout = 2 * time.Minute

// GameLocker serializes state changes per game. Implemented in-process by
// game.LockRegistry and across processes by cache.PhaseLock.
type GameLocker interface {
	WithLock(ctx context.Context, gameID string, fn func() error) error
}

// errNotDue is returned by AdvanceDue when the phase timer was reset
// between the auto-phase scan and taking the lock.
var errNotDue = errors.New("phase is not due")

// PhaseService advances games through DAY and NIGHT. Manual advances and the
// auto-phase sweep both go through advance, so there is one resolution path.
type PhaseService struct {
	repo        repository.GameRepo
	gameCache   cache.GameCache
	locker      GameLocker
	resolver    *game.Resolver
	narrative   *NarrativeService
	broadcaster Broadcaster
	now         func() time.Time

	narrativeTimeout time.Duration
	pending          sync.WaitGroup
}

// NewPhaseService creates a new phase service
func NewPhaseService(
	repo repository.GameRepo,
	gameCache cache.GameCache,
	locker GameLocker,
	resolver *game.Resolver,
	narrative *NarrativeService,
) *PhaseService {
	return &PhaseService{
		repo:        repo,
		gameCache:   gameCache,
		locker:      locker,
		resolver:    resolver,
		narrative:   narrative,
		broadcaster: noopBroadcaster{},
		now:         time.Now,

		narrativeTimeout: defaultNarrativeTimeout,
	}
}

// SetBroadcaster sets the WebSocket broadcaster
func (s *PhaseService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// SetNarrativeTimeout bounds each background narrative run; d <= 0 keeps the default
func (s *PhaseService) SetNarrativeTimeout(d time.Duration) {
	if d > 0 {
		s.narrativeTimeout = d
	}
}

// Wait blocks until every background narrative run has finished or ctx is done
func (s *PhaseService) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AdvancePhase is the host's "next phase" action
func (s *PhaseService) AdvancePhase(ctx context.Context, gameID, actorID string) (*model.PhaseResult, error) {
	return s.advance(ctx, gameID, func(g *model.Game) error {
		if g.HostID != actorID {
			return game.ErrNotHost
		}
		return nil
	})
}

// AdvanceDue advances gameID if its phase timer has expired at now
func (s *PhaseService) AdvanceDue(ctx context.Context, gameID string, now time.Time) (*model.PhaseResult, error) {
	return s.advance(ctx, gameID, func(g *model.Game) error {
		if !g.AutoPhaseEnabled {
			return errNotDue
		}
		deadline, ok := g.PhaseDeadline()
		if !ok || now.Before(deadline) {
			return errNotDue
		}
		return nil
	})
}

// advance runs load, resolve, transition and commit under the game lock.
// Side effects that may fail without harming game state run after release.
func (s *PhaseService) advance(ctx context.Context, gameID string, guard func(g *model.Game) error) (*model.PhaseResult, error) {
	var tr *game.Transition
	var at time.Time

	err := s.locker.WithLock(ctx, gameID, func() error {
		g, err := s.repo.GetGame(ctx, gameID)
		if err != nil {
			return fmt.Errorf("failed to get game: %w", err)
		}
		if g == nil {
			return game.ErrGameNotFound
		}
		if err := guard(g); err != nil {
			return err
		}

		players, err := s.repo.ListPlayers(ctx, gameID)
		if err != nil {
			return fmt.Errorf("failed to list players: %w", err)
		}
		votes, err := s.repo.ListVotes(ctx, gameID, g.CurrentPhase, g.CurrentDay)
		if err != nil {
			return fmt.Errorf("failed to list votes: %w", err)
		}

		at = s.now()
		tr, err = game.Advance(g, players, votes, s.resolver, at)
		if err != nil {
			return err
		}
		if err := s.repo.CommitPhase(ctx, &tr.Commit); err != nil {
			return fmt.Errorf("failed to commit phase: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := tr.Result(at)
	s.afterAdvance(ctx, tr, &result)
	return &result, nil
}

func (s *PhaseService) afterAdvance(ctx context.Context, tr *game.Transition, result *model.PhaseResult) {
	g := tr.Commit.Game
	if err := s.gameCache.Invalidate(ctx, g.ID); err != nil {
		log.Printf("Warning: failed to invalidate game cache for %s: %v", g.ID, err)
	}

	if result.Ended {
		log.Printf("Game %s ended on %s %d: %s win", g.ID, g.CurrentPhase, g.CurrentDay, g.Winner)
		s.broadcaster.BroadcastToGame(g.ID, EventGameEnded, result)
		return
	}

	log.Printf("Game %s advanced %s %d -> %s %d (eliminated=%q tieBroken=%v)",
		g.ID, result.FromPhase, result.FromDay, result.Phase, result.Day, result.EliminatedID, result.TieBroken)
	s.broadcaster.BroadcastToGame(g.ID, EventPhaseAdvanced, result)

	if s.narrative == nil {
		return
	}
	// the advance is committed; the caller gets its result without waiting on
	// the narrator, and a cancelled request must not lose the story
	roster, event := tr.Roster, recentEvent(result)
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.narrativeTimeout)
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		defer cancel()
		s.narrative.OnPhaseStart(nctx, &g, roster, event)
	}()
}

func recentEvent(r *model.PhaseResult) string {
	if r.EliminatedName == "" {
		return fmt.Sprintf("No one was eliminated during %s %d.", r.FromPhase, r.FromDay)
	}
	if r.TieBroken {
		return fmt.Sprintf("%s was eliminated after a tied vote during %s %d.", r.EliminatedName, r.FromPhase, r.FromDay)
	}
	return fmt.Sprintf("%s was eliminated during %s %d.", r.EliminatedName, r.FromPhase, r.FromDay)
}
