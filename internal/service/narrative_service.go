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

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// missionConcurrency caps narrator calls in flight while generating one phase's missions
const missionConcurrency = 4

// NarrativeService stores the generated side of a game: narration, missions
// and chaos events. Narration, missions and chaos events are
// generated at most once per phase and day.
type NarrativeService struct {
	games       repository.GameRepo
	repo        repository.NarrativeRepo
	narrator    Narrator
	broadcaster Broadcaster
	now         func() time.Time
}

// NewNarrativeService creates a new narrative service
func NewNarrativeService(games repository.GameRepo, repo repository.NarrativeRepo, narrator Narrator) *NarrativeService {
	return &NarrativeService{
		games:       games,
		repo:        repo,
		narrator:    narrator,
		broadcaster: noopBroadcaster{},
		now:         time.Now,
	}
}

// SetBroadcaster sets the WebSocket broadcaster
func (s *NarrativeService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// OnPhaseStart generates the narration and missions for the phase g is now in.
// Failures are logged and never returned.
func (s *NarrativeService) OnPhaseStart(ctx context.Context, g *model.Game, players []model.Player, recentEvent string) {
	if _, err := s.ensureNarration(ctx, g, players, recentEvent); err != nil {
		log.Printf("Warning: narration for game %s %s %d failed: %v", g.ID, g.CurrentPhase, g.CurrentDay, err)
	}
	if _, err := s.ensureMissions(ctx, g, players); err != nil {
		log.Printf("Warning: missions for game %s %s %d failed: %v", g.ID, g.CurrentPhase, g.CurrentDay, err)
	}
}

// GenerateNarration creates the current phase's narration if missing. Host only.
func (s *NarrativeService) GenerateNarration(ctx context.Context, gameID, actorID string) (*model.Narration, error) {
	g, players, err := s.loadPlaying(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if g.HostID != actorID {
		return nil, game.ErrNotHost
	}
	return s.ensureNarration(ctx, g, players, "")
}

// ListStory returns every narration of a game in order
func (s *NarrativeService) ListStory(ctx context.Context, gameID string) ([]model.Narration, error) {
	return s.repo.ListNarrations(ctx, gameID)
}

func (s *NarrativeService) ensureNarration(ctx context.Context, g *model.Game, players []model.Player, recentEvent string) (*model.Narration, error) {
	existing, err := s.repo.GetNarration(ctx, g.ID, g.CurrentPhase, g.CurrentDay)
	if err != nil {
		return nil, fmt.Errorf("failed to get narration: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	content, err := s.narrator.GenerateNarration(ctx, model.NewGameContext(g, players), recentEvent)
	if err != nil {
		log.Printf("Narrator: narration failed for game %s: %v", g.ID, err)
		content = FallbackNarration
	}

	n := &model.Narration{
		ID:        uuid.NewString(),
		GameID:    g.ID,
		Phase:     g.CurrentPhase,
		Day:       g.CurrentDay,
		Content:   content,
		CreatedAt: s.now(),
	}
	if err := s.repo.InsertNarration(ctx, n); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return s.repo.GetNarration(ctx, g.ID, g.CurrentPhase, g.CurrentDay)
		}
		return nil, fmt.Errorf("failed to save narration: %w", err)
	}

	s.broadcaster.BroadcastToGame(g.ID, EventNarration, n)
	return n, nil
}

// GenerateMissions creates one mission per alive player for the current phase if missing. Host only.
func (s *NarrativeService) GenerateMissions(ctx context.Context, gameID, actorID string) ([]model.Mission, error) {
	g, players, err := s.loadPlaying(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if g.HostID != actorID {
		return nil, game.ErrNotHost
	}
	return s.ensureMissions(ctx, g, players)
}

func (s *NarrativeService) ensureMissions(ctx context.Context, g *model.Game, players []model.Player) ([]model.Mission, error) {
	existing, err := s.repo.ListMissions(ctx, g.ID, g.CurrentPhase, g.CurrentDay)
	if err != nil {
		return nil, fmt.Errorf("failed to list missions: %w", err)
	}
	if len(existing) > 0 {
		return existing, nil
	}

	gc := model.NewGameContext(g, players)
	now := s.now()
	var missions []model.Mission
	for _, p := range players {
		if !p.IsAlive {
			continue
		}
		missions = append(missions, model.Mission{
			ID:        uuid.NewString(),
			GameID:    g.ID,
			PlayerID:  p.ID,
			Phase:     g.CurrentPhase,
			Day:       g.CurrentDay,
			CreatedAt: now,
		})
	}

	eg := new(errgroup.Group)
	eg.SetLimit(missionConcurrency)
	for i := range missions {
		m := &missions[i]
		p := model.FindPlayer(players, m.PlayerID)
		eg.Go(func() error {
			content, err := s.narrator.GenerateMission(ctx, gc, model.PlayerContext{Name: p.Name, Role: p.Role, IsAlive: p.IsAlive})
			if err != nil {
				log.Printf("Narrator: mission failed for player %s: %v", p.ID, err)
				content = FallbackMission
			}
			m.Content = content
			return nil
		})
	}
	eg.Wait()

	if err := s.repo.InsertMissions(ctx, missions); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return s.repo.ListMissions(ctx, g.ID, g.CurrentPhase, g.CurrentDay)
		}
		return nil, fmt.Errorf("failed to save missions: %w", err)
	}

	for _, m := range missions {
		s.broadcaster.BroadcastToPlayer(g.ID, m.PlayerID, EventMission, m)
	}
	return missions, nil
}

// ListMissions returns playerID's missions, oldest first
func (s *NarrativeService) ListMissions(ctx context.Context, gameID, playerID string) ([]model.Mission, error) {
	return s.repo.ListPlayerMissions(ctx, gameID, playerID)
}

// ToggleMission flips the completed flag of one of playerID's missions
func (s *NarrativeService) ToggleMission(ctx context.Context, gameID, missionID, playerID string) (*model.Mission, error) {
	m, err := s.repo.GetMission(ctx, missionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get mission: %w", err)
	}
	if m == nil || m.GameID != gameID {
		return nil, fmt.Errorf("%w: mission %s", game.ErrInvalidInput, missionID)
	}
	if m.PlayerID != playerID {
		return nil, game.ErrNotOwner
	}

	m.Completed = !m.Completed
	if err := s.repo.SetMissionCompleted(ctx, missionID, m.Completed); err != nil {
		return nil, fmt.Errorf("failed to update mission: %w", err)
	}
	return m, nil
}

// TriggerChaos creates the current phase's chaos event. The bool is false when
// one already existed and is returned instead. Host only.
func (s *NarrativeService) TriggerChaos(ctx context.Context, gameID, actorID string) (*model.ChaosEvent, bool, error) {
	g, players, err := s.loadPlaying(ctx, gameID)
	if err != nil {
		return nil, false, err
	}
	if g.HostID != actorID {
		return nil, false, game.ErrNotHost
	}

	existing, err := s.repo.GetChaosEvent(ctx, g.ID, g.CurrentPhase, g.CurrentDay)
	if err != nil {
		return nil, false, fmt.Errorf("failed to get chaos event: %w", err)
	}
	if existing != nil {
		return existing, false, nil
	}

	content, err := s.narrator.GenerateChaosEvent(ctx, model.NewGameContext(g, players))
	if err != nil {
		log.Printf("Narrator: chaos event failed for game %s: %v", g.ID, err)
		content = FallbackChaos
	}

	e := &model.ChaosEvent{
		ID:        uuid.NewString(),
		GameID:    g.ID,
		Type:      "AI_GENERATED",
		Phase:     g.CurrentPhase,
		Day:       g.CurrentDay,
		Content:   content,
		CreatedAt: s.now(),
	}
	if err := s.repo.InsertChaosEvent(ctx, e); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			existing, err := s.repo.GetChaosEvent(ctx, g.ID, g.CurrentPhase, g.CurrentDay)
			return existing, false, err
		}
		return nil, false, fmt.Errorf("failed to save chaos event: %w", err)
	}

	s.broadcaster.BroadcastToGame(g.ID, EventChaos, e)
	return e, true, nil
}

// Reveal returns every role, vote and story element of an ended game
func (s *NarrativeService) Reveal(ctx context.Context, gameID string) (*model.Reveal, error) {
	g, err := s.games.GetGame(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}
	if g == nil {
		return nil, game.ErrGameNotFound
	}
	if g.Status != model.GameEnded {
		return nil, game.ErrGameNotEnded
	}

	players, err := s.games.ListPlayers(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	votes, err := s.games.ListAllVotes(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to list votes: %w", err)
	}
	narrations, err := s.repo.ListNarrations(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to list narrations: %w", err)
	}
	chaos, err := s.repo.ListChaosEvents(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chaos events: %w", err)
	}
	whispers, err := s.repo.ListWhispers(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to list whispers: %w", err)
	}
	roomLog, err := s.repo.ListRoomLogs(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to list room log: %w", err)
	}

	return &model.Reveal{
		Game:       *g,
		Players:    players,
		Votes:      votes,
		Narrations: narrations,
		Chaos:      chaos,
		Whispers:   whispers,
		RoomLog:    roomLog,
	}, nil
}

func (s *NarrativeService) loadPlaying(ctx context.Context, gameID string) (*model.Game, []model.Player, error) {
	g, err := s.games.GetGame(ctx, gameID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get game: %w", err)
	}
	if g == nil {
		return nil, nil, game.ErrGameNotFound
	}
	if g.Status != model.GamePlaying {
		return nil, nil, game.ErrGameNotPlaying
	}
	players, err := s.games.ListPlayers(ctx, gameID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list players: %w", err)
	}
	return g, players, nil
}
