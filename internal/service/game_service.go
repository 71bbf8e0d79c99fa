package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"strings"
	"thetraitors/internal/cache"
	"thetraitors/internal/game"
	"thetraitors/internal/model"
	"thetraitors/internal/repository"
	"time"

	"github.com/google/uuid"
)

// GameService handles game lifecycle: create, join, start and state reads
type GameService struct {
	repo        repository.GameRepo
	gameCache   cache.GameCache
	authSvc     *AuthService
	locker      GameLocker
	bounds      game.Bounds
	shuffle     game.Shuffler
	broadcaster Broadcaster
	now         func() time.Time
}

// NewGameService creates a new game service
func NewGameService(
	repo repository.GameRepo,
	gameCache cache.GameCache,
	authSvc *AuthService,
	locker GameLocker,
	bounds game.Bounds,
) *GameService {
	return &GameService{
		repo:        repo,
		gameCache:   gameCache,
		authSvc:     authSvc,
		locker:      locker,
		bounds:      bounds,
		broadcaster: noopBroadcaster{},
		now:         time.Now,
	}
}

// SetBroadcaster sets the WebSocket broadcaster
func (s *GameService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// CreateGame creates a game in WAITING with the host as its first player
func (s *GameService) CreateGame(ctx context.Context, hostName string) (*model.CreateGameResponse, error) {
	hostName = strings.TrimSpace(hostName)
	if hostName == "" {
		return nil, fmt.Errorf("%w: host name is required", game.ErrInvalidInput)
	}

	code, err := s.generateGameCode(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to generate game code: %w", err)
	}

	now := s.now()
	g := &model.Game{
		ID:           uuid.NewString(),
		Code:         code,
		Status:       model.GameWaiting,
		CurrentPhase: model.PhaseDay,
		CreatedAt:    now,
	}
	host := &model.Player{
		ID:       uuid.NewString(),
		GameID:   g.ID,
		Name:     hostName,
		NameKey:  model.NameKey(hostName),
		IsAlive:  true,
		IsHost:   true,
		JoinedAt: now,
	}
	g.HostID = host.ID

	if err := s.repo.CreateGame(ctx, g, host); err != nil {
		return nil, fmt.Errorf("failed to create game: %w", err)
	}

	token, err := s.authSvc.IssueToken(g.ID, host.ID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	log.Printf("Game %s created with code %s by %s", g.ID, code, hostName)
	return &model.CreateGameResponse{
		GameID:   g.ID,
		GameCode: code,
		HostID:   host.ID,
		Token:    token,
	}, nil
}

// JoinGame adds a player to a WAITING game found by join code
func (s *GameService) JoinGame(ctx context.Context, code, playerName string) (*model.JoinGameResponse, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	playerName = strings.TrimSpace(playerName)
	if code == "" || playerName == "" {
		return nil, fmt.Errorf("%w: player name and game code are required", game.ErrInvalidInput)
	}

	g, err := s.repo.GetGameByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}
	if g == nil {
		return nil, game.ErrGameNotFound
	}

	players, err := s.repo.ListPlayers(ctx, g.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	if err := game.ValidateJoin(g, players, playerName, s.bounds.MaxPlayers); err != nil {
		return nil, err
	}

	p := &model.Player{
		ID:       uuid.NewString(),
		GameID:   g.ID,
		Name:     playerName,
		NameKey:  model.NameKey(playerName),
		IsAlive:  true,
		JoinedAt: s.now(),
	}
	if err := s.repo.AddPlayer(ctx, p, s.bounds.MaxPlayers); err != nil {
		if errors.Is(err, game.ErrGameFull) || errors.Is(err, game.ErrGameNotWaiting) || errors.Is(err, game.ErrDuplicateName) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to add player: %w", err)
	}

	token, err := s.authSvc.IssueToken(g.ID, p.ID, false)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	s.invalidate(ctx, g.ID)
	s.broadcaster.BroadcastToGame(g.ID, EventPlayerJoined, map[string]interface{}{
		"playerId":    p.ID,
		"playerName":  p.Name,
		"playerCount": len(players) + 1,
	})

	return &model.JoinGameResponse{
		GameID:     g.ID,
		PlayerID:   p.ID,
		PlayerName: p.Name,
		Token:      token,
	}, nil
}

// StartGame assigns roles and moves the game to DAY 1. Host only.
func (s *GameService) StartGame(ctx context.Context, gameID, actorID string) (*model.StartResult, error) {
	var result *model.StartResult
	err := s.locker.WithLock(ctx, gameID, func() error {
		g, err := s.loadGame(ctx, gameID)
		if err != nil {
			return err
		}
		if g.HostID != actorID {
			return game.ErrNotHost
		}

		players, err := s.repo.ListPlayers(ctx, gameID)
		if err != nil {
			return fmt.Errorf("failed to list players: %w", err)
		}

		commit, err := game.Start(g, players, s.bounds, s.shuffle, s.now())
		if err != nil {
			return err
		}
		if err := s.repo.CommitStart(ctx, commit); err != nil {
			return fmt.Errorf("failed to start game: %w", err)
		}

		traitors := game.TraitorCount(len(players))
		result = &model.StartResult{
			TraitorCount:  traitors,
			FaithfulCount: len(players) - traitors,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Game %s started: %d traitors, %d faithfuls", gameID, result.TraitorCount, result.FaithfulCount)
	s.invalidate(ctx, gameID)
	s.broadcaster.BroadcastToGame(gameID, EventGameStarted, result)
	return result, nil
}

// GetState returns the game as seen by viewerID
func (s *GameService) GetState(ctx context.Context, gameID, viewerID string) (*model.GameState, error) {
	snap, err := s.Snapshot(ctx, gameID)
	if err != nil {
		return nil, err
	}
	return BuildGameState(snap, viewerID, s.now()), nil
}

// Snapshot returns the game, its players and the current phase's votes,
// served from the cache when warm.
func (s *GameService) Snapshot(ctx context.Context, gameID string) (*model.GameSnapshot, error) {
	if snap, err := s.gameCache.Get(ctx, gameID); err != nil {
		log.Printf("Warning: game cache read failed for %s: %v", gameID, err)
	} else if snap != nil {
		return snap, nil
	}

	g, err := s.loadGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	players, err := s.repo.ListPlayers(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	var votes []model.Vote
	if g.Status == model.GamePlaying {
		votes, err = s.repo.ListVotes(ctx, gameID, g.CurrentPhase, g.CurrentDay)
		if err != nil {
			return nil, fmt.Errorf("failed to list votes: %w", err)
		}
	}

	snap := &model.GameSnapshot{Game: *g, Players: players, Votes: votes}
	if err := s.gameCache.Set(ctx, snap); err != nil {
		log.Printf("Warning: game cache write failed for %s: %v", gameID, err)
	}
	return snap, nil
}

// BuildGameState filters a snapshot down to what viewerID may see. Roles are
// hidden except the viewer's own until the game has ended.
func BuildGameState(snap *model.GameSnapshot, viewerID string, now time.Time) *model.GameState {
	g := snap.Game
	ended := g.Status == model.GameEnded

	voted := make(map[string]string, len(snap.Votes))
	counts := make(map[string]int)
	for _, v := range snap.Votes {
		voted[v.VoterID] = v.TargetID
		counts[v.TargetID]++
	}

	state := &model.GameState{
		Game:       g,
		Players:    make([]model.PlayerView, 0, len(snap.Players)),
		VoteCounts: counts,
		ViewerVote: voted[viewerID],
	}
	for _, p := range snap.Players {
		view := model.PlayerView{
			ID:      p.ID,
			Name:    p.Name,
			IsAlive: p.IsAlive,
			IsHost:  p.IsHost,
		}
		_, view.HasVoted = voted[p.ID]
		if ended || p.ID == viewerID {
			view.Role = p.Role
		}
		state.Players = append(state.Players, view)
		if p.ID == viewerID {
			v := view
			state.Viewer = &v
		}
	}

	if g.Status == model.GamePlaying && g.AutoPhaseEnabled {
		if deadline, ok := g.PhaseDeadline(); ok {
			remaining := max(deadline.Sub(now), 0).Milliseconds()
			state.TimeRemaining = &remaining
		}
	}
	return state
}

func (s *GameService) loadGame(ctx context.Context, gameID string) (*model.Game, error) {
	g, err := s.repo.GetGame(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}
	if g == nil {
		return nil, game.ErrGameNotFound
	}
	return g, nil
}

func (s *GameService) invalidate(ctx context.Context, gameID string) {
	if err := s.gameCache.Invalidate(ctx, gameID); err != nil {
		log.Printf("Warning: failed to invalidate game cache for %s: %v", gameID, err)
	}
}

// generateGameCode creates a 6-char alphanumeric code
func (s *GameService) generateGameCode(ctx context.Context) (string, error) {
	const chars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	const codeLen = 6

	for attempts := 0; attempts < 10; attempts++ {
		b := make([]byte, codeLen)
		if _, err := rand.Read(b); err != nil {
			return "", err
		}
		for i := range b {
			b[i] = chars[int(b[i])%len(chars)]
		}
		code := string(b)

		existing, err := s.repo.GetGameByCode(ctx, code)
		if err != nil {
			return "", err
		}
		if existing == nil {
			return code, nil
		}
	}
	return "", fmt.Errorf("failed to generate unique code after 10 attempts")
}
