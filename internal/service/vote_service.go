package service

import (
	"context"
	"fmt"
	"log"
	"thetraitors/internal/cache"
	"thetraitors/internal/game"
	"thetraitors/internal/model"
	"thetraitors/internal/repository"
	"time"

	"github.com/google/uuid"
)

// VoteService records votes for the current phase
type VoteService struct {
	repo        repository.GameRepo
	gameCache   cache.GameCache
	broadcaster Broadcaster
	now         func() time.Time
}

// NewVoteService creates a new vote service
func NewVoteService(repo repository.GameRepo, gameCache cache.GameCache) *VoteService {
	return &VoteService{
		repo:        repo,
		gameCache:   gameCache,
		broadcaster: noopBroadcaster{},
		now:         time.Now,
	}
}

// SetBroadcaster sets the WebSocket broadcaster
func (s *VoteService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// CastVote records voterID's choice for the current phase, replacing any
// earlier choice in the same phase. Nothing is written if the vote is invalid.
func (s *VoteService) CastVote(ctx context.Context, gameID, voterID, targetID string) (*model.Vote, error) {
	if targetID == "" {
		return nil, fmt.Errorf("%w: targetId is required", game.ErrInvalidInput)
	}

	g, err := s.repo.GetGame(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}
	if g == nil {
		return nil, game.ErrGameNotFound
	}
	players, err := s.repo.ListPlayers(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}

	voter := model.FindPlayer(players, voterID)
	target := model.FindPlayer(players, targetID)
	if err := game.ValidateVote(g, voter, target); err != nil {
		return nil, err
	}

	now := s.now()
	v := &model.Vote{
		ID:        uuid.NewString(),
		GameID:    gameID,
		VoterID:   voterID,
		TargetID:  targetID,
		Phase:     g.CurrentPhase,
		Day:       g.CurrentDay,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.UpsertVote(ctx, v); err != nil {
		return nil, fmt.Errorf("failed to save vote: %w", err)
	}

	if err := s.gameCache.Invalidate(ctx, gameID); err != nil {
		log.Printf("Warning: failed to invalidate game cache for %s: %v", gameID, err)
	}

	// who voted for whom stays private until the reveal
	s.broadcaster.BroadcastToGame(gameID, EventVoteCast, map[string]interface{}{
		"phase": v.Phase,
		"day":   v.Day,
	})
	return v, nil
}
