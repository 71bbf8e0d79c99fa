package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"thetraitors/internal/game"
	"thetraitors/internal/model"
	"thetraitors/internal/repository"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// WhisperService handles private messages between players. Each alive player
// may send one whisper per phase. Recipients see the message without its
// sender unless they choose to leak it.
type WhisperService struct {
	games       repository.GameRepo
	repo        repository.NarrativeRepo
	broadcaster Broadcaster
	now         func() time.Time
}

// NewWhisperService creates a new whisper service
func NewWhisperService(games repository.GameRepo, repo repository.NarrativeRepo) *WhisperService {
	return &WhisperService{
		games:       games,
		repo:        repo,
		broadcaster: noopBroadcaster{},
		now:         time.Now,
	}
}

// SetBroadcaster sets the WebSocket broadcaster
func (s *WhisperService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// Send delivers a whisper from fromID to req.ToPlayerID
func (s *WhisperService) Send(ctx context.Context, gameID, fromID string, req *model.WhisperRequest) (*model.WhisperView, error) {
	req.ToPlayerID = strings.TrimSpace(req.ToPlayerID)
	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" {
		return nil, fmt.Errorf("%w: content is required", game.ErrInvalidInput)
	}
	if utf8.RuneCountInString(req.Content) > model.MaxWhisperLength {
		return nil, fmt.Errorf("%w: content exceeds %d characters", game.ErrInvalidInput, model.MaxWhisperLength)
	}
	if req.ToPlayerID == fromID {
		return nil, fmt.Errorf("%w: cannot whisper to yourself", game.ErrInvalidInput)
	}

	g, players, err := s.loadPlaying(ctx, gameID)
	if err != nil {
		return nil, err
	}
	from := model.FindPlayer(players, fromID)
	if from == nil {
		return nil, game.ErrPlayerNotFound
	}
	if !from.IsAlive {
		return nil, game.ErrPlayerEliminated
	}
	to := model.FindPlayer(players, req.ToPlayerID)
	if to == nil {
		return nil, game.ErrPlayerNotFound
	}
	if !to.IsAlive {
		return nil, fmt.Errorf("%w: %s has been eliminated", game.ErrInvalidInput, to.Name)
	}

	w := &model.Whisper{
		ID:           uuid.NewString(),
		GameID:       g.ID,
		FromPlayerID: from.ID,
		ToPlayerID:   to.ID,
		Content:      req.Content,
		Phase:        g.CurrentPhase,
		Day:          g.CurrentDay,
		CreatedAt:    s.now(),
	}
	if err := s.repo.InsertWhisper(ctx, w); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, game.ErrWhisperLimit
		}
		return nil, fmt.Errorf("failed to save whisper: %w", err)
	}

	s.broadcaster.BroadcastToPlayer(g.ID, to.ID, EventWhisper, receivedView(*w, players))
	return sentView(*w, players), nil
}

// Inbox returns the whispers playerID sent and received, newest first
func (s *WhisperService) Inbox(ctx context.Context, gameID, playerID string) (*model.WhisperInbox, error) {
	g, err := s.games.GetGame(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}
	if g == nil {
		return nil, game.ErrGameNotFound
	}
	players, err := s.games.ListPlayers(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	if model.FindPlayer(players, playerID) == nil {
		return nil, game.ErrPlayerNotFound
	}

	whispers, err := s.repo.ListWhispers(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to list whispers: %w", err)
	}
	inbox := &model.WhisperInbox{Sent: []model.WhisperView{}, Received: []model.WhisperView{}}
	for i := len(whispers) - 1; i >= 0; i-- {
		w := whispers[i]
		switch playerID {
		case w.FromPlayerID:
			inbox.Sent = append(inbox.Sent, *sentView(w, players))
		case w.ToPlayerID:
			inbox.Received = append(inbox.Received, *receivedView(w, players))
		}
	}
	return inbox, nil
}

// Leak exposes the sender of a received whisper to the whole game
func (s *WhisperService) Leak(ctx context.Context, gameID, whisperID, playerID string) (*model.WhisperView, error) {
	g, players, err := s.loadPlaying(ctx, gameID)
	if err != nil {
		return nil, err
	}
	w, err := s.repo.GetWhisper(ctx, whisperID)
	if err != nil {
		return nil, fmt.Errorf("failed to get whisper: %w", err)
	}
	if w == nil || w.GameID != gameID {
		return nil, game.ErrWhisperNotFound
	}
	if w.ToPlayerID != playerID {
		return nil, game.ErrNotOwner
	}
	if w.IsLeaked {
		return receivedView(*w, players), nil
	}

	if err := s.repo.MarkWhisperLeaked(ctx, w.ID); err != nil {
		return nil, fmt.Errorf("failed to leak whisper: %w", err)
	}
	w.IsLeaked = true

	view := receivedView(*w, players)
	s.broadcaster.BroadcastToGame(g.ID, EventWhisperLeaked, view)
	return view, nil
}

func (s *WhisperService) loadPlaying(ctx context.Context, gameID string) (*model.Game, []model.Player, error) {
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

func sentView(w model.Whisper, players []model.Player) *model.WhisperView {
	v := baseView(w)
	v.FromPlayerID = w.FromPlayerID
	v.FromPlayerName = playerName(players, w.FromPlayerID)
	v.ToPlayerName = playerName(players, w.ToPlayerID)
	return v
}

// receivedView hides the sender until the whisper is leaked
func receivedView(w model.Whisper, players []model.Player) *model.WhisperView {
	v := baseView(w)
	v.ToPlayerName = playerName(players, w.ToPlayerID)
	if w.IsLeaked {
		v.FromPlayerID = w.FromPlayerID
		v.FromPlayerName = playerName(players, w.FromPlayerID)
	}
	return v
}

func baseView(w model.Whisper) *model.WhisperView {
	return &model.WhisperView{
		ID:         w.ID,
		ToPlayerID: w.ToPlayerID,
		Content:    w.Content,
		Phase:      w.Phase,
		Day:        w.Day,
		IsLeaked:   w.IsLeaked,
		CreatedAt:  w.CreatedAt,
	}
}

func playerName(players []model.Player, id string) string {
	if p := model.FindPlayer(players, id); p != nil {
		return p.Name
	}
	return ""
}
