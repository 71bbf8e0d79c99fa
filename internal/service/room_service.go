package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"thetraitors/internal/game"
	"thetraitors/internal/model"
	"thetraitors/internal/repository"
	"time"

	"github.com/google/uuid"
)

// RoomService runs the shared room: a fixed set of objects every alive
// player may act on once per phase, and the personal items they can leave
// behind. Each action produces an anonymous log line.
type RoomService struct {
	games       repository.GameRepo
	repo        repository.NarrativeRepo
	narrator    Narrator
	shuffle     game.Shuffler
	broadcaster Broadcaster
	now         func() time.Time
}

// NewRoomService creates a new room service
func NewRoomService(games repository.GameRepo, repo repository.NarrativeRepo, narrator Narrator) *RoomService {
	return &RoomService{
		games:       games,
		repo:        repo,
		narrator:    narrator,
		broadcaster: noopBroadcaster{},
		now:         time.Now,
	}
}

// SetBroadcaster sets the WebSocket broadcaster
func (s *RoomService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// InitializeRoom furnishes the room and deals personal items. Host only;
// calling it again reports the existing room.
func (s *RoomService) InitializeRoom(ctx context.Context, gameID, actorID string) (*model.RoomSummary, error) {
	g, players, err := s.load(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if g.HostID != actorID {
		return nil, game.ErrNotHost
	}
	if g.Status != model.GamePlaying {
		return nil, game.ErrGameNotPlaying
	}

	created, err := s.ensureRoom(ctx, g, players)
	if err != nil {
		return nil, err
	}
	objects, err := s.repo.ListRoomObjects(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to list room objects: %w", err)
	}
	items, err := s.repo.ListPersonalItems(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to list personal items: %w", err)
	}
	return &model.RoomSummary{ObjectCount: len(objects), ItemCount: len(items), Created: created}, nil
}

// ensureRoom creates the room if it does not exist yet. The bool reports
// whether this call created it.
func (s *RoomService) ensureRoom(ctx context.Context, g *model.Game, players []model.Player) (bool, error) {
	existing, err := s.repo.ListRoomObjects(ctx, g.ID)
	if err != nil {
		return false, fmt.Errorf("failed to list room objects: %w", err)
	}
	if len(existing) > 0 {
		return false, nil
	}

	objects, items := game.NewRoom(g.ID, players, s.shuffle, uuid.NewString)
	if err := s.repo.InsertRoom(ctx, objects, items); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return false, nil
		}
		return false, fmt.Errorf("failed to create room: %w", err)
	}
	log.Printf("Room for game %s furnished with %d objects and %d items", g.ID, len(objects), len(items))
	return true, nil
}

// GetRoom returns the room as playerID sees it. A playing game's room is
// created on first view.
func (s *RoomService) GetRoom(ctx context.Context, gameID, playerID string) (*model.RoomView, error) {
	g, players, err := s.load(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if g.Status == model.GameWaiting {
		return nil, game.ErrGameNotPlaying
	}
	viewer := model.FindPlayer(players, playerID)
	if viewer == nil {
		return nil, game.ErrPlayerNotFound
	}
	if g.Status == model.GamePlaying {
		if _, err := s.ensureRoom(ctx, g, players); err != nil {
			return nil, err
		}
	}

	objects, err := s.repo.ListRoomObjects(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to list room objects: %w", err)
	}
	items, err := s.repo.ListPersonalItems(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to list personal items: %w", err)
	}

	roomLog, err := s.repo.ListRoomLogs(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to list room log: %w", err)
	}

	placedOn := make(map[string][]string)
	view := &model.RoomView{
		Phase:  g.CurrentPhase,
		Day:    g.CurrentDay,
		Items:  []model.PersonalItem{},
		Placed: []model.PersonalItem{},
	}
	for _, it := range items {
		if it.Placed() {
			placedOn[it.ObjectID] = append(placedOn[it.ObjectID], it.Name)
		}
		if it.PlayerID != playerID {
			continue
		}
		if it.Placed() {
			view.Placed = append(view.Placed, it)
		} else {
			view.Items = append(view.Items, it)
		}
	}

	canAct := g.Status == model.GamePlaying && viewer.IsAlive
	view.Objects = make([]model.RoomObjectView, 0, len(objects))
	for _, o := range objects {
		placed := placedOn[o.ID]
		if placed == nil {
			placed = []string{}
		}
		view.Objects = append(view.Objects, model.RoomObjectView{
			RoomObject:  o,
			PlacedItems: placed,
			CanInteract: canAct && !game.Interacted(roomLog, o.ID, playerID, g.CurrentPhase, g.CurrentDay),
		})
	}
	return view, nil
}

// Interact applies an alive player's action to a room object and logs it
func (s *RoomService) Interact(ctx context.Context, gameID, playerID string, req *model.RoomInteractRequest) (*model.RoomLogEntry, error) {
	req.ObjectID = strings.TrimSpace(req.ObjectID)
	req.ItemName = strings.TrimSpace(req.ItemName)
	if req.ObjectID == "" {
		return nil, fmt.Errorf("%w: objectId is required", game.ErrInvalidInput)
	}
	if !req.Action.Valid() {
		return nil, fmt.Errorf("%w: unknown action %q", game.ErrInvalidInput, req.Action)
	}
	if req.Action == model.RoomActionPlace && req.ItemName == "" {
		return nil, fmt.Errorf("%w: itemName is required to place an item", game.ErrInvalidInput)
	}

	g, players, err := s.load(ctx, gameID)
	if err != nil {
		return nil, err
	}
	obj, err := s.repo.GetRoomObject(ctx, req.ObjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to get room object: %w", err)
	}
	if obj == nil || obj.GameID != gameID {
		return nil, game.ErrObjectNotFound
	}
	actor := model.FindPlayer(players, playerID)

	var item *model.PersonalItem
	if req.Action == model.RoomActionPlace {
		item, err = s.findItem(ctx, gameID, playerID, req.ItemName)
		if err != nil {
			return nil, err
		}
	}

	roomLog, err := s.repo.ListRoomLogs(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to list room log: %w", err)
	}

	now := s.now()
	updated, placed, err := game.ApplyRoomAction(g, actor, *obj, req.Action, item, roomLog, now)
	if err != nil {
		return nil, err
	}

	content, err := s.narrator.GenerateRoomInteractionLog(ctx, model.RoomInteraction{
		Action:     req.Action,
		ObjectName: obj.Name,
		ItemName:   req.ItemName,
		PlayerName: actor.Name,
	})
	if err != nil {
		log.Printf("Narrator: room log failed for game %s: %v", g.ID, err)
		content = FallbackRoomLog(obj.Name)
	}

	entry := model.RoomLogEntry{
		ID:         uuid.NewString(),
		GameID:     g.ID,
		PlayerID:   playerID,
		Action:     req.Action,
		ObjectID:   obj.ID,
		ObjectName: obj.Name,
		ItemName:   req.ItemName,
		Phase:      g.CurrentPhase,
		Day:        g.CurrentDay,
		Content:    content,
		CreatedAt:  now,
	}
	if err := s.repo.CommitRoomInteraction(ctx, &model.RoomInteractionCommit{
		Object: *updated,
		Item:   placed,
		Log:    entry,
	}); err != nil {
		if errors.Is(err, game.ErrAlreadyInteracted) || errors.Is(err, game.ErrItemUnavailable) || errors.Is(err, game.ErrObjectNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to save room interaction: %w", err)
	}

	// the room and its log are anonymous to everyone else
	s.broadcaster.BroadcastToGame(g.ID, EventRoomLog, map[string]interface{}{
		"content": entry.Content,
		"phase":   entry.Phase,
		"day":     entry.Day,
	})
	s.broadcaster.BroadcastToGame(g.ID, EventRoomUpdated, map[string]interface{}{
		"objectId": updated.ID,
		"state":    updated.State,
	})
	return &entry, nil
}

func (s *RoomService) findItem(ctx context.Context, gameID, playerID, name string) (*model.PersonalItem, error) {
	items, err := s.repo.ListPersonalItems(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to list personal items: %w", err)
	}
	for i := range items {
		if items[i].PlayerID == playerID && strings.EqualFold(items[i].Name, name) {
			return &items[i], nil
		}
	}
	return nil, game.ErrItemUnavailable
}

// ListRoomLogs returns the room log with player ids removed
func (s *RoomService) ListRoomLogs(ctx context.Context, gameID string) ([]model.RoomLogEntry, error) {
	entries, err := s.repo.ListRoomLogs(ctx, gameID)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		entries[i].PlayerID = ""
	}
	return entries, nil
}

func (s *RoomService) load(ctx context.Context, gameID string) (*model.Game, []model.Player, error) {
	g, err := s.games.GetGame(ctx, gameID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get game: %w", err)
	}
	if g == nil {
		return nil, nil, game.ErrGameNotFound
	}
	players, err := s.games.ListPlayers(ctx, gameID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list players: %w", err)
	}
	return g, players, nil
}
