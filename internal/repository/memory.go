package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"thetraitors/internal/game"
	"thetraitors/internal/model"
	"time"
)

type voteKey struct {
	gameID  string
	voterID string
	phase   model.Phase
	day     int
}

// MemoryStore is an in-process GameRepo and NarrativeRepo. It is used for
// single-node runs without MongoDB and in tests. Commits validate everything
// before writing anything, so they are all-or-nothing like the Mongo ones.
type MemoryStore struct {
	mu sync.RWMutex

	games   map[string]model.Game
	codes   map[string]string // code -> game id
	players map[string]model.Player
	rosters map[string][]string // game id -> player ids in join order
	votes   map[voteKey]model.Vote
	voteSeq []voteKey

	narrations []model.Narration
	missions   []model.Mission
	chaos      []model.ChaosEvent
	roomLogs   []model.RoomLogEntry

	roomObjects map[string]model.RoomObject // id -> object
	roomOrder   []string
	items       map[string]model.PersonalItem
	itemOrder   []string
	whispers    []model.Whisper
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		games:   make(map[string]model.Game),
		codes:   make(map[string]string),
		players: make(map[string]model.Player),
		rosters: make(map[string][]string),
		votes:   make(map[voteKey]model.Vote),

		roomObjects: make(map[string]model.RoomObject),
		items:       make(map[string]model.PersonalItem),
	}
}

func (s *MemoryStore) CreateGame(_ context.Context, g *model.Game, host *model.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.games[g.ID]; ok {
		return fmt.Errorf("game %s: %w", g.ID, ErrDuplicate)
	}
	if _, ok := s.codes[g.Code]; ok {
		return fmt.Errorf("game code %s: %w", g.Code, ErrDuplicate)
	}
	s.games[g.ID] = *g
	s.codes[g.Code] = g.ID
	s.players[host.ID] = *host
	s.rosters[g.ID] = []string{host.ID}
	return nil
}

func (s *MemoryStore) GetGame(_ context.Context, id string) (*model.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.games[id]
	if !ok {
		return nil, nil
	}
	return &g, nil
}

func (s *MemoryStore) GetGameByCode(ctx context.Context, code string) (*model.Game, error) {
	s.mu.RLock()
	id, ok := s.codes[code]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return s.GetGame(ctx, id)
}

func (s *MemoryStore) AddPlayer(_ context.Context, p *model.Player, maxPlayers int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.games[p.GameID]
	if !ok {
		return game.ErrGameNotFound
	}
	if g.Status != model.GameWaiting {
		return game.ErrGameNotWaiting
	}
	if len(s.rosters[p.GameID]) >= maxPlayers {
		return game.ErrGameFull
	}
	for _, id := range s.rosters[p.GameID] {
		if s.players[id].NameKey == p.NameKey {
			return game.ErrDuplicateName
		}
	}
	s.players[p.ID] = *p
	s.rosters[p.GameID] = append(s.rosters[p.GameID], p.ID)
	g.RosterVersion++
	s.games[p.GameID] = g
	return nil
}

func (s *MemoryStore) ListPlayers(_ context.Context, gameID string) ([]model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.rosters[gameID]
	players := make([]model.Player, 0, len(ids))
	for _, id := range ids {
		players = append(players, s.players[id])
	}
	return players, nil
}

func (s *MemoryStore) UpsertVote(_ context.Context, v *model.Vote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := voteKey{v.GameID, v.VoterID, v.Phase, v.Day}
	if existing, ok := s.votes[k]; ok {
		existing.TargetID = v.TargetID
		existing.UpdatedAt = v.UpdatedAt
		s.votes[k] = existing
		return nil
	}
	s.votes[k] = *v
	s.voteSeq = append(s.voteSeq, k)
	return nil
}

func (s *MemoryStore) ListVotes(_ context.Context, gameID string, phase model.Phase, day int) ([]model.Vote, error) {
	return s.filterVotes(func(k voteKey) bool {
		return k.gameID == gameID && k.phase == phase && k.day == day
	}), nil
}

func (s *MemoryStore) ListAllVotes(_ context.Context, gameID string) ([]model.Vote, error) {
	return s.filterVotes(func(k voteKey) bool { return k.gameID == gameID }), nil
}

func (s *MemoryStore) filterVotes(match func(voteKey) bool) []model.Vote {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Vote
	for _, k := range s.voteSeq {
		if match(k) {
			out = append(out, s.votes[k])
		}
	}
	return out
}

func (s *MemoryStore) CommitStart(_ context.Context, c *model.StartCommit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g := c.Game
	stored, ok := s.games[g.ID]
	if !ok {
		return game.ErrGameNotFound
	}
	if stored.Status != model.GameWaiting {
		return game.ErrGameNotWaiting
	}
	if len(s.rosters[g.ID]) != len(c.Roles) {
		return fmt.Errorf("%w: roster changed while starting", game.ErrLockContention)
	}
	for id := range c.Roles {
		if p, ok := s.players[id]; !ok || p.GameID != g.ID {
			return fmt.Errorf("%w: %s", game.ErrPlayerNotFound, id)
		}
	}

	stored.Status = g.Status
	stored.CurrentPhase = g.CurrentPhase
	stored.CurrentDay = g.CurrentDay
	stored.StartedAt = g.StartedAt
	stored.PhaseStartedAt = g.PhaseStartedAt
	s.games[g.ID] = stored
	for id, role := range c.Roles {
		p := s.players[id]
		p.Role = role
		s.players[id] = p
	}
	return nil
}

func (s *MemoryStore) CommitPhase(_ context.Context, c *model.PhaseCommit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g := c.Game
	stored, ok := s.games[g.ID]
	if !ok {
		return game.ErrGameNotFound
	}
	if stored.Status != model.GamePlaying || stored.CurrentPhase != c.FromPhase || stored.CurrentDay != c.FromDay {
		return fmt.Errorf("%w: game already left %s %d", game.ErrLockContention, c.FromPhase, c.FromDay)
	}
	if e := c.Eliminated; e != nil {
		p, ok := s.players[e.ID]
		if !ok || p.GameID != g.ID || !p.IsAlive {
			return fmt.Errorf("%w: player %s is not alive", game.ErrMalformedVotes, e.ID)
		}
	}

	stored.Status = g.Status
	stored.CurrentPhase = g.CurrentPhase
	stored.CurrentDay = g.CurrentDay
	stored.Winner = g.Winner
	stored.AutoPhaseEnabled = g.AutoPhaseEnabled
	stored.PhaseStartedAt = g.PhaseStartedAt
	stored.EndedAt = g.EndedAt
	s.games[g.ID] = stored

	if e := c.Eliminated; e != nil {
		p := s.players[e.ID]
		p.IsAlive = false
		p.EliminatedAt = e.EliminatedAt
		p.EliminatedPhase = e.EliminatedPhase
		p.EliminatedDay = e.EliminatedDay
		s.players[e.ID] = p
	}
	return nil
}

func (s *MemoryStore) UpdateAutoPhase(_ context.Context, gameID string, enabled bool, d time.Duration, phaseStartedAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.games[gameID]
	if !ok {
		return game.ErrGameNotFound
	}
	g.AutoPhaseEnabled = enabled
	g.PhaseDuration = d
	g.PhaseStartedAt = phaseStartedAt
	s.games[gameID] = g
	return nil
}

func (s *MemoryStore) ListAutoPhaseGames(_ context.Context) ([]model.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Game
	for _, g := range s.games {
		if g.Status == model.GamePlaying && g.AutoPhaseEnabled && g.PhaseStartedAt != nil {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) GetNarration(_ context.Context, gameID string, phase model.Phase, day int) (*model.Narration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, n := range s.narrations {
		if n.GameID == gameID && n.Phase == phase && n.Day == day {
			return &n, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) InsertNarration(_ context.Context, n *model.Narration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.narrations {
		if existing.GameID == n.GameID && existing.Phase == n.Phase && existing.Day == n.Day {
			return ErrDuplicate
		}
	}
	s.narrations = append(s.narrations, *n)
	return nil
}

func (s *MemoryStore) ListNarrations(_ context.Context, gameID string) ([]model.Narration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Narration
	for _, n := range s.narrations {
		if n.GameID == gameID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *MemoryStore) ListMissions(_ context.Context, gameID string, phase model.Phase, day int) ([]model.Mission, error) {
	return s.filterMissions(func(m model.Mission) bool {
		return m.GameID == gameID && m.Phase == phase && m.Day == day
	}), nil
}

func (s *MemoryStore) ListPlayerMissions(_ context.Context, gameID, playerID string) ([]model.Mission, error) {
	return s.filterMissions(func(m model.Mission) bool {
		return m.GameID == gameID && m.PlayerID == playerID
	}), nil
}

func (s *MemoryStore) filterMissions(match func(model.Mission) bool) []model.Mission {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Mission
	for _, m := range s.missions {
		if match(m) {
			out = append(out, m)
		}
	}
	return out
}

func (s *MemoryStore) InsertMissions(_ context.Context, missions []model.Mission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range missions {
		for _, existing := range s.missions {
			if existing.GameID == m.GameID && existing.PlayerID == m.PlayerID && existing.Phase == m.Phase && existing.Day == m.Day {
				return ErrDuplicate
			}
		}
	}
	s.missions = append(s.missions, missions...)
	return nil
}

func (s *MemoryStore) GetMission(_ context.Context, id string) (*model.Mission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.missions {
		if m.ID == id {
			return &m, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) SetMissionCompleted(_ context.Context, id string, completed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.missions {
		if s.missions[i].ID == id {
			s.missions[i].Completed = completed
			return nil
		}
	}
	return nil
}

func (s *MemoryStore) GetChaosEvent(_ context.Context, gameID string, phase model.Phase, day int) (*model.ChaosEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.chaos {
		if e.GameID == gameID && e.Phase == phase && e.Day == day {
			return &e, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) InsertChaosEvent(_ context.Context, e *model.ChaosEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.chaos {
		if existing.GameID == e.GameID && existing.Phase == e.Phase && existing.Day == e.Day {
			return ErrDuplicate
		}
	}
	s.chaos = append(s.chaos, *e)
	return nil
}

func (s *MemoryStore) ListChaosEvents(_ context.Context, gameID string) ([]model.ChaosEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.ChaosEvent
	for _, e := range s.chaos {
		if e.GameID == gameID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *MemoryStore) ListRoomLogs(_ context.Context, gameID string) ([]model.RoomLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.RoomLogEntry
	for _, e := range s.roomLogs {
		if e.GameID == gameID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *MemoryStore) InsertRoom(_ context.Context, objects []model.RoomObject, items []model.PersonalItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range objects {
		for _, id := range s.roomOrder {
			if existing := s.roomObjects[id]; existing.GameID == o.GameID && existing.Name == o.Name {
				return fmt.Errorf("room object %s: %w", o.Name, ErrDuplicate)
			}
		}
	}
	for _, o := range objects {
		s.roomObjects[o.ID] = o
		s.roomOrder = append(s.roomOrder, o.ID)
	}
	for _, it := range items {
		s.items[it.ID] = it
		s.itemOrder = append(s.itemOrder, it.ID)
	}
	return nil
}

func (s *MemoryStore) ListRoomObjects(_ context.Context, gameID string) ([]model.RoomObject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.RoomObject
	for _, id := range s.roomOrder {
		if o := s.roomObjects[id]; o.GameID == gameID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStore) GetRoomObject(_ context.Context, id string) (*model.RoomObject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.roomObjects[id]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (s *MemoryStore) ListPersonalItems(_ context.Context, gameID string) ([]model.PersonalItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.PersonalItem
	for _, id := range s.itemOrder {
		if it := s.items[id]; it.GameID == gameID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStore) CommitRoomInteraction(_ context.Context, c *model.RoomInteractionCommit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o := c.Object
	if _, ok := s.roomObjects[o.ID]; !ok {
		return game.ErrObjectNotFound
	}
	l := c.Log
	if game.Interacted(s.roomLogs, l.ObjectID, l.PlayerID, l.Phase, l.Day) {
		return game.ErrAlreadyInteracted
	}
	if it := c.Item; it != nil {
		storedItem, ok := s.items[it.ID]
		if !ok || storedItem.PlayerID != it.PlayerID || storedItem.Placed() {
			return game.ErrItemUnavailable
		}
	}

	s.roomObjects[o.ID] = o
	if it := c.Item; it != nil {
		s.items[it.ID] = *it
	}
	s.roomLogs = append(s.roomLogs, c.Log)
	return nil
}

func (s *MemoryStore) InsertWhisper(_ context.Context, w *model.Whisper) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.whispers {
		if existing.GameID == w.GameID && existing.FromPlayerID == w.FromPlayerID && existing.Phase == w.Phase && existing.Day == w.Day {
			return ErrDuplicate
		}
	}
	s.whispers = append(s.whispers, *w)
	return nil
}

func (s *MemoryStore) GetWhisper(_ context.Context, id string) (*model.Whisper, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, w := range s.whispers {
		if w.ID == id {
			return &w, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) ListWhispers(_ context.Context, gameID string) ([]model.Whisper, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Whisper
	for _, w := range s.whispers {
		if w.GameID == gameID {
			out = append(out, w)
		}
	}
	return out, nil
}

func (s *MemoryStore) MarkWhisperLeaked(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.whispers {
		if s.whispers[i].ID == id {
			s.whispers[i].IsLeaked = true
		}
	}
	return nil
}

var (
	_ GameRepo      = (*MemoryStore)(nil)
	_ NarrativeRepo = (*MemoryStore)(nil)
)
