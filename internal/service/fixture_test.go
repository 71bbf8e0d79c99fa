package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"thetraitors/internal/cache"
	"thetraitors/internal/game"
	"thetraitors/internal/model"
	"thetraitors/internal/repository"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type event struct {
	gameID   string
	playerID string
	msgType  string
	payload  interface{}
}

type recorder struct {
	mu     sync.Mutex
	events []event
}

func (r *recorder) BroadcastToGame(gameID string, msgType string, payload interface{}) {
	r.mu.Lock()
	r.events = append(r.events, event{gameID: gameID, msgType: msgType, payload: payload})
	r.mu.Unlock()
}

func (r *recorder) BroadcastToPlayer(gameID, playerID string, msgType string, payload interface{}) {
	r.mu.Lock()
	r.events = append(r.events, event{gameID: gameID, playerID: playerID, msgType: msgType, payload: payload})
	r.mu.Unlock()
}

func (r *recorder) count(msgType string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.msgType == msgType {
			n++
		}
	}
	return n
}

type stubNarrator struct {
	mu    sync.Mutex
	err   error
	calls map[string]int
}

func (n *stubNarrator) record(kind string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.calls == nil {
		n.calls = map[string]int{}
	}
	n.calls[kind]++
	return n.err
}

func (n *stubNarrator) called(kind string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls[kind]
}

func (n *stubNarrator) GenerateNarration(_ context.Context, gc model.GameContext, _ string) (string, error) {
	if err := n.record("narration"); err != nil {
		return "", err
	}
	return fmt.Sprintf("narration %s %d", gc.CurrentPhase, gc.CurrentDay), nil
}

func (n *stubNarrator) GenerateMission(_ context.Context, _ model.GameContext, pc model.PlayerContext) (string, error) {
	if err := n.record("mission"); err != nil {
		return "", err
	}
	return "mission for " + pc.Name, nil
}

func (n *stubNarrator) GenerateChaosEvent(_ context.Context, _ model.GameContext) (string, error) {
	if err := n.record("chaos"); err != nil {
		return "", err
	}
	return "chaos", nil
}

func (n *stubNarrator) GenerateRoomInteractionLog(_ context.Context, ri model.RoomInteraction) (string, error) {
	if err := n.record("room"); err != nil {
		return "", err
	}
	return "someone touched the " + ri.ObjectName, nil
}

type fixture struct {
	store     *repository.MemoryStore
	locks     *game.LockRegistry
	auth      *AuthService
	games     *GameService
	votes     *VoteService
	phases    *PhaseService
	narrative *NarrativeService
	rooms     *RoomService
	whispers  *WhisperService
	autoPhase *AutoPhaseService
	narrator  *stubNarrator
	events    *recorder
	clock     *fakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithRepo(t, repository.NewMemoryStore(), nil)
}

// newFixtureWithRepo wires services over store, letting tests wrap the game
// repository to inject failures or delays.
func newFixtureWithRepo(t *testing.T, store *repository.MemoryStore, wrap func(repository.GameRepo) repository.GameRepo) *fixture {
	t.Helper()
	var repo repository.GameRepo = store
	if wrap != nil {
		repo = wrap(store)
	}

	f := &fixture{
		store:    store,
		locks:    game.NewLockRegistry(),
		auth:     NewAuthService("test-secret", time.Hour),
		narrator: &stubNarrator{},
		events:   &recorder{},
		clock:    &fakeClock{t: time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)},
	}
	noCache := cache.NewNoopGameCache()

	f.games = NewGameService(repo, noCache, f.auth, f.locks, game.DefaultBounds)
	f.votes = NewVoteService(repo, noCache)
	f.narrative = NewNarrativeService(repo, store, f.narrator)
	f.rooms = NewRoomService(repo, store, f.narrator)
	f.whispers = NewWhisperService(repo, store)
	f.phases = NewPhaseService(repo, noCache, f.locks, game.NewResolver(nil), f.narrative)
	f.autoPhase = NewAutoPhaseService(repo, f.phases, 4, model.DefaultPhaseDuration)

	f.games.now = f.clock.Now
	f.votes.now = f.clock.Now
	f.narrative.now = f.clock.Now
	f.rooms.now = f.clock.Now
	f.whispers.now = f.clock.Now
	f.phases.now = f.clock.Now
	f.autoPhase.now = f.clock.Now

	// keep join order: the first TraitorCount players become traitors
	f.games.shuffle = func(int, func(i, j int)) {}
	f.rooms.shuffle = func(int, func(i, j int)) {}

	f.games.SetBroadcaster(f.events)
	f.votes.SetBroadcaster(f.events)
	f.phases.SetBroadcaster(f.events)
	f.narrative.SetBroadcaster(f.events)
	f.rooms.SetBroadcaster(f.events)
	f.whispers.SetBroadcaster(f.events)

	t.Cleanup(func() {
		require.NoError(t, f.phases.Wait(context.Background()))
	})
	return f
}

// settle waits for narrative work started by earlier advances
func (f *fixture) settle(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, f.phases.Wait(ctx))
}

// newGame creates a game with n players, host first, and returns the
// game id and player ids in join order
func (f *fixture) newGame(t *testing.T, n int) (string, []string) {
	t.Helper()
	ctx := context.Background()

	created, err := f.games.CreateGame(ctx, "Host")
	require.NoError(t, err)
	ids := []string{created.HostID}
	for i := 1; i < n; i++ {
		joined, err := f.games.JoinGame(ctx, created.GameCode, fmt.Sprintf("Player%d", i))
		require.NoError(t, err)
		ids = append(ids, joined.PlayerID)
	}
	return created.GameID, ids
}

// startedGame creates and starts a game of n players
func (f *fixture) startedGame(t *testing.T, n int) (string, []string) {
	t.Helper()
	gameID, ids := f.newGame(t, n)
	_, err := f.games.StartGame(context.Background(), gameID, ids[0])
	require.NoError(t, err)
	return gameID, ids
}

func (f *fixture) mustGame(t *testing.T, gameID string) *model.Game {
	t.Helper()
	g, err := f.store.GetGame(context.Background(), gameID)
	require.NoError(t, err)
	require.NotNil(t, g)
	return g
}

func (f *fixture) mustPlayer(t *testing.T, gameID, playerID string) model.Player {
	t.Helper()
	players, err := f.store.ListPlayers(context.Background(), gameID)
	require.NoError(t, err)
	p := model.FindPlayer(players, playerID)
	require.NotNil(t, p)
	return *p
}

var errInjected = errors.New("injected failure")
