package game

import (
	"fmt"
	"math/rand/v2"
	"thetraitors/internal/model"
)

// Bounds are the allowed roster sizes for starting a game
type Bounds struct {
	MinPlayers int
	MaxPlayers int
}

// DefaultBounds are used when no configuration overrides them
var DefaultBounds = Bounds{MinPlayers: 4, MaxPlayers: 12}

// TraitorCount returns how many traitors a game of n players gets
func TraitorCount(n int) int {
	return max(1, n/3)
}

// Shuffler permutes n elements by calling swap, like rand.Shuffle
type Shuffler func(n int, swap func(i, j int))

// ValidateStart checks that a game can move from WAITING to PLAYING
func ValidateStart(g *model.Game, players []model.Player, b Bounds) error {
	if g.Status != model.GameWaiting {
		return ErrGameNotWaiting
	}
	n := len(players)
	if n < b.MinPlayers || n > b.MaxPlayers {
		return fmt.Errorf("%w: need %d-%d players, have %d", ErrPlayerCount, b.MinPlayers, b.MaxPlayers, n)
	}
	traitors := TraitorCount(n)
	if traitors >= n-traitors {
		return fmt.Errorf("%w: too many traitors for %d players", ErrPlayerCount, n)
	}
	return nil
}

// AssignRoles shuffles the roster and marks the first TraitorCount(n) players
// as traitors. It returns player id -> role. A nil shuffle uses math/rand/v2.
func AssignRoles(players []model.Player, shuffle Shuffler) map[string]model.Role {
	if shuffle == nil {
		shuffle = rand.Shuffle
	}
	ids := make([]string, len(players))
	for i, p := range players {
		ids[i] = p.ID
	}
	shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })

	traitors := TraitorCount(len(ids))
	roles := make(map[string]model.Role, len(ids))
	for i, id := range ids {
		if i < traitors {
			roles[id] = model.RoleTraitor
		} else {
			roles[id] = model.RoleFaithful
		}
	}
	return roles
}

// EvaluateWinner returns the winning faction for a roster, or WinnerNone
// while the game should continue.
func EvaluateWinner(players []model.Player) model.Winner {
	traitors, faithfuls := model.AliveCounts(players)
	if traitors == 0 {
		return model.WinnerFaithfuls
	}
	if traitors >= faithfuls {
		return model.WinnerTraitors
	}
	return model.WinnerNone
}

// ValidateJoin checks that a new player named name may join g
func ValidateJoin(g *model.Game, players []model.Player, name string, maxPlayers int) error {
	if g.Status != model.GameWaiting {
		return ErrGameNotWaiting
	}
	if len(players) >= maxPlayers {
		return ErrGameFull
	}
	key := model.NameKey(name)
	if key == "" {
		return fmt.Errorf("%w: player name is required", ErrInvalidInput)
	}
	for _, p := range players {
		if p.NameKey == key {
			return ErrDuplicateName
		}
	}
	return nil
}

// ValidateVote checks that voter may vote for target in the current phase
func ValidateVote(g *model.Game, voter, target *model.Player) error {
	if g.Status != model.GamePlaying {
		return ErrGameNotPlaying
	}
	if voter == nil || target == nil {
		return ErrPlayerNotFound
	}
	if !voter.IsAlive {
		return ErrDeadVoter
	}
	if !target.IsAlive {
		return ErrDeadTarget
	}
	if voter.ID == target.ID {
		return ErrSelfVote
	}
	if g.CurrentPhase == model.PhaseNight && voter.Role != model.RoleTraitor {
		return ErrNightVoteRestricted
	}
	return nil
}
