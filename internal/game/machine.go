package game

import (
	"fmt"
	"thetraitors/internal/model"
	"time"
)

// Transition is the result of advancing a game by one phase
type Transition struct {
	Resolution Resolution
	Commit     model.PhaseCommit
	// Roster is the player list after the elimination was applied
	Roster []model.Player
}

// Start assigns roles and moves g to DAY 1
func Start(g *model.Game, players []model.Player, b Bounds, shuffle Shuffler, now time.Time) (*model.StartCommit, error) {
	if err := ValidateStart(g, players, b); err != nil {
		return nil, err
	}
	next := *g
	next.Status = model.GamePlaying
	next.CurrentPhase = model.PhaseDay
	next.CurrentDay = 1
	next.StartedAt = &now
	next.PhaseStartedAt = &now
	return &model.StartCommit{
		Game:  next,
		Roles: AssignRoles(players, shuffle),
	}, nil
}

// Advance resolves the current phase's votes and computes the next state.
// The win check runs on the roster with the elimination already applied, so
// the returned commit carries the elimination, the new phase and the win
// state together. g and players are not modified.
func Advance(g *model.Game, players []model.Player, votes []model.Vote, r *Resolver, now time.Time) (*Transition, error) {
	if g.Status != model.GamePlaying {
		return nil, ErrGameNotPlaying
	}

	current := make([]model.Vote, 0, len(votes))
	for _, v := range votes {
		if v.Phase != g.CurrentPhase || v.Day != g.CurrentDay {
			continue
		}
		voter := model.FindPlayer(players, v.VoterID)
		target := model.FindPlayer(players, v.TargetID)
		if voter == nil || target == nil || !voter.IsAlive || !target.IsAlive {
			return nil, fmt.Errorf("%w: vote %s references a missing or eliminated player", ErrMalformedVotes, v.ID)
		}
		current = append(current, v)
	}

	res, err := r.Resolve(current)
	if err != nil {
		return nil, err
	}

	roster := make([]model.Player, len(players))
	copy(roster, players)

	t := &Transition{
		Resolution: res,
		Roster:     roster,
		Commit: model.PhaseCommit{
			FromPhase: g.CurrentPhase,
			FromDay:   g.CurrentDay,
		},
	}

	if res.EliminatedID != "" {
		p := model.FindPlayer(roster, res.EliminatedID)
		p.IsAlive = false
		p.EliminatedAt = &now
		p.EliminatedPhase = g.CurrentPhase
		p.EliminatedDay = g.CurrentDay
		eliminated := *p
		t.Commit.Eliminated = &eliminated
	}

	next := *g
	if winner := EvaluateWinner(roster); winner != model.WinnerNone {
		// phase and day stay at the values the game ended on
		next.Status = model.GameEnded
		next.Winner = winner
		next.EndedAt = &now
		next.AutoPhaseEnabled = false
	} else {
		next.CurrentPhase, next.CurrentDay = model.NextPhase(g.CurrentPhase, g.CurrentDay)
		next.PhaseStartedAt = &now
	}
	t.Commit.Game = next

	return t, nil
}

// Result summarizes the transition for API responses and broadcasts
func (t *Transition) Result(at time.Time) model.PhaseResult {
	g := t.Commit.Game
	out := model.PhaseResult{
		GameID:     g.ID,
		FromPhase:  t.Commit.FromPhase,
		FromDay:    t.Commit.FromDay,
		Phase:      g.CurrentPhase,
		Day:        g.CurrentDay,
		Tally:      t.Resolution.Tally,
		TieBroken:  t.Resolution.TieBroken,
		Ended:      g.Status == model.GameEnded,
		Winner:     g.Winner,
		AdvancedAt: at,
	}
	if e := t.Commit.Eliminated; e != nil {
		out.EliminatedID = e.ID
		out.EliminatedName = e.Name
		out.EliminatedRole = e.Role
	}
	return out
}
