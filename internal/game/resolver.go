package game

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"thetraitors/internal/model"
)

// Resolution is the outcome of tallying one phase's votes
type Resolution struct {
	EliminatedID string         `json:"eliminatedId,omitempty"`
	Tally        map[string]int `json:"tally"`
	TieBroken    bool           `json:"tieBroken"`
	Tied         []string       `json:"tied,omitempty"`
}

// Resolver picks the plurality target of a set of votes.
// Ties are broken by a uniform draw from intn.
type Resolver struct {
	intn func(n int) int
}

// NewResolver creates a resolver. A nil intn uses math/rand/v2.
func NewResolver(intn func(n int) int) *Resolver {
	if intn == nil {
		intn = rand.IntN
	}
	return &Resolver{intn: intn}
}

// Resolve tallies votes by target and returns the eliminated player, if any.
// The caller is responsible for passing only the current phase's votes.
func (r *Resolver) Resolve(votes []model.Vote) (Resolution, error) {
	res := Resolution{Tally: make(map[string]int)}
	for _, v := range votes {
		if v.VoterID == "" || v.TargetID == "" {
			return Resolution{}, fmt.Errorf("%w: vote %q has no voter or target", ErrMalformedVotes, v.ID)
		}
		res.Tally[v.TargetID]++
	}
	if len(res.Tally) == 0 {
		return res, nil
	}

	best := 0
	for _, n := range res.Tally {
		if n > best {
			best = n
		}
	}
	var top []string
	for id, n := range res.Tally {
		if n == best {
			top = append(top, id)
		}
	}
	// map order is random; sort so a seeded intn is reproducible
	sort.Strings(top)

	if len(top) == 1 {
		res.EliminatedID = top[0]
		return res, nil
	}

	res.Tied = top
	res.TieBroken = true
	res.EliminatedID = top[r.intn(len(top))]
	return res, nil
}
