// Package relativity computes the pairwise win-probability table between
// two rosters.
package relativity

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/domino14/lineupsolver/player"
	"github.com/domino14/lineupsolver/rating"
)

var ErrDataMissing = errors.New("required data missing")

// RatingSource supplies baseline ratings by player name.
type RatingSource interface {
	Ratings(ctx context.Context) (map[string]float64, error)
}

// HistorySource supplies the head-to-head record between two named players,
// from a's point of view.
type HistorySource interface {
	HeadToHead(ctx context.Context, a, b string) (aWins int, bWins int, err error)
}

// Pair is the relativity between a team1 player and a team2 player.
type Pair struct {
	A     *player.Player
	B     *player.Player
	WinsA int
	WinsB int
	Probs map[rating.Context]float64
}

// Prob returns the probability that A beats B in the given context.
func (p *Pair) Prob(ctx rating.Context) (float64, bool) {
	v, ok := p.Probs[ctx]
	return v, ok
}

func (p *Pair) String() string {
	return fmt.Sprintf("%s vs %s (%d-%d)", p.A.Name, p.B.Name, p.WinsA, p.WinsB)
}

// Table holds one Pair per (roster1 player, roster2 player). It is
// read-only once built.
type Table struct {
	Roster1  *player.Roster
	Roster2  *player.Roster
	Contexts []rating.Context
	pairs    [][]*Pair
}

// Pair returns the relativity for team1 player a against team2 player b,
// or nil if either key is out of range.
func (t *Table) Pair(a, b player.ID) *Pair {
	if int(a) < 0 || int(a) >= len(t.pairs) {
		return nil
	}
	row := t.pairs[a]
	if int(b) < 0 || int(b) >= len(row) {
		return nil
	}
	return row[b]
}

// ApplyRatings seeds each player's baseline rating from a name-keyed map.
// Every player must be present.
func ApplyRatings(r *player.Roster, ratings map[string]float64) error {
	for _, p := range r.Players {
		found := false
		for name, val := range ratings {
			if p.Answers(name) {
				p.Rating = val
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%w: no rating for %s (%s)", ErrDataMissing, p.Name, r.Team)
		}
	}
	return nil
}

// Build computes the full table for the requested contexts. Any missing
// rating or head-to-head record fails the whole build.
func Build(ctx context.Context, r1, r2 *player.Roster, model rating.Model,
	contexts []rating.Context, history HistorySource) (*Table, error) {

	logger := zerolog.Ctx(ctx)
	if len(contexts) == 0 {
		return nil, errors.New("no contexts requested")
	}
	for _, r := range []*player.Roster{r1, r2} {
		for _, p := range r.Players {
			if math.IsNaN(p.Rating) || math.IsInf(p.Rating, 0) {
				return nil, fmt.Errorf("%w: %s (%s) is unrated", ErrDataMissing, p.Name, r.Team)
			}
		}
	}

	t := &Table{
		Roster1:  r1,
		Roster2:  r2,
		Contexts: contexts,
		pairs:    make([][]*Pair, r1.Size()),
	}
	for i, a := range r1.Players {
		t.pairs[i] = make([]*Pair, r2.Size())
		for j, b := range r2.Players {
			aw, bw, err := headToHead(ctx, history, a, b)
			if err != nil {
				return nil, fmt.Errorf("%w: head-to-head %s vs %s: %w", ErrDataMissing, a.Name, b.Name, err)
			}
			if aw < 0 || bw < 0 {
				return nil, fmt.Errorf("%w: negative head-to-head record %s vs %s", ErrDataMissing, a.Name, b.Name)
			}
			pair := &Pair{A: a, B: b, WinsA: aw, WinsB: bw,
				Probs: make(map[rating.Context]float64, len(contexts))}
			for _, c := range contexts {
				pair.Probs[c] = model.ContextProbability(a, b, c, aw, bw)
			}
			t.pairs[i][j] = pair
		}
	}
	logger.Debug().Int("pairs", r1.Size()*r2.Size()).Int("contexts", len(contexts)).
		Msg("relativity-table-built")
	return t, nil
}

// headToHead asks history about every name pairing of a and b, display
// names first, and returns the first record it has. The error is the one
// for the display names.
func headToHead(ctx context.Context, history HistorySource, a, b *player.Player) (int, int, error) {
	var first error
	for _, an := range a.Names() {
		for _, bn := range b.Names() {
			aw, bw, err := history.HeadToHead(ctx, an, bn)
			if err == nil {
				return aw, bw, nil
			}
			if first == nil {
				first = err
			}
		}
	}
	return 0, 0, first
}

// FixedHistory is a HistorySource with no recorded games for anybody.
type FixedHistory struct{}

func (FixedHistory) HeadToHead(context.Context, string, string) (int, int, error) {
	return 0, 0, nil
}

// Uniform builds a table where every pairing has probability p in every
// context. It is mostly useful for what-if analysis and tests.
func Uniform(r1, r2 *player.Roster, contexts []rating.Context, p float64) *Table {
	t := &Table{Roster1: r1, Roster2: r2, Contexts: contexts, pairs: make([][]*Pair, r1.Size())}
	for i, a := range r1.Players {
		t.pairs[i] = make([]*Pair, r2.Size())
		for j, b := range r2.Players {
			pair := &Pair{A: a, B: b, Probs: map[rating.Context]float64{}}
			for _, c := range contexts {
				pair.Probs[c] = rating.Clamp(p)
			}
			t.pairs[i][j] = pair
		}
	}
	return t
}

// Override replaces the probability of one pairing in one context. It is
// meant for what-if edits between computations.
func (t *Table) Override(a, b player.ID, c rating.Context, p float64) error {
	pair := t.Pair(a, b)
	if pair == nil {
		return fmt.Errorf("%w: no pair %d/%d", ErrDataMissing, a, b)
	}
	pair.Probs[c] = rating.Clamp(p)
	return nil
}
