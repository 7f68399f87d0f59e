// Package optimizer answers lineup questions against a built matrix: best
// expected value, maximin, and counter-picks against a partly known order.
package optimizer

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/samber/lo"

	"github.com/domino14/lineupsolver/lineup"
	"github.com/domino14/lineupsolver/match"
	"github.com/domino14/lineupsolver/matrix"
)

var ErrNoOpponents = errors.New("no opposing lineup matches")

type Objective int

const (
	ByAverage Objective = iota
	ByWorstCase
)

func (o Objective) String() string {
	if o == ByWorstCase {
		return "maximin"
	}
	return "best-average"
}

func ParseObjective(s string) (Objective, error) {
	switch s {
	case "best", "average", "best-average":
		return ByAverage, nil
	case "maximin", "robust":
		return ByWorstCase, nil
	}
	return 0, fmt.Errorf("unknown objective %q", s)
}

// Ranked is one of the side's own lineups with its score against the
// considered opponents. Every probability is from the side's point of view.
type Ranked struct {
	// Index into m.Lineups(side).
	Index  int
	Lineup lineup.Lineup
	// Value is what the objective ranks by: mean win probability for
	// ByAverage, worst-case win probability for ByWorstCase.
	Value    float64
	Mean     float64
	Decisive float64
	Sweep    float64
	// Worst indexes m.Opponents(side): the reply that holds this lineup to
	// its lowest win probability, and among those the lowest decisive then
	// sweep probability.
	Worst     int
	Opponents int
}

// worstReply is the fold accumulator for the maximin objective. Among the
// replies that hold a lineup to its lowest win probability it keeps the
// lowest decisive and sweep probabilities, so ties in win probability do
// not depend on column order.
type worstReply struct {
	index    int
	win      float64
	decisive float64
	sweep    float64
}

func newWorstReply() worstReply {
	return worstReply{index: -1, win: math.Inf(1), decisive: math.Inf(1), sweep: math.Inf(1)}
}

func (w worstReply) fold(j int, res *match.Result, side match.Side) worstReply {
	win, dec, sw := res.WinFor(side), res.DecisiveFor(side), res.SweepFor(side)
	switch {
	case win < w.win:
		return worstReply{index: j, win: win, decisive: dec, sweep: sw}
	case win == w.win:
		if dec < w.decisive || (dec == w.decisive && sw < w.sweep) {
			w.index = j
		}
		w.decisive = min(w.decisive, dec)
		w.sweep = min(w.sweep, sw)
	}
	return w
}

// opponents returns the indices of opposing lineups matching pattern.
func opponents(m *matrix.Matrix, side match.Side, pattern lineup.Pattern) []int {
	opp := m.Opponents(side)
	return lo.Filter(lo.Range(len(opp)), func(j int, _ int) bool {
		return pattern.Matches(opp[j])
	})
}

func rank(m *matrix.Matrix, side match.Side, pattern lineup.Pattern, obj Objective) ([]*Ranked, error) {
	opp := opponents(m, side, pattern)
	if len(opp) == 0 {
		return nil, ErrNoOpponents
	}
	own := m.Lineups(side)
	ranked := make([]*Ranked, len(own))
	for i, l := range own {
		worst := newWorstReply()
		var sum, decisive, sweep float64
		for _, j := range opp {
			res := m.For(side, i, j)
			sum += res.WinFor(side)
			worst = worst.fold(j, res, side)
		}
		r := &Ranked{
			Index:     i,
			Lineup:    l,
			Mean:      sum / float64(len(opp)),
			Worst:     worst.index,
			Opponents: len(opp),
		}
		switch obj {
		case ByWorstCase:
			r.Value = worst.win
			r.Decisive = worst.decisive
			r.Sweep = worst.sweep
		default:
			for _, j := range opp {
				res := m.For(side, i, j)
				decisive += res.DecisiveFor(side)
				sweep += res.SweepFor(side)
			}
			r.Value = r.Mean
			r.Decisive = decisive / float64(len(opp))
			r.Sweep = sweep / float64(len(opp))
		}
		ranked[i] = r
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		x, y := ranked[a], ranked[b]
		if x.Value != y.Value {
			return x.Value > y.Value
		}
		if x.Decisive != y.Decisive {
			return x.Decisive > y.Decisive
		}
		if x.Sweep != y.Sweep {
			return x.Sweep > y.Sweep
		}
		return x.Mean > y.Mean
	})
	return ranked, nil
}

// BestAverage ranks the side's lineups by mean win probability over
// the opposing lineups matching pattern (nil or all wildcards for every
// opponent). Ties fall to decisive then sweep probability.
func BestAverage(m *matrix.Matrix, side match.Side, pattern lineup.Pattern) ([]*Ranked, error) {
	return rank(m, side, pattern, ByAverage)
}

// Maximin ranks the side's lineups by their worst-case win
// probability over every opposing lineup. For Team2 this is team2
// minimising team1's best reply.
func Maximin(m *matrix.Matrix, side match.Side) ([]*Ranked, error) {
	return rank(m, side, nil, ByWorstCase)
}

// CounterPick filters the opposing lineups to those agreeing with the known
// slots of oppPattern and ranks the side's lineups by obj over them.
func CounterPick(m *matrix.Matrix, side match.Side, oppPattern lineup.Pattern, obj Objective) ([]*Ranked, error) {
	return rank(m, side, oppPattern, obj)
}

// Restrict keeps the rankings whose lineup agrees with own, preserving
// order. It answers "best among the lineups we can still field".
func Restrict(ranked []*Ranked, own lineup.Pattern) []*Ranked {
	return lo.Filter(ranked, func(r *Ranked, _ int) bool {
		return own.Matches(r.Lineup)
	})
}

// Best returns the top ranking, or nil.
func Best(ranked []*Ranked) *Ranked {
	if len(ranked) == 0 {
		return nil
	}
	return ranked[0]
}
