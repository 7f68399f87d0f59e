// Package tiebreak resolves a level regular score through a single ace
// match, chosen by each team from the players in its lineup.
package tiebreak

import (
	"errors"
	"fmt"
	"math/bits"
	"strings"

	"github.com/domino14/lineupsolver/lineup"
	"github.com/domino14/lineupsolver/outcome"
	"github.com/domino14/lineupsolver/player"
	"github.com/domino14/lineupsolver/rating"
)

var (
	ErrNoTiePossible = errors.New("tiebreak needs an even number of boards")
	ErrBadPenalties  = errors.New("invalid tiebreak penalties")
)

// Penalties scale a candidate's ace-match strength. Position[i] applies to
// the player who sat on board i; boards past the end use the last entry.
// LostBoard applies on top when the player lost their own board.
type Penalties struct {
	Position  []float64 `yaml:"position"`
	LostBoard float64   `yaml:"lost_board"`
}

func DefaultPenalties() Penalties {
	return Penalties{
		Position:  []float64{1.00, 0.98, 0.95, 0.90},
		LostBoard: 0.95,
	}
}

func (p Penalties) Validate() error {
	if len(p.Position) == 0 {
		return fmt.Errorf("%w: no position factors", ErrBadPenalties)
	}
	for i, f := range p.Position {
		if f <= 0 {
			return fmt.Errorf("%w: position %d factor %v", ErrBadPenalties, i, f)
		}
	}
	if p.LostBoard <= 0 {
		return fmt.Errorf("%w: lost-board factor %v", ErrBadPenalties, p.LostBoard)
	}
	return nil
}

func (p Penalties) factor(board int, lost bool) float64 {
	idx := min(board, len(p.Position)-1)
	f := p.Position[idx]
	if lost {
		f *= p.LostBoard
	}
	return f
}

// Adjust rescales a base probability by each side's strength factor. It is
// mirror-symmetric: swapping the sides yields exactly 1-Adjust(p, f1, f2).
func Adjust(p, f1, f2 float64) float64 {
	p = rating.Clamp(p)
	num := p * f1
	den := num + (1-p)*f2
	if den == 0 {
		return p
	}
	return rating.Clamp(num / den)
}

// AceFunc returns the base ace-match probability of team1 player a beating
// team2 player b.
type AceFunc func(a, b player.ID) (float64, error)

// Scenario is one way the regular boards can end level.
type Scenario struct {
	// Won has bit i set when team1 won board i.
	Won      uint
	Labels   string
	Weight   float64
	Team1Rep player.ID
	Team2Rep player.ID
	Prob     float64
}

type Outcome struct {
	// Prob is P(team1 wins the ace match | level regular score).
	Prob float64
	// TieMass is the total probability of the level scenarios.
	TieMass   float64
	Scenarios []Scenario
}

// Representatives returns the most likely scenario's picks, for display.
func (o *Outcome) Representatives() (player.ID, player.ID) {
	best := -1
	for i, s := range o.Scenarios {
		if best < 0 || s.Weight > o.Scenarios[best].Weight {
			best = i
		}
	}
	if best < 0 {
		return lineup.Wildcard, lineup.Wildcard
	}
	return o.Scenarios[best].Team1Rep, o.Scenarios[best].Team2Rep
}

type Resolver struct {
	penalties Penalties
}

func NewResolver(p Penalties) (*Resolver, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Resolver{penalties: p}, nil
}

func (r *Resolver) Penalties() Penalties {
	return r.penalties
}

// choice is the accumulator for the selection folds.
type choice struct {
	rep   player.ID
	index int
	value float64
}

// Resolve enumerates every level scenario and lets each team pick its ace:
// team1 maximises its worst case over team2's candidates, team2 minimises
// team1's best case over team1's candidates.
func (r *Resolver) Resolve(boardProbs []float64, l1, l2 lineup.Lineup, ace AceFunc) (*Outcome, error) {
	k := len(boardProbs)
	if k == 0 || k%2 != 0 {
		return nil, ErrNoTiePossible
	}
	if len(l1) != k || len(l2) != k {
		return nil, fmt.Errorf("%w: lineups do not cover %d boards", lineup.ErrInvalidLineup, k)
	}

	base := make([][]float64, k)
	for i, a := range l1 {
		base[i] = make([]float64, k)
		for j, b := range l2 {
			p, err := ace(a, b)
			if err != nil {
				return nil, err
			}
			base[i][j] = p
		}
	}

	o := &Outcome{}
	adj := make([][]float64, k)
	for i := range adj {
		adj[i] = make([]float64, k)
	}
	weighted, unweighted := 0.0, 0.0
	for mask := uint(0); mask < 1<<k; mask++ {
		if bits.OnesCount(mask) != k/2 {
			continue
		}
		for i := 0; i < k; i++ {
			// team1's player on board i lost it when the bit is clear.
			f1 := r.penalties.factor(i, mask&(1<<i) == 0)
			for j := 0; j < k; j++ {
				f2 := r.penalties.factor(j, mask&(1<<j) != 0)
				adj[i][j] = Adjust(base[i][j], f1, f2)
			}
		}
		c1 := pickTeam1(adj, l1)
		c2 := pickTeam2(adj, l2)
		s := Scenario{
			Won:      mask,
			Labels:   labels(mask, k),
			Weight:   outcome.ScenarioProbability(boardProbs, mask),
			Team1Rep: c1.rep,
			Team2Rep: c2.rep,
			Prob:     adj[c1.index][c2.index],
		}
		o.Scenarios = append(o.Scenarios, s)
		o.TieMass += s.Weight
		weighted += s.Weight * s.Prob
		unweighted += s.Prob
	}
	if o.TieMass > 0 {
		o.Prob = rating.Clamp(weighted / o.TieMass)
	} else {
		o.Prob = rating.Clamp(unweighted / float64(len(o.Scenarios)))
	}
	return o, nil
}

func pickTeam1(adj [][]float64, l1 lineup.Lineup) choice {
	best := choice{rep: lineup.Wildcard, index: -1, value: -1}
	for i, row := range adj {
		worst := 2.0
		for _, p := range row {
			worst = min(worst, p)
		}
		if worst > best.value {
			best = choice{rep: l1[i], index: i, value: worst}
		}
	}
	return best
}

func pickTeam2(adj [][]float64, l2 lineup.Lineup) choice {
	best := choice{rep: lineup.Wildcard, index: -1, value: 2}
	for j := range l2 {
		top := -1.0
		for i := range adj {
			top = max(top, adj[i][j])
		}
		if top < best.value {
			best = choice{rep: l2[j], index: j, value: top}
		}
	}
	return best
}

func labels(mask uint, k int) string {
	var sb strings.Builder
	for i := 0; i < k; i++ {
		if mask&(1<<i) != 0 {
			sb.WriteByte('W')
		} else {
			sb.WriteByte('L')
		}
	}
	return sb.String()
}
