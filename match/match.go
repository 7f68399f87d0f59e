// Package match builds the result of one lineup facing another: per-board
// probabilities, the scoreline distribution, the ace tiebreak and the total
// win probability.
package match

import (
	"errors"
	"fmt"
	"strings"

	"github.com/domino14/lineupsolver/lineup"
	"github.com/domino14/lineupsolver/outcome"
	"github.com/domino14/lineupsolver/player"
	"github.com/domino14/lineupsolver/relativity"
	"github.com/domino14/lineupsolver/tiebreak"
)

var ErrMissingRelativity = errors.New("missing relativity")

// Side selects whose point of view a query takes.
type Side int

const (
	Team1 Side = iota
	Team2
)

func (s Side) Other() Side {
	if s == Team1 {
		return Team2
	}
	return Team1
}

func (s Side) String() string {
	if s == Team2 {
		return "team2"
	}
	return "team1"
}

// Result is immutable once built; Builder.Rebuild derives a new one.
type Result struct {
	Lineup1      lineup.Lineup
	Lineup2      lineup.Lineup
	Pairs        []*relativity.Pair
	BoardProbs   []float64
	Distribution outcome.Distribution
	// Tiebreak is nil when the format has no level score.
	Tiebreak *tiebreak.Outcome
	// TieWin is P(level score) * P(team1 wins the ace match).
	TieWin   float64
	TotalWin float64
}

func (r *Result) Boards() int {
	return len(r.BoardProbs)
}

// Decisive is P(team1 wins more than half the boards).
func (r *Result) Decisive() float64 {
	return r.Distribution.Majority()
}

// Sweep is P(team1 wins every board).
func (r *Result) Sweep() float64 {
	return r.Distribution.Exactly(r.Boards())
}

// Swept is P(team1 wins no board).
func (r *Result) Swept() float64 {
	return r.Distribution.Exactly(0)
}

func (r *Result) Tie() float64 {
	return r.Distribution.Tie()
}

func (r *Result) TiebreakProb() float64 {
	if r.Tiebreak == nil {
		return 0
	}
	return r.Tiebreak.Prob
}

// WinFor is the total win probability from side's point of view.
func (r *Result) WinFor(s Side) float64 {
	if s == Team2 {
		return 1 - r.TotalWin
	}
	return r.TotalWin
}

// DecisiveFor is the probability that side wins outright on the regular
// boards.
func (r *Result) DecisiveFor(s Side) float64 {
	if s == Team2 {
		return r.Distribution.Minority()
	}
	return r.Distribution.Majority()
}

// SweepFor is the probability that side wins every board.
func (r *Result) SweepFor(s Side) float64 {
	if s == Team2 {
		return r.Swept()
	}
	return r.Sweep()
}

// LineupFor returns side's lineup.
func (r *Result) LineupFor(s Side) lineup.Lineup {
	if s == Team2 {
		return r.Lineup2
	}
	return r.Lineup1
}

// ToDisplayText renders the result with player names from the rosters.
func (r *Result) ToDisplayText(r1, r2 *player.Roster) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n  vs\n%s\n", r.Lineup1.Display(r1), r.Lineup2.Display(r2))
	for i, p := range r.BoardProbs {
		a, b := r1.Player(r.Lineup1[i]), r2.Player(r.Lineup2[i])
		fmt.Fprintf(&sb, "  board %d: %-16s %-16s %6.2f%%\n", i+1, a.Name, b.Name, 100*p)
	}
	fmt.Fprintf(&sb, "  scorelines: %s\n", r.Distribution)
	if r.Tiebreak != nil {
		a, b := r.Tiebreak.Representatives()
		fmt.Fprintf(&sb, "  level score: %.2f%%, ace match won %.2f%% (likely aces %s vs %s)\n",
			100*r.Tie(), 100*r.Tiebreak.Prob, name(r1, a), name(r2, b))
	}
	fmt.Fprintf(&sb, "  decisive: %.2f%%  sweep: %.2f%%  swept: %.2f%%\n",
		100*r.Decisive(), 100*r.Sweep(), 100*r.Swept())
	fmt.Fprintf(&sb, "  total win: %.2f%%\n", 100*r.TotalWin)
	return sb.String()
}

func name(r *player.Roster, id player.ID) string {
	if p := r.Player(id); p != nil {
		return p.Name
	}
	return "?"
}
