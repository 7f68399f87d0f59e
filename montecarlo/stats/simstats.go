// Package stats renders what a simulation has seen so far.
package stats

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aybabtme/uniplot/histogram"

	"github.com/domino14/lineupsolver/montecarlo"
	"github.com/domino14/lineupsolver/player"
	"github.com/domino14/lineupsolver/stats"
)

var ErrNoPairing = errors.New("no such simulated pairing")

type SimStats struct {
	simmer *montecarlo.Simmer
	team1  *player.Roster
	team2  *player.Roster
}

func NewSimStats(simmer *montecarlo.Simmer, team1, team2 *player.Roster) *SimStats {
	return &SimStats{simmer: simmer, team1: team1, team2: team2}
}

// Summary lists every pairing, best simulated win rate first, with its
// exact win probability alongside.
func (st *SimStats) Summary() string {
	var ss strings.Builder
	fmt.Fprintf(&ss, "%-4s%-44s%-10s%-18s%-10s%-8s\n", "#", "Pairing", "Sim %", "95% interval", "Exact %", "Iters")
	for i, sp := range st.simmer.Pairings() {
		res := sp.Result()
		lo, hi := sp.Interval(stats.Z95)
		pairing := res.Lineup1.Display(st.team1) + " vs " + res.Lineup2.Display(st.team2)
		fmt.Fprintf(&ss, "%-4d%-44s%-10.2f%-18s%-10.2f%-8d\n", i, pairing,
			100*sp.WinProb(), fmt.Sprintf("%.2f-%.2f", 100*lo, 100*hi),
			100*res.TotalWin, sp.Iterations())
	}
	fmt.Fprintf(&ss, "Iterations: %d\n", st.simmer.Iterations())
	return ss.String()
}

func (st *SimStats) pairing(idx int) (*montecarlo.SimmedPairing, error) {
	ps := st.simmer.Pairings()
	if idx < 0 || idx >= len(ps) {
		return nil, fmt.Errorf("%w: %d", ErrNoPairing, idx)
	}
	return ps[idx], nil
}

// Scorelines tabulates how often team1 won each number of boards in the
// idx-th pairing, simulated against exact.
func (st *SimStats) Scorelines(idx int) (string, error) {
	sp, err := st.pairing(idx)
	if err != nil {
		return "", err
	}
	res := sp.Result()
	counts := sp.Scorelines()
	n := max(1, sp.Iterations())
	var ss strings.Builder
	fmt.Fprintf(&ss, "%-10s%-10s%-12s%-12s\n", "Boards", "Count", "% of time", "Exact %")
	for w, c := range counts {
		fmt.Fprintf(&ss, "%-10s%-10d%-12.2f%-12.2f\n", fmt.Sprintf("%d-%d", w, res.Boards()-w), c,
			100*float64(c)/float64(n), 100*res.Distribution.Exactly(w))
	}
	if res.Tiebreak != nil {
		fmt.Fprintf(&ss, "Ace match won %.2f%% of the time (exact %.2f%%)\n",
			100*sp.TiebreakWinRate(), 100*res.Tiebreak.Prob)
	}
	return ss.String(), nil
}

// Histogram buckets the idx-th pairing's simulated board counts, one bin
// per count seen.
func (st *SimStats) Histogram(idx int) (histogram.Histogram, error) {
	sp, err := st.pairing(idx)
	if err != nil {
		return histogram.Histogram{}, err
	}
	samples := sp.ScorelineSamples()
	if len(samples) == 0 {
		return histogram.Histogram{}, errors.New("nothing simulated yet")
	}
	// samples come out in ascending order
	bins := int(samples[len(samples)-1]-samples[0]) + 1
	return histogram.Hist(bins, samples), nil
}

// PrintHistogram draws the idx-th pairing's histogram width columns wide.
func (st *SimStats) PrintHistogram(w io.Writer, idx, width int) error {
	h, err := st.Histogram(idx)
	if err != nil {
		return err
	}
	return histogram.Fprint(w, h, histogram.Linear(width))
}
