// Package montecarlo plays lineup pairings out board by board, as a
// cross-check on the exact match computation and to show how scorelines
// spread over a season's worth of matches.
package montecarlo

import (
	"context"
	"errors"
	"fmt"
	"math/bits"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"lukechampine.com/frand"

	"github.com/domino14/lineupsolver/match"
	"github.com/domino14/lineupsolver/stats"
)

// SimmedPairing accumulates simulated matches of one lineup pairing.
type SimmedPairing struct {
	sync.RWMutex
	result *match.Result
	// aceProbs maps a level-score board mask to team1's adjusted ace
	// probability in that scenario.
	aceProbs map[uint]float64

	winStats     stats.Statistic
	scorelines   []int
	tiebreaks    int
	tiebreakWins int
}

func newSimmedPairing(res *match.Result) *SimmedPairing {
	sp := &SimmedPairing{
		result:     res,
		scorelines: make([]int, res.Boards()+1),
	}
	if res.Tiebreak != nil {
		sp.aceProbs = make(map[uint]float64, len(res.Tiebreak.Scenarios))
		for _, s := range res.Tiebreak.Scenarios {
			sp.aceProbs[s.Won] = s.Prob
		}
	}
	return sp
}

func (sp *SimmedPairing) String() string {
	sp.RLock()
	defer sp.RUnlock()
	return fmt.Sprintf("<%s vs %s, sim %.4f over %d, exact %.4f>", sp.result.Lineup1,
		sp.result.Lineup2, sp.winStats.Mean(), sp.winStats.Iterations(), sp.result.TotalWin)
}

func (sp *SimmedPairing) Result() *match.Result {
	return sp.result
}

// WinProb is team1's simulated win rate.
func (sp *SimmedPairing) WinProb() float64 {
	sp.RLock()
	defer sp.RUnlock()
	return sp.winStats.Mean()
}

func (sp *SimmedPairing) Iterations() int {
	sp.RLock()
	defer sp.RUnlock()
	return sp.winStats.Iterations()
}

// Interval is the simulated win rate's confidence interval for z.
func (sp *SimmedPairing) Interval(z float64) (float64, float64) {
	sp.RLock()
	defer sp.RUnlock()
	return sp.winStats.Interval(z, 0, 1)
}

func (sp *SimmedPairing) standardError(z float64) float64 {
	sp.RLock()
	defer sp.RUnlock()
	return sp.winStats.StandardError(z)
}

// Scorelines counts simulated matches by number of boards team1 won.
func (sp *SimmedPairing) Scorelines() []int {
	sp.RLock()
	defer sp.RUnlock()
	return append([]int(nil), sp.scorelines...)
}

// ScorelineSamples lists every simulated match's team1 board count, for
// plotting.
func (sp *SimmedPairing) ScorelineSamples() []float64 {
	counts := sp.Scorelines()
	var out []float64
	for w, c := range counts {
		for i := 0; i < c; i++ {
			out = append(out, float64(w))
		}
	}
	return out
}

// TiebreakWinRate is team1's simulated ace-match win rate, or 0 when no
// ace match was played.
func (sp *SimmedPairing) TiebreakWinRate() float64 {
	sp.RLock()
	defer sp.RUnlock()
	if sp.tiebreaks == 0 {
		return 0
	}
	return float64(sp.tiebreakWins) / float64(sp.tiebreaks)
}

func (sp *SimmedPairing) play() {
	probs := sp.result.BoardProbs
	var mask uint
	for i, p := range probs {
		if frand.Float64() < p {
			mask |= 1 << i
		}
	}
	w := bits.OnesCount(mask)
	k := len(probs)
	won := 2*w > k
	tied := 2*w == k && sp.aceProbs != nil
	aceWon := false
	if tied {
		aceWon = frand.Float64() < sp.aceProbs[mask]
		won = aceWon
	}

	sp.Lock()
	defer sp.Unlock()
	sp.scorelines[w]++
	if tied {
		sp.tiebreaks++
		if aceWon {
			sp.tiebreakWins++
		}
	}
	if won {
		sp.winStats.Push(1)
	} else {
		sp.winStats.Push(0)
	}
}

// Simmer simulates a set of pairings in parallel.
type Simmer struct {
	pairings       []*SimmedPairing
	threads        int
	iterationCount atomic.Uint64
	maxIterations  uint64
	autostopper    *AutoStopper
	simming        atomic.Bool
}

func NewSimmer(results []*match.Result) (*Simmer, error) {
	if len(results) == 0 {
		return nil, errors.New("nothing to simulate")
	}
	s := &Simmer{
		threads:     max(1, runtime.NumCPU()),
		autostopper: newAutostopper(),
	}
	for _, r := range results {
		if r == nil {
			return nil, errors.New("nil result")
		}
		s.pairings = append(s.pairings, newSimmedPairing(r))
	}
	return s, nil
}

func (s *Simmer) SetThreads(threads int) {
	s.threads = max(1, threads)
}

func (s *Simmer) Threads() int {
	return s.threads
}

// SetMaxIterations bounds the simulation; 0 means run until stopped.
func (s *Simmer) SetMaxIterations(n uint64) {
	s.maxIterations = n
}

func (s *Simmer) SetStoppingCondition(sc StoppingCondition, tolerance float64) {
	s.autostopper.stoppingCondition = sc
	if tolerance > 0 {
		s.autostopper.tolerance = tolerance
	}
}

func (s *Simmer) IsSimming() bool {
	return s.simming.Load()
}

func (s *Simmer) Iterations() int {
	return int(min(s.iterationCount.Load(), s.cap()))
}

func (s *Simmer) cap() uint64 {
	if s.maxIterations == 0 {
		return ^uint64(0)
	}
	return s.maxIterations
}

// Pairings returns the simulated pairings, best simulated win rate first.
func (s *Simmer) Pairings() []*SimmedPairing {
	out := append([]*SimmedPairing(nil), s.pairings...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].WinProb() > out[j].WinProb()
	})
	return out
}

// Simulate blocks until the iteration cap, the stopping condition, or ctx
// ends the run. Cancellation is not an error.
func (s *Simmer) Simulate(ctx context.Context) error {
	logger := zerolog.Ctx(ctx)
	if !s.simming.CompareAndSwap(false, true) {
		return errors.New("already simulating")
	}
	defer s.simming.Store(false)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	tstart := time.Now()
	logger.Debug().Int("threads", s.threads).Int("pairings", len(s.pairings)).Msg("sim-starting")

	g := errgroup.Group{}
	for t := 0; t < s.threads; t++ {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				default:
				}
				n := s.iterationCount.Add(1)
				if n > s.cap() {
					return nil
				}
				for _, sp := range s.pairings {
					sp.play()
				}
				if s.autostopper.stoppingCondition != StopNone &&
					n%s.autostopper.stopConditionCheckInterval == 0 &&
					s.autostopper.shouldStop(n, s.pairings) {
					logger.Info().Uint64("iterations", n).Msg("reached-stopping-condition")
					cancel()
				}
			}
		})
	}
	err := g.Wait()
	logger.Info().Int("iterations", s.Iterations()).Dur("elapsed", time.Since(tstart)).Msg("sim-ended")
	return err
}
