package montecarlo

import (
	"github.com/rs/zerolog/log"

	"github.com/domino14/lineupsolver/stats"
)

type StoppingCondition int

const (
	StopNone StoppingCondition = iota
	Stop95
	Stop98
	Stop99
)

const (
	IterationsCutoff = 200000
	// DefaultTolerance is the interval half-width every pairing must reach.
	DefaultTolerance = 0.005
)

func (sc StoppingCondition) z() float64 {
	switch sc {
	case Stop98:
		return stats.Z98
	case Stop99:
		return stats.Z99
	}
	return stats.Z95
}

type AutoStopper struct {
	stoppingCondition          StoppingCondition
	stopConditionCheckInterval uint64
	tolerance                  float64
}

func newAutostopper() *AutoStopper {
	return &AutoStopper{
		stopConditionCheckInterval: 500,
		tolerance:                  DefaultTolerance,
	}
}

// shouldStop reports whether every pairing's win rate is known to within
// the tolerance at the configured confidence.
func (a *AutoStopper) shouldStop(iterationCount uint64, pairings []*SimmedPairing) bool {
	if iterationCount > IterationsCutoff {
		return true
	}
	// a handful of identical outcomes says nothing about the spread
	if iterationCount < 2*a.stopConditionCheckInterval {
		return false
	}
	z := a.stoppingCondition.z()
	widest := 0.0
	for _, sp := range pairings {
		widest = max(widest, sp.standardError(z))
	}
	log.Debug().Uint64("iterations", iterationCount).Float64("widest", widest).Msg("sim-precision")
	return widest < a.tolerance
}
