// Package outcome computes the exact scoreline distribution of a team match
// whose boards are independent but not identically distributed.
package outcome

import (
	"fmt"
	"math/bits"
	"strings"

	"github.com/domino14/lineupsolver/rating"
)

// MaxBoards bounds the subset enumeration (2^k terms).
const MaxBoards = 16

// Distribution[w] is the probability that team1 wins exactly w boards.
type Distribution []float64

// Compute enumerates every subset of boards won by team1 and accumulates
// its probability into the bucket of its size. Inputs are clamped to [0,1].
func Compute(p []float64) Distribution {
	k := len(p)
	if k > MaxBoards {
		panic(fmt.Sprintf("outcome: %d boards exceeds limit of %d", k, MaxBoards))
	}
	probs := make([]float64, k)
	for i, v := range p {
		probs[i] = rating.Clamp(v)
	}
	d := make(Distribution, k+1)
	for mask := uint(0); mask < 1<<k; mask++ {
		d[bits.OnesCount(mask)] += scenario(probs, mask)
	}
	return d
}

func scenario(p []float64, mask uint) float64 {
	prob := 1.0
	for i, v := range p {
		if mask&(1<<i) != 0 {
			prob *= v
		} else {
			prob *= 1 - v
		}
	}
	return prob
}

// ScenarioProbability is the probability that team1 wins exactly the boards
// whose bits are set in mask and loses the rest.
func ScenarioProbability(p []float64, mask uint) float64 {
	probs := make([]float64, len(p))
	for i, v := range p {
		probs[i] = rating.Clamp(v)
	}
	return scenario(probs, mask)
}

// Boards is the number of boards the distribution covers.
func (d Distribution) Boards() int {
	return len(d) - 1
}

func (d Distribution) Exactly(w int) float64 {
	if w < 0 || w >= len(d) {
		return 0
	}
	return d[w]
}

// AtLeast is P(wins >= w).
func (d Distribution) AtLeast(w int) float64 {
	if w < 0 {
		w = 0
	}
	s := 0.0
	for i := w; i < len(d); i++ {
		s += d[i]
	}
	return s
}

// AtMost is P(wins <= w).
func (d Distribution) AtMost(w int) float64 {
	s := 0.0
	for i := 0; i <= w && i < len(d); i++ {
		s += d[i]
	}
	return s
}

// Majority is P(wins > k/2), a decisive regular-score win.
func (d Distribution) Majority() float64 {
	return d.AtLeast(d.Boards()/2 + 1)
}

// Minority is P(wins < k/2 rounded up), a decisive regular-score loss.
func (d Distribution) Minority() float64 {
	k := d.Boards()
	return d.AtMost((k - 1) / 2)
}

// Tie is P(wins == k/2); zero when k is odd.
func (d Distribution) Tie() float64 {
	k := d.Boards()
	if k%2 != 0 {
		return 0
	}
	return d[k/2]
}

func (d Distribution) Mean() float64 {
	m := 0.0
	for w, p := range d {
		m += float64(w) * p
	}
	return m
}

func (d Distribution) Sum() float64 {
	s := 0.0
	for _, p := range d {
		s += p
	}
	return s
}

// String shows scorelines from team1's sweep down to team2's sweep.
func (d Distribution) String() string {
	k := d.Boards()
	parts := make([]string, 0, len(d))
	for w := k; w >= 0; w-- {
		parts = append(parts, fmt.Sprintf("%d-%d: %.4f", w, k-w, d[w]))
	}
	return strings.Join(parts, "  ")
}
