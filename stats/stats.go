// Package stats keeps running statistics for simulated matches.
package stats

import "math"

const Epsilon = 1e-6

func FuzzyEqual(a, b float64) bool {
	return math.Abs(a-b) < Epsilon
}

// Statistic is a running mean and variance (Welford's algorithm). The zero
// value is ready to use.
type Statistic struct {
	n    int
	last float64
	mean float64
	m2   float64
}

func (s *Statistic) Push(val float64) {
	s.last = val
	s.n++
	delta := val - s.mean
	s.mean += delta / float64(s.n)
	s.m2 += delta * (val - s.mean)
}

// Merge folds another statistic into s, as if all of o's values had been
// pushed here (Chan et al. parallel update).
func (s *Statistic) Merge(o *Statistic) {
	if o.n == 0 {
		return
	}
	if s.n == 0 {
		*s = *o
		return
	}
	n := s.n + o.n
	delta := o.mean - s.mean
	s.mean += delta * float64(o.n) / float64(n)
	s.m2 += o.m2 + delta*delta*float64(s.n)*float64(o.n)/float64(n)
	s.n = n
	s.last = o.last
}

func (s *Statistic) Mean() float64 {
	return s.mean
}

// Variance is the sample variance.
func (s *Statistic) Variance() float64 {
	if s.n <= 1 {
		return 0.0
	}
	return s.m2 / float64(s.n-1)
}

func (s *Statistic) Stdev() float64 {
	return math.Sqrt(s.Variance())
}

func (s *Statistic) Last() float64 {
	return s.last
}

// StandardError is the half-width of the mean's interval for z, e.g.
// StandardError(Z95).
func (s *Statistic) StandardError(z float64) float64 {
	if s.n == 0 {
		return math.Inf(1)
	}
	return z * math.Sqrt(s.Variance()/float64(s.n))
}

// Interval is the mean plus or minus StandardError(z), clipped to [lo, hi].
func (s *Statistic) Interval(z, lo, hi float64) (float64, float64) {
	e := s.StandardError(z)
	return max(lo, s.mean-e), min(hi, s.mean+e)
}

func (s *Statistic) Iterations() int {
	return s.n
}
