package stats

import (
	"math"
	"testing"

	"github.com/matryer/is"
)

func TestRunningStat(t *testing.T) {
	is := is.New(t)
	type tc struct {
		vals  []float64
		mean  float64
		stdev float64
	}
	cases := []tc{
		{[]float64{10, 12, 23, 23, 16, 23, 21, 16}, 18, 5.2372293656638},
		{[]float64{14, 35, 71, 124, 10, 24, 55, 33, 87, 19}, 47.2, 36.937785531891},
		{[]float64{1}, 1, 0},
		{[]float64{}, 0, 0},
		{[]float64{1, 1}, 1, 0},
	}
	for _, c := range cases {
		s := &Statistic{}
		for _, v := range c.vals {
			s.Push(v)
		}
		is.True(FuzzyEqual(s.Mean(), c.mean))
		is.True(FuzzyEqual(s.Stdev(), c.stdev))
		is.Equal(s.Iterations(), len(c.vals))
	}
}

func TestMerge(t *testing.T) {
	is := is.New(t)
	vals := []float64{14, 35, 71, 124, 10, 24, 55, 33, 87, 19}
	all, a, b := &Statistic{}, &Statistic{}, &Statistic{}
	for i, v := range vals {
		all.Push(v)
		if i < 3 {
			a.Push(v)
		} else {
			b.Push(v)
		}
	}
	a.Merge(b)
	is.Equal(a.Iterations(), all.Iterations())
	is.True(FuzzyEqual(a.Mean(), all.Mean()))
	is.True(FuzzyEqual(a.Variance(), all.Variance()))

	empty := &Statistic{}
	empty.Merge(all)
	is.True(FuzzyEqual(empty.Mean(), all.Mean()))
}

func TestZVal(t *testing.T) {
	is := is.New(t)
	is.True(math.Abs(Z95-1.959964) < 1e-5)
	is.True(math.Abs(Z99-2.575829) < 1e-5)
	is.True(Z98 > Z95 && Z98 < Z99)
}

func TestInterval(t *testing.T) {
	is := is.New(t)
	s := &Statistic{}
	is.True(math.IsInf(s.StandardError(Z95), 1))
	for i := 0; i < 100; i++ {
		s.Push(float64(i % 2))
	}
	lo, hi := s.Interval(Z95, 0, 1)
	is.True(lo < 0.5 && hi > 0.5)
	is.True(lo >= 0 && hi <= 1)
	is.True(FuzzyEqual(hi-0.5, 0.5-lo))
}
