package lineup

import (
	"fmt"

	"gonum.org/v1/gonum/stat/combin"

	"github.com/domino14/lineupsolver/player"
)

// Enumerator lazily yields every ordered k-subset of a roster of n players
// that matches its pins. Order is deterministic; Reset restarts it.
//
//	e := lineup.NewEnumerator(6, 4, nil)
//	for e.Next() {
//		l := e.Lineup()
//	}
type Enumerator struct {
	n, k int
	pins Pattern
	gen  *combin.PermutationGenerator
	buf  []int
	cur  Lineup
}

// NewEnumerator creates an enumerator. pins may be nil; otherwise it must
// have k slots.
func NewEnumerator(n, k int, pins Pattern) (*Enumerator, error) {
	if k <= 0 || n < k {
		return nil, fmt.Errorf("%w: cannot pick %d boards from %d players", ErrInvalidLineup, k, n)
	}
	if pins != nil {
		if len(pins) != k {
			return nil, fmt.Errorf("%w: pin pattern has %d slots, want %d", ErrInvalidLineup, len(pins), k)
		}
		seen := map[player.ID]bool{}
		for _, id := range pins {
			if id == Wildcard {
				continue
			}
			if id < 0 || int(id) >= n || seen[id] {
				return nil, fmt.Errorf("%w: bad pin %d", ErrInvalidLineup, id)
			}
			seen[id] = true
		}
	}
	e := &Enumerator{n: n, k: k, pins: pins, buf: make([]int, k)}
	e.Reset()
	return e, nil
}

func (e *Enumerator) Reset() {
	e.gen = combin.NewPermutationGenerator(e.n, e.k)
	e.cur = nil
}

// Next advances to the next matching lineup.
func (e *Enumerator) Next() bool {
	for e.gen.Next() {
		perm := e.gen.Permutation(e.buf)
		l := make(Lineup, e.k)
		for i, v := range perm {
			l[i] = player.ID(v)
		}
		if e.pins.Matches(l) {
			e.cur = l
			return true
		}
	}
	e.cur = nil
	return false
}

// Lineup returns the current lineup. The caller owns it.
func (e *Enumerator) Lineup() Lineup {
	return e.cur
}

// Expected is the number of lineups a full pass will yield.
func (e *Enumerator) Expected() int {
	if e.pins == nil {
		return Count(e.n, e.k)
	}
	return e.pins.Count(e.n)
}

// All drains a fresh pass of the enumerator into a slice.
func (e *Enumerator) All() []Lineup {
	e.Reset()
	out := make([]Lineup, 0, e.Expected())
	for e.Next() {
		out = append(out, e.Lineup())
	}
	e.Reset()
	return out
}

// Enumerate is shorthand for NewEnumerator(n, k, pins).All().
func Enumerate(n, k int, pins Pattern) ([]Lineup, error) {
	e, err := NewEnumerator(n, k, pins)
	if err != nil {
		return nil, err
	}
	return e.All(), nil
}
