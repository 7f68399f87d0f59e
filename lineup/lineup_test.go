package lineup

import (
	"errors"
	"fmt"
	"testing"

	"github.com/matryer/is"

	"github.com/domino14/lineupsolver/player"
)

func key(l Lineup) string {
	return fmt.Sprint([]player.ID(l))
}

func TestEnumeratorCounts(t *testing.T) {
	is := is.New(t)
	type tc struct {
		n, k, expected int
	}
	for _, c := range []tc{
		{4, 4, 24},
		{5, 4, 120},
		{6, 4, 360},
		{6, 5, 720},
		{7, 5, 2520},
		{3, 1, 3},
	} {
		e, err := NewEnumerator(c.n, c.k, nil)
		is.NoErr(err)
		is.Equal(e.Expected(), c.expected)
		seen := map[string]bool{}
		for e.Next() {
			l := e.Lineup()
			is.Equal(len(l), c.k)
			_, err := New(l, c.n, c.k)
			is.NoErr(err) // distinct players drawn from the roster
			seen[key(l)] = true
		}
		is.Equal(len(seen), c.expected)
	}
}

func TestEnumeratorRestartable(t *testing.T) {
	is := is.New(t)
	e, err := NewEnumerator(5, 4, nil)
	is.NoErr(err)
	first := e.All()
	second := e.All()
	is.Equal(len(first), 120)
	is.Equal(len(first), len(second))
	for i := range first {
		is.True(first[i].Equal(second[i]))
	}
}

func TestEnumeratorPins(t *testing.T) {
	is := is.New(t)
	pins := Pattern{2, Wildcard, Wildcard, 0}
	e, err := NewEnumerator(6, 4, pins)
	is.NoErr(err)
	all := e.All()
	is.Equal(len(all), 12) // 4 remaining players in 2 ordered slots
	is.Equal(e.Expected(), 12)
	for _, l := range all {
		is.Equal(l[0], player.ID(2))
		is.Equal(l[3], player.ID(0))
	}
}

func TestEnumeratorRejectsBadInput(t *testing.T) {
	is := is.New(t)
	_, err := NewEnumerator(3, 4, nil)
	is.True(errors.Is(err, ErrInvalidLineup))
	_, err = NewEnumerator(5, 4, Pattern{1, 1, Wildcard, Wildcard})
	is.True(errors.Is(err, ErrInvalidLineup))
	_, err = NewEnumerator(5, 4, Pattern{1, Wildcard})
	is.True(errors.Is(err, ErrInvalidLineup))
}

func TestNewLineupValidation(t *testing.T) {
	is := is.New(t)
	_, err := New([]player.ID{0, 1, 2, 2}, 5, 4)
	is.True(errors.Is(err, ErrInvalidLineup))
	_, err = New([]player.ID{0, 1, 2}, 5, 4)
	is.True(errors.Is(err, ErrInvalidLineup))
	_, err = New([]player.ID{0, 1, 2, 7}, 5, 4)
	is.True(errors.Is(err, ErrInvalidLineup))
	l, err := New([]player.ID{3, 1, 2, 0}, 5, 4)
	is.NoErr(err)
	is.Equal(l.Board(2), 2)
	is.Equal(l.Board(4), -1)
}

func TestPattern(t *testing.T) {
	is := is.New(t)
	r, err := player.NewRoster("home", []*player.Player{
		{Name: "Ann"}, {Name: "Bo", Aliases: []string{"Robert"}}, {Name: "Cy"}, {Name: "Di"}, {Name: "Ed"},
	})
	is.NoErr(err)
	p, err := ParsePattern("robert, _, ?, Di", r, 4)
	is.NoErr(err)
	is.Equal(p, Pattern{1, Wildcard, Wildcard, 3})
	is.Equal(p.Known(), 2)
	is.Equal(p.Count(r.Size()), 6)
	is.True(p.Matches(Lineup{1, 0, 2, 3}))
	is.True(!p.Matches(Lineup{0, 1, 2, 3}))
	is.Equal(p.Display(r), "Bo / _ / _ / Di")

	_, err = ParsePattern("Ann,Ann,_,_", r, 4)
	is.True(errors.Is(err, ErrInvalidLineup))
	_, err = ParsePattern("Zed,_,_,_", r, 4)
	is.True(errors.Is(err, player.ErrUnknownPlayer))

	wild := AnyPattern(4)
	is.Equal(wild.Count(r.Size()), Count(5, 4))
}
