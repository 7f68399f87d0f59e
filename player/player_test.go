package player

import (
	"errors"
	"strings"
	"testing"

	"github.com/matryer/is"
)

func testRoster(t *testing.T) *Roster {
	t.Helper()
	r, err := NewRoster("Knights", []*Player{
		{Name: "Alice  Smith", Aliases: []string{"Al"}, Rating: 1800},
		{Name: "Bob", Rating: 1700, Weights: map[Adjustment]float64{Fast: 15}},
	})
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestNewRosterAssignsIDs(t *testing.T) {
	is := is.New(t)
	r := testRoster(t)
	is.Equal(r.Size(), 2)
	is.Equal(r.Players[0].ID, ID(0))
	is.Equal(r.Players[1].ID, ID(1))
	is.Equal(r.Player(1).Name, "Bob")
	is.True(r.Player(2) == nil)
	is.True(r.Player(-1) == nil)
	is.Equal(r.Names(), []string{"Alice  Smith", "Bob"})

	_, err := NewRoster("Dupes", []*Player{{Name: "Eve"}, {Name: " eve "}})
	is.True(errors.Is(err, ErrDuplicatePlayer))
}

func TestLookup(t *testing.T) {
	is := is.New(t)
	r := testRoster(t)
	for _, name := range []string{"alice smith", "ALICE SMITH", " Al "} {
		p, err := r.Lookup(name)
		is.NoErr(err)
		is.Equal(p.ID, ID(0))
	}
	is.Equal(r.Player(0).Names(), []string{"Alice  Smith", "Al"})
	_, err := r.Lookup("Carol")
	is.True(errors.Is(err, ErrUnknownPlayer))
}

func TestWeights(t *testing.T) {
	is := is.New(t)
	r := testRoster(t)
	is.Equal(r.Player(1).Weight(Fast), 15.0)
	is.Equal(r.Player(1).Weight(Blitz), 0.0)
	is.Equal((&Player{}).Weight(Slow), 0.0)

	is.NoErr(r.SetWeight("al", Blitz, -20))
	is.Equal(r.Player(0).Weight(Blitz), -20.0)
	is.True(errors.Is(r.SetWeight("Zed", Blitz, 1), ErrUnknownPlayer))

	a, err := ParseAdjustment(" Condition ")
	is.NoErr(err)
	is.Equal(a, Condition)
	_, err = ParseAdjustment("moon")
	is.True(errors.Is(err, ErrUnknownAdjustment))

	text := r.ToDisplayText()
	is.True(strings.Contains(text, "blitz=-20"))
	is.True(strings.Contains(text, "fast=+15"))
}
