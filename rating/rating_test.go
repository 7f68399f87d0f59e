package rating

import (
	"math"
	"testing"

	"github.com/matryer/is"

	"github.com/domino14/lineupsolver/player"
)

const epsilon = 1e-9

func fuzzyEqual(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}

func TestExpected(t *testing.T) {
	is := is.New(t)
	is.True(fuzzyEqual(Expected(1500, 1500), 0.5))
	is.True(fuzzyEqual(Expected(1900, 1500), 10.0/11.0))
	is.True(fuzzyEqual(Expected(1500, 1900), 1.0/11.0))
	is.True(fuzzyEqual(Expected(1700, 1600)+Expected(1600, 1700), 1.0))
}

func TestNoHistoryIsPureRating(t *testing.T) {
	is := is.New(t)
	m := DefaultModel()
	is.Equal(m.HistoryWeight(0), 0.0)
	is.True(fuzzyEqual(m.WinProbability(1800, 1600, 0, 0), Expected(1800, 1600)))
}

func TestHistoryWeightGrowsAndCaps(t *testing.T) {
	is := is.New(t)
	m := DefaultModel()
	prev := 0.0
	for games := 1; games <= 100; games++ {
		w := m.HistoryWeight(games)
		is.True(w >= prev)
		is.True(w <= m.MaxHistoryWeight)
		prev = w
	}
	is.True(fuzzyEqual(m.HistoryWeight(1000), m.MaxHistoryWeight))
}

func TestWinProbabilityBlend(t *testing.T) {
	is := is.New(t)
	m := Model{HistoryWeightPerGame: 0.1, MaxHistoryWeight: 0.5}
	// 3 games, weight 0.3, rate 1.0
	p := m.WinProbability(1500, 1500, 3, 0)
	is.True(fuzzyEqual(p, 0.7*0.5+0.3*1.0))
	// capped at 0.5 after many games
	p = m.WinProbability(1500, 1500, 0, 40)
	is.True(fuzzyEqual(p, 0.25))
}

func TestWinProbabilityAlwaysInRange(t *testing.T) {
	is := is.New(t)
	m := Model{HistoryWeightPerGame: 2, MaxHistoryWeight: 5}
	for _, tc := range []struct {
		a, b   float64
		aw, bw int
	}{
		{3000, 100, 10, 0},
		{100, 3000, 0, 10},
		{1500, 1500, 1, 1},
	} {
		p := m.WinProbability(tc.a, tc.b, tc.aw, tc.bw)
		is.True(p >= 0 && p <= 1)
	}
}

func TestContextProbabilityAppliesWeights(t *testing.T) {
	is := is.New(t)
	m := DefaultModel()
	a := &player.Player{Rating: 1500, Weights: map[player.Adjustment]float64{
		player.Blitz: 100, player.First: 50, player.Condition: -25,
	}}
	b := &player.Player{Rating: 1500, Weights: map[player.Adjustment]float64{
		player.Second: 20,
	}}
	ctx := Context{Condition: true, TimeControl: Blitz, Color: First}
	is.Equal(AdjustedRating(a, ctx), 1625.0)
	is.Equal(AdjustedRating(b, ctx.Mirror()), 1520.0)
	is.True(fuzzyEqual(m.ContextProbability(a, b, ctx, 0, 0), Expected(1625, 1520)))

	// slow time control ignores the blitz weight entirely.
	slow := Context{TimeControl: Slow}
	is.True(fuzzyEqual(m.ContextProbability(a, b, slow, 0, 0), 0.5))
}

func TestClamp(t *testing.T) {
	is := is.New(t)
	is.Equal(Clamp(-1e-12), 0.0)
	is.Equal(Clamp(1+1e-12), 1.0)
	is.Equal(Clamp(math.NaN()), 0.5)
	is.Equal(Clamp(0.3), 0.3)
}

func TestParseColor(t *testing.T) {
	is := is.New(t)
	for in, want := range map[string]Color{"White": First, "first": First, "b": Second, "second": Second, "": NoColor} {
		c, err := ParseColor(in)
		is.NoErr(err)
		is.Equal(c, want)
	}
	_, err := ParseColor("red")
	is.True(err != nil)
}
