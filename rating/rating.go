// Package rating turns player strength and head-to-head history into a
// pairwise win probability.
package rating

import (
	"fmt"
	"math"
	"strings"

	"github.com/domino14/lineupsolver/player"
)

const (
	DefaultHistoryWeightPerGame = 0.04
	DefaultMaxHistoryWeight     = 0.6
)

type TimeControl int

const (
	NoTimeControl TimeControl = iota
	Slow
	Fast
	Blitz
)

func (t TimeControl) String() string {
	switch t {
	case Slow:
		return "slow"
	case Fast:
		return "fast"
	case Blitz:
		return "blitz"
	}
	return "any"
}

func (t TimeControl) adjustment() (player.Adjustment, bool) {
	switch t {
	case Slow:
		return player.Slow, true
	case Fast:
		return player.Fast, true
	case Blitz:
		return player.Blitz, true
	}
	return "", false
}

type Color int

const (
	NoColor Color = iota
	First
	Second
)

func (c Color) Mirror() Color {
	switch c {
	case First:
		return Second
	case Second:
		return First
	}
	return NoColor
}

func (c Color) String() string {
	switch c {
	case First:
		return "first"
	case Second:
		return "second"
	}
	return "-"
}

// ParseColor accepts first/second as well as the chess names white/black.
func ParseColor(s string) (Color, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "first", "white", "w":
		return First, nil
	case "second", "black", "b":
		return Second, nil
	case "", "-", "none":
		return NoColor, nil
	}
	return NoColor, fmt.Errorf("unknown color %q", s)
}

func (c Color) adjustment() (player.Adjustment, bool) {
	switch c {
	case First:
		return player.First, true
	case Second:
		return player.Second, true
	}
	return "", false
}

// Context selects which adjustment weights apply to a pairing. The color is
// from the point of view of the first player of the pair; the opponent gets
// the mirrored color.
type Context struct {
	Condition   bool
	TimeControl TimeControl
	Color       Color
}

func (c Context) Mirror() Context {
	return Context{Condition: c.Condition, TimeControl: c.TimeControl, Color: c.Color.Mirror()}
}

func (c Context) String() string {
	cond := ""
	if c.Condition {
		cond = "+cond"
	}
	return fmt.Sprintf("%s/%s%s", c.TimeControl, c.Color, cond)
}

// Model holds the history-blending parameters.
type Model struct {
	HistoryWeightPerGame float64
	MaxHistoryWeight     float64
}

func DefaultModel() Model {
	return Model{
		HistoryWeightPerGame: DefaultHistoryWeightPerGame,
		MaxHistoryWeight:     DefaultMaxHistoryWeight,
	}
}

// Expected is the logistic (Elo) expectation of a beating b.
func Expected(aRating, bRating float64) float64 {
	return 1.0 / (1.0 + math.Pow(10, (bRating-aRating)/400.0))
}

// HistoryWeight is the blend weight given to the empirical head-to-head rate
// after the given number of games.
func (m Model) HistoryWeight(games int) float64 {
	if games <= 0 {
		return 0
	}
	return math.Min(m.MaxHistoryWeight, float64(games)*m.HistoryWeightPerGame)
}

// WinProbability blends the Elo expectation with the head-to-head win rate.
// With no history the result is the pure rating expectation.
func (m Model) WinProbability(aRating, bRating float64, aWins, bWins int) float64 {
	p := Expected(aRating, bRating)
	games := aWins + bWins
	if games > 0 {
		w := m.HistoryWeight(games)
		rate := float64(aWins) / float64(games)
		p = (1-w)*p + w*rate
	}
	return Clamp(p)
}

// AdjustedRating is the player's rating with the context's weights added.
func AdjustedRating(p *player.Player, ctx Context) float64 {
	r := p.Rating
	if ctx.Condition {
		r += p.Weight(player.Condition)
	}
	if a, ok := ctx.TimeControl.adjustment(); ok {
		r += p.Weight(a)
	}
	if a, ok := ctx.Color.adjustment(); ok {
		r += p.Weight(a)
	}
	return r
}

// ContextProbability is the probability that a beats b in the given context.
func (m Model) ContextProbability(a, b *player.Player, ctx Context, aWins, bWins int) float64 {
	return m.WinProbability(AdjustedRating(a, ctx), AdjustedRating(b, ctx.Mirror()), aWins, bWins)
}

// Clamp forces p into [0, 1]; NaN becomes 0.5.
func Clamp(p float64) float64 {
	switch {
	case math.IsNaN(p):
		return 0.5
	case p < 0:
		return 0
	case p > 1:
		return 1
	}
	return p
}
