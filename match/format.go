package match

import (
	"fmt"
	"strings"

	"github.com/domino14/lineupsolver/rating"
)

// Role is what a board is played as, from team1's point of view.
type Role struct {
	TimeControl rating.TimeControl
	Color       rating.Color
	Condition   bool
}

func (r Role) Context() rating.Context {
	return rating.Context{Condition: r.Condition, TimeControl: r.TimeControl, Color: r.Color}
}

// Format is an ordered list of board roles plus, for even board counts, the
// role of the ace match that breaks a level score.
type Format struct {
	Name  string
	Roles []Role
	Ace   *Role
}

var (
	// Regular is the four-board regular season with an ace tiebreak.
	Regular = Format{
		Name: "regular",
		Roles: []Role{
			{TimeControl: rating.Slow},
			{TimeControl: rating.Fast},
			{TimeControl: rating.Fast},
			{TimeControl: rating.Fast},
		},
		Ace: &Role{TimeControl: rating.Blitz},
	}
	// Postseason plays the ace as a fifth board, with colors assigned.
	Postseason = Format{
		Name: "postseason",
		Roles: []Role{
			{TimeControl: rating.Slow, Color: rating.First},
			{TimeControl: rating.Fast, Color: rating.Second},
			{TimeControl: rating.Fast, Color: rating.First},
			{TimeControl: rating.Fast, Color: rating.Second},
			{TimeControl: rating.Blitz, Color: rating.First},
		},
	}
)

func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(name) {
	case Regular.Name:
		return Regular, nil
	case Postseason.Name:
		return Postseason, nil
	}
	return Format{}, fmt.Errorf("unknown format %q", name)
}

// Boards is k, the number of regular boards.
func (f Format) Boards() int {
	return len(f.Roles)
}

// HasTiebreak reports whether a level score is possible and resolved by an
// ace match.
func (f Format) HasTiebreak() bool {
	return f.Ace != nil && len(f.Roles)%2 == 0
}

// WithCondition returns a copy of the format whose every role also applies
// the players' condition weight.
func (f Format) WithCondition() Format {
	c := Format{Name: f.Name + "+condition", Roles: make([]Role, len(f.Roles))}
	for i, r := range f.Roles {
		r.Condition = true
		c.Roles[i] = r
	}
	if f.Ace != nil {
		ace := *f.Ace
		ace.Condition = true
		c.Ace = &ace
	}
	return c
}

// Contexts lists every distinct rating context the format needs, in board
// order, ace last.
func (f Format) Contexts() []rating.Context {
	seen := map[rating.Context]bool{}
	var out []rating.Context
	add := func(c rating.Context) {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	for _, r := range f.Roles {
		add(r.Context())
	}
	if f.HasTiebreak() {
		add(f.Ace.Context())
	}
	return out
}
