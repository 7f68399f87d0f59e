// Package player holds rosters and the per-player rating adjustments that
// the rest of the solver consumes.
package player

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ID is the stable key of a player within its roster. It is assigned once,
// when the roster is created, and is never derived from a display name.
type ID int

// Adjustment names a context-specific rating weight.
type Adjustment string

const (
	Condition Adjustment = "condition"
	Fast      Adjustment = "fast"
	Slow      Adjustment = "slow"
	Blitz     Adjustment = "blitz"
	First     Adjustment = "first"
	Second    Adjustment = "second"
)

// Adjustments lists every adjustment a player may carry.
var Adjustments = []Adjustment{Condition, Fast, Slow, Blitz, First, Second}

var (
	ErrUnknownPlayer     = errors.New("unknown player")
	ErrUnknownAdjustment = errors.New("unknown adjustment")
	ErrDuplicatePlayer   = errors.New("duplicate player name in roster")
)

func ParseAdjustment(s string) (Adjustment, error) {
	a := Adjustment(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Adjustments {
		if a == known {
			return a, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAdjustment, s)
}

type Player struct {
	ID      ID
	Name    string
	Aliases []string
	Rating  float64
	Weights map[Adjustment]float64
}

// Weight returns the player's weight for an adjustment, or 0 if unset.
func (p *Player) Weight(a Adjustment) float64 {
	if p.Weights == nil {
		return 0
	}
	return p.Weights[a]
}

// Answers reports whether name is this player's display name or one of
// its aliases. Only adapters that match external data call this.
func (p *Player) Answers(name string) bool {
	n := normalize(name)
	if normalize(p.Name) == n {
		return true
	}
	for _, a := range p.Aliases {
		if normalize(a) == n {
			return true
		}
	}
	return false
}

// Names returns the display name followed by every alias.
func (p *Player) Names() []string {
	return append([]string{p.Name}, p.Aliases...)
}

func (p *Player) String() string {
	return fmt.Sprintf("%s (%.0f)", p.Name, p.Rating)
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// Roster is a team's ordered list of players. A player's ID is its index.
type Roster struct {
	Team    string
	Players []*Player
}

// NewRoster creates a roster and assigns IDs in the given order.
func NewRoster(team string, players []*Player) (*Roster, error) {
	seen := map[string]bool{}
	for i, p := range players {
		n := normalize(p.Name)
		if seen[n] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicatePlayer, p.Name)
		}
		seen[n] = true
		p.ID = ID(i)
		if p.Weights == nil {
			p.Weights = map[Adjustment]float64{}
		}
	}
	return &Roster{Team: team, Players: players}, nil
}

func (r *Roster) Size() int {
	return len(r.Players)
}

func (r *Roster) Player(id ID) *Player {
	if int(id) < 0 || int(id) >= len(r.Players) {
		return nil
	}
	return r.Players[id]
}

// Lookup finds a player by display name or alias.
func (r *Roster) Lookup(name string) (*Player, error) {
	for _, p := range r.Players {
		if p.Answers(name) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %q on %s", ErrUnknownPlayer, name, r.Team)
}

// SetWeight changes one adjustment weight. It must only be called between
// computations.
func (r *Roster) SetWeight(name string, a Adjustment, value float64) error {
	p, err := r.Lookup(name)
	if err != nil {
		return err
	}
	p.Weights[a] = value
	return nil
}

// Names returns display names in ID order.
func (r *Roster) Names() []string {
	names := make([]string, len(r.Players))
	for i, p := range r.Players {
		names[i] = p.Name
	}
	return names
}

func (r *Roster) ToDisplayText() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n", r.Team)
	for _, p := range r.Players {
		fmt.Fprintf(&sb, "%3d: %-20s %7.1f", p.ID, p.Name, p.Rating)
		adjs := make([]string, 0, len(p.Weights))
		for a, w := range p.Weights {
			if w != 0 {
				adjs = append(adjs, fmt.Sprintf("%s=%+.0f", a, w))
			}
		}
		sort.Strings(adjs)
		if len(adjs) > 0 {
			fmt.Fprintf(&sb, "  %s", strings.Join(adjs, " "))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
