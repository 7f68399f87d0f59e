// Package lineup enumerates ordered board assignments for a roster.
package lineup

import (
	"errors"
	"fmt"
	"strings"

	"gonum.org/v1/gonum/stat/combin"

	"github.com/domino14/lineupsolver/player"
)

// Wildcard marks a pattern slot whose player is unknown.
const Wildcard player.ID = -1

var ErrInvalidLineup = errors.New("invalid lineup")

// Lineup assigns one distinct player to each board, in board order.
type Lineup []player.ID

// New validates a lineup of length k drawn from a roster of size n.
func New(ids []player.ID, n, k int) (Lineup, error) {
	if len(ids) != k {
		return nil, fmt.Errorf("%w: want %d boards, got %d", ErrInvalidLineup, k, len(ids))
	}
	seen := make(map[player.ID]bool, k)
	for _, id := range ids {
		if id < 0 || int(id) >= n {
			return nil, fmt.Errorf("%w: player %d not on roster", ErrInvalidLineup, id)
		}
		if seen[id] {
			return nil, fmt.Errorf("%w: player %d appears twice", ErrInvalidLineup, id)
		}
		seen[id] = true
	}
	l := make(Lineup, k)
	copy(l, ids)
	return l, nil
}

// Board returns the board the player is on, or -1.
func (l Lineup) Board(id player.ID) int {
	for i, p := range l {
		if p == id {
			return i
		}
	}
	return -1
}

func (l Lineup) Equal(o Lineup) bool {
	if len(l) != len(o) {
		return false
	}
	for i := range l {
		if l[i] != o[i] {
			return false
		}
	}
	return true
}

func (l Lineup) String() string {
	ids := make([]string, len(l))
	for i, id := range l {
		ids[i] = fmt.Sprint(int(id))
	}
	return "[" + strings.Join(ids, " ") + "]"
}

// Display renders the lineup with the roster's player names.
func (l Lineup) Display(r *player.Roster) string {
	names := make([]string, len(l))
	for i, id := range l {
		if p := r.Player(id); p != nil {
			names[i] = p.Name
		} else {
			names[i] = "?"
		}
	}
	return strings.Join(names, " / ")
}

// Count is the number of ordered k-subsets of n players.
func Count(n, k int) int {
	if k < 0 || n < k {
		return 0
	}
	return combin.NumPermutations(n, k)
}

// Pattern is a k-slot template; Wildcard slots match any player.
type Pattern []player.ID

// AnyPattern is a fully wildcarded pattern of k slots.
func AnyPattern(k int) Pattern {
	p := make(Pattern, k)
	for i := range p {
		p[i] = Wildcard
	}
	return p
}

// ParsePattern reads a comma-separated list of names or board-order
// placeholders ("_", "?" or "*") into a pattern.
func ParsePattern(s string, r *player.Roster, k int) (Pattern, error) {
	fields := strings.Split(s, ",")
	if len(fields) != k {
		return nil, fmt.Errorf("%w: pattern needs %d slots, got %d", ErrInvalidLineup, k, len(fields))
	}
	p := make(Pattern, k)
	seen := map[player.ID]bool{}
	for i, f := range fields {
		f = strings.TrimSpace(f)
		switch f {
		case "_", "?", "*", "":
			p[i] = Wildcard
			continue
		}
		pl, err := r.Lookup(f)
		if err != nil {
			return nil, err
		}
		if seen[pl.ID] {
			return nil, fmt.Errorf("%w: %s pinned twice", ErrInvalidLineup, pl.Name)
		}
		seen[pl.ID] = true
		p[i] = pl.ID
	}
	return p, nil
}

// Matches reports whether every known slot agrees with the lineup.
func (p Pattern) Matches(l Lineup) bool {
	if len(p) == 0 {
		return true
	}
	if len(p) != len(l) {
		return false
	}
	for i, id := range p {
		if id != Wildcard && id != l[i] {
			return false
		}
	}
	return true
}

// Known is the number of pinned slots.
func (p Pattern) Known() int {
	n := 0
	for _, id := range p {
		if id != Wildcard {
			n++
		}
	}
	return n
}

// Count is the number of lineups from a roster of n that match the
// pattern: each wildcard slot is filled from the players not pinned.
func (p Pattern) Count(n int) int {
	if len(p) == 0 {
		return 0
	}
	known := p.Known()
	return Count(n-known, len(p)-known)
}

func (p Pattern) Display(r *player.Roster) string {
	names := make([]string, len(p))
	for i, id := range p {
		if id == Wildcard {
			names[i] = "_"
		} else if pl := r.Player(id); pl != nil {
			names[i] = pl.Name
		}
	}
	return strings.Join(names, " / ")
}
