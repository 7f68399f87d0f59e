package store

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/domino14/lineupsolver/player"
	"github.com/domino14/lineupsolver/relativity"
	"github.com/domino14/lineupsolver/tiebreak"
)

var (
	ErrNoRecord    = errors.New("no head-to-head record")
	ErrUnknownTeam = errors.New("unknown team")
)

var (
	_ relativity.RatingSource  = (*League)(nil)
	_ relativity.HistorySource = (*League)(nil)
)

type LeaguePlayer struct {
	Name    string             `yaml:"name"`
	Aliases []string           `yaml:"aliases,omitempty"`
	Rating  *float64           `yaml:"rating,omitempty"`
	Weights map[string]float64 `yaml:"weights,omitempty"`
}

type LeagueTeam struct {
	Name    string         `yaml:"name"`
	Players []LeaguePlayer `yaml:"players"`
}

// Record is a head-to-head tally, A's wins first.
type Record struct {
	A     string `yaml:"a"`
	B     string `yaml:"b"`
	AWins int    `yaml:"a-wins"`
	BWins int    `yaml:"b-wins"`
}

// League is the on-disk description of a league: teams, ratings, weights,
// head-to-head records and optionally the tiebreak penalties it plays by.
type League struct {
	Format    string              `yaml:"format,omitempty"`
	Teams     []LeagueTeam        `yaml:"teams"`
	History   []Record            `yaml:"history,omitempty"`
	Penalties *tiebreak.Penalties `yaml:"penalties,omitempty"`
}

func LoadLeague(path string) (*League, error) {
	bts, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	l := &League{}
	if err := yaml.Unmarshal(bts, l); err != nil {
		return nil, fmt.Errorf("parsing league %s: %w", path, err)
	}
	return l, nil
}

func (l *League) Write(path string) error {
	bts, err := yaml.Marshal(l)
	if err != nil {
		return err
	}
	return os.WriteFile(path, bts, 0o644)
}

func (l *League) TeamNames() []string {
	names := make([]string, len(l.Teams))
	for i, t := range l.Teams {
		names[i] = t.Name
	}
	return names
}

// Roster builds the named team's roster. Players without a rating get NaN
// so that building a relativity table reports them.
func (l *League) Roster(team string) (*player.Roster, error) {
	for _, t := range l.Teams {
		if !strings.EqualFold(t.Name, team) {
			continue
		}
		players := make([]*player.Player, len(t.Players))
		for i, lp := range t.Players {
			p := &player.Player{
				Name:    lp.Name,
				Aliases: lp.Aliases,
				Rating:  math.NaN(),
				Weights: map[player.Adjustment]float64{},
			}
			if lp.Rating != nil {
				p.Rating = *lp.Rating
			}
			for k, v := range lp.Weights {
				a, err := player.ParseAdjustment(k)
				if err != nil {
					return nil, fmt.Errorf("%s: %w", lp.Name, err)
				}
				p.Weights[a] = v
			}
			players[i] = p
		}
		return player.NewRoster(t.Name, players)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownTeam, team)
}

// Ratings returns every rated player, keyed by name.
func (l *League) Ratings(context.Context) (map[string]float64, error) {
	out := map[string]float64{}
	for _, t := range l.Teams {
		for _, p := range t.Players {
			if p.Rating != nil {
				out[p.Name] = *p.Rating
			}
		}
	}
	return out, nil
}

// HeadToHead finds the record for a and b in either order. A missing
// record is an error; write an explicit 0-0 for players who never met.
func (l *League) HeadToHead(_ context.Context, a, b string) (int, int, error) {
	for _, r := range l.History {
		if strings.EqualFold(r.A, a) && strings.EqualFold(r.B, b) {
			return r.AWins, r.BWins, nil
		}
		if strings.EqualFold(r.A, b) && strings.EqualFold(r.B, a) {
			return r.BWins, r.AWins, nil
		}
	}
	return 0, 0, fmt.Errorf("%w: %s vs %s", ErrNoRecord, a, b)
}

// SetRecord replaces or adds the record for a and b.
func (l *League) SetRecord(a, b string, aWins, bWins int) {
	for i, r := range l.History {
		if strings.EqualFold(r.A, a) && strings.EqualFold(r.B, b) {
			l.History[i].AWins, l.History[i].BWins = aWins, bWins
			return
		}
		if strings.EqualFold(r.A, b) && strings.EqualFold(r.B, a) {
			l.History[i].AWins, l.History[i].BWins = bWins, aWins
			return
		}
	}
	l.History = append(l.History, Record{A: a, B: b, AWins: aWins, BWins: bWins})
}

// UpdateRatings sets the rating of every league player whose name or alias
// appears in ratings, and returns the names it updated.
func (l *League) UpdateRatings(ratings map[string]float64) []string {
	byName := make(map[string]float64, len(ratings))
	for n, r := range ratings {
		byName[strings.ToLower(strings.TrimSpace(n))] = r
	}
	var updated []string
	for ti := range l.Teams {
		for pi := range l.Teams[ti].Players {
			lp := &l.Teams[ti].Players[pi]
			for _, n := range append([]string{lp.Name}, lp.Aliases...) {
				if r, ok := byName[strings.ToLower(n)]; ok {
					lp.Rating = &r
					updated = append(updated, lp.Name)
					break
				}
			}
		}
	}
	return updated
}
