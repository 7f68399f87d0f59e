package main

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matryer/is"

	"github.com/domino14/lineupsolver/config"
	"github.com/domino14/lineupsolver/store"
)

func TestRun(t *testing.T) {
	is := is.New(t)
	l := &store.League{Format: "postseason"}
	for ti, team := range []string{"North", "South"} {
		lt := store.LeagueTeam{Name: team}
		for i := 0; i < 5; i++ {
			r := 1900 - 50*float64(i) - 10*float64(ti)
			lt.Players = append(lt.Players, store.LeaguePlayer{Name: fmt.Sprintf("%s%d", team, i+1), Rating: &r})
		}
		l.Teams = append(l.Teams, lt)
	}
	for _, a := range l.Teams[0].Players {
		for _, b := range l.Teams[1].Players {
			l.SetRecord(a.Name, b.Name, 0, 0)
		}
	}
	path := filepath.Join(t.TempDir(), "league.yaml")
	is.NoErr(l.Write(path))

	opts, err := parseOptions([]string{"--league", path, "--team1", "north", "--team2", "south", "--top", "2", "--threads", "2"})
	is.NoErr(err)
	cfg := config.DefaultConfig()
	var out bytes.Buffer
	is.NoErr(run(context.Background(), &cfg, opts, &out))

	s := out.String()
	is.True(strings.HasPrefix(s, "North vs South, postseason format, 120 x 120 lineups"))
	is.Equal(strings.Count(s, "best-average:"), 2)
	is.Equal(strings.Count(s, "maximin:"), 2)
	is.Equal(strings.Count(s, "(worst: "), 8)

	_, err = parseOptions([]string{"--league", path})
	is.True(err != nil)
}
