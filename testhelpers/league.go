// Package testhelpers builds small leagues for tests.
package testhelpers

import (
	"fmt"

	"github.com/domino14/lineupsolver/player"
)

// Roster builds a roster whose players are named by names and rated by
// ratings, in order.
func Roster(team string, names []string, ratings []float64) *player.Roster {
	if len(names) != len(ratings) {
		panic(fmt.Sprintf("testhelpers: %d names but %d ratings", len(names), len(ratings)))
	}
	players := make([]*player.Player, len(names))
	for i, n := range names {
		players[i] = &player.Player{Name: n, Rating: ratings[i]}
	}
	r, err := player.NewRoster(team, players)
	if err != nil {
		panic(err)
	}
	return r
}

// Home and Away are the four-player rosters used in the end-to-end
// scenarios: A-D against E-H.
func Home() *player.Roster {
	return Roster("Home", []string{"A", "B", "C", "D"}, []float64{1800, 1700, 1600, 1500})
}

func Away() *player.Roster {
	return Roster("Away", []string{"E", "F", "G", "H"}, []float64{1750, 1650, 1550, 1450})
}

// Deep is a six-player roster with a wider rating spread.
func Deep(team string, top float64) *player.Roster {
	names := make([]string, 6)
	ratings := make([]float64, 6)
	for i := range names {
		names[i] = fmt.Sprintf("%s%d", team, i+1)
		ratings[i] = top - 60*float64(i)
	}
	return Roster(team, names, ratings)
}
