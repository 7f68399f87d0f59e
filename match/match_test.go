package match_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/matryer/is"

	"github.com/domino14/lineupsolver/lineup"
	"github.com/domino14/lineupsolver/match"
	"github.com/domino14/lineupsolver/rating"
	"github.com/domino14/lineupsolver/relativity"
	"github.com/domino14/lineupsolver/testhelpers"
	"github.com/domino14/lineupsolver/tiebreak"
)

const epsilon = 1e-9

// noAce is the regular format without the ace match.
var noAce = match.Format{Name: "noace", Roles: match.Regular.Roles}

func uniformBuilder(t *testing.T, f match.Format, p float64) *match.Builder {
	t.Helper()
	tbl := relativity.Uniform(testhelpers.Home(), testhelpers.Away(), f.Contexts(), p)
	r, err := tiebreak.NewResolver(tiebreak.DefaultPenalties())
	if err != nil {
		t.Fatal(err)
	}
	b, err := match.NewBuilder(f, tbl, r)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestUniformScenarioWithoutTiebreak(t *testing.T) {
	is := is.New(t)
	b := uniformBuilder(t, noAce, 0.6)
	all, err := lineup.Enumerate(4, 4, nil)
	is.NoErr(err)
	for _, l1 := range all {
		for _, l2 := range all {
			res, err := b.Build(l1, l2)
			is.NoErr(err)
			is.True(math.Abs(res.TotalWin-0.4752) < epsilon)
			is.Equal(res.Tiebreak, nil)
			is.Equal(res.TieWin, 0.0)
		}
	}
}

func TestUniformScenarioWithTiebreak(t *testing.T) {
	is := is.New(t)
	b := uniformBuilder(t, match.Regular, 0.6)
	res, err := b.Build(lineup.Lineup{0, 1, 2, 3}, lineup.Lineup{3, 2, 1, 0})
	is.NoErr(err)
	is.True(res.Tiebreak != nil)
	is.True(math.Abs(res.Tie()-0.3456) < epsilon)
	is.True(math.Abs(res.TotalWin-(0.4752+0.3456*res.Tiebreak.Prob)) < epsilon)
	is.True(res.TotalWin > 0.4752)
	is.True(math.Abs(res.Distribution.Sum()-1) < epsilon)
}

func TestPostseasonHasNoTiebreak(t *testing.T) {
	is := is.New(t)
	r1 := testhelpers.Deep("N", 1900)
	r2 := testhelpers.Deep("S", 1880)
	h := testhelpers.History{}.Complete(r1.Names(), r2.Names())
	tbl, err := relativity.Build(context.Background(), r1, r2, rating.DefaultModel(),
		match.Postseason.Contexts(), h)
	is.NoErr(err)
	b, err := match.NewBuilder(match.Postseason, tbl, nil)
	is.NoErr(err)
	res, err := b.Build(lineup.Lineup{0, 1, 2, 3, 4}, lineup.Lineup{0, 1, 2, 3, 4})
	is.NoErr(err)
	is.Equal(res.Tiebreak, nil)
	is.True(math.Abs(res.TotalWin-res.Decisive()) < epsilon)
	is.True(math.Abs(res.WinFor(match.Team1)+res.WinFor(match.Team2)-1) < epsilon)
	is.True(math.Abs(res.DecisiveFor(match.Team1)+res.DecisiveFor(match.Team2)-1) < epsilon)
	// team1 is a little stronger on every board
	is.True(res.TotalWin > 0.5)
}

func TestBoardRolesPickContexts(t *testing.T) {
	is := is.New(t)
	r1, r2 := testhelpers.Home(), testhelpers.Away()
	tbl := relativity.Uniform(r1, r2, match.Regular.Contexts(), 0.5)
	slow := rating.Context{TimeControl: rating.Slow}
	fast := rating.Context{TimeControl: rating.Fast}
	is.NoErr(tbl.Override(0, 0, slow, 0.9))
	is.NoErr(tbl.Override(0, 0, fast, 0.1))
	r, _ := tiebreak.NewResolver(tiebreak.DefaultPenalties())
	b, err := match.NewBuilder(match.Regular, tbl, r)
	is.NoErr(err)

	res, err := b.Build(lineup.Lineup{0, 1, 2, 3}, lineup.Lineup{0, 1, 2, 3})
	is.NoErr(err)
	is.Equal(res.BoardProbs[0], 0.9) // board 0 is the slow board

	res, err = b.Build(lineup.Lineup{1, 0, 2, 3}, lineup.Lineup{1, 0, 2, 3})
	is.NoErr(err)
	is.Equal(res.BoardProbs[1], 0.1)
}

func TestMissingContextRejected(t *testing.T) {
	is := is.New(t)
	tbl := relativity.Uniform(testhelpers.Home(), testhelpers.Away(),
		[]rating.Context{{TimeControl: rating.Slow}}, 0.5)
	_, err := match.NewBuilder(match.Regular, tbl, nil)
	is.True(err != nil)
	r, _ := tiebreak.NewResolver(tiebreak.DefaultPenalties())
	_, err = match.NewBuilder(match.Regular, tbl, r)
	is.True(errors.Is(err, match.ErrMissingRelativity))
}

func TestBuildRejectsBadLineups(t *testing.T) {
	is := is.New(t)
	b := uniformBuilder(t, match.Regular, 0.5)
	_, err := b.Build(lineup.Lineup{0, 1, 2}, lineup.Lineup{0, 1, 2, 3})
	is.True(errors.Is(err, lineup.ErrInvalidLineup))
	_, err = b.Build(lineup.Lineup{0, 1, 2, 9}, lineup.Lineup{0, 1, 2, 3})
	is.True(errors.Is(err, match.ErrMissingRelativity))
}

func TestRebuild(t *testing.T) {
	is := is.New(t)
	b := uniformBuilder(t, match.Regular, 0.5)
	res, err := b.Build(lineup.Lineup{0, 1, 2, 3}, lineup.Lineup{0, 1, 2, 3})
	is.NoErr(err)
	up, err := b.Rebuild(res, map[int]float64{2: 0.95})
	is.NoErr(err)
	is.Equal(res.BoardProbs[2], 0.5) // original untouched
	is.Equal(up.BoardProbs[2], 0.95)
	is.True(up.TotalWin > res.TotalWin)

	fresh, err := b.Build(lineup.Lineup{0, 1, 2, 3}, lineup.Lineup{0, 1, 2, 3})
	is.NoErr(err)
	same, err := b.Rebuild(fresh, nil)
	is.NoErr(err)
	is.True(math.Abs(same.TotalWin-fresh.TotalWin) < epsilon)

	_, err = b.Rebuild(res, map[int]float64{7: 0.5})
	is.True(err != nil)
}

func TestFormats(t *testing.T) {
	is := is.New(t)
	is.True(match.Regular.HasTiebreak())
	is.True(!match.Postseason.HasTiebreak())
	is.Equal(match.Regular.Boards(), 4)
	is.Equal(match.Postseason.Boards(), 5)
	is.Equal(len(match.Regular.Contexts()), 3)
	f, err := match.ParseFormat("Postseason")
	is.NoErr(err)
	is.Equal(f.Name, "postseason")
	_, err = match.ParseFormat("friendly")
	is.True(err != nil)
	c := match.Regular.WithCondition()
	is.True(c.Roles[0].Condition)
	is.True(c.Ace.Condition)
	is.True(!match.Regular.Roles[0].Condition)
}
