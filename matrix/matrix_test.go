package matrix

import (
	"context"
	"errors"
	"math"
	"os"
	"testing"

	"github.com/matryer/is"
	"github.com/rs/zerolog"

	"github.com/domino14/lineupsolver/lineup"
	"github.com/domino14/lineupsolver/match"
	"github.com/domino14/lineupsolver/rating"
	"github.com/domino14/lineupsolver/relativity"
	"github.com/domino14/lineupsolver/testhelpers"
	"github.com/domino14/lineupsolver/tiebreak"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.Disabled)
	os.Exit(m.Run())
}

func builder(t *testing.T) *match.Builder {
	t.Helper()
	r1, r2 := testhelpers.Deep("N", 1800), testhelpers.Deep("S", 1790)
	h := testhelpers.History{}
	h.Add("N1", "S1", 1, 5)
	h.Add("N4", "S2", 4, 0)
	h.Complete(r1.Names(), r2.Names())
	tbl, err := relativity.Build(context.Background(), r1, r2, rating.DefaultModel(),
		match.Regular.Contexts(), h)
	if err != nil {
		t.Fatal(err)
	}
	res, err := tiebreak.NewResolver(tiebreak.DefaultPenalties())
	if err != nil {
		t.Fatal(err)
	}
	b, err := match.NewBuilder(match.Regular, tbl, res)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestBuildIsOrderIndependent(t *testing.T) {
	is := is.New(t)
	b := builder(t)
	rows, err := lineup.Enumerate(6, 4, lineup.Pattern{0, lineup.Wildcard, lineup.Wildcard, lineup.Wildcard})
	is.NoErr(err)
	cols, err := lineup.Enumerate(6, 4, lineup.Pattern{lineup.Wildcard, 1, lineup.Wildcard, lineup.Wildcard})
	is.NoErr(err)

	single, err := Build(context.Background(), b, rows, cols, 1)
	is.NoErr(err)
	multi, err := Build(context.Background(), b, rows, cols, 7)
	is.NoErr(err)

	nr, nc := multi.Size()
	is.Equal(nr, len(rows))
	is.Equal(nc, len(cols))
	for i := range rows {
		for j := range cols {
			is.Equal(single.Cell(i, j).TotalWin, multi.Cell(i, j).TotalWin)
			is.True(multi.Cell(i, j).Lineup1.Equal(rows[i]))
			is.True(multi.Cell(i, j).Lineup2.Equal(cols[j]))
		}
	}
}

func TestBuildAbortsOnError(t *testing.T) {
	is := is.New(t)
	b := builder(t)
	rows := []lineup.Lineup{{0, 1, 2, 3}, {0, 1, 2, 9}, {3, 2, 1, 0}}
	cols := []lineup.Lineup{{0, 1, 2, 3}}
	m, err := Build(context.Background(), b, rows, cols, 2)
	is.True(errors.Is(err, match.ErrMissingRelativity))
	is.Equal(m, nil)

	_, err = Build(context.Background(), b, nil, cols, 2)
	is.True(errors.Is(err, ErrEmpty))
}

func TestBuildCancelled(t *testing.T) {
	is := is.New(t)
	b := builder(t)
	all, err := lineup.Enumerate(6, 4, nil)
	is.NoErr(err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Build(ctx, b, all, all, 2)
	is.True(err != nil)
}

func TestSortRowsAndCols(t *testing.T) {
	is := is.New(t)
	b := builder(t)
	all, err := lineup.Enumerate(6, 4, lineup.Pattern{lineup.Wildcard, lineup.Wildcard, 2, 3})
	is.NoErr(err)
	m, err := Build(context.Background(), b, all, all, 3)
	is.NoErr(err)

	before := map[string]float64{}
	for i := range m.Rows {
		for j := range m.Cols {
			before[m.Rows[i].String()+m.Cols[j].String()] = m.Cell(i, j).TotalWin
		}
	}

	m.SortRows(TotalWin, Mean)
	for i := 1; i < len(m.Rows); i++ {
		is.True(m.RowScore(i-1, TotalWin, Mean) >= m.RowScore(i, TotalWin, Mean))
	}
	m.SortCols(TotalWin, Min)
	for j := 1; j < len(m.Cols); j++ {
		is.True(m.ColScore(j-1, TotalWin, Min) >= m.ColScore(j, TotalWin, Min))
	}
	// cells travelled with their lineups
	for i := range m.Rows {
		for j := range m.Cols {
			c := m.Cell(i, j)
			is.True(c.Lineup1.Equal(m.Rows[i]))
			is.True(c.Lineup2.Equal(m.Cols[j]))
			is.Equal(before[m.Rows[i].String()+m.Cols[j].String()], c.TotalWin)
		}
	}
}

func TestFieldsFromEachSide(t *testing.T) {
	is := is.New(t)
	b := builder(t)
	res, err := b.Build(lineup.Lineup{0, 1, 2, 3}, lineup.Lineup{3, 2, 1, 0})
	is.NoErr(err)
	is.True(math.Abs(TotalWin.Value(res, match.Team1)+TotalWin.Value(res, match.Team2)-1) < 1e-12)
	is.Equal(Sweep.Value(res, match.Team2), res.Swept())
	is.Equal(Tie.Value(res, match.Team1), Tie.Value(res, match.Team2))
	f, err := ParseField("decisive")
	is.NoErr(err)
	is.Equal(f, Decisive)
	_, err = ParseField("nope")
	is.True(err != nil)
}

func TestAggregation(t *testing.T) {
	is := is.New(t)
	vals := []float64{0.2, 0.8, 0.5}
	is.True(math.Abs(Mean.Fold(vals)-0.5) < 1e-12)
	is.Equal(Min.Fold(vals), 0.2)
	is.Equal(Max.Fold(vals), 0.8)
	is.Equal(Mean.Fold(nil), 0.0)
	a, err := ParseAggregation("min")
	is.NoErr(err)
	is.Equal(a, Min)
}
