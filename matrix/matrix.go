// Package matrix builds the full cross product of team1 and team2 lineups,
// one match.Result per cell.
package matrix

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/domino14/lineupsolver/lineup"
	"github.com/domino14/lineupsolver/match"
)

var ErrEmpty = errors.New("matrix needs at least one lineup per side")

// Field selects a per-cell quantity. Values are always read from the point
// of view of the side asking.
type Field int

const (
	TotalWin Field = iota
	Decisive
	Sweep
	Tie
)

func (f Field) String() string {
	switch f {
	case Decisive:
		return "decisive"
	case Sweep:
		return "sweep"
	case Tie:
		return "tie"
	}
	return "win"
}

func ParseField(s string) (Field, error) {
	for _, f := range []Field{TotalWin, Decisive, Sweep, Tie} {
		if f.String() == s {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown field %q", s)
}

// Value reads f from r as seen by side.
func (f Field) Value(r *match.Result, side match.Side) float64 {
	switch f {
	case Decisive:
		return r.DecisiveFor(side)
	case Sweep:
		return r.SweepFor(side)
	case Tie:
		return r.Tie()
	}
	return r.WinFor(side)
}

// Aggregation folds a row or column of values into one number.
type Aggregation int

const (
	Mean Aggregation = iota
	Min
	Max
)

func (a Aggregation) String() string {
	switch a {
	case Min:
		return "min"
	case Max:
		return "max"
	}
	return "mean"
}

func ParseAggregation(s string) (Aggregation, error) {
	for _, a := range []Aggregation{Mean, Min, Max} {
		if a.String() == s {
			return a, nil
		}
	}
	return 0, fmt.Errorf("unknown aggregation %q", s)
}

// Fold aggregates vals. An empty slice folds to 0.
func (a Aggregation) Fold(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	acc := vals[0]
	for _, v := range vals[1:] {
		switch a {
		case Min:
			acc = min(acc, v)
		case Max:
			acc = max(acc, v)
		default:
			acc += v
		}
	}
	if a == Mean {
		acc /= float64(len(vals))
	}
	return acc
}

// Matrix holds Cells[i][j] = Result(Rows[i] vs Cols[j]). Rows are team1
// lineups and columns team2 lineups.
type Matrix struct {
	Rows  []lineup.Lineup
	Cols  []lineup.Lineup
	Cells [][]*match.Result
}

type job struct {
	row int
}

// Build fills a matrix using threads workers, one row per job. The first
// error stops the build and is returned; no partial matrix comes back.
func Build(ctx context.Context, b *match.Builder, rows, cols []lineup.Lineup, threads int) (*Matrix, error) {
	if len(rows) == 0 || len(cols) == 0 {
		return nil, ErrEmpty
	}
	if threads < 1 {
		threads = 1
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logger := zerolog.Ctx(ctx)
	start := time.Now()

	m := &Matrix{
		Rows:  rows,
		Cols:  cols,
		Cells: make([][]*match.Result, len(rows)),
	}
	g, gctx := errgroup.WithContext(ctx)
	jobChan := make(chan job, threads*2)

	for t := 0; t < threads; t++ {
		g.Go(func() error {
			for j := range jobChan {
				row := make([]*match.Result, len(cols))
				for c, col := range cols {
					res, err := b.Build(rows[j.row], col)
					if err != nil {
						return fmt.Errorf("row %d col %d: %w", j.row, c, err)
					}
					row[c] = res
				}
				// each row is written by exactly one worker
				m.Cells[j.row] = row
			}
			return nil
		})
	}

	g.Go(func() error {
		defer close(jobChan)
		for r := range rows {
			select {
			case jobChan <- job{row: r}:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	logger.Info().Int("rows", len(rows)).Int("cols", len(cols)).Int("threads", threads).
		Dur("elapsed", time.Since(start)).Msg("matrix-built")
	return m, nil
}

func (m *Matrix) Size() (int, int) {
	return len(m.Rows), len(m.Cols)
}

func (m *Matrix) Cell(row, col int) *match.Result {
	return m.Cells[row][col]
}

// Lineups returns the side's own lineups: rows for team1, columns for team2.
func (m *Matrix) Lineups(side match.Side) []lineup.Lineup {
	if side == match.Team2 {
		return m.Cols
	}
	return m.Rows
}

// Opponents returns the lineups the side plays against.
func (m *Matrix) Opponents(side match.Side) []lineup.Lineup {
	return m.Lineups(side.Other())
}

// For returns the cell where side plays its own lineup against opp.
func (m *Matrix) For(side match.Side, own, opp int) *match.Result {
	if side == match.Team2 {
		return m.Cells[opp][own]
	}
	return m.Cells[own][opp]
}

// RowScore aggregates field across row i from team1's point of view.
func (m *Matrix) RowScore(i int, f Field, a Aggregation) float64 {
	vals := make([]float64, len(m.Cols))
	for j := range m.Cols {
		vals[j] = f.Value(m.Cells[i][j], match.Team1)
	}
	return a.Fold(vals)
}

// ColScore aggregates field down column j from team2's point of view.
func (m *Matrix) ColScore(j int, f Field, a Aggregation) float64 {
	vals := make([]float64, len(m.Rows))
	for i := range m.Rows {
		vals[i] = f.Value(m.Cells[i][j], match.Team2)
	}
	return a.Fold(vals)
}

// SortRows reorders rows in place, best for team1 first. Cells move with
// their rows; nothing is rebuilt.
func (m *Matrix) SortRows(f Field, a Aggregation) {
	scores := make([]float64, len(m.Rows))
	for i := range m.Rows {
		scores[i] = m.RowScore(i, f, a)
	}
	perm := order(scores)
	rows := make([]lineup.Lineup, len(perm))
	cells := make([][]*match.Result, len(perm))
	for to, from := range perm {
		rows[to] = m.Rows[from]
		cells[to] = m.Cells[from]
	}
	m.Rows, m.Cells = rows, cells
}

// SortCols reorders columns in place, best for team2 first.
func (m *Matrix) SortCols(f Field, a Aggregation) {
	scores := make([]float64, len(m.Cols))
	for j := range m.Cols {
		scores[j] = m.ColScore(j, f, a)
	}
	perm := order(scores)
	cols := make([]lineup.Lineup, len(perm))
	for to, from := range perm {
		cols[to] = m.Cols[from]
	}
	for i, row := range m.Cells {
		nr := make([]*match.Result, len(perm))
		for to, from := range perm {
			nr[to] = row[from]
		}
		m.Cells[i] = nr
	}
	m.Cols = cols
}

// order returns indices sorted by descending score, stable on ties.
func order(scores []float64) []int {
	perm := make([]int, len(scores))
	for i := range perm {
		perm[i] = i
	}
	sort.SliceStable(perm, func(i, j int) bool {
		return scores[perm[i]] > scores[perm[j]]
	})
	return perm
}
