package match

import (
	"errors"
	"fmt"

	"github.com/domino14/lineupsolver/lineup"
	"github.com/domino14/lineupsolver/outcome"
	"github.com/domino14/lineupsolver/player"
	"github.com/domino14/lineupsolver/rating"
	"github.com/domino14/lineupsolver/relativity"
	"github.com/domino14/lineupsolver/tiebreak"
)

// Builder turns lineup pairings into Results. It only reads its table and
// is safe to share between goroutines.
type Builder struct {
	format   Format
	table    *relativity.Table
	resolver *tiebreak.Resolver
}

func NewBuilder(f Format, t *relativity.Table, r *tiebreak.Resolver) (*Builder, error) {
	if t == nil {
		return nil, errors.New("nil relativity table")
	}
	if f.Boards() == 0 {
		return nil, errors.New("format has no boards")
	}
	if f.HasTiebreak() && r == nil {
		return nil, errors.New("format needs a tiebreak resolver")
	}
	have := map[rating.Context]bool{}
	for _, c := range t.Contexts {
		have[c] = true
	}
	for _, c := range f.Contexts() {
		if !have[c] {
			return nil, fmt.Errorf("%w: table lacks context %s", ErrMissingRelativity, c)
		}
	}
	return &Builder{format: f, table: t, resolver: r}, nil
}

func (b *Builder) Format() Format {
	return b.format
}

func (b *Builder) Table() *relativity.Table {
	return b.table
}

// Build computes the result of l1 (team1) facing l2 (team2).
func (b *Builder) Build(l1, l2 lineup.Lineup) (*Result, error) {
	k := b.format.Boards()
	if len(l1) != k || len(l2) != k {
		return nil, fmt.Errorf("%w: format %s needs %d boards", lineup.ErrInvalidLineup, b.format.Name, k)
	}
	res := &Result{
		Lineup1:    l1,
		Lineup2:    l2,
		Pairs:      make([]*relativity.Pair, k),
		BoardProbs: make([]float64, k),
	}
	for i, role := range b.format.Roles {
		pair := b.table.Pair(l1[i], l2[i])
		if pair == nil {
			return nil, fmt.Errorf("%w: board %d (%d vs %d)", ErrMissingRelativity, i, l1[i], l2[i])
		}
		p, ok := pair.Prob(role.Context())
		if !ok {
			return nil, fmt.Errorf("%w: board %d %s has no %s probability",
				ErrMissingRelativity, i, pair, role.Context())
		}
		res.Pairs[i] = pair
		res.BoardProbs[i] = p
	}
	if err := b.score(res); err != nil {
		return nil, err
	}
	return res, nil
}

// Rebuild derives a new result from res with some boards' probabilities
// replaced. Board indices outside the lineup are an error.
func (b *Builder) Rebuild(res *Result, overrides map[int]float64) (*Result, error) {
	nr := &Result{
		Lineup1:    res.Lineup1,
		Lineup2:    res.Lineup2,
		Pairs:      res.Pairs,
		BoardProbs: append([]float64(nil), res.BoardProbs...),
	}
	for board, p := range overrides {
		if board < 0 || board >= len(nr.BoardProbs) {
			return nil, fmt.Errorf("no board %d", board)
		}
		nr.BoardProbs[board] = rating.Clamp(p)
	}
	if err := b.score(nr); err != nil {
		return nil, err
	}
	return nr, nil
}

func (b *Builder) score(res *Result) error {
	res.Distribution = outcome.Compute(res.BoardProbs)
	res.TotalWin = res.Distribution.Majority()
	if !b.format.HasTiebreak() {
		return nil
	}
	aceCtx := b.format.Ace.Context()
	tb, err := b.resolver.Resolve(res.BoardProbs, res.Lineup1, res.Lineup2,
		func(x, y player.ID) (float64, error) {
			pair := b.table.Pair(x, y)
			if pair == nil {
				return 0, fmt.Errorf("%w: ace %d vs %d", ErrMissingRelativity, x, y)
			}
			p, ok := pair.Prob(aceCtx)
			if !ok {
				return 0, fmt.Errorf("%w: %s has no %s probability", ErrMissingRelativity, pair, aceCtx)
			}
			return p, nil
		})
	if err != nil {
		return err
	}
	res.Tiebreak = tb
	res.TieWin = res.Distribution.Tie() * tb.Prob
	res.TotalWin = rating.Clamp(res.TotalWin + res.TieWin)
	return nil
}
