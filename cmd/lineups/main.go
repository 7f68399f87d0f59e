// Command lineups loads a league, builds the full lineup matrix for two of
// its teams and prints the best-average and maximin recommendations for
// both sides.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/spf13/pflag"

	"github.com/domino14/lineupsolver/config"
	"github.com/domino14/lineupsolver/lineup"
	"github.com/domino14/lineupsolver/match"
	"github.com/domino14/lineupsolver/matrix"
	"github.com/domino14/lineupsolver/optimizer"
	"github.com/domino14/lineupsolver/player"
	"github.com/domino14/lineupsolver/relativity"
	"github.com/domino14/lineupsolver/store"
	"github.com/domino14/lineupsolver/tiebreak"
)

type options struct {
	league string
	team1  string
	team2  string
	format string
	top    int
}

func parseOptions(args []string) (options, error) {
	var o options
	fs := pflag.NewFlagSet("lineups", pflag.ContinueOnError)
	fs.StringVar(&o.league, "league", "", "league yaml file")
	fs.StringVar(&o.team1, "team1", "", "first team (rows)")
	fs.StringVar(&o.team2, "team2", "", "second team (columns)")
	fs.StringVar(&o.format, "format", "", "match format; defaults to the league's")
	fs.IntVar(&o.top, "top", 5, "lineups to list per recommendation")
	fs.ParseErrorsWhitelist.UnknownFlags = true
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.league == "" || o.team1 == "" || o.team2 == "" {
		return o, fmt.Errorf("--league, --team1 and --team2 are required")
	}
	return o, nil
}

func main() {
	cfg := config.DefaultConfig()
	if _, err := cfg.Load(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	opts, err := parseOptions(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	level := zerolog.InfoLevel
	if cfg.GetBool(config.ConfigDebug) {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(output).Level(level).With().Timestamp().Logger()
	zerolog.DefaultContextLogger = &logger
	log.Logger = logger
	ctx := logger.WithContext(context.Background())

	if err := run(ctx, &cfg, opts, os.Stdout); err != nil {
		log.Fatal().Err(err).Msg("lineups-failed")
	}
}

func run(ctx context.Context, cfg *config.Config, o options, w io.Writer) error {
	league, err := store.LoadLeague(o.league)
	if err != nil {
		return err
	}
	formatName := lo.CoalesceOrEmpty(o.format, league.Format, match.Regular.Name)
	format, err := match.ParseFormat(formatName)
	if err != nil {
		return err
	}
	r1, err := league.Roster(o.team1)
	if err != nil {
		return err
	}
	r2, err := league.Roster(o.team2)
	if err != nil {
		return err
	}
	tbl, err := relativity.Build(ctx, r1, r2, cfg.RatingModel(), format.Contexts(), league)
	if err != nil {
		return err
	}
	penalties, err := cfg.TiebreakPenalties()
	if err != nil {
		return err
	}
	if league.Penalties != nil {
		penalties = *league.Penalties
	}
	resolver, err := tiebreak.NewResolver(penalties)
	if err != nil {
		return err
	}
	b, err := match.NewBuilder(format, tbl, resolver)
	if err != nil {
		return err
	}
	rows, err := lineup.Enumerate(r1.Size(), format.Boards(), nil)
	if err != nil {
		return err
	}
	cols, err := lineup.Enumerate(r2.Size(), format.Boards(), nil)
	if err != nil {
		return err
	}
	m, err := matrix.Build(ctx, b, rows, cols, cfg.Threads())
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s vs %s, %s format, %d x %d lineups\n\n", r1.Team, r2.Team, format.Name, len(rows), len(cols))

	for _, side := range []match.Side{match.Team1, match.Team2} {
		own, opp := r1, r2
		if side == match.Team2 {
			own, opp = r2, r1
		}
		avg, err := optimizer.BestAverage(m, side, nil)
		if err != nil {
			return err
		}
		worst, err := optimizer.Maximin(m, side)
		if err != nil {
			return err
		}
		printRanked(w, m, side, own, opp, optimizer.ByAverage, avg, o.top)
		printRanked(w, m, side, own, opp, optimizer.ByWorstCase, worst, o.top)
	}
	return nil
}

func printRanked(w io.Writer, m *matrix.Matrix, side match.Side, own, opp *player.Roster,
	obj optimizer.Objective, ranked []*optimizer.Ranked, top int) {

	fmt.Fprintf(w, "%s, %s:\n", own.Team, obj)
	replies := m.Opponents(side)
	for i, r := range lo.Slice(ranked, 0, top) {
		fmt.Fprintf(w, "  %d. %-40s %6.2f%%  (worst: %s, %.2f%%)\n", i+1, r.Lineup.Display(own),
			100*r.Value, replies[r.Worst].Display(opp), 100*m.For(side, r.Index, r.Worst).WinFor(side))
	}
	fmt.Fprintln(w, strings.Repeat("-", 60))
}
