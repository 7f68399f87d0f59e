package shell

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

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

const defaultListSize = 10

type Response struct {
	message string
}

type CmdOptions map[string][]string

func (c CmdOptions) String(key string) string {
	v := c[key]
	if len(v) > 0 {
		return v[0]
	}
	return ""
}

func (c CmdOptions) Int(key string) (int, error) {
	v := c[key]
	if len(v) == 0 {
		return 0, errors.New(key + " not found in options")
	}
	return strconv.Atoi(v[0])
}

func (c CmdOptions) IntDefault(key string, defaultI int) (int, error) {
	v := c[key]
	if len(v) == 0 {
		return defaultI, nil
	}
	return strconv.Atoi(v[0])
}

func (c CmdOptions) Bool(key string) bool {
	v := c[key]
	if len(v) == 0 {
		return false
	}
	return strings.ToLower(v[0]) == "true"
}

func (c CmdOptions) StringArray(key string) []string {
	return c[key]
}

func msg(message string) *Response {
	return &Response{message: message}
}

func parseSide(s string) (match.Side, error) {
	switch strings.ToLower(s) {
	case "", "team1", "1", "home":
		return match.Team1, nil
	case "team2", "2", "away":
		return match.Team2, nil
	}
	return match.Team1, fmt.Errorf("unknown side %q, use team1 or team2", s)
}

// rosters returns side's roster and its opponent's.
func (sc *ShellController) rosters(side match.Side) (*player.Roster, *player.Roster) {
	if side == match.Team2 {
		return sc.team2, sc.team1
	}
	return sc.team1, sc.team2
}

func (sc *ShellController) load(cmd *shellcmd) (*Response, error) {
	if len(cmd.args) != 1 {
		return nil, errors.New("usage: load <league.yaml> [-source league|sqlite]")
	}
	if err := sc.busy(); err != nil {
		return nil, err
	}
	path := sc.leagueFile(cmd.args[0])
	l, err := store.LoadLeague(path)
	if err != nil {
		return nil, err
	}
	switch src := cmd.options.String("source"); src {
	case "", "league":
		sc.useDB = false
	case "sqlite", "db":
		if sc.db == nil {
			sc.db, err = store.NewSQLiteStore(context.Background(), sc.config.GetString(config.ConfigDBPath))
			if err != nil {
				return nil, err
			}
		}
		sc.useDB = true
	default:
		return nil, fmt.Errorf("unknown source %q", src)
	}
	if l.Format != "" {
		f, err := match.ParseFormat(l.Format)
		if err != nil {
			return nil, err
		}
		sc.format = f
	}
	sc.league = l
	sc.leaguePath = path
	sc.team1, sc.team2 = nil, nil
	sc.invalidate()
	log.Debug().Str("path", sc.leaguePath).Bool("sqlite", sc.useDB).Msg("league-loaded")
	return msg(fmt.Sprintf("Loaded %d teams: %s\nFormat: %s",
		len(l.Teams), strings.Join(l.TeamNames(), ", "), sc.format.Name)), nil
}

// leagueFile looks for name as given, then in the data path.
func (sc *ShellController) leagueFile(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	if _, err := os.Stat(name); err == nil {
		return name
	}
	return filepath.Join(sc.config.GetString(config.ConfigDataPath), name)
}

func (sc *ShellController) teams(cmd *shellcmd) (*Response, error) {
	if sc.league == nil {
		return nil, errNoLeague
	}
	if len(cmd.args) == 0 {
		return msg(strings.Join(sc.league.TeamNames(), "\n")), nil
	}
	if len(cmd.args) != 2 {
		return nil, errors.New("usage: teams <team1> <team2>")
	}
	if err := sc.busy(); err != nil {
		return nil, err
	}
	if err := sc.selectTeams(cmd.args[0], cmd.args[1]); err != nil {
		return nil, err
	}
	return msg(sc.team1.ToDisplayText() + "\n" + sc.team2.ToDisplayText()), nil
}

func (sc *ShellController) selectTeams(name1, name2 string) error {
	r1, err := sc.league.Roster(name1)
	if err != nil {
		return err
	}
	r2, err := sc.league.Roster(name2)
	if err != nil {
		return err
	}
	if sc.useDB {
		ratings, err := sc.db.Ratings(context.Background())
		if err != nil {
			return err
		}
		for _, r := range []*player.Roster{r1, r2} {
			if err := relativity.ApplyRatings(r, ratings); err != nil {
				return err
			}
		}
	}
	k := sc.format.Boards()
	for _, r := range []*player.Roster{r1, r2} {
		if r.Size() < k {
			return fmt.Errorf("%s has %d players, %s needs %d", r.Team, r.Size(), sc.format.Name, k)
		}
	}
	sc.team1, sc.team2 = r1, r2
	sc.invalidate()
	return nil
}

func (sc *ShellController) roster(cmd *shellcmd) (*Response, error) {
	if sc.team1 == nil {
		return nil, errNoTeams
	}
	if len(cmd.args) == 0 {
		return msg(sc.team1.ToDisplayText() + "\n" + sc.team2.ToDisplayText()), nil
	}
	side, err := parseSide(cmd.args[0])
	if err != nil {
		return nil, err
	}
	own, _ := sc.rosters(side)
	return msg(own.ToDisplayText()), nil
}

// weight changes an adjustment weight for this session only; edit the
// league file to keep it.
func (sc *ShellController) weight(cmd *shellcmd) (*Response, error) {
	if sc.team1 == nil {
		return nil, errNoTeams
	}
	if len(cmd.args) != 3 {
		return nil, errors.New("usage: weight <player> <adjustment> <value>")
	}
	if err := sc.busy(); err != nil {
		return nil, err
	}
	a, err := player.ParseAdjustment(cmd.args[1])
	if err != nil {
		return nil, err
	}
	v, err := strconv.ParseFloat(cmd.args[2], 64)
	if err != nil {
		return nil, err
	}
	for _, r := range []*player.Roster{sc.team1, sc.team2} {
		if err := r.SetWeight(cmd.args[0], a, v); err == nil {
			sc.invalidate()
			return msg(r.ToDisplayText()), nil
		} else if !errors.Is(err, player.ErrUnknownPlayer) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: %q", player.ErrUnknownPlayer, cmd.args[0])
}

func (sc *ShellController) setFormat(cmd *shellcmd) (*Response, error) {
	if len(cmd.args) == 0 {
		return msg(formatText(sc.format)), nil
	}
	if err := sc.busy(); err != nil {
		return nil, err
	}
	f, err := match.ParseFormat(cmd.args[0])
	if err != nil {
		return nil, err
	}
	if cmd.options.Bool("condition") {
		f = f.WithCondition()
	}
	if sc.team1 != nil && (sc.team1.Size() < f.Boards() || sc.team2.Size() < f.Boards()) {
		return nil, fmt.Errorf("%s needs %d players per team", f.Name, f.Boards())
	}
	sc.format = f
	sc.invalidate()
	return msg(formatText(f)), nil
}

func formatText(f match.Format) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %d boards\n", f.Name, f.Boards())
	for i, r := range f.Roles {
		fmt.Fprintf(&sb, "  board %d: %s\n", i+1, r.Context())
	}
	if f.HasTiebreak() {
		fmt.Fprintf(&sb, "  ace match: %s\n", f.Ace.Context())
	}
	return sb.String()
}

func (sc *ShellController) ratings(cmd *shellcmd) (*Response, error) {
	if sc.league == nil {
		return nil, errNoLeague
	}
	if err := sc.busy(); err != nil {
		return nil, err
	}
	ctx := context.Background()
	var fetched map[string]float64
	var err error
	switch {
	case cmd.options.String("url") != "":
		page := &store.RatingsPage{URL: cmd.options.String("url"), Retries: 3}
		fetched, err = page.Ratings(ctx)
	case cmd.options.String("file") != "":
		var f *os.File
		f, err = os.Open(cmd.options.String("file"))
		if err != nil {
			return nil, err
		}
		defer f.Close()
		fetched, err = store.ParseRatingsHTML(f)
	default:
		return nil, errors.New("usage: ratings -url <ratings page> | -file <saved page>")
	}
	if err != nil {
		return nil, err
	}
	updated := sc.league.UpdateRatings(fetched)
	if sc.useDB {
		if err := sc.db.SetRatings(ctx, fetched); err != nil {
			return nil, err
		}
	}
	if sc.team1 != nil {
		if err := sc.selectTeams(sc.team1.Team, sc.team2.Team); err != nil {
			return nil, err
		}
	}
	sort.Strings(updated)
	return msg(fmt.Sprintf("Read %d ratings, updated %d league players: %s",
		len(fetched), len(updated), strings.Join(updated, ", "))), nil
}

func (sc *ShellController) record(cmd *shellcmd) (*Response, error) {
	if sc.league == nil {
		return nil, errNoLeague
	}
	if len(cmd.args) == 2 {
		a, b, err := sc.league.HeadToHead(context.Background(), cmd.args[0], cmd.args[1])
		if err != nil {
			return nil, err
		}
		return msg(fmt.Sprintf("%s %d - %d %s", cmd.args[0], a, b, cmd.args[1])), nil
	}
	if len(cmd.args) != 4 {
		return nil, errors.New("usage: record <a> <b> [<a wins> <b wins>]")
	}
	if err := sc.busy(); err != nil {
		return nil, err
	}
	aw, err := strconv.Atoi(cmd.args[2])
	if err != nil {
		return nil, err
	}
	bw, err := strconv.Atoi(cmd.args[3])
	if err != nil {
		return nil, err
	}
	if aw < 0 || bw < 0 {
		return nil, errors.New("win counts cannot be negative")
	}
	sc.league.SetRecord(cmd.args[0], cmd.args[1], aw, bw)
	sc.invalidate()
	return msg("Record set; `save` to write it to the league file"), nil
}

func (sc *ShellController) game(cmd *shellcmd) (*Response, error) {
	if sc.db == nil {
		return nil, errors.New("no game database; load the league with -source sqlite")
	}
	if len(cmd.args) != 3 {
		return nil, errors.New("usage: game <white> <black> <winner> [-tc fast]")
	}
	if err := sc.busy(); err != nil {
		return nil, err
	}
	err := sc.db.RecordGame(context.Background(), store.Game{
		White:       cmd.args[0],
		Black:       cmd.args[1],
		Winner:      cmd.args[2],
		TimeControl: cmd.options.String("tc"),
	})
	if err != nil {
		return nil, err
	}
	sc.invalidate()
	return msg("Game recorded"), nil
}

func (sc *ShellController) save(cmd *shellcmd) (*Response, error) {
	if sc.league == nil {
		return nil, errNoLeague
	}
	path := sc.leaguePath
	if len(cmd.args) > 0 {
		path = cmd.args[0]
	}
	if err := sc.league.Write(path); err != nil {
		return nil, err
	}
	return msg("Saved league to " + path), nil
}

func (sc *ShellController) penalties() (tiebreak.Penalties, error) {
	if sc.league != nil && sc.league.Penalties != nil {
		return *sc.league.Penalties, sc.league.Penalties.Validate()
	}
	return sc.config.TiebreakPenalties()
}

// ensureBuilder computes the relativity table for the current teams and
// format.
func (sc *ShellController) ensureBuilder(ctx context.Context) error {
	if sc.builder != nil {
		return nil
	}
	if sc.team1 == nil {
		return errNoTeams
	}
	_, history := sc.sources()
	tbl, err := relativity.Build(ctx, sc.team1, sc.team2, sc.config.RatingModel(),
		sc.format.Contexts(), history)
	if err != nil {
		return err
	}
	p, err := sc.penalties()
	if err != nil {
		return err
	}
	r, err := tiebreak.NewResolver(p)
	if err != nil {
		return err
	}
	b, err := match.NewBuilder(sc.format, tbl, r)
	if err != nil {
		return err
	}
	sc.builder = b
	return nil
}

// pattern parses a lineup pattern for r; an empty string means no pattern.
func (sc *ShellController) pattern(s string, r *player.Roster) (lineup.Pattern, error) {
	if s == "" {
		return nil, nil
	}
	return lineup.ParsePattern(s, r, sc.format.Boards())
}

func (sc *ShellController) build(cmd *shellcmd) (*Response, error) {
	if err := sc.busy(); err != nil {
		return nil, err
	}
	ctx := log.Logger.WithContext(context.Background())
	if err := sc.ensureBuilder(ctx); err != nil {
		return nil, err
	}
	pins1, err := sc.pattern(cmd.options.String("pin1"), sc.team1)
	if err != nil {
		return nil, err
	}
	pins2, err := sc.pattern(cmd.options.String("pin2"), sc.team2)
	if err != nil {
		return nil, err
	}
	k := sc.format.Boards()
	rows, err := lineup.Enumerate(sc.team1.Size(), k, pins1)
	if err != nil {
		return nil, err
	}
	cols, err := lineup.Enumerate(sc.team2.Size(), k, pins2)
	if err != nil {
		return nil, err
	}
	threads, err := cmd.options.IntDefault("threads", sc.config.Threads())
	if err != nil {
		return nil, err
	}
	m, err := matrix.Build(ctx, sc.builder, rows, cols, threads)
	if err != nil {
		return nil, err
	}
	sc.matrix = m
	sc.simmer, sc.simStats = nil, nil
	return msg(fmt.Sprintf("Built %d x %d lineup matrix (%s vs %s, %s)",
		len(rows), len(cols), sc.team1.Team, sc.team2.Team, sc.format.Name)), nil
}

func (sc *ShellController) rankingOptions(cmd *shellcmd) (match.Side, lineup.Pattern, int, error) {
	side, err := parseSide(cmd.options.String("side"))
	if err != nil {
		return side, nil, 0, err
	}
	own, _ := sc.rosters(side)
	ownPattern, err := sc.pattern(cmd.options.String("own"), own)
	if err != nil {
		return side, nil, 0, err
	}
	n, err := cmd.options.IntDefault("n", defaultListSize)
	return side, ownPattern, n, err
}

func (sc *ShellController) best(cmd *shellcmd) (*Response, error) {
	if sc.matrix == nil {
		return nil, errNoMatrix
	}
	side, own, n, err := sc.rankingOptions(cmd)
	if err != nil {
		return nil, err
	}
	_, opp := sc.rosters(side)
	oppPattern, err := sc.pattern(cmd.options.String("opp"), opp)
	if err != nil {
		return nil, err
	}
	ranked, err := optimizer.BestAverage(sc.matrix, side, oppPattern)
	if err != nil {
		return nil, err
	}
	return msg(sc.rankedText(side, optimizer.ByAverage, optimizer.Restrict(ranked, own), n)), nil
}

func (sc *ShellController) maximin(cmd *shellcmd) (*Response, error) {
	if sc.matrix == nil {
		return nil, errNoMatrix
	}
	side, own, n, err := sc.rankingOptions(cmd)
	if err != nil {
		return nil, err
	}
	ranked, err := optimizer.Maximin(sc.matrix, side)
	if err != nil {
		return nil, err
	}
	return msg(sc.rankedText(side, optimizer.ByWorstCase, optimizer.Restrict(ranked, own), n)), nil
}

func (sc *ShellController) counter(cmd *shellcmd) (*Response, error) {
	if sc.matrix == nil {
		return nil, errNoMatrix
	}
	if len(cmd.args) != 1 {
		return nil, errors.New("usage: counter <opponent pattern, e.g. Eve,_,_,Frank> [-side team1] [-objective best|maximin]")
	}
	side, own, n, err := sc.rankingOptions(cmd)
	if err != nil {
		return nil, err
	}
	obj := optimizer.ByAverage
	if o := cmd.options.String("objective"); o != "" {
		if obj, err = optimizer.ParseObjective(o); err != nil {
			return nil, err
		}
	}
	_, opp := sc.rosters(side)
	oppPattern, err := sc.pattern(cmd.args[0], opp)
	if err != nil {
		return nil, err
	}
	ranked, err := optimizer.CounterPick(sc.matrix, side, oppPattern, obj)
	if err != nil {
		return nil, err
	}
	header := fmt.Sprintf("Against %s (%d possible lineups)\n",
		oppPattern.Display(opp), oppPattern.Count(opp.Size()))
	return msg(header + sc.rankedText(side, obj, optimizer.Restrict(ranked, own), n)), nil
}

func (sc *ShellController) rankedText(side match.Side, obj optimizer.Objective, ranked []*optimizer.Ranked, n int) string {
	own, opp := sc.rosters(side)
	oppLineups := sc.matrix.Opponents(side)
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s lineups for %s (%s)\n", obj, own.Team, side)
	fmt.Fprintf(&sb, "%-4s%-40s%-9s%-9s%-10s%-9s%s\n", "#", "Lineup", "Value", "Mean", "Decisive", "Sweep", "Worst reply")
	for i, r := range lo.Slice(ranked, 0, max(0, n)) {
		fmt.Fprintf(&sb, "%-4d%-40s%-9.2f%-9.2f%-10.2f%-9.2f%s\n", i+1, r.Lineup.Display(own),
			100*r.Value, 100*r.Mean, 100*r.Decisive, 100*r.Sweep, oppLineups[r.Worst].Display(opp))
	}
	if len(ranked) == 0 {
		sb.WriteString("(no lineup matches)\n")
	}
	return sb.String()
}

func (sc *ShellController) show(cmd *shellcmd) (*Response, error) {
	if t1, t2 := cmd.options.String("team1"), cmd.options.String("team2"); t1 != "" || t2 != "" {
		return sc.showPairing(t1, t2)
	}
	if sc.matrix == nil {
		return nil, errNoMatrix
	}
	if len(cmd.args) != 2 {
		return nil, errors.New("usage: show <row> <col> | show -team1 <lineup> -team2 <lineup>")
	}
	i, err := strconv.Atoi(cmd.args[0])
	if err != nil {
		return nil, err
	}
	j, err := strconv.Atoi(cmd.args[1])
	if err != nil {
		return nil, err
	}
	res, err := sc.cell(i, j)
	if err != nil {
		return nil, err
	}
	return msg(res.ToDisplayText(sc.team1, sc.team2)), nil
}

func (sc *ShellController) cell(i, j int) (*match.Result, error) {
	rows, cols := sc.matrix.Size()
	if i < 0 || i >= rows || j < 0 || j >= cols {
		return nil, fmt.Errorf("no cell %d,%d in a %d x %d matrix", i, j, rows, cols)
	}
	return sc.matrix.Cell(i, j), nil
}

func (sc *ShellController) showPairing(t1, t2 string) (*Response, error) {
	if err := sc.ensureBuilder(log.Logger.WithContext(context.Background())); err != nil {
		return nil, err
	}
	l1, err := sc.fullLineup(t1, sc.team1)
	if err != nil {
		return nil, err
	}
	l2, err := sc.fullLineup(t2, sc.team2)
	if err != nil {
		return nil, err
	}
	res, err := sc.builder.Build(l1, l2)
	if err != nil {
		return nil, err
	}
	return msg(res.ToDisplayText(sc.team1, sc.team2)), nil
}

// fullLineup reads a pattern that must pin every board.
func (sc *ShellController) fullLineup(s string, r *player.Roster) (lineup.Lineup, error) {
	p, err := sc.pattern(s, r)
	if err != nil {
		return nil, err
	}
	if p == nil || p.Known() != len(p) {
		return nil, fmt.Errorf("%w: %s needs a player on every board", lineup.ErrInvalidLineup, r.Team)
	}
	return lineup.New(p, r.Size(), sc.format.Boards())
}

func (sc *ShellController) sortMatrix(cmd *shellcmd) (*Response, error) {
	if sc.matrix == nil {
		return nil, errNoMatrix
	}
	if len(cmd.args) != 2 {
		return nil, errors.New("usage: sort <win|decisive|sweep|tie> <mean|min|max> [-cols true]")
	}
	if err := sc.busy(); err != nil {
		return nil, err
	}
	f, err := matrix.ParseField(cmd.args[0])
	if err != nil {
		return nil, err
	}
	a, err := matrix.ParseAggregation(cmd.args[1])
	if err != nil {
		return nil, err
	}
	n, err := cmd.options.IntDefault("n", defaultListSize)
	if err != nil {
		return nil, err
	}
	var sb strings.Builder
	if cmd.options.Bool("cols") {
		sc.matrix.SortCols(f, a)
		for j, l := range lo.Slice(sc.matrix.Lineups(match.Team2), 0, max(0, n)) {
			fmt.Fprintf(&sb, "%-4d%-40s%.2f\n", j, l.Display(sc.team2), 100*sc.matrix.ColScore(j, f, a))
		}
	} else {
		sc.matrix.SortRows(f, a)
		for i, l := range lo.Slice(sc.matrix.Lineups(match.Team1), 0, max(0, n)) {
			fmt.Fprintf(&sb, "%-4d%-40s%.2f\n", i, l.Display(sc.team1), 100*sc.matrix.RowScore(i, f, a))
		}
	}
	return msg(sb.String()), nil
}

func (sc *ShellController) set(cmd *shellcmd) (*Response, error) {
	if len(cmd.args) == 0 {
		keys := sc.config.AllKeys()
		sort.Strings(keys)
		var sb strings.Builder
		for _, k := range keys {
			fmt.Fprintf(&sb, "%s: %v\n", k, sc.config.Get(k))
		}
		return msg(sb.String()), nil
	}
	if len(cmd.args) != 2 {
		return nil, errors.New("usage: set <key> <value> [-save true]")
	}
	if err := sc.busy(); err != nil {
		return nil, err
	}
	key, value := cmd.args[0], cmd.args[1]
	switch key {
	case config.ConfigTiebreakPositionPenalties:
		var pos []float64
		for _, f := range strings.Split(value, ",") {
			v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
			if err != nil {
				return nil, err
			}
			pos = append(pos, v)
		}
		sc.config.Set(key, pos)
	default:
		sc.config.Set(key, value)
	}
	if strings.HasPrefix(key, "rating.") || strings.HasPrefix(key, "tiebreak.") {
		sc.invalidate()
	}
	if cmd.options.Bool("save") {
		if err := sc.config.Write(); err != nil {
			return nil, err
		}
	}
	return msg(fmt.Sprintf("%s set to %v", key, sc.config.Get(key))), nil
}

func (sc *ShellController) help(cmd *shellcmd) (*Response, error) {
	var sb strings.Builder
	if len(cmd.args) == 0 {
		if sc.gitVersion != "" {
			sb.WriteString("lineups " + sc.gitVersion + "\n\n")
		}
		usage(&sb)
	} else {
		usageTopic(&sb, cmd.args[0])
	}
	return msg(sb.String()), nil
}
