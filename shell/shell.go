package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/chzyer/readline"
	"github.com/kballard/go-shellquote"
	"github.com/rs/zerolog/log"

	"github.com/domino14/lineupsolver/config"
	"github.com/domino14/lineupsolver/live"
	"github.com/domino14/lineupsolver/match"
	"github.com/domino14/lineupsolver/matrix"
	"github.com/domino14/lineupsolver/montecarlo"
	simstats "github.com/domino14/lineupsolver/montecarlo/stats"
	"github.com/domino14/lineupsolver/player"
	"github.com/domino14/lineupsolver/relativity"
	"github.com/domino14/lineupsolver/store"
)

var (
	errNoData            = errors.New("no data in this line")
	errWrongOptionSyntax = errors.New("wrong format for option")
	errQuit              = errors.New("sending quit signal")

	errNoLeague  = errors.New("please load a league first with the `load` command")
	errNoTeams   = errors.New("please pick the two teams first with the `teams` command")
	errNoMatrix  = errors.New("please build the lineup matrix first with the `build` command")
	errSimming   = errors.New("simming already, please do a `sim stop` first")
	errNotSimmed = errors.New("no simulation yet; start one with `sim`")
)

type shellcmd struct {
	cmd     string
	args    []string
	options CmdOptions
}

type ShellController struct {
	l   *readline.Instance
	out io.Writer

	config     *config.Config
	gitVersion string

	leaguePath string
	league     *store.League
	db         *store.SQLiteStore
	useDB      bool

	team1  *player.Roster
	team2  *player.Roster
	format match.Format

	builder *match.Builder
	matrix  *matrix.Matrix

	simmer        *montecarlo.Simmer
	simStats      *simstats.SimStats
	simCtx        context.Context
	simCancel     context.CancelFunc
	simTicker     *time.Ticker
	simTickerDone chan bool

	tracker    *live.Tracker
	liveStop   chan struct{}
	liveCancel context.CancelFunc
	liveDone   chan struct{}
	liveLatest atomic.Pointer[live.Snapshot]
	browsers   []*live.BrowserSource
}

func filterInput(r rune) (rune, bool) {
	switch r {
	// block CtrlZ feature
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

func showMessage(msg string, w io.Writer) {
	io.WriteString(w, msg)
	io.WriteString(w, "\n")
}

func NewShellController(cfg *config.Config, gitVersion string) *ShellController {
	prompt := "\033[31mlineups>\033[0m "
	sc := &ShellController{
		config:     cfg,
		gitVersion: gitVersion,
		format:     match.Regular,
	}
	l, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		HistoryFile:     "/tmp/lineups-readline.tmp",
		AutoComplete:    NewShellCompleter(sc),
		EOFPrompt:       "exit",
		InterruptPrompt: "^C",

		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	})
	if err != nil {
		panic(err)
	}
	sc.l = l
	sc.out = l.Stdout()
	return sc
}

func (sc *ShellController) showMessage(msg string) {
	showMessage(msg, sc.out)
}

func (sc *ShellController) showError(err error) {
	sc.showMessage("Error: " + err.Error())
}

// extractFields splits a command line into the command, its positional
// arguments and its -key value options. Options may repeat.
func extractFields(line string) (*shellcmd, error) {
	fields, err := shellquote.Split(line)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, errNoData
	}
	cmd := &shellcmd{cmd: fields[0], options: CmdOptions{}}
	for i := 1; i < len(fields); i++ {
		f := fields[i]
		if !isOption(f) {
			cmd.args = append(cmd.args, f)
			continue
		}
		if i+1 >= len(fields) {
			return nil, errWrongOptionSyntax
		}
		key := f[1:]
		cmd.options[key] = append(cmd.options[key], fields[i+1])
		i++
	}
	return cmd, nil
}

// isOption tells "-threads" from a negative number such as "-25".
func isOption(f string) bool {
	if len(f) < 2 || f[0] != '-' {
		return false
	}
	c := f[1]
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func (sc *ShellController) standardModeSwitch(line string, sig chan os.Signal) (*Response, error) {
	cmd, err := extractFields(line)
	if err != nil {
		return nil, err
	}
	switch cmd.cmd {
	case "exit", "bye":
		if sig != nil {
			sig <- syscall.SIGINT
		}
		return nil, errQuit
	case "help":
		return sc.help(cmd)
	case "load":
		return sc.load(cmd)
	case "teams":
		return sc.teams(cmd)
	case "roster":
		return sc.roster(cmd)
	case "weight":
		return sc.weight(cmd)
	case "format":
		return sc.setFormat(cmd)
	case "ratings":
		return sc.ratings(cmd)
	case "record":
		return sc.record(cmd)
	case "game":
		return sc.game(cmd)
	case "save":
		return sc.save(cmd)
	case "build":
		return sc.build(cmd)
	case "best":
		return sc.best(cmd)
	case "maximin":
		return sc.maximin(cmd)
	case "counter":
		return sc.counter(cmd)
	case "show":
		return sc.show(cmd)
	case "sort":
		return sc.sortMatrix(cmd)
	case "sim":
		return sc.sim(cmd)
	case "live":
		return sc.live(cmd)
	case "set":
		return sc.set(cmd)
	default:
		log.Debug().Msgf("you said: %q", line)
		return nil, fmt.Errorf("unknown command %q; try `help`", cmd.cmd)
	}
}

// Execute runs a single command line, as given on the command line of the
// binary.
func (sc *ShellController) Execute(sig chan os.Signal, line string) {
	resp, err := sc.standardModeSwitch(line, sig)
	if errors.Is(err, errQuit) {
		return
	}
	if err != nil {
		sc.showError(err)
		return
	}
	if resp != nil && resp.message != "" {
		sc.showMessage(resp.message)
	}
}

func (sc *ShellController) Loop(sig chan os.Signal) {
	defer sc.l.Close()

	for {
		line, err := sc.l.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				sig <- syscall.SIGINT
				break
			}
			continue
		} else if err == io.EOF {
			sig <- syscall.SIGINT
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		resp, err := sc.standardModeSwitch(line, sig)
		if errors.Is(err, errQuit) {
			break
		}
		if err != nil {
			sc.showError(err)
			continue
		}
		if resp != nil && resp.message != "" {
			sc.showMessage(resp.message)
		}
	}
	log.Debug().Msgf("Exiting readline loop...")
}

// Cleanup stops background work and releases what the session opened.
func (sc *ShellController) Cleanup() {
	if sc.simmer != nil && sc.simmer.IsSimming() {
		sc.stopSim()
	}
	sc.stopLive()
	sc.closeBrowsers()
	if sc.db != nil {
		if err := sc.db.Close(); err != nil {
			log.Err(err).Msg("closing-db")
		}
		sc.db = nil
	}
}

// invalidate drops everything computed from the rosters, ratings or
// format. Callers must not be simming or tracking.
func (sc *ShellController) invalidate() {
	sc.builder = nil
	sc.matrix = nil
	sc.simmer = nil
	sc.simStats = nil
}

func (sc *ShellController) busy() error {
	if sc.simmer != nil && sc.simmer.IsSimming() {
		return errSimming
	}
	if sc.tracker != nil {
		return errors.New("live tracking is on, please do a `live stop` first")
	}
	return nil
}

// sources returns where ratings and head-to-head records come from.
func (sc *ShellController) sources() (relativity.RatingSource, relativity.HistorySource) {
	if sc.useDB && sc.db != nil {
		return sc.db, sc.db
	}
	return sc.league, sc.league
}
