package shell

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/domino14/lineupsolver/live"
	"github.com/domino14/lineupsolver/rating"
)

const browserTimeout = 15 * time.Second

// live tracks one matrix cell while its games are played. Each -feed is
// board:color:source, where color is team1's color on that board and
// source is a YAML file or a game page URL.
func (sc *ShellController) live(cmd *shellcmd) (*Response, error) {
	if len(cmd.args) == 1 {
		switch cmd.args[0] {
		case "stop":
			if sc.tracker == nil {
				return nil, errors.New("live tracking is not on")
			}
			snap := sc.liveText()
			sc.stopLive()
			return msg(snap), nil
		case "show":
			if sc.tracker == nil {
				return nil, errors.New("live tracking is not on")
			}
			return msg(sc.liveText()), nil
		}
	}
	if sc.matrix == nil {
		return nil, errNoMatrix
	}
	if sc.tracker != nil {
		return nil, errors.New("already tracking, please do a `live stop` first")
	}
	if len(cmd.args) != 2 {
		return nil, errors.New("usage: live <row> <col> -feed board:color:source [-feed ...] | live show | live stop")
	}
	row, err := strconv.Atoi(cmd.args[0])
	if err != nil {
		return nil, err
	}
	col, err := strconv.Atoi(cmd.args[1])
	if err != nil {
		return nil, err
	}
	base, err := sc.cell(row, col)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(log.Logger.WithContext(context.Background()))
	feeds, err := sc.parseFeeds(ctx, cmd.options.StringArray("feed"))
	if err != nil {
		cancel()
		sc.closeBrowsers()
		return nil, err
	}
	t, err := live.NewTracker(sc.builder, base, sc.config.LiveParams(), feeds, sc.publishSnapshot)
	if err != nil {
		cancel()
		sc.closeBrowsers()
		return nil, err
	}
	sc.tracker = t
	sc.liveLatest.Store(nil)
	sc.liveStop = make(chan struct{})
	sc.liveDone = make(chan struct{})
	sc.liveCancel = cancel
	stop, done := sc.liveStop, sc.liveDone
	go func() {
		defer close(done)
		if err := t.Run(ctx, stop); err != nil && !errors.Is(err, context.Canceled) {
			log.Err(err).Msg("live-tracking-ended")
		}
	}()
	return msg(fmt.Sprintf("Tracking %d boards of\n%s", len(feeds), base.ToDisplayText(sc.team1, sc.team2))), nil
}

func (sc *ShellController) parseFeeds(ctx context.Context, specs []string) ([]live.Feed, error) {
	if len(specs) == 0 {
		return nil, errors.New("give at least one -feed board:color:source")
	}
	var feeds []live.Feed
	for _, feed := range specs {
		parts := strings.SplitN(feed, ":", 3)
		if len(parts) != 3 {
			return nil, fmt.Errorf("bad feed %q, want board:color:source", feed)
		}
		board, err := strconv.Atoi(parts[0])
		if err != nil {
			return nil, fmt.Errorf("bad feed board %q: %w", parts[0], err)
		}
		color, err := rating.ParseColor(parts[1])
		if err != nil {
			return nil, err
		}
		if color == rating.NoColor {
			return nil, fmt.Errorf("feed for board %d needs team1's color", board)
		}
		var src live.Source
		if strings.HasPrefix(parts[2], "http://") || strings.HasPrefix(parts[2], "https://") {
			b, err := live.NewBrowserSource(ctx, parts[2], "", browserTimeout)
			if err != nil {
				return nil, err
			}
			sc.browsers = append(sc.browsers, b)
			src = b
		} else {
			src = live.FileSource{Path: parts[2]}
		}
		// boards are numbered from 1 at the prompt
		feeds = append(feeds, live.Feed{Board: board - 1, Team1Color: color, Source: src})
	}
	return feeds, nil
}

func (sc *ShellController) publishSnapshot(s live.Snapshot) {
	sc.liveLatest.Store(&s)
	log.Info().Float64("total-win", s.Result.TotalWin).Int("boards", len(s.Boards)).Msg("live-update")
}

func (sc *ShellController) liveText() string {
	snap := sc.liveLatest.Load()
	if snap == nil {
		return "No live update yet"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "As of %s\n", snap.Time.Format(time.Kitchen))
	boards := make([]int, 0, len(snap.Boards))
	for b := range snap.Boards {
		boards = append(boards, b)
	}
	sort.Ints(boards)
	for _, b := range boards {
		sig := snap.Signals[b]
		fmt.Fprintf(&sb, "  board %d: live %.2f%% (engine %.1f%% for %s to move, move %d)\n",
			b+1, 100*snap.Boards[b], sig.LeaderWinPct, sig.ToMove, sig.MoveCount)
	}
	sb.WriteString(snap.Result.ToDisplayText(sc.team1, sc.team2))
	return sb.String()
}

func (sc *ShellController) stopLive() {
	if sc.tracker == nil {
		return
	}
	close(sc.liveStop)
	<-sc.liveDone
	sc.liveCancel()
	sc.closeBrowsers()
	sc.tracker = nil
}

func (sc *ShellController) closeBrowsers() {
	for _, b := range sc.browsers {
		b.Close()
	}
	sc.browsers = nil
}
