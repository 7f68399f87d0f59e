package shell

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/domino14/lineupsolver/match"
	"github.com/domino14/lineupsolver/montecarlo"
	simstats "github.com/domino14/lineupsolver/montecarlo/stats"
)

const histogramWidth = 50

// sim plays matrix cells out board by board. Arguments are row/col pairs,
// or a control word: stop, show, scores or hist.
func (sc *ShellController) sim(cmd *shellcmd) (*Response, error) {
	if len(cmd.args) > 0 {
		if _, err := strconv.Atoi(cmd.args[0]); err != nil {
			return sc.simControlArguments(cmd.args)
		}
	}
	if sc.matrix == nil {
		return nil, errNoMatrix
	}
	if sc.simmer != nil && sc.simmer.IsSimming() {
		return nil, errSimming
	}
	if len(cmd.args) == 0 || len(cmd.args)%2 != 0 {
		return nil, errors.New("usage: sim <row> <col> [<row> <col> ...] [-stop 95|98|99] [-iters n] [-threads n]")
	}
	var results []*match.Result
	for i := 0; i < len(cmd.args); i += 2 {
		row, err := strconv.Atoi(cmd.args[i])
		if err != nil {
			return nil, err
		}
		col, err := strconv.Atoi(cmd.args[i+1])
		if err != nil {
			return nil, err
		}
		res, err := sc.cell(row, col)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}

	stoppingCondition := montecarlo.StopNone
	if v := cmd.options.String("stop"); v != "" {
		switch v {
		case "95":
			stoppingCondition = montecarlo.Stop95
		case "98":
			stoppingCondition = montecarlo.Stop98
		case "99":
			stoppingCondition = montecarlo.Stop99
		default:
			return nil, errors.New("only allowed values are 95, 98, and 99 for stopping condition")
		}
	}
	iters, err := cmd.options.IntDefault("iters", 0)
	if err != nil {
		return nil, err
	}
	threads, err := cmd.options.IntDefault("threads", sc.config.Threads())
	if err != nil {
		return nil, err
	}
	simmer, err := montecarlo.NewSimmer(results)
	if err != nil {
		return nil, err
	}
	if iters <= 0 && stoppingCondition == montecarlo.StopNone {
		// nothing else would end it
		iters = montecarlo.IterationsCutoff
	}
	simmer.SetThreads(threads)
	simmer.SetMaxIterations(uint64(max(0, iters)))
	simmer.SetStoppingCondition(stoppingCondition, 0)
	sc.simmer = simmer
	sc.simStats = simstats.NewSimStats(simmer, sc.team1, sc.team2)

	log.Debug().Int("pairings", len(results)).Int("threads", threads).
		Int("stoppingCondition", int(stoppingCondition)).Msg("will start sim")
	sc.startSim()
	return msg("Simulation started. Please do `sim show` and `sim scores <n>` to see more info"), nil
}

func (sc *ShellController) startSim() {
	sc.simCtx, sc.simCancel = context.WithCancel(log.Logger.WithContext(context.Background()))
	sc.simTicker = time.NewTicker(10 * time.Second)
	sc.simTickerDone = make(chan bool, 1)
	ctx, simmer, ticker, done := sc.simCtx, sc.simmer, sc.simTicker, sc.simTickerDone

	go func() {
		err := simmer.Simulate(ctx)
		if err != nil {
			log.Err(err).Msg("sim-failed")
		}
		ticker.Stop()
		done <- true
		log.Debug().Msg("simulation thread exiting...")
	}()

	go func() {
		for {
			select {
			case <-done:
				log.Debug().Msg("ticker thread exiting...")
				return
			case <-ticker.C:
				log.Info().Msgf("Simmer is at %v iterations...", simmer.Iterations())
			}
		}
	}()
}

// stopSim cancels the running simulation and waits for it to wind down.
func (sc *ShellController) stopSim() {
	sc.simCancel()
	for sc.simmer.IsSimming() {
		time.Sleep(10 * time.Millisecond)
	}
}

func (sc *ShellController) simControlArguments(args []string) (*Response, error) {
	if sc.simmer == nil {
		return nil, errNotSimmed
	}
	switch args[0] {
	case "stop":
		if !sc.simmer.IsSimming() {
			return nil, errors.New("no running sim to stop")
		}
		sc.stopSim()
		return msg(sc.simStats.Summary()), nil
	case "show":
		return msg(sc.simStats.Summary()), nil
	case "scores", "hist":
		idx := 0
		if len(args) > 1 {
			var err error
			if idx, err = strconv.Atoi(args[1]); err != nil {
				return nil, err
			}
		}
		if args[0] == "scores" {
			s, err := sc.simStats.Scorelines(idx)
			if err != nil {
				return nil, err
			}
			return msg(s), nil
		}
		var sb strings.Builder
		if err := sc.simStats.PrintHistogram(&sb, idx, histogramWidth); err != nil {
			return nil, err
		}
		return msg(sb.String()), nil
	}
	return nil, fmt.Errorf("do not understand sim argument %v", args[0])
}
