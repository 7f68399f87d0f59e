package live

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog"

	"github.com/domino14/lineupsolver/match"
	"github.com/domino14/lineupsolver/rating"
)

// Feed ties a Source to the board it reports on.
type Feed struct {
	Board int
	// Team1Color is the color team1's player has on this board.
	Team1Color rating.Color
	Source     Source
}

// Snapshot is published after every poll that changed something.
type Snapshot struct {
	Time    time.Time
	Boards  map[int]float64
	Signals map[int]*Signal
	Result  *match.Result
}

// Tracker owns the live result of one match for as long as Run runs. Nothing
// else may touch it meanwhile; readers get Snapshots.
type Tracker struct {
	builder *match.Builder
	blender Blender
	params  Params
	feeds   []Feed
	publish func(Snapshot)

	base    *match.Result
	current map[int]float64
	signals map[int]*Signal
	result  *match.Result
}

// NewTracker tracks base, the pre-match result, using feeds. publish may be
// nil.
func NewTracker(b *match.Builder, base *match.Result, params Params, feeds []Feed, publish func(Snapshot)) (*Tracker, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if base == nil {
		return nil, errors.New("nothing to track")
	}
	if len(feeds) == 0 {
		return nil, errors.New("no live feeds")
	}
	seen := map[int]bool{}
	for _, f := range feeds {
		if f.Board < 0 || f.Board >= base.Boards() {
			return nil, fmt.Errorf("no board %d", f.Board)
		}
		if seen[f.Board] {
			return nil, fmt.Errorf("board %d has two feeds", f.Board)
		}
		if f.Source == nil {
			return nil, fmt.Errorf("board %d has no source", f.Board)
		}
		seen[f.Board] = true
	}
	if publish == nil {
		publish = func(Snapshot) {}
	}
	return &Tracker{
		builder: b,
		blender: Blender{Params: params},
		params:  params,
		feeds:   feeds,
		publish: publish,
		base:    base,
		current: map[int]float64{},
		signals: map[int]*Signal{},
		result:  base,
	}, nil
}

// Result is the latest live result. Call it from the goroutine running the
// tracker or after Run returns.
func (t *Tracker) Result() *match.Result {
	return t.result
}

// Run polls every feed once per interval until ctx is done or stop is
// closed. A failed poll never ends the loop.
func (t *Tracker) Run(ctx context.Context, stop <-chan struct{}) error {
	logger := zerolog.Ctx(ctx)
	ticker := time.NewTicker(t.params.PollInterval)
	defer ticker.Stop()
	logger.Info().Int("feeds", len(t.feeds)).Dur("interval", t.params.PollInterval).Msg("live-tracking")
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("live-tracking-cancelled")
			return ctx.Err()
		case <-stop:
			logger.Info().Msg("live-tracking-stopped")
			return nil
		case <-ticker.C:
			if err := t.Poll(ctx); err != nil {
				// only a rebuild failure gets here; the feeds are fine, the
				// match cannot be scored
				return err
			}
		}
	}
}

// Poll reads every feed once, blends what arrived, and rebuilds the result.
// Boards whose feed failed keep their previous probability.
func (t *Tracker) Poll(ctx context.Context) error {
	logger := zerolog.Ctx(ctx)
	changed := false
	for _, f := range t.feeds {
		sig, err := t.read(ctx, f)
		if err != nil {
			logger.Warn().Err(err).Int("board", f.Board).Msg("live-poll-failed")
			continue
		}
		static := t.base.BoardProbs[f.Board]
		p, err := t.blender.Blend(static, sig, f.Team1Color)
		if err != nil {
			logger.Warn().Err(err).Int("board", f.Board).Msg("live-signal-rejected")
			continue
		}
		logger.Debug().Int("board", f.Board).Float64("static", static).
			Float64("blended", p).Float64("weight", t.blender.Weight(sig)).Msg("live-blend")
		t.current[f.Board] = p
		t.signals[f.Board] = sig
		changed = true
	}
	if !changed {
		return nil
	}
	res, err := t.builder.Rebuild(t.base, t.current)
	if err != nil {
		return err
	}
	t.result = res
	t.publish(Snapshot{
		Time:    time.Now(),
		Boards:  maps.Clone(t.current),
		Signals: maps.Clone(t.signals),
		Result:  res,
	})
	return nil
}

func (t *Tracker) read(ctx context.Context, f Feed) (*Signal, error) {
	logger := zerolog.Ctx(ctx)
	var sig *Signal
	err := retry.Do(
		func() error {
			var err error
			sig, err = f.Source.Signal(ctx)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(max(1, t.params.Retries)),
		retry.Delay(t.params.PollInterval/10),
		retry.LastErrorOnly(true),
		retry.DelayType(func(n uint, err error, config *retry.Config) time.Duration {
			logger.Debug().Err(err).Uint("n", n).Int("board", f.Board).Msg("live-poll-retry")
			return retry.BackOffDelay(n, err, config)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSignalUnavailable, err)
	}
	return sig, nil
}
