package live

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Source yields the latest reading of one live board.
type Source interface {
	Signal(ctx context.Context) (*Signal, error)
}

// FileSource rereads a YAML file on every poll. Whatever writes the file
// (a relay script, a person at the board) owns its freshness.
type FileSource struct {
	Path string
}

func (f FileSource) Signal(ctx context.Context) (*Signal, error) {
	bts, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSignalUnavailable, err)
	}
	sig := &Signal{}
	if err := yaml.Unmarshal(bts, sig); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSignalUnavailable, err)
	}
	if err := sig.Validate(); err != nil {
		return nil, err
	}
	return sig, nil
}

// DefaultExpression reads the evaluation globals an embedded engine widget
// exposes on the game page.
const DefaultExpression = `(() => {
	const e = window.liveEval || {};
	return {
		leaderWinPct: e.winPct,
		toMove: e.turn,
		moveCount: e.ply,
		capturesWhite: e.capturedByWhite,
		capturesBlack: e.capturedByBlack,
		finalMarginEstimate: e.margin || 0,
		finished: !!e.over,
	};
})()`

// BrowserSource keeps a headless browser tab on a live game page and
// evaluates Expression on each poll. The expression must return an object
// shaped like Signal's JSON form.
type BrowserSource struct {
	URL        string
	Expression string
	Timeout    time.Duration

	tab         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
}

// NewBrowserSource starts the browser and loads url. Close releases it.
func NewBrowserSource(ctx context.Context, url, expression string, timeout time.Duration) (*BrowserSource, error) {
	if expression == "" {
		expression = DefaultExpression
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.WithoutCancel(ctx), opts...)
	logger := zerolog.Ctx(ctx)
	tab, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(format string, v ...any) {
		logger.Debug().Msgf("chromedp: "+format, v...)
	}))
	b := &BrowserSource{
		URL:         url,
		Expression:  expression,
		Timeout:     timeout,
		tab:         tab,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
	}
	// the first Run starts the browser and must use the tab context itself,
	// or the timeout below would tear the browser down with it
	if err := chromedp.Run(tab); err != nil {
		b.Close()
		return nil, fmt.Errorf("chromedp start: %w", err)
	}
	nctx, cancel := context.WithTimeout(tab, timeout)
	defer cancel()
	if err := chromedp.Run(nctx, chromedp.Navigate(url)); err != nil {
		b.Close()
		return nil, fmt.Errorf("chromedp navigation: %w", err)
	}
	logger.Info().Str("url", url).Msg("live-browser-ready")
	return b, nil
}

func (b *BrowserSource) Signal(ctx context.Context) (*Signal, error) {
	ectx, cancel := context.WithTimeout(b.tab, b.Timeout)
	defer cancel()
	// the tab has its own lifetime; stop early if the caller gives up
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	sig := &Signal{}
	if err := chromedp.Run(ectx, chromedp.Evaluate(b.Expression, sig)); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSignalUnavailable, err)
	}
	if err := sig.Validate(); err != nil {
		return nil, err
	}
	return sig, nil
}

func (b *BrowserSource) Close() {
	if b.cancelTab != nil {
		b.cancelTab()
	}
	if b.cancelAlloc != nil {
		b.cancelAlloc()
	}
}
