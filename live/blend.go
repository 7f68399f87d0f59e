// Package live folds an in-game evaluation signal into a board's static
// win probability and keeps one match result current while it is played.
package live

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/domino14/lineupsolver/rating"
)

var (
	ErrSignalUnavailable = errors.New("live signal unavailable")
	ErrBadParams         = errors.New("bad live params")
)

type Params struct {
	PollInterval time.Duration `yaml:"poll-interval"`
	// MaxWeight caps the signal's share of the blend; it must stay below 1
	// so an unfinished board never ignores the static estimate.
	MaxWeight     float64 `yaml:"max-weight"`
	ExpectedMoves int     `yaml:"expected-moves"`
	TotalMaterial int     `yaml:"total-material"`
	Retries       uint    `yaml:"retries"`
}

func DefaultParams() Params {
	return Params{
		PollInterval:  5 * time.Second,
		MaxWeight:     0.85,
		ExpectedMoves: 80,
		TotalMaterial: 78,
		Retries:       3,
	}
}

func (p Params) Validate() error {
	switch {
	case p.PollInterval <= 0:
		return fmt.Errorf("%w: poll interval %s", ErrBadParams, p.PollInterval)
	case p.MaxWeight < 0 || p.MaxWeight >= 1:
		return fmt.Errorf("%w: max weight %v not in [0,1)", ErrBadParams, p.MaxWeight)
	case p.ExpectedMoves <= 0 || p.TotalMaterial <= 0:
		return fmt.Errorf("%w: expected moves and total material must be positive", ErrBadParams)
	}
	return nil
}

// Signal is one reading of a live game, as published by an engine
// evaluation widget.
type Signal struct {
	// LeaderWinPct is the engine's win percentage (0-100) for the side to
	// move.
	LeaderWinPct        float64 `yaml:"leader-win-pct" json:"leaderWinPct"`
	ToMove              string  `yaml:"to-move" json:"toMove"`
	MoveCount           int     `yaml:"move-count" json:"moveCount"`
	CapturesWhite       int     `yaml:"captures-white" json:"capturesWhite"`
	CapturesBlack       int     `yaml:"captures-black" json:"capturesBlack"`
	// FinalMarginEstimate is the expected final margin for the side to move.
	FinalMarginEstimate float64 `yaml:"final-margin-estimate" json:"finalMarginEstimate"`
	// Finished marks a game that is over. Its margin then decides the
	// board: positive is a win for the side to move, zero a draw.
	Finished bool `yaml:"finished" json:"finished"`
}

// Mover is the color to move. White moves first.
func (s *Signal) Mover() (rating.Color, error) {
	switch strings.ToLower(s.ToMove) {
	case "white", "w", "first":
		return rating.First, nil
	case "black", "b", "second":
		return rating.Second, nil
	}
	return rating.NoColor, fmt.Errorf("%w: unknown side to move %q", ErrSignalUnavailable, s.ToMove)
}

func (s *Signal) Validate() error {
	if s.LeaderWinPct < 0 || s.LeaderWinPct > 100 {
		return fmt.Errorf("%w: win pct %v", ErrSignalUnavailable, s.LeaderWinPct)
	}
	if s.MoveCount < 0 || s.CapturesWhite < 0 || s.CapturesBlack < 0 {
		return fmt.Errorf("%w: negative counts", ErrSignalUnavailable)
	}
	_, err := s.Mover()
	return err
}

type Blender struct {
	Params Params
}

// Progress estimates how far the game has gone, from move count or captured
// material, whichever is further along.
func (b Blender) Progress(sig *Signal) float64 {
	byMoves := float64(sig.MoveCount) / float64(b.Params.ExpectedMoves)
	byMaterial := float64(sig.CapturesWhite+sig.CapturesBlack) / float64(b.Params.TotalMaterial)
	return min(1, max(0, byMoves, byMaterial))
}

// Weight is the share the signal gets in the blend. Only a finished game
// gets all of it.
func (b Blender) Weight(sig *Signal) float64 {
	if sig.Finished {
		return 1
	}
	return b.Params.MaxWeight * b.Progress(sig)
}

// Perspective converts the signal into team1's win probability on the board
// where team1 plays team1Color.
func (b Blender) Perspective(sig *Signal, team1Color rating.Color) (float64, error) {
	if err := sig.Validate(); err != nil {
		return 0, err
	}
	mover, _ := sig.Mover()
	p := sig.LeaderWinPct / 100
	if mover != team1Color {
		p = 1 - p
	}
	return rating.Clamp(p), nil
}

// Blend mixes static, team1's pre-match probability, with the signal.
// An unusable signal returns static unchanged along with the error.
func (b Blender) Blend(static float64, sig *Signal, team1Color rating.Color) (float64, error) {
	p, err := b.Perspective(sig, team1Color)
	if err != nil {
		return static, err
	}
	if sig.Finished {
		return finalResult(sig, team1Color), nil
	}
	w := b.Weight(sig)
	return rating.Clamp((1-w)*static + w*p), nil
}

// finalResult is team1's score on a finished board: 1 for a win, 0 for a
// loss and one half for a draw.
func finalResult(sig *Signal, team1Color rating.Color) float64 {
	mover, _ := sig.Mover()
	margin := sig.FinalMarginEstimate
	if mover != team1Color {
		margin = -margin
	}
	switch {
	case margin > 0:
		return 1
	case margin < 0:
		return 0
	}
	return 0.5
}
