package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/matryer/is"

	"github.com/domino14/lineupsolver/live"
	"github.com/domino14/lineupsolver/rating"
	"github.com/domino14/lineupsolver/tiebreak"
)

func TestDefaults(t *testing.T) {
	is := is.New(t)
	c := DefaultConfig()
	is.Equal(c.RatingModel(), rating.DefaultModel())
	p, err := c.TiebreakPenalties()
	is.NoErr(err)
	is.Equal(p, tiebreak.DefaultPenalties())
	is.Equal(c.LiveParams(), live.DefaultParams())
	is.True(c.Threads() >= 1)
}

func TestLoadPrecedence(t *testing.T) {
	is := is.New(t)
	dir := t.TempDir()
	file := filepath.Join(dir, "lineups.yaml")
	is.NoErr(os.WriteFile(file, []byte(`
threads: 3
db-path: from-file.db
live:
  poll-interval: 2s
tiebreak:
  position-penalties: [1, 0.5]
`), 0o644))
	t.Setenv("LINEUPS_DB_PATH", "from-env.db")
	t.Setenv("LINEUPS_LIVE_MAX_WEIGHT", "0.5")

	c := DefaultConfig()
	rest, err := c.Load([]string{"--config-file", file, "--threads", "7", "load", "x.yaml"})
	is.NoErr(err)
	is.Equal(rest, []string{"load", "x.yaml"})
	is.Equal(c.Threads(), 7)
	is.Equal(c.GetString(ConfigDBPath), "from-env.db")
	lp := c.LiveParams()
	is.Equal(lp.PollInterval, 2*time.Second)
	is.Equal(lp.MaxWeight, 0.5)
	p, err := c.TiebreakPenalties()
	is.NoErr(err)
	is.Equal(p.Position, []float64{1, 0.5})
}

func TestLoadLeavesCommandLine(t *testing.T) {
	is := is.New(t)
	c := DefaultConfig()
	rest, err := c.Load([]string{"--debug", "--data-path", "/srv/data", "load", "-source", "sqlite", "--threads", "9"})
	is.NoErr(err)
	is.Equal(rest, []string{"load", "-source", "sqlite", "--threads", "9"})
	is.True(c.GetBool(ConfigDebug))
	is.Equal(c.GetString(ConfigDataPath), "/srv/data")
	is.Equal(c.Threads(), max(1, runtime.NumCPU()-1))

	c = DefaultConfig()
	rest, err = c.Load([]string{"--league", "l.yaml", "--threads", "4"})
	is.NoErr(err)
	is.Equal(len(rest), 0)
	is.Equal(c.Threads(), 4)
}

func TestBadPenalties(t *testing.T) {
	is := is.New(t)
	c := DefaultConfig()
	c.Set(ConfigTiebreakLostBoardPenalty, 0)
	_, err := c.TiebreakPenalties()
	is.True(err != nil)
}

func TestAdjustRelativePaths(t *testing.T) {
	is := is.New(t)
	c := DefaultConfig()
	c.Set(ConfigDBPath, "/abs/league.db")
	c.AdjustRelativePaths("/opt/lineups")
	is.Equal(c.GetString(ConfigDataPath), "/opt/lineups/data")
	is.Equal(c.GetString(ConfigDBPath), "/abs/league.db")
}
