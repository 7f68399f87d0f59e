package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/domino14/lineupsolver/live"
	"github.com/domino14/lineupsolver/rating"
	"github.com/domino14/lineupsolver/tiebreak"
)

const (
	ConfigDebug      = "debug"
	ConfigDataPath   = "data-path"
	ConfigDBPath     = "db-path"
	ConfigThreads    = "threads"
	ConfigCPUProfile = "cpu-profile"
	ConfigMemProfile = "mem-profile"
	ConfigFile       = "config-file"

	ConfigRatingHistoryWeightPerGame = "rating.history-weight-per-game"
	ConfigRatingMaxHistoryWeight     = "rating.max-history-weight"

	ConfigTiebreakPositionPenalties = "tiebreak.position-penalties"
	ConfigTiebreakLostBoardPenalty  = "tiebreak.lost-board-penalty"

	ConfigLivePollInterval  = "live.poll-interval"
	ConfigLiveMaxWeight     = "live.max-weight"
	ConfigLiveExpectedMoves = "live.expected-moves"
	ConfigLiveTotalMaterial = "live.total-material"
	ConfigLiveRetries       = "live.retries"
)

const envPrefix = "LINEUPS"

type Config struct {
	*viper.Viper
}

// DefaultConfig returns a config with every default set and nothing loaded
// from flags, the environment, or a file.
func DefaultConfig() Config {
	v := viper.New()
	setDefaults(v)
	return Config{Viper: v}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(ConfigDebug, false)
	v.SetDefault(ConfigDataPath, "./data")
	v.SetDefault(ConfigDBPath, "./data/league.db")
	v.SetDefault(ConfigThreads, max(1, runtime.NumCPU()-1))
	v.SetDefault(ConfigCPUProfile, "")
	v.SetDefault(ConfigMemProfile, "")

	v.SetDefault(ConfigRatingHistoryWeightPerGame, rating.DefaultHistoryWeightPerGame)
	v.SetDefault(ConfigRatingMaxHistoryWeight, rating.DefaultMaxHistoryWeight)

	p := tiebreak.DefaultPenalties()
	v.SetDefault(ConfigTiebreakPositionPenalties, p.Position)
	v.SetDefault(ConfigTiebreakLostBoardPenalty, p.LostBoard)

	lp := live.DefaultParams()
	v.SetDefault(ConfigLivePollInterval, lp.PollInterval)
	v.SetDefault(ConfigLiveMaxWeight, lp.MaxWeight)
	v.SetDefault(ConfigLiveExpectedMoves, lp.ExpectedMoves)
	v.SetDefault(ConfigLiveTotalMaterial, lp.TotalMaterial)
	v.SetDefault(ConfigLiveRetries, lp.Retries)
}

// Load reads flags from args, then LINEUPS_* environment variables, then an
// optional config file. Flags win over the environment, which wins over the
// file. Flags stop at the first non-flag argument; that argument and
// everything after it are returned untouched.
func (c *Config) Load(args []string) ([]string, error) {
	fs := pflag.NewFlagSet("lineups", pflag.ContinueOnError)
	fs.Bool(ConfigDebug, false, "debug logging on")
	fs.String(ConfigDataPath, "./data", "directory holding league files")
	fs.String(ConfigDBPath, "./data/league.db", "sqlite database with ratings and head-to-head history")
	fs.Int(ConfigThreads, max(1, runtime.NumCPU()-1), "worker threads for matrix construction")
	fs.String(ConfigCPUProfile, "", "write a cpu profile to this path")
	fs.String(ConfigMemProfile, "", "write a memory profile to this path")
	fs.String(ConfigFile, "", "yaml config file")
	// The shell may be handed a command line after the flags; leave it be.
	fs.SetInterspersed(false)
	fs.ParseErrorsWhitelist.UnknownFlags = true
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	rest := fs.Args()
	// Only flags that were actually given override other sources.
	var bindErr error
	fs.Visit(func(f *pflag.Flag) {
		if f.Name == ConfigFile {
			return
		}
		if err := c.BindPFlag(f.Name, f); err != nil {
			bindErr = err
		}
	})
	if bindErr != nil {
		return nil, bindErr
	}

	c.SetEnvPrefix(envPrefix)
	c.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	c.AutomaticEnv()

	cfgFile, _ := fs.GetString(ConfigFile)
	if cfgFile == "" {
		return rest, nil
	}
	c.SetConfigFile(cfgFile)
	if err := c.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || os.IsNotExist(err) {
			return rest, nil
		}
		return nil, err
	}
	return rest, nil
}

// Write saves the current settings to the config file in use, or to
// lineups.yaml in the data path if none was loaded.
func (c *Config) Write() error {
	if c.ConfigFileUsed() != "" {
		return c.WriteConfig()
	}
	return c.WriteConfigAs(filepath.Join(c.GetString(ConfigDataPath), "lineups.yaml"))
}

// SanitizedSettings is suitable for logging.
func (c *Config) SanitizedSettings() map[string]any {
	return c.AllSettings()
}

// AdjustRelativePaths rewrites relative data paths to be relative to
// basepath, which is normally the directory of the executable.
func (c *Config) AdjustRelativePaths(basepath string) {
	for _, key := range []string{ConfigDataPath, ConfigDBPath} {
		p := c.GetString(key)
		if p == "" || filepath.IsAbs(p) {
			continue
		}
		c.Set(key, filepath.Join(basepath, p))
	}
}

func (c *Config) RatingModel() rating.Model {
	return rating.Model{
		HistoryWeightPerGame: c.GetFloat64(ConfigRatingHistoryWeightPerGame),
		MaxHistoryWeight:     c.GetFloat64(ConfigRatingMaxHistoryWeight),
	}
}

func (c *Config) TiebreakPenalties() (tiebreak.Penalties, error) {
	var pos []float64
	if err := c.UnmarshalKey(ConfigTiebreakPositionPenalties, &pos); err != nil {
		return tiebreak.Penalties{}, err
	}
	p := tiebreak.Penalties{
		Position:  pos,
		LostBoard: c.GetFloat64(ConfigTiebreakLostBoardPenalty),
	}
	return p, p.Validate()
}

func (c *Config) LiveParams() live.Params {
	return live.Params{
		PollInterval:  c.GetDuration(ConfigLivePollInterval),
		MaxWeight:     c.GetFloat64(ConfigLiveMaxWeight),
		ExpectedMoves: c.GetInt(ConfigLiveExpectedMoves),
		TotalMaterial: c.GetInt(ConfigLiveTotalMaterial),
		Retries:       uint(c.GetInt(ConfigLiveRetries)),
	}
}

func (c *Config) Threads() int {
	return max(1, c.GetInt(ConfigThreads))
}
