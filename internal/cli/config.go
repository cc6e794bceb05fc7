package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/synheart/synheart-physio/internal/config"
)

// GlobalOptions are shared flags that apply across commands.
type GlobalOptions struct {
	ConfigPath string
	Verbose    bool
	Quiet      bool
	LogFormat  string
}

var globalOpts GlobalOptions

var (
	cfg        = config.Default()
	configFile string
)

func loadConfig() error {
	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	path, err := config.Resolve(globalOpts.ConfigPath, wd)
	if err != nil {
		return err
	}
	if path == "" {
		return nil
	}
	loaded, err := config.Load(path)
	if err != nil {
		return err
	}
	cfg = loaded
	configFile = path
	return nil
}

func logLevel() (slog.Level, error) {
	if globalOpts.Verbose && globalOpts.Quiet {
		return 0, fmt.Errorf("--verbose and --quiet are mutually exclusive")
	}
	switch {
	case globalOpts.Verbose:
		return slog.LevelDebug, nil
	case globalOpts.Quiet:
		return slog.LevelWarn, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(cfg.Log.Level))); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", cfg.Log.Level, err)
	}
	return level, nil
}

// flagOr returns the flag value when the user set it and the config value
// otherwise.
func flagOr[T any](cmd *cobra.Command, name string, flagVal, cfgVal T) T {
	if cmd.Flags().Changed(name) {
		return flagVal
	}
	return cfgVal
}

// seedOption returns the seed from --seed or the config file, if any.
func seedOption(cmd *cobra.Command, flagVal int64) (int64, bool) {
	if cmd.Flags().Changed("seed") {
		return flagVal, true
	}
	if cfg.Seed != nil {
		return *cfg.Seed, true
	}
	return 0, false
}
