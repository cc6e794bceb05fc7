package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/synheart/synheart-physio/internal/ctxlog"
)

var rootCmd = &cobra.Command{
	Use:   "physio",
	Short: "Synheart Physio - synthetic ECG, EEG and EDA for mental-state presets",
	Long: `Synheart Physio synthesizes physiological signals (ECG, EEG, EDA)
for named mental states such as relaxed, focused and stressed.

Signals can be written to files, analysed, streamed in real time over
WebSocket, SSE, UDP or NATS, recorded and replayed, or served over HTTP.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&globalOpts.ConfigPath, "config", "", "Config file (default ./physio.yaml when present)")
	rootCmd.PersistentFlags().BoolVarP(&globalOpts.Verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&globalOpts.Quiet, "quiet", "q", false, "Only log warnings and errors")
	rootCmd.PersistentFlags().StringVar(&globalOpts.LogFormat, "log-format", "", "Log format: text|json")

	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(ecgCmd, eegCmd, edaCmd)
	rootCmd.AddCommand(presetsCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(streamCmd)
	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(versionCmd)
}

// setup loads the config file and installs the logger on the command
// context.
func setup(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	level, err := logLevel()
	if err != nil {
		return err
	}
	format := cfg.Log.Format
	if globalOpts.LogFormat != "" {
		format = globalOpts.LogFormat
	}
	logger, err := ctxlog.New(os.Stderr, ctxlog.Options{Level: level, Format: format})
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	cmd.SetContext(ctxlog.WithLogger(cmd.Context(), logger))

	if configFile != "" {
		logger.Debug("loaded config", "path", configFile)
	}
	return nil
}
