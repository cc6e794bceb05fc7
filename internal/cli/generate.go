package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/synheart/synheart-physio/internal/ctxlog"
	"github.com/synheart/synheart-physio/internal/export"
	"github.com/synheart/synheart-physio/internal/physio"
	"github.com/synheart/synheart-physio/internal/synth"
)

// traceFlags are shared by the single modality commands.
type traceFlags struct {
	duration     float64
	samplingRate int
	noise        float64
	seed         int64
	format       string
	out          string
	plugin       string
}

func (f *traceFlags) register(cmd *cobra.Command, samplingRate int, noise float64) {
	cmd.Flags().Float64Var(&f.duration, "duration", physio.DefaultDuration, "Signal duration in seconds")
	cmd.Flags().IntVar(&f.samplingRate, "sampling-rate", samplingRate, "Samples per second")
	cmd.Flags().Float64Var(&f.noise, "noise", noise, "Additive noise amplitude")
	cmd.Flags().Int64Var(&f.seed, "seed", 0, "Random seed for deterministic output")
	cmd.Flags().StringVar(&f.format, "format", "json", "Output format: json|ndjson|csv")
	cmd.Flags().StringVar(&f.out, "out", "", "File to write the trace to (stdout if not set)")
	cmd.Flags().StringVar(&f.plugin, "plugin", "", "WASM filter applied to every sample")
}

var (
	ecgFlags     traceFlags
	ecgHeartRate float64
	ecgHRStd     float64

	eegFlags       traceFlags
	eegFrequencies []float64

	edaFlags     traceFlags
	edaSCRNumber int
	edaDrift     float64
)

var ecgCmd = &cobra.Command{
	Use:   "ecg",
	Short: "Generate an electrocardiogram",
	Long: `Generates a single ECG trace. Without flags this is 60s at 75 bpm.

Example:
  physio ecg --heart-rate 110 --duration 10 --format csv --out ecg.csv`,
	Args: cobra.NoArgs,
	RunE: runECG,
}

var eegCmd = &cobra.Command{
	Use:   "eeg",
	Short: "Generate an electroencephalogram",
	Long: `Generates a single EEG trace: 1/f background activity plus one rhythm
per dominant frequency. Without flags this is 60s at 250 Hz with a 10 Hz
alpha rhythm.

Example:
  physio eeg --frequencies 6,10 --seed 1`,
	Args: cobra.NoArgs,
	RunE: runEEG,
}

var edaCmd = &cobra.Command{
	Use:   "eda",
	Short: "Generate electrodermal activity",
	Long: `Generates a single EDA trace: tonic skin conductance with skin
conductance responses. Without flags this is 60s at 250 Hz with 5 SCRs.

Example:
  physio eda --scr-number 0 --drift 0`,
	Args: cobra.NoArgs,
	RunE: runEDA,
}

func init() {
	ecg := physio.DefaultECGParams()
	ecgFlags.register(ecgCmd, ecg.SamplingRate, ecg.Noise)
	ecgCmd.Flags().Float64Var(&ecgHeartRate, "heart-rate", ecg.HeartRate, "Mean heart rate in bpm")
	ecgCmd.Flags().Float64Var(&ecgHRStd, "heart-rate-std", ecg.HeartRateStd, "Heart rate standard deviation in bpm")

	eeg := physio.DefaultEEGParams()
	eegFlags.register(eegCmd, eeg.SamplingRate, eeg.Noise)
	eegCmd.Flags().Float64SliceVar(&eegFrequencies, "frequencies", eeg.Frequencies, "Dominant rhythm frequencies in Hz")

	eda := physio.DefaultEDAParams()
	edaFlags.register(edaCmd, eda.SamplingRate, eda.Noise)
	edaCmd.Flags().IntVar(&edaSCRNumber, "scr-number", eda.SCRNumber, "Number of skin conductance responses")
	edaCmd.Flags().Float64Var(&edaDrift, "drift", eda.Drift, "Tonic drift in µS per second")
}

func (f *traceFlags) seedFor(cmd *cobra.Command, fallback int64) int64 {
	if seed, ok := seedOption(cmd, f.seed); ok {
		return seed
	}
	return fallback
}

func runECG(cmd *cobra.Command, args []string) error {
	p := physio.DefaultECGParams()
	p.Duration = ecgFlags.duration
	p.SamplingRate = ecgFlags.samplingRate
	p.Noise = ecgFlags.noise
	p.HeartRate = ecgHeartRate
	p.HeartRateStd = ecgHRStd
	p.Seed = ecgFlags.seedFor(cmd, p.Seed)

	trace, err := physio.SimulateECG(p)
	if err != nil {
		return err
	}
	return writeTrace(cmd, &ecgFlags, trace, p.Seed)
}

func runEEG(cmd *cobra.Command, args []string) error {
	p := physio.DefaultEEGParams()
	p.Duration = eegFlags.duration
	p.SamplingRate = eegFlags.samplingRate
	p.Noise = eegFlags.noise
	p.Frequencies = eegFrequencies
	p.Seed = eegFlags.seedFor(cmd, p.Seed)

	trace, err := physio.SimulateEEG(p)
	if err != nil {
		return err
	}
	return writeTrace(cmd, &eegFlags, trace, p.Seed)
}

func runEDA(cmd *cobra.Command, args []string) error {
	p := physio.DefaultEDAParams()
	p.Duration = edaFlags.duration
	p.SamplingRate = edaFlags.samplingRate
	p.Noise = edaFlags.noise
	p.SCRNumber = edaSCRNumber
	p.Drift = edaDrift
	p.Seed = edaFlags.seedFor(cmd, p.Seed)

	trace, err := physio.SimulateEDA(p)
	if err != nil {
		return err
	}
	return writeTrace(cmd, &edaFlags, trace, p.Seed)
}

func writeTrace(cmd *cobra.Command, f *traceFlags, trace synth.Trace, seed int64) error {
	ctx := cmd.Context()
	ctxlog.FromContext(ctx).Debug("trace generated", "modality", trace.Modality, "samples", trace.Len(), "seed", seed)

	format, err := export.ParseFormat(strings.ToLower(flagOr(cmd, "format", f.format, cfg.Output.Format)))
	if err != nil {
		return err
	}

	filter, err := loadPlugin(ctx, f.plugin)
	if err != nil {
		return err
	}
	if filter != nil {
		defer filter.Close(ctx)
		if trace, err = filter.Apply(ctx, trace); err != nil {
			return err
		}
	}

	var w io.Writer = cmd.OutOrStdout()
	if f.out != "" {
		file, err := os.Create(f.out)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer file.Close()
		w = file
	}
	if err := export.EncodeTrace(w, trace, format); err != nil {
		return err
	}
	if f.out != "" {
		fmt.Fprintf(os.Stderr, "Wrote %d %s samples to %s (seed %d)\n", trace.Len(), trace.Modality, f.out, seed)
	}
	return nil
}
