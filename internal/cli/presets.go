package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List and inspect mental-state presets",
}

var presetsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available presets",
	Long:  `Lists the built-in presets followed by bundled and user defined ones.`,
	Args:  cobra.NoArgs,
	RunE:  runPresetsList,
}

var presetsDescribeCmd = &cobra.Command{
	Use:   "describe <preset>",
	Short: "Describe a preset in detail",
	Long:  `Shows the values a preset feeds to each signal generator and the ranges it documents.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runPresetsDescribe,
}

func init() {
	presetsCmd.AddCommand(presetsListCmd, presetsDescribeCmd)
}

func runPresetsList(cmd *cobra.Command, args []string) error {
	registry, err := loadRegistry()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	descriptions := registry.ListWithDescriptions()
	names := registry.List()
	if len(names) == 0 {
		fmt.Fprintln(out, "No presets found")
		return nil
	}

	fmt.Fprintln(out, "Available presets:")
	fmt.Fprintln(out)
	for _, name := range names {
		fmt.Fprintf(out, "  %-20s %s\n", name, descriptions[name])
	}
	fmt.Fprintln(out)
	return nil
}

func runPresetsDescribe(cmd *cobra.Command, args []string) error {
	registry, err := loadRegistry()
	if err != nil {
		return err
	}
	p, err := registry.Get(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	duration := p.Duration
	if duration == "" {
		duration = "60s"
	}
	kind := "custom"
	if p.Builtin {
		kind = "built-in"
	}

	fmt.Fprintf(out, "Preset: %s (%s)\n", p.Name, kind)
	fmt.Fprintf(out, "Description: %s\n", p.Description)
	fmt.Fprintf(out, "Duration: %s\n\n", duration)

	fmt.Fprintln(out, "Signals:")
	fmt.Fprintf(out, "  ecg  heart rate %g bpm\n", p.ECG.HeartRate)
	fmt.Fprintf(out, "  eeg  dominant %s Hz\n", joinFloats(p.EEG.Frequencies))
	fmt.Fprintf(out, "  eda  %d skin conductance responses\n", p.EDA.SCRNumber)

	if r := p.Ranges; r != nil {
		fmt.Fprintln(out, "\nTypical ranges:")
		fmt.Fprintf(out, "  heart rate  %s bpm\n", r.HeartRate)
		fmt.Fprintf(out, "  eeg band    %s %s Hz\n", r.BandName, r.EEGBand)
		fmt.Fprintf(out, "  scr rate    %s per minute\n", r.SCR)
		if r.Arousal != "" {
			fmt.Fprintf(out, "  arousal     %s\n", r.Arousal)
		}
	}

	if warnings := p.Check(); len(warnings) > 0 {
		fmt.Fprintln(out, "\nNotes:")
		for _, w := range warnings {
			fmt.Fprintf(out, "  - %s\n", w)
		}
	}
	fmt.Fprintln(out)
	return nil
}

func joinFloats(values []float64) string {
	if len(values) == 0 {
		return "none"
	}
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%g", v)
	}
	return strings.Join(parts, ", ")
}
