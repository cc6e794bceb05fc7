package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/synheart/synheart-physio/internal/ctxlog"
	"github.com/synheart/synheart-physio/internal/generator"
	"github.com/synheart/synheart-physio/internal/models"
	"github.com/synheart/synheart-physio/internal/physio"
	"github.com/synheart/synheart-physio/internal/recorder"
)

var (
	recordPreset     string
	recordDuration   float64
	recordSeed       int64
	recordChunk      string
	recordOut        string
	recordPlugin     string
	recordModalities []string
	recordRealtime   bool
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record a preset as chunk events to a file",
	Long: `Writes the chunk events 'physio stream' would send to an NDJSON file,
which 'physio replay' can serve later. Events are written as fast as
possible unless --realtime is set.

Examples:
  physio record --preset stressed --out stressed.ndjson
  physio record --preset focused --duration 300 --chunk 250ms --out focus.ndjson`,
	Args: cobra.NoArgs,
	RunE: runRecord,
}

func init() {
	recordCmd.Flags().StringVar(&recordPreset, "preset", string(physio.Relaxed), "Preset to record")
	recordCmd.Flags().Float64Var(&recordDuration, "duration", physio.DefaultDuration, "Signal duration in seconds")
	recordCmd.Flags().Int64Var(&recordSeed, "seed", 0, "Random seed for deterministic output")
	recordCmd.Flags().StringVar(&recordChunk, "chunk", "100ms", "Signal time carried by each event")
	recordCmd.Flags().StringVar(&recordOut, "out", "", "Output file (required)")
	recordCmd.Flags().StringVar(&recordPlugin, "plugin", "", "WASM filter applied to every sample")
	recordCmd.Flags().StringSliceVar(&recordModalities, "modality", nil, "Only record these modalities (ecg,eeg,eda)")
	recordCmd.Flags().BoolVar(&recordRealtime, "realtime", false, "Pace events like a live stream")
	recordCmd.MarkFlagRequired("out")
}

func runRecord(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()
	logger := ctxlog.FromContext(ctx)

	chunk, err := parseChunk(cmd, recordChunk)
	if err != nil {
		return err
	}
	bundle, err := presetBundle(cmd, recordPreset, recordSeed, recordDuration, recordPlugin)
	if err != nil {
		return err
	}
	streamer := generator.NewStreamer(bundle, generator.Config{ChunkDuration: chunk})

	rec, err := recorder.NewRecorder(recordOut)
	if err != nil {
		return fmt.Errorf("failed to create recorder: %w", err)
	}
	defer rec.Close()

	out := cmd.ErrOrStderr()
	fmt.Fprintf(out, "Recording Session Started\n\n")
	fmt.Fprintf(out, "Preset:     %s (seed %d)\n", bundle.Preset, bundle.Seed)
	fmt.Fprintf(out, "Signal:     %s in %s chunks\n", bundle.ECG.Duration(), chunk)
	fmt.Fprintf(out, "Output:     %s\n\n", recordOut)

	keep := func(e models.Event) bool {
		return len(recordModalities) == 0 || slices.Contains(recordModalities, e.Signal.Modality)
	}

	if !recordRealtime {
		for _, event := range streamer.Chunks() {
			if !keep(event) {
				continue
			}
			if err := rec.Record(event); err != nil {
				return err
			}
		}
	} else {
		events := make(chan models.Event, 100)
		filtered := make(chan models.Event, 100)
		done := make(chan error, 1)
		go func() { done <- rec.RecordFromChannel(ctx, filtered, progress(out, rec)) }()
		go func() {
			defer close(filtered)
			for e := range events {
				if !keep(e) {
					continue
				}
				select {
				case filtered <- e:
				case <-ctx.Done():
					return
				}
			}
		}()

		ticker := time.NewTicker(chunk)
		genErr := streamer.Generate(ctx, ticker, events)
		ticker.Stop()
		close(events)
		if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("recording error: %w", err)
		}
		if genErr != nil && !errors.Is(genErr, context.Canceled) {
			return fmt.Errorf("generator error: %w", genErr)
		}
	}

	logger.Debug("recording finished", "events", rec.Count(), "run_id", streamer.GetRunID())
	fmt.Fprintf(out, "\nRecording complete: %d events in %s\n", rec.Count(), recordOut)
	return nil
}

func progress(out io.Writer, rec *recorder.Recorder) func() {
	return func() {
		if n := rec.Count(); n%100 == 0 {
			fmt.Fprintf(out, "\rRecorded %d events...", n)
		}
	}
}
