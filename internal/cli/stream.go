package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/synheart/synheart-physio/internal/ctxlog"
	"github.com/synheart/synheart-physio/internal/encoding"
	"github.com/synheart/synheart-physio/internal/generator"
	"github.com/synheart/synheart-physio/internal/models"
	"github.com/synheart/synheart-physio/internal/physio"
	"github.com/synheart/synheart-physio/internal/recorder"
	"github.com/synheart/synheart-physio/internal/transport"
)

var (
	streamHost       string
	streamPort       int
	streamPreset     string
	streamDuration   float64
	streamSeed       int64
	streamChunk      string
	streamSpeed      float64
	streamLoop       bool
	streamEncoding   string
	streamModalities []string
	streamOut        string
	streamPlugin     string
	streamNATSURL    string
	streamNATSPrefix string
)

var streamCmd = &cobra.Command{
	Use:   "stream",
	Short: "Stream a preset in real time",
	Long: `Generates a preset and delivers it in chunks, paced like a live device,
over WebSocket (port), SSE (port+1), UDP (port+2) and optionally NATS.

Examples:
  physio stream --preset focused
  physio stream --preset stressed --speed 4 --loop --modality ecg,eda
  physio stream --encoding binary --nats-url nats://127.0.0.1:4222`,
	Args: cobra.NoArgs,
	RunE: runStream,
}

func init() {
	streamCmd.Flags().StringVar(&streamHost, "host", "127.0.0.1", "Host to bind to")
	streamCmd.Flags().IntVar(&streamPort, "port", 8787, "WebSocket port; SSE and UDP use the next two")
	streamCmd.Flags().StringVar(&streamPreset, "preset", string(physio.Relaxed), "Preset to stream")
	streamCmd.Flags().Float64Var(&streamDuration, "duration", physio.DefaultDuration, "Signal duration in seconds")
	streamCmd.Flags().Int64Var(&streamSeed, "seed", 0, "Random seed for deterministic output")
	streamCmd.Flags().StringVar(&streamChunk, "chunk", "100ms", "Signal time carried by each event")
	streamCmd.Flags().Float64Var(&streamSpeed, "speed", 1.0, "Playback speed multiplier")
	streamCmd.Flags().BoolVar(&streamLoop, "loop", false, "Restart from the beginning when the signal ends")
	streamCmd.Flags().StringVar(&streamEncoding, "encoding", "json", "Wire encoding: json|protobuf|binary")
	streamCmd.Flags().StringSliceVar(&streamModalities, "modality", nil, "Only stream these modalities (ecg,eeg,eda)")
	streamCmd.Flags().StringVar(&streamOut, "out", "", "Record streamed events to an NDJSON file")
	streamCmd.Flags().StringVar(&streamPlugin, "plugin", "", "WASM filter applied to every sample")
	streamCmd.Flags().StringVar(&streamNATSURL, "nats-url", "", "Also publish samples to this NATS server")
	streamCmd.Flags().StringVar(&streamNATSPrefix, "nats-prefix", "physio", "NATS subject prefix")
}

// presetBundle renders the named preset with the seed, duration and plugin
// options shared by stream and record.
func presetBundle(cmd *cobra.Command, name string, seed int64, duration float64, pluginPath string) (physio.Bundle, error) {
	ctx := cmd.Context()
	logger := ctxlog.FromContext(ctx)

	registry, err := loadRegistry()
	if err != nil {
		return physio.Bundle{}, err
	}
	p, err := registry.Get(name)
	if err != nil {
		return physio.Bundle{}, err
	}
	for _, w := range p.Check() {
		logger.Warn("preset outside documented range", "preset", p.Name, "detail", w)
	}

	var opts []physio.Option
	if s, ok := seedOption(cmd, seed); ok {
		opts = append(opts, physio.WithSeed(s))
	}
	if cmd.Flags().Changed("duration") {
		opts = append(opts, physio.WithDuration(duration))
	}
	bundle, err := p.Run(physio.NewGenerator(nil), opts...)
	if err != nil {
		return physio.Bundle{}, fmt.Errorf("simulation failed: %w", err)
	}

	filter, err := loadPlugin(ctx, pluginPath)
	if err != nil {
		return physio.Bundle{}, err
	}
	if filter != nil {
		defer filter.Close(ctx)
		if bundle, err = filter.ApplyBundle(ctx, bundle); err != nil {
			return physio.Bundle{}, err
		}
	}
	return bundle, nil
}

func parseChunk(cmd *cobra.Command, flagVal string) (time.Duration, error) {
	raw := flagOr(cmd, "chunk", flagVal, cfg.Stream.Chunk)
	chunk, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid --chunk %q: %w", raw, err)
	}
	if chunk <= 0 {
		return 0, fmt.Errorf("invalid --chunk %q: must be positive", raw)
	}
	return chunk, nil
}

func runStream(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()
	logger := ctxlog.FromContext(ctx)

	host := flagOr(cmd, "host", streamHost, cfg.Stream.Host)
	port := flagOr(cmd, "port", streamPort, cfg.Stream.Port)

	chunk, err := parseChunk(cmd, streamChunk)
	if err != nil {
		return err
	}
	if streamSpeed <= 0 {
		return fmt.Errorf("invalid --speed %g: must be positive", streamSpeed)
	}
	format, err := encoding.ParseFormat(strings.ToLower(flagOr(cmd, "encoding", streamEncoding, cfg.Stream.Encoding)))
	if err != nil {
		return err
	}
	encoder := encoding.NewEncoder(format)

	bundle, err := presetBundle(cmd, streamPreset, streamSeed, streamDuration, streamPlugin)
	if err != nil {
		return err
	}
	streamer := generator.NewStreamer(bundle, generator.Config{ChunkDuration: chunk, Loop: streamLoop})

	events := make(chan models.Event, 100)
	dispatcher := transport.NewDispatcher(events, 100)
	subscribe := func() <-chan models.Event {
		if len(streamModalities) > 0 {
			return dispatcher.SubscribeModality(streamModalities...)
		}
		return dispatcher.Subscribe()
	}

	wsServer := transport.NewWebSocketServer(host, port, encoder)
	sse := transport.NewSSEServer(host, port+1, encoder)
	udp := transport.NewUDPServer(host, port+2, encoder)

	go func() { logError(logger, "websocket server error", wsServer.Start(ctx)) }()
	go func() { logError(logger, "sse server error", sse.Start(ctx)) }()
	go func() { logError(logger, "udp server error", udp.Start(ctx)) }()

	select {
	case <-udp.Ready():
	case <-time.After(time.Second):
		logger.Warn("udp server not ready, continuing")
	}

	go func() { logError(logger, "websocket broadcast error", wsServer.BroadcastFromChannel(ctx, subscribe())) }()
	go func() { logError(logger, "sse broadcast error", sse.BroadcastFromChannel(ctx, subscribe())) }()
	go func() { logError(logger, "udp broadcast error", udp.BroadcastFromChannel(ctx, subscribe())) }()

	natsURL := flagOr(cmd, "nats-url", streamNATSURL, cfg.Stream.NATSURL)
	if natsURL != "" {
		pub, err := transport.NewNATSPublisher(natsURL, flagOr(cmd, "nats-prefix", streamNATSPrefix, cfg.Stream.NATSPrefix))
		if err != nil {
			return err
		}
		defer pub.Close()
		go func() { logError(logger, "nats publish error", pub.BroadcastFromChannel(ctx, subscribe())) }()
	}

	var recording sync.WaitGroup
	if streamOut != "" {
		rec, err := recorder.NewRecorder(streamOut)
		if err != nil {
			return fmt.Errorf("failed to create recorder: %w", err)
		}
		defer rec.Close()
		recEvents := subscribe()
		recording.Add(1)
		go func() {
			defer recording.Done()
			logError(logger, "recording error", rec.RecordFromChannel(ctx, recEvents, nil))
		}()
	}

	printStreamBanner(cmd, bundle, wsServer.GetAddress(), sse.GetAddress(), udp.GetAddress(), natsURL, chunk, format)

	go dispatcher.Run(ctx)

	ticker := time.NewTicker(generator.TickInterval(chunk, streamSpeed))
	defer ticker.Stop()
	err = streamer.Generate(ctx, ticker, events)
	close(events)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("generator error: %w", err)
	}

	recording.Wait()
	if dropped := dispatcher.GetDroppedCount(); dropped > 0 {
		logger.Warn("slow subscribers missed chunks", "dropped", dropped)
	}
	fmt.Fprintln(cmd.ErrOrStderr(), "\nStream complete")
	return nil
}

func printStreamBanner(cmd *cobra.Command, b physio.Bundle, ws, sse, udp, natsURL string, chunk time.Duration, format encoding.Format) {
	out := cmd.ErrOrStderr()
	fmt.Fprintf(out, "Synheart Physio Stream Started\n\n")
	fmt.Fprintf(out, "Preset:       %s (seed %d)\n", b.Preset, b.Seed)
	fmt.Fprintf(out, "Signal:       %s in %s chunks\n", b.ECG.Duration(), chunk)
	fmt.Fprintf(out, "Speed:        %gx\n", streamSpeed)
	fmt.Fprintf(out, "Loop:         %v\n", streamLoop)
	fmt.Fprintf(out, "Encoding:     %s\n", format)
	if len(streamModalities) > 0 {
		fmt.Fprintf(out, "Modalities:   %s\n", strings.Join(streamModalities, ","))
	}
	fmt.Fprintf(out, "WebSocket:    %s\n", ws)
	fmt.Fprintf(out, "SSE:          %s\n", sse)
	fmt.Fprintf(out, "UDP:          %s\n", udp)
	if natsURL != "" {
		fmt.Fprintf(out, "NATS:         %s\n", natsURL)
	}
	if streamOut != "" {
		fmt.Fprintf(out, "Recording:    %s\n", streamOut)
	}
	fmt.Fprintln(out, "\nPress Ctrl+C to stop")
}
