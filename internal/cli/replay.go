package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/synheart/synheart-physio/internal/ctxlog"
	"github.com/synheart/synheart-physio/internal/encoding"
	"github.com/synheart/synheart-physio/internal/models"
	"github.com/synheart/synheart-physio/internal/recorder"
	"github.com/synheart/synheart-physio/internal/transport"
)

var (
	replayIn       string
	replaySpeed    float64
	replayLoop     bool
	replayHost     string
	replayPort     int
	replayEncoding string
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay recorded events",
	Long: `Serves events from a file written by 'physio record' or 'physio stream --out'
over WebSocket (port) and SSE (port+1).

Examples:
  physio replay --in stressed.ndjson
  physio replay --in focus.ndjson --speed 2.0 --loop`,
	Args: cobra.NoArgs,
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().StringVar(&replayIn, "in", "", "Input file to replay (required)")
	replayCmd.Flags().Float64Var(&replaySpeed, "speed", 1.0, "Playback speed multiplier (0 replays as fast as possible)")
	replayCmd.Flags().BoolVar(&replayLoop, "loop", false, "Loop playback continuously")
	replayCmd.Flags().StringVar(&replayHost, "host", "127.0.0.1", "Host to bind to")
	replayCmd.Flags().IntVar(&replayPort, "port", 8787, "WebSocket port; SSE uses the next one")
	replayCmd.Flags().StringVar(&replayEncoding, "encoding", "json", "Wire encoding: json|protobuf|binary")
	replayCmd.MarkFlagRequired("in")
}

func runReplay(cmd *cobra.Command, args []string) error {
	rep := recorder.NewReplayer(replayIn, replaySpeed, replayLoop)

	count, err := rep.CountEvents()
	if err != nil {
		return fmt.Errorf("failed to read recording: %w", err)
	}
	firstEvent, err := rep.GetFirstEvent()
	if err != nil {
		return fmt.Errorf("failed to read first event: %w", err)
	}

	format, err := encoding.ParseFormat(strings.ToLower(flagOr(cmd, "encoding", replayEncoding, cfg.Stream.Encoding)))
	if err != nil {
		return err
	}
	encoder := encoding.NewEncoder(format)
	host := flagOr(cmd, "host", replayHost, cfg.Stream.Host)
	port := flagOr(cmd, "port", replayPort, cfg.Stream.Port)

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()
	logger := ctxlog.FromContext(ctx)

	events := make(chan models.Event, 100)
	dispatcher := transport.NewDispatcher(events, 100)

	wsServer := transport.NewWebSocketServer(host, port, encoder)
	sse := transport.NewSSEServer(host, port+1, encoder)

	go func() { logError(logger, "websocket server error", wsServer.Start(ctx)) }()
	go func() { logError(logger, "sse server error", sse.Start(ctx)) }()
	go func() { logError(logger, "websocket broadcast error", wsServer.BroadcastFromChannel(ctx, dispatcher.Subscribe())) }()
	go func() { logError(logger, "sse broadcast error", sse.BroadcastFromChannel(ctx, dispatcher.Subscribe())) }()
	go dispatcher.Run(ctx)

	out := cmd.ErrOrStderr()
	fmt.Fprintf(out, "Replay Session Started\n\n")
	fmt.Fprintf(out, "File:         %s\n", replayIn)
	fmt.Fprintf(out, "Events:       %d\n", count)
	fmt.Fprintf(out, "Preset:       %s (seed %d)\n", firstEvent.Session.Preset, firstEvent.Session.Seed)
	fmt.Fprintf(out, "Speed:        %.1fx\n", replaySpeed)
	fmt.Fprintf(out, "Loop:         %v\n", replayLoop)
	fmt.Fprintf(out, "WebSocket:    %s\n", wsServer.GetAddress())
	fmt.Fprintf(out, "SSE:          %s\n\n", sse.GetAddress())
	fmt.Fprintln(out, "Press Ctrl+C to stop")

	err = rep.Replay(ctx, events)
	close(events)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("replay error: %w", err)
	}

	fmt.Fprintln(out, "\nReplay complete")
	return nil
}
