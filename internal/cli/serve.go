package cli

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/synheart/synheart-physio/internal/api"
	"github.com/synheart/synheart-physio/internal/export"
	"github.com/synheart/synheart-physio/internal/physio"
)

var (
	serveHost   string
	servePort   int
	serveToken  string
	serveNoAuth bool
	serveOut    string
	serveFormat string
	serveGzip   bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve simulations over HTTP",
	Long: `Starts an HTTP server that generates bundles on request.

  POST /v1/simulate   {"preset": "stressed", "seed": 42}
  GET  /v1/presets
  GET  /v1/stats
  GET  /health

Requests must carry the bearer token printed at startup. Requests with an
Idempotency-Key header are answered once and replayed afterwards.

Examples:
  physio serve
  physio serve --port 9000 --token mysecrettoken
  physio serve --out ./runs --format csv --gzip`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "127.0.0.1", "Host address to bind to")
	serveCmd.Flags().IntVar(&servePort, "port", 8790, "Port to listen on")
	serveCmd.Flags().StringVar(&serveToken, "token", "", "Static bearer token (auto-generated if not provided)")
	serveCmd.Flags().BoolVar(&serveNoAuth, "no-auth", false, "Accept requests without a bearer token")
	serveCmd.Flags().StringVar(&serveOut, "out", "", "Directory to also write every generated bundle to")
	serveCmd.Flags().StringVar(&serveFormat, "format", "json", "Format for --out: json|ndjson|csv")
	serveCmd.Flags().BoolVar(&serveGzip, "gzip", false, "Accept gzip-compressed request bodies")
}

func runServe(cmd *cobra.Command, args []string) error {
	format, err := export.ParseFormat(strings.ToLower(strings.TrimSpace(flagOr(cmd, "format", serveFormat, cfg.Output.Format))))
	if err != nil {
		return err
	}

	token := flagOr(cmd, "token", serveToken, cfg.API.Token)
	if token == "" && !serveNoAuth {
		generated, err := generateToken()
		if err != nil {
			return fmt.Errorf("failed to generate token: %w", err)
		}
		token = generated
	}
	if serveNoAuth {
		token = ""
	}

	registry, err := loadRegistry()
	if err != nil {
		return err
	}

	var writer export.Writer
	out := flagOr(cmd, "out", serveOut, cfg.Output.Dir)
	if out != "" {
		fw, err := export.NewFileWriter(out, format)
		if err != nil {
			return fmt.Errorf("failed to create file writer: %w", err)
		}
		writer = fw
		defer fw.Close()
	}

	config := api.Config{
		Host:       flagOr(cmd, "host", serveHost, cfg.API.Host),
		Port:       flagOr(cmd, "port", servePort, cfg.API.Port),
		Token:      token,
		AcceptGzip: flagOr(cmd, "gzip", serveGzip, cfg.API.Gzip),
	}
	server := api.NewServer(config, physio.NewGenerator(nil), registry, writer)

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	printServeBanner(cmd, server.GetAddress(), token, out, format, config.AcceptGzip)

	if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("server error: %w", err)
	}

	stats := server.GetStats()
	errOut := cmd.ErrOrStderr()
	fmt.Fprintf(errOut, "\nSession Stats:\n")
	fmt.Fprintf(errOut, "   Runs:       %d\n", stats.TotalRuns)
	fmt.Fprintf(errOut, "   Duplicates: %d\n", stats.TotalDuplicates)
	fmt.Fprintf(errOut, "   Errors:     %d\n", stats.TotalErrors)
	fmt.Fprintln(errOut, "\nShutdown complete")
	return nil
}

func generateToken() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return "ph_" + hex.EncodeToString(bytes), nil
}

func printServeBanner(cmd *cobra.Command, address, token, outDir string, format export.Format, gzip bool) {
	out := cmd.ErrOrStderr()

	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "  Synheart Physio API Started")
	fmt.Fprintln(out, "")
	fmt.Fprintf(out, "  Endpoint:  %s/v1/simulate\n", address)
	if token != "" {
		fmt.Fprintf(out, "  Token:     %s\n", token)
	} else {
		fmt.Fprintln(out, "  Token:     none")
	}
	if outDir != "" {
		fmt.Fprintf(out, "  Output:    %s/ (%s)\n", outDir, format)
	}
	if gzip {
		fmt.Fprintln(out, "  Gzip:      enabled")
	}
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "  Try:")
	if token != "" {
		fmt.Fprintf(out, "    curl -s -H 'Authorization: Bearer %s' -H 'Content-Type: application/json' \\\n", token)
	} else {
		fmt.Fprintln(out, "    curl -s -H 'Content-Type: application/json' \\")
	}
	fmt.Fprintf(out, "      -d '{\"preset\":\"relaxed\",\"duration\":10,\"include\":\"summary\"}' '%s/v1/simulate'\n", address)
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Waiting for requests... (Press Ctrl+C to stop)")
	fmt.Fprintln(out, "")
}
