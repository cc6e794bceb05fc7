package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/synheart/synheart-physio/internal/catalog"
	"github.com/synheart/synheart-physio/internal/ctxlog"
	"github.com/synheart/synheart-physio/internal/plugin"
)

func getPresetsDir() string {
	if cfg.PresetsDir != "" {
		return cfg.PresetsDir
	}

	// Try current directory first
	if _, err := os.Stat("presets"); err == nil {
		return "presets"
	}

	// Try relative to executable
	exe, err := os.Executable()
	if err == nil {
		dir := filepath.Join(filepath.Dir(exe), "presets")
		if _, err := os.Stat(dir); err == nil {
			return dir
		}
	}

	return ""
}

// loadRegistry returns the built-in and bundled presets plus any found in
// the presets directory.
func loadRegistry() (*catalog.Registry, error) {
	registry, err := catalog.Default()
	if err != nil {
		return nil, fmt.Errorf("failed to load bundled presets: %w", err)
	}
	if dir := getPresetsDir(); dir != "" {
		if err := registry.LoadFromDir(dir); err != nil {
			return nil, fmt.Errorf("failed to load presets: %w", err)
		}
	}
	return registry, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	logger := ctxlog.FromContext(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigChan)
		select {
		case <-sigChan:
			logger.Info("received interrupt signal, shutting down")
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// loadPlugin instantiates the WASM filter at path, or returns nil when
// path is empty.
func loadPlugin(ctx context.Context, path string) (*plugin.Filter, error) {
	if path == "" {
		return nil, nil
	}
	filter, err := plugin.Load(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to load plugin %s: %w", path, err)
	}
	ctxlog.FromContext(ctx).Debug("plugin loaded", "path", path, "mode", filter.Mode())
	return filter, nil
}

func logError(logger *slog.Logger, msg string, err error) {
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error(msg, "error", err)
	}
}
