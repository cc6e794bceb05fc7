// Package config loads optional YAML defaults for the physio commands.
// Command line flags always take precedence over file values.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileName is looked up in the working directory when no --config is given.
const FileName = "physio.yaml"

// Config mirrors physio.yaml.
type Config struct {
	Seed       *int64 `yaml:"seed,omitempty"`
	PresetsDir string `yaml:"presets_dir,omitempty"`
	Log        Log    `yaml:"log"`
	Output     Output `yaml:"output"`
	Stream     Stream `yaml:"stream"`
	API        API    `yaml:"api"`
}

type Log struct {
	Level  string `yaml:"level"`  // debug|info|warn|error
	Format string `yaml:"format"` // text|json
}

type Output struct {
	Format string `yaml:"format"` // json|ndjson|csv
	Dir    string `yaml:"dir,omitempty"`
}

type Stream struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"` // WebSocket; SSE and UDP use port+1 and port+2
	Encoding   string `yaml:"encoding"`
	Chunk      string `yaml:"chunk"` // signal time per event, e.g. "100ms"
	NATSURL    string `yaml:"nats_url,omitempty"`
	NATSPrefix string `yaml:"nats_prefix,omitempty"`
}

type API struct {
	Host  string `yaml:"host"`
	Port  int    `yaml:"port"`
	Token string `yaml:"token,omitempty"`
	Gzip  bool   `yaml:"gzip"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Log:    Log{Level: "info", Format: "text"},
		Output: Output{Format: "json"},
		Stream: Stream{Host: "127.0.0.1", Port: 8787, Encoding: "json", Chunk: "100ms", NATSPrefix: "physio"},
		API:    API{Host: "127.0.0.1", Port: 8790},
	}
}

// Load reads path over the defaults. Keys missing from the file keep their
// default value.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Resolve returns the config file to use: explicit when set, otherwise
// FileName in dir if present. An empty result means "use defaults".
func Resolve(explicit, dir string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file %s: %w", explicit, err)
		}
		return explicit, nil
	}
	candidate := filepath.Join(dir, FileName)
	if _, err := os.Stat(candidate); err == nil {
		return candidate, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", err
	}
	return "", nil
}

// Validate checks enumerated values and port numbers.
func (c Config) Validate() error {
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q (expected: debug|info|warn|error)", c.Log.Level)
	}
	switch c.Output.Format {
	case "json", "ndjson", "csv":
	default:
		return fmt.Errorf("output.format %q (expected: json|ndjson|csv)", c.Output.Format)
	}
	switch c.Stream.Encoding {
	case "json", "protobuf", "binary":
	default:
		return fmt.Errorf("stream.encoding %q (expected: json|protobuf|binary)", c.Stream.Encoding)
	}
	for name, port := range map[string]int{"stream.port": c.Stream.Port, "api.port": c.API.Port} {
		if port <= 0 || port > 65535 {
			return fmt.Errorf("%s %d out of range", name, port)
		}
	}
	return nil
}
