// Package export writes simulated bundles to stdout or files as JSON,
// NDJSON or CSV.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/synheart/synheart-physio/internal/physio"
	"github.com/synheart/synheart-physio/internal/synth"
)

// Format selects the serialization of an export.
type Format string

const (
	FormatJSON   Format = "json"
	FormatNDJSON Format = "ndjson"
	FormatCSV    Format = "csv"
)

// ParseFormat validates a user supplied format name. Empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatJSON, FormatNDJSON, FormatCSV:
		return f, nil
	case "":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (expected: json|ndjson|csv)", s)
	}
}

// Ext returns the file extension for the format.
func (f Format) Ext() string {
	switch f {
	case FormatNDJSON:
		return ".ndjson"
	case FormatCSV:
		return ".csv"
	default:
		return ".json"
	}
}

// Export is a bundle stamped with a run id and creation time.
type Export struct {
	RunID     string `json:"run_id"`
	CreatedAt string `json:"created_at"`
	physio.Bundle
}

// New wraps b. An empty runID is replaced with a fresh UUID.
func New(runID string, b physio.Bundle) *Export {
	if runID == "" {
		runID = uuid.NewString()
	}
	return &Export{
		RunID:     runID,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Bundle:    b,
	}
}

// Encode serializes e in format f.
func Encode(w io.Writer, e *Export, f Format) error {
	switch f {
	case FormatCSV:
		return writeCSV(w, e)
	case FormatNDJSON:
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("failed to marshal export: %w", err)
		}
		_, err = w.Write(append(data, '\n'))
		return err
	default:
		data, err := json.MarshalIndent(e, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal export: %w", err)
		}
		_, err = w.Write(append(data, '\n'))
		return err
	}
}

// EncodeTrace serializes a single trace, as produced by the per-modality
// generators.
func EncodeTrace(w io.Writer, tr synth.Trace, f Format) error {
	switch f {
	case FormatCSV:
		return writeTraceCSV(w, tr)
	case FormatNDJSON:
		data, err := json.Marshal(tr)
		if err != nil {
			return fmt.Errorf("failed to marshal trace: %w", err)
		}
		_, err = w.Write(append(data, '\n'))
		return err
	default:
		data, err := json.MarshalIndent(tr, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal trace: %w", err)
		}
		_, err = w.Write(append(data, '\n'))
		return err
	}
}

// ReadJSON decodes every export in r. It accepts a single JSON document,
// concatenated documents or NDJSON.
func ReadJSON(r io.Reader) ([]*Export, error) {
	dec := json.NewDecoder(r)
	var out []*Export
	for {
		var e Export
		err := dec.Decode(&e)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode export %d: %w", len(out)+1, err)
		}
		out = append(out, &e)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no exports found")
	}
	return out, nil
}
