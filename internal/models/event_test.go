package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestNewEvent(t *testing.T) {
	session := Session{
		RunID:  "test-run",
		Preset: "relaxed",
		Seed:   42,
	}

	signal := Signal{
		Modality:     "ecg",
		Unit:         "mV",
		SamplingRate: 1000,
		Offset:       2000,
		Samples:      []float64{0.1, 0.9, -0.2},
	}

	event := NewEvent("test-event-id", session, signal, 123)

	if event.SchemaVersion != "physio.chunk.v1" {
		t.Errorf("Expected schema version 'physio.chunk.v1', got %s", event.SchemaVersion)
	}

	if event.EventID != "test-event-id" {
		t.Errorf("Expected event ID 'test-event-id', got %s", event.EventID)
	}

	if event.Meta.Sequence != 123 {
		t.Errorf("Expected sequence 123, got %d", event.Meta.Sequence)
	}

	if _, err := time.Parse(time.RFC3339Nano, event.Timestamp); err != nil {
		t.Errorf("Timestamp %q is not RFC3339Nano: %v", event.Timestamp, err)
	}

	if got := event.Signal.StartTime(); got != 2*time.Second {
		t.Errorf("Expected start time 2s, got %v", got)
	}
}

func TestEventJSONFieldNames(t *testing.T) {
	event := NewEvent("id", Session{RunID: "r", Preset: "focused", Seed: 1},
		Signal{Modality: "eda", Unit: "µS", SamplingRate: 250, Samples: []float64{2.0}}, 1)
	event.Meta.Final = true

	data, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("Failed to marshal event: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Failed to unmarshal event: %v", err)
	}

	for _, key := range []string{"schema_version", "event_id", "ts", "session", "signal", "meta"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("missing top-level key %q", key)
		}
	}

	signal := raw["signal"].(map[string]any)
	if signal["sampling_rate"] != float64(250) {
		t.Errorf("sampling_rate = %v, want 250", signal["sampling_rate"])
	}
	meta := raw["meta"].(map[string]any)
	if meta["final"] != true {
		t.Errorf("meta.final = %v, want true", meta["final"])
	}
}
