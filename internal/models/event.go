package models

import "time"

// SchemaVersion identifies the chunk envelope format.
const SchemaVersion = "physio.chunk.v1"

// Event carries a contiguous run of samples from one modality of a
// simulation run.
type Event struct {
	SchemaVersion string  `json:"schema_version"`
	EventID       string  `json:"event_id"`
	Timestamp     string  `json:"ts"`
	Session       Session `json:"session"`
	Signal        Signal  `json:"signal"`
	Meta          Meta    `json:"meta"`
}

// Session identifies the simulation run an event belongs to.
type Session struct {
	RunID  string `json:"run_id"`
	Preset string `json:"preset"`
	Seed   int64  `json:"seed"`
}

// Signal holds the samples of one chunk.
type Signal struct {
	Modality     string    `json:"modality"` // "ecg", "eeg" or "eda"
	Unit         string    `json:"unit"`     // e.g. "mV"
	SamplingRate int       `json:"sampling_rate"`
	Offset       int       `json:"offset"` // index of the first sample in the trace
	Samples      []float64 `json:"samples"`
}

// Meta contains additional event metadata
type Meta struct {
	Sequence int64 `json:"sequence"`
	Final    bool  `json:"final,omitempty"` // last chunk of its modality
}

// NewEvent creates a new Event with current timestamp
func NewEvent(eventID string, session Session, signal Signal, sequence int64) Event {
	return Event{
		SchemaVersion: SchemaVersion,
		EventID:       eventID,
		Timestamp:     time.Now().UTC().Format(time.RFC3339Nano),
		Session:       session,
		Signal:        signal,
		Meta: Meta{
			Sequence: sequence,
		},
	}
}

// StartTime returns the offset of the first sample from the start of the
// trace.
func (s Signal) StartTime() time.Duration {
	if s.SamplingRate <= 0 {
		return 0
	}
	return time.Duration(float64(s.Offset) / float64(s.SamplingRate) * float64(time.Second))
}
