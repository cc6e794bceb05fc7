package models

import "time"

// SimulateRequest is the body accepted by the simulation API. Exactly one of
// Preset or Custom must be set.
type SimulateRequest struct {
	Preset   string          `json:"preset,omitempty"`
	Custom   *CustomSettings `json:"custom,omitempty"`
	Seed     *int64          `json:"seed,omitempty"`
	Duration *float64        `json:"duration,omitempty"`
	Include  string          `json:"include,omitempty"` // "traces" (default) or "summary"
}

// CustomSettings describes an ad-hoc mental state.
type CustomSettings struct {
	Label       string    `json:"label"`
	HeartRate   float64   `json:"heart_rate"`
	Frequencies []float64 `json:"frequencies"`
	SCRNumber   int       `json:"scr_number"`
}

// Validate checks the request shape. Parameter values are left to the
// synthesizer.
func (r *SimulateRequest) Validate() error {
	if r.Preset == "" && r.Custom == nil {
		return &ValidationError{Field: "preset", Message: "preset or custom is required"}
	}
	if r.Preset != "" && r.Custom != nil {
		return &ValidationError{Field: "custom", Message: "cannot be combined with preset"}
	}
	if r.Custom != nil && r.Custom.Label == "" {
		return &ValidationError{Field: "custom.label", Message: "is required"}
	}
	switch r.Include {
	case "", "traces", "summary":
	default:
		return &ValidationError{Field: "include", Message: "must be 'traces' or 'summary'"}
	}
	return nil
}

// ValidationError represents a request validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// Receipt summarises a completed simulation run.
type Receipt struct {
	RunID     string         `json:"run_id"`
	Preset    string         `json:"preset"`
	Seed      int64          `json:"seed"`
	CreatedAt string         `json:"created_at"`
	Samples   map[string]int `json:"samples"`
	Duplicate bool           `json:"duplicate,omitempty"`
}

// NewReceipt creates a receipt stamped with the current time.
func NewReceipt(runID, preset string, seed int64, samples map[string]int) Receipt {
	return Receipt{
		RunID:     runID,
		Preset:    preset,
		Seed:      seed,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Samples:   samples,
	}
}
