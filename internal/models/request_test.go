package models

import (
	"errors"
	"testing"
)

func TestSimulateRequestValidate(t *testing.T) {
	tests := []struct {
		name  string
		req   SimulateRequest
		field string
	}{
		{"preset only", SimulateRequest{Preset: "relaxed"}, ""},
		{"custom only", SimulateRequest{Custom: &CustomSettings{Label: "calm", HeartRate: 60}}, ""},
		{"summary", SimulateRequest{Preset: "focused", Include: "summary"}, ""},
		{"empty", SimulateRequest{}, "preset"},
		{"both", SimulateRequest{Preset: "relaxed", Custom: &CustomSettings{Label: "x"}}, "custom"},
		{"unlabelled custom", SimulateRequest{Custom: &CustomSettings{}}, "custom.label"},
		{"bad include", SimulateRequest{Preset: "relaxed", Include: "csv"}, "include"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.field == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if ve.Field != tt.field {
				t.Errorf("field = %q, want %q", ve.Field, tt.field)
			}
		})
	}
}

func TestNewReceipt(t *testing.T) {
	r := NewReceipt("run-1", "stressed", 9, map[string]int{"ecg": 60000})
	if r.RunID != "run-1" || r.Preset != "stressed" || r.Seed != 9 {
		t.Errorf("unexpected receipt: %+v", r)
	}
	if r.CreatedAt == "" {
		t.Error("CreatedAt should be set")
	}
}
