package catalog

import (
	"fmt"
	"strings"
	"time"

	"github.com/synheart/synheart-physio/internal/physio"
)

// Preset is a named mental state: the three values that distinguish it
// plus optional documentation ranges.
type Preset struct {
	Name        string         `yaml:"name" json:"name"`
	Description string         `yaml:"description" json:"description"`
	Duration    string         `yaml:"duration,omitempty" json:"duration,omitempty"` // e.g. "90s"; empty means 60s
	ECG         ECGSection     `yaml:"ecg" json:"ecg"`
	EEG         EEGSection     `yaml:"eeg" json:"eeg"`
	EDA         EDASection     `yaml:"eda" json:"eda"`
	Ranges      *physio.Ranges `yaml:"ranges,omitempty" json:"ranges,omitempty"`
	Builtin     bool           `yaml:"-" json:"builtin"`
}

type ECGSection struct {
	HeartRate float64 `yaml:"heart_rate" json:"heart_rate"`
}

type EEGSection struct {
	Frequencies []float64 `yaml:"frequencies" json:"frequencies"`
}

type EDASection struct {
	SCRNumber int `yaml:"scr_number" json:"scr_number"`
}

func fromBuiltin(p physio.Preset) *Preset {
	s := p.Settings()
	r := p.Ranges()
	return &Preset{
		Name:        p.String(),
		Description: p.Description(),
		ECG:         ECGSection{HeartRate: s.HeartRate},
		EEG:         EEGSection{Frequencies: s.Frequencies},
		EDA:         EDASection{SCRNumber: s.SCRNumber},
		Ranges:      &r,
		Builtin:     true,
	}
}

// ParseDuration parses strings like "90s" or "2m". Empty means the
// generator default.
func ParseDuration(s string) (time.Duration, error) {
	if s == "" {
		return time.Duration(physio.DefaultDuration * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid duration %q: must not be negative", s)
	}
	return d, nil
}

// Settings returns the values handed to the generator.
func (p *Preset) Settings() physio.Settings {
	return physio.Settings{
		HeartRate:   p.ECG.HeartRate,
		Frequencies: append([]float64(nil), p.EEG.Frequencies...),
		SCRNumber:   p.EDA.SCRNumber,
	}
}

// Validate checks the fields a preset file must provide. Signal values are
// left to the synthesizer.
func (p *Preset) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("preset name is required")
	}
	if strings.ContainsAny(p.Name, " \t/") {
		return fmt.Errorf("preset name %q must not contain spaces or slashes", p.Name)
	}
	if _, err := ParseDuration(p.Duration); err != nil {
		return fmt.Errorf("preset %s: %w", p.Name, err)
	}
	return nil
}

// Check compares the preset values with its documented ranges and returns
// one message per mismatch. Mismatches never prevent a run.
func (p *Preset) Check() []string {
	var warnings []string
	if len(p.EEG.Frequencies) == 0 {
		warnings = append(warnings, "eeg: no dominant frequency, output is background activity only")
	}
	if p.Ranges == nil {
		return warnings
	}
	r := p.Ranges

	if !r.HeartRate.Contains(p.ECG.HeartRate) {
		warnings = append(warnings, fmt.Sprintf("ecg: heart rate %g bpm outside documented %s bpm", p.ECG.HeartRate, r.HeartRate))
	}
	for _, f := range p.EEG.Frequencies {
		if !r.EEGBand.Contains(f) {
			warnings = append(warnings, fmt.Sprintf("eeg: %g Hz outside documented %s band %s Hz", f, r.BandName, r.EEGBand))
		}
	}

	d, err := ParseDuration(p.Duration)
	if err == nil && d > 0 {
		perMinute := float64(p.EDA.SCRNumber) / d.Minutes()
		if !r.SCR.Contains(perMinute) {
			warnings = append(warnings, fmt.Sprintf("eda: %.2g SCRs per minute outside documented %s", perMinute, r.SCR))
		}
	}
	return warnings
}

// Run renders the preset. Built-ins go through the fixed preset table;
// custom presets through the generic settings path with their own
// duration. Caller options are applied last.
func (p *Preset) Run(g *physio.Generator, opts ...physio.Option) (physio.Bundle, error) {
	if p.Builtin {
		return g.Simulate(physio.Preset(p.Name), opts...)
	}
	d, err := ParseDuration(p.Duration)
	if err != nil {
		return physio.Bundle{}, err
	}
	all := append([]physio.Option{physio.WithDuration(d.Seconds())}, opts...)
	return g.Run(p.Name, p.Settings(), all...)
}
