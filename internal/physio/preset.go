package physio

import (
	"errors"
	"fmt"
	"strings"

	"github.com/synheart/synheart-physio/internal/synth"
)

// Preset names a mental state with a fixed parameter set.
type Preset string

const (
	Relaxed  Preset = "relaxed"
	Focused  Preset = "focused"
	Stressed Preset = "stressed"
)

var ErrUnknownPreset = errors.New("unknown preset")

// Settings are the per-modality values a preset pins down. Everything else
// comes from the generator defaults.
type Settings struct {
	HeartRate   float64   `json:"heart_rate" yaml:"heart_rate"`
	Frequencies []float64 `json:"frequencies" yaml:"frequencies"`
	SCRNumber   int       `json:"scr_number" yaml:"scr_number"`
}

// Range is a closed interval. A zero Max leaves the interval open above.
type Range struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max,omitempty" yaml:"max,omitempty"`
}

// Contains reports whether v lies within the range.
func (r Range) Contains(v float64) bool {
	if v < r.Min {
		return false
	}
	return r.Max == 0 || v <= r.Max
}

func (r Range) String() string {
	if r.Max == 0 {
		return fmt.Sprintf("%g+", r.Min)
	}
	return fmt.Sprintf("%g-%g", r.Min, r.Max)
}

// Ranges document the physiological bands a preset is meant to sit in.
// They are not enforced by the generator.
type Ranges struct {
	HeartRate Range  `json:"heart_rate" yaml:"heart_rate"` // bpm
	EEGBand   Range  `json:"eeg_band" yaml:"eeg_band"`     // Hz
	BandName  string `json:"band_name" yaml:"band_name"`
	SCR       Range  `json:"scr" yaml:"scr"` // responses per minute
	Arousal   string `json:"arousal" yaml:"arousal"`
}

type presetInfo struct {
	description string
	settings    Settings
	ranges      Ranges
}

var presetTable = map[Preset]presetInfo{
	Relaxed: {
		description: "Resting state with dominant alpha activity and few arousal events",
		settings:    Settings{HeartRate: 68, Frequencies: []float64{10}, SCRNumber: 2},
		ranges: Ranges{
			HeartRate: Range{Min: 65, Max: 70},
			EEGBand:   Range{Min: 8, Max: 12},
			BandName:  "alpha",
			SCR:       Range{Min: 0, Max: 3},
			Arousal:   "few SCRs",
		},
	},
	Focused: {
		description: "Engaged attention with low beta activity and moderate arousal",
		settings:    Settings{HeartRate: 80, Frequencies: []float64{14}, SCRNumber: 5},
		ranges: Ranges{
			HeartRate: Range{Min: 75, Max: 85},
			EEGBand:   Range{Min: 12, Max: 16},
			BandName:  "low beta",
			SCR:       Range{Min: 4, Max: 6},
			Arousal:   "moderate SCRs",
		},
	},
	Stressed: {
		description: "Elevated heart rate with high beta activity and frequent arousal events",
		settings:    Settings{HeartRate: 95, Frequencies: []float64{20}, SCRNumber: 9},
		ranges: Ranges{
			HeartRate: Range{Min: 90},
			EEGBand:   Range{Min: 18, Max: 25},
			BandName:  "high beta",
			SCR:       Range{Min: 7},
			Arousal:   "high SCRs",
		},
	},
}

// Presets returns the built-in presets in order of increasing arousal.
func Presets() []Preset {
	return []Preset{Relaxed, Focused, Stressed}
}

// ParsePreset maps a user supplied label to a preset.
func ParsePreset(s string) (Preset, error) {
	p := Preset(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := presetTable[p]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownPreset, s)
	}
	return p, nil
}

// Settings returns the fixed values bound to the preset.
func (p Preset) Settings() Settings {
	s := presetTable[p].settings
	s.Frequencies = append([]float64(nil), s.Frequencies...)
	return s
}

// Ranges returns the documented physiological ranges of the preset.
func (p Preset) Ranges() Ranges {
	return presetTable[p].ranges
}

// Description returns a one-line summary of the preset.
func (p Preset) Description() string {
	return presetTable[p].description
}

func (p Preset) String() string {
	return string(p)
}

// Bundle is the ECG, EEG and EDA output of one preset run.
type Bundle struct {
	Preset string      `json:"preset"`
	Seed   int64       `json:"seed"`
	ECG    synth.Trace `json:"ecg"`
	EEG    synth.Trace `json:"eeg"`
	EDA    synth.Trace `json:"eda"`
}

// Traces returns the three traces in ECG, EEG, EDA order.
func (b Bundle) Traces() []synth.Trace {
	return []synth.Trace{b.ECG, b.EEG, b.EDA}
}

type runOptions struct {
	seed     int64
	seeded   bool
	duration float64
	hasDur   bool
}

// Option adjusts a preset run.
type Option func(*runOptions)

// WithSeed fixes the random seed of all three modalities.
func WithSeed(seed int64) Option {
	return func(o *runOptions) {
		o.seed = seed
		o.seeded = true
	}
}

// WithDuration overrides the 60s default duration.
func WithDuration(seconds float64) Option {
	return func(o *runOptions) {
		o.duration = seconds
		o.hasDur = true
	}
}

// Simulate renders the bundle for a built-in preset.
func (g *Generator) Simulate(p Preset, opts ...Option) (Bundle, error) {
	info, ok := presetTable[p]
	if !ok {
		return Bundle{}, fmt.Errorf("%w: %q", ErrUnknownPreset, string(p))
	}
	return g.Run(string(p), info.settings, opts...)
}

// Run renders ECG, EEG and EDA for arbitrary settings, in that order. The
// first failing modality aborts the run and its error is returned unchanged.
func (g *Generator) Run(label string, s Settings, opts ...Option) (Bundle, error) {
	o := runOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if !o.seeded {
		o.seed = newSeed()
	}

	ecgParams := DefaultECGParams()
	ecgParams.HeartRate = s.HeartRate
	ecgParams.Seed = o.seed

	eegParams := DefaultEEGParams()
	eegParams.Frequencies = append([]float64(nil), s.Frequencies...)
	eegParams.Seed = o.seed

	edaParams := DefaultEDAParams()
	edaParams.SCRNumber = s.SCRNumber
	edaParams.Seed = o.seed

	if o.hasDur {
		ecgParams.Duration = o.duration
		eegParams.Duration = o.duration
		edaParams.Duration = o.duration
	}

	ecg, err := g.SimulateECG(ecgParams)
	if err != nil {
		return Bundle{}, err
	}
	eeg, err := g.SimulateEEG(eegParams)
	if err != nil {
		return Bundle{}, err
	}
	eda, err := g.SimulateEDA(edaParams)
	if err != nil {
		return Bundle{}, err
	}

	return Bundle{
		Preset: label,
		Seed:   o.seed,
		ECG:    ecg,
		EEG:    eeg,
		EDA:    eda,
	}, nil
}

// Simulate renders a built-in preset with the default generator.
func Simulate(p Preset, opts ...Option) (Bundle, error) {
	return defaultGenerator.Simulate(p, opts...)
}

// SimulateRelaxed renders the relaxed preset: 68 bpm, 10 Hz alpha, 2 SCRs.
func SimulateRelaxed() (Bundle, error) {
	return defaultGenerator.Simulate(Relaxed)
}

// SimulateFocused renders the focused preset: 80 bpm, 14 Hz low beta, 5 SCRs.
func SimulateFocused() (Bundle, error) {
	return defaultGenerator.Simulate(Focused)
}

// SimulateStressed renders the stressed preset: 95 bpm, 20 Hz high beta,
// 9 SCRs.
func SimulateStressed() (Bundle, error) {
	return defaultGenerator.Simulate(Stressed)
}
