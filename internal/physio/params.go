package physio

import (
	"sync/atomic"
	"time"

	"github.com/synheart/synheart-physio/internal/synth"
)

// Generator defaults. Durations of at least 60s leave enough beats for
// heart-rate-variability analysis downstream.
const (
	DefaultDuration     = 60.0
	DefaultHeartRate    = 75.0
	DefaultSamplingRate = 250
	DefaultFrequency    = 10.0 // alpha
	DefaultSCRNumber    = 5
)

// Parameters the delegate would otherwise pick for itself.
const (
	defaultHeartRateStd = 1.0
	defaultECGNoise     = 0.01
	defaultEEGNoise     = 0.1
	defaultEDANoise     = 0.01
	defaultEDADrift     = -0.01
)

var seedCounter atomic.Int64

// newSeed returns a seed that differs between calls, even when two calls
// land on the same clock tick.
func newSeed() int64 {
	return time.Now().UnixNano() + seedCounter.Add(1)
}

// DefaultECGParams returns ECG parameters with a 60s duration, 75 bpm and
// the delegate's own sampling rate.
func DefaultECGParams() synth.ECGParams {
	return synth.ECGParams{
		Duration:     DefaultDuration,
		HeartRate:    DefaultHeartRate,
		HeartRateStd: defaultHeartRateStd,
		SamplingRate: synth.DefaultECGSamplingRate,
		Noise:        defaultECGNoise,
		Seed:         newSeed(),
	}
}

// DefaultEEGParams returns EEG parameters with a 60s duration sampled at
// 250 Hz, which resolves the alpha (8-12 Hz) and beta (12-30 Hz) bands
// without aliasing, and a single 10 Hz alpha rhythm.
func DefaultEEGParams() synth.EEGParams {
	return synth.EEGParams{
		Duration:     DefaultDuration,
		SamplingRate: DefaultSamplingRate,
		Frequencies:  []float64{DefaultFrequency},
		Noise:        defaultEEGNoise,
		Seed:         newSeed(),
	}
}

// DefaultEDAParams returns EDA parameters with a 60s duration sampled at
// 250 Hz and five skin conductance responses.
func DefaultEDAParams() synth.EDAParams {
	return synth.EDAParams{
		Duration:     DefaultDuration,
		SamplingRate: DefaultSamplingRate,
		SCRNumber:    DefaultSCRNumber,
		Drift:        defaultEDADrift,
		Noise:        defaultEDANoise,
		Seed:         newSeed(),
	}
}
