// Package synth renders synthetic physiological waveforms.
//
// It is the only place where samples are computed. Callers hand it a fully
// populated parameter struct and receive a Trace; the package never reads
// global state, so every function is safe for concurrent use.
package synth

import (
	"fmt"
	"math"
	"math/rand"
	"time"
)

// Modality identifies the kind of physiological signal in a Trace.
type Modality string

const (
	ModalityECG Modality = "ecg"
	ModalityEEG Modality = "eeg"
	ModalityEDA Modality = "eda"
)

// DefaultECGSamplingRate is the ECG rate used when a caller does not pick
// one.
const DefaultECGSamplingRate = 1000

// MaxSamples bounds the length of a single trace, about 4.6 hours at
// 1000 Hz.
const MaxSamples = 1 << 24

// Trace is an ordered sequence of samples produced by one of the synthesis
// routines.
type Trace struct {
	Modality     Modality  `json:"modality"`
	Unit         string    `json:"unit"`
	SamplingRate int       `json:"sampling_rate"`
	Samples      []float64 `json:"samples"`
}

// Len returns the number of samples in the trace.
func (t Trace) Len() int {
	return len(t.Samples)
}

// Duration returns the time covered by the trace.
func (t Trace) Duration() time.Duration {
	if t.SamplingRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(t.Samples)) / float64(t.SamplingRate) * float64(time.Second))
}

// Engine exposes the synthesis routines as methods so that callers can
// depend on an interface instead of the package functions.
type Engine struct{}

// Default is the engine used when no other is configured.
var Default Engine

func (Engine) ECG(p ECGParams) (Trace, error) { return ECG(p) }
func (Engine) EEG(p EEGParams) (Trace, error) { return EEG(p) }
func (Engine) EDA(p EDAParams) (Trace, error) { return EDA(p) }

// sampleCount converts a duration in seconds to a number of samples.
// Durations are assumed to have passed checkDuration.
func sampleCount(duration float64, samplingRate int) (int, error) {
	total := math.Round(duration * float64(samplingRate))
	if total > MaxSamples {
		return 0, &ParamError{
			Param:   "duration",
			Value:   duration,
			Message: fmt.Sprintf("%g samples at %d Hz exceeds the limit of %d", total, samplingRate, MaxSamples),
			kind:    ErrInvalidDuration,
		}
	}
	return int(total), nil
}

func newRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

func newTrace(m Modality, unit string, samplingRate, n int) Trace {
	return Trace{
		Modality:     m,
		Unit:         unit,
		SamplingRate: samplingRate,
		Samples:      make([]float64, n),
	}
}
