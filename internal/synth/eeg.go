package synth

import (
	"fmt"
	"math"
)

// EEGParams controls EEG synthesis.
type EEGParams struct {
	Duration     float64   // seconds
	SamplingRate int       // Hz
	Frequencies  []float64 // dominant oscillations in Hz, superposed in order
	Noise        float64   // white noise amplitude in µV
	Seed         int64
}

const (
	eegBackgroundGain = 4.0  // µV scale of the 1/f background
	eegRhythmAmp      = 10.0 // µV amplitude of each dominant rhythm
	eegModulationHz   = 0.1  // waxing and waning of rhythm amplitude
)

// EEG synthesizes a single-channel electroencephalogram in microvolts: a
// pink-noise background with one amplitude-modulated oscillation per entry
// in Frequencies.
func EEG(p EEGParams) (Trace, error) {
	if err := checkDuration(p.Duration); err != nil {
		return Trace{}, err
	}
	if err := checkSamplingRate(p.SamplingRate); err != nil {
		return Trace{}, err
	}
	for i, f := range p.Frequencies {
		if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
			return Trace{}, &ParamError{Param: "frequency", Value: p.Frequencies, Message: fmt.Sprintf("entry %d must be a finite, non-negative frequency", i), kind: ErrInvalidFrequency}
		}
	}
	if err := checkNoise(p.Noise); err != nil {
		return Trace{}, err
	}

	n, err := sampleCount(p.Duration, p.SamplingRate)
	if err != nil {
		return Trace{}, err
	}
	trace := newTrace(ModalityEEG, "µV", p.SamplingRate, n)
	if n == 0 {
		return trace, nil
	}

	rng := newRand(p.Seed)
	fs := float64(p.SamplingRate)

	phases := make([]float64, len(p.Frequencies))
	modPhases := make([]float64, len(p.Frequencies))
	for i := range p.Frequencies {
		phases[i] = rng.Float64() * 2 * math.Pi
		modPhases[i] = rng.Float64() * 2 * math.Pi
	}

	var pink pinkFilter
	for i := range trace.Samples {
		t := float64(i) / fs
		v := eegBackgroundGain * pink.next(rng.NormFloat64())
		for k, f := range p.Frequencies {
			amp := eegRhythmAmp * (1 + 0.3*math.Sin(2*math.Pi*eegModulationHz*t+modPhases[k]))
			v += amp * math.Sin(2*math.Pi*f*t+phases[k])
		}
		v += rng.NormFloat64() * p.Noise
		trace.Samples[i] = v
	}

	return trace, nil
}

// pinkFilter shapes white noise to an approximately 1/f spectrum
// (Paul Kellet's economy filter).
type pinkFilter struct {
	b0, b1, b2 float64
}

func (f *pinkFilter) next(white float64) float64 {
	f.b0 = 0.99765*f.b0 + white*0.0990460
	f.b1 = 0.96300*f.b1 + white*0.2965164
	f.b2 = 0.57000*f.b2 + white*1.0526913
	return (f.b0 + f.b1 + f.b2 + white*0.1848) * 0.25
}
