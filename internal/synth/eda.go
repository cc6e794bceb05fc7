package synth

import (
	"fmt"
	"math"
)

// EDAParams controls EDA synthesis.
type EDAParams struct {
	Duration     float64 // seconds
	SamplingRate int     // Hz
	SCRNumber    int     // phasic skin conductance responses to embed
	Drift        float64 // tonic drift in µS per second
	Noise        float64 // gaussian noise amplitude in µS
	Seed         int64
}

const (
	edaTonicLevel = 2.0  // µS
	scrRise       = 0.75 // seconds
	scrDecay      = 2.0  // seconds
	scrMinAmp     = 0.3  // µS
	scrMaxAmp     = 1.0  // µS
)

// EDA synthesizes skin conductance in microsiemens: a drifting tonic level
// with SCRNumber bi-exponential responses. Onsets are spread over the trace,
// one per equal-length segment, so that responses stay distinguishable.
func EDA(p EDAParams) (Trace, error) {
	if err := checkDuration(p.Duration); err != nil {
		return Trace{}, err
	}
	if err := checkSamplingRate(p.SamplingRate); err != nil {
		return Trace{}, err
	}
	if p.SCRNumber < 0 {
		return Trace{}, &ParamError{Param: "scr_number", Value: p.SCRNumber, Message: "must be non-negative", kind: ErrInvalidSCRNumber}
	}
	if math.IsNaN(p.Drift) || math.IsInf(p.Drift, 0) {
		return Trace{}, &ParamError{Param: "drift", Value: p.Drift, Message: "must be finite", kind: ErrInvalidDrift}
	}
	if err := checkNoise(p.Noise); err != nil {
		return Trace{}, err
	}

	n, err := sampleCount(p.Duration, p.SamplingRate)
	if err != nil {
		return Trace{}, err
	}
	trace := newTrace(ModalityEDA, "µS", p.SamplingRate, n)
	if n == 0 {
		return trace, nil
	}
	if p.SCRNumber > n {
		return Trace{}, &ParamError{Param: "scr_number", Value: p.SCRNumber, Message: fmt.Sprintf("more responses than the %d samples in the trace", n), kind: ErrInvalidSCRNumber}
	}

	rng := newRand(p.Seed)
	fs := float64(p.SamplingRate)
	span := float64(n) / fs

	onsets := make([]float64, p.SCRNumber)
	amps := make([]float64, p.SCRNumber)
	segment := span / float64(max(p.SCRNumber, 1))
	for k := range onsets {
		onsets[k] = float64(k)*segment + rng.Float64()*0.6*segment
		amps[k] = scrMinAmp + rng.Float64()*(scrMaxAmp-scrMinAmp)
	}

	// Phasic sum of bi-exponentials, carried as two decaying accumulators.
	peak := scrShape(scrPeakTime())
	slowStep := math.Exp(-1 / (fs * scrDecay))
	fastStep := math.Exp(-1 / (fs * scrRise))
	var slow, fast float64
	next := 0
	for i := range trace.Samples {
		t := float64(i) / fs
		slow *= slowStep
		fast *= fastStep
		for ; next < len(onsets) && onsets[next] <= t; next++ {
			d := t - onsets[next]
			a := amps[next] / peak
			slow += a * math.Exp(-d/scrDecay)
			fast += a * math.Exp(-d/scrRise)
		}
		v := edaTonicLevel + p.Drift*t + slow - fast
		v += rng.NormFloat64() * p.Noise
		trace.Samples[i] = v
	}

	return trace, nil
}

func scrShape(t float64) float64 {
	return math.Exp(-t/scrDecay) - math.Exp(-t/scrRise)
}

func scrPeakTime() float64 {
	return math.Log(scrDecay/scrRise) * scrDecay * scrRise / (scrDecay - scrRise)
}
