package synth

import (
	"fmt"
	"math"
)

// ECGParams controls ECG synthesis.
type ECGParams struct {
	Duration     float64 // seconds
	HeartRate    float64 // mean beats per minute
	HeartRateStd float64 // beat-to-beat standard deviation in bpm
	SamplingRate int     // Hz
	Noise        float64 // gaussian noise amplitude in mV
	Seed         int64
}

// Beat morphology after McSharry et al. (ECGSYN): angular position, amplitude
// and width of the P, Q, R, S and T waves over one beat, R at angle 0.
var (
	waveAngles = [5]float64{-70, -15, 0, 15, 100} // degrees
	waveAmps   = [5]float64{0.15, -0.15, 1.0, -0.25, 0.3}
	waveWidths = [5]float64{0.25, 0.1, 0.1, 0.1, 0.4}
)

const (
	respiratoryHz = 0.25
	mayerHz       = 0.1
)

// ECG synthesizes an electrocardiogram in millivolts.
func ECG(p ECGParams) (Trace, error) {
	if err := checkDuration(p.Duration); err != nil {
		return Trace{}, err
	}
	if err := checkSamplingRate(p.SamplingRate); err != nil {
		return Trace{}, err
	}
	if math.IsNaN(p.HeartRate) || math.IsInf(p.HeartRate, 0) || p.HeartRate <= 0 {
		return Trace{}, &ParamError{Param: "heart_rate", Value: p.HeartRate, Message: "must be positive", kind: ErrInvalidHeartRate}
	}
	if p.HeartRate > 60*float64(p.SamplingRate) {
		return Trace{}, &ParamError{Param: "heart_rate", Value: p.HeartRate, Message: fmt.Sprintf("beats shorter than one sample at %d Hz", p.SamplingRate), kind: ErrInvalidHeartRate}
	}
	if math.IsNaN(p.HeartRateStd) || p.HeartRateStd < 0 {
		return Trace{}, &ParamError{Param: "heart_rate_std", Value: p.HeartRateStd, Message: "must be non-negative", kind: ErrInvalidHeartRate}
	}
	if err := checkNoise(p.Noise); err != nil {
		return Trace{}, err
	}

	n, err := sampleCount(p.Duration, p.SamplingRate)
	if err != nil {
		return Trace{}, err
	}
	trace := newTrace(ModalityECG, "mV", p.SamplingRate, n)
	if n == 0 {
		return trace, nil
	}

	rng := newRand(p.Seed)
	fs := float64(p.SamplingRate)
	rr := rrIntervals(rng.NormFloat64, p, float64(n)/fs)

	angles, widths := scaledMorphology(p.HeartRate)

	beat := 0
	beatStart := 0.0
	for i := range trace.Samples {
		t := float64(i) / fs
		for beat < len(rr)-1 && t >= beatStart+rr[beat] {
			beatStart += rr[beat]
			beat++
		}
		phase := (t - beatStart) / rr[beat]
		theta := 2*math.Pi*phase - math.Pi

		v := 0.0
		for k := range waveAmps {
			d := wrapAngle(theta - angles[k])
			v += waveAmps[k] * math.Exp(-d*d/(2*widths[k]*widths[k]))
		}
		v += 0.05 * math.Sin(2*math.Pi*respiratoryHz*t)
		v += rng.NormFloat64() * p.Noise
		trace.Samples[i] = v
	}

	return trace, nil
}

// rrIntervals draws beat-to-beat intervals covering at least span seconds.
// Intervals carry respiratory sinus arrhythmia and Mayer-wave modulation
// plus gaussian jitter, and stay within half a mean interval of the mean.
// With the mean interval at least one sample long there are at most about
// two intervals per sample.
func rrIntervals(norm func() float64, p ECGParams, span float64) []float64 {
	mean := 60 / p.HeartRate
	std := mean * p.HeartRateStd / p.HeartRate

	var rr []float64
	t := 0.0
	for t <= span {
		mod := (0.5*math.Sin(2*math.Pi*mayerHz*t) + math.Sin(2*math.Pi*respiratoryHz*t)) / 1.118
		interval := mean + std*(0.7*mod+0.7*norm())
		interval = math.Max(0.5*mean, math.Min(1.5*mean, interval))
		rr = append(rr, interval)
		t += interval
	}
	return rr
}

// scaledMorphology shortens wave positions and widths at faster heart rates
// so the QT interval tracks the RR interval.
func scaledMorphology(heartRate float64) ([5]float64, [5]float64) {
	hrFact := math.Sqrt(heartRate / 60)
	hrFact2 := math.Sqrt(hrFact)
	scale := [5]float64{hrFact2, hrFact, 1, hrFact, hrFact2}

	var angles, widths [5]float64
	for k := range waveAngles {
		angles[k] = waveAngles[k] * math.Pi / 180 * scale[k]
		widths[k] = waveWidths[k] * hrFact
	}
	return angles, widths
}

func wrapAngle(a float64) float64 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a < -math.Pi {
		a += 2 * math.Pi
	}
	return a
}
