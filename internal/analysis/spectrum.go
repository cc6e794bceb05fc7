package analysis

import (
	"math"

	"github.com/synheart/synheart-physio/internal/synth"
)

// BandPower returns the normalised power of the trace at freq Hz, computed
// with the Goertzel recurrence.
func BandPower(trace synth.Trace, freq float64) float64 {
	n := len(trace.Samples)
	if n == 0 || trace.SamplingRate <= 0 {
		return 0
	}
	w := 2 * math.Pi * freq / float64(trace.SamplingRate)
	coeff := 2 * math.Cos(w)

	var s1, s2 float64
	for _, x := range trace.Samples {
		s0 := x + coeff*s1 - s2
		s2 = s1
		s1 = s0
	}
	power := s1*s1 + s2*s2 - coeff*s1*s2
	return power / float64(n*n)
}

// DominantFrequency scans [lo, hi] in steps of step Hz and returns the
// frequency with the highest power.
func DominantFrequency(trace synth.Trace, lo, hi, step float64) float64 {
	best, bestPower := lo, -1.0
	for f := lo; f <= hi+step/2; f += step {
		if p := BandPower(trace, f); p > bestPower {
			best, bestPower = f, p
		}
	}
	return best
}

// Band is a named EEG frequency band.
type Band struct {
	Name string
	Low  float64 // Hz, inclusive
	High float64 // Hz, exclusive
}

// EEGBands are the conventional clinical bands up to 40 Hz.
var EEGBands = []Band{
	{"delta", 1, 4},
	{"theta", 4, 8},
	{"alpha", 8, 12},
	{"beta", 12, 30},
	{"gamma", 30, 40},
}

// BandShare is the fraction of scanned power falling in one band.
type BandShare struct {
	Band
	Share float64 `json:"share"`
}

// BandShares scans 1-40 Hz in 0.5 Hz steps and returns each band's share
// of the total. Shares sum to 1 unless the trace is empty.
func BandShares(trace synth.Trace) []BandShare {
	out := make([]BandShare, len(EEGBands))
	var total float64
	for i, b := range EEGBands {
		out[i].Band = b
		for f := b.Low; f < b.High; f += scanStep {
			out[i].Share += BandPower(trace, f)
		}
		total += out[i].Share
	}
	if total == 0 {
		return out
	}
	for i := range out {
		out[i].Share /= total
	}
	return out
}
