package analysis

import "github.com/synheart/synheart-physio/internal/synth"

const (
	edaSmoothing  = 0.1  // seconds of moving average
	edaRiseWindow = 0.25 // seconds
	edaRiseMin    = 0.03 // µS gained over the rise window
	edaRefractory = 2.0  // seconds
)

// CountSCR counts skin conductance responses: onsets where the smoothed
// signal rises faster than a fixed slope.
func CountSCR(trace synth.Trace) int {
	fs := float64(trace.SamplingRate)
	if fs <= 0 || len(trace.Samples) == 0 {
		return 0
	}

	smooth := movingAverage(trace.Samples, max(1, int(edaSmoothing*fs)))
	lag := max(1, int(edaRiseWindow*fs))
	gap := int(edaRefractory * fs)

	count := 0
	last := -gap
	rising := false
	for i := lag; i < len(smooth); i++ {
		up := smooth[i]-smooth[i-lag] >= edaRiseMin
		if up && !rising && i-last >= gap {
			count++
			last = i
		}
		rising = up
	}
	return count
}

func movingAverage(x []float64, width int) []float64 {
	out := make([]float64, len(x))
	sum := 0.0
	for i, v := range x {
		sum += v
		if i >= width {
			sum -= x[i-width]
		}
		out[i] = sum / float64(min(i+1, width))
	}
	return out
}
