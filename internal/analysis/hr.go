// Package analysis recovers summary figures from synthetic traces: heart
// rate and HRV from ECG, dominant rhythm from EEG and response count from
// EDA.
package analysis

import (
	"errors"
	"math"

	"github.com/synheart/synheart-physio/internal/synth"
)

var ErrTooFewBeats = errors.New("analysis: fewer than two R peaks detected")

const (
	rPeakThreshold = 0.6  // mV
	refractory     = 0.25 // seconds
)

// HeartRate summarises the beats found in an ECG trace.
type HeartRate struct {
	Beats   int     `json:"beats"`
	MeanBPM float64 `json:"mean_bpm"`
	RMSSD   float64 `json:"rmssd_ms"`
}

// RPeaks returns the sample indices of R peaks: the maximum of every
// excursion above the threshold, ignoring excursions that start within the
// refractory period of the previous peak.
func RPeaks(trace synth.Trace) []int {
	if trace.SamplingRate <= 0 {
		return nil
	}
	minGap := int(refractory * float64(trace.SamplingRate))

	var peaks []int
	inBeat := false
	best := -1
	for i, v := range trace.Samples {
		if v >= rPeakThreshold {
			if !inBeat {
				if len(peaks) > 0 && i-peaks[len(peaks)-1] < minGap {
					continue
				}
				inBeat = true
				best = i
			}
			if v > trace.Samples[best] {
				best = i
			}
			continue
		}
		if inBeat {
			peaks = append(peaks, best)
			inBeat = false
		}
	}
	if inBeat {
		peaks = append(peaks, best)
	}
	return peaks
}

// AnalyzeECG detects R peaks and derives mean heart rate and RMSSD.
func AnalyzeECG(trace synth.Trace) (HeartRate, error) {
	peaks := RPeaks(trace)
	if len(peaks) < 2 {
		return HeartRate{Beats: len(peaks)}, ErrTooFewBeats
	}

	fs := float64(trace.SamplingRate)
	rr := make([]float64, len(peaks)-1)
	sum := 0.0
	for i := 1; i < len(peaks); i++ {
		rr[i-1] = float64(peaks[i]-peaks[i-1]) / fs
		sum += rr[i-1]
	}
	meanRR := sum / float64(len(rr))

	rmssd := 0.0
	if len(rr) > 1 {
		sq := 0.0
		for i := 1; i < len(rr); i++ {
			d := (rr[i] - rr[i-1]) * 1000
			sq += d * d
		}
		rmssd = math.Sqrt(sq / float64(len(rr)-1))
	}

	return HeartRate{
		Beats:   len(peaks),
		MeanBPM: 60 / meanRR,
		RMSSD:   rmssd,
	}, nil
}
