package analysis

import (
	"github.com/synheart/synheart-physio/internal/physio"
)

// EEG scan used by Summarize.
const (
	scanLow  = 1.0
	scanHigh = 40.0
	scanStep = 0.5
)

// Summary holds the figures recovered from one bundle.
type Summary struct {
	Preset            string     `json:"preset"`
	Seed              int64      `json:"seed"`
	HeartRate         *HeartRate `json:"heart_rate,omitempty"`
	HeartRateError    string     `json:"heart_rate_error,omitempty"`
	DominantFrequency float64    `json:"eeg_dominant_hz"`
	SCRCount          int        `json:"scr_count"`
}

// Summarize analyses all three traces of b. An ECG too short for two beats
// is reported in HeartRateError rather than failing the summary.
func Summarize(b physio.Bundle) Summary {
	s := Summary{Preset: b.Preset, Seed: b.Seed}

	if hr, err := AnalyzeECG(b.ECG); err != nil {
		s.HeartRateError = err.Error()
	} else {
		s.HeartRate = &hr
	}
	if b.EEG.Len() > 0 {
		s.DominantFrequency = DominantFrequency(b.EEG, scanLow, scanHigh, scanStep)
	}
	s.SCRCount = CountSCR(b.EDA)
	return s
}
