package synth

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestECGLength(t *testing.T) {
	trace, err := ECG(ECGParams{Duration: 10, HeartRate: 75, HeartRateStd: 1, SamplingRate: 500, Noise: 0.01, Seed: 1})
	require.NoError(t, err)
	require.Equal(t, 5000, trace.Len())
	require.Equal(t, ModalityECG, trace.Modality)
	require.Equal(t, "mV", trace.Unit)
	require.Equal(t, 500, trace.SamplingRate)
}

func TestEEGLength(t *testing.T) {
	trace, err := EEG(EEGParams{Duration: 60, SamplingRate: 250, Frequencies: []float64{10}, Noise: 0.1, Seed: 1})
	require.NoError(t, err)
	require.Equal(t, 15000, trace.Len())
	require.Equal(t, time.Minute, trace.Duration())
}

func TestEDALength(t *testing.T) {
	trace, err := EDA(EDAParams{Duration: 2.5, SamplingRate: 250, SCRNumber: 1, Drift: -0.01, Noise: 0.01, Seed: 1})
	require.NoError(t, err)
	require.Equal(t, 625, trace.Len())
}

func TestZeroDurationYieldsEmptyTrace(t *testing.T) {
	ecg, err := ECG(ECGParams{Duration: 0, HeartRate: 75, SamplingRate: 1000})
	require.NoError(t, err)
	require.NotNil(t, ecg.Samples)
	require.Zero(t, ecg.Len())

	eeg, err := EEG(EEGParams{Duration: 0, SamplingRate: 250, Frequencies: []float64{10}})
	require.NoError(t, err)
	require.Zero(t, eeg.Len())

	eda, err := EDA(EDAParams{Duration: 0, SamplingRate: 250, SCRNumber: 5})
	require.NoError(t, err)
	require.Zero(t, eda.Len())
}

func TestSameSeedSameTrace(t *testing.T) {
	p := EEGParams{Duration: 5, SamplingRate: 250, Frequencies: []float64{10, 20}, Noise: 0.1, Seed: 42}
	a, err := EEG(p)
	require.NoError(t, err)
	b, err := EEG(p)
	require.NoError(t, err)
	require.Equal(t, a.Samples, b.Samples)

	p.Seed = 43
	c, err := EEG(p)
	require.NoError(t, err)
	require.NotEqual(t, a.Samples, c.Samples)
}

func TestEDAWithoutResponsesIsTonic(t *testing.T) {
	trace, err := EDA(EDAParams{Duration: 10, SamplingRate: 100, SCRNumber: 0, Drift: -0.01, Noise: 0, Seed: 7})
	require.NoError(t, err)
	for i, v := range trace.Samples {
		want := edaTonicLevel - 0.01*float64(i)/100
		if math.Abs(v-want) > 1e-12 {
			t.Fatalf("sample %d = %v, want %v", i, v, want)
		}
	}
}

func TestECGRPeakAmplitude(t *testing.T) {
	trace, err := ECG(ECGParams{Duration: 5, HeartRate: 60, SamplingRate: 1000, Seed: 3})
	require.NoError(t, err)

	peak := math.Inf(-1)
	for _, v := range trace.Samples {
		peak = math.Max(peak, v)
	}
	require.InDelta(t, 1.0, peak, 0.1)
}

func TestInvalidParams(t *testing.T) {
	tests := []struct {
		name string
		run  func() error
		want error
	}{
		{"negative duration", func() error {
			_, err := ECG(ECGParams{Duration: -1, HeartRate: 75, SamplingRate: 1000})
			return err
		}, ErrInvalidDuration},
		{"nan duration", func() error {
			_, err := EEG(EEGParams{Duration: math.NaN(), SamplingRate: 250})
			return err
		}, ErrInvalidDuration},
		{"zero sampling rate", func() error {
			_, err := EEG(EEGParams{Duration: 1, SamplingRate: 0})
			return err
		}, ErrInvalidSamplingRate},
		{"zero heart rate", func() error {
			_, err := ECG(ECGParams{Duration: 1, HeartRate: 0, SamplingRate: 1000})
			return err
		}, ErrInvalidHeartRate},
		{"negative frequency", func() error {
			_, err := EEG(EEGParams{Duration: 1, SamplingRate: 250, Frequencies: []float64{10, -2}})
			return err
		}, ErrInvalidFrequency},
		{"negative scr number", func() error {
			_, err := EDA(EDAParams{Duration: 1, SamplingRate: 250, SCRNumber: -1})
			return err
		}, ErrInvalidSCRNumber},
		{"duration beyond sample limit", func() error {
			_, err := EEG(EEGParams{Duration: 1e300, SamplingRate: 250, Frequencies: []float64{10}})
			return err
		}, ErrInvalidDuration},
		{"ecg duration beyond sample limit", func() error {
			_, err := ECG(ECGParams{Duration: 1e6, HeartRate: 75, SamplingRate: 1000})
			return err
		}, ErrInvalidDuration},
		{"eda duration beyond sample limit", func() error {
			_, err := EDA(EDAParams{Duration: float64(MaxSamples), SamplingRate: 2})
			return err
		}, ErrInvalidDuration},
		{"heart rate faster than sampling", func() error {
			_, err := ECG(ECGParams{Duration: 1, HeartRate: 6e7, SamplingRate: 250})
			return err
		}, ErrInvalidHeartRate},
		{"more responses than samples", func() error {
			_, err := EDA(EDAParams{Duration: 1, SamplingRate: 250, SCRNumber: 251})
			return err
		}, ErrInvalidSCRNumber},
		{"negative noise", func() error {
			_, err := EDA(EDAParams{Duration: 1, SamplingRate: 250, Noise: -0.1})
			return err
		}, ErrInvalidNoise},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			require.Error(t, err)
			require.True(t, errors.Is(err, tt.want), "got %v, want %v", err, tt.want)

			var pe *ParamError
			require.ErrorAs(t, err, &pe)
		})
	}
}

func TestSampleLimitIsInclusive(t *testing.T) {
	n, err := sampleCount(float64(MaxSamples)/1000, 1000)
	require.NoError(t, err)
	require.Equal(t, MaxSamples, n)

	_, err = sampleCount(float64(MaxSamples+1)/1000, 1000)
	require.ErrorIs(t, err, ErrInvalidDuration)
}

func TestHeartRateAtOneBeatPerSample(t *testing.T) {
	trace, err := ECG(ECGParams{Duration: 1, HeartRate: 60 * 250, SamplingRate: 250, Seed: 1})
	require.NoError(t, err)
	require.Equal(t, 250, trace.Len())
}

func TestEDAOneResponsePerSample(t *testing.T) {
	trace, err := EDA(EDAParams{Duration: 1, SamplingRate: 250, SCRNumber: 250, Seed: 1})
	require.NoError(t, err)
	require.Equal(t, 250, trace.Len())
	for i, v := range trace.Samples {
		require.False(t, math.IsNaN(v) || math.IsInf(v, 0), "sample %d is %v", i, v)
	}
}

func TestEDAResponsesSumBiExponentials(t *testing.T) {
	p := EDAParams{Duration: 20, SamplingRate: 50, SCRNumber: 4, Seed: 11}
	trace, err := EDA(p)
	require.NoError(t, err)

	// Redraw onsets and amplitudes the way EDA does and sum directly.
	rng := newRand(p.Seed)
	segment := 20.0 / 4
	onsets := make([]float64, 4)
	amps := make([]float64, 4)
	for k := range onsets {
		onsets[k] = float64(k)*segment + rng.Float64()*0.6*segment
		amps[k] = scrMinAmp + rng.Float64()*(scrMaxAmp-scrMinAmp)
	}
	peak := scrShape(scrPeakTime())
	for i, v := range trace.Samples {
		tm := float64(i) / 50
		want := edaTonicLevel
		for k, onset := range onsets {
			if tm >= onset {
				want += amps[k] * scrShape(tm-onset) / peak
			}
		}
		require.InDelta(t, want, v, 1e-9, "sample %d", i)
	}
}

func TestOutOfRangeHeartRateIsNotRejected(t *testing.T) {
	trace, err := ECG(ECGParams{Duration: 2, HeartRate: 250, SamplingRate: 1000, Seed: 1})
	require.NoError(t, err)
	require.Equal(t, 2000, trace.Len())
}
