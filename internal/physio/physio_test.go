package physio

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/synheart/synheart-physio/internal/synth"
)

// captureSynth records the parameters it is called with.
type captureSynth struct {
	ecg   []synth.ECGParams
	eeg   []synth.EEGParams
	eda   []synth.EDAParams
	fail  synth.Modality
	err   error
	calls []synth.Modality
}

func (c *captureSynth) ECG(p synth.ECGParams) (synth.Trace, error) {
	c.calls = append(c.calls, synth.ModalityECG)
	c.ecg = append(c.ecg, p)
	if c.fail == synth.ModalityECG {
		return synth.Trace{}, c.err
	}
	return synth.Trace{Modality: synth.ModalityECG, SamplingRate: p.SamplingRate}, nil
}

func (c *captureSynth) EEG(p synth.EEGParams) (synth.Trace, error) {
	c.calls = append(c.calls, synth.ModalityEEG)
	c.eeg = append(c.eeg, p)
	if c.fail == synth.ModalityEEG {
		return synth.Trace{}, c.err
	}
	return synth.Trace{Modality: synth.ModalityEEG, SamplingRate: p.SamplingRate}, nil
}

func (c *captureSynth) EDA(p synth.EDAParams) (synth.Trace, error) {
	c.calls = append(c.calls, synth.ModalityEDA)
	c.eda = append(c.eda, p)
	if c.fail == synth.ModalityEDA {
		return synth.Trace{}, c.err
	}
	return synth.Trace{Modality: synth.ModalityEDA, SamplingRate: p.SamplingRate}, nil
}

func TestDefaultGeneratorLengths(t *testing.T) {
	ecg, err := SimulateECG(DefaultECGParams())
	require.NoError(t, err)
	require.Equal(t, 60*synth.DefaultECGSamplingRate, ecg.Len())

	eeg, err := SimulateEEG(DefaultEEGParams())
	require.NoError(t, err)
	require.Equal(t, 60*250, eeg.Len())

	eda, err := SimulateEDA(DefaultEDAParams())
	require.NoError(t, err)
	require.Equal(t, 60*250, eda.Len())
}

func TestEEGLengthAt250Hz(t *testing.T) {
	p := DefaultEEGParams()
	p.Duration = 60
	p.SamplingRate = 250
	p.Frequencies = []float64{10}

	trace, err := SimulateEEG(p)
	require.NoError(t, err)
	require.Equal(t, 15000, trace.Len())
}

func TestPresetBindings(t *testing.T) {
	tests := []struct {
		preset    Preset
		run       func(g *Generator) (Bundle, error)
		heartRate float64
		freqs     []float64
		scr       int
	}{
		{Relaxed, func(g *Generator) (Bundle, error) { return g.Simulate(Relaxed) }, 68, []float64{10}, 2},
		{Focused, func(g *Generator) (Bundle, error) { return g.Simulate(Focused) }, 80, []float64{14}, 5},
		{Stressed, func(g *Generator) (Bundle, error) { return g.Simulate(Stressed) }, 95, []float64{20}, 9},
	}

	for _, tt := range tests {
		t.Run(string(tt.preset), func(t *testing.T) {
			capture := &captureSynth{}
			bundle, err := tt.run(NewGenerator(capture))
			require.NoError(t, err)
			require.Equal(t, string(tt.preset), bundle.Preset)

			require.Len(t, capture.ecg, 1)
			require.Len(t, capture.eeg, 1)
			require.Len(t, capture.eda, 1)

			ecg := capture.ecg[0]
			require.Equal(t, tt.heartRate, ecg.HeartRate)
			require.Equal(t, DefaultDuration, ecg.Duration)
			require.Equal(t, synth.DefaultECGSamplingRate, ecg.SamplingRate)

			eeg := capture.eeg[0]
			if diff := cmp.Diff(tt.freqs, eeg.Frequencies); diff != "" {
				t.Errorf("eeg frequencies mismatch (-want +got):\n%s", diff)
			}
			require.Equal(t, DefaultDuration, eeg.Duration)
			require.Equal(t, DefaultSamplingRate, eeg.SamplingRate)

			eda := capture.eda[0]
			require.Equal(t, tt.scr, eda.SCRNumber)
			require.Equal(t, DefaultDuration, eda.Duration)
			require.Equal(t, DefaultSamplingRate, eda.SamplingRate)

			require.Equal(t, []synth.Modality{synth.ModalityECG, synth.ModalityEEG, synth.ModalityEDA}, capture.calls)
		})
	}
}

func TestPackagePresetFunctions(t *testing.T) {
	for name, fn := range map[string]func() (Bundle, error){
		"relaxed":  SimulateRelaxed,
		"focused":  SimulateFocused,
		"stressed": SimulateStressed,
	} {
		bundle, err := fn()
		require.NoError(t, err, name)
		require.Equal(t, name, bundle.Preset)
		require.Equal(t, 60*synth.DefaultECGSamplingRate, bundle.ECG.Len())
		require.Equal(t, 15000, bundle.EEG.Len())
		require.Equal(t, 15000, bundle.EDA.Len())
	}
}

func TestFailurePropagatesUnchanged(t *testing.T) {
	boom := errors.New("delegate exploded")

	capture := &captureSynth{fail: synth.ModalityEEG, err: boom}
	bundle, err := NewGenerator(capture).Simulate(Focused)
	require.Same(t, boom, err)
	require.Equal(t, Bundle{}, bundle)

	// EDA is never attempted once EEG failed.
	require.Equal(t, []synth.Modality{synth.ModalityECG, synth.ModalityEEG}, capture.calls)
}

func TestDelegateErrorsSurface(t *testing.T) {
	_, err := NewGenerator(nil).Simulate(Relaxed, WithDuration(-5))
	require.ErrorIs(t, err, synth.ErrInvalidDuration)

	var pe *synth.ParamError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, "duration", pe.Param)
}

func TestZeroDurationDoesNotCrash(t *testing.T) {
	bundle, err := Simulate(Stressed, WithDuration(0))
	require.NoError(t, err)
	for _, tr := range bundle.Traces() {
		require.Zero(t, tr.Len())
	}

	p := DefaultEDAParams()
	p.SCRNumber = 0
	eda, err := SimulateEDA(p)
	require.NoError(t, err)
	require.Equal(t, 15000, eda.Len())
}

func TestSeededRunsAreIdentical(t *testing.T) {
	a, err := Simulate(Relaxed, WithSeed(99), WithDuration(5))
	require.NoError(t, err)
	b, err := Simulate(Relaxed, WithSeed(99), WithDuration(5))
	require.NoError(t, err)

	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("seeded bundles differ (-a +b):\n%s", diff)
	}
	require.Equal(t, int64(99), a.Seed)
}

func TestUnseededDefaultsDiffer(t *testing.T) {
	require.NotEqual(t, DefaultEEGParams().Seed, DefaultEEGParams().Seed)
}

func TestParsePreset(t *testing.T) {
	p, err := ParsePreset("  Stressed ")
	require.NoError(t, err)
	require.Equal(t, Stressed, p)

	_, err = ParsePreset("sleepy")
	require.ErrorIs(t, err, ErrUnknownPreset)

	_, err = NewGenerator(nil).Simulate(Preset("sleepy"))
	require.ErrorIs(t, err, ErrUnknownPreset)
}

func TestPresetValuesStayInDocumentedRanges(t *testing.T) {
	for _, p := range Presets() {
		s, r := p.Settings(), p.Ranges()
		require.True(t, r.HeartRate.Contains(s.HeartRate), "%s heart rate %v outside %v", p, s.HeartRate, r.HeartRate)
		for _, f := range s.Frequencies {
			require.True(t, r.EEGBand.Contains(f), "%s frequency %v outside %v", p, f, r.EEGBand)
		}
		// SCR ranges are per minute; presets run for DefaultDuration.
		perMinute := float64(s.SCRNumber) / (DefaultDuration / 60)
		require.True(t, r.SCR.Contains(perMinute), "%s %.2g SCRs per minute outside %v", p, perMinute, r.SCR)
		require.NotEmpty(t, p.Description())
	}
}

func TestSettingsReturnsCopy(t *testing.T) {
	s := Relaxed.Settings()
	s.Frequencies[0] = 99
	require.Equal(t, []float64{10}, Relaxed.Settings().Frequencies)
}

func TestRangeString(t *testing.T) {
	require.Equal(t, "65-70", Range{Min: 65, Max: 70}.String())
	require.Equal(t, "90+", Range{Min: 90}.String())
}
