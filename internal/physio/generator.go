// Package physio produces synthetic ECG, EEG and EDA traces, either one
// modality at a time or bundled for a named mental state.
package physio

import (
	"github.com/synheart/synheart-physio/internal/synth"
)

// Synthesizer renders the three modalities. synth.Engine implements it.
type Synthesizer interface {
	ECG(p synth.ECGParams) (synth.Trace, error)
	EEG(p synth.EEGParams) (synth.Trace, error)
	EDA(p synth.EDAParams) (synth.Trace, error)
}

// Generator forwards parameters to a Synthesizer. It performs no range
// checks of its own: whatever the synthesizer rejects is returned to the
// caller as is.
type Generator struct {
	synth Synthesizer
}

// NewGenerator creates a generator backed by s, or by synth.Default when s
// is nil.
func NewGenerator(s Synthesizer) *Generator {
	if s == nil {
		s = synth.Default
	}
	return &Generator{synth: s}
}

var defaultGenerator = NewGenerator(nil)

// SimulateECG renders an electrocardiogram.
func (g *Generator) SimulateECG(p synth.ECGParams) (synth.Trace, error) {
	return g.synth.ECG(p)
}

// SimulateEEG renders an electroencephalogram. Frequencies are passed on in
// the order given.
func (g *Generator) SimulateEEG(p synth.EEGParams) (synth.Trace, error) {
	return g.synth.EEG(p)
}

// SimulateEDA renders electrodermal activity.
func (g *Generator) SimulateEDA(p synth.EDAParams) (synth.Trace, error) {
	return g.synth.EDA(p)
}

// SimulateECG renders an electrocardiogram with the default generator.
func SimulateECG(p synth.ECGParams) (synth.Trace, error) {
	return defaultGenerator.SimulateECG(p)
}

// SimulateEEG renders an electroencephalogram with the default generator.
func SimulateEEG(p synth.EEGParams) (synth.Trace, error) {
	return defaultGenerator.SimulateEEG(p)
}

// SimulateEDA renders electrodermal activity with the default generator.
func SimulateEDA(p synth.EDAParams) (synth.Trace, error) {
	return defaultGenerator.SimulateEDA(p)
}
