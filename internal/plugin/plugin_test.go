package plugin

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/synheart/synheart-physio/internal/physio"
	"github.com/synheart/synheart-physio/internal/synth"
)

var wasmHeader = []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

// doublerWasm exports process(x f64) f64 { return x + x }.
var doublerWasm = concat(wasmHeader,
	[]byte{0x01, 0x06, 0x01, 0x60, 0x01, 0x7c, 0x01, 0x7c}, // type (f64) -> f64
	[]byte{0x03, 0x02, 0x01, 0x00},                         // func 0 has type 0
	[]byte{0x07, 0x0b, 0x01, 0x07, 'p', 'r', 'o', 'c', 'e', 's', 's', 0x00, 0x00},
	[]byte{0x0a, 0x09, 0x01, 0x07, 0x00, 0x20, 0x00, 0x20, 0x00, 0xa0, 0x0b},
)

// offsetWasm exports memory, alloc(n) returning 1024 and
// process_block(ptr, n) adding 1.0 to each f64 in place.
var offsetWasm = concat(wasmHeader,
	[]byte{0x01, 0x0b, 0x02, 0x60, 0x01, 0x7f, 0x01, 0x7f, 0x60, 0x02, 0x7f, 0x7f, 0x00},
	[]byte{0x03, 0x03, 0x02, 0x00, 0x01},
	[]byte{0x05, 0x03, 0x01, 0x00, 0x01},
	[]byte{0x07, 0x22, 0x03,
		0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00,
		0x05, 'a', 'l', 'l', 'o', 'c', 0x00, 0x00,
		0x0d, 'p', 'r', 'o', 'c', 'e', 's', 's', '_', 'b', 'l', 'o', 'c', 'k', 0x00, 0x01,
	},
	[]byte{0x0a, 0x39, 0x02,
		0x05, 0x00, 0x41, 0x80, 0x08, 0x0b,
		0x31, 0x00,
		0x02, 0x40,
		0x03, 0x40,
		0x20, 0x01, 0x45, 0x0d, 0x01,
		0x20, 0x00, 0x20, 0x00, 0x2b, 0x03, 0x00,
		0x44, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0xf0, 0x3f,
		0xa0, 0x39, 0x03, 0x00,
		0x20, 0x00, 0x41, 0x08, 0x6a, 0x21, 0x00,
		0x20, 0x01, 0x41, 0x01, 0x6b, 0x21, 0x01,
		0x0c, 0x00,
		0x0b, 0x0b, 0x0b,
	},
)

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func trace(samples ...float64) synth.Trace {
	return synth.Trace{Modality: synth.ModalityEDA, Unit: "uS", SamplingRate: 250, Samples: samples}
}

func TestSampleFilter(t *testing.T) {
	ctx := context.Background()
	f, err := New(ctx, doublerWasm)
	require.NoError(t, err)
	defer f.Close(ctx)

	require.Equal(t, ModeSample, f.Mode())

	in := trace(0.5, -1.25, 3)
	out, err := f.Apply(ctx, in)
	require.NoError(t, err)
	require.Equal(t, []float64{1, -2.5, 6}, out.Samples)
	require.Equal(t, []float64{0.5, -1.25, 3}, in.Samples, "input must not be modified")
	require.Equal(t, in.SamplingRate, out.SamplingRate)
	require.Equal(t, in.Modality, out.Modality)
}

func TestBlockFilter(t *testing.T) {
	ctx := context.Background()
	f, err := New(ctx, offsetWasm)
	require.NoError(t, err)
	defer f.Close(ctx)

	require.Equal(t, ModeBlock, f.Mode())

	out, err := f.Apply(ctx, trace(0, 1.5, -2))
	require.NoError(t, err)
	require.Equal(t, []float64{1, 2.5, -1}, out.Samples)
}

func TestBlockFilterOutOfMemory(t *testing.T) {
	ctx := context.Background()
	f, err := New(ctx, offsetWasm)
	require.NoError(t, err)
	defer f.Close(ctx)

	// One page is 64 KiB; 10000 samples need 80000 bytes.
	_, err = f.Apply(ctx, trace(make([]float64, 10000)...))
	require.Error(t, err)
}

func TestEmptyTrace(t *testing.T) {
	ctx := context.Background()
	f, err := New(ctx, doublerWasm)
	require.NoError(t, err)
	defer f.Close(ctx)

	out, err := f.Apply(ctx, trace())
	require.NoError(t, err)
	require.NotNil(t, out.Samples)
	require.Empty(t, out.Samples)
}

func TestApplyBundle(t *testing.T) {
	ctx := context.Background()
	f, err := New(ctx, doublerWasm)
	require.NoError(t, err)
	defer f.Close(ctx)

	b := physio.Bundle{
		Preset: string(physio.Relaxed),
		ECG:    trace(1),
		EEG:    trace(2),
		EDA:    trace(3),
	}
	out, err := f.ApplyBundle(ctx, b)
	require.NoError(t, err)
	require.Equal(t, []float64{2}, out.ECG.Samples)
	require.Equal(t, []float64{4}, out.EEG.Samples)
	require.Equal(t, []float64{6}, out.EDA.Samples)
	require.Equal(t, "relaxed", out.Preset)
}

func TestNoEntryPoint(t *testing.T) {
	_, err := New(context.Background(), wasmHeader)
	require.True(t, errors.Is(err, ErrNoEntryPoint))
}

func TestInvalidModule(t *testing.T) {
	_, err := New(context.Background(), []byte("not wasm"))
	require.Error(t, err)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "double.wasm")
	require.NoError(t, os.WriteFile(path, doublerWasm, 0o644))

	ctx := context.Background()
	f, err := Load(ctx, path)
	require.NoError(t, err)
	defer f.Close(ctx)

	out, err := f.Apply(ctx, trace(21))
	require.NoError(t, err)
	require.Equal(t, []float64{42}, out.Samples)

	_, err = Load(ctx, filepath.Join(t.TempDir(), "missing.wasm"))
	require.Error(t, err)
}
