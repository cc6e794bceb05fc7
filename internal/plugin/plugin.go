// Package plugin runs user supplied WebAssembly sample filters over
// synthesized traces.
//
// A filter module exports either
//
//	process(f64) f64                      applied to every sample, or
//	alloc(i32) i32 + process_block(i32, i32)
//
// where process_block rewrites n little-endian f64 samples in place at the
// pointer returned by alloc. An optional reset(i32) export receives the
// sampling rate before each trace so stateful filters can start clean. An
// optional dealloc(i32, i32) releases the block.
package plugin

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	"github.com/synheart/synheart-physio/internal/physio"
	"github.com/synheart/synheart-physio/internal/synth"
)

// Mode names the calling convention a module was loaded with.
type Mode string

const (
	ModeSample Mode = "sample"
	ModeBlock  Mode = "block"
)

// ErrNoEntryPoint is returned when a module exports neither process nor
// alloc/process_block.
var ErrNoEntryPoint = errors.New("wasm module exports neither process nor alloc/process_block")

// Filter is a compiled and instantiated filter module. It is safe for
// concurrent use; calls are serialized.
type Filter struct {
	runtime wazero.Runtime
	module  api.Module
	mode    Mode

	process api.Function
	block   api.Function
	alloc   api.Function
	dealloc api.Function
	reset   api.Function

	mu sync.Mutex
}

// Load reads and instantiates the module at path.
func Load(ctx context.Context, path string) (*Filter, error) {
	wasmBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read wasm file: %w", err)
	}
	return New(ctx, wasmBytes)
}

// New instantiates a filter from module bytes.
func New(ctx context.Context, wasmBytes []byte) (*Filter, error) {
	r := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfig().WithCloseOnContextDone(true))

	// Modules built by TinyGo or Rust for wasm32-wasi import WASI.
	wasi_snapshot_preview1.MustInstantiate(ctx, r)

	compiled, err := r.CompileModule(ctx, wasmBytes)
	if err != nil {
		r.Close(ctx)
		return nil, fmt.Errorf("failed to compile wasm module: %w", err)
	}

	mod, err := r.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithStdout(os.Stderr).WithStderr(os.Stderr))
	if err != nil {
		r.Close(ctx)
		return nil, fmt.Errorf("failed to instantiate wasm module: %w", err)
	}

	f := &Filter{
		runtime: r,
		module:  mod,
		process: mod.ExportedFunction("process"),
		block:   mod.ExportedFunction("process_block"),
		alloc:   mod.ExportedFunction("alloc"),
		dealloc: mod.ExportedFunction("dealloc"),
		reset:   mod.ExportedFunction("reset"),
	}
	switch {
	case f.block != nil && f.alloc != nil && mod.Memory() != nil:
		f.mode = ModeBlock
	case f.process != nil:
		f.mode = ModeSample
	default:
		r.Close(ctx)
		return nil, ErrNoEntryPoint
	}
	return f, nil
}

// Mode reports which calling convention is in use.
func (f *Filter) Mode() Mode { return f.mode }

// Close releases the runtime and its module.
func (f *Filter) Close(ctx context.Context) error {
	return f.runtime.Close(ctx)
}

// Apply returns a copy of tr with every sample passed through the module.
// The input trace is not modified.
func (f *Filter) Apply(ctx context.Context, tr synth.Trace) (synth.Trace, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := tr
	out.Samples = make([]float64, len(tr.Samples))
	copy(out.Samples, tr.Samples)
	if len(out.Samples) == 0 {
		return out, nil
	}

	if f.reset != nil {
		if _, err := f.reset.Call(ctx, uint64(uint32(tr.SamplingRate))); err != nil {
			return synth.Trace{}, fmt.Errorf("failed to call reset: %w", err)
		}
	}

	var err error
	if f.mode == ModeBlock {
		err = f.applyBlock(ctx, out.Samples)
	} else {
		err = f.applySample(ctx, out.Samples)
	}
	if err != nil {
		return synth.Trace{}, fmt.Errorf("%s filter on %s: %w", f.mode, tr.Modality, err)
	}
	return out, nil
}

// ApplyBundle filters all three traces of b.
func (f *Filter) ApplyBundle(ctx context.Context, b physio.Bundle) (physio.Bundle, error) {
	var err error
	if b.ECG, err = f.Apply(ctx, b.ECG); err != nil {
		return physio.Bundle{}, err
	}
	if b.EEG, err = f.Apply(ctx, b.EEG); err != nil {
		return physio.Bundle{}, err
	}
	if b.EDA, err = f.Apply(ctx, b.EDA); err != nil {
		return physio.Bundle{}, err
	}
	return b, nil
}

func (f *Filter) applySample(ctx context.Context, samples []float64) error {
	for i, v := range samples {
		results, err := f.process.Call(ctx, api.EncodeF64(v))
		if err != nil {
			return fmt.Errorf("process sample %d: %w", i, err)
		}
		if len(results) != 1 {
			return fmt.Errorf("process returned %d values, expected 1", len(results))
		}
		samples[i] = api.DecodeF64(results[0])
	}
	return nil
}

func (f *Filter) applyBlock(ctx context.Context, samples []float64) error {
	size := uint32(len(samples) * 8)
	results, err := f.alloc.Call(ctx, uint64(size))
	if err != nil {
		return fmt.Errorf("alloc failed: %w", err)
	}
	ptr := uint32(results[0])
	if f.dealloc != nil {
		defer f.dealloc.Call(ctx, uint64(ptr), uint64(size))
	}

	mem := f.module.Memory()
	for i, v := range samples {
		if !mem.WriteFloat64Le(ptr+uint32(i*8), v) {
			return fmt.Errorf("failed to write %d samples at %d: out of guest memory", len(samples), ptr)
		}
	}

	if _, err := f.block.Call(ctx, uint64(ptr), uint64(len(samples))); err != nil {
		return fmt.Errorf("process_block failed: %w", err)
	}

	for i := range samples {
		v, ok := mem.ReadFloat64Le(ptr + uint32(i*8))
		if !ok {
			return fmt.Errorf("failed to read sample %d from memory at %d", i, ptr)
		}
		samples[i] = v
	}
	return nil
}
