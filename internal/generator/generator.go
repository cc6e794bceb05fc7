// Package generator turns a simulated bundle into a paced stream of chunk
// events, as a device would deliver them.
package generator

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/synheart/synheart-physio/internal/models"
	"github.com/synheart/synheart-physio/internal/physio"
	"github.com/synheart/synheart-physio/internal/synth"
)

// DefaultChunkDuration is the amount of signal time carried by one event.
const DefaultChunkDuration = 100 * time.Millisecond

// Config holds streamer configuration
type Config struct {
	RunID         string        // generated when empty
	ChunkDuration time.Duration // signal time per chunk
	Loop          bool          // restart from the beginning when exhausted
}

// Streamer slices the traces of a bundle into chunk events.
type Streamer struct {
	bundle   physio.Bundle
	chunk    time.Duration
	loop     bool
	runID    string
	sequence int64
	position time.Duration
}

// NewStreamer creates a streamer over b.
func NewStreamer(b physio.Bundle, config Config) *Streamer {
	chunk := config.ChunkDuration
	if chunk <= 0 {
		chunk = DefaultChunkDuration
	}
	runID := config.RunID
	if runID == "" {
		runID = uuid.New().String()
	}
	return &Streamer{
		bundle: b,
		chunk:  chunk,
		loop:   config.Loop,
		runID:  runID,
	}
}

// TickInterval is the wall-clock period between chunks for a playback
// speed multiplier.
func TickInterval(chunk time.Duration, speed float64) time.Duration {
	if chunk <= 0 {
		chunk = DefaultChunkDuration
	}
	if speed <= 0 {
		speed = 1
	}
	return time.Duration(float64(chunk) / speed)
}

// Generate emits one chunk per modality on every tick until the traces are
// exhausted (unless looping) or ctx is cancelled.
func (s *Streamer) Generate(ctx context.Context, ticker *time.Ticker, output chan<- models.Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			events := s.nextChunk()
			if len(events) == 0 {
				if !s.loop || s.bundleEmpty() {
					return nil
				}
				s.position = 0
				events = s.nextChunk()
			}

			for _, event := range events {
				select {
				case output <- event:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	}
}

// Chunks returns every chunk of one pass over the bundle without pacing.
func (s *Streamer) Chunks() []models.Event {
	var all []models.Event
	for {
		events := s.nextChunk()
		if len(events) == 0 {
			return all
		}
		all = append(all, events...)
	}
}

// nextChunk cuts the window [position, position+chunk) out of every trace.
func (s *Streamer) nextChunk() []models.Event {
	from, to := s.position, s.position+s.chunk
	var events []models.Event

	for _, trace := range s.bundle.Traces() {
		start := sampleIndex(from, trace.SamplingRate)
		end := min(sampleIndex(to, trace.SamplingRate), trace.Len())
		if start >= end {
			continue
		}
		events = append(events, s.createEvent(trace, start, end))
	}

	s.position = to
	return events
}

// createEvent creates a single event
func (s *Streamer) createEvent(trace synth.Trace, start, end int) models.Event {
	s.sequence++

	signal := models.Signal{
		Modality:     string(trace.Modality),
		Unit:         trace.Unit,
		SamplingRate: trace.SamplingRate,
		Offset:       start,
		Samples:      trace.Samples[start:end],
	}

	session := models.Session{
		RunID:  s.runID,
		Preset: s.bundle.Preset,
		Seed:   s.bundle.Seed,
	}

	event := models.NewEvent(uuid.New().String(), session, signal, s.sequence)
	event.Meta.Final = end == trace.Len()
	return event
}

func (s *Streamer) bundleEmpty() bool {
	for _, t := range s.bundle.Traces() {
		if t.Len() > 0 {
			return false
		}
	}
	return true
}

func sampleIndex(at time.Duration, samplingRate int) int {
	return int(int64(at) * int64(samplingRate) / int64(time.Second))
}

// GetRunID returns the current run ID
func (s *Streamer) GetRunID() string {
	return s.runID
}
