package recorder

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/synheart/synheart-physio/internal/generator"
	"github.com/synheart/synheart-physio/internal/models"
	"github.com/synheart/synheart-physio/internal/physio"
)

func recordBundle(t *testing.T, seconds float64) (string, []models.Event) {
	t.Helper()

	b, err := physio.Simulate(physio.Relaxed, physio.WithSeed(8), physio.WithDuration(seconds))
	if err != nil {
		t.Fatalf("simulate failed: %v", err)
	}
	events := generator.NewStreamer(b, generator.Config{ChunkDuration: 100 * time.Millisecond}).Chunks()

	path := filepath.Join(t.TempDir(), "session.ndjson")
	rec, err := NewRecorder(path)
	if err != nil {
		t.Fatalf("failed to create recorder: %v", err)
	}

	ch := make(chan models.Event, len(events))
	for _, e := range events {
		ch <- e
	}
	close(ch)

	if err := rec.RecordFromChannel(context.Background(), ch, nil); err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if rec.Count() != len(events) {
		t.Errorf("recorded %d events, want %d", rec.Count(), len(events))
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	return path, events
}

func TestRecordAndReplay(t *testing.T) {
	path, events := recordBundle(t, 0.5)

	rep := NewReplayer(path, 0, false)
	count, err := rep.CountEvents()
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != len(events) {
		t.Errorf("CountEvents = %d, want %d", count, len(events))
	}

	first, err := rep.GetFirstEvent()
	if err != nil {
		t.Fatalf("first event failed: %v", err)
	}
	if first.Session.Preset != "relaxed" || first.Session.Seed != 8 {
		t.Errorf("unexpected first session: %+v", first.Session)
	}

	out := make(chan models.Event, len(events))
	if err := rep.Replay(context.Background(), out); err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	close(out)

	i := 0
	for e := range out {
		if e.EventID != events[i].EventID {
			t.Errorf("event %d: id %s, want %s", i, e.EventID, events[i].EventID)
		}
		i++
	}
	if i != len(events) {
		t.Errorf("replayed %d events, want %d", i, len(events))
	}
}

func TestReplayPacesBySignalTime(t *testing.T) {
	path, _ := recordBundle(t, 0.3)

	out := make(chan models.Event, 100)
	start := time.Now()
	if err := NewReplayer(path, 2.0, false).Replay(context.Background(), out); err != nil {
		t.Fatalf("replay failed: %v", err)
	}

	// The last chunk starts at 200ms of signal time, 100ms at double speed.
	if elapsed := time.Since(start); elapsed < 90*time.Millisecond {
		t.Errorf("replay finished after %v, expected pacing of ~100ms", elapsed)
	}
}

func TestReplayCancelled(t *testing.T) {
	path, _ := recordBundle(t, 2)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	out := make(chan models.Event, 100)
	err := NewReplayer(path, 1.0, true).Replay(ctx, out)
	if err != context.DeadlineExceeded {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestReplayMissingFile(t *testing.T) {
	rep := NewReplayer(filepath.Join(t.TempDir(), "missing.ndjson"), 1, false)
	if _, err := rep.CountEvents(); err == nil {
		t.Error("expected error for missing file")
	}
}
