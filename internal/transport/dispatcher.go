package transport

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/synheart/synheart-physio/internal/ctxlog"
	"github.com/synheart/synheart-physio/internal/models"
)

// Dispatcher copies chunk events from one source to multiple subscribers.
// When a subscriber's buffer is full the event is dropped for that
// subscriber so a slow client never stalls the stream.
type Dispatcher struct {
	source       <-chan models.Event
	subscribers  []subscription
	bufferSize   int
	mu           sync.Mutex
	droppedTotal atomic.Int64
}

type subscription struct {
	ch   chan models.Event
	keep func(models.Event) bool
}

func NewDispatcher(source <-chan models.Event, bufferSize int) *Dispatcher {
	return &Dispatcher{
		source:     source,
		bufferSize: bufferSize,
	}
}

// Subscribe returns a channel that receives copies of all source events.
// Subscribers should be added before calling Run() to ensure they receive all events.
func (d *Dispatcher) Subscribe() <-chan models.Event {
	return d.SubscribeFunc(nil)
}

// SubscribeModality returns a channel that only receives chunks of the
// given modalities. No modalities means all of them.
func (d *Dispatcher) SubscribeModality(modalities ...string) <-chan models.Event {
	if len(modalities) == 0 {
		return d.Subscribe()
	}
	set := make(map[string]bool, len(modalities))
	for _, m := range modalities {
		set[m] = true
	}
	return d.SubscribeFunc(func(e models.Event) bool {
		return set[e.Signal.Modality]
	})
}

// SubscribeFunc returns a channel receiving the events for which keep
// returns true. A nil keep accepts everything.
func (d *Dispatcher) SubscribeFunc(keep func(models.Event) bool) <-chan models.Event {
	ch := make(chan models.Event, d.bufferSize)
	d.mu.Lock()
	d.subscribers = append(d.subscribers, subscription{ch: ch, keep: keep})
	d.mu.Unlock()
	return ch
}

// GetSubscriberCount returns the current number of active subscribers.
func (d *Dispatcher) GetSubscriberCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.subscribers)
}

// GetDroppedCount returns the total number of events that were dropped
// due to subscriber buffers being full.
func (d *Dispatcher) GetDroppedCount() int64 {
	return d.droppedTotal.Load()
}

// Run blocks until ctx is cancelled or source closes
func (d *Dispatcher) Run(ctx context.Context) {
	defer d.closeSubscribers()
	logger := ctxlog.FromContext(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-d.source:
			if !ok {
				return
			}
			d.dispatch(ctx, logger, event)
		}
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, logger *slog.Logger, event models.Event) {
	d.mu.Lock()
	subs := d.subscribers
	d.mu.Unlock()

	dropped := 0
	for _, sub := range subs {
		if sub.keep != nil && !sub.keep(event) {
			continue
		}
		select {
		case sub.ch <- event:
		case <-ctx.Done():
			return
		default:
			dropped++
			d.droppedTotal.Add(1)
		}
	}

	if dropped > 0 {
		logger.Warn("dispatcher dropped chunk", "event_id", event.EventID, "modality", event.Signal.Modality, "subscribers", dropped)
	}
}

func (d *Dispatcher) closeSubscribers() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, sub := range d.subscribers {
		close(sub.ch)
	}
}
