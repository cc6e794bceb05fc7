package transport

import (
	"context"
	"log/slog"
	"strings"

	"github.com/synheart/synheart-physio/internal/ctxlog"
	"github.com/synheart/synheart-physio/internal/models"
)

// Broadcaster delivers one chunk event to every attached client.
type Broadcaster interface {
	Broadcast(event models.Event) error
}

// Pump reads events and hands each to b until ctx is cancelled or the
// channel closes. Broadcast errors are logged and do not stop the pump.
func Pump(ctx context.Context, b Broadcaster, events <-chan models.Event) error {
	logger := ctxlog.FromContext(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-events:
			if !ok {
				return nil
			}
			if err := b.Broadcast(event); err != nil {
				logger.Warn("broadcast failed", "event_id", event.EventID, "error", err)
			}
		}
	}
}

// modalityFilter parses a comma separated ?modality= value. A nil filter
// accepts every modality.
func modalityFilter(raw string) map[string]bool {
	if raw == "" {
		return nil
	}
	set := make(map[string]bool)
	for _, m := range strings.Split(raw, ",") {
		if m = strings.TrimSpace(strings.ToLower(m)); m != "" {
			set[m] = true
		}
	}
	if len(set) == 0 {
		return nil
	}
	return set
}

func accepts(filter map[string]bool, event models.Event) bool {
	return filter == nil || filter[event.Signal.Modality]
}

func loggerOr(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
