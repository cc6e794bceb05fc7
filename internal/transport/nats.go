package transport

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/synheart/synheart-physio/internal/encoding"
	"github.com/synheart/synheart-physio/internal/models"
)

// DefaultSubjectPrefix is prepended to the modality to form the subject.
const DefaultSubjectPrefix = "physio"

// Publisher is the subset of *nats.Conn used to emit chunks.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSPublisher publishes each chunk as a little-endian float32 batch on
// "<prefix>.<modality>".
type NATSPublisher struct {
	pub    Publisher
	prefix string
	conn   *nats.Conn
}

// ConnectNATS dials url with reconnects enabled forever.
func ConnectNATS(url string) (*nats.Conn, error) {
	return nats.Connect(
		url,
		nats.Name("synheart-physio"),
		nats.Timeout(3*time.Second),
		nats.ReconnectWait(500*time.Millisecond),
		nats.MaxReconnects(-1),
	)
}

// NewNATSPublisher dials url and returns a publisher using prefix (or
// DefaultSubjectPrefix when empty).
func NewNATSPublisher(url, prefix string) (*NATSPublisher, error) {
	nc, err := ConnectNATS(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats at %s: %w", url, err)
	}
	p := NewPublisherWith(nc, prefix)
	p.conn = nc
	return p, nil
}

// NewPublisherWith wraps an existing publisher.
func NewPublisherWith(pub Publisher, prefix string) *NATSPublisher {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &NATSPublisher{pub: pub, prefix: strings.TrimSuffix(prefix, ".")}
}

// Subject returns the subject a chunk of the given modality goes to.
func (p *NATSPublisher) Subject(modality string) string {
	return p.prefix + "." + modality
}

// Broadcast publishes the event samples. Empty chunks are skipped.
func (p *NATSPublisher) Broadcast(event models.Event) error {
	if len(event.Signal.Samples) == 0 {
		return nil
	}
	subject := p.Subject(event.Signal.Modality)
	if err := p.pub.Publish(subject, encoding.PackFloat32(event.Signal.Samples)); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// BroadcastFromChannel publishes events until ctx is done or events closes.
func (p *NATSPublisher) BroadcastFromChannel(ctx context.Context, events <-chan models.Event) error {
	return Pump(ctx, p, events)
}

// Close drains the connection when the publisher owns it.
func (p *NATSPublisher) Close() error {
	if p.conn == nil {
		return nil
	}
	return p.conn.Drain()
}
