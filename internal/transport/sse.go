package transport

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/synheart/synheart-physio/internal/ctxlog"
	"github.com/synheart/synheart-physio/internal/encoding"
	"github.com/synheart/synheart-physio/internal/models"
)

// SSEPath is the Server-Sent Events endpoint.
const SSEPath = "/physio/sse"

const sseClientBuffer = 100

type sseClient struct {
	ch     chan []byte
	filter map[string]bool
}

// SSEServer broadcasts chunk events via Server-Sent Events. Non-JSON
// encodings are base64 encoded so each event stays on one data line.
type SSEServer struct {
	host    string
	port    int
	encoder encoding.Encoder
	clients map[*sseClient]bool
	mu      sync.RWMutex
	server  *http.Server
	logger  *slog.Logger
}

func NewSSEServer(host string, port int, encoder encoding.Encoder) *SSEServer {
	if encoder == nil {
		encoder = encoding.NewJSONEncoder()
	}
	return &SSEServer{
		host:    host,
		port:    port,
		encoder: encoder,
		clients: make(map[*sseClient]bool),
	}
}

// Handler returns the HTTP handler serving the event stream.
func (s *SSEServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(SSEPath, s.handleSSE)
	mux.HandleFunc("/", s.handleRoot)
	return mux
}

// Start serves until ctx is cancelled. Listen errors are returned
// immediately.
func (s *SSEServer) Start(ctx context.Context) error {
	s.logger = ctxlog.FromContext(ctx)
	s.server = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.host, s.port),
		Handler: s.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("sse server listening", "addr", s.GetAddress())
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		return s.Shutdown()
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("SSE server failed: %w", err)
		}
		return nil
	}
}

func (s *SSEServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintf(w, "Synheart Physio SSE\n\nEndpoint: %s\n", s.GetAddress())
}

func (s *SSEServer) handleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	client := &sseClient{
		ch:     make(chan []byte, sseClientBuffer),
		filter: modalityFilter(r.URL.Query().Get("modality")),
	}
	s.addClient(client)
	defer s.removeClient(client)

	loggerOr(s.logger).Info("sse client connected", "remote", r.RemoteAddr, "clients", s.GetClientCount())

	for {
		select {
		case <-r.Context().Done():
			return
		case data, ok := <-client.ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}

func (s *SSEServer) addClient(c *sseClient) {
	s.mu.Lock()
	s.clients[c] = true
	s.mu.Unlock()
}

func (s *SSEServer) removeClient(c *sseClient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.clients[c]; exists {
		delete(s.clients, c)
		close(c.ch)
		loggerOr(s.logger).Info("sse client disconnected", "clients", len(s.clients))
	}
}

// Broadcast queues an event for every matching client. Clients with a full
// buffer miss the event.
func (s *SSEServer) Broadcast(event models.Event) error {
	if s.GetClientCount() == 0 {
		return nil
	}

	data, err := s.encoder.Encode(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	if s.encoder.ContentType() != "application/json" {
		data = []byte(base64.StdEncoding.EncodeToString(data))
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for c := range s.clients {
		if !accepts(c.filter, event) {
			continue
		}
		select {
		case c.ch <- data:
		default:
		}
	}
	return nil
}

// BroadcastFromChannel reads events and broadcasts them
func (s *SSEServer) BroadcastFromChannel(ctx context.Context, events <-chan models.Event) error {
	return Pump(ctx, s, events)
}

func (s *SSEServer) GetClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Shutdown gracefully stops the server
func (s *SSEServer) Shutdown() error {
	s.mu.Lock()
	for c := range s.clients {
		close(c.ch)
	}
	s.clients = make(map[*sseClient]bool)
	s.mu.Unlock()

	if s.server != nil {
		return s.server.Close()
	}
	return nil
}

func (s *SSEServer) GetAddress() string {
	return fmt.Sprintf("http://%s:%d%s", s.host, s.port, SSEPath)
}
