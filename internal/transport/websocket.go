package transport

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/synheart/synheart-physio/internal/ctxlog"
	"github.com/synheart/synheart-physio/internal/encoding"
	"github.com/synheart/synheart-physio/internal/models"
)

// WebSocketPath is the endpoint chunk streams are served on.
const WebSocketPath = "/physio"

const writeTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

type wsClient struct {
	conn   *websocket.Conn
	filter map[string]bool
	mu     sync.Mutex
}

func (c *wsClient) write(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(messageType, data)
}

// WebSocketServer broadcasts chunk events to WebSocket clients. Clients
// may restrict the stream with ?modality=ecg,eda.
type WebSocketServer struct {
	host    string
	port    int
	encoder encoding.Encoder
	clients map[*wsClient]bool
	mu      sync.RWMutex
	server  *http.Server
	logger  *slog.Logger
}

func NewWebSocketServer(host string, port int, encoder encoding.Encoder) *WebSocketServer {
	if encoder == nil {
		encoder = encoding.NewJSONEncoder()
	}
	return &WebSocketServer{
		host:    host,
		port:    port,
		encoder: encoder,
		clients: make(map[*wsClient]bool),
	}
}

// Handler returns the HTTP handler serving the WebSocket and info endpoints.
func (s *WebSocketServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(WebSocketPath, s.handleWebSocket)
	mux.HandleFunc("/", s.handleRoot)
	return mux
}

// Start serves until ctx is cancelled.
func (s *WebSocketServer) Start(ctx context.Context) error {
	s.logger = ctxlog.FromContext(ctx)
	s.server = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.host, s.port),
		Handler: s.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("websocket server listening", "addr", s.GetAddress())
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
			return fmt.Errorf("websocket server failed: %w", err)
		}
		return nil
	}
}

func (s *WebSocketServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintf(w, "Synheart Physio Stream\n\n")
	fmt.Fprintf(w, "WebSocket endpoint: %s\n", s.GetAddress())
	fmt.Fprintf(w, "Encoding: %s\n", s.encoder.ContentType())
	fmt.Fprintf(w, "Connected clients: %d\n", s.GetClientCount())
}

func (s *WebSocketServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	logger := loggerOr(s.logger)
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	client := &wsClient{conn: conn, filter: modalityFilter(r.URL.Query().Get("modality"))}

	s.mu.Lock()
	s.clients[client] = true
	clientCount := len(s.clients)
	s.mu.Unlock()

	logger.Info("websocket client connected", "remote", r.RemoteAddr, "clients", clientCount)

	defer func() {
		s.mu.Lock()
		delete(s.clients, client)
		clientCount := len(s.clients)
		s.mu.Unlock()

		conn.Close()
		logger.Info("websocket client disconnected", "remote", r.RemoteAddr, "clients", clientCount)
	}()

	// Reads only detect disconnects; clients do not send commands.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Broadcast sends an event to every connected client whose filter accepts it.
func (s *WebSocketServer) Broadcast(event models.Event) error {
	if s.GetClientCount() == 0 {
		return nil
	}

	data, err := s.encoder.Encode(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	messageType := websocket.BinaryMessage
	if s.encoder.ContentType() == "application/json" {
		messageType = websocket.TextMessage
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for client := range s.clients {
		if !accepts(client.filter, event) {
			continue
		}
		if err := client.write(messageType, data); err != nil {
			// The read loop removes the client.
			loggerOr(s.logger).Debug("websocket write failed", "error", err)
		}
	}
	return nil
}

// BroadcastFromChannel reads events from a channel and broadcasts them
func (s *WebSocketServer) BroadcastFromChannel(ctx context.Context, events <-chan models.Event) error {
	return Pump(ctx, s, events)
}

func (s *WebSocketServer) GetClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Shutdown closes every client and stops the HTTP server.
func (s *WebSocketServer) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.mu.Lock()
	for client := range s.clients {
		client.conn.Close()
	}
	s.clients = make(map[*wsClient]bool)
	s.mu.Unlock()

	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *WebSocketServer) GetAddress() string {
	return fmt.Sprintf("ws://%s:%d%s", s.host, s.port, WebSocketPath)
}
