package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/synheart/synheart-physio/internal/ctxlog"
	"github.com/synheart/synheart-physio/internal/encoding"
	"github.com/synheart/synheart-physio/internal/models"
)

// UDPServer sends one datagram per chunk event to every registered
// client. Clients register by sending "subscribe" (optionally
// "subscribe ecg,eda") and leave with "unsubscribe".
type UDPServer struct {
	host    string
	port    int
	encoder encoding.Encoder
	conn    *net.UDPConn
	clients map[string]udpClient
	mu      sync.RWMutex
	ready   chan struct{}
	logger  *slog.Logger
}

type udpClient struct {
	addr   *net.UDPAddr
	filter map[string]bool
}

func NewUDPServer(host string, port int, encoder encoding.Encoder) *UDPServer {
	if encoder == nil {
		encoder = encoding.NewJSONEncoder()
	}
	return &UDPServer{
		host:    host,
		port:    port,
		encoder: encoder,
		clients: make(map[string]udpClient),
		ready:   make(chan struct{}),
	}
}

// Start listens until ctx is cancelled.
func (s *UDPServer) Start(ctx context.Context) error {
	s.logger = ctxlog.FromContext(ctx)
	addr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", s.host, s.port))
	if err != nil {
		return fmt.Errorf("failed to resolve address: %w", err)
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	close(s.ready)

	s.logger.Info("udp server listening", "addr", s.GetAddress())

	go s.readLoop(ctx, conn)

	<-ctx.Done()
	return s.Shutdown()
}

// Ready is closed once the socket is bound.
func (s *UDPServer) Ready() <-chan struct{} {
	return s.ready
}

// readLoop listens for client registration packets
func (s *UDPServer) readLoop(ctx context.Context, conn *net.UDPConn) {
	buf := make([]byte, 1024)
	for {
		select {
		case <-ctx.Done():
			return
		default:
			conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
			n, addr, err := conn.ReadFromUDP(buf)
			if err != nil {
				if errors.Is(err, net.ErrClosed) {
					return
				}
				continue
			}
			s.handleMessage(string(buf[:n]), addr)
		}
	}
}

func (s *UDPServer) handleMessage(msg string, addr *net.UDPAddr) {
	key := addr.String()
	cmd, arg, _ := strings.Cut(strings.TrimSpace(msg), " ")

	s.mu.Lock()
	defer s.mu.Unlock()

	switch cmd {
	case "subscribe":
		s.clients[key] = udpClient{addr: addr, filter: modalityFilter(arg)}
		loggerOr(s.logger).Info("udp client subscribed", "remote", key, "clients", len(s.clients))
	case "unsubscribe":
		delete(s.clients, key)
		loggerOr(s.logger).Info("udp client unsubscribed", "remote", key, "clients", len(s.clients))
	default:
		// Any other datagram registers the sender for every modality.
		if _, exists := s.clients[key]; !exists {
			s.clients[key] = udpClient{addr: addr}
			loggerOr(s.logger).Info("udp client registered", "remote", key, "clients", len(s.clients))
		}
	}
}

// Broadcast sends an event to all registered clients
func (s *UDPServer) Broadcast(event models.Event) error {
	if s.GetClientCount() == 0 {
		return nil
	}

	data, err := s.encoder.Encode(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.conn == nil {
		return nil
	}

	for key, c := range s.clients {
		if !accepts(c.filter, event) {
			continue
		}
		if _, err := s.conn.WriteToUDP(data, c.addr); err != nil {
			loggerOr(s.logger).Debug("udp write failed", "remote", key, "error", err)
		}
	}
	return nil
}

// BroadcastFromChannel reads events and broadcasts them
func (s *UDPServer) BroadcastFromChannel(ctx context.Context, events <-chan models.Event) error {
	return Pump(ctx, s, events)
}

func (s *UDPServer) GetClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Shutdown closes the UDP connection
func (s *UDPServer) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		err := s.conn.Close()
		s.conn = nil
		return err
	}
	return nil
}

func (s *UDPServer) GetAddress() string {
	return fmt.Sprintf("udp://%s:%d", s.host, s.port)
}
