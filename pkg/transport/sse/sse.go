// Package sse provides the deprecated HTTP+SSE transport binding for MCP.
//
// A client opens a long-lived GET stream on /sse, learns the message
// endpoint from the first event, and POSTs JSON-RPC messages to it. All
// server-to-client traffic travels over the event stream. Kept for older
// clients; new deployments should use the streamable HTTP binding.
package sse

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gps-prasad/aws-okta-mcp-server/internal/logging"
	"github.com/gps-prasad/aws-okta-mcp-server/pkg/protocol"
)

// Endpoint paths of the legacy binding.
const (
	StreamPath  = "/sse"
	MessagePath = "/messages"
)

// ConnectFunc wires a fresh per-session transport into the MCP server and
// returns the created session.
type ConnectFunc func(protocol.Transport) *protocol.Session

// Server accepts legacy SSE connections.
type Server struct {
	addr    string
	connect ConnectFunc
	logger  *slog.Logger

	httpServer *http.Server

	sessions   map[string]*sessionTransport
	sessionMux sync.RWMutex
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a legacy SSE server listening on addr.
func NewServer(addr string, connect ConnectFunc, options ...ServerOption) *Server {
	s := &Server{
		addr:     addr,
		connect:  connect,
		sessions: make(map[string]*sessionTransport),
	}
	for _, option := range options {
		option(s)
	}

	mux := http.NewServeMux()
	mux.HandleFunc(StreamPath, s.handleStream)
	mux.HandleFunc(MessagePath, s.handleMessage)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start runs the HTTP listener until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logging.Info(s.logger, "SSE transport listening", slog.String("addr", s.addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return s.Shutdown()
	}
}

// Shutdown stops the listener and closes all session transports.
func (s *Server) Shutdown() error {
	s.sessionMux.Lock()
	for id, transport := range s.sessions {
		_ = transport.Close()
		delete(s.sessions, id)
	}
	s.sessionMux.Unlock()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

// handleStream serves the long-lived event stream. The first event tells
// the client where to POST its messages.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	transport := newSessionTransport()
	session := s.connect(transport)
	transport.sessionID = session.ID

	s.sessionMux.Lock()
	s.sessions[session.ID] = transport
	s.sessionMux.Unlock()

	defer func() {
		s.sessionMux.Lock()
		delete(s.sessions, session.ID)
		s.sessionMux.Unlock()
		_ = transport.Close()
	}()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	fmt.Fprintf(w, "event: endpoint\ndata: %s?sessionId=%s\n\n", MessagePath, session.ID)
	flusher.Flush()

	logging.Debug(s.logger, "SSE stream opened", slog.String("sessionID", session.ID))

	for {
		select {
		case <-r.Context().Done():
			logging.Debug(s.logger, "SSE stream closed", slog.String("sessionID", session.ID))
			return
		case <-transport.done:
			return
		case data, open := <-transport.outgoing:
			if !open {
				return
			}
			fmt.Fprintf(w, "event: message\ndata: %s\n\n", data)
			flusher.Flush()
		}
	}
}

// handleMessage accepts a posted JSON-RPC message for an open stream. The
// reply arrives on the stream, so the POST only acknowledges receipt.
func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		http.Error(w, "missing sessionId parameter", http.StatusBadRequest)
		return
	}

	s.sessionMux.RLock()
	transport, exists := s.sessions[sessionID]
	s.sessionMux.RUnlock()
	if !exists {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "error reading request body", http.StatusBadRequest)
		return
	}

	transport.deliver(body)
	w.WriteHeader(http.StatusAccepted)
}

// sessionTransport bridges one SSE stream onto the Transport interface.
type sessionTransport struct {
	sessionID string

	incoming chan []byte
	outgoing chan []byte
	done     chan struct{}

	closeOnce sync.Once
}

func newSessionTransport() *sessionTransport {
	return &sessionTransport{
		incoming: make(chan []byte, 16),
		outgoing: make(chan []byte, 16),
		done:     make(chan struct{}),
	}
}

func (t *sessionTransport) deliver(data []byte) {
	select {
	case t.incoming <- data:
	case <-t.done:
	}
}

// Send queues a message for the event stream.
func (t *sessionTransport) Send(ctx context.Context, data []byte) error {
	select {
	case t.outgoing <- data:
		return nil
	case <-t.done:
		return protocol.ErrTransportClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Receive blocks until the next posted message arrives.
func (t *sessionTransport) Receive(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-t.done:
		return nil, protocol.ErrTransportClosed
	case data := <-t.incoming:
		return data, nil
	}
}

// Close closes the transport connection.
func (t *sessionTransport) Close() error {
	t.closeOnce.Do(func() { close(t.done) })
	return nil
}
