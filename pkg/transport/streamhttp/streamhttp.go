// Package streamhttp provides the streamable HTTP transport binding for MCP.
//
// Clients POST JSON-RPC messages to a single endpoint and read the response
// from an SSE-framed stream on the same request. Sessions are correlated
// through the Mcp-Session-Id header: the initialize response assigns one,
// every later request must carry it.
package streamhttp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gps-prasad/aws-okta-mcp-server/internal/logging"
	"github.com/gps-prasad/aws-okta-mcp-server/pkg/protocol"
)

// SessionIDHeader carries the session correlation ID on every request and
// on the initialize response.
const SessionIDHeader = "Mcp-Session-Id"

// DefaultEndpoint is the single MCP endpoint path.
const DefaultEndpoint = "/mcp"

// ConnectFunc wires a fresh per-session transport into the MCP server and
// returns the created session.
type ConnectFunc func(protocol.Transport) *protocol.Session

// Server accepts streamable HTTP connections and bridges them onto
// per-session Transport instances.
type Server struct {
	addr     string
	endpoint string
	connect  ConnectFunc
	logger   *slog.Logger

	httpServer *http.Server

	sessions   map[string]*sessionTransport
	sessionMux sync.RWMutex
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithEndpoint overrides the default /mcp endpoint path.
func WithEndpoint(path string) ServerOption {
	return func(s *Server) {
		s.endpoint = path
	}
}

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a streamable HTTP server listening on addr.
func NewServer(addr string, connect ConnectFunc, options ...ServerOption) *Server {
	s := &Server{
		addr:     addr,
		endpoint: DefaultEndpoint,
		connect:  connect,
		sessions: make(map[string]*sessionTransport),
	}
	for _, option := range options {
		option(s)
	}

	mux := http.NewServeMux()
	mux.HandleFunc(s.endpoint, s.handleMCP)
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
		logging.Info(s.logger, "streamable HTTP transport listening",
			slog.String("addr", s.addr), slog.String("endpoint", s.endpoint))
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

func (s *Server) handleMCP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handlePost(w, r)
	case http.MethodDelete:
		s.handleDelete(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "error reading request body", http.StatusBadRequest)
		return
	}

	var message protocol.JSONRPCMessage
	if err := json.Unmarshal(body, &message); err != nil {
		http.Error(w, "invalid JSON-RPC payload", http.StatusBadRequest)
		return
	}

	transport, isNew, err := s.resolveSession(r, &message)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if isNew {
		w.Header().Set(SessionIDHeader, transport.sessionID)
	}

	if message.IsNotification() {
		transport.deliver(body)
		w.WriteHeader(http.StatusAccepted)
		return
	}

	// One response stream at a time per session: requests on one session
	// execute in order, so the next stream only starts once this response
	// is on the wire.
	transport.requestMux.Lock()
	defer transport.requestMux.Unlock()

	transport.deliver(body)
	s.streamResponse(w, r, transport, message.ID)
}

// streamResponse writes the SSE-framed event stream for one request:
// notifications raised while the call runs, then the final response.
func (s *Server) streamResponse(w http.ResponseWriter, r *http.Request, transport *sessionTransport, requestID json.RawMessage) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	for {
		select {
		case <-r.Context().Done():
			// Client dropped the POST mid-call: abort the dispatched work
			// instead of letting the adapter call run headless.
			transport.cancelRequest(requestID)
			return
		case <-transport.done:
			return
		case data, open := <-transport.outgoing:
			if !open {
				return
			}

			var out protocol.JSONRPCMessage
			if err := json.Unmarshal(data, &out); err != nil {
				continue
			}
			// A response left behind by an abandoned request must not leak
			// onto this stream.
			if out.Method == "" && string(out.ID) != string(requestID) {
				continue
			}

			fmt.Fprintf(w, "event: message\ndata: %s\n\n", data)
			flusher.Flush()

			// The response that answers this POST ends the stream.
			if out.Method == "" {
				return
			}
		}
	}
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	sessionID := r.Header.Get(SessionIDHeader)
	if sessionID == "" {
		http.Error(w, "missing session ID", http.StatusBadRequest)
		return
	}

	s.sessionMux.Lock()
	transport, exists := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.sessionMux.Unlock()

	if !exists {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	logging.Debug(s.logger, "session terminated by client", slog.String("sessionID", sessionID))
	_ = transport.Close()
	w.WriteHeader(http.StatusNoContent)
}

// resolveSession finds the session transport for a request, creating one
// when the request is an initialize without a session header.
func (s *Server) resolveSession(r *http.Request, message *protocol.JSONRPCMessage) (*sessionTransport, bool, error) {
	sessionID := r.Header.Get(SessionIDHeader)
	if sessionID != "" {
		s.sessionMux.RLock()
		transport, exists := s.sessions[sessionID]
		s.sessionMux.RUnlock()
		if !exists {
			return nil, false, fmt.Errorf("unknown session: %s", sessionID)
		}
		return transport, false, nil
	}

	if message.Method != "initialize" {
		return nil, false, fmt.Errorf("missing %s header", SessionIDHeader)
	}

	transport := newSessionTransport()
	session := s.connect(transport)
	transport.sessionID = session.ID

	s.sessionMux.Lock()
	s.sessions[session.ID] = transport
	s.sessionMux.Unlock()

	logging.Debug(s.logger, "session transport created", slog.String("sessionID", session.ID))
	return transport, true, nil
}

// sessionTransport is the per-session Transport bridged by the HTTP server.
// The dispatcher reads requests from incoming and writes responses and
// notifications to outgoing, where the POST handler streams them out.
type sessionTransport struct {
	sessionID string

	incoming chan []byte
	outgoing chan []byte
	done     chan struct{}

	requestMux sync.Mutex
	closeOnce  sync.Once
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

// cancelRequest feeds a cancellation notification into the session, as if
// the client had sent one, for a request whose response stream is gone.
func (t *sessionTransport) cancelRequest(requestID json.RawMessage) {
	params, err := json.Marshal(&protocol.CancelParams{
		RequestID: requestID,
		Reason:    "client disconnected",
	})
	if err != nil {
		return
	}
	message, err := json.Marshal(&protocol.JSONRPCMessage{
		JSONRPC: protocol.JSONRPCVersion,
		Method:  protocol.BuildNotificationMethod("cancelled", protocol.EmptyNamespace),
		Params:  params,
	})
	if err != nil {
		return
	}
	t.deliver(message)
}

// Send queues a message for the active response stream.
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
