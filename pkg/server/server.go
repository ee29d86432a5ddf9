// Package server provides the implementation of the MCP gateway server.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gps-prasad/aws-okta-mcp-server/internal/logging"
	"github.com/gps-prasad/aws-okta-mcp-server/pkg/protocol"
	"github.com/gps-prasad/aws-okta-mcp-server/pkg/tools"
)

// Server manages client connections and routes tool calls to the registry.
type Server struct {
	// Server ID
	ID string

	// Server name
	Name string

	// Server version
	Version string

	// Instructions sent to clients during initialization
	Instructions string

	// supported MCP versions, oldest first
	SupportedVersions []protocol.ProtocolVersion

	// Endpoint registry for RPC method management
	endpointRegistry *protocol.EndpointRegistry

	// Transport registry for communication
	transportRegistry *protocol.TransportRegistry

	// Tool catalog
	toolRegistry *tools.Registry

	// Active sessions
	sessions      map[string]*protocol.Session
	sessionsMutex sync.RWMutex

	// In-flight request cancel functions, keyed by session and request ID.
	inflight      map[string]context.CancelFunc
	inflightMutex sync.Mutex

	// Per tool call deadline. Zero disables the deadline.
	requestTimeout time.Duration

	// Logger
	logger        *slog.Logger
	loggerFactory *logging.LoggerFactory
}

// NewServer creates a new MCP server
func NewServer(options ...ServerOption) *Server {
	server := &Server{
		ID:      uuid.New().String(),
		Name:    "okta-mcp-server",
		Version: "1.0.0",
		SupportedVersions: []protocol.ProtocolVersion{
			protocol.ProtocolVersion20241105,
			protocol.ProtocolVersion20250326,
			protocol.ProtocolVersion20250618,
		},
		endpointRegistry:  protocol.NewEndpointRegistry(),
		transportRegistry: protocol.NewTransportRegistry(),
		toolRegistry:      tools.NewRegistry(),
		sessions:          make(map[string]*protocol.Session),
		inflight:          make(map[string]context.CancelFunc),
	}

	for _, option := range options {
		option(server)
	}

	if server.logger == nil && server.loggerFactory != nil {
		server.logger = server.loggerFactory.CreateLogger("mcp-server")
	}

	// Register the base MCP endpoint
	mcpEndpoint := protocol.NewBaseEndpoint(protocol.EmptyNamespace)
	mcpEndpoint.RegisterMethod("initialize", server.handleInitialize)
	mcpEndpoint.RegisterMethod("ping", server.handlePing)
	mcpEndpoint.RegisterNotification("initialized", server.handleInitialized)
	mcpEndpoint.RegisterNotification("cancelled", server.handleCancelled)
	server.endpointRegistry.RegisterEndpoint(mcpEndpoint)

	// Register the tools endpoint
	server.endpointRegistry.RegisterEndpoint(newToolsEndpoint(server))

	return server
}

// Tools returns the server's tool registry for catalog registration.
func (s *Server) Tools() *tools.Registry {
	return s.toolRegistry
}

// TransportRegistry returns the server's transport registry.
func (s *Server) TransportRegistry() *protocol.TransportRegistry {
	return s.transportRegistry
}

// HandleConnection wires one client connection: a dispatcher framing the
// transport and a session tracking the MCP lifecycle.
func (s *Server) HandleConnection(transport protocol.Transport) *protocol.Session {
	dispatcher := protocol.NewDispatcher(transport, s, s.logger)

	session := protocol.NewSession(dispatcher)
	session.ServerInfo = protocol.PeerInfo{Name: s.Name, Version: s.Version}

	s.sessionsMutex.Lock()
	s.sessions[session.ID] = session
	s.sessionsMutex.Unlock()

	dispatcher.SetSessionID(session.ID)
	dispatcher.Start()

	// Reap the session once the connection goes away.
	go func() {
		<-dispatcher.Done()
		s.removeSession(session.ID)
	}()

	return session
}

// HandleRequest implements the RPCHandler interface
func (s *Server) HandleRequest(ctx context.Context, method string, params json.RawMessage) (any, error) {
	return s.endpointRegistry.HandleRequest(ctx, method, params)
}

// handleInitialize handles the initialization request
func (s *Server) handleInitialize(ctx context.Context, params json.RawMessage) (any, error) {
	var initParams protocol.InitializeParams
	if err := json.Unmarshal(params, &initParams); err != nil {
		return nil, &protocol.JSONRPCError{
			Code:    protocol.ErrorCodeInvalidParams,
			Message: "Invalid params: " + err.Error(),
		}
	}

	session, rpcErr := s.sessionFromContext(ctx)
	if rpcErr != nil {
		return nil, rpcErr
	}

	// Echo the client's version when supported, otherwise answer with the
	// newest version this server speaks.
	version := s.SupportedVersions[len(s.SupportedVersions)-1]
	if slices.Contains(s.SupportedVersions, protocol.ProtocolVersion(initParams.ProtocolVersion)) {
		version = protocol.ProtocolVersion(initParams.ProtocolVersion)
	} else {
		logging.Warn(s.logger, "client requested unsupported protocol version",
			slog.String("requested", initParams.ProtocolVersion),
			slog.String("answering", string(version)))
	}

	session.ServerCapabilities = s.capabilities()

	result, err := session.Initialize(ctx, &initParams, version)
	if err != nil {
		return nil, &protocol.JSONRPCError{
			Code:    protocol.ErrorCodeInvalidRequest,
			Message: err.Error(),
		}
	}
	result.Instructions = s.Instructions

	logging.Info(s.logger, "session initializing",
		slog.String("sessionID", session.ID),
		slog.String("client", initParams.ClientInfo.Name),
		slog.String("protocolVersion", string(version)))

	return result, nil
}

func (s *Server) handlePing(ctx context.Context, params json.RawMessage) (any, error) {
	if sessionID, ok := protocol.GetSessionID(ctx); ok {
		logging.Trace(s.logger, "ping", slog.String("sessionID", sessionID))
	}
	return struct{}{}, nil
}

func (s *Server) handleInitialized(ctx context.Context, params json.RawMessage) (any, error) {
	session, rpcErr := s.sessionFromContext(ctx)
	if rpcErr != nil {
		return nil, rpcErr
	}

	if session.GetState() != protocol.SessionStateInitializing {
		return nil, &protocol.JSONRPCError{
			Code:    protocol.ErrorCodeInvalidRequest,
			Message: "session not in initializing state",
		}
	}
	session.SetState(protocol.SessionStateActive)

	logging.Debug(s.logger, "session active", slog.String("sessionID", session.ID))
	return nil, nil
}

// handleCancelled aborts the in-flight request the client walked away from.
func (s *Server) handleCancelled(ctx context.Context, params json.RawMessage) (any, error) {
	var cancelParams protocol.CancelParams
	if err := json.Unmarshal(params, &cancelParams); err != nil {
		return nil, nil
	}

	sessionID, _ := protocol.GetSessionID(ctx)
	key := inflightKey(sessionID, string(cancelParams.RequestID))

	s.inflightMutex.Lock()
	cancel, exists := s.inflight[key]
	s.inflightMutex.Unlock()

	if exists {
		logging.Debug(s.logger, "cancelling in-flight request",
			slog.String("sessionID", sessionID),
			slog.String("requestID", string(cancelParams.RequestID)),
			slog.String("reason", cancelParams.Reason))
		cancel()
	}
	return nil, nil
}

// trackRequest registers a cancel function for an in-flight request and
// returns the cleanup to run when the request finishes.
func (s *Server) trackRequest(ctx context.Context, cancel context.CancelFunc) func() {
	sessionID, _ := protocol.GetSessionID(ctx)
	requestID, ok := protocol.GetRequestID(ctx)
	if !ok {
		return func() {}
	}
	key := inflightKey(sessionID, requestID)

	s.inflightMutex.Lock()
	s.inflight[key] = cancel
	s.inflightMutex.Unlock()

	return func() {
		s.inflightMutex.Lock()
		delete(s.inflight, key)
		s.inflightMutex.Unlock()
	}
}

func inflightKey(sessionID, requestID string) string {
	return sessionID + "/" + requestID
}

// capabilities builds the capability map announced during initialization.
func (s *Server) capabilities() map[string]protocol.CapabilityDefinition {
	return map[string]protocol.CapabilityDefinition{
		"tools": {Options: json.RawMessage(`{"listChanged":false}`)},
	}
}

// GetSession returns a session by ID
func (s *Server) GetSession(id string) (*protocol.Session, bool) {
	s.sessionsMutex.RLock()
	defer s.sessionsMutex.RUnlock()
	session, exists := s.sessions[id]
	return session, exists
}

// GetActiveSessions returns all active sessions
func (s *Server) GetActiveSessions() []*protocol.Session {
	s.sessionsMutex.RLock()
	defer s.sessionsMutex.RUnlock()

	activeSessions := make([]*protocol.Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		if session.IsActive() {
			activeSessions = append(activeSessions, session)
		}
	}
	return activeSessions
}

func (s *Server) removeSession(id string) {
	s.sessionsMutex.Lock()
	session, exists := s.sessions[id]
	delete(s.sessions, id)
	s.sessionsMutex.Unlock()

	if exists {
		_ = session.Close()
	}
}

// CloseAllSessions closes all sessions and forgets them.
func (s *Server) CloseAllSessions() {
	s.sessionsMutex.Lock()
	defer s.sessionsMutex.Unlock()

	for id, session := range s.sessions {
		_ = session.Close()
		delete(s.sessions, id)
	}
}

// Shutdown closes the server
func (s *Server) Shutdown() {
	logging.Info(s.logger, "shutting down", slog.Int("sessions", len(s.sessions)))
	s.CloseAllSessions()
}

func (s *Server) sessionFromContext(ctx context.Context) (*protocol.Session, *protocol.JSONRPCError) {
	sessionID, ok := protocol.GetSessionID(ctx)
	if !ok {
		return nil, &protocol.JSONRPCError{
			Code:    protocol.ErrorCodeInternalError,
			Message: "session ID not found in context",
		}
	}
	session, exists := s.GetSession(sessionID)
	if !exists {
		return nil, &protocol.JSONRPCError{
			Code:    protocol.ErrorCodeInternalError,
			Message: fmt.Sprintf("session %s not found", sessionID),
		}
	}
	return session, nil
}
