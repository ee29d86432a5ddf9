// Package protocol defines the basic primitives for the MCP protocol
package protocol

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Context keys threaded through dispatched requests.
type contextKeyType string

const (
	sessionIDKey contextKeyType = "session_id"
	requestIDKey contextKeyType = "request_id"
)

// WithSessionID adds a session ID to the context
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

// GetSessionID retrieves a session ID from the context
func GetSessionID(ctx context.Context) (string, bool) {
	sessionID, ok := ctx.Value(sessionIDKey).(string)
	return sessionID, ok
}

// WithRequestID adds a request correlation ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// GetRequestID retrieves the request correlation ID from the context
func GetRequestID(ctx context.Context) (string, bool) {
	requestID, ok := ctx.Value(requestIDKey).(string)
	return requestID, ok
}

// SessionState represents the state of an MCP session
type SessionState int

const (
	// SessionStateUninitialized represents a session that has not yet been initialized
	SessionStateUninitialized SessionState = iota
	// SessionStateInitializing represents a session that is being initialized
	SessionStateInitializing
	// SessionStateActive represents an active session
	SessionStateActive
	// SessionStateClosed represents a closed session
	SessionStateClosed
)

// String returns a textual representation of the session state
func (s SessionState) String() string {
	switch s {
	case SessionStateUninitialized:
		return "uninitialized"
	case SessionStateInitializing:
		return "initializing"
	case SessionStateActive:
		return "active"
	case SessionStateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// PeerInfo identifies a client or server implementation.
type PeerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

// CapabilityDefinition represents the definition of a supported capability
type CapabilityDefinition struct {
	Options json.RawMessage `json:"options,omitempty"`
}

// InitializeParams represents the initialization parameters of a session
type InitializeParams struct {
	ProtocolVersion string                          `json:"protocolVersion"`
	ClientInfo      PeerInfo                        `json:"clientInfo"`
	Capabilities    map[string]CapabilityDefinition `json:"capabilities"`
}

// InitializeResult represents the result of the initialization of a session
type InitializeResult struct {
	ProtocolVersion string                          `json:"protocolVersion"`
	ServerInfo      PeerInfo                        `json:"serverInfo"`
	Capabilities    map[string]CapabilityDefinition `json:"capabilities"`
	Instructions    string                          `json:"instructions,omitempty"`
}

// Session represents one MCP client connection's lifecycle and bookkeeping.
// Session state covers only the transport conversation: no tool results are
// retained across calls.
type Session struct {
	ID         string
	State      SessionState
	mutex      sync.RWMutex
	dispatcher *Dispatcher

	ClientInfo         PeerInfo
	ClientCapabilities map[string]CapabilityDefinition

	ServerInfo         PeerInfo
	ServerCapabilities map[string]CapabilityDefinition

	// ProgressToken set when the client asked for progress notifications.
	ProgressToken json.RawMessage

	CreatedAt    time.Time
	LastActiveAt time.Time
}

// NewSession creates a new MCP session bound to one connection dispatcher.
func NewSession(dispatcher *Dispatcher) *Session {
	return &Session{
		ID:                 uuid.New().String(),
		State:              SessionStateUninitialized,
		dispatcher:         dispatcher,
		CreatedAt:          time.Now(),
		LastActiveAt:       time.Now(),
		ClientCapabilities: make(map[string]CapabilityDefinition),
		ServerCapabilities: make(map[string]CapabilityDefinition),
	}
}

// GetState returns the current session state
func (s *Session) GetState() SessionState {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.State
}

// SetState sets the session state
func (s *Session) SetState(state SessionState) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.State = state
}

// UpdateLastActiveTime updates the last activity timestamp
func (s *Session) UpdateLastActiveTime() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.LastActiveAt = time.Now()
}

// Initialize initializes the session with the client's parameters
func (s *Session) Initialize(ctx context.Context, params *InitializeParams, version ProtocolVersion) (*InitializeResult, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.State != SessionStateUninitialized {
		return nil, fmt.Errorf("session already initialized")
	}

	s.State = SessionStateInitializing
	s.ClientInfo = params.ClientInfo
	s.ClientCapabilities = params.Capabilities
	s.LastActiveAt = time.Now()

	return &InitializeResult{
		ProtocolVersion: string(version),
		ServerInfo:      s.ServerInfo,
		Capabilities:    s.ServerCapabilities,
	}, nil
}

// Close closes the session
func (s *Session) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.State == SessionStateClosed {
		return nil
	}
	s.State = SessionStateClosed
	if s.dispatcher != nil {
		go s.dispatcher.Stop()
	}
	return nil
}

// Done is closed once the session's connection is gone.
func (s *Session) Done() <-chan struct{} {
	if s.dispatcher == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return s.dispatcher.Done()
}

// IsActive checks if the session is active
func (s *Session) IsActive() bool {
	return s.GetState() == SessionStateActive
}

// HasCapability checks if the client declared a capability
func (s *Session) HasCapability(capabilityType string) bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	_, exists := s.ClientCapabilities[capabilityType]
	return exists
}

// Call sends an RPC request through the session
func (s *Session) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	if !s.IsActive() {
		return nil, fmt.Errorf("session not active")
	}
	s.UpdateLastActiveTime()
	return s.dispatcher.Call(ctx, method, params)
}

// Notify sends an RPC notification through the session
func (s *Session) Notify(ctx context.Context, method string, params any) error {
	if !s.IsActive() {
		return fmt.Errorf("session not active")
	}
	s.UpdateLastActiveTime()
	return s.dispatcher.Notify(ctx, method, params)
}
