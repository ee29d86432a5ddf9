// Package protocol defines the basic primitives for the MCP protocol
package protocol

import (
	"context"
	"errors"
	"sync"
)

// ErrTransportClosed is returned by Send/Receive once a transport is closed.
var ErrTransportClosed = errors.New("transport closed")

// Transport frames MCP messages over one I/O channel. A Transport instance
// represents a single client connection; the server creates one per
// connection and hands it to a Dispatcher.
type Transport interface {
	// Send sends one framed message to the peer.
	Send(ctx context.Context, data []byte) error

	// Receive blocks until one framed message arrives, the context is
	// cancelled, or the connection is lost.
	Receive(ctx context.Context) ([]byte, error)

	// Close closes the transport connection.
	Close() error
}

// TransportType constants for the supported bindings.
const (
	TransportTypeStdio = "stdio"
	TransportTypeHTTP  = "http"
	TransportTypeSSE   = "sse"
)

// TransportCreator is a factory function for creating transports
type TransportCreator func(ctx context.Context, options map[string]any) (Transport, error)

// TransportRegistry maintains a registry of available transport creators
type TransportRegistry struct {
	creators map[string]TransportCreator
	mu       sync.RWMutex
}

// NewTransportRegistry creates a new transport registry
func NewTransportRegistry() *TransportRegistry {
	return &TransportRegistry{
		creators: make(map[string]TransportCreator),
	}
}

// Register registers a new transport creator
func (r *TransportRegistry) Register(name string, creator TransportCreator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creators[name] = creator
}

// Create creates a new transport with the specified type
func (r *TransportRegistry) Create(ctx context.Context, transportType string, options map[string]any) (Transport, error) {
	r.mu.RLock()
	creator, exists := r.creators[transportType]
	r.mu.RUnlock()

	if !exists {
		return nil, &TransportError{Message: "transport type not supported: " + transportType}
	}
	return creator(ctx, options)
}

// HasTransport checks if a specific transport is registered
func (r *TransportRegistry) HasTransport(transportType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.creators[transportType]
	return exists
}

// GetSupportedTransports returns a list of all registered transport types
func (r *TransportRegistry) GetSupportedTransports() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	transports := make([]string, 0, len(r.creators))
	for name := range r.creators {
		transports = append(transports, name)
	}
	return transports
}

// TransportError represents a transport error
type TransportError struct {
	Message string
	Cause   error
}

// Error implements the error interface
func (e *TransportError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap implements the unwrapping interface
func (e *TransportError) Unwrap() error {
	return e.Cause
}

// WithCause adds a causal error
func (e *TransportError) WithCause(err error) *TransportError {
	e.Cause = err
	return e
}
