// Package protocol provides types and utilities for JSON-RPC communication
package protocol

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/gps-prasad/aws-okta-mcp-server/internal/logging"
)

// JSON-RPC 2.0 error codes
const (
	ErrorCodeParseError     int = -32700
	ErrorCodeInvalidRequest int = -32600
	ErrorCodeMethodNotFound int = -32601
	ErrorCodeInvalidParams  int = -32602
	ErrorCodeInternalError  int = -32603
)

// JSONRPCVersion is the supported JSON-RPC protocol version
const JSONRPCVersion = "2.0"

// JSONRPCMessage represents a generic JSON-RPC message
type JSONRPCMessage struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *JSONRPCError   `json:"error,omitempty"`
}

// IsRequest reports whether the message is a request expecting a response.
func (m *JSONRPCMessage) IsRequest() bool {
	return m.Method != "" && m.ID != nil
}

// IsNotification reports whether the message is a fire-and-forget notification.
func (m *JSONRPCMessage) IsNotification() bool {
	return m.Method != "" && m.ID == nil
}

// JSONRPCError represents a JSON-RPC error
type JSONRPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Error implements the error interface
func (e *JSONRPCError) Error() string {
	return e.Message
}

// NewJSONRPCError builds a JSON-RPC error with optional structured data.
func NewJSONRPCError(code int, message string, data any) *JSONRPCError {
	var dataJSON json.RawMessage
	if data != nil {
		if bytes, err := json.Marshal(data); err == nil {
			dataJSON = bytes
		}
	}
	return &JSONRPCError{Code: code, Message: message, Data: dataJSON}
}

// RPCHandler is an interface for handling RPC requests
type RPCHandler interface {
	// HandleRequest handles an RPC request
	HandleRequest(ctx context.Context, method string, params json.RawMessage) (any, error)
}

// Dispatcher frames JSON-RPC messages over one transport connection.
//
// The receive loop only reads and classifies wire messages; requests are
// handed to a single per-connection worker that executes them strictly in
// arrival order. Reading never waits on an executing request, so a cancel
// notification for the in-flight request is picked up while that request is
// still running. Concurrency across connections comes from each connection
// owning its own Dispatcher.
type Dispatcher struct {
	transport  Transport
	handler    RPCHandler
	pending    map[string]chan *JSONRPCMessage
	pendingMux sync.Mutex
	requests   chan *JSONRPCMessage
	shutdown   chan struct{}
	closeOnce  sync.Once
	wg         sync.WaitGroup
	sessionID  string
	logger     *slog.Logger
}

// NewDispatcher creates a dispatcher for one connection.
func NewDispatcher(transport Transport, handler RPCHandler, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		transport: transport,
		handler:   handler,
		pending:   make(map[string]chan *JSONRPCMessage),
		requests:  make(chan *JSONRPCMessage, 16),
		shutdown:  make(chan struct{}),
		logger:    logger,
	}
}

// SetSessionID associates a session with this dispatcher. The session ID is
// threaded into the context of every handled request.
func (d *Dispatcher) SetSessionID(sessionID string) {
	d.sessionID = sessionID
}

// Start starts the receive loop and the request worker.
func (d *Dispatcher) Start() {
	// The per-connection context: cancelled on Stop so in-flight handlers
	// abandon partially fetched upstream pages.
	connCtx, cancel := context.WithCancel(context.Background())
	go func() {
		<-d.shutdown
		cancel()
	}()

	d.wg.Add(2)
	go d.receiveLoop(connCtx)
	go d.requestLoop(connCtx)
}

// Stop terminates the receive loop and waits for it to exit. In-flight
// request handlers observe the cancellation through their context.
func (d *Dispatcher) Stop() {
	d.closeOnce.Do(func() { close(d.shutdown) })
	d.wg.Wait()
}

// Done is closed once the connection is gone.
func (d *Dispatcher) Done() <-chan struct{} {
	return d.shutdown
}

func (d *Dispatcher) receiveLoop(connCtx context.Context) {
	defer d.wg.Done()

	for {
		data, err := d.transport.Receive(connCtx)
		if err != nil {
			select {
			case <-d.shutdown:
			default:
				if err != context.Canceled {
					logging.Debug(d.logger, "connection closed", "error", err)
				}
				d.closeOnce.Do(func() { close(d.shutdown) })
			}
			return
		}

		var message JSONRPCMessage
		if err := json.Unmarshal(data, &message); err != nil {
			logging.Warn(d.logger, "error unmarshaling message", "error", err)
			d.sendErrorResponse(connCtx, nil, ErrorCodeParseError, "Parse error: "+err.Error(), nil)
			continue
		}

		switch {
		case message.IsRequest():
			// Queued for the worker: execution stays in arrival order while
			// the loop keeps reading the wire.
			select {
			case d.requests <- &message:
			case <-d.shutdown:
				return
			}
		case message.IsNotification():
			go d.handleNotification(connCtx, &message)
		default:
			d.handleResponse(&message)
		}
	}
}

// requestLoop executes queued requests one at a time per connection.
func (d *Dispatcher) requestLoop(connCtx context.Context) {
	defer d.wg.Done()

	for {
		select {
		case <-d.shutdown:
			return
		case msg := <-d.requests:
			d.handleRequest(connCtx, msg)
		}
	}
}

func (d *Dispatcher) handleRequest(ctx context.Context, msg *JSONRPCMessage) {
	if d.handler == nil {
		d.sendErrorResponse(ctx, msg.ID, ErrorCodeMethodNotFound, "Method not found", nil)
		return
	}

	if d.sessionID != "" {
		ctx = WithSessionID(ctx, d.sessionID)
	}
	ctx = WithRequestID(ctx, string(msg.ID))

	result, err := d.handler.HandleRequest(ctx, msg.Method, msg.Params)
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		// The call was cancelled or timed out: suppress the late response
		// entirely instead of mapping the context error to a wire error.
		logging.Debug(d.logger, "request cancelled, suppressing response", "method", msg.Method)
		return
	}
	if err != nil {
		code := ErrorCodeInternalError
		message := err.Error()
		var data json.RawMessage

		if rpcErr, ok := err.(*JSONRPCError); ok {
			code = rpcErr.Code
			message = rpcErr.Message
			data = rpcErr.Data
		}

		d.sendErrorResponse(ctx, msg.ID, code, message, data)
		return
	}

	d.sendResponse(ctx, msg.ID, result)
}

func (d *Dispatcher) handleNotification(ctx context.Context, msg *JSONRPCMessage) {
	if d.handler == nil {
		return
	}
	if d.sessionID != "" {
		ctx = WithSessionID(ctx, d.sessionID)
	}
	_, _ = d.handler.HandleRequest(ctx, msg.Method, msg.Params)
}

func (d *Dispatcher) handleResponse(msg *JSONRPCMessage) {
	var idStr string
	_ = json.Unmarshal(msg.ID, &idStr)

	d.pendingMux.Lock()
	defer d.pendingMux.Unlock()

	if ch, exists := d.pending[idStr]; exists {
		ch <- msg
		delete(d.pending, idStr)
	}
}

// Call sends an RPC request over the connection and waits for a response.
func (d *Dispatcher) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	id := uuid.New().String()

	request := &JSONRPCMessage{
		JSONRPC: JSONRPCVersion,
		ID:      []byte(`"` + id + `"`),
		Method:  method,
	}
	if params != nil {
		paramsJSON, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("error marshaling parameters: %w", err)
		}
		request.Params = paramsJSON
	}

	responseCh := make(chan *JSONRPCMessage, 1)
	d.pendingMux.Lock()
	d.pending[id] = responseCh
	d.pendingMux.Unlock()

	drop := func() {
		d.pendingMux.Lock()
		delete(d.pending, id)
		d.pendingMux.Unlock()
	}

	requestJSON, err := json.Marshal(request)
	if err != nil {
		drop()
		return nil, fmt.Errorf("error marshaling request: %w", err)
	}
	if err := d.transport.Send(ctx, requestJSON); err != nil {
		drop()
		return nil, fmt.Errorf("error sending request: %w", err)
	}

	select {
	case <-ctx.Done():
		drop()
		return nil, ctx.Err()
	case response := <-responseCh:
		if response.Error != nil {
			return nil, response.Error
		}
		return response.Result, nil
	}
}

// Notify sends an RPC notification (without waiting for a response)
func (d *Dispatcher) Notify(ctx context.Context, method string, params any) error {
	notification := &JSONRPCMessage{
		JSONRPC: JSONRPCVersion,
		Method:  method,
	}
	if params != nil {
		paramsJSON, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("error marshaling parameters: %w", err)
		}
		notification.Params = paramsJSON
	}

	notificationJSON, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("error marshaling notification: %w", err)
	}
	if err := d.transport.Send(ctx, notificationJSON); err != nil {
		return fmt.Errorf("error sending notification: %w", err)
	}
	return nil
}

func (d *Dispatcher) sendErrorResponse(ctx context.Context, id json.RawMessage, code int, message string, data json.RawMessage) {
	response := &JSONRPCMessage{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Error: &JSONRPCError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}

	responseJSON, err := json.Marshal(response)
	if err != nil {
		return
	}
	if err := d.transport.Send(ctx, responseJSON); err != nil {
		logging.Debug(d.logger, "failed to send error response", "error", err)
	}
}

func (d *Dispatcher) sendResponse(ctx context.Context, id json.RawMessage, result any) {
	response := &JSONRPCMessage{
		JSONRPC: JSONRPCVersion,
		ID:      id,
	}

	if result != nil {
		resultJSON, err := json.Marshal(result)
		if err != nil {
			d.sendErrorResponse(ctx, id, ErrorCodeInternalError, "Internal error", nil)
			return
		}
		response.Result = resultJSON
	} else {
		response.Result = []byte("null")
	}

	responseJSON, err := json.Marshal(response)
	if err != nil {
		return
	}
	if err := d.transport.Send(ctx, responseJSON); err != nil {
		logging.Debug(d.logger, "failed to send response", "error", err)
	}
}
