package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"runtime/debug"

	"github.com/gps-prasad/aws-okta-mcp-server/internal/errors"
	"github.com/gps-prasad/aws-okta-mcp-server/internal/logging"
	"github.com/gps-prasad/aws-okta-mcp-server/pkg/protocol"
	"github.com/gps-prasad/aws-okta-mcp-server/pkg/tools"
)

// toolsEndpoint serves the tools/* namespace: catalog listing and tool
// execution. Execution failures surface in-band as isError results so that
// LLM clients can read them; only malformed requests become JSON-RPC errors.
type toolsEndpoint struct {
	*protocol.BaseEndpoint
	server *Server
}

func newToolsEndpoint(server *Server) *toolsEndpoint {
	endpoint := &toolsEndpoint{
		BaseEndpoint: protocol.NewBaseEndpoint(protocol.ToolsNamespace),
		server:       server,
	}
	endpoint.RegisterMethod("list", endpoint.handleList)
	endpoint.RegisterMethod("call", endpoint.handleCall)
	return endpoint
}

func (e *toolsEndpoint) handleList(ctx context.Context, params json.RawMessage) (any, error) {
	return &protocol.ToolsListResult{
		Tools: e.server.toolRegistry.WireList(),
	}, nil
}

func (e *toolsEndpoint) handleCall(ctx context.Context, params json.RawMessage) (any, error) {
	var callParams protocol.ToolsCallParams
	if err := json.Unmarshal(params, &callParams); err != nil {
		return nil, &protocol.JSONRPCError{
			Code:    protocol.ErrorCodeInvalidParams,
			Message: "Invalid params: " + err.Error(),
		}
	}
	if callParams.Name == "" {
		return nil, &protocol.JSONRPCError{
			Code:    protocol.ErrorCodeInvalidParams,
			Message: "Invalid params: missing tool name",
		}
	}

	descriptor, err := e.server.toolRegistry.Lookup(callParams.Name)
	if err != nil {
		return errorResult(err), nil
	}

	arguments, err := e.server.toolRegistry.Validate(callParams.Name, callParams.Arguments)
	if err != nil {
		return errorResult(err), nil
	}

	callCtx, cancel := e.callContext(ctx)
	defer cancel()

	untrack := e.server.trackRequest(ctx, cancel)
	defer untrack()

	if callParams.Meta != nil && len(callParams.Meta.ProgressToken) > 0 {
		callCtx = e.withProgressReporter(callCtx, callParams.Meta.ProgressToken)
	}

	logging.Debug(e.server.logger, "tool call", slog.String("tool", callParams.Name))

	result, err := e.execute(callCtx, descriptor, arguments)
	if callCtx.Err() != nil {
		// Propagate the cancellation so the dispatcher suppresses the
		// response instead of sending a late one.
		return nil, callCtx.Err()
	}
	if err != nil {
		logging.Warn(e.server.logger, "tool call failed",
			slog.String("tool", callParams.Name),
			slog.String("code", string(errors.CodeOf(err))),
			slog.String("error", err.Error()))
		return errorResult(err), nil
	}

	return toWireResult(result), nil
}

// execute runs the tool handler with panic recovery. A panicking tool must
// not take the process down with it.
func (e *toolsEndpoint) execute(ctx context.Context, descriptor *tools.Descriptor, arguments map[string]any) (result *tools.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error(e.server.logger, "tool handler panicked",
				slog.String("tool", descriptor.Name),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
			result = nil
			err = errors.Newf(errors.InternalError, "tool %s failed unexpectedly", descriptor.Name)
		}
	}()
	return descriptor.Handler(ctx, arguments)
}

func (e *toolsEndpoint) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.server.requestTimeout > 0 {
		return context.WithTimeout(ctx, e.server.requestTimeout)
	}
	return context.WithCancel(ctx)
}

// withProgressReporter wires progress updates back to the client through the
// session, tagged with the caller's progress token. Push failures are logged
// and dropped.
func (e *toolsEndpoint) withProgressReporter(ctx context.Context, token json.RawMessage) context.Context {
	sessionID, ok := protocol.GetSessionID(ctx)
	if !ok {
		return ctx
	}
	session, exists := e.server.GetSession(sessionID)
	if !exists {
		return ctx
	}

	method := protocol.BuildNotificationMethod("progress", protocol.EmptyNamespace)
	return tools.WithProgress(ctx, func(progress, total float64, message string) {
		notifyErr := session.Notify(ctx, method, &protocol.ProgressParams{
			ProgressToken: token,
			Progress:      progress,
			Total:         total,
			Message:       message,
		})
		if notifyErr != nil {
			logging.Debug(e.server.logger, "progress notification dropped", "error", notifyErr)
		}
	})
}

// errorPayload is the structured body of an isError tool result.
type errorPayload struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Field      string `json:"field,omitempty"`
	RetryAfter int    `json:"retryAfter,omitempty"`
}

// errorResult renders a coded error as an in-band tool failure.
func errorResult(err error) *protocol.ToolsCallResult {
	payload := errorPayload{
		Code:    string(errors.InternalError),
		Message: err.Error(),
	}
	if coded, ok := errors.As(err); ok {
		payload.Code = string(coded.Code)
		payload.Message = coded.Message
		payload.Field = coded.Field
		payload.RetryAfter = coded.RetryAfter
	}

	text, marshalErr := json.MarshalIndent(payload, "", "  ")
	if marshalErr != nil {
		text = []byte(payload.Message)
	}
	return &protocol.ToolsCallResult{
		Content: []protocol.ToolResultContent{{Type: "text", Text: string(text)}},
		IsError: true,
	}
}

func toWireResult(result *tools.Result) *protocol.ToolsCallResult {
	if result == nil {
		return &protocol.ToolsCallResult{Content: []protocol.ToolResultContent{}}
	}
	content := make([]protocol.ToolResultContent, 0, len(result.Content))
	for _, item := range result.Content {
		content = append(content, protocol.ToolResultContent{Type: item.Type, Text: item.Text})
	}
	return &protocol.ToolsCallResult{Content: content, IsError: result.IsError}
}
