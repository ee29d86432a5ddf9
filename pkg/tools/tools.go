// Package tools provides the typed tool registry and tool result types.
//
// The catalog is fixed at process start: registration happens once during
// server construction, and the registry is read-only afterwards, so the
// lookup path needs no synchronization beyond the construction barrier.
package tools

import (
	"context"
	"encoding/json"

	"github.com/gps-prasad/aws-okta-mcp-server/pkg/protocol"
)

// Handler executes one tool call. Arguments have already been validated
// against the descriptor's schema and carry declared defaults for fields
// the caller omitted.
type Handler func(ctx context.Context, args map[string]any) (*Result, error)

// Descriptor binds a tool's wire definition to its handler. Immutable after
// registry construction.
type Descriptor struct {
	protocol.Tool

	Handler Handler `json:"-"`
}

// NewDescriptor creates a tool descriptor.
func NewDescriptor(name, description string, inputSchema *protocol.JSONSchema, handler Handler) *Descriptor {
	return &Descriptor{
		Tool: protocol.Tool{
			Name:        name,
			Description: description,
			InputSchema: inputSchema,
		},
		Handler: handler,
	}
}

// ContentItem is one content block of a tool result.
type ContentItem struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// Result is the outcome of a tool execution.
type Result struct {
	Content []ContentItem `json:"content"`
	IsError bool          `json:"isError"`
}

// NewTextResult wraps plain text in a success result.
func NewTextResult(text string) *Result {
	return &Result{Content: []ContentItem{{Type: "text", Text: text}}}
}

// NewJSONResult serializes a structured payload as a text content block.
// LLM clients consume tool output as text, so structured results travel as
// indented JSON.
func NewJSONResult(payload any) (*Result, error) {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, err
	}
	return NewTextResult(string(data)), nil
}

// NewErrorResult wraps an error payload in a failed result.
func NewErrorResult(text string) *Result {
	return &Result{
		Content: []ContentItem{{Type: "text", Text: text}},
		IsError: true,
	}
}
