// Package catalog declares the fixed tool set exposed by the Okta MCP
// server: read-only directory tools for users, groups, applications,
// policies, network zones and system log events, plus two time utilities.
//
// The catalog is assembled once during server construction and never
// changes at runtime, keeping the set inspectable and statically checkable.
package catalog

import (
	"context"
	"log/slog"

	"github.com/gps-prasad/aws-okta-mcp-server/internal/errors"
	"github.com/gps-prasad/aws-okta-mcp-server/pkg/okta"
	"github.com/gps-prasad/aws-okta-mcp-server/pkg/tools"
)

// DefaultMaxResults is the documented per-call entity ceiling: results are
// bounded to keep payloads inside an LLM context window.
const DefaultMaxResults = 100

// Deps carries the collaborators tool handlers need.
type Deps struct {
	// Directory is nil when the Okta tenant is not configured; every
	// directory tool then fails with a configuration error instead of
	// blocking server startup.
	Directory okta.Directory

	// MaxResults is the hard entity ceiling applied to every listing
	// tool, regardless of what the caller asked for.
	MaxResults int

	Logger *slog.Logger
}

func (d Deps) ceiling(requested int) int {
	max := d.MaxResults
	if max <= 0 {
		max = DefaultMaxResults
	}
	if requested <= 0 || requested > max {
		return max
	}
	return requested
}

func (d Deps) directory() (okta.Directory, error) {
	if d.Directory == nil {
		return nil, errors.New(errors.Configuration,
			"Okta tenant not configured: set OKTA_CLIENT_ORGURL and OKTA_API_TOKEN")
	}
	return d.Directory, nil
}

// Register adds the complete tool catalog to a registry.
func Register(registry *tools.Registry, deps Deps) {
	registerUserTools(registry, deps)
	registerGroupTools(registry, deps)
	registerAppTools(registry, deps)
	registerPolicyTools(registry, deps)
	registerLogEventTools(registry, deps)
	registerDatetimeTools(registry, deps)
}

// Argument accessors. Validation has already coerced types and applied
// defaults, so a missing key simply means the field has no default.

func stringArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

func intArg(args map[string]any, key string) int {
	if v, ok := args[key].(int); ok {
		return v
	}
	return 0
}

// listPayload is the uniform response shape of every listing tool: the
// entities under a collection key, plus the bounding window report.
func listPayload(key string, entities []okta.Entity, window okta.Window) map[string]any {
	payload := map[string]any{
		key:         entities,
		"total":     len(entities),
		"truncated": window.Truncated,
	}
	if window.NextCursor != "" {
		payload["nextCursor"] = window.NextCursor
	}
	return payload
}

// collectList runs a bounded listing and renders the result payload.
func collectList(ctx context.Context, deps Deps, resource okta.Resource, opts okta.ListOptions, ceiling int, key string) (*tools.Result, error) {
	directory, err := deps.directory()
	if err != nil {
		return nil, err
	}
	tools.ReportProgress(ctx, 25, 100, "querying directory")

	pager := directory.List(resource, opts)
	entities, window, err := okta.CollectBounded(ctx, pager, ceiling)
	if err != nil {
		return nil, err
	}

	tools.ReportProgress(ctx, 100, 100, "done")
	return tools.NewJSONResult(listPayload(key, entities, window))
}

// fetchEntity runs a point lookup and renders the entity document.
func fetchEntity(ctx context.Context, deps Deps, resource okta.Resource, id string) (*tools.Result, error) {
	directory, err := deps.directory()
	if err != nil {
		return nil, err
	}
	tools.ReportProgress(ctx, 50, 100, "fetching entity")

	entity, err := directory.Get(ctx, resource, id)
	if err != nil {
		return nil, err
	}

	tools.ReportProgress(ctx, 100, 100, "done")
	return tools.NewTextResult(string(entity)), nil
}
