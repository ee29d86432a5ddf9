package catalog

import (
	"context"

	"github.com/gps-prasad/aws-okta-mcp-server/pkg/okta"
	"github.com/gps-prasad/aws-okta-mcp-server/pkg/protocol"
	"github.com/gps-prasad/aws-okta-mcp-server/pkg/tools"
)

func registerLogEventTools(registry *tools.Registry, deps Deps) {
	registry.MustRegister(tools.NewDescriptor(
		"get_okta_event_logs",
		"Query the Okta system log: authentication events, user lifecycle changes, administrative actions, and security incidents within a time window.",
		protocol.ObjectSchema(map[string]*protocol.JSONSchema{
			"since":  protocol.TimestampSchema("Lower bound of the time window, e.g. 2025-01-01T00:00:00.000Z"),
			"until":  protocol.TimestampSchema("Upper bound of the time window, e.g. 2025-01-31T23:59:59.000Z"),
			"filter": protocol.StringSchema(`Filter expression, e.g. eventType eq "user.session.start"`),
			"q":      protocol.StringSchema("Keyword search across log event fields"),
			"sort_order": protocol.EnumSchema("Chronological order of returned events",
				"ASCENDING", "DESCENDING").WithDefault("DESCENDING"),
			"after": protocol.StringSchema("Pagination cursor from a previous truncated result"),
		}, nil),
		func(ctx context.Context, args map[string]any) (*tools.Result, error) {
			ceiling := deps.ceiling(0)
			opts := okta.ListOptions{
				Since:     stringArg(args, "since"),
				Until:     stringArg(args, "until"),
				Filter:    stringArg(args, "filter"),
				Query:     stringArg(args, "q"),
				SortOrder: stringArg(args, "sort_order"),
				After:     stringArg(args, "after"),
				Limit:     ceiling,
			}
			return collectList(ctx, deps, okta.Resource{Kind: okta.KindLogEvents}, opts, ceiling, "events")
		},
	))
}
