package catalog

import (
	"context"

	"github.com/gps-prasad/aws-okta-mcp-server/pkg/protocol"
	"github.com/gps-prasad/aws-okta-mcp-server/pkg/timeutil"
	"github.com/gps-prasad/aws-okta-mcp-server/pkg/tools"
)

func registerDatetimeTools(registry *tools.Registry, deps Deps) {
	registry.MustRegister(tools.NewDescriptor(
		"get_current_time",
		"Get the current UTC time in ISO 8601 format, optionally shifted back by a number of hours to account for event ingestion lag.",
		protocol.ObjectSchema(map[string]*protocol.JSONSchema{
			"buffer_hours": protocol.IntegerSchema("Hours to subtract from the current time").WithDefault(0),
		}, nil),
		func(ctx context.Context, args map[string]any) (*tools.Result, error) {
			return tools.NewTextResult(timeutil.Now(intArg(args, "buffer_hours"))), nil
		},
	))

	registry.MustRegister(tools.NewDescriptor(
		"parse_relative_time",
		`Convert a relative time expression such as "2 hours ago", "last 7 days", or "beginning of today" into an absolute UTC timestamp.`,
		protocol.ObjectSchema(map[string]*protocol.JSONSchema{
			"time_expression": protocol.StringSchema("The relative time expression to parse"),
		}, []string{"time_expression"}),
		func(ctx context.Context, args map[string]any) (*tools.Result, error) {
			resolved, err := timeutil.ParseRelative(stringArg(args, "time_expression"))
			if err != nil {
				return nil, err
			}
			return tools.NewTextResult(resolved), nil
		},
	))
}
