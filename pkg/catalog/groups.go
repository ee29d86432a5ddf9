package catalog

import (
	"context"

	"github.com/gps-prasad/aws-okta-mcp-server/pkg/okta"
	"github.com/gps-prasad/aws-okta-mcp-server/pkg/protocol"
	"github.com/gps-prasad/aws-okta-mcp-server/pkg/tools"
)

func registerGroupTools(registry *tools.Registry, deps Deps) {
	registry.MustRegister(tools.NewDescriptor(
		"list_okta_groups",
		"List Okta groups with filtering. Returns at most max_results groups (default 50, max 100); use search filters to find specific groups rather than browsing all of them.",
		protocol.ObjectSchema(map[string]*protocol.JSONSchema{
			"query":       protocol.StringSchema("Simple text search matched against group name"),
			"search":      protocol.StringSchema(`SCIM filter syntax like - type eq "OKTA_GROUP"`),
			"filter":      protocol.StringSchema("Okta filter expression (type, status, etc.)"),
			"max_results": protocol.BoundedIntegerSchema("Maximum groups to return (1-100). Limited for LLM context window.", 1, 100).WithDefault(50),
			"after":       protocol.StringSchema("Pagination cursor from a previous truncated call"),
		}, nil),
		func(ctx context.Context, args map[string]any) (*tools.Result, error) {
			ceiling := deps.ceiling(intArg(args, "max_results"))
			opts := okta.ListOptions{
				Query:  stringArg(args, "query"),
				Search: stringArg(args, "search"),
				Filter: stringArg(args, "filter"),
				Limit:  ceiling,
				After:  stringArg(args, "after"),
			}
			return collectList(ctx, deps, okta.Resource{Kind: okta.KindGroups}, opts, ceiling, "groups")
		},
	))

	registry.MustRegister(tools.NewDescriptor(
		"get_okta_group",
		"Get detailed information about a single Okta group: profile, type, and lifecycle timestamps.",
		protocol.ObjectSchema(map[string]*protocol.JSONSchema{
			"group_id": protocol.StringSchema("The ID of the group to retrieve"),
		}, []string{"group_id"}),
		func(ctx context.Context, args map[string]any) (*tools.Result, error) {
			return fetchEntity(ctx, deps, okta.Resource{Kind: okta.KindGroups}, stringArg(args, "group_id"))
		},
	))

	registry.MustRegister(tools.NewDescriptor(
		"list_okta_group_users",
		"List the members of a group, bounded to the configured result ceiling with a resumable cursor.",
		protocol.ObjectSchema(map[string]*protocol.JSONSchema{
			"group_id": protocol.StringSchema("The ID of the group to list users for"),
			"after":    protocol.StringSchema("Pagination cursor from a previous truncated call"),
		}, []string{"group_id"}),
		func(ctx context.Context, args map[string]any) (*tools.Result, error) {
			ceiling := deps.ceiling(0)
			resource := okta.Resource{Kind: okta.KindGroupUsers, ParentID: stringArg(args, "group_id")}
			opts := okta.ListOptions{Limit: ceiling, After: stringArg(args, "after")}
			return collectList(ctx, deps, resource, opts, ceiling, "users")
		},
	))
}
