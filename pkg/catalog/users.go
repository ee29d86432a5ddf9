package catalog

import (
	"context"

	"github.com/gps-prasad/aws-okta-mcp-server/pkg/okta"
	"github.com/gps-prasad/aws-okta-mcp-server/pkg/protocol"
	"github.com/gps-prasad/aws-okta-mcp-server/pkg/tools"
)

func registerUserTools(registry *tools.Registry, deps Deps) {
	registry.MustRegister(tools.NewDescriptor(
		"list_okta_users",
		"List Okta users with filtering. Returns at most max_results users (default 50, max 100) to stay within LLM context limits; use search filters rather than browsing all users. Reports truncated=true and a nextCursor when more data exists.",
		protocol.ObjectSchema(map[string]*protocol.JSONSchema{
			"query":       protocol.StringSchema("Simple text search matched against firstName, lastName, or email"),
			"search":      protocol.StringSchema(`SCIM filter syntax like - profile.firstName eq "Dan"`),
			"filter":      protocol.StringSchema("Okta filter expression (status, type, etc.)"),
			"sort_by":     protocol.StringSchema("Field to sort by (only works with the search parameter)").WithDefault("created"),
			"sort_order":  protocol.EnumSchema("Sort direction (only works with the search parameter)", "asc", "desc").WithDefault("desc"),
			"max_results": protocol.BoundedIntegerSchema("Maximum users to return (1-100). Limited for LLM context window.", 1, 100).WithDefault(50),
			"after":       protocol.StringSchema("Pagination cursor from a previous truncated call"),
		}, nil),
		func(ctx context.Context, args map[string]any) (*tools.Result, error) {
			ceiling := deps.ceiling(intArg(args, "max_results"))
			opts := okta.ListOptions{
				Query:     stringArg(args, "query"),
				Search:    stringArg(args, "search"),
				Filter:    stringArg(args, "filter"),
				SortBy:    stringArg(args, "sort_by"),
				SortOrder: stringArg(args, "sort_order"),
				Limit:     ceiling,
				After:     stringArg(args, "after"),
			}
			return collectList(ctx, deps, okta.Resource{Kind: okta.KindUsers}, opts, ceiling, "users")
		},
	))

	registry.MustRegister(tools.NewDescriptor(
		"get_okta_user",
		"Get detailed information about a single Okta user: profile, status, credentials state, and lifecycle timestamps.",
		protocol.ObjectSchema(map[string]*protocol.JSONSchema{
			"user_id": protocol.StringSchema("The ID or login of the user to retrieve"),
		}, []string{"user_id"}),
		func(ctx context.Context, args map[string]any) (*tools.Result, error) {
			return fetchEntity(ctx, deps, okta.Resource{Kind: okta.KindUsers}, stringArg(args, "user_id"))
		},
	))

	registry.MustRegister(tools.NewDescriptor(
		"list_okta_user_groups",
		"List all groups a user belongs to, bounded to the configured result ceiling.",
		protocol.ObjectSchema(map[string]*protocol.JSONSchema{
			"user_id": protocol.StringSchema("The ID of the user to list groups for"),
			"after":   protocol.StringSchema("Pagination cursor from a previous truncated call"),
		}, []string{"user_id"}),
		func(ctx context.Context, args map[string]any) (*tools.Result, error) {
			ceiling := deps.ceiling(0)
			resource := okta.Resource{Kind: okta.KindUserGroups, ParentID: stringArg(args, "user_id")}
			opts := okta.ListOptions{Limit: ceiling, After: stringArg(args, "after")}
			return collectList(ctx, deps, resource, opts, ceiling, "groups")
		},
	))

	registry.MustRegister(tools.NewDescriptor(
		"list_okta_user_applications",
		"List the application links assigned to a user, bounded to the configured result ceiling.",
		protocol.ObjectSchema(map[string]*protocol.JSONSchema{
			"user_id": protocol.StringSchema("The ID of the user to list application links for"),
			"after":   protocol.StringSchema("Pagination cursor from a previous truncated call"),
		}, []string{"user_id"}),
		func(ctx context.Context, args map[string]any) (*tools.Result, error) {
			ceiling := deps.ceiling(0)
			resource := okta.Resource{Kind: okta.KindUserApps, ParentID: stringArg(args, "user_id")}
			opts := okta.ListOptions{Limit: ceiling, After: stringArg(args, "after")}
			return collectList(ctx, deps, resource, opts, ceiling, "applications")
		},
	))

	registry.MustRegister(tools.NewDescriptor(
		"list_okta_user_factors",
		"List the MFA factors enrolled for a user.",
		protocol.ObjectSchema(map[string]*protocol.JSONSchema{
			"user_id": protocol.StringSchema("The ID of the user to list factors for"),
		}, []string{"user_id"}),
		func(ctx context.Context, args map[string]any) (*tools.Result, error) {
			ceiling := deps.ceiling(0)
			resource := okta.Resource{Kind: okta.KindUserFactors, ParentID: stringArg(args, "user_id")}
			return collectList(ctx, deps, resource, okta.ListOptions{Limit: ceiling}, ceiling, "factors")
		},
	))
}
