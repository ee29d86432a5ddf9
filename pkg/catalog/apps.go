package catalog

import (
	"context"

	"github.com/gps-prasad/aws-okta-mcp-server/pkg/okta"
	"github.com/gps-prasad/aws-okta-mcp-server/pkg/protocol"
	"github.com/gps-prasad/aws-okta-mcp-server/pkg/tools"
)

func registerAppTools(registry *tools.Registry, deps Deps) {
	registry.MustRegister(tools.NewDescriptor(
		"list_okta_applications",
		"List applications in the Okta organization. Returns at most limit applications (default 50, max 200 requested from the API but bounded by the configured ceiling).",
		protocol.ObjectSchema(map[string]*protocol.JSONSchema{
			"q":      protocol.StringSchema("Searches for apps whose name or label starts with the q value"),
			"filter": protocol.StringSchema("Filters apps by status, user.id, group.id, credentials.signing.kid or name"),
			"limit":  protocol.BoundedIntegerSchema("Maximum applications to return (1-200)", 1, 200).WithDefault(50),
			"after":  protocol.StringSchema("Pagination cursor for the next page of results"),
			"expand": protocol.StringSchema("Link expansion to embed more resources (supports expand=user/{userId})"),
		}, nil),
		func(ctx context.Context, args map[string]any) (*tools.Result, error) {
			ceiling := deps.ceiling(intArg(args, "limit"))
			opts := okta.ListOptions{
				Query:  stringArg(args, "q"),
				Filter: stringArg(args, "filter"),
				Expand: stringArg(args, "expand"),
				Limit:  ceiling,
				After:  stringArg(args, "after"),
			}
			return collectList(ctx, deps, okta.Resource{Kind: okta.KindApplications}, opts, ceiling, "applications")
		},
	))

	registry.MustRegister(tools.NewDescriptor(
		"get_okta_application",
		"Get detailed information about a single application: sign-on configuration, assignment settings, and provisioning state.",
		protocol.ObjectSchema(map[string]*protocol.JSONSchema{
			"app_id": protocol.StringSchema("The ID of the application to retrieve"),
		}, []string{"app_id"}),
		func(ctx context.Context, args map[string]any) (*tools.Result, error) {
			return fetchEntity(ctx, deps, okta.Resource{Kind: okta.KindApplications}, stringArg(args, "app_id"))
		},
	))

	registry.MustRegister(tools.NewDescriptor(
		"list_okta_application_users",
		"List the users assigned to an application, bounded to the configured result ceiling with a resumable cursor.",
		protocol.ObjectSchema(map[string]*protocol.JSONSchema{
			"app_id": protocol.StringSchema("The ID of the application"),
			"after":  protocol.StringSchema("Pagination cursor from a previous truncated call"),
		}, []string{"app_id"}),
		func(ctx context.Context, args map[string]any) (*tools.Result, error) {
			ceiling := deps.ceiling(0)
			resource := okta.Resource{Kind: okta.KindAppUsers, ParentID: stringArg(args, "app_id")}
			opts := okta.ListOptions{Limit: ceiling, After: stringArg(args, "after")}
			return collectList(ctx, deps, resource, opts, ceiling, "users")
		},
	))

	registry.MustRegister(tools.NewDescriptor(
		"list_okta_application_groups",
		"List the groups assigned to an application, bounded to the configured result ceiling with a resumable cursor.",
		protocol.ObjectSchema(map[string]*protocol.JSONSchema{
			"app_id": protocol.StringSchema("The ID of the application"),
			"after":  protocol.StringSchema("Pagination cursor from a previous truncated call"),
		}, []string{"app_id"}),
		func(ctx context.Context, args map[string]any) (*tools.Result, error) {
			ceiling := deps.ceiling(0)
			resource := okta.Resource{Kind: okta.KindAppGroups, ParentID: stringArg(args, "app_id")}
			opts := okta.ListOptions{Limit: ceiling, After: stringArg(args, "after")}
			return collectList(ctx, deps, resource, opts, ceiling, "groups")
		},
	))
}
