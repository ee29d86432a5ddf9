package catalog

import (
	"context"

	"github.com/gps-prasad/aws-okta-mcp-server/pkg/okta"
	"github.com/gps-prasad/aws-okta-mcp-server/pkg/protocol"
	"github.com/gps-prasad/aws-okta-mcp-server/pkg/tools"
)

func registerPolicyTools(registry *tools.Registry, deps Deps) {
	registry.MustRegister(tools.NewDescriptor(
		"list_okta_policy_rules",
		"List all rules of a policy: conditions, authentication requirements, network zone constraints, actions, and priorities.",
		protocol.ObjectSchema(map[string]*protocol.JSONSchema{
			"policy_id": protocol.StringSchema("The ID of the policy to list rules for"),
		}, []string{"policy_id"}),
		func(ctx context.Context, args map[string]any) (*tools.Result, error) {
			ceiling := deps.ceiling(0)
			resource := okta.Resource{Kind: okta.KindPolicyRules, ParentID: stringArg(args, "policy_id")}
			return collectList(ctx, deps, resource, okta.ListOptions{Limit: ceiling}, ceiling, "rules")
		},
	))

	registry.MustRegister(tools.NewDescriptor(
		"get_okta_policy_rule",
		"Get a specific rule of a policy, including its conditions and actions.",
		protocol.ObjectSchema(map[string]*protocol.JSONSchema{
			"policy_id": protocol.StringSchema("The ID of the policy that contains the rule"),
			"rule_id":   protocol.StringSchema("The ID of the specific rule to retrieve"),
		}, []string{"policy_id", "rule_id"}),
		func(ctx context.Context, args map[string]any) (*tools.Result, error) {
			resource := okta.Resource{Kind: okta.KindPolicyRules, ParentID: stringArg(args, "policy_id")}
			return fetchEntity(ctx, deps, resource, stringArg(args, "rule_id"))
		},
	))

	registry.MustRegister(tools.NewDescriptor(
		"list_okta_network_zones",
		"List the network zones defined in the Okta organization: IP zones, dynamic zones, gateway and proxy definitions.",
		protocol.ObjectSchema(map[string]*protocol.JSONSchema{
			"filter": protocol.StringSchema(`Filter zones, e.g. usage eq "POLICY" or status eq "ACTIVE"`),
		}, nil),
		func(ctx context.Context, args map[string]any) (*tools.Result, error) {
			ceiling := deps.ceiling(0)
			opts := okta.ListOptions{Filter: stringArg(args, "filter"), Limit: ceiling}
			return collectList(ctx, deps, okta.Resource{Kind: okta.KindNetworkZones}, opts, ceiling, "zones")
		},
	))
}
