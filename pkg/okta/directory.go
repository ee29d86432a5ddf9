// Package okta provides the directory client adapter for the Okta REST API.
//
// The core of the server talks to this package through the Directory
// interface: paginated listings expose an opaque cursor, and every remote
// failure is mapped onto the stable error taxonomy. Implementations must be
// safe for concurrent use.
package okta

import (
	"context"
	"encoding/json"
	"fmt"
)

// Entity is one directory record as returned by the remote API. The core
// never inspects entity internals, it only counts and forwards them.
type Entity = json.RawMessage

// Kind identifies a directory collection.
type Kind string

const (
	KindUsers        Kind = "users"
	KindGroups       Kind = "groups"
	KindApplications Kind = "applications"
	KindUserGroups   Kind = "user-groups"
	KindUserApps     Kind = "user-applications"
	KindUserFactors  Kind = "user-factors"
	KindGroupUsers   Kind = "group-users"
	KindAppUsers     Kind = "application-users"
	KindAppGroups    Kind = "application-groups"
	KindPolicyRules  Kind = "policy-rules"
	KindNetworkZones Kind = "network-zones"
	KindLogEvents    Kind = "log-events"
)

// Resource addresses a collection, optionally scoped to a parent entity
// (for example the groups of one user, or the rules of one policy).
type Resource struct {
	Kind     Kind
	ParentID string
}

// apiPath maps a resource onto its REST path.
func (r Resource) apiPath() (string, error) {
	switch r.Kind {
	case KindUsers:
		return "/api/v1/users", nil
	case KindGroups:
		return "/api/v1/groups", nil
	case KindApplications:
		return "/api/v1/apps", nil
	case KindUserGroups:
		return fmt.Sprintf("/api/v1/users/%s/groups", r.ParentID), nil
	case KindUserApps:
		return fmt.Sprintf("/api/v1/users/%s/appLinks", r.ParentID), nil
	case KindUserFactors:
		return fmt.Sprintf("/api/v1/users/%s/factors", r.ParentID), nil
	case KindGroupUsers:
		return fmt.Sprintf("/api/v1/groups/%s/users", r.ParentID), nil
	case KindAppUsers:
		return fmt.Sprintf("/api/v1/apps/%s/users", r.ParentID), nil
	case KindAppGroups:
		return fmt.Sprintf("/api/v1/apps/%s/groups", r.ParentID), nil
	case KindPolicyRules:
		return fmt.Sprintf("/api/v1/policies/%s/rules", r.ParentID), nil
	case KindNetworkZones:
		return "/api/v1/zones", nil
	case KindLogEvents:
		return "/api/v1/logs", nil
	}
	return "", fmt.Errorf("unknown resource kind %q", r.Kind)
}

// entityPath maps the resource plus an entity id onto its REST path for
// point lookups.
func (r Resource) entityPath(id string) (string, error) {
	switch r.Kind {
	case KindUsers:
		return "/api/v1/users/" + id, nil
	case KindGroups:
		return "/api/v1/groups/" + id, nil
	case KindApplications:
		return "/api/v1/apps/" + id, nil
	case KindPolicyRules:
		return fmt.Sprintf("/api/v1/policies/%s/rules/%s", r.ParentID, id), nil
	}
	return "", fmt.Errorf("resource kind %q does not support point lookup", r.Kind)
}

// ListOptions carries the filter, search and paging parameters of a listing.
// Zero values mean the parameter is not sent to the remote API.
type ListOptions struct {
	// Query is a simple text search (Okta `q` parameter).
	Query string
	// Search is a SCIM filter expression (Okta `search` parameter).
	Search string
	// Filter is an Okta filter expression (`filter` parameter).
	Filter string

	SortBy    string
	SortOrder string

	// Since/Until bound time-filtered listings (system log).
	Since string
	Until string

	// Limit is the per-page size requested from the remote API.
	Limit int

	// After is the opaque page cursor to resume from.
	After string

	// Expand requests embedded resources where the API supports it.
	Expand string
}

// Page is one page of a remote listing. NextCursor is empty at end of data.
type Page struct {
	Entities   []Entity
	NextCursor string
}

// Pager walks a remote paginated listing one page at a time. Close releases
// the pager; a cancelled call must Close the pager so partially fetched
// listings are abandoned cleanly.
type Pager interface {
	// Next fetches the next page. Returns nil when no page remains.
	Next(ctx context.Context) (*Page, error)

	// HasNext reports whether another page is available without fetching it.
	HasNext() bool

	// Close releases the pager.
	Close() error
}

// Directory is the read-only contract the tool handlers consume. The real
// implementation is Client; tests substitute fakes.
type Directory interface {
	// List opens a pager over a resource listing.
	List(resource Resource, opts ListOptions) Pager

	// Get fetches a single entity by id. Fails with a not_found error when
	// the entity does not exist.
	Get(ctx context.Context, resource Resource, id string) (Entity, error)
}
