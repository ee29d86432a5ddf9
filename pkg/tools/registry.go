package tools

import (
	"sort"

	"github.com/gps-prasad/aws-okta-mcp-server/internal/errors"
	"github.com/gps-prasad/aws-okta-mcp-server/pkg/protocol"
)

// Registry holds the fixed tool catalog. Register everything during server
// construction; Lookup, Validate and List are safe for concurrent use only
// once registration is done.
type Registry struct {
	tools map[string]*Descriptor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*Descriptor)}
}

// Register adds a descriptor. Fails with a duplicate_tool error when the
// name is already taken.
func (r *Registry) Register(descriptor *Descriptor) error {
	if descriptor == nil {
		return errors.New(errors.InternalError, "tool descriptor cannot be nil")
	}
	if descriptor.Name == "" {
		return errors.New(errors.InternalError, "tool name cannot be empty")
	}
	if descriptor.Handler == nil {
		return errors.Newf(errors.InternalError, "tool %s has no handler", descriptor.Name)
	}
	if _, exists := r.tools[descriptor.Name]; exists {
		return errors.Newf(errors.DuplicateTool, "tool %s already registered", descriptor.Name)
	}
	r.tools[descriptor.Name] = descriptor
	return nil
}

// MustRegister registers a descriptor and panics on failure. Catalog
// construction errors are programming mistakes, not runtime conditions.
func (r *Registry) MustRegister(descriptor *Descriptor) {
	if err := r.Register(descriptor); err != nil {
		panic(err)
	}
}

// Lookup returns the descriptor for a tool name, or an unknown_tool error.
func (r *Registry) Lookup(name string) (*Descriptor, error) {
	descriptor, exists := r.tools[name]
	if !exists {
		return nil, errors.Newf(errors.UnknownTool, "unknown tool: %s", name)
	}
	return descriptor, nil
}

// List returns all descriptors in name order.
func (r *Registry) List() []*Descriptor {
	descriptors := make([]*Descriptor, 0, len(r.tools))
	for _, descriptor := range r.tools {
		descriptors = append(descriptors, descriptor)
	}
	sort.Slice(descriptors, func(i, j int) bool {
		return descriptors[i].Name < descriptors[j].Name
	})
	return descriptors
}

// WireList returns the protocol view of the catalog for tools/list.
func (r *Registry) WireList() []protocol.Tool {
	descriptors := r.List()
	wire := make([]protocol.Tool, 0, len(descriptors))
	for _, descriptor := range descriptors {
		wire = append(wire, descriptor.Tool)
	}
	return wire
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	return len(r.tools)
}
