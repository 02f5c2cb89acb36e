package tool

import (
	"errors"
	"fmt"
	"sort"

	"github.com/hupe1980/turnmesh/model"
)

// Location says where a tool executes.
type Location string

const (
	// LocationBackend tools run in-process and feed their result back to the model.
	LocationBackend Location = "backend"
	// LocationFrontend tools are forwarded to the client; the run ends there.
	LocationFrontend Location = "frontend"
)

// Valid reports whether l is a known location.
func (l Location) Valid() bool {
	return l == LocationBackend || l == LocationFrontend
}

// Descriptor binds a tool to its execution location.
type Descriptor struct {
	Name     string
	Tool     Tool
	Location Location
}

// IsFrontend reports whether the tool is executed by the client.
func (d Descriptor) IsFrontend() bool { return d.Location == LocationFrontend }

var (
	// ErrDuplicateTool is returned when two tools share a name.
	ErrDuplicateTool = errors.New("duplicate tool name")
	// ErrInvalidTool is returned for nil or nameless tools and unknown locations.
	ErrInvalidTool = errors.New("invalid tool")
)

// RegistryBuilder collects tools before the registry is frozen. It is not
// safe for concurrent use.
type RegistryBuilder struct {
	tools map[string]Descriptor
}

// NewRegistryBuilder creates an empty builder.
func NewRegistryBuilder() *RegistryBuilder {
	return &RegistryBuilder{tools: make(map[string]Descriptor)}
}

// Register adds a tool at the given location.
func (b *RegistryBuilder) Register(t Tool, loc Location) error {
	if t == nil || t.Name() == "" {
		return fmt.Errorf("%w: missing tool or name", ErrInvalidTool)
	}
	if !loc.Valid() {
		return fmt.Errorf("%w: %s has unknown location %q", ErrInvalidTool, t.Name(), loc)
	}
	if _, exists := b.tools[t.Name()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, t.Name())
	}
	b.tools[t.Name()] = Descriptor{Name: t.Name(), Tool: t, Location: loc}
	return nil
}

// Backend registers backend tools.
func (b *RegistryBuilder) Backend(tools ...Tool) error {
	for _, t := range tools {
		if err := b.Register(t, LocationBackend); err != nil {
			return err
		}
	}
	return nil
}

// Frontend registers frontend tools.
func (b *RegistryBuilder) Frontend(tools ...Tool) error {
	for _, t := range tools {
		if err := b.Register(t, LocationFrontend); err != nil {
			return err
		}
	}
	return nil
}

// Build freezes the collected tools into a Registry. The builder can keep
// being used; later registrations do not affect registries already built.
func (b *RegistryBuilder) Build() *Registry {
	byName := make(map[string]Descriptor, len(b.tools))
	names := make([]string, 0, len(b.tools))
	for name, d := range b.tools {
		byName[name] = d
		names = append(names, name)
	}
	sort.Strings(names)

	decls := make([]model.ToolDefinition, 0, len(names))
	for _, name := range names {
		t := byName[name].Tool
		decls = append(decls, model.ToolDefinition{
			Type: "function",
			Function: model.FunctionDefinition{
				Name:        name,
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}

	return &Registry{byName: byName, names: names, decls: decls}
}

// Registry is the immutable name → tool mapping consulted by the
// orchestrator. It is safe for concurrent reads.
type Registry struct {
	byName map[string]Descriptor
	names  []string
	decls  []model.ToolDefinition
}

// Resolve looks up a tool by the name the model used.
func (r *Registry) Resolve(name string) (Descriptor, bool) {
	if r == nil {
		return Descriptor{}, false
	}
	d, ok := r.byName[name]
	return d, ok
}

// Declarations returns the tool definitions sent to the model, sorted by name.
func (r *Registry) Declarations() []model.ToolDefinition {
	if r == nil {
		return nil
	}
	out := make([]model.ToolDefinition, len(r.decls))
	copy(out, r.decls)
	return out
}

// Names returns the registered tool names in sorted order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.byName)
}
