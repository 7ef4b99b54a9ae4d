package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Handler executes one validated tool call. args carries decoded JSON, so
// numbers arrive as float64.
type Handler func(ctx context.Context, args map[string]any) (any, error)

// Descriptor registers one tool.
type Descriptor struct {
	Name             string
	Description      string
	InputSchema      string // JSON Schema source
	Handler          Handler
	Cacheable        bool
	CacheTTL         time.Duration
	SensitiveArgKeys []string

	compiled *jsonschema.Schema
}

// Info is the transport-facing descriptor: everything but the handler.
type Info struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// Registry holds the tool set. Registration happens once at startup; lookups
// are read-only afterwards, so no lock is needed.
type Registry struct {
	order []string
	tools map[string]*Descriptor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: map[string]*Descriptor{}}
}

// Register compiles the descriptor's schema and adds it. Duplicate names and
// broken schemas are programmer errors.
func (r *Registry) Register(d Descriptor) error {
	if d.Name == "" || d.Handler == nil {
		return fmt.Errorf("tool descriptor needs a name and a handler")
	}
	if _, exists := r.tools[d.Name]; exists {
		return fmt.Errorf("tool %q registered twice", d.Name)
	}

	compiled, err := jsonschema.CompileString(d.Name+".schema.json", d.InputSchema)
	if err != nil {
		return fmt.Errorf("compile schema for %s: %w", d.Name, err)
	}
	d.compiled = compiled

	r.order = append(r.order, d.Name)
	r.tools[d.Name] = &d
	return nil
}

// MustRegister panics on registration failure; used for the static tool set.
func (r *Registry) MustRegister(d Descriptor) {
	if err := r.Register(d); err != nil {
		panic(err)
	}
}

// Get looks a tool up by name.
func (r *Registry) Get(name string) (*Descriptor, bool) {
	d, ok := r.tools[name]
	return d, ok
}

// List returns descriptors in registration order.
func (r *Registry) List() []Info {
	infos := make([]Info, 0, len(r.order))
	for _, name := range r.order {
		d := r.tools[name]
		infos = append(infos, Info{
			Name:        d.Name,
			Description: d.Description,
			InputSchema: json.RawMessage(d.InputSchema),
		})
	}
	return infos
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Validate checks args against the tool's schema and returns field-level
// failures.
func (d *Descriptor) Validate(args map[string]any) []FieldError {
	// jsonschema validates decoded JSON values; a nil map must still count
	// as an empty object.
	var doc any = map[string]any{}
	if args != nil {
		doc = args
	}

	err := d.compiled.Validate(doc)
	if err == nil {
		return nil
	}

	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []FieldError{{Path: "/", Message: err.Error()}}
	}

	var details []FieldError
	for _, basic := range ve.BasicOutput().Errors {
		if basic.Error == "" || strings.Contains(basic.Error, "doesn't validate with") {
			continue
		}
		path := basic.InstanceLocation
		if path == "" {
			path = "/"
		}
		details = append(details, FieldError{Path: path, Message: basic.Error})
	}
	if len(details) == 0 {
		details = []FieldError{{Path: "/", Message: ve.Message}}
	}

	sort.Slice(details, func(i, j int) bool { return details[i].Path < details[j].Path })
	return details
}
