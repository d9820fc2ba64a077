package registry

import (
	"fmt"
	"log/slog"

	"github.com/vk/rejig/internal/config"
	"github.com/vk/rejig/internal/filter"
)

// Registry holds all registered filters for a single application instance,
// in registration order.
type Registry struct {
	filters map[string]filter.Filter
	order   []string
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{
		filters: make(map[string]filter.Filter),
	}
}

// Register adds a filter under its own name. Registering an unnamed filter
// or the same name twice is a programmer error.
func (r *Registry) Register(f filter.Filter) {
	name := f.Name()
	if name == "" {
		panic("filter with empty name registered")
	}
	if _, exists := r.filters[name]; exists {
		panic(fmt.Sprintf("filter with name '%s' already registered", name))
	}
	slog.Debug("Registering filter.", "name", name)
	r.filters[name] = f
	r.order = append(r.order, name)
}

// Lookup returns the filter registered under name, or nil.
func (r *Registry) Lookup(name string) filter.Filter {
	return r.filters[name]
}

// DefaultOrder returns the registration order of all filters.
func (r *Registry) DefaultOrder() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Chain produces the final execution chain for one compilation: filters
// disabled by configuration are removed, then the remaining filters'
// ordering constraints are resolved.
func (r *Registry) Chain(model *config.Model) []filter.Filter {
	enabled := make([]string, 0, len(r.order))
	for _, name := range r.order {
		if model == nil || model.Enabled(name) {
			enabled = append(enabled, name)
		}
	}

	resolved := r.Resolve(enabled)

	chain := make([]filter.Filter, 0, len(resolved))
	for _, name := range resolved {
		chain = append(chain, r.filters[name])
	}
	return chain
}
