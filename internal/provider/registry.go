package provider

import "fmt"

// Registry holds built adapters keyed by name and hands them out in a
// configured priority order.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds a provider to the registry, keyed by its Name. A later
// registration with the same name replaces the earlier one.
func (r *Registry) Register(p Provider) {
	r.providers[p.Name()] = p
}

// Ordered returns the providers for names in the given order. Names with no
// registered adapter become Unavailable so they still occupy their slot.
func (r *Registry) Ordered(names []string) []Provider {
	out := make([]Provider, 0, len(names))
	for _, n := range names {
		if p, ok := r.providers[n]; ok {
			out = append(out, p)
			continue
		}
		out = append(out, Unavailable(n, fmt.Sprintf("no adapter registered for %q", n)))
	}
	return out
}
