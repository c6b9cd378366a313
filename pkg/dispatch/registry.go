package dispatch

import (
	"sort"

	"github.com/papercomputeco/murasame/pkg/provider"
)

// Registry maps adapter names to adapters. It is populated once at startup
// and read concurrently afterwards.
type Registry struct {
	adapters map[string]provider.Adapter
}

// NewRegistry creates a registry of adapters keyed by their Name. A later
// adapter with the same name replaces an earlier one.
func NewRegistry(adapters ...provider.Adapter) *Registry {
	r := &Registry{adapters: make(map[string]provider.Adapter, len(adapters))}
	for _, a := range adapters {
		if a != nil {
			r.adapters[a.Name()] = a
		}
	}
	return r
}

// Get returns the adapter registered under name.
func (r *Registry) Get(name string) (provider.Adapter, bool) {
	a, ok := r.adapters[name]
	return a, ok
}

// Names returns the registered adapter names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
