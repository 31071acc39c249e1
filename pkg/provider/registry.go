package provider

import (
	"fmt"
	"sort"
	"sync"

	"github.com/Aman-CERP/placesearch/pkg/place"
)

// Registry maps sources to the providers that answer for them.
// Safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	providers map[place.Source]Provider
}

// NewRegistry creates a registry holding the given providers.
func NewRegistry(providers ...Provider) (*Registry, error) {
	r := &Registry{providers: make(map[place.Source]Provider, len(providers))}
	for _, p := range providers {
		if err := r.Register(p); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds p under p.Name().
func (r *Registry) Register(p Provider) error {
	if p == nil {
		return ErrNilProvider
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	name := p.Name()
	if _, ok := r.providers[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateProvider, name)
	}
	r.providers[name] = p
	return nil
}

// Get returns the provider for source.
func (r *Registry) Get(source place.Source) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[source]
	return p, ok
}

// Details returns the provider for source if it supports place details.
func (r *Registry) Details(source place.Source) (DetailProvider, error) {
	p, ok := r.Get(source)
	if !ok {
		return nil, fmt.Errorf("%w: %s", place.ErrUnknownSource, source)
	}
	dp, ok := p.(DetailProvider)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDetailsNotSupported, source)
	}
	return dp, nil
}

// Sources returns the registered sources sorted by name.
func (r *Registry) Sources() []place.Source {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sources := make([]place.Source, 0, len(r.providers))
	for s := range r.providers {
		sources = append(sources, s)
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i] < sources[j] })
	return sources
}

// Len returns the number of registered providers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.providers)
}
