package terminology

import (
	"sync"

	"github.com/gofhir/fhir/r4"

	"github.com/gofhir/conformance/service"
)

// Registry holds the local membership tables known to an engine,
// keyed by canonical ValueSet URL.
type Registry struct {
	mu  sync.RWMutex
	ops map[string]*service.ValueSetOps
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		ops: make(map[string]*service.ValueSetOps),
	}
}

// Register adds a membership table. A table already registered under
// the same URL is replaced.
func (r *Registry) Register(ops *service.ValueSetOps) {
	if ops == nil || ops.URL == "" {
		return
	}
	r.mu.Lock()
	r.ops[ops.URL] = ops
	r.mu.Unlock()
}

// RegisterValueSet builds and registers a table from an R4 ValueSet.
func (r *Registry) RegisterValueSet(vs *r4.ValueSet) error {
	ops, err := BuildOps(vs)
	if err != nil {
		return err
	}
	r.Register(ops)
	return nil
}

// Lookup returns the table for a ValueSet URL. A versioned canonical
// ("url|version") matches its unversioned table.
func (r *Registry) Lookup(valueSetURL string) (*service.ValueSetOps, bool) {
	url, _ := SplitCanonical(valueSetURL)

	r.mu.RLock()
	ops, ok := r.ops[url]
	r.mu.RUnlock()
	return ops, ok
}

// Len returns the number of registered tables.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ops)
}
