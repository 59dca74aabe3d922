package terminology

import (
	"context"
	"sync"

	"github.com/gofhir/fhir/r4"

	"github.com/gofhir/conformance/service"
)

// InMemoryProvider is a TerminologyProvider backed by in-memory
// membership tables. It serves tests, offline validation, and small
// deployments that preload the ValueSets they care about.
type InMemoryProvider struct {
	mu   sync.RWMutex
	sets map[string]map[string]bool
}

// NewInMemoryProvider creates an empty in-memory provider.
func NewInMemoryProvider() *InMemoryProvider {
	return &InMemoryProvider{
		sets: make(map[string]map[string]bool),
	}
}

// AddCodes registers codes as members of a ValueSet under a system.
// Use an empty system for bare codes.
func (p *InMemoryProvider) AddCodes(valueSetURL, system string, codes ...string) {
	url, _ := SplitCanonical(valueSetURL)

	p.mu.Lock()
	defer p.mu.Unlock()

	set := p.sets[url]
	if set == nil {
		set = make(map[string]bool)
		p.sets[url] = set
	}
	for _, code := range codes {
		set[memberKey(system, code)] = true
	}
}

// LoadValueSet registers every code enumerable from an R4 ValueSet.
func (p *InMemoryProvider) LoadValueSet(vs *r4.ValueSet) error {
	ops, err := BuildOps(vs)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	set := p.sets[ops.URL]
	if set == nil {
		set = make(map[string]bool)
		p.sets[ops.URL] = set
	}

	// Re-walk the resource rather than peeking inside ops; the builder
	// already normalized systems and codes.
	if vs.Expansion != nil {
		for i := range vs.Expansion.Contains {
			addContains(set, &vs.Expansion.Contains[i])
		}
	} else if vs.Compose != nil {
		for i := range vs.Compose.Include {
			include := &vs.Compose.Include[i]
			if include.System == nil {
				continue
			}
			for j := range include.Concept {
				if include.Concept[j].Code != nil {
					set[memberKey(*include.System, *include.Concept[j].Code)] = true
				}
			}
		}
	}
	return nil
}

func addContains(set map[string]bool, contains *r4.ValueSetExpansionContains) {
	if contains.System != nil && contains.Code != nil {
		set[memberKey(*contains.System, *contains.Code)] = true
	}
	for i := range contains.Contains {
		addContains(set, &contains.Contains[i])
	}
}

// ValidateCode implements service.TerminologyProvider. Unknown
// ValueSets report ErrNotFound so chained providers can answer.
func (p *InMemoryProvider) ValidateCode(ctx context.Context, valueSetURL, system, code, _ string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	url, _ := SplitCanonical(valueSetURL)

	p.mu.RLock()
	set, ok := p.sets[url]
	member := ok && set[memberKey(system, code)]
	p.mu.RUnlock()

	if !ok {
		return false, service.ErrNotFound
	}
	return member, nil
}

// Verify interface compliance.
var _ service.TerminologyProvider = (*InMemoryProvider)(nil)
