package pool

import "sync"

// MapPool provides pooled maps for temporary use, such as the seen-set
// built while de-duplicating issues.
type MapPool[K comparable, V any] struct {
	pool sync.Pool
	cap  int
}

// NewMapPool creates a pool of maps with the given initial capacity.
func NewMapPool[K comparable, V any](initialCap int) *MapPool[K, V] {
	return &MapPool[K, V]{
		pool: sync.Pool{
			New: func() any {
				return make(map[K]V, initialCap)
			},
		},
		cap: initialCap,
	}
}

// Acquire gets a map from the pool.
func (p *MapPool[K, V]) Acquire() map[K]V {
	return p.pool.Get().(map[K]V)
}

// Release clears the map and returns it to the pool.
func (p *MapPool[K, V]) Release(m map[K]V) {
	if m == nil {
		return
	}
	// Don't return oversized maps.
	if len(m) > p.cap*4 {
		return
	}
	for k := range m {
		delete(m, k)
	}
	p.pool.Put(m)
}
