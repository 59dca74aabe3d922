package terminology

import (
	"hash/fnv"
	"sync"
	"time"

	"github.com/gofhir/conformance/service"
)

const (
	// DefaultShardCount is the default number of cache shards.
	// Use a power of 2 for efficient modulo operation.
	DefaultShardCount = 64

	// DefaultDecidedTTL is the default time-to-live for decided
	// (valid or invalid) outcomes.
	DefaultDecidedTTL = 15 * time.Minute

	// DefaultUnknownTTL is the default time-to-live for unknown
	// outcomes. Keeping failures briefly prevents hammering a server
	// that is down while still retrying it soon.
	DefaultUnknownTTL = 30 * time.Second
)

// ShardedCache is a thread-safe, sharded cache for membership
// outcomes. Sharding reduces lock contention under concurrent
// validation load.
type ShardedCache struct {
	shards     []*cacheShard
	shardMask  uint32
	decidedTTL time.Duration
	unknownTTL time.Duration
}

type cacheShard struct {
	mu       sync.RWMutex
	outcomes map[string]*cachedOutcome
}

type cachedOutcome struct {
	outcome   service.Outcome
	expiresAt time.Time
}

// CacheConfig holds configuration options for the cache.
type CacheConfig struct {
	// ShardCount is the number of shards, rounded up to a power of 2.
	ShardCount int

	// DecidedTTL is the time-to-live for valid and invalid outcomes.
	DecidedTTL time.Duration

	// UnknownTTL is the time-to-live for unknown outcomes.
	UnknownTTL time.Duration
}

// DefaultCacheConfig returns the default cache configuration.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		ShardCount: DefaultShardCount,
		DecidedTTL: DefaultDecidedTTL,
		UnknownTTL: DefaultUnknownTTL,
	}
}

// NewShardedCache creates a sharded cache with the given configuration.
func NewShardedCache(config CacheConfig) *ShardedCache {
	shardCount := config.ShardCount
	if shardCount <= 0 {
		shardCount = DefaultShardCount
	}
	shardCount = nextPowerOf2(shardCount)

	decidedTTL := config.DecidedTTL
	if decidedTTL <= 0 {
		decidedTTL = DefaultDecidedTTL
	}
	unknownTTL := config.UnknownTTL
	if unknownTTL <= 0 {
		unknownTTL = DefaultUnknownTTL
	}

	shards := make([]*cacheShard, shardCount)
	for i := range shards {
		shards[i] = &cacheShard{
			outcomes: make(map[string]*cachedOutcome),
		}
	}

	return &ShardedCache{
		shards:     shards,
		shardMask:  uint32(shardCount - 1),
		decidedTTL: decidedTTL,
		unknownTTL: unknownTTL,
	}
}

// getShard returns the shard for the given key.
func (c *ShardedCache) getShard(key string) *cacheShard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return c.shards[h.Sum32()&c.shardMask]
}

// Get retrieves a cached outcome. Expired entries report a miss.
func (c *ShardedCache) Get(key string) (service.Outcome, bool) {
	shard := c.getShard(key)
	shard.mu.RLock()
	cached, ok := shard.outcomes[key]
	shard.mu.RUnlock()

	if !ok {
		return service.OutcomeUnknown, false
	}

	if time.Now().After(cached.expiresAt) {
		// Expired - remove asynchronously.
		go func() {
			shard.mu.Lock()
			delete(shard.outcomes, key)
			shard.mu.Unlock()
		}()
		return service.OutcomeUnknown, false
	}

	return cached.outcome, true
}

// Set stores an outcome with the TTL matching its class: decided
// outcomes keep the long TTL, unknown outcomes the short one.
func (c *ShardedCache) Set(key string, outcome service.Outcome) {
	ttl := c.decidedTTL
	if !outcome.Decided() {
		ttl = c.unknownTTL
	}

	shard := c.getShard(key)
	shard.mu.Lock()
	shard.outcomes[key] = &cachedOutcome{
		outcome:   outcome,
		expiresAt: time.Now().Add(ttl),
	}
	shard.mu.Unlock()
}

// Clear removes all entries from the cache.
func (c *ShardedCache) Clear() {
	for _, shard := range c.shards {
		shard.mu.Lock()
		shard.outcomes = make(map[string]*cachedOutcome)
		shard.mu.Unlock()
	}
}

// Cleanup removes expired entries.
func (c *ShardedCache) Cleanup() {
	now := time.Now()
	for _, shard := range c.shards {
		shard.mu.Lock()
		for key, cached := range shard.outcomes {
			if now.After(cached.expiresAt) {
				delete(shard.outcomes, key)
			}
		}
		shard.mu.Unlock()
	}
}

// CacheStats holds cache statistics.
type CacheStats struct {
	Entries int
	Shards  int
}

// Stats returns current cache statistics.
func (c *ShardedCache) Stats() CacheStats {
	var entries int
	for _, shard := range c.shards {
		shard.mu.RLock()
		entries += len(shard.outcomes)
		shard.mu.RUnlock()
	}
	return CacheStats{
		Entries: entries,
		Shards:  len(c.shards),
	}
}

// MakeLookupKey creates a cache key for a membership lookup. The
// ValueSet version is part of the key so a version change invalidates
// prior answers.
func MakeLookupKey(valueSetURL, version, system, code string) string {
	// Use a separator that won't appear in URLs or codes.
	return valueSetURL + "\x00" + version + "\x00" + system + "\x00" + code
}

// nextPowerOf2 returns the smallest power of 2 >= n.
func nextPowerOf2(n int) int {
	if n <= 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	return n + 1
}
