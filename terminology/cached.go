package terminology

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/gofhir/conformance/service"
)

// DefaultRemoteTimeout bounds a single remote membership call.
const DefaultRemoteTimeout = 10 * time.Second

// MetricsRecorder receives lookup-layer events. The engine's Metrics
// satisfies it; a nil recorder disables recording.
type MetricsRecorder interface {
	RecordCacheHit()
	RecordCacheMiss()
	RecordRemoteCall()
	RecordCoalescedLookup()
	RecordUnknownOutcome()
}

// CachedLookup answers membership questions through a provider, with a
// sharded outcome cache in front and single-flight coalescing so
// concurrent lookups for the same key share one remote call.
//
// Every provider failure collapses to OutcomeUnknown: a terminology
// outage degrades confidence, never correctness.
type CachedLookup struct {
	provider service.TerminologyProvider
	cache    *ShardedCache
	group    singleflight.Group
	timeout  time.Duration
	metrics  MetricsRecorder
}

// NewCachedLookup creates a cached lookup over the given provider.
// A nil provider is allowed; every lookup then reports unknown.
func NewCachedLookup(provider service.TerminologyProvider, config CacheConfig, timeout time.Duration) *CachedLookup {
	if timeout <= 0 {
		timeout = DefaultRemoteTimeout
	}
	return &CachedLookup{
		provider: provider,
		cache:    NewShardedCache(config),
		timeout:  timeout,
	}
}

// SetMetrics attaches a metrics recorder. Call before first use.
func (l *CachedLookup) SetMetrics(m MetricsRecorder) {
	l.metrics = m
}

// Cache returns the underlying cache for inspection.
func (l *CachedLookup) Cache() *ShardedCache {
	return l.cache
}

// Lookup resolves one system+code pairing against a ValueSet.
func (l *CachedLookup) Lookup(ctx context.Context, valueSetURL, version, system, code string) service.Outcome {
	if l.provider == nil {
		l.recordUnknown()
		return service.OutcomeUnknown
	}

	key := MakeLookupKey(valueSetURL, version, system, code)
	if outcome, ok := l.cache.Get(key); ok {
		if l.metrics != nil {
			l.metrics.RecordCacheHit()
		}
		if outcome == service.OutcomeUnknown {
			l.recordUnknown()
		}
		return outcome
	}
	if l.metrics != nil {
		l.metrics.RecordCacheMiss()
	}

	// Coalesce concurrent lookups for the same key into one remote
	// call. The leader runs detached from any caller's context so a
	// cancelled follower cannot poison the shared result.
	ch := l.group.DoChan(key, func() (any, error) {
		return l.remoteLookup(valueSetURL, version, system, code, key), nil
	})

	select {
	case <-ctx.Done():
		l.recordUnknown()
		return service.OutcomeUnknown
	case res := <-ch:
		if res.Shared && l.metrics != nil {
			l.metrics.RecordCoalescedLookup()
		}
		outcome := res.Val.(service.Outcome)
		if outcome == service.OutcomeUnknown {
			l.recordUnknown()
		}
		return outcome
	}
}

// remoteLookup performs the provider call and caches its outcome.
func (l *CachedLookup) remoteLookup(valueSetURL, version, system, code, key string) service.Outcome {
	if l.metrics != nil {
		l.metrics.RecordRemoteCall()
	}

	callCtx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()

	outcome := service.OutcomeUnknown
	if ok, err := l.provider.ValidateCode(callCtx, valueSetURL, system, code, version); err == nil {
		if ok {
			outcome = service.OutcomeValid
		} else {
			outcome = service.OutcomeInvalid
		}
	}

	l.cache.Set(key, outcome)
	return outcome
}

func (l *CachedLookup) recordUnknown() {
	if l.metrics != nil {
		l.metrics.RecordUnknownOutcome()
	}
}
