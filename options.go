package conformance

import (
	"runtime"
	"time"
)

// Option configures the validation engine.
type Option func(*Options)

// Options holds all configuration for the validation engine.
type Options struct {
	// Terminology cache
	TerminologyTTL        time.Duration // decided (Valid/Invalid) outcomes
	TerminologyUnknownTTL time.Duration // Unknown outcomes, short to permit retry
	ShardCount            int

	// Remote lookups
	RemoteTimeout time.Duration

	// Concurrency
	BindingConcurrency int // concurrent binding resolutions per validation; <=1 is sequential
	WorkerCount        int // workers for batch validation

	// Cache sizes
	ExpressionCacheSize int

	// Performance
	EnablePooling bool
}

// Default TTLs for terminology cache entries. Decided outcomes are
// stable and can be held for a while; Unknown outcomes are retried
// quickly without re-storming the server.
const (
	DefaultTerminologyTTL        = 15 * time.Minute
	DefaultTerminologyUnknownTTL = 30 * time.Second
	DefaultRemoteTimeout         = 10 * time.Second
)

// DefaultOptions returns the default configuration.
func DefaultOptions() *Options {
	return &Options{
		TerminologyTTL:        DefaultTerminologyTTL,
		TerminologyUnknownTTL: DefaultTerminologyUnknownTTL,
		ShardCount:            64,

		RemoteTimeout: DefaultRemoteTimeout,

		BindingConcurrency: 1, // sequential unless asked otherwise
		WorkerCount:        runtime.NumCPU(),

		ExpressionCacheSize: 2000,

		EnablePooling: true,
	}
}

// --- Terminology Options ---

// WithTerminologyTTL sets the cache TTL for decided (Valid/Invalid)
// terminology outcomes.
func WithTerminologyTTL(ttl time.Duration) Option {
	return func(o *Options) {
		if ttl > 0 {
			o.TerminologyTTL = ttl
		}
	}
}

// WithTerminologyUnknownTTL sets the cache TTL for Unknown terminology
// outcomes. Keep this short: it governs how soon a failed lookup is
// retried against the server.
func WithTerminologyUnknownTTL(ttl time.Duration) Option {
	return func(o *Options) {
		if ttl > 0 {
			o.TerminologyUnknownTTL = ttl
		}
	}
}

// WithShardCount sets the number of terminology cache shards.
// Rounded up to a power of 2.
func WithShardCount(count int) Option {
	return func(o *Options) {
		if count > 0 {
			o.ShardCount = count
		}
	}
}

// WithRemoteTimeout bounds each remote terminology call. A lookup that
// exceeds the timeout resolves to Unknown, never to an error.
func WithRemoteTimeout(timeout time.Duration) Option {
	return func(o *Options) {
		if timeout > 0 {
			o.RemoteTimeout = timeout
		}
	}
}

// --- Concurrency Options ---

// WithBindingConcurrency sets how many binding checks one validation may
// resolve concurrently. Bindings for different fields are independent;
// the final issue set is order-stable regardless. Use 1 for strictly
// sequential resolution.
func WithBindingConcurrency(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.BindingConcurrency = n
		}
	}
}

// WithWorkerCount sets the number of workers for batch validation.
// Defaults to runtime.NumCPU().
func WithWorkerCount(count int) Option {
	return func(o *Options) {
		if count > 0 {
			o.WorkerCount = count
		}
	}
}

// --- Cache Options ---

// WithExpressionCache sets the compiled-expression cache size.
func WithExpressionCache(size int) Option {
	return func(o *Options) {
		if size > 0 {
			o.ExpressionCacheSize = size
		}
	}
}

// --- Performance Options ---

// WithPooling enables or disables object pooling.
// Pooling reduces GC pressure but requires calling Release() on results.
func WithPooling(enable bool) Option {
	return func(o *Options) {
		o.EnablePooling = enable
	}
}

// --- Presets ---

// OfflineOptions returns options suited to validation without a
// terminology server: unknown outcomes are held longer since retrying
// cannot improve them.
func OfflineOptions() []Option {
	return []Option{
		WithTerminologyUnknownTTL(10 * time.Minute),
	}
}

// ThroughputOptions returns options optimized for bulk validation.
func ThroughputOptions() []Option {
	return []Option{
		WithBindingConcurrency(8),
		WithWorkerCount(runtime.NumCPU()),
		WithExpressionCache(5000),
		WithPooling(true),
	}
}
