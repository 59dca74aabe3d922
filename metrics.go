package conformance

import (
	"sync/atomic"
	"time"
)

// Metrics tracks validation performance metrics using lock-free atomic
// operations. All methods are safe for concurrent use.
type Metrics struct {
	// Validation counts
	validationsTotal atomic.Uint64
	validationsValid atomic.Uint64

	// Timing (stored as nanoseconds)
	validationTimeTotal atomic.Uint64
	validationTimeMin   atomic.Uint64
	validationTimeMax   atomic.Uint64

	// Issue counts by severity
	errorsTotal   atomic.Uint64
	warningsTotal atomic.Uint64

	// Invariant evaluation
	invariantsEvaluated atomic.Uint64
	evaluationFailures  atomic.Uint64

	// Terminology
	cacheHits        atomic.Uint64
	cacheMisses      atomic.Uint64
	remoteCalls      atomic.Uint64
	coalescedLookups atomic.Uint64
	unknownOutcomes  atomic.Uint64
}

// NewMetrics creates a new Metrics instance.
func NewMetrics() *Metrics {
	m := &Metrics{}
	// Initialize min to max uint64 so first value becomes the minimum
	m.validationTimeMin.Store(^uint64(0))
	return m
}

// --- Recording Methods ---

// RecordValidation records a completed validation.
func (m *Metrics) RecordValidation(duration time.Duration, valid bool) {
	m.validationsTotal.Add(1)
	if valid {
		m.validationsValid.Add(1)
	}

	ns := uint64(duration.Nanoseconds()) //nolint:gosec // Safe: nanoseconds are always positive for valid durations
	m.validationTimeTotal.Add(ns)

	// Update min (CAS loop)
	for {
		old := m.validationTimeMin.Load()
		if ns >= old {
			break
		}
		if m.validationTimeMin.CompareAndSwap(old, ns) {
			break
		}
	}

	// Update max (CAS loop)
	for {
		old := m.validationTimeMax.Load()
		if ns <= old {
			break
		}
		if m.validationTimeMax.CompareAndSwap(old, ns) {
			break
		}
	}
}

// RecordIssue records an emitted issue by severity.
func (m *Metrics) RecordIssue(severity Severity) {
	switch severity {
	case SeverityError:
		m.errorsTotal.Add(1)
	case SeverityWarning:
		m.warningsTotal.Add(1)
	}
}

// RecordInvariant records an invariant evaluation; failed marks an
// evaluation failure (the expression could not be evaluated at all,
// not a constraint violation).
func (m *Metrics) RecordInvariant(failed bool) {
	m.invariantsEvaluated.Add(1)
	if failed {
		m.evaluationFailures.Add(1)
	}
}

// RecordCacheHit records a terminology cache hit.
func (m *Metrics) RecordCacheHit() {
	m.cacheHits.Add(1)
}

// RecordCacheMiss records a terminology cache miss.
func (m *Metrics) RecordCacheMiss() {
	m.cacheMisses.Add(1)
}

// RecordRemoteCall records one call reaching the terminology provider.
func (m *Metrics) RecordRemoteCall() {
	m.remoteCalls.Add(1)
}

// RecordCoalescedLookup records a lookup that attached to an in-flight
// call instead of issuing its own.
func (m *Metrics) RecordCoalescedLookup() {
	m.coalescedLookups.Add(1)
}

// RecordUnknownOutcome records a binding resolution that ended Unknown.
func (m *Metrics) RecordUnknownOutcome() {
	m.unknownOutcomes.Add(1)
}

// --- Snapshot ---

// MetricsSnapshot is a point-in-time copy of all metrics.
type MetricsSnapshot struct {
	ValidationsTotal uint64
	ValidationsValid uint64

	ValidationTimeTotal time.Duration
	ValidationTimeMin   time.Duration
	ValidationTimeMax   time.Duration
	ValidationTimeAvg   time.Duration

	ErrorsTotal   uint64
	WarningsTotal uint64

	InvariantsEvaluated uint64
	EvaluationFailures  uint64

	CacheHits        uint64
	CacheMisses      uint64
	RemoteCalls      uint64
	CoalescedLookups uint64
	UnknownOutcomes  uint64
}

// Snapshot returns a point-in-time copy of all metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	total := m.validationsTotal.Load()

	s := MetricsSnapshot{
		ValidationsTotal: total,
		ValidationsValid: m.validationsValid.Load(),

		ValidationTimeTotal: time.Duration(m.validationTimeTotal.Load()), //nolint:gosec

		ErrorsTotal:   m.errorsTotal.Load(),
		WarningsTotal: m.warningsTotal.Load(),

		InvariantsEvaluated: m.invariantsEvaluated.Load(),
		EvaluationFailures:  m.evaluationFailures.Load(),

		CacheHits:        m.cacheHits.Load(),
		CacheMisses:      m.cacheMisses.Load(),
		RemoteCalls:      m.remoteCalls.Load(),
		CoalescedLookups: m.coalescedLookups.Load(),
		UnknownOutcomes:  m.unknownOutcomes.Load(),
	}

	if minT := m.validationTimeMin.Load(); minT != ^uint64(0) {
		s.ValidationTimeMin = time.Duration(minT) //nolint:gosec
	}
	s.ValidationTimeMax = time.Duration(m.validationTimeMax.Load()) //nolint:gosec

	if total > 0 {
		s.ValidationTimeAvg = s.ValidationTimeTotal / time.Duration(total) //nolint:gosec
	}

	return s
}

// CacheHitRate returns the terminology cache hit rate in [0, 1].
func (s MetricsSnapshot) CacheHitRate() float64 {
	lookups := s.CacheHits + s.CacheMisses
	if lookups == 0 {
		return 0
	}
	return float64(s.CacheHits) / float64(lookups)
}

// Reset zeroes all metrics.
func (m *Metrics) Reset() {
	m.validationsTotal.Store(0)
	m.validationsValid.Store(0)
	m.validationTimeTotal.Store(0)
	m.validationTimeMin.Store(^uint64(0))
	m.validationTimeMax.Store(0)
	m.errorsTotal.Store(0)
	m.warningsTotal.Store(0)
	m.invariantsEvaluated.Store(0)
	m.evaluationFailures.Store(0)
	m.cacheHits.Store(0)
	m.cacheMisses.Store(0)
	m.remoteCalls.Store(0)
	m.coalescedLookups.Store(0)
	m.unknownOutcomes.Store(0)
}
