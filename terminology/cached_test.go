package terminology

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofhir/conformance/service"
)

// slowProvider counts calls and blocks until released.
type slowProvider struct {
	calls   atomic.Int64
	release chan struct{}
	result  bool
	err     error
}

func (p *slowProvider) ValidateCode(ctx context.Context, _, _, _, _ string) (bool, error) {
	p.calls.Add(1)
	if p.release != nil {
		select {
		case <-p.release:
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
	return p.result, p.err
}

func TestCachedLookup_NilProvider(t *testing.T) {
	l := NewCachedLookup(nil, DefaultCacheConfig(), 0)
	if got := l.Lookup(context.Background(), "vs", "", "sys", "code"); got != service.OutcomeUnknown {
		t.Errorf("Lookup = %v; want unknown", got)
	}
}

func TestCachedLookup_ValidAndCached(t *testing.T) {
	p := &slowProvider{result: true}
	l := NewCachedLookup(p, DefaultCacheConfig(), time.Second)

	if got := l.Lookup(context.Background(), "vs", "", "sys", "code"); got != service.OutcomeValid {
		t.Fatalf("first Lookup = %v; want valid", got)
	}
	if got := l.Lookup(context.Background(), "vs", "", "sys", "code"); got != service.OutcomeValid {
		t.Fatalf("second Lookup = %v; want valid", got)
	}
	if calls := p.calls.Load(); calls != 1 {
		t.Errorf("provider called %d times; want 1", calls)
	}
}

func TestCachedLookup_ProviderErrorIsUnknown(t *testing.T) {
	p := &slowProvider{err: errors.New("server down")}
	l := NewCachedLookup(p, DefaultCacheConfig(), time.Second)

	if got := l.Lookup(context.Background(), "vs", "", "sys", "code"); got != service.OutcomeUnknown {
		t.Errorf("Lookup = %v; want unknown", got)
	}
}

func TestCachedLookup_Coalescing(t *testing.T) {
	p := &slowProvider{result: true, release: make(chan struct{})}
	l := NewCachedLookup(p, DefaultCacheConfig(), time.Second)

	const n = 16
	var wg sync.WaitGroup
	outcomes := make([]service.Outcome, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i] = l.Lookup(context.Background(), "vs", "", "sys", "code")
		}(i)
	}

	// Give the goroutines time to pile onto the same key, then let the
	// single leader finish.
	time.Sleep(50 * time.Millisecond)
	close(p.release)
	wg.Wait()

	if calls := p.calls.Load(); calls != 1 {
		t.Errorf("provider called %d times; want 1", calls)
	}
	for i, o := range outcomes {
		if o != service.OutcomeValid {
			t.Errorf("outcome[%d] = %v; want valid", i, o)
		}
	}
}

func TestCachedLookup_CallerCancellation(t *testing.T) {
	p := &slowProvider{result: true, release: make(chan struct{})}
	defer close(p.release)
	l := NewCachedLookup(p, DefaultCacheConfig(), time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan service.Outcome, 1)
	go func() {
		done <- l.Lookup(ctx, "vs", "", "sys", "code")
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case got := <-done:
		if got != service.OutcomeUnknown {
			t.Errorf("Lookup = %v; want unknown on cancellation", got)
		}
	case <-time.After(time.Second):
		t.Fatal("Lookup did not return after cancellation")
	}
}

func TestCachedLookup_DifferentKeysNotCoalesced(t *testing.T) {
	p := &slowProvider{result: true}
	l := NewCachedLookup(p, DefaultCacheConfig(), time.Second)

	l.Lookup(context.Background(), "vs", "", "sys", "a")
	l.Lookup(context.Background(), "vs", "", "sys", "b")

	if calls := p.calls.Load(); calls != 2 {
		t.Errorf("provider called %d times; want 2", calls)
	}
}
