// Package engine composes the walker, the invariant evaluator, the
// binding resolver, and the terminology stack into the validation
// entry points.
package engine

import (
	"context"
	"time"

	"github.com/gofhir/fhir/r4"
	"golang.org/x/sync/errgroup"

	fc "github.com/gofhir/conformance"
	"github.com/gofhir/conformance/binding"
	"github.com/gofhir/conformance/invariant"
	"github.com/gofhir/conformance/schema"
	"github.com/gofhir/conformance/service"
	"github.com/gofhir/conformance/terminology"
	"github.com/gofhir/conformance/walker"
)

// Engine validates typed records against their schemas. An Engine is
// safe for concurrent use; the terminology cache is the only state
// shared across validations.
type Engine struct {
	options *fc.Options
	metrics *fc.Metrics

	eval     service.ExpressionEvaluator
	registry *terminology.Registry
	provider service.TerminologyProvider
	lookup   *terminology.CachedLookup
	resolver *binding.Resolver
}

// New creates an Engine. Without a terminology provider, binding
// checks that cannot be decided locally report unknown outcomes.
func New(opts ...fc.Option) *Engine {
	options := fc.DefaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	e := &Engine{
		options:  options,
		metrics:  fc.NewMetrics(),
		eval:     service.NewFHIRPathEvaluator(options.ExpressionCacheSize),
		registry: terminology.NewRegistry(),
	}
	e.rebuildResolver()
	return e
}

// rebuildResolver rebuilds the lookup and resolver after a provider or
// option change. The cache is rebuilt too: cached outcomes from a
// previous provider must not answer for the new one.
func (e *Engine) rebuildResolver() {
	cfg := terminology.CacheConfig{
		ShardCount: e.options.ShardCount,
		DecidedTTL: e.options.TerminologyTTL,
		UnknownTTL: e.options.TerminologyUnknownTTL,
	}
	e.lookup = terminology.NewCachedLookup(e.provider, cfg, e.options.RemoteTimeout)
	e.lookup.SetMetrics(e.metrics)
	e.resolver = binding.NewResolver(e.registry, e.lookup)
}

// SetTerminologyProvider sets the remote terminology provider. Call
// before the first validation.
func (e *Engine) SetTerminologyProvider(p service.TerminologyProvider) {
	e.provider = p
	e.rebuildResolver()
}

// SetExpressionEvaluator replaces the FHIRPath evaluator.
func (e *Engine) SetExpressionEvaluator(eval service.ExpressionEvaluator) {
	e.eval = eval
}

// RegisterValueSet builds a local membership table from an R4 ValueSet
// and registers it for binding resolution.
func (e *Engine) RegisterValueSet(vs *r4.ValueSet) error {
	return e.registry.RegisterValueSet(vs)
}

// RegisterOps registers a pre-built membership table, typically
// produced by a code generator.
func (e *Engine) RegisterOps(ops *service.ValueSetOps) {
	e.registry.Register(ops)
}

// Registry returns the local membership table registry.
func (e *Engine) Registry() *terminology.Registry {
	return e.registry
}

// Metrics returns the engine's metrics.
func (e *Engine) Metrics() *fc.Metrics {
	return e.metrics
}

// Options returns the engine's options.
func (e *Engine) Options() *fc.Options {
	return e.options
}

// Validate validates a record that carries its own schema. It is
// total: it always returns a Result and never an error. Failures
// inside validation surface as issues, terminology trouble surfaces as
// unverified-binding warnings, and a context deadline degrades pending
// binding checks to unknown.
func (e *Engine) Validate(ctx context.Context, rec schema.Validatable) *fc.Result {
	if rec == nil {
		return e.acquireResult()
	}
	return e.ValidateNode(ctx, rec, rec.SchemaType())
}

// ValidateNode validates a node against an explicit type definition.
func (e *Engine) ValidateNode(ctx context.Context, node any, typ *schema.Type) *fc.Result {
	start := time.Now()

	result := e.acquireResult()
	if node == nil || typ == nil {
		e.metrics.RecordValidation(time.Since(start), result.Valid)
		return result
	}
	result.RecordType = typ.Name

	checks := e.walk(ctx, node, typ, result)
	e.resolveBindings(ctx, checks, result)

	result.DedupeIssues()
	for _, issue := range result.Issues {
		e.metrics.RecordIssue(issue.Severity)
	}

	e.metrics.RecordValidation(time.Since(start), result.Valid)
	return result
}

// bindingCheck is one coded field value awaiting resolution.
type bindingCheck struct {
	binding      *schema.Binding
	value        service.CodedValue
	declaredPath string
	instancePath string
}

// walk runs the traversal, evaluating invariants inline and collecting
// binding checks for later resolution.
func (e *Engine) walk(ctx context.Context, node any, typ *schema.Type, result *fc.Result) []bindingCheck {
	var checks []bindingCheck

	// The walk only errors on context cancellation; issues gathered so
	// far remain valid and pending bindings degrade to unknown.
	_ = walker.Walk(ctx, node, typ, func(wctx *walker.WalkContext) error {
		if wctx.IsFieldVisit() {
			e.evalInvariants(ctx, wctx.Field.Invariants, wctx.FieldValue, wctx, result)

			if wctx.Field.Binding != nil && wctx.Field.Coded != nil {
				if coded, ok := wctx.Field.Coded(wctx.FieldValue); ok {
					checks = append(checks, bindingCheck{
						binding:      wctx.Field.Binding,
						value:        coded,
						declaredPath: wctx.DeclaredPath,
						instancePath: wctx.InstancePath,
					})
				}
			}
			return nil
		}

		e.evalInvariants(ctx, wctx.Type.Invariants, wctx.Node, wctx, result)
		return nil
	})

	return checks
}

func (e *Engine) evalInvariants(ctx context.Context, invariants []schema.Invariant, focus any, wctx *walker.WalkContext, result *fc.Result) {
	for i := range invariants {
		issue, failed := invariant.Evaluate(ctx, e.eval, &invariants[i], focus, wctx.DeclaredPath, wctx.InstancePath)
		e.metrics.RecordInvariant(failed)
		if issue != nil {
			result.AddIssue(*issue)
		}
	}
}

// resolveBindings resolves collected binding checks, sequentially or
// under a bounded errgroup. Issues keep check order either way, so the
// result is deterministic regardless of completion order.
func (e *Engine) resolveBindings(ctx context.Context, checks []bindingCheck, result *fc.Result) {
	if len(checks) == 0 {
		return
	}

	issues := make([]*fc.Issue, len(checks))

	if e.options.BindingConcurrency <= 1 {
		for i, c := range checks {
			issues[i] = e.resolver.Check(ctx, c.binding, c.value, c.declaredPath, c.instancePath)
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(e.options.BindingConcurrency)
		for i, c := range checks {
			g.Go(func() error {
				issues[i] = e.resolver.Check(gctx, c.binding, c.value, c.declaredPath, c.instancePath)
				return nil
			})
		}
		_ = g.Wait()
	}

	for _, issue := range issues {
		if issue != nil {
			result.AddIssue(*issue)
		}
	}
}

// ValidateBatch validates records in parallel, bounded by WorkerCount.
// Results are positionally aligned with the input. All validations
// share the terminology cache, so repeated codes across a batch cost
// one remote call.
func (e *Engine) ValidateBatch(ctx context.Context, recs []schema.Validatable) []*fc.Result {
	results := make([]*fc.Result, len(recs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.options.WorkerCount)
	for i, rec := range recs {
		g.Go(func() error {
			results[i] = e.Validate(gctx, rec)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (e *Engine) acquireResult() *fc.Result {
	if e.options.EnablePooling {
		return fc.AcquireResult()
	}
	return fc.NewResult()
}
