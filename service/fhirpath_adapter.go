package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gofhir/fhirpath"
	"github.com/gofhir/fhirpath/types"

	"github.com/gofhir/conformance/cache"
)

// FHIRPathEvaluator evaluates invariant expressions using the fhirpath
// package. Compiled expressions are cached in an LRU so repeated
// validations of the same schema pay the parse cost once.
type FHIRPathEvaluator struct {
	compiled *cache.Cache[string, *fhirpath.Expression]
}

// NewFHIRPathEvaluator creates an evaluator with the given compiled
// expression cache capacity.
func NewFHIRPathEvaluator(cacheSize int) *FHIRPathEvaluator {
	return &FHIRPathEvaluator{
		compiled: cache.New[string, *fhirpath.Expression](cacheSize),
	}
}

// EvalBool evaluates a FHIRPath expression against a focus value and
// coerces the result to a boolean.
//
// Coercion is strict, matching the semantics invariant expressions
// expect: an empty collection is false, a singleton boolean is its
// value, and any other result is an error.
func (e *FHIRPathEvaluator) EvalBool(ctx context.Context, focus any, expression string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	focusBytes, err := toJSON(focus)
	if err != nil {
		return false, fmt.Errorf("encoding focus: %w", err)
	}

	compiled, err := e.getOrCompile(expression)
	if err != nil {
		return false, fmt.Errorf("compiling expression %q: %w", expression, err)
	}

	result, err := compiled.Evaluate(focusBytes)
	if err != nil {
		return false, fmt.Errorf("evaluating expression %q: %w", expression, err)
	}

	return coerceBool(result)
}

// getOrCompile returns a cached compiled expression or compiles a new one.
func (e *FHIRPathEvaluator) getOrCompile(expression string) (*fhirpath.Expression, error) {
	if compiled, ok := e.compiled.Get(expression); ok {
		return compiled, nil
	}

	compiled, err := fhirpath.Compile(expression)
	if err != nil {
		return nil, err
	}

	e.compiled.Set(expression, compiled)
	return compiled, nil
}

// CacheStats returns compiled expression cache statistics.
func (e *FHIRPathEvaluator) CacheStats() cache.Stats {
	return e.compiled.Stats()
}

// toJSON converts a focus value to JSON bytes for evaluation.
func toJSON(focus any) ([]byte, error) {
	switch v := focus.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return json.Marshal(v)
	}
}

// coerceBool converts a FHIRPath result collection to a boolean.
// Empty collections are false and singleton booleans are their value.
// Anything else is not a valid invariant result.
func coerceBool(result types.Collection) (bool, error) {
	if len(result) == 0 {
		return false, nil
	}
	if len(result) == 1 {
		if b, ok := result[0].(types.Boolean); ok {
			return b.Bool(), nil
		}
	}
	return false, fmt.Errorf("%w: got %d item(s)", ErrNotBoolean, len(result))
}

// Verify interface compliance.
var _ ExpressionEvaluator = (*FHIRPathEvaluator)(nil)
