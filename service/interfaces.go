package service

import (
	"context"
	"errors"
)

// Sentinel errors returned by service implementations.
var (
	// ErrNotFound indicates a terminology provider has no answer for
	// the requested ValueSet. Callers treat it as an unknown outcome,
	// not a rejection.
	ErrNotFound = errors.New("service: not found")

	// ErrNotBoolean indicates an invariant expression evaluated to a
	// value that cannot be coerced to a boolean.
	ErrNotBoolean = errors.New("service: expression result is not a boolean")
)

// ExpressionEvaluator evaluates a FHIRPath expression against a focus
// value and coerces the result to a boolean. Coercion is strict: an
// empty collection is false, a singleton boolean is its value, and
// anything else is an error.
type ExpressionEvaluator interface {
	EvalBool(ctx context.Context, focus any, expression string) (bool, error)
}

// TerminologyProvider answers authoritative code membership questions,
// typically by calling a terminology server's $validate-code operation.
//
// A returned error means the provider could not decide; callers map it
// to an unknown outcome rather than a validation failure.
type TerminologyProvider interface {
	ValidateCode(ctx context.Context, valueSetURL, system, code, version string) (bool, error)
}
