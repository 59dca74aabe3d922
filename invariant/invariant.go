// Package invariant evaluates declared constraints against record
// nodes and converts violations into issues.
package invariant

import (
	"context"
	"fmt"

	fc "github.com/gofhir/conformance"
	"github.com/gofhir/conformance/schema"
	"github.com/gofhir/conformance/service"
)

// Evaluate runs one invariant against a focus node. It returns nil
// when the invariant holds, a violation issue when it does not, and an
// error-severity issue when the expression itself cannot be evaluated;
// the second return reports that evaluation-failure case. Evaluation
// never aborts a validation run.
func Evaluate(ctx context.Context, eval service.ExpressionEvaluator, inv *schema.Invariant, focus any, declaredPath, instancePath string) (*fc.Issue, bool) {
	if eval == nil || inv.Expression == "" {
		return nil, false
	}

	satisfied, err := eval.EvalBool(ctx, focus, inv.Expression)
	if err != nil {
		return &fc.Issue{
			Key:          inv.Key,
			Severity:     fc.SeverityError,
			DeclaredPath: declaredPath,
			InstancePath: instancePath,
			Expression:   inv.Expression,
			Message:      fmt.Sprintf("constraint %s could not be evaluated: %v", inv.Key, err),
		}, true
	}
	if satisfied {
		return nil, false
	}

	return &fc.Issue{
		Key:          inv.Key,
		Severity:     MapSeverity(inv.Severity),
		DeclaredPath: declaredPath,
		InstancePath: instancePath,
		Expression:   inv.Expression,
		Message:      violationMessage(inv),
	}, false
}

// EvaluateAll runs every invariant in declaration order against the
// same focus and paths, collecting the issues it produces.
func EvaluateAll(ctx context.Context, eval service.ExpressionEvaluator, invariants []schema.Invariant, focus any, declaredPath, instancePath string) []fc.Issue {
	if len(invariants) == 0 {
		return nil
	}

	var issues []fc.Issue
	for i := range invariants {
		if issue, _ := Evaluate(ctx, eval, &invariants[i], focus, declaredPath, instancePath); issue != nil {
			issues = append(issues, *issue)
		}
	}
	return issues
}

// MapSeverity maps a declared invariant severity to an issue severity.
// Unrecognized severities degrade to error, never to silence.
func MapSeverity(declared string) fc.Severity {
	switch declared {
	case "warning":
		return fc.SeverityWarning
	default:
		return fc.SeverityError
	}
}

// violationMessage builds the human-readable violation message.
func violationMessage(inv *schema.Invariant) string {
	if inv.Human != "" {
		return fmt.Sprintf("constraint %s violated: %s", inv.Key, inv.Human)
	}
	return fmt.Sprintf("constraint %s violated (expression: %s)", inv.Key, inv.Expression)
}
