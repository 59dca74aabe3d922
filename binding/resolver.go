// Package binding resolves coded field values against their declared
// ValueSet bindings: local membership first, remote terminology lookup
// only when the local tables cannot give a confident answer.
package binding

import (
	"context"
	"fmt"
	"strings"

	fc "github.com/gofhir/conformance"
	"github.com/gofhir/conformance/schema"
	"github.com/gofhir/conformance/service"
)

// issueKey identifies binding issues in dedup signatures. Paths
// disambiguate; one field instance has at most one binding.
const issueKey = "binding"

// OpsSource supplies local membership tables by canonical ValueSet URL.
// terminology.Registry implements it.
type OpsSource interface {
	Lookup(valueSetURL string) (*service.ValueSetOps, bool)
}

// Lookup answers remote membership questions as a tri-state outcome.
// terminology.CachedLookup implements it.
type Lookup interface {
	Lookup(ctx context.Context, valueSetURL, version, system, code string) service.Outcome
}

// Resolver resolves coded values against ValueSets. Either collaborator
// may be nil: without local tables everything defers to the lookup,
// and without a lookup unresolvable local misses stay unknown.
type Resolver struct {
	ops    OpsSource
	lookup Lookup
}

// NewResolver creates a resolver over local tables and a remote lookup.
func NewResolver(ops OpsSource, lookup Lookup) *Resolver {
	return &Resolver{ops: ops, lookup: lookup}
}

// Resolve determines membership of a coded value in a ValueSet.
//
// Local membership is consulted first and a local hit is decisive. A
// local miss is a confident rejection only when the table is a complete
// enumeration with no non-local rules; otherwise each candidate pairing
// goes to the remote lookup. A candidate missing its system or code
// cannot be checked remotely and contributes unknown rather than being
// dropped.
func (r *Resolver) Resolve(ctx context.Context, valueSetURL string, value service.CodedValue) service.Outcome {
	if value == nil {
		return service.OutcomeUnknown
	}

	var ops *service.ValueSetOps
	if r.ops != nil {
		ops, _ = r.ops.Lookup(valueSetURL)
	}

	if ops != nil {
		if ops.Contains(value) {
			return service.OutcomeValid
		}
		if ops.LocallyEnumerated && !ops.HasNonlocalRules {
			return service.OutcomeInvalid
		}
	}

	version := ""
	if ops != nil {
		version = ops.Version
	}

	candidates := value.Candidates()
	if len(candidates) == 0 {
		return service.OutcomeUnknown
	}

	// Combine per-candidate outcomes: any valid wins, any unknown
	// blocks a confident rejection.
	anyUnknown := false
	for _, c := range candidates {
		outcome := r.resolveCandidate(ctx, valueSetURL, version, c)
		switch outcome {
		case service.OutcomeValid:
			return service.OutcomeValid
		case service.OutcomeUnknown:
			anyUnknown = true
		}
	}
	if anyUnknown {
		return service.OutcomeUnknown
	}
	return service.OutcomeInvalid
}

func (r *Resolver) resolveCandidate(ctx context.Context, valueSetURL, version string, c service.Coding) service.Outcome {
	if c.System == "" || c.Code == "" {
		return service.OutcomeUnknown
	}
	if r.lookup == nil {
		return service.OutcomeUnknown
	}
	return r.lookup.Lookup(ctx, valueSetURL, version, c.System, c.Code)
}

// Check resolves a coded value and maps the outcome into an optional
// issue per the binding's strength.
func (r *Resolver) Check(ctx context.Context, b *schema.Binding, value service.CodedValue, declaredPath, instancePath string) *fc.Issue {
	if b == nil || !b.Strength.Checked() {
		return nil
	}

	outcome := r.Resolve(ctx, b.ValueSet, value)
	severity, raise := MapSeverity(b.Strength, outcome)
	if !raise {
		return nil
	}

	return &fc.Issue{
		Key:          issueKey,
		Severity:     severity,
		DeclaredPath: declaredPath,
		InstancePath: instancePath,
		ValueSetURL:  b.ValueSet,
		Message:      outcomeMessage(outcome, b.ValueSet, value),
	}
}

// outcomeMessage builds the issue message: invalid identifies the
// offending code and ValueSet, unknown states that membership could
// not be verified.
func outcomeMessage(outcome service.Outcome, valueSetURL string, value service.CodedValue) string {
	code := describeValue(value)
	if outcome == service.OutcomeInvalid {
		return fmt.Sprintf("%s is not a member of ValueSet %s", code, valueSetURL)
	}
	return fmt.Sprintf("membership of %s in ValueSet %s could not be verified", code, valueSetURL)
}

// describeValue renders a coded value for messages.
func describeValue(value service.CodedValue) string {
	candidates := value.Candidates()
	if len(candidates) == 0 {
		return "value with no codings"
	}

	parts := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if c.System != "" {
			parts = append(parts, fmt.Sprintf("%s|%s", c.System, c.Code))
		} else {
			parts = append(parts, c.Code)
		}
	}
	if len(parts) == 1 {
		return fmt.Sprintf("code %q", parts[0])
	}
	return fmt.Sprintf("codes [%s]", strings.Join(parts, ", "))
}
