package binding

import (
	"context"
	"strings"
	"testing"

	fc "github.com/gofhir/conformance"
	"github.com/gofhir/conformance/schema"
	"github.com/gofhir/conformance/service"
)

// staticOps serves one membership table by URL.
type staticOps map[string]*service.ValueSetOps

func (s staticOps) Lookup(url string) (*service.ValueSetOps, bool) {
	ops, ok := s[url]
	return ops, ok
}

// countingLookup returns a fixed outcome and counts calls.
type countingLookup struct {
	outcome service.Outcome
	calls   int
}

func (l *countingLookup) Lookup(_ context.Context, _, _, _, _ string) service.Outcome {
	l.calls++
	return l.outcome
}

func genderOps(enumerated, nonlocal bool) *service.ValueSetOps {
	return &service.ValueSetOps{
		URL:               "http://hl7.org/fhir/ValueSet/administrative-gender",
		LocallyEnumerated: enumerated,
		HasNonlocalRules:  nonlocal,
		ContainsCode: func(c service.Code) bool {
			return c == "male" || c == "female"
		},
		ContainsCoding: func(c service.Coding) bool {
			return c.Code == "male" || c.Code == "female"
		},
	}
}

const genderURL = "http://hl7.org/fhir/ValueSet/administrative-gender"

func TestResolve_LocalHitSkipsRemote(t *testing.T) {
	lookup := &countingLookup{outcome: service.OutcomeInvalid}
	r := NewResolver(staticOps{genderURL: genderOps(true, false)}, lookup)

	got := r.Resolve(context.Background(), genderURL, service.Code("male"))
	if got != service.OutcomeValid {
		t.Errorf("Resolve = %v; want valid", got)
	}
	if lookup.calls != 0 {
		t.Errorf("remote called %d times; want 0", lookup.calls)
	}
}

func TestResolve_ConfidentLocalRejection(t *testing.T) {
	lookup := &countingLookup{outcome: service.OutcomeValid}
	r := NewResolver(staticOps{genderURL: genderOps(true, false)}, lookup)

	got := r.Resolve(context.Background(), genderURL, service.Code("bogus"))
	if got != service.OutcomeInvalid {
		t.Errorf("Resolve = %v; want invalid", got)
	}
	// A closed-world miss must never reach the terminology server.
	if lookup.calls != 0 {
		t.Errorf("remote called %d times; want 0", lookup.calls)
	}
}

func TestResolve_NonlocalRulesGoRemote(t *testing.T) {
	lookup := &countingLookup{outcome: service.OutcomeValid}
	r := NewResolver(staticOps{genderURL: genderOps(false, true)}, lookup)

	got := r.Resolve(context.Background(), genderURL,
		service.Coding{System: "http://example.org/cs", Code: "other"})
	if got != service.OutcomeValid {
		t.Errorf("Resolve = %v; want valid from remote", got)
	}
	if lookup.calls != 1 {
		t.Errorf("remote called %d times; want 1", lookup.calls)
	}
}

func TestResolve_UnknownValueSet(t *testing.T) {
	lookup := &countingLookup{outcome: service.OutcomeValid}
	r := NewResolver(staticOps{}, lookup)

	// No local table: every candidate goes remote.
	got := r.Resolve(context.Background(), "http://example.org/unregistered",
		service.Coding{System: "sys", Code: "code"})
	if got != service.OutcomeValid {
		t.Errorf("Resolve = %v; want valid", got)
	}
	if lookup.calls != 1 {
		t.Errorf("remote called %d times; want 1", lookup.calls)
	}
}

func TestResolve_BareCodeCannotGoRemote(t *testing.T) {
	lookup := &countingLookup{outcome: service.OutcomeValid}
	r := NewResolver(staticOps{genderURL: genderOps(false, true)}, lookup)

	// A bare code has no system; the remote call is not eligible.
	got := r.Resolve(context.Background(), genderURL, service.Code("bogus"))
	if got != service.OutcomeUnknown {
		t.Errorf("Resolve = %v; want unknown", got)
	}
	if lookup.calls != 0 {
		t.Errorf("remote called %d times; want 0", lookup.calls)
	}
}

func TestResolve_NilLookupIsUnknown(t *testing.T) {
	r := NewResolver(staticOps{genderURL: genderOps(false, true)}, nil)

	got := r.Resolve(context.Background(), genderURL,
		service.Coding{System: "sys", Code: "bogus"})
	if got != service.OutcomeUnknown {
		t.Errorf("Resolve = %v; want unknown", got)
	}
}

func TestResolve_MultiCandidateCombination(t *testing.T) {
	concept := service.CodeableConcept{
		Coding: []service.Coding{
			{System: "http://example.org/a", Code: "x"},
			{Code: "y"}, // no system: contributes unknown
		},
	}

	// Remote rejects the eligible candidate; the ineligible one keeps
	// the combined outcome at unknown instead of invalid.
	lookup := &countingLookup{outcome: service.OutcomeInvalid}
	r := NewResolver(staticOps{genderURL: genderOps(false, true)}, lookup)

	got := r.Resolve(context.Background(), genderURL, concept)
	if got != service.OutcomeUnknown {
		t.Errorf("Resolve = %v; want unknown", got)
	}
}

func TestResolve_AllCandidatesInvalid(t *testing.T) {
	concept := service.CodeableConcept{
		Coding: []service.Coding{
			{System: "http://example.org/a", Code: "x"},
			{System: "http://example.org/b", Code: "y"},
		},
	}

	lookup := &countingLookup{outcome: service.OutcomeInvalid}
	r := NewResolver(staticOps{genderURL: genderOps(false, true)}, lookup)

	got := r.Resolve(context.Background(), genderURL, concept)
	if got != service.OutcomeInvalid {
		t.Errorf("Resolve = %v; want invalid", got)
	}
	if lookup.calls != 2 {
		t.Errorf("remote called %d times; want 2", lookup.calls)
	}
}

func TestResolve_EmptyConcept(t *testing.T) {
	r := NewResolver(staticOps{genderURL: genderOps(true, false)}, nil)

	got := r.Resolve(context.Background(), genderURL, service.CodeableConcept{})
	if got != service.OutcomeUnknown {
		t.Errorf("Resolve = %v; want unknown", got)
	}
}

func TestCheck_RequiredInvalidIsError(t *testing.T) {
	r := NewResolver(staticOps{genderURL: genderOps(true, false)}, nil)
	b := &schema.Binding{ValueSet: genderURL, Strength: schema.StrengthRequired}

	issue := r.Check(context.Background(), b, service.Code("bogus"), "Patient.gender", "Patient.gender")
	if issue == nil {
		t.Fatal("expected issue")
	}
	if issue.Severity != fc.SeverityError {
		t.Errorf("Severity = %q; want error", issue.Severity)
	}
	if issue.ValueSetURL != genderURL {
		t.Errorf("ValueSetURL = %q", issue.ValueSetURL)
	}
	if !strings.Contains(issue.Message, "bogus") || !strings.Contains(issue.Message, genderURL) {
		t.Errorf("Message = %q; want code and ValueSet URL", issue.Message)
	}
}

func TestCheck_UnknownMessage(t *testing.T) {
	r := NewResolver(staticOps{genderURL: genderOps(false, true)}, nil)
	b := &schema.Binding{ValueSet: genderURL, Strength: schema.StrengthRequired}

	issue := r.Check(context.Background(), b, service.Coding{System: "sys", Code: "x"}, "Patient.gender", "Patient.gender")
	if issue == nil {
		t.Fatal("expected issue")
	}
	if issue.Severity != fc.SeverityWarning {
		t.Errorf("Severity = %q; want warning", issue.Severity)
	}
	if !strings.Contains(issue.Message, "could not be verified") {
		t.Errorf("Message = %q", issue.Message)
	}
}

func TestCheck_ValidAndExampleAreSilent(t *testing.T) {
	r := NewResolver(staticOps{genderURL: genderOps(true, false)}, nil)

	required := &schema.Binding{ValueSet: genderURL, Strength: schema.StrengthRequired}
	if issue := r.Check(context.Background(), required, service.Code("male"), "p", "p"); issue != nil {
		t.Errorf("valid member produced issue: %+v", issue)
	}

	example := &schema.Binding{ValueSet: genderURL, Strength: schema.StrengthExample}
	if issue := r.Check(context.Background(), example, service.Code("bogus"), "p", "p"); issue != nil {
		t.Errorf("example binding produced issue: %+v", issue)
	}
}
