package engine

import (
	"context"

	"github.com/gofhir/conformance/schema"
	"github.com/gofhir/conformance/service"
)

// Hand-authored schema fixtures standing in for generated metadata.

type contactPoint struct {
	System *string
	Value  *string
}

type patient struct {
	Gender  *string
	Telecom []contactPoint
}

func (p *patient) SchemaType() *schema.Type { return patientType }

func strp(s string) *string { return &s }

const (
	genderVS  = "http://hl7.org/fhir/ValueSet/administrative-gender"
	genderCS  = "http://hl7.org/fhir/administrative-gender"
	contactVS = "http://hl7.org/fhir/ValueSet/contact-point-system"
	contactCS = "http://hl7.org/fhir/contact-point-system"
)

var contactPointType = &schema.Type{
	Name: "ContactPoint",
	Invariants: []schema.Invariant{
		{
			Key:        "cpt-2",
			Severity:   "error",
			Expression: "value.empty() or system.exists()",
			Path:       "ContactPoint",
			Human:      "A system is required if a value is provided",
		},
	},
	Fields: []schema.Field{
		{
			Name:    "system",
			Binding: &schema.Binding{ValueSet: contactVS, Strength: schema.StrengthRequired},
			Values:  schema.Optional(func(c contactPoint) *string { return c.System }),
			// System-qualified so local misses are remote-eligible.
			Coded: func(v any) (service.CodedValue, bool) {
				s, ok := v.(string)
				if !ok {
					return nil, false
				}
				return service.Coding{System: contactCS, Code: s}, true
			},
		},
		{
			Name:   "value",
			Values: schema.Optional(func(c contactPoint) *string { return c.Value }),
		},
	},
}

var patientType = &schema.Type{
	Name: "Patient",
	Invariants: []schema.Invariant{
		{
			Key:        "pat-1",
			Severity:   "warning",
			Expression: "gender.exists()",
			Path:       "Patient",
			Human:      "A gender should be recorded",
		},
	},
	Fields: []schema.Field{
		{
			Name:    "gender",
			Binding: &schema.Binding{ValueSet: genderVS, Strength: schema.StrengthRequired},
			Values:  schema.Optional(func(p *patient) *string { return p.Gender }),
			Coded: func(v any) (service.CodedValue, bool) {
				s, ok := v.(string)
				if !ok {
					return nil, false
				}
				return service.Code(s), true
			},
		},
		{
			Name:      "telecom",
			Repeating: true,
			Values:    schema.List(func(p *patient) []contactPoint { return p.Telecom }),
			Elem:      schema.Fixed(contactPointType),
		},
	},
}

// genderOps is a closed-world membership table for the gender ValueSet.
func genderOps() *service.ValueSetOps {
	member := func(code string) bool {
		switch code {
		case "male", "female", "other", "unknown":
			return true
		}
		return false
	}
	return &service.ValueSetOps{
		URL:               genderVS,
		LocallyEnumerated: true,
		ContainsCode:      func(c service.Code) bool { return member(string(c)) },
		ContainsCoding:    func(c service.Coding) bool { return (c.System == "" || c.System == genderCS) && member(c.Code) },
	}
}

// contactOps carries non-local rules so misses defer to the provider.
func contactOps() *service.ValueSetOps {
	member := func(code string) bool {
		switch code {
		case "phone", "email", "fax":
			return true
		}
		return false
	}
	return &service.ValueSetOps{
		URL:              contactVS,
		HasNonlocalRules: true,
		ContainsCode:     func(c service.Code) bool { return member(string(c)) },
		ContainsCoding:   func(c service.Coding) bool { return member(c.Code) },
	}
}

// scriptedEvaluator answers from a map of expression results; anything
// unlisted evaluates to true.
type scriptedEvaluator struct {
	results map[string]bool
	errs    map[string]error
}

func (s *scriptedEvaluator) EvalBool(_ context.Context, _ any, expr string) (bool, error) {
	if s.errs != nil {
		if err, ok := s.errs[expr]; ok {
			return false, err
		}
	}
	if s.results != nil {
		if result, ok := s.results[expr]; ok {
			return result, nil
		}
	}
	return true, nil
}

// newTestEngine wires an engine with the fixture tables and a scripted
// evaluator that satisfies every invariant.
func newTestEngine(opts ...func(*Engine)) *Engine {
	e := New()
	e.SetExpressionEvaluator(&scriptedEvaluator{})
	e.RegisterOps(genderOps())
	e.RegisterOps(contactOps())
	for _, opt := range opts {
		opt(e)
	}
	return e
}
