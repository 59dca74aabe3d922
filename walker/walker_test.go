package walker

import (
	"context"
	"errors"
	"testing"

	"github.com/gofhir/conformance/schema"
)

type contactPoint struct {
	System *string
	Value  *string
}

type humanName struct {
	Family *string
	Given  []string
}

type patient struct {
	Gender  *string
	Name    []humanName
	Telecom []contactPoint
}

func str(s string) *string { return &s }

var contactPointType = &schema.Type{
	Name: "ContactPoint",
	Fields: []schema.Field{
		{
			Name:   "system",
			Values: schema.Optional(func(c contactPoint) *string { return c.System }),
		},
		{
			Name:   "value",
			Values: schema.Optional(func(c contactPoint) *string { return c.Value }),
		},
	},
}

var humanNameType = &schema.Type{
	Name: "HumanName",
	Fields: []schema.Field{
		{
			Name:   "family",
			Values: schema.Optional(func(n humanName) *string { return n.Family }),
		},
		{
			Name:      "given",
			Repeating: true,
			Values:    schema.List(func(n humanName) []string { return n.Given }),
		},
	},
}

var patientType = &schema.Type{
	Name: "Patient",
	Fields: []schema.Field{
		{
			Name:   "gender",
			Values: schema.Optional(func(p *patient) *string { return p.Gender }),
		},
		{
			Name:      "name",
			Repeating: true,
			Values:    schema.List(func(p *patient) []humanName { return p.Name }),
			Elem:      schema.Fixed(humanNameType),
		},
		{
			Name:      "telecom",
			Repeating: true,
			Values:    schema.List(func(p *patient) []contactPoint { return p.Telecom }),
			Elem:      schema.Fixed(contactPointType),
		},
	},
}

type visit struct {
	declared string
	instance string
	field    bool
}

func collectVisits(t *testing.T, node any, typ *schema.Type) []visit {
	t.Helper()
	var visits []visit
	err := Walk(context.Background(), node, typ, func(wctx *WalkContext) error {
		visits = append(visits, visit{
			declared: wctx.DeclaredPath,
			instance: wctx.InstancePath,
			field:    wctx.IsFieldVisit(),
		})
		return nil
	})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	return visits
}

func TestWalk_InstancePaths(t *testing.T) {
	p := &patient{
		Gender: str("female"),
		Telecom: []contactPoint{
			{System: str("phone"), Value: str("555-0100")},
			{System: str("email")},
		},
	}

	visits := collectVisits(t, p, patientType)

	want := []visit{
		{"Patient", "Patient", false},
		{"Patient.gender", "Patient.gender", true},
		{"Patient.telecom", "Patient.telecom[0]", true},
		{"Patient.telecom", "Patient.telecom[0]", false},
		{"Patient.telecom.system", "Patient.telecom[0].system", true},
		{"Patient.telecom.value", "Patient.telecom[0].value", true},
		{"Patient.telecom", "Patient.telecom[1]", true},
		{"Patient.telecom", "Patient.telecom[1]", false},
		{"Patient.telecom.system", "Patient.telecom[1].system", true},
	}

	if len(visits) != len(want) {
		t.Fatalf("got %d visits, want %d: %+v", len(visits), len(want), visits)
	}
	for i, v := range visits {
		if v != want[i] {
			t.Errorf("visit %d = %+v, want %+v", i, v, want[i])
		}
	}
}

func TestWalk_SkipsAbsentOptionalFields(t *testing.T) {
	visits := collectVisits(t, &patient{}, patientType)

	// Only the root node visit; no field values are present.
	if len(visits) != 1 {
		t.Fatalf("got %d visits, want 1: %+v", len(visits), visits)
	}
	if visits[0].declared != "Patient" || visits[0].field {
		t.Errorf("root visit = %+v", visits[0])
	}
}

func TestWalk_RepeatingLeafIndices(t *testing.T) {
	p := &patient{
		Name: []humanName{{Given: []string{"Anna", "Maria"}}},
	}

	visits := collectVisits(t, p, patientType)

	var givens []string
	for _, v := range visits {
		if v.field && v.declared == "Patient.name.given" {
			givens = append(givens, v.instance)
		}
	}
	if len(givens) != 2 || givens[0] != "Patient.name[0].given[0]" || givens[1] != "Patient.name[0].given[1]" {
		t.Errorf("given instance paths = %v", givens)
	}
}

func TestWalk_VisitorErrorStopsWalk(t *testing.T) {
	p := &patient{Gender: str("male"), Name: []humanName{{Family: str("Chu")}}}

	stop := errors.New("stop")
	count := 0
	err := Walk(context.Background(), p, patientType, func(wctx *WalkContext) error {
		count++
		if wctx.DeclaredPath == "Patient.gender" {
			return stop
		}
		return nil
	})
	if !errors.Is(err, stop) {
		t.Fatalf("err = %v, want stop", err)
	}
	if count != 2 {
		t.Errorf("visitor called %d times, want 2", count)
	}
}

func TestWalk_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Walk(ctx, &patient{Gender: str("other")}, patientType, func(*WalkContext) error {
		t.Fatal("visitor should not run with a cancelled context")
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestWalk_NilInputs(t *testing.T) {
	if err := Walk(context.Background(), nil, patientType, func(*WalkContext) error { return nil }); err != nil {
		t.Errorf("nil node: %v", err)
	}
	if err := Walk(context.Background(), &patient{}, nil, func(*WalkContext) error { return nil }); err != nil {
		t.Errorf("nil type: %v", err)
	}
}

func TestWalk_ChoiceElemDispatch(t *testing.T) {
	// A choice field picks its element type from the concrete value.
	type quantity struct{ Value *string }
	type observation struct{ ValueX any }

	quantityType := &schema.Type{
		Name: "Quantity",
		Fields: []schema.Field{
			{Name: "value", Values: schema.Optional(func(q quantity) *string { return q.Value })},
		},
	}
	observationType := &schema.Type{
		Name: "Observation",
		Fields: []schema.Field{
			{
				Name: "value",
				Values: func(node any) []any {
					o := node.(*observation)
					if o.ValueX == nil {
						return nil
					}
					return []any{o.ValueX}
				},
				Elem: func(value any) *schema.Type {
					if _, ok := value.(quantity); ok {
						return quantityType
					}
					return nil
				},
			},
		},
	}

	o := &observation{ValueX: quantity{Value: str("120")}}
	visits := collectVisits(t, o, observationType)

	var sawQuantityValue bool
	for _, v := range visits {
		if v.declared == "Observation.value.value" && v.instance == "Observation.value.value" {
			sawQuantityValue = true
		}
	}
	if !sawQuantityValue {
		t.Errorf("choice dispatch did not descend into Quantity: %+v", visits)
	}
}

func TestWalker_Reuse(t *testing.T) {
	w := New()
	p := &patient{Gender: str("male")}

	for i := 0; i < 3; i++ {
		var paths []string
		err := w.Walk(context.Background(), p, patientType, func(wctx *WalkContext) error {
			paths = append(paths, wctx.InstancePath)
			return nil
		})
		if err != nil {
			t.Fatalf("walk %d: %v", i, err)
		}
		if len(paths) != 2 || paths[0] != "Patient" || paths[1] != "Patient.gender" {
			t.Errorf("walk %d paths = %v", i, paths)
		}
	}
}
