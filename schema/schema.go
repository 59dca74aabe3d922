// Package schema describes validatable record types: their fields,
// the invariants declared on them, and the terminology bindings their
// coded fields carry. Schemas are static metadata, typically produced
// by a code generator alongside the record structs themselves, and are
// interpreted at runtime by the walker and the engine.
package schema

import "github.com/gofhir/conformance/service"

// Strength is a binding strength. Required violations are errors,
// extensible and preferred violations are warnings, and example
// bindings are informational and never checked.
type Strength string

const (
	StrengthRequired   Strength = "required"
	StrengthExtensible Strength = "extensible"
	StrengthPreferred  Strength = "preferred"
	StrengthExample    Strength = "example"
)

// Checked reports whether a binding of this strength is enforced.
func (s Strength) Checked() bool {
	return s == StrengthRequired || s == StrengthExtensible || s == StrengthPreferred
}

// Invariant is a named constraint declared on a type or a field.
type Invariant struct {
	// Key is the stable invariant identifier, e.g. "pat-1".
	Key string

	// Severity is the declared severity: "error" or "warning".
	Severity string

	// Expression is the FHIRPath expression that must hold. It is
	// evaluated with the owning node as focus.
	Expression string

	// Path is the declared (index-free) path the invariant is
	// attributed to, e.g. "Patient.contact".
	Path string

	// Human is the human-readable constraint description.
	Human string
}

// Binding attaches a ValueSet to a coded field.
type Binding struct {
	// ValueSet is the canonical ValueSet URL.
	ValueSet string

	// Strength determines whether and how violations are reported.
	Strength Strength
}

// Field describes one field of a record type.
type Field struct {
	// Name is the field name as declared, e.g. "telecom". Instance
	// paths append "[i]" for repeating fields.
	Name string

	// Repeating is true for list-valued fields.
	Repeating bool

	// Invariants declared directly on this field.
	Invariants []Invariant

	// Binding is the terminology binding, if the field is coded.
	Binding *Binding

	// Values extracts the present values of this field from a node of
	// the owning type. Absent optional fields yield an empty slice; a
	// non-repeating present field yields exactly one value.
	Values func(node any) []any

	// Coded converts one extracted value to its coded shape. Nil for
	// non-coded fields.
	Coded func(value any) (service.CodedValue, bool)

	// Elem returns the type definition for one extracted value, or nil
	// for leaf values. Taking the value lets choice fields dispatch on
	// the concrete variant.
	Elem func(value any) *Type
}

// Type describes a record type: a resource, a backbone element, or a
// complex datatype.
type Type struct {
	// Name is the type name, e.g. "Patient" or "HumanName". It is the
	// root segment of paths for resource types.
	Name string

	// Invariants declared on the type itself, evaluated with a node of
	// this type as focus.
	Invariants []Invariant

	// Fields in declaration order. Walk order follows this slice, so
	// issue ordering is deterministic for a fixed schema.
	Fields []Field
}

// Validatable is implemented by records that carry their own schema.
// Generated record types implement it; the engine's Validate entry
// point accepts any Validatable.
type Validatable interface {
	SchemaType() *Type
}
