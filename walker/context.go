package walker

import "github.com/gofhir/conformance/schema"

// WalkContext carries the full context of one visit: the node, its
// type, the field under inspection (nil for node-level visits), and
// both path forms.
//
// Contexts are pooled and reused by the walker. Visitors must not
// retain one past their return; use Clone to keep a copy.
type WalkContext struct {
	// Node is the record owning this visit.
	Node any

	// Type is the schema definition of Node.
	Type *schema.Type

	// Field is the field under inspection, or nil for a node-level
	// visit (where type-level invariants are evaluated).
	Field *schema.Field

	// FieldValue is the extracted field value for field-level visits.
	FieldValue any

	// DeclaredPath is the index-free path, e.g. "Patient.telecom".
	// Invariant declarations and dedup signatures use this form.
	DeclaredPath string

	// InstancePath carries indices for repeating fields, e.g.
	// "Patient.telecom[1]", locating the exact offending element.
	InstancePath string

	// ArrayIndex is the element index within a repeating field, or -1.
	ArrayIndex int

	// Depth is the nesting depth; the root node is 0.
	Depth int
}

// IsFieldVisit reports whether this visit targets a field value.
func (c *WalkContext) IsFieldVisit() bool {
	return c.Field != nil
}

// Reset clears the context for reuse.
func (c *WalkContext) Reset() {
	*c = WalkContext{ArrayIndex: -1}
}

// Clone returns a copy safe to retain after the visitor returns.
func (c *WalkContext) Clone() *WalkContext {
	clone := *c
	return &clone
}
