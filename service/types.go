// Package service defines the capability contracts consumed by the
// validation engine: expression evaluation, terminology lookup, and the
// coded-value shapes they operate on. Implementations live elsewhere
// (fhirpath adapter here, terminology providers in the terminology
// package, membership tables in generated or hand-authored code).
package service

// Outcome is the tri-state result of a ValueSet membership check.
// It is deliberately not a nullable boolean: every call site must
// handle Valid, Invalid, and Unknown exhaustively.
type Outcome int

const (
	// OutcomeUnknown means membership could not be decided (no local
	// table, no provider, network failure, timeout, partial code).
	OutcomeUnknown Outcome = iota
	// OutcomeValid means confirmed member of the ValueSet.
	OutcomeValid
	// OutcomeInvalid means confirmed NOT a member of the ValueSet.
	OutcomeInvalid
)

// String returns a human-readable outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeValid:
		return "valid"
	case OutcomeInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Decided returns true for Valid and Invalid outcomes.
func (o Outcome) Decided() bool {
	return o == OutcomeValid || o == OutcomeInvalid
}

// CodedValue is any value shape a binding can attach to: a bare code,
// a system+code pairing, or a concept bundling several pairings.
type CodedValue interface {
	// Candidates returns the system+code pairings this value offers for
	// membership checking. A bare code yields one candidate with an
	// empty system.
	Candidates() []Coding
}

// Code is a bare coded value with no system of its own. The owning
// ValueSet decides which system it belongs to, if any.
type Code string

// Candidates implements CodedValue.
func (c Code) Candidates() []Coding {
	return []Coding{{Code: string(c)}}
}

// Coding represents a FHIR Coding datatype: one system+code pairing.
type Coding struct {
	System       string
	Version      string
	Code         string
	Display      string
	UserSelected bool
}

// Candidates implements CodedValue.
func (c Coding) Candidates() []Coding {
	return []Coding{c}
}

// CodeableConcept represents a FHIR CodeableConcept datatype: several
// candidate pairings, any one of which matching is sufficient.
type CodeableConcept struct {
	Coding []Coding
	Text   string
}

// Candidates implements CodedValue.
func (c CodeableConcept) Candidates() []Coding {
	return c.Coding
}

// ValueSetOps is the local membership dispatch entry for one ValueSet.
// Instances are produced outside the engine (by a code generator, by
// terminology.BuildOps from an R4 ValueSet resource, or by hand) and
// registered under their canonical URL.
type ValueSetOps struct {
	// URL is the canonical ValueSet URL.
	URL string

	// Version is the ValueSet version, when known. It participates in
	// remote lookup cache keys.
	Version string

	// HasNonlocalRules is true when the ValueSet's definition contains
	// rules the local table cannot evaluate (filters, references to
	// other ValueSets, non-enumerated whole-system includes). Local
	// misses then require a terminology server for a definitive answer.
	HasNonlocalRules bool

	// LocallyEnumerated is true when the local table is a complete
	// enumeration: a local miss is a confident rejection.
	LocallyEnumerated bool

	ContainsCode            func(code Code) bool
	ContainsCoding          func(coding Coding) bool
	ContainsCodeableConcept func(concept CodeableConcept) bool

	// Display returns the preferred display text for a pairing, if the
	// local table carries one. Informational only.
	Display func(system, code string) (string, bool)
}

// Contains dispatches a coded value to the matching membership check.
// A nil check function reports false (not locally decidable).
func (ops *ValueSetOps) Contains(v CodedValue) bool {
	switch cv := v.(type) {
	case Code:
		return ops.ContainsCode != nil && ops.ContainsCode(cv)
	case Coding:
		return ops.ContainsCoding != nil && ops.ContainsCoding(cv)
	case CodeableConcept:
		return ops.ContainsCodeableConcept != nil && ops.ContainsCodeableConcept(cv)
	default:
		// Unknown shapes fall back to candidate-wise Coding checks.
		if ops.ContainsCoding == nil {
			return false
		}
		for _, c := range v.Candidates() {
			if ops.ContainsCoding(c) {
				return true
			}
		}
		return false
	}
}
