package conformance

// Severity represents the severity of a validation issue.
type Severity string

const (
	// SeverityError indicates a violation that makes the record invalid.
	SeverityError Severity = "error"
	// SeverityWarning indicates a potential problem that should be reviewed.
	SeverityWarning Severity = "warning"
)

// Issue represents a single validation issue found during one traversal.
// Issues are value types: once returned to the caller they are not shared
// with the engine.
type Issue struct {
	// Key is the invariant key (e.g. "pat-1") or binding identifier.
	Key string `json:"key"`

	// Severity of the issue (error or warning).
	Severity Severity `json:"severity"`

	// DeclaredPath is the path as declared in the type's schema
	// (e.g. "Patient.contact.telecom").
	DeclaredPath string `json:"declaredPath"`

	// InstancePath is the concrete path in the validated record,
	// with index suffixes for repeated elements
	// (e.g. "contact[0].telecom[1]").
	InstancePath string `json:"instancePath"`

	// Expression is the invariant's FHIRPath expression, when the issue
	// originates from an invariant.
	Expression string `json:"expression,omitempty"`

	// ValueSetURL is the binding's ValueSet URL, when the issue
	// originates from a binding check.
	ValueSetURL string `json:"valueSetUrl,omitempty"`

	// Message contains human-readable details about the issue.
	Message string `json:"message"`
}

// Signature identifies an issue for de-duplication purposes.
// Two issues with equal signatures describe the same finding.
type Signature struct {
	Key          string
	DeclaredPath string
	InstancePath string
}

// Signature returns the issue's de-duplication signature.
func (i Issue) Signature() Signature {
	return Signature{
		Key:          i.Key,
		DeclaredPath: i.DeclaredPath,
		InstancePath: i.InstancePath,
	}
}

// IsError returns true if this is an error issue.
func (i Issue) IsError() bool {
	return i.Severity == SeverityError
}

// IsWarning returns true if this is a warning.
func (i Issue) IsWarning() bool {
	return i.Severity == SeverityWarning
}

// String returns a human-readable representation of the issue.
func (i Issue) String() string {
	path := i.InstancePath
	if path == "" {
		path = i.DeclaredPath
	}
	if path != "" {
		path = " at " + path
	}
	return string(i.Severity) + " [" + i.Key + "]: " + i.Message + path
}
