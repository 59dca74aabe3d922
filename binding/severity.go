package binding

import (
	fc "github.com/gofhir/conformance"
	"github.com/gofhir/conformance/schema"
	"github.com/gofhir/conformance/service"
)

// MapSeverity maps a binding strength and a membership outcome to an
// issue severity. The second return is false when no issue should be
// raised: valid outcomes and example bindings are always silent.
//
//	            Valid   Invalid   Unknown
//	required    none    error     warning
//	extensible  none    warning   warning
//	preferred   none    warning   warning
//	example     none    none      none
func MapSeverity(strength schema.Strength, outcome service.Outcome) (fc.Severity, bool) {
	if outcome == service.OutcomeValid || !strength.Checked() {
		return "", false
	}

	if outcome == service.OutcomeInvalid && strength == schema.StrengthRequired {
		return fc.SeverityError, true
	}
	return fc.SeverityWarning, true
}
