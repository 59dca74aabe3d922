// Package conformance provides runtime validation of typed FHIR record
// trees against invariants and ValueSet bindings.
//
// Unlike JSON-level validators, this package operates on typed record
// trees whose traversal metadata (field tables, invariants, binding
// declarations) is supplied per type, typically by a code generator.
// Hand-authored tables work just as well. The engine walks the
// tree, evaluates FHIRPath invariants, resolves coded values against
// ValueSets via local membership tables with a remote terminology
// fallback, and returns a de-duplicated issue set.
//
// # Quick Start
//
//	import (
//	    cf "github.com/gofhir/conformance"
//	    "github.com/gofhir/conformance/engine"
//	)
//
//	eng := engine.New(
//	    cf.WithBindingConcurrency(8),
//	)
//	eng.RegisterOps(administrativeGenderOps)
//
//	result := eng.Validate(ctx, patient)
//	for _, issue := range result.Issues {
//	    fmt.Println(issue)
//	}
//	result.Release() // Return to pool for better performance
//
// # Guarantees
//
//   - Totality: Validate always returns a result. Expression failures
//     become error-severity issues; terminology failures of any shape
//     (network, timeout, unconfigured provider) degrade to the Unknown
//     outcome and are reported per binding strength.
//   - Determinism: the returned issue set is unique per
//     (key, declared path, instance path) signature and ordered by
//     first occurrence, regardless of how binding lookups interleave.
//   - Instance paths mirror the concrete traversal, with [i] suffixes
//     for repeated elements and no segment for absent optionals.
//
// # Architecture
//
//   - Small interfaces (1-2 methods each) for composability
//   - Chain of responsibility for terminology provider resolution
//   - Visitor pattern for the schema-driven tree walk
//   - Sharded TTL cache with single-flight request coalescing
//   - Context-based cancellation and timeout
package conformance
