package conformance

import "github.com/gofhir/conformance/pool"

var seenPool = pool.NewMapPool[Signature, struct{}](32)

// Dedupe collapses a raw issue stream into a signature-unique set.
// It scans in input order, retains the first issue for each signature
// and discards subsequent duplicates, so the output order is
// first-occurrence order. Identical inputs always produce identical
// outputs, which is what makes validation results reproducible even
// when binding lookups complete in arbitrary order.
func Dedupe(issues []Issue) []Issue {
	if len(issues) <= 1 {
		return issues
	}

	seen := seenPool.Acquire()
	defer seenPool.Release(seen)

	out := issues[:0]
	for _, issue := range issues {
		sig := issue.Signature()
		if _, dup := seen[sig]; dup {
			continue
		}
		seen[sig] = struct{}{}
		out = append(out, issue)
	}
	return out
}
