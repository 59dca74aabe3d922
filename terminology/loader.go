package terminology

import (
	"fmt"
	"strings"

	"github.com/gofhir/fhir/r4"

	"github.com/gofhir/conformance/service"
)

// BuildOps builds a local membership table from an R4 ValueSet
// resource. An expansion is taken as the complete enumeration when
// present; otherwise codes come from compose includes, and any rule
// the table cannot evaluate locally (filters, includes without a
// system, whole-system includes) marks the ValueSet as carrying
// non-local rules so local misses defer to a terminology server.
func BuildOps(vs *r4.ValueSet) (*service.ValueSetOps, error) {
	if vs == nil || vs.Url == nil {
		return nil, fmt.Errorf("valueset is nil or has no URL")
	}

	canonical, version := SplitCanonical(*vs.Url)

	b := &opsBuilder{
		members:   make(map[string]string),
		bareCodes: make(map[string]struct{}),
	}

	switch {
	case vs.Expansion != nil:
		for i := range vs.Expansion.Contains {
			b.addExpansionContains(&vs.Expansion.Contains[i])
		}
		b.enumerated = true
	case vs.Compose != nil:
		b.addCompose(vs.Compose)
		b.enumerated = !b.nonlocal
	default:
		// No expansion and no compose: nothing is decidable locally.
		b.nonlocal = true
	}

	members := b.members
	bareCodes := b.bareCodes

	containsCoding := func(c service.Coding) bool {
		if c.System == "" {
			_, ok := bareCodes[c.Code]
			return ok
		}
		_, ok := members[memberKey(c.System, c.Code)]
		return ok
	}

	return &service.ValueSetOps{
		URL:               canonical,
		Version:           version,
		HasNonlocalRules:  b.nonlocal,
		LocallyEnumerated: b.enumerated,
		ContainsCode: func(code service.Code) bool {
			_, ok := bareCodes[string(code)]
			return ok
		},
		ContainsCoding: containsCoding,
		ContainsCodeableConcept: func(concept service.CodeableConcept) bool {
			for _, coding := range concept.Coding {
				if containsCoding(coding) {
					return true
				}
			}
			return false
		},
		Display: func(system, code string) (string, bool) {
			display, ok := members[memberKey(system, code)]
			return display, ok && display != ""
		},
	}, nil
}

// opsBuilder accumulates membership while scanning a ValueSet.
type opsBuilder struct {
	members    map[string]string // system\x00code -> display
	bareCodes  map[string]struct{}
	nonlocal   bool
	enumerated bool
}

func (b *opsBuilder) add(system, code, display string) {
	b.members[memberKey(system, code)] = display
	b.bareCodes[code] = struct{}{}
}

func (b *opsBuilder) addExpansionContains(contains *r4.ValueSetExpansionContains) {
	if contains.System != nil && contains.Code != nil {
		display := ""
		if contains.Display != nil {
			display = *contains.Display
		}
		b.add(*contains.System, *contains.Code, display)
	}

	// Recurse into nested contains.
	for i := range contains.Contains {
		b.addExpansionContains(&contains.Contains[i])
	}
}

func (b *opsBuilder) addCompose(compose *r4.ValueSetCompose) {
	for i := range compose.Include {
		include := &compose.Include[i]

		if include.System == nil {
			// ValueSet-only or malformed include; not local.
			b.nonlocal = true
			continue
		}
		system := *include.System

		if len(include.Filter) > 0 {
			b.nonlocal = true
		}
		if len(include.Concept) == 0 && len(include.Filter) == 0 {
			// Whole-system include without a local CodeSystem copy.
			b.nonlocal = true
			continue
		}

		for j := range include.Concept {
			concept := &include.Concept[j]
			if concept.Code == nil {
				continue
			}
			display := ""
			if concept.Display != nil {
				display = *concept.Display
			}
			b.add(system, *concept.Code, display)
		}
	}
}

func memberKey(system, code string) string {
	return system + "\x00" + code
}

// SplitCanonical splits a canonical URL of the form "url|version".
func SplitCanonical(canonical string) (url, version string) {
	if idx := strings.LastIndex(canonical, "|"); idx >= 0 {
		return canonical[:idx], canonical[idx+1:]
	}
	return canonical, ""
}
