package schema

// Helpers for building Values extractors by hand. Generated schemas
// inline equivalent closures; hand-authored schemas in tests and
// examples read better with these.
//
// N is the node type the extractor asserts. Root records reach the
// walker as pointers, so their extractors use a pointer N; nested
// values are extracted by value, so their own fields use a value N.

// Single wraps an extractor for a mandatory scalar field.
func Single[N, V any](get func(N) V) func(any) []any {
	return func(node any) []any {
		return []any{get(node.(N))}
	}
}

// Optional wraps an extractor for an optional pointer field. A nil
// pointer yields no values.
func Optional[N, V any](get func(N) *V) func(any) []any {
	return func(node any) []any {
		v := get(node.(N))
		if v == nil {
			return nil
		}
		return []any{*v}
	}
}

// List wraps an extractor for a repeating field.
func List[N, V any](get func(N) []V) func(any) []any {
	return func(node any) []any {
		items := get(node.(N))
		if len(items) == 0 {
			return nil
		}
		out := make([]any, len(items))
		for i, v := range items {
			out[i] = v
		}
		return out
	}
}

// Fixed returns an Elem function that always yields the same type
// definition. Choice fields write their own Elem dispatching on the
// concrete value instead.
func Fixed(t *Type) func(any) *Type {
	return func(any) *Type { return t }
}
