// Package merge implements the dedup-by-identity merge applied to every
// incoming entity before rendering. Identity comparison is value equality
// of the key; no structural equality is assumed.
package merge

// Keyed is any entity with a string identity.
type Keyed interface {
	Key() string
}

// ByID inserts incoming into existing unless an element with the same
// identity is already present. It returns the input slice unchanged on a
// duplicate, so re-publishing the same creation event is idempotent.
// Order of first appearance is preserved.
func ByID[T Keyed](existing []T, incoming T) []T {
	id := incoming.Key()
	for _, e := range existing {
		if e.Key() == id {
			return existing
		}
	}
	return append(existing, incoming)
}

// RemoveByID returns list without the element whose identity matches id.
// A missing identity is a no-op.
func RemoveByID[T Keyed](list []T, id string) []T {
	for i, e := range list {
		if e.Key() == id {
			out := make([]T, 0, len(list)-1)
			out = append(out, list[:i]...)
			return append(out, list[i+1:]...)
		}
	}
	return list
}

// IndexByID returns the position of the element with the given identity,
// or -1.
func IndexByID[T Keyed](list []T, id string) int {
	for i, e := range list {
		if e.Key() == id {
			return i
		}
	}
	return -1
}

// ReplaceByID swaps the element matching replacement's identity, or
// appends when absent. Used when an authoritative fetch echoes an entity
// the cache already holds in provisional form.
func ReplaceByID[T Keyed](list []T, replacement T) []T {
	if i := IndexByID(list, replacement.Key()); i >= 0 {
		out := make([]T, len(list))
		copy(out, list)
		out[i] = replacement
		return out
	}
	return append(list, replacement)
}
