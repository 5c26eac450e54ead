// Package capability describes how a Tree orders and disposes of the
// payloads it stores, without the tree ever inspecting payload bytes
// directly.
package capability

import "cmp"

// Capability bundles the total-order comparator and optional destructor a
// Tree needs to manage keys and values of type K and V. It carries no
// state of its own.
type Capability[K, V any] struct {
	// Compare returns negative, zero, or positive as a < b, a == b, a > b.
	// Must be deterministic, antisymmetric, and transitive.
	Compare func(a, b K) int

	// Destroy is invoked exactly once per evicted payload, during removal
	// or tree clear. Nil means payloads are trivially droppable.
	Destroy func(key K, value V)
}

// Ordered builds a Capability for any cmp.Ordered key type, ascending.
func Ordered[K cmp.Ordered, V any]() Capability[K, V] {
	return Capability[K, V]{Compare: cmp.Compare[K]}
}

// Reverse builds a Capability for any cmp.Ordered key type, descending.
func Reverse[K cmp.Ordered, V any]() Capability[K, V] {
	return Capability[K, V]{Compare: func(a, b K) int { return cmp.Compare(b, a) }}
}

// Func builds a Capability from a caller-supplied comparator, for keys
// with no natural order (composite keys, case-insensitive strings, ...).
func Func[K, V any](compare func(a, b K) int) Capability[K, V] {
	return Capability[K, V]{Compare: compare}
}

// WithDestroy returns a copy of c with destroy attached as the payload
// destructor, for owning payloads (open file handles, pooled buffers, ...).
func WithDestroy[K, V any](c Capability[K, V], destroy func(K, V)) Capability[K, V] {
	c.Destroy = destroy
	return c
}
