// Package index defines the common interface every baseline in the
// comparison harness implements, so the harness can drive the CORE
// engine and its alternatives through one code path.
package index

// Index is a keyed store over int64 keys and byte-slice values, wide
// enough to cover the CORE engine and every baseline structure it is
// compared against (an LSM tree, a B+Tree, a naive list).
type Index interface {
	Insert(key int64, value []byte) error
	Get(key int64) ([]byte, error)
	Delete(key int64) error
	Range(start, end int64) (Iterator, error)
	Close() error
}

// Iterator produces the (key, value) pairs of a Range. The tree and
// LSM implementations yield them in ascending key order; listindex
// yields them in insertion order.
type Iterator interface {
	Next() bool
	Key() int64
	Value() []byte
	Error() error
	Close() error
}
