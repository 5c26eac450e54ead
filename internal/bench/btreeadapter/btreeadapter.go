// Package btreeadapter wraps the CORE btree.Tree behind index.Index
// so it can be driven by the same comparison harness as the baseline
// structures in the sibling packages.
package btreeadapter

import (
	"errors"

	"github.com/orderedkv/btreekv/btree"
	"github.com/orderedkv/btreekv/capability"
	"github.com/orderedkv/btreekv/internal/bench/index"
)

var _ index.Index = (*Adapter)(nil)

// Adapter is an index.Index backed by btree.Tree[int64, []byte].
type Adapter struct {
	tree *btree.Tree[int64, []byte]
}

// New builds an Adapter over a fresh Tree of the given degree, sized
// for datasetSize keys up front.
func New(degree, datasetSize int) (*Adapter, error) {
	// Every non-root node holds at least degree-1 keys.
	poolCap := datasetSize/max(degree-1, 1) + degree
	tree, err := btree.New[int64, []byte](degree, capability.Ordered[int64, []byte](),
		btree.WithPoolCapacity(poolCap))
	if err != nil {
		return nil, err
	}
	return &Adapter{tree: tree}, nil
}

func (a *Adapter) Insert(key int64, value []byte) error {
	err := a.tree.Insert(key, value)
	if errors.Is(err, btree.ErrDuplicateKey) {
		// The CORE tree has no in-place update; benchmark workloads
		// re-insert keys, so upsert by deleting the stale entry first.
		if delErr := a.tree.Delete(key); delErr != nil {
			return delErr
		}
		return a.tree.Insert(key, value)
	}
	return err
}

func (a *Adapter) Get(key int64) ([]byte, error) {
	v, ok := a.tree.Search(key)
	if !ok {
		return nil, nil
	}
	return v, nil
}

func (a *Adapter) Delete(key int64) error {
	err := a.tree.Delete(key)
	if errors.Is(err, btree.ErrKeyNotFound) {
		return nil
	}
	return err
}

func (a *Adapter) Range(start, end int64) (index.Iterator, error) {
	return &rangeIterator{it: a.tree.Range(start, end, true, true)}, nil
}

func (a *Adapter) Close() error { return nil }

type rangeIterator struct {
	it  *btree.Iterator[int64, []byte]
	key int64
	val []byte
}

func (r *rangeIterator) Next() bool {
	if !r.it.Next() {
		return false
	}
	r.key, r.val = r.it.KeyValue()
	return true
}

func (r *rangeIterator) Key() int64    { return r.key }
func (r *rangeIterator) Value() []byte { return r.val }
func (r *rangeIterator) Error() error  { return r.it.Err() }
func (r *rangeIterator) Close() error  { return nil }
