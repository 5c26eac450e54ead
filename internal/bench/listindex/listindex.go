// Package listindex is a naive unsorted linear-scan baseline — the
// worst case every other structure in the harness should beat, useful
// as a sanity floor on the latency charts.
package listindex

import (
	"errors"
	"slices"

	"github.com/orderedkv/btreekv/internal/bench/index"
)

var _ index.Index = (*ListIndex)(nil)

var ErrKeyNotFound = errors.New("listindex: key not found")

type entry struct {
	Key int64
	Val []byte
}

type ListIndex struct {
	data []entry
}

func NewListIndex() *ListIndex {
	return &ListIndex{data: make([]entry, 0)}
}

func (l *ListIndex) Insert(key int64, value []byte) error {
	for i := range l.data {
		if l.data[i].Key == key {
			l.data[i].Val = value
			return nil
		}
	}
	l.data = append(l.data, entry{Key: key, Val: value})
	return nil
}

func (l *ListIndex) Get(key int64) ([]byte, error) {
	for _, d := range l.data {
		if d.Key == key {
			return d.Val, nil
		}
	}
	return nil, ErrKeyNotFound
}

func (l *ListIndex) Delete(key int64) error {
	for i, d := range l.data {
		if d.Key == key {
			l.data = slices.Delete(l.data, i, i+1)
			return nil
		}
	}
	return ErrKeyNotFound
}

func (l *ListIndex) Range(start, end int64) (index.Iterator, error) {
	return &Iterator{data: l.data, cur: -1, start: start, end: end}, nil
}

func (l *ListIndex) Close() error { return nil }

type Iterator struct {
	data       []entry
	cur        int
	start, end int64
}

func (it *Iterator) Next() bool {
	it.cur++
	for it.cur < len(it.data) {
		if it.data[it.cur].Key >= it.start && it.data[it.cur].Key <= it.end {
			return true
		}
		it.cur++
	}
	return false
}

func (it *Iterator) Key() int64    { return it.data[it.cur].Key }
func (it *Iterator) Value() []byte { return it.data[it.cur].Val }
func (it *Iterator) Error() error  { return nil }
func (it *Iterator) Close() error  { return nil }
