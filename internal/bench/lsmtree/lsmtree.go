// Package lsmtree is an in-memory, multi-level LSM baseline with a
// Bloom filter per segment — a contrasting write-optimized structure
// to measure the CORE B-Tree's read/write tradeoffs against.
package lsmtree

import (
	"container/heap"
	"errors"
	"slices"
	"sort"

	"github.com/orderedkv/btreekv/internal/bench/index"
)

var _ index.Index = (*LSMTree)(nil)

var ErrDeleted = errors.New("lsmtree: key deleted")
var ErrNotFound = errors.New("lsmtree: key not found")

type Entry struct {
	Key int64
	Val []byte // nil = tombstone
}

type Segment struct {
	Data   []Entry
	Filter *BloomFilter
}

// LSMTree buffers writes in an unsorted MemTable, flushing it into a
// sorted, filtered Segment at Level 0 once it crosses Threshold, and
// periodically compacts a level into the next once it accumulates too
// many segments.
type LSMTree struct {
	MemTable  []Entry
	Levels    [][]Segment
	Threshold int
}

func NewLSM(threshold int) *LSMTree {
	if threshold <= 0 {
		threshold = 1000
	}
	return &LSMTree{
		Threshold: threshold,
		MemTable:  make([]Entry, 0, threshold),
		Levels:    make([][]Segment, 5),
	}
}

func (l *LSMTree) Insert(k int64, v []byte) error {
	l.MemTable = append(l.MemTable, Entry{k, v})
	if len(l.MemTable) >= l.Threshold {
		l.flush()
	}
	return nil
}

func (l *LSMTree) Delete(k int64) error {
	return l.Insert(k, nil)
}

func (l *LSMTree) flush() {
	slices.SortFunc(l.MemTable, func(a, b Entry) int {
		return int(a.Key - b.Key)
	})

	filter := NewBloom(len(l.MemTable)*10, 3)
	for _, e := range l.MemTable {
		filter.Add(e.Key)
	}

	l.Levels[0] = append([]Segment{{Data: l.MemTable, Filter: filter}}, l.Levels[0]...)
	l.MemTable = make([]Entry, 0, l.Threshold)

	l.checkCompaction(0)
}

func (l *LSMTree) checkCompaction(level int) {
	if len(l.Levels[level]) >= 10 && level < len(l.Levels)-1 {
		l.compactLevel(level)
	}
}

func (l *LSMTree) compactLevel(level int) {
	var combined []Entry
	for _, s := range l.Levels[level] {
		combined = append(combined, s.Data...)
	}

	sort.SliceStable(combined, func(i, j int) bool {
		return combined[i].Key < combined[j].Key
	})

	var compacted []Entry
	for i := 0; i < len(combined); i++ {
		if i > 0 && combined[i].Key == combined[i-1].Key {
			continue // newest version wins; combined is stable-sorted newest-first per key
		}
		compacted = append(compacted, combined[i])
	}

	filter := NewBloom(len(compacted)*10, 3)
	for _, e := range compacted {
		filter.Add(e.Key)
	}

	l.Levels[level+1] = append([]Segment{{Data: compacted, Filter: filter}}, l.Levels[level+1]...)
	l.Levels[level] = make([]Segment, 0)

	l.checkCompaction(level + 1)
}

func (l *LSMTree) Get(key int64) ([]byte, error) {
	for i := len(l.MemTable) - 1; i >= 0; i-- {
		if l.MemTable[i].Key == key {
			if l.MemTable[i].Val == nil {
				return nil, ErrDeleted
			}
			return l.MemTable[i].Val, nil
		}
	}

	for _, level := range l.Levels {
		for _, s := range level {
			if !s.Filter.Test(key) {
				continue
			}
			idx, found := slices.BinarySearchFunc(s.Data, key, func(e Entry, t int64) int {
				return int(e.Key - t)
			})
			if found {
				if s.Data[idx].Val == nil {
					return nil, ErrDeleted
				}
				return s.Data[idx].Val, nil
			}
		}
	}
	return nil, ErrNotFound
}

// Range merges the MemTable and every segment via a min-heap, keeping
// only the newest version of each key in range.
func (l *LSMTree) Range(start, end int64) (index.Iterator, error) {
	h := &mergeHeap{}
	heap.Init(h)

	if len(l.MemTable) > 0 {
		sorted := slices.Clone(l.MemTable)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].Key < sorted[j].Key })
		heap.Push(h, &heapItem{data: sorted, index: 0})
	}
	for _, level := range l.Levels {
		for _, seg := range level {
			if len(seg.Data) > 0 {
				heap.Push(h, &heapItem{data: seg.Data, index: 0})
			}
		}
	}

	var final []Entry
	var lastKey int64 = -1
	first := true

	for h.Len() > 0 {
		item := heap.Pop(h).(*heapItem)
		entry := item.data[item.index]

		if entry.Key >= start && entry.Key <= end {
			if first || entry.Key != lastKey {
				if entry.Val != nil {
					final = append(final, entry)
				}
				lastKey = entry.Key
				first = false
			}
		}

		item.index++
		if item.index < len(item.data) {
			heap.Push(h, item)
		}
	}

	return &rangeIterator{data: final, idx: -1}, nil
}

func (l *LSMTree) Close() error { return nil }

type heapItem struct {
	data  []Entry
	index int
}

type mergeHeap []*heapItem

func (h mergeHeap) Len() int           { return len(h) }
func (h mergeHeap) Less(i, j int) bool { return h[i].data[h[i].index].Key < h[j].data[h[j].index].Key }
func (h mergeHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *mergeHeap) Push(x any)        { *h = append(*h, x.(*heapItem)) }
func (h *mergeHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[0 : n-1]
	return x
}

type rangeIterator struct {
	data []Entry
	idx  int
}

func (it *rangeIterator) Next() bool    { it.idx++; return it.idx < len(it.data) }
func (it *rangeIterator) Key() int64    { return it.data[it.idx].Key }
func (it *rangeIterator) Value() []byte { return it.data[it.idx].Val }
func (it *rangeIterator) Error() error  { return nil }
func (it *rangeIterator) Close() error  { return nil }
