// Package bplustree is an in-memory B+Tree baseline — leaves linked
// for fast range scans, kept strictly as a comparison baseline so the
// CORE engine's "no B+Tree mode" stays honored while the contrast
// between the two layouts is still measurable.
package bplustree

import (
	"errors"
	"slices"

	"github.com/orderedkv/btreekv/internal/bench/index"
)

var _ index.Index = (*BPlusTree)(nil)

var ErrKeyNotFound = errors.New("bplustree: key not found")

type Node struct {
	IsLeaf   bool
	Keys     []int64
	Values   [][]byte // populated only when IsLeaf
	Children []*Node  // populated only when !IsLeaf
	Next     *Node    // next leaf, for range scans
}

type BPlusTree struct {
	T    int // minimum degree; max keys per node = 2T-1
	Root *Node
}

func NewBPlusTree(t int) *BPlusTree {
	if t < 2 {
		t = 2
	}
	return &BPlusTree{T: t, Root: &Node{IsLeaf: true}}
}

func (bt *BPlusTree) Get(key int64) ([]byte, error) {
	node := bt.findLeaf(bt.Root, key)
	idx, found := slices.BinarySearch(node.Keys, key)
	if !found {
		return nil, ErrKeyNotFound
	}
	return node.Values[idx], nil
}

func (bt *BPlusTree) findLeaf(curr *Node, key int64) *Node {
	for !curr.IsLeaf {
		i := 0
		for i < len(curr.Keys) && key >= curr.Keys[i] {
			i++
		}
		curr = curr.Children[i]
	}
	return curr
}

func (bt *BPlusTree) Insert(key int64, value []byte) error {
	root := bt.Root
	if len(root.Keys) == 2*bt.T-1 {
		newRoot := &Node{IsLeaf: false, Children: []*Node{root}}
		bt.splitChild(newRoot, 0)
		bt.Root = newRoot
	}
	bt.insertNonFull(bt.Root, key, value)
	return nil
}

func (bt *BPlusTree) insertNonFull(x *Node, k int64, v []byte) {
	if x.IsLeaf {
		idx, found := slices.BinarySearch(x.Keys, k)
		if found {
			x.Values[idx] = v
			return
		}
		x.Keys = slices.Insert(x.Keys, idx, k)
		x.Values = slices.Insert(x.Values, idx, v)
		return
	}
	i := 0
	for i < len(x.Keys) && k >= x.Keys[i] {
		i++
	}
	if len(x.Children[i].Keys) == 2*bt.T-1 {
		bt.splitChild(x, i)
		if k >= x.Keys[i] {
			i++
		}
	}
	bt.insertNonFull(x.Children[i], k, v)
}

func (bt *BPlusTree) splitChild(x *Node, i int) {
	t := bt.T
	y := x.Children[i]
	z := &Node{IsLeaf: y.IsLeaf}

	if y.IsLeaf {
		// Leaf split: the new leaf's first key is copied (not moved) up
		// to the parent, since B+Tree leaves must keep every key.
		z.Keys = append([]int64{}, y.Keys[t-1:]...)
		z.Values = append([][]byte{}, y.Values[t-1:]...)
		z.Next = y.Next
		y.Next = z

		y.Keys = y.Keys[:t-1]
		y.Values = y.Values[:t-1]

		x.Keys = slices.Insert(x.Keys, i, z.Keys[0])
	} else {
		z.Keys = append([]int64{}, y.Keys[t:]...)
		z.Children = append([]*Node{}, y.Children[t:]...)

		midKey := y.Keys[t-1]
		y.Keys = y.Keys[:t-1]
		y.Children = y.Children[:t]

		x.Keys = slices.Insert(x.Keys, i, midKey)
	}
	x.Children = slices.Insert(x.Children, i+1, z)
}

// Delete removes key from its leaf without rebalancing: this baseline
// exists to contrast write/read/scan latency against the CORE engine,
// not to demonstrate B+Tree underflow handling.
func (bt *BPlusTree) Delete(key int64) error {
	node := bt.findLeaf(bt.Root, key)
	idx, found := slices.BinarySearch(node.Keys, key)
	if !found {
		return ErrKeyNotFound
	}
	node.Keys = slices.Delete(node.Keys, idx, idx+1)
	node.Values = slices.Delete(node.Values, idx, idx+1)
	return nil
}

func (bt *BPlusTree) Range(start, end int64) (index.Iterator, error) {
	return &Iterator{curr: bt.findLeaf(bt.Root, start), start: start, end: end}, nil
}

func (bt *BPlusTree) Close() error { return nil }

type Iterator struct {
	curr       *Node
	i          int
	start, end int64
	key        int64
	val        []byte
}

func (it *Iterator) Next() bool {
	for it.curr != nil {
		for it.i < len(it.curr.Keys) {
			k := it.curr.Keys[it.i]
			if k > it.end {
				return false
			}
			if k >= it.start {
				it.key = k
				it.val = it.curr.Values[it.i]
				it.i++
				return true
			}
			it.i++
		}
		it.curr = it.curr.Next
		it.i = 0
	}
	return false
}

func (it *Iterator) Key() int64    { return it.key }
func (it *Iterator) Value() []byte { return it.val }
func (it *Iterator) Error() error  { return nil }
func (it *Iterator) Close() error  { return nil }
