package lsmtree

import "hash/fnv"

// BloomFilter is a fixed-size bit-set membership test with k
// independent hash rounds, used to skip segments a key cannot be in.
type BloomFilter struct {
	bits []bool
	m    uint32
	k    int
}

func NewBloom(size int, k int) *BloomFilter {
	if size <= 0 {
		size = 1
	}
	return &BloomFilter{
		bits: make([]bool, size),
		m:    uint32(size),
		k:    k,
	}
}

func (b *BloomFilter) getHashes(key int64) []uint32 {
	hashes := make([]uint32, b.k)
	h := fnv.New32a()
	keyBytes := []byte{
		byte(key), byte(key >> 8), byte(key >> 16), byte(key >> 24),
		byte(key >> 32), byte(key >> 40), byte(key >> 48), byte(key >> 56),
	}
	for i := 0; i < b.k; i++ {
		h.Write([]byte{byte(i)})
		h.Write(keyBytes)
		hashes[i] = h.Sum32() % b.m
		h.Reset()
	}
	return hashes
}

func (b *BloomFilter) Add(key int64) {
	for _, h := range b.getHashes(key) {
		b.bits[h] = true
	}
}

// Test reports whether key might be present. False means definitely
// absent; true means "maybe present, check the segment".
func (b *BloomFilter) Test(key int64) bool {
	for _, h := range b.getHashes(key) {
		if !b.bits[h] {
			return false
		}
	}
	return true
}
