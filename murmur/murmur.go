// Package murmur implements a small, dependency-free MurmurHash3-style
// digest used by the bloom filter and the column-family catalog index.
// It trades cryptographic strength for speed and good bit dispersion,
// which is all either caller needs.
package murmur

import "encoding/binary"

const (
	m64    = 0xff51afd7ed558ccd
	seed64 = 0xc4ceb9fe1a85ec53
)

// Hash64 computes a 64-bit digest of key salted with seed. Callers that
// need several independent hash functions over the same key (the bloom
// filter does) vary seed rather than the algorithm.
func Hash64(key []byte, seed uint64) uint64 {
	h := seed
	var k uint64

	// process 8-byte chunks
	for i := 0; i < len(key)/8; i++ {
		k = binary.LittleEndian.Uint64(key[i*8:])
		h ^= scramble(k)
		h = (h << 27) | (h >> 37)
		h = h*5 + 0x52dce729
	}

	// remaining bytes
	k = 0
	for i := 0; i < len(key)&7; i++ {
		k <<= 8
		k |= uint64(key[len(key)-1-i])
	}
	h ^= scramble(k)

	h ^= uint64(len(key))
	h ^= h >> 33
	h *= m64
	h ^= h >> 33
	h *= seed64
	h ^= h >> 33

	return h
}

func scramble(k uint64) uint64 {
	k *= m64
	k = (k << 31) | (k >> 33)
	k *= seed64
	return k
}
