// Package bloomfilter implements a growable bloom filter over arbitrary
// byte keys. It backs the header page(s) of every SSTable: a filter
// built from the live keys in a flushed memtable (or merged pair of
// SSTables during compaction) lets the read path skip a whole file
// without a linear scan when a key cannot possibly be present.
package bloomfilter

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/hp77-creator/tidesdb-hp/murmur"
)

const (
	growthFactor        = 1.5
	growThreshold       = 0.7
	defaultHashFuncs    = 8
	defaultFilterBits   = 1 << 20 // 1M bits, matches the spec's BLOOMFILTER_SIZE sizing note
)

// BloomFilter is a probabilistic set membership test with zero false
// negatives: Check reporting false is proof of absence, Check reporting
// true is only a hint that must be followed by a real lookup.
type BloomFilter struct {
	bits  []bool
	size  uint
	seeds []uint64 // one seed per hash function
	keys  [][]byte // retained so a grow can rehash everything added so far
}

// New creates a BloomFilter sized for roughly `size` bits and using
// `numHashFuncs` independent hash functions.
func New(size uint, numHashFuncs int) *BloomFilter {
	if size == 0 {
		size = defaultFilterBits
	}
	if numHashFuncs <= 0 {
		numHashFuncs = defaultHashFuncs
	}

	seeds := make([]uint64, numHashFuncs)
	for i := range seeds {
		seeds[i] = uint64(i)*0x9e3779b97f4a7c15 + 1
	}

	return &BloomFilter{
		bits:  make([]bool, size),
		size:  size,
		seeds: seeds,
		keys:  make([][]byte, 0),
	}
}

// NewDefault creates a BloomFilter sized for the engine's default
// per-SSTable budget.
func NewDefault() *BloomFilter {
	return New(defaultFilterBits, defaultHashFuncs)
}

// Add inserts key into the filter, growing the underlying bitset first
// if it has become too dense to stay useful.
func (bf *BloomFilter) Add(key []byte) {
	if bf.shouldGrow() {
		bf.resize(uint(float64(bf.size) * growthFactor))
	}

	for _, seed := range bf.seeds {
		idx := murmur.Hash64(key, seed) % uint64(bf.size)
		bf.bits[idx] = true
	}
	bf.keys = append(bf.keys, key)
}

// Check reports whether key may be present. A false result is a
// definitive absence proof; a true result must still be confirmed by
// reading the candidate record.
func (bf *BloomFilter) Check(key []byte) bool {
	for _, seed := range bf.seeds {
		idx := murmur.Hash64(key, seed) % uint64(bf.size)
		if !bf.bits[idx] {
			return false
		}
	}
	return true
}

func (bf *BloomFilter) shouldGrow() bool {
	set := 0
	for _, b := range bf.bits {
		if b {
			set++
		}
	}
	return float64(set) > float64(bf.size)*growThreshold
}

func (bf *BloomFilter) resize(newSize uint) {
	numKeys := len(bf.keys)
	if numKeys == 0 {
		bf.bits = make([]bool, newSize)
		bf.size = newSize
		return
	}

	newNumHash := int(math.Ceil(float64(newSize) / float64(numKeys) * math.Ln2))
	if newNumHash < 1 {
		newNumHash = 1
	}
	seeds := make([]uint64, newNumHash)
	for i := range seeds {
		seeds[i] = uint64(i)*0x9e3779b97f4a7c15 + 1
	}

	newBits := make([]bool, newSize)
	for _, key := range bf.keys {
		for _, seed := range seeds {
			idx := murmur.Hash64(key, seed) % uint64(newSize)
			newBits[idx] = true
		}
	}

	bf.bits = newBits
	bf.size = newSize
	bf.seeds = seeds
}

// Serialize encodes the filter as a flat byte slice suitable for
// writing to the SSTable's header page(s).
func (bf *BloomFilter) Serialize() ([]byte, error) {
	var buf bytes.Buffer

	if err := binary.Write(&buf, binary.LittleEndian, uint32(bf.size)); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.LittleEndian, int32(len(bf.seeds))); err != nil {
		return nil, err
	}
	for _, seed := range bf.seeds {
		if err := binary.Write(&buf, binary.LittleEndian, seed); err != nil {
			return nil, err
		}
	}

	packed := make([]byte, (bf.size+7)/8)
	for i, b := range bf.bits {
		if b {
			packed[i/8] |= 1 << (uint(i) % 8)
		}
	}
	if _, err := buf.Write(packed); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Deserialize reconstructs a BloomFilter from bytes produced by Serialize.
func Deserialize(data []byte) (*BloomFilter, error) {
	buf := bytes.NewReader(data)

	var size uint32
	if err := binary.Read(buf, binary.LittleEndian, &size); err != nil {
		return nil, err
	}

	var numSeeds int32
	if err := binary.Read(buf, binary.LittleEndian, &numSeeds); err != nil {
		return nil, err
	}
	if numSeeds < 0 || uint64(numSeeds) > uint64(size)+1024 {
		return nil, bytes.ErrTooLarge
	}

	seeds := make([]uint64, numSeeds)
	for i := range seeds {
		if err := binary.Read(buf, binary.LittleEndian, &seeds[i]); err != nil {
			return nil, err
		}
	}

	packed := make([]byte, (size+7)/8)
	if _, err := buf.Read(packed); err != nil {
		return nil, err
	}
	bits := make([]bool, size)
	for i := range bits {
		bits[i] = packed[i/8]&(1<<(uint(i)%8)) != 0
	}

	return &BloomFilter{
		bits:  bits,
		size:  uint(size),
		seeds: seeds,
		keys:  make([][]byte, 0),
	}, nil
}

// Destroy releases the filter's backing storage. With Go's GC this is a
// no-op kept only to satisfy the external contract's create/destroy
// symmetry that callers from a manual-memory background expect.
func (bf *BloomFilter) Destroy() {
	bf.bits = nil
	bf.keys = nil
	bf.seeds = nil
}
