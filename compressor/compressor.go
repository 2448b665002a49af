// Package compressor implements a small LZ77-style byte compressor used
// exclusively for WAL-level compression (Config.CompressedWAL). It is
// kept deliberately separate from the snappy-backed SSTable/KV
// compression in codec so the two independent compression knobs in the
// engine's config never share (or accidentally couple) an implementation.
package compressor

import (
	"bytes"
	"fmt"
)

// Compressor implements a windowed, greedy longest-match LZ77 codec.
type Compressor struct {
	windowSize int
}

// New returns a Compressor that searches back at most windowSize bytes
// for a match.
func New(windowSize int) (*Compressor, error) {
	if windowSize <= 0 {
		return nil, fmt.Errorf("compressor: window size must be greater than 0")
	}

	return &Compressor{windowSize: windowSize}, nil
}

// Compress returns a (distance, length, literal) token stream encoding data.
func (c *Compressor) Compress(data []byte) []byte {
	var out bytes.Buffer
	n := len(data)
	i := 0

	for i < n {
		matchLen, matchDist := 0, 0
		for j := 1; j <= c.windowSize && i-j >= 0; j++ {
			k := 0
			for k < n-i && k < 255 && data[i-j+k] == data[i+k] {
				k++
			}
			if k > matchLen {
				matchLen = k
				matchDist = j
			}
		}

		if matchLen > 0 {
			out.WriteByte(byte(matchDist >> 8))
			out.WriteByte(byte(matchDist & 0xFF))
			out.WriteByte(byte(matchLen))
			i += matchLen
		} else {
			out.WriteByte(0)
			out.WriteByte(0)
			out.WriteByte(data[i])
			i++
		}
	}

	return out.Bytes()
}

// Decompress reverses Compress.
func (c *Compressor) Decompress(data []byte) []byte {
	var out bytes.Buffer
	n := len(data)
	i := 0

	for i < n {
		dist := int(data[i])<<8 | int(data[i+1])
		length := int(data[i+2])
		i += 3

		if dist > 0 {
			start := out.Len() - dist
			for j := 0; j < length; j++ {
				out.WriteByte(out.Bytes()[start+j])
			}
		} else {
			out.WriteByte(data[i-1])
		}
	}

	return out.Bytes()
}
