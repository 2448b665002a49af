package compressor

import (
	"bytes"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		windowSize int
		expectErr  bool
	}{
		{windowSize: 32, expectErr: false},
		{windowSize: 0, expectErr: true},
		{windowSize: -1, expectErr: true},
	}

	for _, tt := range tests {
		_, err := New(tt.windowSize)
		if (err != nil) != tt.expectErr {
			t.Errorf("New(%d) error = %v, expectErr %v", tt.windowSize, err, tt.expectErr)
		}
	}
}

func TestCompressDecompressRoundTrip(t *testing.T) {
	c, err := New(32)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	cases := [][]byte{
		[]byte(""),
		[]byte("a"),
		[]byte("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"),
		[]byte("the quick brown fox jumps over the lazy dog the quick brown fox"),
		bytes.Repeat([]byte{0xAB}, 4096),
	}

	for _, in := range cases {
		compressed := c.Compress(in)
		out := c.Decompress(compressed)
		if !bytes.Equal(out, in) {
			t.Fatalf("round trip mismatch: in=%q out=%q", in, out)
		}
	}
}
