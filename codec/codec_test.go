package codec

import (
	"bytes"
	"testing"
)

func TestIsTombstone(t *testing.T) {
	if !IsTombstone(Tombstone) {
		t.Fatalf("expected the sentinel to be recognized as a tombstone")
	}
	if IsTombstone([]byte("notombstone")) {
		t.Fatalf("expected an arbitrary value to not be a tombstone")
	}
	if IsTombstone([]byte{0xFF, 0xFF, 0xFF}) {
		t.Fatalf("expected a 3-byte value to not match the 4-byte sentinel")
	}
}

func TestKVRoundTrip(t *testing.T) {
	for _, compressed := range []bool{false, true} {
		kv := KV{Key: []byte("key"), Value: []byte("value"), TTL: -1}
		data, err := SerializeKV(kv, compressed)
		if err != nil {
			t.Fatalf("SerializeKV(compressed=%v): %v", compressed, err)
		}

		out, err := DeserializeKV(data, compressed)
		if err != nil {
			t.Fatalf("DeserializeKV(compressed=%v): %v", compressed, err)
		}

		if !bytes.Equal(out.Key, kv.Key) || !bytes.Equal(out.Value, kv.Value) || out.TTL != kv.TTL {
			t.Fatalf("round trip mismatch: got %+v want %+v", out, kv)
		}
	}
}

func TestOperationRoundTrip(t *testing.T) {
	op := Operation{
		Code:         OpDelete,
		ColumnFamily: "cf1",
		KV:           KV{Key: []byte("k"), Value: Tombstone, TTL: -1},
	}

	data, err := SerializeOperation(op, false)
	if err != nil {
		t.Fatalf("SerializeOperation: %v", err)
	}

	out, err := DeserializeOperation(data, false)
	if err != nil {
		t.Fatalf("DeserializeOperation: %v", err)
	}

	if out.Code != op.Code || out.ColumnFamily != op.ColumnFamily || !bytes.Equal(out.KV.Value, op.KV.Value) {
		t.Fatalf("round trip mismatch: got %+v want %+v", out, op)
	}
}

func TestColumnFamilyConfigRoundTrip(t *testing.T) {
	cfg := ColumnFamilyConfig{
		Name:           "cf1",
		FlushThreshold: 1 << 20,
		MaxLevel:       12,
		Probability:    0.24,
		Compressed:     true,
	}

	data, err := SerializeColumnFamilyConfig(cfg)
	if err != nil {
		t.Fatalf("SerializeColumnFamilyConfig: %v", err)
	}

	out, err := DeserializeColumnFamilyConfig(data)
	if err != nil {
		t.Fatalf("DeserializeColumnFamilyConfig: %v", err)
	}

	if out != cfg {
		t.Fatalf("round trip mismatch: got %+v want %+v", out, cfg)
	}
}

func TestBloomFilterEnvelopeRoundTrip(t *testing.T) {
	raw := []byte{1, 2, 3, 4, 5}

	for _, compressed := range []bool{false, true} {
		data, err := SerializeBloomFilter(raw, compressed)
		if err != nil {
			t.Fatalf("SerializeBloomFilter(compressed=%v): %v", compressed, err)
		}

		out, err := DeserializeBloomFilter(data, compressed)
		if err != nil {
			t.Fatalf("DeserializeBloomFilter(compressed=%v): %v", compressed, err)
		}

		if !bytes.Equal(out, raw) {
			t.Fatalf("round trip mismatch: got %v want %v", out, raw)
		}
	}
}
