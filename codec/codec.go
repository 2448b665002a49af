// Package codec implements the engine's on-disk byte encodings:
// operations (the WAL's unit of record), raw key/value pairs (the
// SSTable's unit of record), column-family config files, and
// serialized bloom filter headers. The operation, kv and bloom filter
// encode/decode pairs take a compressed flag; when set, the
// structurally-encoded payload is additionally snappy-compressed before
// being handed to the pager. Column-family config files are always
// stored uncompressed.
package codec

import (
	"github.com/golang/snappy"
	"github.com/vmihailenco/msgpack/v5"
)

// OpCode distinguishes a WAL operation's kind.
type OpCode uint8

const (
	OpPut OpCode = iota
	OpDelete
)

// Tombstone is the reserved 4-byte little-endian sentinel value that
// marks a record as deleted.
var Tombstone = []byte{0xFF, 0xFF, 0xFF, 0xFF}

// IsTombstone reports whether value is exactly the tombstone sentinel.
func IsTombstone(value []byte) bool {
	return len(value) == 4 &&
		value[0] == Tombstone[0] && value[1] == Tombstone[1] &&
		value[2] == Tombstone[2] && value[3] == Tombstone[3]
}

// KV is the wire shape of one key/value record, used both standalone
// (SSTable pages) and nested inside an Operation (WAL pages).
type KV struct {
	Key   []byte `msgpack:"k"`
	Value []byte `msgpack:"v"`
	TTL   int64  `msgpack:"t"`
}

// Operation is one WAL record: an op code plus the column family it
// targets and the affected kv.
type Operation struct {
	Code           OpCode `msgpack:"c"`
	ColumnFamily   string `msgpack:"f"`
	KV             KV     `msgpack:"kv"`
}

// ColumnFamilyConfig is the on-disk shape of a `<name>.cfc` file.
type ColumnFamilyConfig struct {
	Name           string  `msgpack:"name"`
	FlushThreshold int32   `msgpack:"flush_threshold"`
	MaxLevel       int32   `msgpack:"max_level"`
	Probability    float32 `msgpack:"probability"`
	Compressed     bool    `msgpack:"compressed"`
}

func encode(v interface{}, compressed bool) ([]byte, error) {
	raw, err := msgpack.Marshal(v)
	if err != nil {
		return nil, err
	}
	if compressed {
		return snappy.Encode(nil, raw), nil
	}
	return raw, nil
}

func decode(data []byte, compressed bool, v interface{}) error {
	raw := data
	if compressed {
		decoded, err := snappy.Decode(nil, data)
		if err != nil {
			return err
		}
		raw = decoded
	}
	return msgpack.Unmarshal(raw, v)
}

// SerializeOperation encodes op for WAL storage.
func SerializeOperation(op Operation, compressed bool) ([]byte, error) {
	return encode(op, compressed)
}

// DeserializeOperation decodes a WAL page back into an Operation.
func DeserializeOperation(data []byte, compressed bool) (Operation, error) {
	var op Operation
	err := decode(data, compressed, &op)
	return op, err
}

// SerializeKV encodes kv for SSTable storage.
func SerializeKV(kv KV, compressed bool) ([]byte, error) {
	return encode(kv, compressed)
}

// DeserializeKV decodes an SSTable page back into a KV.
func DeserializeKV(data []byte, compressed bool) (KV, error) {
	var kv KV
	err := decode(data, compressed, &kv)
	return kv, err
}

// SerializeColumnFamilyConfig encodes cfg for the `.cfc` file.
func SerializeColumnFamilyConfig(cfg ColumnFamilyConfig) ([]byte, error) {
	return encode(cfg, false)
}

// DeserializeColumnFamilyConfig decodes a `.cfc` file's contents.
func DeserializeColumnFamilyConfig(data []byte) (ColumnFamilyConfig, error) {
	var cfg ColumnFamilyConfig
	err := decode(data, false, &cfg)
	return cfg, err
}

// bloomEnvelope is the msgpack wrapper around a bloom filter's raw
// serialized bytes, letting the SSTable header page carry it alongside
// the same compression flag as everything else in the column family.
type bloomEnvelope struct {
	Raw []byte `msgpack:"raw"`
}

// SerializeBloomFilter wraps an already-serialized bloom filter (see
// bloomfilter.Serialize) for SSTable header storage.
func SerializeBloomFilter(raw []byte, compressed bool) ([]byte, error) {
	return encode(bloomEnvelope{Raw: raw}, compressed)
}

// DeserializeBloomFilter unwraps a bloom filter header page back into
// the raw bytes bloomfilter.Deserialize expects.
func DeserializeBloomFilter(data []byte, compressed bool) ([]byte, error) {
	var env bloomEnvelope
	if err := decode(data, compressed, &env); err != nil {
		return nil, err
	}
	return env.Raw, nil
}
