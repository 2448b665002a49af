package tidesdb

import (
	"time"

	"github.com/hp77-creator/tidesdb-hp/codec"
)

// noExpiry is the sentinel ttl meaning "never expires".
const noExpiry int64 = -1

// ttlToExpires converts the wire ttl (-1 = never, 0 = already expired,
// otherwise an absolute epoch-second deadline) into the skiplist's
// time.Time representation.
func ttlToExpires(ttl int64) time.Time {
	switch {
	case ttl == noExpiry:
		return time.Time{}
	case ttl == 0:
		return time.Unix(0, 0)
	default:
		return time.Unix(ttl, 0)
	}
}

// expiresToTTL is ttlToExpires's inverse, used when a cursor or
// compaction needs to re-derive the wire ttl from a live skiplist
// entry.
func expiresToTTL(expires time.Time) int64 {
	if expires.IsZero() {
		return noExpiry
	}
	return expires.Unix()
}

// memtablePut inserts key/value with the given ttl into cf's memtable.
func (cf *ColumnFamily) memtablePut(key, value []byte, ttl int64) {
	cf.memtable.Put(key, value, ttlToExpires(ttl))
}

// memtablePutLocked is memtablePut for callers already holding the
// memtable's write lock (transaction commit).
func (cf *ColumnFamily) memtablePutLocked(key, value []byte, ttl int64) {
	cf.memtable.PutLocked(key, value, ttlToExpires(ttl))
}

// memtableDelete inserts a tombstone for key.
func (cf *ColumnFamily) memtableDelete(key []byte) {
	cf.memtable.Put(key, codec.Tombstone, ttlToExpires(noExpiry))
}

// memtableDeleteLocked is memtableDelete for callers already holding
// the memtable's write lock.
func (cf *ColumnFamily) memtableDeleteLocked(key []byte) {
	cf.memtable.PutLocked(key, codec.Tombstone, ttlToExpires(noExpiry))
}

// memtableGet looks up key, reporting found=false for both "absent"
// and "present but tombstoned/expired" — standard Get does not
// distinguish the latter two, per spec.
func (cf *ColumnFamily) memtableGet(key []byte) (value []byte, found bool) {
	v, ok := cf.memtable.Get(key)
	if !ok {
		return nil, false
	}
	if codec.IsTombstone(v) {
		return nil, false
	}
	return v, true
}

// memtableContains reports whether key has any entry in the memtable at
// all, tombstoned or expired included, used by the read path to decide
// whether to even consult the SSTables. An expired memtable entry still
// shadows whatever an older SSTable holds for the same key, so this
// deliberately does not filter on expiry the way Get does.
func (cf *ColumnFamily) memtableContains(key []byte) bool {
	_, ok := cf.memtable.GetRaw(key)
	return ok
}

// memtableSize returns the memtable's current total byte size.
func (cf *ColumnFamily) memtableSize() int64 {
	return cf.memtable.Size()
}
