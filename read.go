package tidesdb

import (
	"bytes"
	"time"

	"github.com/hp77-creator/tidesdb-hp/codec"
)

// Get resolves cfName and returns key's current value. The memtable is
// consulted first (a tombstone there short-circuits straight to
// KeyNotFound without touching any SSTable); failing that, SSTables
// are scanned newest-to-oldest, each gated by its bloom filter header.
func (db *DB) Get(cfName string, key []byte) ([]byte, error) {
	cf, err := db.getCF(cfName)
	if err != nil {
		return nil, err
	}

	if cf.memtableContains(key) {
		v, ok := cf.memtableGet(key)
		if !ok {
			return nil, newErr(KindKeyNotFound, "key not found")
		}
		return append([]byte{}, v...), nil
	}

	db.flush.mu.Lock()
	defer db.flush.mu.Unlock()

	cf.sstablesLock.RLock()
	defer cf.sstablesLock.RUnlock()

	now := time.Now()
	for i := len(cf.sstables) - 1; i >= 0; i-- {
		sst := cf.sstables[i]

		bf, err := sst.readBloom(cf.Config.Compressed)
		if err != nil {
			return nil, err
		}
		if !bf.Check(key) {
			continue
		}

		value, found, err := findInSSTable(sst, key, cf.Config.Compressed, now)
		if err != nil {
			return nil, err
		}
		if found {
			if value == nil {
				return nil, newErr(KindKeyNotFound, "key not found")
			}
			return value, nil
		}
	}

	return nil, newErr(KindKeyNotFound, "key not found")
}

// findInSSTable linearly scans sst for key. found reports whether the
// key had any record in this file at all (tombstone or otherwise); a
// found=true with a nil value means the record resolves to absent
// (tombstone or expired), which should stop the newest-to-oldest scan
// rather than falling through to older files.
func findInSSTable(sst *SSTable, key []byte, compressed bool, now time.Time) (value []byte, found bool, err error) {
	scanErr := sst.scanForward(compressed, func(kv codec.KV) bool {
		if !bytes.Equal(kv.Key, key) {
			return true
		}
		found = true
		if codec.IsTombstone(kv.Value) {
			value = nil
			return false
		}
		if kv.TTL != noExpiry && kv.TTL != 0 && !time.Unix(kv.TTL, 0).After(now) {
			value = nil
			return false
		}
		if kv.TTL == 0 {
			value = nil
			return false
		}
		value = append([]byte{}, kv.Value...)
		return false
	})
	return value, found, scanErr
}
