package tidesdb

import (
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/hp77-creator/tidesdb-hp/codec"
	"github.com/hp77-creator/tidesdb-hp/pager"
	"github.com/hp77-creator/tidesdb-hp/skiplist"
)

// CompactSSTables merges cfName's SSTables pairwise across up to
// maxThreads worker goroutines, dropping tombstones and expired
// entries and resolving same-key collisions in favor of the newer
// SSTable of each pair.
func (db *DB) CompactSSTables(cfName string, maxThreads int) error {
	if maxThreads < 1 {
		return newErr(KindThreadsTooLow, "max threads must be at least 1")
	}

	cf, err := db.getCF(cfName)
	if err != nil {
		return err
	}

	cf.sstablesLock.Lock()
	defer cf.sstablesLock.Unlock()

	if len(cf.sstables) < 2 {
		return newErr(KindNotEnoughSSTablesToCompact, "need at least 2 sstables to compact")
	}

	sort.Slice(cf.sstables, func(i, j int) bool {
		return cf.sstables[i].mtime.Before(cf.sstables[j].mtime)
	})

	n := len(cf.sstables)
	slotSize := (n + maxThreads - 1) / maxThreads
	results := make([]*SSTable, n)
	consumed := make([]bool, n)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for t := 0; t < maxThreads; t++ {
		start := t * slotSize
		if start >= n {
			break
		}
		end := start + slotSize
		if end > n {
			end = n
		}

		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i+1 < end; i += 2 {
				older, newer := cf.sstables[i], cf.sstables[i+1]
				merged, err := mergeSSTables(cf, older, newer)
				mu.Lock()
				if err != nil {
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
					continue
				}
				results[i] = merged
				consumed[i] = true
				consumed[i+1] = true
				mu.Unlock()
			}
		}(start, end)
	}

	wg.Wait()

	if firstErr != nil {
		db.logger.WithField("cf", cfName).WithError(firstErr).Warn("compaction pair failed, left in place for retry")
	}

	var compacted []*SSTable
	for i, sst := range cf.sstables {
		if consumed[i] {
			continue
		}
		compacted = append(compacted, sst)
	}
	for _, sst := range results {
		if sst != nil {
			compacted = append(compacted, sst)
		}
	}

	sort.Slice(compacted, func(i, j int) bool {
		return compacted[i].mtime.Before(compacted[j].mtime)
	})

	cf.sstables = compacted
	cf.lastCompaction = time.Now()
	return nil
}

// mergeSSTables merges older and newer into a single new SSTable,
// resolving same-key collisions in favor of newer (the spec's
// newer-input-wins resolution), dropping tombstones and expired
// entries, and deleting the two input files. A nil result with a nil
// error means both inputs were entirely tombstones/expired and the
// pair collapses to nothing.
func mergeSSTables(cf *ColumnFamily, older, newer *SSTable) (*SSTable, error) {
	merged := make(map[string]codec.KV)

	collect := func(sst *SSTable) error {
		return sst.scanForward(cf.Config.Compressed, func(kv codec.KV) bool {
			if codec.IsTombstone(kv.Value) {
				delete(merged, string(kv.Key))
				return true
			}
			if kv.TTL != noExpiry && kv.TTL <= time.Now().Unix() {
				delete(merged, string(kv.Key))
				return true
			}
			merged[string(kv.Key)] = kv
			return true
		})
	}

	// Process the older sstable first, then the newer one, so a write
	// present in both wins via the newer pass's plain map overwrite.
	if err := collect(older); err != nil {
		return nil, err
	}
	if err := collect(newer); err != nil {
		return nil, err
	}

	retire := func() {
		older.close()
		newer.close()
		os.Remove(older.path)
		os.Remove(newer.path)
	}

	if len(merged) == 0 {
		retire()
		return nil, nil
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	entries := make([]skiplist.Entry, 0, len(keys))
	for _, k := range keys {
		kv := merged[k]
		entries = append(entries, skiplist.Entry{
			Key:     kv.Key,
			Value:   kv.Value,
			Expires: ttlToExpires(kv.TTL),
		})
	}

	id := cf.idGen.Next()
	path := filepath.Join(cf.dirPath, sstableFileName(id))

	pg, err := pager.Open(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, wrapErr(KindFileOpenFailed, err, "opening merged sstable")
	}

	wrote, werr := writeSSTableFile(pg, entries, cf.Config.Compressed)
	if werr != nil {
		pg.Close()
		os.Remove(path)
		return nil, werr
	}
	if !wrote {
		pg.Close()
		os.Remove(path)
		retire()
		return nil, nil
	}

	retire()
	return &SSTable{path: path, pg: pg, id: id, mtime: time.Now()}, nil
}
