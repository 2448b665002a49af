package tidesdb

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/hp77-creator/tidesdb-hp/bloomfilter"
	"github.com/hp77-creator/tidesdb-hp/codec"
	"github.com/hp77-creator/tidesdb-hp/pager"
	"github.com/hp77-creator/tidesdb-hp/queue"
	"github.com/hp77-creator/tidesdb-hp/skiplist"
)

// bloomFilterBits sizes every fresh bloom filter a flush or compaction
// builds.
const bloomFilterBits = 1 << 20

// flushRequest is one unit of work for the background flush worker: an
// immutable snapshot of a memtable plus the WAL checkpoint to truncate
// to once the resulting SSTable is durable.
type flushRequest struct {
	cf         *ColumnFamily
	snapshot   []skiplist.Entry
	checkpoint int64
}

// flushPipeline owns the flush queue, its condition variable, and the
// single background worker goroutine.
type flushPipeline struct {
	mu       sync.Mutex
	cond     *sync.Cond
	queue    *queue.Queue[flushRequest]
	stopping bool
	wg       sync.WaitGroup
}

func newFlushPipeline() *flushPipeline {
	fp := &flushPipeline{queue: queue.New[flushRequest]()}
	fp.cond = sync.NewCond(&fp.mu)
	return fp
}

func (fp *flushPipeline) start(db *DB) {
	fp.wg.Add(1)
	go fp.run(db)
}

func (fp *flushPipeline) run(db *DB) {
	defer fp.wg.Done()

	for {
		fp.mu.Lock()
		for fp.queue.Len() == 0 && !fp.stopping {
			fp.cond.Wait()
		}
		if fp.stopping && fp.queue.Len() == 0 {
			fp.mu.Unlock()
			return
		}
		req, ok := fp.queue.Pop()
		fp.mu.Unlock()

		if !ok {
			continue
		}

		if err := db.processFlush(req); err != nil {
			db.logger.WithField("cf", req.cf.Config.Name).WithError(err).Warn("flush failed, wal left un-truncated")
		}
	}
}

// stop signals the worker to drain the remaining queue and exit, then
// waits for it to finish.
func (fp *flushPipeline) stop() {
	fp.mu.Lock()
	fp.stopping = true
	fp.cond.Broadcast()
	fp.mu.Unlock()
	fp.wg.Wait()
}

// maybeEnqueueFlush checks cf's memtable size and, if it has crossed
// the configured threshold, atomically snapshots and clears it under
// the memtable write lock, then enqueues the snapshot for the
// background worker.
func (db *DB) maybeEnqueueFlush(cf *ColumnFamily) {
	if cf.memtableSize() < int64(cf.Config.FlushThreshold) {
		return
	}

	db.flush.mu.Lock()
	defer db.flush.mu.Unlock()

	cf.memtable.Lock()
	snapshot := cf.memtable.CopyLocked()
	if len(snapshot) == 0 {
		cf.memtable.Unlock()
		return
	}
	checkpoint := db.wal.Checkpoint()
	cf.memtable.ClearLocked()
	cf.memtable.Unlock()

	db.flush.queue.Push(flushRequest{cf: cf, snapshot: snapshot, checkpoint: checkpoint})
	db.flush.cond.Signal()
}

// processFlush builds a new SSTable from req's snapshot, publishes it
// to the column family, and truncates the WAL to req.checkpoint. It
// writes to a .tmp file and renames into place only once every page is
// durably written, so a mid-flush failure never leaves a partial file
// masquerading as a real SSTable; on failure the WAL is left
// untouched, so the data replays on next open.
func (db *DB) processFlush(req flushRequest) error {
	cf := req.cf
	id := cf.idGen.Next()
	finalPath := filepath.Join(cf.dirPath, sstableFileName(id))
	tmpPath := finalPath + ".tmp"

	pg, err := pager.Open(tmpPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return wrapErr(KindFileOpenFailed, err, "opening temp sstable")
	}

	wrote, werr := writeSSTableFile(pg, req.snapshot, cf.Config.Compressed)
	if werr != nil {
		pg.Close()
		os.Remove(tmpPath)
		return werr
	}

	if err := pg.Close(); err != nil {
		os.Remove(tmpPath)
		return wrapErr(KindIOFailed, err, "closing temp sstable")
	}

	if !wrote {
		// every entry in the snapshot was expired: no sstable is
		// produced, but the wal still truncates since the data is
		// genuinely gone.
		os.Remove(tmpPath)
		return db.wal.Truncate(req.checkpoint)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return wrapErr(KindIOFailed, err, "renaming temp sstable into place")
	}

	reopened, err := pager.Open(finalPath, os.O_RDWR, 0o644)
	if err != nil {
		return wrapErr(KindFileOpenFailed, err, "reopening flushed sstable")
	}

	sst := &SSTable{path: finalPath, pg: reopened, id: id, mtime: time.Now()}

	cf.sstablesLock.Lock()
	cf.sstables = append(cf.sstables, sst)
	cf.sstablesLock.Unlock()

	if err := db.wal.Truncate(req.checkpoint); err != nil {
		return err
	}

	db.logger.WithField("cf", cf.Config.Name).WithField("sstable", finalPath).Debug("flush complete")
	return nil
}

// writeSSTableFile writes a bloom filter header page followed by one
// kv page per non-expired entry in entries' order, which callers must
// have already sorted ascending by key. Tombstones are written (and
// added to the bloom filter) so they keep hiding older SSTables' values
// for the same key. wrote is false when every entry was expired, in
// which case no pages were written and the caller should not publish a
// file.
func writeSSTableFile(pg *pager.Pager, entries []skiplist.Entry, compressed bool) (wrote bool, err error) {
	bf := bloomfilter.New(bloomFilterBits, 0)
	live := make([]skiplist.Entry, 0, len(entries))

	for _, e := range entries {
		if !e.Expires.IsZero() && !e.Expires.After(time.Now()) {
			continue
		}
		bf.Add(e.Key)
		live = append(live, e)
	}

	if len(live) == 0 {
		return false, nil
	}

	rawBloom, err := bf.Serialize()
	if err != nil {
		return false, wrapErr(KindSerializationFailed, err, "serializing bloom filter")
	}
	envelope, err := codec.SerializeBloomFilter(rawBloom, compressed)
	if err != nil {
		return false, wrapErr(KindSerializationFailed, err, "encoding bloom filter envelope")
	}
	if _, err := pg.Write(envelope); err != nil {
		return false, wrapErr(KindIOFailed, err, "writing bloom header page")
	}

	for _, e := range live {
		kv := codec.KV{Key: e.Key, Value: e.Value, TTL: expiresToTTL(e.Expires)}
		raw, err := codec.SerializeKV(kv, compressed)
		if err != nil {
			return false, wrapErr(KindSerializationFailed, err, "encoding sstable kv")
		}
		if _, err := pg.Write(raw); err != nil {
			return false, wrapErr(KindIOFailed, err, "writing sstable kv page")
		}
	}

	return true, nil
}
