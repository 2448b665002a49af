package tidesdb

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/hp77-creator/tidesdb-hp/codec"
	"github.com/hp77-creator/tidesdb-hp/compressor"
	"github.com/hp77-creator/tidesdb-hp/pager"
)

const walFileName = "wal"

// compressorWindowSize bounds how far back the WAL's LZ77 compressor
// searches for matches; kept modest since WAL records are small.
const compressorWindowSize = 4096

// walManager is the database's single write-ahead log. Appends take
// the read side of its lock (concurrent appends are already
// serialized by the pager itself); truncation, which invalidates page
// numbers below a checkpoint, takes the write side.
type walManager struct {
	mu   sync.RWMutex
	pg   *pager.Pager
	comp *compressor.Compressor
}

func openWAL(dbPath string) (*walManager, error) {
	comp, err := compressor.New(compressorWindowSize)
	if err != nil {
		return nil, wrapErr(KindLockInitFailed, err, "constructing wal compressor")
	}

	pg, err := pager.Open(filepath.Join(dbPath, walFileName), os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, wrapErr(KindFileOpenFailed, err, "opening wal")
	}

	return &walManager{pg: pg, comp: comp}, nil
}

// Append serializes op and writes it as one page. compressedWAL
// controls whether the raw structural encoding is additionally run
// through the LZ77 compressor before hitting the pager.
func (w *walManager) Append(op codec.Operation, compressedWAL bool) (int64, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	raw, err := codec.SerializeOperation(op, false)
	if err != nil {
		return -1, wrapErr(KindSerializationFailed, err, "encoding wal operation")
	}

	if compressedWAL {
		raw = w.comp.Compress(raw)
	}

	page, err := w.pg.Write(raw)
	if err != nil {
		return -1, wrapErr(KindIOFailed, err, "appending wal page")
	}
	return page, nil
}

// Checkpoint returns the WAL's current page count, to be captured by a
// flush before it snapshots a memtable.
func (w *walManager) Checkpoint() int64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.pg.PagesCount()
}

// Truncate discards every page from checkpoint onward. Called only by
// the flush worker once the corresponding SSTable is durably on disk.
func (w *walManager) Truncate(checkpoint int64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.pg.Truncate(checkpoint); err != nil {
		return wrapErr(KindIOFailed, err, "truncating wal")
	}
	return nil
}

// Replay iterates every WAL page in insertion order and applies it to
// the corresponding column family's memtable. If a referenced column
// family can't be resolved, replay aborts and leaves the WAL intact so
// a future open (once the CF is recreated, or a config issue fixed)
// can retry.
func (w *walManager) Replay(db *DB, compressedWAL bool) error {
	w.mu.RLock()
	defer w.mu.RUnlock()

	cur := pager.NewCursor(w.pg, 0)
	for cur.Next() {
		raw, err := cur.Get()
		if err != nil {
			return wrapErr(KindWALReplayFailed, err, "reading wal page")
		}

		if compressedWAL {
			raw = w.comp.Decompress(raw)
		}

		op, err := codec.DeserializeOperation(raw, false)
		if err != nil {
			return wrapErr(KindWALReplayFailed, err, "decoding wal operation")
		}

		cf, err := db.getCF(op.ColumnFamily)
		if err != nil {
			return wrapErr(KindWALReplayFailed, err, "replay references unknown column family "+op.ColumnFamily)
		}

		switch op.Code {
		case codec.OpPut:
			cf.memtablePut(op.KV.Key, op.KV.Value, op.KV.TTL)
		case codec.OpDelete:
			cf.memtableDelete(op.KV.Key)
		}
	}

	return nil
}

func (w *walManager) close() error {
	return w.pg.Close()
}
