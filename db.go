// Package tidesdb implements an embedded, column-family log-structured
// merge-tree key-value store: a write-ahead log with crash recovery, a
// skiplist memtable, bloom-filter-gated SSTables, a background flush
// pipeline, multithreaded compaction, a memtable-then-SSTable read
// path, a bidirectional cursor, and single-column-family transactions.
package tidesdb

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/hp77-creator/tidesdb-hp/codec"
	"github.com/sirupsen/logrus"
)

// DB is an open database instance bound to one directory.
type DB struct {
	cfg Config

	cfLock  sync.RWMutex
	cfIndex *nameIndex

	wal   *walManager
	flush *flushPipeline

	logger *logrus.Logger

	compactStop chan struct{}
	compactWG   sync.WaitGroup
}

// Open opens (or creates) a database at cfg.DBPath: ensures the
// directory exists, loads every existing column family from disk,
// opens the WAL, replays it into the freshly loaded memtables, and
// starts the background flush worker.
func Open(cfg Config) (*DB, error) {
	if cfg.DBPath == "" {
		return nil, newErr(KindNullArg, "db path must not be empty")
	}

	if err := os.MkdirAll(cfg.DBPath, 0o777); err != nil {
		return nil, wrapErr(KindDirCreateFailed, err, "creating db path")
	}

	logger := logrus.New()
	if cfg.Logging {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetOutput(io.Discard)
	}

	db := &DB{
		cfg:     cfg,
		cfIndex: newNameIndex(),
		flush:   newFlushPipeline(),
		logger:  logger,
	}

	if err := db.loadColumnFamilies(); err != nil {
		return nil, err
	}

	wal, err := openWAL(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	db.wal = wal

	if err := db.wal.Replay(db, cfg.CompressedWAL); err != nil {
		return nil, err
	}

	db.flush.start(db)

	if cfg.CompactionIntervalSeconds > 0 {
		db.startBackgroundCompaction()
	}

	db.logger.WithField("db_path", cfg.DBPath).Info("database opened")
	return db, nil
}

// Close stops the flush worker (draining any queued snapshots first),
// stops background compaction if running, and closes the WAL. Close is
// not cancellable midway, matching the spec's shutdown semantics.
func (db *DB) Close() error {
	if db.compactStop != nil {
		close(db.compactStop)
		db.compactWG.Wait()
	}

	db.flush.stop()

	for _, cf := range db.cfIndex.list() {
		cf.sstablesLock.Lock()
		for _, sst := range cf.sstables {
			sst.close()
		}
		cf.sstablesLock.Unlock()
	}

	if err := db.wal.close(); err != nil {
		return err
	}

	db.logger.Info("database closed")
	return nil
}

// Put writes key/value with an absolute-epoch-second ttl (-1 for no
// expiry) to cfName: the WAL first, then the memtable, then an
// opportunistic flush check.
func (db *DB) Put(cfName string, key, value []byte, ttl int64) error {
	if key == nil || value == nil {
		return newErr(KindNullArg, "key and value must not be nil")
	}
	if codec.IsTombstone(value) {
		return newErr(KindNullArg, "value must not equal the reserved tombstone sentinel")
	}

	cf, err := db.getCF(cfName)
	if err != nil {
		return err
	}

	op := codec.Operation{Code: codec.OpPut, ColumnFamily: cfName, KV: codec.KV{Key: key, Value: value, TTL: ttl}}
	if _, err := db.wal.Append(op, db.cfg.CompressedWAL); err != nil {
		return err
	}

	cf.memtablePut(key, value, ttl)
	db.maybeEnqueueFlush(cf)
	return nil
}

// Delete removes key from cfName by writing a tombstone, WAL-first
// like Put.
func (db *DB) Delete(cfName string, key []byte) error {
	if key == nil {
		return newErr(KindNullArg, "key must not be nil")
	}

	cf, err := db.getCF(cfName)
	if err != nil {
		return err
	}

	op := codec.Operation{Code: codec.OpDelete, ColumnFamily: cfName, KV: codec.KV{Key: key, Value: codec.Tombstone, TTL: noExpiry}}
	if _, err := db.wal.Append(op, db.cfg.CompressedWAL); err != nil {
		return err
	}

	cf.memtableDelete(key)
	db.maybeEnqueueFlush(cf)
	return nil
}

// Stats reports operational counters for one column family.
type Stats struct {
	MemtableSize   int64
	SSTableCount   int
	LastCompaction time.Time
}

// Stats returns a point-in-time snapshot of cfName's runtime state.
func (db *DB) Stats(cfName string) (Stats, error) {
	cf, err := db.getCF(cfName)
	if err != nil {
		return Stats{}, err
	}

	cf.sstablesLock.RLock()
	defer cf.sstablesLock.RUnlock()

	return Stats{
		MemtableSize:   cf.memtableSize(),
		SSTableCount:   len(cf.sstables),
		LastCompaction: cf.lastCompaction,
	}, nil
}

// startBackgroundCompaction runs one fixed-interval auto-compact loop
// over every column family that holds at least two SSTables, mirroring
// the teacher's compactionInterval behavior. It never runs unless Config.CompactionIntervalSeconds is
// set, so the spec's explicit CompactSSTables call is never surprised
// by an implicit background run.
func (db *DB) startBackgroundCompaction() {
	db.compactStop = make(chan struct{})
	interval := time.Duration(db.cfg.CompactionIntervalSeconds) * time.Second

	db.compactWG.Add(1)
	go func() {
		defer db.compactWG.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				for _, cf := range db.cfIndex.list() {
					cf.sstablesLock.RLock()
					n := len(cf.sstables)
					cf.sstablesLock.RUnlock()
					if n < 2 {
						continue
					}
					if err := db.CompactSSTables(cf.Config.Name, 2); err != nil {
						db.logger.WithField("cf", cf.Config.Name).WithError(err).Debug("background compaction skipped")
					}
				}
			case <-db.compactStop:
				return
			}
		}
	}()
}
