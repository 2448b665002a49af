package tidesdb

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/hp77-creator/tidesdb-hp/codec"
	"github.com/hp77-creator/tidesdb-hp/idgen"
	"github.com/hp77-creator/tidesdb-hp/murmur"
	"github.com/hp77-creator/tidesdb-hp/skiplist"
)

// ColumnFamilyConfig is the persisted, immutable-after-create
// configuration of one column family.
type ColumnFamilyConfig = codec.ColumnFamilyConfig

const (
	minNameLength       = 2
	minFlushThreshold   = 1 << 20
	minMaxLevel         = 5
	minProbability      = 0.1
	cfcFileSuffix       = ".cfc"
	sstableFileSuffix   = ".sst"
	sstableFilePrefix   = "sstable_"
	nameIndexBucketSize = 16
)

// ColumnFamily is the runtime state of one keyspace: its immutable
// config, its active memtable, its ordered (oldest-to-newest) SSTable
// list, and the id generator used to name new SSTables.
type ColumnFamily struct {
	Config  ColumnFamilyConfig
	dirPath string

	memtable *skiplist.SkipList
	idGen    *idgen.Generator

	sstablesLock sync.RWMutex
	sstables     []*SSTable

	lastCompaction time.Time
}

func validateColumnFamilyConfig(cfg ColumnFamilyConfig) error {
	if len(cfg.Name) < minNameLength {
		return newErr(KindNameTooShort, "column family name must be at least 2 characters")
	}
	if cfg.FlushThreshold < minFlushThreshold {
		return newErr(KindThresholdTooLow, "flush threshold must be at least 1MiB")
	}
	if cfg.MaxLevel < minMaxLevel {
		return newErr(KindLevelTooLow, "max level must be at least 5")
	}
	if cfg.Probability < minProbability {
		return newErr(KindProbabilityTooLow, "probability must be at least 0.1")
	}
	return nil
}

// nameIndex is a murmur-hashed bucket index from column family name to
// *ColumnFamily, replacing a linear scan while preserving
// name-uniqueness, exactly as the spec's catalog section invites.
type nameIndex struct {
	mu      sync.RWMutex
	buckets [][]*ColumnFamily
}

func newNameIndex() *nameIndex {
	return &nameIndex{buckets: make([][]*ColumnFamily, nameIndexBucketSize)}
}

func (n *nameIndex) bucketFor(name string) int {
	return int(murmur.Hash64([]byte(name), 0) % uint64(len(n.buckets)))
}

func (n *nameIndex) put(cf *ColumnFamily) {
	n.mu.Lock()
	defer n.mu.Unlock()
	b := n.bucketFor(cf.Config.Name)
	n.buckets[b] = append(n.buckets[b], cf)
}

func (n *nameIndex) get(name string) (*ColumnFamily, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	b := n.bucketFor(name)
	for _, cf := range n.buckets[b] {
		if cf.Config.Name == name {
			return cf, true
		}
	}
	return nil, false
}

func (n *nameIndex) delete(name string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	b := n.bucketFor(name)
	bucket := n.buckets[b]
	for i, cf := range bucket {
		if cf.Config.Name == name {
			n.buckets[b] = append(bucket[:i], bucket[i+1:]...)
			return
		}
	}
}

func (n *nameIndex) list() []*ColumnFamily {
	n.mu.RLock()
	defer n.mu.RUnlock()
	var out []*ColumnFamily
	for _, bucket := range n.buckets {
		out = append(out, bucket...)
	}
	return out
}

// loadColumnFamilies scans db.cfg.DBPath for existing column family
// directories and loads each one's config and SSTable list.
func (db *DB) loadColumnFamilies() error {
	entries, err := os.ReadDir(db.cfg.DBPath)
	if err != nil {
		return wrapErr(KindIOFailed, err, "reading db path")
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		name := entry.Name()
		dir := filepath.Join(db.cfg.DBPath, name)
		cfcPath := filepath.Join(dir, name+cfcFileSuffix)

		raw, err := os.ReadFile(cfcPath)
		if err != nil {
			if os.IsNotExist(err) {
				continue // not a column family directory
			}
			return wrapErr(KindFileOpenFailed, err, "reading column family config "+cfcPath)
		}

		cfg, err := codec.DeserializeColumnFamilyConfig(raw)
		if err != nil {
			return wrapErr(KindDeserializationFailed, err, "decoding column family config "+cfcPath)
		}

		cf := &ColumnFamily{
			Config:   cfg,
			dirPath:  dir,
			memtable: skiplist.New(),
			idGen:    idgen.New(),
		}

		if err := loadSSTables(cf); err != nil {
			return err
		}

		db.cfIndex.put(cf)
		db.logger.WithField("cf", name).Info("loaded column family")
	}

	return nil
}

// CreateColumnFamily validates cfg, creates its on-disk directory and
// config file, and registers it in the catalog.
func (db *DB) CreateColumnFamily(cfg ColumnFamilyConfig) error {
	if err := validateColumnFamilyConfig(cfg); err != nil {
		return err
	}

	db.cfLock.Lock()
	defer db.cfLock.Unlock()

	if _, exists := db.cfIndex.get(cfg.Name); exists {
		return newErr(KindCFExists, "column family already exists: "+cfg.Name)
	}

	dir := filepath.Join(db.cfg.DBPath, cfg.Name)
	if err := os.MkdirAll(dir, 0o777); err != nil {
		return wrapErr(KindDirCreateFailed, err, "creating column family directory")
	}

	raw, err := codec.SerializeColumnFamilyConfig(cfg)
	if err != nil {
		return wrapErr(KindSerializationFailed, err, "encoding column family config")
	}

	cfcPath := filepath.Join(dir, cfg.Name+cfcFileSuffix)
	if err := os.WriteFile(cfcPath, raw, 0o644); err != nil {
		return wrapErr(KindFileOpenFailed, err, "writing column family config")
	}

	cf := &ColumnFamily{
		Config:   cfg,
		dirPath:  dir,
		memtable: skiplist.New(),
		idGen:    idgen.New(),
	}

	db.cfIndex.put(cf)
	db.logger.WithField("cf", cfg.Name).Info("created column family")
	return nil
}

// DropColumnFamily removes name's directory and drops it from the
// catalog. Directory removal happens before the catalog entry is
// dropped, so a failed removal leaves the entry intact for retry.
func (db *DB) DropColumnFamily(name string) error {
	db.cfLock.Lock()
	defer db.cfLock.Unlock()

	cf, ok := db.cfIndex.get(name)
	if !ok {
		return newErr(KindCFNotFound, "column family not found: "+name)
	}

	cf.sstablesLock.Lock()
	for _, sst := range cf.sstables {
		sst.close()
	}
	cf.sstablesLock.Unlock()

	cf.memtable.Destroy()

	if err := os.RemoveAll(cf.dirPath); err != nil {
		return wrapErr(KindIOFailed, err, "removing column family directory")
	}

	db.cfIndex.delete(name)
	db.logger.WithField("cf", name).Info("dropped column family")
	return nil
}

// getCF resolves a column family by name, for internal callers.
func (db *DB) getCF(name string) (*ColumnFamily, error) {
	cf, ok := db.cfIndex.get(name)
	if !ok {
		return nil, newErr(KindCFNotFound, "column family not found: "+name)
	}
	return cf, nil
}
