package tidesdb

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hp77-creator/tidesdb-hp/bloomfilter"
	"github.com/hp77-creator/tidesdb-hp/codec"
	"github.com/hp77-creator/tidesdb-hp/idgen"
	"github.com/hp77-creator/tidesdb-hp/pager"
)

// bloomHeaderPage is the fixed logical page number the bloom filter is
// always written to; every SSTable has exactly one.
const bloomHeaderPage = 0

// SSTable is one immutable, on-disk sorted run of kv pages, headed by a
// bloom filter page over its live keys.
type SSTable struct {
	path    string
	pg      *pager.Pager
	mtime   time.Time
	id      uint64
}

// sstableFileName returns the canonical file name for id.
func sstableFileName(id uint64) string {
	return sstableFilePrefix + strconv.FormatUint(id, 10) + sstableFileSuffix
}

// parseSSTableID extracts the numeric id from a file name produced by
// sstableFileName, or ok=false if name doesn't match the pattern.
func parseSSTableID(name string) (uint64, bool) {
	if !strings.HasPrefix(name, sstableFilePrefix) || !strings.HasSuffix(name, sstableFileSuffix) {
		return 0, false
	}
	mid := strings.TrimSuffix(strings.TrimPrefix(name, sstableFilePrefix), sstableFileSuffix)
	id, err := strconv.ParseUint(mid, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// loadSSTables scans cf's directory for `.sst` files, opens each, and
// populates cf.sstables sorted by mtime ascending (oldest first).
func loadSSTables(cf *ColumnFamily) error {
	entries, err := os.ReadDir(cf.dirPath)
	if err != nil {
		return wrapErr(KindIOFailed, err, "reading column family directory")
	}

	var maxID uint64
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		id, ok := parseSSTableID(entry.Name())
		if !ok {
			continue
		}

		path := filepath.Join(cf.dirPath, entry.Name())
		info, err := entry.Info()
		if err != nil {
			return wrapErr(KindIOFailed, err, "stat sstable "+path)
		}

		pg, err := pager.Open(path, os.O_RDWR, 0o644)
		if err != nil {
			return wrapErr(KindFileOpenFailed, err, "opening sstable "+path)
		}

		cf.sstables = append(cf.sstables, &SSTable{
			path:  path,
			pg:    pg,
			mtime: info.ModTime(),
			id:    id,
		})

		if id > maxID {
			maxID = id
		}
	}

	sort.Slice(cf.sstables, func(i, j int) bool {
		return cf.sstables[i].mtime.Before(cf.sstables[j].mtime)
	})

	if maxID > 0 {
		cf.idGen = idgen.NewSeeded(maxID)
	}

	return nil
}

// close releases the SSTable's pager without touching its file.
func (s *SSTable) close() {
	if s.pg != nil {
		_ = s.pg.Close()
		s.pg = nil
	}
}

// readBloom loads and deserializes the bloom filter header page.
func (s *SSTable) readBloom(compressed bool) (*bloomfilter.BloomFilter, error) {
	raw, err := s.pg.ReadPage(bloomHeaderPage)
	if err != nil {
		return nil, wrapErr(KindBloomReadFailed, err, "reading bloom header page")
	}

	unwrapped, err := codec.DeserializeBloomFilter(raw, compressed)
	if err != nil {
		return nil, wrapErr(KindBloomReadFailed, err, "decoding bloom filter envelope")
	}

	bf, err := bloomfilter.Deserialize(unwrapped)
	if err != nil {
		return nil, wrapErr(KindBloomReadFailed, err, "decoding bloom filter bitset")
	}
	return bf, nil
}

// scanForward walks kv pages after the bloom header, oldest-to-newest
// page order, calling fn for each decoded record. fn returning false
// stops the scan early.
func (s *SSTable) scanForward(compressed bool, fn func(codec.KV) bool) error {
	cur := pager.NewCursor(s.pg, bloomHeaderPage+1)
	for cur.Next() {
		raw, err := cur.Get()
		if err != nil {
			return wrapErr(KindIOFailed, err, "reading sstable page")
		}
		kv, err := codec.DeserializeKV(raw, compressed)
		if err != nil {
			return wrapErr(KindDeserializationFailed, err, "decoding sstable kv")
		}
		if !fn(kv) {
			break
		}
	}
	return nil
}
