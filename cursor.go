package tidesdb

import (
	"time"

	"github.com/hp77-creator/tidesdb-hp/codec"
	"github.com/hp77-creator/tidesdb-hp/pager"
	"github.com/hp77-creator/tidesdb-hp/skiplist"
)

// KV is one record returned from a Cursor.
type KV struct {
	Key   []byte
	Value []byte
	TTL   int64
}

// cursorZone identifies which tier of the engine a Cursor is currently
// positioned in.
type cursorZone int

const (
	zoneMemtable cursorZone = iota
	zoneSSTable
	zoneDone
)

// Cursor provides bidirectional traversal over one column family: the
// memtable first, then its SSTables newest-to-oldest, mirroring the
// read path's own precedence.
type Cursor struct {
	cf *ColumnFamily

	zone cursorZone

	memCursor *skiplist.Cursor

	sstIndex  int // index into cf.sstables, counting down from len-1
	sstCursor *pager.Cursor

	current KV
	curErr  error
}

// CursorInit creates a cursor bound to cfName, positioned before the
// first entry.
func (db *DB) CursorInit(cfName string) (*Cursor, error) {
	cf, err := db.getCF(cfName)
	if err != nil {
		return nil, err
	}

	return &Cursor{
		cf:        cf,
		zone:      zoneMemtable,
		memCursor: skiplist.NewCursor(cf.memtable),
		sstIndex:  len(cf.sstables) - 1,
	}, nil
}

// Next advances the cursor, returning false once past the last entry
// in the oldest SSTable.
func (c *Cursor) Next() bool {
	for {
		switch c.zone {
		case zoneMemtable:
			if c.memCursor.Next() {
				e, _ := c.memCursor.Get()
				c.current = KV{Key: e.Key, Value: e.Value, TTL: expiresToTTL(e.Expires)}
				return true
			}
			c.zone = zoneSSTable
			c.sstCursor = nil
			continue

		case zoneSSTable:
			if c.sstCursor == nil {
				if !c.openSSTableCursor(c.sstIndex) {
					c.zone = zoneDone
					continue
				}
			}
			if c.sstCursor.Next() {
				kv, err := c.readCurrentSSTablePage()
				if err != nil {
					c.curErr = err
					return false
				}
				c.current = kv
				return true
			}
			c.sstIndex--
			c.sstCursor = nil
			if c.sstIndex < 0 {
				c.zone = zoneDone
			}
			continue

		default:
			return false
		}
	}
}

// Prev moves the cursor backward; the inverse walk order of Next.
func (c *Cursor) Prev() bool {
	for {
		switch c.zone {
		case zoneDone:
			c.zone = zoneSSTable
			c.sstIndex = 0
			c.sstCursor = nil
			continue

		case zoneSSTable:
			if c.sstCursor == nil {
				if !c.openSSTableCursorAtEnd(c.sstIndex) {
					c.sstIndex++
					if c.sstIndex >= len(c.cf.sstables) {
						c.zone = zoneMemtable
						continue
					}
					continue
				}
			}
			// Page() <= bloomHeaderPage means the walk has backed
			// into the header page itself, which holds the bloom
			// filter rather than a kv record: treat that as this
			// sstable being exhausted rather than reading it.
			if c.sstCursor.Prev() && c.sstCursor.Page() > bloomHeaderPage {
				kv, err := c.readCurrentSSTablePage()
				if err != nil {
					c.curErr = err
					return false
				}
				c.current = kv
				return true
			}
			c.sstIndex++
			c.sstCursor = nil
			if c.sstIndex >= len(c.cf.sstables) {
				c.zone = zoneMemtable
			}
			continue

		case zoneMemtable:
			if c.memCursor.Prev() {
				e, _ := c.memCursor.Get()
				c.current = KV{Key: e.Key, Value: e.Value, TTL: expiresToTTL(e.Expires)}
				return true
			}
			return false

		default:
			return false
		}
	}
}

func (c *Cursor) openSSTableCursor(idx int) bool {
	if idx < 0 || idx >= len(c.cf.sstables) {
		return false
	}
	c.sstCursor = pager.NewCursor(c.cf.sstables[idx].pg, bloomHeaderPage+1)
	return true
}

func (c *Cursor) openSSTableCursorAtEnd(idx int) bool {
	if idx < 0 || idx >= len(c.cf.sstables) {
		return false
	}
	pg := c.cf.sstables[idx].pg
	// NewCursor positions one page before `from`, and the first Prev()
	// steps back one more, so for it to land on the last real page
	// (PagesCount()-1) from must be two past that, i.e. PagesCount()+1.
	c.sstCursor = pager.NewCursor(pg, pg.PagesCount()+1)
	return true
}

func (c *Cursor) readCurrentSSTablePage() (KV, error) {
	raw, err := c.sstCursor.Get()
	if err != nil {
		return KV{}, wrapErr(KindIOFailed, err, "reading cursor sstable page")
	}
	kv, err := codec.DeserializeKV(raw, c.cf.Config.Compressed)
	if err != nil {
		return KV{}, wrapErr(KindDeserializationFailed, err, "decoding cursor sstable kv")
	}
	return KV{Key: kv.Key, Value: kv.Value, TTL: kv.TTL}, nil
}

// Get returns the record the cursor currently points to. It reports
// KeyTombstoned or KeyExpired distinctly from a structural read
// failure, matching the spec's cursor-only error kinds.
func (c *Cursor) Get() (KV, error) {
	if c.curErr != nil {
		return KV{}, c.curErr
	}

	if codec.IsTombstone(c.current.Value) {
		return KV{}, newErr(KindKeyTombstoned, "cursor positioned on a tombstone")
	}
	if c.current.TTL == 0 || (c.current.TTL != noExpiry && !time.Unix(c.current.TTL, 0).After(time.Now())) {
		return KV{}, newErr(KindKeyExpired, "cursor positioned on an expired entry")
	}

	return KV{
		Key:   append([]byte{}, c.current.Key...),
		Value: append([]byte{}, c.current.Value...),
		TTL:   c.current.TTL,
	}, nil
}

// Free releases the cursor's resources.
func (c *Cursor) Free() {
	if c.memCursor != nil {
		c.memCursor.Free()
	}
	c.memCursor = nil
	c.sstCursor = nil
	c.cf = nil
}
