// Package pager implements the fixed-block, append-only file store the
// rest of the engine treats as a black box: every write occupies one
// logical page number regardless of payload size (large payloads
// overflow into linked physical blocks transparently), and reads,
// truncation, and forward/backward cursoring are all keyed by that page
// number. The WAL and the SSTables are plain pager-backed files on
// disk; column-family config files are written directly, not through
// the pager.
package pager

import (
	"bytes"
	"os"
	"strconv"
	"sync"
	"time"
)

const (
	// BlockSize is the physical payload capacity of one on-disk block.
	// A logical page larger than this overflows into chained blocks.
	BlockSize = 4096
	// headerSize holds the ASCII-encoded index of the next overflow
	// block or, when a block is the end of its chain, the negative
	// number -(n+1) where n is the count of payload bytes it holds.
	headerSize = 16

	syncTickInterval = 1 * time.Second
	syncEscalation   = 30 * time.Second
	writeThreshold   = 4096
)

// Pager manages fixed-size blocks within a single file, presenting a
// logical page interface (one Write == one page, however many physical
// blocks it spans) to its callers. pageStart maps a logical page number
// to the physical block its chain begins at; it is the layer that keeps
// page numbers dense and sequential even though a page's own chain can
// span an arbitrary number of blocks.
type Pager struct {
	file *os.File

	mu           sync.RWMutex // protects pageStart/totalBlocks/writeCounter/lastSync
	blockLocks   map[int64]*sync.RWMutex
	blockLocksMu sync.Mutex

	pageStart   []int64 // pageStart[pageID] = starting physical block of that page's chain
	totalBlocks int64   // physical blocks currently allocated

	writeCounter int
	lastSync     time.Time

	stopSync chan struct{}
	syncOnce sync.Once
	syncWG   sync.WaitGroup
}

// Open opens (creating if necessary) the pager-backed file at path,
// rebuilding its logical page index by walking the existing block
// chains on disk.
func Open(path string, flag int, perm os.FileMode) (*Pager, error) {
	f, err := os.OpenFile(path, flag, perm)
	if err != nil {
		return nil, err
	}

	p := &Pager{
		file:       f,
		blockLocks: make(map[int64]*sync.RWMutex),
		stopSync:   make(chan struct{}),
		lastSync:   time.Now(),
	}

	if err := p.rebuildPageIndex(); err != nil {
		_ = f.Close()
		return nil, err
	}

	p.syncWG.Add(1)
	go p.runPeriodicSync()

	return p, nil
}

// rebuildPageIndex walks the file from block 0, treating each block
// chain (terminated by a negative next-header) as one logical page, so a
// reopened file recovers the same page numbering it had before closing.
func (p *Pager) rebuildPageIndex() error {
	stat, err := p.file.Stat()
	if err != nil {
		return err
	}
	totalBlocks := stat.Size() / (BlockSize + headerSize)

	var pages []int64
	var block int64
	for block < totalBlocks {
		pages = append(pages, block)
		last, err := p.lastBlockOf(block)
		if err != nil {
			return err
		}
		block = last + 1
	}

	p.pageStart = pages
	p.totalBlocks = totalBlocks
	return nil
}

// lastBlockOf follows the overflow chain starting at block start and
// returns the final block in that chain (the one whose header is negative).
func (p *Pager) lastBlockOf(start int64) (int64, error) {
	header := make([]byte, headerSize)
	cur := start
	for {
		if _, err := p.file.ReadAt(header, p.blockOffset(cur)); err != nil {
			return 0, err
		}
		next, err := strconv.ParseInt(string(bytes.Trim(header, "\x00")), 10, 64)
		if err != nil {
			return 0, err
		}
		if next < 0 {
			return cur, nil
		}
		cur = next
	}
}

func (p *Pager) blockLock(id int64) *sync.RWMutex {
	p.blockLocksMu.Lock()
	defer p.blockLocksMu.Unlock()

	if lk, ok := p.blockLocks[id]; ok {
		return lk
	}
	lk := &sync.RWMutex{}
	p.blockLocks[id] = lk
	return lk
}

func splitIntoBlocks(data []byte) [][]byte {
	var chunks [][]byte
	for i := 0; i < len(data); i += BlockSize {
		end := i + BlockSize
		if end > len(data) {
			end = len(data)
		}
		chunks = append(chunks, data[i:end])
	}
	if len(chunks) == 0 {
		chunks = [][]byte{{}}
	}
	return chunks
}

func (p *Pager) blockOffset(id int64) int64 {
	return id * (BlockSize + headerSize)
}

// writeAt writes data as a chain of blocks starting at startBlock,
// returning the number of blocks consumed.
func (p *Pager) writeAt(startBlock int64, data []byte) (int64, error) {
	chunks := splitIntoBlocks(data)

	for i, chunk := range chunks {
		blockID := startBlock + int64(i)
		lk := p.blockLock(blockID)
		lk.Lock()

		header := make([]byte, headerSize)
		if i == len(chunks)-1 {
			copy(header, strconv.FormatInt(-int64(len(chunk))-1, 10))
		} else {
			copy(header, strconv.FormatInt(startBlock+int64(i+1), 10))
		}

		padded := chunk
		if len(padded) < BlockSize {
			padded = append(append([]byte{}, chunk...), make([]byte, BlockSize-len(chunk))...)
		}

		_, err := p.file.WriteAt(append(header, padded...), p.blockOffset(blockID))
		lk.Unlock()
		if err != nil {
			return 0, err
		}
	}

	return int64(len(chunks)), nil
}

// Write appends data as the next logical page and returns its page
// number. Payloads larger than BlockSize transparently overflow into
// additional chained blocks; from the caller's perspective this is
// still a single page, and the next Write still returns the next
// sequential page number regardless of how many blocks this one used.
func (p *Pager) Write(data []byte) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.writeCounter++

	startBlock := p.totalBlocks
	pageID := int64(len(p.pageStart))

	blocksUsed, err := p.writeAt(startBlock, data)
	if err != nil {
		return -1, err
	}

	p.pageStart = append(p.pageStart, startBlock)
	p.totalBlocks += blocksUsed

	return pageID, nil
}

// ReadPage reassembles and returns the full payload for a logical page,
// following overflow links until the chain terminates.
func (p *Pager) ReadPage(pageID int64) ([]byte, error) {
	p.mu.RLock()
	if pageID < 0 || pageID >= int64(len(p.pageStart)) {
		p.mu.RUnlock()
		return nil, os.ErrInvalid
	}
	next := p.pageStart[pageID]
	p.mu.RUnlock()

	var result bytes.Buffer

	for next != -1 {
		lk := p.blockLock(next)
		lk.RLock()
		raw := make([]byte, BlockSize+headerSize)
		_, err := p.file.ReadAt(raw, p.blockOffset(next))
		lk.RUnlock()
		if err != nil {
			return nil, err
		}

		header := bytes.Trim(raw[:headerSize], "\x00")

		n, err := strconv.ParseInt(string(header), 10, 64)
		if err != nil {
			return nil, err
		}
		if n < 0 {
			result.Write(raw[headerSize : headerSize+int(-n-1)])
			break
		}
		result.Write(raw[headerSize:])
		next = n
	}

	return result.Bytes(), nil
}

// Size returns the current file size in bytes.
func (p *Pager) Size() int64 {
	if p == nil {
		return 0
	}
	stat, err := p.file.Stat()
	if err != nil {
		return 0
	}
	return stat.Size()
}

// PagesCount returns the number of logical pages written to this pager,
// regardless of how many physical blocks they occupy.
func (p *Pager) PagesCount() int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return int64(len(p.pageStart))
}

// Truncate discards every logical page from checkpoint onward, along
// with the physical blocks backing them. Used by the WAL manager once a
// flush's snapshot is durably on disk.
func (p *Pager) Truncate(checkpoint int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if checkpoint < 0 {
		checkpoint = 0
	}
	if checkpoint >= int64(len(p.pageStart)) {
		return nil
	}

	newBlockCount := p.pageStart[checkpoint]

	p.blockLocksMu.Lock()
	for id := range p.blockLocks {
		if id >= newBlockCount {
			delete(p.blockLocks, id)
		}
	}
	p.blockLocksMu.Unlock()

	if err := p.file.Truncate(newBlockCount * (BlockSize + headerSize)); err != nil {
		return err
	}

	p.pageStart = p.pageStart[:checkpoint]
	p.totalBlocks = newBlockCount
	return nil
}

// FileName returns the path of the underlying file.
func (p *Pager) FileName() string {
	return p.file.Name()
}

// Close stops the background sync goroutine, flushes, and closes the file.
func (p *Pager) Close() error {
	p.syncOnce.Do(func() { close(p.stopSync) })
	p.syncWG.Wait()

	if err := p.file.Sync(); err != nil {
		return err
	}
	return p.file.Close()
}

func (p *Pager) runPeriodicSync() {
	defer p.syncWG.Done()

	ticker := time.NewTicker(syncTickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.mu.Lock()
			due := p.writeCounter >= writeThreshold || time.Since(p.lastSync) >= syncEscalation
			if due {
				p.writeCounter = 0
				p.lastSync = time.Now()
			}
			p.mu.Unlock()

			if due {
				_ = p.file.Sync()
			}
		case <-p.stopSync:
			return
		}
	}
}

// Cursor walks a pager's logical pages forward or backward starting
// from an arbitrary page number.
type Cursor struct {
	pager   *Pager
	current int64
	last    int64
}

// NewCursor creates a cursor over pager, starting just before the first
// page numbered >= from (so the first Next lands on `from`).
func NewCursor(p *Pager, from int64) *Cursor {
	return &Cursor{
		pager:   p,
		current: from - 1,
		last:    p.PagesCount() - 1,
	}
}

// Next advances the cursor to the next page. When there is no next
// page it returns false and the cursor stays where it was.
func (c *Cursor) Next() bool {
	if c.current >= c.last {
		return false
	}
	c.current++
	return true
}

// Prev moves the cursor to the previous page, returning false once
// before the first page.
func (c *Cursor) Prev() bool {
	if c.current <= 0 {
		c.current--
		return false
	}
	c.current--
	return true
}

// Page returns the current page number the cursor is positioned at.
func (c *Cursor) Page() int64 {
	return c.current
}

// Get reads the page the cursor currently points at.
func (c *Cursor) Get() ([]byte, error) {
	return c.pager.ReadPage(c.current)
}

// Free releases the cursor. With Go's GC this is a no-op, kept only to
// mirror the pager's create/destroy-symmetric contract.
func (c *Cursor) Free() {
	c.pager = nil
}
