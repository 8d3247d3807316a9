package bufferpool

import (
	diskmanager "daemonstore/storage_engine/disk_manager"
	"daemonstore/storage_engine/page"
	"daemonstore/storage_engine/replacer"
	"daemonstore/types"
	"encoding/binary"
	"fmt"
)

/*
This file is the main file of the bufferpool.
The buffer pool maps page IDs onto a fixed array of frames and evicts via a
reference-bit clock replacer, never LRU: a frame only becomes eligible for
eviction once its pin count drops to zero, and it's pulled back out of the
replacer's tracked set the instant something pins it again.

It holds access to the disk manager for reading pages in on a miss and
flushing dirty pages back out, either one at a time or on eviction.

Pages are identified by globalPageID.
*/

// NewBufferPool creates a new buffer pool with the given number of frames.
func NewBufferPool(capacity int, diskManager *diskmanager.DiskManager) *BufferPool {
	frames := make([]*page.Page, capacity)
	freeList := make([]int, capacity)
	for i := 0; i < capacity; i++ {
		frames[i] = &page.Page{ID: page.InvalidPageID}
		freeList[i] = capacity - 1 - i // pop from the end so frame 0 is handed out first
	}

	return &BufferPool{
		frames:      frames,
		pageTable:   make(map[int64]int, capacity),
		freeList:    freeList,
		replacer:    replacer.NewClockReplacer(capacity),
		capacity:    capacity,
		diskManager: diskManager,
	}
}

func (bp *BufferPool) SetWALManager(wal WALFlushedLSNGetter) {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	bp.walManager = wal
}

// FetchPage retrieves a page from the buffer pool, loading from disk if
// necessary. Returns the page with pin count incremented.
func (bp *BufferPool) FetchPage(pageID int64) (*page.Page, error) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if frameID, exists := bp.pageTable[pageID]; exists {
		pg := bp.frames[frameID]
		pg.Lock()
		pg.PinCount++
		justPinned := pg.PinCount == 1
		pinCount := pg.PinCount
		pg.Unlock()

		if justPinned {
			bp.replacer.Pin(frameID)
		}

		fmt.Printf("[BufferPool] HIT  pageID=%d pinCount=%d\n", pageID, pinCount)
		return pg, nil
	}

	fmt.Printf("[BufferPool] MISS pageID=%d — loading from disk\n", pageID)
	if bp.diskManager == nil {
		return nil, fmt.Errorf("disk manager not set")
	}

	frameID, err := bp.findVictimFrame()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page %d: %w", pageID, err)
	}

	pg, err := bp.diskManager.ReadPage(pageID)
	if err != nil {
		bp.freeList = append(bp.freeList, frameID)
		return nil, fmt.Errorf("failed to read page %d from disk: %w", pageID, err)
	}

	if pg.PageType == types.PageTypeHeapData && len(pg.Data) >= 8 {
		pg.LSN = binary.LittleEndian.Uint64(pg.Data[page.PageLSNOffset:])
	}

	pg.Lock()
	pg.PinCount = 1
	pg.Unlock()

	bp.frames[frameID] = pg
	bp.pageTable[pageID] = frameID

	return pg, nil
}

// NewPage creates a new page in the buffer pool for a specific file.
// NewPage asks the DiskManager for the next available page ID for the given
// file, constructs a blank Page struct entirely in RAM, and pins it for the
// caller. The installed page starts clean (dirty = false): it hasn't
// diverged from what a fresh read of its (not yet written) disk bytes would
// produce, so eviction won't write it back until something actually dirties
// it via UnpinPage(id, true).
func (bp *BufferPool) NewPage(fileID uint32, pageType types.PageType) (*page.Page, error) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if bp.diskManager == nil {
		return nil, fmt.Errorf("disk manager not set")
	}

	frameID, err := bp.findVictimFrame()
	if err != nil {
		return nil, fmt.Errorf("failed to allocate frame for new page: %w", err)
	}

	pageID, err := bp.diskManager.AllocatePage(fileID, pageType)
	if err != nil {
		bp.freeList = append(bp.freeList, frameID)
		return nil, fmt.Errorf("failed to allocate page: %w", err)
	}

	pg := diskmanager.NewPage(pageID, fileID, pageType)
	pg.IsDirty = false
	pg.PinCount = 1

	bp.frames[frameID] = pg
	bp.pageTable[pageID] = frameID

	return pg, nil
}

// UnpinPage decrements the pin count for a page. Fails if the page isn't
// resident or its pin count is already zero — a double-unpin is a caller
// bug, not something to silently tolerate.
func (bp *BufferPool) UnpinPage(pageID int64, isDirty bool) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	frameID, exists := bp.pageTable[pageID]
	if !exists {
		return fmt.Errorf("page %d not in buffer pool", pageID)
	}

	pg := bp.frames[frameID]
	pg.Lock()
	defer pg.Unlock()

	if pg.PinCount <= 0 {
		return fmt.Errorf("page %d is not pinned", pageID)
	}

	pg.PinCount--
	if isDirty {
		pg.IsDirty = true // OR semantics: never clears a dirty bit another pinner set
	}

	if pg.PinCount == 0 {
		bp.replacer.Unpin(frameID)
	}

	return nil
}

// FlushPage writes a specific page to disk if dirty. Leaves the page
// resident in its frame either way — flushing is not eviction.
func (bp *BufferPool) FlushPage(pageID int64) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	frameID, exists := bp.pageTable[pageID]
	if !exists {
		return fmt.Errorf("page %d not in buffer pool", pageID)
	}

	pg := bp.frames[frameID]
	pg.Lock()
	defer pg.Unlock()

	if !pg.IsDirty {
		return nil // nothing to flush
	}

	if bp.walManager != nil {
		pageLSN := pg.LSN // generic, works for both heap and hash index pages
		flushedLSN := bp.walManager.GetFlushedLSN()
		if pageLSN > flushedLSN {
			fmt.Printf("[BufferPool] FLUSH BLOCKED pageID=%d pageLSN=%d flushedLSN=%d\n", pageID, pageLSN, flushedLSN)
			return fmt.Errorf("cannot flush page %d: pageLSN=%d not yet covered by WAL flushedLSN=%d", pageID, pageLSN, flushedLSN)
		}
		fmt.Printf("[BufferPool] FLUSH pageID=%d pageLSN=%d flushedLSN=%d\n", pageID, pageLSN, flushedLSN)
	}

	if err := bp.diskManager.WritePage(pg); err != nil {
		return fmt.Errorf("failed to flush page %d: %w", pageID, err)
	}

	pg.IsDirty = false
	return nil
}

// FlushAllPages writes every dirty resident page to disk. Pages blocked by
// the WAL gate are skipped, not errored — the caller asked for a best-effort
// sweep, not an all-or-nothing transaction.
func (bp *BufferPool) FlushAllPages() error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if bp.diskManager == nil {
		return fmt.Errorf("disk manager not set")
	}

	fmt.Printf("[BufferPool] FlushAllPages — pool size=%d\n", len(bp.pageTable))

	for pageID, frameID := range bp.pageTable {
		pg := bp.frames[frameID]
		pg.Lock()
		if pg.IsDirty {
			if bp.walManager != nil && pg.LSN > bp.walManager.GetFlushedLSN() {
				pg.Unlock()
				continue
			}
			if err := bp.diskManager.WritePage(pg); err != nil {
				pg.Unlock()
				return fmt.Errorf("failed to flush page %d: %w", pageID, err)
			}
			fmt.Printf("[BufferPool]   flushing pageID=%d\n", pageID)
			pg.IsDirty = false
		}
		pg.Unlock()
	}

	return nil
}

// DeletePage removes a page from the buffer pool and frees its slot on
// disk. Fails if the page is currently pinned.
func (bp *BufferPool) DeletePage(pageID int64) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	frameID, exists := bp.pageTable[pageID]
	if !exists {
		if bp.diskManager != nil {
			return bp.diskManager.DeallocatePage(pageID)
		}
		return nil
	}

	pg := bp.frames[frameID]
	pg.Lock()
	if pg.PinCount > 0 {
		pg.Unlock()
		return fmt.Errorf("cannot delete pinned page %d", pageID)
	}
	pg.ID = page.InvalidPageID
	pg.IsDirty = false
	pg.Unlock()

	delete(bp.pageTable, pageID)
	bp.replacer.Pin(frameID) // make sure it isn't sitting in the replacer's tracked set
	bp.freeList = append(bp.freeList, frameID)

	if bp.diskManager != nil {
		if err := bp.diskManager.DeallocatePage(pageID); err != nil {
			return fmt.Errorf("failed to deallocate page %d: %w", pageID, err)
		}
	}

	return nil
}

// findVictimFrame returns a frame ready to receive a new page, evicting via
// the clock replacer if every frame is already occupied. Caller must hold
// bp.mu.
func (bp *BufferPool) findVictimFrame() (int, error) {
	if n := len(bp.freeList); n > 0 {
		frameID := bp.freeList[n-1]
		bp.freeList = bp.freeList[:n-1]
		return frameID, nil
	}

	for attempts := 0; attempts < bp.capacity; attempts++ {
		frameID, ok := bp.replacer.Victim()
		if !ok {
			return 0, fmt.Errorf("all frames are pinned, cannot evict")
		}

		pg := bp.frames[frameID]
		pg.Lock()

		if pg.IsDirty {
			if bp.walManager != nil && pg.LSN > bp.walManager.GetFlushedLSN() {
				fmt.Printf("[BufferPool] EVICT BLOCKED frameID=%d pageID=%d — WAL not durable\n", frameID, pg.ID)
				pg.Unlock()
				bp.replacer.Unpin(frameID) // hand it back, try the next candidate
				continue
			}
			if err := bp.diskManager.WritePage(pg); err != nil {
				pg.Unlock()
				return 0, fmt.Errorf("failed to write page %d during eviction: %w", pg.ID, err)
			}
			pg.IsDirty = false
		}

		fmt.Printf("[BufferPool] EVICT frameID=%d pageID=%d\n", frameID, pg.ID)
		oldPageID := pg.ID
		pg.Unlock()

		delete(bp.pageTable, oldPageID)
		return frameID, nil
	}

	return 0, fmt.Errorf("all candidate frames blocked, cannot evict")
}
