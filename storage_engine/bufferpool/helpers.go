package bufferpool

import (
	"daemonstore/storage_engine/page"
	"daemonstore/storage_engine/replacer"
	"fmt"
)

/*
This file holds helper functions for the bufferpool
*/

// GetStats returns current buffer pool statistics.
func (bp *BufferPool) GetStats() BufferPoolStats {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	stats := BufferPoolStats{
		TotalPages: len(bp.pageTable),
		Capacity:   bp.capacity,
	}

	for _, frameID := range bp.pageTable {
		pg := bp.frames[frameID]
		pg.RLock()
		if pg.PinCount > 0 {
			stats.PinnedPages++
		}
		if pg.IsDirty {
			stats.DirtyPages++
		}
		pg.RUnlock()
	}

	return stats
}

// Reset flushes every dirty page and empties the pool. Intended for tests.
func (bp *BufferPool) Reset() error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	for pageID, frameID := range bp.pageTable {
		pg := bp.frames[frameID]
		pg.Lock()
		if pg.IsDirty && bp.diskManager != nil {
			if err := bp.diskManager.WritePage(pg); err != nil {
				pg.Unlock()
				return fmt.Errorf("failed to flush page %d during reset: %w", pageID, err)
			}
		}
		pg.Unlock()
	}

	frames := make([]*page.Page, bp.capacity)
	freeList := make([]int, bp.capacity)
	for i := 0; i < bp.capacity; i++ {
		frames[i] = &page.Page{ID: page.InvalidPageID}
		freeList[i] = bp.capacity - 1 - i
	}

	bp.frames = frames
	bp.freeList = freeList
	bp.pageTable = make(map[int64]int, bp.capacity)
	bp.replacer = replacer.NewClockReplacer(bp.capacity)

	return nil
}

// Size returns the current number of resident pages in the buffer pool.
func (bp *BufferPool) Size() int {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	return len(bp.pageTable)
}

// Capacity returns the maximum number of frames in the buffer pool.
func (bp *BufferPool) Capacity() int {
	return bp.capacity
}

// GetPage returns a resident page without loading from disk. Returns nil if
// the page is not currently in the buffer pool.
func (bp *BufferPool) GetPage(pageID int64) *page.Page {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	frameID, exists := bp.pageTable[pageID]
	if !exists {
		return nil
	}
	return bp.frames[frameID]
}

// MarkDirty marks a resident page as dirty.
func (bp *BufferPool) MarkDirty(pageID int64) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	frameID, exists := bp.pageTable[pageID]
	if !exists {
		return fmt.Errorf("page %d not in buffer pool", pageID)
	}

	pg := bp.frames[frameID]
	pg.Lock()
	pg.IsDirty = true
	pg.Unlock()

	return nil
}
