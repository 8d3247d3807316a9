package bufferpool

import (
	diskmanager "daemonstore/storage_engine/disk_manager"
	"daemonstore/storage_engine/page"
	"daemonstore/storage_engine/replacer"
	"sync"
)

// ############################################# BUFFER POOL #############################################

// BufferPool manages a fixed-size set of in-memory page frames backed by a
// DiskManager. Eviction is driven by a reference-bit clock replacer rather
// than LRU — the pool only ever grants the replacer frames whose pin count
// has dropped to zero, and reclaims them from it the moment a pin count
// rises off zero again.
//
// Works with both heap file pages and hash index pages.
type BufferPool struct {
	frames      []*page.Page    // fixed-size frame array, index = frameID
	pageTable   map[int64]int   // pageID -> frameID, only for resident pages
	freeList    []int           // frameIDs currently holding no page
	replacer    *replacer.ClockReplacer
	capacity    int
	diskManager *diskmanager.DiskManager
	walManager  WALFlushedLSNGetter
	mu          sync.Mutex
}

// BufferPoolStats reports point-in-time occupancy of the pool.
type BufferPoolStats struct {
	TotalPages  int
	PinnedPages int
	DirtyPages  int
	Capacity    int
	HitRate     float64 // Could be tracked with counters
}

// small interface so bufferpool doesn't import the whole wal package
type WALFlushedLSNGetter interface {
	GetFlushedLSN() uint64
}
