package indexmanager

import (
	"daemonstore/storage_engine/access/hashindex"
	"daemonstore/storage_engine/bufferpool"
	diskmanager "daemonstore/storage_engine/disk_manager"
	"sync"
)

// DefaultBucketCount is the bucket count new indexes are created with.
// Dynamic growth is out of scope (hashindex.Resize is a stub), so this is
// sized generously for an educational workload rather than tuned per table.
const DefaultBucketCount = 64

// IndexManager caches the primary-key hash index per table, mirroring the
// heap file manager's one-handle-per-table discipline so repeated lookups
// don't reopen the index file.
type IndexManager struct {
	baseDir     string
	indexes     map[string]*hashindex.HashIndex
	bufferPool  *bufferpool.BufferPool
	diskManager *diskmanager.DiskManager
	mu          sync.RWMutex
}
