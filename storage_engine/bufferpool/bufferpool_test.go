package bufferpool

import (
	"os"
	"path/filepath"
	"testing"

	diskmanager "daemonstore/storage_engine/disk_manager"
	"daemonstore/types"

	"github.com/stretchr/testify/assert"
)

func newTestPool(t *testing.T, capacity int) (*BufferPool, uint32) {
	t.Helper()

	dm := diskmanager.NewDiskManager()
	path := filepath.Join(t.TempDir(), "pool.dat")
	fileID, err := dm.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	t.Cleanup(func() { os.Remove(path) })

	return NewBufferPool(capacity, dm), fileID
}

func TestFetchResidentPageIsHit(t *testing.T) {
	bp, fileID := newTestPool(t, 2)

	pg, err := bp.NewPage(fileID, types.PageTypeHeapData)
	if err != nil {
		t.Fatalf("NewPage: %v", err)
	}
	if err := bp.UnpinPage(pg.ID, false); err != nil {
		t.Fatalf("UnpinPage: %v", err)
	}
	if err := bp.FlushPage(pg.ID); err != nil {
		t.Fatalf("FlushPage: %v", err)
	}

	fetched, err := bp.FetchPage(pg.ID)
	if err != nil {
		t.Fatalf("FetchPage (hit): %v", err)
	}
	if fetched.PinCount != 1 {
		t.Fatalf("PinCount = %d, want 1", fetched.PinCount)
	}
}

func TestUnpinAlreadyUnpinnedFails(t *testing.T) {
	bp, fileID := newTestPool(t, 2)

	pg, err := bp.NewPage(fileID, types.PageTypeHeapData)
	if err != nil {
		t.Fatalf("NewPage: %v", err)
	}
	if err := bp.UnpinPage(pg.ID, false); err != nil {
		t.Fatalf("first UnpinPage: %v", err)
	}
	if err := bp.UnpinPage(pg.ID, false); err == nil {
		t.Fatal("second UnpinPage on an already-unpinned page should fail")
	}
}

func TestEvictionSkipsPinnedFrames(t *testing.T) {
	bp, fileID := newTestPool(t, 1)

	first, err := bp.NewPage(fileID, types.PageTypeHeapData)
	if err != nil {
		t.Fatalf("NewPage: %v", err)
	}
	// first stays pinned — the pool has exactly one frame, so a second
	// NewPage call must fail rather than evict the pinned frame.
	if _, err := bp.NewPage(fileID, types.PageTypeHeapData); err == nil {
		t.Fatal("NewPage should fail when the only frame is pinned")
	}

	if err := bp.UnpinPage(first.ID, false); err != nil {
		t.Fatalf("UnpinPage: %v", err)
	}
	if _, err := bp.NewPage(fileID, types.PageTypeHeapData); err != nil {
		t.Fatalf("NewPage after unpin should succeed: %v", err)
	}
}

func TestDeletePinnedPageFails(t *testing.T) {
	bp, fileID := newTestPool(t, 2)

	pg, err := bp.NewPage(fileID, types.PageTypeHeapData)
	if err != nil {
		t.Fatalf("NewPage: %v", err)
	}
	if err := bp.DeletePage(pg.ID); err == nil {
		t.Fatal("DeletePage on a pinned page should fail")
	}

	if err := bp.UnpinPage(pg.ID, false); err != nil {
		t.Fatalf("UnpinPage: %v", err)
	}
	if err := bp.DeletePage(pg.ID); err != nil {
		t.Fatalf("DeletePage after unpin should succeed: %v", err)
	}
	if bp.GetPage(pg.ID) != nil {
		t.Fatal("deleted page should no longer be resident")
	}
}

type stubWAL struct{ flushed uint64 }

func (s *stubWAL) GetFlushedLSN() uint64 { return s.flushed }

func TestFlushBlockedByWAL(t *testing.T) {
	bp, fileID := newTestPool(t, 2)
	wal := &stubWAL{flushed: 0}
	bp.SetWALManager(wal)

	pg, err := bp.NewPage(fileID, types.PageTypeHeapData)
	if err != nil {
		t.Fatalf("NewPage: %v", err)
	}
	pg.LSN = 5
	if err := bp.MarkDirty(pg.ID); err != nil {
		t.Fatalf("MarkDirty: %v", err)
	}

	if err := bp.FlushPage(pg.ID); err == nil {
		t.Fatal("FlushPage should be blocked while pageLSN exceeds the WAL's flushed LSN")
	}

	wal.flushed = 5
	if err := bp.FlushPage(pg.ID); err != nil {
		t.Fatalf("FlushPage should succeed once the WAL catches up: %v", err)
	}
}

// TestStatsReflectPoolState scripts a sequence across three frames and
// checks every BufferPoolStats field at once.
func TestStatsReflectPoolState(t *testing.T) {
	bp, fileID := newTestPool(t, 3)

	clean, err := bp.NewPage(fileID, types.PageTypeHeapData)
	assert.NoError(t, err)
	assert.NoError(t, bp.UnpinPage(clean.ID, false))

	dirtyPinned, err := bp.NewPage(fileID, types.PageTypeHeapData)
	assert.NoError(t, err)

	dirtyUnpinned, err := bp.NewPage(fileID, types.PageTypeHeapData)
	assert.NoError(t, err)
	assert.NoError(t, bp.UnpinPage(dirtyUnpinned.ID, true))

	stats := bp.GetStats()
	assert.Equal(t, BufferPoolStats{
		TotalPages:  3,
		PinnedPages: 1,
		DirtyPages:  1,
		Capacity:    3,
	}, stats)

	assert.NoError(t, bp.UnpinPage(dirtyPinned.ID, false))
}
