package hashindex

import (
	"daemonstore/storage_engine/bufferpool"
	"daemonstore/storage_engine/page"
	"daemonstore/types"
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

/*
HashIndex is a persistent linear-probing hash index built entirely on top of
the buffer pool: every logical operation fetches the header page and one
block page, reads or mutates bytes through block_page.go/header_page.go,
marks the page dirty if changed, and unpins.

Addressing is single-bucket/single-block: bucket = hashFunc(key) mod N picks
exactly one block page, and all probing happens within that block's M slots.
This does not probe across buckets — despite the name, it is not the
textbook multi-bucket linear-probing scheme, a deliberate simplification
carried over unchanged.

Concurrency: each block page's own RWMutex (page.Page.Lock/Unlock) is taken
for the duration of a mutating operation, serializing concurrent
inserters/removers on the same bucket. The header page is only ever read
after construction, so no latch is needed there.
*/

// HashFunc maps a key to a bucket index (mod N is applied by the caller).
type HashFunc func(key int32) uint64

// DefaultHashFunc hashes the key's little-endian bytes with xxhash.
func DefaultHashFunc(key int32) uint64 {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(key))
	return xxhash.Sum64(buf[:])
}

// IdentityHash treats the key itself as its hash — useful for tests and for
// small integer key spaces where a real hash buys nothing.
func IdentityHash(key int32) uint64 {
	return uint64(uint32(key))
}

type HashIndex struct {
	bufferPool   *bufferpool.BufferPool
	fileID       uint32
	headerPageID int64
	hashFunc     HashFunc
}

// NewHashIndex allocates a header page and bucketCount block pages, building
// a fresh empty index. hashFunc may be nil, defaulting to DefaultHashFunc.
func NewHashIndex(bp *bufferpool.BufferPool, fileID uint32, bucketCount int, hashFunc HashFunc) (*HashIndex, error) {
	if bucketCount <= 0 || bucketCount > HeaderMaxBuckets {
		return nil, fmt.Errorf("bucket count %d out of range (max %d)", bucketCount, HeaderMaxBuckets)
	}
	if hashFunc == nil {
		hashFunc = DefaultHashFunc
	}

	headerPg, err := bp.NewPage(fileID, types.PageTypeHashHeader)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate hash index header page: %w", err)
	}
	InitHeaderPage(headerPg, int32(bucketCount))

	for i := 0; i < bucketCount; i++ {
		blockPg, err := bp.NewPage(fileID, types.PageTypeHashBlock)
		if err != nil {
			bp.UnpinPage(headerPg.ID, true)
			return nil, fmt.Errorf("failed to allocate hash index block page %d: %w", i, err)
		}
		InitBlockPage(blockPg)
		SetBlockPageID(headerPg, int32(i), blockPg.ID)
		if err := bp.UnpinPage(blockPg.ID, true); err != nil {
			return nil, err
		}
	}

	if err := bp.UnpinPage(headerPg.ID, true); err != nil {
		return nil, err
	}

	return &HashIndex{
		bufferPool:   bp,
		fileID:       fileID,
		headerPageID: headerPg.ID,
		hashFunc:     hashFunc,
	}, nil
}

// OpenHashIndex reattaches to an existing index given its header page id.
func OpenHashIndex(bp *bufferpool.BufferPool, fileID uint32, headerPageID int64, hashFunc HashFunc) *HashIndex {
	if hashFunc == nil {
		hashFunc = DefaultHashFunc
	}
	return &HashIndex{
		bufferPool:   bp,
		fileID:       fileID,
		headerPageID: headerPageID,
		hashFunc:     hashFunc,
	}
}

// HeaderPageID returns the page id clients need to reopen this index later.
func (h *HashIndex) HeaderPageID() int64 {
	return h.headerPageID
}

// GetSize returns the bucket count N.
func (h *HashIndex) GetSize() (int, error) {
	headerPg, err := h.bufferPool.FetchPage(h.headerPageID)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch hash index header page: %w", err)
	}
	n := GetBucketCount(headerPg)
	if err := h.bufferPool.UnpinPage(headerPg.ID, false); err != nil {
		return 0, err
	}
	return int(n), nil
}

// Get returns every value stored under key. A miss is an empty slice, not
// an error.
func (h *HashIndex) Get(key int32) ([]int64, error) {
	blockPg, bucket, err := h.fetchBlockForKey(key)
	if err != nil {
		return nil, err
	}

	blockPg.RLock()
	var values []int64
	for i := 0; i < HashBlockArraySize; i++ {
		if IsOccupied(blockPg, i) && IsReadable(blockPg, i) && KeyAt(blockPg, i) == key {
			values = append(values, ValueAt(blockPg, i))
		}
	}
	blockPg.RUnlock()

	if err := h.bufferPool.UnpinPage(blockPg.ID, false); err != nil {
		return nil, fmt.Errorf("failed to unpin block page for bucket %d: %w", bucket, err)
	}

	return values, nil
}

// Insert adds (key, value). Returns false without error for a duplicate
// (key, value) pair already present, matching the source's bool-return
// contract.
func (h *HashIndex) Insert(key int32, value int64) (bool, error) {
	blockPg, bucket, err := h.fetchBlockForKey(key)
	if err != nil {
		return false, err
	}

	blockPg.Lock()

	reuseIdx := -1
	duplicate := false
	for i := 0; i < HashBlockArraySize; i++ {
		if !IsOccupied(blockPg, i) {
			continue
		}
		if IsReadable(blockPg, i) {
			if KeyAt(blockPg, i) == key && ValueAt(blockPg, i) == value {
				duplicate = true
				break
			}
		} else if reuseIdx == -1 {
			reuseIdx = i // tombstoned, available for reuse
		}
	}

	inserted := false
	var insertErr error
	switch {
	case duplicate:
		// nothing to do
	case reuseIdx != -1:
		Set(blockPg, reuseIdx, key, value)
		blockPg.IsDirty = true
		inserted = true
	default:
		for i := 0; i < HashBlockArraySize; i++ {
			if Insert(blockPg, i, key, value) {
				blockPg.IsDirty = true
				inserted = true
				break
			}
		}
		if !inserted {
			insertErr = fmt.Errorf("bucket %d (block page %d) is full", bucket, blockPg.ID)
		}
	}

	dirty := blockPg.IsDirty
	blockPg.Unlock()

	if uerr := h.bufferPool.UnpinPage(blockPg.ID, dirty); uerr != nil {
		return false, uerr
	}

	return inserted, insertErr
}

// Remove deletes the (key, value) pair if present. Returns false without
// error if no matching entry exists.
func (h *HashIndex) Remove(key int32, value int64) (bool, error) {
	blockPg, _, err := h.fetchBlockForKey(key)
	if err != nil {
		return false, err
	}

	blockPg.Lock()
	found := -1
	for i := 0; i < HashBlockArraySize; i++ {
		if IsOccupied(blockPg, i) && IsReadable(blockPg, i) && KeyAt(blockPg, i) == key && ValueAt(blockPg, i) == value {
			found = i
			break
		}
	}
	if found != -1 {
		Remove(blockPg, found)
		blockPg.IsDirty = true
	}
	blockPg.Unlock()

	if err := h.bufferPool.UnpinPage(blockPg.ID, found != -1); err != nil {
		return false, err
	}

	return found != -1, nil
}

// Resize is left as a stub: dynamic resizing of the hash index is out of
// scope — growing N means rehashing every existing entry into a larger
// bucket array, which this index never needs to do for the workloads it
// serves.
func (h *HashIndex) Resize(newBucketCount int) error {
	return fmt.Errorf("hash index resizing is not supported")
}

func (h *HashIndex) fetchBlockForKey(key int32) (*page.Page, uint64, error) {
	headerPg, err := h.bufferPool.FetchPage(h.headerPageID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch hash index header page: %w", err)
	}

	n := GetBucketCount(headerPg)
	bucket := h.hashFunc(key) % uint64(n)
	blockID := GetBlockPageID(headerPg, int32(bucket))

	if err := h.bufferPool.UnpinPage(headerPg.ID, false); err != nil {
		return nil, bucket, err
	}

	blockPg, err := h.bufferPool.FetchPage(blockID)
	if err != nil {
		return nil, bucket, fmt.Errorf("failed to fetch block page for bucket %d: %w", bucket, err)
	}

	return blockPg, bucket, nil
}
