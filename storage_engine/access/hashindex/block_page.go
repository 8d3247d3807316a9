package hashindex

import (
	page "daemonstore/storage_engine/page"
	"encoding/binary"
)

/*
This file contains standalone functions operating on *page.Page for hash
index block pages. All functions take *page.Page as first argument since
methods cannot be defined on types from external packages — same convention
as heapfile_manager/heap_page.go.

Block page binary layout (all values little-endian), picking up right after
the shared LSN(8)+PageType(1) header every page carries:

	Offset  Size           Field
	──────────────────────────────────────────────────────
	9       BitmapBytes    occupied bitmap — slot was ever written
	9+B     BitmapBytes    readable bitmap — slot currently holds a live entry
	9+2B    12*M           slot array: KEY(int32) + VALUE(int64) per slot
	──────────────────────────────────────────────────────

occupied is monotonic once set — a slot that has ever held an entry stays
"occupied" even after Remove clears its readable bit. Insert only ever
writes into a slot that has never been occupied; reusing a tombstoned slot
goes through Set instead, which overwrites in place without touching
occupied (already set) and re-sets readable.

M is the largest slot count such that the two bitmaps plus the slot array
fit in one page.
*/

const (
	blockDataOffset = 9

	// HashBlockArraySize (M) — derived from page.PageSize: with B =
	// ceil(M/8) bitmap bytes, solve 9 + 2B + 12M <= page.PageSize.
	HashBlockArraySize = 333

	blockBitmapBytes = (HashBlockArraySize-1)/8 + 1 // 42

	hashPairSize = 12 // key int32 (4) + value int64 (8)

	blockOccupiedOffset = blockDataOffset
	blockReadableOffset = blockOccupiedOffset + blockBitmapBytes
	blockArrayOffset    = blockReadableOffset + blockBitmapBytes
)

// InitBlockPage stamps a fresh, empty block page into pg.Data.
func InitBlockPage(pg *page.Page) {
	for i := blockDataOffset; i < page.PageSize; i++ {
		pg.Data[i] = 0
	}
	pg.IsDirty = true
}

// KeyAt returns the key stored at slot index, valid only if IsOccupied.
func KeyAt(pg *page.Page, index int) int32 {
	off := blockArrayOffset + index*hashPairSize
	return int32(binary.LittleEndian.Uint32(pg.Data[off:]))
}

// ValueAt returns the value stored at slot index, valid only if IsReadable.
func ValueAt(pg *page.Page, index int) int64 {
	off := blockArrayOffset + index*hashPairSize + 4
	return int64(binary.LittleEndian.Uint64(pg.Data[off:]))
}

// IsOccupied reports whether slot index has ever held an entry.
func IsOccupied(pg *page.Page, index int) bool {
	b := pg.Data[blockOccupiedOffset+index/8]
	return b&(1<<uint(index%8)) != 0
}

// IsReadable reports whether slot index currently holds a live entry.
func IsReadable(pg *page.Page, index int) bool {
	b := pg.Data[blockReadableOffset+index/8]
	return b&(1<<uint(index%8)) != 0
}

// Insert writes key/value into a never-occupied slot. Returns false if the
// slot was already occupied — callers must pick an unoccupied index first.
func Insert(pg *page.Page, index int, key int32, value int64) bool {
	if IsOccupied(pg, index) {
		return false
	}
	writePair(pg, index, key, value)
	pg.Data[blockOccupiedOffset+index/8] |= 1 << uint(index%8)
	pg.Data[blockReadableOffset+index/8] |= 1 << uint(index%8)
	return true
}

// Set overwrites an already-occupied (tombstoned) slot in place, clearing
// whatever key/value it held and marking it readable again.
func Set(pg *page.Page, index int, key int32, value int64) {
	writePair(pg, index, key, value)
	pg.Data[blockOccupiedOffset+index/8] |= 1 << uint(index%8)
	pg.Data[blockReadableOffset+index/8] |= 1 << uint(index%8)
}

// Remove clears the readable bit for index — a tombstone, not a wipe.
// occupied is left set so Insert will never reuse this index directly.
func Remove(pg *page.Page, index int) {
	if !IsReadable(pg, index) {
		return
	}
	pg.Data[blockReadableOffset+index/8] &^= 1 << uint(index%8)
}

func writePair(pg *page.Page, index int, key int32, value int64) {
	off := blockArrayOffset + index*hashPairSize
	binary.LittleEndian.PutUint32(pg.Data[off:], uint32(key))
	binary.LittleEndian.PutUint64(pg.Data[off+4:], uint64(value))
}
