package hashindex

import (
	page "daemonstore/storage_engine/page"
	"encoding/binary"
)

/*
Header page binary layout, after the shared LSN(8)+PageType(1) header:

	Offset  Size         Field
	──────────────────────────────────────────
	9       4            BucketCount (int32)
	13      8*N          block page ids (int64), one per bucket, in order
	──────────────────────────────────────────

HeaderMaxBuckets bounds N so the id list fits in one page.
*/

const (
	headerBucketCountOffset = 9
	headerBlockIDsOffset    = headerBucketCountOffset + 4

	// HeaderMaxBuckets is the largest bucket count whose block-page-id list
	// fits after the bucket count field in one page.
	HeaderMaxBuckets = (page.PageSize - headerBlockIDsOffset) / 8
)

// InitHeaderPage stamps a fresh header page with bucketCount buckets and
// zeroed (meaning: none yet assigned) block page ids.
func InitHeaderPage(pg *page.Page, bucketCount int32) {
	for i := headerBucketCountOffset; i < page.PageSize; i++ {
		pg.Data[i] = 0
	}
	binary.LittleEndian.PutUint32(pg.Data[headerBucketCountOffset:], uint32(bucketCount))
	pg.IsDirty = true
}

// GetBucketCount returns N, the number of buckets this header describes.
func GetBucketCount(pg *page.Page) int32 {
	return int32(binary.LittleEndian.Uint32(pg.Data[headerBucketCountOffset:]))
}

// GetBlockPageID returns the page id of the block page serving bucket i.
func GetBlockPageID(pg *page.Page, i int32) int64 {
	off := headerBlockIDsOffset + int(i)*8
	return int64(binary.LittleEndian.Uint64(pg.Data[off:]))
}

// SetBlockPageID records the page id of the block page serving bucket i.
func SetBlockPageID(pg *page.Page, i int32, blockPageID int64) {
	off := headerBlockIDsOffset + int(i)*8
	binary.LittleEndian.PutUint64(pg.Data[off:], uint64(blockPageID))
	pg.IsDirty = true
}
