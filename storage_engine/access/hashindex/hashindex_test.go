package hashindex

import (
	"path/filepath"
	"testing"

	"daemonstore/storage_engine/bufferpool"
	diskmanager "daemonstore/storage_engine/disk_manager"

	"github.com/stretchr/testify/assert"
)

func newTestIndex(t *testing.T, bucketCount int, hashFunc HashFunc) *HashIndex {
	t.Helper()

	dm := diskmanager.NewDiskManager()
	path := filepath.Join(t.TempDir(), "idx.dat")
	fileID, err := dm.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}

	bp := bufferpool.NewBufferPool(16, dm)
	idx, err := NewHashIndex(bp, fileID, bucketCount, hashFunc)
	if err != nil {
		t.Fatalf("NewHashIndex: %v", err)
	}
	return idx
}

// TestInsertGetIdentityHash mirrors the S5 scenario: bucket count 4, identity
// hash, two keys landing in the same bucket's block page via different slots.
func TestInsertGetIdentityHash(t *testing.T) {
	idx := newTestIndex(t, 4, IdentityHash)

	ok, err := idx.Insert(5, 50)
	if err != nil || !ok {
		t.Fatalf("Insert(5,50) = (%v, %v), want (true, nil)", ok, err)
	}
	ok, err = idx.Insert(9, 90)
	if err != nil || !ok {
		t.Fatalf("Insert(9,90) = (%v, %v), want (true, nil)", ok, err)
	}

	got, err := idx.Get(5)
	if err != nil || len(got) != 1 || got[0] != 50 {
		t.Fatalf("Get(5) = (%v, %v), want ([50], nil)", got, err)
	}
	got, err = idx.Get(9)
	if err != nil || len(got) != 1 || got[0] != 90 {
		t.Fatalf("Get(9) = (%v, %v), want ([90], nil)", got, err)
	}

	ok, err = idx.Insert(5, 50)
	if err != nil || ok {
		t.Fatalf("duplicate Insert(5,50) = (%v, %v), want (false, nil)", ok, err)
	}
}

// TestRemoveThenReuseTombstone mirrors S6: remove an entry, confirm the miss,
// then reinsert under the same key and see the tombstoned slot reused.
func TestRemoveThenReuseTombstone(t *testing.T) {
	idx := newTestIndex(t, 4, IdentityHash)

	if _, err := idx.Insert(5, 50); err != nil {
		t.Fatalf("Insert(5,50): %v", err)
	}
	if _, err := idx.Insert(9, 90); err != nil {
		t.Fatalf("Insert(9,90): %v", err)
	}

	removed, err := idx.Remove(5, 50)
	if err != nil || !removed {
		t.Fatalf("Remove(5,50) = (%v, %v), want (true, nil)", removed, err)
	}

	got, err := idx.Get(5)
	if err != nil || len(got) != 0 {
		t.Fatalf("Get(5) after remove = (%v, %v), want ([], nil)", got, err)
	}

	ok, err := idx.Insert(5, 51)
	if err != nil || !ok {
		t.Fatalf("Insert(5,51) after remove = (%v, %v), want (true, nil)", ok, err)
	}

	got, err = idx.Get(5)
	if err != nil || len(got) != 1 || got[0] != 51 {
		t.Fatalf("Get(5) after reinsert = (%v, %v), want ([51], nil)", got, err)
	}
}

func TestRemoveNonexistentReturnsFalse(t *testing.T) {
	idx := newTestIndex(t, 4, IdentityHash)

	removed, err := idx.Remove(1, 1)
	if err != nil || removed {
		t.Fatalf("Remove on empty index = (%v, %v), want (false, nil)", removed, err)
	}
}

func TestGetSize(t *testing.T) {
	idx := newTestIndex(t, 7, DefaultHashFunc)

	n, err := idx.GetSize()
	if err != nil || n != 7 {
		t.Fatalf("GetSize() = (%d, %v), want (7, nil)", n, err)
	}
}

func TestResizeIsStub(t *testing.T) {
	idx := newTestIndex(t, 4, IdentityHash)
	if err := idx.Resize(8); err == nil {
		t.Fatal("Resize should report unsupported")
	}
}

// TestMultipleValuesUnderSameKeyAllSurvive scripts several inserts that
// collide into one bucket (identity hash, bucket count 1 forces every key
// into block 0) and asserts the full returned value set at once.
func TestMultipleValuesUnderSameKeyAllSurvive(t *testing.T) {
	idx := newTestIndex(t, 1, IdentityHash)

	for _, v := range []int64{100, 200, 300} {
		ok, err := idx.Insert(7, v)
		assert.NoError(t, err)
		assert.True(t, ok)
	}

	got, err := idx.Get(7)
	assert.NoError(t, err)
	assert.ElementsMatch(t, []int64{100, 200, 300}, got)

	size, err := idx.GetSize()
	assert.NoError(t, err)
	assert.Equal(t, 1, size)
}
