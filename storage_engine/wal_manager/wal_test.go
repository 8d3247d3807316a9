package wal_manager

import (
	"daemonstore/types"
	"testing"
)

func TestAppendSyncAdvancesFlushedLSN(t *testing.T) {
	wal, err := OpenWAL(t.TempDir())
	if err != nil {
		t.Fatalf("OpenWAL: %v", err)
	}
	defer wal.Close()

	if got := wal.GetFlushedLSN(); got != 0 {
		t.Fatalf("FlushedLSN before any append = %d, want 0", got)
	}

	lsn, err := wal.AppendOperation(&types.Operation{Type: types.OpInsert, Table: "t"})
	if err != nil {
		t.Fatalf("AppendOperation: %v", err)
	}
	if lsn != 1 {
		t.Fatalf("first LSN = %d, want 1", lsn)
	}

	if got := wal.GetFlushedLSN(); got != 0 {
		t.Fatalf("FlushedLSN before Sync = %d, want 0 — append alone must not advance it", got)
	}

	if err := wal.Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if got := wal.GetFlushedLSN(); got != lsn {
		t.Fatalf("FlushedLSN after Sync = %d, want %d", got, lsn)
	}
}

func TestReplayAppliesOperationsInOrder(t *testing.T) {
	dir := t.TempDir()
	wal, err := OpenWAL(dir)
	if err != nil {
		t.Fatalf("OpenWAL: %v", err)
	}

	for _, table := range []string{"a", "b", "c"} {
		if _, err := wal.AppendOperation(&types.Operation{Type: types.OpInsert, Table: table}); err != nil {
			t.Fatalf("AppendOperation(%s): %v", table, err)
		}
	}
	if err := wal.Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if err := wal.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := OpenWAL(dir)
	if err != nil {
		t.Fatalf("reopen OpenWAL: %v", err)
	}
	defer reopened.Close()

	if got := reopened.CurrentLSN; got != 3 {
		t.Fatalf("recovered CurrentLSN = %d, want 3", got)
	}

	var replayed []string
	err = reopened.ReplayFromLSN(0, func(op *types.Operation) error {
		replayed = append(replayed, op.Table)
		return nil
	})
	if err != nil {
		t.Fatalf("ReplayFromLSN: %v", err)
	}

	want := []string{"a", "b", "c"}
	if len(replayed) != len(want) {
		t.Fatalf("replayed %v, want %v", replayed, want)
	}
	for i, table := range want {
		if replayed[i] != table {
			t.Fatalf("replayed[%d] = %s, want %s", i, replayed[i], table)
		}
	}
}
