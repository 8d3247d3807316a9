package queryexec

import (
	heapfile "daemonstore/storage_engine/access/heapfile_manager"
	"daemonstore/storage_engine/access/indexmanager"
	"daemonstore/storage_engine/bufferpool"
	"daemonstore/storage_engine/catalog"
	checkpoint "daemonstore/storage_engine/checkpoint_manager"
	diskmanager "daemonstore/storage_engine/disk_manager"
	txn "daemonstore/storage_engine/transaction_manager"
	"daemonstore/storage_engine/wal_manager"
)

// Engine wires the buffer pool and its collaborators (catalog, heap files,
// the primary-key hash index, WAL, transactions, checkpoints) into the
// surface the sequential-scan and insert executors run against. None of this
// is part of the buffer-pool/replacer/hash-index core; it exists so those
// pieces have something real to execute against.
type Engine struct {
	DbRoot string
	currDb string

	BufferPool        *bufferpool.BufferPool
	DiskManager       *diskmanager.DiskManager
	CatalogManager    *catalog.CatalogManager
	HeapManager       *heapfile.HeapFileManager
	IndexManager      *indexmanager.IndexManager
	WalManager        *wal_manager.WALManager
	TxnManager        *txn.TxnManager
	CheckpointManager *checkpoint.CheckpointManager
}
