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
	"fmt"
	"os"
	"path/filepath"
)

// NewEngine builds an Engine rooted at dbRoot with a buffer pool sized to
// poolCapacity frames, shared across every table's heap and index files.
func NewEngine(dbRoot string, poolCapacity int) (*Engine, error) {
	if err := os.MkdirAll(dbRoot, 0755); err != nil {
		return nil, fmt.Errorf("failed to create db root: %w", err)
	}

	diskManager := diskmanager.NewDiskManager()
	bufferPool := bufferpool.NewBufferPool(poolCapacity, diskManager)

	catalogManager, err := catalog.NewCatalogManager(dbRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to create catalog manager: %w", err)
	}

	txnManager, err := txn.NewTxnManager()
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction manager: %w", err)
	}

	return &Engine{
		DbRoot:         dbRoot,
		BufferPool:     bufferPool,
		DiskManager:    diskManager,
		CatalogManager: catalogManager,
		TxnManager:     txnManager,
	}, nil
}

// UseDatabase switches the engine onto database name, creating its directory
// layout on first use and (re)loading catalog state, the heap file manager,
// the index manager, and the WAL for that database.
func (e *Engine) UseDatabase(name string) error {
	if e.currDb == name && e.HeapManager != nil {
		return nil
	}
	if e.currDb != "" {
		if err := e.closeCurrentDatabase(); err != nil {
			return err
		}
	}

	dbDir := filepath.Join(e.DbRoot, name)
	tablesDir := filepath.Join(dbDir, "tables")
	indexesDir := filepath.Join(dbDir, "indexes")
	logsDir := filepath.Join(dbDir, "logs")

	for _, dir := range []string{tablesDir, indexesDir, logsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	e.CatalogManager.SetCurrentDatabase(name)
	if err := e.CatalogManager.LoadTableFileMapping(); err != nil {
		return fmt.Errorf("failed to load table mapping: %w", err)
	}
	if err := e.CatalogManager.LoadAllTableSchemas(); err != nil {
		return fmt.Errorf("failed to load table schemas: %w", err)
	}

	heapManager, err := heapfile.NewHeapFileManager(tablesDir, e.DiskManager, e.BufferPool)
	if err != nil {
		return fmt.Errorf("failed to create heap file manager: %w", err)
	}
	indexManager, err := indexmanager.NewIndexManager(indexesDir, e.DiskManager, e.BufferPool)
	if err != nil {
		return fmt.Errorf("failed to create index manager: %w", err)
	}
	walManager, err := wal_manager.OpenWAL(logsDir)
	if err != nil {
		return fmt.Errorf("failed to open WAL: %w", err)
	}
	checkpointManager, err := checkpoint.NewCheckpointManager(dbDir)
	if err != nil {
		return fmt.Errorf("failed to create checkpoint manager: %w", err)
	}

	e.HeapManager = heapManager
	e.IndexManager = indexManager
	e.WalManager = walManager
	e.CheckpointManager = checkpointManager
	e.BufferPool.SetWALManager(walManager)
	e.currDb = name

	// A checkpoint records the LSN up to which the heap/index files were
	// already durable as of the last committed transaction; recovery (not modeled
	// here beyond the flushed-LSN gate) would replay the WAL from this LSN
	// rather than from the start.
	if _, err := e.CheckpointManager.LoadCheckpoint(); err != nil {
		return fmt.Errorf("failed to load checkpoint: %w", err)
	}

	for tableName, mapping := range e.CatalogManager.GetAllTableMappings() {
		if _, err := e.HeapManager.LoadHeapFile(mapping.HeapFileID, tableName); err != nil {
			return fmt.Errorf("failed to load heap file for table '%s': %w", tableName, err)
		}
		if _, err := e.IndexManager.GetOrCreateIndex(tableName, mapping.IndexFileID); err != nil {
			return fmt.Errorf("failed to load index for table '%s': %w", tableName, err)
		}
	}

	return nil
}

func (e *Engine) closeCurrentDatabase() error {
	// Any transaction still active here never reached CommitTransaction or
	// AbortTransaction — the caller forgot to close it out. Aborting rolls
	// back its heap/index writes rather than leaving them as orphaned rows
	// a later WAL replay would have no OpTxnCommit record to confirm anyway.
	for _, t := range e.TxnManager.ActiveTransactions() {
		if err := e.AbortTransaction(t); err != nil {
			return fmt.Errorf("failed to abort in-flight transaction %d on close: %w", t.ID, err)
		}
	}

	if e.IndexManager != nil {
		if err := e.IndexManager.CloseAll(); err != nil {
			return err
		}
	}
	if e.WalManager != nil {
		if err := e.WalManager.Close(); err != nil {
			return err
		}
	}
	return nil
}

// Close releases every resource the engine owns.
func (e *Engine) Close() error {
	if err := e.closeCurrentDatabase(); err != nil {
		return err
	}
	if err := e.BufferPool.FlushAllPages(); err != nil {
		return err
	}
	e.CatalogManager.Close()
	return e.DiskManager.CloseAll()
}
