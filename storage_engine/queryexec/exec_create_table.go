package queryexec

import (
	"daemonstore/types"
	"fmt"
)

// CreateTable registers a new table's schema in the catalog and allocates
// its heap file and primary-key hash index. A WAL record is written and
// synced before any file is created, so a crash mid-creation leaves a
// recoverable trail rather than a heap file nobody's schema points at; a
// failure partway through compensates with an OpAbort record pointing back
// at that LSN.
func (e *Engine) CreateTable(schema types.TableSchema) error {
	if e.currDb == "" {
		return fmt.Errorf("no database selected")
	}
	tableName := schema.TableName
	if e.CatalogManager.TableExists(tableName) {
		return fmt.Errorf("table '%s' already exists", tableName)
	}

	op := &types.Operation{Type: types.OpCreateTable, Table: tableName, Schema: &schema}
	lsn, err := e.WalManager.AppendOperation(op)
	if err != nil {
		return fmt.Errorf("wal append failed: %w", err)
	}
	if err := e.WalManager.Sync(); err != nil {
		return fmt.Errorf("wal sync failed: %w", err)
	}

	compensate := func(original error) error {
		abortOp := &types.Operation{Type: types.OpAbort, Table: tableName, TargetLSN: lsn}
		if _, werr := e.WalManager.AppendOperation(abortOp); werr != nil {
			return fmt.Errorf("CRITICAL: %w; also failed to write WAL abort record: %v", original, werr)
		}
		if werr := e.WalManager.Sync(); werr != nil {
			return fmt.Errorf("CRITICAL: %w; also failed to sync WAL abort record: %v", original, werr)
		}
		return original
	}

	heapFileID, indexFileID, err := e.CatalogManager.RegisterNewTable(schema)
	if err != nil {
		return compensate(fmt.Errorf("failed to register table in catalog: %w", err))
	}

	if err := e.HeapManager.CreateHeapfile(tableName, int(heapFileID)); err != nil {
		if rerr := e.CatalogManager.UnregisterTable(tableName); rerr != nil {
			return compensate(fmt.Errorf("failed to create heap file [%w]; rollback also failed: %v", err, rerr))
		}
		return compensate(fmt.Errorf("failed to create heap file: %w", err))
	}

	if _, err := e.IndexManager.GetOrCreateIndex(tableName, indexFileID); err != nil {
		if rerr := e.CatalogManager.UnregisterTable(tableName); rerr != nil {
			return compensate(fmt.Errorf("failed to create index [%w]; rollback also failed: %v", err, rerr))
		}
		return compensate(fmt.Errorf("failed to create index: %w", err))
	}

	return nil
}
