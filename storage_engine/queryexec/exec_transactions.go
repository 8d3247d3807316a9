package queryexec

import (
	txn "daemonstore/storage_engine/transaction_manager"
	"daemonstore/types"
	"fmt"
)

// LogTransactionBegin writes an OpTxnBegin record to the WAL.
func (e *Engine) LogTransactionBegin(txnID uint64) error {
	_, err := e.WalManager.AppendOperation(&types.Operation{Type: types.OpTxnBegin, TxnID: txnID})
	return err
}

// LogTransactionCommit writes an OpTxnCommit record to the WAL.
func (e *Engine) LogTransactionCommit(txnID uint64) error {
	_, err := e.WalManager.AppendOperation(&types.Operation{Type: types.OpTxnCommit, TxnID: txnID})
	return err
}

// LogTransactionAbort writes an OpTxnAbort record to the WAL and syncs it
// immediately, since recovery needs to know a transaction aborted even if
// the process dies right after.
func (e *Engine) LogTransactionAbort(txnID uint64) error {
	if _, err := e.WalManager.AppendOperation(&types.Operation{Type: types.OpTxnAbort, TxnID: txnID}); err != nil {
		return fmt.Errorf("failed to log transaction abort: %w", err)
	}
	return e.WalManager.Sync()
}

// BeginTransaction starts a new transaction and records its WAL boundary.
func (e *Engine) BeginTransaction() (*txn.Transaction, error) {
	t := e.TxnManager.Begin()
	if err := e.LogTransactionBegin(t.ID); err != nil {
		return nil, fmt.Errorf("failed to log transaction begin: %w", err)
	}
	return t, nil
}

// CommitTransaction syncs the WAL up through the commit record, flushes the
// buffer pool (now safe since FlushedLSN covers every page the transaction
// touched), saves a checkpoint, and marks the transaction committed.
func (e *Engine) CommitTransaction(txnID uint64) error {
	if err := e.LogTransactionCommit(txnID); err != nil {
		return fmt.Errorf("failed to log transaction commit: %w", err)
	}
	if err := e.WalManager.Sync(); err != nil {
		return fmt.Errorf("wal sync failed: %w", err)
	}
	if err := e.BufferPool.FlushAllPages(); err != nil {
		return fmt.Errorf("buffer pool flush failed after commit: %w", err)
	}
	tableCount := len(e.CatalogManager.GetAllTableMappings())
	if err := e.CheckpointManager.SaveCheckpoint(e.WalManager.GetFlushedLSN(), e.currDb, tableCount); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return e.TxnManager.Commit(txnID)
}

// AbortTransaction undoes every row the transaction inserted (in reverse
// order) and marks it aborted. Updates aren't undone here: nothing in this
// engine calls Transaction.RecordUpdate yet, so UpdatedRows is always empty.
func (e *Engine) AbortTransaction(t *txn.Transaction) error {
	if t == nil {
		return fmt.Errorf("AbortTransaction: nil transaction")
	}
	if err := e.LogTransactionAbort(t.ID); err != nil {
		return err
	}

	abortLSN := e.WalManager.GetFlushedLSN()

	for i := len(t.InsertedRows) - 1; i >= 0; i-- {
		ins := t.InsertedRows[i]
		rp := ins.RowPtr

		if err := e.HeapManager.DeleteRow(&rp, abortLSN); err != nil {
			return fmt.Errorf("rollback: delete inserted row failed (table=%s page=%d slot=%d): %w",
				ins.Table, rp.PageNumber, rp.SlotIndex, err)
		}

		indexFileID, err := e.CatalogManager.GetIndexFileID(ins.Table)
		if err != nil {
			return fmt.Errorf("rollback: index file lookup failed (table=%s): %w", ins.Table, err)
		}
		idx, err := e.IndexManager.GetOrCreateIndex(ins.Table, indexFileID)
		if err != nil {
			return fmt.Errorf("rollback: index open failed (table=%s): %w", ins.Table, err)
		}
		key, ok := primaryKeyAsInt32(ins.PrimaryKey)
		if ok {
			if _, err := idx.Remove(key, packRowPointer(rp)); err != nil {
				return fmt.Errorf("rollback: index remove failed (table=%s): %w", ins.Table, err)
			}
		}
	}

	if err := e.BufferPool.FlushAllPages(); err != nil {
		return fmt.Errorf("buffer pool flush failed after abort: %w", err)
	}

	return e.TxnManager.Abort(t.ID)
}
