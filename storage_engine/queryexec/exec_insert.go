package queryexec

import (
	txn "daemonstore/storage_engine/transaction_manager"
	"daemonstore/types"
	"fmt"
	"strings"
)

/*
During the Insert (the "append" phase): the serialized row is first appended
to the WAL — durable only once WalManager.Sync() has run, which is the
transaction's commit, not insert time — and then written into the buffer
pool (RAM) under that record's LSN and marked dirty. The index entry is added last, after the heap
write succeeds, so a failed index insert can still compensate by deleting
the row it would have pointed at.
*/

// TupleSource is the interface an InsertExecutor drains when its rows come
// from a query rather than a literal VALUES list (per spec.md's "insert
// executor ... drains a child executor").
type TupleSource interface {
	// Next returns the next row's values, or ok=false once exhausted.
	Next() ([]any, bool, error)
}

// InsertExecutor inserts into a single table, either from a literal slice of
// rows or from a TupleSource.
type InsertExecutor struct {
	engine *Engine
	table  string
	rows   [][]any
	child  TupleSource
}

// NewInsertExecutor builds an executor over a literal list of rows.
func NewInsertExecutor(engine *Engine, table string, rows [][]any) *InsertExecutor {
	return &InsertExecutor{engine: engine, table: table, rows: rows}
}

// NewInsertExecutorFromChild builds an executor that drains child for rows
// to insert, e.g. for an `INSERT INTO ... SELECT ...` style source.
func NewInsertExecutorFromChild(engine *Engine, table string, child TupleSource) *InsertExecutor {
	return &InsertExecutor{engine: engine, table: table, child: child}
}

// Execute inserts every row and returns the count actually written.
func (ex *InsertExecutor) Execute(transaction *txn.Transaction) (int, error) {
	n := 0
	for _, row := range ex.rows {
		if err := ex.engine.InsertRow(transaction, ex.table, row); err != nil {
			return n, err
		}
		n++
	}

	if ex.child != nil {
		for {
			row, ok, err := ex.child.Next()
			if err != nil {
				return n, err
			}
			if !ok {
				break
			}
			if err := ex.engine.InsertRow(transaction, ex.table, row); err != nil {
				return n, err
			}
			n++
		}
	}

	return n, nil
}

// InsertRow runs the schema-lookup → FK-check → serialize → WAL-append →
// heap-insert → index-insert pipeline over the clock-replacer buffer pool,
// indexing the row in a HashIndex keyed on the primary key packed into an
// int32 (ExtractPrimaryKey already narrows
// non-INT keys to a byte key; the hash index additionally requires that key
// fit in 4 bytes as a signed int32 — see primaryKeyAsInt32).
func (e *Engine) InsertRow(transaction *txn.Transaction, tableName string, values []any) error {
	schema, err := e.CatalogManager.GetTableSchema(tableName)
	if err != nil {
		return fmt.Errorf("table '%s' not found: %w", tableName, err)
	}
	if len(values) != len(schema.Columns) {
		return fmt.Errorf("column count mismatch: expected %d, got %d", len(schema.Columns), len(values))
	}

	for _, fk := range schema.ForeignKeys {
		if err := e.checkForeignKey(tableName, schema, fk, values); err != nil {
			return err
		}
	}

	row, err := SerializeRow(schema.Columns, values)
	if err != nil {
		return fmt.Errorf("failed to serialize row: %w", err)
	}

	var txnID uint64
	if transaction != nil {
		txnID = transaction.ID
	}

	lsn, err := e.WalManager.AppendOperation(&types.Operation{Type: types.OpInsert, TxnID: txnID, Table: tableName, RowData: row})
	if err != nil {
		return fmt.Errorf("wal append failed: %w", err)
	}

	heapFileID, err := e.CatalogManager.GetTableFileID(tableName)
	if err != nil {
		return fmt.Errorf("no heap file registered for table '%s': %w", tableName, err)
	}
	rowPtr, err := e.HeapManager.InsertRow(heapFileID, row, lsn)
	if err != nil {
		// A non-nil rowPtr here means the row was written but rejected as
		// unindexable (heapfile.MaxIndexablePageNumber) — compensate by
		// deleting it rather than leaving an orphan no index points at.
		if rowPtr != nil {
			_ = e.HeapManager.DeleteRow(rowPtr, lsn)
		}
		return fmt.Errorf("heap insert failed: %w", err)
	}

	primaryKeyBytes, _, err := ExtractPrimaryKey(schema, values, rowPtr)
	if err != nil {
		_ = e.HeapManager.DeleteRow(rowPtr, lsn)
		return fmt.Errorf("failed to extract primary key: %w", err)
	}

	indexFileID, err := e.CatalogManager.GetIndexFileID(tableName)
	if err != nil {
		_ = e.HeapManager.DeleteRow(rowPtr, lsn)
		return fmt.Errorf("failed to resolve index file for '%s': %w", tableName, err)
	}
	idx, err := e.IndexManager.GetOrCreateIndex(tableName, indexFileID)
	if err != nil {
		_ = e.HeapManager.DeleteRow(rowPtr, lsn)
		return fmt.Errorf("failed to get index for '%s': %w", tableName, err)
	}

	key, ok := primaryKeyAsInt32(primaryKeyBytes)
	if !ok {
		_ = e.HeapManager.DeleteRow(rowPtr, lsn)
		return fmt.Errorf("primary key for table '%s' is not a 4-byte key the hash index can store", tableName)
	}
	if _, err := idx.Insert(key, packRowPointer(*rowPtr)); err != nil {
		_ = e.HeapManager.DeleteRow(rowPtr, lsn)
		return fmt.Errorf("index insert failed: %w", err)
	}

	if transaction != nil {
		transaction.RecordInsert(tableName, *rowPtr, primaryKeyBytes)
	}

	return nil
}

func (e *Engine) checkForeignKey(tableName string, schema types.TableSchema, fk types.ForeignKeyDef, values []any) error {
	fkColIdx := -1
	var fkCol types.ColumnDef
	for i, col := range schema.Columns {
		if strings.EqualFold(col.Name, fk.Column) {
			fkColIdx = i
			fkCol = col
			break
		}
	}
	if fkColIdx == -1 {
		return fmt.Errorf("foreign key column '%s' not found in schema", fk.Column)
	}

	fkValueBytes, err := ValueToBytes(values[fkColIdx], fkCol.Type)
	if err != nil {
		return fmt.Errorf("failed to serialize FK value: %w", err)
	}
	fkKey, ok := primaryKeyAsInt32(fkValueBytes)
	if !ok {
		return fmt.Errorf("foreign key column '%s' is not an indexable 4-byte key", fk.Column)
	}

	refIndexFileID, err := e.CatalogManager.GetIndexFileID(fk.RefTable)
	if err != nil {
		return fmt.Errorf("referenced table '%s' not found: %w", fk.RefTable, err)
	}
	refIdx, err := e.IndexManager.GetOrCreateIndex(fk.RefTable, refIndexFileID)
	if err != nil {
		return fmt.Errorf("referenced table '%s' index not found: %w", fk.RefTable, err)
	}

	matches, err := refIdx.Get(fkKey)
	if err != nil {
		return fmt.Errorf("foreign key lookup failed: %w", err)
	}
	if len(matches) == 0 {
		return fmt.Errorf(
			"foreign key constraint violation: %s.%s -> %s.%s (value not found in parent)",
			tableName, fk.Column, fk.RefTable, fk.RefColumn,
		)
	}
	return nil
}
