package queryexec

import (
	"daemonstore/types"
	"fmt"
	"strings"
)

// Predicate is an equality filter on a single column, the only shape the
// sequential scan executor needs to support per spec.md §6 ("applying an
// optional predicate").
type Predicate struct {
	Column string
	Value  string
}

func (p *Predicate) matches(schema types.TableSchema, values []any) (bool, error) {
	if p == nil {
		return true, nil
	}
	for i, col := range schema.Columns {
		if !strings.EqualFold(col.Name, p.Column) {
			continue
		}
		return fmt.Sprintf("%v", values[i]) == p.Value, nil
	}
	return false, fmt.Errorf("column '%s' not found in table '%s'", p.Column, schema.TableName)
}

// SeqScanExecutor is a table iterator over heap pages: GetAllRowPointers
// gives the full row-pointer list up front (the heap file keeps no separate
// free-space map to iterate lazily against), and Next deserializes and
// filters one row at a time.
type SeqScanExecutor struct {
	engine    *Engine
	schema    types.TableSchema
	predicate *Predicate
	rowPtrs   []types.RowPointer
	pos       int
}

// NewSeqScanExecutor initializes a table iterator over tableName.
func NewSeqScanExecutor(engine *Engine, tableName string, predicate *Predicate) (*SeqScanExecutor, error) {
	schema, err := engine.CatalogManager.GetTableSchema(tableName)
	if err != nil {
		return nil, fmt.Errorf("table '%s' not found: %w", tableName, err)
	}
	hf, err := engine.HeapManager.GetHeapFileByTable(tableName)
	if err != nil {
		return nil, fmt.Errorf("heap file not found: %w", err)
	}

	return &SeqScanExecutor{
		engine:    engine,
		schema:    schema,
		predicate: predicate,
		rowPtrs:   hf.GetAllRowPointers(),
	}, nil
}

// Next returns the next row (as a column-name -> value map) satisfying the
// predicate, or ok=false once the scan is exhausted. Rows that fail to
// deserialize (e.g. a tombstoned slot a concurrent delete raced with) are
// skipped rather than surfaced as errors.
func (s *SeqScanExecutor) Next() (map[string]interface{}, bool, error) {
	for s.pos < len(s.rowPtrs) {
		rp := s.rowPtrs[s.pos]
		s.pos++

		rawRow, err := s.engine.HeapManager.GetRow(&rp)
		if err != nil {
			continue
		}
		values, err := DeserializeRow(rawRow, s.schema.Columns)
		if err != nil {
			continue
		}

		ok, err := s.predicate.matches(s.schema, values)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			continue
		}

		row := make(map[string]interface{}, len(s.schema.Columns))
		for i, col := range s.schema.Columns {
			row[col.Name] = values[i]
		}
		return row, true, nil
	}
	return nil, false, nil
}

// Columns returns the ordered column names of the scanned table.
func (s *SeqScanExecutor) Columns() []string {
	cols := make([]string, len(s.schema.Columns))
	for i, col := range s.schema.Columns {
		cols[i] = col.Name
	}
	return cols
}

// Select runs a full sequential scan (or, when predicate filters on the
// primary key column, a point lookup through the hash index instead) and
// collects every matching row.
func (e *Engine) Select(tableName string, predicate *Predicate) ([]map[string]interface{}, []string, error) {
	if predicate != nil {
		if row, cols, ok, err := e.selectByPrimaryKey(tableName, predicate); err != nil {
			return nil, nil, err
		} else if ok {
			if row == nil {
				return []map[string]interface{}{}, cols, nil
			}
			return []map[string]interface{}{row}, cols, nil
		}
	}

	scan, err := NewSeqScanExecutor(e, tableName, predicate)
	if err != nil {
		return nil, nil, err
	}

	var rows []map[string]interface{}
	for {
		row, ok, err := scan.Next()
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			break
		}
		rows = append(rows, row)
	}
	if rows == nil {
		rows = []map[string]interface{}{}
	}
	return rows, scan.Columns(), nil
}

// selectByPrimaryKey attempts an index point lookup when predicate targets
// the table's primary key column. ok reports whether the index path applied
// at all (false means the caller should fall back to a sequential scan).
func (e *Engine) selectByPrimaryKey(tableName string, predicate *Predicate) (map[string]interface{}, []string, bool, error) {
	schema, err := e.CatalogManager.GetTableSchema(tableName)
	if err != nil {
		return nil, nil, false, fmt.Errorf("table '%s' not found: %w", tableName, err)
	}

	cols := make([]string, len(schema.Columns))
	var pkCol *types.ColumnDef
	for i, col := range schema.Columns {
		cols[i] = col.Name
		if strings.EqualFold(col.Name, predicate.Column) && col.IsPrimaryKey {
			c := col
			pkCol = &c
		}
	}
	if pkCol == nil {
		return nil, cols, false, nil
	}

	keyBytes, err := ValueToBytes(predicate.Value, pkCol.Type)
	if err != nil {
		return nil, cols, false, fmt.Errorf("failed to encode lookup value: %w", err)
	}
	key, ok := primaryKeyAsInt32(keyBytes)
	if !ok {
		return nil, cols, false, nil
	}

	indexFileID, err := e.CatalogManager.GetIndexFileID(tableName)
	if err != nil {
		return nil, cols, false, fmt.Errorf("failed to resolve index for '%s': %w", tableName, err)
	}
	idx, err := e.IndexManager.GetOrCreateIndex(tableName, indexFileID)
	if err != nil {
		return nil, cols, false, fmt.Errorf("failed to get index for '%s': %w", tableName, err)
	}

	matches, err := idx.Get(key)
	if err != nil {
		return nil, cols, true, fmt.Errorf("index lookup failed: %w", err)
	}
	if len(matches) == 0 {
		return nil, cols, true, nil
	}

	rp := unpackRowPointer(matches[0])
	rawRow, err := e.HeapManager.GetRow(&rp)
	if err != nil {
		return nil, cols, true, fmt.Errorf("failed to read row: %w", err)
	}
	values, err := DeserializeRow(rawRow, schema.Columns)
	if err != nil {
		return nil, cols, true, fmt.Errorf("failed to deserialize row: %w", err)
	}

	row := make(map[string]interface{}, len(schema.Columns))
	for i, col := range schema.Columns {
		row[col.Name] = values[i]
	}
	return row, cols, true, nil
}
