package queryexec

import (
	"daemonstore/types"
	"testing"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := NewEngine(t.TempDir(), 16)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	t.Cleanup(func() { engine.Close() })

	if err := engine.UseDatabase("testdb"); err != nil {
		t.Fatalf("UseDatabase: %v", err)
	}
	return engine
}

func studentsSchema() types.TableSchema {
	return types.TableSchema{
		TableName: "students",
		Columns: []types.ColumnDef{
			{Name: "id", Type: "INT", IsPrimaryKey: true},
			{Name: "name", Type: "VARCHAR"},
			{Name: "age", Type: "INT"},
		},
	}
}

func TestCreateTableThenInsertAndScan(t *testing.T) {
	engine := newTestEngine(t)

	if err := engine.CreateTable(studentsSchema()); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}

	rows := [][]any{
		{int32(1), "Alice", int32(20)},
		{int32(2), "Bob", int32(21)},
		{int32(3), "Carol", int32(19)},
	}
	ex := NewInsertExecutor(engine, "students", rows)
	n, err := ex.Execute(nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if n != 3 {
		t.Fatalf("inserted %d rows, want 3", n)
	}

	got, cols, err := engine.Select("students", nil)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("scanned %d rows, want 3", len(got))
	}
	wantCols := []string{"id", "name", "age"}
	for i, c := range wantCols {
		if cols[i] != c {
			t.Fatalf("cols[%d] = %s, want %s", i, cols[i], c)
		}
	}
}

func TestSelectByPrimaryKeyUsesIndex(t *testing.T) {
	engine := newTestEngine(t)
	if err := engine.CreateTable(studentsSchema()); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}

	ex := NewInsertExecutor(engine, "students", [][]any{
		{int32(1), "Alice", int32(20)},
		{int32(2), "Bob", int32(21)},
	})
	if _, err := ex.Execute(nil); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	rows, _, err := engine.Select("students", &Predicate{Column: "id", Value: "2"})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if rows[0]["name"] != "Bob" {
		t.Fatalf("got name %v, want Bob", rows[0]["name"])
	}

	miss, _, err := engine.Select("students", &Predicate{Column: "id", Value: "999"})
	if err != nil {
		t.Fatalf("Select miss: %v", err)
	}
	if len(miss) != 0 {
		t.Fatalf("got %d rows for missing key, want 0", len(miss))
	}
}

func TestSelectWithNonPKPredicateFullScans(t *testing.T) {
	engine := newTestEngine(t)
	if err := engine.CreateTable(studentsSchema()); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	ex := NewInsertExecutor(engine, "students", [][]any{
		{int32(1), "Alice", int32(20)},
		{int32(2), "Bob", int32(20)},
		{int32(3), "Carol", int32(19)},
	})
	if _, err := ex.Execute(nil); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	rows, _, err := engine.Select("students", &Predicate{Column: "age", Value: "20"})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
}

func TestInsertRejectsColumnCountMismatch(t *testing.T) {
	engine := newTestEngine(t)
	if err := engine.CreateTable(studentsSchema()); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}

	err := engine.InsertRow(nil, "students", []any{int32(1), "Alice"})
	if err == nil {
		t.Fatalf("expected column count mismatch error")
	}
}

func TestForeignKeyViolationIsRejected(t *testing.T) {
	engine := newTestEngine(t)
	if err := engine.CreateTable(studentsSchema()); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}

	enrollments := types.TableSchema{
		TableName: "enrollments",
		Columns: []types.ColumnDef{
			{Name: "id", Type: "INT", IsPrimaryKey: true},
			{Name: "student_id", Type: "INT"},
		},
		ForeignKeys: []types.ForeignKeyDef{
			{Column: "student_id", RefTable: "students", RefColumn: "id"},
		},
	}
	if err := engine.CreateTable(enrollments); err != nil {
		t.Fatalf("CreateTable(enrollments): %v", err)
	}

	err := engine.InsertRow(nil, "enrollments", []any{int32(1), int32(42)})
	if err == nil {
		t.Fatalf("expected foreign key violation")
	}

	if err := engine.InsertRow(nil, "students", []any{int32(42), "Dana", int32(22)}); err != nil {
		t.Fatalf("InsertRow(students): %v", err)
	}
	if err := engine.InsertRow(nil, "enrollments", []any{int32(1), int32(42)}); err != nil {
		t.Fatalf("InsertRow(enrollments) after parent exists: %v", err)
	}
}

func TestCommittedTransactionSurvivesAndCheckpoints(t *testing.T) {
	engine := newTestEngine(t)
	if err := engine.CreateTable(studentsSchema()); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}

	transaction, err := engine.BeginTransaction()
	if err != nil {
		t.Fatalf("BeginTransaction: %v", err)
	}
	ex := NewInsertExecutor(engine, "students", [][]any{{int32(1), "Alice", int32(20)}})
	if _, err := ex.Execute(transaction); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if err := engine.CommitTransaction(transaction.ID); err != nil {
		t.Fatalf("CommitTransaction: %v", err)
	}

	checkpoint, err := engine.CheckpointManager.LoadCheckpoint()
	if err != nil {
		t.Fatalf("LoadCheckpoint: %v", err)
	}
	if checkpoint.LSN == 0 {
		t.Fatalf("checkpoint LSN = 0, want a positive LSN after commit")
	}

	rows, _, err := engine.Select("students", &Predicate{Column: "id", Value: "1"})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows after commit, want 1", len(rows))
	}
}

func TestAbortedTransactionRollsBackInsert(t *testing.T) {
	engine := newTestEngine(t)
	if err := engine.CreateTable(studentsSchema()); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}

	transaction, err := engine.BeginTransaction()
	if err != nil {
		t.Fatalf("BeginTransaction: %v", err)
	}
	ex := NewInsertExecutor(engine, "students", [][]any{{int32(7), "Eve", int32(30)}})
	if _, err := ex.Execute(transaction); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if err := engine.AbortTransaction(transaction); err != nil {
		t.Fatalf("AbortTransaction: %v", err)
	}

	rows, _, err := engine.Select("students", &Predicate{Column: "id", Value: "7"})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("got %d rows after abort, want 0", len(rows))
	}
}
