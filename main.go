// Command daemonstore is a line-oriented REPL over the storage engine.
// It has no SQL parser (out of scope); each line is a small fixed-grammar
// command that drives queryexec.Engine directly.
//
//	use <db>
//	createtable <table> <col:TYPE[:pk]> ...
//	insert <table> <v1> <v2> ...
//	select <table> [col=value]
//	exit
package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strings"

	"daemonstore/storage_engine/queryexec"
	"daemonstore/types"
)

const bufferPoolCapacity = 64

func main() {
	engine, err := queryexec.NewEngine("databases", bufferPoolCapacity)
	if err != nil {
		log.Fatalf("failed to start engine: %v", err)
	}
	defer engine.Close()

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("daemonstore REPL. Commands: use, createtable, insert, select, exit")

	for {
		fmt.Print("db> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.EqualFold(line, "exit") {
			break
		}

		if err := dispatch(engine, line); err != nil {
			fmt.Printf("error: %v\n", err)
		}
	}
}

func dispatch(engine *queryexec.Engine, line string) error {
	fields := strings.Fields(line)
	cmd := strings.ToLower(fields[0])
	args := fields[1:]

	switch cmd {
	case "use":
		return cmdUse(engine, args)
	case "createtable":
		return cmdCreateTable(engine, args)
	case "insert":
		return cmdInsert(engine, args)
	case "select":
		return cmdSelect(engine, args)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func cmdUse(engine *queryexec.Engine, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: use <db>")
	}
	return engine.UseDatabase(args[0])
}

// cmdCreateTable parses `createtable <table> <col:TYPE[:pk]> ...`.
func cmdCreateTable(engine *queryexec.Engine, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: createtable <table> <col:TYPE[:pk]> ...")
	}

	schema := types.TableSchema{TableName: args[0]}
	for _, spec := range args[1:] {
		parts := strings.Split(spec, ":")
		if len(parts) < 2 {
			return fmt.Errorf("bad column spec %q, want name:TYPE[:pk]", spec)
		}
		col := types.ColumnDef{Name: parts[0], Type: strings.ToUpper(parts[1])}
		if len(parts) == 3 && parts[2] == "pk" {
			col.IsPrimaryKey = true
		}
		schema.Columns = append(schema.Columns, col)
	}

	return engine.CreateTable(schema)
}

func cmdInsert(engine *queryexec.Engine, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: insert <table> <v1> <v2> ...")
	}
	table := args[0]

	schema, err := engine.CatalogManager.GetTableSchema(table)
	if err != nil {
		return err
	}
	values, err := coerceValues(schema, args[1:])
	if err != nil {
		return err
	}

	transaction, err := engine.BeginTransaction()
	if err != nil {
		return err
	}

	ex := queryexec.NewInsertExecutor(engine, table, [][]any{values})
	n, err := ex.Execute(transaction)
	if err != nil {
		if aerr := engine.AbortTransaction(transaction); aerr != nil {
			return fmt.Errorf("%w (rollback also failed: %v)", err, aerr)
		}
		return err
	}
	if err := engine.CommitTransaction(transaction.ID); err != nil {
		return err
	}

	fmt.Printf("inserted %d row(s)\n", n)
	return nil
}

func cmdSelect(engine *queryexec.Engine, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: select <table> [col=value]")
	}
	table := args[0]

	var predicate *queryexec.Predicate
	if len(args) == 2 {
		kv := strings.SplitN(args[1], "=", 2)
		if len(kv) != 2 {
			return fmt.Errorf("bad filter %q, want col=value", args[1])
		}
		predicate = &queryexec.Predicate{Column: kv[0], Value: kv[1]}
	}

	rows, cols, err := engine.Select(table, predicate)
	if err != nil {
		return err
	}

	fmt.Println(strings.Join(cols, "\t"))
	for _, row := range rows {
		vals := make([]string, len(cols))
		for i, c := range cols {
			vals[i] = fmt.Sprintf("%v", row[c])
		}
		fmt.Println(strings.Join(vals, "\t"))
	}
	fmt.Printf("(%d row(s))\n", len(rows))
	return nil
}

func coerceValues(schema types.TableSchema, raw []string) ([]any, error) {
	if len(raw) != len(schema.Columns) {
		return nil, fmt.Errorf("expected %d values, got %d", len(schema.Columns), len(raw))
	}
	values := make([]any, len(raw))
	for i := range raw {
		values[i] = raw[i] // queryexec.ValueToBytes coerces strings per column type
	}
	return values, nil
}
