// Command pagebase is an interactive shell over the db package: a small
// relational engine built around a transactional page cache with
// two-phase locking and deadlock detection.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/xwb1989/sqlparser"

	"github.com/pagebase/pagebase/db"
)

func main() {
	dataDir := flag.String("dir", ".", "directory holding table files and the catalog")
	catalogFile := flag.String("catalog", "catalog.txt", "catalog description file, relative to -dir")
	logFile := flag.String("log", "pagebase.log", "write-ahead log file, relative to -dir")
	capacity := flag.Int("cache-pages", 64, "number of pages the cache may hold resident")
	flag.Parse()

	catalog := db.NewCatalog(*catalogFile, nil, *dataDir)
	cache := db.NewPageCache(*capacity, catalog, nil)
	locks := db.NewLockTable()
	coord := db.NewTxnCoordinator(cache, locks, catalog)

	lf, err := db.NewLogFile(joinPath(*dataDir, *logFile), catalog)
	if err != nil {
		fmt.Fprintln(os.Stderr, "pagebase: opening log file:", err)
		os.Exit(1)
	}
	cache.SetLogWriter(lf)

	// catalog needs coord for any tables it parses from disk, but coord
	// needs catalog to exist first; wire it in now that both halves exist,
	// rather than constructing a second Catalog that cache/coord never see.
	catalog.SetCoordinator(coord)

	if err := db.Recover(lf, cache); err != nil {
		fmt.Fprintln(os.Stderr, "pagebase: recovery failed:", err)
		os.Exit(1)
	}
	if err := catalog.ParseCatalogFile(); err != nil {
		fmt.Fprintln(os.Stderr, "pagebase: loading catalog:", err)
		os.Exit(1)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "pagebase> ",
		HistoryFile:     joinPath(*dataDir, ".pagebase_history"),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "pagebase: readline:", err)
		os.Exit(1)
	}
	defer rl.Close()

	shell := &shell{coord: coord, catalog: catalog}

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, "pagebase:", err)
			return
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == ".quit" || line == ".exit" {
			return
		}

		if err := shell.run(line); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
	}
}

func joinPath(dir, name string) string {
	if dir == "" || dir == "." {
		return name
	}
	return dir + string(os.PathSeparator) + name
}

// shell evaluates one SQL statement at a time against catalog/coord,
// printing its result set (or row count) to stdout.
type shell struct {
	coord   *db.TxnCoordinator
	catalog *db.Catalog
}

func (s *shell) run(sql string) error {
	stmt, err := sqlparser.Parse(sql)
	if err != nil {
		return fmt.Errorf("parse error: %w", err)
	}

	tid := db.NewTransactionId()

	var runErr error
	switch st := stmt.(type) {
	case *sqlparser.Select:
		runErr = s.runSelect(tid, st)
	case *sqlparser.Insert:
		runErr = s.runInsert(tid, st)
	case *sqlparser.Delete:
		runErr = s.runDelete(tid, st)
	default:
		runErr = fmt.Errorf("unsupported statement: %T", stmt)
	}

	if runErr != nil {
		s.coord.AbortTransaction(tid)
		return runErr
	}
	return s.coord.CommitTransaction(tid)
}

func (s *shell) runSelect(tid db.TransactionId, sel *sqlparser.Select) error {
	if len(sel.From) != 1 {
		return fmt.Errorf("only single-table SELECT is supported")
	}
	aliased, ok := sel.From[0].(*sqlparser.AliasedTableExpr)
	if !ok {
		return fmt.Errorf("unsupported FROM clause")
	}
	tableName, ok := aliased.Expr.(sqlparser.TableName)
	if !ok {
		return fmt.Errorf("unsupported FROM clause")
	}
	table, err := s.catalog.TableNamed(tableName.Name.String())
	if err != nil {
		return err
	}
	file, err := s.catalog.FileFor(table)
	if err != nil {
		return err
	}

	var op db.Operator = &tableScan{tid: tid, file: file}

	if sel.Where != nil {
		filtered, err := applyWhere(op, sel.Where.Expr)
		if err != nil {
			return err
		}
		op = filtered
	}

	if sel.Limit != nil && sel.Limit.Rowcount != nil {
		n, err := exprToInt(sel.Limit.Rowcount)
		if err != nil {
			return err
		}
		op = db.NewLimitOp(db.NewConstExpr(db.IntField{Value: n}, db.IntType), op)
	}

	it, err := op.Iterator(tid)
	if err != nil {
		return err
	}
	return printTuples(op.Descriptor(), it)
}

func (s *shell) runInsert(tid db.TransactionId, ins *sqlparser.Insert) error {
	table, err := s.catalog.TableNamed(ins.Table.Name.String())
	if err != nil {
		return err
	}
	file, err := s.catalog.FileFor(table)
	if err != nil {
		return err
	}
	rows, ok := ins.Rows.(sqlparser.Values)
	if !ok {
		return fmt.Errorf("only VALUES inserts are supported")
	}
	desc := file.Descriptor()
	count := 0
	for _, row := range rows {
		if len(row) != len(desc.Fields) {
			return fmt.Errorf("expected %d values, got %d", len(desc.Fields), len(row))
		}
		fields := make([]db.DBValue, len(row))
		for i, expr := range row {
			v, err := literalToDBValue(expr, desc.Fields[i].Ftype)
			if err != nil {
				return err
			}
			fields[i] = v
		}
		t := &db.Tuple{Desc: *desc, Fields: fields}
		if err := s.coord.InsertTuple(tid, table, t); err != nil {
			return err
		}
		count++
	}
	fmt.Printf("inserted %d row(s)\n", count)
	return nil
}

func (s *shell) runDelete(tid db.TransactionId, del *sqlparser.Delete) error {
	if len(del.TableExprs) != 1 {
		return fmt.Errorf("only single-table DELETE is supported")
	}
	aliased, ok := del.TableExprs[0].(*sqlparser.AliasedTableExpr)
	if !ok {
		return fmt.Errorf("unsupported table expression")
	}
	tableName, ok := aliased.Expr.(sqlparser.TableName)
	if !ok {
		return fmt.Errorf("unsupported table expression")
	}
	table, err := s.catalog.TableNamed(tableName.Name.String())
	if err != nil {
		return err
	}
	file, err := s.catalog.FileFor(table)
	if err != nil {
		return err
	}

	var op db.Operator = &tableScan{tid: tid, file: file}
	if del.Where != nil {
		filtered, err := applyWhere(op, del.Where.Expr)
		if err != nil {
			return err
		}
		op = filtered
	}

	it, err := op.Iterator(tid)
	if err != nil {
		return err
	}
	count := 0
	for {
		t, err := it()
		if err != nil {
			return err
		}
		if t == nil {
			break
		}
		if err := s.coord.DeleteTuple(tid, t); err != nil {
			return err
		}
		count++
	}
	fmt.Printf("deleted %d row(s)\n", count)
	return nil
}

// tableScan adapts a TableFile's Iterator into db.Operator.
type tableScan struct {
	tid  db.TransactionId
	file db.TableFile
}

func (t *tableScan) Descriptor() *db.TupleDesc { return t.file.Descriptor() }

func (t *tableScan) Iterator(tid db.TransactionId) (func() (*db.Tuple, error), error) {
	return t.file.Iterator(tid)
}

// applyWhere translates a single top-level comparison "column op literal"
// into a Filter over child. Compound WHERE clauses (AND/OR) are a known
// limitation of this shell, not of the db package.
func applyWhere(child db.Operator, where sqlparser.Expr) (db.Operator, error) {
	cmp, ok := where.(*sqlparser.ComparisonExpr)
	if !ok {
		return nil, fmt.Errorf("only simple comparisons are supported in WHERE")
	}
	col, ok := cmp.Left.(*sqlparser.ColName)
	if !ok {
		return nil, fmt.Errorf("WHERE left-hand side must be a column")
	}
	idx, err := child.Descriptor().FieldNamed(col.Name.String())
	if err != nil {
		return nil, err
	}
	ft := child.Descriptor().Fields[idx]

	val, err := literalToDBValue(cmp.Right, ft.Ftype)
	if err != nil {
		return nil, err
	}
	op, err := comparisonOp(cmp.Operator)
	if err != nil {
		return nil, err
	}

	return db.NewFilter(db.NewFieldExpr(ft), op, db.NewConstExpr(val, ft.Ftype), child)
}

func comparisonOp(op string) (db.BoolOp, error) {
	switch op {
	case sqlparser.EqualStr:
		return db.OpEq, nil
	case sqlparser.NotEqualStr:
		return db.OpNeq, nil
	case sqlparser.LessThanStr:
		return db.OpLt, nil
	case sqlparser.LessEqualStr:
		return db.OpLe, nil
	case sqlparser.GreaterThanStr:
		return db.OpGt, nil
	case sqlparser.GreaterEqualStr:
		return db.OpGe, nil
	default:
		return 0, fmt.Errorf("unsupported comparison operator %q", op)
	}
}

func literalToDBValue(expr sqlparser.Expr, ftype db.DBType) (db.DBValue, error) {
	val, ok := expr.(*sqlparser.SQLVal)
	if !ok {
		return nil, fmt.Errorf("expected a literal value")
	}
	switch ftype {
	case db.IntType:
		n, err := strconv.ParseInt(string(val.Val), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("expected an integer literal: %w", err)
		}
		return db.IntField{Value: n}, nil
	case db.StringType:
		return db.StringField{Value: string(val.Val)}, nil
	default:
		return nil, fmt.Errorf("unsupported field type")
	}
}

func exprToInt(expr sqlparser.Expr) (int64, error) {
	val, ok := expr.(*sqlparser.SQLVal)
	if !ok {
		return 0, fmt.Errorf("expected an integer literal")
	}
	return strconv.ParseInt(string(val.Val), 10, 64)
}

func printTuples(desc *db.TupleDesc, it func() (*db.Tuple, error)) error {
	names := make([]string, len(desc.Fields))
	for i, f := range desc.Fields {
		names[i] = f.Fname
	}
	fmt.Println(strings.Join(names, "\t"))

	count := 0
	for {
		t, err := it()
		if err != nil {
			return err
		}
		if t == nil {
			break
		}
		cells := make([]string, len(t.Fields))
		for i, f := range t.Fields {
			switch v := f.(type) {
			case db.IntField:
				cells[i] = strconv.FormatInt(v.Value, 10)
			case db.StringField:
				cells[i] = v.Value
			}
		}
		fmt.Println(strings.Join(cells, "\t"))
		count++
	}
	fmt.Printf("(%d row(s))\n", count)
	return nil
}
