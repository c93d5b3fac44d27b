package db

import (
	"path/filepath"
	"testing"
)

func newTestTable(t *testing.T) (*TxnCoordinator, TableId) {
	t.Helper()
	dir := t.TempDir()
	catalog := NewCatalog("", nil, dir)
	cache := NewPageCache(16, catalog, nil)
	locks := NewLockTable()
	coord := NewTxnCoordinator(cache, locks, catalog)

	td := &TupleDesc{Fields: []FieldType{
		{Fname: "id", Ftype: IntType},
		{Fname: "name", Ftype: StringType},
	}}
	hf, err := NewHeapFile(filepath.Join(dir, "t.dat"), td, coord)
	if err != nil {
		t.Fatalf("NewHeapFile: %v", err)
	}
	id := catalog.Register("t", hf)
	return coord, id
}

func scanAll(t *testing.T, coord *TxnCoordinator, table TableId) []*Tuple {
	t.Helper()
	file, err := coord.Catalog().FileFor(table)
	if err != nil {
		t.Fatalf("FileFor: %v", err)
	}
	tid := NewTransactionId()
	it, err := file.Iterator(tid)
	if err != nil {
		t.Fatalf("Iterator: %v", err)
	}
	var out []*Tuple
	for {
		tup, err := it()
		if err != nil {
			t.Fatalf("iterate: %v", err)
		}
		if tup == nil {
			break
		}
		out = append(out, tup)
	}
	if err := coord.CommitTransaction(tid); err != nil {
		t.Fatalf("commit scan txn: %v", err)
	}
	return out
}

func TestTxnCoordinatorInsertCommitIsVisible(t *testing.T) {
	coord, table := newTestTable(t)
	td := &TupleDesc{Fields: []FieldType{{Fname: "id", Ftype: IntType}, {Fname: "name", Ftype: StringType}}}

	tid := NewTransactionId()
	tup := &Tuple{Desc: *td, Fields: []DBValue{IntField{1}, StringField{"alice"}}}
	if err := coord.InsertTuple(tid, table, tup); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := coord.CommitTransaction(tid); err != nil {
		t.Fatalf("commit: %v", err)
	}

	rows := scanAll(t, coord, table)
	if len(rows) != 1 {
		t.Fatalf("expected 1 row after commit, got %d", len(rows))
	}
	if rows[0].Fields[0].(IntField).Value != 1 {
		t.Fatalf("unexpected row contents: %+v", rows[0])
	}
}

func TestTxnCoordinatorAbortRollsBack(t *testing.T) {
	coord, table := newTestTable(t)
	td := &TupleDesc{Fields: []FieldType{{Fname: "id", Ftype: IntType}, {Fname: "name", Ftype: StringType}}}

	tid := NewTransactionId()
	tup := &Tuple{Desc: *td, Fields: []DBValue{IntField{2}, StringField{"bob"}}}
	if err := coord.InsertTuple(tid, table, tup); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := coord.AbortTransaction(tid); err != nil {
		t.Fatalf("abort: %v", err)
	}

	rows := scanAll(t, coord, table)
	if len(rows) != 0 {
		t.Fatalf("expected 0 rows after abort, got %d", len(rows))
	}
}

func TestTxnCoordinatorCommitAndAbortAreIdempotent(t *testing.T) {
	coord, table := newTestTable(t)
	td := &TupleDesc{Fields: []FieldType{{Fname: "id", Ftype: IntType}, {Fname: "name", Ftype: StringType}}}

	tid := NewTransactionId()
	tup := &Tuple{Desc: *td, Fields: []DBValue{IntField{3}, StringField{"carol"}}}
	if err := coord.InsertTuple(tid, table, tup); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := coord.CommitTransaction(tid); err != nil {
		t.Fatalf("first commit: %v", err)
	}
	if err := coord.CommitTransaction(tid); err != nil {
		t.Fatalf("second commit should be a no-op, got error: %v", err)
	}
	if err := coord.AbortTransaction(tid); err != nil {
		t.Fatalf("abort after commit should be a no-op, got error: %v", err)
	}

	rows := scanAll(t, coord, table)
	if len(rows) != 1 {
		t.Fatalf("expected the committed row to survive a no-op abort, got %d rows", len(rows))
	}
}

func TestTxnCoordinatorDeleteTuple(t *testing.T) {
	coord, table := newTestTable(t)
	td := &TupleDesc{Fields: []FieldType{{Fname: "id", Ftype: IntType}, {Fname: "name", Ftype: StringType}}}

	tid := NewTransactionId()
	tup := &Tuple{Desc: *td, Fields: []DBValue{IntField{4}, StringField{"dan"}}}
	if err := coord.InsertTuple(tid, table, tup); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := coord.CommitTransaction(tid); err != nil {
		t.Fatalf("commit insert: %v", err)
	}

	rows := scanAll(t, coord, table)
	if len(rows) != 1 {
		t.Fatalf("expected 1 row before delete, got %d", len(rows))
	}

	tid2 := NewTransactionId()
	if err := coord.DeleteTuple(tid2, rows[0]); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := coord.CommitTransaction(tid2); err != nil {
		t.Fatalf("commit delete: %v", err)
	}

	rows = scanAll(t, coord, table)
	if len(rows) != 0 {
		t.Fatalf("expected 0 rows after delete, got %d", len(rows))
	}
}
