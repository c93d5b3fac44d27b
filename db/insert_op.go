package db

// InsertOp inserts every tuple its child produces into insertTable,
// routing each insert through the shared TxnCoordinator, and reports how
// many rows it inserted.
type InsertOp struct {
	coord       *TxnCoordinator
	insertTable TableId
	child       Operator
}

// NewInsertOp constructs an insert operator that inserts the records
// produced by child into insertTable via coord.
func NewInsertOp(coord *TxnCoordinator, insertTable TableId, child Operator) *InsertOp {
	return &InsertOp{coord: coord, insertTable: insertTable, child: child}
}

// Descriptor: a one-column "count" descriptor.
func (i *InsertOp) Descriptor() *TupleDesc {
	return &TupleDesc{Fields: []FieldType{{Fname: "count", Ftype: IntType}}}
}

// Iterator inserts every child tuple, then yields a single tuple with the
// count of rows inserted.
func (iop *InsertOp) Iterator(tid TransactionId) (func() (*Tuple, error), error) {
	childIter, err := iop.child.Iterator(tid)
	if err != nil {
		return nil, err
	}

	done := false
	return func() (*Tuple, error) {
		if done {
			return nil, nil
		}
		done = true

		count := 0
		for {
			t, err := childIter()
			if err != nil {
				return nil, err
			}
			if t == nil {
				break
			}
			if err := iop.coord.InsertTuple(tid, iop.insertTable, t); err != nil {
				return nil, err
			}
			count++
		}
		return &Tuple{Desc: *iop.Descriptor(), Fields: []DBValue{IntField{int64(count)}}}, nil
	}, nil
}
