package db

// DeleteOp deletes every tuple its child produces, routing each delete
// through the shared TxnCoordinator (which resolves each tuple's owning
// table from its recordID), and reports how many rows it deleted.
type DeleteOp struct {
	coord *TxnCoordinator
	child Operator
}

// NewDeleteOp constructs a delete operator that removes every record
// produced by child via coord.
func NewDeleteOp(coord *TxnCoordinator, child Operator) *DeleteOp {
	return &DeleteOp{coord: coord, child: child}
}

// Descriptor: a one-column "count" descriptor.
func (dop *DeleteOp) Descriptor() *TupleDesc {
	return &TupleDesc{Fields: []FieldType{{Fname: "count", Ftype: IntType}}}
}

// Iterator deletes every child tuple, then yields a single tuple with the
// count of rows deleted.
func (dop *DeleteOp) Iterator(tid TransactionId) (func() (*Tuple, error), error) {
	childIter, err := dop.child.Iterator(tid)
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
			if err := dop.coord.DeleteTuple(tid, t); err != nil {
				return nil, err
			}
			count++
		}
		return &Tuple{Desc: *dop.Descriptor(), Fields: []DBValue{IntField{int64(count)}}}, nil
	}, nil
}
