package db

// LimitOp yields at most a fixed number of its child's tuples.
type LimitOp struct {
	child     Operator
	limitTups Expr
}

// NewLimitOp constructs a limit operator. lim is evaluated once (against a
// nil tuple, so it must be a ConstExpr) to determine how many of child's
// tuples to pass through.
func NewLimitOp(lim Expr, child Operator) *LimitOp {
	return &LimitOp{child: child, limitTups: lim}
}

// Descriptor is unchanged from the child.
func (l *LimitOp) Descriptor() *TupleDesc {
	return l.child.Descriptor()
}

// Iterator passes through up to limit tuples from child, then returns nil.
func (l *LimitOp) Iterator(tid TransactionId) (func() (*Tuple, error), error) {
	cnt := int64(0)
	limit, err := l.limitTups.EvalExpr(nil)
	if err != nil {
		return nil, err
	}

	it, err := l.child.Iterator(tid)
	if err != nil {
		return nil, err
	}

	return func() (*Tuple, error) {
		if evalPred(limit, IntField{cnt}, OpEq) {
			return nil, nil
		}
		tup, err := it()
		if err != nil {
			return nil, err
		}
		if tup == nil {
			return nil, nil
		}
		cnt++
		return tup, nil
	}, nil
}
