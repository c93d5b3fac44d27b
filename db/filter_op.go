package db

// Filter yields only the child tuples for which left <op> right holds.
type Filter struct {
	op    BoolOp
	left  Expr
	right Expr
	child Operator
}

// NewFilter constructs a filter operator evaluating left <op> right against
// every tuple child produces.
func NewFilter(left Expr, op BoolOp, right Expr, child Operator) (*Filter, error) {
	return &Filter{op: op, left: left, right: right, child: child}, nil
}

// Descriptor is unchanged from the child, since filtering drops rows, not
// columns.
func (f *Filter) Descriptor() *TupleDesc {
	return f.child.Descriptor()
}

// Iterator pulls from the child, returning only tuples whose predicate
// evaluates true.
func (f *Filter) Iterator(tid TransactionId) (func() (*Tuple, error), error) {
	childItr, err := f.child.Iterator(tid)
	if err != nil {
		return nil, err
	}
	return func() (*Tuple, error) {
		for {
			tuple, err := childItr()
			if err != nil {
				return nil, err
			} else if tuple == nil {
				return nil, nil
			}

			leftVal, err := f.left.EvalExpr(tuple)
			if err != nil {
				return nil, err
			}

			rightVal, err := f.right.EvalExpr(tuple)
			if err != nil {
				return nil, err
			}

			if evalPred(leftVal, rightVal, f.op) {
				return tuple, nil
			}
		}
	}, nil
}
