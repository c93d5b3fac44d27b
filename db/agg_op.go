package db

// AggregateOp groups its child's tuples by groupByFields (if any) and
// folds each group through one AggState per output column, yielding one
// result tuple per distinct group. With groupByFields empty, every child
// tuple falls in one group, so it yields a single tuple, or none when the
// child yields no tuples.
type AggregateOp struct {
	child       Operator
	groupBy     []Expr
	newAggState []AggState
}

// NewAggregatorOp constructs an aggregation operator. newAggState holds one
// already-Init'd AggState prototype per output aggregate column; it is
// Copy'd once per group. groupByFields may be empty for a whole-table
// aggregate.
func NewAggregatorOp(newAggState []AggState, groupByFields []Expr, child Operator) *AggregateOp {
	return &AggregateOp{child: child, groupBy: groupByFields, newAggState: newAggState}
}

// Descriptor concatenates the group-by columns (typed via their Expr) with
// each aggregate state's output column.
func (a *AggregateOp) Descriptor() *TupleDesc {
	fields := make([]FieldType, 0, len(a.groupBy)+len(a.newAggState))
	for _, g := range a.groupBy {
		fields = append(fields, g.GetExprType())
	}
	for _, s := range a.newAggState {
		fields = append(fields, s.GetTupleDesc().Fields[0])
	}
	return &TupleDesc{Fields: fields}
}

// groupKey returns a comparable representation of t's group-by values,
// suitable for use as a map key.
func (a *AggregateOp) groupKey(t *Tuple) (string, []DBValue, error) {
	vals := make([]DBValue, len(a.groupBy))
	var key []byte
	for i, g := range a.groupBy {
		v, err := g.EvalExpr(t)
		if err != nil {
			return "", nil, err
		}
		vals[i] = v
		switch f := v.(type) {
		case IntField:
			key = appendInt(key, f.Value)
		case StringField:
			key = append(key, []byte(f.Value)...)
			key = append(key, 0)
		}
	}
	return string(key), vals, nil
}

func appendInt(b []byte, v int64) []byte {
	for i := 0; i < 8; i++ {
		b = append(b, byte(v>>(8*i)))
	}
	return b
}

// Iterator is blocking: it drains the child fully, accumulating one set of
// AggState copies per distinct group-by key, then yields the finalized
// tuples one group at a time.
func (a *AggregateOp) Iterator(tid TransactionId) (func() (*Tuple, error), error) {
	childIter, err := a.child.Iterator(tid)
	if err != nil {
		return nil, err
	}

	type group struct {
		keyVals []DBValue
		states  []AggState
	}
	order := []string{}
	groups := map[string]*group{}

	for {
		t, err := childIter()
		if err != nil {
			return nil, err
		}
		if t == nil {
			break
		}

		key, keyVals, err := a.groupKey(t)
		if err != nil {
			return nil, err
		}

		g, ok := groups[key]
		if !ok {
			states := make([]AggState, len(a.newAggState))
			for i, proto := range a.newAggState {
				states[i] = proto.Copy()
			}
			g = &group{keyVals: keyVals, states: states}
			groups[key] = g
			order = append(order, key)
		}
		for _, s := range g.states {
			s.AddTuple(t)
		}
	}

	i := 0
	desc := a.Descriptor()
	return func() (*Tuple, error) {
		if i >= len(order) {
			return nil, nil
		}
		g := groups[order[i]]
		i++

		fields := make([]DBValue, 0, len(g.keyVals)+len(g.states))
		fields = append(fields, g.keyVals...)
		for _, s := range g.states {
			fields = append(fields, s.Finalize().Fields[0])
		}
		return &Tuple{Desc: *desc, Fields: fields}, nil
	}, nil
}
