package db

// AggState accumulates one column of an aggregation (COUNT, SUM, AVG, MIN,
// or MAX) across a group of tuples.
type AggState interface {
	// Init prepares the state to aggregate expr's values, labeling the
	// final output column alias.
	Init(alias string, expr Expr) error

	// Copy returns a fresh, independently-mutable aggregation state seeded
	// from a, used to start one state per group in GROUP BY.
	Copy() AggState

	// AddTuple folds t into the aggregate.
	AddTuple(t *Tuple)

	// Finalize returns the one-field tuple holding the aggregate's result.
	Finalize() *Tuple

	// GetTupleDesc describes the tuple Finalize returns.
	GetTupleDesc() *TupleDesc
}

// CountAggState implements COUNT.
type CountAggState struct {
	alias string
	expr  Expr
	count int
}

func (a *CountAggState) Copy() AggState {
	return &CountAggState{a.alias, a.expr, a.count}
}

func (a *CountAggState) Init(alias string, expr Expr) error {
	a.count = 0
	a.expr = expr
	a.alias = alias
	return nil
}

func (a *CountAggState) AddTuple(t *Tuple) {
	a.count++
}

func (a *CountAggState) Finalize() *Tuple {
	td := a.GetTupleDesc()
	return &Tuple{Desc: *td, Fields: []DBValue{IntField{int64(a.count)}}}
}

func (a *CountAggState) GetTupleDesc() *TupleDesc {
	return &TupleDesc{Fields: []FieldType{{Fname: a.alias, Ftype: IntType}}}
}

// SumAggState implements SUM over an int-valued expression.
type SumAggState struct {
	alias string
	expr  Expr
	sum   int64
}

func (a *SumAggState) Copy() AggState {
	return &SumAggState{a.alias, a.expr, a.sum}
}

func (a *SumAggState) Init(alias string, expr Expr) error {
	a.sum = 0
	a.expr = expr
	a.alias = alias
	return nil
}

func (a *SumAggState) AddTuple(t *Tuple) {
	v, err := a.expr.EvalExpr(t)
	if err != nil {
		return
	}
	if iv, ok := v.(IntField); ok {
		a.sum += iv.Value
	}
}

func (a *SumAggState) GetTupleDesc() *TupleDesc {
	return &TupleDesc{Fields: []FieldType{{Fname: a.alias, Ftype: IntType}}}
}

func (a *SumAggState) Finalize() *Tuple {
	return &Tuple{Desc: *a.GetTupleDesc(), Fields: []DBValue{IntField{a.sum}}}
}

// AvgAggState implements AVG over an int-valued expression. Finalize is
// only ever called after at least one AddTuple (empty groups never reach
// Finalize), so the division is never by zero.
type AvgAggState struct {
	alias string
	expr  Expr
	sum   int64
	count int64
}

func (a *AvgAggState) Copy() AggState {
	return &AvgAggState{a.alias, a.expr, a.sum, a.count}
}

func (a *AvgAggState) Init(alias string, expr Expr) error {
	a.sum = 0
	a.count = 0
	a.expr = expr
	a.alias = alias
	return nil
}

func (a *AvgAggState) AddTuple(t *Tuple) {
	v, err := a.expr.EvalExpr(t)
	if err != nil {
		return
	}
	if iv, ok := v.(IntField); ok {
		a.sum += iv.Value
	}
	a.count++
}

func (a *AvgAggState) GetTupleDesc() *TupleDesc {
	return &TupleDesc{Fields: []FieldType{{Fname: a.alias, Ftype: IntType}}}
}

func (a *AvgAggState) Finalize() *Tuple {
	return &Tuple{Desc: *a.GetTupleDesc(), Fields: []DBValue{IntField{a.sum / a.count}}}
}

// MaxAggState implements MAX over int or string values.
type MaxAggState struct {
	alias string
	expr  Expr
	val   DBValue
	null  bool
}

func (a *MaxAggState) Copy() AggState {
	return &MaxAggState{a.alias, a.expr, a.val, true}
}

func (a *MaxAggState) Init(alias string, expr Expr) error {
	a.expr = expr
	a.alias = alias
	a.null = true
	return nil
}

func (a *MaxAggState) AddTuple(t *Tuple) {
	v, err := a.expr.EvalExpr(t)
	if err != nil {
		return
	}
	if a.null {
		a.val = v
		a.null = false
	} else if evalPred(a.val, v, OpLt) {
		a.val = v
	}
}

func (a *MaxAggState) GetTupleDesc() *TupleDesc {
	return &TupleDesc{Fields: []FieldType{{Fname: a.alias, Ftype: a.expr.GetExprType().Ftype}}}
}

func (a *MaxAggState) Finalize() *Tuple {
	return &Tuple{Desc: *a.GetTupleDesc(), Fields: []DBValue{a.val}}
}

// MinAggState implements MIN, reusing MaxAggState's shape with the
// comparison direction flipped.
type MinAggState struct {
	MaxAggState
}

func (a *MinAggState) Copy() AggState {
	return &MinAggState{MaxAggState{a.alias, a.expr, a.val, true}}
}

func (a *MinAggState) AddTuple(t *Tuple) {
	v, err := a.expr.EvalExpr(t)
	if err != nil {
		return
	}
	if a.null {
		a.val = v
		a.null = false
	} else if evalPred(a.val, v, OpGt) {
		a.val = v
	}
}
