package db

// BoolOp enumerates the predicate operators Filter understands.
type BoolOp int

const (
	OpEq BoolOp = iota
	OpNeq
	OpGt
	OpGe
	OpLt
	OpLe
)

// orderByState is the three-way result of comparing two fields, used by
// OrderBy's multiSorter.
type orderByState int

const (
	OrderedLessThan orderByState = iota
	OrderedEqual
	OrderedGreaterThan
)

// Expr is evaluated against a Tuple to produce a DBValue, e.g. a field
// reference or a constant.
type Expr interface {
	EvalExpr(t *Tuple) (DBValue, error)
	GetExprType() FieldType
}

// FieldExpr evaluates to the named field of whatever tuple it is applied
// to.
type FieldExpr struct {
	field FieldType
}

func NewFieldExpr(field FieldType) *FieldExpr {
	return &FieldExpr{field}
}

func (e *FieldExpr) EvalExpr(t *Tuple) (DBValue, error) {
	idx, err := t.Desc.FieldNamed(e.field.Fname)
	if err != nil {
		return nil, err
	}
	return t.Fields[idx], nil
}

func (e *FieldExpr) GetExprType() FieldType {
	return e.field
}

// ConstExpr evaluates to the same value regardless of the tuple it is
// applied to.
type ConstExpr struct {
	val   DBValue
	ftype DBType
}

func NewConstExpr(val DBValue, ftype DBType) *ConstExpr {
	return &ConstExpr{val, ftype}
}

func (e *ConstExpr) EvalExpr(t *Tuple) (DBValue, error) {
	return e.val, nil
}

func (e *ConstExpr) GetExprType() FieldType {
	return FieldType{Fname: "", Ftype: e.ftype}
}

// evalPred evaluates "left <op> right" for two DBValues of the same
// underlying type.
func evalPred(left DBValue, right DBValue, op BoolOp) bool {
	switch l := left.(type) {
	case IntField:
		r, ok := right.(IntField)
		if !ok {
			return false
		}
		return compareOrdered(l.Value, r.Value, op)
	case StringField:
		r, ok := right.(StringField)
		if !ok {
			return false
		}
		return compareOrdered(l.Value, r.Value, op)
	default:
		return false
	}
}

// EvalPred is the method form used by Filter, matching the teacher's
// leftVal.EvalPred(rightVal, op) call shape.
func (l IntField) EvalPred(right DBValue, op BoolOp) bool {
	return evalPred(l, right, op)
}

func (l StringField) EvalPred(right DBValue, op BoolOp) bool {
	return evalPred(l, right, op)
}

func compareOrdered[T int64 | string](a, b T, op BoolOp) bool {
	switch op {
	case OpEq:
		return a == b
	case OpNeq:
		return a != b
	case OpGt:
		return a > b
	case OpGe:
		return a >= b
	case OpLt:
		return a < b
	case OpLe:
		return a <= b
	default:
		return false
	}
}

// compareField compares t and other (two tuples) on the value of expr,
// returning an orderByState. Used by OrderBy's multiSorter.
func (t *Tuple) compareField(other *Tuple, expr Expr) (orderByState, error) {
	lv, err := expr.EvalExpr(t)
	if err != nil {
		return OrderedEqual, err
	}
	rv, err := expr.EvalExpr(other)
	if err != nil {
		return OrderedEqual, err
	}
	switch l := lv.(type) {
	case IntField:
		r := rv.(IntField)
		switch {
		case l.Value < r.Value:
			return OrderedLessThan, nil
		case l.Value > r.Value:
			return OrderedGreaterThan, nil
		default:
			return OrderedEqual, nil
		}
	case StringField:
		r := rv.(StringField)
		switch {
		case l.Value < r.Value:
			return OrderedLessThan, nil
		case l.Value > r.Value:
			return OrderedGreaterThan, nil
		default:
			return OrderedEqual, nil
		}
	default:
		return OrderedEqual, DbError{IncompatibleTypesError, "unsupported comparison type"}
	}
}
