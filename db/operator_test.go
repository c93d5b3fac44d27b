package db

import (
	"testing"

	"github.com/d4l3k/messagediff"
)

var peopleDesc = &TupleDesc{Fields: []FieldType{
	{Fname: "id", Ftype: IntType},
	{Fname: "name", Ftype: StringType},
	{Fname: "age", Ftype: IntType},
}}

func people(rows ...[3]any) *sliceOp {
	tuples := make([]*Tuple, len(rows))
	for i, r := range rows {
		tuples[i] = &Tuple{
			Desc: *peopleDesc,
			Fields: []DBValue{
				IntField{r[0].(int64)},
				StringField{r[1].(string)},
				IntField{r[2].(int64)},
			},
		}
	}
	return &sliceOp{desc: peopleDesc, tuples: tuples}
}

func drain(t *testing.T, op Operator) []*Tuple {
	t.Helper()
	it, err := op.Iterator(1)
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
	return out
}

func assertTuplesEqual(t *testing.T, got, want []*Tuple) {
	t.Helper()
	if diff, equal := messagediff.PrettyDiff(want, got); !equal {
		t.Errorf("tuples did not match expected result:\n%s", diff)
	}
}

func TestFilterKeepsMatchingRows(t *testing.T) {
	src := people([3]any{int64(1), "alice", int64(30)}, [3]any{int64(2), "bob", int64(20)})
	ageField := NewFieldExpr(peopleDesc.Fields[2])
	f, err := NewFilter(ageField, OpGe, NewConstExpr(IntField{25}, IntType), src)
	if err != nil {
		t.Fatalf("NewFilter: %v", err)
	}
	got := drain(t, f)
	assertTuplesEqual(t, got, []*Tuple{src.tuples[0]})
}

func TestProjectRenamesAndDrops(t *testing.T) {
	src := people([3]any{int64(1), "alice", int64(30)})
	proj, err := NewProjectOp(
		[]Expr{NewFieldExpr(peopleDesc.Fields[1])},
		[]string{"who"},
		false,
		src,
	)
	if err != nil {
		t.Fatalf("NewProjectOp: %v", err)
	}
	got := drain(t, proj)
	if len(got) != 1 || got[0].Desc.Fields[0].Fname != "who" {
		t.Fatalf("unexpected projection result: %+v", got)
	}
	if got[0].Fields[0].(StringField).Value != "alice" {
		t.Fatalf("expected projected value 'alice', got %+v", got[0].Fields[0])
	}
}

func TestProjectDistinctDropsDuplicates(t *testing.T) {
	src := people(
		[3]any{int64(1), "alice", int64(30)},
		[3]any{int64(2), "alice", int64(30)},
		[3]any{int64(3), "bob", int64(20)},
	)
	proj, err := NewProjectOp(
		[]Expr{NewFieldExpr(peopleDesc.Fields[1]), NewFieldExpr(peopleDesc.Fields[2])},
		[]string{"name", "age"},
		true,
		src,
	)
	if err != nil {
		t.Fatalf("NewProjectOp: %v", err)
	}
	got := drain(t, proj)
	if len(got) != 2 {
		t.Fatalf("expected 2 distinct rows, got %d: %+v", len(got), got)
	}
}

func TestOrderByTwoAscendingKeys(t *testing.T) {
	src := people(
		[3]any{int64(1), "bob", int64(20)},
		[3]any{int64(2), "alice", int64(20)},
		[3]any{int64(3), "carol", int64(10)},
	)
	ob, err := NewOrderBy(
		[]Expr{NewFieldExpr(peopleDesc.Fields[2]), NewFieldExpr(peopleDesc.Fields[1])},
		src,
		[]bool{true, true},
	)
	if err != nil {
		t.Fatalf("NewOrderBy: %v", err)
	}
	got := drain(t, ob)
	wantOrder := []string{"carol", "alice", "bob"}
	for i, name := range wantOrder {
		if got[i].Fields[1].(StringField).Value != name {
			t.Fatalf("position %d: expected %s, got %s", i, name, got[i].Fields[1].(StringField).Value)
		}
	}
}

func TestLimitStopsAtBound(t *testing.T) {
	src := people(
		[3]any{int64(1), "a", int64(1)},
		[3]any{int64(2), "b", int64(2)},
		[3]any{int64(3), "c", int64(3)},
	)
	lim := NewLimitOp(NewConstExpr(IntField{2}, IntType), src)
	got := drain(t, lim)
	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got))
	}
}

func TestAggregateGroupByCountAndSum(t *testing.T) {
	src := people(
		[3]any{int64(1), "eng", int64(10)},
		[3]any{int64(2), "eng", int64(20)},
		[3]any{int64(3), "sales", int64(5)},
	)
	nameExpr := NewFieldExpr(peopleDesc.Fields[1])
	ageExpr := NewFieldExpr(peopleDesc.Fields[2])

	count := &CountAggState{}
	if err := count.Init("n", ageExpr); err != nil {
		t.Fatalf("count.Init: %v", err)
	}
	sum := &SumAggState{}
	if err := sum.Init("total", ageExpr); err != nil {
		t.Fatalf("sum.Init: %v", err)
	}

	agg := NewAggregatorOp([]AggState{count, sum}, []Expr{nameExpr}, src)
	got := drain(t, agg)

	totals := map[string][2]int64{}
	for _, tup := range got {
		dept := tup.Fields[0].(StringField).Value
		n := tup.Fields[1].(IntField).Value
		s := tup.Fields[2].(IntField).Value
		totals[dept] = [2]int64{n, s}
	}
	if totals["eng"] != [2]int64{2, 30} {
		t.Fatalf("expected eng group {2, 30}, got %+v", totals["eng"])
	}
	if totals["sales"] != [2]int64{1, 5} {
		t.Fatalf("expected sales group {1, 5}, got %+v", totals["sales"])
	}
}

func TestMinMaxAggState(t *testing.T) {
	src := people(
		[3]any{int64(1), "a", int64(7)},
		[3]any{int64(2), "a", int64(3)},
		[3]any{int64(3), "a", int64(9)},
	)
	ageExpr := NewFieldExpr(peopleDesc.Fields[2])

	max := &MaxAggState{}
	if err := max.Init("maxage", ageExpr); err != nil {
		t.Fatalf("max.Init: %v", err)
	}
	min := &MinAggState{}
	if err := min.Init("minage", ageExpr); err != nil {
		t.Fatalf("min.Init: %v", err)
	}

	agg := NewAggregatorOp([]AggState{max, min}, nil, src)
	got := drain(t, agg)
	if len(got) != 1 {
		t.Fatalf("expected a single whole-table group, got %d", len(got))
	}
	if got[0].Fields[0].(IntField).Value != 9 {
		t.Fatalf("expected max 9, got %d", got[0].Fields[0].(IntField).Value)
	}
	if got[0].Fields[1].(IntField).Value != 3 {
		t.Fatalf("expected min 3, got %d", got[0].Fields[1].(IntField).Value)
	}
}
