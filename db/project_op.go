package db

import (
	"bytes"
	"fmt"

	boom "github.com/tylertreat/BoomFilters"
)

// Project evaluates selectFields against each child tuple, renaming the
// results to outputNames, and optionally suppresses duplicate rows.
type Project struct {
	selectFields []Expr
	outputNames  []string
	child        Operator
	distinct     bool
}

// NewProjectOp constructs a projection operator. selectFields is the list
// of expressions to evaluate per tuple; outputNames (same length) renames
// the results; distinct suppresses duplicate output rows.
func NewProjectOp(selectFields []Expr, outputNames []string, distinct bool, child Operator) (Operator, error) {
	if len(selectFields) != len(outputNames) {
		return nil, DbError{MalformedDataError, "selectFields and outputNames must have the same length"}
	}
	return &Project{selectFields: selectFields, outputNames: outputNames, child: child, distinct: distinct}, nil
}

// Descriptor returns one field per selectFields entry, renamed per
// outputNames.
func (p *Project) Descriptor() *TupleDesc {
	fields := make([]FieldType, len(p.selectFields))
	for i, val := range p.selectFields {
		ft := val.GetExprType()
		ft.Fname = p.outputNames[i]
		fields[i] = ft
	}
	return &TupleDesc{Fields: fields}
}

// distinctFilter suppresses tuples whose exact byte encoding has already
// been produced. It fronts the exact check with a Bloom filter: most rows
// in a real scan are never duplicates, so a cheap "definitely new" verdict
// lets us skip the exact-key lookup (the key is still recorded in seen),
// matching the teacher's
// string_histogram.go pattern of using a BoomFilters sketch instead of an
// exact structure for a frequency-style query. A positive from the filter
// is only ever a "maybe": we still hold the exact keys we've added it for
// and check those, so the filter's false-positive rate never produces a
// wrong answer, only a wasted lookup.
type distinctFilter struct {
	bf   *boom.BloomFilter
	seen map[string]struct{}
}

func newDistinctFilter(expectedRows uint) *distinctFilter {
	return &distinctFilter{
		bf:   boom.NewBloomFilter(expectedRows, 0.01),
		seen: make(map[string]struct{}),
	}
}

// seenBefore reports whether key has been passed to seenBefore before,
// recording it either way.
func (d *distinctFilter) seenBefore(key []byte) bool {
	maybeSeen := d.bf.TestAndAdd(key)
	if !maybeSeen {
		d.seen[string(key)] = struct{}{}
		return false
	}
	if _, ok := d.seen[string(key)]; ok {
		return true
	}
	d.seen[string(key)] = struct{}{}
	return false
}

func tupleKey(t *Tuple) ([]byte, error) {
	var b bytes.Buffer
	if err := t.writeTo(&b); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// Iterator evaluates selectFields/outputNames against every child tuple,
// dropping duplicates when distinct is set.
func (p *Project) Iterator(tid TransactionId) (func() (*Tuple, error), error) {
	fields := make([]FieldType, len(p.selectFields))
	for i, val := range p.selectFields {
		fields[i] = val.GetExprType()
	}

	it, err := p.child.Iterator(tid)
	if err != nil {
		return nil, err
	}

	var dedup *distinctFilter
	if p.distinct {
		dedup = newDistinctFilter(1000)
	}

	return func() (*Tuple, error) {
		for {
			tup, err := it()
			if err != nil {
				return nil, err
			}
			if tup == nil {
				return nil, nil
			}

			vals := make([]DBValue, len(p.selectFields))
			for i, expr := range p.selectFields {
				v, err := expr.EvalExpr(tup)
				if err != nil {
					return nil, err
				}
				vals[i] = v
			}
			outDesc := make([]FieldType, len(fields))
			copy(outDesc, fields)
			for i := range outDesc {
				outDesc[i].Fname = p.outputNames[i]
			}
			outTup := &Tuple{Desc: TupleDesc{Fields: outDesc}, Fields: vals}

			if dedup != nil {
				key, err := tupleKey(outTup)
				if err != nil {
					return nil, fmt.Errorf("project: computing distinct key: %w", err)
				}
				if dedup.seenBefore(key) {
					continue
				}
			}

			return outTup, nil
		}
	}, nil
}
