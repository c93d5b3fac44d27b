package db

import (
	"fmt"
	"log"
	"math"
)

// Stats is the interface a query planner would consult to cost a scan or a
// predicate over a table. Nothing in this repo plans queries yet (see
// SPEC_FULL.md's Non-goals), but the operators are built to be driven by
// a planner that does, so the statistics layer is implemented in full.
type Stats interface {
	EstimateScanCost() float64
	EstimateCardinality(selectivity float64) int
	EstimateSelectivity(field string, op BoolOp, value DBValue) (float64, error)
}

// TableStats holds page/tuple counts and per-column histograms for one
// table, computed by two full scans (one for per-column min/max, one to
// fill the histograms).
type TableStats struct {
	basePages  int
	baseTups   int
	histograms map[string]any
	tupleDesc  *TupleDesc
}

// CostPerPage is the assumed cost of reading one page from disk, with no
// seeks and nothing cached.
const CostPerPage = 1000

// NumHistBins is the default bucket count for int histograms.
const NumHistBins = 100

func tableMinMax(tid TransactionId, file TableFile) ([]int64, []int64, error) {
	td := file.Descriptor()
	mins := make([]int64, len(td.Fields))
	maxs := make([]int64, len(td.Fields))
	for i := range mins {
		mins[i] = math.MaxInt32
		maxs[i] = math.MinInt32
	}

	iter, err := file.Iterator(tid)
	if err != nil {
		return nil, nil, err
	}
	for tup, err := iter(); tup != nil; tup, err = iter() {
		if err != nil {
			return nil, nil, err
		}
		for i, f := range td.Fields {
			if f.Ftype == IntType {
				v := tup.Fields[i].(IntField).Value
				if v < mins[i] {
					mins[i] = v
				}
				if v > maxs[i] {
					maxs[i] = v
				}
			}
		}
	}
	for i := range mins {
		if mins[i] > maxs[i] {
			mins[i] = 0
			maxs[i] = 0
		}
	}
	return mins, maxs, nil
}

// ComputeTableStats scans file twice in one short transaction (first for
// per-column min/max, then to fill the histograms) to build per-column
// histograms and row/page counts.
func ComputeTableStats(coord *TxnCoordinator, file TableFile) (*TableStats, error) {
	tid := NewTransactionId()

	td := file.Descriptor()

	mins, maxs, err := tableMinMax(tid, file)
	if err != nil {
		coord.AbortTransaction(tid)
		return nil, err
	}

	hists := make(map[string]any, len(td.Fields))
	for i, f := range td.Fields {
		switch f.Ftype {
		case IntType:
			h, err := NewIntHistogram(NumHistBins, mins[i], maxs[i])
			if err != nil {
				coord.AbortTransaction(tid)
				return nil, err
			}
			hists[f.Fname] = h
		case StringType:
			h, err := NewStringHistogram()
			if err != nil {
				coord.AbortTransaction(tid)
				return nil, err
			}
			hists[f.Fname] = h
		}
	}

	iter, err := file.Iterator(tid)
	if err != nil {
		coord.AbortTransaction(tid)
		return nil, err
	}

	baseTups := 0
	for tup, err := iter(); tup != nil; tup, err = iter() {
		if err != nil {
			coord.AbortTransaction(tid)
			return nil, err
		}
		for i, f := range td.Fields {
			switch f.Ftype {
			case IntType:
				v := tup.Fields[i].(IntField).Value
				hists[f.Fname].(*IntHistogram).AddValue(v)
			case StringType:
				v := tup.Fields[i].(StringField).Value
				hists[f.Fname].(*StringHistogram).AddValue(v)
			}
		}
		baseTups++
	}

	if err := coord.CommitTransaction(tid); err != nil {
		return nil, err
	}

	numPages := 1
	if hf, ok := file.(*HeapFile); ok {
		numPages = hf.NumPages()
	}

	return &TableStats{basePages: numPages, baseTups: baseTups, histograms: hists, tupleDesc: td}, nil
}

// EstimateScanCost estimates the cost of a sequential scan of the table,
// assuming no seeks and a cold cache.
func (t *TableStats) EstimateScanCost() float64 {
	return float64(t.basePages * CostPerPage)
}

// EstimateCardinality estimates the number of rows a predicate with the
// given selectivity would return.
func (t *TableStats) EstimateCardinality(selectivity float64) int {
	return int(float64(t.baseTups) * selectivity)
}

// EstimateSelectivity looks up field's histogram and estimates the
// selectivity of "field op value".
func (t *TableStats) EstimateSelectivity(field string, op BoolOp, value DBValue) (float64, error) {
	hist, ok := t.histograms[field]
	if !ok {
		log.Printf("no histogram found for field %s", field)
		return 1.0, nil
	}

	switch h := hist.(type) {
	case *IntHistogram:
		v, ok := value.(IntField)
		if !ok {
			return 1.0, fmt.Errorf("field %q is int, but value %v is not an IntField", field, value)
		}
		return h.EstimateSelectivity(op, v.Value), nil
	case *StringHistogram:
		v, ok := value.(StringField)
		if !ok {
			return 1.0, fmt.Errorf("field %q is string, but value %v is not a StringField", field, value)
		}
		return h.EstimateSelectivity(op, v.Value), nil
	}

	return 1.0, fmt.Errorf("unexpected histogram type for field %q", field)
}
