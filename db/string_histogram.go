package db

import (
	boom "github.com/tylertreat/BoomFilters"
)

// StringHistogram estimates selectivity for a string field using a
// Count-Min Sketch rather than an exact bucketed histogram: strings have no
// natural bucket ordering the way ints do, so we settle for frequency
// counts and leave range predicates a conservative estimate.
type StringHistogram struct {
	cms *boom.CountMinSketch
}

// NewStringHistogram creates a StringHistogram sized for a 0.1% error rate
// at 99.9% confidence.
func NewStringHistogram() (*StringHistogram, error) {
	cms := boom.NewCountMinSketch(0.001, 0.999)
	return &StringHistogram{cms}, nil
}

// AddValue records s in the sketch.
func (h *StringHistogram) AddValue(s string) {
	h.cms.Add([]byte(s))
}

// EstimateSelectivity returns the estimated fraction of rows satisfying
// "field op s". Only equality and inequality are backed by the sketch;
// ordering predicates fall back to 1.0 (no information), matching the
// conservative default TableStats.EstimateSelectivity uses elsewhere.
func (h *StringHistogram) EstimateSelectivity(op BoolOp, s string) float64 {
	total := h.cms.TotalCount()
	if total == 0 {
		return 0.0
	}
	count := float64(h.cms.Count([]byte(s))) / float64(total)
	switch op {
	case OpEq:
		return count
	case OpNeq:
		return 1.0 - count
	default:
		return 1.0
	}
}
