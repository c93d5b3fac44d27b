package db

import "testing"

func TestIntHistogramSelectivityBounds(t *testing.T) {
	h, err := NewIntHistogram(10, 0, 99)
	if err != nil {
		t.Fatalf("NewIntHistogram: %v", err)
	}
	for v := int64(0); v < 100; v++ {
		h.AddValue(v)
	}

	if got := h.EstimateSelectivity(OpLt, -1); got != 0.0 {
		t.Fatalf("expected selectivity 0.0 for < below range, got %f", got)
	}
	if got := h.EstimateSelectivity(OpGt, 1000); got != 0.0 {
		t.Fatalf("expected selectivity 0.0 for > far above range, got %f", got)
	}
	if got := h.EstimateSelectivity(OpGt, -1); got != 1.0 {
		t.Fatalf("expected selectivity 1.0 for > below range, got %f", got)
	}

	eq := h.EstimateSelectivity(OpEq, 50)
	if eq <= 0 || eq > 1 {
		t.Fatalf("expected an equality selectivity in (0, 1], got %f", eq)
	}

	low := h.EstimateSelectivity(OpLe, 10)
	high := h.EstimateSelectivity(OpLe, 90)
	if !(low < high) {
		t.Fatalf("expected selectivity of <= to grow with the threshold: low=%f high=%f", low, high)
	}
}

func TestIntHistogramEmptyIsZero(t *testing.T) {
	h, err := NewIntHistogram(4, 0, 9)
	if err != nil {
		t.Fatalf("NewIntHistogram: %v", err)
	}
	if got := h.EstimateSelectivity(OpEq, 5); got != 0.0 {
		t.Fatalf("expected 0 selectivity on an empty histogram, got %f", got)
	}
}
