package util

import (
	"math"
	"testing"
)

func TestNewSpread(t *testing.T) {
	s := NewSpread([]uint64{9, 2, 4, 4, 5, 5, 7, 4})

	if s.Workers != 8 || s.Total != 40 {
		t.Errorf("Expected 8 workers and total 40, got %d and %d", s.Workers, s.Total)
	}
	if s.Min != 2 || s.Max != 9 {
		t.Errorf("Expected min 2 and max 9, got %d and %d", s.Min, s.Max)
	}
	if s.Mean != 5 || s.Median != 4.5 {
		t.Errorf("Expected mean 5 and median 4.5, got %v and %v", s.Mean, s.Median)
	}
	if math.Abs(s.StdDeviation-2) > 1e-9 {
		t.Errorf("Expected standard deviation 2, got %v", s.StdDeviation)
	}

	if empty := NewSpread(nil); empty != (Spread{}) {
		t.Errorf("Expected zero spread for no workers, got %+v", empty)
	}
}

func TestSpreadDoesNotReorderInput(t *testing.T) {
	counts := []uint64{3, 1, 2}
	if s := NewSpread(counts); s.Median != 2 {
		t.Errorf("Expected median 2, got %v", s.Median)
	}
	if counts[0] != 3 || counts[1] != 1 || counts[2] != 2 {
		t.Errorf("Input was modified: %v", counts)
	}
}

func TestFairness(t *testing.T) {
	even := NewSpread([]uint64{100, 100, 100, 100})
	if even.Fairness != 1 {
		t.Errorf("Expected fairness 1 for an even spread, got %v", even.Fairness)
	}

	skewed := NewSpread([]uint64{1, 1, 1, 1000})
	if skewed.Fairness >= even.Fairness {
		t.Errorf("Expected a skewed spread to score lower (%v >= %v)", skewed.Fairness, even.Fairness)
	}

	idle := NewSpread([]uint64{0, 0})
	if idle.Fairness != 1 {
		t.Errorf("Expected workers that all did nothing to count as even, got %v", idle.Fairness)
	}
}

func TestMix64(t *testing.T) {
	if Mix64(1, 42) == Mix64(2, 42) {
		t.Errorf("Expected different inputs to mix to different values")
	}
	if Mix64(1, 42) == Mix64(1, 43) {
		t.Errorf("Expected the seed to change the result")
	}
	if Mix64(7, 9) != Mix64(7, 9) {
		t.Errorf("Expected Mix64 to be deterministic")
	}
}
