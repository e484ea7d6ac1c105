package util

import (
	"fmt"
	"math"
	"slices"
)

// ----------------------------------------------------------------------------
// Work spread
// ----------------------------------------------------------------------------

// Spread summarises how many operations each worker of a run completed
type Spread struct {
	Workers      int     `json:"workers"`
	Total        uint64  `json:"total"`
	Min          uint64  `json:"min"`
	Max          uint64  `json:"max"`
	Median       float64 `json:"median"`
	Mean         float64 `json:"mean"`
	StdDeviation float64 `json:"std_deviation"`
	// Fairness is 1.0 when every worker did the same amount of work and
	// approaches 0 when a single worker did almost everything
	Fairness float64 `json:"fairness"`
}

// NewSpread computes the spread of per-worker operation counts
func NewSpread(counts []uint64) Spread {
	if len(counts) == 0 {
		return Spread{}
	}

	sorted := slices.Clone(counts)
	slices.Sort(sorted)

	s := Spread{
		Workers: len(sorted),
		Min:     sorted[0],
		Max:     sorted[len(sorted)-1],
	}
	for _, c := range sorted {
		s.Total += c
	}
	s.Mean = float64(s.Total) / float64(s.Workers)

	if mid := s.Workers / 2; s.Workers%2 == 1 {
		s.Median = float64(sorted[mid])
	} else {
		s.Median = (float64(sorted[mid-1]) + float64(sorted[mid])) / 2
	}

	var squared float64
	for _, c := range sorted {
		d := float64(c) - s.Mean
		squared += d * d
	}
	// population formula
	s.StdDeviation = math.Sqrt(squared / float64(s.Workers))

	// half coefficient of variation, half min/max ratio
	ratio := 1.0
	if s.Max > 0 {
		ratio = float64(s.Min) / float64(s.Max)
	}
	var cv float64
	if s.Mean > 0 {
		cv = s.StdDeviation / s.Mean
	}
	s.Fairness = (1.0-math.Min(1.0, cv))*0.5 + ratio*0.5

	return s
}

// String returns a one-line summary
func (s Spread) String() string {
	if s.Workers == 0 {
		return "no workers"
	}
	return fmt.Sprintf("workers=%d min=%d median=%.0f max=%d stddev=%.1f fairness=%.2f",
		s.Workers, s.Min, s.Median, s.Max, s.StdDeviation, s.Fairness)
}
