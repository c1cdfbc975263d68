package sizing

import "github.com/StephenMoreOSU/rad-gen-sub000/spice"

// Evaluation is one size tuple scored during a range search.
type Evaluation struct {
	// Sizes are aligned with SearchReport.Elements.
	Sizes []float64
	Area  float64
	Delay float64
	TRise float64
	TFall float64
	Cost  float64
	Valid bool
}

// SearchReport is everything one range-search round produced.
type SearchReport struct {
	Outer    int
	Round    int
	Group    int
	SpName   string
	Elements []string
	All      []Evaluation
	Top      []Evaluation
}

// MeasurementRecord tags one simulator row with where it came from.
type MeasurementRecord struct {
	Tag     string
	Outer   int
	SpName  string
	Inner   int
	TranSet int
	Row     spice.Row
}

// IterationRecord summarizes one outer iteration.
type IterationRecord struct {
	Iteration int
	Area      float64
	Delay     float64
	Cost      float64
	// Delays are the per sub-circuit delays at the end of the iteration.
	Delays map[string]float64
	// Sizes is the complete transistor size map.
	Sizes map[string]float64
	// Skipped lists quick-mode buckets not resized in this iteration.
	Skipped []string
}

// Sink receives intermediate results. Implementations must not retain
// the maps they are handed beyond the call unless they copy them.
type Sink interface {
	RangeSearch(r SearchReport) error
	Measurement(m MeasurementRecord) error
	Iteration(r IterationRecord) error
}

type nopSink struct{}

func (nopSink) RangeSearch(SearchReport) error { return nil }
func (nopSink) Measurement(MeasurementRecord) error { return nil }
func (nopSink) Iteration(IterationRecord) error { return nil }
