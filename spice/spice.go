// Package spice is the interface to the circuit simulator.
//
// A Simulator runs one testbench over a batched sweep of parameter rows and
// returns one measurement Row per sweep row. A failed row carries an error
// and leaves the rest of the batch usable.
package spice

import (
	"context"
	"math"
	"sort"

	"github.com/pkg/errors"
)

var (
	// ErrSimulationUnavailable means the simulator could not be invoked or
	// did not complete. It aborts a sizing run.
	ErrSimulationUnavailable = errors.New("spice: simulation unavailable")

	// ErrMeasurementInvalid marks a row whose measurements are missing or
	// not finite.
	ErrMeasurementInvalid = errors.New("spice: measurement invalid")
)

// Sweep is a parameter table: every row has one value per name.
type Sweep struct {
	Names []string
	Rows  [][]float64
}

// NewSweep creates an empty sweep over names.
func NewSweep(names []string) *Sweep {
	return &Sweep{Names: append([]string(nil), names...)}
}

// Add appends a row built by looking every name up in values. Missing
// names are reported, not zero filled.
func (s *Sweep) Add(values map[string]float64) error {
	row := make([]float64, len(s.Names))
	var missing []string
	for i, name := range s.Names {
		v, ok := values[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		row[i] = v
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return errors.Errorf("sweep row is missing %d parameters, first %q", len(missing), missing[0])
	}
	s.Rows = append(s.Rows, row)
	return nil
}

// Len returns the number of rows.
func (s *Sweep) Len() int { return len(s.Rows) }

// Row is the measurements of one sweep row.
type Row struct {
	Values map[string]float64
	Err    error
}

// Valid reports whether the row produced a usable measurement set.
func (r Row) Valid() bool { return r.Err == nil }

// Get returns a measurement or NaN when it is absent.
func (r Row) Get(name string) float64 {
	v, ok := r.Values[name]
	if !ok {
		return math.NaN()
	}
	return v
}

// Simulator runs a testbench file over a sweep.
type Simulator interface {
	Simulate(ctx context.Context, tbPath string, sweep *Sweep) ([]Row, error)
}

// SimulatorFunc adapts a function to Simulator.
type SimulatorFunc func(ctx context.Context, tbPath string, sweep *Sweep) ([]Row, error)

// Simulate implements Simulator.
func (f SimulatorFunc) Simulate(ctx context.Context, tbPath string, sweep *Sweep) ([]Row, error) {
	return f(ctx, tbPath, sweep)
}

// checkRow marks a row invalid when any value is NaN or infinite.
func checkRow(values map[string]float64) Row {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		v := values[name]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Row{Values: values, Err: errors.Wrapf(ErrMeasurementInvalid, "%s failed", name)}
		}
	}
	return Row{Values: values}
}
