package sizing

import (
	"context"
	"math"
	"sort"

	"github.com/StephenMoreOSU/rad-gen-sub000/circuit"
	"github.com/StephenMoreOSU/rad-gen-sub000/config"
	"github.com/StephenMoreOSU/rad-gen-sub000/params"
	"github.com/StephenMoreOSU/rad-gen-sub000/spice"
	"github.com/StephenMoreOSU/rad-gen-sub000/testbench"
)

// Measurement sanity limits. Rows outside them get PenaltyDelay.
const (
	// PenaltyDelay is the evaluation delay of an unusable row, in seconds.
	PenaltyDelay = 1.0

	maxLogicLow = 0.4
	maxEdge     = 5e-9
)

// Candidate is the outcome of one range search.
type Candidate struct {
	// Sizes are the winning drive strengths per element.
	Sizes map[string]float64
	// Devices is the complete transistor size map of the circuit after the
	// winner was re-balanced.
	Devices map[string]float64
	Ratios  map[string]float64
	Area    float64
	Delay   float64
	TRise   float64
	TFall   float64
	Cost    float64
}

type scored struct {
	tuple   []float64
	eval    Evaluation
	devices map[string]float64
	ratios  map[string]float64
}

// evalDelay turns a total-path row into an evaluation delay. When useMax
// is set the slower edge counts instead of the average.
func evalDelay(row spice.Row, useMax bool) (delay, rise, fall float64, valid bool) {
	rise, fall = row.Get(testbench.MeasTotalRise), row.Get(testbench.MeasTotalFall)
	if !row.Valid() || math.IsNaN(rise) || math.IsNaN(fall) ||
		rise < 0 || fall < 0 || rise > maxEdge || fall > maxEdge {
		return PenaltyDelay, rise, fall, false
	}
	if low := row.Get(testbench.MeasLogicLow); low > maxLogicLow {
		return PenaltyDelay, rise, fall, false
	}
	if useMax {
		return math.Max(rise, fall), rise, fall, true
	}
	return (rise + fall) / 2, rise, fall, true
}

// cost is area^a * delay^d.
func (e *Engine) cost(area, delay float64) float64 {
	return math.Pow(area, e.cfg.Sizing.AreaWeight) * math.Pow(delay, e.cfg.Sizing.DelayWeight)
}

// scoreArea is the area the cost function sees for circuit h.
func (e *Engine) scoreArea(h circuit.Handle) float64 {
	if e.cfg.Sizing.Mode == config.ModeLocal {
		return e.st.MustArea(e.arena.Meta(h).SpName)
	}
	return e.st.MustArea(e.arena.Meta(e.arena.Tile()).SpName)
}

// scoreDelay is the delay the cost function sees when h measures d.
func (e *Engine) scoreDelay(h circuit.Handle, d float64, valid bool) float64 {
	if !valid || e.cfg.Sizing.Mode == config.ModeLocal {
		return d
	}
	delays := make(map[string]float64, len(e.st.Delay)+1)
	for k, v := range e.st.Delay {
		delays[k] = v
	}
	delays[e.arena.Meta(h).SpName] = d
	return e.CriticalPath(delays)
}

// cartesian expands ranges into every size tuple, last element fastest.
func cartesian(ranges []Range) [][]float64 {
	out := [][]float64{{}}
	for _, r := range ranges {
		vals := r.Values()
		next := make([][]float64, 0, len(out)*len(vals))
		for _, t := range out {
			for _, v := range vals {
				tuple := make([]float64, len(t), len(t)+1)
				copy(tuple, t)
				next = append(next, append(tuple, v))
			}
		}
		out = next
	}
	return out
}

func tupleSizes(ranges []Range, tuple []float64) map[string]float64 {
	m := make(map[string]float64, len(ranges))
	for i, r := range ranges {
		m[r.Elem] = tuple[i]
	}
	return m
}

// circuitDevices snapshots the sizes of h's transistors.
func (e *Engine) circuitDevices(h circuit.Handle) map[string]float64 {
	s, _ := e.arena.Sizable(h)
	out := make(map[string]float64)
	for _, t := range s.TransistorNames() {
		out[t] = e.st.TransistorSizes[t]
	}
	return out
}

// SearchRanges runs one range search over h without installing the
// winner.
func (e *Engine) SearchRanges(ctx context.Context, h circuit.Handle, ranges []Range) (*Candidate, error) {
	return e.searchRanges(ctx, h, ranges, 0)
}

// searchRanges evaluates every tuple of ranges on h's testbench in one
// batch, ranks them by cost, re-balances the best ReERF of them and
// returns the winner. The store is restored before returning.
func (e *Engine) searchRanges(ctx context.Context, h circuit.Handle, ranges []Range, group int) (*Candidate, error) {
	b, err := e.bench(h)
	if err != nil {
		return nil, err
	}
	sp := e.arena.Meta(h).SpName
	saved := e.st.Sizes()
	defer func() {
		e.st.TransistorSizes = saved
		if rerr := e.Refresh(); rerr != nil {
			e.log.Error(rerr, "restoring store", "subcircuit", sp)
		}
	}()

	centre := make(map[string]float64, len(ranges))
	for _, r := range ranges {
		centre[r.Elem] = r.Centre()
	}
	base, err := e.comboERF(ctx, h, centre, nil)
	if err != nil {
		return nil, err
	}

	tuples := cartesian(ranges)
	rows := make([]map[string]float64, len(tuples))
	areas := make([]float64, len(tuples))
	for i, t := range tuples {
		e.applySizes(tupleSizes(ranges, t), base.ratios)
		if err := e.Refresh(); err != nil {
			return nil, err
		}
		areas[i] = e.scoreArea(h)
		if rows[i], err = e.paramRow(b); err != nil {
			return nil, err
		}
	}
	out, err := e.simulate(ctx, b, rows)
	if err != nil {
		return nil, err
	}

	all := make([]scored, len(tuples))
	for i, row := range out {
		e.record("range_search", sp, e.round, i, row)
		d, rise, fall, valid := evalDelay(row, false)
		d = e.scoreDelay(h, d, valid)
		all[i] = scored{tuple: tuples[i], eval: Evaluation{
			Sizes: tuples[i], Area: areas[i], Delay: d, TRise: rise, TFall: fall,
			Cost: e.cost(areas[i], d), Valid: valid,
		}}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].eval.Cost < all[j].eval.Cost })

	m := e.cfg.Sizing.ReERF
	if m < 1 {
		m = 1
	}
	if m > len(all) {
		m = len(all)
	}
	top := make([]scored, m)
	for i := 0; i < m; i++ {
		e.st.InstallSizes(saved)
		res, err := e.comboERF(ctx, h, tupleSizes(ranges, all[i].tuple), nil)
		if err != nil {
			return nil, err
		}
		d, rise, fall, valid := evalDelay(res.row, true)
		d = e.scoreDelay(h, d, valid)
		a := e.scoreArea(h)
		top[i] = scored{
			tuple: all[i].tuple,
			eval: Evaluation{
				Sizes: all[i].tuple, Area: a, Delay: d, TRise: rise, TFall: fall,
				Cost: e.cost(a, d), Valid: valid,
			},
			devices: e.circuitDevices(h),
			ratios:  res.ratios,
		}
	}
	sort.SliceStable(top, func(i, j int) bool { return top[i].eval.Cost < top[j].eval.Cost })

	report := SearchReport{Outer: e.outer, Round: e.round, Group: group, SpName: sp}
	for _, r := range ranges {
		report.Elements = append(report.Elements, r.Elem)
	}
	for _, s := range all {
		report.All = append(report.All, s.eval)
	}
	for _, s := range top {
		report.Top = append(report.Top, s.eval)
	}
	if err := e.sink.RangeSearch(report); err != nil {
		e.log.Error(err, "recording range search", "subcircuit", sp)
	}

	w := top[0]
	e.log.V(1).Info("range search", "subcircuit", sp, "round", e.round, "tuples", len(tuples),
		"winner", w.tuple, "cost", w.eval.Cost, "area", w.eval.Area, "delay", w.eval.Delay)
	return &Candidate{
		Sizes:   tupleSizes(ranges, w.tuple),
		Devices: w.devices,
		Ratios:  w.ratios,
		Area:    w.eval.Area,
		Delay:   w.eval.Delay,
		TRise:   w.eval.TRise,
		TFall:   w.eval.TFall,
		Cost:    w.eval.Cost,
	}, nil
}

// expandSizes lists the device sizes of elements, P and N separately.
func expandSizes(devices map[string]float64, elems []string) map[string]float64 {
	out := make(map[string]float64)
	for _, elem := range elems {
		for _, suffix := range []string{params.SuffixNMOS, params.SuffixPMOS} {
			if v, ok := devices[elem+suffix]; ok {
				out[elem+suffix] = v
			}
		}
	}
	return out
}
