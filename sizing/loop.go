package sizing

import (
	"context"
	"math"
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/StephenMoreOSU/rad-gen-sub000/circuit"
	"github.com/StephenMoreOSU/rad-gen-sub000/config"
	"github.com/StephenMoreOSU/rad-gen-sub000/testbench"
)

// UpdateDelays re-simulates every measured circuit, the fixed-size
// flip-flops included, and records its slower edge as its delay.
// Unusable rows record PenaltyDelay.
func (e *Engine) UpdateDelays(ctx context.Context) error {
	for _, h := range e.arena.Measured() {
		b, err := e.bench(h)
		if err != nil {
			return err
		}
		row, err := e.measure(ctx, b)
		if err != nil {
			return err
		}
		meta := e.arena.Meta(h)
		e.record("update_delays", meta.SpName, 0, 0, row)

		d, rise, fall, valid := evalDelay(row, true)
		if !valid {
			e.log.Info("unusable delay measurement", "subcircuit", meta.SpName, "err", row.Err)
		}
		meta.TRise, meta.TFall, meta.Delay = rise, fall, d
		meta.Power = row.Get(testbench.MeasAvgPower)
		e.st.Delay[meta.SpName] = d
	}
	return nil
}

// kindDelay averages the delays of every instance of kind. Kinds without
// a measured instance contribute zero.
func (e *Engine) kindDelay(delays map[string]float64, kind string) float64 {
	var ds []float64
	for _, h := range e.arena.OfKind(kind) {
		if d, ok := delays[e.arena.Meta(h).SpName]; ok {
			ds = append(ds, d)
		}
	}
	if len(ds) == 0 {
		return 0
	}
	return stat.Mean(ds, nil)
}

// kindWeight is the critical path share recorded on kind's instances.
func (e *Engine) kindWeight(kind string) float64 {
	for _, h := range e.arena.OfKind(kind) {
		return e.arena.Meta(h).DelayWeight
	}
	return 0
}

// CriticalPath is the representative critical path delay: each kind's
// average delay times its weight, with LUT inputs, the carry chain and
// the memory read path composed from their pieces.
func (e *Engine) CriticalPath(delays map[string]float64) float64 {
	arch := e.cfg.Arch
	kd := func(kind string) float64 { return e.kindDelay(delays, kind) }

	var terms []float64
	for _, kind := range []string{circuit.KindSBMux, circuit.KindCBMux, circuit.KindLocalMux,
		circuit.KindFLUTMux, circuit.KindLocalBLEOutput, circuit.KindGeneralBLEOutput} {
		terms = append(terms, e.kindWeight(kind)*kd(kind))
	}

	lut := kd(circuit.KindLUT)
	for i := 0; i < arch.K; i++ {
		drv, not := circuit.DriverKind(byte('a'+i), false), circuit.DriverKind(byte('a'+i), true)
		w := math.Max(e.kindWeight(drv), e.kindWeight(not))
		terms = append(terms, w*(lut+math.Max(kd(drv), kd(not))))
	}

	if arch.EnableCarryChain {
		cd := circuit.CarryDelays{
			FA:      kd(circuit.KindCarryChain),
			Perf:    kd(circuit.KindCarryPerf),
			Inter:   kd(circuit.KindCarryInter),
			AndTree: kd(circuit.KindCarrySkipAnd),
			SkipMux: kd(circuit.KindCarrySkipMux),
		}
		path := circuit.RippleDelay(arch.N, arch.FAsPerFLUT, cd)
		if arch.CarryChainType == config.CarrySkip {
			path = circuit.SkipDelay(arch.SkipSize, arch.FAsPerFLUT, cd)
		}
		terms = append(terms, e.kindWeight(circuit.KindCarryChain)*path)
	}

	if arch.EnableBRAM {
		read := floats.Sum([]float64{
			kd(circuit.KindRAMLocalMux), kd(circuit.KindRowDecoder), kd(circuit.KindWordlineDriver),
			kd(circuit.KindSenseAmp), kd(circuit.KindOutputCrossbar),
		})
		terms = append(terms, e.kindWeight(circuit.KindRAMLocalMux)*read)
	}
	return floats.Sum(terms)
}

// TileArea returns the current tile area in nm^2.
func (e *Engine) TileArea() float64 {
	return e.st.MustArea(e.arena.Meta(e.arena.Tile()).SpName)
}

// TileCost is the area-delay cost of the whole tile.
func (e *Engine) TileCost() (area, delay, cost float64) {
	area = e.TileArea()
	delay = e.CriticalPath(e.st.Delay)
	return area, delay, e.cost(area, delay)
}

// quickMode tracks which buckets are still worth resizing.
type quickMode struct {
	enabled   bool
	threshold float64
	active    map[string]bool
}

func newQuickMode(enabled bool, threshold float64, buckets []circuit.Bucket) *quickMode {
	q := &quickMode{enabled: enabled, threshold: threshold, active: make(map[string]bool)}
	for _, b := range buckets {
		q.active[b.Name] = true
	}
	return q
}

func (q *quickMode) skip(bucket string) bool {
	return q.enabled && !q.active[bucket]
}

// observe clears a bucket whose resizing improved cost by less than the
// threshold, relative to before.
func (q *quickMode) observe(bucket string, before, after float64) {
	if !q.enabled || before <= 0 {
		return
	}
	if (before-after)/before < q.threshold {
		q.active[bucket] = false
	}
}

func (q *quickMode) done() bool {
	if !q.enabled {
		return false
	}
	for _, on := range q.active {
		if on {
			return false
		}
	}
	return true
}

// Outcome is the result of a sizing run.
type Outcome struct {
	// Iterations holds the seed state as iteration 0 followed by every
	// outer iteration.
	Iterations []IterationRecord
	Best       int
	Final      IterationRecord
	// Converged is false when the iteration limit ended the run.
	Converged bool
}

func (e *Engine) snapshot(iter int, skipped []string) IterationRecord {
	area, delay, cost := e.TileCost()
	delays := make(map[string]float64, len(e.st.Delay))
	for k, v := range e.st.Delay {
		delays[k] = v
	}
	return IterationRecord{
		Iteration: iter, Area: area, Delay: delay, Cost: cost,
		Delays: delays, Sizes: e.st.Sizes(), Skipped: skipped,
	}
}

// Run sizes the tile. Each outer iteration walks the sizing order, sizes
// every active bucket and refreshes all delays after each circuit. The
// loop ends when quick mode has cleared every bucket, the cost stops
// improving or MaxIterations is reached; the best iteration's sizes are
// then installed.
func (e *Engine) Run(ctx context.Context) (*Outcome, error) {
	order := e.arena.SizingOrder()
	q := newQuickMode(e.cfg.Sizing.QuickMode, e.cfg.Sizing.QuickModeThreshold, order)

	if err := e.UpdateDelays(ctx); err != nil {
		return nil, err
	}
	out := &Outcome{}
	seed := e.snapshot(0, nil)
	out.Iterations = append(out.Iterations, seed)
	e.emitIteration(seed)
	e.log.Info("seed", "area", seed.Area, "delay", seed.Delay, "cost", seed.Cost)

	prevCost := seed.Cost
	for iter := 1; iter <= e.cfg.Sizing.MaxIterations; iter++ {
		e.outer = iter
		var skipped []string
		for _, bucket := range order {
			if q.skip(bucket.Name) {
				skipped = append(skipped, bucket.Name)
				continue
			}
			if err := ctx.Err(); err != nil {
				return nil, errors.Wrapf(err, "iteration %d interrupted before %s", iter, bucket.Name)
			}
			_, _, before := e.TileCost()
			for _, h := range bucket.Handles {
				if _, err := e.SizeSubcircuit(ctx, h); err != nil {
					return nil, err
				}
				if err := e.UpdateDelays(ctx); err != nil {
					return nil, err
				}
			}
			_, _, after := e.TileCost()
			q.observe(bucket.Name, before, after)
			e.log.V(1).Info("bucket sized", "iteration", iter, "bucket", bucket.Name, "before", before, "after", after)
		}

		rec := e.snapshot(iter, skipped)
		out.Iterations = append(out.Iterations, rec)
		e.emitIteration(rec)
		e.log.Info("iteration", "n", iter, "area", rec.Area, "delay", rec.Delay, "cost", rec.Cost, "skipped", len(skipped))

		if q.done() {
			e.log.Info("quick mode cleared every bucket", "iteration", iter)
			out.Converged = true
			break
		}
		if rec.Cost >= prevCost {
			out.Converged = true
			break
		}
		prevCost = rec.Cost
	}
	if !out.Converged {
		e.log.Info(ErrConvergenceNotReached.Error(), "iterations", e.cfg.Sizing.MaxIterations)
	}

	out.Best = bestIteration(out.Iterations)
	if err := e.Install(ctx, out.Iterations[out.Best].Sizes); err != nil {
		return nil, err
	}
	out.Final = e.snapshot(out.Best, nil)
	e.log.Info("installed", "iteration", out.Best, "area", out.Final.Area, "delay", out.Final.Delay, "cost", out.Final.Cost)
	return out, nil
}

// Install replaces every transistor size, brings the store back in sync
// and refreshes the delays.
func (e *Engine) Install(ctx context.Context, sizes map[string]float64) error {
	for name := range e.st.TransistorSizes {
		if _, ok := sizes[name]; !ok {
			return errors.Wrapf(ErrParameterMismatch, "size map has no %q", name)
		}
	}
	e.st.InstallSizes(sizes)
	if err := e.Refresh(); err != nil {
		return err
	}
	return e.UpdateDelays(ctx)
}

func (e *Engine) emitIteration(rec IterationRecord) {
	if err := e.sink.Iteration(rec); err != nil {
		e.log.Error(err, "recording iteration", "iteration", rec.Iteration)
	}
}

// bestIteration returns the index of the lowest cost, the earliest on a
// tie.
func bestIteration(recs []IterationRecord) int {
	idx := make([]int, len(recs))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return recs[idx[a]].Cost < recs[idx[b]].Cost })
	return idx[0]
}
