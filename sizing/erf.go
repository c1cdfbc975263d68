package sizing

import (
	"context"
	"math"

	"github.com/pkg/errors"

	"github.com/StephenMoreOSU/rad-gen-sub000/circuit"
	"github.com/StephenMoreOSU/rad-gen-sub000/params"
	"github.com/StephenMoreOSU/rad-gen-sub000/spice"
	"github.com/StephenMoreOSU/rad-gen-sub000/testbench"
)

// maxGrowRatio bounds grown/other before an inverter counts as self-loaded.
const maxGrowRatio = 4

// edges are one inverter's output edge delays.
type edges struct {
	rise, fall float64
}

func (d edges) imbalance() float64 { return math.Abs(d.rise - d.fall) }

// relImbalance is |trise - tfall| / min(trise, tfall).
func (d edges) relImbalance() float64 {
	return d.imbalance() / math.Min(d.rise, d.fall)
}

func stageEdges(row spice.Row, inv string) edges {
	return edges{rise: row.Get(testbench.MeasRise(inv)), fall: row.Get(testbench.MeasFall(inv))}
}

func (d edges) usable() bool {
	return !math.IsNaN(d.rise) && !math.IsNaN(d.fall) && d.rise >= 0 && d.fall >= 0
}

// restorerAdvice is appended to hard ERF failures.
const restorerAdvice = "the level restorer may be too strong; raise process.rest_length_factor"

// ERF balances the rise and fall delay of inv inside circuit h.
// Both devices start at the smaller of the current sizes; the slow edge's
// device grows until the edges cross, then the bound is refined. Sizes
// are written to the store; areas and wires are left to the caller.
func (e *Engine) ERF(ctx context.Context, h circuit.Handle, inv string) error {
	b, err := e.bench(h)
	if err != nil {
		return err
	}
	nName, pName := inv+params.SuffixNMOS, inv+params.SuffixPMOS
	s := math.Min(e.st.TransistorSizes[nName], e.st.TransistorSizes[pName])
	if e.finfet {
		s = math.Max(1, math.Round(s))
	}
	base, err := e.paramRow(b)
	if err != nil {
		return err
	}
	sp := e.arena.Meta(h).SpName
	log := e.log.V(1).WithValues("subcircuit", sp, "inverter", inv)

	rows, err := e.simulate(ctx, b, []map[string]float64{e.withSizes(base, nName, s, pName, s)})
	if err != nil {
		return err
	}
	probe := rows[0]
	if !probe.Valid() {
		return errors.Wrapf(probe.Err, "ERF %s: %s", inv, restorerAdvice)
	}
	d0 := stageEdges(probe, inv)
	if !d0.usable() {
		e.log.Info("negative delay at the starting size, keeping current sizes",
			"subcircuit", sp, "inverter", inv, "trise", d0.rise, "tfall", d0.fall)
		return nil
	}

	// Output rise is set by the pull-up.
	growP := d0.rise > d0.fall
	grow, other := nName, pName
	if growP {
		grow, other = pName, nName
	}
	assign := func(g float64) map[string]float64 {
		return e.withSizes(base, grow, g, other, s)
	}
	slow := func(d edges) float64 {
		if growP {
			return d.rise
		}
		return d.fall
	}
	crossed := func(d edges) bool {
		if growP {
			return d.rise <= d.fall
		}
		return d.fall <= d.rise
	}

	var steps []float64
	if e.finfet {
		for g := s + 1; g <= maxGrowRatio*s; g++ {
			steps = append(steps, g)
		}
	} else {
		for k := 2; k <= maxGrowRatio; k++ {
			steps = append(steps, s*float64(k))
		}
	}
	if len(steps) == 0 {
		return nil
	}
	batch := make([]map[string]float64, len(steps))
	for i, g := range steps {
		batch[i] = assign(g)
	}
	out, err := e.simulate(ctx, b, batch)
	if err != nil {
		return err
	}

	prevSize, prev := s, d0
	bound, boundEdges := steps[len(steps)-1], edges{}
	found := false
	for i, row := range out {
		if !row.Valid() {
			return errors.Wrapf(row.Err, "ERF %s at %g: %s", inv, steps[i], restorerAdvice)
		}
		d := stageEdges(row, inv)
		if !d.usable() {
			log.Info("negative delay, keeping current bound", "size", steps[i])
			bound, boundEdges = prevSize, prev
			found = true
			break
		}
		if crossed(d) {
			bound, boundEdges = steps[i], d
			found = true
			break
		}
		if slow(d) >= slow(prev) {
			log.Info(ErrErfDegenerate.Error(), "size", steps[i])
			bound, boundEdges = prevSize, prev
			found = true
			break
		}
		prevSize, prev = steps[i], d
	}
	if !found {
		log.Info(ErrErfDegenerate.Error(), "size", bound, "reason", "grow ratio limit")
		bound, boundEdges = prevSize, prev
	}

	best := bound
	switch {
	case bound == s:
	case e.finfet:
		// One fin is the finest step; keep whichever of the last two
		// counts is better balanced.
		if prevBelow := bound - 1; prevBelow >= s && crossed(boundEdges) {
			r, err := e.simulate(ctx, b, []map[string]float64{assign(prevBelow)})
			if err != nil {
				return err
			}
			if d := stageEdges(r[0], inv); r[0].Valid() && d.usable() && d.imbalance() < boundEdges.imbalance() {
				best = prevBelow
			}
		}
	default:
		lo := math.Max(s, bound-s)
		best, err = e.refine(ctx, b, inv, assign, lo, bound, 1)
		if err != nil {
			return err
		}
		step := 1 / e.minW
		best, err = e.refine(ctx, b, inv, assign, math.Max(s, best-1), best+1, step)
		if err != nil {
			return err
		}
	}

	e.st.TransistorSizes[grow] = best
	e.st.TransistorSizes[other] = s
	log.Info("balanced", "grow", grow, "size", best, "other", s)
	return nil
}

// refine sweeps the grow device over [lo, hi] in steps and returns the
// size with the smallest edge imbalance.
func (e *Engine) refine(ctx context.Context, b *bench, inv string, assign func(float64) map[string]float64, lo, hi, step float64) (float64, error) {
	var sizes []float64
	n := int(math.Round((hi - lo) / step))
	for i := 0; i <= n; i++ {
		sizes = append(sizes, lo+float64(i)*step)
	}
	batch := make([]map[string]float64, len(sizes))
	for i, g := range sizes {
		batch[i] = assign(g)
	}
	out, err := e.simulate(ctx, b, batch)
	if err != nil {
		return 0, err
	}
	best, bestImb := hi, math.Inf(1)
	for i, row := range out {
		d := stageEdges(row, inv)
		if !row.Valid() || !d.usable() {
			continue
		}
		if imb := d.imbalance(); imb < bestImb {
			best, bestImb = sizes[i], imb
		}
	}
	return best, nil
}

// withSizes copies row and overrides two devices.
func (e *Engine) withSizes(row map[string]float64, a string, sa float64, b string, sb float64) map[string]float64 {
	out := make(map[string]float64, len(row))
	for k, v := range row {
		out[k] = v
	}
	if _, ok := out[a]; ok {
		out[a] = e.deviceValue(sa)
	}
	if _, ok := out[b]; ok {
		out[b] = e.deviceValue(sb)
	}
	return out
}

// isProbed reports whether inv has a stage measurement in h's testbench.
func isProbed(b *bench, inv string) bool {
	for _, p := range b.probes {
		if p.Elem == inv {
			return true
		}
	}
	return false
}

// applySizes writes drive strengths for elements. Inverters keep the P/N
// ratio from ratios (1 when absent) with the smaller device at the drive
// strength. Restorers stay at 1 and transmission gates are symmetric.
func (e *Engine) applySizes(sizes map[string]float64, ratios map[string]float64) {
	ts := e.st.TransistorSizes
	round := func(v float64) float64 {
		if e.finfet {
			return math.Max(1, math.Round(v))
		}
		return v
	}
	set := func(device string, v float64) {
		if _, ok := ts[device]; ok {
			ts[device] = round(v)
		}
	}
	for elem, s := range sizes {
		n, p := elem+params.SuffixNMOS, elem+params.SuffixPMOS
		switch {
		case params.IsRestorer(elem):
			set(p, 1)
		case params.IsInverter(elem):
			r, ok := ratios[elem]
			if !ok || r <= 0 {
				r = 1
			}
			if r >= 1 {
				set(n, s)
				set(p, s*r)
			} else {
				set(n, s/r)
				set(p, s)
			}
		default:
			set(n, s)
			set(p, s)
		}
	}
}

// driveStrength reads an element's current drive strength.
func (e *Engine) driveStrength(elem string) float64 {
	ts := e.st.TransistorSizes
	n, hasN := ts[elem+params.SuffixNMOS]
	p, hasP := ts[elem+params.SuffixPMOS]
	switch {
	case hasN && hasP:
		return math.Min(n, p)
	case hasN:
		return n
	default:
		return p
	}
}

// ratio returns an inverter's P/N ratio.
func (e *Engine) ratio(inv string) float64 {
	ts := e.st.TransistorSizes
	n := ts[inv+params.SuffixNMOS]
	if n == 0 {
		return 1
	}
	return ts[inv+params.SuffixPMOS] / n
}

// erfResult is the outcome of a combo ERF.
type erfResult struct {
	ratios map[string]float64
	passes int
	// worst is the largest relative edge imbalance after the last pass.
	worst float64
	row   spice.Row
}

// comboERF applies sizes and re-balances every probed inverter among them
// until the worst imbalance is within tolerance or the pass limit is hit.
func (e *Engine) comboERF(ctx context.Context, h circuit.Handle, sizes map[string]float64, ratios map[string]float64) (*erfResult, error) {
	b, err := e.bench(h)
	if err != nil {
		return nil, err
	}
	e.applySizes(sizes, ratios)
	if err := e.Refresh(); err != nil {
		return nil, err
	}

	var invs []string
	for _, elem := range orderedElements(e.arena, h) {
		if _, ok := sizes[elem]; ok && params.IsInverter(elem) && isProbed(b, elem) {
			invs = append(invs, elem)
		}
	}

	tol := e.cfg.Sizing.ERFTolerance
	maxPasses := e.cfg.Sizing.ERFMaxPasses
	if maxPasses < 1 {
		maxPasses = 1
	}
	res := &erfResult{ratios: make(map[string]float64)}
	sp := e.arena.Meta(h).SpName
	for pass := 1; pass <= maxPasses; pass++ {
		for _, inv := range invs {
			if err := e.ERF(ctx, h, inv); err != nil {
				return nil, err
			}
		}
		if err := e.Refresh(); err != nil {
			return nil, err
		}
		row, err := e.measure(ctx, b)
		if err != nil {
			return nil, err
		}
		e.record("erf", sp, e.round, pass, row)
		res.passes, res.row = pass, row
		res.worst = 0
		for _, inv := range invs {
			d := stageEdges(row, inv)
			if !row.Valid() || !d.usable() {
				res.worst = math.Inf(1)
				continue
			}
			res.worst = math.Max(res.worst, d.relImbalance())
		}
		if res.worst <= tol {
			break
		}
		if pass == maxPasses {
			e.log.V(1).Info("ERF pass limit reached", "subcircuit", sp, "imbalance", res.worst, "passes", pass)
		}
	}
	for _, inv := range invs {
		res.ratios[inv] = e.ratio(inv)
	}
	for elem := range ratios {
		if _, ok := res.ratios[elem]; !ok {
			res.ratios[elem] = ratios[elem]
		}
	}
	return res, nil
}

// ComboERF applies sizes to h's elements and re-balances its probed
// inverters. It returns the resulting P/N ratio per inverter.
func (e *Engine) ComboERF(ctx context.Context, h circuit.Handle, sizes map[string]float64) (map[string]float64, error) {
	res, err := e.comboERF(ctx, h, sizes, nil)
	if err != nil {
		return nil, err
	}
	return res.ratios, nil
}

// orderedElements lists h's elements in netlist order.
func orderedElements(a *circuit.Arena, h circuit.Handle) []string {
	s, ok := a.Sizable(h)
	if !ok {
		return nil
	}
	return circuit.Elements(s)
}
