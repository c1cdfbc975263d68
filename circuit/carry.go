package circuit

import (
	"github.com/StephenMoreOSU/rad-gen-sub000/netlist"
	"github.com/StephenMoreOSU/rad-gen-sub000/params"
)

// newFullAdder builds the carry path of one full adder: the carry-in is
// buffered, passed through a propagate transmission gate and re-driven as
// carry-out. A second transmission gate taps the sum output.
func newFullAdder(id int) *Chain {
	c := newChain(KindCarryChain, id)
	c.inv("1", 1, 1)
	prop := c.sw("1", 1, true)
	sum := c.addTgate("2", 1, 1)
	prop.tap = func(w *netlist.Writer, in, out string) {
		w.Tgate(sum, in, "n_sum", netlist.NodeVDD, netlist.NodeGND)
	}
	mid := c.wire("1")
	c.inv("2", 1, 1)
	c.finish()

	c.wireRule = func(st *params.Store, a *Arena) {
		st.SetWire(mid, (st.MustWidth(prop.elem)+st.MustWidth(c.last().elem))/4, 0)
	}
	return c
}

// newCarryPerf buffers the sum output toward the carry mux.
func newCarryPerf(id int, mux *Mux) *Chain {
	c := newChain(KindCarryPerf, id)
	c.inv("1", 1, 1)
	out := c.wire("1")
	c.finish()

	c.wireRule = func(st *params.Store, a *Arena) {
		st.SetWire(out, st.MustWidth(mux.sp()+"_sram")/2, 0)
	}
	return c
}

// newCarryInter carries the chain between clusters.
func newCarryInter(id int) *Chain {
	c := newChain(KindCarryInter, id)
	c.inv("1", 1, 1)
	inter := c.wire("inter")
	c.inv("2", 1, 1)
	c.finish()

	c.wireRule = func(st *params.Store, a *Arena) {
		st.SetWire(inter, st.MustWidth(a.Meta(a.Tile()).SpName), 0)
	}
	return c
}

// newSkipAnd is the propagate AND tree of a carry-skip block, drawn as
// its two-level NAND/inverter critical path.
func newSkipAnd(id, skip int) *Chain {
	c := newChain(KindCarrySkipAnd, id)
	nand1 := c.nand("nand1", 1, 1)
	c.inv("1", 1, 1)
	c.nand("nand2", 1, 1)
	c.inv("2", 1, 1)
	c.finish()
	if skip > 2 {
		c.mult[nand1.elem] = float64(skip / 2)
	}
	return c
}

// CarryDelays are the measured delays the carry path formulas combine.
type CarryDelays struct {
	FA      float64
	Perf    float64
	Inter   float64
	AndTree float64
	SkipMux float64
}

// RippleDelay is the ripple-carry critical path of a cluster of n
// fracturable LUTs with fas adders each.
func RippleDelay(n, fas int, d CarryDelays) float64 {
	return float64(n*fas-2)*d.FA + d.Perf + d.Inter
}

// SkipDelay is the carry-skip critical path for skip-block size skip.
func SkipDelay(skip, fas int, d CarryDelays) float64 {
	s := float64(skip)
	return s*d.FA + d.AndTree + d.SkipMux +
		2*d.SkipMux +
		s*d.FA + d.Perf +
		float64(3-fas)*d.Inter
}
