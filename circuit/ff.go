package circuit

import (
	"github.com/StephenMoreOSU/rad-gen-sub000/netlist"
	"github.com/StephenMoreOSU/rad-gen-sub000/params"
)

// FlipFlop is a master-slave register built from two transmission-gate
// latches with keeper inverters, asynchronous set and reset devices and an
// output buffer. With register select it is preceded by a 2:1 switch.
// Its sizes are fixed.
type FlipFlop struct {
	*Chain

	Rsel  bool
	input string
}

func newFlipFlop(id int, rsel, tgate bool) *FlipFlop {
	c := newChain(KindFF, id)
	f := &FlipFlop{Chain: c, Rsel: rsel}

	if rsel {
		sel := c.sw("rsel", 1, tgate)
		sel.tap = func(w *netlist.Writer, in, out string) {
			switchOff(w, sel.elem, netlist.NodeGND, out, tgate)
		}
	}
	f.input = c.inv("1", 1, 1).elem

	master := c.sw("1", 1, true)
	set := c.addPlain("set", 0, 1)
	reset := c.addPlain("reset", 1, 0)
	master.tap = func(w *netlist.Writer, in, out string) {
		w.Pmos(set+params.SuffixPMOS, out, netlist.NodeVDD, netlist.NodeVDD)
		w.Nmos(reset+params.SuffixNMOS, out, netlist.NodeGND, netlist.NodeGND)
	}
	addLatch(c, "cc1")

	c.sw("2", 1, true)
	addLatch(c, "cc2")

	c.inv("out", 2, 2)
	out := c.wire("out")
	c.finish()

	c.wireRule = func(st *params.Store, a *Arena) {
		st.SetWire(out, st.MustWidth(c.sp())/4, 0)
	}
	return f
}

// addLatch adds a storage inverter with a keeper feeding its output back.
func addLatch(c *Chain, suffix string) {
	fwd := c.inv(suffix+"_1", 1, 1)
	keeper := c.addInv(suffix+"_2", 1, 1)
	fwd.tap = func(w *netlist.Writer, in, out string) {
		w.Inv(keeper, out, in)
	}
}

// InputElem is the first inverter, whose gate loads the LUT output.
func (f *FlipFlop) InputElem() string { return f.input }
