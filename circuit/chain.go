package circuit

import (
	"fmt"

	"github.com/StephenMoreOSU/rad-gen-sub000/netlist"
	"github.com/StephenMoreOSU/rad-gen-sub000/params"
)

type stageKind int

const (
	stageInv stageKind = iota
	stageNand
	stageSwitch
)

// chainStage is one element on the signal path of a Chain.
type chainStage struct {
	kind  stageKind
	elem  string
	tgate bool
	rest  string
	wire  string
	tap   func(w *netlist.Writer, in, out string)

	in, out, next string
}

// Chain is a sizable circuit whose signal path is a single line of
// inverters, NAND gates and switches with optional wires between them.
// Side loads hang off the path through taps.
type Chain struct {
	sized

	stages    []*chainStage
	inputWire string
	mult      map[string]float64
	sramCells int
	wireRule  func(st *params.Store, a *Arena)
}

func newChain(kind string, id int) *Chain {
	return &Chain{sized: newSized(kind, id), mult: make(map[string]float64)}
}

func (c *Chain) last() *chainStage { return c.stages[len(c.stages)-1] }

func (c *Chain) inv(suffix string, n, p float64) *chainStage {
	st := &chainStage{kind: stageInv, elem: c.addInv(suffix, n, p)}
	c.stages = append(c.stages, st)
	return st
}

func (c *Chain) nand(suffix string, n, p float64) *chainStage {
	st := &chainStage{kind: stageNand, elem: c.addPlain(suffix, n, p)}
	c.stages = append(c.stages, st)
	return st
}

// sw adds a conducting switch. Pass transistors get a level restorer on
// their output; the next stage must be an inverter to drive its gate.
func (c *Chain) sw(suffix string, size float64, tgate bool) *chainStage {
	st := &chainStage{kind: stageSwitch, elem: c.addSwitch(suffix, size, tgate), tgate: tgate}
	if !tgate {
		st.rest = c.addRest(suffix)
	}
	c.stages = append(c.stages, st)
	return st
}

// wire places a wire after the last stage.
func (c *Chain) wire(suffix string) string {
	w := c.addWire(suffix)
	c.last().wire = w
	return w
}

// finish assigns node names. It must run once the path is complete.
func (c *Chain) finish() {
	prev := "n_in"
	if c.inputWire != "" {
		prev = "n_in_w"
	}
	for i, st := range c.stages {
		st.in = prev
		st.out = fmt.Sprintf("n_%d", i+1)
		st.next = st.out
		if st.wire != "" {
			st.next = st.out + "_w"
		}
		if i == len(c.stages)-1 {
			if st.wire != "" {
				st.next = "n_out"
			} else {
				st.out, st.next = "n_out", "n_out"
			}
		}
		prev = st.next
	}
}

// Probe is a measured point on a circuit's signal path.
type Probe struct {
	Elem      string
	Node      string
	Inverting bool
}

// Probes returns the inverting stages with their output nodes and the
// path parity up to each of them.
func (c *Chain) Probes() []Probe {
	var out []Probe
	inverting := false
	for _, st := range c.stages {
		if st.kind == stageSwitch {
			continue
		}
		inverting = !inverting
		if st.kind == stageInv {
			out = append(out, Probe{Elem: st.elem, Node: st.out, Inverting: inverting})
		}
	}
	return out
}

// Inverting reports whether the whole path inverts.
func (c *Chain) Inverting() bool {
	inverting := false
	for _, st := range c.stages {
		if st.kind != stageSwitch {
			inverting = !inverting
		}
	}
	return inverting
}

// Subckt is the name of the chain's subcircuit.
func (c *Chain) Subckt() string { return c.sp() }

// UpdateArea implements Circuit.
func (c *Chain) UpdateArea(st *params.Store, a *Arena) {
	var area float64
	for _, e := range Elements(c) {
		m, ok := c.mult[e]
		if !ok {
			m = 1
		}
		area += m * st.MustArea(e)
	}
	st.SetArea(c.sp(), area)
	st.SetArea(c.sp()+"_sram", area+float64(c.sramCells)*st.MustArea("sram"))
}

// UpdateWires implements Circuit.
func (c *Chain) UpdateWires(st *params.Store, a *Arena) {
	if c.wireRule != nil {
		c.wireRule(st, a)
	}
}

// Generate implements Circuit.
func (c *Chain) Generate(w *netlist.Writer) {
	w.Subckt(c.Subckt(), "n_in", "n_out", netlist.NodeVDD, netlist.NodeGND)
	if c.inputWire != "" {
		w.Wire(c.inputWire, "n_in", "n_in_w")
	}
	for i, st := range c.stages {
		switch st.kind {
		case stageInv:
			w.Inv(st.elem, st.in, st.out)
		case stageNand:
			w.Nand2(st.elem, st.in, netlist.NodeVDD, st.out)
		case stageSwitch:
			if st.tgate {
				w.Tgate(st.elem, st.in, st.out, netlist.NodeVDD, netlist.NodeGND)
			} else {
				w.Ptran(st.elem, st.in, st.out, netlist.NodeVDD)
			}
		}
		if st.wire != "" {
			w.Wire(st.wire, st.out, st.next)
		}
		if st.rest != "" && i+1 < len(c.stages) {
			w.Rest(st.rest, st.next, c.stages[i+1].out)
		}
		if st.tap != nil {
			st.tap(w, st.in, st.out)
		}
	}
	w.Ends()
}
