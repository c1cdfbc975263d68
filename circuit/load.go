package circuit

import (
	"fmt"
	"math"

	"github.com/StephenMoreOSU/rad-gen-sub000/netlist"
	"github.com/StephenMoreOSU/rad-gen-sub000/params"
)

// Load is a non-sized circuit that only contributes wires and the gate and
// diffusion load of other circuits' off-path copies.
type Load struct {
	base
	gen      func(w *netlist.Writer)
	wireRule func(st *params.Store, a *Arena)
}

func newLoad(kind string, id int) *Load {
	l := &Load{base: newBase(kind, id)}
	l.meta.NumPerTile = 0
	return l
}

// Subckt names the load's subcircuit.
func (l *Load) Subckt() string { return l.sp() }

// UpdateArea implements Circuit; loads have no area of their own.
func (l *Load) UpdateArea(st *params.Store, a *Arena) {}

// UpdateWires implements Circuit.
func (l *Load) UpdateWires(st *params.Store, a *Arena) {
	if l.wireRule != nil {
		l.wireRule(st, a)
	}
}

// Generate implements Circuit.
func (l *Load) Generate(w *netlist.Writer) {
	if l.gen != nil {
		l.gen(w)
	}
}

// muxPorts are the control and supply nodes passed to every mux copy.
var muxPorts = []string{"n_gate", "n_gate_n", netlist.NodeVDD, netlist.NodeGND}

func muxInstance(w *netlist.Writer, inst, subckt, in string) {
	w.Instance(inst, subckt, append([]string{in}, muxPorts...)...)
}

// tapMuxes hangs one partial copy and off copies of m behind a wire.
func tapMuxes(w *netlist.Writer, m *Mux, wirePartial, wireOff, node, tag string, partial, off int) {
	if partial > 0 {
		w.Wire(wirePartial, node, node+"_"+tag+"p")
	}
	for i := 0; i < partial; i++ {
		muxInstance(w, fmt.Sprintf("%s_partial_%s_%d", m.sp(), node, i), m.PartialSubckt(), node+"_"+tag+"p")
	}
	if off > 0 {
		w.Wire(wireOff, node, node+"_"+tag+"o")
	}
	for i := 0; i < off; i++ {
		muxInstance(w, fmt.Sprintf("%s_off_%s_%d", m.sp(), node, i), m.OffSubckt(), node+"_"+tag+"o")
	}
}

// newRoutingLoad is a general routing wire spanning length tiles with the
// switch and connection block muxes it passes.
func newRoutingLoad(id, length int, sb, cb *Mux, sbH, cbH Handle, sbTaps, cbTaps, topLayer int) *Load {
	l := newLoad(KindRoutingWireLoad, id)
	l.uses = []Handle{sbH, cbH}
	gen := l.addWire("gen_routing")
	sbOn := l.addWire("sb_load_on")
	sbPartial := l.addWire("sb_load_partial")
	sbOff := l.addWire("sb_load_off")
	cbPartial := l.addWire("cb_load_partial")
	cbOff := l.addWire("cb_load_off")

	l.gen = func(w *netlist.Writer) {
		w.Subckt(l.Subckt(), append([]string{"n_in", "n_out"}, muxPorts...)...)
		node := "n_in"
		for t := 1; t <= length; t++ {
			next := fmt.Sprintf("n_%d", t)
			w.Wire(gen, node, next)
			tapMuxes(w, sb, sbPartial, sbOff, next, "sb", 1, sbTaps-1)
			tapMuxes(w, cb, cbPartial, cbOff, next, "cb", 1, cbTaps-1)
			node = next
		}
		w.Wire(sbOn, node, "n_out")
		w.Ends()
	}
	l.wireRule = func(st *params.Store, a *Arena) {
		tile := st.MustWidth(a.Meta(a.Tile()).SpName)
		sbW := st.MustWidth(sb.sp() + "_sram")
		cbW := st.MustWidth(cb.sp() + "_sram")
		st.SetWire(gen, tile, topLayer)
		st.SetWire(sbOn, sbW/2, 0)
		st.SetWire(sbPartial, sbW/2, 0)
		st.SetWire(sbOff, sbW/2, 0)
		st.SetWire(cbPartial, cbW/2, 0)
		st.SetWire(cbOff, cbW/2, 0)
	}
	return l
}

// newLocalRoutingLoad is a cluster-local routing wire feeding local muxes.
func newLocalRoutingLoad(id int, local *Mux, localH Handle, taps int, ratio float64) *Load {
	l := newLoad(KindLocalRoutingWireLoad, id)
	l.uses = []Handle{localH}
	routing := l.addWire("local_routing")
	partial := l.addWire("local_mux_load_partial")
	off := l.addWire("local_mux_load_off")
	on := l.addWire("local_mux_load_on")

	l.gen = func(w *netlist.Writer) {
		w.Subckt(l.Subckt(), append([]string{"n_in", "n_out"}, muxPorts...)...)
		w.Wire(routing, "n_in", "n_1")
		tapMuxes(w, local, partial, off, "n_1", "lm", 1, taps-2)
		w.Wire(on, "n_1", "n_out")
		w.Ends()
	}
	l.wireRule = func(st *params.Store, a *Arena) {
		cluster := st.MustWidth(a.Meta(a.Cluster()).SpName)
		lw := st.MustWidth(local.sp() + "_sram")
		st.SetWire(routing, cluster*ratio/2, 0)
		st.SetWire(partial, lw/2, 0)
		st.SetWire(off, lw/2, 0)
		st.SetWire(on, lw/2, 0)
	}
	return l
}

// newLUTOutputLoad is the LUT output net: the flip-flop input and the
// BLE output muxes it can reach.
func newLUTOutputLoad(id int, lut *LUT, ff *FlipFlop, local, general *Mux, handles []Handle, ofb, or int) *Load {
	l := newLoad(KindLUTOutputLoad, id)
	l.uses = handles
	out := l.addWire("")
	toFF := l.addWire("ff")

	l.gen = func(w *netlist.Writer) {
		w.Subckt(l.Subckt(), append([]string{"n_in"}, muxPorts...)...)
		w.Wire(out, "n_in", "n_1")
		muxes := []struct {
			m     *Mux
			count int
		}{{local, ofb}, {general, or}}
		for _, mc := range muxes {
			for i := 0; i < mc.count; i++ {
				muxInstance(w, fmt.Sprintf("%s_partial_%d", mc.m.sp(), i), mc.m.PartialSubckt(), "n_1")
			}
		}
		w.Wire(toFF, "n_1", "n_2")
		w.Inv(ff.InputElem(), "n_2", "n_ff")
		w.Ends()
	}
	l.wireRule = func(st *params.Store, a *Arena) {
		st.SetWire(out, st.MustWidth(lut.sp())/2, 0)
		st.SetWire(toFF, st.MustWidth(ff.sp())/2, 0)
	}
	return l
}

// newLocalBLEOutputLoad is the feedback wire from a BLE back into the
// cluster's local muxes.
func newLocalBLEOutputLoad(id int, local *Mux, localH Handle, taps int, ratio float64) *Load {
	l := newLoad(KindLocalBLEOutputLoad, id)
	l.uses = []Handle{localH}
	fb := l.addWire("local_ble_output_feedback")
	partial := l.addWire("local_mux_load_partial")
	off := l.addWire("local_mux_load_off")

	l.gen = func(w *netlist.Writer) {
		w.Subckt(l.Subckt(), append([]string{"n_in"}, muxPorts...)...)
		w.Wire(fb, "n_in", "n_1")
		tapMuxes(w, local, partial, off, "n_1", "lm", 1, taps-1)
		w.Ends()
	}
	l.wireRule = func(st *params.Store, a *Arena) {
		cluster := st.MustWidth(a.Meta(a.Cluster()).SpName)
		lw := st.MustWidth(local.sp() + "_sram")
		st.SetWire(fb, cluster*ratio, 0)
		st.SetWire(partial, lw/2, 0)
		st.SetWire(off, lw/2, 0)
	}
	return l
}

// newGeneralBLEOutputLoad is a cluster output driving the switch block
// muxes that can pick it up.
func newGeneralBLEOutputLoad(id int, sb *Mux, sbH Handle, taps int) *Load {
	l := newLoad(KindGeneralBLEOutputLoad, id)
	l.uses = []Handle{sbH}
	out := l.addWire("general_ble_output")
	partial := l.addWire("sb_load_partial")
	off := l.addWire("sb_load_off")

	l.gen = func(w *netlist.Writer) {
		w.Subckt(l.Subckt(), append([]string{"n_in"}, muxPorts...)...)
		w.Wire(out, "n_in", "n_1")
		tapMuxes(w, sb, partial, off, "n_1", "sb", 1, taps-1)
		w.Ends()
	}
	l.wireRule = func(st *params.Store, a *Arena) {
		cluster := st.MustWidth(a.Meta(a.Cluster()).SpName)
		sbW := st.MustWidth(sb.sp() + "_sram")
		st.SetWire(out, cluster/4, 0)
		st.SetWire(partial, sbW/2, 0)
		st.SetWire(off, sbW/2, 0)
	}
	return l
}

// atLeast rounds x to the nearest integer and clamps it from below.
func atLeast(x float64, floor int) int {
	n := int(math.Round(x))
	if n < floor {
		return floor
	}
	return n
}
