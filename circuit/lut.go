package circuit

import (
	"fmt"

	"github.com/StephenMoreOSU/rad-gen-sub000/netlist"
	"github.com/StephenMoreOSU/rad-gen-sub000/params"
)

// LUT is a K-input look-up table: 2^K SRAM drivers feeding a binary tree of
// K switch levels, with a buffer after level 3 and an output buffer.
type LUT struct {
	sized

	K     int
	tgate bool

	sramDriver string
	levels     []string
	intRest    string
	intBuf1    string
	intBuf2    string
	outRest    string
	outBuf1    string
	outBuf2    string

	wireSRAM   string
	wireLevels []string
	wireInt    string
	wireOut    string
}

// intLevel is the level after which the internal buffer sits.
const intLevel = 3

func newLUT(id, k int, tgate bool) *LUT {
	l := &LUT{sized: newSized(KindLUT, id), K: k, tgate: tgate}
	l.sramDriver = l.addInv("sram_driver", 1, 1)
	for j := 1; j <= k; j++ {
		l.levels = append(l.levels, l.addSwitch(fmt.Sprintf("L%d", j), 2, tgate))
		l.wireLevels = append(l.wireLevels, l.addWire(fmt.Sprintf("L%d", j)))
	}
	if !tgate {
		l.intRest = l.addRest("int_buffer")
	}
	l.intBuf1 = l.addInv("int_buffer_1", 1, 1)
	l.intBuf2 = l.addInv("int_buffer_2", 1, 1)
	if !tgate {
		l.outRest = l.addRest("out_buffer")
	}
	l.outBuf1 = l.addInv("out_buffer_1", 1, 1)
	l.outBuf2 = l.addInv("out_buffer_2", 4, 4)

	l.wireSRAM = l.addWire("sram_driver")
	l.wireInt = l.addWire("int_buffer")
	l.wireOut = l.addWire("out_buffer")
	return l
}

// Level returns the switch element of level j, 1-based.
func (l *LUT) Level(j int) string { return l.levels[j-1] }

// OnSubckt names the LUT subcircuit with one conducting path.
func (l *LUT) OnSubckt() string { return l.sp() + "_on" }

// Probes returns the LUT's inverters with their output nodes.
func (l *LUT) Probes() []Probe {
	return []Probe{
		{Elem: l.sramDriver, Node: "n_0", Inverting: true},
		{Elem: l.intBuf1, Node: "n_ib_1", Inverting: false},
		{Elem: l.intBuf2, Node: "n_ib_2", Inverting: true},
		{Elem: l.outBuf1, Node: "n_ob_1", Inverting: false},
		{Elem: l.outBuf2, Node: "n_out", Inverting: true},
	}
}

// UpdateArea implements Circuit.
func (l *LUT) UpdateArea(st *params.Store, a *Arena) {
	area := float64(uint(1)<<l.K) * st.MustArea(l.sramDriver)
	for j := 1; j <= l.K; j++ {
		area += float64(uint(1)<<(l.K-j+1)) * st.MustArea(l.Level(j))
	}
	nInt := float64(uint(1) << (l.K - intLevel))
	area += nInt * elementsArea(st, l.intBuf1, l.intBuf2)
	area += elementsArea(st, l.outBuf1, l.outBuf2)
	if !l.tgate {
		area += nInt*st.MustArea(l.intRest) + st.MustArea(l.outRest)
	}
	st.SetArea(l.sp(), area)
	st.SetArea(l.sp()+"_sram", area+float64(uint(1)<<l.K)*st.MustArea("sram"))
}

// UpdateWires implements Circuit.
func (l *LUT) UpdateWires(st *params.Store, a *Arena) {
	st.SetWire(l.wireSRAM, (st.MustWidth(l.sramDriver)+st.MustWidth(l.Level(1)))/4, 0)
	for j := 1; j <= l.K; j++ {
		st.SetWire(l.wireLevels[j-1], float64(uint(1)<<(j-1))*st.MustWidth(l.Level(j)), 0)
	}
	st.SetWire(l.wireInt, (st.MustWidth(l.intBuf1)+st.MustWidth(l.intBuf2))/4, 0)
	st.SetWire(l.wireOut, (st.MustWidth(l.outBuf1)+st.MustWidth(l.outBuf2))/4, 0)
}

// Generate implements Circuit.
func (l *LUT) Generate(w *netlist.Writer) {
	w.Subckt(l.OnSubckt(), "n_in", "n_out", "n_gate", "n_gate_n", netlist.NodeVDD, netlist.NodeGND)
	w.Inv(l.sramDriver, "n_in", "n_0")
	w.Wire(l.wireSRAM, "n_0", "n_0_w")
	node := "n_0_w"
	for j := 1; j <= l.K; j++ {
		out := fmt.Sprintf("n_%d", j)
		switchOn(w, l.Level(j), node, out, l.tgate)
		switchOff(w, l.Level(j), netlist.NodeGND, out, l.tgate)
		w.Wire(l.wireLevels[j-1], out, out+"_w")
		node = out + "_w"
		if j == intLevel {
			if l.intRest != "" {
				w.Rest(l.intRest, node, "n_ib_1")
			}
			w.Inv(l.intBuf1, node, "n_ib_1")
			w.Wire(l.wireInt, "n_ib_1", "n_ib_1_w")
			w.Inv(l.intBuf2, "n_ib_1_w", "n_ib_2")
			node = "n_ib_2"
		}
	}
	if l.outRest != "" {
		w.Rest(l.outRest, node, "n_ob_1")
	}
	w.Inv(l.outBuf1, node, "n_ob_1")
	w.Wire(l.wireOut, "n_ob_1", "n_ob_1_w")
	w.Inv(l.outBuf2, "n_ob_1_w", "n_out")
	w.Ends()
}
