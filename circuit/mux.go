package circuit

import (
	"math"

	"github.com/StephenMoreOSU/rad-gen-sub000/netlist"
	"github.com/StephenMoreOSU/rad-gen-sub000/params"
)

// MuxSeeds are the initial drive strengths of a two-level mux. Restorers
// always start at 1. A zero Inv2N means the mux has no second inverter.
type MuxSeeds struct {
	L1, L2       float64
	Inv1N, Inv1P float64
	Inv2N, Inv2P float64
}

// Seed schedules per mux kind.
var (
	SBMuxSeeds            = MuxSeeds{L1: 3, L2: 4, Inv1N: 4, Inv1P: 8, Inv2N: 10, Inv2P: 20}
	CBMuxSeeds            = MuxSeeds{L1: 2, L2: 2, Inv1N: 2, Inv1P: 2, Inv2N: 6, Inv2P: 12}
	LocalMuxSeeds         = MuxSeeds{L1: 2, L2: 2, Inv1N: 2, Inv1P: 2}
	LocalBLEOutputSeeds   = MuxSeeds{L1: 2, L2: 2, Inv1N: 1, Inv1P: 1, Inv2N: 4, Inv2P: 4}
	GeneralBLEOutputSeeds = MuxSeeds{L1: 2, L2: 2, Inv1N: 1, Inv1P: 1, Inv2N: 5, Inv2P: 5}
	CarryMuxSeeds         = MuxSeeds{L1: 2, L2: 2, Inv1N: 1, Inv1P: 1, Inv2N: 5, Inv2P: 5}
	UnitMuxSeeds          = MuxSeeds{L1: 1, L2: 1, Inv1N: 1, Inv1P: 1, Inv2N: 1, Inv2P: 1}
)

// MuxLevels splits a required mux size into level-1 and level-2 widths:
// level2 = floor(sqrt(k)), level1 = ceil(k / level2).
func MuxLevels(required int) (level1, level2 int) {
	if required < 1 {
		required = 1
	}
	level2 = int(math.Floor(math.Sqrt(float64(required))))
	level1 = (required + level2 - 1) / level2
	return level1, level2
}

// Mux is a two-level pass-transistor or transmission-gate multiplexer
// followed by a level restorer and one or two buffer inverters.
type Mux struct {
	sized

	Required    int
	Level1      int
	Level2      int
	Implemented int
	Unused      int
	SRAMPerMux  int

	tgate     bool
	inCluster bool

	sw1, sw2, rest, inv1, inv2 string
	wireL1, wireL2, wireDriver string
}

func newMux(kind string, id, required int, tgate, inCluster bool, seeds MuxSeeds) *Mux {
	m := &Mux{sized: newSized(kind, id), Required: required, tgate: tgate, inCluster: inCluster}
	m.Level1, m.Level2 = MuxLevels(required)
	m.Implemented = m.Level1 * m.Level2
	m.Unused = m.Implemented - required
	if m.Unused < 0 {
		m.Unused = 0
	}
	m.SRAMPerMux = m.Level1 + m.Level2

	m.sw1 = m.addSwitch("L1", seeds.L1, tgate)
	m.sw2 = m.addSwitch("L2", seeds.L2, tgate)
	if !tgate {
		m.rest = m.addRest("")
	}
	m.inv1 = m.addInv("1", seeds.Inv1N, seeds.Inv1P)
	if seeds.Inv2N > 0 {
		m.inv2 = m.addInv("2", seeds.Inv2N, seeds.Inv2P)
	}

	m.wireL1 = m.addWire("L1")
	m.wireL2 = m.addWire("L2")
	m.wireDriver = m.addWire("driver")
	return m
}

// Inverters returns the buffer inverter elements in signal order.
func (m *Mux) Inverters() []string {
	if m.inv2 == "" {
		return []string{m.inv1}
	}
	return []string{m.inv1, m.inv2}
}

// OnSubckt, OffSubckt and PartialSubckt name the mux flavours seen by a
// signal. BasicOnSubckt is the conducting path without the output driver.
func (m *Mux) OnSubckt() string      { return m.sp() + "_on" }
func (m *Mux) OffSubckt() string     { return m.sp() + "_off" }
func (m *Mux) PartialSubckt() string { return m.sp() + "_partial" }
func (m *Mux) BasicOnSubckt() string { return m.sp() + "_basic_on" }

// StageNode returns the node an inverter of the on-mux drives.
func (m *Mux) StageNode(inv string) string {
	if inv != "" && inv == m.inv2 {
		return "n_out"
	}
	return "n_3_1"
}

// UpdateArea implements Circuit.
func (m *Mux) UpdateArea(st *params.Store, a *Arena) {
	area := float64(m.Level1*m.Level2)*st.MustArea(m.sw1) +
		float64(m.Level2)*st.MustArea(m.sw2) +
		st.MustArea(m.inv1)
	if m.inv2 != "" {
		area += st.MustArea(m.inv2)
	}
	if m.rest != "" {
		area += st.MustArea(m.rest)
	}
	st.SetArea(m.sp(), area)
	st.SetArea(m.sp()+"_sram", area+float64(m.SRAMPerMux)*st.MustArea("sram"))
}

// UpdateWires implements Circuit.
func (m *Mux) UpdateWires(st *params.Store, a *Arena) {
	ratio := 1.0
	if m.inCluster {
		ratio = a.cfg.Process.ClusterHeightRatio
	}
	drv := st.MustWidth(m.inv1)
	if m.inv2 != "" {
		drv += st.MustWidth(m.inv2)
	}
	st.SetWire(m.wireDriver, drv/4, 0)
	st.SetWire(m.wireL1, st.MustWidth(m.sp())*ratio, 0)
	st.SetWire(m.wireL2, st.MustWidth(m.sp())*ratio, 0)
}

// Generate implements Circuit.
func (m *Mux) Generate(w *netlist.Writer) {
	ports := []string{"n_in", "n_gate", "n_gate_n", netlist.NodeVDD, netlist.NodeGND}

	w.Subckt(m.OffSubckt(), ports...)
	switchOff(w, m.sw1, "n_in", "n_1_1", m.tgate)
	w.Ends()

	w.Subckt(m.PartialSubckt(), ports...)
	switchOn(w, m.sw1, "n_in", "n_1_1", m.tgate)
	m.offSiblings(w, m.sw1, m.Level1-1, "n_1_1")
	w.Wire(m.wireL1, "n_1_1", "n_1_2")
	switchOff(w, m.sw2, "n_1_2", "n_2_1", m.tgate)
	w.Ends()

	w.Subckt(m.BasicOnSubckt(), "n_in", "n_2_2", "n_gate", "n_gate_n", netlist.NodeVDD, netlist.NodeGND)
	m.onPath(w)
	w.Ends()

	w.Subckt(m.OnSubckt(), "n_in", "n_out", "n_gate", "n_gate_n", netlist.NodeVDD, netlist.NodeGND)
	m.onPath(w)
	if m.rest != "" {
		w.Rest(m.rest, "n_2_2", "n_3_1")
	}
	w.Inv(m.inv1, "n_2_2", "n_3_1")
	if m.inv2 == "" {
		w.Wire(m.wireDriver, "n_3_1", "n_out")
	} else {
		w.Wire(m.wireDriver, "n_3_1", "n_3_2")
		w.Inv(m.inv2, "n_3_2", "n_out")
	}
	w.Ends()
}

// onPath writes both conducting levels from n_in to n_2_2.
func (m *Mux) onPath(w *netlist.Writer) {
	switchOn(w, m.sw1, "n_in", "n_1_1", m.tgate)
	m.offSiblings(w, m.sw1, m.Level1-1, "n_1_1")
	w.Wire(m.wireL1, "n_1_1", "n_1_2")
	switchOn(w, m.sw2, "n_1_2", "n_2_1", m.tgate)
	m.offSiblings(w, m.sw2, m.Level2-1, "n_2_1")
	w.Wire(m.wireL2, "n_2_1", "n_2_2")
}

// offSiblings hangs count cut-off switches on node.
func (m *Mux) offSiblings(w *netlist.Writer, sw string, count int, node string) {
	for i := 0; i < count; i++ {
		switchOff(w, sw, netlist.NodeGND, node, m.tgate)
	}
}
