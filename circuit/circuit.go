// Package circuit models the sizable sub-circuits of an FPGA tile.
//
// Each circuit owns a namespaced set of transistor and wire names, knows how
// to compute its own area and wire lengths from the shared parameter store,
// and can emit its SPICE subcircuits. Circuits live in an Arena and refer to
// each other by Handle.
package circuit

import (
	"sort"

	"github.com/StephenMoreOSU/rad-gen-sub000/netlist"
	"github.com/StephenMoreOSU/rad-gen-sub000/params"
)

// Circuit kinds. The kind is also the sp_name prefix of every instance.
const (
	KindSBMux            = "sb_mux"
	KindCBMux            = "cb_mux"
	KindLocalMux         = "local_mux"
	KindLUT              = "lut"
	KindFLUTMux          = "flut_mux"
	KindLocalBLEOutput   = "local_ble_output"
	KindGeneralBLEOutput = "general_ble_output"
	KindFF               = "ff"

	KindCarryChain   = "carry_chain"
	KindCarryPerf    = "carry_chain_perf"
	KindCarryInter   = "carry_chain_inter"
	KindCarryMux     = "carry_chain_mux"
	KindCarrySkipAnd = "carry_chain_skip_and"
	KindCarrySkipMux = "carry_chain_skip_mux"

	KindRAMLocalMux    = "ram_local_mux"
	KindRowDecoder     = "row_decoder"
	KindWordlineDriver = "wordline_driver"
	KindColumnDecoder  = "column_decoder"
	KindPrecharge      = "precharge"
	KindWriteDriver    = "write_driver"
	KindSenseAmp       = "sense_amp"
	KindOutputCrossbar = "output_crossbar"

	KindRoutingWireLoad      = "routing_wire_load"
	KindLocalRoutingWireLoad = "local_routing_wire_load"
	KindLUTOutputLoad        = "lut_output_load"
	KindLocalBLEOutputLoad   = "local_ble_output_load"
	KindGeneralBLEOutputLoad = "general_ble_output_load"

	KindLogicCluster = "logic_cluster"
	KindMemoryBlock  = "memory_block"
	KindTile         = "tile"
)

// Handle indexes a circuit in an Arena.
type Handle int

// None is the zero reference.
const None Handle = -1

// Meta carries the per-instance scalars every circuit has.
type Meta struct {
	Kind   string
	ID     int
	SpName string

	// NumPerTile is how many copies one tile holds.
	NumPerTile int

	// DelayWeight is the share of this kind in the representative
	// critical path.
	DelayWeight float64

	// Latest measured values, in seconds and watts.
	TRise float64
	TFall float64
	Delay float64
	Power float64
}

// Circuit is the capability every arena member has.
type Circuit interface {
	Meta() *Meta
	WireNames() []string

	// UpdateArea writes this circuit's area entries. Device and composite
	// areas must already be rolled up.
	UpdateArea(st *params.Store, a *Arena)

	// UpdateWires writes this circuit's wire lengths and layers. All areas
	// must already be computed.
	UpdateWires(st *params.Store, a *Arena)

	// Generate emits the circuit's subcircuits.
	Generate(w *netlist.Writer)

	// Uses lists the circuits whose subcircuits this one instantiates.
	Uses() []Handle
}

// Sizable is a circuit with its own transistors.
type Sizable interface {
	Circuit
	TransistorNames() []string
	InitialSizes() map[string]float64
}

// base holds the naming bookkeeping shared by all circuit types.
type base struct {
	meta  Meta
	wires []string
	uses  []Handle
}

func newBase(kind string, id int) base {
	return base{meta: Meta{Kind: kind, ID: id, SpName: params.SpName(kind, id), NumPerTile: 1}}
}

func (b *base) Meta() *Meta { return &b.meta }

func (b *base) sp() string { return b.meta.SpName }

func (b *base) WireNames() []string { return append([]string(nil), b.wires...) }

func (b *base) Uses() []Handle { return append([]Handle(nil), b.uses...) }

// elem names an element of this circuit, e.g. elem("inv_", "1") is
// "inv_sb_mux_id_0_1".
func (b *base) elem(tag, suffix string) string {
	if suffix == "" {
		return tag + b.sp()
	}
	return tag + b.sp() + "_" + suffix
}

func (b *base) addWire(suffix string) string {
	e := b.elem(params.TagWire, suffix)
	b.wires = append(b.wires, e)
	return e
}

// sized adds transistor bookkeeping for circuits that own devices.
type sized struct {
	base
	transistors []string
	initial     map[string]float64
}

func newSized(kind string, id int) sized {
	return sized{base: newBase(kind, id), initial: make(map[string]float64)}
}

func (s *sized) TransistorNames() []string { return append([]string(nil), s.transistors...) }

// InitialSizes returns a copy of the seed sizes.
func (s *sized) InitialSizes() map[string]float64 {
	out := make(map[string]float64, len(s.initial))
	for k, v := range s.initial {
		out[k] = v
	}
	return out
}

func (s *sized) addDevice(device string, size float64) {
	s.transistors = append(s.transistors, device)
	s.initial[device] = size
}

func (s *sized) addInv(suffix string, n, p float64) string {
	e := s.elem(params.TagInverter, suffix)
	s.addDevice(e+params.SuffixNMOS, n)
	s.addDevice(e+params.SuffixPMOS, p)
	return e
}

func (s *sized) addPtran(suffix string, n float64) string {
	e := s.elem(params.TagPassTran, suffix)
	s.addDevice(e+params.SuffixNMOS, n)
	return e
}

func (s *sized) addTgate(suffix string, n, p float64) string {
	e := s.elem(params.TagTgate, suffix)
	s.addDevice(e+params.SuffixNMOS, n)
	s.addDevice(e+params.SuffixPMOS, p)
	return e
}

func (s *sized) addRest(suffix string) string {
	e := s.elem(params.TagRestorer, suffix)
	s.addDevice(e+params.SuffixPMOS, 1)
	return e
}

// addPlain adds a plain element with the given devices, e.g. a NAND2 pair.
// A zero size omits that polarity.
func (s *sized) addPlain(suffix string, nmos, pmos float64) string {
	e := s.elem(params.TagPlain, suffix)
	if nmos > 0 {
		s.addDevice(e+params.SuffixNMOS, nmos)
	}
	if pmos > 0 {
		s.addDevice(e+params.SuffixPMOS, pmos)
	}
	return e
}

// addSwitch adds a pass transistor or a transmission gate.
func (s *sized) addSwitch(suffix string, size float64, tgate bool) string {
	if tgate {
		return s.addTgate(suffix, size, size)
	}
	return s.addPtran(suffix, size)
}

// Elements returns the distinct element names of a sizable circuit in
// first-appearance order.
func Elements(s Sizable) []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range s.TransistorNames() {
		e := params.ElementName(t)
		if !seen[e] {
			seen[e] = true
			out = append(out, e)
		}
	}
	return out
}

// elementsArea sums the composite areas of elements.
func elementsArea(st *params.Store, elems ...string) float64 {
	var a float64
	for _, e := range elems {
		a += st.MustArea(e)
	}
	return a
}

// sortedHandles returns hs sorted ascending without duplicates.
func sortedHandles(hs []Handle) []Handle {
	seen := make(map[Handle]bool)
	var out []Handle
	for _, h := range hs {
		if h != None && !seen[h] {
			seen[h] = true
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// switchOn and switchOff place a routing switch that is conducting or cut
// off. Gates of conducting switches are driven from the SRAM rail.
func switchOn(w *netlist.Writer, elem, in, out string, tgate bool) {
	if tgate {
		w.Tgate(elem, in, out, "n_gate", "n_gate_n")
		return
	}
	w.Ptran(elem, in, out, "n_gate")
}

func switchOff(w *netlist.Writer, elem, in, out string, tgate bool) {
	if tgate {
		w.Tgate(elem, in, out, netlist.NodeGND, netlist.NodeVDD)
		return
	}
	w.Ptran(elem, in, out, netlist.NodeGND)
}
