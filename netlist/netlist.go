// Package netlist writes SPICE subcircuit text.
//
// Every sized device is instantiated from a small library of parameterized
// primitives (inverter, pass transistor, transmission gate, level restorer,
// plain NMOS/PMOS, NAND2 and a pi-model wire). Device widths and wire
// parasitics are passed as named parameters so that a single netlist can be
// swept over many size assignments.
package netlist

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/StephenMoreOSU/rad-gen-sub000/params"
)

// Ports shared by every generated subcircuit.
const (
	NodeVDD = "n_vdd"
	NodeGND = "n_gnd"
)

// Writer emits netlist lines and records the first write error.
type Writer struct {
	w    *bufio.Writer
	err  error
	used map[string]int
}

// NewWriter wraps an io.Writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w), used: make(map[string]int)}
}

// Printf writes one formatted line.
func (w *Writer) Printf(format string, args ...interface{}) {
	if w.err != nil {
		return
	}
	_, w.err = fmt.Fprintf(w.w, format+"\n", args...)
}

// Comment writes a SPICE comment line.
func (w *Writer) Comment(text string) {
	w.Printf("* %s", text)
}

// Subckt opens a subcircuit definition.
func (w *Writer) Subckt(name string, ports ...string) {
	w.used = make(map[string]int)
	w.Printf("")
	w.Printf(".SUBCKT %s %s", name, strings.Join(ports, " "))
}

// Ends closes a subcircuit definition.
func (w *Writer) Ends() {
	w.Printf(".ENDS")
}

// Inv instantiates an inverter element.
func (w *Writer) Inv(elem, in, out string) {
	w.Printf("X%s %s %s %s %s inv Wn=%s Wp=%s", w.instName(elem, in), in, out, NodeVDD, NodeGND,
		elem+params.SuffixNMOS, elem+params.SuffixPMOS)
}

// InvFixed instantiates an inverter on a separate supply, used for SRAM
// drivers that sit on the SRAM rail.
func (w *Writer) InvFixed(elem, in, out, vdd string) {
	w.Printf("X%s %s %s %s %s inv Wn=%s Wp=%s", w.instName(elem, in), in, out, vdd, NodeGND,
		elem+params.SuffixNMOS, elem+params.SuffixPMOS)
}

// Ptran instantiates an NMOS pass transistor element.
func (w *Writer) Ptran(elem, in, out, gate string) {
	w.Printf("X%s %s %s %s %s ptran Wn=%s", w.instName(elem, in), in, out, gate, NodeGND,
		elem+params.SuffixNMOS)
}

// Tgate instantiates a transmission gate element.
func (w *Writer) Tgate(elem, in, out, gateN, gateP string) {
	w.Printf("X%s %s %s %s %s %s %s tgate Wn=%s Wp=%s", w.instName(elem, in), in, out, gateN, gateP,
		NodeVDD, NodeGND, elem+params.SuffixNMOS, elem+params.SuffixPMOS)
}

// Rest instantiates a PMOS level restorer element.
func (w *Writer) Rest(elem, pull, gate string) {
	w.Printf("X%s %s %s %s %s rest Wp=%s", w.instName(elem, pull), pull, gate, NodeVDD, NodeGND,
		elem+params.SuffixPMOS)
}

// Nmos instantiates a plain NMOS device.
func (w *Writer) Nmos(device, drain, gate, source string) {
	w.Printf("X%s %s %s %s %s nmos_plain Wn=%s", w.instName(device, drain), drain, gate, source, NodeGND, device)
}

// Pmos instantiates a plain PMOS device.
func (w *Writer) Pmos(device, drain, gate, source string) {
	w.Printf("X%s %s %s %s %s pmos_plain Wp=%s", w.instName(device, drain), drain, gate, source, NodeVDD, device)
}

// Nand2 instantiates a 2-input NAND built from a plain element pair.
func (w *Writer) Nand2(elem, a, b, out string) {
	w.Printf("X%s %s %s %s %s %s nand2 Wn=%s Wp=%s", w.instName(elem, out), a, b, out, NodeVDD, NodeGND,
		elem+params.SuffixNMOS, elem+params.SuffixPMOS)
}

// Wire instantiates a pi-model wire.
func (w *Writer) Wire(wire, in, out string) {
	w.Printf("X%s %s %s wire Rw=%s Cw=%s", w.instName(wire, in), in, out,
		params.WireRes(wire), params.WireCap(wire))
}

// Instance instantiates a generated subcircuit.
func (w *Writer) Instance(inst, subckt string, nodes ...string) {
	w.Printf("X%s %s %s", inst, strings.Join(nodes, " "), subckt)
}

// Flush flushes buffered output and returns the first error seen.
func (w *Writer) Flush() error {
	if w.err != nil {
		return w.err
	}
	return w.w.Flush()
}

// instName keeps instance names unique when the same element appears more
// than once in a subcircuit (for example the off-path copies of a switch).
func (w *Writer) instName(elem, node string) string {
	name := elem + "_" + strings.TrimPrefix(node, "n_")
	n := w.used[name]
	w.used[name] = n + 1
	if n > 0 {
		name = fmt.Sprintf("%s_%d", name, n)
	}
	return name
}

// WriteBasicLibrary emits the primitive subcircuits. FinFET processes size
// devices in fins, planar ones in metres.
func WriteBasicLibrary(out io.Writer, finfet bool) error {
	w := NewWriter(out)
	size := "W"
	if finfet {
		size = "nfin"
	}

	w.Comment("Primitive subcircuits")

	w.Subckt("inv", "n_in", "n_out", NodeVDD, NodeGND, "Wn=1", "Wp=1")
	w.Printf("MNDOWN n_out n_in %s %s nmos L=gate_length %s=Wn", NodeGND, NodeGND, size)
	w.Printf("MPUP n_out n_in %s %s pmos L=gate_length %s=Wp", NodeVDD, NodeVDD, size)
	w.Ends()

	w.Subckt("ptran", "n_in", "n_out", "n_gate", NodeGND, "Wn=1")
	w.Printf("MNPASS n_in n_gate n_out %s nmos L=gate_length %s=Wn", NodeGND, size)
	w.Ends()

	w.Subckt("tgate", "n_in", "n_out", "n_gate_nmos", "n_gate_pmos", NodeVDD, NodeGND, "Wn=1", "Wp=1")
	w.Printf("MNTGATE n_in n_gate_nmos n_out %s nmos L=gate_length %s=Wn", NodeGND, size)
	w.Printf("MPTGATE n_in n_gate_pmos n_out %s pmos L=gate_length %s=Wp", NodeVDD, size)
	w.Ends()

	w.Subckt("rest", "n_pull", "n_gate", NodeVDD, NodeGND, "Wp=1")
	w.Printf("MPREST n_pull n_gate %s %s pmos L=rest_length %s=Wp", NodeVDD, NodeVDD, size)
	w.Ends()

	w.Subckt("nmos_plain", "n_d", "n_g", "n_s", NodeGND, "Wn=1")
	w.Printf("MN n_d n_g n_s %s nmos L=gate_length %s=Wn", NodeGND, size)
	w.Ends()

	w.Subckt("pmos_plain", "n_d", "n_g", "n_s", NodeVDD, "Wp=1")
	w.Printf("MP n_d n_g n_s %s pmos L=gate_length %s=Wp", NodeVDD, size)
	w.Ends()

	w.Subckt("nand2", "n_a", "n_b", "n_out", NodeVDD, NodeGND, "Wn=1", "Wp=1")
	w.Printf("MPA n_out n_a %s %s pmos L=gate_length %s=Wp", NodeVDD, NodeVDD, size)
	w.Printf("MPB n_out n_b %s %s pmos L=gate_length %s=Wp", NodeVDD, NodeVDD, size)
	w.Printf("MNA n_out n_a n_mid %s nmos L=gate_length %s=Wn", NodeGND, size)
	w.Printf("MNB n_mid n_b %s %s nmos L=gate_length %s=Wn", NodeGND, NodeGND, size)
	w.Ends()

	w.Subckt("wire", "n_in", "n_out", "Rw=1", "Cw=1f")
	w.Printf("C1 n_in gnd 'Cw/2'")
	w.Printf("R1 n_in n_out Rw")
	w.Printf("C2 n_out gnd 'Cw/2'")
	w.Ends()

	return w.Flush()
}
