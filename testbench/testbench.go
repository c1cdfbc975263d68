// Package testbench assembles SPICE testbenches for sub-circuit measurement.
//
// A testbench is a chain of instances wired head to tail: a pulse stimulus,
// optional wave-shaping instances, the device under test on its own supply
// rail, and downstream loads. Every testbench carries the same measurement
// set: a rise and fall delay per probed stage, a total path delay, a
// logic-low sanity probe, the DUT supply current over one period and the
// derived average power.
package testbench

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Well-known testbench nodes.
const (
	NodeInput  = "n_in"
	NodeVDD    = "n_vdd"
	NodeGND    = "n_gnd"
	NodeDUTVDD = "n_vdd_dut"
	NodeSRAM   = "n_vsram"
	NodeSRAMN  = "n_vsram_n"
)

// Measurement names shared by all testbenches.
const (
	MeasTotalRise = "meas_total_trise"
	MeasTotalFall = "meas_total_tfall"
	MeasLogicLow  = "meas_logic_low_voltage"
	MeasCurrent   = "meas_current"
	MeasAvgPower  = "meas_avg_power"
)

// MeasRise names the output-rise delay measurement of a stage.
func MeasRise(scope string) string { return "meas_" + scope + "_trise" }

// MeasFall names the output-fall delay measurement of a stage.
func MeasFall(scope string) string { return "meas_" + scope + "_tfall" }

// Stage is one delay probe. The trigger clauses apply to the testbench
// trigger node, the target clauses to Node.
type Stage struct {
	Name     string
	Node     string
	TrigRise string
	TargRise string
	TrigFall string
	TargFall string
}

// ParityStage builds a stage whose edges follow from the number of
// inversions between the trigger and the probed node.
func ParityStage(name, node string, inverting bool) Stage {
	if inverting {
		return Stage{Name: name, Node: node,
			TrigRise: "FALL=1", TargRise: "RISE=1",
			TrigFall: "RISE=1", TargFall: "FALL=1"}
	}
	return Stage{Name: name, Node: node,
		TrigRise: "RISE=1", TargRise: "RISE=1",
		TrigFall: "FALL=1", TargFall: "FALL=1"}
}

// Source is an extra independent voltage source.
type Source struct {
	Name  string
	Node  string
	Value string
}

// Spec describes one testbench.
type Spec struct {
	// Name is the testbench name; the file is <Name>.sp.
	Name string

	// DUT is the sp_name of the circuit under test.
	DUT string

	// Trigger is the node all delay measurements trigger on.
	Trigger string

	// Lines are the instance lines in stimulus to load order.
	Lines []string

	Sources []Source
	Stages  []Stage
	Total   Stage

	// Probe is sampled at ProbeAt for the logic-low check.
	Probe   string
	ProbeAt string

	Print []string

	params map[string]struct{}
}

// New creates an empty testbench spec.
func New(name, dut string) *Spec {
	return &Spec{
		Name:    name,
		DUT:     dut,
		Trigger: NodeInput,
		params:  make(map[string]struct{}),
	}
}

// Instance appends an instance of subckt.
func (s *Spec) Instance(inst, subckt string, nodes ...string) {
	s.Lines = append(s.Lines, fmt.Sprintf("X%s %s %s", inst, strings.Join(nodes, " "), subckt))
}

// Shaper appends two fixed-size inverters that give the stimulus a
// realistic slew. The sizes come from the writer options.
func (s *Spec) Shaper(in, out string) {
	mid := out + "_shape"
	s.Lines = append(s.Lines,
		fmt.Sprintf("Xshape_1_%s %s %s %s %s inv Wn=shaper_wn Wp=shaper_wp", out, in, mid, NodeVDD, NodeGND),
		fmt.Sprintf("Xshape_2_%s %s %s %s %s inv Wn=shaper_wn Wp=shaper_wp", out, mid, out, NodeVDD, NodeGND))
}

// Node returns the hierarchical name of node inside the instance inst.
func Node(inst, node string) string {
	return "X" + inst + "." + node
}

// Require declares sweep parameters the testbench needs.
func (s *Spec) Require(names ...string) {
	for _, n := range names {
		s.params[n] = struct{}{}
	}
}

// Params returns the required sweep parameters in lexical order.
func (s *Spec) Params() []string {
	out := make([]string, 0, len(s.params))
	for n := range s.params {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// MeasureStage probes a stage of the DUT.
func (s *Spec) MeasureStage(st Stage) {
	s.Stages = append(s.Stages, st)
	s.Print = append(s.Print, st.Node)
}

// MeasureTotal sets the end of the measured path and derives the logic-low
// probe time from the path parity.
func (s *Spec) MeasureTotal(node string, inverting bool) {
	s.Total = ParityStage("total", node, inverting)
	s.Probe = node
	if inverting {
		s.ProbeAt = "2.3n"
	} else {
		s.ProbeAt = "4.3n"
	}
	s.Print = append(s.Print, node)
}

// Measurements lists every measurement name the testbench produces.
func (s *Spec) Measurements() []string {
	out := make([]string, 0, 2*len(s.Stages)+5)
	for _, st := range s.Stages {
		out = append(out, MeasRise(st.Name), MeasFall(st.Name))
	}
	return append(out, MeasTotalRise, MeasTotalFall, MeasLogicLow, MeasCurrent, MeasAvgPower)
}

// SweepPath returns the sweep-data file that accompanies a testbench file.
func SweepPath(tbPath string) string {
	return strings.TrimSuffix(tbPath, filepath.Ext(tbPath)) + "_sweep.l"
}
