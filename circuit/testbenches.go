package circuit

import (
	"fmt"

	"github.com/StephenMoreOSU/rad-gen-sub000/testbench"
)

// Probes returns the measured inverters of a sizable circuit and whether
// its whole path inverts.
func (a *Arena) Probes(h Handle) ([]Probe, bool) {
	switch c := a.Get(h).(type) {
	case *Mux:
		var out []Probe
		for i, inv := range c.Inverters() {
			out = append(out, Probe{Elem: inv, Node: c.StageNode(inv), Inverting: i%2 == 0})
		}
		return out, len(out)%2 == 1
	case *LUT:
		return c.Probes(), true
	case *LUTDriver:
		return c.Chain.Probes(), c.Chain.Inverting()
	case *FlipFlop:
		return c.Chain.Probes(), c.Chain.Inverting()
	case *Chain:
		return c.Probes(), c.Inverting()
	}
	return nil, false
}

// neighbours returns the circuits placed before and after h in its
// testbench.
func (a *Arena) neighbours(h Handle) (up, down []Handle) {
	c := a.Get(h)
	first := a.first
	routing := first(KindRoutingWireLoad)
	switch c.Meta().Kind {
	case KindSBMux:
		return []Handle{h, routing}, []Handle{routing}
	case KindCBMux:
		return []Handle{first(KindSBMux), routing}, []Handle{first(KindLocalRoutingWireLoad)}
	case KindLocalMux:
		return []Handle{first(KindCBMux), first(KindLocalRoutingWireLoad)},
			[]Handle{first(DriverKind('a', false)), first("lut_a_driver_load")}
	case KindLUT, KindFLUTMux:
		return nil, []Handle{first(KindLUTOutputLoad)}
	case KindLocalBLEOutput:
		return nil, []Handle{first(KindLocalBLEOutputLoad)}
	case KindGeneralBLEOutput:
		return nil, []Handle{first(KindGeneralBLEOutputLoad)}
	case KindCarryChain, KindCarryInter:
		fa := first(KindCarryChain)
		return []Handle{fa}, []Handle{fa}
	case KindCarryPerf:
		return []Handle{first(KindCarryChain)}, []Handle{first(KindCarryMux)}
	case KindCarryMux:
		return []Handle{first(KindCarryPerf)}, []Handle{first(KindLUTOutputLoad)}
	case KindCarrySkipAnd:
		return nil, []Handle{first(KindCarrySkipMux)}
	case KindCarrySkipMux:
		return nil, []Handle{first(KindCarryChain)}
	case KindRAMLocalMux:
		return []Handle{first(KindSBMux), routing}, []Handle{first(KindRowDecoder)}
	case KindRowDecoder:
		return nil, []Handle{first(KindWordlineDriver)}
	case KindOutputCrossbar:
		return []Handle{first(KindSenseAmp)}, nil
	}
	if d, ok := c.(*LUTDriver); ok {
		return []Handle{first(KindLocalMux)}, []Handle{first(fmt.Sprintf("lut_%c_driver_load", d.Letter))}
	}
	return nil, nil
}

type tbBuilder struct {
	a    *Arena
	spec *testbench.Spec
	n    int
}

// place instantiates h with its input on node in and returns the
// instance name and output node. Loads without an output return "".
func (t *tbBuilder) place(h Handle, in, vdd string) (inst, out string) {
	c := t.a.Get(h)
	sp := c.Meta().SpName
	t.n++
	inst = fmt.Sprintf("%s_%d", sp, t.n)
	out = fmt.Sprintf("n_%d", t.n)
	t.spec.Require(t.a.Parameters(h)...)

	gates := []string{testbench.NodeSRAM, testbench.NodeSRAMN, vdd, testbench.NodeGND}
	switch c := c.(type) {
	case *Mux:
		t.spec.Instance(inst, c.OnSubckt(), append([]string{in, out}, gates...)...)
	case *LUT:
		t.spec.Instance(inst, c.OnSubckt(), in, out, testbench.NodeVDD, testbench.NodeGND, vdd, testbench.NodeGND)
	case *Chain, *LUTDriver, *FlipFlop:
		t.spec.Instance(inst, sp, in, out, vdd, testbench.NodeGND)
	case *Load:
		switch c.Meta().Kind {
		case KindRoutingWireLoad, KindLocalRoutingWireLoad:
			t.spec.Instance(inst, c.Subckt(), append([]string{in, out}, gates...)...)
		default:
			t.spec.Instance(inst, c.Subckt(), append([]string{in}, gates...)...)
			out = ""
		}
	default:
		out = ""
	}
	return inst, out
}

// Testbench assembles the measurement testbench of a sizable circuit:
// wave shaping, upstream circuits, the circuit itself on the DUT rail and
// its downstream load.
func (a *Arena) Testbench(h Handle) (*testbench.Spec, error) {
	if _, ok := a.Sizable(h); !ok {
		return nil, fmt.Errorf("%s has no transistors to measure", a.Meta(h).SpName)
	}
	sp := a.Meta(h).SpName
	t := &tbBuilder{a: a, spec: testbench.New(sp, sp)}

	up, down := a.neighbours(h)
	node := "n_shaped"
	t.spec.Shaper(testbench.NodeInput, node)
	for _, u := range up {
		if u == None {
			return nil, fmt.Errorf("testbench %s: missing upstream circuit", sp)
		}
		if _, node = t.place(u, node, testbench.NodeVDD); node == "" {
			return nil, fmt.Errorf("testbench %s: upstream %s has no output", sp, a.Meta(u).SpName)
		}
	}

	t.spec.Trigger = node
	inst, out := t.place(h, node, testbench.NodeDUTVDD)

	next := out
	for _, d := range down {
		if d == None || next == "" {
			break
		}
		_, next = t.place(d, next, testbench.NodeVDD)
	}

	probes, inverting := a.Probes(h)
	for _, p := range probes {
		t.spec.MeasureStage(testbench.ParityStage(p.Elem, testbench.Node(inst, p.Node), p.Inverting))
	}
	t.spec.MeasureTotal(out, inverting)
	return t.spec, nil
}
