package circuit

import (
	"fmt"
	"strings"

	"github.com/StephenMoreOSU/rad-gen-sub000/netlist"
	"github.com/StephenMoreOSU/rad-gen-sub000/params"
)

// DriverVariant selects the structure of a LUT input driver.
type DriverVariant int

const (
	// DriverDefault is two buffer inverters.
	DriverDefault DriverVariant = iota
	// DriverRsel taps the input toward the register-select path.
	DriverRsel
	// DriverRegFB adds a switch selecting the register feedback.
	DriverRegFB
	// DriverRegFBRsel combines both.
	DriverRegFBRsel
)

func (v DriverVariant) String() string {
	switch v {
	case DriverRsel:
		return "default_rsel"
	case DriverRegFB:
		return "reg_fb"
	case DriverRegFBRsel:
		return "reg_fb_rsel"
	default:
		return "default"
	}
}

// VariantFor picks the driver variant of a LUT letter. rsel names one
// letter, rfb may list several.
func VariantFor(letter byte, rsel, rfb string) DriverVariant {
	isRsel := rsel == string(letter)
	isRfb := strings.IndexByte(rfb, letter) >= 0
	switch {
	case isRsel && isRfb:
		return DriverRegFBRsel
	case isRfb:
		return DriverRegFB
	case isRsel:
		return DriverRsel
	default:
		return DriverDefault
	}
}

// LUTDriver buffers one LUT input, or its complement when Not is set.
type LUTDriver struct {
	*Chain

	Letter  byte
	Variant DriverVariant
	Not     bool
}

// DriverKind returns the circuit kind of a letter's driver.
func DriverKind(letter byte, not bool) string {
	if not {
		return fmt.Sprintf("lut_%c_driver_not", letter)
	}
	return fmt.Sprintf("lut_%c_driver", letter)
}

func newLUTDriver(id int, letter byte, variant DriverVariant, tgate bool, localMux, lut, ff *Meta, ratio float64) *LUTDriver {
	c := newChain(DriverKind(letter, false), id)
	c.inputWire = c.addWire("")

	var rselWire string
	if variant != DriverDefault {
		front := c.inv("0", 1, 1)
		if variant == DriverRsel || variant == DriverRegFBRsel {
			rselWire = c.addWire("rsel")
			front.tap = func(w *netlist.Writer, in, out string) {
				w.Wire(rselWire, out, "n_rsel")
			}
		}
	}
	if variant == DriverRegFB || variant == DriverRegFBRsel {
		fb := c.sw("0", 1, tgate)
		fb.tap = func(w *netlist.Writer, in, out string) {
			switchOff(w, fb.elem, netlist.NodeGND, out, tgate)
		}
	}
	inv1 := c.inv("1", 1, 1)
	driverWire := c.wire("driver")
	inv2 := c.inv("2", 2, 2)
	c.finish()

	c.wireRule = func(st *params.Store, a *Arena) {
		st.SetWire(c.inputWire, st.MustWidth(localMux.SpName+"_sram")*ratio/2, 0)
		st.SetWire(driverWire, (st.MustWidth(inv1.elem)+st.MustWidth(inv2.elem))/4, 0)
		if rselWire != "" {
			st.SetWire(rselWire, (st.MustWidth(lut.SpName)+st.MustWidth(ff.SpName))/2, 0)
		}
	}
	return &LUTDriver{Chain: c, Letter: letter, Variant: variant}
}

func newLUTDriverNot(id int, letter byte, localMux *Meta, ratio float64) *LUTDriver {
	c := newChain(DriverKind(letter, true), id)
	c.inputWire = c.addWire("")
	inv1 := c.inv("1", 1, 1)
	driverWire := c.wire("driver")
	inv2 := c.inv("2", 2, 2)
	c.finish()

	c.wireRule = func(st *params.Store, a *Arena) {
		st.SetWire(c.inputWire, st.MustWidth(localMux.SpName+"_sram")*ratio/2, 0)
		st.SetWire(driverWire, (st.MustWidth(inv1.elem)+st.MustWidth(inv2.elem))/4, 0)
	}
	return &LUTDriver{Chain: c, Letter: letter, Variant: DriverDefault, Not: true}
}

// GateLoadCount is how many level switches one polarity of a letter
// drives: 2^(K-i-1) for letter index i.
func GateLoadCount(k int, letter byte) int {
	i := int(letter - 'a')
	return 1 << uint(k-i-1)
}

// newDriverLoad models the gate load a letter's driver sees: a wire
// across the LUT and the gates of one level's switches.
func newDriverLoad(id int, letter byte, lut *LUT, lutH Handle, ratio float64) *Load {
	l := newLoad(fmt.Sprintf("lut_%c_driver_load", letter), id)
	l.uses = []Handle{lutH}
	wire := l.addWire("")
	level := int(letter-'a') + 1
	count := GateLoadCount(lut.K, letter)

	l.gen = func(w *netlist.Writer) {
		w.Subckt(l.Subckt(), append([]string{"n_in"}, muxPorts...)...)
		w.Wire(wire, "n_in", "n_1")
		for i := 0; i < count; i++ {
			if lut.tgate {
				w.Tgate(lut.Level(level), netlist.NodeGND, netlist.NodeGND, "n_1", netlist.NodeVDD)
			} else {
				w.Ptran(lut.Level(level), netlist.NodeGND, netlist.NodeGND, "n_1")
			}
		}
		w.Ends()
	}
	l.wireRule = func(st *params.Store, a *Arena) {
		st.SetWire(wire, st.MustWidth(lut.sp())*ratio, 0)
	}
	return l
}
