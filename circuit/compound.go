package circuit

import (
	"github.com/StephenMoreOSU/rad-gen-sub000/netlist"
	"github.com/StephenMoreOSU/rad-gen-sub000/params"
)

// Compound aggregates other circuits' areas. It has no transistors, wires
// or netlist of its own.
type Compound struct {
	base
	children []Handle
	extra    func(st *params.Store, a *Arena) float64
}

func newCompound(kind string, id int, children []Handle) *Compound {
	return &Compound{base: newBase(kind, id), children: append([]Handle(nil), children...)}
}

// Children returns the aggregated handles.
func (c *Compound) Children() []Handle { return append([]Handle(nil), c.children...) }

// UpdateArea sums num_per_tile times the SRAM-inclusive area of each
// sizable child and the area of each nested compound.
func (c *Compound) UpdateArea(st *params.Store, a *Arena) {
	var area float64
	for _, h := range c.children {
		child := a.Get(h)
		switch child.(type) {
		case *Compound:
			area += st.MustArea(child.Meta().SpName)
		case Sizable:
			area += float64(child.Meta().NumPerTile) * st.MustArea(child.Meta().SpName+"_sram")
		}
	}
	if c.extra != nil {
		area += c.extra(st, a)
	}
	st.SetArea(c.sp(), area)
}

// UpdateWires implements Circuit.
func (c *Compound) UpdateWires(st *params.Store, a *Arena) {}

// Generate implements Circuit.
func (c *Compound) Generate(w *netlist.Writer) {}
