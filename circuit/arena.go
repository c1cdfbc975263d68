package circuit

import (
	"fmt"
	"io"

	"github.com/StephenMoreOSU/rad-gen-sub000/area"
	"github.com/StephenMoreOSU/rad-gen-sub000/config"
	"github.com/StephenMoreOSU/rad-gen-sub000/netlist"
	"github.com/StephenMoreOSU/rad-gen-sub000/params"
)

// Arena owns every circuit of a tile. Circuits are updated in insertion
// order, so callers add leaves before the compounds that aggregate them.
type Arena struct {
	cfg      *config.Config
	reg      *params.Registry
	circuits []Circuit
	bySp     map[string]Handle

	cluster Handle
	memory  Handle
	tile    Handle
}

// NewArena creates an empty arena for an architecture.
func NewArena(cfg *config.Config) *Arena {
	return &Arena{
		cfg:     cfg,
		reg:     params.NewRegistry(),
		bySp:    make(map[string]Handle),
		cluster: None,
		memory:  None,
		tile:    None,
	}
}

// Config returns the configuration the arena was built from.
func (a *Arena) Config() *config.Config { return a.cfg }

func (a *Arena) nextID(kind string) int { return a.reg.NextID(kind) }

// add registers c and claims its namespace.
func (a *Arena) add(c Circuit) (Handle, error) {
	sp := c.Meta().SpName
	if err := a.reg.Claim(sp); err != nil {
		return None, fmt.Errorf("adding %s: %w", sp, err)
	}
	h := Handle(len(a.circuits))
	a.circuits = append(a.circuits, c)
	a.bySp[sp] = h
	return h, nil
}

// Len returns the number of circuits.
func (a *Arena) Len() int { return len(a.circuits) }

// Get returns the circuit behind h.
func (a *Arena) Get(h Handle) Circuit { return a.circuits[h] }

// Meta is shorthand for Get(h).Meta().
func (a *Arena) Meta(h Handle) *Meta { return a.circuits[h].Meta() }

// Sizable returns the circuit behind h if it owns transistors.
func (a *Arena) Sizable(h Handle) (Sizable, bool) {
	s, ok := a.circuits[h].(Sizable)
	return s, ok
}

// Handles returns all handles in insertion order.
func (a *Arena) Handles() []Handle {
	out := make([]Handle, len(a.circuits))
	for i := range a.circuits {
		out[i] = Handle(i)
	}
	return out
}

// SizableHandles returns the handles of circuits that own transistors.
func (a *Arena) SizableHandles() []Handle {
	var out []Handle
	for i, c := range a.circuits {
		if _, ok := c.(Sizable); ok {
			out = append(out, Handle(i))
		}
	}
	return out
}

// OfKind returns the handles of every instance of kind.
func (a *Arena) OfKind(kind string) []Handle {
	var out []Handle
	for i, c := range a.circuits {
		if c.Meta().Kind == kind {
			out = append(out, Handle(i))
		}
	}
	return out
}

// first returns the first instance of kind or None.
func (a *Arena) first(kind string) Handle {
	for i, c := range a.circuits {
		if c.Meta().Kind == kind {
			return Handle(i)
		}
	}
	return None
}

// Find looks a circuit up by sp_name.
func (a *Arena) Find(sp string) (Handle, bool) {
	h, ok := a.bySp[sp]
	return h, ok
}

// Tile returns the tile compound.
func (a *Arena) Tile() Handle { return a.tile }

// Cluster returns the logic cluster compound.
func (a *Arena) Cluster() Handle { return a.cluster }

// Memory returns the memory block compound, or None without BRAM.
func (a *Arena) Memory() Handle { return a.memory }

// Closure returns h and every circuit it transitively instantiates.
func (a *Arena) Closure(h Handle) []Handle {
	seen := map[Handle]bool{}
	var walk func(Handle)
	walk = func(x Handle) {
		if x == None || seen[x] {
			return
		}
		seen[x] = true
		for _, u := range a.circuits[x].Uses() {
			walk(u)
		}
	}
	walk(h)
	out := make([]Handle, 0, len(seen))
	for x := range seen {
		out = append(out, x)
	}
	return sortedHandles(out)
}

// SeedSizes installs every sizable circuit's initial sizes into st.
func (a *Arena) SeedSizes(st *params.Store) {
	for _, c := range a.circuits {
		if s, ok := c.(Sizable); ok {
			st.InstallSizes(s.InitialSizes())
		}
	}
}

// UpdateArea rolls device areas up and then lets each circuit compute its
// own area.
func (a *Arena) UpdateArea(st *params.Store, m *area.Model) {
	m.RollUp(st)
	for _, c := range a.circuits {
		c.UpdateArea(st, a)
	}
}

// UpdateWires recomputes every wire length. Areas must be current.
func (a *Arena) UpdateWires(st *params.Store) {
	for _, c := range a.circuits {
		c.UpdateWires(st, a)
	}
}

// WriteLibrary emits the subcircuits of every circuit.
func (a *Arena) WriteLibrary(out io.Writer) error {
	w := netlist.NewWriter(out)
	w.Comment("Generated subcircuits")
	for _, c := range a.circuits {
		w.Printf("")
		w.Comment(c.Meta().SpName)
		c.Generate(w)
	}
	return w.Flush()
}

// Parameters returns the sweep parameters used by the subcircuits of h
// and everything it instantiates.
func (a *Arena) Parameters(h Handle) []string {
	var out []string
	for _, x := range a.Closure(h) {
		c := a.circuits[x]
		if s, ok := c.(Sizable); ok {
			out = append(out, s.TransistorNames()...)
		}
		for _, w := range c.WireNames() {
			out = append(out, params.WireRes(w), params.WireCap(w))
		}
	}
	return out
}
