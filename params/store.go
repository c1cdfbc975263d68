// Package params holds the keyed stores shared by every sizing phase.
//
// A Store is the single mutable engine state: transistor sizes, wire
// geometry, wire parasitics, areas, layout widths and delays, all keyed by
// namespaced string identifiers. Phase functions receive the Store by
// pointer and mutate it; nothing else owns a copy.
package params

import (
	"fmt"
	"math"
	"sort"
)

// RC is a wire's lumped resistance (ohms) and capacitance (farads).
type RC struct {
	R float64
	C float64
}

// Store is the process-wide parameter state.
type Store struct {
	// TransistorSizes maps device names (e.g. "inv_sb_mux_id_0_1_nmos") to
	// drive strengths in minimum-width units or fins.
	TransistorSizes map[string]float64

	// WireLengths holds wire lengths in nm.
	WireLengths map[string]float64

	// WireLayers holds the metal stack index of each wire.
	WireLayers map[string]int

	// WireRC holds the per-wire parasitics derived from length and layer.
	WireRC map[string]RC

	// Area holds layout areas in nm^2 for devices, composites and circuits.
	Area map[string]float64

	// Width holds the square-root layout widths in nm.
	Width map[string]float64

	// Delay holds the latest measured delay per sub-circuit in seconds.
	Delay map[string]float64
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		TransistorSizes: make(map[string]float64),
		WireLengths:     make(map[string]float64),
		WireLayers:      make(map[string]int),
		WireRC:          make(map[string]RC),
		Area:            make(map[string]float64),
		Width:           make(map[string]float64),
		Delay:           make(map[string]float64),
	}
}

// SetArea stores an area and its square-root width under the same key.
func (s *Store) SetArea(key string, area float64) {
	s.Area[key] = area
	s.Width[key] = math.Sqrt(area)
}

// MustArea returns the area stored under key. A missing key means a circuit
// read an area before the pass that produces it, which is a bug.
func (s *Store) MustArea(key string) float64 {
	a, ok := s.Area[key]
	if !ok {
		panic(fmt.Sprintf("params: area of %q read before it was computed", key))
	}
	return a
}

// MustWidth is MustArea for layout widths.
func (s *Store) MustWidth(key string) float64 {
	w, ok := s.Width[key]
	if !ok {
		panic(fmt.Sprintf("params: width of %q read before it was computed", key))
	}
	return w
}

// SetWire records a wire's length and metal layer.
func (s *Store) SetWire(name string, length float64, layer int) {
	s.WireLengths[name] = length
	s.WireLayers[name] = layer
}

// Sizes returns a copy of the transistor size map.
func (s *Store) Sizes() map[string]float64 {
	return copyFloats(s.TransistorSizes)
}

// InstallSizes replaces the entries of sizes in the transistor size map.
func (s *Store) InstallSizes(sizes map[string]float64) {
	for name, size := range sizes {
		s.TransistorSizes[name] = size
	}
}

// Clone returns a deep copy of the Store.
func (s *Store) Clone() *Store {
	clone := &Store{
		TransistorSizes: copyFloats(s.TransistorSizes),
		WireLengths:     copyFloats(s.WireLengths),
		WireLayers:      make(map[string]int, len(s.WireLayers)),
		WireRC:          make(map[string]RC, len(s.WireRC)),
		Area:            copyFloats(s.Area),
		Width:           copyFloats(s.Width),
		Delay:           copyFloats(s.Delay),
	}
	for k, v := range s.WireLayers {
		clone.WireLayers[k] = v
	}
	for k, v := range s.WireRC {
		clone.WireRC[k] = v
	}
	return clone
}

// WireNames returns the sorted names of all wires with a length.
func (s *Store) WireNames() []string {
	return SortedKeys(s.WireLengths)
}

// SortedKeys returns the keys of m in lexical order.
func SortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func copyFloats(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
