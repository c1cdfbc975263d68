package params

import (
	"fmt"
	"strings"
)

// Device tags used as name prefixes. The area model and the sizer both key
// off these prefixes.
const (
	TagInverter = "inv_"
	TagPassTran = "ptran_"
	TagTgate    = "tgate_"
	TagRestorer = "rest_"
	TagPlain    = "tran_"
	TagWire     = "wire_"
)

// Device polarity suffixes.
const (
	SuffixNMOS = "_nmos"
	SuffixPMOS = "_pmos"
)

// Registry hands out namespaced identifiers and rejects duplicates, so that
// every parameter a circuit emits starts with a prefix no other circuit uses.
type Registry struct {
	names map[string]struct{}
	next  map[string]int
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		names: make(map[string]struct{}),
		next:  make(map[string]int),
	}
}

// Claim registers name. It fails if name was claimed before or if one of
// name and an existing claim extends the other at an underscore boundary.
func (r *Registry) Claim(name string) error {
	if name == "" {
		return fmt.Errorf("empty identifier")
	}
	if _, ok := r.names[name]; ok {
		return fmt.Errorf("identifier %q already claimed", name)
	}
	for other := range r.names {
		if strings.HasPrefix(other, name+"_") || strings.HasPrefix(name, other+"_") {
			return fmt.Errorf("identifier %q overlaps %q", name, other)
		}
	}
	r.names[name] = struct{}{}
	return nil
}

// NextID returns the next unused instance id for a circuit kind.
func (r *Registry) NextID(kind string) int {
	id := r.next[kind]
	r.next[kind] = id + 1
	return id
}

// SpName builds the namespacing prefix for an instance of kind.
func SpName(kind string, id int) string {
	return fmt.Sprintf("%s_id_%d", kind, id)
}

// ElementName strips the polarity suffix from a device name.
func ElementName(device string) string {
	device = strings.TrimSuffix(device, SuffixNMOS)
	return strings.TrimSuffix(device, SuffixPMOS)
}

// IsInverter reports whether name is an inverter device or element.
func IsInverter(name string) bool { return strings.HasPrefix(name, TagInverter) }

// IsPassTran reports whether name is a pass-transistor device or element.
func IsPassTran(name string) bool { return strings.HasPrefix(name, TagPassTran) }

// IsTgate reports whether name is a transmission gate device or element.
func IsTgate(name string) bool { return strings.HasPrefix(name, TagTgate) }

// IsRestorer reports whether name is a level restorer device or element.
func IsRestorer(name string) bool { return strings.HasPrefix(name, TagRestorer) }

// IsPlain reports whether name is a plain transistor device or element.
func IsPlain(name string) bool { return strings.HasPrefix(name, TagPlain) }

// IsDiffusionIsolated reports whether the device sits in a shared N-well and
// pays the isolation area penalty.
func IsDiffusionIsolated(name string) bool {
	return IsInverter(name) || IsTgate(name)
}

// WireRes and WireCap name the sweep parameters carrying a wire's parasitics.
func WireRes(wire string) string { return wire + "_res" }

// WireCap names the sweep parameter carrying a wire's capacitance.
func WireCap(wire string) string { return wire + "_cap" }
