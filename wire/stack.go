// Package wire turns analytical wire geometry into lumped parasitics.
package wire

import (
	"fmt"

	"github.com/StephenMoreOSU/rad-gen-sub000/config"
	"github.com/StephenMoreOSU/rad-gen-sub000/params"
)

// femto converts fF to F.
const femto = 1e-15

// Stack is the metal stack: per-nm resistance and capacitance by layer.
type Stack struct {
	layers []config.MetalLayer
}

// NewStack creates a Stack from configured layers.
func NewStack(layers []config.MetalLayer) *Stack {
	return &Stack{layers: append([]config.MetalLayer(nil), layers...)}
}

// Layers returns the number of metal layers.
func (s *Stack) Layers() int {
	return len(s.layers)
}

// RC returns the parasitics of a wire of length nm on layer.
func (s *Stack) RC(length float64, layer int) (params.RC, error) {
	if layer < 0 || layer >= len(s.layers) {
		return params.RC{}, fmt.Errorf("metal layer %d outside stack of %d layers", layer, len(s.layers))
	}
	m := s.layers[layer]
	return params.RC{R: m.R * length, C: m.C * length * femto}, nil
}

// UpdateRC recomputes WireRC for every wire that has a length and a layer.
func (s *Stack) UpdateRC(st *params.Store) error {
	for name, length := range st.WireLengths {
		layer, ok := st.WireLayers[name]
		if !ok {
			return fmt.Errorf("wire %s has a length but no layer", name)
		}
		rc, err := s.RC(length, layer)
		if err != nil {
			return fmt.Errorf("wire %s: %w", name, err)
		}
		st.WireRC[name] = rc
	}
	return nil
}
