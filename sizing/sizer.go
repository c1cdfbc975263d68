package sizing

import (
	"context"

	"github.com/pkg/errors"

	"github.com/StephenMoreOSU/rad-gen-sub000/circuit"
)

// SizeResult is the outcome of sizing one sub-circuit.
type SizeResult struct {
	SpName string
	// Sizes holds the final P/N-expanded device sizes of the circuit.
	Sizes map[string]float64
	// Ratios holds the P/N ratio of every re-balanced inverter.
	Ratios map[string]float64
	Rounds int
	// BoundaryHit is set when some group ran out of rounds with its
	// winner still on a range boundary.
	BoundaryHit bool
	Last        *Candidate
}

// SizeSubcircuit sizes the transistors of h and installs the result in
// the store. Circuits with many elements are sized group by group after
// one shared ERF pass.
func (e *Engine) SizeSubcircuit(ctx context.Context, h circuit.Handle) (*SizeResult, error) {
	if _, ok := e.arena.Sizable(h); !ok {
		return nil, errors.Errorf("%s has no transistors", e.arena.Meta(h).SpName)
	}
	sp := e.arena.Meta(h).SpName
	elems := orderedElements(e.arena, h)
	live := liveElements(elems)
	groups := partition(live)
	res := &SizeResult{SpName: sp, Ratios: make(map[string]float64)}
	if len(live) == 0 {
		res.Sizes = expandSizes(e.circuitDevices(h), elems)
		return res, nil
	}

	if len(groups) > 1 {
		current := make(map[string]float64, len(live))
		for _, elem := range live {
			current[elem] = e.driveStrength(elem)
		}
		pre, err := e.comboERF(ctx, h, current, nil)
		if err != nil {
			return nil, err
		}
		e.log.V(1).Info("shared ERF", "subcircuit", sp, "groups", len(groups), "passes", pre.passes)
	}

	maxRounds := e.cfg.Sizing.MaxRangeRound
	if maxRounds < 1 {
		maxRounds = 1
	}
	for gi, group := range groups {
		n := valuesPerElement(len(group))
		ranges := make([]Range, len(group))
		anchor := make(map[string]float64, len(group))
		for i, elem := range group {
			ranges[i] = initialRange(elem, e.driveStrength(elem), n)
			anchor[elem] = e.driveStrength(elem)
		}
		ranges = fitCombinations(ranges, anchor, nil, e.cfg.Sizing.MaxCombinations)

		var cand *Candidate
		accepted := false
		for round := 1; round <= maxRounds && !accepted; round++ {
			e.round = round
			res.Rounds++
			c, err := e.searchRanges(ctx, h, ranges, gi)
			if err != nil {
				return nil, errors.Wrapf(err, "size %s", sp)
			}
			cand = c
			var next []Range
			next, accepted = ValidateRanges(ranges, c.Sizes, e.cfg.Sizing.MaxCombinations)
			if !accepted {
				e.log.V(1).Info("winner on boundary", "subcircuit", sp, "group", gi, "round", round, "next", next)
			}
			ranges = next
		}
		if !accepted {
			res.BoundaryHit = true
			e.log.Info(ErrBoundaryHit.Error(), "subcircuit", sp, "group", gi, "rounds", maxRounds)
		}

		e.st.InstallSizes(cand.Devices)
		if err := e.Refresh(); err != nil {
			return nil, err
		}
		for k, v := range cand.Ratios {
			res.Ratios[k] = v
		}
		res.Last = cand
	}

	res.Sizes = expandSizes(e.circuitDevices(h), elems)
	e.log.Info("sized", "subcircuit", sp, "rounds", res.Rounds, "area", res.Last.Area, "delay", res.Last.Delay)
	return res, nil
}
