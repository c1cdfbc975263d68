package sizing

import (
	"fmt"
	"math"

	"github.com/StephenMoreOSU/rad-gen-sub000/params"
)

// Range is an inclusive integer drive strength range for one element.
type Range struct {
	Elem string
	Min  int
	Max  int
}

// Count is the number of values in the range.
func (r Range) Count() int { return r.Max - r.Min + 1 }

// Values lists the range.
func (r Range) Values() []float64 {
	out := make([]float64, 0, r.Count())
	for v := r.Min; v <= r.Max; v++ {
		out = append(out, float64(v))
	}
	return out
}

// Centre is the middle value, rounded down.
func (r Range) Centre() float64 { return float64(r.Min + (r.Count()-1)/2) }

func (r Range) String() string { return fmt.Sprintf("%s[%d,%d]", r.Elem, r.Min, r.Max) }

// Range limits per element and round.
const (
	minRangeValues = 3
	maxRangeValues = 20

	// maxLiveElements is the largest element count sized as one group.
	maxLiveElements = 6
	// groupSize bounds each group once a circuit is split.
	groupSize = 5
)

// valuesPerElement picks the initial range width from the group size.
func valuesPerElement(n int) int {
	switch {
	case n <= 2:
		return 8
	case n == 3:
		return 6
	default:
		return 4
	}
}

// initialRange centres n values on the current drive strength.
func initialRange(elem string, current float64, n int) Range {
	s := int(math.Round(current))
	if s < 1 {
		s = 1
	}
	r := Range{Elem: elem, Min: s - (n-1)/2}
	r.Max = r.Min + n - 1
	return shiftUp(r)
}

// shiftUp moves a range that starts below 1 up, keeping its width.
func shiftUp(r Range) Range {
	if r.Min < 1 {
		d := 1 - r.Min
		r.Min += d
		r.Max += d
	}
	return r
}

// liveElements drops level restorers, which stay at minimum size.
func liveElements(elems []string) []string {
	var out []string
	for _, e := range elems {
		if !params.IsRestorer(e) {
			out = append(out, e)
		}
	}
	return out
}

// partition splits elements into balanced contiguous groups once there
// are more than maxLiveElements of them.
func partition(elems []string) [][]string {
	if len(elems) <= maxLiveElements {
		return [][]string{elems}
	}
	n := (len(elems) + groupSize - 1) / groupSize
	out := make([][]string, 0, n)
	start := 0
	for i := 0; i < n; i++ {
		size := len(elems) / n
		if i < len(elems)%n {
			size++
		}
		out = append(out, elems[start:start+size])
		start += size
	}
	return out
}

// combinations is the size of the Cartesian product of ranges.
func combinations(ranges []Range) int {
	total := 1
	for _, r := range ranges {
		total *= r.Count()
	}
	return total
}

// fitCombinations narrows ranges until their product is at most limit.
// Elements not in pinned shrink first; each shrink drops the value
// farthest from the element's anchor, never below minRangeValues.
func fitCombinations(ranges []Range, anchor map[string]float64, pinned map[string]bool, limit int) []Range {
	out := append([]Range(nil), ranges...)
	if limit <= 0 {
		return out
	}
	for combinations(out) > limit {
		i := widest(out, pinned)
		if i < 0 {
			i = widest(out, nil)
		}
		if i < 0 {
			break
		}
		r := &out[i]
		a, ok := anchor[r.Elem]
		if !ok {
			a = r.Centre()
		}
		if float64(r.Max)-a >= a-float64(r.Min) {
			r.Max--
		} else {
			r.Min++
		}
	}
	return out
}

// widest returns the index of the widest range not in skip that can still
// shrink, or -1.
func widest(ranges []Range, skip map[string]bool) int {
	best := -1
	for i, r := range ranges {
		if skip[r.Elem] || r.Count() <= minRangeValues {
			continue
		}
		if best < 0 || r.Count() > ranges[best].Count() {
			best = i
		}
	}
	return best
}

// clampCount keeps a range between minRangeValues and maxRangeValues
// values.
func clampCount(r Range) Range {
	if r.Count() > maxRangeValues {
		r.Max = r.Min + maxRangeValues - 1
	}
	if r.Count() < minRangeValues {
		r.Max = r.Min + minRangeValues - 1
	}
	return r
}

// ValidateRanges checks a winner against its ranges. A winner on an upper
// boundary moves the range up, skewed toward growth; one on a lower
// boundary above 1 moves it down. It returns the next ranges and whether
// the winner was accepted as is.
func ValidateRanges(ranges []Range, winner map[string]float64, maxCombinations int) ([]Range, bool) {
	next := make([]Range, len(ranges))
	moved := make(map[string]bool)
	ok := true
	for i, r := range ranges {
		w := int(math.Round(winner[r.Elem]))
		switch {
		case w >= r.Max:
			r = Range{Elem: r.Elem, Min: w - 2, Max: w + 5}
			moved[r.Elem] = true
			ok = false
		case w <= r.Min && w > 1:
			r = Range{Elem: r.Elem, Min: w - 3, Max: w + 2}
			moved[r.Elem] = true
			ok = false
		}
		next[i] = clampCount(shiftUp(r))
	}
	if ok {
		return ranges, true
	}
	return fitCombinations(next, winner, moved, maxCombinations), false
}
