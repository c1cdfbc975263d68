package circuit

import (
	"math"

	"github.com/StephenMoreOSU/rad-gen-sub000/config"
	"github.com/StephenMoreOSU/rad-gen-sub000/params"
)

// MemoryOrder is the order in which memory block circuits are sized.
var MemoryOrder = []string{
	KindRAMLocalMux,
	KindRowDecoder,
	KindWordlineDriver,
	KindColumnDecoder,
	KindPrecharge,
	KindWriteDriver,
	KindSenseAmp,
	KindOutputCrossbar,
}

// addressBits is the number of row address bits of a memory array.
func addressBits(rows int) int {
	return int(math.Ceil(math.Log2(float64(rows))))
}

// arrayWire sets a wire spanning cells memory cells.
func arrayWire(c *Chain, name string, cells func(config.BRAMConfig) float64) {
	c.wireRule = func(st *params.Store, a *Arena) {
		st.SetWire(name, cells(a.cfg.Arch.BRAM)*st.MustWidth("ramsram"), 0)
	}
}

// newRowDecoder is one predecode-and-select path of the row decoder.
func newRowDecoder(id int) *Chain {
	c := newChain(KindRowDecoder, id)
	c.inv("1", 1, 1)
	c.nand("nand", 1, 1)
	c.inv("2", 1, 1)
	decode := c.wire("decode")
	c.inv("3", 2, 2)
	c.finish()
	arrayWire(c, decode, func(b config.BRAMConfig) float64 { return float64(b.Rows) / 8 })
	return c
}

// newWordlineDriver drives one wordline across the array.
func newWordlineDriver(id int) *Chain {
	c := newChain(KindWordlineDriver, id)
	c.inv("1", 1, 1)
	c.inv("2", 4, 4)
	wl := c.wire("wordline")
	c.finish()
	arrayWire(c, wl, func(b config.BRAMConfig) float64 { return float64(b.Cols) })
	return c
}

// newColumnDecoder selects one column group.
func newColumnDecoder(id int) *Chain {
	c := newChain(KindColumnDecoder, id)
	c.inv("1", 1, 1)
	c.nand("nand", 1, 1)
	c.inv("2", 1, 1)
	sel := c.wire("select")
	c.finish()
	arrayWire(c, sel, func(b config.BRAMConfig) float64 { return float64(b.Cols) / 2 })
	return c
}

// newBitlineDriver is a two-inverter driver onto a bitline. The precharge
// and write drivers share this shape.
func newBitlineDriver(kind string, id int) *Chain {
	c := newChain(kind, id)
	c.inv("1", 1, 1)
	c.inv("2", 2, 2)
	bl := c.wire("bitline")
	c.finish()
	arrayWire(c, bl, func(b config.BRAMConfig) float64 { return float64(b.Rows) })
	return c
}

// newSenseAmp is drawn as a regenerative inverter pair behind the bitline.
func newSenseAmp(id int) *Chain {
	c := newChain(KindSenseAmp, id)
	c.inv("1", 1, 1)
	c.inv("2", 1, 1)
	out := c.wire("out")
	c.finish()
	arrayWire(c, out, func(b config.BRAMConfig) float64 { return 2 })
	return c
}

// memoryCounts returns how many copies of each memory circuit one block
// holds.
func memoryCounts(b config.BRAMConfig) map[string]int {
	return map[string]int{
		KindRAMLocalMux:    addressBits(b.Rows) + 2*b.Cols,
		KindRowDecoder:     b.Rows,
		KindWordlineDriver: b.Rows,
		KindColumnDecoder:  b.Cols,
		KindPrecharge:      2 * b.Cols,
		KindWriteDriver:    b.Cols,
		KindSenseAmp:       b.Cols,
		KindOutputCrossbar: b.Cols,
	}
}

// crossbarSize is the required size of the output crossbar muxes.
func crossbarSize(b config.BRAMConfig) int {
	n := b.Cols / 4
	if n < 2 {
		return 2
	}
	return n
}
