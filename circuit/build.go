package circuit

import (
	"fmt"
	"math"

	"github.com/StephenMoreOSU/rad-gen-sub000/config"
	"github.com/StephenMoreOSU/rad-gen-sub000/params"
)

// Derived holds the mux sizes and per-tile counts implied by the
// architecture parameters.
type Derived struct {
	SBMuxSize     int
	SBMuxPerTile  int
	CBMuxSize     int
	LocalMuxSize  int
	RoutingSBTaps int
	RoutingCBTaps int
	LocalTaps     int
	GeneralTaps   int
}

// Derive computes the front-end numbers for an architecture.
func Derive(arch config.ArchConfig) Derived {
	sbPerTile := 2 * arch.W / arch.L
	if sbPerTile < 1 {
		sbPerTile = 1
	}
	outputs := float64(arch.Or*arch.N) * arch.Fcout * float64(arch.W)
	return Derived{
		SBMuxSize:     (arch.Fs-1)*arch.L + int(math.Ceil(outputs/float64(sbPerTile))),
		SBMuxPerTile:  sbPerTile,
		CBMuxSize:     maxInt(2, int(math.Ceil(arch.Fcin*float64(arch.W)))),
		LocalMuxSize:  maxInt(2, int(math.Ceil(arch.Fclocal*float64(arch.I+arch.Ofb*arch.N)))),
		RoutingSBTaps: maxInt(1, arch.Fs-1),
		RoutingCBTaps: atLeast(arch.Fcin*float64(arch.I), 1),
		LocalTaps:     atLeast(float64(arch.N*arch.K)*arch.Fclocal, 2),
		GeneralTaps:   atLeast(arch.Fcout*float64(arch.W), 1),
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

type builder struct {
	a   *Arena
	err error
}

func (b *builder) add(c Circuit, num int, weight float64) Handle {
	if b.err != nil {
		return None
	}
	m := c.Meta()
	m.NumPerTile = num
	m.DelayWeight = weight
	h, err := b.a.add(c)
	if err != nil {
		b.err = err
	}
	return h
}

// Build constructs every circuit of a tile from the configuration.
func Build(cfg *config.Config) (*Arena, error) {
	arch := cfg.Arch
	d := Derive(arch)
	a := NewArena(cfg)
	b := &builder{a: a}
	w := cfg.Sizing.DelayWeights
	ratio := cfg.Process.ClusterHeightRatio
	tg := arch.UseTgate

	sb := newMux(KindSBMux, a.nextID(KindSBMux), d.SBMuxSize, tg, false, SBMuxSeeds)
	sbH := b.add(sb, d.SBMuxPerTile, w[KindSBMux])
	cb := newMux(KindCBMux, a.nextID(KindCBMux), d.CBMuxSize, tg, false, CBMuxSeeds)
	cbH := b.add(cb, arch.I, w[KindCBMux])
	local := newMux(KindLocalMux, a.nextID(KindLocalMux), d.LocalMuxSize, tg, true, LocalMuxSeeds)
	localH := b.add(local, arch.N*arch.K, w[KindLocalMux])

	var cluster []Handle
	cluster = append(cluster, localH)

	lut := newLUT(a.nextID(KindLUT), arch.K, tg)
	lutH := b.add(lut, arch.N, 0)
	cluster = append(cluster, lutH)

	if arch.UseFLUT {
		fm := newMux(KindFLUTMux, a.nextID(KindFLUTMux), 2, tg, true, UnitMuxSeeds)
		cluster = append(cluster, b.add(fm, arch.N, w[KindFLUTMux]))
	}

	ffPerBLE := 1
	if arch.UseFLUT {
		ffPerBLE = 2
	}
	ff := newFlipFlop(a.nextID(KindFF), arch.Rsel != "z", tg)
	ffH := b.add(ff, arch.N*ffPerBLE, 0)
	cluster = append(cluster, ffH)

	lbo := newMux(KindLocalBLEOutput, a.nextID(KindLocalBLEOutput), 2, tg, true, LocalBLEOutputSeeds)
	lboH := b.add(lbo, arch.N*arch.Ofb, w[KindLocalBLEOutput])
	gbo := newMux(KindGeneralBLEOutput, a.nextID(KindGeneralBLEOutput), 2, tg, true, GeneralBLEOutputSeeds)
	gboH := b.add(gbo, arch.N*arch.Or, w[KindGeneralBLEOutput])
	cluster = append(cluster, lboH, gboH)

	for i := 0; i < arch.K; i++ {
		letter := byte('a' + i)
		weight := w[fmt.Sprintf("lut_%c", letter)]
		variant := VariantFor(letter, arch.Rsel, arch.Rfb)

		kind := DriverKind(letter, false)
		drv := newLUTDriver(a.nextID(kind), letter, variant, tg, local.Meta(), lut.Meta(), ff.Meta(), ratio)
		cluster = append(cluster, b.add(drv, arch.N, weight))

		kind = DriverKind(letter, true)
		not := newLUTDriverNot(a.nextID(kind), letter, local.Meta(), ratio)
		cluster = append(cluster, b.add(not, arch.N, weight))

		kind = fmt.Sprintf("lut_%c_driver_load", letter)
		b.add(newDriverLoad(a.nextID(kind), letter, lut, lutH, ratio), 0, 0)
	}

	if arch.EnableCarryChain {
		cluster = append(cluster, b.buildCarry(arch, w[KindCarryChain])...)
	}

	var memory []Handle
	if arch.EnableBRAM {
		memory = b.buildMemory(arch.BRAM, tg, w["ram"])
	}

	b.add(newRoutingLoad(a.nextID(KindRoutingWireLoad), arch.L, sb, cb, sbH, cbH,
		d.RoutingSBTaps, d.RoutingCBTaps, len(cfg.Process.MetalStack)-1), 0, 0)
	b.add(newLocalRoutingLoad(a.nextID(KindLocalRoutingWireLoad), local, localH, d.LocalTaps, ratio), 0, 0)
	b.add(newLUTOutputLoad(a.nextID(KindLUTOutputLoad), lut, ff, lbo, gbo,
		[]Handle{ffH, lboH, gboH}, arch.Ofb, arch.Or), 0, 0)
	b.add(newLocalBLEOutputLoad(a.nextID(KindLocalBLEOutputLoad), local, localH, d.LocalTaps, ratio), 0, 0)
	b.add(newGeneralBLEOutputLoad(a.nextID(KindGeneralBLEOutputLoad), sb, sbH, d.GeneralTaps), 0, 0)

	a.cluster = b.add(newCompound(KindLogicCluster, a.nextID(KindLogicCluster), cluster), 1, 0)
	tile := []Handle{sbH, cbH, a.cluster}
	if len(memory) > 0 {
		mem := newCompound(KindMemoryBlock, a.nextID(KindMemoryBlock), memory)
		mem.extra = func(st *params.Store, a *Arena) float64 {
			bram := a.cfg.Arch.BRAM
			return float64(bram.Rows*bram.Cols) * st.MustArea("ramsram")
		}
		a.memory = b.add(mem, 1, 0)
		tile = append(tile, a.memory)
	}
	a.tile = b.add(newCompound(KindTile, a.nextID(KindTile), tile), 1, 0)

	if b.err != nil {
		return nil, fmt.Errorf("building tile: %w", b.err)
	}
	return a, nil
}

func (b *builder) buildCarry(arch config.ArchConfig, weight float64) []Handle {
	a := b.a
	fas := arch.N * arch.FAsPerFLUT
	tg := arch.UseTgate

	mux := newMux(KindCarryMux, a.nextID(KindCarryMux), 2, tg, true, CarryMuxSeeds)
	hs := []Handle{
		b.add(newFullAdder(a.nextID(KindCarryChain)), fas, weight),
		b.add(newCarryPerf(a.nextID(KindCarryPerf), mux), fas, weight),
		b.add(newCarryInter(a.nextID(KindCarryInter)), 1, weight),
		b.add(mux, fas, weight),
	}
	if arch.CarryChainType == config.CarrySkip {
		blocks := (fas + arch.SkipSize - 1) / arch.SkipSize
		hs = append(hs,
			b.add(newSkipAnd(a.nextID(KindCarrySkipAnd), arch.SkipSize), blocks, weight),
			b.add(newMux(KindCarrySkipMux, a.nextID(KindCarrySkipMux), 2, tg, true, UnitMuxSeeds), blocks, weight))
	}
	return hs
}

func (b *builder) buildMemory(bram config.BRAMConfig, tg bool, weight float64) []Handle {
	a := b.a
	counts := memoryCounts(bram)
	var hs []Handle
	for _, kind := range MemoryOrder {
		id := a.nextID(kind)
		var c Circuit
		switch kind {
		case KindRAMLocalMux:
			c = newMux(kind, id, bram.LocalMuxSize, tg, true, UnitMuxSeeds)
		case KindRowDecoder:
			c = newRowDecoder(id)
		case KindWordlineDriver:
			c = newWordlineDriver(id)
		case KindColumnDecoder:
			c = newColumnDecoder(id)
		case KindPrecharge, KindWriteDriver:
			c = newBitlineDriver(kind, id)
		case KindSenseAmp:
			c = newSenseAmp(id)
		case KindOutputCrossbar:
			c = newMux(kind, id, crossbarSize(bram), tg, true, UnitMuxSeeds)
		}
		hs = append(hs, b.add(c, counts[kind], weight))
	}
	return hs
}

// Bucket is a group of circuits sized together and tracked by one quick
// mode flag.
type Bucket struct {
	Name    string
	Handles []Handle
}

// InputDriversBucket names the bucket holding every LUT input driver.
const InputDriversBucket = "lut_input_drivers"

// SizingOrder returns the buckets in the order the outer loop sizes them.
// It follows the signal path from the switch block to the cluster output.
func (a *Arena) SizingOrder() []Bucket {
	var out []Bucket
	add := func(name string, hs []Handle) {
		if len(hs) > 0 {
			out = append(out, Bucket{Name: name, Handles: hs})
		}
	}
	for _, kind := range []string{KindSBMux, KindCBMux, KindLocalMux, KindLUT, KindFLUTMux} {
		add(kind, a.OfKind(kind))
	}

	var drivers []Handle
	for i := 0; i < a.cfg.Arch.K; i++ {
		letter := byte('a' + i)
		drivers = append(drivers, a.OfKind(DriverKind(letter, false))...)
		drivers = append(drivers, a.OfKind(DriverKind(letter, true))...)
	}
	add(InputDriversBucket, drivers)

	for _, kind := range []string{KindLocalBLEOutput, KindGeneralBLEOutput,
		KindCarryChain, KindCarryPerf, KindCarryInter, KindCarryMux, KindCarrySkipAnd, KindCarrySkipMux} {
		add(kind, a.OfKind(kind))
	}
	for _, kind := range MemoryOrder {
		add(kind, a.OfKind(kind))
	}
	return out
}

// Measured returns every circuit whose delay is measured: the sizing
// order followed by the flip-flops, whose sizes are fixed.
func (a *Arena) Measured() []Handle {
	var out []Handle
	for _, b := range a.SizingOrder() {
		out = append(out, b.Handles...)
	}
	return append(out, a.OfKind(KindFF)...)
}
