package circuit_test

import (
	"bytes"
	"math"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/StephenMoreOSU/rad-gen-sub000/area"
	"github.com/StephenMoreOSU/rad-gen-sub000/circuit"
	"github.com/StephenMoreOSU/rad-gen-sub000/config"
	"github.com/StephenMoreOSU/rad-gen-sub000/params"
	"github.com/StephenMoreOSU/rad-gen-sub000/testbench"
	"github.com/StephenMoreOSU/rad-gen-sub000/wire"
)

func mustBuild(cfg *config.Config) *circuit.Arena {
	a, err := circuit.Build(cfg)
	Expect(err).NotTo(HaveOccurred())
	return a
}

func only(a *circuit.Arena, kind string) circuit.Handle {
	hs := a.OfKind(kind)
	Expect(hs).To(HaveLen(1), kind)
	return hs[0]
}

// sized seeds and rolls up a fresh store the way the engine does.
func sized(a *circuit.Arena, cfg *config.Config) *params.Store {
	st := params.NewStore()
	a.SeedSizes(st)
	a.UpdateArea(st, area.NewModel(cfg.Process))
	a.UpdateWires(st)
	Expect(wire.NewStack(cfg.Process.MetalStack).UpdateRC(st)).To(Succeed())
	return st
}

var _ = Describe("Mux", func() {
	DescribeTable("MuxLevels",
		func(required, level1, level2 int) {
			l1, l2 := circuit.MuxLevels(required)
			Expect(l1).To(Equal(level1))
			Expect(l2).To(Equal(level2))
			Expect(l1 * l2).To(BeNumerically(">=", required))
		},
		Entry("10:1", 10, 4, 3),
		Entry("2:1", 2, 2, 1),
		Entry("perfect square", 16, 4, 4),
		Entry("single input", 1, 1, 1),
		Entry("degenerate", 0, 1, 1),
		Entry("64:1", 64, 8, 8),
	)

	It("should split a 10:1 connection block mux", func() {
		cfg := config.DefaultConfig()
		cfg.Arch.Fcin = 0.03125
		a := mustBuild(cfg)

		m, ok := a.Get(only(a, circuit.KindCBMux)).(*circuit.Mux)
		Expect(ok).To(BeTrue())
		Expect(m.Required).To(Equal(10))
		Expect(m.Level2).To(Equal(3))
		Expect(m.Level1).To(Equal(4))
		Expect(m.Implemented).To(Equal(12))
		Expect(m.Unused).To(Equal(2))
		Expect(m.SRAMPerMux).To(Equal(7))

		seeds := m.InitialSizes()
		Expect(seeds).To(HaveKeyWithValue("ptran_cb_mux_id_0_L1_nmos", 2.0))
		Expect(seeds).To(HaveKeyWithValue("ptran_cb_mux_id_0_L2_nmos", 2.0))
		Expect(seeds).To(HaveKeyWithValue("rest_cb_mux_id_0_pmos", 1.0))
		Expect(seeds).To(HaveKeyWithValue("inv_cb_mux_id_0_2_nmos", 6.0))
		Expect(seeds).To(HaveKeyWithValue("inv_cb_mux_id_0_2_pmos", 12.0))
		Expect(circuit.Elements(m)).To(Equal([]string{
			"ptran_cb_mux_id_0_L1", "ptran_cb_mux_id_0_L2", "rest_cb_mux_id_0",
			"inv_cb_mux_id_0_1", "inv_cb_mux_id_0_2",
		}))
	})

	It("should seed a 10:1 switch block mux", func() {
		cfg := config.DefaultConfig()
		cfg.Arch.Fcout = 0.05
		a := mustBuild(cfg)

		m := a.Get(only(a, circuit.KindSBMux)).(*circuit.Mux)
		Expect(m.Required).To(Equal(10))
		Expect([]int{m.Level1, m.Level2, m.Implemented, m.Unused, m.SRAMPerMux}).To(Equal([]int{4, 3, 12, 2, 7}))
		Expect(m.InitialSizes()).To(Equal(map[string]float64{
			"ptran_sb_mux_id_0_L1_nmos": 3,
			"ptran_sb_mux_id_0_L2_nmos": 4,
			"rest_sb_mux_id_0_pmos":     1,
			"inv_sb_mux_id_0_1_nmos":    4,
			"inv_sb_mux_id_0_1_pmos":    8,
			"inv_sb_mux_id_0_2_nmos":    10,
			"inv_sb_mux_id_0_2_pmos":    20,
		}))
	})

	It("should use transmission gates without restorers", func() {
		cfg := config.DefaultConfig()
		cfg.Arch.UseTgate = true
		a := mustBuild(cfg)
		m := a.Get(only(a, circuit.KindSBMux)).(*circuit.Mux)
		seeds := m.InitialSizes()
		Expect(seeds).To(HaveKeyWithValue("tgate_sb_mux_id_0_L1_nmos", 3.0))
		Expect(seeds).To(HaveKeyWithValue("tgate_sb_mux_id_0_L1_pmos", 3.0))
		Expect(seeds).NotTo(HaveKey("rest_sb_mux_id_0_pmos"))
	})

	It("should compute its area from the level counts", func() {
		cfg := config.DefaultConfig()
		cfg.Arch.Fcin = 0.03125
		a := mustBuild(cfg)
		st := sized(a, cfg)

		sp := "cb_mux_id_0"
		want := 12*st.MustArea("ptran_"+sp+"_L1") + 3*st.MustArea("ptran_"+sp+"_L2") +
			st.MustArea("rest_"+sp) + st.MustArea("inv_"+sp+"_1") + st.MustArea("inv_"+sp+"_2")
		Expect(st.MustArea(sp)).To(BeNumerically("~", want, 1e-6))
		Expect(st.MustArea(sp+"_sram")).To(BeNumerically("~", want+7*st.MustArea("sram"), 1e-6))
		Expect(st.WireLengths["wire_"+sp+"_L1"]).To(BeNumerically("~", st.MustWidth(sp), 1e-9))
	})
})

var _ = Describe("Build", func() {
	It("should derive mux sizes from the architecture", func() {
		d := circuit.Derive(config.DefaultConfig().Arch)
		Expect(d.SBMuxPerTile).To(Equal(160))
		Expect(d.SBMuxSize).To(Equal(9))
		Expect(d.CBMuxSize).To(Equal(64))
		Expect(d.LocalMuxSize).To(Equal(25))
	})

	It("should build one driver pair per LUT input", func() {
		cfg := config.DefaultConfig()
		a := mustBuild(cfg)
		for i := 0; i < cfg.Arch.K; i++ {
			letter := byte('a' + i)
			only(a, circuit.DriverKind(letter, false))
			only(a, circuit.DriverKind(letter, true))
		}
		Expect(a.Memory()).To(Equal(circuit.None))
		Expect(a.Meta(a.Tile()).SpName).To(Equal("tile_id_0"))
		Expect(a.Meta(only(a, circuit.KindCBMux)).NumPerTile).To(Equal(cfg.Arch.I))
		Expect(a.Meta(only(a, circuit.KindLUT)).NumPerTile).To(Equal(cfg.Arch.N))
	})

	It("should pick driver variants from Rsel and Rfb", func() {
		cfg := config.DefaultConfig()
		cfg.Arch.Rsel = "a"
		cfg.Arch.Rfb = "ab"
		a := mustBuild(cfg)
		variant := func(letter byte) circuit.DriverVariant {
			return a.Get(only(a, circuit.DriverKind(letter, false))).(*circuit.LUTDriver).Variant
		}
		Expect(variant('a')).To(Equal(circuit.DriverRegFBRsel))
		Expect(variant('b')).To(Equal(circuit.DriverRegFB))
		Expect(variant('c')).To(Equal(circuit.DriverDefault))
	})

	It("should add carry and memory circuits when enabled", func() {
		cfg := config.DefaultConfig()
		cfg.Arch.EnableCarryChain = true
		cfg.Arch.CarryChainType = config.CarrySkip
		cfg.Arch.EnableBRAM = true
		a := mustBuild(cfg)

		Expect(a.Memory()).NotTo(Equal(circuit.None))
		for _, kind := range []string{circuit.KindCarryChain, circuit.KindCarrySkipAnd,
			circuit.KindCarrySkipMux, circuit.KindRowDecoder, circuit.KindSenseAmp} {
			only(a, kind)
		}
		Expect(a.Meta(only(a, circuit.KindCarrySkipAnd)).NumPerTile).To(Equal(5))

		st := sized(a, cfg)
		Expect(st.MustArea(a.Meta(a.Tile()).SpName)).To(BeNumerically(">", st.MustArea(a.Meta(a.Cluster()).SpName)))
	})

	It("should seed exactly the declared transistors", func() {
		cfg := config.DefaultConfig()
		cfg.Arch.EnableCarryChain = true
		cfg.Arch.EnableBRAM = true
		a := mustBuild(cfg)
		for _, h := range a.SizableHandles() {
			s, _ := a.Sizable(h)
			seeds := s.InitialSizes()
			names := s.TransistorNames()
			Expect(seeds).To(HaveLen(len(names)), a.Meta(h).SpName)
			for _, n := range names {
				Expect(seeds).To(HaveKey(n))
				Expect(n).To(ContainSubstring(a.Meta(h).SpName))
			}
		}
	})

	It("should drop every level restorer with transmission gates", func() {
		cfg := config.DefaultConfig()
		cfg.Arch.UseTgate = true
		cfg.Arch.EnableCarryChain = true
		cfg.Arch.EnableBRAM = true
		a := mustBuild(cfg)
		for _, h := range a.SizableHandles() {
			s, _ := a.Sizable(h)
			for _, n := range s.TransistorNames() {
				Expect(params.IsRestorer(n)).To(BeFalse(), n)
			}
		}
	})

	It("should keep every sp_name unique", func() {
		cfg := config.DefaultConfig()
		cfg.Arch.EnableCarryChain = true
		cfg.Arch.EnableBRAM = true
		a := mustBuild(cfg)
		seen := map[string]bool{}
		for _, h := range a.Handles() {
			sp := a.Meta(h).SpName
			Expect(seen).NotTo(HaveKey(sp))
			seen[sp] = true
			found, ok := a.Find(sp)
			Expect(ok).To(BeTrue())
			Expect(found).To(Equal(h))
		}
	})

	It("should order sizing buckets along the signal path", func() {
		a := mustBuild(config.DefaultConfig())
		var names []string
		for _, b := range a.SizingOrder() {
			names = append(names, b.Name)
		}
		Expect(names).To(Equal([]string{
			circuit.KindSBMux, circuit.KindCBMux, circuit.KindLocalMux, circuit.KindLUT,
			circuit.InputDriversBucket, circuit.KindLocalBLEOutput, circuit.KindGeneralBLEOutput,
		}))
	})
})

var _ = Describe("Area", func() {
	It("should sum the tile from its parts", func() {
		cfg := config.DefaultConfig()
		a := mustBuild(cfg)
		st := sized(a, cfg)

		sb := a.Meta(only(a, circuit.KindSBMux))
		cb := a.Meta(only(a, circuit.KindCBMux))
		cluster := a.Meta(a.Cluster()).SpName
		want := float64(sb.NumPerTile)*st.MustArea(sb.SpName+"_sram") +
			float64(cb.NumPerTile)*st.MustArea(cb.SpName+"_sram") +
			st.MustArea(cluster)

		tile := a.Meta(a.Tile()).SpName
		Expect(st.MustArea(tile)).To(BeNumerically("~", want, want*1e-12))
		Expect(st.MustWidth(tile)).To(BeNumerically("~", math.Sqrt(want), 1e-6))
	})

	It("should give every wire a length and parasitics", func() {
		cfg := config.DefaultConfig()
		a := mustBuild(cfg)
		st := sized(a, cfg)
		for _, h := range a.Handles() {
			for _, w := range a.Get(h).WireNames() {
				Expect(st.WireLengths).To(HaveKey(w))
				Expect(st.WireRC).To(HaveKey(w))
			}
		}
	})

	It("should grow when a device grows", func() {
		cfg := config.DefaultConfig()
		a := mustBuild(cfg)
		st := sized(a, cfg)
		tile := a.Meta(a.Tile()).SpName
		before := st.MustArea(tile)

		st.TransistorSizes["ptran_sb_mux_id_0_L1_nmos"] = 6
		a.UpdateArea(st, area.NewModel(cfg.Process))
		Expect(st.MustArea(tile)).To(BeNumerically(">", before))
	})
})

var _ = Describe("Carry delays", func() {
	d := circuit.CarryDelays{FA: 1, Perf: 10, Inter: 100, AndTree: 1000, SkipMux: 10000}

	It("should ripple through every adder but two", func() {
		Expect(circuit.RippleDelay(10, 2, d)).To(Equal(18.0 + 10 + 100))
	})

	It("should skip whole blocks", func() {
		Expect(circuit.SkipDelay(4, 2, d)).To(Equal(4.0 + 1000 + 10000 + 20000 + 4 + 10 + 100))
		Expect(circuit.SkipDelay(4, 1, d)).To(Equal(4.0 + 1000 + 10000 + 20000 + 4 + 10 + 200))
	})
})

var _ = Describe("Drivers", func() {
	DescribeTable("VariantFor",
		func(letter byte, rsel, rfb string, want circuit.DriverVariant) {
			Expect(circuit.VariantFor(letter, rsel, rfb)).To(Equal(want))
		},
		Entry("plain", byte('b'), "c", "z", circuit.DriverDefault),
		Entry("rsel", byte('c'), "c", "z", circuit.DriverRsel),
		Entry("feedback", byte('d'), "z", "cd", circuit.DriverRegFB),
		Entry("both", byte('c'), "c", "cd", circuit.DriverRegFBRsel),
	)

	It("should halve the gate load per letter", func() {
		Expect(circuit.GateLoadCount(6, 'a')).To(Equal(32))
		Expect(circuit.GateLoadCount(6, 'f')).To(Equal(1))
		Expect(circuit.DriverRegFB.String()).To(Equal("reg_fb"))
	})
})

var _ = Describe("Testbench", func() {
	var (
		cfg *config.Config
		a   *circuit.Arena
	)

	BeforeEach(func() {
		cfg = config.DefaultConfig()
		a = mustBuild(cfg)
	})

	It("should probe both switch block inverters", func() {
		h := only(a, circuit.KindSBMux)
		spec, err := a.Testbench(h)
		Expect(err).NotTo(HaveOccurred())
		Expect(spec.DUT).To(Equal("sb_mux_id_0"))
		Expect(spec.Stages).To(HaveLen(2))
		Expect(spec.Stages[0].Name).To(Equal("inv_sb_mux_id_0_1"))
		Expect(spec.Stages[1].Name).To(Equal("inv_sb_mux_id_0_2"))
		Expect(spec.Params()).To(ContainElements("ptran_sb_mux_id_0_L1_nmos", "wire_sb_mux_id_0_L1_res"))

		var dut string
		for _, l := range spec.Lines {
			if strings.Contains(l, testbench.NodeDUTVDD) {
				dut = l
			}
		}
		Expect(dut).To(HaveSuffix("sb_mux_id_0_on"))

		buf := &bytes.Buffer{}
		Expect(testbench.Write(buf, spec, testbench.DefaultOptions(), "sweep.l")).To(Succeed())
		Expect(buf.String()).To(ContainSubstring("meas_inv_sb_mux_id_0_2_tfall"))
	})

	It("should build a testbench for every sizable circuit", func() {
		cfg.Arch.EnableCarryChain = true
		cfg.Arch.EnableBRAM = true
		a = mustBuild(cfg)
		for _, h := range a.SizableHandles() {
			spec, err := a.Testbench(h)
			Expect(err).NotTo(HaveOccurred(), a.Meta(h).SpName)
			Expect(spec.Probe).NotTo(BeEmpty())
		}
	})

	It("should refuse circuits without transistors", func() {
		_, err := a.Testbench(a.Tile())
		Expect(err).To(MatchError(ContainSubstring("no transistors")))
	})

	It("should write a balanced subcircuit library", func() {
		buf := &bytes.Buffer{}
		Expect(a.WriteLibrary(buf)).To(Succeed())
		out := buf.String()
		Expect(out).To(ContainSubstring(".SUBCKT sb_mux_id_0_on "))
		Expect(out).To(ContainSubstring(".SUBCKT lut_id_0_on "))
		Expect(strings.Count(out, ".SUBCKT")).To(Equal(strings.Count(out, ".ENDS")))
	})

	It("should write the basic on path next to the buffered one", func() {
		buf := &bytes.Buffer{}
		Expect(a.WriteLibrary(buf)).To(Succeed())
		out := buf.String()

		block := func(name string) string {
			start := strings.Index(out, ".SUBCKT "+name+" ")
			Expect(start).To(BeNumerically(">=", 0), name)
			end := strings.Index(out[start:], ".ENDS")
			return out[start : start+end]
		}
		for _, flavour := range []string{"_off", "_partial", "_basic_on", "_on"} {
			Expect(out).To(ContainSubstring(".SUBCKT sb_mux_id_0" + flavour + " "))
		}

		basic := block("sb_mux_id_0_basic_on")
		Expect(basic).To(HavePrefix(".SUBCKT sb_mux_id_0_basic_on n_in n_2_2 "))
		Expect(basic).To(ContainSubstring("ptran_sb_mux_id_0_L2"))
		Expect(basic).NotTo(ContainSubstring("inv_sb_mux_id_0_1"))
		Expect(basic).NotTo(ContainSubstring("rest_sb_mux_id_0"))

		on := block("sb_mux_id_0_on")
		Expect(on).To(ContainSubstring("inv_sb_mux_id_0_1"))
		Expect(on).To(ContainSubstring("inv_sb_mux_id_0_2"))
	})

	It("should measure the flip-flops after the sizing order", func() {
		ff := only(a, circuit.KindFF)
		var sized []circuit.Handle
		for _, b := range a.SizingOrder() {
			Expect(b.Handles).NotTo(ContainElement(ff))
			sized = append(sized, b.Handles...)
		}

		measured := a.Measured()
		Expect(measured).To(HaveLen(len(sized) + 1))
		Expect(measured[:len(sized)]).To(Equal(sized))
		Expect(measured[len(sized)]).To(Equal(ff))

		spec, err := a.Testbench(ff)
		Expect(err).NotTo(HaveOccurred())
		Expect(spec.DUT).To(Equal(a.Meta(ff).SpName))
	})
})
