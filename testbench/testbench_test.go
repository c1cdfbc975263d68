package testbench_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/StephenMoreOSU/rad-gen-sub000/testbench"
)

func muxSpec() *testbench.Spec {
	s := testbench.New("sb_mux_id_0_tb", "sb_mux_id_0")
	s.Shaper(testbench.NodeInput, "n_1_1")
	s.Instance("sb_mux_on_1", "sb_mux_id_0_on", "n_1_1", "n_1_2", testbench.NodeDUTVDD, testbench.NodeGND)
	s.Instance("routing_wire_load_1", "routing_wire_load", "n_1_2", "n_1_3", testbench.NodeVDD, testbench.NodeGND)
	s.MeasureStage(testbench.ParityStage("inv_sb_mux_id_0_1",
		testbench.Node("sb_mux_on_1", "n_2_1"), true))
	s.MeasureTotal(testbench.Node("sb_mux_on_1", "n_out"), false)
	s.Require("inv_sb_mux_id_0_1_nmos", "ptran_sb_mux_id_0_L1_nmos", "inv_sb_mux_id_0_1_nmos")
	return s
}

func options() testbench.Options {
	opt := testbench.DefaultOptions()
	opt.Library = "models.l"
	opt.BasicLib = "basic_subcircuits.l"
	opt.SubcktLib = "subcircuits.l"
	opt.VDD = 0.8
	opt.VSRAM = 1
	opt.GateLength = 22
	opt.RestLength = 44
	opt.ShaperWn = 1
	opt.ShaperWp = 2
	return opt
}

var _ = Describe("Spec", func() {
	It("should pick measurement edges from stage parity", func() {
		inv := testbench.ParityStage("a", "n_a", true)
		Expect(inv.TrigRise).To(Equal("FALL=1"))
		Expect(inv.TargRise).To(Equal("RISE=1"))
		buf := testbench.ParityStage("b", "n_b", false)
		Expect(buf.TrigRise).To(Equal("RISE=1"))
		Expect(buf.TrigFall).To(Equal("FALL=1"))
	})

	It("should sample logic low in the low half of the output", func() {
		s := testbench.New("x", "x")
		s.MeasureTotal("n_out", true)
		Expect(s.ProbeAt).To(Equal("2.3n"))
		s.MeasureTotal("n_out", false)
		Expect(s.ProbeAt).To(Equal("4.3n"))
	})

	It("should deduplicate and sort required parameters", func() {
		Expect(muxSpec().Params()).To(Equal([]string{"inv_sb_mux_id_0_1_nmos", "ptran_sb_mux_id_0_L1_nmos"}))
	})

	It("should list every measurement", func() {
		Expect(muxSpec().Measurements()).To(Equal([]string{
			"meas_inv_sb_mux_id_0_1_trise", "meas_inv_sb_mux_id_0_1_tfall",
			testbench.MeasTotalRise, testbench.MeasTotalFall,
			testbench.MeasLogicLow, testbench.MeasCurrent, testbench.MeasAvgPower,
		}))
	})

	It("should name hierarchical nodes", func() {
		Expect(testbench.Node("lut_on_1", "n_out")).To(Equal("Xlut_on_1.n_out"))
	})

	It("should place the sweep file next to the testbench", func() {
		Expect(testbench.SweepPath("/tmp/out/sb_mux_id_0_tb.sp")).To(Equal("/tmp/out/sb_mux_id_0_tb_sweep.l"))
	})

	It("should summarize a spec", func() {
		Expect(testbench.Describe(muxSpec())).To(Equal("sb_mux_id_0_tb (dut sb_mux_id_0, 1 stages, 2 params)"))
	})
})

var _ = Describe("Write", func() {
	It("should render the full measurement set", func() {
		buf := &bytes.Buffer{}
		Expect(testbench.Write(buf, muxSpec(), options(), "sweep.l")).To(Succeed())
		out := buf.String()

		Expect(out).To(HavePrefix(".TITLE sb_mux_id_0_tb"))
		Expect(out).To(ContainSubstring("* Device under test: sb_mux_id_0"))
		Expect(out).To(ContainSubstring(`.INCLUDE "sweep.l"`))
		Expect(out).To(ContainSubstring(".PARAM gate_length = 22n"))
		Expect(out).To(ContainSubstring(".PARAM rest_length = 44n"))
		Expect(out).To(ContainSubstring(".TRAN 1p 8n SWEEP DATA=sweep_data"))
		Expect(out).To(ContainSubstring("PULSE (0 supply_v 0.5n 0 0 2n 4n)"))
		Expect(out).To(ContainSubstring("Xsb_mux_on_1 n_1_1 n_1_2 n_vdd_dut n_gnd sb_mux_id_0_on"))
		Expect(out).To(ContainSubstring("Xshape_2_n_1_1 n_1_1_shape n_1_1 n_vdd n_gnd inv"))

		Expect(out).To(ContainSubstring(".MEASURE TRAN meas_inv_sb_mux_id_0_1_trise TRIG V(n_in) VAL='supply_v/2' FALL=1"))
		Expect(out).To(ContainSubstring("+    TARG V(Xsb_mux_on_1.n_2_1) VAL='supply_v/2' RISE=1"))
		Expect(out).To(ContainSubstring(".MEASURE TRAN meas_total_tfall TRIG V(n_in) VAL='supply_v/2' FALL=1"))
		Expect(out).To(ContainSubstring("meas_logic_low_voltage FIND V(Xsb_mux_on_1.n_out) AT=4.3n"))
		Expect(out).To(ContainSubstring("meas_current INTEGRAL I(VDUT) FROM=4n TO=8n"))
		Expect(out).To(ContainSubstring(".PRINT TRAN V(Xsb_mux_on_1.n_2_1) V(Xsb_mux_on_1.n_out)"))
		Expect(strings.TrimSpace(out)).To(HaveSuffix(".END"))
	})

	It("should refuse a spec without a total path", func() {
		s := testbench.New("x_tb", "x")
		Expect(testbench.Write(&bytes.Buffer{}, s, options(), "sweep.l")).To(MatchError(ContainSubstring("total path not set")))
	})

	It("should write the file into a directory", func() {
		dir, err := os.MkdirTemp("", "testbench-test-*")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(os.RemoveAll, dir)

		path, err := testbench.WriteFile(dir, muxSpec(), options())
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal(filepath.Join(dir, "sb_mux_id_0_tb.sp")))
		data, err := os.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(ContainSubstring(`.INCLUDE "` + testbench.SweepPath(path) + `"`))
	})
})
