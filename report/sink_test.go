package report_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/StephenMoreOSU/rad-gen-sub000/circuit"
	"github.com/StephenMoreOSU/rad-gen-sub000/config"
	"github.com/StephenMoreOSU/rad-gen-sub000/report"
	"github.com/StephenMoreOSU/rad-gen-sub000/sizing"
	"github.com/StephenMoreOSU/rad-gen-sub000/spice"
)

type memoryArchive struct {
	runs       []*report.Summary
	iterations int
}

func (m *memoryArchive) Store(sum *report.Summary, recs []sizing.IterationRecord) error {
	m.runs = append(m.runs, sum)
	m.iterations += len(recs)
	return nil
}

func (m *memoryArchive) Close() {}

var _ = Describe("Sink", func() {
	var (
		dir  string
		out  *bytes.Buffer
		sink *report.Sink
	)

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "report-test-*")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(os.RemoveAll, dir)

		out = &bytes.Buffer{}
		cfg := report.DefaultConfig()
		cfg.Dir = dir
		cfg.Output = out
		cfg.Plot = false
		sink, err = report.NewSink(cfg)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(sink.Close)
	})

	It("should write one table per range-search round", func() {
		Expect(sink.RangeSearch(sizing.SearchReport{
			Outer: 1, Round: 2, SpName: "sb_mux_id_0",
			Elements: []string{"inv_sb_mux_id_0_1", "ptran_sb_mux_id_0_L1"},
			All: []sizing.Evaluation{
				{Sizes: []float64{2, 3}, Area: 10, Delay: 1e-10, Cost: 1e-9, Valid: true},
				{Sizes: []float64{3, 3}, Area: 12, Delay: 1e-10, Cost: 1.2e-9, Valid: true},
			},
			Top: []sizing.Evaluation{{Sizes: []float64{2, 3}, Area: 10, Delay: 1e-10, Cost: 1e-9, Valid: true}},
		})).To(Succeed())

		all, err := os.ReadFile(filepath.Join(sink.ResultsDir(), "sb_mux_id_0_o1_r2_all.txt"))
		Expect(err).NotTo(HaveOccurred())
		lines := strings.Split(strings.TrimSpace(string(all)), "\n")
		Expect(lines).To(HaveLen(3))
		Expect(lines[0]).To(HavePrefix("RANK\tinv_sb_mux_id_0_1\tptran_sb_mux_id_0_L1\tAREA"))
		Expect(lines[1]).To(HavePrefix("1\t2\t3\t10\t"))

		Expect(filepath.Join(sink.ResultsDir(), "sb_mux_id_0_o1_r2_top.txt")).To(BeAnExistingFile())
	})

	It("should start a new CSV header when the measurement set changes", func() {
		rec := func(tag string, values map[string]float64) sizing.MeasurementRecord {
			return sizing.MeasurementRecord{Tag: tag, Outer: 1, SpName: "cb_mux_id_0", Inner: 2, TranSet: 3,
				Row: spice.Row{Values: values}}
		}
		Expect(sink.Measurement(rec("erf", map[string]float64{"meas_total_trise": 1e-11, "meas_total_tfall": 2e-11}))).To(Succeed())
		Expect(sink.Measurement(rec("erf", map[string]float64{"meas_total_trise": 3e-11, "meas_total_tfall": math.NaN()}))).To(Succeed())
		Expect(sink.Measurement(rec("update_delays", map[string]float64{"meas_avg_power": 1e-6}))).To(Succeed())
		Expect(sink.Close()).To(Succeed())

		f, err := os.Open(filepath.Join(sink.ResultsDir(), report.MeasurementsFile))
		Expect(err).NotTo(HaveOccurred())
		defer f.Close()
		r := csv.NewReader(f)
		r.FieldsPerRecord = -1
		records, err := r.ReadAll()
		Expect(err).NotTo(HaveOccurred())

		Expect(records).To(HaveLen(5))
		Expect(records[0]).To(Equal([]string{"TAG", "OUTER_ITER", "SIZING_SBCKT", "INNER_ITER", "TRAN_SET_ITER",
			"meas_total_tfall", "meas_total_trise"}))
		Expect(records[1][:5]).To(Equal([]string{"erf", "1", "cb_mux_id_0", "2", "3"}))
		Expect(records[2][5]).To(Equal("failed"))
		Expect(records[3][5]).To(Equal("meas_avg_power"))
		Expect(records[4][0]).To(Equal("update_delays"))
	})

	It("should append every iteration to the table", func() {
		Expect(sink.Iteration(sizing.IterationRecord{Iteration: 0, Area: 100, Delay: 2e-10, Cost: 2e-8})).To(Succeed())
		Expect(sink.Iteration(sizing.IterationRecord{Iteration: 1, Area: 90, Delay: 2e-10, Cost: 1.8e-8,
			Skipped: []string{"sb_mux", "cb_mux"}})).To(Succeed())
		Expect(sink.Close()).To(Succeed())

		data, err := os.ReadFile(filepath.Join(sink.ResultsDir(), report.IterationsFile))
		Expect(err).NotTo(HaveOccurred())
		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		Expect(lines).To(HaveLen(3))
		Expect(lines[2]).To(HaveSuffix("sb_mux,cb_mux"))
		Expect(sink.Iterations()).To(HaveLen(2))
	})

	It("should have a unique run id", func() {
		other, err := report.NewSink(report.Config{Dir: dir})
		Expect(err).NotTo(HaveOccurred())
		defer other.Close()
		Expect(other.RunID()).NotTo(Equal(sink.RunID()))
		Expect(sink.RunID()).To(HaveLen(20))
	})
})

var _ = Describe("Finish", func() {
	var (
		dir    string
		cfg    *config.Config
		engine *sizing.Engine
		out    *sizing.Outcome
	)

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "report-finish-*")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(os.RemoveAll, dir)

		cfg = config.DefaultConfig()
		cfg.Arch.N = 2
		cfg.Arch.K = 4
		cfg.Arch.I = 4
		cfg.Arch.W = 8
		cfg.Arch.L = 2
		cfg.Output.Dir = dir
		arena, err := circuit.Build(cfg)
		Expect(err).NotTo(HaveOccurred())
		idle := spice.SimulatorFunc(func(context.Context, string, *spice.Sweep) ([]spice.Row, error) {
			return nil, spice.ErrSimulationUnavailable
		})
		engine, err = sizing.NewEngine(cfg, arena, idle)
		Expect(err).NotTo(HaveOccurred())

		area := engine.TileArea()
		seed := sizing.IterationRecord{Iteration: 0, Area: area, Delay: 4e-10, Cost: area * 4e-10,
			Sizes: engine.Store().Sizes()}
		best := sizing.IterationRecord{Iteration: 1, Area: area, Delay: 3e-10, Cost: area * 3e-10,
			Sizes: engine.Store().Sizes(), Delays: map[string]float64{"sb_mux_id_0": 1e-10}}
		out = &sizing.Outcome{
			Iterations: []sizing.IterationRecord{seed, best},
			Best:       1,
			Final:      best,
			Converged:  true,
		}
	})

	It("should write the final tables, the summary and the plot", func() {
		buf := &bytes.Buffer{}
		archive := &memoryArchive{}
		sink, err := report.NewSink(report.Config{Dir: dir, Plot: true, Output: buf, Archive: archive})
		Expect(err).NotTo(HaveOccurred())
		defer sink.Close()

		sum, err := sink.Finish(cfg, engine, out)
		Expect(err).NotTo(HaveOccurred())
		Expect(sum.BestIteration).To(Equal(1))
		Expect(sum.Iterations).To(Equal(1))
		Expect(sum.Improvement).To(BeNumerically("~", 0.25, 1e-12))
		Expect(sum.RunID).To(Equal(sink.RunID()))

		for _, name := range []string{report.FinalFile, report.SizesFile, report.SummaryFile, report.PlotFile} {
			Expect(filepath.Join(dir, name)).To(BeAnExistingFile())
		}

		data, err := os.ReadFile(filepath.Join(dir, report.SummaryFile))
		Expect(err).NotTo(HaveOccurred())
		var decoded report.Summary
		Expect(json.Unmarshal(data, &decoded)).To(Succeed())
		Expect(decoded.ConfigDigest).To(HaveLen(16))
		Expect(decoded.Delays).To(HaveKeyWithValue("sb_mux_id_0", 1e-10))

		sizes, err := os.ReadFile(filepath.Join(dir, report.SizesFile))
		Expect(err).NotTo(HaveOccurred())
		Expect(strings.Count(string(sizes), "\n")).To(Equal(len(engine.Store().TransistorSizes)))

		Expect(archive.runs).To(HaveLen(1))
		Expect(archive.iterations).To(Equal(2))

		sink.PrintSummary(sum)
		Expect(buf.String()).To(ContainSubstring("Iterations:       1 (best 1)"))
		Expect(buf.String()).To(ContainSubstring("Improvement:     25.0%"))
	})

	It("should give equal configs the same digest", func() {
		a, err := report.ConfigDigest(cfg)
		Expect(err).NotTo(HaveOccurred())
		b, err := report.ConfigDigest(cfg.Clone())
		Expect(err).NotTo(HaveOccurred())
		Expect(a).To(Equal(b))

		changed := cfg.Clone()
		changed.Arch.W = 16
		c, err := report.ConfigDigest(changed)
		Expect(err).NotTo(HaveOccurred())
		Expect(c).NotTo(Equal(a))
	})
})

var _ = Describe("MongoArchive", func() {
	It("should fail fast when no server answers", func() {
		_, err := report.NewMongoArchive("mongodb://127.0.0.1:1/fpgasize", 200*time.Millisecond)
		Expect(err).To(HaveOccurred())
	})
})
