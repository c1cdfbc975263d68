package spice_test

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/StephenMoreOSU/rad-gen-sub000/spice"
)

var _ = Describe("CachedSimulator", func() {
	var (
		tb        string
		requested [][]float64
		inner     spice.Simulator
	)

	BeforeEach(func() {
		tb = filepath.Join(GinkgoT().TempDir(), "tb.sp")
		Expect(os.WriteFile(tb, []byte(".TITLE tb\n.END\n"), 0o644)).To(Succeed())
		requested = nil
		inner = spice.SimulatorFunc(func(_ context.Context, _ string, s *spice.Sweep) ([]spice.Row, error) {
			rows := make([]spice.Row, s.Len())
			for i, r := range s.Rows {
				requested = append(requested, r)
				rows[i] = spice.Row{Values: map[string]float64{"meas_total_trise": r[0] * 1e-12}}
			}
			return rows, nil
		})
	})

	sweepOf := func(values ...float64) *spice.Sweep {
		s := spice.NewSweep([]string{"x"})
		for _, v := range values {
			Expect(s.Add(map[string]float64{"x": v})).To(Succeed())
		}
		return s
	}

	It("should only simulate rows it has not seen", func() {
		c := spice.NewCachedSimulator(inner, 64, 4)

		rows, err := c.Simulate(context.Background(), tb, sweepOf(1, 2))
		Expect(err).NotTo(HaveOccurred())
		Expect(rows).To(HaveLen(2))

		requested = nil
		rows, err = c.Simulate(context.Background(), tb, sweepOf(2, 3, 1))
		Expect(err).NotTo(HaveOccurred())
		Expect(requested).To(Equal([][]float64{{3}}))
		Expect(rows[0].Get("meas_total_trise")).To(BeNumerically("~", 2e-12, 1e-24))
		Expect(rows[1].Get("meas_total_trise")).To(BeNumerically("~", 3e-12, 1e-24))
		Expect(rows[2].Get("meas_total_trise")).To(BeNumerically("~", 1e-12, 1e-24))

		stats := c.Stats()
		Expect(stats.Lookups).To(Equal(uint64(5)))
		Expect(stats.Hits).To(Equal(uint64(2)))
		Expect(stats.Misses).To(Equal(uint64(3)))
		Expect(stats.Batches).To(Equal(uint64(2)))
	})

	It("should not call the simulator when every row hits", func() {
		c := spice.NewCachedSimulator(inner, 64, 4)
		_, err := c.Simulate(context.Background(), tb, sweepOf(1))
		Expect(err).NotTo(HaveOccurred())
		_, err = c.Simulate(context.Background(), tb, sweepOf(1))
		Expect(err).NotTo(HaveOccurred())
		Expect(c.Stats().Batches).To(Equal(uint64(1)))
	})

	It("should miss when the testbench changes", func() {
		c := spice.NewCachedSimulator(inner, 64, 4)
		_, err := c.Simulate(context.Background(), tb, sweepOf(1))
		Expect(err).NotTo(HaveOccurred())
		Expect(os.WriteFile(tb, []byte(".TITLE tb2\n.END\n"), 0o644)).To(Succeed())
		_, err = c.Simulate(context.Background(), tb, sweepOf(1))
		Expect(err).NotTo(HaveOccurred())
		Expect(c.Stats().Misses).To(Equal(uint64(2)))
	})

	It("should evict when full", func() {
		c := spice.NewCachedSimulator(inner, 2, 2)
		_, err := c.Simulate(context.Background(), tb, sweepOf(1, 2, 3))
		Expect(err).NotTo(HaveOccurred())
		Expect(c.Stats().Evictions).To(Equal(uint64(1)))
	})

	It("should forget everything on Reset", func() {
		c := spice.NewCachedSimulator(inner, 64, 4)
		_, _ = c.Simulate(context.Background(), tb, sweepOf(1))
		c.Reset()
		requested = nil
		_, err := c.Simulate(context.Background(), tb, sweepOf(1))
		Expect(err).NotTo(HaveOccurred())
		Expect(requested).To(HaveLen(1))
	})
})
