package spice_test

import (
	"bytes"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/StephenMoreOSU/rad-gen-sub000/spice"
)

var _ = Describe("Sweep", func() {
	It("should build rows in name order", func() {
		s := spice.NewSweep([]string{"b", "a"})
		Expect(s.Add(map[string]float64{"a": 1, "b": 2, "c": 3})).To(Succeed())
		Expect(s.Rows).To(Equal([][]float64{{2, 1}}))
		Expect(s.Len()).To(Equal(1))
	})

	It("should refuse a row with missing parameters", func() {
		s := spice.NewSweep([]string{"a", "b"})
		err := s.Add(map[string]float64{"a": 1})
		Expect(err).To(MatchError(ContainSubstring(`"b"`)))
		Expect(s.Len()).To(Equal(0))
	})

	It("should write a .DATA block", func() {
		s := spice.NewSweep([]string{"inv_x_nmos", "inv_x_pmos"})
		Expect(s.Add(map[string]float64{"inv_x_nmos": 45e-9, "inv_x_pmos": 90e-9})).To(Succeed())
		Expect(s.Add(map[string]float64{"inv_x_nmos": 1, "inv_x_pmos": 2})).To(Succeed())

		var buf bytes.Buffer
		Expect(spice.WriteSweepData(&buf, s)).To(Succeed())
		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		Expect(lines).To(Equal([]string{
			".DATA sweep_data",
			"inv_x_nmos inv_x_pmos",
			"4.5e-08 9e-08",
			"1 2",
			".ENDDATA",
		}))
	})

	It("should continue long lines with +", func() {
		names := []string{"p0", "p1", "p2", "p3", "p4", "p5", "p6", "p7", "p8"}
		s := spice.NewSweep(names)
		var buf bytes.Buffer
		Expect(spice.WriteSweepData(&buf, s)).To(Succeed())
		Expect(buf.String()).To(ContainSubstring("p7\n+ p8"))
	})

	It("should reject an empty parameter list", func() {
		var buf bytes.Buffer
		Expect(spice.WriteSweepData(&buf, spice.NewSweep(nil))).NotTo(Succeed())
	})
})
