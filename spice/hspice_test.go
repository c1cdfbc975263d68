package spice_test

import (
	"context"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/pkg/errors"

	"github.com/StephenMoreOSU/rad-gen-sub000/spice"
)

var _ = Describe("HSPICE", func() {
	It("should report a missing executable as unavailable", func() {
		h := spice.NewHSPICE(spice.WithExecutable("definitely-not-a-simulator-binary"))
		Expect(h.Available()).To(BeFalse())

		tb := filepath.Join(GinkgoT().TempDir(), "tb.sp")
		s := spice.NewSweep([]string{"x"})
		Expect(s.Add(map[string]float64{"x": 1})).To(Succeed())

		_, err := h.Simulate(context.Background(), tb, s)
		Expect(err).To(HaveOccurred())
		Expect(errors.Is(err, spice.ErrSimulationUnavailable)).To(BeTrue())
		Expect(filepath.Join(filepath.Dir(tb), "tb_sweep.l")).To(BeAnExistingFile())
	})
})
