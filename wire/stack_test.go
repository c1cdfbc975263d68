package wire_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/StephenMoreOSU/rad-gen-sub000/config"
	"github.com/StephenMoreOSU/rad-gen-sub000/params"
	"github.com/StephenMoreOSU/rad-gen-sub000/wire"
)

var _ = Describe("Stack", func() {
	var s *wire.Stack

	BeforeEach(func() {
		s = wire.NewStack([]config.MetalLayer{
			{R: 0.05, C: 0.0002},
			{R: 0.01, C: 0.0003},
		})
	})

	It("should scale parasitics with length", func() {
		rc, err := s.RC(1000, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(rc.R).To(BeNumerically("~", 50, 1e-9))
		Expect(rc.C).To(BeNumerically("~", 0.2e-15, 1e-24))
		Expect(s.Layers()).To(Equal(2))
	})

	It("should reject layers outside the stack", func() {
		_, err := s.RC(10, 2)
		Expect(err).To(MatchError(ContainSubstring("outside stack")))
		_, err = s.RC(10, -1)
		Expect(err).To(HaveOccurred())
	})

	It("should not alias the configured layers", func() {
		layers := []config.MetalLayer{{R: 1, C: 1}}
		own := wire.NewStack(layers)
		layers[0].R = 5
		rc, err := own.RC(1, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(rc.R).To(Equal(1.0))
	})

	Describe("UpdateRC", func() {
		It("should fill parasitics for every wire", func() {
			st := params.NewStore()
			st.SetWire("wire_a", 200, 0)
			st.SetWire("wire_b", 400, 1)
			Expect(s.UpdateRC(st)).To(Succeed())
			Expect(st.WireRC).To(HaveLen(2))
			Expect(st.WireRC["wire_a"].R).To(BeNumerically("~", 10, 1e-9))
			Expect(st.WireRC["wire_b"].R).To(BeNumerically("~", 4, 1e-9))
		})

		It("should fail when a wire has no layer", func() {
			st := params.NewStore()
			st.WireLengths["wire_c"] = 10
			Expect(s.UpdateRC(st)).To(MatchError(ContainSubstring("no layer")))
		})

		It("should name the wire on a bad layer", func() {
			st := params.NewStore()
			st.SetWire("wire_d", 10, 7)
			Expect(s.UpdateRC(st)).To(MatchError(ContainSubstring("wire_d")))
		})
	})
})
