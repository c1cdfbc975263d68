package area_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/StephenMoreOSU/rad-gen-sub000/area"
	"github.com/StephenMoreOSU/rad-gen-sub000/config"
	"github.com/StephenMoreOSU/rad-gen-sub000/params"
)

var _ = Describe("Model", func() {
	var (
		proc config.ProcessConfig
		m    *area.Model
	)

	BeforeEach(func() {
		proc = config.DefaultConfig().Process
		m = area.NewModel(proc)
	})

	It("should evaluate a fit", func() {
		f := area.Fit{1, 2, 3}
		Expect(f.Eval(4)).To(Equal(1.0 + 8 + 6))
	})

	It("should charge isolated devices more than plain ones", func() {
		Expect(m.DeviceArea("inv_x_1_nmos", 4)).To(BeNumerically(">", m.DeviceArea("ptran_x_L1_nmos", 4)))
		Expect(m.DeviceArea("tgate_x_L1_pmos", 4)).To(Equal(m.DeviceArea("inv_x_1_pmos", 4)))
		Expect(m.DeviceArea("rest_x_pmos", 4)).To(Equal(m.DeviceArea("tran_x_nmos", 4)))
	})

	It("should grow monotonically with size", func() {
		prev := 0.0
		for s := 1.0; s <= 20; s++ {
			a := m.DeviceArea("inv_x_1_nmos", s)
			Expect(a).To(BeNumerically(">", prev))
			prev = a
		}
	})

	It("should round FinFET sizes up to whole fins", func() {
		proc.Family = config.FamilyFinFET
		fin := area.NewModel(proc)
		Expect(fin.FinFET).To(BeTrue())
		Expect(fin.DeviceArea("inv_x_1_nmos", 1.2)).To(Equal(fin.DeviceArea("inv_x_1_nmos", 2)))
	})

	It("should honour configured coefficients", func() {
		proc.AreaCoefficients = &config.AreaCoefficients{Isolated: [3]float64{1, 0, 0}, Plain: [3]float64{2, 0, 0}}
		custom := area.NewModel(proc)
		Expect(custom.DeviceArea("inv_x_1_nmos", 9)).To(Equal(1.0))
		Expect(custom.DeviceArea("ptran_x_L1_nmos", 9)).To(Equal(2.0))
	})

	It("should roll device areas up into elements", func() {
		st := params.NewStore()
		st.TransistorSizes["inv_x_1_nmos"] = 2
		st.TransistorSizes["inv_x_1_pmos"] = 4
		st.TransistorSizes["ptran_x_L1_nmos"] = 3
		m.RollUp(st)

		n := m.DeviceArea("inv_x_1_nmos", 2) * proc.MinWidthTranArea
		p := m.DeviceArea("inv_x_1_pmos", 4) * proc.MinWidthTranArea
		Expect(st.MustArea("inv_x_1_nmos")).To(BeNumerically("~", n, 1e-9))
		Expect(st.MustArea("inv_x_1")).To(BeNumerically("~", n+p, 1e-9))
		Expect(st.MustWidth("inv_x_1")).To(BeNumerically("~", math.Sqrt(n+p), 1e-9))
		Expect(st.MustArea("ptran_x_L1")).To(Equal(st.MustArea("ptran_x_L1_nmos")))
		Expect(st.MustArea("sram")).To(Equal(m.SRAMArea()))
		Expect(st.MustArea("ramsram")).To(BeNumerically("<", st.MustArea("sram")))
	})
})
