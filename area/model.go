// Package area converts transistor drive strengths into layout area.
//
// Device area follows a0 + a1*s + a2*sqrt(s) in minimum-width transistor
// units, with separate fits for diffusion-isolated devices (inverters and
// transmission gates, which pay an N-well spacing penalty) and plain devices.
package area

import (
	"math"

	"github.com/StephenMoreOSU/rad-gen-sub000/config"
	"github.com/StephenMoreOSU/rad-gen-sub000/params"
)

// Fit is one a0 + a1*s + a2*sqrt(s) curve.
type Fit [3]float64

// Eval evaluates the fit at drive strength s.
func (f Fit) Eval(s float64) float64 {
	return f[0] + f[1]*s + f[2]*math.Sqrt(s)
}

// Model maps (device tag, drive strength) to area.
type Model struct {
	Isolated Fit
	Plain    Fit

	// MinWidthTranArea converts min-width units to nm^2.
	MinWidthTranArea float64

	// SRAMCellArea is the SRAM cell area in min-width units.
	SRAMCellArea float64

	// FinFET rounds sizes up to whole fins.
	FinFET bool
}

var families = map[string][2]Fit{
	config.FamilyBulk:    {{0.518, 0.127, 0.428}, {0.447, 0.128, 0.391}},
	config.FamilyFinFET:  {{0.3694, 0.0978, 0.5368}, {0.3694, 0.0978, 0.5368}},
	config.FamilyFinFET7: {{0.2870, 0.0694, 0.4521}, {0.2512, 0.0694, 0.4106}},
}

// NewModel builds the area model for a process.
func NewModel(p config.ProcessConfig) *Model {
	fits := families[p.Family]
	if p.AreaCoefficients != nil {
		fits = [2]Fit{Fit(p.AreaCoefficients.Isolated), Fit(p.AreaCoefficients.Plain)}
	}
	return &Model{
		Isolated:         fits[0],
		Plain:            fits[1],
		MinWidthTranArea: p.MinWidthTranArea,
		SRAMCellArea:     p.SRAMCellArea,
		FinFET:           p.Family != config.FamilyBulk,
	}
}

// DeviceArea returns the area of one device in min-width transistor units.
func (m *Model) DeviceArea(device string, size float64) float64 {
	if m.FinFET {
		size = math.Ceil(size)
	}
	if params.IsDiffusionIsolated(device) {
		return m.Isolated.Eval(size)
	}
	return m.Plain.Eval(size)
}

// SRAMArea returns the area of one SRAM cell in nm^2.
func (m *Model) SRAMArea() float64 {
	return m.SRAMCellArea * m.MinWidthTranArea
}

// RollUp writes device and composite areas for every transistor in st.
//
// Inverter and transmission gate devices are paired into "inv_x" and
// "tgate_x" composites; pass transistors, level restorers and plain devices
// use their element name. Widths are the square root of areas.
func (m *Model) RollUp(st *params.Store) {
	composite := make(map[string]float64)
	for device, size := range st.TransistorSizes {
		a := m.DeviceArea(device, size) * m.MinWidthTranArea
		st.SetArea(device, a)
		composite[params.ElementName(device)] += a
	}
	for name, a := range composite {
		st.SetArea(name, a)
	}
	st.SetArea("sram", m.SRAMArea())
	st.SetArea("ramsram", m.SRAMArea()*ramCellFactor)
}

// ramCellFactor scales the configuration SRAM cell to a dense 6T array cell.
const ramCellFactor = 0.75
