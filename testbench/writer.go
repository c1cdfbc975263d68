package testbench

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/template"

	sprig "github.com/go-task/slim-sprig/v3"
)

// Options holds the process-wide values every testbench shares.
type Options struct {
	// Library is the device model library file.
	Library string

	// BasicLib and SubcktLib are the primitive and generated subcircuit files.
	BasicLib  string
	SubcktLib string

	VDD        float64
	VSRAM      float64
	VSRAMN     float64
	GateLength float64
	RestLength float64
	Temp       float64

	// ShaperWn and ShaperWp size the wave-shaping inverters, in the same
	// unit as the sweep parameters.
	ShaperWn float64
	ShaperWp float64

	// Period of the input pulse in ns; the transient runs two periods.
	Period float64

	// Step is the transient time step.
	Step string
}

// DefaultOptions returns the timing defaults; the caller fills in the
// process values.
func DefaultOptions() Options {
	return Options{
		Period: 4,
		Step:   "1p",
		Temp:   25,
	}
}

var tbTpl = template.Must(template.New("testbench").Funcs(funcMap()).Parse(
	`.TITLE {{ .Spec.Name }}

* GENERATED FILE, DO NOT EDIT
* Device under test: {{ .Spec.DUT }}

.INCLUDE "{{ .Opt.Library }}"
.INCLUDE "{{ .Opt.BasicLib }}"
.INCLUDE "{{ .Opt.SubcktLib }}"
.INCLUDE "{{ .Sweep }}"

.PARAM supply_v = {{ .Opt.VDD }}
.PARAM sram_v = {{ .Opt.VSRAM }}
.PARAM sram_n_v = {{ .Opt.VSRAMN }}
.PARAM gate_length = {{ nano .Opt.GateLength }}
.PARAM rest_length = {{ nano .Opt.RestLength }}
.PARAM shaper_wn = {{ .Opt.ShaperWn }}
.PARAM shaper_wp = {{ .Opt.ShaperWp }}

.OPTIONS BRIEF=1 POST=1 INGOLD=1 NODE LIST
.TEMP {{ .Opt.Temp }}
.TRAN {{ .Opt.Step }} {{ .Horizon }}n SWEEP DATA=sweep_data

VSUPPLY {{ .Nodes.VDD }} gnd supply_v
VDUT {{ .Nodes.DUT }} gnd supply_v
VSRAM {{ .Nodes.SRAM }} gnd sram_v
VSRAM_N {{ .Nodes.SRAMN }} gnd sram_n_v
VGND {{ .Nodes.GND }} gnd 0
VIN {{ .Nodes.Input }} gnd PULSE (0 supply_v 0.5n 0 0 {{ .Half }}n {{ .Opt.Period }}n)
{{- range .Spec.Sources }}
V{{ .Name }} {{ .Node }} gnd {{ .Value }}
{{- end }}

* Circuit
{{- range .Spec.Lines }}
{{ . }}
{{- end }}

* Delay measurements
{{- range .Spec.Stages }}
{{ template "meas" (dict "Trigger" $.Spec.Trigger "Stage" .) }}
{{- end }}
{{ template "meas" (dict "Trigger" .Spec.Trigger "Stage" .Spec.Total) }}

* Sanity and power
.MEASURE TRAN meas_logic_low_voltage FIND V({{ .Spec.Probe }}) AT={{ .Spec.ProbeAt }}
.MEASURE TRAN meas_current INTEGRAL I(VDUT) FROM={{ .Opt.Period }}n TO={{ .Horizon }}n
.MEASURE TRAN meas_avg_power PARAM = '-((meas_current)/{{ .Opt.Period }}n)*supply_v'

.PRINT TRAN {{ volts .Spec.Print | join " " }}

.END
{{ define "meas" -}}
.MEASURE TRAN {{ measRise .Stage.Name }} TRIG V({{ .Trigger }}) VAL='supply_v/2' {{ .Stage.TrigRise }}
+    TARG V({{ .Stage.Node }}) VAL='supply_v/2' {{ .Stage.TargRise }}
.MEASURE TRAN {{ measFall .Stage.Name }} TRIG V({{ .Trigger }}) VAL='supply_v/2' {{ .Stage.TrigFall }}
+    TARG V({{ .Stage.Node }}) VAL='supply_v/2' {{ .Stage.TargFall }}
{{- end }}
`))

func funcMap() template.FuncMap {
	fm := sprig.TxtFuncMap()
	fm["measRise"] = MeasRise
	fm["measFall"] = MeasFall
	fm["nano"] = func(nm float64) string { return fmt.Sprintf("%gn", nm) }
	fm["volts"] = func(nodes []string) []string {
		out := make([]string, len(nodes))
		for i, n := range nodes {
			out[i] = "V(" + n + ")"
		}
		return out
	}
	return fm
}

type tbNodes struct {
	Input, VDD, GND, DUT, SRAM, SRAMN string
}

type tbBinding struct {
	Spec    *Spec
	Opt     Options
	Sweep   string
	Half    float64
	Horizon float64
	Nodes   tbNodes
}

// Write renders spec. sweep is the sweep-data file the testbench includes.
func Write(w io.Writer, spec *Spec, opt Options, sweep string) error {
	if spec.Probe == "" {
		return fmt.Errorf("testbench %s: total path not set", spec.Name)
	}
	b := tbBinding{
		Spec:    spec,
		Opt:     opt,
		Sweep:   sweep,
		Half:    opt.Period / 2,
		Horizon: 2 * opt.Period,
		Nodes: tbNodes{
			Input: NodeInput,
			VDD:   NodeVDD,
			GND:   NodeGND,
			DUT:   NodeDUTVDD,
			SRAM:  NodeSRAM,
			SRAMN: NodeSRAMN,
		},
	}
	if err := tbTpl.Execute(w, b); err != nil {
		return fmt.Errorf("rendering testbench %s: %w", spec.Name, err)
	}
	return nil
}

// WriteFile renders spec into dir/<name>.sp and returns the file path.
func WriteFile(dir string, spec *Spec, opt Options) (string, error) {
	path := filepath.Join(dir, spec.Name+".sp")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating testbench: %w", err)
	}
	defer f.Close()

	if err := Write(f, spec, opt, SweepPath(path)); err != nil {
		return "", err
	}
	return path, f.Close()
}

// Describe is a one-line summary used in logs.
func Describe(spec *Spec) string {
	return fmt.Sprintf("%s (dut %s, %d stages, %d params)",
		spec.Name, spec.DUT, len(spec.Stages), len(spec.params))
}
