// Package sizing is the transistor sizing engine.
//
// The engine owns the parameter store of one tile and drives the SPICE
// oracle to balance inverter edges (ERF), to search drive strength ranges
// for each sub-circuit and to iterate over the whole tile until the
// area-delay cost stops improving.
package sizing

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-logr/logr"
	"github.com/pkg/errors"

	"github.com/StephenMoreOSU/rad-gen-sub000/area"
	"github.com/StephenMoreOSU/rad-gen-sub000/circuit"
	"github.com/StephenMoreOSU/rad-gen-sub000/config"
	"github.com/StephenMoreOSU/rad-gen-sub000/netlist"
	"github.com/StephenMoreOSU/rad-gen-sub000/params"
	"github.com/StephenMoreOSU/rad-gen-sub000/spice"
	"github.com/StephenMoreOSU/rad-gen-sub000/testbench"
	"github.com/StephenMoreOSU/rad-gen-sub000/wire"
)

// File names written into the work directory.
const (
	BasicLibFile  = "basic_subcircuits.l"
	SubcktLibFile = "subcircuits.l"
)

// bench is the testbench of one sizable circuit.
type bench struct {
	spec   *testbench.Spec
	path   string
	probes []circuit.Probe
}

// Engine sizes the transistors of one tile.
type Engine struct {
	cfg   *config.Config
	arena *circuit.Arena
	st    *params.Store
	model *area.Model
	stack *wire.Stack
	sim   spice.Simulator
	log   logr.Logger
	sink  Sink

	workDir string
	tbOpt   testbench.Options
	benches map[circuit.Handle]*bench

	finfet bool
	minW   float64

	outer int
	round int
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(log logr.Logger) Option {
	return func(e *Engine) {
		e.log = log
	}
}

// WithSink sets the receiver of intermediate results.
func WithSink(s Sink) Option {
	return func(e *Engine) {
		e.sink = s
	}
}

// WithWorkDir sets where netlists and testbenches are written.
func WithWorkDir(dir string) Option {
	return func(e *Engine) {
		e.workDir = dir
	}
}

// NewEngine seeds the store from the arena, brings areas, wires and
// parasitics up to date and writes every netlist and testbench.
func NewEngine(cfg *config.Config, arena *circuit.Arena, sim spice.Simulator, opts ...Option) (*Engine, error) {
	e := &Engine{
		cfg:     cfg,
		arena:   arena,
		st:      params.NewStore(),
		model:   area.NewModel(cfg.Process),
		stack:   wire.NewStack(cfg.Process.MetalStack),
		sim:     sim,
		log:     logr.Discard(),
		sink:    nopSink{},
		workDir: filepath.Join(cfg.Output.Dir, "spice"),
		benches: make(map[circuit.Handle]*bench),
		finfet:  cfg.UseFinFET(),
		minW:    cfg.Process.MinTranWidth,
	}
	for _, opt := range opts {
		opt(e)
	}

	arena.SeedSizes(e.st)
	if err := e.Refresh(); err != nil {
		return nil, err
	}
	if err := e.writeNetlists(); err != nil {
		return nil, err
	}
	return e, nil
}

// Store returns the engine's parameter store.
func (e *Engine) Store() *params.Store { return e.st }

// Arena returns the circuits being sized.
func (e *Engine) Arena() *circuit.Arena { return e.arena }

// WorkDir returns the directory holding netlists and testbenches.
func (e *Engine) WorkDir() string { return e.workDir }

// UpdateArea recomputes device, circuit and compound areas.
func (e *Engine) UpdateArea() {
	e.arena.UpdateArea(e.st, e.model)
}

// UpdateWires recomputes wire lengths from the current areas.
func (e *Engine) UpdateWires() {
	e.arena.UpdateWires(e.st)
}

// UpdateWireRC recomputes wire parasitics from lengths and layers.
func (e *Engine) UpdateWireRC() error {
	return e.stack.UpdateRC(e.st)
}

// Refresh runs UpdateArea, UpdateWires and UpdateWireRC in order.
func (e *Engine) Refresh() error {
	e.UpdateArea()
	e.UpdateWires()
	if err := e.UpdateWireRC(); err != nil {
		return errors.Wrap(err, "update wire parasitics")
	}
	return nil
}

func (e *Engine) writeNetlists() error {
	if err := os.MkdirAll(e.workDir, 0o755); err != nil {
		return errors.Wrap(err, "create work directory")
	}
	basic := filepath.Join(e.workDir, BasicLibFile)
	if err := writeWith(basic, func(f *os.File) error { return netlist.WriteBasicLibrary(f, e.finfet) }); err != nil {
		return err
	}
	subckt := filepath.Join(e.workDir, SubcktLibFile)
	if err := writeWith(subckt, func(f *os.File) error { return e.arena.WriteLibrary(f) }); err != nil {
		return err
	}

	p := e.cfg.Process
	e.tbOpt = testbench.DefaultOptions()
	e.tbOpt.Library = p.Library
	e.tbOpt.BasicLib = basic
	e.tbOpt.SubcktLib = subckt
	e.tbOpt.VDD = p.VDD
	e.tbOpt.VSRAM = p.VSRAM
	e.tbOpt.VSRAMN = p.VSRAMN
	e.tbOpt.GateLength = p.GateLength
	e.tbOpt.RestLength = p.GateLength * p.RestLengthFactor
	e.tbOpt.Temp = p.Temp
	e.tbOpt.ShaperWn = e.deviceValue(1)
	e.tbOpt.ShaperWp = e.deviceValue(2)

	for _, h := range e.arena.Measured() {
		spec, err := e.arena.Testbench(h)
		if err != nil {
			return errors.Wrap(err, "assemble testbench")
		}
		path, err := testbench.WriteFile(e.workDir, spec, e.tbOpt)
		if err != nil {
			return errors.Wrap(err, "write testbench")
		}
		probes, _ := e.arena.Probes(h)
		e.benches[h] = &bench{spec: spec, path: path, probes: probes}
	}
	return nil
}

func writeWith(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", filepath.Base(path))
	}
	if err := write(f); err != nil {
		f.Close()
		return errors.Wrapf(err, "write %s", filepath.Base(path))
	}
	return f.Close()
}

// deviceValue converts a drive strength into the sweep value: metres for
// planar processes and fins for FinFETs.
func (e *Engine) deviceValue(size float64) float64 {
	if e.finfet {
		return math.Round(size)
	}
	return size * e.minW * 1e-9
}

// paramValue resolves one sweep parameter from the store.
func (e *Engine) paramValue(name string) (float64, error) {
	if size, ok := e.st.TransistorSizes[name]; ok {
		return e.deviceValue(size), nil
	}
	if w := strings.TrimSuffix(name, "_res"); w != name {
		if rc, ok := e.st.WireRC[w]; ok {
			return rc.R, nil
		}
	}
	if w := strings.TrimSuffix(name, "_cap"); w != name {
		if rc, ok := e.st.WireRC[w]; ok {
			return rc.C, nil
		}
	}
	return 0, errors.Wrapf(ErrParameterMismatch, "no value for %q", name)
}

// paramRow builds the sweep row of a testbench from the current store.
func (e *Engine) paramRow(b *bench) (map[string]float64, error) {
	names := b.spec.Params()
	row := make(map[string]float64, len(names))
	for _, name := range names {
		v, err := e.paramValue(name)
		if err != nil {
			return nil, errors.Wrapf(err, "testbench %s", b.spec.Name)
		}
		row[name] = v
	}
	return row, nil
}

func (e *Engine) bench(h circuit.Handle) (*bench, error) {
	b, ok := e.benches[h]
	if !ok {
		return nil, errors.Wrapf(ErrParameterMismatch, "%s has no testbench", e.arena.Meta(h).SpName)
	}
	return b, nil
}

// simulate runs a batch of rows on the testbench of b.
func (e *Engine) simulate(ctx context.Context, b *bench, rows []map[string]float64) ([]spice.Row, error) {
	sweep := spice.NewSweep(b.spec.Params())
	for _, r := range rows {
		if err := sweep.Add(r); err != nil {
			return nil, errors.Wrapf(ErrParameterMismatch, "testbench %s: %v", b.spec.Name, err)
		}
	}
	out, err := e.sim.Simulate(ctx, b.path, sweep)
	if err != nil {
		return nil, errors.Wrapf(err, "simulate %s", b.spec.Name)
	}
	if len(out) != len(rows) {
		return nil, errors.Wrapf(spice.ErrSimulationUnavailable, "%s: %d rows for %d requested", b.spec.Name, len(out), len(rows))
	}
	return out, nil
}

// measure simulates the current store once.
func (e *Engine) measure(ctx context.Context, b *bench) (spice.Row, error) {
	row, err := e.paramRow(b)
	if err != nil {
		return spice.Row{}, err
	}
	out, err := e.simulate(ctx, b, []map[string]float64{row})
	if err != nil {
		return spice.Row{}, err
	}
	return out[0], nil
}

func (e *Engine) record(tag, sp string, inner, tranSet int, row spice.Row) {
	err := e.sink.Measurement(MeasurementRecord{
		Tag: tag, Outer: e.outer, SpName: sp, Inner: inner, TranSet: tranSet, Row: row,
	})
	if err != nil {
		e.log.Error(err, "recording measurement", "subcircuit", sp)
	}
}
