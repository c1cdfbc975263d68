package sizing_test

import (
	"bufio"
	"context"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/StephenMoreOSU/rad-gen-sub000/config"
	"github.com/StephenMoreOSU/rad-gen-sub000/params"
	"github.com/StephenMoreOSU/rad-gen-sub000/spice"
	"github.com/StephenMoreOSU/rad-gen-sub000/testbench"
)

// tau is the unit delay of the analytic model.
const tau = 1e-11

var (
	dutLine   = regexp.MustCompile(`^\* Device under test: (\S+)`)
	stageLine = regexp.MustCompile(`^\.MEASURE TRAN meas_(\S+)_trise`)
)

type benchInfo struct {
	dut    string
	stages []string
}

// analyticSim answers testbenches with a closed-form delay model. Each
// probed inverter has
//
//	trise = tau * (1 + 2/P + 0.002(N+P))
//	tfall = tau * (1 + 1/N + 0.002(N+P))
//
// so its edges balance at P = 2N. Switches of the device under test add
// tau * (1/s + 0.05s) to both total edges.
type analyticSim struct {
	minW float64
	// fins is set when sweep values are fin counts rather than metres.
	fins bool

	mu      sync.Mutex
	benches map[string]benchInfo
	calls   int
	rows    int

	// watch records the PMOS sizes requested for one inverter.
	watch string
	seenP []float64
	seenN []float64
}

func newAnalyticSim(minW float64) *analyticSim {
	return &analyticSim{minW: minW, benches: make(map[string]benchInfo)}
}

func (s *analyticSim) info(path string) (benchInfo, error) {
	if b, ok := s.benches[path]; ok {
		return b, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return benchInfo{}, err
	}
	defer f.Close()

	var b benchInfo
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		if m := dutLine.FindStringSubmatch(line); m != nil {
			b.dut = m[1]
		}
		if m := stageLine.FindStringSubmatch(line); m != nil && m[1] != "total" {
			b.stages = append(b.stages, m[1])
		}
	}
	if err := sc.Err(); err != nil {
		return benchInfo{}, err
	}
	s.benches[path] = b
	return b, nil
}

func (s *analyticSim) Simulate(_ context.Context, tbPath string, sweep *spice.Sweep) ([]spice.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.info(tbPath)
	if err != nil {
		return nil, err
	}
	s.calls++
	out := make([]spice.Row, len(sweep.Rows))
	for i, vals := range sweep.Rows {
		values := make(map[string]float64, len(vals))
		for j, name := range sweep.Names {
			values[name] = vals[j]
		}
		out[i] = spice.Row{Values: s.evaluate(b, values)}
		s.rows++
	}
	return out, nil
}

func (s *analyticSim) units(v float64) float64 {
	if s.fins {
		return v
	}
	return v / (s.minW * 1e-9)
}

func (s *analyticSim) evaluate(b benchInfo, in map[string]float64) map[string]float64 {
	out := make(map[string]float64)
	var rise, fall float64
	for _, inv := range b.stages {
		n := s.units(in[inv+params.SuffixNMOS])
		p := s.units(in[inv+params.SuffixPMOS])
		if inv == s.watch {
			s.seenN = append(s.seenN, n)
			s.seenP = append(s.seenP, p)
		}
		tr := tau * (1 + 2/p + 0.002*(n+p))
		tf := tau * (1 + 1/n + 0.002*(n+p))
		out[testbench.MeasRise(inv)] = tr
		out[testbench.MeasFall(inv)] = tf
		rise += tr
		fall += tf
	}

	var sw float64
	for name, v := range in {
		if !strings.HasSuffix(name, params.SuffixNMOS) {
			continue
		}
		for _, tag := range []string{params.TagPassTran, params.TagTgate, params.TagPlain} {
			if strings.HasPrefix(name, tag+b.dut) {
				size := s.units(v)
				sw += tau * (1/size + 0.05*size)
			}
		}
	}

	out[testbench.MeasTotalRise] = tau + rise + sw
	out[testbench.MeasTotalFall] = tau + fall + sw
	out[testbench.MeasLogicLow] = 0.01
	out[testbench.MeasCurrent] = -1e-12
	out[testbench.MeasAvgPower] = 1e-6
	return out
}

func (s *analyticSim) watchInverter(inv string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watch = inv
	s.seenN, s.seenP = nil, nil
}

// smallConfig is a small K=4 cluster that keeps every search short.
func smallConfig(dir string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Arch.N = 2
	cfg.Arch.K = 4
	cfg.Arch.I = 4
	cfg.Arch.W = 8
	cfg.Arch.L = 2
	cfg.Arch.Fcin = 0.5
	cfg.Arch.Fcout = 0.25
	cfg.Arch.Or = 1
	cfg.Arch.Ofb = 1
	cfg.Arch.Rsel = "z"
	cfg.Arch.Rfb = "z"
	cfg.Sizing.MaxIterations = 2
	cfg.Sizing.MaxRangeRound = 2
	cfg.Sizing.MaxCombinations = 64
	cfg.Sizing.ERFMaxPasses = 2
	cfg.Output.Dir = dir
	cfg.Output.Plot = false
	return cfg
}
