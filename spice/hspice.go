package spice

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/pkg/errors"
)

// HSPICE drives the hspice executable in batched sweep mode.
type HSPICE struct {
	executable string
	timeout    time.Duration
	log        logr.Logger
	keep       bool

	runs int
}

// HSPICEOption configures an HSPICE driver.
type HSPICEOption func(*HSPICE)

// WithExecutable sets the simulator binary.
func WithExecutable(path string) HSPICEOption {
	return func(h *HSPICE) {
		h.executable = path
	}
}

// WithTimeout bounds one simulator run. Zero means no limit.
func WithTimeout(d time.Duration) HSPICEOption {
	return func(h *HSPICE) {
		h.timeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(log logr.Logger) HSPICEOption {
	return func(h *HSPICE) {
		h.log = log
	}
}

// WithKeepOutputs leaves the listing and measurement files on disk.
func WithKeepOutputs(keep bool) HSPICEOption {
	return func(h *HSPICE) {
		h.keep = keep
	}
}

// NewHSPICE creates a driver.
func NewHSPICE(opts ...HSPICEOption) *HSPICE {
	h := &HSPICE{
		executable: "hspice",
		log:        logr.Discard(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Runs returns the number of simulator invocations so far.
func (h *HSPICE) Runs() int { return h.runs }

// Available reports whether the simulator executable can be found.
func (h *HSPICE) Available() bool {
	_, err := exec.LookPath(h.executable)
	return err == nil
}

// Simulate writes the sweep next to the testbench, runs the simulator in
// the testbench directory and parses <base>.mt0.
func (h *HSPICE) Simulate(ctx context.Context, tbPath string, sweep *Sweep) ([]Row, error) {
	abs, err := filepath.Abs(tbPath)
	if err != nil {
		return nil, errors.Wrap(err, "hspice: resolve testbench path")
	}
	dir := filepath.Dir(abs)
	base := strings.TrimSuffix(filepath.Base(abs), filepath.Ext(abs))

	if err := WriteSweepFile(filepath.Join(dir, base+"_sweep.l"), sweep); err != nil {
		return nil, errors.Wrap(err, "hspice")
	}

	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, h.executable, "-i", base+".sp", "-o", base)
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	start := time.Now()
	h.runs++
	if err := cmd.Run(); err != nil {
		switch {
		case errors.Is(err, exec.ErrNotFound):
			return nil, errors.Wrapf(ErrSimulationUnavailable, "executable %q not found", h.executable)
		case ctx.Err() != nil:
			return nil, errors.Wrapf(ErrSimulationUnavailable, "%s: %v", base, ctx.Err())
		default:
			return nil, errors.Wrapf(ErrSimulationUnavailable, "%s: %v: %s", base, err, strings.TrimSpace(stderr.String()))
		}
	}
	h.log.V(1).Info("simulated", "testbench", base, "rows", sweep.Len(), "elapsed", time.Since(start))

	mt0 := filepath.Join(dir, base+".mt0")
	f, err := os.Open(mt0)
	if err != nil {
		return nil, errors.Wrapf(ErrSimulationUnavailable, "%s produced no measurements: %v", base, err)
	}
	rows, err := ParseMT0(f)
	f.Close()
	if err != nil {
		return nil, errors.Wrapf(err, "hspice: %s", mt0)
	}
	if len(rows) != sweep.Len() {
		return nil, errors.Wrapf(ErrSimulationUnavailable, "%s: %d measurement rows for %d sweep rows", base, len(rows), sweep.Len())
	}

	if !h.keep {
		for _, ext := range []string{".lis", ".st0", ".ic0", ".pa0"} {
			os.Remove(filepath.Join(dir, base+ext))
		}
	}
	return rows, nil
}
