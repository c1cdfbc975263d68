package report

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	_ "gonum.org/v1/plot/vg/vgimg" // png

	"github.com/StephenMoreOSU/rad-gen-sub000/config"
	"github.com/StephenMoreOSU/rad-gen-sub000/params"
	"github.com/StephenMoreOSU/rad-gen-sub000/sizing"
)

// Summary is the machine-readable outcome of a run.
type Summary struct {
	RunID        string    `json:"run_id"`
	ConfigDigest string    `json:"config_digest"`
	Finished     time.Time `json:"finished"`
	Mode         string    `json:"mode"`

	Iterations    int  `json:"iterations"`
	BestIteration int  `json:"best_iteration"`
	Converged     bool `json:"converged"`

	// Area is the tile area in nm^2 and Delay the representative critical
	// path in seconds.
	Area  float64 `json:"tile_area"`
	Delay float64 `json:"critical_path_delay"`
	Cost  float64 `json:"cost"`

	SeedCost float64 `json:"seed_cost"`
	// Improvement is the relative cost reduction from the seed.
	Improvement float64 `json:"improvement"`
	MeanCost    float64 `json:"mean_iteration_cost"`

	Delays map[string]float64 `json:"delays"`

	RangeSearches int `json:"range_searches"`
	Measurements  int `json:"measurements"`
}

// ConfigDigest is a short content hash of a configuration.
func ConfigDigest(cfg *config.Config) (string, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("failed to serialize config: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8]), nil
}

// Finish writes the final tables, the summary, the convergence plot and,
// when configured, the archive record. It returns the summary.
func (s *Sink) Finish(cfg *config.Config, e *sizing.Engine, out *sizing.Outcome) (*Summary, error) {
	sum, err := s.summarize(cfg, out)
	if err != nil {
		return nil, err
	}

	if err := writeFinal(filepath.Join(s.config.Dir, FinalFile), e, out); err != nil {
		return nil, err
	}
	if err := writeSizes(filepath.Join(s.config.Dir, SizesFile), e.Store().TransistorSizes); err != nil {
		return nil, err
	}

	data, err := json.MarshalIndent(sum, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to serialize summary: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.config.Dir, SummaryFile), data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write summary: %w", err)
	}

	if s.config.Plot {
		if err := PlotConvergence(filepath.Join(s.config.Dir, PlotFile), out.Iterations); err != nil {
			return nil, err
		}
	}

	if s.config.Archive != nil {
		if err := s.config.Archive.Store(sum, out.Iterations); err != nil {
			return nil, fmt.Errorf("archiving run %s: %w", sum.RunID, err)
		}
	}
	return sum, nil
}

func (s *Sink) summarize(cfg *config.Config, out *sizing.Outcome) (*Summary, error) {
	digest, err := ConfigDigest(cfg)
	if err != nil {
		return nil, err
	}
	costs := make([]float64, len(out.Iterations))
	for i, r := range out.Iterations {
		costs[i] = r.Cost
	}

	sum := &Summary{
		RunID:         s.RunID(),
		ConfigDigest:  digest,
		Finished:      time.Now().UTC(),
		Mode:          cfg.Sizing.Mode,
		Iterations:    len(out.Iterations) - 1,
		BestIteration: out.Best,
		Converged:     out.Converged,
		Area:          out.Final.Area,
		Delay:         out.Final.Delay,
		Cost:          out.Final.Cost,
		Delays:        out.Final.Delays,
		RangeSearches: s.searches,
		Measurements:  s.measurements,
	}
	if len(costs) > 0 {
		sum.SeedCost = costs[0]
		sum.MeanCost = stat.Mean(costs, nil)
		if costs[0] > 0 {
			sum.Improvement = (costs[0] - floats.Min(costs)) / costs[0]
		}
	}
	return sum, nil
}

func writeFinal(path string, e *sizing.Engine, out *sizing.Outcome) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating final results: %w", err)
	}
	defer f.Close()

	a := e.Arena()
	st := e.Store()
	tile := a.Meta(a.Tile()).SpName
	_, _ = fmt.Fprintf(f, "Best iteration: %d of %d\n", out.Best, len(out.Iterations)-1)
	_, _ = fmt.Fprintf(f, "Tile area (nm^2): %s\n", formatFloat(out.Final.Area))
	_, _ = fmt.Fprintf(f, "Critical path delay (s): %s\n", formatFloat(out.Final.Delay))
	_, _ = fmt.Fprintf(f, "Cost: %s\n\n", formatFloat(out.Final.Cost))

	_, _ = fmt.Fprintln(f, "SUBCIRCUIT\tNUM_PER_TILE\tAREA\tDELAY\tTRISE\tTFALL\tPOWER")
	for _, b := range a.SizingOrder() {
		for _, h := range b.Handles {
			m := a.Meta(h)
			_, _ = fmt.Fprintf(f, "%s\t%d\t%s\t%s\t%s\t%s\t%s\n", m.SpName, m.NumPerTile,
				formatFloat(st.Area[m.SpName]), formatFloat(m.Delay),
				formatFloat(m.TRise), formatFloat(m.TFall), formatFloat(m.Power))
		}
	}
	if _, err := fmt.Fprintf(f, "%s\t1\t%s\n", tile, formatFloat(st.Area[tile])); err != nil {
		return err
	}
	return f.Close()
}

func writeSizes(path string, sizes map[string]float64) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating size table: %w", err)
	}
	defer f.Close()

	for _, name := range params.SortedKeys(sizes) {
		if _, err := fmt.Fprintf(f, "%s\t%s\n", name, formatFloat(sizes[name])); err != nil {
			return err
		}
	}
	return f.Close()
}

// PlotConvergence draws tile cost against outer iteration.
func PlotConvergence(path string, iterations []sizing.IterationRecord) error {
	p := plot.New()
	p.Title.Text = "Sizing convergence"
	p.X.Label.Text = "Iteration"
	p.Y.Label.Text = "Cost (area x delay)"

	pts := make(plotter.XYs, len(iterations))
	for i, r := range iterations {
		pts[i].X = float64(r.Iteration)
		pts[i].Y = r.Cost
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("building convergence line: %w", err)
	}
	marks, err := plotter.NewScatter(pts)
	if err != nil {
		return fmt.Errorf("building convergence points: %w", err)
	}
	p.Add(line, marks, plotter.NewGrid())

	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("saving convergence plot: %w", err)
	}
	return nil
}
