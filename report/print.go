package report

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/StephenMoreOSU/rad-gen-sub000/sizing"
)

// PrintSummary outputs a run summary in a human-readable format.
func (s *Sink) PrintSummary(sum *Summary) {
	p := message.NewPrinter(language.English)
	w := s.config.Output

	_, _ = p.Fprintln(w, "=== FPGA Tile Sizing Results ===")
	_, _ = p.Fprintln(w, "")
	_, _ = p.Fprintf(w, "Run:              %s\n", sum.RunID)
	_, _ = p.Fprintf(w, "Config digest:    %s\n", sum.ConfigDigest)
	_, _ = p.Fprintf(w, "Mode:             %s\n", sum.Mode)
	_, _ = p.Fprintf(w, "Iterations:       %d (best %d)\n", sum.Iterations, sum.BestIteration)
	if !sum.Converged {
		_, _ = p.Fprintln(w, "  iteration limit reached before the cost settled")
	}
	_, _ = p.Fprintln(w, "  --- Tile ---")
	_, _ = p.Fprintf(w, "  Area (nm^2):     %.0f\n", sum.Area)
	_, _ = p.Fprintf(w, "  Delay (ps):      %.2f\n", sum.Delay*1e12)
	_, _ = p.Fprintf(w, "  Cost:            %.4g\n", sum.Cost)
	_, _ = p.Fprintf(w, "  Improvement:     %.1f%%\n", sum.Improvement*100)
	_, _ = p.Fprintln(w, "  --- Work ---")
	_, _ = p.Fprintf(w, "  Range searches:  %d\n", sum.RangeSearches)
	_, _ = p.Fprintf(w, "  Measurements:    %d\n", sum.Measurements)
	_, _ = p.Fprintln(w, "")
}

// PrintIterations outputs the per-iteration table.
func (s *Sink) PrintIterations(recs []sizing.IterationRecord) {
	p := message.NewPrinter(language.English)
	w := s.config.Output

	_, _ = p.Fprintln(w, "ITERATION\tAREA\tDELAY\tCOST")
	for _, r := range recs {
		_, _ = p.Fprintf(w, "%d\t%.0f\t%.4g\t%.4g\n", r.Iteration, r.Area, r.Delay, r.Cost)
	}
}
