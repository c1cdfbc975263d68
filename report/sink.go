// Package report writes the intermediate and final results of a sizing run.
//
// A Sink is handed to the sizing engine and receives every range search,
// simulator row and outer iteration as they happen. Finish then writes the
// final tables, the JSON summary and the convergence plot.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/xid"

	"github.com/StephenMoreOSU/rad-gen-sub000/sizing"
)

// File names inside the output directory.
const (
	ResultsDir       = "sizing_results"
	MeasurementsFile = "measurements.csv"
	IterationsFile   = "iterations.txt"
	FinalFile        = "sizing_results_final.txt"
	SizesFile        = "transistor_sizes.txt"
	SummaryFile      = "summary.json"
	PlotFile         = "convergence.png"
)

// Config configures a Sink.
type Config struct {
	// Dir is the output directory.
	Dir string

	// Plot enables the convergence plot.
	Plot bool

	// Output is where PrintSummary writes (default: os.Stdout).
	Output io.Writer

	// Archive, when set, receives the summary and iterations on Finish.
	Archive Archive
}

// DefaultConfig returns a default report configuration.
func DefaultConfig() Config {
	return Config{
		Dir:    "fpga_out",
		Plot:   true,
		Output: os.Stdout,
	}
}

// Sink records a sizing run on disk.
type Sink struct {
	config Config
	runID  xid.ID

	results string

	csvFile *os.File
	csv     *csv.Writer
	csvKeys []string

	iterFile   *os.File
	iterations []sizing.IterationRecord

	searches     int
	measurements int
}

// NewSink creates the output directories and opens the running tables.
func NewSink(config Config) (*Sink, error) {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	s := &Sink{
		config:  config,
		runID:   xid.New(),
		results: filepath.Join(config.Dir, ResultsDir),
	}
	if err := os.MkdirAll(s.results, 0o755); err != nil {
		return nil, fmt.Errorf("creating results directory: %w", err)
	}

	f, err := os.Create(filepath.Join(s.results, MeasurementsFile))
	if err != nil {
		return nil, fmt.Errorf("creating measurement table: %w", err)
	}
	s.csvFile = f
	s.csv = csv.NewWriter(f)

	s.iterFile, err = os.Create(filepath.Join(s.results, IterationsFile))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("creating iteration table: %w", err)
	}
	if _, err := fmt.Fprintln(s.iterFile, "ITERATION\tAREA\tDELAY\tCOST\tSKIPPED"); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// RunID identifies this run in tables and archives.
func (s *Sink) RunID() string { return s.runID.String() }

// ResultsDir returns the directory holding the intermediate tables.
func (s *Sink) ResultsDir() string { return s.results }

// Iterations returns the iteration records seen so far.
func (s *Sink) Iterations() []sizing.IterationRecord {
	return append([]sizing.IterationRecord(nil), s.iterations...)
}

// RangeSearch implements sizing.Sink. It writes the full tuple table and
// the re-balanced top table of one round.
func (s *Sink) RangeSearch(r sizing.SearchReport) error {
	s.searches++
	base := fmt.Sprintf("%s_o%d_r%d", r.SpName, r.Outer, r.Round)
	if r.Group > 0 {
		base += fmt.Sprintf("_g%d", r.Group)
	}
	if err := writeEvaluations(filepath.Join(s.results, base+"_all.txt"), r.Elements, r.All); err != nil {
		return err
	}
	return writeEvaluations(filepath.Join(s.results, base+"_top.txt"), r.Elements, r.Top)
}

func writeEvaluations(path string, elems []string, evals []sizing.Evaluation) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	header := append([]string{"RANK"}, elems...)
	header = append(header, "AREA", "DELAY", "TRISE", "TFALL", "COST", "VALID")
	if _, err := fmt.Fprintln(f, strings.Join(header, "\t")); err != nil {
		return err
	}
	for i, e := range evals {
		cols := []string{strconv.Itoa(i + 1)}
		for _, v := range e.Sizes {
			cols = append(cols, formatFloat(v))
		}
		cols = append(cols,
			formatFloat(e.Area), formatFloat(e.Delay),
			formatFloat(e.TRise), formatFloat(e.TFall),
			formatFloat(e.Cost), strconv.FormatBool(e.Valid))
		if _, err := fmt.Fprintln(f, strings.Join(cols, "\t")); err != nil {
			return err
		}
	}
	return f.Close()
}

// Measurement implements sizing.Sink. Rows are appended to the CSV table;
// a new header is written whenever the measurement names change.
func (s *Sink) Measurement(m sizing.MeasurementRecord) error {
	s.measurements++
	keys := make([]string, 0, len(m.Row.Values))
	for k := range m.Row.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	if !equalKeys(keys, s.csvKeys) {
		header := append([]string{"TAG", "OUTER_ITER", "SIZING_SBCKT", "INNER_ITER", "TRAN_SET_ITER"}, keys...)
		if err := s.csv.Write(header); err != nil {
			return err
		}
		s.csvKeys = keys
	}

	rec := []string{m.Tag, strconv.Itoa(m.Outer), m.SpName, strconv.Itoa(m.Inner), strconv.Itoa(m.TranSet)}
	for _, k := range keys {
		v := m.Row.Values[k]
		if math.IsNaN(v) || !m.Row.Valid() {
			rec = append(rec, "failed")
			continue
		}
		rec = append(rec, formatFloat(v))
	}
	if err := s.csv.Write(rec); err != nil {
		return err
	}
	s.csv.Flush()
	return s.csv.Error()
}

func equalKeys(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Iteration implements sizing.Sink.
func (s *Sink) Iteration(r sizing.IterationRecord) error {
	s.iterations = append(s.iterations, r)
	_, err := fmt.Fprintf(s.iterFile, "%d\t%s\t%s\t%s\t%s\n",
		r.Iteration, formatFloat(r.Area), formatFloat(r.Delay), formatFloat(r.Cost), strings.Join(r.Skipped, ","))
	return err
}

// Close flushes and closes the running tables.
func (s *Sink) Close() error {
	var first error
	if s.csv != nil {
		s.csv.Flush()
		first = s.csv.Error()
	}
	for _, f := range []*os.File{s.csvFile, s.iterFile} {
		if f == nil {
			continue
		}
		if err := f.Close(); err != nil && first == nil {
			first = err
		}
	}
	s.csvFile, s.iterFile = nil, nil
	return first
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}
