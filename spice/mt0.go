package spice

import (
	"bufio"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// failedValue is what HSPICE prints for a measurement it could not take.
const failedValue = "failed"

// alterColumn ends the header of a measurement file.
const alterColumn = "alter#"

var valuePattern = regexp.MustCompile(`^([-+]?\d*\.?\d+(?:[eE][-+]?\d+)?)(meg|[TGMKkmunpf])?[a-zA-Z]*$`)

var unitScale = map[string]float64{
	"T":   1e12,
	"G":   1e9,
	"meg": 1e6,
	"K":   1e3,
	"k":   1e3,
	"M":   1e-3,
	"m":   1e-3,
	"u":   1e-6,
	"n":   1e-9,
	"p":   1e-12,
	"f":   1e-15,
}

// ParseValue parses a SPICE number with an optional scale suffix, as in
// "1.5n", "10meg" or "2.3e-10".
func ParseValue(s string) (float64, error) {
	m := valuePattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, errors.Errorf("invalid spice value %q", s)
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid spice value %q", s)
	}
	if m[2] != "" {
		v *= unitScale[m[2]]
	}
	return v, nil
}

// ParseMT0 reads an HSPICE measurement file. Each sweep row becomes one
// Row keyed by the lower-case measurement names; "failed" entries become
// NaN and invalidate their row.
func ParseMT0(r io.Reader) ([]Row, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)

	var names []string
	var values []float64
	header := true
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "$") || strings.HasPrefix(strings.ToUpper(line), ".TITLE") {
			continue
		}
		for _, tok := range strings.Fields(line) {
			if header {
				names = append(names, strings.ToLower(tok))
				if strings.ToLower(tok) == alterColumn {
					header = false
				}
				continue
			}
			if strings.ToLower(tok) == failedValue {
				values = append(values, math.NaN())
				continue
			}
			v, err := ParseValue(tok)
			if err != nil {
				return nil, errors.Wrap(err, "parse measurement")
			}
			values = append(values, v)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "read measurements")
	}
	if header {
		return nil, errors.New("measurement file has no header")
	}
	if len(values)%len(names) != 0 {
		return nil, errors.Errorf("measurement file has %d values for %d columns", len(values), len(names))
	}

	rows := make([]Row, 0, len(values)/len(names))
	for start := 0; start < len(values); start += len(names) {
		m := make(map[string]float64, len(names))
		for i, name := range names {
			if name == alterColumn || name == "temper" {
				continue
			}
			m[name] = values[start+i]
		}
		rows = append(rows, checkRow(m))
	}
	return rows, nil
}
