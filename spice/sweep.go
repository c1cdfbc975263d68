package spice

import (
	"bufio"
	"io"
	"os"
	"strconv"

	"github.com/pkg/errors"
)

// valuesPerLine bounds the width of a .DATA line.
const valuesPerLine = 8

// WriteSweepData writes a sweep as an HSPICE .DATA block named sweep_data.
func WriteSweepData(w io.Writer, s *Sweep) error {
	if len(s.Names) == 0 {
		return errors.New("sweep has no parameters")
	}
	bw := bufio.NewWriter(w)
	bw.WriteString(".DATA sweep_data")
	writeFields(bw, s.Names, func(i int) string { return s.Names[i] })
	for _, row := range s.Rows {
		if len(row) != len(s.Names) {
			return errors.Errorf("sweep row has %d values for %d parameters", len(row), len(s.Names))
		}
		writeFields(bw, s.Names, func(i int) string {
			return strconv.FormatFloat(row[i], 'g', -1, 64)
		})
	}
	bw.WriteString("\n.ENDDATA\n")
	return bw.Flush()
}

// writeFields starts a new line and continues it with "+" every
// valuesPerLine fields.
func writeFields(bw *bufio.Writer, names []string, field func(int) string) {
	for i := range names {
		switch {
		case i == 0:
			bw.WriteString("\n")
		case i%valuesPerLine == 0:
			bw.WriteString("\n+ ")
		default:
			bw.WriteString(" ")
		}
		bw.WriteString(field(i))
	}
}

// WriteSweepFile writes the sweep to path.
func WriteSweepFile(path string, s *Sweep) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create sweep file")
	}
	if err := WriteSweepData(f, s); err != nil {
		f.Close()
		return errors.Wrapf(err, "write %s", path)
	}
	return f.Close()
}
