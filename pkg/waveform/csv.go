package waveform

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/inctrl/inctrl-go/pkg/duration"
)

// WriteCSV writes an "x,y" table with x expressed in unit. A zero or
// invalid unit selects OptimalTimeUnit. No other metadata is written.
func (w *Waveform) WriteCSV(out io.Writer, unit duration.TimeUnit) error {
	return w.writeCSV(csv.NewWriter(out), unit)
}

// ExportCSV writes the "x,y" table to path, creating parent directories.
func (w *Waveform) ExportCSV(path string, unit duration.TimeUnit) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := w.WriteCSV(f, unit); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (w *Waveform) writeCSV(cw *csv.Writer, unit duration.TimeUnit) error {
	xs, ys := w.XY(unit)
	if err := cw.Write([]string{"x", "y"}); err != nil {
		return err
	}
	for i := range xs {
		row := []string{
			strconv.FormatFloat(xs[i], 'g', -1, 64),
			strconv.FormatFloat(ys[i], 'g', -1, 64),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
