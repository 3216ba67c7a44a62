package commands

import (
	"fmt"
	"io"

	"github.com/inctrl/inctrl-go/pkg/duration"
	"github.com/inctrl/inctrl-go/pkg/waveform"
)

// RunConvert writes the waveform stored at path as CSV. An empty unit
// picks the waveform's optimal time unit.
func RunConvert(path, unit string, w io.Writer) error {
	wf, err := waveform.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load waveform: %w", err)
	}

	u := wf.OptimalTimeUnit()
	if unit != "" {
		u, err = duration.ParseUnit(unit)
		if err != nil {
			return err
		}
	}
	return wf.WriteCSV(w, u)
}
