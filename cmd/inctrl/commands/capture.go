package commands

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/inctrl/inctrl-go/pkg/duration"
	"github.com/inctrl/inctrl-go/pkg/scope"
)

// CaptureOptions configures one single-shot acquisition.
type CaptureOptions struct {
	// Window is the requested acquisition time window.
	Window duration.Duration

	// Channels lists channel numbers or aliases to download.
	Channels []string

	// Aliases maps symbolic channel names to channel numbers.
	Aliases map[string]int

	// TriggerSource is the channel number or alias to trigger on.
	TriggerSource string

	LevelV float64
	Slope  scope.Slope
	Delay  duration.Duration

	// Timeout bounds the wait for the trigger. Zero polls once.
	Timeout duration.Duration

	// Output is the directory the waveform files are written to.
	Output string

	// CSV also writes a .csv next to each .wfm, with x in CSVUnit.
	CSV     bool
	CSVUnit duration.TimeUnit
}

// CaptureResult describes a completed acquisition.
type CaptureResult struct {
	Window duration.Duration
	Files  []string
}

// RunCapture sets the time window, configures an edge trigger, arms a
// single shot, waits for it and saves each requested channel.
func RunCapture(ctx context.Context, o scope.Oscilloscope, opts CaptureOptions, w io.Writer) (*CaptureResult, error) {
	if len(opts.Channels) == 0 {
		return nil, fmt.Errorf("%w: no channels requested", scope.ErrInvalidChannel)
	}

	window, err := scope.SetTimeWindow(o, opts.Window)
	if err != nil {
		return nil, fmt.Errorf("set time window: %w", err)
	}
	fmt.Fprintf(w, "Time window: %s (requested %s)\n", window, opts.Window)

	channels := make([]scope.Channel, 0, len(opts.Channels))
	for _, name := range opts.Channels {
		ch, err := scope.ChannelByName(o, opts.Aliases, name)
		if err != nil {
			return nil, err
		}
		channels = append(channels, ch)
	}

	src := opts.TriggerSource
	if src == "" {
		src = opts.Channels[0]
	}
	trigCh, err := scope.ChannelByName(o, opts.Aliases, src)
	if err != nil {
		return nil, fmt.Errorf("trigger source: %w", err)
	}

	trig := o.Trigger()
	edge := scope.Edge(trigCh, opts.LevelV, scope.WithSlope(opts.Slope), scope.WithDelay(opts.Delay))
	if err := trig.Configure(edge); err != nil {
		return nil, fmt.Errorf("configure trigger: %w", err)
	}
	if err := trig.ArmSingle(); err != nil {
		return nil, fmt.Errorf("arm trigger: %w", err)
	}
	fmt.Fprintf(w, "Armed on %s at %g V (%s), waiting up to %s\n", trigCh.SourceID(), opts.LevelV, opts.Slope, opts.Timeout)

	if _, err := trig.WaitForWaveform(ctx, scope.WithTimeout(opts.Timeout), scope.ErrorOnTimeout()); err != nil {
		return nil, err
	}

	result := &CaptureResult{Window: window}
	for i, ch := range channels {
		name := opts.Channels[i]
		wf, err := ch.Waveform(name)
		if err != nil {
			return nil, fmt.Errorf("download %s: %w", name, err)
		}

		path := filepath.Join(opts.Output, name+".wfm")
		if err := wf.Save(path); err != nil {
			return nil, err
		}
		result.Files = append(result.Files, path)
		fmt.Fprintf(w, "Saved %s (%d samples)\n", path, wf.Len())

		if opts.CSV {
			csvPath := filepath.Join(opts.Output, name+".csv")
			if err := wf.ExportCSV(csvPath, opts.CSVUnit); err != nil {
				return nil, err
			}
			result.Files = append(result.Files, csvPath)
		}
	}
	return result, nil
}
