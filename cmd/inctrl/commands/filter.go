package commands

import (
	"fmt"
	"time"

	"github.com/inctrl/inctrl-go/pkg/log"
)

// FilterOptions specifies filtering criteria for the log filter command.
type FilterOptions struct {
	Output    string
	ConnID    string
	Address   string
	TimeStart string
	TimeEnd   string
	Layer     string
	Direction string
	Category  string
	Kind      string
}

// BuildFilter converts the string options into a log.Filter.
func (o FilterOptions) BuildFilter() (log.Filter, error) {
	filter := log.Filter{
		ConnectionID: o.ConnID,
		Address:      o.Address,
	}

	if o.TimeStart != "" {
		t, err := time.Parse(time.RFC3339, o.TimeStart)
		if err != nil {
			return log.Filter{}, fmt.Errorf("invalid time-start format: %w", err)
		}
		filter.TimeStart = &t
	}
	if o.TimeEnd != "" {
		t, err := time.Parse(time.RFC3339, o.TimeEnd)
		if err != nil {
			return log.Filter{}, fmt.Errorf("invalid time-end format: %w", err)
		}
		filter.TimeEnd = &t
	}
	if o.Layer != "" {
		l, err := ParseLayerFlag(o.Layer)
		if err != nil {
			return log.Filter{}, err
		}
		filter.Layer = &l
	}
	if o.Direction != "" {
		d, err := ParseDirectionFlag(o.Direction)
		if err != nil {
			return log.Filter{}, err
		}
		filter.Direction = &d
	}
	if o.Category != "" {
		c, err := ParseCategoryFlag(o.Category)
		if err != nil {
			return log.Filter{}, err
		}
		filter.Category = &c
	}
	if o.Kind != "" {
		k, err := ParseKindFlag(o.Kind)
		if err != nil {
			return log.Filter{}, err
		}
		filter.Kind = &k
	}
	return filter, nil
}

// RunFilter copies matching events to opts.Output and returns how many
// were written.
func RunFilter(path string, opts FilterOptions) (int, error) {
	filter, err := opts.BuildFilter()
	if err != nil {
		return 0, err
	}

	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	logger, err := log.NewFileLogger(opts.Output)
	if err != nil {
		return 0, fmt.Errorf("failed to create output logger: %w", err)
	}
	defer logger.Close()

	for event, err := range reader.Events() {
		if err != nil {
			return logger.Written(), fmt.Errorf("failed to read event: %w", err)
		}
		logger.Log(event)
	}
	return logger.Written(), nil
}
