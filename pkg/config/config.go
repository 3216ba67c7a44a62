// Package config loads the bench configuration file.
//
// Example:
//
//	log_level: info
//	protocol_log: logs/bench.ilog
//	metrics_addr: ":9464"
//	timeout: 5s
//	instruments:
//	  - name: scope
//	    address: TCPIP::192.168.1.20::5025::SOCKET
//	    timeout: 10s
//	    channels:
//	      scl: 1
//	      sda: 2
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/inctrl/inctrl-go/pkg/duration"
)

// ErrInvalid indicates a configuration that failed validation.
var ErrInvalid = errors.New("invalid configuration")

// DefaultTimeout is the I/O timeout when none is configured.
var DefaultTimeout = duration.New(5, duration.S)

// Config is the bench configuration.
type Config struct {
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// ProtocolLog is the path of the CBOR protocol log. Empty disables it.
	ProtocolLog string `yaml:"protocol_log"`

	// MetricsAddr is the listen address for /metrics. Empty disables it.
	MetricsAddr string `yaml:"metrics_addr"`

	// Timeout bounds each instrument read and write.
	Timeout duration.Duration `yaml:"timeout"`

	Instruments []Instrument `yaml:"instruments"`
}

// Instrument names one instrument on the bench.
type Instrument struct {
	Name    string `yaml:"name"`
	Address string `yaml:"address"`

	// Timeout overrides Config.Timeout when set.
	Timeout duration.Duration `yaml:"timeout"`

	// Channels maps symbolic names to channel numbers.
	Channels map[string]int `yaml:"channels"`
}

// LoadError reports a configuration file that could not be loaded.
type LoadError struct {
	File    string
	Message string
	Cause   error
}

func (e *LoadError) Error() string {
	if e.Cause != nil {
		return e.File + ": " + e.Message + ": " + e.Cause.Error()
	}
	return e.File + ": " + e.Message
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Timeout:  DefaultTimeout,
	}
}

// Parse overlays YAML data on the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads and parses the file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{File: path, Message: "failed to read file", Cause: err}
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, &LoadError{File: path, Message: "failed to load", Cause: err}
	}
	return cfg, nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.Timeout.Less(duration.Seconds(0)) {
		return fmt.Errorf("%w: negative timeout %s", ErrInvalid, c.Timeout)
	}

	seen := make(map[string]bool, len(c.Instruments))
	for i, inst := range c.Instruments {
		if inst.Name == "" {
			return fmt.Errorf("%w: instrument %d has no name", ErrInvalid, i)
		}
		if seen[inst.Name] {
			return fmt.Errorf("%w: duplicate instrument name %q", ErrInvalid, inst.Name)
		}
		seen[inst.Name] = true

		if inst.Address == "" {
			return fmt.Errorf("%w: instrument %q has no address", ErrInvalid, inst.Name)
		}
		if inst.Timeout.Less(duration.Seconds(0)) {
			return fmt.Errorf("%w: instrument %q: negative timeout", ErrInvalid, inst.Name)
		}
		for alias, ch := range inst.Channels {
			if ch < 1 {
				return fmt.Errorf("%w: instrument %q: alias %q targets channel %d", ErrInvalid, inst.Name, alias, ch)
			}
		}
	}
	return nil
}

// Lookup finds an instrument by name or address.
func (c *Config) Lookup(nameOrAddress string) (Instrument, bool) {
	for _, inst := range c.Instruments {
		if inst.Name == nameOrAddress || inst.Address == nameOrAddress {
			return inst, true
		}
	}
	return Instrument{}, false
}

// Resolve returns the instrument for nameOrAddress. Unknown values are
// taken as a bare address with no aliases.
func (c *Config) Resolve(nameOrAddress string) Instrument {
	if inst, ok := c.Lookup(nameOrAddress); ok {
		if inst.Timeout.IsZero() {
			inst.Timeout = c.Timeout
		}
		return inst
	}
	return Instrument{Name: nameOrAddress, Address: nameOrAddress, Timeout: c.Timeout}
}

// ParseLevel maps a level name to an slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("%w: log level %q", ErrInvalid, s)
	}
}
