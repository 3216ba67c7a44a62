package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inctrl/inctrl-go/pkg/duration"
)

const sample = `
log_level: debug
protocol_log: logs/bench.ilog
metrics_addr: ":9464"
timeout: 250 ms
instruments:
  - name: scope
    address: TCPIP::192.168.1.20::5025::SOCKET
    timeout: 10s
    channels:
      scl: 1
      sda: 2
  - name: psu
    address: 192.168.1.21:5025
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "logs/bench.ilog", cfg.ProtocolLog)
	assert.Equal(t, ":9464", cfg.MetricsAddr)
	assert.True(t, cfg.Timeout.Equal(duration.MustParse("250ms")))
	require.Len(t, cfg.Instruments, 2)

	scope := cfg.Instruments[0]
	assert.Equal(t, "scope", scope.Name)
	assert.Equal(t, map[string]int{"scl": 1, "sda": 2}, scope.Channels)
	assert.True(t, scope.Timeout.Equal(duration.MustParse("10s")))
}

func TestDefaults(t *testing.T) {
	cfg, err := Parse([]byte("instruments: []\n"))
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.Timeout.Equal(DefaultTimeout))
	assert.NoError(t, Default().Validate())
}

func TestResolve(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	require.NoError(t, err)

	byName := cfg.Resolve("scope")
	assert.Equal(t, "TCPIP::192.168.1.20::5025::SOCKET", byName.Address)

	byAddr := cfg.Resolve("192.168.1.21:5025")
	assert.Equal(t, "psu", byAddr.Name)
	assert.True(t, byAddr.Timeout.Equal(duration.MustParse("250ms")), "inherits global timeout")

	bare := cfg.Resolve("10.0.0.9:5025")
	assert.Equal(t, "10.0.0.9:5025", bare.Address)
	assert.Empty(t, bare.Channels)

	_, ok := cfg.Lookup("nope")
	assert.False(t, ok)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad level", "log_level: loud\n"},
		{"negative timeout", "timeout: -1s\n"},
		{"missing name", "instruments:\n  - address: a:1\n"},
		{"missing address", "instruments:\n  - name: a\n"},
		{"duplicate name", "instruments:\n  - {name: a, address: \"x:1\"}\n  - {name: a, address: \"y:1\"}\n"},
		{"bad alias", "instruments:\n  - name: a\n    address: x:1\n    channels: {clk: 0}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestParseBadDuration(t *testing.T) {
	_, err := Parse([]byte("timeout: soon\n"))
	assert.ErrorIs(t, err, duration.ErrInvalidDuration)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bench.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Instruments, 2)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	var le *LoadError
	require.True(t, errors.As(err, &le))
	assert.ErrorIs(t, err, os.ErrNotExist)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: loud\n"), 0o644))
	_, err = Load(path)
	require.True(t, errors.As(err, &le))
	assert.Equal(t, path, le.File)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug": slog.LevelDebug, "INFO": slog.LevelInfo, "": slog.LevelInfo,
		"warn": slog.LevelWarn, "error": slog.LevelError,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
}
