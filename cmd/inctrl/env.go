package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/inctrl/inctrl-go/pkg/bench"
	"github.com/inctrl/inctrl-go/pkg/config"
	"github.com/inctrl/inctrl-go/pkg/drivers/siglent"
	plog "github.com/inctrl/inctrl-go/pkg/log"
	"github.com/inctrl/inctrl-go/pkg/metrics"
	"github.com/inctrl/inctrl-go/pkg/transport"
)

// globalFlags are shared by every command that talks to an instrument.
// Empty values keep what the configuration file says.
type globalFlags struct {
	configFile  string
	logLevel    string
	protocolLog string
	metricsAddr string
	simulate    bool
	simModel    string
}

func addGlobalFlags(fs *flag.FlagSet) *globalFlags {
	g := &globalFlags{}
	fs.StringVar(&g.configFile, "config", "", "YAML configuration file")
	fs.StringVar(&g.logLevel, "log-level", "", "Log level: debug, info, warn, error (default \"info\")")
	fs.StringVar(&g.protocolLog, "protocol-log", "", "File path for protocol event logging (CBOR format)")
	fs.StringVar(&g.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9464)")
	fs.BoolVar(&g.simulate, "simulate", false, "Talk to an in-process SDS800X HD simulator")
	fs.StringVar(&g.simModel, "sim-model", "SDS804X HD", "Model reported by the simulator")
	return g
}

// env holds what setup built for one command run.
type env struct {
	cfg      *config.Config
	logger   *slog.Logger
	protocol plog.Logger
	base     bench.Options
	closers  []func() error
}

func setup(g *globalFlags) (*env, error) {
	cfg := config.Default()
	if g.configFile != "" {
		var err error
		if cfg, err = config.Load(g.configFile); err != nil {
			return nil, err
		}
	}
	if g.logLevel != "" {
		cfg.LogLevel = g.logLevel
	}
	if g.protocolLog != "" {
		cfg.ProtocolLog = g.protocolLog
	}
	if g.metricsAddr != "" {
		cfg.MetricsAddr = g.metricsAddr
	}

	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	setupLogging(level)

	e := &env{cfg: cfg}
	if level <= slog.LevelDebug {
		e.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	}

	protocol := plog.NewMultiLogger()
	if e.logger != nil {
		protocol = plog.NewMultiLogger(plog.NewSlogAdapter(e.logger))
	}
	if cfg.ProtocolLog != "" {
		fl, err := plog.NewFileLogger(cfg.ProtocolLog)
		if err != nil {
			return nil, fmt.Errorf("failed to create protocol logger: %w", err)
		}
		e.closers = append(e.closers, fl.Close)
		if e.logger != nil {
			protocol = plog.NewMultiLogger(plog.NewSlogAdapter(e.logger), fl)
		} else {
			protocol = plog.NewMultiLogger(fl)
		}
		log.Printf("Protocol logging to: %s", fl.Path())
	}
	if protocol.Len() > 0 {
		e.protocol = protocol
	}

	e.base = bench.Options{
		Logger:         e.logger,
		ProtocolLogger: e.protocol,
		Registry: bench.NewRegistry(bench.DriverConfig{
			Logger:         e.logger,
			ProtocolLogger: e.protocol,
		}),
	}

	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		e.base.Observer = metrics.NewCollector(reg)

		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler(reg))
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("Metrics server: %v", err)
			}
		}()
		e.closers = append(e.closers, srv.Close)
		log.Printf("Serving metrics on %s/metrics", cfg.MetricsAddr)
	}

	if g.simulate {
		e.base.Open = bench.Simulated(siglent.SimulatorConfig{Model: g.simModel})
		log.Printf("Using simulated %s", g.simModel)
	}
	return e, nil
}

// options resolves a configured name to its address and returns the
// bench options for it.
func (e *env) options(nameOrAddress string) (bench.Options, string) {
	inst := e.cfg.Resolve(nameOrAddress)
	opts := e.base
	opts.Transport = transport.Config{Timeout: inst.Timeout.Std()}
	return opts, inst.Address
}

func (e *env) close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			log.Printf("Warning: %v", err)
		}
	}
}

func setupLogging(level slog.Level) {
	log.SetFlags(log.Ltime | log.Lmicroseconds)

	switch {
	case level <= slog.LevelDebug:
		log.SetFlags(log.Ltime | log.Lmicroseconds | log.Lshortfile)
	case level >= slog.LevelWarn:
		log.SetFlags(log.Ltime)
	}
}
