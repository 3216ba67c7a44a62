// Command inctrl talks to bench instruments over SCPI.
//
// Usage:
//
//	inctrl <command> [flags] <args>
//
// Commands:
//
//	idn      Identify one instrument and show its resolved descriptor
//	list     Identify several instruments and print a table
//	capture  Run a single-shot oscilloscope acquisition and save waveforms
//	shell    Interactive SCPI console
//	convert  Convert a saved waveform (.wfm) to CSV
//	log      View, export, filter or summarize a protocol log (.ilog)
//	simulate Serve an SDS800X HD simulator on a SCPI socket
//
// Instrument commands accept:
//
//	-config string        YAML configuration file
//	-log-level string     Log level: debug, info, warn, error
//	-protocol-log string  File path for protocol event logging (CBOR format)
//	-metrics-addr string  Serve Prometheus metrics on this address
//	-simulate             Talk to an in-process SDS800X HD simulator
//
// Addresses are VISA-style resource strings (TCPIP::host::port::SOCKET,
// ASRL/dev/ttyUSB0::INSTR), plain host:port, or instrument names from the
// configuration file.
//
// Examples:
//
//	# Identify a scope
//	inctrl idn TCPIP::192.168.1.20::5025::SOCKET
//
//	# Capture SCL and SDA on a falling SDA edge
//	inctrl capture -config bench.yaml -window 23us -channels scl,sda \
//	    -trigger-source sda -level 1.6 -slope falling -delay -20us -o out scope
//
//	# Replay what was sent to the instrument
//	inctrl log view -layer dispatcher -direction out session.ilog
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/inctrl/inctrl-go/cmd/inctrl/commands"
	"github.com/inctrl/inctrl-go/pkg/bench"
	"github.com/inctrl/inctrl-go/pkg/config"
	"github.com/inctrl/inctrl-go/pkg/drivers/siglent"
	"github.com/inctrl/inctrl-go/pkg/duration"
	"github.com/inctrl/inctrl-go/pkg/instrument"
	"github.com/inctrl/inctrl-go/pkg/scope"
	"github.com/inctrl/inctrl-go/pkg/transport"
)

const usage = `inctrl - Bench Instrument Control

Usage:
  inctrl <command> [flags] <args>

Commands:
  idn      Identify one instrument and show its resolved descriptor
  list     Identify several instruments and print a table
  capture  Run a single-shot oscilloscope acquisition and save waveforms
  shell    Interactive SCPI console
  convert  Convert a saved waveform (.wfm) to CSV
  log      View, export, filter or summarize a protocol log (.ilog)
  simulate Serve an SDS800X HD simulator on a SCPI socket

Use "inctrl <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "idn":
		runIDN(args)
	case "list":
		runList(args)
	case "capture":
		runCapture(args)
	case "shell":
		runShell(args)
	case "convert":
		runConvert(args)
	case "log":
		runLog(args)
	case "simulate":
		runSimulate(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

func newFlagSet(name, synopsis, description string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "inctrl %s - %s\n\nUsage:\n  inctrl %s\n\nFlags:\n", name, description, synopsis)
		fs.PrintDefaults()
	}
	return fs
}

func parseArgs(fs *flag.FlagSet, args []string, minArgs int, what string) {
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < minArgs {
		fmt.Fprintf(os.Stderr, "Error: %s required\n", what)
		fs.Usage()
		os.Exit(1)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runIDN(args []string) {
	fs := newFlagSet("idn", "idn [flags] <address|name>", "Identify one instrument")
	g := addGlobalFlags(fs)
	parseArgs(fs, args, 1, "instrument address")

	e, err := setup(g)
	if err != nil {
		fatal(err)
	}
	defer e.close()

	ctx, cancel := signalContext()
	defer cancel()

	opts, addr := e.options(fs.Arg(0))
	spec, err := bench.Describe(ctx, addr, opts)
	if err != nil {
		fatal(err)
	}
	commands.PrintSpec(os.Stdout, spec)
}

func runList(args []string) {
	fs := newFlagSet("list", "list [flags] [address|name]...", "Identify instruments and print a table")
	g := addGlobalFlags(fs)
	parseArgs(fs, args, 0, "")

	e, err := setup(g)
	if err != nil {
		fatal(err)
	}
	defer e.close()

	names := fs.Args()
	if len(names) == 0 {
		for _, inst := range e.cfg.Instruments {
			names = append(names, inst.Name)
		}
	}
	if len(names) == 0 {
		fatal(fmt.Errorf("no instruments given and none configured"))
	}

	ctx, cancel := signalContext()
	defer cancel()

	// Each address may carry its own timeout, so List runs per entry.
	var specs []instrument.ISpec
	for _, name := range names {
		opts, addr := e.options(name)
		got, err := bench.List(ctx, []string{addr}, opts)
		if err != nil {
			fatal(err)
		}
		for _, s := range got {
			if inst, ok := e.cfg.Lookup(name); ok {
				s.Name = inst.Name
			}
			specs = append(specs, s)
		}
	}
	if err := commands.PrintSpecTable(os.Stdout, specs); err != nil {
		fatal(err)
	}
}

func runCapture(args []string) {
	fs := newFlagSet("capture", "capture [flags] <address|name>", "Single-shot oscilloscope acquisition")
	g := addGlobalFlags(fs)

	window := duration.MustParse("1ms")
	delay := duration.Seconds(0)
	timeout := duration.MustParse("10s")
	fs.TextVar(&window, "window", window, "Acquisition time window")
	fs.TextVar(&delay, "delay", delay, "Trigger delay (negative moves the trigger point right)")
	fs.TextVar(&timeout, "timeout", timeout, "Maximum wait for the trigger (0s polls once)")
	channels := fs.String("channels", "1", "Comma-separated channel numbers or aliases")
	source := fs.String("trigger-source", "", "Trigger channel (default: first channel)")
	level := fs.Float64("level", 0, "Trigger level in volts")
	slope := fs.String("slope", "rising", "Trigger slope: rising, falling")
	output := fs.String("o", ".", "Output directory")
	csvOut := fs.Bool("csv", false, "Also write a CSV file per channel")
	csvUnit := fs.String("csv-unit", "us", "Time unit for CSV x values: ns, us, ms, s, ks")
	parseArgs(fs, args, 1, "instrument address")

	sl, err := scope.ParseSlope(*slope)
	if err != nil {
		fatal(err)
	}
	unit, err := duration.ParseUnit(*csvUnit)
	if err != nil {
		fatal(err)
	}

	e, err := setup(g)
	if err != nil {
		fatal(err)
	}
	defer e.close()

	ctx, cancel := signalContext()
	defer cancel()

	opts, addr := e.options(fs.Arg(0))
	s, err := bench.OpenOscilloscope(ctx, addr, opts)
	if err != nil {
		fatal(err)
	}
	defer s.Close()
	log.Printf("Connected to %s", s.Spec())

	aliases := map[string]int(nil)
	if inst, ok := e.cfg.Lookup(fs.Arg(0)); ok {
		aliases = inst.Channels
	}

	res, err := commands.RunCapture(ctx, s, commands.CaptureOptions{
		Window:        window,
		Channels:      splitList(*channels),
		Aliases:       aliases,
		TriggerSource: *source,
		LevelV:        *level,
		Slope:         sl,
		Delay:         delay,
		Timeout:       timeout,
		Output:        *output,
		CSV:           *csvOut,
		CSVUnit:       unit,
	}, os.Stdout)
	if err != nil {
		fatal(err)
	}
	log.Printf("Wrote %d files", len(res.Files))
}

func runShell(args []string) {
	fs := newFlagSet("shell", "shell [flags] <address|name>", "Interactive SCPI console")
	g := addGlobalFlags(fs)
	parseArgs(fs, args, 1, "instrument address")

	e, err := setup(g)
	if err != nil {
		fatal(err)
	}
	defer e.close()

	ctx, cancel := signalContext()
	defer cancel()

	opts, addr := e.options(fs.Arg(0))
	d, err := bench.Dial(ctx, addr, opts)
	if err != nil {
		fatal(err)
	}
	defer d.Close()

	sh, err := newShell(d, addr)
	if err != nil {
		fatal(err)
	}
	log.SetOutput(sh.Stderr())
	sh.Run(ctx, cancel)
}

func runConvert(args []string) {
	fs := newFlagSet("convert", "convert [flags] <file.wfm>", "Convert a saved waveform to CSV")
	unit := fs.String("unit", "", "Time unit for x values (default: picked from the time window)")
	parseArgs(fs, args, 1, "waveform file path")

	if err := commands.RunConvert(fs.Arg(0), *unit, os.Stdout); err != nil {
		fatal(err)
	}
}

func runSimulate(args []string) {
	fs := newFlagSet("simulate", "simulate [flags]", "Serve an SDS800X HD simulator on a SCPI socket")
	listen := fs.String("listen", fmt.Sprintf("127.0.0.1:%d", transport.DefaultSocketPort), "Listen address")
	model := fs.String("model", "SDS804X HD", "Model reported by *IDN?")
	points := fs.Int("points", 10000, "Acquisition memory depth")
	fireAfter := fs.Int("fire-after", 3, "Status polls before a capture completes")
	logLevel := fs.String("log-level", "info", "Log level: debug, info, warn, error")
	parseArgs(fs, args, 0, "")

	level, err := config.ParseLevel(*logLevel)
	if err != nil {
		fatal(err)
	}
	setupLogging(level)

	sim := siglent.NewSimulator(siglent.SimulatorConfig{
		Model:          *model,
		Points:         *points,
		FireAfterPolls: *fireAfter,
	})
	srv, err := transport.NewServer(transport.ServerConfig{
		Address:   *listen,
		Responder: sim,
		OnError: func(_ *transport.ServerConn, err error) {
			log.Printf("Error: %v", err)
		},
	})
	if err != nil {
		fatal(err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	if err := srv.Start(ctx); err != nil {
		fatal(err)
	}
	log.Printf("Simulating %s on %s", sim.IDN(), srv.Addr())

	<-ctx.Done()
	log.Println("Shutting down...")
	if err := srv.Stop(); err != nil {
		log.Printf("Error stopping server: %v", err)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
