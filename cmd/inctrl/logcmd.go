package main

import (
	"fmt"
	"os"

	"github.com/inctrl/inctrl-go/cmd/inctrl/commands"
)

const logUsage = `inctrl log - Protocol log analyzer

Usage:
  inctrl log <command> [flags] <file.ilog>

Commands:
  view     View log file in human-readable format
  export   Export log file to JSONL or CSV format
  filter   Filter log file and write to new file
  stats    Show statistics about the log file
`

func runLog(args []string) {
	if len(args) < 1 {
		fmt.Fprint(os.Stderr, logUsage)
		os.Exit(1)
	}

	switch args[0] {
	case "view":
		runLogView(args[1:])
	case "export":
		runLogExport(args[1:])
	case "filter":
		runLogFilter(args[1:])
	case "stats":
		runLogStats(args[1:])
	case "-h", "-help", "--help", "help":
		fmt.Print(logUsage)
	default:
		// "inctrl log file.ilog" is short for view.
		runLogView(args)
	}
}

func runLogView(args []string) {
	fs := newFlagSet("log view", "log view [flags] <file.ilog>", "View log file in human-readable format")
	layer := fs.String("layer", "", "Filter by layer (transport, dispatcher, driver)")
	direction := fs.String("direction", "", "Filter by direction (in, out)")
	category := fs.String("category", "", "Filter by category (command, state, error)")
	kind := fs.String("kind", "", "Filter by command kind (write, query, block_query, reply, block)")
	address := fs.String("address", "", "Filter by instrument address")
	parseArgs(fs, args, 1, "log file path")

	filter := commands.ViewFilter{Address: *address}

	if *layer != "" {
		l, err := commands.ParseLayerFlag(*layer)
		if err != nil {
			fatal(err)
		}
		filter.Layer = &l
	}
	if *direction != "" {
		d, err := commands.ParseDirectionFlag(*direction)
		if err != nil {
			fatal(err)
		}
		filter.Direction = &d
	}
	if *category != "" {
		c, err := commands.ParseCategoryFlag(*category)
		if err != nil {
			fatal(err)
		}
		filter.Category = &c
	}
	if *kind != "" {
		k, err := commands.ParseKindFlag(*kind)
		if err != nil {
			fatal(err)
		}
		filter.Kind = &k
	}

	if err := commands.RunView(fs.Arg(0), filter, os.Stdout); err != nil {
		fatal(err)
	}
}

func runLogExport(args []string) {
	fs := newFlagSet("log export", "log export [flags] <file.ilog>", "Export log file to JSONL or CSV format")
	format := fs.String("format", "jsonl", "Output format (jsonl, csv)")
	output := fs.String("o", "", "Output file (default: stdout)")
	parseArgs(fs, args, 1, "log file path")

	if err := commands.RunExport(fs.Arg(0), *format, *output); err != nil {
		fatal(err)
	}
}

func runLogFilter(args []string) {
	fs := newFlagSet("log filter", "log filter [flags] <file.ilog>", "Filter log file and write to new file")
	var opts commands.FilterOptions
	fs.StringVar(&opts.Output, "o", "", "Output file (required)")
	fs.StringVar(&opts.ConnID, "conn-id", "", "Filter by connection ID")
	fs.StringVar(&opts.Address, "address", "", "Filter by instrument address")
	fs.StringVar(&opts.TimeStart, "time-start", "", "Filter by start time (RFC3339)")
	fs.StringVar(&opts.TimeEnd, "time-end", "", "Filter by end time (RFC3339)")
	fs.StringVar(&opts.Layer, "layer", "", "Filter by layer (transport, dispatcher, driver)")
	fs.StringVar(&opts.Direction, "direction", "", "Filter by direction (in, out)")
	fs.StringVar(&opts.Category, "category", "", "Filter by category (command, state, error)")
	fs.StringVar(&opts.Kind, "kind", "", "Filter by command kind (write, query, block_query, reply, block)")
	parseArgs(fs, args, 1, "log file path")

	if opts.Output == "" {
		fmt.Fprintln(os.Stderr, "Error: output file (-o) required")
		fs.Usage()
		os.Exit(1)
	}

	n, err := commands.RunFilter(fs.Arg(0), opts)
	if err != nil {
		fatal(err)
	}
	fmt.Printf("Filtered %d events to %s\n", n, opts.Output)
}

func runLogStats(args []string) {
	fs := newFlagSet("log stats", "log stats <file.ilog>", "Show statistics about the log file")
	parseArgs(fs, args, 1, "log file path")

	if err := commands.RunStats(fs.Arg(0), os.Stdout); err != nil {
		fatal(err)
	}
}
