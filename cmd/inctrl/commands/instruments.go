package commands

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/inctrl/inctrl-go/pkg/instrument"
)

// PrintSpec writes one descriptor as key/value lines.
func PrintSpec(w io.Writer, spec instrument.ISpec) {
	fmt.Fprintf(w, "Name:     %s\n", spec.Name)
	fmt.Fprintf(w, "Address:  %s\n", spec.Address)
	fmt.Fprintf(w, "Make:     %s\n", spec.Make)
	fmt.Fprintf(w, "Model:    %s\n", spec.Model)
	fmt.Fprintf(w, "Serial:   %s\n", spec.SerialNumber)
	fmt.Fprintf(w, "Firmware: %s\n", spec.FirmwareVersion)
	fmt.Fprintf(w, "Type:     %s\n", spec.Type)
	if spec.Bound() {
		fmt.Fprintln(w, "Driver:   yes")
	} else {
		fmt.Fprintln(w, "Driver:   none")
	}
}

// PrintSpecTable renders descriptors as a table of name, address, make,
// model and type.
func PrintSpecTable(w io.Writer, specs []instrument.ISpec) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tADDRESS\tMAKE\tMODEL\tTYPE")
	for _, s := range specs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", s.Name, s.Address, s.Make, s.Model, s.Type)
	}
	return tw.Flush()
}
