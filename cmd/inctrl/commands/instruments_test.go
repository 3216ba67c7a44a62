package commands

import (
	"bytes"
	"strings"
	"testing"

	"github.com/inctrl/inctrl-go/pkg/instrument"
)

func TestPrintSpecTable(t *testing.T) {
	specs := []instrument.ISpec{
		{Name: "scope", Address: "10.0.0.1:5025", Make: "Siglent Technologies", Model: "SDS804X HD", Type: instrument.TypeOscilloscope},
		{Name: "10.0.0.2:5025", Address: "10.0.0.2:5025", Type: instrument.TypeUnknown},
	}

	var buf bytes.Buffer
	if err := PrintSpecTable(&buf, specs); err != nil {
		t.Fatalf("PrintSpecTable: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows, got:\n%s", buf.String())
	}
	if fields := strings.Fields(lines[0]); strings.Join(fields, " ") != "NAME ADDRESS MAKE MODEL TYPE" {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.Contains(lines[1], "SDS804X HD") || !strings.HasSuffix(lines[1], "Oscilloscope") {
		t.Errorf("row = %q", lines[1])
	}
	if !strings.HasSuffix(lines[2], "Unknown") {
		t.Errorf("row = %q", lines[2])
	}
}

func TestPrintSpec(t *testing.T) {
	var buf bytes.Buffer
	PrintSpec(&buf, instrument.ISpec{Name: "x", Address: "x", Type: instrument.TypeUnknown})
	if !strings.Contains(buf.String(), "Driver:   none") {
		t.Errorf("unexpected output:\n%s", buf.String())
	}
}
