package siglent

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/inctrl/inctrl-go/pkg/scope"
	"github.com/inctrl/inctrl-go/pkg/scpi"
	"github.com/inctrl/inctrl-go/pkg/waveform"
)

// channel is one analog input. It holds a copy of the scope's properties
// instead of a reference to the scope.
type channel struct {
	id    int
	cmd   scpi.Commander
	props scope.Properties
}

func (c *channel) ID() int                      { return c.id }
func (c *channel) SourceID() string             { return fmt.Sprintf("C%d", c.id) }
func (c *channel) Properties() scope.Properties { return c.props }

func (c *channel) path(sub string) string {
	return fmt.Sprintf(":CHANnel%d:%s", c.id, sub)
}

func (c *channel) SetCoupling(cp scope.Coupling, failOnError bool) (scope.Coupling, error) {
	if err := c.cmd.Write(c.path("COUPling ") + cp.String()); err != nil {
		return 0, err
	}
	got, err := c.Coupling()
	if err != nil {
		return 0, err
	}
	return scope.Strict("coupling", cp, got, failOnError)
}

func (c *channel) Coupling() (scope.Coupling, error) {
	reply, err := c.cmd.Query(c.path("COUPling?"))
	if err != nil {
		return 0, err
	}
	cp, err := scope.ParseCoupling(reply)
	if err != nil {
		return 0, fmt.Errorf("%w: coupling reply %q", scope.ErrDecode, reply)
	}
	return cp, nil
}

// impedanceCodes maps ohm values to the instrument's impedance keywords.
var impedanceCodes = map[float64]string{
	ImpedanceOneMeg: "ONEMeg",
	ImpedanceFifty:  "FIFTy",
}

func (c *channel) SetImpedance(ohm float64, failOnError bool) (float64, error) {
	code, ok := impedanceCodes[ohm]
	if ok && validImpedance(c.props, ohm) {
		if err := c.cmd.Write(c.path("IMPedance ") + code); err != nil {
			return 0, err
		}
	}
	got, err := c.Impedance()
	if err != nil {
		return 0, err
	}
	return scope.Strict("impedance", ohm, got, failOnError)
}

func validImpedance(p scope.Properties, ohm float64) bool {
	for _, v := range p.ValidImpedances {
		if v == ohm {
			return true
		}
	}
	return false
}

func (c *channel) Impedance() (float64, error) {
	reply, err := c.cmd.Query(c.path("IMPedance?"))
	if err != nil {
		return 0, err
	}
	for ohm, code := range impedanceCodes {
		if strings.EqualFold(reply, code) {
			return ohm, nil
		}
	}
	if v, err := strconv.ParseFloat(reply, 64); err == nil {
		return v, nil
	}
	return 0, fmt.Errorf("%w: impedance reply %q", scope.ErrDecode, reply)
}

func (c *channel) SetScaleV(voltsPerDiv float64) (float64, error) {
	if voltsPerDiv <= 0 || math.IsInf(voltsPerDiv, 0) || math.IsNaN(voltsPerDiv) {
		return 0, fmt.Errorf("%w: vertical scale %g", scope.ErrUnsupportedValue, voltsPerDiv)
	}
	if err := c.cmd.Write(c.path("SCALe ") + formatFloat(voltsPerDiv)); err != nil {
		return 0, err
	}
	return c.ScaleV()
}

func (c *channel) ScaleV() (float64, error) {
	return queryFloat(c.cmd, c.path("SCALe?"))
}

func (c *channel) SetOffsetV(volts float64) (float64, error) {
	if err := c.cmd.Write(c.path("OFFSet ") + formatFloat(volts)); err != nil {
		return 0, err
	}
	return c.OffsetV()
}

func (c *channel) OffsetV() (float64, error) {
	return queryFloat(c.cmd, c.path("OFFSet?"))
}

// Waveform downloads the channel's last acquisition.
func (c *channel) Waveform(name string) (*waveform.Waveform, error) {
	if name == "" {
		name = c.SourceID()
	}

	setup := []string{
		":WAVeform:BYTeorder LSB",
		":WAVeform:STARt 0",
	}
	for _, cmd := range setup {
		if err := c.cmd.Write(cmd); err != nil {
			return nil, err
		}
	}

	maxPoints, err := queryFloat(c.cmd, ":WAVeform:MAXPoint?")
	if err != nil {
		return nil, err
	}

	setup = []string{
		fmt.Sprintf(":WAVeform:POINt %d", int64(maxPoints)),
		":WAVeform:INTerval 1",
		":WAVeform:WIDTh WORD",
	}
	for _, cmd := range setup {
		if err := c.cmd.Write(cmd); err != nil {
			return nil, err
		}
	}
	if err := c.cmd.WriteSync(":WAVeform:SOURce " + c.SourceID()); err != nil {
		return nil, err
	}

	preamble, err := c.cmd.QueryBytes(":WAVeform:PREamble?")
	if err != nil {
		return nil, err
	}
	data, err := c.cmd.QueryBytes(":WAVeform:DATA?")
	if err != nil {
		return nil, err
	}
	return Decode(preamble, data, c.props.TimeDivisions, name)
}

var _ scope.Channel = (*channel)(nil)
