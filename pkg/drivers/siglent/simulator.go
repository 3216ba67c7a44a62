package siglent

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/inctrl/inctrl-go/pkg/transport"
)

// Simulator errors.
var (
	// ErrNoReply indicates a read with no reply pending. A real instrument
	// would let the read time out.
	ErrNoReply = errors.New("simulator: no reply pending")

	// ErrSimulatorClosed indicates use after Close.
	ErrSimulatorClosed = errors.New("simulator: closed")
)

// simCodePerDiv is the ADC resolution the simulator reports.
const simCodePerDiv = 3200

// SimulatorConfig configures a Simulator.
type SimulatorConfig struct {
	// Model is reported by *IDN? (default "SDS804X HD").
	Model string

	// Serial is reported by *IDN? (default "SDS08SIM00001").
	Serial string

	// Points is the acquisition memory depth (default 1000).
	Points int

	// FireAfterPolls is the number of status polls after arming before
	// an acquisition completes (default 1).
	FireAfterPolls int

	// NeverFire keeps the trigger waiting forever.
	NeverFire bool

	// Signal returns the input voltage of channel ch at time t seconds
	// relative to the trigger point. Defaults to a 0 to 3.3 V sine with
	// five periods on screen.
	Signal func(ch int, t float64) float64
}

type simChannel struct {
	on        bool
	coupling  string
	impedance string
	scale     float64
	offset    float64
}

// Simulator is an in-process SDS800X HD. It implements scpi.Channel.
type Simulator struct {
	mu  sync.Mutex
	cfg SimulatorConfig

	replies  []transport.Reply
	commands []string
	closed   bool

	timebase float64
	delay    float64
	channels map[int]*simChannel

	trigMode   string
	trigSource string
	trigLevel  float64
	trigSlope  string
	running    bool
	polls      int

	wfSource int
	wfPoints int
}

var simChannelCmd = regexp.MustCompile(`^:CHANNEL(\d+):([A-Z]+)(\?)?$`)

// NewSimulator creates a simulator in its reset state.
func NewSimulator(cfg SimulatorConfig) *Simulator {
	if cfg.Model == "" {
		cfg.Model = "SDS804X HD"
	}
	if cfg.Serial == "" {
		cfg.Serial = "SDS08SIM00001"
	}
	if cfg.Points <= 0 {
		cfg.Points = 1000
	}
	if cfg.FireAfterPolls <= 0 {
		cfg.FireAfterPolls = 1
	}
	s := &Simulator{cfg: cfg}
	if s.cfg.Signal == nil {
		s.cfg.Signal = s.defaultSignal
	}
	s.reset()
	return s
}

// IDN returns the identification string the simulator reports.
func (s *Simulator) IDN() string {
	return fmt.Sprintf("%s,%s,%s,3.8.12.1.1.3.8", Vendor, s.cfg.Model, s.cfg.Serial)
}

// Commands returns every command received so far.
func (s *Simulator) Commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.commands))
	copy(out, s.commands)
	return out
}

// Timebase returns the current per-division timebase in seconds.
func (s *Simulator) Timebase() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timebase
}

// Write handles one command.
func (s *Simulator) Write(cmd string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSimulatorClosed
	}
	s.commands = append(s.commands, cmd)
	s.handle(strings.TrimSpace(cmd))
	return nil
}

// Read returns the next text reply.
func (s *Simulator) Read() (string, error) {
	r, err := s.next()
	if err != nil {
		return "", err
	}
	if r.Block != nil {
		return "", fmt.Errorf("simulator: binary block pending")
	}
	return r.Text, nil
}

// ReadBinaryBlock returns the next block reply.
func (s *Simulator) ReadBinaryBlock() ([]byte, error) {
	r, err := s.next()
	if err != nil {
		return nil, err
	}
	if r.Block == nil {
		return nil, fmt.Errorf("simulator: text reply %q pending", r.Text)
	}
	return r.Block, nil
}

// Handle runs one command and drains the replies it produced. It
// implements transport.Responder so the simulator can sit behind a
// transport.Server.
func (s *Simulator) Handle(cmd string) ([]transport.Reply, error) {
	if err := s.Write(cmd); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.replies
	s.replies = nil
	return out, nil
}

// Close marks the simulator closed.
func (s *Simulator) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Simulator) next() (transport.Reply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return transport.Reply{}, ErrSimulatorClosed
	}
	if len(s.replies) == 0 {
		return transport.Reply{}, ErrNoReply
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	return r, nil
}

func (s *Simulator) reply(text string) {
	s.replies = append(s.replies, transport.Reply{Text: text})
}

func (s *Simulator) replyFloat(v float64) {
	s.reply(strconv.FormatFloat(v, 'E', -1, 64))
}

func (s *Simulator) reset() {
	s.timebase = 1e-6
	s.delay = 0
	s.channels = make(map[int]*simChannel)
	props, err := ModelProperties(s.cfg.Model)
	n := 4
	if err == nil {
		n = props.Channels
	}
	for id := 1; id <= n; id++ {
		s.channels[id] = &simChannel{on: id == 1, coupling: "DC", impedance: "ONEMeg", scale: 1, offset: 0}
	}
	s.trigMode = "AUTO"
	s.trigSource = "C1"
	s.trigSlope = "RISing"
	s.trigLevel = 0
	s.running = false
	s.polls = 0
	s.wfSource = 1
	s.wfPoints = s.cfg.Points
}

func (s *Simulator) handle(cmd string) {
	head, arg, _ := strings.Cut(cmd, " ")
	head = strings.ToUpper(head)
	arg = strings.TrimSpace(arg)

	if m := simChannelCmd.FindStringSubmatch(head); m != nil {
		id, _ := strconv.Atoi(m[1])
		s.handleChannel(id, m[2], m[3] == "?", arg)
		return
	}

	switch head {
	case "*IDN?":
		s.reply(s.IDN())
	case "*OPC?":
		s.reply("1")
	case "*RST":
		s.reset()

	case ":TIMEBASE:SCALE":
		if v, err := strconv.ParseFloat(arg, 64); err == nil {
			s.timebase = floorTimebase(v)
		}
	case ":TIMEBASE:SCALE?":
		s.replyFloat(s.timebase)
	case ":TIMEBASE:DELAY":
		if v, err := strconv.ParseFloat(arg, 64); err == nil {
			s.delay = v
		}
	case ":TIMEBASE:DELAY?":
		s.replyFloat(s.delay)

	case ":TRIGGER:TYPE":
	case ":TRIGGER:EDGE:SOURCE":
		s.trigSource = arg
	case ":TRIGGER:EDGE:LEVEL":
		if v, err := strconv.ParseFloat(arg, 64); err == nil {
			s.trigLevel = v
		}
	case ":TRIGGER:EDGE:SLOPE":
		s.trigSlope = arg
	case ":TRIGGER:MODE":
		s.trigMode = strings.ToUpper(arg)
	case ":TRIGGER:RUN":
		s.running = true
		s.polls = 0
	case ":TRIGGER:STOP":
		s.running = false
	case ":TRIGGER:STATUS?":
		s.reply(s.status())
	case ":INR?":
		s.reply(s.inr())

	case ":WAVEFORM:BYTEORDER", ":WAVEFORM:START", ":WAVEFORM:INTERVAL", ":WAVEFORM:WIDTH":
	case ":WAVEFORM:MAXPOINT?":
		s.reply(strconv.Itoa(s.cfg.Points))
	case ":WAVEFORM:POINT":
		if n, err := strconv.Atoi(arg); err == nil && n > 0 {
			s.wfPoints = min(n, s.cfg.Points)
		}
	case ":WAVEFORM:SOURCE":
		if id, err := strconv.Atoi(strings.TrimPrefix(strings.ToUpper(arg), "C")); err == nil {
			s.wfSource = id
		}
	case ":WAVEFORM:PREAMBLE?":
		s.replies = append(s.replies, transport.Reply{Block: EncodePreamble(s.preamble())})
	case ":WAVEFORM:DATA?":
		s.replies = append(s.replies, transport.Reply{Block: EncodeSamples(s.samples())})
	}
}

func (s *Simulator) handleChannel(id int, sub string, query bool, arg string) {
	ch, ok := s.channels[id]
	if !ok {
		return
	}
	switch sub {
	case "SWITCH":
		if query {
			s.reply(map[bool]string{true: "ON", false: "OFF"}[ch.on])
		} else {
			ch.on = strings.EqualFold(arg, "ON")
		}
	case "COUPLING":
		if query {
			s.reply(ch.coupling)
		} else if up := strings.ToUpper(arg); up == "AC" || up == "DC" || up == "GND" {
			ch.coupling = up
		}
	case "IMPEDANCE":
		// The SDS800X HD has no 50 ohm input; FIFTy is ignored.
		if query {
			s.reply(ch.impedance)
		} else if strings.EqualFold(arg, "ONEMeg") {
			ch.impedance = "ONEMeg"
		}
	case "SCALE":
		if query {
			s.replyFloat(ch.scale)
		} else if v, err := strconv.ParseFloat(arg, 64); err == nil && v > 0 {
			ch.scale = v
		}
	case "OFFSET":
		if query {
			s.replyFloat(ch.offset)
		} else if v, err := strconv.ParseFloat(arg, 64); err == nil {
			ch.offset = v
		}
	}
}

func (s *Simulator) status() string {
	if !s.running {
		return statusStop
	}
	if s.trigMode != "SINGLE" {
		return "Trig'd"
	}
	s.polls++
	if !s.cfg.NeverFire && s.polls >= s.cfg.FireAfterPolls {
		s.running = false
		return statusStop
	}
	return "Ready"
}

func (s *Simulator) inr() string {
	if !s.running || s.trigMode == "SINGLE" {
		return "0"
	}
	s.polls++
	if !s.cfg.NeverFire && s.polls >= s.cfg.FireAfterPolls {
		s.polls = 0
		return "1"
	}
	return "0"
}

func (s *Simulator) preamble() Preamble {
	ch := s.channels[s.wfSource]
	if ch == nil {
		ch = &simChannel{scale: 1}
	}
	return Preamble{
		Points:        uint32(s.wfPoints),
		VScale:        float32(ch.scale),
		VOffset:       float32(ch.offset),
		CodePerDiv:    simCodePerDiv,
		Interval:      float32(s.timebase * TimeDivisions / float64(s.wfPoints)),
		Delay:         s.delay,
		TimebaseIndex: uint16(timebaseIndex(s.timebase)),
	}
}

func (s *Simulator) samples() []int16 {
	p := s.preamble()
	trig, _ := p.TriggerIndex(TimeDivisions)
	codes := make([]int16, p.Points)
	for i := range codes {
		t := float64(i-trig) * float64(p.Interval)
		v := s.cfg.Signal(s.wfSource, t)
		c := math.Round((v + float64(p.VOffset)) * float64(p.CodePerDiv) / float64(p.VScale))
		codes[i] = int16(max(math.MinInt16, min(math.MaxInt16, c)))
	}
	return codes
}

func (s *Simulator) defaultSignal(_ int, t float64) float64 {
	period := s.timebase * TimeDivisions / 5
	return 1.65 + 1.65*math.Sin(2*math.Pi*t/period)
}

// floorTimebase returns the largest ladder entry not above v.
func floorTimebase(v float64) float64 {
	return timebases[timebaseIndex(v)]
}

func timebaseIndex(v float64) int {
	idx := 0
	for i, tb := range timebases {
		if tb <= v*(1+1e-9) {
			idx = i
		}
	}
	return idx
}
