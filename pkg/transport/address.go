package transport

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
)

// DefaultSocketPort is the raw SCPI socket port used by most bench instruments.
const DefaultSocketPort = 5025

// ErrInvalidAddress indicates a resource address that cannot be opened.
var ErrInvalidAddress = errors.New("invalid instrument address")

// Kind is the physical link an Address refers to.
type Kind uint8

const (
	// KindSocket is a raw TCP socket.
	KindSocket Kind = iota
	// KindSerial is a serial port (USB CDC or RS-232).
	KindSerial
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindSocket:
		return "SOCKET"
	case KindSerial:
		return "SERIAL"
	default:
		return "UNKNOWN"
	}
}

// Address is a parsed instrument resource address.
//
// Accepted forms:
//
//	TCPIP::192.168.1.20::5025::SOCKET
//	TCPIP0::scope.lab::5025::SOCKET
//	192.168.1.20:5025
//	ASRL/dev/ttyUSB0::INSTR
type Address struct {
	Kind Kind

	// Host and Port are set for KindSocket.
	Host string
	Port int

	// Device is the serial device path for KindSerial.
	Device string
}

// ParseAddress parses a resource address string.
func ParseAddress(s string) (Address, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Address{}, fmt.Errorf("%w: empty", ErrInvalidAddress)
	}

	upper := strings.ToUpper(s)
	switch {
	case strings.HasPrefix(upper, "TCPIP"):
		return parseVISASocket(s)
	case strings.HasPrefix(upper, "ASRL"):
		dev := s[len("ASRL"):]
		if i := strings.Index(dev, "::"); i >= 0 {
			if !strings.EqualFold(dev[i+2:], "INSTR") {
				return Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
			}
			dev = dev[:i]
		}
		if dev == "" {
			return Address{}, fmt.Errorf("%w: %q: missing device", ErrInvalidAddress, s)
		}
		return Address{Kind: KindSerial, Device: dev}, nil
	}

	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %q: %v", ErrInvalidAddress, s, err)
	}
	port, err := parsePort(portStr)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %q: %v", ErrInvalidAddress, s, err)
	}
	return Address{Kind: KindSocket, Host: host, Port: port}, nil
}

func parseVISASocket(s string) (Address, error) {
	parts := strings.Split(s, "::")
	// The board number after TCPIP is optional and ignored.
	board := strings.TrimPrefix(strings.ToUpper(parts[0]), "TCPIP")
	if board != "" {
		if _, err := strconv.Atoi(board); err != nil {
			return Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
		}
	}
	if len(parts) != 4 || !strings.EqualFold(parts[3], "SOCKET") {
		return Address{}, fmt.Errorf("%w: %q: only ::SOCKET resources are supported", ErrInvalidAddress, s)
	}
	if parts[1] == "" {
		return Address{}, fmt.Errorf("%w: %q: missing host", ErrInvalidAddress, s)
	}
	port, err := parsePort(parts[2])
	if err != nil {
		return Address{}, fmt.Errorf("%w: %q: %v", ErrInvalidAddress, s, err)
	}
	return Address{Kind: KindSocket, Host: parts[1], Port: port}, nil
}

func parsePort(s string) (int, error) {
	port, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("bad port %q", s)
	}
	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("port %d out of range", port)
	}
	return port, nil
}

// String returns the canonical form of the address.
func (a Address) String() string {
	switch a.Kind {
	case KindSocket:
		return fmt.Sprintf("TCPIP::%s::%d::SOCKET", a.Host, a.Port)
	case KindSerial:
		return "ASRL" + a.Device + "::INSTR"
	default:
		return ""
	}
}

// HostPort returns host:port for socket addresses.
func (a Address) HostPort() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(a.Port))
}
