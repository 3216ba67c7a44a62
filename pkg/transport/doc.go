// Package transport opens links to bench instruments.
//
// Two link types are supported: raw SCPI sockets over TCP and serial
// ports (USB CDC or RS-232). Both carry newline-terminated ASCII
// commands and replies, plus IEEE 488.2 binary blocks for bulk data.
//
// # Addresses
//
//	TCPIP::192.168.1.20::5025::SOCKET   raw socket, VISA form
//	192.168.1.20:5025                   raw socket, host:port form
//	ASRL/dev/ttyUSB0::INSTR             serial port
//
// # Binary Blocks
//
// A definite block is "#" followed by one digit n, n length digits and
// then exactly that many data bytes:
//
//	#9000000346<346 bytes>\n
//
// "#0" starts an indefinite block that runs to the next newline.
//
// # Serving
//
// Server is the instrument side: it accepts socket connections and hands
// each command line to a Responder. Simulators use it to stand in for
// real hardware.
//
// # Timeouts
//
// Every write and reply read is bounded by Config.Timeout. There is no
// retry at this layer; errors are returned to the caller unchanged apart
// from wrapping.
package transport
