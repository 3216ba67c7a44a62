// Package siglent drives Siglent SDS800X HD oscilloscopes (models SDS802X HD
// and SDS804X HD).
//
// Register binds the driver into an instrument registry for make
// "Siglent Technologies" and models starting with "SDS8":
//
//	reg := instrument.NewRegistry()
//	siglent.Register(reg, siglent.Config{})
//
// # Waveform Transfer
//
// A download configures the transfer (little-endian 16-bit words, all
// points, interval 1), selects the source, then reads two binary blocks:
// a 346-byte preamble describing scale, offset and timebase, and the
// sample codes. DecodePreamble and Decode turn those blocks into a
// waveform.Waveform.
//
// # Simulator
//
// Simulator answers the same command set in process. It implements
// scpi.Channel, so a Dispatcher can run against it in tests and in the
// CLI's -simulate mode.
package siglent
