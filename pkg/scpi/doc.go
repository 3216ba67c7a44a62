// Package scpi provides the command dispatcher that every instrument driver
// talks through.
//
// A Dispatcher wraps one open Channel and offers three operations:
//
//	d.Write(":TIMebase:SCALe 2E-06")        // fire and forget
//	d.WriteSync(":TRIGger:RUN")             // write, then block on *OPC?
//	scale, err := d.Query(":TIMebase:SCALe?") // write, read one trimmed reply
//	data, err := d.QueryBytes(":WAVeform:DATA?") // write, read one binary block
//
// The dispatcher performs no retries. Transport failures are returned to
// the caller with the failing command attached.
//
// A Dispatcher is not safe for concurrent use. The driver that owns it
// serializes all calls.
package scpi
