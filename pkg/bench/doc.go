// Package bench is the entry point for talking to instruments.
//
// It opens a transport link, wraps it in a scpi.Dispatcher, identifies the
// instrument with *IDN? and binds the driver the registry resolves:
//
//	s, err := bench.OpenOscilloscope(ctx, "TCPIP::192.168.1.20::5025::SOCKET", bench.Options{})
//	if err != nil {
//		return err
//	}
//	defer s.Close()
//	window, err := scope.SetTimeWindow(s, duration.MustParse("23us"))
//
// The default registry knows every driver in this module and is built once
// at package initialization. It is read-only afterwards and safe for
// concurrent use.
package bench
