package log

// Logger receives protocol events from transports, dispatchers and drivers.
// A nil Logger disables capture.
type Logger interface {
	// Log records one event. It is called on the instrument's I/O path,
	// so implementations must be safe for concurrent use and return quickly.
	Log(event Event)
}

// LoggerFunc adapts a function to Logger.
type LoggerFunc func(Event)

// Log calls f(event).
func (f LoggerFunc) Log(event Event) { f(event) }

// NoopLogger discards all events. Its zero value is ready to use.
type NoopLogger struct{}

// Log discards the event.
func (NoopLogger) Log(Event) {}

var (
	_ Logger = NoopLogger{}
	_ Logger = LoggerFunc(nil)
)
