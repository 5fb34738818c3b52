package datasource

import "time"

// LogEvent describes one pipeline step.
type LogEvent struct {
	View     string
	Stage    string
	Args     SelectArguments
	Cached   bool
	Rows     int
	Duration time.Duration
	Err      error
}

// Logger receives pipeline events.
type Logger interface {
	LogSelect(LogEvent)
}

// LoggerFunc adapts a function to Logger.
type LoggerFunc func(LogEvent)

// LogSelect implements Logger.
func (f LoggerFunc) LogSelect(event LogEvent) {
	if f != nil {
		f(event)
	}
}

type noopLogger struct{}

func (noopLogger) LogSelect(LogEvent) {}
