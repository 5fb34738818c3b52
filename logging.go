package viewstate

import "time"

// LogEvent describes one save or load pass for logging.
type LogEvent struct {
	Op       string
	Store    string
	Entries  int
	Slots    int
	Bytes    int
	Duration time.Duration
	Err      error
}

// Logger records state events.
type Logger interface {
	LogState(LogEvent)
}

// LoggerFunc adapts a function to Logger.
type LoggerFunc func(LogEvent)

// LogState implements Logger.
func (f LoggerFunc) LogState(event LogEvent) {
	if f != nil {
		f(event)
	}
}

type noopLogger struct{}

func (noopLogger) LogState(LogEvent) {}

func loggerOrNoop(logger Logger) Logger {
	if logger == nil {
		return noopLogger{}
	}
	return logger
}
