// Package observability carries the logging seam shared by the engine, the
// transport and the descriptor client.
package observability

// Logger is the minimal structured surface engine code writes to. Concrete
// backends adapt to it; see ZapLogger.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

// Field is one key/value attachment on a log line.
type Field struct {
	Key   string
	Value any
}

var defaultLogger Logger = noopLogger{}

// SetLogger installs the process-wide logger. Passing nil restores the silent
// default.
func SetLogger(logger Logger) {
	if logger == nil {
		defaultLogger = noopLogger{}
		return
	}
	defaultLogger = logger
}

// Log returns the installed logger.
func Log() Logger {
	return defaultLogger
}

// noopLogger discards everything; it keeps call sites free of nil checks
// before a real backend is installed.
type noopLogger struct{}

func (noopLogger) Debug(string, ...Field) {}
func (noopLogger) Info(string, ...Field)  {}
func (noopLogger) Error(string, ...Field) {}
