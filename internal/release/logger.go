package release

import (
	"fmt"
	"io"
	"strings"
)

// Logger provides structured logging for pipeline operations.
// This interface allows callers to plug in their own implementation.
type Logger interface {
	// Debug logs debug-level messages with optional key-value pairs.
	Debug(msg string, keysAndValues ...interface{})

	// Info logs info-level messages with optional key-value pairs.
	Info(msg string, keysAndValues ...interface{})

	// Warn logs warning-level messages with optional key-value pairs.
	Warn(msg string, keysAndValues ...interface{})

	// Error logs error-level messages with optional key-value pairs.
	Error(msg string, keysAndValues ...interface{})
}

// noopLogger is a Logger implementation that does nothing.
// This is the default logger used when none is provided.
type noopLogger struct{}

func (n *noopLogger) Debug(msg string, keysAndValues ...interface{}) {}
func (n *noopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (n *noopLogger) Warn(msg string, keysAndValues ...interface{})  {}
func (n *noopLogger) Error(msg string, keysAndValues ...interface{}) {}

// defaultLogger returns the default no-op logger.
func defaultLogger() Logger {
	return &noopLogger{}
}

// WriterLogger is a Logger that writes one line per message to an
// io.Writer. CI jobs use this with os.Stderr.
type WriterLogger struct {
	W io.Writer
}

func (l *WriterLogger) Debug(msg string, keysAndValues ...interface{}) { l.write("DEBUG", msg, keysAndValues) }
func (l *WriterLogger) Info(msg string, keysAndValues ...interface{})  { l.write("INFO", msg, keysAndValues) }
func (l *WriterLogger) Warn(msg string, keysAndValues ...interface{})  { l.write("WARN", msg, keysAndValues) }
func (l *WriterLogger) Error(msg string, keysAndValues ...interface{}) { l.write("ERROR", msg, keysAndValues) }

func (l *WriterLogger) write(level, msg string, keysAndValues []interface{}) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", level, msg)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fmt.Fprintf(&b, " %v=%v", keysAndValues[i], keysAndValues[i+1])
	}
	fmt.Fprintln(l.W, b.String())
}
