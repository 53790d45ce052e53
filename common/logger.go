package common

import (
	"fmt"
	"os"
)

// Logger represents a minimal levelled logger
type Logger interface {
	// Debugf handles debug level messages
	Debugf(format string, args ...any)
	// Infof handles info level messages
	Infof(format string, args ...any)
	// Warnf handles warn level messages
	Warnf(format string, args ...any)
	// Errorf handles error level messages
	Errorf(format string, args ...any)
	// Fatalf handles fatal level messages, and must exit the application
	Fatalf(format string, args ...any)
	// Panicf handles panic level messages, and must panic the application
	Panicf(format string, args ...any)
}

// StubLogger satisfies the Logger interface, and simply does nothing with
// received messages
type StubLogger struct{}

// Debugf discards debug level messages
func (l *StubLogger) Debugf(format string, args ...any) {}

// Infof discards info level messages
func (l *StubLogger) Infof(format string, args ...any) {}

// Warnf discards warn level messages
func (l *StubLogger) Warnf(format string, args ...any) {}

// Errorf discards error level messages
func (l *StubLogger) Errorf(format string, args ...any) {}

// Fatalf exits the application
func (l *StubLogger) Fatalf(format string, args ...any) {
	os.Exit(1)
}

// Panicf panics the application with the formatted message
func (l *StubLogger) Panicf(format string, args ...any) {
	panic(fmt.Sprintf(format, args...))
}

// logPrefixer tags every message with the library name before handing it to
// the wrapped Logger
type logPrefixer struct {
	log Logger
}

// Debugf forwards debug level messages, tagged as coming from goavea
func (l *logPrefixer) Debugf(format string, args ...any) {
	l.log.Debugf(l.prefix(format), args...)
}

// Infof forwards info level messages, tagged as coming from goavea
func (l *logPrefixer) Infof(format string, args ...any) {
	l.log.Infof(l.prefix(format), args...)
}

// Warnf forwards warn level messages, tagged as coming from goavea
func (l *logPrefixer) Warnf(format string, args ...any) {
	l.log.Warnf(l.prefix(format), args...)
}

// Errorf forwards error level messages, tagged as coming from goavea
func (l *logPrefixer) Errorf(format string, args ...any) {
	l.log.Errorf(l.prefix(format), args...)
}

// Fatalf forwards fatal level messages, tagged as coming from goavea
func (l *logPrefixer) Fatalf(format string, args ...any) {
	l.log.Fatalf(l.prefix(format), args...)
}

// Panicf forwards panic level messages, tagged as coming from goavea
func (l *logPrefixer) Panicf(format string, args ...any) {
	l.log.Panicf(l.prefix(format), args...)
}

func (l *logPrefixer) prefix(format string) string {
	return `[goavea] ` + format
}

// Log holds the global logger used by goavea, can be set via SetLogger() in the
// goavea package
var Log Logger = &logPrefixer{log: new(StubLogger)}

// SetLogger wraps the supplied logger with a logPrefixer to denote goavea logs.
// A nil logger restores the StubLogger.
func SetLogger(logger Logger) {
	if logger == nil {
		logger = new(StubLogger)
	}
	Log = &logPrefixer{log: logger}
}
