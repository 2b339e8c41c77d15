// Package logger provides the levelled logger used across docschema.
// It wraps a standard library `*log.Logger` and drops messages below the configured level.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

// LogLevel is a type representing the logging level.
type LogLevel int

const (
	// LevelDebug is used for detailed debugging information.
	LevelDebug LogLevel = iota
	// LevelInfo is used for general informational messages.
	LevelInfo
	// LevelWarn is used for sub-step failures that do not abort a migration.
	LevelWarn
	// LevelError is used for failures that abort a migration.
	LevelError
	// LevelFatal is used for errors that terminate the process.
	LevelFatal
)

// String returns the upper-case name of the level.
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

var (
	mu       sync.RWMutex
	logLevel = LevelInfo
	std      = log.New(os.Stderr, "", log.LstdFlags)
)

// ParseLevel converts a level name ("DEBUG", "INFO", "WARN", "ERROR", "FATAL", case-insensitive)
// into a LogLevel. The boolean result is false for unknown names, in which case LevelInfo is returned.
func ParseLevel(level string) (LogLevel, bool) {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG", "TRACE":
		return LevelDebug, true
	case "INFO":
		return LevelInfo, true
	case "WARN", "WARNING":
		return LevelWarn, true
	case "ERROR":
		return LevelError, true
	case "FATAL":
		return LevelFatal, true
	default:
		return LevelInfo, false
	}
}

// SetLogLevel sets the global log level.
// An unknown value falls back to INFO and a notice is written to the log output.
func SetLogLevel(level string) {
	parsed, ok := ParseLevel(level)

	mu.Lock()
	logLevel = parsed
	mu.Unlock()

	if !ok {
		std.Printf("[WARN] Unknown log level '%s' specified. Defaulting to INFO level.", level)
	}
}

// Level returns the current global log level.
func Level() LogLevel {
	mu.RLock()
	defer mu.RUnlock()
	return logLevel
}

// SetOutput redirects log output. Tests use it to capture messages.
func SetOutput(w io.Writer) {
	std.SetOutput(w)
}

func enabled(level LogLevel) bool {
	mu.RLock()
	defer mu.RUnlock()
	return logLevel <= level
}

func output(level LogLevel, format string, v ...interface{}) {
	if !enabled(level) {
		return
	}
	_ = std.Output(3, fmt.Sprintf("["+level.String()+"] "+format, v...))
}

// Debugf formats and outputs a DEBUG level message.
func Debugf(format string, v ...interface{}) {
	output(LevelDebug, format, v...)
}

// Infof formats and outputs an INFO level message.
func Infof(format string, v ...interface{}) {
	output(LevelInfo, format, v...)
}

// Warnf formats and outputs a WARN level message.
func Warnf(format string, v ...interface{}) {
	output(LevelWarn, format, v...)
}

// Errorf formats and outputs an ERROR level message.
func Errorf(format string, v ...interface{}) {
	output(LevelError, format, v...)
}

// Fatalf formats and outputs a FATAL level message, then calls os.Exit(1).
func Fatalf(format string, v ...interface{}) {
	_ = std.Output(2, fmt.Sprintf("[FATAL] "+format, v...))
	os.Exit(1)
}
