// SPDX-License-Identifier: MIT
package validate

import "strings"

// LogLevel is a canonical log level name.
type LogLevel string

const (
	LogLevelTrace LogLevel = "trace"
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
	LogLevelFatal LogLevel = "fatal"
)

// IsValid reports whether l is accepted for the service log level.
// Fatal is reserved for training logs.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogLevelTrace, LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true
	default:
		return false
	}
}

// String returns the string representation
func (l LogLevel) String() string {
	return string(l)
}

// ParseLogLevel parses a service log level.
func ParseLogLevel(s string) (LogLevel, error) {
	level := LogLevel(strings.ToLower(strings.TrimSpace(s)))
	if !level.IsValid() {
		return "", ErrInvalidLogLevel
	}
	return level, nil
}

// TrainLogLevelNames lists the level names accepted in training log options,
// in ascending severity.
var TrainLogLevelNames = []string{"NOTSET", "DEBUG", "INFO", "WARN", "WARNING", "ERROR", "CRITICAL", "FATAL"}

var trainLogLevels = map[string]LogLevel{
	"NOTSET":   LogLevelTrace,
	"DEBUG":    LogLevelDebug,
	"INFO":     LogLevelInfo,
	"WARN":     LogLevelWarn,
	"WARNING":  LogLevelWarn,
	"ERROR":    LogLevelError,
	"CRITICAL": LogLevelFatal,
	"FATAL":    LogLevelFatal,
}

// ParseTrainLogLevel maps a training log level name to its canonical level.
// Names are case-insensitive; the empty name is info.
func ParseTrainLogLevel(s string) (LogLevel, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	if name == "" {
		return LogLevelInfo, nil
	}
	level, ok := trainLogLevels[name]
	if !ok {
		return "", ErrInvalidTrainLogLevel
	}
	return level, nil
}

// Common validation errors
var (
	ErrInvalidLogLevel = &Error{
		Field:   "logLevel",
		Message: "invalid log level (must be: trace, debug, info, warn, error)",
	}
	ErrInvalidTrainLogLevel = &Error{
		Field:   "LogOptions",
		Message: "invalid level (must be one of " + strings.Join(TrainLogLevelNames, ", ") + ")",
	}
)
