// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package trainlog builds the logger a training or test run writes to, as
// described by the LogOptions section of its spec.
package trainlog

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ManuGH/ibpcdc/internal/runplan"
	"github.com/ManuGH/ibpcdc/internal/specs"
	"github.com/ManuGH/ibpcdc/internal/validate"
	"github.com/rs/zerolog"
)

// ErrUnknownLevel is returned for level names outside specs.LogLevels.
var ErrUnknownLevel = errors.New("unknown log level")

// FieldLogger carries the logger name on every entry.
const FieldLogger = "logger"

// TimeFormat is the timestamp layout of training log lines.
const TimeFormat = "2006-01-02 15:04:05"

// ParseLevel maps a level name as written in LogOptions to a zerolog level.
// Names are case-insensitive; the empty name is INFO.
func ParseLevel(name string) (zerolog.Level, error) {
	lvl, err := validate.ParseTrainLogLevel(name)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("%w: %q", ErrUnknownLevel, name)
	}
	return zerolog.ParseLevel(lvl.String())
}

// New opens the run log file and returns a logger that writes to it and to
// stream. Each sink drops entries below its own level; the global level is
// applied before either sink sees an entry. A nil stream logs to the file
// only. The returned closer closes the file.
func New(opts specs.LogOptions, stream io.Writer) (zerolog.Logger, io.Closer, error) {
	global, fileLevel, streamLevel, err := levels(opts)
	if err != nil {
		return zerolog.Nop(), nil, err
	}

	file, err := openLogFile(opts)
	if err != nil {
		return zerolog.Nop(), nil, err
	}

	sinks := []io.Writer{levelFilter{w: console(file), min: fileLevel}}
	if stream != nil {
		sinks = append(sinks, levelFilter{w: console(stream), min: streamLevel})
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(sinks...)).
		Level(global).
		With().
		Timestamp().
		Str(FieldLogger, opts.Tag).
		Logger()
	return logger, file, nil
}

func levels(opts specs.LogOptions) (global, file, stream zerolog.Level, err error) {
	g, f, s := opts.Levels()
	if global, err = ParseLevel(g); err != nil {
		return 0, 0, 0, fmt.Errorf("GlobalLevel: %w", err)
	}
	if file, err = ParseLevel(f); err != nil {
		return 0, 0, 0, fmt.Errorf("FileLevel: %w", err)
	}
	if stream, err = ParseLevel(s); err != nil {
		return 0, 0, 0, fmt.Errorf("StreamLevel: %w", err)
	}
	return global, file, stream, nil
}

func openLogFile(opts specs.LogOptions) (*os.File, error) {
	path := runplan.LogFilePath(opts)
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	flags := os.O_CREATE | os.O_WRONLY
	switch opts.FileMode() {
	case specs.LogModeAppend:
		flags |= os.O_APPEND
	case specs.LogModeTruncate:
		flags |= os.O_TRUNC
	default:
		return nil, fmt.Errorf("unsupported log file mode %q", opts.Mode)
	}

	// #nosec G304 -- the log path is derived from the operator's spec
	f, err := os.OpenFile(path, flags, 0600)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}

func console(w io.Writer) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:           w,
		NoColor:       true,
		TimeFormat:    TimeFormat,
		PartsOrder:    []string{zerolog.TimestampFieldName, zerolog.LevelFieldName, FieldLogger, zerolog.MessageFieldName},
		FieldsExclude: []string{FieldLogger},
	}
}

// levelFilter drops entries below min before they reach w.
type levelFilter struct {
	w   io.Writer
	min zerolog.Level
}

func (f levelFilter) Write(p []byte) (int, error) {
	return f.w.Write(p)
}

func (f levelFilter) WriteLevel(l zerolog.Level, p []byte) (int, error) {
	if l < f.min {
		return len(p), nil
	}
	return f.w.Write(p)
}
