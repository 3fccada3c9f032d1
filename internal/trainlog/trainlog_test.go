// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package trainlog

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/ManuGH/ibpcdc/internal/specs"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name string
		want zerolog.Level
	}{
		{"", zerolog.InfoLevel},
		{"NOTSET", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"Info", zerolog.InfoLevel},
		{"WARN", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"ERROR", zerolog.ErrorLevel},
		{"CRITICAL", zerolog.FatalLevel},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.name)
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.want, got, tt.name)
	}

	_, err := ParseLevel("VERBOSE")
	assert.ErrorIs(t, err, ErrUnknownLevel)
}

func readLog(t *testing.T, opts specs.LogOptions) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(opts.LogDir, opts.Tag+".log"))
	require.NoError(t, err)
	return string(data)
}

func TestNew_PerSinkLevels(t *testing.T) {
	opts := specs.LogOptions{
		Tag:         "PCN_INTE",
		Type:        specs.LogTypeTrain,
		LogDir:      filepath.Join(t.TempDir(), "logs"),
		GlobalLevel: "DEBUG",
		FileLevel:   "DEBUG",
		StreamLevel: "WARNING",
	}
	var stream bytes.Buffer
	logger, closer, err := New(opts, &stream)
	require.NoError(t, err)

	logger.Debug().Msg("batch_size: 32")
	logger.Info().Msg("epoch: 1, learning rate: 0.0001")
	logger.Warn().Msg("loss is nan")
	require.NoError(t, closer.Close())

	file := readLog(t, opts)
	assert.Contains(t, file, "batch_size: 32")
	assert.Contains(t, file, "epoch: 1, learning rate: 0.0001")
	assert.Contains(t, file, "loss is nan")
	assert.Contains(t, file, "PCN_INTE")

	assert.NotContains(t, stream.String(), "batch_size")
	assert.NotContains(t, stream.String(), "learning rate")
	assert.Contains(t, stream.String(), "loss is nan")
}

func TestNew_GlobalLevelAppliesFirst(t *testing.T) {
	opts := specs.LogOptions{
		Tag:         "PMPNet_INTE",
		LogDir:      t.TempDir(),
		GlobalLevel: "ERROR",
		FileLevel:   "DEBUG",
	}
	logger, closer, err := New(opts, nil)
	require.NoError(t, err)
	logger.Info().Msg("hidden")
	logger.Error().Msg("shown")
	require.NoError(t, closer.Close())

	file := readLog(t, opts)
	assert.NotContains(t, file, "hidden")
	assert.Contains(t, file, "shown")
}

func TestNew_FileModes(t *testing.T) {
	dir := t.TempDir()
	write := func(mode, msg string) {
		opts := specs.LogOptions{Tag: "SnowFlakeNet_INTE", LogDir: dir, Mode: mode}
		logger, closer, err := New(opts, nil)
		require.NoError(t, err)
		logger.Info().Msg(msg)
		require.NoError(t, closer.Close())
	}
	opts := specs.LogOptions{Tag: "SnowFlakeNet_INTE", LogDir: dir}

	write("", "first")
	write(specs.LogModeAppend, "second")
	file := readLog(t, opts)
	assert.Contains(t, file, "first")
	assert.Contains(t, file, "second")

	write(specs.LogModeTruncate, "third")
	file = readLog(t, opts)
	assert.NotContains(t, file, "first")
	assert.Contains(t, file, "third")
}

func TestNew_RejectsBadOptions(t *testing.T) {
	dir := t.TempDir()

	_, _, err := New(specs.LogOptions{Tag: "x", LogDir: dir, FileLevel: "LOUD"}, nil)
	require.ErrorIs(t, err, ErrUnknownLevel)
	assert.Contains(t, err.Error(), "FileLevel")

	_, _, err = New(specs.LogOptions{Tag: "x", LogDir: dir, Mode: "r"}, nil)
	require.Error(t, err)

	_, err = os.Stat(filepath.Join(dir, "x.log"))
	assert.True(t, os.IsNotExist(err))
}
