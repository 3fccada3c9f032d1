// SPDX-License-Identifier: MIT
package validate

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestValidator_Range(t *testing.T) {
	tests := []struct {
		name    string
		value   int
		min     int
		max     int
		wantErr bool
	}{
		{"in range", 5, 1, 10, false},
		{"at min", 1, 1, 10, false},
		{"at max", 10, 1, 10, false},
		{"below min", 0, 1, 10, true},
		{"above max", 11, 1, 10, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			v.Range("testRange", tt.value, tt.min, tt.max)

			if tt.wantErr && v.IsValid() {
				t.Errorf("expected error, got none")
			}
			if !tt.wantErr && !v.IsValid() {
				t.Errorf("unexpected error: %v", v.Err())
			}
		})
	}
}

func TestValidator_DecayFactor(t *testing.T) {
	tests := []struct {
		name    string
		value   float64
		wantErr bool
	}{
		{"half", 0.5, false},
		{"one", 1, false},
		{"zero", 0, true},
		{"negative", -0.1, true},
		{"above one", 1.5, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			v.DecayFactor("Gamma", tt.value)
			if tt.wantErr == v.IsValid() {
				t.Errorf("DecayFactor(%g) valid=%v, wantErr=%v", tt.value, v.IsValid(), tt.wantErr)
			}
		})
	}
}

func TestValidator_PositiveFloat(t *testing.T) {
	v := New()
	v.PositiveFloat("lr", 1e-4)
	v.NonNegativeFloat("ratio", 0)
	if !v.IsValid() {
		t.Fatalf("unexpected error: %v", v.Err())
	}

	v.PositiveFloat("lr", 0)
	v.NonNegativeFloat("ratio", -1)
	if got := len(v.Errors()); got != 2 {
		t.Errorf("expected 2 errors, got %d", got)
	}
}

func TestValidator_FloatRejectsNonFinite(t *testing.T) {
	for _, value := range []float64{math.Inf(1), math.Inf(-1), math.NaN()} {
		v := New()
		v.PositiveFloat("lr", value)
		v.NonNegativeFloat("ratio", value)
		if got := len(v.Errors()); got != 2 {
			t.Errorf("%g: expected 2 errors, got %d", value, got)
		}
	}
}

func TestValidator_OneOfFold(t *testing.T) {
	v := New()
	v.OneOfFold("level", "info", []string{"DEBUG", "INFO"})
	if !v.IsValid() {
		t.Fatalf("unexpected error: %v", v.Err())
	}
	v.OneOfFold("level", "verbose", []string{"DEBUG", "INFO"})
	if v.IsValid() {
		t.Fatal("expected error for unknown value")
	}
}

func TestValidator_PathSegment(t *testing.T) {
	tests := []struct {
		value   string
		wantErr bool
	}{
		{"PCN_INTE", false},
		{"", false},
		{"a/b", true},
		{`a\b`, true},
		{"..", true},
	}
	for _, tt := range tests {
		v := New()
		v.PathSegment("TAG", tt.value)
		if tt.wantErr == v.IsValid() {
			t.Errorf("PathSegment(%q) valid=%v, wantErr=%v", tt.value, v.IsValid(), tt.wantErr)
		}
	}
}

func TestValidator_ListenAddr(t *testing.T) {
	tests := []struct {
		addr    string
		wantErr bool
	}{
		{":8080", false},
		{"127.0.0.1:9000", false},
		{"", true},
		{"localhost", true},
		{"localhost:", true},
	}
	for _, tt := range tests {
		v := New()
		v.ListenAddr("listenAddr", tt.addr)
		if tt.wantErr == v.IsValid() {
			t.Errorf("ListenAddr(%q) valid=%v, wantErr=%v", tt.addr, v.IsValid(), tt.wantErr)
		}
	}
}

func TestValidator_Directory(t *testing.T) {
	tmpDir := t.TempDir()

	t.Run("existing directory", func(t *testing.T) {
		v := New()
		v.Directory("dir", tmpDir, true)
		if !v.IsValid() {
			t.Errorf("unexpected error: %v", v.Err())
		}
	})

	t.Run("missing directory must exist", func(t *testing.T) {
		v := New()
		v.Directory("dir", filepath.Join(tmpDir, "missing"), true)
		if v.IsValid() {
			t.Error("expected error for missing directory")
		}
	})

	t.Run("missing directory is created", func(t *testing.T) {
		path := filepath.Join(tmpDir, "created")
		v := New()
		v.Directory("dir", path, false)
		if !v.IsValid() {
			t.Fatalf("unexpected error: %v", v.Err())
		}
		if info, err := os.Stat(path); err != nil || !info.IsDir() {
			t.Errorf("directory was not created: %v", err)
		}
	})

	t.Run("file is not a directory", func(t *testing.T) {
		path := filepath.Join(tmpDir, "file.txt")
		if err := os.WriteFile(path, []byte("x"), 0600); err != nil {
			t.Fatal(err)
		}
		v := New()
		v.Directory("dir", path, true)
		if v.IsValid() {
			t.Error("expected error for file path")
		}
	})
}

func TestValidator_File(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "split.json")
	if err := os.WriteFile(path, []byte("{}"), 0600); err != nil {
		t.Fatal(err)
	}

	v := New()
	v.File("TrainSplit", path)
	if !v.IsValid() {
		t.Fatalf("unexpected error: %v", v.Err())
	}

	v.File("TestSplit", filepath.Join(tmpDir, "missing.json"))
	v.File("DataSource", tmpDir)
	if got := len(v.Errors()); got != 2 {
		t.Errorf("expected 2 errors, got %d: %v", got, v.Err())
	}
}

func TestValidationError_Aggregation(t *testing.T) {
	v := New()
	if v.Err() != nil {
		t.Fatal("empty validator must return nil error")
	}

	v.Positive("TrainOptions.BatchSize", 0)
	v.NotEmpty("TAG", " ")

	err := v.Err()
	var ve ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if got := ve.Fields(); len(got) != 2 || got[0] != "TrainOptions.BatchSize" || got[1] != "TAG" {
		t.Errorf("Fields() = %v", got)
	}
	if !strings.Contains(err.Error(), "; ") {
		t.Errorf("expected joined message, got %q", err.Error())
	}

	// Err returns a snapshot; later additions do not leak into it.
	v.NonNegative("Device", -1)
	if len(ve.Errors()) != 2 {
		t.Errorf("snapshot mutated: %d errors", len(ve.Errors()))
	}
}

func TestParseLogLevel(t *testing.T) {
	if lvl, err := ParseLogLevel(" Debug "); err != nil || lvl != LogLevelDebug {
		t.Errorf("ParseLogLevel(Debug) = %q, %v", lvl, err)
	}
	if _, err := ParseLogLevel("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestParseTrainLogLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"":         LogLevelInfo,
		"notset":   LogLevelTrace,
		"WARNING":  LogLevelWarn,
		"Critical": LogLevelFatal,
		" error ":  LogLevelError,
	}
	for name, want := range cases {
		if got, err := ParseTrainLogLevel(name); err != nil || got != want {
			t.Errorf("ParseTrainLogLevel(%q) = %q, %v; want %q", name, got, err, want)
		}
	}
	for _, name := range TrainLogLevelNames {
		if _, err := ParseTrainLogLevel(name); err != nil {
			t.Errorf("listed name %q rejected: %v", name, err)
		}
	}
	if _, err := ParseTrainLogLevel("trace"); err == nil {
		t.Error("expected error for service-only level name")
	}
	if LogLevelFatal.IsValid() {
		t.Error("fatal must not be a valid service level")
	}
}
