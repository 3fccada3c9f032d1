// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Loader handles configuration loading with precedence
type Loader struct {
	configPath      string
	version         string
	ConsumedEnvKeys map[string]struct{}
}

// NewLoader creates a new configuration loader
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

func (l *Loader) envString(key, defaultVal string) string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseString(key, defaultVal)
}

func (l *Loader) envBool(key string, defaultVal bool) bool {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseBool(key, defaultVal)
}

func (l *Loader) envInt(key string, defaultVal int) int {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt(key, defaultVal)
}

func (l *Loader) envFloat(key string, defaultVal float64) float64 {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseFloat(key, defaultVal)
}

func (l *Loader) envDuration(key string, defaultVal time.Duration) time.Duration {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseDuration(key, defaultVal)
}

func (l *Loader) envList(key string, defaultVal []string) []string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseList(key, defaultVal)
}

// Load loads configuration with precedence: ENV > File > Defaults.
// The file is parsed strictly before ENV is applied; the result is validated.
func (l *Loader) Load() (AppConfig, error) {
	cfg := AppConfig{}

	// 1. Defaults
	l.setDefaults(&cfg)

	// 2. File (if provided)
	if l.configPath != "" {
		fileCfg, err := l.loadFile(l.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		if err := mergeFileConfig(&cfg, fileCfg); err != nil {
			return cfg, fmt.Errorf("merge file config: %w", err)
		}
	}

	// 3. Environment (highest priority)
	l.mergeEnvConfig(&cfg)

	if abs, err := filepath.Abs(cfg.DataDir); err == nil {
		cfg.DataDir = abs
	}
	cfg.Version = l.version

	// 4. Validate
	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func (l *Loader) setDefaults(cfg *AppConfig) {
	cfg.SpecDir = filepath.Join("configs", "INTE")
	cfg.DataDir = "data"
	cfg.ListenAddr = "127.0.0.1:8089"
	cfg.LogLevel = "info"
	cfg.LogService = "ibpcdc"
	cfg.Watch = true
	cfg.RateLimit = RateLimitConfig{
		Requests: 100,
		Window:   time.Minute,
	}
	cfg.Tracing = TracingConfig{
		Exporter:   TracingExporterGRPC,
		Endpoint:   "localhost:4317",
		SampleRate: 1.0,
	}
}

// loadFile loads configuration from a YAML file with STRICT parsing.
// Unknown fields will cause a fatal error to prevent misconfiguration.
func (l *Loader) loadFile(path string) (*FileConfig, error) {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return ParseFile(data)
}

// ParseFile strictly decodes a YAML configuration document.
func ParseFile(data []byte) (*FileConfig, error) {
	var fileCfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&fileCfg); err != nil {
		if errors.Is(err, io.EOF) {
			return &FileConfig{}, nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return nil, fmt.Errorf("strict config parse error: %w: %w", ErrUnknownConfigField, err)
		}
		return nil, fmt.Errorf("strict config parse error: %w", err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config file contains multiple documents or trailing content")
	}
	return &fileCfg, nil
}

func mergeFileConfig(cfg *AppConfig, f *FileConfig) error {
	if f.SpecDir != "" {
		cfg.SpecDir = f.SpecDir
	}
	if f.DataDir != "" {
		cfg.DataDir = f.DataDir
	}
	if f.ListenAddr != "" {
		cfg.ListenAddr = f.ListenAddr
	}
	if f.LogLevel != "" {
		cfg.LogLevel = f.LogLevel
	}
	if f.LogService != "" {
		cfg.LogService = f.LogService
	}
	if f.Watch != nil {
		cfg.Watch = *f.Watch
	}
	if rl := f.RateLimit; rl != nil {
		if rl.Requests != nil {
			cfg.RateLimit.Requests = *rl.Requests
		}
		if rl.Window != "" {
			d, err := time.ParseDuration(rl.Window)
			if err != nil {
				return fmt.Errorf("%w: rateLimit.window: %w", ErrInvalidConfigValue, err)
			}
			cfg.RateLimit.Window = d
		}
		if rl.Whitelist != nil {
			cfg.RateLimit.Whitelist = append([]string(nil), rl.Whitelist...)
		}
	}
	if tr := f.Tracing; tr != nil {
		if tr.Enabled != nil {
			cfg.Tracing.Enabled = *tr.Enabled
		}
		if tr.Exporter != "" {
			cfg.Tracing.Exporter = tr.Exporter
		}
		if tr.Endpoint != "" {
			cfg.Tracing.Endpoint = tr.Endpoint
		}
		if tr.SampleRate != nil {
			cfg.Tracing.SampleRate = *tr.SampleRate
		}
	}
	return nil
}

func (l *Loader) mergeEnvConfig(cfg *AppConfig) {
	cfg.SpecDir = l.envString(EnvSpecDir, cfg.SpecDir)
	cfg.DataDir = l.envString(EnvDataDir, cfg.DataDir)
	cfg.ListenAddr = l.envString(EnvListenAddr, cfg.ListenAddr)
	cfg.LogLevel = l.envString(EnvLogLevel, cfg.LogLevel)
	cfg.LogService = l.envString(EnvLogService, cfg.LogService)
	cfg.Watch = l.envBool(EnvWatch, cfg.Watch)
	cfg.RateLimit.Requests = l.envInt(EnvRateLimitRequests, cfg.RateLimit.Requests)
	cfg.RateLimit.Window = l.envDuration(EnvRateLimitWindow, cfg.RateLimit.Window)
	cfg.RateLimit.Whitelist = l.envList(EnvRateLimitWhitelist, cfg.RateLimit.Whitelist)
	cfg.Tracing.Enabled = l.envBool(EnvTracingEnabled, cfg.Tracing.Enabled)
	cfg.Tracing.Exporter = l.envString(EnvTracingExporter, cfg.Tracing.Exporter)
	cfg.Tracing.Endpoint = l.envString(EnvTracingEndpoint, cfg.Tracing.Endpoint)
	cfg.Tracing.SampleRate = l.envFloat(EnvTracingSampleRate, cfg.Tracing.SampleRate)
}
