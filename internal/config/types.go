// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"path/filepath"
	"time"

	"github.com/ManuGH/ibpcdc/internal/telemetry"
)

// Environment variables read by the loader.
const (
	EnvSpecDir            = "IBPCDC_SPEC_DIR"
	EnvDataDir            = "IBPCDC_DATA"
	EnvListenAddr         = "IBPCDC_LISTEN"
	EnvLogLevel           = "IBPCDC_LOG_LEVEL"
	EnvLogService         = "IBPCDC_LOG_SERVICE"
	EnvWatch              = "IBPCDC_WATCH"
	EnvRateLimitRequests  = "IBPCDC_RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow    = "IBPCDC_RATE_LIMIT_WINDOW"
	EnvRateLimitWhitelist = "IBPCDC_RATE_LIMIT_WHITELIST"
	EnvTracingEnabled     = "IBPCDC_TRACING_ENABLED"
	EnvTracingExporter    = "IBPCDC_TRACING_EXPORTER"
	EnvTracingEndpoint    = "IBPCDC_TRACING_ENDPOINT"
	EnvTracingSampleRate  = "IBPCDC_TRACING_SAMPLE_RATE"
)

// Tracing exporters.
const (
	TracingExporterGRPC = telemetry.ExporterGRPC
	TracingExporterHTTP = telemetry.ExporterHTTP
)

// CatalogFile is the catalog database name inside DataDir.
const CatalogFile = "catalog.sqlite"

// AppConfig is the resolved service configuration.
type AppConfig struct {
	Version    string
	SpecDir    string
	DataDir    string
	ListenAddr string
	LogLevel   string
	LogService string
	Watch      bool
	RateLimit  RateLimitConfig
	Tracing    TracingConfig
}

// TracingConfig controls OTLP trace export of API requests. Disabled tracing
// installs a noop provider.
type TracingConfig struct {
	Enabled    bool
	Exporter   string
	Endpoint   string
	SampleRate float64
}

// RateLimitConfig bounds API requests per client IP.
type RateLimitConfig struct {
	Requests  int
	Window    time.Duration
	Whitelist []string
}

// CatalogPath returns the catalog database path.
func (c AppConfig) CatalogPath() string {
	return filepath.Join(c.DataDir, CatalogFile)
}

// FileConfig is the YAML file layout. Nil fields keep the default.
type FileConfig struct {
	SpecDir    string               `yaml:"specDir,omitempty"`
	DataDir    string               `yaml:"dataDir,omitempty"`
	ListenAddr string               `yaml:"listenAddr,omitempty"`
	LogLevel   string               `yaml:"logLevel,omitempty"`
	LogService string               `yaml:"logService,omitempty"`
	Watch      *bool                `yaml:"watch,omitempty"`
	RateLimit  *RateLimitFileConfig `yaml:"rateLimit,omitempty"`
	Tracing    *TracingFileConfig   `yaml:"tracing,omitempty"`
}

// TracingFileConfig is the tracing section of the YAML file.
type TracingFileConfig struct {
	Enabled    *bool    `yaml:"enabled,omitempty"`
	Exporter   string   `yaml:"exporter,omitempty"`
	Endpoint   string   `yaml:"endpoint,omitempty"`
	SampleRate *float64 `yaml:"sampleRate,omitempty"`
}

// RateLimitFileConfig is the rateLimit section of the YAML file.
type RateLimitFileConfig struct {
	Requests  *int     `yaml:"requests,omitempty"`
	Window    string   `yaml:"window,omitempty"`
	Whitelist []string `yaml:"whitelist,omitempty"`
}
