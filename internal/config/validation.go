// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"net"
	"strings"

	"github.com/ManuGH/ibpcdc/internal/validate"
)

// Validate validates an AppConfig using the centralized validation package
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.Directory("specDir", cfg.SpecDir, true)
	v.Directory("dataDir", cfg.DataDir, false)
	v.ListenAddr("listenAddr", cfg.ListenAddr)

	if _, err := validate.ParseLogLevel(cfg.LogLevel); err != nil {
		v.AddError("logLevel", validate.ErrInvalidLogLevel.Message, cfg.LogLevel)
	}
	v.NotEmpty("logService", cfg.LogService)

	v.Positive("rateLimit.requests", cfg.RateLimit.Requests)
	if cfg.RateLimit.Window <= 0 {
		v.AddError("rateLimit.window", "must be positive", cfg.RateLimit.Window.String())
	}

	// Whitelist entries must be valid IPs or CIDRs
	for _, entry := range cfg.RateLimit.Whitelist {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if net.ParseIP(entry) != nil {
			continue
		}
		if _, _, err := net.ParseCIDR(entry); err == nil {
			continue
		}
		v.AddError("rateLimit.whitelist", "must be a valid IP or CIDR", entry)
	}

	if cfg.Tracing.Enabled {
		v.OneOf("tracing.exporter", cfg.Tracing.Exporter, []string{TracingExporterGRPC, TracingExporterHTTP})
		v.NotEmpty("tracing.endpoint", cfg.Tracing.Endpoint)
	}
	if r := cfg.Tracing.SampleRate; !(r >= 0 && r <= 1) {
		v.AddError("tracing.sampleRate", "must be between 0 and 1", r)
	}

	return v.Err()
}
