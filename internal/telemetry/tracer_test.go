// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func restoreGlobalProvider(t *testing.T) {
	t.Helper()
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
}

func TestNewProvider_Disabled(t *testing.T) {
	restoreGlobalProvider(t)

	p, err := NewProvider(context.Background(), Config{ServiceName: "ibpcdc", Exporter: ExporterGRPC})
	require.NoError(t, err)
	assert.False(t, p.Enabled())
	require.NoError(t, p.Shutdown(context.Background()))

	_, span := Tracer("test").Start(context.Background(), "noop-check")
	assert.False(t, span.IsRecording())
	span.End()
}

func TestNewProvider_InvalidExporter(t *testing.T) {
	restoreGlobalProvider(t)

	_, err := NewProvider(context.Background(), Config{Enabled: true, ServiceName: "ibpcdc", Exporter: "zipkin"})
	require.Error(t, err)
	assert.Equal(t, "unsupported exporter type: zipkin (supported: grpc, http)", err.Error())
}

func TestNewProvider_EnabledWithoutCollector(t *testing.T) {
	for _, exporter := range []string{ExporterGRPC, ExporterHTTP} {
		t.Run(exporter, func(t *testing.T) {
			restoreGlobalProvider(t)

			p, err := NewProvider(context.Background(), Config{
				Enabled:     true,
				ServiceName: "ibpcdc",
				Exporter:    exporter,
				Endpoint:    "127.0.0.1:1",
				SampleRate:  1,
			})
			require.NoError(t, err)
			assert.True(t, p.Enabled())

			_, span := Tracer("test").Start(context.Background(), "recorded")
			assert.True(t, span.IsRecording())
			span.End()

			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_ = p.Shutdown(ctx)
		})
	}
}

func TestSampler(t *testing.T) {
	assert.Equal(t, "AlwaysOnSampler", Sampler(1).Description())
	assert.Equal(t, "AlwaysOnSampler", Sampler(3).Description())
	assert.Equal(t, "AlwaysOffSampler", Sampler(0).Description())
	assert.True(t, strings.HasPrefix(Sampler(0.5).Description(), "TraceIDRatioBased"))
}
