package infrastructure

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"pricingcli/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

// TestOTelInitialization tests OpenTelemetry initialization
func TestOTelInitialization(t *testing.T) {
	providers, err := InitializeOTel(nil, testLogger())
	require.NoError(t, err)
	require.NotNil(t, providers)

	assert.NotNil(t, providers.TracerProvider)
	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.MeterProvider)
	assert.NotNil(t, providers.Meter)
	assert.NotNil(t, providers.PrometheusHTTP)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, providers.Shutdown(ctx))
}

func TestTraceCorrelation(t *testing.T) {
	providers, err := InitializeOTel(DefaultOTelConfig(), testLogger())
	require.NoError(t, err)
	defer func() { _ = providers.Shutdown(context.Background()) }()

	ctx, span := otel.Tracer("test").Start(context.Background(), "test-operation")
	defer span.End()

	traceID := TraceIDFromContext(ctx)
	assert.NotEmpty(t, traceID)
	assert.Equal(t, span.SpanContext().TraceID().String(), traceID)

	SetSpanAttributes(ctx, map[string]interface{}{
		"items":     12,
		"converged": true,
		"source":    "SINAPI",
	})
	RecordError(ctx, assert.AnError)
	assert.True(t, span.IsRecording())
}

func TestBusinessMetrics(t *testing.T) {
	providers, err := InitializeOTel(DefaultOTelConfig(), testLogger())
	require.NoError(t, err)
	defer func() { _ = providers.Shutdown(context.Background()) }()

	metrics, err := CreateBusinessMetrics(providers.Meter)
	require.NoError(t, err)

	assert.NotNil(t, metrics.HTTPRequestsTotal)
	assert.NotNil(t, metrics.CalculationRunsTotal)
	assert.NotNil(t, metrics.ItemsPricedTotal)
	assert.NotNil(t, metrics.SolverPasses)

	ctx := context.Background()
	RecordCalculationMetrics(ctx, metrics, CalculationOutcome{
		RunID:    "run-1",
		Duration: 2 * time.Second,
		Passes:   3,
		ByStatus: map[string]int{"OK": 4, "ERROR": 1},
		ByMethod: map[string]int{"CALCULATED": 4, "UNKNOWN": 1},
		RowsRead: map[string]int{"SINAPI": 100},
	})
	RecordCalculationMetrics(ctx, metrics, CalculationOutcome{RunID: "run-2", Err: errors.New("disk full")})
	RecordCalculationMetrics(ctx, nil, CalculationOutcome{})

	server := httptest.NewServer(providers.PrometheusHTTP)
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestOTelConfiguration(t *testing.T) {
	tests := []struct {
		name    string
		config  *OTelConfig
		wantErr bool
	}{
		{
			name: "stdout traces",
			config: &OTelConfig{
				ServiceName: "test", ServiceVersion: "v1", Environment: "test",
				TraceExporter: "stdout", MetricExporter: "prometheus",
				EnableMetrics: true, EnableTracing: true, SampleRatio: 1,
			},
		},
		{
			name: "everything disabled",
			config: &OTelConfig{
				ServiceName: "test", ServiceVersion: "v1",
				TraceExporter: "none", MetricExporter: "none",
			},
		},
		{
			name: "unknown trace exporter",
			config: &OTelConfig{
				ServiceName: "test", TraceExporter: "otlp", EnableTracing: true,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			providers, err := InitializeOTel(tt.config, testLogger())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			// Disabled parts still hand out usable no-op instruments
			assert.NotNil(t, providers.Tracer)
			assert.NotNil(t, providers.Meter)
			if !tt.config.EnableMetrics {
				assert.Nil(t, providers.PrometheusHTTP)
			}

			assert.NoError(t, providers.Shutdown(context.Background()))
		})
	}
}

func TestOTelConfigFrom(t *testing.T) {
	cfg := config.Default().Telemetry
	otelCfg := OTelConfigFrom(cfg)
	assert.True(t, otelCfg.EnableMetrics)
	assert.True(t, otelCfg.EnableTracing)
	assert.Equal(t, "pricing", otelCfg.ServiceName)

	cfg.Enabled = false
	otelCfg = OTelConfigFrom(cfg)
	assert.False(t, otelCfg.EnableMetrics)
	assert.False(t, otelCfg.EnableTracing)
}
