package infrastructure

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProviders(t *testing.T, cfg *OTelConfig) *OTelProviders {
	t.Helper()
	providers, err := InitializeOTel(cfg, DiscardLogger())
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		providers.Shutdown(ctx)
	})
	return providers
}

// TestOTelInitialization tests OpenTelemetry initialization
func TestOTelInitialization(t *testing.T) {
	providers := testProviders(t, nil)

	assert.Nil(t, providers.TracerProvider, "tracing is off by default")
	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.MeterProvider)
	assert.NotNil(t, providers.Meter)
	assert.NotNil(t, providers.PrometheusHTTP)
}

func TestOTelConfiguration(t *testing.T) {
	tests := []struct {
		name    string
		config  *OTelConfig
		wantErr bool
	}{
		{"everything off", &OTelConfig{ServiceName: ServiceName, TraceExporter: "none", MetricExporter: "none"}, false},
		{"stdout tracing", &OTelConfig{ServiceName: ServiceName, TraceExporter: "stdout", MetricExporter: "none", SampleRatio: 1}, false},
		{"unknown trace exporter", &OTelConfig{TraceExporter: "jaeger"}, true},
		{"unknown metric exporter", &OTelConfig{MetricExporter: "statsd"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			providers, err := InitializeOTel(tt.config, DiscardLogger())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, providers.Tracer)
			assert.NotNil(t, providers.Meter)
			assert.NoError(t, providers.Shutdown(context.Background()))
		})
	}
}

// TestTraceCorrelation tests trace ID correlation
func TestTraceCorrelation(t *testing.T) {
	providers := testProviders(t, &OTelConfig{ServiceName: ServiceName, TraceExporter: "stdout", MetricExporter: "none", SampleRatio: 1})

	ctx, span := providers.Tracer.Start(context.Background(), "test-operation")
	defer span.End()

	traceID := TraceIDFromContext(ctx)
	assert.NotEmpty(t, traceID)
	assert.Equal(t, span.SpanContext().TraceID().String(), traceID)

	RecordError(ctx, errors.New("boom"))
	assert.True(t, span.IsRecording())

	assert.Empty(t, TraceIDFromContext(context.Background()))
}

func TestBusinessMetricsExposedOnPrometheus(t *testing.T) {
	providers := testProviders(t, nil)

	metrics, err := CreateBusinessMetrics(providers.Meter)
	require.NoError(t, err)

	ctx := context.Background()
	RecordUpload(ctx, metrics, "xlsx", 2048, 12, nil)
	RecordUpload(ctx, metrics, "xlsx", 0, 0, errors.New("bad workbook"))
	RecordReportBuilt(ctx, metrics, "class", 15*time.Millisecond)
	RecordExport(ctx, metrics, "individual", time.Second, errors.New("chrome"))
	RecordActiveSessionChange(ctx, metrics, 1)

	server := httptest.NewServer(providers.PrometheusHTTP)
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := string(body)
	assert.Contains(t, out, "grades_uploads_total")
	assert.Contains(t, out, "grades_observations_parsed_total")
	assert.Contains(t, out, "grades_reports_built_total")
	assert.Contains(t, out, "grades_export_failures_total")
	assert.Contains(t, out, "grades_active_sessions")
}

func TestRecordHelpersTolerateNilMetrics(t *testing.T) {
	ctx := context.Background()
	assert.NotPanics(t, func() {
		RecordUpload(ctx, nil, "xlsx", 1, 1, nil)
		RecordReportBuilt(ctx, nil, "class", time.Millisecond)
		RecordExport(ctx, nil, "class", time.Millisecond, nil)
		RecordActiveSessionChange(ctx, nil, -1)
	})
}
