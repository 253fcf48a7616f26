package main

import (
	"context"

	"github.com/erp/procurement/internal/infrastructure/config"
	"github.com/erp/procurement/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// telemetryProviders groups the OpenTelemetry providers started at boot
type telemetryProviders struct {
	tracer  *telemetry.TracerProvider
	metrics *telemetry.MeterProvider
	logs    *telemetry.LoggerProvider
}

// newTelemetry starts the tracer, meter and logger providers. A provider that
// fails to start is replaced by its disabled form so the service still boots.
func newTelemetry(ctx context.Context, cfg *config.Config, log *zap.Logger) *telemetryProviders {
	tc := cfg.Telemetry
	p := &telemetryProviders{}

	tracer, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           tc.Enabled,
		CollectorEndpoint: tc.CollectorEndpoint,
		SamplingRatio:     tc.SamplingRatio,
		ServiceName:       tc.ServiceName,
		Insecure:          tc.Insecure,
	}, log)
	if err != nil {
		log.Warn("Tracing unavailable, continuing without it", zap.Error(err))
		tracer, _ = telemetry.NewTracerProvider(ctx, telemetry.Config{}, log)
	}
	p.tracer = tracer

	metrics, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           tc.Enabled && tc.MetricsEnabled,
		CollectorEndpoint: tc.CollectorEndpoint,
		ExportInterval:    tc.MetricsInterval,
		ServiceName:       tc.ServiceName,
		Insecure:          tc.Insecure,
	}, log)
	if err != nil {
		log.Warn("Metrics unavailable, continuing without them", zap.Error(err))
		metrics, _ = telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{}, log)
	}
	p.metrics = metrics

	logs, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           tc.Enabled && tc.LogsEnabled,
		CollectorEndpoint: tc.CollectorEndpoint,
		ServiceName:       tc.ServiceName,
		Insecure:          tc.Insecure,
	}, log)
	if err != nil {
		log.Warn("OTLP log export unavailable, continuing without it", zap.Error(err))
		logs, _ = telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{}, log)
	}
	p.logs = logs

	return p
}

// shutdown flushes every provider
func (p *telemetryProviders) shutdown(log *zap.Logger) {
	ctx := context.Background()
	if err := p.logs.Shutdown(ctx); err != nil {
		log.Error("Error shutting down logger provider", zap.Error(err))
	}
	if err := p.metrics.Shutdown(ctx); err != nil {
		log.Error("Error shutting down meter provider", zap.Error(err))
	}
	if err := p.tracer.Shutdown(ctx); err != nil {
		log.Error("Error shutting down tracer provider", zap.Error(err))
	}
}
