package observability

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/sandeepkv93/otp-auth-service/internal/config"
)

// Runtime holds the telemetry providers for the lifetime of the process. Any of them may be
// nil when its signal is disabled.
type Runtime struct {
	LoggerProvider *sdklog.LoggerProvider
	MeterProvider  *sdkmetric.MeterProvider
	TracerProvider *sdktrace.TracerProvider
}

func serviceResource(ctx context.Context, cfg *config.Config) (*resource.Resource, error) {
	return resource.New(ctx,
		resource.WithTelemetrySDK(),
		resource.WithAttributes(
			attribute.String("service.name", cfg.OTELServiceName),
			attribute.String("deployment.environment", cfg.OTELEnvironment),
		),
	)
}

// InitRuntime brings up logs, metrics and traces in that order. A failure shuts down whatever
// already started.
func InitRuntime(ctx context.Context, cfg *config.Config, logger *slog.Logger) (rt *Runtime, err error) {
	rt = &Runtime{}
	defer func() {
		if err != nil {
			_ = rt.Shutdown(ctx)
			rt = nil
		}
	}()
	if rt.LoggerProvider, err = InitLogs(ctx, cfg, logger); err != nil {
		return rt, err
	}
	if rt.MeterProvider, err = InitMetrics(ctx, cfg, logger); err != nil {
		return rt, err
	}
	rt.TracerProvider, err = InitTracing(ctx, cfg, logger)
	return rt, err
}

// Shutdown flushes traces first so spans referenced by exemplars and log lines are exported
// before the signals that point at them.
func (r *Runtime) Shutdown(ctx context.Context) error {
	if r == nil {
		return nil
	}
	var errs []error
	if r.TracerProvider != nil {
		errs = append(errs, r.TracerProvider.Shutdown(ctx))
	}
	if r.MeterProvider != nil {
		errs = append(errs, r.MeterProvider.Shutdown(ctx))
	}
	if r.LoggerProvider != nil {
		errs = append(errs, r.LoggerProvider.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
