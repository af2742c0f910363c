package observability

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sandeepkv93/otp-auth-service/internal/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/exemplar"
)

const meterName = "otp-auth-service"

type AppMetrics struct {
	authFlowCounter          metric.Int64Counter
	authReqDuration          metric.Float64Histogram
	sessionTokenValidation   metric.Int64Counter
	otpEventCounter          metric.Int64Counter
	emailEventCounter        metric.Int64Counter
	accountLockCounter       metric.Int64Counter
	accountLockWait          metric.Float64Histogram
	userProfileCounter       metric.Int64Counter
	repositoryOpsCounter     metric.Int64Counter
	healthCheckResultCounter metric.Int64Counter
	healthCheckDuration      metric.Float64Histogram
	databaseStartupCounter   metric.Int64Counter
	databaseStartupDuration  metric.Float64Histogram
	toolCommandRuns          metric.Int64Counter
	toolCommandDuration      metric.Float64Histogram
	httpMiddlewareValidation metric.Int64Counter
}

var (
	metricsMu  sync.RWMutex
	appMetrics *AppMetrics
)

func InitMetrics(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sdkmetric.MeterProvider, error) {
	if !cfg.OTELMetricsEnabled {
		mp := sdkmetric.NewMeterProvider()
		otel.SetMeterProvider(mp)
		logger.Info("otel metrics disabled")
		return mp, nil
	}

	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.OTELExporterOTLPEndpoint)}
	if cfg.OTELExporterOTLPInsecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create otlp metric exporter: %w", err)
	}

	res, err := serviceResource(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create metric resource: %w", err)
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.OTELMetricsExportInterval))
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
		sdkmetric.WithExemplarFilter(exemplar.TraceBasedFilter),
		sdkmetric.WithView(sdkmetric.NewView(
			sdkmetric.Instrument{Name: "auth.request.duration"},
			sdkmetric.Stream{
				Aggregation: sdkmetric.AggregationExplicitBucketHistogram{
					Boundaries: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
				},
			},
		)),
	)
	otel.SetMeterProvider(mp)

	m, err := newAppMetrics(mp.Meter(meterName))
	if err != nil {
		return nil, err
	}
	metricsMu.Lock()
	appMetrics = m
	metricsMu.Unlock()

	logger.Info("otel metrics initialized", "endpoint", cfg.OTELExporterOTLPEndpoint)
	return mp, nil
}

func newAppMetrics(meter metric.Meter) (*AppMetrics, error) {
	var firstErr error
	counter := func(name string) metric.Int64Counter {
		c, err := meter.Int64Counter(name)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		return c
	}
	seconds := func(name, desc string) metric.Float64Histogram {
		h, err := meter.Float64Histogram(name, metric.WithUnit("s"), metric.WithDescription(desc))
		if err != nil && firstErr == nil {
			firstErr = err
		}
		return h
	}

	m := &AppMetrics{
		authFlowCounter:          counter("auth.flow.events"),
		authReqDuration:          seconds("auth.request.duration", "Duration of auth endpoint requests in seconds"),
		sessionTokenValidation:   counter("auth.session_token.validation.events"),
		otpEventCounter:          counter("auth.otp.events"),
		emailEventCounter:        counter("notification.email.events"),
		accountLockCounter:       counter("account.lock.events"),
		accountLockWait:          seconds("account.lock.wait", "Time spent waiting for a per-account lock"),
		userProfileCounter:       counter("user.profile.events"),
		repositoryOpsCounter:     counter("repository.operations"),
		healthCheckResultCounter: counter("health.check.results"),
		healthCheckDuration:      seconds("health.check.duration", "Duration of health dependency checks in seconds"),
		databaseStartupCounter:   counter("database.startup.events"),
		databaseStartupDuration:  seconds("database.startup.duration", "Duration of database startup phases in seconds"),
		toolCommandRuns:          counter("tool.command.runs"),
		toolCommandDuration:      seconds("tool.command.duration", "Duration of operator tool commands in seconds"),
		httpMiddlewareValidation: counter("http.middleware.validation.events"),
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return m, nil
}

func loadMetrics() *AppMetrics {
	metricsMu.RLock()
	defer metricsMu.RUnlock()
	return appMetrics
}

// RecordAuthFlowEvent counts one outcome of an auth state machine operation
// (register, login, logout, send_verify_otp, verify_email, check_auth, send_reset_otp, reset_password).
func RecordAuthFlowEvent(ctx context.Context, flow, outcome string) {
	m := loadMetrics()
	if m == nil {
		return
	}
	m.authFlowCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("flow", flow),
			attribute.String("outcome", outcome),
		),
	)
}

func RecordAuthRequestDuration(ctx context.Context, endpoint, status string, duration time.Duration) {
	m := loadMetrics()
	if m == nil {
		return
	}
	m.authReqDuration.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			attribute.String("endpoint", endpoint),
			attribute.String("status", status),
		),
	)
}

func RecordSessionTokenValidation(ctx context.Context, outcome, source string) {
	m := loadMetrics()
	if m == nil {
		return
	}
	m.sessionTokenValidation.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("outcome", outcome),
			attribute.String("source", source),
		),
	)
}

func RecordOTPEvent(ctx context.Context, channel, action, outcome string) {
	m := loadMetrics()
	if m == nil {
		return
	}
	m.otpEventCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("channel", channel),
			attribute.String("action", action),
			attribute.String("outcome", outcome),
		),
	)
}

func RecordEmailEvent(ctx context.Context, kind, outcome string) {
	m := loadMetrics()
	if m == nil {
		return
	}
	m.emailEventCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("kind", kind),
			attribute.String("outcome", outcome),
		),
	)
}

func RecordAccountLockEvent(ctx context.Context, backend, outcome string) {
	m := loadMetrics()
	if m == nil {
		return
	}
	m.accountLockCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("backend", backend),
			attribute.String("outcome", outcome),
		),
	)
}

func RecordAccountLockWait(ctx context.Context, backend string, wait time.Duration) {
	m := loadMetrics()
	if m == nil {
		return
	}
	m.accountLockWait.Record(ctx, wait.Seconds(), metric.WithAttributes(attribute.String("backend", backend)))
}

func RecordUserProfileEvent(ctx context.Context, outcome string) {
	m := loadMetrics()
	if m == nil {
		return
	}
	m.userProfileCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func RecordRepositoryOperation(ctx context.Context, repo, op, outcome string) {
	m := loadMetrics()
	if m == nil {
		return
	}
	m.repositoryOpsCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("repository", repo),
			attribute.String("operation", op),
			attribute.String("outcome", outcome),
		),
	)
}

func RecordHealthCheckResult(ctx context.Context, check, outcome string) {
	m := loadMetrics()
	if m == nil {
		return
	}
	m.healthCheckResultCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("check", check),
			attribute.String("outcome", outcome),
		),
	)
}

func RecordHealthCheckDuration(ctx context.Context, check string, duration time.Duration) {
	m := loadMetrics()
	if m == nil {
		return
	}
	m.healthCheckDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String("check", check)))
}

func RecordDatabaseStartupEvent(ctx context.Context, phase, outcome string) {
	m := loadMetrics()
	if m == nil {
		return
	}
	m.databaseStartupCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("phase", phase),
			attribute.String("outcome", outcome),
		),
	)
}

func RecordDatabaseStartupDuration(ctx context.Context, phase string, duration time.Duration) {
	m := loadMetrics()
	if m == nil {
		return
	}
	m.databaseStartupDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String("phase", phase)))
}

func RecordToolCommandRun(ctx context.Context, tool, command, outcome string) {
	m := loadMetrics()
	if m == nil {
		return
	}
	m.toolCommandRuns.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("tool", tool),
			attribute.String("command", command),
			attribute.String("outcome", outcome),
		),
	)
}

func RecordToolCommandDuration(ctx context.Context, tool, command, outcome string, duration time.Duration) {
	m := loadMetrics()
	if m == nil {
		return
	}
	m.toolCommandDuration.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			attribute.String("tool", tool),
			attribute.String("command", command),
			attribute.String("outcome", outcome),
		),
	)
}

func RecordMiddlewareValidationEvent(ctx context.Context, check, outcome string) {
	m := loadMetrics()
	if m == nil {
		return
	}
	m.httpMiddlewareValidation.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("check", check),
			attribute.String("outcome", outcome),
		),
	)
}
