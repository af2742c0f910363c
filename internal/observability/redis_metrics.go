package observability

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var redisHookOnce sync.Once

// InstrumentRedisClient adds command and pool metrics to the account-lock client. Only the
// first client in a process is instrumented.
func InstrumentRedisClient(client redis.UniversalClient, logger *slog.Logger) {
	if client == nil {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	redisHookOnce.Do(func() {
		hook, err := newRedisHook(otel.Meter(meterName), client.PoolStats)
		if err != nil {
			logger.Warn("redis metrics disabled", "error", err)
			return
		}
		client.AddHook(hook)
	})
}

type redisHook struct {
	commands metric.Int64Counter
	latency  metric.Float64Histogram
}

func newRedisHook(meter metric.Meter, pool func() *redis.PoolStats) (*redisHook, error) {
	var (
		h   redisHook
		err error
	)
	if h.commands, err = meter.Int64Counter("redis.command.total",
		metric.WithDescription("Redis commands issued by the account locker, by outcome")); err != nil {
		return nil, err
	}
	if h.latency, err = meter.Float64Histogram("redis.command.duration", metric.WithUnit("s"),
		metric.WithDescription("Redis command round-trip latency")); err != nil {
		return nil, err
	}
	conns, err := meter.Int64ObservableGauge("redis.pool.connections",
		metric.WithDescription("Redis pool connections by state"))
	if err != nil {
		return nil, err
	}
	saturation, err := meter.Float64ObservableGauge("redis.pool.saturation", metric.WithUnit("1"),
		metric.WithDescription("Share of pooled connections in use"))
	if err != nil {
		return nil, err
	}
	_, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		stats := pool()
		if stats == nil {
			return nil
		}
		o.ObserveInt64(conns, int64(stats.IdleConns), metric.WithAttributes(attribute.String("state", "idle")))
		o.ObserveInt64(conns, int64(stats.TotalConns-stats.IdleConns), metric.WithAttributes(attribute.String("state", "used")))
		if stats.TotalConns > 0 {
			o.ObserveFloat64(saturation, float64(stats.TotalConns-stats.IdleConns)/float64(stats.TotalConns))
		}
		return nil
	}, conns, saturation)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func (h *redisHook) DialHook(next redis.DialHook) redis.DialHook { return next }

func (h *redisHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		started := time.Now()
		err := next(ctx, cmd)
		h.observe(ctx, redisCommandName(cmd), err, time.Since(started))
		return err
	}
}

func (h *redisHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		started := time.Now()
		err := next(ctx, cmds)
		h.observe(ctx, "pipeline", err, time.Since(started))
		return err
	}
}

func (h *redisHook) observe(ctx context.Context, command string, err error, took time.Duration) {
	outcome := redisOutcome(err)
	attrs := metric.WithAttributes(attribute.String("command", command), attribute.String("outcome", outcome))
	h.commands.Add(ctx, 1, attrs)
	h.latency.Record(ctx, took.Seconds(), attrs)
}

// The lock release script runs as evalsha with an eval fallback; both report as "eval".
func redisCommandName(cmd redis.Cmder) string {
	name := strings.ToLower(cmd.Name())
	if name == "evalsha" {
		return "eval"
	}
	return name
}

// redisOutcome keeps the label set small: a lock held by someone else surfaces as redis.Nil
// from SET NX and is a normal outcome, not an error.
func redisOutcome(err error) string {
	var netErr net.Error
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, redis.Nil):
		return "miss"
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return "timeout"
	case errors.Is(err, redis.ErrClosed):
		return "closed"
	default:
		return "error"
	}
}
