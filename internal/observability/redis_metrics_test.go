package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestRedisOutcome(t *testing.T) {
	cases := map[string]error{
		"success": nil,
		"miss":    redis.Nil,
		"timeout": context.DeadlineExceeded,
		"closed":  redis.ErrClosed,
		"error":   errors.New("WRONGTYPE"),
	}
	for want, err := range cases {
		if got := redisOutcome(err); got != want {
			t.Fatalf("redisOutcome(%v) = %q, want %q", err, got, want)
		}
	}
}

func TestRedisHookRecordsCommandsAndPool(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	hook, err := newRedisHook(mp.Meter("test"), client.PoolStats)
	if err != nil {
		t.Fatalf("new hook: %v", err)
	}
	client.AddHook(hook)

	ctx := context.Background()
	if err := client.SetNX(ctx, "lock", "1", 0).Err(); err != nil {
		t.Fatalf("setnx: %v", err)
	}
	if err := client.Get(ctx, "absent").Err(); !errors.Is(err, redis.Nil) {
		t.Fatalf("expected nil reply, got %v", err)
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	outcomes := map[string]int64{}
	var sawPool bool
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch m.Name {
			case "redis.command.total":
				for _, dp := range m.Data.(metricdata.Sum[int64]).DataPoints {
					cmd, _ := dp.Attributes.Value("command")
					out, _ := dp.Attributes.Value("outcome")
					outcomes[cmd.AsString()+"/"+out.AsString()] += dp.Value
				}
			case "redis.pool.connections":
				sawPool = true
			}
		}
	}
	if outcomes["setnx/success"] != 1 || outcomes["get/miss"] != 1 {
		t.Fatalf("unexpected command outcomes: %v", outcomes)
	}
	if !sawPool {
		t.Fatal("expected pool gauge to be observed")
	}
}
