package health

import (
	"context"
	"errors"
	"testing"
	"time"
)

type mockChecker struct {
	result CheckResult
}

func (m mockChecker) Check(context.Context) CheckResult {
	return m.result
}

func TestProbeRunnerReady(t *testing.T) {
	runner := NewProbeRunner(200*time.Millisecond, 0,
		mockChecker{result: CheckResult{Name: "db", Healthy: true}},
		mockChecker{result: CheckResult{Name: "redis", Healthy: true}},
	)
	ready, results := runner.Ready(context.Background())
	if !ready {
		t.Fatal("expected ready")
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
}

func TestProbeRunnerUnready(t *testing.T) {
	runner := NewProbeRunner(200*time.Millisecond, 0,
		mockChecker{result: CheckResult{Name: "db", Healthy: true}},
		mockChecker{result: CheckResult{Name: "redis", Healthy: false, Error: errors.New("down").Error()}},
	)
	ready, results := runner.Ready(context.Background())
	if ready {
		t.Fatal("expected unready")
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
}

func TestProbeRunnerStartupGrace(t *testing.T) {
	runner := NewProbeRunner(200*time.Millisecond, 2*time.Second,
		mockChecker{result: CheckResult{Name: "db", Healthy: true}},
	)
	ready, results := runner.Ready(context.Background())
	if ready {
		t.Fatal("expected unready during grace period")
	}
	if len(results) != 1 || results[0].Name != "startup_grace" {
		t.Fatalf("unexpected grace results: %+v", results)
	}
}

type slowChecker struct{}

func (slowChecker) Check(ctx context.Context) CheckResult {
	select {
	case <-ctx.Done():
		return CheckResult{Name: "slow", Healthy: false, Error: ctx.Err().Error()}
	case <-time.After(time.Second):
		return CheckResult{Name: "slow", Healthy: true}
	}
}

func TestProbeRunnerSkipsNilCheckersAndBoundsEachCheck(t *testing.T) {
	runner := NewProbeRunner(20*time.Millisecond, 0,
		NewRedisChecker(nil),
		NewDBChecker(nil),
		slowChecker{},
	)
	start := time.Now()
	ready, results := runner.Ready(context.Background())
	if ready {
		t.Fatal("expected slow checker to time out")
	}
	if len(results) != 1 || results[0].Name != "slow" {
		t.Fatalf("expected only the slow checker to run, got %+v", results)
	}
	if results[0].DurationMS <= 0 {
		t.Fatalf("expected duration to be recorded, got %v", results[0].DurationMS)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Fatal("expected per-check timeout to bound the probe")
	}
}

func TestProbeRunnerRunsChecksInParallelAndKeepsOrder(t *testing.T) {
	runner := NewProbeRunner(time.Second, 0,
		sleepyChecker{name: "db", delay: 150 * time.Millisecond},
		sleepyChecker{name: "redis", delay: 150 * time.Millisecond},
	)
	start := time.Now()
	ready, results := runner.Ready(context.Background())
	if !ready {
		t.Fatalf("expected ready, got %+v", results)
	}
	if time.Since(start) >= 290*time.Millisecond {
		t.Fatalf("expected checks to overlap, took %v", time.Since(start))
	}
	if results[0].Name != "db" || results[1].Name != "redis" {
		t.Fatalf("expected registration order, got %+v", results)
	}
}

func TestProbeRunnerGraceEndsWithClock(t *testing.T) {
	runner := NewProbeRunner(time.Second, time.Minute, mockChecker{result: CheckResult{Name: "db", Healthy: true}})
	base := time.Now()
	runner.now = func() time.Time { return base.Add(2 * time.Minute) }
	if ready, results := runner.Ready(context.Background()); !ready || results[0].Name != "db" {
		t.Fatalf("expected real checks after grace, got %v %+v", ready, results)
	}
}

type sleepyChecker struct {
	name  string
	delay time.Duration
}

func (s sleepyChecker) Check(context.Context) CheckResult {
	time.Sleep(s.delay)
	return CheckResult{Name: s.name, Healthy: true}
}

func TestNilProbeRunnerIsReady(t *testing.T) {
	var runner *ProbeRunner
	if ready, _ := runner.Ready(context.Background()); !ready {
		t.Fatal("expected nil runner to report ready")
	}
}
