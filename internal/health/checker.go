package health

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/sandeepkv93/otp-auth-service/internal/observability"
)

type CheckResult struct {
	Name       string  `json:"name"`
	Healthy    bool    `json:"healthy"`
	Error      string  `json:"error,omitempty"`
	DurationMS float64 `json:"duration_ms"`
}

type Checker interface {
	Check(ctx context.Context) CheckResult
}

const graceCheckName = "startup_grace"

// ProbeRunner backs /health/ready. Checks run in parallel, each under its own timeout, and
// overlapping probes share one round of checks.
type ProbeRunner struct {
	checkers []Checker
	timeout  time.Duration
	readyAt  time.Time
	now      func() time.Time
	flight   singleflight.Group
}

type probeOutcome struct {
	ready   bool
	results []CheckResult
}

func NewProbeRunner(timeout, gracePeriod time.Duration, checkers ...Checker) *ProbeRunner {
	if timeout <= 0 {
		timeout = time.Second
	}
	r := &ProbeRunner{timeout: timeout, now: time.Now}
	r.readyAt = r.now().Add(gracePeriod)
	for _, c := range checkers {
		if c != nil {
			r.checkers = append(r.checkers, c)
		}
	}
	return r
}

// Ready reports whether every dependency is usable. Results keep the order the checkers were
// registered in.
func (r *ProbeRunner) Ready(ctx context.Context) (bool, []CheckResult) {
	if r == nil {
		return true, nil
	}
	if r.now().Before(r.readyAt) {
		observability.RecordHealthCheckResult(ctx, graceCheckName, "unhealthy")
		return false, []CheckResult{{Name: graceCheckName, Error: "startup grace period active"}}
	}
	v, _, _ := r.flight.Do("ready", func() (any, error) {
		return r.runAll(context.WithoutCancel(ctx)), nil
	})
	out := v.(probeOutcome)
	results := make([]CheckResult, len(out.results))
	copy(results, out.results)
	return out.ready, results
}

func (r *ProbeRunner) runAll(ctx context.Context) probeOutcome {
	results := make([]CheckResult, len(r.checkers))
	var wg sync.WaitGroup
	for i, c := range r.checkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = r.runOne(ctx, c)
		}()
	}
	wg.Wait()

	ready := true
	for _, res := range results {
		ready = ready && res.Healthy
	}
	return probeOutcome{ready: ready, results: results}
}

func (r *ProbeRunner) runOne(ctx context.Context, c Checker) CheckResult {
	checkCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	started := time.Now()
	res := c.Check(checkCtx)
	took := time.Since(started)
	res.DurationMS = float64(took.Microseconds()) / 1000.0

	status := "unhealthy"
	if res.Healthy {
		status = "healthy"
	}
	observability.RecordHealthCheckDuration(ctx, res.Name, took)
	observability.RecordHealthCheckResult(ctx, res.Name, status)
	return res
}
