package loadgen

import (
	"bytes"
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type Config struct {
	BaseURL     string
	Profile     string
	Duration    time.Duration
	RPS         int
	Concurrency int
	Seed        int64
}

type Result struct {
	TotalRequests int64
	Failures      int64
	Status2xx     int64
	Status4xx     int64
	Status5xx     int64
}

type request struct {
	method string
	path   string
	body   string
	header map[string]string
}

// generator yields the i-th request of a profile. It is only called from the scheduling
// goroutine, so it may own a non-thread-safe rand source.
type generator func(i int) request

func Run(ctx context.Context, cfg Config) (Result, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8080"
	}
	if cfg.Duration <= 0 {
		cfg.Duration = 10 * time.Second
	}
	if cfg.RPS <= 0 {
		cfg.RPS = 15
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 5
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	next := generatorForProfile(cfg.Profile, rand.New(rand.NewSource(cfg.Seed)))
	if next == nil {
		return Result{}, fmt.Errorf("unknown profile: %s", cfg.Profile)
	}
	client := &http.Client{Timeout: 5 * time.Second}

	ctx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()

	var total, failures, s2xx, s4xx, s5xx int64
	jobs := make(chan request, cfg.Concurrency*2)
	wg := sync.WaitGroup{}

	for i := 0; i < cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				req, err := http.NewRequestWithContext(ctx, job.method, cfg.BaseURL+job.path, bytes.NewReader([]byte(job.body)))
				if err != nil {
					atomic.AddInt64(&failures, 1)
					continue
				}
				if job.body != "" {
					req.Header.Set("Content-Type", "application/json")
				}
				for k, v := range job.header {
					req.Header.Set(k, v)
				}
				resp, err := client.Do(req)
				if err != nil {
					if ctx.Err() == nil {
						atomic.AddInt64(&failures, 1)
					}
					continue
				}
				_ = resp.Body.Close()
				atomic.AddInt64(&total, 1)
				switch {
				case resp.StatusCode >= 200 && resp.StatusCode < 300:
					atomic.AddInt64(&s2xx, 1)
				case resp.StatusCode >= 400 && resp.StatusCode < 500:
					atomic.AddInt64(&s4xx, 1)
				case resp.StatusCode >= 500:
					atomic.AddInt64(&s5xx, 1)
				}
			}
		}()
	}

	ticker := time.NewTicker(time.Second / time.Duration(cfg.RPS))
	defer ticker.Stop()
	i := 0
	for {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return Result{
				TotalRequests: atomic.LoadInt64(&total),
				Failures:      atomic.LoadInt64(&failures),
				Status2xx:     atomic.LoadInt64(&s2xx),
				Status4xx:     atomic.LoadInt64(&s4xx),
				Status5xx:     atomic.LoadInt64(&s5xx),
			}, nil
		case <-ticker.C:
			select {
			case jobs <- next(i):
				i++
			case <-ctx.Done():
			}
		}
	}
}

func generatorForProfile(profile string, rng *rand.Rand) generator {
	switch strings.ToLower(profile) {
	case "", "mixed":
		return cycle(
			request{method: http.MethodGet, path: "/health/live"},
			request{method: http.MethodGet, path: "/health/ready"},
			request{method: http.MethodPost, path: "/api/auth/sign-in", body: `{"email":"nobody@example.com","password":"wrong"}`},
			request{method: http.MethodGet, path: "/api/auth/is-auth"},
			request{method: http.MethodGet, path: "/api/user/data"},
			request{method: http.MethodPost, path: "/api/auth/send-reset-otp", body: `{"email":"nobody@example.com"}`},
		)
	case "auth":
		// Odd ticks sign in to the account created on the tick before.
		run := rng.Int63()
		return func(i int) request {
			email := fmt.Sprintf("loadgen-%d-%d@example.com", run, i/2)
			if i%2 == 0 {
				return request{
					method: http.MethodPost,
					path:   "/api/auth/sign-up",
					body:   fmt.Sprintf(`{"username":"loadgen%d","email":%q,"password":"loadgen-pass"}`, i/2, email),
				}
			}
			return request{
				method: http.MethodPost,
				path:   "/api/auth/sign-in",
				body:   fmt.Sprintf(`{"email":%q,"password":"loadgen-pass"}`, email),
			}
		}
	case "error-heavy":
		return cycle(
			request{method: http.MethodGet, path: "/api/auth/is-auth", header: map[string]string{"Authorization": "Bearer not-a-jwt"}},
			request{method: http.MethodGet, path: "/api/user/data", header: map[string]string{"Cookie": "token=garbage"}},
			request{method: http.MethodPost, path: "/api/auth/sign-in", body: `{"email":`},
			request{method: http.MethodPost, path: "/api/auth/verify-email", body: `{"otp":"000000"}`},
			request{method: http.MethodGet, path: "/api/does-not-exist"},
		)
	default:
		return nil
	}
}

func cycle(reqs ...request) generator {
	return func(i int) request { return reqs[i%len(reqs)] }
}
