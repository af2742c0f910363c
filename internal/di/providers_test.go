package di

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/sandeepkv93/otp-auth-service/internal/config"
	"github.com/sandeepkv93/otp-auth-service/internal/database"
	"github.com/sandeepkv93/otp-auth-service/internal/http/middleware"
	"github.com/sandeepkv93/otp-auth-service/internal/http/router"
	"github.com/sandeepkv93/otp-auth-service/internal/service"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestProvideHTTPServer(t *testing.T) {
	cfg := &config.Config{HTTPPort: "9999"}
	srv := provideHTTPServer(cfg, nil)
	if srv.Addr != ":9999" {
		t.Fatalf("unexpected addr: %s", srv.Addr)
	}
	if srv.ReadTimeout.Seconds() != 10 {
		t.Fatalf("unexpected read timeout: %v", srv.ReadTimeout)
	}
}

func TestProvideRouterDependencies(t *testing.T) {
	cfg := &config.Config{
		CookieName:         "sid",
		CORSAllowedOrigins: []string{"http://localhost:5173"},
		OTELTracingEnabled: true,
	}
	dep := provideRouterDependencies(nil, nil, nil, nil, cfg)
	if !dep.EnableOTelHTTP {
		t.Fatal("expected otel http enabled")
	}
	if len(dep.CORSOrigins) != 1 || dep.CORSOrigins[0] != "http://localhost:5173" {
		t.Fatalf("unexpected cors origins: %+v", dep.CORSOrigins)
	}
	if len(dep.TokenExtractors) != 2 {
		t.Fatalf("expected cookie and bearer extractors, got %d", len(dep.TokenExtractors))
	}
	cookie, ok := dep.TokenExtractors[0].(middleware.CookieExtractor)
	if !ok || cookie.Name != "sid" {
		t.Fatalf("expected configured cookie extractor first, got %#v", dep.TokenExtractors[0])
	}
}

func TestProvideEmailSender(t *testing.T) {
	sender, err := provideEmailSender(&config.Config{EmailProvider: "log"}, discardLogger())
	if err != nil {
		t.Fatalf("log provider: %v", err)
	}
	if _, ok := sender.(*service.LogEmailSender); !ok {
		t.Fatalf("expected log sender, got %T", sender)
	}

	sender, err = provideEmailSender(&config.Config{
		EmailProvider:    "smtp",
		EmailFrom:        "noreply@example.com",
		SMTPHost:         "localhost",
		SMTPPort:         1025,
		EmailSendTimeout: time.Second,
	}, discardLogger())
	if err != nil {
		t.Fatalf("smtp provider: %v", err)
	}
	if _, ok := sender.(*service.SMTPEmailSender); !ok {
		t.Fatalf("expected smtp sender, got %T", sender)
	}

	if _, err := provideEmailSender(&config.Config{EmailProvider: "pigeon"}, discardLogger()); err == nil {
		t.Fatal("expected unsupported provider error")
	}
}

func TestProvideAccountLockerSelectsBackend(t *testing.T) {
	if _, ok := provideAccountLocker(&config.Config{}, nil, discardLogger()).(*service.InMemoryAccountLocker); !ok {
		t.Fatal("expected in-memory locker by default")
	}
	enabledWithoutClient := provideAccountLocker(&config.Config{AccountLockRedisEnabled: true}, nil, discardLogger())
	if _, ok := enabledWithoutClient.(*service.InMemoryAccountLocker); !ok {
		t.Fatal("expected in-memory fallback without a redis client")
	}

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cfg := &config.Config{AccountLockRedisEnabled: true, RedisKeyPrefix: "test", AccountLockTTL: time.Second, AccountLockWait: time.Second}
	locker, ok := provideAccountLocker(cfg, client, discardLogger()).(*service.RedisAccountLocker)
	if !ok {
		t.Fatal("expected redis locker when enabled")
	}
	unlock, err := locker.Lock(context.Background(), "acc-1")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	if !mr.Exists("test:account_lock:acc-1") {
		t.Fatal("expected lock key under configured prefix")
	}
	unlock()
}

func TestProvideRedisClientDisabled(t *testing.T) {
	if client := provideRedisClient(&config.Config{}, discardLogger()); client != nil {
		t.Fatalf("expected nil client when redis locks are disabled, got %T", client)
	}
}

func TestReadinessProbeIncludesRedisOnlyWhenEnabled(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cases := []struct {
		name    string
		enabled bool
		checks  []string
	}{
		{"db only", false, []string{"db"}},
		{"db and redis", true, []string{"db", "redis"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			runner := provideReadinessProbeRunner(&config.Config{AccountLockRedisEnabled: tc.enabled}, db, client)
			ready, results := runner.Ready(context.Background())
			if !ready {
				t.Fatalf("expected ready, got %+v", results)
			}
			names := make([]string, 0, len(results))
			for _, r := range results {
				names = append(names, r.Name)
			}
			if strings.Join(names, ",") != strings.Join(tc.checks, ",") {
				t.Fatalf("expected checks %v, got %v", tc.checks, names)
			}
		})
	}
}

func TestRouterFromProvidersServesLiveness(t *testing.T) {
	cfg := &config.Config{
		JWTSecret:   "abcdefghijklmnopqrstuvwxyz123456",
		JWTIssuer:   "iss",
		JWTAudience: "aud",
		SessionTTL:  time.Hour,
		CookieName:  "token",
	}
	tokens := service.NewTokenService(provideJWTManager(cfg))
	dep := provideRouterDependencies(provideAuthHandler(nil, provideCookieManager(cfg), cfg), nil, tokens, nil, cfg)
	if dep.TokenValidator == nil {
		t.Fatal("expected token validator")
	}

	srv := httptest.NewServer(provideHTTPServer(cfg, router.NewRouter(dep)).Handler)
	defer srv.Close()
	resp, err := http.Get(srv.URL + "/health/live")
	if err != nil {
		t.Fatalf("get live: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}
