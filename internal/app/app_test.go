package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sandeepkv93/otp-auth-service/internal/config"
	"github.com/sandeepkv93/otp-auth-service/internal/service"
)

type slowSender struct {
	mu    sync.Mutex
	delay time.Duration
	sent  int
}

func (s *slowSender) Send(ctx context.Context, _ service.EmailMessage) error {
	select {
	case <-time.After(s.delay):
	case <-ctx.Done():
		return ctx.Err()
	}
	s.mu.Lock()
	s.sent++
	s.mu.Unlock()
	return nil
}

func (s *slowSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sent
}

func newAppForTest(t *testing.T, sender service.EmailSender) *App {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	mailer := service.NewEmailDispatcher(sender, log, time.Second, true)
	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler(), ReadHeaderTimeout: time.Second}
	cfg := &config.Config{ShutdownTimeout: 5 * time.Second, EmailSendTimeout: 2 * time.Second}
	return New(cfg, log, srv, nil, db, rdb, mailer)
}

func TestShutdownDrainsEmailsAndClosesStores(t *testing.T) {
	sender := &slowSender{delay: 50 * time.Millisecond}
	a := newAppForTest(t, sender)

	for i := 0; i < 3; i++ {
		a.Mailer.Dispatch(context.Background(), service.EmailMessage{Kind: service.EmailKindWelcome, To: "a@x.com"})
	}
	a.Shutdown(context.Background())

	if got := sender.count(); got != 3 {
		t.Fatalf("expected pending emails drained, got %d sent", got)
	}
	if err := a.Redis.Ping(context.Background()).Err(); !errors.Is(err, redis.ErrClosed) {
		t.Fatalf("expected closed redis client, got %v", err)
	}
	sqlDB, err := a.DB.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	if err := sqlDB.Ping(); err == nil {
		t.Fatal("expected closed database")
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	a := newAppForTest(t, &slowSender{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean stop, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancel")
	}
}

func TestRunReturnsListenError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer func() { _ = ln.Close() }()

	a := newAppForTest(t, &slowSender{})
	a.Server.Addr = ln.Addr().String()
	if err := a.Run(context.Background()); err == nil {
		t.Fatal("expected listen error for occupied port")
	}
}
