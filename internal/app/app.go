package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/sandeepkv93/otp-auth-service/internal/config"
	"github.com/sandeepkv93/otp-auth-service/internal/observability"
	"github.com/sandeepkv93/otp-auth-service/internal/service"
)

type App struct {
	Config        *config.Config
	Logger        *slog.Logger
	Server        *http.Server
	Observability *observability.Runtime
	DB            *gorm.DB
	Redis         redis.UniversalClient
	Mailer        *service.EmailDispatcher
}

func New(
	cfg *config.Config,
	logger *slog.Logger,
	server *http.Server,
	runtime *observability.Runtime,
	db *gorm.DB,
	redisClient redis.UniversalClient,
	mailer *service.EmailDispatcher,
) *App {
	return &App{
		Config:        cfg,
		Logger:        logger,
		Server:        server,
		Observability: runtime,
		DB:            db,
		Redis:         redisClient,
		Mailer:        mailer,
	}
}

// Run serves until ctx is cancelled, then shuts down. A listener failure is returned as is.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("server starting", "addr", a.Server.Addr)
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok && err != nil {
			a.Logger.Error("server failed", "error", err)
			a.Shutdown(context.Background())
			return err
		}
	case <-ctx.Done():
		a.Logger.Info("shutdown signal received")
	}
	a.Shutdown(context.Background())
	return nil
}

// Shutdown drains in dependency order: HTTP first so no new work arrives, then pending emails,
// then telemetry, then the stores. Every step runs even when an earlier one fails.
func (a *App) Shutdown(parent context.Context) {
	totalCtx, totalCancel := context.WithTimeout(parent, durationOr(a.cfg().ShutdownTimeout, 20*time.Second))
	defer totalCancel()

	if a.Server != nil {
		httpCtx, httpCancel := context.WithTimeout(totalCtx, durationOr(a.cfg().ShutdownHTTPDrainTimeout, 10*time.Second))
		if err := a.Server.Shutdown(httpCtx); err != nil {
			a.Logger.Error("failed to shutdown http server", "error", err)
		}
		httpCancel()
	}

	if a.Mailer != nil {
		mailCtx, mailCancel := context.WithTimeout(totalCtx, durationOr(a.cfg().EmailSendTimeout, 10*time.Second))
		if err := a.Mailer.Close(mailCtx); err != nil {
			a.Logger.Error("failed to drain pending emails", "error", err)
		}
		mailCancel()
	}

	if a.Observability != nil {
		obsCtx, obsCancel := context.WithTimeout(totalCtx, durationOr(a.cfg().ShutdownObservabilityTimeout, 8*time.Second))
		if err := a.Observability.Shutdown(obsCtx); err != nil {
			a.Logger.Error("failed to shutdown observability", "error", err)
		}
		obsCancel()
	}

	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Error("failed to close redis client", "error", err)
		}
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				a.Logger.Error("failed to close database connection", "error", err)
			}
		}
	}
	a.Logger.Info("shutdown complete")
}

func (a *App) cfg() *config.Config {
	if a.Config == nil {
		return &config.Config{}
	}
	return a.Config
}

func durationOr(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}
