package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sandeepkv93/otp-auth-service/internal/config"
	"github.com/sandeepkv93/otp-auth-service/internal/observability"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open picks the gorm dialector from the DATABASE_URL scheme: postgres:// and postgresql://
// go to Postgres, sqlite:// and file: go to SQLite.
func Open(cfg *config.Config) (*gorm.DB, error) {
	start := time.Now()
	dialector, err := dialectorFor(cfg.DatabaseURL)
	if err != nil {
		observability.RecordDatabaseStartupEvent(context.Background(), "connect", "error")
		return nil, err
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	observability.RecordDatabaseStartupDuration(context.Background(), "connect", time.Since(start))
	if err != nil {
		observability.RecordDatabaseStartupEvent(context.Background(), "connect", "error")
		return nil, err
	}
	observability.RecordDatabaseStartupEvent(context.Background(), "connect", "success")
	return db, nil
}

func dialectorFor(url string) (gorm.Dialector, error) {
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"), strings.Contains(url, "host="):
		return postgres.Open(url), nil
	case strings.HasPrefix(url, "sqlite://"):
		return sqlite.Open(strings.TrimPrefix(url, "sqlite://")), nil
	case strings.HasPrefix(url, "file:"):
		return sqlite.Open(url), nil
	default:
		return nil, fmt.Errorf("unsupported DATABASE_URL scheme")
	}
}
