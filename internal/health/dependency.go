package health

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/sandeepkv93/otp-auth-service/internal/domain"
)

// pingChecker adapts a probe function to Checker.
type pingChecker struct {
	name  string
	probe func(ctx context.Context) error
}

func (c pingChecker) Check(ctx context.Context) CheckResult {
	res := CheckResult{Name: c.name, Healthy: true}
	if err := c.probe(ctx); err != nil {
		res.Healthy = false
		res.Error = err.Error()
	}
	return res
}

// NewDBChecker reports the account store ready once the connection answers and the accounts
// table exists. A nil db yields no checker.
func NewDBChecker(db *gorm.DB) Checker {
	if db == nil {
		return nil
	}
	return pingChecker{name: "db", probe: func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			return err
		}
		if !db.WithContext(ctx).Migrator().HasTable(&domain.Account{}) {
			return errors.New("accounts table missing: run migrations")
		}
		return nil
	}}
}

// NewRedisChecker pings the lock backend. A nil client yields no checker.
func NewRedisChecker(client redis.UniversalClient) Checker {
	if client == nil {
		return nil
	}
	return pingChecker{name: "redis", probe: func(ctx context.Context) error {
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
		return nil
	}}
}
