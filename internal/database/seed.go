package database

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sandeepkv93/otp-auth-service/internal/domain"
	"github.com/sandeepkv93/otp-auth-service/internal/observability"

	"gorm.io/gorm"
)

type DevAccount struct {
	Username     string
	Email        string
	PasswordHash string
	Verified     bool
}

type SeedReport struct {
	Created bool   `json:"created"`
	ID      string `json:"id"`
	Email   string `json:"email"`
}

// SeedDevAccount creates the account if no account owns the email yet. An existing account is
// left untouched.
func SeedDevAccount(ctx context.Context, db *gorm.DB, in DevAccount) (*SeedReport, error) {
	start := time.Now()
	defer func() {
		observability.RecordDatabaseStartupDuration(ctx, "seed", time.Since(start))
	}()
	if strings.TrimSpace(in.Email) == "" || in.PasswordHash == "" {
		observability.RecordDatabaseStartupEvent(ctx, "seed", "error")
		return nil, errors.New("seed account requires email and password hash")
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	account := domain.Account{
		Username:          in.Username,
		Email:             email,
		PasswordHash:      in.PasswordHash,
		IsAccountVerified: in.Verified,
	}
	res := db.WithContext(ctx).Where("email = ?", email).FirstOrCreate(&account)
	if res.Error != nil {
		observability.RecordDatabaseStartupEvent(ctx, "seed", "error")
		return nil, res.Error
	}
	observability.RecordDatabaseStartupEvent(ctx, "seed", "success")
	return &SeedReport{Created: res.RowsAffected > 0, ID: account.ID, Email: account.Email}, nil
}
