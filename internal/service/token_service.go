package service

import (
	"context"
	"errors"
	"time"

	"github.com/sandeepkv93/otp-auth-service/internal/observability"
	"github.com/sandeepkv93/otp-auth-service/internal/security"
)

type TokenService struct {
	jwtMgr *security.JWTManager
}

func NewTokenService(jwtMgr *security.JWTManager) *TokenService {
	return &TokenService{jwtMgr: jwtMgr}
}

func (s *TokenService) Issue(accountID string) (string, time.Time, error) {
	return s.jwtMgr.Sign(accountID)
}

// Validate parses a raw session token and returns the account id it is bound to. source names
// the transport the token came from (cookie or bearer) for metrics.
func (s *TokenService) Validate(ctx context.Context, raw, source string) (string, error) {
	claims, err := s.jwtMgr.Parse(raw)
	switch {
	case err == nil:
		observability.RecordSessionTokenValidation(ctx, "valid", source)
		return claims.UserID, nil
	case errors.Is(err, security.ErrTokenExpired):
		observability.RecordSessionTokenValidation(ctx, "expired", source)
	default:
		observability.RecordSessionTokenValidation(ctx, "invalid", source)
	}
	return "", err
}
