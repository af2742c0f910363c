package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/sandeepkv93/otp-auth-service/internal/http/response"
	"github.com/sandeepkv93/otp-auth-service/internal/observability"
	"github.com/sandeepkv93/otp-auth-service/internal/security"
	"github.com/sandeepkv93/otp-auth-service/internal/service"
)

type contextKey string

const (
	AccountIDContextKey contextKey = "account_id"
)

// TokenExtractor pulls a raw session token from one transport. An empty string means the
// transport carried nothing.
type TokenExtractor interface {
	Source() string
	Extract(r *http.Request) string
}

type CookieExtractor struct{ Name string }

func (e CookieExtractor) Source() string { return "cookie" }

func (e CookieExtractor) Extract(r *http.Request) string {
	return security.GetCookie(r, e.Name)
}

type BearerExtractor struct{}

func (BearerExtractor) Source() string { return "bearer" }

func (BearerExtractor) Extract(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

// DefaultExtractors checks the session cookie first and the Authorization header second.
func DefaultExtractors(cookieName string) []TokenExtractor {
	return []TokenExtractor{CookieExtractor{Name: cookieName}, BearerExtractor{}}
}

type TokenValidator interface {
	Validate(ctx context.Context, raw, source string) (string, error)
}

func AuthMiddleware(tokens TokenValidator, extractors []TokenExtractor) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, source := "", ""
			for _, ex := range extractors {
				if raw = ex.Extract(r); raw != "" {
					source = ex.Source()
					break
				}
			}
			if raw == "" {
				observability.RecordSessionTokenValidation(r.Context(), "missing", "none")
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", service.MsgNoToken, nil)
				return
			}
			accountID, err := tokens.Validate(r.Context(), raw, source)
			if err != nil {
				if errors.Is(err, security.ErrTokenExpired) {
					observability.Audit(r, "auth.session.rejected", "reason", "expired", "source", source)
					response.Error(w, r, http.StatusUnauthorized, "TOKEN_EXPIRED", service.MsgTokenExpired, nil)
					return
				}
				observability.Audit(r, "auth.session.rejected", "reason", "invalid", "source", source)
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", service.MsgTokenInvalid, nil)
				return
			}
			noteAccessSubject(r.Context(), accountID, source)
			ctx := context.WithValue(r.Context(), AccountIDContextKey, accountID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func AccountIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(AccountIDContextKey).(string)
	return id, ok && id != ""
}
