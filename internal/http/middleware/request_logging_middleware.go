package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

const accessLogMessage = "http.request"

// accessSubject is filled in by AuthMiddleware further down the chain so the access line can
// name the session that made the call.
type accessSubject struct {
	accountID string
	source    string
}

type accessSubjectKey struct{}

func noteAccessSubject(ctx context.Context, accountID, source string) {
	if s, ok := ctx.Value(accessSubjectKey{}).(*accessSubject); ok {
		s.accountID, s.source = accountID, source
	}
}

// StructuredRequestLogger writes one access line per request and echoes the request id so a
// client can quote it when reporting a "Server Error". Health probes log at debug.
func StructuredRequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		reqID := chimiddleware.GetReqID(r.Context())
		if reqID != "" {
			w.Header().Set(chimiddleware.RequestIDHeader, reqID)
		}
		subject := &accessSubject{}
		ctx := context.WithValue(r.Context(), accessSubjectKey{}, subject)
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r.WithContext(ctx))

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		attrs := []slog.Attr{
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("route", routePattern(r)),
			slog.Int("status", status),
			slog.Int("bytes", ww.BytesWritten()),
			slog.Float64("duration_ms", float64(time.Since(started).Microseconds())/1000.0),
			slog.String("request_id", reqID),
			slog.String("client_ip", r.RemoteAddr),
			slog.String("user_agent", r.UserAgent()),
		}
		if subject.accountID != "" {
			attrs = append(attrs, slog.String("account_id", subject.accountID), slog.String("auth_source", subject.source))
		}
		slog.LogAttrs(r.Context(), accessLevel(r.URL.Path, status), accessLogMessage, attrs...)
	})
}

func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		return rc.RoutePattern()
	}
	return ""
}

func accessLevel(path string, status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	case strings.HasPrefix(path, "/health/"):
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}
