package observability

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/trace"
)

// secretKeys never reach a log sink with their value.
var secretKeys = map[string]struct{}{
	"password":      {},
	"new_password":  {},
	"newpassword":   {},
	"otp":           {},
	"token":         {},
	"jwt_secret":    {},
	"smtp_password": {},
}

// Audit writes one structured security event. Attributes whose key names a secret are dropped.
func Audit(r *http.Request, event string, attrs ...any) {
	msg := "audit"
	sc := trace.SpanContextFromContext(r.Context())
	if sc.IsValid() {
		msg = fmt.Sprintf("audit trace_id=%s span_id=%s", sc.TraceID().String(), sc.SpanID().String())
	}
	base := []any{
		"event", event,
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", requestID(r),
	}
	base = append(base, redactAuditAttrs(attrs)...)
	slog.InfoContext(r.Context(), msg, base...)
}

func redactAuditAttrs(attrs []any) []any {
	out := make([]any, 0, len(attrs))
	for i := 0; i+1 < len(attrs); i += 2 {
		key, ok := attrs[i].(string)
		if ok {
			if _, secret := secretKeys[strings.ToLower(key)]; secret {
				continue
			}
		}
		out = append(out, attrs[i], attrs[i+1])
	}
	return out
}

func requestID(r *http.Request) string {
	if id := chimiddleware.GetReqID(r.Context()); id != "" {
		return id
	}
	return r.Header.Get(chimiddleware.RequestIDHeader)
}
