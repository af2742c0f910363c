package observability

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"testing"
)

func captureDefaultLogger(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return buf
}

func TestAuditIncludesRequestFields(t *testing.T) {
	buf := captureDefaultLogger(t)
	req := httptest.NewRequest("POST", "/api/auth/sign-in", nil)
	req.Header.Set("X-Request-Id", "req-test-1")

	Audit(req, "auth.login.success", "user_id", "acct-1")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode audit line: %v", err)
	}
	if rec["event"] != "auth.login.success" || rec["path"] != "/api/auth/sign-in" || rec["request_id"] != "req-test-1" {
		t.Fatalf("unexpected audit record: %v", rec)
	}
	if rec["user_id"] != "acct-1" {
		t.Fatalf("expected user_id attr, got %v", rec["user_id"])
	}
}

func TestAuditDropsSecretAttributes(t *testing.T) {
	buf := captureDefaultLogger(t)
	req := httptest.NewRequest("POST", "/api/auth/verify-email", nil)

	Audit(req, "auth.verify_email.failed", "otp", "123456", "Password", "pw1", "token", "jwt", "reason", "invalid_otp")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode audit line: %v", err)
	}
	for _, k := range []string{"otp", "Password", "token"} {
		if _, ok := rec[k]; ok {
			t.Fatalf("secret attribute %q leaked into audit log", k)
		}
	}
	if rec["reason"] != "invalid_otp" {
		t.Fatalf("expected reason attr kept, got %v", rec["reason"])
	}
}
