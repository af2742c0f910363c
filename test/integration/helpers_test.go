package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sandeepkv93/otp-auth-service/internal/config"
	"github.com/sandeepkv93/otp-auth-service/internal/database"
	"github.com/sandeepkv93/otp-auth-service/internal/domain"
	"github.com/sandeepkv93/otp-auth-service/internal/health"
	"github.com/sandeepkv93/otp-auth-service/internal/http/handler"
	"github.com/sandeepkv93/otp-auth-service/internal/http/middleware"
	"github.com/sandeepkv93/otp-auth-service/internal/http/router"
	"github.com/sandeepkv93/otp-auth-service/internal/repository"
	"github.com/sandeepkv93/otp-auth-service/internal/security"
	"github.com/sandeepkv93/otp-auth-service/internal/service"
)

const (
	testJWTSecret   = "abcdefghijklmnopqrstuvwxyz123456"
	testJWTIssuer   = "otp-auth-service"
	testJWTAudience = "otp-auth-service-api"
	testSessionTTL  = time.Hour
)

type apiEnvelope struct {
	Success  bool                  `json:"success"`
	Message  string                `json:"message"`
	Code     string                `json:"code"`
	Token    string                `json:"token"`
	User     *domain.PublicAccount `json:"user"`
	UserData *domain.AccountData   `json:"userData"`
}

// captureMailer keeps every message so tests can read OTPs out of the email body.
type captureMailer struct {
	mu   sync.Mutex
	sent []service.EmailMessage
}

func (m *captureMailer) Send(_ context.Context, msg service.EmailMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *captureMailer) count(kind service.EmailKind) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, msg := range m.sent {
		if msg.Kind == kind {
			n++
		}
	}
	return n
}

func (m *captureMailer) lastCode(t *testing.T, kind service.EmailKind) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.sent) - 1; i >= 0; i-- {
		if m.sent[i].Kind != kind {
			continue
		}
		body := m.sent[i].Body
		code := strings.TrimSpace(body[strings.LastIndex(body, ": ")+2:])
		if !security.IsSixDigitCode(code) {
			t.Fatalf("no otp in %s email body %q", kind, body)
		}
		return code
	}
	t.Fatalf("no %s email sent", kind)
	return ""
}

type testServer struct {
	baseURL string
	client  *http.Client
	db      *gorm.DB
	mailer  *captureMailer
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db := newTestDB(t)

	cfg := &config.Config{
		OTPTTL:                10 * time.Minute,
		SessionTTL:            testSessionTTL,
		AccountLockWait:       3 * time.Second,
		EmailSendTimeout:      5 * time.Second,
		ReadinessProbeTimeout: time.Second,
	}
	mailer := &captureMailer{}
	dispatcher := service.NewEmailDispatcher(mailer, slog.Default(), cfg.EmailSendTimeout, false)
	t.Cleanup(func() { _ = dispatcher.Close(context.Background()) })

	accountRepo := repository.NewAccountRepository(db)
	tokenSvc := service.NewTokenService(security.NewJWTManager(testJWTSecret, testJWTIssuer, testJWTAudience, cfg.SessionTTL))
	authSvc := service.NewAuthService(cfg, accountRepo, tokenSvc, service.NewInMemoryAccountLocker(cfg.AccountLockWait), dispatcher)
	userSvc := service.NewUserService(accountRepo)
	cookieMgr := security.NewCookieManager("token", "", false, "lax")

	r := router.NewRouter(router.Dependencies{
		AuthHandler:     handler.NewAuthHandler(authSvc, cookieMgr, cfg.SessionTTL),
		UserHandler:     handler.NewUserHandler(userSvc),
		TokenValidator:  tokenSvc,
		TokenExtractors: middleware.DefaultExtractors("token"),
		CORSOrigins:     []string{"http://localhost:5173"},
		Readiness:       health.NewProbeRunner(cfg.ReadinessProbeTimeout, 0, health.NewDBChecker(db)),
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &testServer{baseURL: srv.URL, client: newSessionClient(t, srv), db: db, mailer: mailer}
}

func newSessionClient(t *testing.T, srv *httptest.Server) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	client := srv.Client()
	client.Jar = jar
	return client
}

// signedToken issues a session token as of the given time, with the server's signing key.
func signedToken(t *testing.T, accountID string, issuedAt time.Time) string {
	t.Helper()
	mgr := security.NewJWTManager(testJWTSecret, testJWTIssuer, testJWTAudience, testSessionTTL).
		WithClock(func() time.Time { return issuedAt })
	token, _, err := mgr.Sign(accountID)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func (s *testServer) register(t *testing.T, username, email, password string) apiEnvelope {
	t.Helper()
	resp, env := doJSON(t, s.client, http.MethodPost, s.baseURL+"/api/auth/sign-up", map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	}, nil)
	if resp.StatusCode != http.StatusCreated || !env.Success || env.Token == "" || env.User == nil {
		t.Fatalf("register failed: status=%d env=%+v", resp.StatusCode, env)
	}
	return env
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, apiEnvelope) {
	t.Helper()
	resp, raw := doRawText(t, client, method, url, body, headers)
	var env apiEnvelope
	if len(raw) > 0 {
		if err := json.Unmarshal([]byte(raw), &env); err != nil {
			t.Fatalf("decode %s %s response %q: %v", method, url, raw, err)
		}
	}
	return resp, env
}

func doRawText(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, string) {
	t.Helper()
	var payload io.Reader = http.NoBody
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		payload = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, payload)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, string(raw)
}

func findCookie(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
