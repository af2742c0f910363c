package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Env      string
	HTTPPort string

	DatabaseURL string

	JWTSecret   string
	JWTIssuer   string
	JWTAudience string
	SessionTTL  time.Duration
	OTPTTL      time.Duration

	CookieName         string
	CookieDomain       string
	CookieSecure       bool
	CookieSameSite     string
	CORSAllowedOrigins []string

	AccountLockRedisEnabled bool
	AccountLockTTL          time.Duration
	AccountLockWait         time.Duration
	RedisAddr               string
	RedisPassword           string
	RedisDB                 int
	RedisKeyPrefix          string

	EmailProvider    string
	EmailFrom        string
	EmailSendTimeout time.Duration
	EmailAsync       bool
	SMTPHost         string
	SMTPPort         int
	SMTPUsername     string
	SMTPPassword     string
	SMTPTLS          bool

	ReadinessProbeTimeout        time.Duration
	ServerStartGracePeriod       time.Duration
	ShutdownTimeout              time.Duration
	ShutdownHTTPDrainTimeout     time.Duration
	ShutdownObservabilityTimeout time.Duration

	OTELServiceName           string
	OTELEnvironment           string
	OTELExporterOTLPEndpoint  string
	OTELExporterOTLPInsecure  bool
	OTELMetricsExportInterval time.Duration
	OTELTraceSamplingRatio    float64
	OTELMetricsEnabled        bool
	OTELTracingEnabled        bool
	OTELLogsEnabled           bool
	OTELLogLevel              string
}

func Load() (*Config, error) {
	env := getEnv("APP_ENV", "development")
	production := IsProductionEnv(env)
	defaultSameSite := "strict"
	if production {
		defaultSameSite = "none"
	}
	origins := getEnv("CORS_ALLOWED_ORIGINS", getEnv("CLIENT_URL", "http://localhost:5173"))

	cfg := &Config{
		Env:                     env,
		HTTPPort:                getEnv("HTTP_PORT", "5000"),
		DatabaseURL:             os.Getenv("DATABASE_URL"),
		JWTSecret:               os.Getenv("JWT_SECRET"),
		JWTIssuer:               getEnv("JWT_ISSUER", "otp-auth-service"),
		JWTAudience:             getEnv("JWT_AUDIENCE", "otp-auth-service-api"),
		CookieName:              getEnv("COOKIE_NAME", "token"),
		CookieDomain:            os.Getenv("COOKIE_DOMAIN"),
		CookieSecure:            getEnvBool("COOKIE_SECURE", production),
		CookieSameSite:          strings.ToLower(getEnv("COOKIE_SAMESITE", defaultSameSite)),
		CORSAllowedOrigins:      splitCSV(origins),
		AccountLockRedisEnabled: getEnvBool("ACCOUNT_LOCK_REDIS_ENABLED", false),
		RedisAddr:               getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:           os.Getenv("REDIS_PASSWORD"),
		RedisDB:                 getEnvInt("REDIS_DB", 0),
		RedisKeyPrefix:          getEnv("REDIS_KEY_PREFIX", "otp_auth"),
		EmailProvider:           strings.ToLower(getEnv("EMAIL_PROVIDER", "log")),
		EmailFrom:               getEnv("EMAIL_FROM", "noreply@example.com"),
		EmailAsync:              getEnvBool("EMAIL_ASYNC", true),
		SMTPHost:                getEnv("SMTP_HOST", "localhost"),
		SMTPPort:                getEnvInt("SMTP_PORT", 1025),
		SMTPUsername:            os.Getenv("SMTP_USERNAME"),
		SMTPPassword:            os.Getenv("SMTP_PASSWORD"),
		SMTPTLS:                 getEnvBool("SMTP_TLS", false),

		OTELServiceName:          getEnv("OTEL_SERVICE_NAME", "otp-auth-service"),
		OTELEnvironment:          getEnv("OTEL_ENVIRONMENT", env),
		OTELExporterOTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTELExporterOTLPInsecure: getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		OTELTraceSamplingRatio:   getEnvFloat("OTEL_TRACE_SAMPLING_RATIO", 1.0),
		OTELMetricsEnabled:       getEnvBool("OTEL_METRICS_ENABLED", false),
		OTELTracingEnabled:       getEnvBool("OTEL_TRACING_ENABLED", false),
		OTELLogsEnabled:          getEnvBool("OTEL_LOGS_ENABLED", false),
		OTELLogLevel:             strings.ToLower(getEnv("OTEL_LOG_LEVEL", "info")),
	}

	durations := []struct {
		key string
		def string
		dst *time.Duration
	}{
		{"SESSION_TTL", "168h", &cfg.SessionTTL},
		{"OTP_TTL", "10m", &cfg.OTPTTL},
		{"ACCOUNT_LOCK_TTL", "10s", &cfg.AccountLockTTL},
		{"ACCOUNT_LOCK_WAIT", "3s", &cfg.AccountLockWait},
		{"EMAIL_SEND_TIMEOUT", "10s", &cfg.EmailSendTimeout},
		{"READINESS_PROBE_TIMEOUT", "1s", &cfg.ReadinessProbeTimeout},
		{"SERVER_START_GRACE_PERIOD", "0s", &cfg.ServerStartGracePeriod},
		{"SHUTDOWN_TIMEOUT", "20s", &cfg.ShutdownTimeout},
		{"SHUTDOWN_HTTP_DRAIN_TIMEOUT", "10s", &cfg.ShutdownHTTPDrainTimeout},
		{"SHUTDOWN_OBSERVABILITY_TIMEOUT", "8s", &cfg.ShutdownObservabilityTimeout},
		{"OTEL_METRICS_EXPORT_INTERVAL", "10s", &cfg.OTELMetricsExportInterval},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(getEnv(d.key, d.def))
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", d.key, err)
		}
		*d.dst = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []string
	if c.DatabaseURL == "" {
		errs = append(errs, "DATABASE_URL is required")
	}
	if len(c.JWTSecret) < 32 {
		errs = append(errs, "JWT_SECRET must be at least 32 chars")
	}
	if c.SessionTTL < time.Hour || c.SessionTTL > 30*24*time.Hour {
		errs = append(errs, "SESSION_TTL must be between 1h and 30d")
	}
	if c.OTPTTL < time.Minute || c.OTPTTL > time.Hour {
		errs = append(errs, "OTP_TTL must be between 1m and 1h")
	}
	if strings.TrimSpace(c.CookieName) == "" {
		errs = append(errs, "COOKIE_NAME must not be empty")
	}
	if !isValidSameSite(c.CookieSameSite) {
		errs = append(errs, "COOKIE_SAMESITE must be one of strict, lax, none")
	}
	if c.CookieSameSite == "none" && !c.CookieSecure {
		errs = append(errs, "COOKIE_SAMESITE=none requires COOKIE_SECURE=true")
	}
	if c.AccountLockRedisEnabled && c.RedisAddr == "" {
		errs = append(errs, "REDIS_ADDR is required when ACCOUNT_LOCK_REDIS_ENABLED=true")
	}
	if c.AccountLockTTL <= 0 {
		errs = append(errs, "ACCOUNT_LOCK_TTL must be > 0")
	}
	if c.AccountLockWait <= 0 {
		errs = append(errs, "ACCOUNT_LOCK_WAIT must be > 0")
	}
	switch c.EmailProvider {
	case "log":
	case "smtp":
		if c.SMTPHost == "" {
			errs = append(errs, "SMTP_HOST is required when EMAIL_PROVIDER=smtp")
		}
		if c.SMTPPort <= 0 || c.SMTPPort > 65535 {
			errs = append(errs, "SMTP_PORT must be between 1 and 65535")
		}
	default:
		errs = append(errs, "EMAIL_PROVIDER must be one of log, smtp")
	}
	if c.EmailFrom == "" {
		errs = append(errs, "EMAIL_FROM is required")
	}
	if c.EmailSendTimeout <= 0 {
		errs = append(errs, "EMAIL_SEND_TIMEOUT must be > 0")
	}
	if (c.OTELMetricsEnabled || c.OTELTracingEnabled || c.OTELLogsEnabled) && c.OTELExporterOTLPEndpoint == "" {
		errs = append(errs, "OTEL_EXPORTER_OTLP_ENDPOINT is required when OTel is enabled")
	}
	if c.OTELTraceSamplingRatio < 0 || c.OTELTraceSamplingRatio > 1 {
		errs = append(errs, "OTEL_TRACE_SAMPLING_RATIO must be between 0 and 1")
	}
	if c.OTELMetricsExportInterval <= 0 {
		errs = append(errs, "OTEL_METRICS_EXPORT_INTERVAL must be > 0")
	}
	if !isValidLogLevel(c.OTELLogLevel) {
		errs = append(errs, "OTEL_LOG_LEVEL must be one of debug, info, warn, error")
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) IsProduction() bool { return IsProductionEnv(c.Env) }

func IsProductionEnv(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "production", "prod":
		return true
	default:
		return false
	}
}

func isValidSameSite(v string) bool {
	switch v {
	case "strict", "lax", "none":
		return true
	default:
		return false
	}
}

func isValidLogLevel(v string) bool {
	switch strings.ToLower(v) {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

func getEnv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getEnvFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		trim := strings.TrimSpace(p)
		if trim != "" {
			out = append(out, trim)
		}
	}
	return out
}
