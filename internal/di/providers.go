package di

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/sandeepkv93/otp-auth-service/internal/app"
	"github.com/sandeepkv93/otp-auth-service/internal/config"
	"github.com/sandeepkv93/otp-auth-service/internal/database"
	"github.com/sandeepkv93/otp-auth-service/internal/health"
	"github.com/sandeepkv93/otp-auth-service/internal/http/handler"
	"github.com/sandeepkv93/otp-auth-service/internal/http/middleware"
	"github.com/sandeepkv93/otp-auth-service/internal/http/router"
	"github.com/sandeepkv93/otp-auth-service/internal/observability"
	"github.com/sandeepkv93/otp-auth-service/internal/repository"
	"github.com/sandeepkv93/otp-auth-service/internal/security"
	"github.com/sandeepkv93/otp-auth-service/internal/service"
)

var ConfigSet = wire.NewSet(config.Load)

var ObservabilitySet = wire.NewSet(
	provideObservabilityRuntime,
	provideAppLogger,
)

var RuntimeInfraSet = wire.NewSet(
	provideRuntimeDB,
	provideRedisClient,
	provideReadinessProbeRunner,
)

var RepositorySet = wire.NewSet(
	repository.NewAccountRepository,
)

var SecuritySet = wire.NewSet(
	provideJWTManager,
	provideCookieManager,
)

var ServiceSet = wire.NewSet(
	service.NewTokenService,
	provideEmailSender,
	provideEmailDispatcher,
	provideAccountLocker,
	service.NewAuthService,
	service.NewUserService,
	wire.Bind(new(service.AuthServiceInterface), new(*service.AuthService)),
	wire.Bind(new(service.UserServiceInterface), new(*service.UserService)),
	wire.Bind(new(middleware.TokenValidator), new(*service.TokenService)),
)

var HTTPSet = wire.NewSet(
	provideAuthHandler,
	handler.NewUserHandler,
	provideRouterDependencies,
	router.NewRouter,
	provideHTTPServer,
)

var AppSet = wire.NewSet(provideApp)

// MigrationRunner owns a database handle opened without migrating, for the operator CLI.
type MigrationRunner struct {
	cfg *config.Config
	db  *gorm.DB
}

func NewMigrationRunner(cfg *config.Config, db *gorm.DB) *MigrationRunner {
	return &MigrationRunner{cfg: cfg, db: db}
}

func (m *MigrationRunner) DB() *gorm.DB { return m.db }

func (m *MigrationRunner) Run() ([]string, error) {
	if err := database.Migrate(m.db); err != nil {
		return nil, err
	}
	return []string{"schema migration applied", "database: connected", "service: " + m.cfg.OTELServiceName}, nil
}

func (m *MigrationRunner) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func provideObservabilityRuntime(cfg *config.Config) (*observability.Runtime, error) {
	bootstrapLogger := observability.NewBootstrapLogger(cfg)
	return observability.InitRuntime(context.Background(), cfg, bootstrapLogger)
}

func provideAppLogger(cfg *config.Config, runtime *observability.Runtime) *slog.Logger {
	return observability.InitLogger(cfg, runtime.LoggerProvider)
}

func provideOpenDB(cfg *config.Config) (*gorm.DB, error) {
	return database.Open(cfg)
}

func provideRuntimeDB(cfg *config.Config) (*gorm.DB, error) {
	db, err := database.Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// provideRedisClient returns nil unless Redis-backed account locks are enabled.
func provideRedisClient(cfg *config.Config, logger *slog.Logger) redis.UniversalClient {
	if !cfg.AccountLockRedisEnabled {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	observability.InstrumentRedisClient(client, logger)
	return client
}

func provideJWTManager(cfg *config.Config) *security.JWTManager {
	return security.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.SessionTTL)
}

func provideCookieManager(cfg *config.Config) *security.CookieManager {
	return security.NewCookieManager(cfg.CookieName, cfg.CookieDomain, cfg.CookieSecure, cfg.CookieSameSite)
}

func provideEmailSender(cfg *config.Config, logger *slog.Logger) (service.EmailSender, error) {
	return service.NewConfiguredEmailSender(cfg, logger)
}

func provideEmailDispatcher(cfg *config.Config, sender service.EmailSender, logger *slog.Logger) *service.EmailDispatcher {
	return service.NewEmailDispatcher(sender, logger, cfg.EmailSendTimeout, cfg.EmailAsync)
}

func provideAccountLocker(cfg *config.Config, redisClient redis.UniversalClient, logger *slog.Logger) service.AccountLocker {
	if cfg.AccountLockRedisEnabled && redisClient != nil {
		return service.NewRedisAccountLocker(redisClient, cfg.RedisKeyPrefix, cfg.AccountLockTTL, cfg.AccountLockWait, logger)
	}
	return service.NewInMemoryAccountLocker(cfg.AccountLockWait)
}

func provideAuthHandler(authSvc service.AuthServiceInterface, cookieMgr *security.CookieManager, cfg *config.Config) *handler.AuthHandler {
	return handler.NewAuthHandler(authSvc, cookieMgr, cfg.SessionTTL)
}

func provideRouterDependencies(
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
	tokens middleware.TokenValidator,
	readiness *health.ProbeRunner,
	cfg *config.Config,
) router.Dependencies {
	return router.Dependencies{
		AuthHandler:     authHandler,
		UserHandler:     userHandler,
		TokenValidator:  tokens,
		TokenExtractors: middleware.DefaultExtractors(cfg.CookieName),
		CORSOrigins:     cfg.CORSAllowedOrigins,
		Readiness:       readiness,
		EnableOTelHTTP:  cfg.OTELMetricsEnabled || cfg.OTELTracingEnabled,
	}
}

func provideHTTPServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           h,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func provideReadinessProbeRunner(cfg *config.Config, db *gorm.DB, redisClient redis.UniversalClient) *health.ProbeRunner {
	checkers := make([]health.Checker, 0, 2)
	checkers = append(checkers, health.NewDBChecker(db))
	if cfg.AccountLockRedisEnabled && redisClient != nil {
		checkers = append(checkers, health.NewRedisChecker(redisClient))
	}
	return health.NewProbeRunner(cfg.ReadinessProbeTimeout, cfg.ServerStartGracePeriod, checkers...)
}

func provideApp(
	cfg *config.Config,
	logger *slog.Logger,
	server *http.Server,
	runtime *observability.Runtime,
	db *gorm.DB,
	redisClient redis.UniversalClient,
	mailer *service.EmailDispatcher,
) *app.App {
	return app.New(cfg, logger, server, runtime, db, redisClient, mailer)
}
