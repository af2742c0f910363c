package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/sandeepkv93/otp-auth-service/internal/health"
	"github.com/sandeepkv93/otp-auth-service/internal/http/handler"
	"github.com/sandeepkv93/otp-auth-service/internal/http/middleware"
	"github.com/sandeepkv93/otp-auth-service/internal/http/response"
)

type Dependencies struct {
	AuthHandler     *handler.AuthHandler
	UserHandler     *handler.UserHandler
	TokenValidator  middleware.TokenValidator
	TokenExtractors []middleware.TokenExtractor
	CORSOrigins     []string
	Readiness       *health.ProbeRunner
	EnableOTelHTTP  bool
}

const maxBodyBytes = 1 << 20

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.StructuredRequestLogger)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(dep.CORSOrigins))
	r.Use(middleware.BodyLimit(maxBodyBytes))

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, "ok", map[string]any{"status": "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		ready, results := dep.Readiness.Ready(r.Context())
		if results == nil {
			results = []health.CheckResult{}
		}
		if ready {
			response.JSON(w, r, http.StatusOK, "ready", map[string]any{"status": "ready", "checks": results})
			return
		}
		w.Header().Set("Retry-After", "5")
		response.Error(w, r, http.StatusServiceUnavailable, "DEPENDENCY_UNREADY", "dependencies are not ready", map[string]any{"status": "unready", "checks": results})
	})

	requireSession := middleware.AuthMiddleware(dep.TokenValidator, dep.TokenExtractors)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/sign-up", dep.AuthHandler.SignUp)
			r.Post("/sign-in", dep.AuthHandler.SignIn)
			r.Post("/sign-out", dep.AuthHandler.SignOut)
			r.Post("/send-reset-otp", dep.AuthHandler.SendResetOTP)
			r.Post("/reset-password", dep.AuthHandler.ResetPassword)
			r.Group(func(r chi.Router) {
				r.Use(requireSession)
				r.Post("/send-verify-otp", dep.AuthHandler.SendVerifyOTP)
				r.Post("/verify-email", dep.AuthHandler.VerifyEmail)
				r.Get("/is-auth", dep.AuthHandler.IsAuth)
			})
		})
		r.With(requireSession).Get("/user/data", dep.UserHandler.Data)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	})

	var h http.Handler = r
	if dep.EnableOTelHTTP {
		h = otelhttp.NewHandler(r, "http.server")
	}
	return h
}
