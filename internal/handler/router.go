package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kushtati/kushtati-immo-api/internal/featureflags"
	"github.com/kushtati/kushtati-immo-api/internal/observability/metrics"
	"github.com/kushtati/kushtati-immo-api/internal/observability/tracing"
	"github.com/kushtati/kushtati-immo-api/internal/security/audit"
	"github.com/kushtati/kushtati-immo-api/internal/security/auth"
	"github.com/kushtati/kushtati-immo-api/internal/security/middleware"
	"github.com/kushtati/kushtati-immo-api/internal/security/ratelimit"
	"github.com/kushtati/kushtati-immo-api/internal/seed"
	"github.com/kushtati/kushtati-immo-api/internal/service"
	"github.com/kushtati/kushtati-immo-api/pkg/config"
)

// Deps is everything the router mounts.
type Deps struct {
	Config *config.Config
	Logger *slog.Logger
	Tokens *auth.TokenManager
	Audit  *audit.Logger

	Auth       *service.AuthService
	Users      *service.UserService
	Properties *service.PropertyService
	Contracts  *service.ContractService
	Payments   *service.PaymentService

	// Seeder and Migrate back the setup routes.
	Seeder  *seed.Seeder
	Migrate func(ctx context.Context) error

	// Uploads serves stored images under Config.UploadPrefix.
	Uploads http.Handler

	// Nil limiters disable the corresponding limit.
	LoginLimiter    ratelimit.Allower
	RegisterLimiter ratelimit.Allower
	APILimiter      ratelimit.Allower

	Checks  map[string]Pinger
	Tracing bool
}

// NewRouter builds the HTTP handler with the full middleware chain:
// request logging, tracing, CORS, authentication, the API rate limit, audit
// and route metrics, in that order from the outside in.
func NewRouter(d Deps) http.Handler {
	log := d.Logger
	if log == nil {
		log = slog.Default()
	}
	if d.Audit == nil {
		d.Audit = audit.NewLogger(log)
	}
	cfg := d.Config
	debug := cfg.IsDevelopment() || featureflags.Enabled(featureflags.DebugErrors)

	authH := NewAuthHandler(d.Auth, log, debug)
	userH := NewUserHandler(d.Users, log, debug)
	propH := NewPropertyHandler(d.Properties, cfg.MaxFileSize, log, debug)
	contractH := NewContractHandler(d.Contracts, log, debug)
	paymentH := NewPaymentHandler(d.Payments, log, debug)
	healthH := NewHealthHandler(d.Checks, log)

	authed := func(h http.HandlerFunc) http.Handler {
		return middleware.RequireAuth(h)
	}
	limited := func(l ratelimit.Allower, name string, h http.HandlerFunc) http.Handler {
		if l == nil {
			return h
		}
		return middleware.RateLimit(l, name, middleware.ByClientIP, log)(h)
	}

	mux := http.NewServeMux()

	mux.Handle("POST /api/auth/register", limited(d.RegisterLimiter, "register", authH.Register))
	mux.Handle("POST /api/auth/login", limited(d.LoginLimiter, "login", authH.Login))
	mux.Handle("GET /api/auth/me", authed(authH.Me))

	mux.HandleFunc("GET /api/properties", propH.List)
	mux.HandleFunc("GET /api/properties/{id}", propH.Get)
	mux.Handle("GET /api/properties/owner/{ownerId}", authed(propH.ListByOwner))
	mux.Handle("POST /api/properties", authed(propH.Create))
	mux.Handle("PUT /api/properties/{id}", authed(propH.Update))
	mux.Handle("DELETE /api/properties/{id}", authed(propH.Delete))

	mux.Handle("GET /api/contracts", authed(contractH.List))
	mux.Handle("POST /api/contracts", authed(contractH.Create))
	mux.Handle("GET /api/contracts/{id}", authed(contractH.Get))
	mux.Handle("PUT /api/contracts/{id}", authed(contractH.Update))
	mux.Handle("DELETE /api/contracts/{id}", authed(contractH.Delete))

	mux.Handle("GET /api/payments", authed(paymentH.List))
	mux.Handle("POST /api/payments", authed(paymentH.Create))
	mux.Handle("GET /api/payments/contract/{id}", authed(paymentH.ListForContract))
	mux.Handle("GET /api/payments/{id}", authed(paymentH.Get))
	mux.Handle("PUT /api/payments/{id}", authed(paymentH.Update))
	mux.Handle("DELETE /api/payments/{id}", authed(paymentH.Delete))

	mux.Handle("GET /api/users", authed(userH.List))
	mux.HandleFunc("GET /api/users/owners/list", userH.Owners)
	mux.Handle("GET /api/users/tenants/list", authed(userH.Tenants))
	mux.Handle("GET /api/users/{id}", authed(userH.Get))
	mux.Handle("PUT /api/users/{id}", authed(userH.Update))
	mux.Handle("DELETE /api/users/{id}", authed(userH.Delete))

	if featureflags.Enabled(featureflags.SetupRoutes) && d.Seeder != nil {
		setupH := NewSetupHandler(d.Migrate, d.Seeder, log, debug)
		mux.HandleFunc("POST /api/setup/init", setupH.Init)
		mux.HandleFunc("POST /api/setup/seed", setupH.Seed)
		log.Warn("setup routes enabled")
	}

	mux.HandleFunc("GET /healthz", healthH.Health)
	mux.HandleFunc("GET /readyz", healthH.Ready)
	mux.Handle("GET /metrics", promhttp.Handler())
	if d.Uploads != nil {
		mux.Handle("GET "+cfg.UploadPrefix, d.Uploads)
	}

	var h http.Handler = metrics.HTTPMetricsMiddleware(mux)
	h = middleware.Audit(d.Audit)(h)
	if d.APILimiter != nil {
		h = apiOnly(middleware.RateLimit(d.APILimiter, "api", middleware.ByPrincipalOrIP, log), h)
	}
	h = middleware.ValidateContentType(log)(h)
	h = middleware.SanitizeInputs(log)(h)
	h = middleware.Authenticate(d.Tokens, log)(h)
	h = middleware.CORS(cfg.CORSAllowedOrigins)(h)
	if d.Tracing {
		h = tracing.Middleware(h)
	}
	h = middleware.RequestLogger(log)(h)
	return middleware.TrustedProxies(cfg.TrustedProxies)(h)
}

// apiOnly applies mw to /api/ requests and lets probes, metrics and static
// files through untouched.
func apiOnly(mw func(http.Handler) http.Handler, next http.Handler) http.Handler {
	wrapped := mw(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			wrapped.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}
