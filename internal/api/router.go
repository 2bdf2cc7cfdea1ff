package api

import (
	"net/http"
	"sort"
	"strings"

	"github.com/amu-events/server/internal/api/handlers"
	"github.com/amu-events/server/internal/api/middleware"
	"github.com/amu-events/server/internal/audit"
	"github.com/amu-events/server/internal/auth"
	"github.com/amu-events/server/internal/config"
	"github.com/amu-events/server/internal/domain/events"
	"github.com/amu-events/server/internal/domain/registrations"
	"github.com/amu-events/server/internal/domain/users"
	"github.com/amu-events/server/internal/email"
	"github.com/amu-events/server/internal/metrics"
	"github.com/amu-events/server/internal/storage/postgres"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// NewRouter wires repositories, services and handlers and returns the full
// HTTP handler with the middleware stack applied.
func NewRouter(cfg config.Config, logger zerolog.Logger, pool *pgxpool.Pool, version string) (http.Handler, error) {
	userRepo := postgres.NewUserRepository(pool)
	eventRepo := postgres.NewEventRepository(pool)
	registrationRepo := postgres.NewRegistrationRepository(pool)

	mailer, err := email.NewService(cfg.Email, cfg.Server.FrontendURL, logger)
	if err != nil {
		return nil, err
	}

	jwtManager := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiry, cfg.Server.BaseURL)
	auditLogger := audit.NewLogger(logger)

	userService := users.NewService(userRepo, mailer, jwtManager, cfg.Auth.VerificationExpiry, logger)
	userAdminService := users.NewAdminService(userRepo, auditLogger)
	eventService := events.NewService(eventRepo, userRepo, mailer, auditLogger, logger)
	registrationService := registrations.NewService(registrationRepo, mailer, logger)

	authHandler := handlers.NewAuthHandler(userService, cfg.Environment)
	eventsHandler := handlers.NewEventsHandler(eventService, registrationService, cfg.Environment)
	adminHandler := handlers.NewAdminHandler(userAdminService, eventService, registrationService, cfg.Environment)
	healthChecker := handlers.NewHealthChecker(pool, version)

	// One limiter store shared by every route; the tier wrapper must sit
	// outside the limiter so the tier is in the context before the limiter
	// picks a bucket.
	limit := middleware.RateLimit(cfg.RateLimit)
	authed := middleware.JWTAuth(jwtManager, cfg.Environment)
	admin := middleware.RequireAdmin(cfg.Environment)
	authTier := middleware.WithRateLimitTierHandler(middleware.TierAuth)
	loginTier := middleware.WithRateLimitTierHandler(middleware.TierLogin)

	public := func(h http.HandlerFunc) http.Handler {
		return limit(h)
	}
	user := func(h http.HandlerFunc) http.Handler {
		return authTier(limit(authed(h)))
	}
	adminOnly := func(h http.HandlerFunc) http.Handler {
		return authTier(limit(authed(admin(h))))
	}

	mux := http.NewServeMux()
	mux.Handle("/health", http.HandlerFunc(healthChecker.Health))
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	mux.Handle("/api/auth/register", methodMux(map[string]http.Handler{
		http.MethodPost: public(authHandler.Register),
	}))
	mux.Handle("/api/auth/verify-email/{token}", methodMux(map[string]http.Handler{
		http.MethodGet: public(authHandler.VerifyEmail),
	}))
	mux.Handle("/api/auth/resend-verification", methodMux(map[string]http.Handler{
		http.MethodPost: public(authHandler.ResendVerification),
	}))
	mux.Handle("/api/auth/login", methodMux(map[string]http.Handler{
		http.MethodPost: loginTier(limit(http.HandlerFunc(authHandler.Login))),
	}))
	mux.Handle("/api/auth/profile", methodMux(map[string]http.Handler{
		http.MethodGet: user(authHandler.Profile),
	}))

	mux.Handle("/api/events", methodMux(map[string]http.Handler{
		http.MethodGet:  public(eventsHandler.List),
		http.MethodPost: user(eventsHandler.Create),
	}))
	mux.Handle("/api/events/{id}", methodMux(map[string]http.Handler{
		http.MethodGet: public(eventsHandler.Get),
		http.MethodPut: user(eventsHandler.Update),
	}))
	mux.Handle("/api/events/{id}/register", methodMux(map[string]http.Handler{
		http.MethodPost: user(eventsHandler.Register),
	}))
	mux.Handle("/api/events/{id}/unregister", methodMux(map[string]http.Handler{
		http.MethodPost: user(eventsHandler.Unregister),
	}))

	mux.Handle("/api/admin/users", methodMux(map[string]http.Handler{
		http.MethodGet: adminOnly(adminHandler.ListUsers),
	}))
	mux.Handle("/api/admin/registrations", methodMux(map[string]http.Handler{
		http.MethodGet: adminOnly(adminHandler.ListRegistrations),
	}))
	mux.Handle("/api/admin/events/{id}", methodMux(map[string]http.Handler{
		http.MethodDelete: adminOnly(adminHandler.DeleteEvent),
	}))
	mux.Handle("/api/admin/users/{id}", methodMux(map[string]http.Handler{
		http.MethodDelete: adminOnly(adminHandler.DeleteUser),
	}))
	mux.Handle("/api/admin/users/{id}/block", methodMux(map[string]http.Handler{
		http.MethodPut: adminOnly(adminHandler.ToggleBlock),
	}))
	mux.Handle("/api/admin/users/{id}/role", methodMux(map[string]http.Handler{
		http.MethodPut: adminOnly(adminHandler.ChangeRole),
	}))

	var handler http.Handler = mux
	handler = middleware.Metrics(handler)
	handler = middleware.CORS([]string{cfg.Server.FrontendURL}, cfg.Environment, logger)(handler)
	handler = middleware.RequestLogging(logger)(handler)
	handler = middleware.CorrelationID(logger)(handler)
	return handler, nil
}

func methodMux(routes map[string]http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if handler, ok := routes[r.Method]; ok {
			handler.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Allow", allowedMethods(routes))
		w.WriteHeader(http.StatusMethodNotAllowed)
	})
}

func allowedMethods(routes map[string]http.Handler) string {
	methods := make([]string, 0, len(routes))
	for method := range routes {
		methods = append(methods, method)
	}
	sort.Strings(methods)
	return strings.Join(methods, ", ")
}
