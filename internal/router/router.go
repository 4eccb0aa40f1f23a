package router

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-task-tracker/internal/auth"
	"github.com/ovaphlow/pitchfork/service-task-tracker/internal/identity"
	"github.com/ovaphlow/pitchfork/service-task-tracker/internal/task"
	"github.com/ovaphlow/pitchfork/service-task-tracker/pkg/utilities"
)

// Deps are the services the HTTP surface is built from.
type Deps struct {
	DB         *sqlx.DB
	Auth       *auth.Service
	Identities *identity.Service
	Tasks      *task.Service
	// Registry receives the HTTP and auth metrics; nil creates a fresh one.
	Registry *prometheus.Registry
	// CORSOrigin is sent as Access-Control-Allow-Origin; empty disables CORS.
	CORSOrigin string
}

// CORSOriginFromEnv reads CORS_ALLOWED_ORIGIN, defaulting to "*".
func CORSOriginFromEnv() string {
	if v, ok := os.LookupEnv("CORS_ALLOWED_ORIGIN"); ok {
		return v
	}
	return "*"
}

// RegisterRoutes mounts HTTP handlers using the standard library's http.ServeMux.
func RegisterRoutes(logger *zap.SugaredLogger, deps Deps) http.Handler {
	reg := deps.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	authMetrics := auth.NewMetrics(reg)
	httpMetrics := NewHTTPMetrics(reg)

	gate := auth.NewGate(deps.Auth, logger, authMetrics)
	authHandler := auth.NewHandler(deps.Auth, logger, authMetrics)
	identityHandler := identity.NewHandler(deps.Identities, auth.CallerID, logger)
	taskHandler := task.NewHandler(deps.Tasks, logger)

	mux := newRouteTable()

	// health
	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := deps.DB.PingContext(ctx); err != nil {
			logger.Warnw("health check failed", "err", err)
			utilities.WriteMessage(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		utilities.WriteMessage(w, http.StatusOK, "ok")
	})
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	// auth and directory
	mux.HandleFunc("POST /api/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.Handle("POST /api/auth/logout", gate.RequireFunc(authHandler.Logout))
	mux.Handle("GET /api/auth/me", gate.RequireFunc(authHandler.Me))
	mux.HandleFunc("GET /api/auth/managers", identityHandler.Managers)
	mux.HandleFunc("GET /api/auth/users/{id}", identityHandler.User)
	mux.Handle("GET /api/auth/subordinates", gate.RequireFunc(identityHandler.Subordinates))

	// tasks
	mux.Handle("GET /api/tasks", gate.RequireFunc(taskHandler.List))
	mux.Handle("POST /api/tasks", gate.RequireFunc(taskHandler.Create))
	mux.Handle("PUT /api/tasks/{id}", gate.RequireFunc(taskHandler.Update))

	var handler http.Handler = mux.ServeMux
	handler = SecurityHeadersMiddleware()(handler)
	handler = CORSMiddleware(deps.CORSOrigin)(handler)
	handler = httpMetrics.Middleware(handler, mux.Route)
	handler = LoggingMiddleware(logger)(handler)
	handler = RequestIDMiddleware()(handler)
	return handler
}
