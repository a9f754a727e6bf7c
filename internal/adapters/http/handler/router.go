package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/ogurasousui/employee-roster/internal/adapters/http/middleware"
	"github.com/ogurasousui/employee-roster/internal/platform/config"
)

// Handlers はルーターに登録するハンドラ群です。
type Handlers struct {
	Employees *EmployeeHandler
	Roster    *RosterHandler
	Health    *HealthHandler
}

// NewRouter は API 全体のルーティングを構築します。
func NewRouter(h Handlers, limits config.RateLimitConfig, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.AccessLog(logger))
	r.Use(middleware.Recovery(logger))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
	})

	r.Get("/healthz", h.Health.Live)
	r.Get("/readyz", h.Health.Ready)

	throttle := throttler(limits)
	r.Route("/employees", func(r chi.Router) {
		r.With(throttle(limits.List)).Get("/", h.Employees.List)
		r.With(throttle(limits.Create)).Post("/", h.Employees.Create)
		r.With(throttle(limits.List)).Get("/departments", h.Employees.Departments)
		r.With(throttle(limits.Export)).Get("/export", h.Roster.Export)
		r.With(throttle(limits.Import)).Post("/import", h.Roster.Import)

		r.Route("/{id}", func(r chi.Router) {
			r.With(throttle(limits.List)).Get("/", h.Employees.Get)
			r.With(throttle(limits.Update)).Patch("/", h.Employees.Update)
			r.With(throttle(limits.Delete)).Delete("/", h.Employees.Delete)
		})
	})

	return r
}

// throttler は操作ごとに独立した IP 単位の 1 分間レート制限を返します。
func throttler(cfg config.RateLimitConfig) func(perMinute int) func(http.Handler) http.Handler {
	return func(perMinute int) func(http.Handler) http.Handler {
		if !cfg.Enabled || perMinute <= 0 {
			return func(next http.Handler) http.Handler { return next }
		}
		return httprate.Limit(perMinute, time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "request was throttled"})
			}),
		)
	}
}
