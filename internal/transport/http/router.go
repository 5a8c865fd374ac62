// Package httptransport assembles the HTTP API. Handlers stay thin and
// delegate to the domain services; middleware handles correlation, auth,
// deadlines, and metrics.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bazaar/internal/platform/metrics"
	"bazaar/internal/platform/middleware"
)

// RouterConfig bundles what the router needs beyond the domain handlers.
type RouterConfig struct {
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
	JWTValidator   middleware.JWTValidator
	RequestTimeout time.Duration
}

// NewRouter wires all endpoints. Reads are public; mutations require a
// bearer token; admin endpoints additionally rely on the services checking
// the caller against the factory admin.
func NewRouter(users *UserHandler, vendors *VendorHandler, cfg RouterConfig) http.Handler {
	timeout := cfg.RequestTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Timeout(timeout))
	r.Use(middleware.Latency(cfg.Metrics))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(public chi.Router) {
		users.RegisterPublic(public)
		vendors.RegisterPublic(public)
	})

	r.Group(func(authed chi.Router) {
		authed.Use(middleware.ContentTypeJSON)
		authed.Use(middleware.RequireAuth(cfg.JWTValidator, cfg.Logger))
		users.RegisterAuthed(authed)
		vendors.RegisterAuthed(authed)
		users.RegisterAdmin(authed)
		vendors.RegisterAdmin(authed)
	})

	return r
}
