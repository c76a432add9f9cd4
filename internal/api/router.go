// Package api exposes the record service over HTTP.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ponytojas/go-timescale-records/config"
	"github.com/ponytojas/go-timescale-records/internal/metrics"
	"github.com/ponytojas/go-timescale-records/internal/models"
)

// RecordService is what the handlers need from records.Service
type RecordService interface {
	ListRecords(ctx context.Context) ([]models.Record, error)
	TemperatureStatistics(ctx context.Context, window time.Duration) (models.StatisticsReport, error)
	GasLevelSeries(ctx context.Context) ([]models.GasLevelPoint, error)
}

// NewRouter wires the record routes, /metrics and /healthz
func NewRouter(svc RecordService, cfg config.HTTPConfig, logger *slog.Logger, m *metrics.Metrics) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &handlers{svc: svc, logger: logger}

	origins := cfg.CORSAllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(instrument(m))

	r.NotFound(notFound)
	r.Get("/healthz", h.health)
	r.Method(http.MethodGet, "/metrics", m.Handler())

	r.Route("/api/records", func(r chi.Router) {
		r.Get("/", h.listRecords)
		r.Get("/temperature-statistics", h.temperatureStatistics)
		r.Get("/gas-levels", h.gasLevels)
	})

	return r
}

// instrument records request counts and latency by route pattern
func instrument(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}
			code := ww.Status()
			if code == 0 {
				code = http.StatusOK
			}
			m.ObserveRequest(route, code, time.Since(start))
		})
	}
}

func notFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write([]byte("<h1>Not found</h1>"))
}
