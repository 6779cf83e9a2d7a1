package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/order-service/internal/health"
	"github.com/vladislavdragonenkov/order-service/internal/metrics"
)

// RouterConfig содержит зависимости корневого роутера.
type RouterConfig struct {
	Orders  OrderService
	Health  *health.Handler
	Metrics *metrics.HTTPMetrics
	Logger  *log.Entry
}

// NewRouter собирает chi-роутер API: заказы, /health, /readyz, /livez.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = log.WithField("component", "http-api")
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog(logger, cfg.Metrics))
	r.Use(middleware.Recoverer)

	if cfg.Health != nil {
		r.Get("/health", cfg.Health.StatusHandler)
		r.Get("/readyz", cfg.Health.ReadinessHandler)
	}
	r.Get("/livez", health.LivenessHandler)

	orders := NewHandler(cfg.Orders, logger)
	r.Route("/api/v1/orders", orders.Routes)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	return r
}

// accessLog пишет строку лога и метрику на каждый запрос. Маршрут берётся из шаблона chi,
// чтобы id заказов не раздували кардинальность.
func accessLog(logger *log.Entry, m *metrics.HTTPMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}
			duration := time.Since(start)
			m.ObserveRequest(r.Method, route, status, duration)

			entry := logger.WithFields(log.Fields{
				"method":      r.Method,
				"path":        r.URL.Path,
				"route":       route,
				"status":      status,
				"bytes":       ww.BytesWritten(),
				"duration_ms": duration.Milliseconds(),
				"request_id":  middleware.GetReqID(r.Context()),
			})
			if status >= http.StatusInternalServerError {
				entry.Warn("http request")
				return
			}
			entry.Debug("http request")
		})
	}
}
