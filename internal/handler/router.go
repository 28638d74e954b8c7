package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/boddenberg/categorizer-go/internal/domain"
	"github.com/boddenberg/categorizer-go/internal/infra/observability"
	"github.com/boddenberg/categorizer-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

const (
	defaultBatchMaxItems = 100
	maxBodyBytes         = 1 << 20
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services groups what the router exposes. Nil services leave their routes out.
type Services struct {
	Categorizer *service.Categorizer
	Batch       *service.Batch
	Feedback    *service.Feedback
	Analytics   *service.Analytics

	// Memory is checked by /healthz when set.
	Memory Pinger
	// AIEnabled is reported by /healthz.
	AIEnabled bool

	BatchMaxItems int
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(svcs Services, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	if svcs.BatchMaxItems <= 0 {
		svcs.BatchMaxItems = defaultBatchMaxItems
	}

	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(svcs, logger))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		r.Use(MaxBodyBytes(maxBodyBytes))

		r.Get("/metrics/categorizer", categorizerMetricsHandler(metrics))

		r.Group(func(r chi.Router) {
			r.Use(RequireJSON)

			if svcs.Categorizer != nil {
				r.Post("/categorize", categorizeHandler(svcs.Categorizer, logger))
			}
			if svcs.Batch != nil {
				r.Post("/categorize/batch", categorizeBatchHandler(svcs.Batch, svcs.BatchMaxItems, logger))
			}
			if svcs.Feedback != nil {
				r.Post("/feedback", feedbackHandler(svcs.Feedback, logger))
			}
			if svcs.Analytics != nil {
				r.Post("/analytics/anomalies", anomaliesHandler(svcs.Analytics, logger))
				r.Post("/analytics/summary", summaryHandler(svcs.Analytics, logger))
				r.Post("/analytics/patterns", patternsHandler(svcs.Analytics, logger))
			}
		})
	})

	return r
}

// ============================================================
// Operational
// ============================================================

func healthzHandler(svcs Services, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		services := []domain.ServiceHealth{
			{Name: "categorizer-api", Status: "healthy"},
		}

		if svcs.Memory != nil {
			status, detail := "healthy", ""
			if err := svcs.Memory.Ping(ctx); err != nil {
				logger.Warn("memory store health check failed", zap.Error(err))
				status, detail = "unhealthy", err.Error()
			}
			services = append(services, domain.ServiceHealth{Name: "memory", Status: status, Detail: detail})
		}

		llm := domain.ServiceHealth{Name: "llm", Status: "healthy"}
		if !svcs.AIEnabled {
			llm.Detail = "disabled"
		}
		services = append(services, llm)

		overallStatus := "healthy"
		for _, s := range services {
			if s.Status != "healthy" {
				// Rules and heuristics still answer without the memory store.
				overallStatus = "degraded"
			}
		}

		writeJSON(w, http.StatusOK, domain.HealthStatus{
			Status:   overallStatus,
			Services: services,
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func categorizerMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.Snapshot())
	}
}
