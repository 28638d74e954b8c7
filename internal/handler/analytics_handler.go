package handler

import (
	"net/http"

	"github.com/boddenberg/categorizer-go/internal/domain"
	"github.com/boddenberg/categorizer-go/internal/service"

	"go.uber.org/zap"
)

// ============================================================
// Analytics (POST /v1/analytics/*)
// ============================================================

func anomaliesHandler(svc *service.Analytics, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/analytics/anomalies")
		defer span.End()

		var req domain.AnomalyRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.Threshold < 0 {
			handleServiceError(w, &domain.ErrValidation{Field: "threshold", Message: "must be positive"}, logger)
			return
		}
		writeJSON(w, http.StatusOK, svc.Anomalies(ctx, req))
	}
}

func summaryHandler(svc *service.Analytics, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/analytics/summary")
		defer span.End()

		var req domain.SummaryRequest
		if !decodeBody(w, r, &req) {
			return
		}
		summary, err := svc.Summarize(ctx, req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}

func patternsHandler(svc *service.Analytics, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/analytics/patterns")
		defer span.End()

		var req domain.PatternsRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.Top < 0 {
			handleServiceError(w, &domain.ErrValidation{Field: "top", Message: "must be positive"}, logger)
			return
		}
		writeJSON(w, http.StatusOK, svc.SpendingPatterns(ctx, req))
	}
}
