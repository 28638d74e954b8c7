package handler

import (
	"fmt"
	"net/http"

	"github.com/boddenberg/categorizer-go/internal/domain"
	"github.com/boddenberg/categorizer-go/internal/service"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Categorization (POST /v1/categorize)
// ============================================================

func categorizeHandler(svc *service.Categorizer, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/categorize")
		defer span.End()

		var in domain.CategorizeInput
		if !decodeBody(w, r, &in) {
			return
		}

		out, err := svc.Categorize(ctx, in)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.String("categorize.category", out.Category))
		writeJSON(w, http.StatusOK, out)
	}
}

// ============================================================
// Batch (POST /v1/categorize/batch)
// ============================================================

func categorizeBatchHandler(svc *service.Batch, maxItems int, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/categorize/batch")
		defer span.End()

		var req domain.BatchRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if len(req.Items) == 0 {
			handleServiceError(w, &domain.ErrValidation{Field: "items", Message: "at least one item required"}, logger)
			return
		}
		if len(req.Items) > maxItems {
			handleServiceError(w, &domain.ErrValidation{
				Field:   "items",
				Message: fmt.Sprintf("at most %d items per batch", maxItems),
			}, logger)
			return
		}
		if req.MaxConcurrency < 0 {
			handleServiceError(w, &domain.ErrValidation{Field: "maxConcurrency", Message: "must be positive"}, logger)
			return
		}

		requestID := middleware.GetReqID(ctx)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		span.SetAttributes(
			attribute.String("batch.request_id", requestID),
			attribute.Int("batch.items", len(req.Items)),
		)

		results := svc.CategorizeBatch(ctx, req.Items, domain.BatchOptions{
			UseAI:          req.UseAI,
			MaxConcurrency: req.MaxConcurrency,
		})
		writeJSON(w, http.StatusOK, domain.BatchResponse{RequestID: requestID, Results: results})
	}
}

// ============================================================
// Feedback (POST /v1/feedback)
// ============================================================

func feedbackHandler(svc *service.Feedback, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/feedback")
		defer span.End()

		var in domain.FeedbackInput
		if !decodeBody(w, r, &in) {
			return
		}

		receipt, err := svc.Record(ctx, in)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, receipt)
	}
}
