package service

import (
	"context"
	"strings"

	"github.com/boddenberg/categorizer-go/internal/domain"
	"github.com/boddenberg/categorizer-go/internal/infra/observability"
	"github.com/boddenberg/categorizer-go/internal/merchant"
	"github.com/boddenberg/categorizer-go/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Feedback records user corrections into the learned memory.
// Cached categorizations are not invalidated; they age out with the cache TTL.
type Feedback struct {
	memory  port.MemoryStore
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewFeedback creates the feedback service.
func NewFeedback(memory port.MemoryStore, metrics *observability.Metrics, logger *zap.Logger) *Feedback {
	return &Feedback{memory: memory, metrics: metrics, logger: logger}
}

// Record adds one vote for the corrected category.
func (f *Feedback) Record(ctx context.Context, in domain.FeedbackInput) (*domain.FeedbackReceipt, error) {
	ctx, span := tracer.Start(ctx, "Feedback.Record")
	defer span.End()

	if err := in.Validate(); err != nil {
		return nil, err
	}

	category := strings.TrimSpace(in.Category)
	key := merchant.MemoryKey(in.Merchant, in.Description)
	span.SetAttributes(attribute.String("feedback.key", key))

	count, err := f.memory.Record(ctx, domain.MemoryQuery{Merchant: in.Merchant, Description: in.Description}, category)
	if err != nil {
		f.metrics.IncrExternalError("memory")
		return nil, &domain.ErrExternalService{Service: "memory", Err: err}
	}

	receipt := &domain.FeedbackReceipt{
		ID:       uuid.NewString(),
		Key:      key,
		Category: category,
		Count:    count,
	}
	f.logger.Info("feedback recorded",
		zap.String("feedback_id", receipt.ID),
		zap.String("transaction_id", in.TransactionID),
		zap.String("key", key),
		zap.String("category", category),
		zap.Int("votes", count),
	)
	return receipt, nil
}
