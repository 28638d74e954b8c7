package service

import (
	"context"
	"fmt"
	"time"

	"github.com/boddenberg/categorizer-go/internal/domain"
	"github.com/boddenberg/categorizer-go/internal/infra/observability"
	"github.com/boddenberg/categorizer-go/internal/port"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultBatchConcurrency is the chunk size used when none is configured.
	DefaultBatchConcurrency = 3

	batchErrorReason = "error:categorization_failed"
)

// BatchConfig tunes the batch fan-out.
type BatchConfig struct {
	MaxConcurrency int
	// Pacing is the pause between chunks. It is skipped after the last chunk.
	Pacing time.Duration
}

// Batch categorizes many transactions in chunks, running each chunk concurrently.
type Batch struct {
	categorizer port.Categorizer
	cfg         BatchConfig
	sleep       func(ctx context.Context, d time.Duration) error
	metrics     *observability.Metrics
	logger      *zap.Logger
}

// NewBatch creates the batch orchestrator over a single-item categorizer.
func NewBatch(categorizer port.Categorizer, cfg BatchConfig, metrics *observability.Metrics, logger *zap.Logger) *Batch {
	if cfg.MaxConcurrency < 1 {
		cfg.MaxConcurrency = DefaultBatchConcurrency
	}
	return &Batch{
		categorizer: categorizer,
		cfg:         cfg,
		sleep:       sleepContext,
		metrics:     metrics,
		logger:      logger,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// CategorizeBatch returns one result per input, in input order. A failing item
// is replaced by a low-confidence placeholder and never fails its siblings.
// Once ctx is done the remaining items are filled with placeholders.
func (b *Batch) CategorizeBatch(ctx context.Context, inputs []domain.CategorizeInput, opts domain.BatchOptions) []domain.CategorizeOutput {
	ctx, span := tracer.Start(ctx, "Batch.CategorizeBatch")
	defer span.End()

	size := b.cfg.MaxConcurrency
	if opts.MaxConcurrency > 0 {
		size = opts.MaxConcurrency
	}
	span.SetAttributes(
		attribute.Int("batch.items", len(inputs)),
		attribute.Int("batch.chunk_size", size),
	)

	start := time.Now()
	defer func() {
		b.metrics.RecordRequestDuration("categorize_batch", time.Since(start))
	}()

	results := make([]domain.CategorizeOutput, len(inputs))
	for lo := 0; lo < len(inputs); lo += size {
		hi := min(lo+size, len(inputs))

		if ctx.Err() != nil {
			b.logger.Warn("batch cancelled, filling remaining items",
				zap.Int("done", lo),
				zap.Int("total", len(inputs)),
			)
			for i := lo; i < len(inputs); i++ {
				results[i] = b.placeholder(inputs[i])
			}
			break
		}

		var g errgroup.Group
		for i := lo; i < hi; i++ {
			i := i
			in := inputs[i]
			if opts.UseAI != nil {
				in.UseAI = *opts.UseAI
			}
			g.Go(func() error {
				results[i] = b.categorizeOne(ctx, i, in)
				return nil
			})
		}
		_ = g.Wait()

		if hi < len(inputs) {
			_ = b.sleep(ctx, b.cfg.Pacing)
		}
	}
	return results
}

// categorizeOne isolates a single item, turning errors and panics into a placeholder.
func (b *Batch) categorizeOne(ctx context.Context, index int, in domain.CategorizeInput) (out domain.CategorizeOutput) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("batch item panicked",
				zap.Int("index", index),
				zap.String("panic", fmt.Sprint(r)),
			)
			out = b.placeholder(in)
		}
	}()

	res, err := b.categorizer.Categorize(ctx, in)
	if err != nil {
		b.logger.Warn("batch item failed", zap.Int("index", index), zap.Error(err))
		return b.placeholder(in)
	}
	return res
}

// placeholder is the deterministic result of a failed item. It carries the
// item's own dedup hash.
func (b *Batch) placeholder(in domain.CategorizeInput) domain.CategorizeOutput {
	b.metrics.IncrCategorization(observability.SourceBatchItem)
	merchantClean, dedupHash := Identity(in)
	return domain.CategorizeOutput{
		Category:      domain.CategoryUncategorized,
		Confidence:    0,
		Reasons:       []string{batchErrorReason},
		MerchantClean: merchantClean,
		DedupHash:     dedupHash,
	}
}
