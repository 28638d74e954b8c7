package service

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/boddenberg/categorizer-go/internal/domain"
	"github.com/boddenberg/categorizer-go/internal/fingerprint"
	"github.com/boddenberg/categorizer-go/internal/infra/observability"
	"github.com/boddenberg/categorizer-go/internal/merchant"
	"github.com/boddenberg/categorizer-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var tracer = otel.Tracer("service/categorizer")

const (
	// DefaultMinConfidence is used when MIN_AI_CONFIDENCE is missing or out of (0,1].
	DefaultMinConfidence = 0.6

	heuristicConfidence = 0.4
	reasonHeuristic     = "fallback:heuristic"
)

// Categorizer runs the categorization pipeline:
// cache, learned memory, rules, LLM classifier and heuristic fallback.
type Categorizer struct {
	rules      port.RuleEngine
	cache      port.CategorizationCache
	memory     port.MemoryStore
	classifier port.Classifier

	minConfidence      float64
	minConfidenceRaw   string
	minConfidenceValid bool

	// inflight coalesces concurrent LLM calls for the same dedup hash.
	inflight singleflight.Group

	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewCategorizer creates the orchestrator. classifier may be nil, which
// disables the LLM branch. minConfidence is the raw configured threshold.
func NewCategorizer(
	rules port.RuleEngine,
	cache port.CategorizationCache,
	memory port.MemoryStore,
	classifier port.Classifier,
	minConfidence string,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Categorizer {
	c := &Categorizer{
		rules:            rules,
		cache:            cache,
		memory:           memory,
		classifier:       classifier,
		minConfidenceRaw: minConfidence,
		metrics:          metrics,
		logger:           logger,
	}
	c.minConfidence, c.minConfidenceValid = parseThreshold(minConfidence)
	return c
}

// parseThreshold accepts a finite number in (0,1].
func parseThreshold(raw string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 || v > 1 {
		return DefaultMinConfidence, false
	}
	return v, true
}

// threshold returns the effective minimum confidence, warning when the
// configured value had to be replaced.
func (c *Categorizer) threshold() float64 {
	if !c.minConfidenceValid {
		c.logger.Warn("invalid MIN_AI_CONFIDENCE, using default",
			zap.String("configured", c.minConfidenceRaw),
			zap.Float64("default", DefaultMinConfidence),
		)
	}
	return c.minConfidence
}

// Identity returns the normalized merchant and the dedup hash of an input.
// The merchant falls back to the description when absent.
func Identity(in domain.CategorizeInput) (merchantClean, dedupHash string) {
	raw := in.Merchant
	if strings.TrimSpace(raw) == "" {
		raw = in.Description
	}
	merchantClean = merchant.Normalize(raw)
	dedupHash = fingerprint.DedupHash(fingerprint.Fields{
		Amount:        in.Amount,
		When:          in.When,
		MerchantClean: merchantClean,
		AccountLast4:  in.AccountLast4,
		BankMessageID: in.BankMessageID,
	})
	return merchantClean, dedupHash
}

// Categorize classifies one transaction. Collaborator failures degrade to the
// next step of the pipeline; only an invalid input is returned as an error.
func (c *Categorizer) Categorize(ctx context.Context, in domain.CategorizeInput) (domain.CategorizeOutput, error) {
	if err := in.Validate(); err != nil {
		return domain.CategorizeOutput{}, err
	}

	ctx, span := tracer.Start(ctx, "Categorizer.Categorize")
	defer span.End()

	start := time.Now()
	defer func() {
		c.metrics.RecordRequestDuration("categorize", time.Since(start))
	}()

	merchantClean, dedupHash := Identity(in)
	cacheKey := fingerprint.CacheKey(in.Description, merchantClean, in.Amount, in.Currency)
	span.SetAttributes(attribute.String("categorize.dedup_hash", dedupHash))

	// --- Step 1: Cache ---
	cached, ok, err := c.cache.Get(ctx, cacheKey)
	if err != nil {
		c.logger.Warn("cache read failed", zap.String("key", cacheKey), zap.Error(err))
		c.metrics.IncrExternalError("cache")
	}
	if ok {
		c.metrics.IncrCacheHit("categorization")
		c.metrics.IncrCategorization(observability.SourceCache)
		span.SetAttributes(attribute.String("categorize.source", observability.SourceCache))
		return cached, nil
	}
	c.metrics.IncrCacheMiss("categorization")

	base := domain.CategorizeOutput{MerchantClean: merchantClean, DedupHash: dedupHash}

	// --- Step 2: Learned memory ---
	mem, err := c.memory.Consult(ctx, domain.MemoryQuery{Merchant: in.Merchant, Description: in.Description})
	if err != nil {
		c.logger.Warn("memory lookup failed", zap.String("dedup_hash", dedupHash), zap.Error(err))
		c.metrics.IncrExternalError("memory")
	}
	if mem != nil {
		out := base
		out.Category = mem.Category
		out.Confidence = clamp(mem.Confidence)
		out.Reasons = []string{fmt.Sprintf("memory:%s:%d", mem.Source, mem.Count)}
		return c.finish(ctx, cacheKey, out, observability.SourceMemory), nil
	}

	// --- Step 3: Rules ---
	match := c.rules.Match(strings.TrimSpace(merchantClean + " " + in.Description))
	minConfidence := c.threshold()

	// --- Step 4: LLM ---
	wantAI := in.UseAI || !match.Hit || match.Strength < minConfidence
	if wantAI && c.classifier != nil && c.classifier.Available() {
		res, err := c.classifyShared(ctx, dedupHash, domain.ClassifierRequest{
			Description: in.Description,
			Merchant:    in.Merchant,
			Amount:      in.Amount,
			Currency:    in.Currency,
			Context:     in.Context,
			Profile:     in.Profile,
		})
		if err == nil {
			out := base
			out.Category = res.Category
			out.Confidence = clamp(res.Confidence)
			out.Reasons = []string{"ai:" + res.Reasoning}
			out.AIEnhanced = true
			out.AIReasoning = res.Reasoning
			return c.finish(ctx, cacheKey, out, observability.SourceAI), nil
		}
		c.logger.Warn("llm classification unavailable, falling back to rules",
			zap.String("dedup_hash", dedupHash),
			zap.Error(err),
		)
	}

	// --- Step 5: Rules / heuristic fallback ---
	out := base
	source := observability.SourceHeuristic
	strength := clamp(match.Strength)
	switch {
	case match.Hit && strength >= minConfidence:
		out.Category = match.Category
		out.Confidence = strength
		out.Reasons = []string{match.Reason}
		source = observability.SourceRule
	case match.Hit:
		out.Category = fallbackCategory(in)
		out.Confidence = strength
		out.Reasons = []string{match.Reason}
		source = observability.SourceRuleLow
	default:
		out.Category = fallbackCategory(in)
		out.Confidence = heuristicConfidence
		out.Reasons = []string{reasonHeuristic}
	}
	return c.finish(ctx, cacheKey, out, source), nil
}

// finish stores the result and records the deciding source.
// Cache write failures are logged and swallowed.
func (c *Categorizer) finish(ctx context.Context, cacheKey string, out domain.CategorizeOutput, source string) domain.CategorizeOutput {
	if err := c.cache.Set(ctx, cacheKey, out); err != nil {
		c.logger.Warn("cache write failed", zap.String("key", cacheKey), zap.Error(err))
		c.metrics.IncrExternalError("cache")
	}
	c.metrics.IncrCategorization(source)
	return out
}

// classifyShared calls the classifier at most once per dedup hash at a time.
// Callers arriving while a call is pending share its result, success or failure.
// The upstream call is detached from the first caller's cancellation so that
// the others still get an answer; a caller that gives up falls back on its own.
func (c *Categorizer) classifyShared(ctx context.Context, dedupHash string, req domain.ClassifierRequest) (*domain.ClassifierResult, error) {
	shared := context.WithoutCancel(ctx)
	ch := c.inflight.DoChan(dedupHash, func() (any, error) {
		res, err := c.classifier.Classify(shared, req)
		if err == nil && (res == nil || strings.TrimSpace(res.Category) == "") {
			err = &domain.ErrClassifier{Kind: domain.ClassifierMalformed, Detail: "empty category"}
		}
		if err != nil {
			c.metrics.IncrClassifierCall("error")
			return nil, err
		}
		c.metrics.IncrClassifierCall("success")
		return res, nil
	})

	select {
	case r := <-ch:
		if r.Shared {
			c.metrics.IncrClassifierCall("shared")
		}
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(*domain.ClassifierResult), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func fallbackCategory(in domain.CategorizeInput) string {
	if in.IsIncome() {
		return domain.CategoryIncome
	}
	return domain.CategoryUncategorized
}

// clamp bounds a confidence to [0,1]. NaN becomes 0.
func clamp(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
