// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the service
// layer from concrete implementations.
package port

import (
	"context"

	"github.com/boddenberg/categorizer-go/internal/domain"
)

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}

// CategorizationCache stores finished categorizations by cache key.
type CategorizationCache interface {
	Get(ctx context.Context, key string) (domain.CategorizeOutput, bool, error)
	Set(ctx context.Context, key string, value domain.CategorizeOutput) error
}

// MemoryStore holds the corrections users made to past categorizations.
type MemoryStore interface {
	// Consult returns the consensus category for a merchant/description, or nil.
	Consult(ctx context.Context, q domain.MemoryQuery) (*domain.LearnedMemory, error)
	// Record adds one vote for category and returns the updated vote count.
	Record(ctx context.Context, q domain.MemoryQuery, category string) (int, error)
}

// Classifier invokes the LLM. Failures are reported as *domain.ErrClassifier.
type Classifier interface {
	Classify(ctx context.Context, req domain.ClassifierRequest) (*domain.ClassifierResult, error)
	Available() bool
}

// RuleEngine is the deterministic keyword/regex classifier.
type RuleEngine interface {
	Match(text string) domain.RuleMatch
}

// Categorizer categorizes a single transaction. Implemented by the orchestrator
// and consumed by the batch fan-out.
type Categorizer interface {
	Categorize(ctx context.Context, in domain.CategorizeInput) (domain.CategorizeOutput, error)
}
