// Package app wires configuration into the categorizer services. It is shared
// by the HTTP service and the catctl CLI.
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/boddenberg/categorizer-go/internal/config"
	"github.com/boddenberg/categorizer-go/internal/domain"
	"github.com/boddenberg/categorizer-go/internal/infra/cache"
	"github.com/boddenberg/categorizer-go/internal/infra/observability"
	"github.com/boddenberg/categorizer-go/internal/infra/openai"
	"github.com/boddenberg/categorizer-go/internal/infra/resilience"
	"github.com/boddenberg/categorizer-go/internal/infra/sqlite"
	"github.com/boddenberg/categorizer-go/internal/port"
	"github.com/boddenberg/categorizer-go/internal/rules"
	"github.com/boddenberg/categorizer-go/internal/service"

	"go.uber.org/zap"
)

// App holds the wired services and the resources they own.
type App struct {
	Categorizer *service.Categorizer
	Batch       *service.Batch
	Feedback    *service.Feedback
	Analytics   *service.Analytics

	Memory    *sqlite.MemoryStore
	AIEnabled bool
	Metrics   *observability.Metrics

	results *cache.InMemory[domain.CategorizeOutput]
}

// New builds every service from cfg.
func New(ctx context.Context, cfg *config.Config, metrics *observability.Metrics, logger *zap.Logger) (*App, error) {
	// --- Learned memory ---
	memory, err := sqlite.NewMemoryStore(ctx, cfg.MemoryDBPath)
	if err != nil {
		return nil, fmt.Errorf("open memory store: %w", err)
	}

	// --- Cache ---
	results := cache.New[domain.CategorizeOutput](cfg.CacheTTL, cache.WithMaxEntries(cfg.CacheMaxEntries))

	// --- Rules ---
	engine := rules.Default()

	// --- LLM classifier ---
	var classifier port.Classifier
	aiEnabled := cfg.OpenAIAPIKey != ""
	if aiEnabled {
		resilienceCfg := resilience.Config{
			MaxRetries:     cfg.MaxRetries,
			InitialBackoff: cfg.InitialBackoff,
			MaxConcurrency: cfg.MaxConcurrency,
		}
		classifier = openai.New(
			&http.Client{Timeout: cfg.HTTPTimeout},
			openai.Config{
				APIKey:     cfg.OpenAIAPIKey,
				Model:      cfg.OpenAIModel,
				BaseURL:    cfg.OpenAIBaseURL,
				Categories: append(engine.Categories(), domain.CategoryUncategorized),
			},
			resilience.NewCircuitBreaker("openai", logger),
			resilienceCfg,
			metrics,
			logger,
		)
		logger.Info("llm classifier enabled", zap.String("model", cfg.OpenAIModel))
	} else {
		logger.Warn("OPENAI_API_KEY not set, llm classifier disabled")
	}

	// --- Services ---
	categorizer := service.NewCategorizer(
		engine,
		cache.NewCategorizations(results),
		memory,
		classifier,
		cfg.MinAIConfidence,
		metrics,
		logger,
	)

	return &App{
		Categorizer: categorizer,
		Batch: service.NewBatch(categorizer, service.BatchConfig{
			MaxConcurrency: cfg.BatchMaxConcurrency,
			Pacing:         cfg.BatchPacing,
		}, metrics, logger),
		Feedback:  service.NewFeedback(memory, metrics, logger),
		Analytics: service.NewAnalytics(cfg.AnomalyThreshold, metrics, logger),
		Memory:    memory,
		AIEnabled: aiEnabled,
		Metrics:   metrics,
		results:   results,
	}, nil
}

// Close releases the cache janitor and the memory store.
func (a *App) Close() error {
	a.results.Close()
	return a.Memory.Close()
}
