package domain

// ============================================================
// Health & Metrics API Responses
// ============================================================

// HealthStatus is returned by GET /healthz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded, unhealthy
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth represents the health of an individual dependency.
type ServiceHealth struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// CategorizerMetrics is returned by GET /v1/metrics/categorizer.
type CategorizerMetrics struct {
	TotalCategorizations int64            `json:"totalCategorizations"`
	BySource             map[string]int64 `json:"bySource"`
	CacheHitRate         float64          `json:"cacheHitRate"`
	AIRate               float64          `json:"aiRate"`
	ClassifierErrors     int64            `json:"classifierErrors"`
	SharedClassifierHits int64            `json:"sharedClassifierHits"`
	PromptTokens         int64            `json:"promptTokens"`
	CompletionTokens     int64            `json:"completionTokens"`
}
