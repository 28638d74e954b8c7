package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/boddenberg/categorizer-go/internal/domain"
	"github.com/boddenberg/categorizer-go/internal/handler"
	"github.com/boddenberg/categorizer-go/internal/infra/cache"
	"github.com/boddenberg/categorizer-go/internal/infra/observability"
	"github.com/boddenberg/categorizer-go/internal/infra/sqlite"
	"github.com/boddenberg/categorizer-go/internal/rules"
	"github.com/boddenberg/categorizer-go/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()

	store, err := sqlite.NewMemoryStore(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	results := cache.New[domain.CategorizeOutput](time.Minute)
	t.Cleanup(results.Close)

	categorizer := service.NewCategorizer(rules.Default(), cache.NewCategorizations(results), store, nil, "0.6", metrics, logger)

	return handler.NewRouter(handler.Services{
		Categorizer:   categorizer,
		Batch:         service.NewBatch(categorizer, service.BatchConfig{MaxConcurrency: 2}, metrics, logger),
		Feedback:      service.NewFeedback(store, metrics, logger),
		Analytics:     service.NewAnalytics(3.5, metrics, logger),
		Memory:        store,
		BatchMaxItems: 3,
	}, metrics, logger)
}

func do(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var health domain.HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health.Status)
	assert.Len(t, health.Services, 3)
}

func TestOperationalEndpoints(t *testing.T) {
	router := newTestRouter(t)

	for _, path := range []string{"/readyz", "/metrics", "/ping", "/v1/metrics/categorizer"} {
		rec := do(t, router, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestCategorize(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/v1/categorize", map[string]any{
		"description": "random unseen text",
		"amount":      1000,
		"currency":    "ARS",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var out domain.CategorizeOutput
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "Ingresos", out.Category)
	assert.Equal(t, 0.4, out.Confidence)
	assert.Equal(t, []string{"fallback:heuristic"}, out.Reasons)
	assert.Contains(t, rec.Body.String(), `"merchant_clean"`)
	assert.Contains(t, rec.Body.String(), `"dedupHash"`)
}

func TestCategorize_BadRequests(t *testing.T) {
	router := newTestRouter(t)

	cases := map[string]any{
		"malformed json":    `{"description":`,
		"empty description": map[string]any{"description": "", "amount": 1, "currency": "ARS"},
		"bad currency":      map[string]any{"description": "x", "amount": 1, "currency": "EUR"},
		"bad type":          map[string]any{"description": "x", "amount": 1, "currency": "ARS", "transactionType": "otro"},
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := do(t, router, http.MethodPost, "/v1/categorize", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestCategorize_RequiresJSON(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/categorize", strings.NewReader("description=x"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestCategorize_BodyTooLarge(t *testing.T) {
	router := newTestRouter(t)

	huge := fmt.Sprintf(`{"description":%q,"amount":1,"currency":"ARS"}`, strings.Repeat("a", 2<<20))
	rec := do(t, router, http.MethodPost, "/v1/categorize", huge)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestCategorizeBatch(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/v1/categorize/batch", map[string]any{
		"items": []map[string]any{
			{"description": "NETFLIX.COM", "amount": -4500, "currency": "ARS"},
			{"description": "", "amount": -1, "currency": "ARS"},
			{"description": "random unseen text", "amount": -250, "currency": "ARS"},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp domain.BatchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.RequestID)
	require.Len(t, resp.Results, 3)
	assert.Equal(t, "Suscripciones", resp.Results[0].Category)
	assert.Equal(t, "Sin clasificar", resp.Results[1].Category)
	assert.Equal(t, []string{"error:categorization_failed"}, resp.Results[1].Reasons)
	assert.Equal(t, "Sin clasificar", resp.Results[2].Category)
	assert.Equal(t, []string{"fallback:heuristic"}, resp.Results[2].Reasons)
}

func TestCategorizeBatch_Limits(t *testing.T) {
	router := newTestRouter(t)
	item := map[string]any{"description": "x", "amount": 1, "currency": "ARS"}

	rec := do(t, router, http.MethodPost, "/v1/categorize/batch", map[string]any{"items": []any{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodPost, "/v1/categorize/batch", map[string]any{"items": []any{item, item, item, item}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFeedbackTeachesCategorize(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/v1/feedback", map[string]any{
		"description": "VETERINARIA SAN ROQUE",
		"category":    "Mascotas",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var receipt domain.FeedbackReceipt
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &receipt))
	assert.Equal(t, 1, receipt.Count)
	assert.NotEmpty(t, receipt.ID)

	rec = do(t, router, http.MethodPost, "/v1/categorize", map[string]any{
		"description": "VETERINARIA SAN ROQUE",
		"amount":      -12000,
		"currency":    "ARS",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var out domain.CategorizeOutput
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "Mascotas", out.Category)
	assert.Equal(t, []string{"memory:user_feedback:1"}, out.Reasons)
}

func TestFeedback_Invalid(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/v1/feedback", map[string]any{"description": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyticsRoutes(t *testing.T) {
	router := newTestRouter(t)

	txs := []map[string]any{}
	for _, a := range []float64{-100, -100, -100, -100, -100, -5000} {
		txs = append(txs, map[string]any{
			"date": "2025-04-07T10:00:00Z", "amount": a, "description": "PEDIDOSYA", "category": "Delivery",
		})
	}

	rec := do(t, router, http.MethodPost, "/v1/analytics/anomalies", map[string]any{"transactions": txs})
	require.Equal(t, http.StatusOK, rec.Code)
	var anomalies domain.AnomalyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &anomalies))
	require.Len(t, anomalies.Anomalies, 1)
	assert.Equal(t, domain.SeverityHigh, anomalies.Anomalies[0].Severity)

	rec = do(t, router, http.MethodPost, "/v1/analytics/summary", map[string]any{"transactions": txs})
	require.Equal(t, http.StatusOK, rec.Code)
	var summary domain.PeriodSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 5500.0, summary.TotalExpenses)

	rec = do(t, router, http.MethodPost, "/v1/analytics/summary", map[string]any{
		"transactions": txs, "from": "2025-05-01T00:00:00Z", "to": "2025-04-01T00:00:00Z",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodPost, "/v1/analytics/patterns", map[string]any{"transactions": txs, "top": 1})
	require.Equal(t, http.StatusOK, rec.Code)
	var patterns domain.SpendingPatterns
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &patterns))
	require.Len(t, patterns.TopMerchants, 1)
	assert.Equal(t, "pedidosya", patterns.TopMerchants[0].Merchant)
}

func TestCategorizerMetricsSnapshot(t *testing.T) {
	router := newTestRouter(t)
	body := map[string]any{"description": "NETFLIX.COM", "amount": -4500, "currency": "ARS"}

	do(t, router, http.MethodPost, "/v1/categorize", body)
	do(t, router, http.MethodPost, "/v1/categorize", body)

	rec := do(t, router, http.MethodGet, "/v1/metrics/categorizer", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var snap domain.CategorizerMetrics
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.EqualValues(t, 2, snap.TotalCategorizations)
	assert.EqualValues(t, 1, snap.BySource["cache"])
	assert.EqualValues(t, 1, snap.BySource["rule"])
	assert.InDelta(t, 0.5, snap.CacheHitRate, 1e-9)
}
