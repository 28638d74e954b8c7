package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/boddenberg/categorizer-go/internal/domain"
	"github.com/boddenberg/categorizer-go/internal/infra/observability"
	"github.com/boddenberg/categorizer-go/internal/infra/resilience"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func completion(content string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
		"usage": map[string]int{"prompt_tokens": 40, "completion_tokens": 12},
	})
	return string(b)
}

func newTestClassifier(t *testing.T, url, apiKey string, metrics *observability.Metrics) *Classifier {
	t.Helper()
	return New(
		&http.Client{Timeout: 2 * time.Second},
		Config{APIKey: apiKey, BaseURL: url, Categories: []string{"Delivery", "Supermercado"}},
		resilience.NewCircuitBreaker("openai-test", zap.NewNop()),
		resilience.Config{MaxRetries: 2, InitialBackoff: time.Millisecond, MaxConcurrency: 2},
		metrics,
		zap.NewNop(),
	)
}

var sampleRequest = domain.ClassifierRequest{
	Description: "PEDIDOSYA*BURGER",
	Merchant:    "pedidosya",
	Amount:      -5400,
	Currency:    domain.CurrencyARS,
	Context:     []domain.PriorTransaction{{Description: "RAPPI", Amount: -3000, Category: "Delivery"}},
	Profile:     &domain.UserProfile{Country: "AR"},
}

func TestClassify_Success(t *testing.T) {
	var gotAuth, gotPrompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		var body chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gotPrompt = body.Messages[1].Content
		_, _ = w.Write([]byte(completion(`{"category":"delivery","confidence":0.91,"reasoning":"Pedido de comida"}`)))
	}))
	defer srv.Close()

	metrics := observability.NewMetrics()
	c := newTestClassifier(t, srv.URL, "sk-test", metrics)

	res, err := c.Classify(context.Background(), sampleRequest)
	require.NoError(t, err)
	assert.Equal(t, "Delivery", res.Category)
	assert.InDelta(t, 0.91, res.Confidence, 1e-9)
	assert.Equal(t, "Pedido de comida", res.Reasoning)
	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Contains(t, gotPrompt, "PEDIDOSYA*BURGER")
	assert.Contains(t, gotPrompt, "Delivery, Supermercado")
	assert.Contains(t, gotPrompt, "RAPPI")

	snap := metrics.Snapshot()
	assert.EqualValues(t, 40, snap.PromptTokens)
	assert.EqualValues(t, 12, snap.CompletionTokens)
}

func TestClassify_MarkdownWrapped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(completion("```json\n{\"category\":\"Supermercado\",\"confidence\":0.7,\"reasoning\":\"x\"}\n```")))
	}))
	defer srv.Close()

	res, err := newTestClassifier(t, srv.URL, "k", nil).Classify(context.Background(), sampleRequest)
	require.NoError(t, err)
	assert.Equal(t, "Supermercado", res.Category)
}

func TestClassify_Unavailable(t *testing.T) {
	c := newTestClassifier(t, "http://127.0.0.1:1", "", nil)
	assert.False(t, c.Available())

	_, err := c.Classify(context.Background(), sampleRequest)
	var cerr *domain.ErrClassifier
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, domain.ClassifierUnavailable, cerr.Kind)
}

func TestClassify_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error":"bad request"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := newTestClassifier(t, srv.URL, "k", nil).Classify(context.Background(), sampleRequest)
	var cerr *domain.ErrClassifier
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, domain.ClassifierAPI, cerr.Kind)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClassify_ServerErrorRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(completion(`{"category":"Delivery","confidence":0.8,"reasoning":"ok"}`)))
	}))
	defer srv.Close()

	res, err := newTestClassifier(t, srv.URL, "k", nil).Classify(context.Background(), sampleRequest)
	require.NoError(t, err)
	assert.Equal(t, "Delivery", res.Category)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClassify_Malformed(t *testing.T) {
	cases := map[string]string{
		"not json":       completion("la categoría es Delivery"),
		"empty category": completion(`{"category":"","confidence":0.9}`),
		"no choices":     `{"choices":[]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer srv.Close()

			_, err := newTestClassifier(t, srv.URL, "k", nil).Classify(context.Background(), sampleRequest)
			var cerr *domain.ErrClassifier
			require.True(t, errors.As(err, &cerr))
			assert.Equal(t, domain.ClassifierMalformed, cerr.Kind)
		})
	}
}

func TestClassify_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := newTestClassifier(t, url, "k", nil).Classify(context.Background(), sampleRequest)
	var cerr *domain.ErrClassifier
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, domain.ClassifierTransport, cerr.Kind)
}

func TestCleanMarkdownWrapper(t *testing.T) {
	assert.Equal(t, `{"a":1}`, cleanMarkdownWrapper("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, cleanMarkdownWrapper("```\n{\"a\":1}```"))
	assert.Equal(t, `{"a":1}`, cleanMarkdownWrapper(`  {"a":1} `))
}
