// Package openai implements the LLM classifier over the OpenAI chat completions API.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/boddenberg/categorizer-go/internal/domain"
	"github.com/boddenberg/categorizer-go/internal/infra/observability"
	"github.com/boddenberg/categorizer-go/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("infra/openai")

const (
	defaultModel   = "gpt-4o-mini"
	defaultBaseURL = "https://api.openai.com/v1"
	maxErrorBody   = 512
)

const systemPrompt = "Sos un clasificador de movimientos bancarios argentinos. " +
	"Respondé SOLO con un objeto JSON válido con las claves \"category\", \"confidence\" (0 a 1) y \"reasoning\" (una oración). " +
	"No agregues texto, markdown ni comentarios antes o después del JSON."

// Config holds the classifier parameters.
type Config struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
	MaxTokens   int
	// Categories is the catalogue offered to the model. Answers that match one
	// of them case-insensitively are normalized to its spelling.
	Categories []string
}

// Classifier calls the chat completions endpoint behind a circuit breaker,
// retries with backoff and a bulkhead.
type Classifier struct {
	httpClient *http.Client
	cfg        Config
	cb         *gobreaker.CircuitBreaker
	retry      resilience.Config
	bulkhead   *resilience.Bulkhead
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// New creates a Classifier. metrics may be nil.
func New(httpClient *http.Client, cfg Config, cb *gobreaker.CircuitBreaker, retry resilience.Config, metrics *observability.Metrics, logger *zap.Logger) *Classifier {
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.2
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 200
	}
	return &Classifier{
		httpClient: httpClient,
		cfg:        cfg,
		cb:         cb,
		retry:      retry,
		bulkhead:   resilience.NewBulkhead(retry.MaxConcurrency),
		metrics:    metrics,
		logger:     logger,
	}
}

// Available reports whether an API key is configured.
func (c *Classifier) Available() bool {
	return c.cfg.APIKey != ""
}

// statusError is a non-200 answer from the API.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("openai API status %d: %s", e.code, e.body)
}

// malformedError is a 200 answer whose content is not the expected JSON.
type malformedError struct {
	msg string
	err error
}

func (e *malformedError) Error() string {
	if e.err != nil {
		return e.msg + ": " + e.err.Error()
	}
	return e.msg
}

func (e *malformedError) Unwrap() error { return e.err }

// Classify asks the model for a category. Every failure is an *domain.ErrClassifier.
func (c *Classifier) Classify(ctx context.Context, req domain.ClassifierRequest) (*domain.ClassifierResult, error) {
	ctx, span := tracer.Start(ctx, "Classifier.Classify")
	defer span.End()
	span.SetAttributes(attribute.String("llm.model", c.cfg.Model))

	if !c.Available() {
		return nil, &domain.ErrClassifier{Kind: domain.ClassifierUnavailable, Detail: "api key not configured"}
	}

	if err := c.bulkhead.Acquire(ctx); err != nil {
		return nil, &domain.ErrClassifier{Kind: domain.ClassifierTransport, Detail: "waiting for a slot", Err: err}
	}
	defer c.bulkhead.Release()

	body, err := json.Marshal(c.buildRequest(req))
	if err != nil {
		return nil, &domain.ErrClassifier{Kind: domain.ClassifierTransport, Detail: "encoding request", Err: err}
	}

	var result *domain.ClassifierResult
	_, err = c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.retry, func() error {
			content, err := c.complete(ctx, body)
			if err != nil {
				return err
			}
			parsed, err := c.parse(content)
			if err != nil {
				return resilience.Permanent(err)
			}
			result = parsed
			return nil
		})
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "classification failed")
		cerr := classify(err)
		c.logger.Warn("llm classification failed",
			zap.String("kind", string(cerr.Kind)),
			zap.Error(err),
		)
		return nil, cerr
	}

	span.SetAttributes(attribute.String("llm.category", result.Category))
	return result, nil
}

// classify maps an execution error onto the classifier error kinds.
func classify(err error) *domain.ErrClassifier {
	var se *statusError
	var me *malformedError
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return &domain.ErrClassifier{Kind: domain.ClassifierUnavailable, Detail: "circuit open", Err: err}
	case errors.As(err, &se):
		return &domain.ErrClassifier{Kind: domain.ClassifierAPI, Detail: fmt.Sprintf("status %d", se.code), Err: err}
	case errors.As(err, &me):
		return &domain.ErrClassifier{Kind: domain.ClassifierMalformed, Detail: me.msg, Err: err}
	default:
		return &domain.ErrClassifier{Kind: domain.ClassifierTransport, Detail: "request failed", Err: err}
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    float64           `json:"temperature"`
	MaxTokens      int               `json:"max_tokens"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

func (c *Classifier) buildRequest(req domain.ClassifierRequest) chatRequest {
	return chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: c.buildPrompt(req)},
		},
		Temperature:    c.cfg.Temperature,
		MaxTokens:      c.cfg.MaxTokens,
		ResponseFormat: map[string]string{"type": "json_object"},
	}
}

func (c *Classifier) buildPrompt(req domain.ClassifierRequest) string {
	var b strings.Builder
	if len(c.cfg.Categories) > 0 {
		fmt.Fprintf(&b, "Categorías posibles: %s.\n", strings.Join(c.cfg.Categories, ", "))
	}
	fmt.Fprintf(&b, "Descripción: %s\n", req.Description)
	if req.Merchant != "" {
		fmt.Fprintf(&b, "Comercio: %s\n", req.Merchant)
	}
	fmt.Fprintf(&b, "Monto: %.2f %s\n", req.Amount, req.Currency)

	if p := req.Profile; p != nil {
		if p.Country != "" {
			fmt.Fprintf(&b, "País del usuario: %s\n", p.Country)
		}
		if p.Occupation != "" {
			fmt.Fprintf(&b, "Ocupación: %s\n", p.Occupation)
		}
		if len(p.Categories) > 0 {
			fmt.Fprintf(&b, "Categorías que usa el usuario: %s\n", strings.Join(p.Categories, ", "))
		}
	}

	if len(req.Context) > 0 {
		b.WriteString("Movimientos anteriores:\n")
		for _, t := range req.Context {
			cat := t.Category
			if cat == "" {
				cat = "?"
			}
			fmt.Fprintf(&b, "- %s (%.2f): %s\n", t.Description, t.Amount, cat)
		}
	}
	return b.String()
}

// complete performs one HTTP round trip. 4xx answers other than 429 are permanent.
func (c *Classifier) complete(ctx context.Context, body []byte) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", resilience.Permanent(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode != http.StatusOK {
		msg := string(raw)
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		serr := &statusError{code: resp.StatusCode, body: msg}
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return "", resilience.Permanent(serr)
		}
		return "", serr
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", resilience.Permanent(&malformedError{msg: "decoding completion", err: err})
	}
	if c.metrics != nil {
		c.metrics.RecordTokens(parsed.Usage.PromptTokens, parsed.Usage.CompletionTokens)
	}
	if len(parsed.Choices) == 0 {
		return "", resilience.Permanent(&malformedError{msg: "no completion choices returned"})
	}
	return parsed.Choices[0].Message.Content, nil
}

func (c *Classifier) parse(content string) (*domain.ClassifierResult, error) {
	var answer struct {
		Category   string  `json:"category"`
		Confidence float64 `json:"confidence"`
		Reasoning  string  `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(cleanMarkdownWrapper(content)), &answer); err != nil {
		return nil, &malformedError{msg: "parsing answer", err: err}
	}
	category := strings.TrimSpace(answer.Category)
	if category == "" {
		return nil, &malformedError{msg: "no category in answer"}
	}
	for _, known := range c.cfg.Categories {
		if strings.EqualFold(known, category) {
			category = known
			break
		}
	}
	return &domain.ClassifierResult{
		Category:   category,
		Confidence: answer.Confidence,
		Reasoning:  strings.TrimSpace(answer.Reasoning),
	}, nil
}

// cleanMarkdownWrapper strips a ```json fence some models wrap the answer in.
func cleanMarkdownWrapper(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}
