// Package chat implements the chat-completion client used by the category
// resolver and the result summarizer.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/koso-dev/absquery/internal/domain"
	"github.com/koso-dev/absquery/internal/metrics"
)

// Client is a chat-completion provider over the OpenAI-compatible API.
type Client struct {
	apiKey  string
	baseURL string
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

// Config holds the chat provider settings.
type Config struct {
	APIKey  string
	BaseURL string // empty = provider default
	Model   string
	Timeout time.Duration
	Logger  *zap.Logger
}

// NewClient creates a chat-completion client.
func NewClient(cfg *Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
		timeout: timeout,
		logger:  logger,
	}
}

// Complete sends one system+user exchange and returns the first choice's
// message content, trimmed of nothing — callers decide how to interpret it.
// apiKeyOverride, when non-empty, takes precedence over the configured key.
func (c *Client) Complete(ctx context.Context, system, user, apiKeyOverride string) (string, error) {
	key := apiKeyOverride
	if key == "" {
		key = c.apiKey
	}
	if key == "" {
		return "", fmt.Errorf("chat completion requires a credential: %w", domain.ErrAuthMissing)
	}

	// The key can differ per request, so the SDK client is built per call.
	clientCfg := openai.DefaultConfig(key)
	if c.baseURL != "" {
		clientCfg.BaseURL = c.baseURL
	}
	client := openai.NewClientWithConfig(clientCfg)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Stream: false,
	}

	start := time.Now()
	resp, err := client.CreateChatCompletion(ctx, req)
	duration := time.Since(start)

	if err != nil {
		metrics.ChatRequestsTotal.WithLabelValues(c.model, "error").Inc()
		metrics.ChatErrorsTotal.WithLabelValues(c.model, "api_error").Inc()
		return "", parseAPIError(err)
	}

	if len(resp.Choices) == 0 {
		metrics.ChatRequestsTotal.WithLabelValues(c.model, "error").Inc()
		metrics.ChatErrorsTotal.WithLabelValues(c.model, "empty_response").Inc()
		return "", fmt.Errorf("empty chat completion response: %w", domain.ErrMalformedResponse)
	}

	metrics.ChatRequestsTotal.WithLabelValues(c.model, "success").Inc()
	metrics.ChatRequestDuration.WithLabelValues(c.model).Observe(duration.Seconds())
	if resp.Usage.TotalTokens > 0 {
		metrics.ChatTokensTotal.WithLabelValues(c.model, "prompt").Add(float64(resp.Usage.PromptTokens))
		metrics.ChatTokensTotal.WithLabelValues(c.model, "completion").Add(float64(resp.Usage.CompletionTokens))
		metrics.ChatTokensTotal.WithLabelValues(c.model, "total").Add(float64(resp.Usage.TotalTokens))
	}

	c.logger.Debug("chat completion",
		zap.String("model", c.model),
		zap.Duration("latency", duration),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
	)

	return resp.Choices[0].Message.Content, nil
}

// Ready reports whether a process-wide credential is configured.
func (c *Client) Ready() bool { return c.apiKey != "" }

// HealthCheck verifies API availability via ListModels (free endpoint).
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.apiKey == "" {
		return fmt.Errorf("chat api key not configured: %w", domain.ErrAuthMissing)
	}
	clientCfg := openai.DefaultConfig(c.apiKey)
	if c.baseURL != "" {
		clientCfg.BaseURL = c.baseURL
	}
	if _, err := openai.NewClientWithConfig(clientCfg).ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// parseAPIError extracts a human-readable error from the API response.
// Transport failures are wrapped with domain.ErrUpstreamUnavailable for
// correct 502 mapping; a deadline expiry counts as the upstream being
// unavailable.
func parseAPIError(err error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail == "" {
			detail = string(reqErr.Body)
		}
		return fmt.Errorf("chat completion: %w",
			domain.NewUpstreamError("chat", reqErr.HTTPStatusCode, detail))
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("chat completion: %w",
			domain.NewUpstreamError("chat", apiErr.HTTPStatusCode, apiErr.Message))
	}

	return fmt.Errorf("chat completion request failed: %v: %w", err, domain.ErrUpstreamUnavailable)
}

// extractDetail extracts the "detail" field from a JSON error body.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
