// Package gemini provides a client for the Gemini text-generation endpoint.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/contactloop/leadscout/internal/resilience"
)

const (
	defaultEndpoint = "https://api.gemini.example.com/v1/generate"
	defaultModel    = "gemini-1.5-pro"
)

// Client performs text-generation requests.
type Client interface {
	// Generate sends a prompt and returns the raw response text. The body is
	// free text that callers typically expect to be JSON.
	Generate(ctx context.Context, prompt string) (string, error)
}

// generateRequest is the request body for the generation endpoint.
type generateRequest struct {
	Prompt    string `json:"prompt"`
	Model     string `json:"model"`
	MaxTokens int    `json:"max_tokens"`
}

// Option configures the client.
type Option func(*httpClient)

// WithEndpoint overrides the default endpoint URL.
func WithEndpoint(url string) Option {
	return func(c *httpClient) {
		c.endpoint = url
	}
}

// WithModel overrides the default model.
func WithModel(model string) Option {
	return func(c *httpClient) {
		c.model = model
	}
}

// WithMaxTokens overrides the default max_tokens.
func WithMaxTokens(n int) Option {
	return func(c *httpClient) {
		c.maxTokens = n
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey    string
	endpoint  string
	model     string
	maxTokens int
	http      *http.Client
}

// NewClient creates a Gemini client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:    apiKey,
		endpoint:  defaultEndpoint,
		model:     defaultModel,
		maxTokens: 150,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Prompt:    prompt,
		Model:     c.model,
		MaxTokens: c.maxTokens,
	})
	if err != nil {
		return "", eris.Wrap(err, "gemini: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", eris.Wrap(err, "gemini: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "gemini: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", eris.Wrap(err, "gemini: read response")
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", resilience.NewRateLimitError(
			eris.Errorf("gemini: rate limited: %s", string(respBody)),
			resilience.ParseRetryAfter(resp.Header, 0),
		)
	}
	if resilience.IsTransientHTTPStatus(resp.StatusCode) {
		return "", resilience.NewTransientError(
			eris.Errorf("gemini: status %d: %s", resp.StatusCode, string(respBody)),
			resp.StatusCode,
		)
	}
	if resp.StatusCode != http.StatusOK {
		return "", eris.Errorf("gemini: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	return string(respBody), nil
}
