// Package interpret turns free-text user input into a structured query via a
// remote text-generation service. Interpretation is never fatal: every
// failure path degrades to the unknown-field sentinel.
package interpret

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/contactloop/leadscout/internal/config"
	"github.com/contactloop/leadscout/internal/model"
	"github.com/contactloop/leadscout/internal/resilience"
)

// TextGenerator is the text-understanding provider dependency. Satisfied by
// pkg/gemini and pkg/anthropic clients.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Interpreter parses discovery requests with a remote model.
type Interpreter struct {
	gen   TextGenerator
	retry resilience.RetryConfig
}

// Option configures the Interpreter.
type Option func(*Interpreter)

// WithSleep overrides the retry sleep function (for testing).
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(i *Interpreter) {
		i.retry.Sleep = sleep
	}
}

// New creates an Interpreter with retry behavior from cfg.
func New(gen TextGenerator, cfg config.InterpreterConfig, opts ...Option) *Interpreter {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	backoff := time.Duration(cfg.BackoffSecs) * time.Second
	if backoff <= 0 {
		backoff = 5 * time.Second
	}

	i := &Interpreter{
		gen: gen,
		retry: resilience.RetryConfig{
			MaxAttempts:    maxAttempts,
			InitialBackoff: backoff,
			// Fixed delay between attempts; a provider Retry-After wait is
			// added on top of it.
			Multiplier: 1,
			// The remote call is retried on every failure, not just the
			// transient ones: a misbehaving model endpoint is worth another
			// attempt before degrading to the sentinel.
			ShouldRetry: func(error) bool { return true },
			OnRetry:     resilience.RetryLogger("interpreter", "generate"),
		},
	}
	for _, o := range opts {
		o(i)
	}
	return i
}

// parsedFields mirrors the JSON object the model is asked to produce.
type parsedFields struct {
	City     string `json:"city"`
	Industry string `json:"industry"`
	Area     string `json:"area"`
}

// Interpret parses the user's free text into a ParsedQuery. It never returns
// an error: exhausted retries and malformed output both yield the sentinel.
func (i *Interpreter) Interpret(ctx context.Context, text string) model.ParsedQuery {
	prompt := buildPrompt(text)

	raw, err := resilience.DoVal(ctx, i.retry, func(ctx context.Context) (string, error) {
		return i.gen.Generate(ctx, prompt)
	})
	if err != nil {
		zap.L().Error("interpret: all attempts failed, degrading to unknown", zap.Error(err))
		return model.UnknownQuery()
	}

	return parseResponse(raw)
}

// buildPrompt builds the instruction asking the model for a JSON object with
// city, industry and area keys.
func buildPrompt(text string) string {
	return fmt.Sprintf(
		"Ontleed de volgende tekst:\n%q\nFormatteer als JSON:\n{\n  \"city\": \"...\",\n  \"industry\": \"...\",\n  \"area\": \"...\"\n}",
		text,
	)
}

// parseResponse decodes the model output, tolerating markdown fences and
// missing keys. Unparsable output degrades to the sentinel.
func parseResponse(raw string) model.ParsedQuery {
	raw = stripFences(raw)

	var fields parsedFields
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		zap.L().Warn("interpret: malformed model output, degrading to unknown", zap.Error(err))
		return model.UnknownQuery()
	}

	return model.ParsedQuery{
		City:     orUnknown(fields.City),
		Industry: orUnknown(fields.Industry),
		Area:     orUnknown(fields.Area),
	}
}

// stripFences removes a surrounding markdown code fence, if present.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return model.Unknown
	}
	return s
}
