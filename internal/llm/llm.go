// Package llm holds the text-generation and embedding providers the pipeline
// can run against. Providers are interchangeable behind the Generator and
// Embedder interfaces; selection follows a fixed key precedence so deploys
// can switch vendors by setting one environment variable.
package llm

import (
	"context"
	"errors"
	"strings"
)

// ErrNoProvider is returned when no API key for any supported provider is
// configured. Components that cannot degrade to an offline path (report
// synthesis) surface this instead of silently doing nothing.
var ErrNoProvider = errors.New("llm: no provider configured")

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Name() string
}

// Embedder converts text into a fixed-length vector. Two vectors are
// comparable only when the same provider and model produced both.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

const (
	DefaultGeminiModel          = "gemini-2.5-flash"
	DefaultGeminiEmbeddingModel = "text-embedding-004"
	DefaultOpenAIModel          = "gpt-4o-mini"
	DefaultOpenAIEmbeddingModel = "text-embedding-3-small"
	DefaultAnthropicModel       = "claude-sonnet-4-20250514"
)

type Config struct {
	GeminiAPIKey    string
	OpenAIAPIKey    string
	AnthropicAPIKey string

	GeminiModel          string
	GeminiEmbeddingModel string
	OpenAIModel          string
	OpenAIEmbeddingModel string
	AnthropicModel       string
}

func (c *Config) fillDefaults() {
	if c.GeminiModel == "" {
		c.GeminiModel = DefaultGeminiModel
	}
	if c.GeminiEmbeddingModel == "" {
		c.GeminiEmbeddingModel = DefaultGeminiEmbeddingModel
	}
	if c.OpenAIModel == "" {
		c.OpenAIModel = DefaultOpenAIModel
	}
	if c.OpenAIEmbeddingModel == "" {
		c.OpenAIEmbeddingModel = DefaultOpenAIEmbeddingModel
	}
	if c.AnthropicModel == "" {
		c.AnthropicModel = DefaultAnthropicModel
	}
}

// Client bundles the selected generation and embedding providers.
// Generation precedence: Gemini, then OpenAI, then Anthropic. Embeddings
// come from the same vendor where one offers them (Anthropic does not, so
// an Anthropic-only configuration carries a nil Embedder and callers fall
// back to offline embeddings).
type Client struct {
	gen Generator
	emb Embedder
}

// NewClient builds a Client from whichever keys are present in cfg.
// It returns ErrNoProvider when no key is configured at all.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	cfg.fillDefaults()
	switch {
	case strings.TrimSpace(cfg.GeminiAPIKey) != "":
		g, err := NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiEmbeddingModel)
		if err != nil {
			return nil, err
		}
		return &Client{gen: g, emb: g}, nil
	case strings.TrimSpace(cfg.OpenAIAPIKey) != "":
		o, err := NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIEmbeddingModel)
		if err != nil {
			return nil, err
		}
		return &Client{gen: o, emb: o}, nil
	case strings.TrimSpace(cfg.AnthropicAPIKey) != "":
		a := NewAnthropicClient(cfg.AnthropicAPIKey, cfg.AnthropicModel)
		return &Client{gen: a}, nil
	default:
		return nil, ErrNoProvider
	}
}

func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	return c.gen.Generate(ctx, prompt)
}

func (c *Client) Name() string { return c.gen.Name() }

// Generator exposes the selected generation provider.
func (c *Client) Generator() Generator { return c.gen }

// Embedder exposes the selected embedding provider, or nil when the
// configured vendor has none.
func (c *Client) Embedder() Embedder { return c.emb }

// HealthCheck issues a trivial generation call to verify the provider is
// reachable and the key is valid.
func (c *Client) HealthCheck(ctx context.Context) error {
	out, err := c.gen.Generate(ctx, "Hello, how are you?")
	if err != nil {
		return err
	}
	if strings.TrimSpace(out) == "" {
		return errors.New("llm: empty health check response")
	}
	return nil
}
