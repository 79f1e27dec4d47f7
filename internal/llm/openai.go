package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// OpenAIClient serves both generation and embeddings through langchaingo's
// OpenAI bindings.
type OpenAIClient struct {
	llm   *openai.LLM
	model string
}

func NewOpenAIClient(apiKey, model, embeddingModel string) (*OpenAIClient, error) {
	llm, err := openai.New(
		openai.WithToken(apiKey),
		openai.WithModel(model),
		openai.WithEmbeddingModel(embeddingModel),
	)
	if err != nil {
		return nil, fmt.Errorf("openai client: %w", err)
	}
	return &OpenAIClient{llm: llm, model: model}, nil
}

func (o *OpenAIClient) Name() string { return o.model }

func (o *OpenAIClient) Generate(ctx context.Context, prompt string) (string, error) {
	out, err := llms.GenerateFromSinglePrompt(ctx, o.llm, prompt, llms.WithTemperature(0.2))
	if err != nil {
		return "", fmt.Errorf("openai generate: %w", err)
	}
	return out, nil
}

func (o *OpenAIClient) Embed(ctx context.Context, text string) ([]float64, error) {
	vectors, err := o.llm.CreateEmbedding(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("openai embed: %w", err)
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, errors.New("openai embed: empty embedding")
	}
	out := make([]float64, len(vectors[0]))
	for i, v := range vectors[0] {
		out[i] = float64(v)
	}
	return out, nil
}
