package embeddings

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIProvider implements embedding generation using the OpenAI SDK.
// Also works with OpenRouter and other OpenAI-compatible APIs via base_url.
type OpenAIProvider struct {
	model  string
	dim    int
	client openai.Client
}

// NewOpenAIProvider creates a new OpenAI embedding provider.
// baseURL is optional; defaults to https://api.openai.com/v1.
func NewOpenAIProvider(model string, apiKey string, baseURL string, dim int) *OpenAIProvider {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimSuffix(baseURL, "/")))
	}
	return &OpenAIProvider{
		model:  model,
		dim:    dim,
		client: openai.NewClient(opts...),
	}
}

// ModelID returns the configured model name.
func (p *OpenAIProvider) ModelID() string { return p.model }

// Dim returns the configured output dimension.
func (p *OpenAIProvider) Dim() int { return p.dim }

// Embed generates an embedding vector using the OpenAI embeddings API.
func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := p.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(p.model),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: []string{text},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("no embedding data in response")
	}

	raw := resp.Data[0].Embedding
	result := make([]float32, len(raw))
	for i, v := range raw {
		result[i] = float32(v)
	}
	return result, nil
}
