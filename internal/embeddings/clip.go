package embeddings

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ClipServerProvider talks to a CLIP inference server over HTTP. The
// server is expected to accept a base64-encoded image and return the
// pooled feature vector, e.g. a clip-as-service style deployment.
type ClipServerProvider struct {
	model   string
	baseURL string
	dim     int
	client  *http.Client
}

// NewClipServerProvider creates a new CLIP server client.
func NewClipServerProvider(model string, baseURL string, dim int) *ClipServerProvider {
	return &ClipServerProvider{
		model:   model,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		dim:     dim,
		client:  &http.Client{},
	}
}

type clipEmbedRequest struct {
	Model string `json:"model"`
	Image string `json:"image"`
}

type clipEmbedResponse struct {
	Embedding []float64 `json:"embedding"`
}

// ModelID returns the configured CLIP model name.
func (p *ClipServerProvider) ModelID() string { return p.model }

// Dim returns the configured output dimension.
func (p *ClipServerProvider) Dim() int { return p.dim }

// EmbedImage generates an embedding vector for raw image bytes.
func (p *ClipServerProvider) EmbedImage(ctx context.Context, data []byte) ([]float32, error) {
	url := p.baseURL + "/embed/image"

	jsonData, err := json.Marshal(clipEmbedRequest{
		Model: p.model,
		Image: base64.StdEncoding.EncodeToString(data),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)

		return nil, fmt.Errorf("%w: clip server returned status %d: %s", ErrUnavailable, resp.StatusCode, string(body))
	}

	var response clipEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	embedding := make([]float32, len(response.Embedding))
	for i, v := range response.Embedding {
		embedding[i] = float32(v)
	}

	return embedding, nil
}
