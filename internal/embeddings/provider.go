package embeddings

import (
	"context"
	"errors"
)

// ErrUnavailable is returned when an embedding backend cannot be reached
// or refuses the request. Callers decide whether that is fatal: item
// creation proceeds without a vector, a match request cannot.
var ErrUnavailable = errors.New("embedding backend unavailable")

// Provider defines the interface for text embedding providers.
//
// ModelID and Dim identify the encoder; both are persisted alongside
// every vector the provider produces so stale embeddings can be
// detected when the model configuration changes.
type Provider interface {
	// Embed generates an embedding vector for the given text
	Embed(ctx context.Context, text string) ([]float32, error)
	// ModelID returns the stable identifier of the underlying model
	ModelID() string
	// Dim returns the model's output dimension
	Dim() int
}

// ImageProvider defines the interface for image embedding providers.
type ImageProvider interface {
	// EmbedImage generates an embedding vector for raw image bytes
	EmbedImage(ctx context.Context, data []byte) ([]float32, error)
	ModelID() string
	Dim() int
}
