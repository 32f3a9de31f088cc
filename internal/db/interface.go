package db

import (
	"context"
	"errors"

	"reclaim/internal/models"
)

// ErrNotFound is returned when a requested item does not exist in the database.
var ErrNotFound = errors.New("item not found")

// ErrDimensionMismatch is returned when the embedding dimension stored in the
// database does not match the dimension of the current provider.
// The caller should advise the user to run 'reclaim reindex'.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// ErrIndexUnavailable is returned when a vector search is attempted but the
// corresponding vec table has not been created. Retrieval treats it as a
// degraded backend and falls back to the brute-force scan.
var ErrIndexUnavailable = errors.New("vector index unavailable")

// VectorHit is one indexed nearest-neighbor result: an item projection
// (without its raw vectors) plus the backend's similarity score.
type VectorHit struct {
	Item  models.Item
	Score float64
}

// Store is the persistence interface the matching engine relies on.
// *DB implements this interface; test code can inject a stub.
type Store interface {
	InsertItem(item models.Item) (int64, error)
	GetItem(itemID string) (*models.Item, error)
	UpdateEmbedding(itemID string, vector []float32, model string, dim int) error
	UpdateImageEmbedding(itemID string, vector []float32) error
	SetRetrieved(itemID string, retrieved bool) error
	DeleteItem(itemID string) (bool, error)

	// ListCandidates feeds the brute-force fallback; it may return the
	// whole corpus, vectors included. It and the vector searches take a
	// context so the match request's deadline bounds retrieval too.
	ListCandidates(ctx context.Context, status string, isRetrieved bool) ([]models.Item, error)
	ListFeed(limit int) ([]models.Item, error)
	ListAllForReindex() ([]models.Item, error)
	CountItems() (int64, error)

	TextVectorSearch(ctx context.Context, query []float32, pool int, resultCap int, status string, isRetrieved bool) ([]VectorHit, error)
	ImageVectorSearch(ctx context.Context, query []float32, pool int, resultCap int, status string, isRetrieved bool) ([]VectorHit, error)
	EnsureVecTables(textDim, imageDim int) error
	DropVecTables() error

	Close() error
}
