package match

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"reclaim/internal/db"
	"reclaim/internal/embeddings"
	"reclaim/internal/models"
)

// Retriever produces a bounded candidate set of Found, unretrieved items
// plausibly similar to the query item's vectors.
type Retriever interface {
	Retrieve(ctx context.Context, query *models.Item) ([]Candidate, error)
}

// IndexedRetriever is the primary path: KNN search against the vec0
// indexes. Text and image searches run concurrently and are merged by
// item id. Any backend error is returned to the caller, which is
// expected to fall back rather than fail the match request.
type IndexedRetriever struct {
	Store db.Store
	Pool  int // candidate pool size hint for the KNN stage
	Cap   int // hard result cap per modality
}

// Retrieve runs the indexed searches for the query item.
func (r *IndexedRetriever) Retrieve(ctx context.Context, query *models.Item) ([]Candidate, error) {
	var textHits, imageHits []db.VectorHit

	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		var err error
		textHits, err = r.Store.TextVectorSearch(ctx, query.DescriptionEmbedding, r.Pool, r.Cap, models.StatusFound, false)
		return err
	})

	if query.HasImageVector() {
		eg.Go(func() error {
			var err error
			imageHits, err = r.Store.ImageVectorSearch(ctx, query.ImageEmbedding, r.Pool, r.Cap, models.StatusFound, false)
			return err
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return mergeHits(textHits, imageHits), nil
}

// mergeHits merges per-modality hit lists into one candidate per item id.
// A candidate may carry a text score, an image score, or both. Merge
// order is text hits first, then image hits, so candidates keep a stable
// retrieval order for the stable sort downstream.
func mergeHits(textHits, imageHits []db.VectorHit) []Candidate {
	index := make(map[string]int, len(textHits))
	merged := make([]Candidate, 0, len(textHits)+len(imageHits))

	for _, h := range textHits {
		if i, ok := index[h.Item.ID]; ok {
			merged[i].TextScore = h.Score
			continue
		}

		index[h.Item.ID] = len(merged)
		merged = append(merged, Candidate{Item: h.Item, TextScore: h.Score})
	}

	for _, h := range imageHits {
		if i, ok := index[h.Item.ID]; ok {
			merged[i].ImageScore = h.Score
			merged[i].HasImageScore = true
			continue
		}

		index[h.Item.ID] = len(merged)
		merged = append(merged, Candidate{Item: h.Item, ImageScore: h.Score, HasImageScore: true})
	}

	return merged
}

// BruteForceRetriever is the correctness baseline: it scans every
// eligible candidate, lazily re-embedding stale ones, and scores by
// cosine similarity. Same ranking semantics as the indexed path, worse
// latency.
type BruteForceRetriever struct {
	Store    db.Store
	Provider embeddings.Provider
	Logger   *slog.Logger
}

// Retrieve scans the full candidate pool.
func (r *BruteForceRetriever) Retrieve(ctx context.Context, query *models.Item) ([]Candidate, error) {
	items, err := r.Store.ListCandidates(ctx, models.StatusFound, false)
	if err != nil {
		return nil, err
	}

	model := r.Provider.ModelID()
	dim := r.Provider.Dim()
	queryHasImage := query.HasImageVector()

	candidates := make([]Candidate, 0, len(items))

	for i := range items {
		item := items[i]

		// Lazy backfill: recompute and persist stale embeddings before
		// scoring. A single bad candidate is skipped, never fatal.
		if !item.FreshFor(model, dim) {
			vec, err := embeddings.EmbedItem(ctx, r.Provider, embeddings.ItemText{
				Name:        item.Name,
				SubCategory: item.SubCategory,
				Description: item.Description,
				Location:    item.Location,
			})
			if err != nil {
				r.logger().Warn("skipping candidate: re-embed failed",
					"item", item.ID, "error", err)
				continue
			}

			if len(vec) == 0 {
				// No text, no signal.
				continue
			}

			if err := r.Store.UpdateEmbedding(item.ID, vec, model, dim); err != nil {
				// The vector is still valid for this request.
				r.logger().Warn("failed to persist re-embedded vector",
					"item", item.ID, "error", err)
			}

			item.DescriptionEmbedding = vec
			item.EmbeddingModel = model
			item.EmbeddingDim = dim
		}

		if len(item.DescriptionEmbedding) == 0 {
			continue
		}

		c := Candidate{
			Item:      item,
			TextScore: embeddings.Cosine(query.DescriptionEmbedding, item.DescriptionEmbedding),
		}

		if queryHasImage && item.HasImageVector() {
			c.ImageScore = embeddings.Cosine(query.ImageEmbedding, item.ImageEmbedding)
			c.HasImageScore = true
		}

		candidates = append(candidates, c)
	}

	return candidates, nil
}

func (r *BruteForceRetriever) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

// FallbackRetriever composes the two strategies: try the indexed path,
// fall back to the brute-force scan when it errors or comes back empty.
// An empty indexed result cannot be distinguished from a missing or
// half-built index, and an index outage must never turn into an empty
// match result when a full scan could have served real matches.
type FallbackRetriever struct {
	Primary  Retriever
	Fallback Retriever
	Logger   *slog.Logger
}

// Retrieve tries the primary path, then the fallback.
func (r *FallbackRetriever) Retrieve(ctx context.Context, query *models.Item) ([]Candidate, error) {
	candidates, err := r.Primary.Retrieve(ctx, query)
	if err == nil && len(candidates) > 0 {
		return candidates, nil
	}

	if err != nil {
		r.logger().Warn("indexed retrieval degraded, falling back to scan", "error", err)
	}

	return r.Fallback.Retrieve(ctx, query)
}

func (r *FallbackRetriever) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}
