package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"sync"
	"time"

	"reclaim/internal/config"
	"reclaim/internal/db"
	"reclaim/internal/embeddings"
	"reclaim/internal/match"
	"reclaim/internal/models"
	"reclaim/internal/redaction"
	"reclaim/internal/storage"
)

// Option is a functional option for NewService.
type Option func(*Service)

// WithStore injects a custom db.Store implementation, primarily for testing.
func WithStore(s db.Store) Option {
	return func(svc *Service) { svc.db = s }
}

// WithProvider injects a text embedding provider, bypassing the lazy
// factory. Primarily for testing with a deterministic stub encoder.
func WithProvider(p embeddings.Provider) Option {
	return func(svc *Service) {
		svc.embeddingOnce.Do(func() { svc.embeddingProvider = p })
	}
}

// WithImageProvider injects an image embedding provider.
func WithImageProvider(p embeddings.ImageProvider) Option {
	return func(svc *Service) {
		svc.imageOnce.Do(func() { svc.imageProvider = p })
	}
}

// WithLogger overrides the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(svc *Service) { svc.logger = l }
}

// Service is the match orchestrator and the write path that keeps the
// vector store populated. Each request is an independent, stateless unit
// of work; the only shared state is the lazily initialized providers.
type Service struct {
	home           string
	dbPath         string
	configPath     string
	ignorePath     string
	cachePath      string
	config         *config.Config
	db             db.Store
	media          *storage.MediaStore
	logger         *slog.Logger
	compiledIgnore []*regexp.Regexp // pre-compiled from .reclaimignore

	// Lazy-initialized, protected by sync.Once for safety under concurrent access.
	embeddingOnce     sync.Once
	embeddingProvider embeddings.Provider
	embeddingErr      error

	imageOnce     sync.Once
	imageProvider embeddings.ImageProvider
	imageErr      error
}

// NewService creates a new reclaim service. Pass Option values to
// override defaults (e.g., WithStore for testing).
func NewService(home string, opts ...Option) (*Service, error) {
	if home == "" {
		home = config.GetReclaimHome()
	}

	dbPath := filepath.Join(home, "reclaim.db")
	configPath := filepath.Join(home, "config.yaml")
	ignorePath := filepath.Join(home, ".reclaimignore")
	cachePath := filepath.Join(home, "embedcache.db")
	mediaDir := filepath.Join(home, "media")

	if err := os.MkdirAll(home, 0755); err != nil {
		return nil, fmt.Errorf("failed to create reclaim home: %w", err)
	}

	// Load and validate configuration
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	media, err := storage.NewMediaStore(mediaDir)
	if err != nil {
		return nil, err
	}

	// Load ignore patterns (.reclaimignore missing is fine; other errors are surfaced)
	ignorePatterns, ignoreErr := redaction.LoadIgnoreFile(ignorePath)
	if ignoreErr != nil && !os.IsNotExist(ignoreErr) {
		fmt.Fprintf(os.Stderr, "warning: failed to load .reclaimignore: %v\n", ignoreErr)
	}

	svc := &Service{
		home:           home,
		dbPath:         dbPath,
		configPath:     configPath,
		ignorePath:     ignorePath,
		cachePath:      cachePath,
		config:         cfg,
		media:          media,
		logger:         slog.Default(),
		compiledIgnore: redaction.CompilePatterns(ignorePatterns),
	}

	for _, o := range opts {
		o(svc)
	}

	if svc.db == nil {
		database, err := db.NewDB(dbPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		svc.db = database
	}

	// Make sure the vector indexes exist for the configured dimensions.
	// Failure degrades to the brute-force path instead of blocking startup.
	imageDim := 0
	if cfg.Image.Enabled {
		imageDim = cfg.Image.Dim
	}
	if err := svc.db.EnsureVecTables(cfg.Embedding.Dim, imageDim); err != nil {
		svc.logger.Warn("vector index unavailable, matches will use the scan path", "error", err)
	}

	return svc, nil
}

// Config returns the loaded configuration.
func (s *Service) Config() *config.Config {
	return s.config
}

// GetEmbeddingProvider returns the text embedding provider, lazily
// initializing (and wrapping with the on-disk cache) if needed.
// Safe for concurrent use.
func (s *Service) GetEmbeddingProvider() (embeddings.Provider, error) {
	s.embeddingOnce.Do(func() {
		provider, err := embeddings.NewProvider(s.config.Embedding)
		if err != nil {
			s.embeddingErr = err
			return
		}

		if s.config.Cache.Enabled {
			cached, err := embeddings.NewCachedProvider(s.cachePath, provider)
			if err != nil {
				s.logger.Warn("embedding cache unavailable, continuing without it", "error", err)
			} else {
				provider = cached
			}
		}

		s.embeddingProvider = provider
	})
	return s.embeddingProvider, s.embeddingErr
}

// GetImageProvider returns the image encoder, or (nil, nil) when image
// matching is disabled. Safe for concurrent use.
func (s *Service) GetImageProvider() (embeddings.ImageProvider, error) {
	s.imageOnce.Do(func() {
		s.imageProvider, s.imageErr = embeddings.NewImageProvider(s.config.Image)
	})
	return s.imageProvider, s.imageErr
}

// Report creates a new lost or found item. The text embedding is
// computed best-effort: encoder failure leaves an empty vector and a
// zero dimension, it never fails item creation. Photo bytes are stored
// as opaque blobs and averaged into a single image embedding when the
// image encoder is configured.
func (s *Service) Report(ctx context.Context, raw models.RawItemInput, media [][]byte) (*models.Item, error) {
	if err := validateInput(raw); err != nil {
		return nil, err
	}

	// Contact details are exchanged in chat after a match, never stored
	// in the listing or fed to the encoder.
	raw.Name = redaction.RedactCompiled(raw.Name, s.compiledIgnore)
	raw.Description = redaction.RedactCompiled(raw.Description, s.compiledIgnore)
	raw.Location = redaction.RedactCompiled(raw.Location, s.compiledIgnore)

	item := models.FromRaw(raw)

	if provider, err := s.GetEmbeddingProvider(); err != nil {
		s.logger.Warn("item created without embedding: no encoder", "item", item.ID, "error", err)
	} else {
		vec, embedErr := embeddings.EmbedItem(ctx, provider, itemText(&item))
		if embedErr != nil {
			s.logger.Warn("item created without embedding", "item", item.ID, "error", embedErr)
		} else if len(vec) > 0 {
			item.DescriptionEmbedding = vec
			item.EmbeddingModel = provider.ModelID()
			item.EmbeddingDim = provider.Dim()
		}
	}

	if imageProvider, err := s.GetImageProvider(); err == nil && imageProvider != nil && len(media) > 0 {
		vecs := make([][]float32, 0, len(media))
		for _, blob := range media {
			vec, embedErr := imageProvider.EmbedImage(ctx, blob)
			if embedErr != nil {
				s.logger.Warn("photo skipped for image embedding", "item", item.ID, "error", embedErr)
				continue
			}
			if len(vec) != imageProvider.Dim() {
				s.logger.Warn("photo skipped for image embedding: dimension mismatch",
					"item", item.ID, "got", len(vec), "want", imageProvider.Dim())
				continue
			}
			vecs = append(vecs, embeddings.Normalize(vec))
		}
		item.ImageEmbedding = embeddings.MeanUnit(vecs)
	}

	if _, err := s.db.InsertItem(item); err != nil {
		return nil, fmt.Errorf("failed to insert item: %w", err)
	}

	for _, blob := range media {
		if _, err := s.media.Save(item.ID, blob); err != nil {
			s.logger.Warn("failed to store photo", "item", item.ID, "error", err)
		}
	}

	return &item, nil
}

// FindMatches is the single public match operation: rank Found items
// against the given Lost item.
//
// limit <= 0 requests the configured default; anything above the
// configured maximum is clamped. Repeated calls with an unchanged corpus
// return the same ranking.
func (s *Service) FindMatches(ctx context.Context, itemID string, limit int) (models.MatchResult, error) {
	empty := models.MatchResult{Matches: []models.Match{}}

	item, err := s.db.GetItem(itemID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return empty, fmt.Errorf("%w: %s", ErrNotFound, itemID)
		}
		return empty, err
	}

	// Matching is only meaningful for active lost-item queries.
	if item.Status != models.StatusLost || item.IsRetrieved {
		return empty, nil
	}

	provider, err := s.GetEmbeddingProvider()
	if err != nil {
		return empty, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}

	timeout := time.Duration(s.config.Matching.TimeoutSeconds) * time.Second
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Freshness: re-embed when the stored vector predates the current
	// model configuration. This is the one point where encoder failure
	// is fatal; without a query vector there is nothing to search with.
	if !item.FreshFor(provider.ModelID(), provider.Dim()) {
		vec, embedErr := embeddings.EmbedItem(ctx, provider, itemText(item))
		if embedErr != nil {
			return empty, fmt.Errorf("%w: %v", ErrServiceUnavailable, embedErr)
		}

		if len(vec) == 0 {
			// All text fields blank: no signal to search with.
			return empty, nil
		}

		if err := s.db.UpdateEmbedding(item.ID, vec, provider.ModelID(), provider.Dim()); err != nil {
			// Concurrent refreshes converge on the same vector; a lost
			// write is not worth failing the request over.
			s.logger.Warn("failed to persist refreshed embedding", "item", item.ID, "error", err)
		}

		item.DescriptionEmbedding = vec
		item.EmbeddingModel = provider.ModelID()
		item.EmbeddingDim = provider.Dim()
	}

	retriever := &match.FallbackRetriever{
		Primary: &match.IndexedRetriever{
			Store: s.db,
			Pool:  s.config.Matching.CandidatePool,
			Cap:   s.config.Matching.StageCap,
		},
		Fallback: &match.BruteForceRetriever{
			Store:    s.db,
			Provider: provider,
			Logger:   s.logger,
		},
		Logger: s.logger,
	}

	candidates, err := retriever.Retrieve(ctx, item)
	if err != nil {
		return empty, fmt.Errorf("candidate retrieval failed: %w", err)
	}

	result := match.Rank(*item, candidates, match.Options{
		TextWeight:   s.config.Matching.TextWeight,
		ImageWeight:  s.config.Matching.ImageWeight,
		MinScore:     s.config.Matching.MinScore,
		Limit:        limit,
		DefaultLimit: s.config.Matching.DefaultLimit,
		MaxLimit:     s.config.Matching.MaxLimit,
	})

	return result, nil
}

// GetItem returns a single item by id.
func (s *Service) GetItem(itemID string) (*models.Item, error) {
	item, err := s.db.GetItem(itemID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, itemID)
		}
		return nil, err
	}

	return item, nil
}

// Feed lists Found, unretrieved items, newest first.
func (s *Service) Feed(limit int) ([]models.Item, error) {
	if limit <= 0 {
		limit = s.config.Matching.DefaultLimit
	}

	return s.db.ListFeed(limit)
}

// MarkRetrieved completes an item's lifecycle, removing it from future
// candidate pools.
func (s *Service) MarkRetrieved(itemID string) error {
	err := s.db.SetRetrieved(itemID, true)
	if errors.Is(err, db.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, itemID)
	}

	return err
}

// Remove deletes an item and its stored photos.
func (s *Service) Remove(itemID string) (bool, error) {
	deleted, err := s.db.DeleteItem(itemID)
	if err != nil {
		return false, err
	}

	if deleted {
		if err := s.media.Remove(itemID); err != nil {
			s.logger.Warn("failed to remove photos", "item", itemID, "error", err)
		}
	}

	return deleted, nil
}

// CountItems returns the total number of reported items.
func (s *Service) CountItems() (int64, error) {
	return s.db.CountItems()
}

// ReindexSummary reports the outcome of a full re-embed run.
type ReindexSummary struct {
	Total    int
	Embedded int
	Skipped  int
	Model    string
	Dim      int
}

// Reindex rebuilds the vector indexes with the current embedding model,
// re-embedding every item's text. Stored image vectors are re-inserted
// into the rebuilt image index; photos are not re-encoded. Per-item
// failures are skipped and counted, never fatal.
func (s *Service) Reindex(ctx context.Context, progressCallback func(current, total int)) (*ReindexSummary, error) {
	provider, err := s.GetEmbeddingProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get embedding provider: %w", err)
	}

	imageDim := 0
	if s.config.Image.Enabled {
		imageDim = s.config.Image.Dim
	}

	if err := s.db.DropVecTables(); err != nil {
		return nil, err
	}
	if err := s.db.EnsureVecTables(provider.Dim(), imageDim); err != nil {
		return nil, err
	}

	items, err := s.db.ListAllForReindex()
	if err != nil {
		return nil, err
	}

	summary := &ReindexSummary{
		Total: len(items),
		Model: provider.ModelID(),
		Dim:   provider.Dim(),
	}

	for i := range items {
		item := &items[i]

		vec, embedErr := embeddings.EmbedItem(ctx, provider, itemText(item))
		if embedErr != nil || len(vec) == 0 {
			summary.Skipped++
		} else {
			if err := s.db.UpdateEmbedding(item.ID, vec, provider.ModelID(), provider.Dim()); err != nil {
				s.logger.Warn("failed to persist re-embedded vector", "item", item.ID, "error", err)
				summary.Skipped++
			} else {
				summary.Embedded++
			}
		}

		if imageDim > 0 && item.HasImageVector() && len(item.ImageEmbedding) == imageDim {
			if err := s.db.UpdateImageEmbedding(item.ID, item.ImageEmbedding); err != nil {
				s.logger.Warn("failed to reindex image vector", "item", item.ID, "error", err)
			}
		}

		if progressCallback != nil {
			progressCallback(i+1, summary.Total)
		}
	}

	return summary, nil
}

// Close closes the service and cleans up resources.
func (s *Service) Close() error {
	var errs []error

	if closer, ok := s.embeddingProvider.(interface{ Close() error }); ok {
		errs = append(errs, closer.Close())
	}

	if s.db != nil {
		errs = append(errs, s.db.Close())
	}

	return errors.Join(errs...)
}

// Helper functions

func itemText(it *models.Item) embeddings.ItemText {
	return embeddings.ItemText{
		Name:        it.Name,
		SubCategory: it.SubCategory,
		Description: it.Description,
		Location:    it.Location,
	}
}

func validateInput(raw models.RawItemInput) error {
	if !slices.Contains(models.ValidStatuses, raw.Status) {
		return &ErrValidation{Field: "status", Message: "must be Lost or Found"}
	}
	if raw.Name == "" {
		return &ErrValidation{Field: "name", Message: "must not be empty"}
	}
	if raw.Description == "" {
		return &ErrValidation{Field: "description", Message: "must not be empty"}
	}
	if raw.Location == "" {
		return &ErrValidation{Field: "location", Message: "must not be empty"}
	}
	if raw.ReportedBy == "" {
		return &ErrValidation{Field: "reportedBy", Message: "must not be empty"}
	}
	if raw.MainCategory != "" && !slices.Contains(models.ValidCategories, raw.MainCategory) {
		return &ErrValidation{Field: "mainCategory", Message: "unknown category"}
	}
	return nil
}
