package embeddings

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"
)

var cacheBucket = []byte("embeddings")

// CachedProvider wraps a Provider with a persistent bbolt cache. The key
// includes the model identifier, so switching models never serves stale
// vectors; entries for retired models are simply never read again.
//
// Embeddings are deterministic per model, so entries need no TTL.
type CachedProvider struct {
	inner Provider
	db    *bbolt.DB
}

// NewCachedProvider opens (or creates) the cache file at path and wraps
// the given provider.
func NewCachedProvider(path string, inner Provider) (*CachedProvider, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open embedding cache: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(cacheBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to init embedding cache: %w", err)
	}

	return &CachedProvider{inner: inner, db: db}, nil
}

// ModelID returns the wrapped provider's model identifier.
func (c *CachedProvider) ModelID() string { return c.inner.ModelID() }

// Dim returns the wrapped provider's output dimension.
func (c *CachedProvider) Dim() int { return c.inner.Dim() }

// Embed returns the cached vector for (model, text) or computes and
// stores it. Cache write failures are ignored: the vector is still valid.
func (c *CachedProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	key := c.cacheKey(text)

	var cached []float32
	_ = c.db.View(func(tx *bbolt.Tx) error {
		if raw := tx.Bucket(cacheBucket).Get(key); raw != nil {
			return json.Unmarshal(raw, &cached)
		}
		return nil
	})
	if cached != nil {
		return cached, nil
	}

	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(vec); err == nil {
		_ = c.db.Update(func(tx *bbolt.Tx) error {
			return tx.Bucket(cacheBucket).Put(key, raw)
		})
	}

	return vec, nil
}

// Close closes the underlying cache file.
func (c *CachedProvider) Close() error {
	return c.db.Close()
}

func (c *CachedProvider) cacheKey(text string) []byte {
	h := sha256.New()
	h.Write([]byte(c.inner.ModelID()))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return h.Sum(nil)
}
