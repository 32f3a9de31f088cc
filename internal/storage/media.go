package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
)

// MediaStore is an opaque blob store for item photos, backed by the
// local filesystem. Blobs live under root/<itemID>/<fileID>. The only
// surface the matching engine consumes is bytes in, bytes out: photos
// go in at report time and come back out to feed the image encoder.
type MediaStore struct {
	root string
}

// NewMediaStore creates the store rooted at the given directory.
func NewMediaStore(root string) (*MediaStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}

	return &MediaStore{root: root}, nil
}

// Save stores a blob for an item and returns its generated file id.
func (s *MediaStore) Save(itemID string, data []byte) (string, error) {
	dir := filepath.Join(s.root, itemID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create item media directory: %w", err)
	}

	fileID := uuid.New().String()
	if err := os.WriteFile(filepath.Join(dir, fileID), data, 0644); err != nil {
		return "", fmt.Errorf("failed to write media blob: %w", err)
	}

	return fileID, nil
}

// Load reads a blob back by item and file id.
func (s *MediaStore) Load(itemID, fileID string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.root, itemID, fileID))
	if err != nil {
		return nil, fmt.Errorf("failed to read media blob: %w", err)
	}

	return data, nil
}

// List returns the file ids stored for an item, sorted for determinism.
// A missing item directory is an empty list, not an error.
func (s *MediaStore) List(itemID string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, itemID))
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}

		return nil, fmt.Errorf("failed to list media: %w", err)
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			ids = append(ids, e.Name())
		}
	}

	sort.Strings(ids)

	return ids, nil
}

// Remove deletes all blobs for an item.
func (s *MediaStore) Remove(itemID string) error {
	return os.RemoveAll(filepath.Join(s.root, itemID))
}
