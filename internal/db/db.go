package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	// used to import sqlite vec bindings.
	_ "github.com/asg017/sqlite-vec-go-bindings/ncruces"
	"github.com/ncruces/go-sqlite3/gormlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"reclaim/internal/models"
)

// Compile-time check that *DB satisfies the Store interface.
var _ Store = (*DB)(nil)

const (
	textVecTable  = "items_text_vec"
	imageVecTable = "items_image_vec"

	metaTextDim  = "text_embedding_dim"
	metaImageDim = "image_embedding_dim"
)

// DB wraps the database connection and provides methods for item and
// vector persistence.
type DB struct {
	db *gorm.DB
}

// NewDB creates a new database connection.
func NewDB(dbPath string) (*DB, error) {
	dsn := "file:" + dbPath + "?_pragma=foreign_keys(1)"

	gormDB, err := gorm.Open(gormlite.Open(dsn), &gorm.Config{
		Logger: logger.Discard,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm connection: %w", err)
	}

	db := &DB{db: gormDB}
	if err := db.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

// InsertItem inserts an item and, when vectors are present and the vec
// tables exist, the indexed copies of its embeddings.
func (d *DB) InsertItem(item models.Item) (int64, error) {
	descJSON, err := marshalVector(item.DescriptionEmbedding)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal description embedding: %w", err)
	}

	imageJSON, err := marshalVector(item.ImageEmbedding)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal image embedding: %w", err)
	}

	itemModel := ItemModel{}
	itemModel.FromItem(item, descJSON, imageJSON)

	var rowid int64

	err = d.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&itemModel).Error; err != nil {
			return err
		}

		if err := tx.Raw("SELECT rowid FROM items WHERE id = ?", item.ID).Scan(&rowid).Error; err != nil {
			return err
		}

		if len(item.DescriptionEmbedding) > 0 && d.hasVecTable(textVecTable) {
			if err := insertVecRow(tx, textVecTable, rowid, item.DescriptionEmbedding); err != nil {
				return err
			}
		}

		if len(item.ImageEmbedding) > 0 && d.hasVecTable(imageVecTable) {
			if err := insertVecRow(tx, imageVecTable, rowid, item.ImageEmbedding); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	return rowid, nil
}

// GetItem gets an item by ID, vectors included.
func (d *DB) GetItem(itemID string) (*models.Item, error) {
	var itemModel ItemModel
	if err := d.db.Where("id = ?", itemID).First(&itemModel).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, itemID)
		}

		return nil, err
	}

	item := d.decodeItem(&itemModel)

	return &item, nil
}

// UpdateEmbedding atomically updates the description embedding together
// with the model identifier and dimension that produced it, and refreshes
// the indexed copy. A vector is never persisted with a mismatched
// model/dim pair.
func (d *DB) UpdateEmbedding(itemID string, vector []float32, model string, dim int) error {
	descJSON, err := marshalVector(vector)
	if err != nil {
		return fmt.Errorf("failed to marshal embedding: %w", err)
	}

	return d.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&ItemModel{}).Where("id = ?", itemID).Updates(map[string]any{
			"description_embedding": descJSON,
			"embedding_model":       model,
			"embedding_dim":         dim,
			"updated_at":            time.Now().UTC().Format(time.RFC3339),
		})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: %s", ErrNotFound, itemID)
		}

		if !d.hasVecTable(textVecTable) {
			return nil
		}

		var rowid int64
		if err := tx.Raw("SELECT rowid FROM items WHERE id = ?", itemID).Scan(&rowid).Error; err != nil {
			return err
		}

		if err := tx.Exec(fmt.Sprintf("DELETE FROM %s WHERE rowid = ?", textVecTable), rowid).Error; err != nil {
			return err
		}

		if len(vector) == 0 {
			return nil
		}

		return insertVecRow(tx, textVecTable, rowid, vector)
	})
}

// UpdateImageEmbedding updates an item's image embedding and its indexed copy.
func (d *DB) UpdateImageEmbedding(itemID string, vector []float32) error {
	imageJSON, err := marshalVector(vector)
	if err != nil {
		return fmt.Errorf("failed to marshal image embedding: %w", err)
	}

	return d.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&ItemModel{}).Where("id = ?", itemID).Updates(map[string]any{
			"image_embedding": imageJSON,
			"updated_at":      time.Now().UTC().Format(time.RFC3339),
		})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: %s", ErrNotFound, itemID)
		}

		if !d.hasVecTable(imageVecTable) {
			return nil
		}

		var rowid int64
		if err := tx.Raw("SELECT rowid FROM items WHERE id = ?", itemID).Scan(&rowid).Error; err != nil {
			return err
		}

		if err := tx.Exec(fmt.Sprintf("DELETE FROM %s WHERE rowid = ?", imageVecTable), rowid).Error; err != nil {
			return err
		}

		if len(vector) == 0 {
			return nil
		}

		return insertVecRow(tx, imageVecTable, rowid, vector)
	})
}

// SetRetrieved marks an item's lifecycle as complete (or reopens it),
// removing it from (or returning it to) future candidate pools.
func (d *DB) SetRetrieved(itemID string, retrieved bool) error {
	result := d.db.Model(&ItemModel{}).Where("id = ?", itemID).Updates(map[string]any{
		"is_retrieved": retrieved,
		"updated_at":   time.Now().UTC().Format(time.RFC3339),
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, itemID)
	}

	return nil
}

// DeleteItem deletes an item and its indexed vectors.
func (d *DB) DeleteItem(itemID string) (bool, error) {
	var rowid int64

	err := d.db.Raw("SELECT rowid FROM items WHERE id = ?", itemID).Scan(&rowid).Error
	if err != nil || rowid == 0 {
		return false, err
	}

	err = d.db.Transaction(func(tx *gorm.DB) error {
		for _, table := range []string{textVecTable, imageVecTable} {
			if d.hasVecTable(table) {
				if err := tx.Exec(fmt.Sprintf("DELETE FROM %s WHERE rowid = ?", table), rowid).Error; err != nil {
					return err
				}
			}
		}

		return tx.Where("id = ?", itemID).Delete(&ItemModel{}).Error
	})
	if err != nil {
		return false, err
	}

	return true, nil
}

// ListCandidates lists all items matching the status/isRetrieved filter,
// vectors included. This feeds the brute-force fallback scan and may
// return the whole corpus.
func (d *DB) ListCandidates(ctx context.Context, status string, isRetrieved bool) ([]models.Item, error) {
	var itemModels []ItemModel
	if err := d.db.WithContext(ctx).Where("status = ? AND is_retrieved = ?", status, isRetrieved).
		Order("created_at DESC").Find(&itemModels).Error; err != nil {
		return nil, err
	}

	items := make([]models.Item, len(itemModels))
	for i := range itemModels {
		items[i] = d.decodeItem(&itemModels[i])
	}

	return items, nil
}

// ListFeed lists Found, unretrieved items, newest first.
func (d *DB) ListFeed(limit int) ([]models.Item, error) {
	var itemModels []ItemModel
	if err := d.db.Where("status = ? AND is_retrieved = ?", models.StatusFound, false).
		Order("created_at DESC").Limit(limit).Find(&itemModels).Error; err != nil {
		return nil, err
	}

	items := make([]models.Item, len(itemModels))
	for i := range itemModels {
		items[i] = d.decodeItem(&itemModels[i])
	}

	return items, nil
}

// ListAllForReindex lists every item ordered by rowid.
func (d *DB) ListAllForReindex() ([]models.Item, error) {
	var itemModels []ItemModel
	if err := d.db.Order("rowid").Find(&itemModels).Error; err != nil {
		return nil, err
	}

	items := make([]models.Item, len(itemModels))
	for i := range itemModels {
		items[i] = d.decodeItem(&itemModels[i])
	}

	return items, nil
}

// CountItems counts all items.
func (d *DB) CountItems() (int64, error) {
	var count int64
	if err := d.db.Model(&ItemModel{}).Count(&count).Error; err != nil {
		return 0, err
	}

	return count, nil
}

// TextVectorSearch runs a KNN search over the text vector index.
func (d *DB) TextVectorSearch(ctx context.Context, query []float32, pool int, resultCap int, status string, isRetrieved bool) ([]VectorHit, error) {
	return d.vectorSearch(ctx, textVecTable, query, pool, resultCap, status, isRetrieved)
}

// ImageVectorSearch runs a KNN search over the image vector index.
func (d *DB) ImageVectorSearch(ctx context.Context, query []float32, pool int, resultCap int, status string, isRetrieved bool) ([]VectorHit, error) {
	return d.vectorSearch(ctx, imageVecTable, query, pool, resultCap, status, isRetrieved)
}

// vectorSearch performs the KNN query (must use raw SQL for vec0). The
// KNN stage retrieves `pool` neighbors; the status/isRetrieved filter is
// applied afterwards and the result truncated to `resultCap`, mirroring an
// index-then-filter search pipeline.
func (d *DB) vectorSearch(ctx context.Context, table string, query []float32, pool int, resultCap int, status string, isRetrieved bool) ([]VectorHit, error) {
	if !d.hasVecTable(table) {
		return nil, fmt.Errorf("%w: %s", ErrIndexUnavailable, table)
	}

	embeddingBytes, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query embedding: %w", err)
	}

	var rows []struct {
		ID           string
		Status       string
		Name         string
		Description  string
		MainCategory string
		SubCategory  string
		Location     string
		ReportedBy   string
		IsRetrieved  bool
		CreatedAt    string
		Distance     float64
	}

	err = d.db.WithContext(ctx).Raw(fmt.Sprintf(`
		SELECT m.id, m.status, m.name, m.description, m.main_category, m.sub_category,
		       m.location, m.reported_by, m.is_retrieved, m.created_at,
		       v.distance
		FROM (
			SELECT rowid, distance FROM %s
			WHERE embedding MATCH ? AND k = ?
		) v
		JOIN items m ON m.rowid = v.rowid
		WHERE m.status = ? AND m.is_retrieved = ?
		ORDER BY v.distance
		LIMIT ?
	`, table), string(embeddingBytes), pool, status, isRetrieved, resultCap).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	hits := make([]VectorHit, len(rows))

	for i, row := range rows {
		hits[i] = VectorHit{
			Item: models.Item{
				ID:           row.ID,
				Status:       row.Status,
				Name:         row.Name,
				Description:  row.Description,
				MainCategory: row.MainCategory,
				SubCategory:  row.SubCategory,
				Location:     row.Location,
				ReportedBy:   row.ReportedBy,
				IsRetrieved:  row.IsRetrieved,
				CreatedAt:    row.CreatedAt,
			},
			// vec tables are declared with cosine distance, so this is
			// exactly cosine similarity for unit vectors.
			Score: 1.0 - row.Distance,
		}
	}

	return hits, nil
}

// EnsureVecTables ensures both vector tables exist with the expected
// dimensions. imageDim <= 0 skips the image table.
func (d *DB) EnsureVecTables(textDim, imageDim int) error {
	if err := d.ensureVecTable(textVecTable, metaTextDim, textDim); err != nil {
		return err
	}

	if imageDim > 0 {
		return d.ensureVecTable(imageVecTable, metaImageDim, imageDim)
	}

	return nil
}

// DropVecTables drops both vector tables and their recorded dimensions.
func (d *DB) DropVecTables() error {
	for _, table := range []string{textVecTable, imageVecTable} {
		if err := d.db.Exec("DROP TABLE IF EXISTS " + table).Error; err != nil {
			return err
		}
	}

	return d.db.Where("key IN ?", []string{metaTextDim, metaImageDim}).Delete(&MetaModel{}).Error
}

// Close closes the database connection.
func (d *DB) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

// migrate runs database migrations using GORM AutoMigrate.
func (d *DB) migrate() error {
	if err := d.db.AutoMigrate(&ItemModel{}, &MetaModel{}); err != nil {
		return fmt.Errorf("failed to auto-migrate: %w", err)
	}

	// Recreate vec tables if their dimensions are already recorded
	if dim := d.getMetaDim(metaTextDim); dim != nil {
		if err := d.createVecTable(textVecTable, *dim); err != nil {
			return err
		}
	}

	if dim := d.getMetaDim(metaImageDim); dim != nil {
		if err := d.createVecTable(imageVecTable, *dim); err != nil {
			return err
		}
	}

	return nil
}

func (d *DB) ensureVecTable(table, metaKey string, dim int) error {
	storedDim := d.getMetaDim(metaKey)
	if storedDim == nil {
		if err := d.setMetaDim(metaKey, dim); err != nil {
			return err
		}

		return d.createVecTable(table, dim)
	} else if *storedDim != dim {
		return fmt.Errorf("%w: database has %d, provider returned %d. Run 'reclaim reindex' to rebuild", ErrDimensionMismatch, *storedDim, dim)
	}

	return d.createVecTable(table, dim)
}

// createVecTable creates a vector table with the given dimension.
// Cosine distance keeps indexed scores comparable to the brute-force
// dot product over unit vectors.
func (d *DB) createVecTable(table string, dim int) error {
	query := fmt.Sprintf(`
		CREATE VIRTUAL TABLE IF NOT EXISTS %s USING vec0(
			rowid INTEGER PRIMARY KEY,
			embedding float[%d] distance_metric=cosine
		)
	`, table, dim)

	return d.db.Exec(query).Error
}

// hasVecTable checks if the given vector table exists.
func (d *DB) hasVecTable(table string) bool {
	var count int64

	d.db.Raw(`
		SELECT COUNT(*) FROM sqlite_master
		WHERE type='table' AND name=?
	`, table).Scan(&count)

	return count > 0
}

func (d *DB) setMetaDim(key string, dim int) error {
	meta := MetaModel{
		Key:   key,
		Value: strconv.Itoa(dim),
	}

	return d.db.Save(&meta).Error
}

func (d *DB) getMetaDim(key string) *int {
	var meta MetaModel
	if err := d.db.Where("key = ?", key).First(&meta).Error; err != nil {
		return nil
	}

	dim, err := strconv.Atoi(meta.Value)
	if err != nil {
		return nil
	}

	return &dim
}

// decodeItem converts a row into a domain item, parsing vector JSON.
// Malformed vector JSON leaves the field empty rather than failing the read.
func (d *DB) decodeItem(im *ItemModel) models.Item {
	item := im.ToItem()

	if im.DescriptionEmbedding != "" {
		_ = json.Unmarshal([]byte(im.DescriptionEmbedding), &item.DescriptionEmbedding)
	}

	if im.ImageEmbedding != "" {
		_ = json.Unmarshal([]byte(im.ImageEmbedding), &item.ImageEmbedding)
	}

	return item
}

func insertVecRow(tx *gorm.DB, table string, rowid int64, vector []float32) error {
	embeddingBytes, err := json.Marshal(vector)
	if err != nil {
		return fmt.Errorf("failed to marshal embedding: %w", err)
	}

	return tx.Exec(fmt.Sprintf(`
		INSERT INTO %s (rowid, embedding)
		VALUES (?, ?)
	`, table), rowid, string(embeddingBytes)).Error
}

// marshalVector encodes a vector as JSON; empty vectors become "".
func marshalVector(v []float32) (string, error) {
	if len(v) == 0 {
		return "", nil
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}

	return string(raw), nil
}
