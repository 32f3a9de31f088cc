package db

import (
	"reclaim/internal/models"
)

// ItemModel represents the items table in the database. Embedding vectors
// are stored JSON-encoded in the row itself (the brute-force scan reads
// them back); the vec0 virtual tables hold the indexed copies.
type ItemModel struct {
	ID              string  `gorm:"primaryKey;type:text"`
	Status          string  `gorm:"type:text;not null;index:idx_items_pool,priority:1"`
	Name            string  `gorm:"type:text;not null"`
	Description     string  `gorm:"type:text;not null"`
	MainCategory    string  `gorm:"type:text;not null"`
	SubCategory     string  `gorm:"type:text;not null"`
	Location        string  `gorm:"type:text;not null"`
	CurrentLocation *string `gorm:"type:text"`
	ReportedBy      string  `gorm:"type:text;not null;index"`
	IsRetrieved     bool    `gorm:"not null;default:false;index:idx_items_pool,priority:2"`

	DescriptionEmbedding string `gorm:"type:text"` // JSON encoded
	EmbeddingModel       string `gorm:"type:text;not null;default:''"`
	EmbeddingDim         int    `gorm:"not null;default:0"`
	ImageEmbedding       string `gorm:"type:text"` // JSON encoded

	CreatedAt string `gorm:"type:text;not null"`
	UpdatedAt string `gorm:"type:text;not null"`
}

// TableName specifies the table name for GORM
func (ItemModel) TableName() string {
	return "items"
}

// MetaModel represents the meta table
type MetaModel struct {
	Key   string `gorm:"primaryKey;type:text"`
	Value string `gorm:"type:text;not null"`
}

// TableName specifies the table name for GORM
func (MetaModel) TableName() string {
	return "meta"
}

// ToItem converts ItemModel to models.Item. Vector columns are decoded
// by the caller (see db.go) so malformed JSON can be handled in one place.
func (im *ItemModel) ToItem() models.Item {
	return models.Item{
		ID:              im.ID,
		Status:          im.Status,
		Name:            im.Name,
		Description:     im.Description,
		MainCategory:    im.MainCategory,
		SubCategory:     im.SubCategory,
		Location:        im.Location,
		CurrentLocation: im.CurrentLocation,
		ReportedBy:      im.ReportedBy,
		IsRetrieved:     im.IsRetrieved,
		EmbeddingModel:  im.EmbeddingModel,
		EmbeddingDim:    im.EmbeddingDim,
		CreatedAt:       im.CreatedAt,
		UpdatedAt:       im.UpdatedAt,
	}
}

// FromItem converts models.Item to ItemModel
func (im *ItemModel) FromItem(item models.Item, descriptionJSON, imageJSON string) {
	im.ID = item.ID
	im.Status = item.Status
	im.Name = item.Name
	im.Description = item.Description
	im.MainCategory = item.MainCategory
	im.SubCategory = item.SubCategory
	im.Location = item.Location
	im.CurrentLocation = item.CurrentLocation
	im.ReportedBy = item.ReportedBy
	im.IsRetrieved = item.IsRetrieved
	im.DescriptionEmbedding = descriptionJSON
	im.EmbeddingModel = item.EmbeddingModel
	im.EmbeddingDim = item.EmbeddingDim
	im.ImageEmbedding = imageJSON
	im.CreatedAt = item.CreatedAt
	im.UpdatedAt = item.UpdatedAt
}
