package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Item status values.
const (
	StatusLost  = "Lost"
	StatusFound = "Found"
)

// ValidStatuses defines the allowed status values for items.
var ValidStatuses = []string{StatusLost, StatusFound}

// ValidCategories defines the allowed main categories for items.
var ValidCategories = []string{
	"Electronics", "Apparel", "Books & Stationery", "ID Cards & Documents",
	"Keys", "Bags & Luggage", "Accessories", "Personal Care",
	"Sports Equipment", "Musical Instruments", "Medical Items",
	"Eyewear", "Umbrellas", "Containers", "Other",
}

// RawItemInput represents raw input for reporting an item before processing.
type RawItemInput struct {
	Status          string
	Name            string
	Description     string
	MainCategory    string
	SubCategory     string
	Location        string
	CurrentLocation *string
	ReportedBy      string
}

// Item represents a reported lost or found item.
//
// DescriptionEmbedding, EmbeddingModel and EmbeddingDim travel together:
// the vector is only trusted while the model identifier and dimension
// still match the currently configured encoder (see FreshFor).
type Item struct {
	ID              string
	Status          string
	Name            string
	Description     string
	MainCategory    string
	SubCategory     string
	Location        string
	CurrentLocation *string
	ReportedBy      string
	IsRetrieved     bool

	DescriptionEmbedding []float32
	EmbeddingModel       string
	EmbeddingDim         int
	ImageEmbedding       []float32

	CreatedAt string
	UpdatedAt string
}

// FromRaw creates an Item from RawItemInput with generated fields.
func FromRaw(raw RawItemInput) Item {
	now := time.Now().UTC().Format(time.RFC3339)

	return Item{
		ID:              uuid.New().String(),
		Status:          raw.Status,
		Name:            strings.TrimSpace(raw.Name),
		Description:     strings.TrimSpace(raw.Description),
		MainCategory:    raw.MainCategory,
		SubCategory:     strings.TrimSpace(raw.SubCategory),
		Location:        strings.TrimSpace(raw.Location),
		CurrentLocation: raw.CurrentLocation,
		ReportedBy:      raw.ReportedBy,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// FreshFor reports whether the stored description embedding was produced
// by the given model configuration and can be used without re-embedding.
func (it *Item) FreshFor(model string, dim int) bool {
	return it.EmbeddingModel == model &&
		it.EmbeddingDim == dim &&
		len(it.DescriptionEmbedding) > 0
}

// HasImageVector reports whether the item carries a usable image embedding.
func (it *Item) HasImageVector() bool {
	return len(it.ImageEmbedding) > 0
}

// Match is one ranked result returned to the caller.
type Match struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	MainCategory string  `json:"mainCategory"`
	SubCategory  string  `json:"subCategory"`
	Location     string  `json:"location"`
	ReportedBy   string  `json:"reportedBy"`
	CreatedAt    string  `json:"createdAt"`
	Score        float64 `json:"score"`
}

// MatchResult is the response of a match request: the ranked matches plus
// the number of candidates excluded because the requester reported them.
type MatchResult struct {
	Matches        []Match `json:"matches"`
	SelfMatchCount int     `json:"selfMatchCount"`
}

// MatchFromItem builds the result projection for a scored candidate.
func MatchFromItem(it Item, score float64) Match {
	return Match{
		ID:           it.ID,
		Name:         it.Name,
		Description:  it.Description,
		MainCategory: it.MainCategory,
		SubCategory:  it.SubCategory,
		Location:     it.Location,
		ReportedBy:   it.ReportedBy,
		CreatedAt:    it.CreatedAt,
		Score:        score,
	}
}
