package db

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"reclaim/internal/models"
)

// newTestDB creates a fresh DB in a temp directory.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	dir := t.TempDir()

	database, err := NewDB(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("NewDB() error = %v", err)
	}

	t.Cleanup(func() { _ = database.Close() })

	return database
}

// makeItem returns a minimal valid Found item for testing.
func makeItem(id, reportedBy string) models.Item {
	now := time.Now().UTC().Format(time.RFC3339)

	return models.Item{
		ID:           id,
		Status:       models.StatusFound,
		Name:         "item " + id,
		Description:  "description for " + id,
		MainCategory: "Other",
		Location:     "Library",
		ReportedBy:   reportedBy,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// --- InsertItem / GetItem ---

func TestInsertItem_GetItem_Roundtrip(t *testing.T) {
	d := newTestDB(t)

	item := makeItem("item-1", "bob")
	item.DescriptionEmbedding = []float32{0.1, 0.2, 0.3}
	item.EmbeddingModel = "minilm"
	item.EmbeddingDim = 3
	loc := "security office"
	item.CurrentLocation = &loc

	rowid, err := d.InsertItem(item)
	if err != nil {
		t.Fatalf("InsertItem() error = %v", err)
	}
	if rowid <= 0 {
		t.Errorf("InsertItem() rowid = %d, want > 0", rowid)
	}

	got, err := d.GetItem(item.ID)
	if err != nil {
		t.Fatalf("GetItem() error = %v", err)
	}

	if got.Name != item.Name {
		t.Errorf("Name = %q, want %q", got.Name, item.Name)
	}
	if got.Status != models.StatusFound {
		t.Errorf("Status = %q, want Found", got.Status)
	}
	if got.CurrentLocation == nil || *got.CurrentLocation != loc {
		t.Errorf("CurrentLocation = %v, want %q", got.CurrentLocation, loc)
	}
	if len(got.DescriptionEmbedding) != 3 || got.DescriptionEmbedding[1] != float32(0.2) {
		t.Errorf("DescriptionEmbedding = %v", got.DescriptionEmbedding)
	}
	if got.EmbeddingModel != "minilm" || got.EmbeddingDim != 3 {
		t.Errorf("embedding identity = %q/%d", got.EmbeddingModel, got.EmbeddingDim)
	}
}

func TestGetItem_NotFound(t *testing.T) {
	d := newTestDB(t)

	_, err := d.GetItem("nonexistent-id")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetItem() error = %v, want ErrNotFound", err)
	}
}

// --- UpdateEmbedding ---

func TestUpdateEmbedding_Atomic(t *testing.T) {
	d := newTestDB(t)

	item := makeItem("item-1", "bob")
	if _, err := d.InsertItem(item); err != nil {
		t.Fatalf("InsertItem() error = %v", err)
	}

	vec := []float32{1, 0, 0}
	if err := d.UpdateEmbedding(item.ID, vec, "minilm", 3); err != nil {
		t.Fatalf("UpdateEmbedding() error = %v", err)
	}

	got, err := d.GetItem(item.ID)
	if err != nil {
		t.Fatalf("GetItem() error = %v", err)
	}

	// Vector, model and dim travel together.
	if len(got.DescriptionEmbedding) != 3 {
		t.Errorf("embedding len = %d, want 3", len(got.DescriptionEmbedding))
	}
	if got.EmbeddingModel != "minilm" || got.EmbeddingDim != 3 {
		t.Errorf("embedding identity = %q/%d, want minilm/3", got.EmbeddingModel, got.EmbeddingDim)
	}
}

func TestUpdateEmbedding_NotFound(t *testing.T) {
	d := newTestDB(t)

	err := d.UpdateEmbedding("nonexistent-id", []float32{1}, "minilm", 1)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateEmbedding() error = %v, want ErrNotFound", err)
	}
}

// --- SetRetrieved / DeleteItem ---

func TestSetRetrieved(t *testing.T) {
	d := newTestDB(t)

	item := makeItem("item-1", "bob")
	if _, err := d.InsertItem(item); err != nil {
		t.Fatalf("InsertItem() error = %v", err)
	}

	if err := d.SetRetrieved(item.ID, true); err != nil {
		t.Fatalf("SetRetrieved() error = %v", err)
	}

	got, _ := d.GetItem(item.ID)
	if !got.IsRetrieved {
		t.Error("item should be retrieved")
	}

	if err := d.SetRetrieved("nonexistent-id", true); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetRetrieved() error = %v, want ErrNotFound", err)
	}
}

func TestDeleteItem(t *testing.T) {
	d := newTestDB(t)

	item := makeItem("item-1", "bob")
	if _, err := d.InsertItem(item); err != nil {
		t.Fatalf("InsertItem() error = %v", err)
	}

	deleted, err := d.DeleteItem(item.ID)
	if err != nil {
		t.Fatalf("DeleteItem() error = %v", err)
	}
	if !deleted {
		t.Error("DeleteItem() = false, want true")
	}

	if _, err := d.GetItem(item.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetItem() after delete error = %v, want ErrNotFound", err)
	}

	deleted, err = d.DeleteItem("nonexistent-id")
	if err != nil {
		t.Fatalf("DeleteItem() error = %v", err)
	}
	if deleted {
		t.Error("DeleteItem() = true for nonexistent id")
	}
}

// --- Listing ---

func TestListCandidates_FiltersStatusAndRetrieved(t *testing.T) {
	d := newTestDB(t)

	found := makeItem("found-1", "bob")
	lost := makeItem("lost-1", "alice")
	lost.Status = models.StatusLost
	retrieved := makeItem("found-2", "carol")

	for _, it := range []models.Item{found, lost, retrieved} {
		if _, err := d.InsertItem(it); err != nil {
			t.Fatalf("InsertItem() error = %v", err)
		}
	}
	if err := d.SetRetrieved(retrieved.ID, true); err != nil {
		t.Fatalf("SetRetrieved() error = %v", err)
	}

	items, err := d.ListCandidates(context.Background(), models.StatusFound, false)
	if err != nil {
		t.Fatalf("ListCandidates() error = %v", err)
	}

	if len(items) != 1 {
		t.Fatalf("ListCandidates() len = %d, want 1", len(items))
	}
	if items[0].ID != "found-1" {
		t.Errorf("ListCandidates()[0].ID = %q, want found-1", items[0].ID)
	}
}

func TestListFeed_NewestFirstWithLimit(t *testing.T) {
	d := newTestDB(t)

	older := makeItem("older", "bob")
	older.CreatedAt = "2026-01-01T00:00:00Z"
	newer := makeItem("newer", "bob")
	newer.CreatedAt = "2026-02-01T00:00:00Z"

	for _, it := range []models.Item{older, newer} {
		if _, err := d.InsertItem(it); err != nil {
			t.Fatalf("InsertItem() error = %v", err)
		}
	}

	items, err := d.ListFeed(1)
	if err != nil {
		t.Fatalf("ListFeed() error = %v", err)
	}

	if len(items) != 1 {
		t.Fatalf("ListFeed() len = %d, want 1", len(items))
	}
	if items[0].ID != "newer" {
		t.Errorf("ListFeed()[0].ID = %q, want newer", items[0].ID)
	}
}

// --- Vector search ---

func TestVectorSearch_WithoutTablesIsIndexUnavailable(t *testing.T) {
	d := newTestDB(t)

	_, err := d.TextVectorSearch(context.Background(), []float32{1, 0, 0}, 10, 5, models.StatusFound, false)
	if !errors.Is(err, ErrIndexUnavailable) {
		t.Errorf("TextVectorSearch() error = %v, want ErrIndexUnavailable", err)
	}
}

func TestVectorSearch_RanksByCosine(t *testing.T) {
	d := newTestDB(t)

	if err := d.EnsureVecTables(3, 0); err != nil {
		t.Fatalf("EnsureVecTables() error = %v", err)
	}

	closest := makeItem("close", "bob")
	closest.DescriptionEmbedding = []float32{1, 0, 0}
	closest.EmbeddingModel = "minilm"
	closest.EmbeddingDim = 3

	near := makeItem("near", "bob")
	near.DescriptionEmbedding = normalize3(0.9, 0.44, 0)
	near.EmbeddingModel = "minilm"
	near.EmbeddingDim = 3

	far := makeItem("far", "bob")
	far.DescriptionEmbedding = []float32{0, 1, 0}
	far.EmbeddingModel = "minilm"
	far.EmbeddingDim = 3

	for _, it := range []models.Item{far, near, closest} {
		if _, err := d.InsertItem(it); err != nil {
			t.Fatalf("InsertItem() error = %v", err)
		}
	}

	hits, err := d.TextVectorSearch(context.Background(), []float32{1, 0, 0}, 10, 5, models.StatusFound, false)
	if err != nil {
		t.Fatalf("TextVectorSearch() error = %v", err)
	}

	if len(hits) != 3 {
		t.Fatalf("hits len = %d, want 3", len(hits))
	}
	if hits[0].Item.ID != "close" || hits[1].Item.ID != "near" || hits[2].Item.ID != "far" {
		t.Errorf("hit order = %s, %s, %s", hits[0].Item.ID, hits[1].Item.ID, hits[2].Item.ID)
	}

	// Cosine distance: score = 1 - distance is the cosine similarity.
	if math.Abs(hits[0].Score-1.0) > 1e-4 {
		t.Errorf("top score = %v, want 1.0", hits[0].Score)
	}
	if math.Abs(hits[2].Score) > 1e-4 {
		t.Errorf("bottom score = %v, want 0.0", hits[2].Score)
	}
}

func TestVectorSearch_FiltersAfterIndexStage(t *testing.T) {
	d := newTestDB(t)

	if err := d.EnsureVecTables(3, 0); err != nil {
		t.Fatalf("EnsureVecTables() error = %v", err)
	}

	eligible := makeItem("eligible", "bob")
	eligible.DescriptionEmbedding = []float32{1, 0, 0}

	lost := makeItem("lost", "alice")
	lost.Status = models.StatusLost
	lost.DescriptionEmbedding = []float32{1, 0, 0}

	for _, it := range []models.Item{eligible, lost} {
		if _, err := d.InsertItem(it); err != nil {
			t.Fatalf("InsertItem() error = %v", err)
		}
	}

	hits, err := d.TextVectorSearch(context.Background(), []float32{1, 0, 0}, 10, 5, models.StatusFound, false)
	if err != nil {
		t.Fatalf("TextVectorSearch() error = %v", err)
	}

	if len(hits) != 1 {
		t.Fatalf("hits len = %d, want 1 (Lost item filtered out)", len(hits))
	}
	if hits[0].Item.ID != "eligible" {
		t.Errorf("hits[0].ID = %q, want eligible", hits[0].Item.ID)
	}
}

func TestUpdateEmbedding_RefreshesIndexedCopy(t *testing.T) {
	d := newTestDB(t)

	if err := d.EnsureVecTables(3, 0); err != nil {
		t.Fatalf("EnsureVecTables() error = %v", err)
	}

	item := makeItem("item-1", "bob")
	item.DescriptionEmbedding = []float32{0, 1, 0}
	if _, err := d.InsertItem(item); err != nil {
		t.Fatalf("InsertItem() error = %v", err)
	}

	if err := d.UpdateEmbedding(item.ID, []float32{1, 0, 0}, "minilm", 3); err != nil {
		t.Fatalf("UpdateEmbedding() error = %v", err)
	}

	hits, err := d.TextVectorSearch(context.Background(), []float32{1, 0, 0}, 10, 5, models.StatusFound, false)
	if err != nil {
		t.Fatalf("TextVectorSearch() error = %v", err)
	}

	if len(hits) != 1 || math.Abs(hits[0].Score-1.0) > 1e-4 {
		t.Errorf("hits = %+v, want one exact hit after refresh", hits)
	}
}

func TestVectorSearch_HonorsCanceledContext(t *testing.T) {
	d := newTestDB(t)

	if err := d.EnsureVecTables(3, 0); err != nil {
		t.Fatalf("EnsureVecTables() error = %v", err)
	}

	item := makeItem("item-1", "bob")
	item.DescriptionEmbedding = []float32{1, 0, 0}
	if _, err := d.InsertItem(item); err != nil {
		t.Fatalf("InsertItem() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := d.TextVectorSearch(ctx, []float32{1, 0, 0}, 10, 5, models.StatusFound, false); err == nil {
		t.Error("TextVectorSearch() with a canceled context should fail")
	}
	if _, err := d.ListCandidates(ctx, models.StatusFound, false); err == nil {
		t.Error("ListCandidates() with a canceled context should fail")
	}
}

// --- Vec table lifecycle ---

func TestEnsureVecTables_DimensionMismatch(t *testing.T) {
	d := newTestDB(t)

	if err := d.EnsureVecTables(3, 0); err != nil {
		t.Fatalf("EnsureVecTables() error = %v", err)
	}

	err := d.EnsureVecTables(4, 0)
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("EnsureVecTables() error = %v, want ErrDimensionMismatch", err)
	}
}

func TestDropVecTables_AllowsNewDimensions(t *testing.T) {
	d := newTestDB(t)

	if err := d.EnsureVecTables(3, 0); err != nil {
		t.Fatalf("EnsureVecTables() error = %v", err)
	}
	if err := d.DropVecTables(); err != nil {
		t.Fatalf("DropVecTables() error = %v", err)
	}
	if err := d.EnsureVecTables(4, 0); err != nil {
		t.Errorf("EnsureVecTables() after drop error = %v", err)
	}
}

func normalize3(a, b, c float32) []float32 {
	norm := float32(math.Sqrt(float64(a*a + b*b + c*c)))
	return []float32{a / norm, b / norm, c / norm}
}
