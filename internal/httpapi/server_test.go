package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"reclaim/internal/core"
	"reclaim/internal/db"
	"reclaim/internal/models"
)

// memStore implements db.Store in memory for API tests. Vector searches
// report the index as unavailable so matching runs the scan path.
type memStore struct {
	items []models.Item
}

var _ db.Store = (*memStore)(nil)

func (f *memStore) InsertItem(item models.Item) (int64, error) {
	f.items = append(f.items, item)
	return int64(len(f.items)), nil
}

func (f *memStore) GetItem(itemID string) (*models.Item, error) {
	for i := range f.items {
		if f.items[i].ID == itemID {
			copied := f.items[i]
			return &copied, nil
		}
	}
	return nil, db.ErrNotFound
}

func (f *memStore) UpdateEmbedding(itemID string, vector []float32, model string, dim int) error {
	for i := range f.items {
		if f.items[i].ID == itemID {
			f.items[i].DescriptionEmbedding = vector
			f.items[i].EmbeddingModel = model
			f.items[i].EmbeddingDim = dim
			return nil
		}
	}
	return db.ErrNotFound
}

func (f *memStore) UpdateImageEmbedding(itemID string, vector []float32) error {
	return nil
}

func (f *memStore) SetRetrieved(itemID string, retrieved bool) error {
	for i := range f.items {
		if f.items[i].ID == itemID {
			f.items[i].IsRetrieved = retrieved
			return nil
		}
	}
	return db.ErrNotFound
}

func (f *memStore) DeleteItem(itemID string) (bool, error) {
	for i := range f.items {
		if f.items[i].ID == itemID {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (f *memStore) ListCandidates(_ context.Context, status string, isRetrieved bool) ([]models.Item, error) {
	var out []models.Item
	for _, it := range f.items {
		if it.Status == status && it.IsRetrieved == isRetrieved {
			out = append(out, it)
		}
	}
	return out, nil
}

func (f *memStore) ListFeed(limit int) ([]models.Item, error) {
	out, _ := f.ListCandidates(context.Background(), models.StatusFound, false)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *memStore) ListAllForReindex() ([]models.Item, error) {
	return append([]models.Item(nil), f.items...), nil
}

func (f *memStore) CountItems() (int64, error) { return int64(len(f.items)), nil }

func (f *memStore) TextVectorSearch(_ context.Context, query []float32, pool, resultCap int, status string, isRetrieved bool) ([]db.VectorHit, error) {
	return nil, db.ErrIndexUnavailable
}

func (f *memStore) ImageVectorSearch(_ context.Context, query []float32, pool, resultCap int, status string, isRetrieved bool) ([]db.VectorHit, error) {
	return nil, db.ErrIndexUnavailable
}

func (f *memStore) EnsureVecTables(textDim, imageDim int) error { return nil }
func (f *memStore) DropVecTables() error                        { return nil }
func (f *memStore) Close() error                                { return nil }

type stubProvider struct{}

func (p *stubProvider) Embed(_ context.Context, text string) ([]float32, error) {
	if strings.Contains(text, "wallet") {
		return []float32{1, 0, 0}, nil
	}
	return []float32{0, 1, 0}, nil
}

func (p *stubProvider) ModelID() string { return "stub-model" }
func (p *stubProvider) Dim() int        { return 3 }

func newTestServer(t *testing.T) (*Server, *memStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := &memStore{}

	svc, err := core.NewService(t.TempDir(), core.WithStore(store), core.WithProvider(&stubProvider{}))
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	t.Cleanup(func() { _ = svc.Close() })

	return NewServer(svc), store
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	return w
}

func reportBody(status, name, reportedBy string) map[string]interface{} {
	return map[string]interface{}{
		"status":      status,
		"name":        name,
		"description": "leather wallet with stickers",
		"location":    "Library",
		"reportedBy":  reportedBy,
	}
}

func TestAPI_ReportItem(t *testing.T) {
	srv, store := newTestServer(t)
	router := srv.Router()

	w := doJSON(t, router, http.MethodPost, "/api/items", reportBody("Found", "black wallet", "bob"))

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body: %s", w.Code, w.Body.String())
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if resp["id"] == "" || resp["id"] == nil {
		t.Error("response missing item id")
	}
	if _, ok := resp["descriptionEmbedding"]; ok {
		t.Error("embeddings must not be exposed over the API")
	}
	if len(store.items) != 1 {
		t.Errorf("store has %d items, want 1", len(store.items))
	}
}

func TestAPI_ReportItem_MissingFields(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()

	w := doJSON(t, router, http.MethodPost, "/api/items", map[string]interface{}{
		"status": "Found",
	})

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestAPI_ReportItem_InvalidStatus(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()

	w := doJSON(t, router, http.MethodPost, "/api/items", reportBody("Misplaced", "wallet", "bob"))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400; body: %s", w.Code, w.Body.String())
	}
}

func TestAPI_GetItem(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()

	w := doJSON(t, router, http.MethodPost, "/api/items", reportBody("Found", "black wallet", "bob"))
	var created map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &created)
	id := created["id"].(string)

	w = doJSON(t, router, http.MethodGet, "/api/items/"+id, nil)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}

	w = doJSON(t, router, http.MethodGet, "/api/items/no-such-id", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestAPI_Feed(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()

	doJSON(t, router, http.MethodPost, "/api/items", reportBody("Found", "black wallet", "bob"))
	doJSON(t, router, http.MethodPost, "/api/items", reportBody("Lost", "blue bag", "alice"))

	w := doJSON(t, router, http.MethodGet, "/api/items", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var items []map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &items); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if len(items) != 1 {
		t.Fatalf("feed len = %d, want 1 (Found items only)", len(items))
	}
	if items[0]["status"] != "Found" {
		t.Errorf("feed status = %v, want Found", items[0]["status"])
	}
}

func TestAPI_FindMatches(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()

	doJSON(t, router, http.MethodPost, "/api/items", reportBody("Found", "black wallet", "bob"))

	w := doJSON(t, router, http.MethodPost, "/api/items", reportBody("Lost", "brown wallet", "alice"))
	var lost map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &lost)
	lostID := lost["id"].(string)

	w = doJSON(t, router, http.MethodGet, "/api/items/"+lostID+"/matches", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", w.Code, w.Body.String())
	}

	var result models.MatchResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if len(result.Matches) != 1 {
		t.Fatalf("matches len = %d, want 1; body: %s", len(result.Matches), w.Body.String())
	}
	if result.Matches[0].Name != "black wallet" {
		t.Errorf("match name = %q, want the found wallet", result.Matches[0].Name)
	}
}

func TestAPI_FindMatches_InvalidLimit(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()

	w := doJSON(t, router, http.MethodGet, "/api/items/some-id/matches?limit=abc", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestAPI_FindMatches_NotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()

	w := doJSON(t, router, http.MethodGet, "/api/items/no-such-id/matches", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestAPI_MarkRetrieved(t *testing.T) {
	srv, store := newTestServer(t)
	router := srv.Router()

	w := doJSON(t, router, http.MethodPost, "/api/items", reportBody("Found", "black wallet", "bob"))
	var created map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &created)
	id := created["id"].(string)

	w = doJSON(t, router, http.MethodPost, "/api/items/"+id+"/retrieved", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !store.items[0].IsRetrieved {
		t.Error("item should be marked retrieved")
	}

	// Retrieved items leave the feed.
	w = doJSON(t, router, http.MethodGet, "/api/items", nil)
	var items []map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &items)
	if len(items) != 0 {
		t.Errorf("feed len = %d, want 0 after retrieval", len(items))
	}
}
