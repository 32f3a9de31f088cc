package httpapi

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"reclaim/internal/core"
	"reclaim/internal/models"
)

// maxPhotoBytes bounds a single uploaded photo.
const maxPhotoBytes = 8 << 20

// Server exposes the matching engine over HTTP.
type Server struct {
	svc  *core.Service
	chat *ChatHub
}

// NewServer creates the HTTP server around a service.
func NewServer(svc *core.Service) *Server {
	return &Server{
		svc:  svc,
		chat: NewChatHub(),
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.Default()

	api := r.Group("/api")
	{
		api.POST("/items", s.handleReportItem)
		api.GET("/items", s.handleFeed)
		api.GET("/items/:id", s.handleGetItem)
		api.GET("/items/:id/matches", s.handleFindMatches)
		api.POST("/items/:id/retrieved", s.handleMarkRetrieved)
	}

	r.GET("/ws/conversations/:id", s.chat.Handle)

	return r
}

// Run starts the HTTP server on addr.
func (s *Server) Run(addr string) error {
	return s.Router().Run(addr)
}

type reportRequest struct {
	Status          string  `json:"status" binding:"required"`
	Name            string  `json:"name" binding:"required"`
	Description     string  `json:"description" binding:"required"`
	MainCategory    string  `json:"mainCategory"`
	SubCategory     string  `json:"subCategory"`
	Location        string  `json:"location" binding:"required"`
	CurrentLocation *string `json:"currentLocation"`
	ReportedBy      string  `json:"reportedBy" binding:"required"`
}

// handleReportItem accepts either a JSON body or a multipart form with
// photo files under the "photos" field.
func (s *Server) handleReportItem(c *gin.Context) {
	var req reportRequest
	var media [][]byte

	if form, err := c.MultipartForm(); err == nil && form != nil {
		req = reportRequest{
			Status:       c.PostForm("status"),
			Name:         c.PostForm("name"),
			Description:  c.PostForm("description"),
			MainCategory: c.PostForm("mainCategory"),
			SubCategory:  c.PostForm("subCategory"),
			Location:     c.PostForm("location"),
			ReportedBy:   c.PostForm("reportedBy"),
		}
		if v := c.PostForm("currentLocation"); v != "" {
			req.CurrentLocation = &v
		}

		for _, fh := range form.File["photos"] {
			if fh.Size > maxPhotoBytes {
				c.JSON(http.StatusBadRequest, gin.H{"error": "photo too large"})
				return
			}

			f, err := fh.Open()
			if err != nil {
				continue
			}
			blob, err := io.ReadAll(io.LimitReader(f, maxPhotoBytes))
			_ = f.Close()
			if err == nil {
				media = append(media, blob)
			}
		}
	} else if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item, err := s.svc.Report(c.Request.Context(), models.RawItemInput{
		Status:          req.Status,
		Name:            req.Name,
		Description:     req.Description,
		MainCategory:    req.MainCategory,
		SubCategory:     req.SubCategory,
		Location:        req.Location,
		CurrentLocation: req.CurrentLocation,
		ReportedBy:      req.ReportedBy,
	}, media)
	if err != nil {
		var validationErr *core.ErrValidation
		if errors.As(err, &validationErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, itemResponse(item))
}

func (s *Server) handleFeed(c *gin.Context) {
	limit := 0
	if v := c.Query("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	items, err := s.svc.Feed(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	out := make([]gin.H, len(items))
	for i := range items {
		out[i] = itemResponse(&items[i])
	}

	c.JSON(http.StatusOK, out)
}

func (s *Server) handleGetItem(c *gin.Context) {
	item, err := s.svc.GetItem(c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, itemResponse(item))
}

func (s *Server) handleFindMatches(c *gin.Context) {
	limit := 0
	if v := c.Query("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	result, err := s.svc.FindMatches(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) handleMarkRetrieved(c *gin.Context) {
	if err := s.svc.MarkRetrieved(c.Param("id")); err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "retrieved"})
}

// writeError maps the public error taxonomy onto HTTP statuses. Only
// NotFound and ServiceUnavailable cross this boundary with their own
// codes; everything else is an internal error.
func (s *Server) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "item not found"})
	case errors.Is(err, core.ErrServiceUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "matching temporarily unavailable, try again"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// itemResponse projects an item for API responses; embeddings stay internal.
func itemResponse(it *models.Item) gin.H {
	return gin.H{
		"id":              it.ID,
		"status":          it.Status,
		"name":            it.Name,
		"description":     it.Description,
		"mainCategory":    it.MainCategory,
		"subCategory":     it.SubCategory,
		"location":        it.Location,
		"currentLocation": it.CurrentLocation,
		"reportedBy":      it.ReportedBy,
		"isRetrieved":     it.IsRetrieved,
		"createdAt":       it.CreatedAt,
	}
}
