package content

import (
	"errors"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"papershare-backend/internal/shared/server/middleware"
	"papershare-backend/internal/shared/server/respond"
	"papershare-backend/internal/shared/telemetry"
)

const defaultMaxUploadSize = 10 << 20 // 10MB

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc           *Service
	MaxUploadSize int64
}

func NewHandler(svc *Service, maxUploadSize int64) *Handler {
	if maxUploadSize <= 0 {
		maxUploadSize = defaultMaxUploadSize
	}
	return &Handler{Svc: svc, MaxUploadSize: maxUploadSize}
}

// RegisterRoutes attaches /papers, /notes and /search.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	for _, kind := range Kinds {
		kind := kind
		g := rg.Group("/" + kind.Plural())
		g.GET("", h.list(kind))
		g.GET("/:id", h.get(kind))
		g.POST("", middleware.RequireAuth(), h.create(kind))
		g.POST("/:id/download", middleware.RequireAuth(), h.download(kind))
	}
	rg.GET("/search", h.search)
}

func writeError(c *gin.Context, err error, action string) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", strings.TrimPrefix(err.Error(), ErrInvalidInput.Error()+": "), nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "content not found", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to "+action, nil)
	}
}

func queryInt(c *gin.Context, key string, def int) int {
	v := strings.TrimSpace(c.Query(key))
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed < 0 {
		return def
	}
	return parsed
}

func (h *Handler) list(kind Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		f := Filter{
			Department: strings.TrimSpace(c.Query("department")),
			Subject:    strings.TrimSpace(c.Query("subject")),
			Section:    strings.TrimSpace(c.Query("section")),
			Sort:       ParseSort(c.Query("sort")),
			Limit:      queryInt(c, "limit", 0),
			Offset:     queryInt(c, "offset", 0),
		}
		if f.Limit > 100 {
			f.Limit = 100
		}
		items, err := h.Svc.List(c.Request.Context(), kind, f)
		if err != nil {
			writeError(c, err, "list "+kind.Plural())
			return
		}
		respond.OK(c, gin.H{"items": items})
	}
}

func (h *Handler) get(kind Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		c.Set("itemId", id)
		c.Set("kind", string(kind))
		item, err := h.Svc.Get(c.Request.Context(), kind, id)
		if err != nil {
			writeError(c, err, "load "+string(kind))
			return
		}
		respond.OK(c, item)
	}
}

type createRequest struct {
	Title       string `json:"title" form:"title"`
	Subject     string `json:"subject" form:"subject"`
	CourseCode  string `json:"courseCode" form:"courseCode"`
	Department  string `json:"department" form:"department"`
	Section     string `json:"section" form:"section"`
	Year        string `json:"year" form:"year"`
	Description string `json:"description" form:"description"`
	FileURL     string `json:"fileUrl" form:"fileUrl"`
}

func (r createRequest) input(kind Kind, uploaderID string) CreateInput {
	subject := r.Subject
	if strings.TrimSpace(subject) == "" {
		subject = r.CourseCode
	}
	return CreateInput{
		Kind:        kind,
		Title:       r.Title,
		Subject:     subject,
		Department:  r.Department,
		Section:     r.Section,
		Year:        r.Year,
		Description: r.Description,
		FileURL:     r.FileURL,
		UploaderID:  uploaderID,
	}
}

// create accepts either a multipart upload with a "file" part or a JSON body
// pointing at an external fileUrl.
func (h *Handler) create(kind Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.UserIDFromContext(c)
		c.Set("kind", string(kind))

		if strings.HasPrefix(c.ContentType(), "multipart/") {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadSize)
			var req createRequest
			if err := c.ShouldBind(&req); err != nil {
				respond.Error(c, http.StatusBadRequest, "validation_error", "invalid form body", nil)
				return
			}
			fileHeader, err := c.FormFile("file")
			if err != nil {
				respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
				return
			}
			file, err := fileHeader.Open()
			if err != nil {
				respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
				return
			}
			defer file.Close()

			item, err := h.Svc.Upload(c.Request.Context(), req.input(kind, userID), fileHeader.Filename, file)
			if err != nil {
				writeError(c, err, "upload "+string(kind))
				return
			}
			c.Set("itemId", item.ID)
			respond.JSON(c, http.StatusCreated, item)
			return
		}

		var req createRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
			return
		}
		if strings.TrimSpace(req.FileURL) == "" {
			respond.Error(c, http.StatusBadRequest, "validation_error", "fileUrl is required", nil)
			return
		}
		item, err := h.Svc.Create(c.Request.Context(), req.input(kind, userID))
		if err != nil {
			writeError(c, err, "create "+string(kind))
			return
		}
		c.Set("itemId", item.ID)
		respond.JSON(c, http.StatusCreated, item)
	}
}

// download counts the download and then streams the stored file, or sends
// the client to the external fileUrl.
func (h *Handler) download(kind Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		c.Set("itemId", id)
		c.Set("kind", string(kind))
		ctx := c.Request.Context()

		item, err := h.Svc.IncrementDownloads(ctx, kind, id, middleware.UserIDFromContext(c))
		if err != nil {
			writeError(c, err, "download "+string(kind))
			return
		}

		if item.StorageKey == "" {
			if item.FileURL == "" {
				respond.OK(c, gin.H{"id": item.ID, "downloads": item.Downloads})
				return
			}
			c.Redirect(http.StatusSeeOther, item.FileURL)
			return
		}

		body, err := h.Svc.Open(ctx, item)
		if err != nil {
			telemetry.Error("content.open_failed", map[string]any{"item_id": item.ID, "error": err.Error()})
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to open file", nil)
			return
		}
		defer body.Close()

		contentType := item.MimeType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		size := item.SizeBytes
		if size <= 0 {
			size = -1
		}
		c.DataFromReader(http.StatusOK, size, contentType, body, map[string]string{
			"Content-Disposition": contentDisposition(item.FileName),
			"X-Download-Count":    strconv.Itoa(item.Downloads),
		})
	}
}

func contentDisposition(fileName string) string {
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": fileName}); v != "" {
		return v
	}
	return "attachment"
}

func (h *Handler) search(c *gin.Context) {
	limit := queryInt(c, "limit", DefaultSearchLimit)
	if limit > 100 {
		limit = 100
	}
	res, err := h.Svc.Search(c.Request.Context(), c.Query("q"), SearchFilter{
		Scope:      ParseScope(c.Query("type")),
		Department: strings.TrimSpace(c.Query("department")),
		Section:    strings.TrimSpace(c.Query("section")),
		Sort:       ParseSort(c.Query("sort")),
		Limit:      limit,
	})
	if err != nil {
		writeError(c, err, "search")
		return
	}
	respond.OK(c, res)
}
