package departments

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"papershare-backend/internal/shared/server/respond"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/departments", h.list)
	rg.GET("/departments/:id", h.get)
}

func (h *Handler) list(c *gin.Context) {
	respond.OK(c, gin.H{"items": h.Svc.List(c.Request.Context())})
}

func (h *Handler) get(c *gin.Context) {
	summary, err := h.Svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "department not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load department", nil)
		return
	}
	respond.OK(c, summary)
}
