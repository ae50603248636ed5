package stars

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"papershare-backend/internal/shared/server/middleware"
	"papershare-backend/internal/shared/server/respond"
	"papershare-backend/internal/users"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/stars", middleware.RequireAuth(), h.toggle)
	rg.GET("/me/starred", middleware.RequireAuth(), h.starred)
}

type toggleRequest struct {
	Kind   string `json:"kind" binding:"required"`
	ItemID string `json:"itemId" binding:"required"`
}

func (h *Handler) toggle(c *gin.Context) {
	var req toggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "kind and itemId are required", nil)
		return
	}
	kind, err := ParseKind(req.Kind)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "kind must be department, paper or note", nil)
		return
	}
	c.Set("kind", string(kind))
	c.Set("itemId", req.ItemID)

	starred, err := h.Svc.Toggle(c.Request.Context(), middleware.UserIDFromContext(c), req.ItemID, kind)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", string(kind)+" not found", nil)
			return
		}
		users.WriteError(c, err)
		return
	}
	respond.OK(c, gin.H{"starred": starred})
}

func (h *Handler) starred(c *gin.Context) {
	res, err := h.Svc.Starred(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		users.WriteError(c, err)
		return
	}
	respond.OK(c, res)
}
