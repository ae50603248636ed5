package leaderboard

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"papershare-backend/internal/shared/server/respond"
)

const maxLimit = 100

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/leaderboard", h.list)
	rg.GET("/leaderboard/:userId/rank", h.rank)
}

func (h *Handler) list(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respond.Error(c, http.StatusBadRequest, "validation_error", "limit must be a non-negative integer", nil)
			return
		}
		limit = n
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	entries, err := h.Svc.Rank(c.Request.Context())
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to rank users", nil)
		return
	}
	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	respond.OK(c, gin.H{"items": entries})
}

func (h *Handler) rank(c *gin.Context) {
	userID := c.Param("userId")
	rank, ok, err := h.Svc.RankOf(c.Request.Context(), userID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to rank users", nil)
		return
	}
	if !ok {
		respond.Error(c, http.StatusNotFound, "not_found", "user not found", nil)
		return
	}
	respond.OK(c, gin.H{"userId": userID, "rank": rank})
}
