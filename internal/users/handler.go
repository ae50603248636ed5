package users

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"papershare-backend/internal/shared/server/middleware"
	"papershare-backend/internal/shared/server/respond"
)

// Ranker reports a user's leaderboard position.
type Ranker interface {
	RankOf(ctx context.Context, userID string) (int, bool, error)
}

type Handler struct {
	Svc    *Service
	Ranker Ranker
}

func NewHandler(svc *Service, ranker Ranker) *Handler {
	return &Handler{Svc: svc, Ranker: ranker}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/auth/register", h.register)
	rg.POST("/auth/login", h.login)
	rg.POST("/auth/logout", middleware.RequireAuth(), h.logout)
	rg.GET("/me", middleware.RequireAuth(), h.me)
	rg.PATCH("/me", middleware.RequireAuth(), h.updateMe)
}

// WriteError maps user errors onto HTTP responses.
func WriteError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", strings.TrimPrefix(err.Error(), ErrInvalidInput.Error()+": "), nil)
	case errors.Is(err, ErrEmailTaken):
		respond.Error(c, http.StatusConflict, "email_taken", "email already registered", nil)
	case errors.Is(err, ErrInvalidCredentials):
		respond.Error(c, http.StatusUnauthorized, "invalid_credentials", "invalid email or password", nil)
	case errors.Is(err, ErrNoSession):
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "session expired", nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "user not found", nil)
	case errors.Is(err, ErrConflict):
		respond.Error(c, http.StatusConflict, "conflict", "user changed concurrently, retry", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "request failed", nil)
	}
}

func (h *Handler) register(c *gin.Context) {
	var req RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "invalid JSON body", nil)
		return
	}
	res, err := h.Svc.Register(c.Request.Context(), req)
	if err != nil {
		WriteError(c, err)
		return
	}
	respond.JSON(c, http.StatusCreated, res)
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "invalid JSON body", nil)
		return
	}
	res, err := h.Svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		WriteError(c, err)
		return
	}
	respond.OK(c, res)
}

func (h *Handler) logout(c *gin.Context) {
	if err := h.Svc.Logout(c.Request.Context(), middleware.SessionIDFromContext(c)); err != nil {
		WriteError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// me serves the session's user snapshot, which every user write refreshes.
func (h *Handler) me(c *gin.Context) {
	ctx := c.Request.Context()
	user, err := h.Svc.GetSession(ctx, middleware.SessionIDFromContext(c))
	if err != nil {
		WriteError(c, err)
		return
	}
	resp := gin.H{"user": ToProfile(user), "score": user.Points()}
	if h.Ranker != nil {
		if rank, ok, err := h.Ranker.RankOf(ctx, user.ID); err == nil && ok {
			resp["rank"] = rank
		}
	}
	respond.OK(c, resp)
}

func (h *Handler) updateMe(c *gin.Context) {
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "invalid JSON body", nil)
		return
	}
	user, err := h.Svc.Update(c.Request.Context(), middleware.UserIDFromContext(c), Patch{
		Name:       req.Name,
		Department: req.Department,
		Section:    req.Section,
		PictureURL: req.PictureURL,
	})
	if err != nil {
		WriteError(c, err)
		return
	}
	respond.OK(c, ToProfile(user))
}
