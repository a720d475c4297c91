package handlers

import (
	"context"
	"net/http"

	"github.com/anonto42/studyhub/backend/internal/models"
	"github.com/anonto42/studyhub/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// LikeService is the like API the handler drives.
type LikeService interface {
	Like(ctx context.Context, userID string, req models.LikeRequest) (*services.LikeStatus, error)
	Unlike(ctx context.Context, userID string, req models.LikeRequest) (*services.LikeStatus, error)
	Status(ctx context.Context, userID string, kind models.ParentType, parentID string) (*services.LikeStatus, error)
}

// LikeHandler handles HTTP requests related to likes
type LikeHandler struct {
	likes LikeService
}

// NewLikeHandler creates a new LikeHandler
func NewLikeHandler(likes LikeService) *LikeHandler {
	return &LikeHandler{likes: likes}
}

// RegisterLikeRoutes registers like-related routes. :type is one of
// question, answer, post or blog_post.
func (h *LikeHandler) RegisterLikeRoutes(g *echo.Group) {
	g.POST("/likes/:type/:parent_id", h.Like)
	g.DELETE("/likes/:type/:parent_id", h.Unlike)
	g.GET("/likes/:type/:parent_id", h.GetStatus)
}

func (h *LikeHandler) likeRequest(c echo.Context) (models.LikeRequest, error) {
	req := models.LikeRequest{
		ParentType: models.ParentType(c.Param("type")),
		ParentID:   c.Param("parent_id"),
	}
	if err := c.Validate(&req); err != nil {
		return req, err
	}
	return req, nil
}

// Like handles liking a parent entity
func (h *LikeHandler) Like(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	req, err := h.likeRequest(c)
	if err != nil {
		return err
	}

	status, err := h.likes.Like(c.Request().Context(), userID, req)
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "data": status})
}

// Unlike handles removing the caller's like
func (h *LikeHandler) Unlike(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	req, err := h.likeRequest(c)
	if err != nil {
		return err
	}

	status, err := h.likes.Unlike(c.Request().Context(), userID, req)
	if err != nil {
		return toHTTPError(c, err)
	}
	return ok(c, status)
}

// GetStatus reports whether the caller liked the entity and its like count
func (h *LikeHandler) GetStatus(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	req, err := h.likeRequest(c)
	if err != nil {
		return err
	}

	status, err := h.likes.Status(c.Request().Context(), userID, req.ParentType, req.ParentID)
	if err != nil {
		return toHTTPError(c, err)
	}
	return ok(c, status)
}
