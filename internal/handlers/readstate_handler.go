package handlers

import (
	"context"
	"net/http"

	"github.com/anonto42/studyhub/backend/internal/models"
	"github.com/labstack/echo/v4"
)

// ReadStateService is the read-state reconciliation the handler drives.
type ReadStateService interface {
	QuickMarkViewed(ctx context.Context, conversationID, userID string) error
	MarkAllRead(ctx context.Context, conversationID, userID string) (int64, error)
}

// ReadStateHandler exposes unread/read reconciliation for conversations.
type ReadStateHandler struct {
	readState ReadStateService
}

func NewReadStateHandler(readState ReadStateService) *ReadStateHandler {
	return &ReadStateHandler{readState: readState}
}

// RegisterReadStateRoutes registers read-state routes
func (h *ReadStateHandler) RegisterReadStateRoutes(g *echo.Group) {
	g.PUT("/conversations/:id/viewed", h.MarkViewed)
	g.PUT("/conversations/:id/read", h.MarkRead)
	g.POST("/messages/mark-viewed", h.MarkViewedBody)
	g.POST("/messages/mark-read", h.MarkReadBody)
}

// MarkViewed resets the caller's unread counter for a conversation
func (h *ReadStateHandler) MarkViewed(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	if err := h.readState.QuickMarkViewed(c.Request().Context(), c.Param("id"), userID); err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// MarkRead marks every message the caller received in a conversation as read
func (h *ReadStateHandler) MarkRead(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	count, err := h.readState.MarkAllRead(c.Request().Context(), c.Param("id"), userID)
	if err != nil {
		return toHTTPError(c, err)
	}
	return ok(c, echo.Map{"count": count})
}

// bodyRequest binds {conversationId, userId} and checks that userId is the
// caller.
func (h *ReadStateHandler) bodyRequest(c echo.Context) (*models.ReadStateRequest, error) {
	userID, err := requireUser(c)
	if err != nil {
		return nil, err
	}
	var req models.ReadStateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return nil, err
	}
	if req.UserID != userID {
		return nil, echo.NewHTTPError(http.StatusForbidden, "userId does not match the authenticated user")
	}
	return &req, nil
}

func (h *ReadStateHandler) MarkViewedBody(c echo.Context) error {
	req, err := h.bodyRequest(c)
	if err != nil {
		return err
	}
	if err := h.readState.QuickMarkViewed(c.Request().Context(), req.ConversationID, req.UserID); err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

func (h *ReadStateHandler) MarkReadBody(c echo.Context) error {
	req, err := h.bodyRequest(c)
	if err != nil {
		return err
	}
	count, err := h.readState.MarkAllRead(c.Request().Context(), req.ConversationID, req.UserID)
	if err != nil {
		return toHTTPError(c, err)
	}
	return ok(c, echo.Map{"count": count})
}
