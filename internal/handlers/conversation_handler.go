package handlers

import (
	"context"
	"net/http"

	"github.com/anonto42/studyhub/backend/internal/models"
	"github.com/labstack/echo/v4"
)

// MessagingService is the conversation and message API the handler drives.
type MessagingService interface {
	StartDirect(ctx context.Context, me string, req models.StartConversationRequest) (*models.Conversation, error)
	ListConversations(ctx context.Context, userID string, page, limit int) ([]models.ConversationSummary, error)
	ListMessages(ctx context.Context, conversationID, userID string, page, limit int) ([]models.Message, error)
	SendMessage(ctx context.Context, conversationID, senderID string, req models.SendMessageRequest) (*models.Message, error)
	AddReaction(ctx context.Context, messageID, userID string, req models.ReactionRequest) (*models.Message, error)
	RemoveReaction(ctx context.Context, messageID, userID, emoji string) (*models.Message, error)
	Deactivate(ctx context.Context, conversationID, userID string) error
}

// ConversationHandler handles conversation and message HTTP requests
type ConversationHandler struct {
	messaging MessagingService
}

func NewConversationHandler(messaging MessagingService) *ConversationHandler {
	return &ConversationHandler{messaging: messaging}
}

// RegisterConversationRoutes registers conversation routes
func (h *ConversationHandler) RegisterConversationRoutes(g *echo.Group) {
	g.POST("/conversations", h.StartConversation)
	g.GET("/conversations", h.GetConversations)
	g.DELETE("/conversations/:id", h.DeactivateConversation)
	g.GET("/conversations/:id/messages", h.GetMessages)
	g.POST("/conversations/:id/messages", h.SendMessage)
	g.POST("/messages/:id/reactions", h.AddReaction)
	g.DELETE("/messages/:id/reactions", h.RemoveReaction)
}

// StartConversation returns the direct conversation with a peer, creating it if needed
func (h *ConversationHandler) StartConversation(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	var req models.StartConversationRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	conv, err := h.messaging.StartDirect(c.Request().Context(), userID, req)
	if err != nil {
		return toHTTPError(c, err)
	}
	return ok(c, conv)
}

func (h *ConversationHandler) GetConversations(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	page, limit := pageParams(c)

	convs, err := h.messaging.ListConversations(c.Request().Context(), userID, page, limit)
	if err != nil {
		return toHTTPError(c, err)
	}
	return ok(c, echo.Map{"conversations": convs})
}

func (h *ConversationHandler) GetMessages(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	page, limit := pageParams(c)

	msgs, err := h.messaging.ListMessages(c.Request().Context(), c.Param("id"), userID, page, limit)
	if err != nil {
		return toHTTPError(c, err)
	}
	return ok(c, echo.Map{"messages": msgs})
}

func (h *ConversationHandler) SendMessage(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	var req models.SendMessageRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	msg, err := h.messaging.SendMessage(c.Request().Context(), c.Param("id"), userID, req)
	if err != nil {
		return toHTTPError(c, err)
	}
	return created(c, msg)
}

func (h *ConversationHandler) AddReaction(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	var req models.ReactionRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	msg, err := h.messaging.AddReaction(c.Request().Context(), c.Param("id"), userID, req)
	if err != nil {
		return toHTTPError(c, err)
	}
	return ok(c, msg)
}

// RemoveReaction removes the caller's reaction given as ?emoji=
func (h *ConversationHandler) RemoveReaction(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	emoji := c.QueryParam("emoji")
	if emoji == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Query parameter 'emoji' is required")
	}

	msg, err := h.messaging.RemoveReaction(c.Request().Context(), c.Param("id"), userID, emoji)
	if err != nil {
		return toHTTPError(c, err)
	}
	return ok(c, msg)
}

func (h *ConversationHandler) DeactivateConversation(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	if err := h.messaging.Deactivate(c.Request().Context(), c.Param("id"), userID); err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}
