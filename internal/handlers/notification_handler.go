package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/anonto42/studyhub/backend/internal/models"
	"github.com/labstack/echo/v4"
)

// NotificationService is the notification API the handler drives.
type NotificationService interface {
	List(ctx context.Context, userID string, page, limit int) ([]models.Notification, int64, error)
	Grouped(ctx context.Context, userID string) (*models.GroupedNotifications, error)
	UnreadCount(ctx context.Context, userID string) (int64, error)
	MarkAsRead(ctx context.Context, id uint, userID string) error
	MarkAllAsRead(ctx context.Context, userID string) (int64, error)
	ClearAll(ctx context.Context, userID string) (int64, error)
}

// NotificationHandler handles notification-related HTTP requests
type NotificationHandler struct {
	notifications NotificationService
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(notifications NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// RegisterNotificationRoutes registers notification routes
func (h *NotificationHandler) RegisterNotificationRoutes(g *echo.Group) {
	g.GET("/notifications", h.GetNotifications)
	g.GET("/notifications/grouped", h.GetGroupedNotifications)
	g.GET("/notifications/unread-count", h.GetUnreadCount)
	g.PUT("/notifications/:id/read", h.MarkAsRead)
	g.PUT("/notifications/read-all", h.MarkAllAsRead)
	g.DELETE("/notifications", h.ClearAll)
}

// GetNotifications returns paginated notifications
func (h *NotificationHandler) GetNotifications(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	page, limit := pageParams(c)

	notifications, total, err := h.notifications.List(c.Request().Context(), userID, page, limit)
	if err != nil {
		return toHTTPError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data": echo.Map{
			"notifications": notifications,
		},
		"meta": pageMeta(page, limit, total),
	})
}

// GetGroupedNotifications returns notifications grouped by time period
func (h *NotificationHandler) GetGroupedNotifications(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	grouped, err := h.notifications.Grouped(ctx, userID)
	if err != nil {
		return toHTTPError(c, err)
	}
	unreadCount, _ := h.notifications.UnreadCount(ctx, userID)

	return ok(c, echo.Map{
		"notifications": grouped,
		"unreadCount":   unreadCount,
	})
}

// GetUnreadCount returns the unread notification count
func (h *NotificationHandler) GetUnreadCount(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}

	count, err := h.notifications.UnreadCount(c.Request().Context(), userID)
	if err != nil {
		return toHTTPError(c, err)
	}
	return ok(c, echo.Map{"count": count})
}

// MarkAsRead marks a notification as read
func (h *NotificationHandler) MarkAsRead(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}

	notifID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid notification ID")
	}

	if err := h.notifications.MarkAsRead(c.Request().Context(), uint(notifID), userID); err != nil {
		return toHTTPError(c, err)
	}
	return ok(c, echo.Map{"success": true})
}

// MarkAllAsRead marks all notifications as read
func (h *NotificationHandler) MarkAllAsRead(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}

	count, err := h.notifications.MarkAllAsRead(c.Request().Context(), userID)
	if err != nil {
		return toHTTPError(c, err)
	}
	return ok(c, echo.Map{"count": count})
}

// ClearAll deletes every notification of the caller
func (h *NotificationHandler) ClearAll(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}

	count, err := h.notifications.ClearAll(c.Request().Context(), userID)
	if err != nil {
		return toHTTPError(c, err)
	}
	return ok(c, echo.Map{"count": count})
}
