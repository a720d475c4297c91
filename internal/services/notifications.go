package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/anonto42/studyhub/backend/internal/models"
	"github.com/anonto42/studyhub/backend/internal/repositories"
)

// Notifier delivers a notification to its owner.
type Notifier interface {
	Notify(ctx context.Context, n *models.Notification) error
}

type NotificationService struct {
	repo repositories.NotificationRepository
	now  func() time.Time
}

func NewNotificationService(repo repositories.NotificationRepository) *NotificationService {
	return &NotificationService{repo: repo, now: time.Now}
}

// Notify stores n for n.UserID.
func (s *NotificationService) Notify(ctx context.Context, n *models.Notification) error {
	if err := checkUserID(n.UserID); err != nil {
		return err
	}
	if n.Type == "" || n.Title == "" {
		return invalidArgument("notification needs a type and a title")
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.now()
	}
	return classify("create notification", "notification", s.repo.CreateNotification(ctx, n))
}

// List returns one page of userID's notifications and the total count.
func (s *NotificationService) List(ctx context.Context, userID string, page, limit int) ([]models.Notification, int64, error) {
	if err := checkUserID(userID); err != nil {
		return nil, 0, err
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > maxPageSize {
		limit = defaultPageSize
	}
	list, total, err := s.repo.GetByUserID(ctx, userID, page, limit)
	if err != nil {
		return nil, 0, classify("list notifications", "notification", err)
	}
	return list, total, nil
}

func (s *NotificationService) Grouped(ctx context.Context, userID string) (*models.GroupedNotifications, error) {
	if err := checkUserID(userID); err != nil {
		return nil, err
	}
	g, err := s.repo.GetGrouped(ctx, userID, s.now())
	if err != nil {
		return nil, classify("group notifications", "notification", err)
	}
	return g, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	if err := checkUserID(userID); err != nil {
		return 0, err
	}
	n, err := s.repo.GetUnreadCount(ctx, userID)
	if err != nil {
		return 0, classify("unread notifications", "notification", err)
	}
	return n, nil
}

// MarkAsRead marks one notification owned by userID as read.
func (s *NotificationService) MarkAsRead(ctx context.Context, id uint, userID string) error {
	if err := checkUserID(userID); err != nil {
		return err
	}
	if id == 0 {
		return invalidArgument("malformed notification id")
	}
	return classify("mark notification read", "notification", s.repo.MarkAsRead(ctx, id, userID, s.now()))
}

func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID string) (int64, error) {
	if err := checkUserID(userID); err != nil {
		return 0, err
	}
	n, err := s.repo.MarkAllAsRead(ctx, userID, s.now())
	if err != nil {
		return 0, classify("mark notifications read", "notification", err)
	}
	return n, nil
}

func (s *NotificationService) ClearAll(ctx context.Context, userID string) (int64, error) {
	if err := checkUserID(userID); err != nil {
		return 0, err
	}
	n, err := s.repo.DeleteAll(ctx, userID)
	if err != nil {
		return 0, classify("clear notifications", "notification", err)
	}
	return n, nil
}

// notifyBestEffort delivers n and only logs a failure.
func notifyBestEffort(ctx context.Context, notifier Notifier, n *models.Notification) {
	if notifier == nil {
		return
	}
	if err := notifier.Notify(ctx, n); err != nil {
		slog.WarnContext(ctx, "notification not delivered",
			"user_id", n.UserID, "type", n.Type, "error", err)
	}
}
