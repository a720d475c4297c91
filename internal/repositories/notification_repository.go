package repositories

import (
	"context"
	"time"

	"github.com/anonto42/studyhub/backend/internal/models"
	"gorm.io/gorm"
)

// NotificationRepository defines the interface for notification operations
type NotificationRepository interface {
	CreateNotification(ctx context.Context, notification *models.Notification) error
	GetByUserID(ctx context.Context, userID string, page, limit int) ([]models.Notification, int64, error)
	GetGrouped(ctx context.Context, userID string, now time.Time) (*models.GroupedNotifications, error)
	GetUnreadCount(ctx context.Context, userID string) (int64, error)
	// MarkAsRead marks one of userID's notifications read. Re-marking keeps
	// the first read time. ErrNotFound when userID owns no such notification.
	MarkAsRead(ctx context.Context, notificationID uint, userID string, at time.Time) error
	MarkAllAsRead(ctx context.Context, userID string, at time.Time) (int64, error)
	DeleteAll(ctx context.Context, userID string) (int64, error)
}

type postgresNotificationRepository struct {
	db *gorm.DB
}

func NewPostgresNotificationRepository(db *gorm.DB) NotificationRepository {
	return &postgresNotificationRepository{db: db}
}

func (r *postgresNotificationRepository) CreateNotification(ctx context.Context, notification *models.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

func (r *postgresNotificationRepository) GetByUserID(ctx context.Context, userID string, page, limit int) ([]models.Notification, int64, error) {
	var notifications []models.Notification
	var total int64

	db := r.db.WithContext(ctx)
	if err := db.Model(&models.Notification{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	err := db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&notifications).Error

	return notifications, total, err
}

func (r *postgresNotificationRepository) GetGrouped(ctx context.Context, userID string, now time.Time) (*models.GroupedNotifications, error) {
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	yesterdayStart := todayStart.AddDate(0, 0, -1)
	weekStart := todayStart.AddDate(0, 0, -7)

	db := r.db.WithContext(ctx)
	out := &models.GroupedNotifications{}

	// Today
	if err := db.Where("user_id = ? AND created_at >= ?", userID, todayStart).
		Order("created_at DESC").Find(&out.Today).Error; err != nil {
		return nil, err
	}

	// Yesterday
	if err := db.Where("user_id = ? AND created_at >= ? AND created_at < ?", userID, yesterdayStart, todayStart).
		Order("created_at DESC").Find(&out.Yesterday).Error; err != nil {
		return nil, err
	}

	// This week (excluding today and yesterday)
	if err := db.Where("user_id = ? AND created_at >= ? AND created_at < ?", userID, weekStart, yesterdayStart).
		Order("created_at DESC").Find(&out.ThisWeek).Error; err != nil {
		return nil, err
	}

	// Older
	if err := db.Where("user_id = ? AND created_at < ?", userID, weekStart).
		Order("created_at DESC").Limit(50).Find(&out.Older).Error; err != nil {
		return nil, err
	}

	return out, nil
}

func (r *postgresNotificationRepository) GetUnreadCount(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = false", userID).
		Count(&count).Error
	return count, err
}

func (r *postgresNotificationRepository) MarkAsRead(ctx context.Context, notificationID uint, userID string, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": gorm.Expr("COALESCE(read_at, ?)", at),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postgresNotificationRepository) MarkAllAsRead(ctx context.Context, userID string, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = false", userID).
		Updates(map[string]interface{}{"is_read": true, "read_at": at})
	return res.RowsAffected, res.Error
}

func (r *postgresNotificationRepository) DeleteAll(ctx context.Context, userID string) (int64, error) {
	res := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.Notification{})
	return res.RowsAffected, res.Error
}
