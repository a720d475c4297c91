package models

import "time"

// Notification types produced by the platform.
const (
	NotificationLike             = "like"
	NotificationMention          = "mention"
	NotificationMilestone        = "milestone"
	NotificationSessionCompleted = "session_completed"
	NotificationReputation       = "reputation"
)

// Notification represents a user notification (PostgreSQL). ReadAt is set iff IsRead.
type Notification struct {
	ID          uint       `json:"id" gorm:"primaryKey"`
	UserID      string     `json:"user_id" gorm:"size:64;index"`
	Type        string     `json:"type" gorm:"size:30;index"`
	Title       string     `json:"title" gorm:"size:200"`
	Description string     `json:"description"`
	RelatedID   string     `json:"related_id,omitempty" gorm:"size:64"`
	RelatedType string     `json:"related_type,omitempty" gorm:"size:30"`
	Link        string     `json:"link,omitempty"`
	IsRead      bool       `json:"is_read" gorm:"default:false;index"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at" gorm:"index"`
}

// GroupedNotifications buckets a user's notifications by age.
type GroupedNotifications struct {
	Today     []Notification `json:"today"`
	Yesterday []Notification `json:"yesterday"`
	ThisWeek  []Notification `json:"thisWeek"`
	Older     []Notification `json:"older"`
}
