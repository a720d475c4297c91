package models

import "time"

// ParentType discriminates the entity a like points at.
type ParentType string

const (
	ParentQuestion ParentType = "question"
	ParentAnswer   ParentType = "answer"
	ParentPost     ParentType = "post"
	ParentBlogPost ParentType = "blog_post"
)

// ParentTypes lists every likeable variant.
var ParentTypes = []ParentType{ParentQuestion, ParentAnswer, ParentPost, ParentBlogPost}

// Like records one user's like on one parent entity (PostgreSQL).
type Like struct {
	ID         uint       `json:"id" gorm:"primaryKey"`
	ParentType ParentType `json:"parent_type" gorm:"size:20;uniqueIndex:idx_like_parent_user"`
	ParentID   string     `json:"parent_id" gorm:"size:64;index;uniqueIndex:idx_like_parent_user"`
	UserID     string     `json:"user_id" gorm:"size:64;index;uniqueIndex:idx_like_parent_user"`
	CreatedAt  time.Time  `json:"created_at"`
}
