package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LikeTarget is the slice of a likeable document (question, answer, post or
// blog post) that the like flow reads and writes. Each variant lives in its
// own collection.
type LikeTarget struct {
	ID         primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	OwnerID    string             `json:"owner_id" bson:"owner_id"`
	LikesCount int                `json:"likes_count" bson:"likes_count"`
	UpdatedAt  time.Time          `json:"updated_at" bson:"updated_at"`
}

type LikeRequest struct {
	ParentType ParentType `json:"parentType" validate:"required,oneof=question answer post blog_post"`
	ParentID   string     `json:"parentId" validate:"required,objectid"`
}
