package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	ReputationEarned = "earned"
	ReputationLost   = "lost"
)

// ReputationHistory is an immutable ledger entry. The ledger is the source of
// truth for UserStats.Reputation.
type ReputationHistory struct {
	ID     primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID string             `json:"userId" bson:"userId"`
	Points int                `json:"points" bson:"points"`
	Reason string             `json:"reason" bson:"reason"`
	Type   string             `json:"type" bson:"type"`
	Date   time.Time          `json:"date" bson:"date"`
}

// UserStats holds a user's denormalized aggregates, keyed by user id.
type UserStats struct {
	UserID             string    `json:"userId" bson:"_id"`
	Reputation         int       `json:"reputation" bson:"reputation"`
	PomodorosCompleted int       `json:"pomodorosCompleted" bson:"pomodorosCompleted"`
	CurrentStreak      int       `json:"currentStreak" bson:"currentStreak"`
	LongestStreak      int       `json:"longestStreak" bson:"longestStreak"`
	LastStudyDay       string    `json:"lastStudyDay,omitempty" bson:"lastStudyDay,omitempty"`
	UpdatedAt          time.Time `json:"updatedAt" bson:"updatedAt"`
}

type AwardPointsRequest struct {
	UserID string `json:"userId" validate:"required,userid"`
	Points int    `json:"points" validate:"required,min=1,max=10000"`
	Reason string `json:"reason" validate:"required,min=1,max=200"`
}
