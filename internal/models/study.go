package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	SessionScheduled = "scheduled"
	SessionCompleted = "completed"
)

// StudySession is a group study session. Completion is terminal.
type StudySession struct {
	ID           primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Title        string             `json:"title" bson:"title"`
	CreatorID    string             `json:"creatorId" bson:"creatorId"`
	Participants []string           `json:"participants" bson:"participants"`
	Status       string             `json:"status" bson:"status"`
	ScheduledAt  time.Time          `json:"scheduledAt" bson:"scheduledAt"`
	CompletedAt  *time.Time         `json:"completedAt,omitempty" bson:"completedAt,omitempty"`
	CreatedAt    time.Time          `json:"createdAt" bson:"createdAt"`
}

type CreateSessionRequest struct {
	Title       string    `json:"title" validate:"required,min=1,max=120"`
	ScheduledAt time.Time `json:"scheduledAt"`
}

type CompletePomodoroRequest struct {
	DurationMinutes int `json:"durationMinutes" validate:"omitempty,min=1,max=180"`
}

// PomodoroResult reports the stats after a completed pomodoro.
type PomodoroResult struct {
	Stats         UserStats `json:"stats"`
	Milestone     bool      `json:"milestone"`
	PointsAwarded int       `json:"pointsAwarded"`
}
