package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message is one unit of conversation content. ReadAt is set iff Read is true,
// and Read never goes back to false.
type Message struct {
	ID             primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	ConversationID primitive.ObjectID `json:"conversationId" bson:"conversationId"`
	SenderID       string             `json:"senderId" bson:"senderId"`
	Content        string             `json:"content" bson:"content"`
	Read           bool               `json:"read" bson:"read"`
	ReadAt         *time.Time         `json:"readAt,omitempty" bson:"readAt,omitempty"`
	Reactions      []Reaction         `json:"reactions" bson:"reactions"`
	CreatedAt      time.Time          `json:"createdAt" bson:"createdAt"`
}

type Reaction struct {
	Emoji    string `json:"emoji" bson:"emoji"`
	UserID   string `json:"userId" bson:"userId"`
	UserName string `json:"userName,omitempty" bson:"userName,omitempty"`
}

type SendMessageRequest struct {
	Content    string `json:"content" validate:"required,min=1,max=4000"`
	SenderName string `json:"senderName" validate:"omitempty,max=80"`
}

type ReactionRequest struct {
	Emoji    string `json:"emoji" validate:"required,max=16"`
	UserName string `json:"userName" validate:"omitempty,max=80"`
}
