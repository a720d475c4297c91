package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Conversation is a message thread between two or more participants.
// Every key of UnreadCounts is a member of Participants.
type Conversation struct {
	ID               primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Participants     []string           `json:"participants" bson:"participants"`
	ParticipantNames map[string]string  `json:"participantNames" bson:"participantNames"`
	LastMessage      *LastMessage       `json:"lastMessage,omitempty" bson:"lastMessage,omitempty"`
	UnreadCounts     map[string]int     `json:"unreadCounts" bson:"unreadCounts"`
	IsActive         bool               `json:"isActive" bson:"isActive"`
	CreatedAt        time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt        time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// LastMessage is the denormalized snapshot shown in conversation lists.
type LastMessage struct {
	Content   string    `json:"content" bson:"content"`
	SenderID  string    `json:"senderId" bson:"senderId"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// HasParticipant reports whether userID belongs to the conversation.
func (c *Conversation) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// Others returns every participant except userID, in participant order.
func (c *Conversation) Others(userID string) []string {
	out := make([]string, 0, len(c.Participants))
	for _, p := range c.Participants {
		if p != userID {
			out = append(out, p)
		}
	}
	return out
}

// ConversationSummary is a conversation as listed for one participant.
type ConversationSummary struct {
	Conversation
	UnreadCount int `json:"unreadCount"`
}

type StartConversationRequest struct {
	PeerID   string `json:"peerId" validate:"required,userid"`
	PeerName string `json:"peerName" validate:"omitempty,max=80"`
	MyName   string `json:"myName" validate:"omitempty,max=80"`
}

// ReadStateRequest is the body form of the mark-viewed and mark-read calls.
type ReadStateRequest struct {
	ConversationID string `json:"conversationId" validate:"required,objectid"`
	UserID         string `json:"userId" validate:"required,userid"`
}
