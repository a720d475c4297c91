package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/anonto42/studyhub/backend/internal/models"
	"github.com/anonto42/studyhub/backend/internal/relay"
	"github.com/anonto42/studyhub/backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ReactionEvent is the payload of a message-reaction push.
type ReactionEvent struct {
	MessageID      string            `json:"messageId"`
	ConversationID string            `json:"conversationId"`
	Reactions      []models.Reaction `json:"reactions"`
}

// MessagingService owns conversations and their messages. Durable writes go
// through the repositories; live peers learn about them through the relay.
type MessagingService struct {
	conversations repositories.ConversationRepository
	messages      repositories.MessageRepository
	tx            repositories.TxRunner
	rooms         relay.RoomBroadcaster
	now           func() time.Time
}

func NewMessagingService(
	conversations repositories.ConversationRepository,
	messages repositories.MessageRepository,
	tx repositories.TxRunner,
	rooms relay.RoomBroadcaster,
) *MessagingService {
	return &MessagingService{
		conversations: conversations,
		messages:      messages,
		tx:            tx,
		rooms:         rooms,
		now:           time.Now,
	}
}

// StartDirect returns the active direct conversation between me and the
// peer, creating it if none exists.
func (s *MessagingService) StartDirect(ctx context.Context, me string, req models.StartConversationRequest) (*models.Conversation, error) {
	if err := checkUserID(me); err != nil {
		return nil, err
	}
	if err := checkUserID(req.PeerID); err != nil {
		return nil, err
	}
	if me == req.PeerID {
		return nil, invalidArgument("cannot start a conversation with yourself")
	}

	existing, err := s.conversations.FindDirect(ctx, me, req.PeerID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, classify("start conversation", "conversation", err)
	}

	now := s.now()
	conv := &models.Conversation{
		Participants: []string{me, req.PeerID},
		ParticipantNames: map[string]string{
			me:         req.MyName,
			req.PeerID: req.PeerName,
		},
		UnreadCounts: map[string]int{me: 0, req.PeerID: 0},
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.conversations.Create(ctx, conv); err != nil {
		return nil, classify("start conversation", "conversation", err)
	}
	return conv, nil
}

// ListConversations lists userID's conversations, most recently active first,
// each carrying userID's own unread counter.
func (s *MessagingService) ListConversations(ctx context.Context, userID string, page, limit int) ([]models.ConversationSummary, error) {
	if err := checkUserID(userID); err != nil {
		return nil, err
	}
	skip, lim := pageBounds(page, limit)
	convs, err := s.conversations.ListForUser(ctx, userID, skip, lim)
	if err != nil {
		return nil, classify("list conversations", "conversation", err)
	}

	out := make([]models.ConversationSummary, 0, len(convs))
	for _, c := range convs {
		out = append(out, models.ConversationSummary{
			Conversation: c,
			UnreadCount:  c.UnreadCounts[userID],
		})
	}
	return out, nil
}

// participantConversation loads the conversation and checks membership.
func (s *MessagingService) participantConversation(ctx context.Context, oid primitive.ObjectID, userID string) (*models.Conversation, error) {
	conv, err := s.conversations.GetByID(ctx, oid)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(userID) {
		return nil, forbidden("user %s is not a participant", userID)
	}
	return conv, nil
}

// CanJoinRoom reports whether userID participates in the conversation whose
// id is roomID. It backs the relay's join check, so lookup failures deny.
func (s *MessagingService) CanJoinRoom(ctx context.Context, userID, roomID string) bool {
	oid, err := primitive.ObjectIDFromHex(roomID)
	if err != nil {
		return false
	}
	if _, err := s.participantConversation(ctx, oid, userID); err != nil {
		if !errors.Is(err, repositories.ErrNotFound) && !errors.Is(err, ErrForbidden) {
			slog.WarnContext(ctx, "room join check failed", "room", roomID, "user_id", userID, "error", err)
		}
		return false
	}
	return true
}

func (s *MessagingService) ListMessages(ctx context.Context, conversationID, userID string, page, limit int) ([]models.Message, error) {
	oid, err := parseID("conversation", conversationID)
	if err != nil {
		return nil, err
	}
	if err := checkUserID(userID); err != nil {
		return nil, err
	}
	if _, err := s.participantConversation(ctx, oid, userID); err != nil {
		return nil, classify("list messages", "conversation", err)
	}

	skip, lim := pageBounds(page, limit)
	msgs, err := s.messages.ListByConversation(ctx, oid, skip, lim)
	if err != nil {
		return nil, classify("list messages", "message", err)
	}
	return msgs, nil
}

// SendMessage stores a message and bumps every other participant's unread
// counter in one transaction, then pushes new-message to the room.
func (s *MessagingService) SendMessage(ctx context.Context, conversationID, senderID string, req models.SendMessageRequest) (*models.Message, error) {
	oid, err := parseID("conversation", conversationID)
	if err != nil {
		return nil, err
	}
	if err := checkUserID(senderID); err != nil {
		return nil, err
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, invalidArgument("message content is empty")
	}

	var msg *models.Message
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		conv, err := s.participantConversation(ctx, oid, senderID)
		if err != nil {
			return err
		}
		if !conv.IsActive {
			return conflict("conversation is inactive")
		}

		now := s.now()
		m := &models.Message{
			ConversationID: oid,
			SenderID:       senderID,
			Content:        content,
			Reactions:      []models.Reaction{},
			CreatedAt:      now,
		}
		if err := s.messages.Create(ctx, m); err != nil {
			return err
		}
		last := models.LastMessage{Content: content, SenderID: senderID, CreatedAt: now}
		if err := s.conversations.RecordMessage(ctx, oid, last, conv.Others(senderID)); err != nil {
			return err
		}
		msg = m
		return nil
	})
	if err != nil {
		err = classify("send message", "conversation", err)
		if errors.Is(err, ErrInternal) {
			slog.ErrorContext(ctx, "send message aborted", "conversation_id", conversationID, "error", err)
		}
		return nil, err
	}

	s.rooms.Emit(conversationID, relay.EventNewMessage, msg, "")
	return msg, nil
}

// messageInConversation loads a message and checks that userID belongs to
// its conversation.
func (s *MessagingService) messageInConversation(ctx context.Context, messageID, userID string) (*models.Message, error) {
	oid, err := parseID("message", messageID)
	if err != nil {
		return nil, err
	}
	if err := checkUserID(userID); err != nil {
		return nil, err
	}
	msg, err := s.messages.GetByID(ctx, oid)
	if err != nil {
		return nil, classify("load message", "message", err)
	}
	if _, err := s.participantConversation(ctx, msg.ConversationID, userID); err != nil {
		return nil, classify("load message", "conversation", err)
	}
	return msg, nil
}

func (s *MessagingService) AddReaction(ctx context.Context, messageID, userID string, req models.ReactionRequest) (*models.Message, error) {
	msg, err := s.messageInConversation(ctx, messageID, userID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Emoji) == "" {
		return nil, invalidArgument("emoji is required")
	}

	reaction := models.Reaction{Emoji: req.Emoji, UserID: userID, UserName: req.UserName}
	if err := s.messages.AddReaction(ctx, msg.ID, reaction); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, conflict("reaction already present")
		}
		return nil, classify("add reaction", "message", err)
	}
	return s.pushReactions(ctx, msg.ID)
}

func (s *MessagingService) RemoveReaction(ctx context.Context, messageID, userID, emoji string) (*models.Message, error) {
	msg, err := s.messageInConversation(ctx, messageID, userID)
	if err != nil {
		return nil, err
	}
	if err := s.messages.RemoveReaction(ctx, msg.ID, userID, emoji); err != nil {
		return nil, classify("remove reaction", "message", err)
	}
	return s.pushReactions(ctx, msg.ID)
}

func (s *MessagingService) pushReactions(ctx context.Context, id primitive.ObjectID) (*models.Message, error) {
	msg, err := s.messages.GetByID(ctx, id)
	if err != nil {
		return nil, classify("reload message", "message", err)
	}
	conversationID := msg.ConversationID.Hex()
	s.rooms.Emit(conversationID, relay.EventMessageReaction, ReactionEvent{
		MessageID:      msg.ID.Hex(),
		ConversationID: conversationID,
		Reactions:      msg.Reactions,
	}, "")
	return msg, nil
}

// Deactivate soft-closes a conversation. Messages are kept; sending into it
// fails with ErrConflict.
func (s *MessagingService) Deactivate(ctx context.Context, conversationID, userID string) error {
	oid, err := parseID("conversation", conversationID)
	if err != nil {
		return err
	}
	if err := checkUserID(userID); err != nil {
		return err
	}
	if _, err := s.participantConversation(ctx, oid, userID); err != nil {
		return classify("deactivate conversation", "conversation", err)
	}
	return classify("deactivate conversation", "conversation", s.conversations.SetActive(ctx, oid, false))
}
