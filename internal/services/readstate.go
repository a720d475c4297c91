package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/anonto42/studyhub/backend/internal/repositories"
	"github.com/anonto42/studyhub/backend/pkg/metrics"
)

// ReadStateService keeps a conversation's per-participant unread counters
// consistent with the read flags of its messages.
//
// QuickMarkViewed is the cheap path, fired whenever a user opens or refocuses
// a conversation: it touches the conversation document only. MarkAllRead is
// the heavy path: it flips message flags and resets the counter inside one
// transaction, so no reader ever observes one write without the other.
type ReadStateService struct {
	conversations repositories.ConversationRepository
	messages      repositories.MessageRepository
	tx            repositories.TxRunner
	metrics       *metrics.Metrics
	now           func() time.Time
}

func NewReadStateService(
	conversations repositories.ConversationRepository,
	messages repositories.MessageRepository,
	tx repositories.TxRunner,
	m *metrics.Metrics,
) *ReadStateService {
	return &ReadStateService{
		conversations: conversations,
		messages:      messages,
		tx:            tx,
		metrics:       m,
		now:           time.Now,
	}
}

// QuickMarkViewed sets userID's unread counter on the conversation to zero.
// It never touches messages and is idempotent.
func (s *ReadStateService) QuickMarkViewed(ctx context.Context, conversationID, userID string) error {
	oid, err := parseID("conversation", conversationID)
	if err != nil {
		return err
	}
	if err := checkUserID(userID); err != nil {
		return err
	}

	err = s.conversations.ResetUnread(ctx, oid, userID)
	if errors.Is(err, repositories.ErrNotFound) {
		// The guarded update matched nothing: either the conversation is
		// missing or userID is not one of its participants.
		conv, gerr := s.conversations.GetByID(ctx, oid)
		if gerr != nil {
			return classify("quick mark viewed", "conversation", gerr)
		}
		if !conv.HasParticipant(userID) {
			return forbidden("user %s is not a participant", userID)
		}
		return notFound("conversation")
	}
	return classify("quick mark viewed", "conversation", err)
}

// MarkAllRead marks every unread message of the conversation that userID did
// not send as read and resets userID's counter, atomically. It returns the
// number of messages that moved from unread to read. On any failure nothing
// is applied.
func (s *ReadStateService) MarkAllRead(ctx context.Context, conversationID, userID string) (int64, error) {
	oid, err := parseID("conversation", conversationID)
	if err != nil {
		return 0, err
	}
	if err := checkUserID(userID); err != nil {
		return 0, err
	}

	var marked int64
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		marked = 0

		conv, err := s.conversations.GetByID(ctx, oid)
		if err != nil {
			return err
		}
		if !conv.HasParticipant(userID) {
			return forbidden("user %s is not a participant", userID)
		}

		n, err := s.messages.MarkReadForReader(ctx, oid, userID, s.now())
		if err != nil {
			return err
		}
		if err := s.conversations.ResetUnread(ctx, oid, userID); err != nil {
			return err
		}
		marked = n
		return nil
	})
	if err != nil {
		err = classify("mark all read", "conversation", err)
		if errors.Is(err, ErrInternal) {
			slog.ErrorContext(ctx, "mark all read aborted",
				"conversation_id", conversationID, "user_id", userID, "error", err)
		}
		return 0, err
	}

	s.metrics.MarkedRead(marked)
	return marked, nil
}
