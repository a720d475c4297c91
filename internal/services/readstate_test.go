package services

import (
	"context"
	"testing"
	"time"

	"github.com/anonto42/studyhub/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type readStateFixture struct {
	store *memStore
	tx    *memTx
	svc   *ReadStateService
	conv  primitive.ObjectID
}

func newReadStateFixture(t *testing.T) *readStateFixture {
	t.Helper()
	store := newMemStore()
	tx := &memTx{store: store}
	svc := NewReadStateService(memConversations{store}, memMessages{store}, tx, nil)
	svc.now = fixedClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	conv := &models.Conversation{
		Participants: []string{"alice", "bob"},
		UnreadCounts: map[string]int{"alice": 0, "bob": 0},
		IsActive:     true,
	}
	require.NoError(t, memConversations{store}.Create(context.Background(), conv))
	return &readStateFixture{store: store, tx: tx, svc: svc, conv: conv.ID}
}

// seed stores a message from sender and bumps the other participant's counter.
func (f *readStateFixture) seed(t *testing.T, sender string, n int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < n; i++ {
		msg := &models.Message{ConversationID: f.conv, SenderID: sender, Content: "hi", CreatedAt: time.Now()}
		require.NoError(t, memMessages{f.store}.Create(ctx, msg))
		conv, err := memConversations{f.store}.GetByID(ctx, f.conv)
		require.NoError(t, err)
		last := models.LastMessage{Content: "hi", SenderID: sender, CreatedAt: msg.CreatedAt}
		require.NoError(t, memConversations{f.store}.RecordMessage(ctx, f.conv, last, conv.Others(sender)))
	}
}

func (f *readStateFixture) unread(t *testing.T, user string) int {
	t.Helper()
	conv, err := memConversations{f.store}.GetByID(context.Background(), f.conv)
	require.NoError(t, err)
	return conv.UnreadCounts[user]
}

func (f *readStateFixture) messages(t *testing.T) []models.Message {
	t.Helper()
	msgs, err := memMessages{f.store}.ListByConversation(context.Background(), f.conv, 0, 0)
	require.NoError(t, err)
	return msgs
}

func TestQuickMarkViewed_ResetsCounterOnly(t *testing.T) {
	f := newReadStateFixture(t)
	f.seed(t, "alice", 3)
	require.Equal(t, 3, f.unread(t, "bob"))

	require.NoError(t, f.svc.QuickMarkViewed(context.Background(), f.conv.Hex(), "bob"))

	assert.Equal(t, 0, f.unread(t, "bob"))
	for _, m := range f.messages(t) {
		assert.False(t, m.Read, "quick path must not touch messages")
	}
	assert.Zero(t, f.tx.runs)
}

func TestQuickMarkViewed_Idempotent(t *testing.T) {
	f := newReadStateFixture(t)
	f.seed(t, "alice", 2)
	ctx := context.Background()

	require.NoError(t, f.svc.QuickMarkViewed(ctx, f.conv.Hex(), "bob"))
	first := f.unread(t, "bob")
	require.NoError(t, f.svc.QuickMarkViewed(ctx, f.conv.Hex(), "bob"))

	assert.Equal(t, first, f.unread(t, "bob"))
	assert.Equal(t, 0, f.unread(t, "alice"))
}

func TestQuickMarkViewed_Errors(t *testing.T) {
	f := newReadStateFixture(t)
	ctx := context.Background()

	err := f.svc.QuickMarkViewed(ctx, "not-an-id", "bob")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	err = f.svc.QuickMarkViewed(ctx, f.conv.Hex(), "bad.user")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	err = f.svc.QuickMarkViewed(ctx, primitive.NewObjectID().Hex(), "bob")
	assert.ErrorIs(t, err, ErrNotFound)

	err = f.svc.QuickMarkViewed(ctx, f.conv.Hex(), "mallory")
	assert.ErrorIs(t, err, ErrForbidden)

	conv, gerr := memConversations{f.store}.GetByID(ctx, f.conv)
	require.NoError(t, gerr)
	_, present := conv.UnreadCounts["mallory"]
	assert.False(t, present, "non-participant must not gain a counter")
}

func TestMarkAllRead_MarksOnlyOthersMessages(t *testing.T) {
	f := newReadStateFixture(t)
	f.seed(t, "alice", 3)
	f.seed(t, "bob", 2)

	n, err := f.svc.MarkAllRead(context.Background(), f.conv.Hex(), "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, 0, f.unread(t, "bob"))
	assert.Equal(t, 2, f.unread(t, "alice"))

	for _, m := range f.messages(t) {
		if m.SenderID == "alice" {
			assert.True(t, m.Read)
			require.NotNil(t, m.ReadAt)
			assert.Equal(t, f.svc.now(), *m.ReadAt)
		} else {
			assert.False(t, m.Read)
			assert.Nil(t, m.ReadAt)
		}
	}
}

func TestMarkAllRead_SecondCallTransitionsNothing(t *testing.T) {
	f := newReadStateFixture(t)
	f.seed(t, "alice", 2)
	ctx := context.Background()

	n, err := f.svc.MarkAllRead(ctx, f.conv.Hex(), "bob")
	require.NoError(t, err)
	require.Equal(t, int64(2), n)

	n, err = f.svc.MarkAllRead(ctx, f.conv.Hex(), "bob")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMarkAllRead_ReadIsMonotonic(t *testing.T) {
	f := newReadStateFixture(t)
	f.seed(t, "alice", 1)
	ctx := context.Background()

	_, err := f.svc.MarkAllRead(ctx, f.conv.Hex(), "bob")
	require.NoError(t, err)
	firstReadAt := *f.messages(t)[0].ReadAt

	f.svc.now = fixedClock(firstReadAt.Add(time.Hour))
	f.seed(t, "alice", 1)
	require.NoError(t, f.svc.QuickMarkViewed(ctx, f.conv.Hex(), "bob"))
	n, err := f.svc.MarkAllRead(ctx, f.conv.Hex(), "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	msgs := f.messages(t)
	require.Len(t, msgs, 2)
	// Newest first: the second message took the new time, the first kept its own.
	assert.Equal(t, firstReadAt.Add(time.Hour), *msgs[0].ReadAt)
	assert.Equal(t, firstReadAt, *msgs[1].ReadAt)
	for _, m := range msgs {
		assert.True(t, m.Read)
	}
}

func TestMarkAllRead_RollsBackOnFailure(t *testing.T) {
	f := newReadStateFixture(t)
	f.seed(t, "alice", 3)
	f.store.failOn("conversations.ResetUnread", errBoom)

	n, err := f.svc.MarkAllRead(context.Background(), f.conv.Hex(), "bob")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInternal)
	assert.Zero(t, n)

	assert.Equal(t, 3, f.unread(t, "bob"))
	for _, m := range f.messages(t) {
		assert.False(t, m.Read, "message flags must roll back with the counter")
		assert.Nil(t, m.ReadAt)
	}
}

func TestMarkAllRead_PartialFlipRollsBack(t *testing.T) {
	f := newReadStateFixture(t)
	f.seed(t, "alice", 5)
	f.store.failMarkReadAfter(2, errBoom)

	n, err := f.svc.MarkAllRead(context.Background(), f.conv.Hex(), "bob")
	assert.ErrorIs(t, err, ErrInternal)
	assert.Zero(t, n)

	assert.Equal(t, 5, f.unread(t, "bob"))
	msgs := f.messages(t)
	require.Len(t, msgs, 5)
	for _, m := range msgs {
		assert.False(t, m.Read, "flipped messages must roll back")
		assert.Nil(t, m.ReadAt)
	}

	f.store.failMarkReadAfter(0, nil)
	n, err = f.svc.MarkAllRead(context.Background(), f.conv.Hex(), "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
}

func TestMarkAllRead_FailureBeforeWritesLeavesStateUntouched(t *testing.T) {
	f := newReadStateFixture(t)
	f.seed(t, "alice", 2)
	f.store.failOn("messages.MarkReadForReader", errBoom)

	_, err := f.svc.MarkAllRead(context.Background(), f.conv.Hex(), "bob")
	assert.ErrorIs(t, err, ErrInternal)
	assert.Equal(t, 2, f.unread(t, "bob"))
}

func TestMarkAllRead_Errors(t *testing.T) {
	f := newReadStateFixture(t)
	ctx := context.Background()

	_, err := f.svc.MarkAllRead(ctx, "xyz", "bob")
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Zero(t, f.tx.runs, "malformed ids fail before any I/O")

	_, err = f.svc.MarkAllRead(ctx, primitive.NewObjectID().Hex(), "bob")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.MarkAllRead(ctx, f.conv.Hex(), "mallory")
	assert.ErrorIs(t, err, ErrForbidden)
}
