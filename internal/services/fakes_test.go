package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/anonto42/studyhub/backend/internal/models"
	"github.com/anonto42/studyhub/backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var errBoom = errors.New("boom")

// memStore backs every in-memory repository. Transactions run one at a time
// and restore a snapshot when their function fails.
type memStore struct {
	mu   sync.Mutex
	txMu sync.Mutex

	convs    map[primitive.ObjectID]*models.Conversation
	msgs     []*models.Message
	ledger   []models.ReputationHistory
	stats    map[string]*models.UserStats
	sessions map[primitive.ObjectID]*models.StudySession

	fail map[string]error

	// markReadStop, when set, makes MarkReadForReader fail after flipping
	// markReadAfter messages.
	markReadStop  error
	markReadAfter int
}

func newMemStore() *memStore {
	return &memStore{
		convs:    make(map[primitive.ObjectID]*models.Conversation),
		stats:    make(map[string]*models.UserStats),
		sessions: make(map[primitive.ObjectID]*models.StudySession),
		fail:     make(map[string]error),
	}
}

// failOn makes every later call of op return err.
func (s *memStore) failOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail[op] = err
}

// failMarkReadAfter makes MarkReadForReader flip k messages and then fail
// with err.
func (s *memStore) failMarkReadAfter(k int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markReadAfter = k
	s.markReadStop = err
}

func (s *memStore) injected(op string) error {
	return s.fail[op]
}

type memSnapshot struct {
	convs    map[primitive.ObjectID]*models.Conversation
	msgs     []*models.Message
	ledger   []models.ReputationHistory
	stats    map[string]*models.UserStats
	sessions map[primitive.ObjectID]*models.StudySession
}

func (s *memStore) snapshot() memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := memSnapshot{
		convs:    make(map[primitive.ObjectID]*models.Conversation, len(s.convs)),
		msgs:     make([]*models.Message, 0, len(s.msgs)),
		ledger:   append([]models.ReputationHistory(nil), s.ledger...),
		stats:    make(map[string]*models.UserStats, len(s.stats)),
		sessions: make(map[primitive.ObjectID]*models.StudySession, len(s.sessions)),
	}
	for id, c := range s.convs {
		snap.convs[id] = copyConversation(c)
	}
	for _, m := range s.msgs {
		snap.msgs = append(snap.msgs, copyMessage(m))
	}
	for id, st := range s.stats {
		cp := *st
		snap.stats[id] = &cp
	}
	for id, ss := range s.sessions {
		snap.sessions[id] = copySession(ss)
	}
	return snap
}

func (s *memStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.convs = snap.convs
	s.msgs = snap.msgs
	s.ledger = snap.ledger
	s.stats = snap.stats
	s.sessions = snap.sessions
}

func copyConversation(c *models.Conversation) *models.Conversation {
	cp := *c
	cp.Participants = append([]string(nil), c.Participants...)
	cp.ParticipantNames = make(map[string]string, len(c.ParticipantNames))
	for k, v := range c.ParticipantNames {
		cp.ParticipantNames[k] = v
	}
	cp.UnreadCounts = make(map[string]int, len(c.UnreadCounts))
	for k, v := range c.UnreadCounts {
		cp.UnreadCounts[k] = v
	}
	if c.LastMessage != nil {
		lm := *c.LastMessage
		cp.LastMessage = &lm
	}
	return &cp
}

func copyMessage(m *models.Message) *models.Message {
	cp := *m
	cp.Reactions = append([]models.Reaction{}, m.Reactions...)
	if m.ReadAt != nil {
		t := *m.ReadAt
		cp.ReadAt = &t
	}
	return &cp
}

func copySession(ss *models.StudySession) *models.StudySession {
	cp := *ss
	cp.Participants = append([]string(nil), ss.Participants...)
	if ss.CompletedAt != nil {
		t := *ss.CompletedAt
		cp.CompletedAt = &t
	}
	return &cp
}

// memTx implements repositories.TxRunner over memStore.
type memTx struct {
	store *memStore
	runs  int
}

func (t *memTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	t.store.txMu.Lock()
	defer t.store.txMu.Unlock()
	t.runs++

	snap := t.store.snapshot()
	if err := fn(ctx); err != nil {
		t.store.restore(snap)
		return err
	}
	return nil
}

// --- conversations ---

type memConversations struct{ s *memStore }

func (r memConversations) Create(ctx context.Context, conv *models.Conversation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.injected("conversations.Create"); err != nil {
		return err
	}
	if conv.ID.IsZero() {
		conv.ID = primitive.NewObjectID()
	}
	r.s.convs[conv.ID] = copyConversation(conv)
	return nil
}

func (r memConversations) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Conversation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.injected("conversations.GetByID"); err != nil {
		return nil, err
	}
	c, ok := r.s.convs[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return copyConversation(c), nil
}

func (r memConversations) FindDirect(ctx context.Context, a, b string) (*models.Conversation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range r.s.convs {
		if c.IsActive && len(c.Participants) == 2 && c.HasParticipant(a) && c.HasParticipant(b) {
			return copyConversation(c), nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r memConversations) ListForUser(ctx context.Context, userID string, skip, limit int64) ([]models.Conversation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Conversation
	for _, c := range r.s.convs {
		if c.IsActive && c.HasParticipant(userID) {
			out = append(out, *copyConversation(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return window(out, skip, limit), nil
}

func (r memConversations) ResetUnread(ctx context.Context, id primitive.ObjectID, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.injected("conversations.ResetUnread"); err != nil {
		return err
	}
	c, ok := r.s.convs[id]
	if !ok || !c.HasParticipant(userID) {
		return repositories.ErrNotFound
	}
	if c.UnreadCounts == nil {
		c.UnreadCounts = make(map[string]int)
	}
	c.UnreadCounts[userID] = 0
	return nil
}

func (r memConversations) RecordMessage(ctx context.Context, id primitive.ObjectID, last models.LastMessage, recipients []string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.injected("conversations.RecordMessage"); err != nil {
		return err
	}
	c, ok := r.s.convs[id]
	if !ok {
		return repositories.ErrNotFound
	}
	c.LastMessage = &last
	c.UpdatedAt = last.CreatedAt
	for _, p := range recipients {
		c.UnreadCounts[p]++
	}
	return nil
}

func (r memConversations) SetActive(ctx context.Context, id primitive.ObjectID, active bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.convs[id]
	if !ok {
		return repositories.ErrNotFound
	}
	c.IsActive = active
	return nil
}

// --- messages ---

type memMessages struct{ s *memStore }

func (r memMessages) Create(ctx context.Context, msg *models.Message) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.injected("messages.Create"); err != nil {
		return err
	}
	msg.ID = primitive.NewObjectID()
	r.s.msgs = append(r.s.msgs, copyMessage(msg))
	return nil
}

func (r memMessages) find(id primitive.ObjectID) *models.Message {
	for _, m := range r.s.msgs {
		if m.ID == id {
			return m
		}
	}
	return nil
}

func (r memMessages) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m := r.find(id)
	if m == nil {
		return nil, repositories.ErrNotFound
	}
	return copyMessage(m), nil
}

func (r memMessages) ListByConversation(ctx context.Context, convID primitive.ObjectID, skip, limit int64) ([]models.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Message
	for i := len(r.s.msgs) - 1; i >= 0; i-- {
		if r.s.msgs[i].ConversationID == convID {
			out = append(out, *copyMessage(r.s.msgs[i]))
		}
	}
	return window(out, skip, limit), nil
}

func (r memMessages) MarkReadForReader(ctx context.Context, convID primitive.ObjectID, readerID string, at time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.injected("messages.MarkReadForReader"); err != nil {
		return 0, err
	}
	var n int64
	for _, m := range r.s.msgs {
		if m.ConversationID == convID && m.SenderID != readerID && !m.Read {
			if r.s.markReadStop != nil && int(n) == r.s.markReadAfter {
				return n, r.s.markReadStop
			}
			t := at
			m.Read = true
			m.ReadAt = &t
			n++
		}
	}
	return n, nil
}

func (r memMessages) AddReaction(ctx context.Context, id primitive.ObjectID, reaction models.Reaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m := r.find(id)
	if m == nil {
		return repositories.ErrNotFound
	}
	for _, existing := range m.Reactions {
		if existing.UserID == reaction.UserID && existing.Emoji == reaction.Emoji {
			return repositories.ErrDuplicate
		}
	}
	m.Reactions = append(m.Reactions, reaction)
	return nil
}

func (r memMessages) RemoveReaction(ctx context.Context, id primitive.ObjectID, userID, emoji string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m := r.find(id)
	if m == nil {
		return repositories.ErrNotFound
	}
	kept := m.Reactions[:0]
	for _, existing := range m.Reactions {
		if existing.UserID == userID && existing.Emoji == emoji {
			continue
		}
		kept = append(kept, existing)
	}
	m.Reactions = kept
	return nil
}

// --- reputation ledger ---

type memLedger struct{ s *memStore }

func (r memLedger) Append(ctx context.Context, entry *models.ReputationHistory) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.injected("ledger.Append"); err != nil {
		return err
	}
	entry.ID = primitive.NewObjectID()
	r.s.ledger = append(r.s.ledger, *entry)
	return nil
}

func (r memLedger) Sum(ctx context.Context, userID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	total := 0
	for _, e := range r.s.ledger {
		if e.UserID != userID {
			continue
		}
		if e.Type == models.ReputationLost {
			total -= e.Points
		} else {
			total += e.Points
		}
	}
	return total, nil
}

func (r memLedger) ListByUser(ctx context.Context, userID string, skip, limit int64) ([]models.ReputationHistory, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.ReputationHistory
	for i := len(r.s.ledger) - 1; i >= 0; i-- {
		if r.s.ledger[i].UserID == userID {
			out = append(out, r.s.ledger[i])
		}
	}
	return window(out, skip, limit), nil
}

func (r memLedger) entries(userID string) []models.ReputationHistory {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.ReputationHistory
	for _, e := range r.s.ledger {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out
}

// --- stats ---

type memStats struct{ s *memStore }

func (r memStats) row(userID string) *models.UserStats {
	st, ok := r.s.stats[userID]
	if !ok {
		st = &models.UserStats{UserID: userID}
		r.s.stats[userID] = st
	}
	return st
}

func (r memStats) Get(ctx context.Context, userID string) (*models.UserStats, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	st, ok := r.s.stats[userID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *st
	return &cp, nil
}

func (r memStats) IncrementReputation(ctx context.Context, userID string, delta int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.injected("stats.IncrementReputation"); err != nil {
		return err
	}
	r.row(userID).Reputation += delta
	return nil
}

func (r memStats) SetReputation(ctx context.Context, userID string, total int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.row(userID).Reputation = total
	return nil
}

func (r memStats) RecordPomodoro(ctx context.Context, userID, today, yesterday string) (*models.UserStats, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	st := r.row(userID)
	switch st.LastStudyDay {
	case today:
		if st.CurrentStreak == 0 {
			st.CurrentStreak = 1
		}
	case yesterday:
		st.CurrentStreak++
	default:
		st.CurrentStreak = 1
	}
	st.PomodorosCompleted++
	st.LastStudyDay = today
	if st.CurrentStreak > st.LongestStreak {
		st.LongestStreak = st.CurrentStreak
	}
	cp := *st
	return &cp, nil
}

func (r memStats) TopByReputation(ctx context.Context, limit int64) ([]models.UserStats, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]models.UserStats, 0, len(r.s.stats))
	for _, st := range r.s.stats {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Reputation != out[j].Reputation {
			return out[i].Reputation > out[j].Reputation
		}
		return out[i].UserID < out[j].UserID
	})
	return window(out, 0, limit), nil
}

// --- sessions ---

type memSessions struct{ s *memStore }

func (r memSessions) Create(ctx context.Context, session *models.StudySession) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	session.ID = primitive.NewObjectID()
	if session.Status == "" {
		session.Status = models.SessionScheduled
	}
	r.s.sessions[session.ID] = copySession(session)
	return nil
}

func (r memSessions) GetByID(ctx context.Context, id primitive.ObjectID) (*models.StudySession, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ss, ok := r.s.sessions[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return copySession(ss), nil
}

func (r memSessions) AddParticipant(ctx context.Context, id primitive.ObjectID, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ss, ok := r.s.sessions[id]
	if !ok || ss.Status != models.SessionScheduled {
		return repositories.ErrNotFound
	}
	for _, p := range ss.Participants {
		if p == userID {
			return nil
		}
	}
	ss.Participants = append(ss.Participants, userID)
	return nil
}

func (r memSessions) MarkCompleted(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ss, ok := r.s.sessions[id]
	if !ok || ss.Status != models.SessionScheduled {
		return repositories.ErrNotFound
	}
	ss.Status = models.SessionCompleted
	ss.CompletedAt = &at
	return nil
}

func window[T any](in []T, skip, limit int64) []T {
	if skip >= int64(len(in)) {
		return []T{}
	}
	in = in[skip:]
	if limit > 0 && limit < int64(len(in)) {
		in = in[:limit]
	}
	return in
}

// --- collaborators ---

type emitted struct {
	Room    string
	Event   string
	Payload interface{}
	Except  string
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []emitted
}

func (b *recordingBroadcaster) Emit(roomID, event string, payload interface{}, exceptConnID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, emitted{Room: roomID, Event: event, Payload: payload, Except: exceptConnID})
}

func (b *recordingBroadcaster) all() []emitted {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]emitted(nil), b.events...)
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []models.Notification
	err  error
}

func (n *recordingNotifier) Notify(ctx context.Context, notification *models.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, *notification)
	return nil
}

func (n *recordingNotifier) forUser(userID string) []models.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []models.Notification
	for _, x := range n.sent {
		if x.UserID == userID {
			out = append(out, x)
		}
	}
	return out
}

// fixedClock returns a clock frozen at t.
func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
