package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anonto42/studyhub/backend/internal/models"
	"github.com/anonto42/studyhub/backend/internal/repositories"
)

// Reputation rewards for study activity.
const (
	PomodoroMilestoneEvery   = 4
	PomodoroMilestonePoints  = 5
	SessionParticipantPoints = 10
	SessionCreatorBonus      = 20
)

const dayKeyLayout = "2006-01-02"

// SessionCompletion reports a completed session and the points each user
// was granted for it.
type SessionCompletion struct {
	Session *models.StudySession `json:"session"`
	Awarded map[string]int       `json:"awarded"`
}

type StudyService struct {
	stats    repositories.StatsRepository
	sessions repositories.SessionRepository
	awarder  PointsAwarder
	notifier Notifier
	now      func() time.Time
}

func NewStudyService(
	stats repositories.StatsRepository,
	sessions repositories.SessionRepository,
	awarder PointsAwarder,
	notifier Notifier,
) *StudyService {
	return &StudyService{
		stats:    stats,
		sessions: sessions,
		awarder:  awarder,
		notifier: notifier,
		now:      time.Now,
	}
}

// CompletePomodoro records one finished pomodoro for userID and updates the
// daily streak. Every PomodoroMilestoneEvery-th pomodoro earns
// PomodoroMilestonePoints and a milestone notification.
func (s *StudyService) CompletePomodoro(ctx context.Context, userID string) (*models.PomodoroResult, error) {
	if err := checkUserID(userID); err != nil {
		return nil, err
	}

	now := s.now()
	today := now.Format(dayKeyLayout)
	yesterday := now.AddDate(0, 0, -1).Format(dayKeyLayout)

	st, err := s.stats.RecordPomodoro(ctx, userID, today, yesterday)
	if err != nil {
		return nil, classify("complete pomodoro", "stats", err)
	}

	res := &models.PomodoroResult{Stats: *st}
	if st.PomodorosCompleted == 0 || st.PomodorosCompleted%PomodoroMilestoneEvery != 0 {
		return res, nil
	}

	reason := fmt.Sprintf("Completed %d pomodoros", st.PomodorosCompleted)
	if _, err := s.awarder.AwardPoints(ctx, userID, PomodoroMilestonePoints, reason); err != nil {
		return nil, err
	}
	res.Milestone = true
	res.PointsAwarded = PomodoroMilestonePoints
	res.Stats.Reputation += PomodoroMilestonePoints

	notifyBestEffort(ctx, s.notifier, &models.Notification{
		UserID:      userID,
		Type:        models.NotificationMilestone,
		Title:       "Pomodoro milestone",
		Description: fmt.Sprintf("%s. +%d reputation", reason, PomodoroMilestonePoints),
		RelatedType: "pomodoro",
		CreatedAt:   now,
	})
	return res, nil
}

// CreateSession schedules a session with the creator as first participant.
func (s *StudyService) CreateSession(ctx context.Context, creatorID string, req models.CreateSessionRequest) (*models.StudySession, error) {
	if err := checkUserID(creatorID); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, invalidArgument("title is required")
	}
	scheduledAt := req.ScheduledAt
	if scheduledAt.IsZero() {
		scheduledAt = s.now()
	}

	session := &models.StudySession{
		Title:        title,
		CreatorID:    creatorID,
		Participants: []string{creatorID},
		Status:       models.SessionScheduled,
		ScheduledAt:  scheduledAt,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, classify("create session", "session", err)
	}
	return session, nil
}

func (s *StudyService) GetSession(ctx context.Context, sessionID string) (*models.StudySession, error) {
	oid, err := parseID("session", sessionID)
	if err != nil {
		return nil, err
	}
	session, err := s.sessions.GetByID(ctx, oid)
	if err != nil {
		return nil, classify("get session", "session", err)
	}
	return session, nil
}

// JoinSession adds userID to a scheduled session. Joining twice is a no-op;
// joining a completed session is ErrConflict.
func (s *StudyService) JoinSession(ctx context.Context, sessionID, userID string) (*models.StudySession, error) {
	oid, err := parseID("session", sessionID)
	if err != nil {
		return nil, err
	}
	if err := checkUserID(userID); err != nil {
		return nil, err
	}

	err = s.sessions.AddParticipant(ctx, oid, userID)
	if errors.Is(err, repositories.ErrNotFound) {
		if _, gerr := s.sessions.GetByID(ctx, oid); gerr != nil {
			return nil, classify("join session", "session", gerr)
		}
		return nil, conflict("session is already completed")
	}
	if err != nil {
		return nil, classify("join session", "session", err)
	}
	return s.GetSession(ctx, sessionID)
}

// CompleteSession moves a scheduled session to completed and rewards its
// participants: SessionParticipantPoints each, plus SessionCreatorBonus for
// the creator. Only the creator may complete a session, and only once.
func (s *StudyService) CompleteSession(ctx context.Context, sessionID, userID string) (*SessionCompletion, error) {
	oid, err := parseID("session", sessionID)
	if err != nil {
		return nil, err
	}
	if err := checkUserID(userID); err != nil {
		return nil, err
	}

	session, err := s.sessions.GetByID(ctx, oid)
	if err != nil {
		return nil, classify("complete session", "session", err)
	}
	if session.CreatorID != userID {
		return nil, forbidden("only the creator can complete the session")
	}
	if session.Status == models.SessionCompleted {
		return nil, conflict("session is already completed")
	}

	now := s.now()
	if err := s.sessions.MarkCompleted(ctx, oid, now); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, conflict("session is already completed")
		}
		return nil, classify("complete session", "session", err)
	}
	session.Status = models.SessionCompleted
	session.CompletedAt = &now

	awarded := make(map[string]int, len(session.Participants)+1)
	for _, p := range session.Participants {
		awarded[p] += SessionParticipantPoints
	}
	awarded[session.CreatorID] += SessionCreatorBonus

	var errs []error
	for _, p := range sessionRecipients(session) {
		reason := fmt.Sprintf("Completed study session: %s", session.Title)
		if p == session.CreatorID {
			reason = fmt.Sprintf("Hosted study session: %s", session.Title)
		}
		if _, err := s.awarder.AwardPoints(ctx, p, awarded[p], reason); err != nil {
			errs = append(errs, err)
			delete(awarded, p)
			continue
		}
		notifyBestEffort(ctx, s.notifier, &models.Notification{
			UserID:      p,
			Type:        models.NotificationSessionCompleted,
			Title:       "Study session completed",
			Description: fmt.Sprintf("%s. +%d reputation", session.Title, awarded[p]),
			RelatedID:   session.ID.Hex(),
			RelatedType: "study_session",
			CreatedAt:   now,
		})
	}

	out := &SessionCompletion{Session: session, Awarded: awarded}
	if len(errs) > 0 {
		return out, internal("award session points", errors.Join(errs...))
	}
	return out, nil
}

// sessionRecipients returns each participant once, creator included, in
// participant order.
func sessionRecipients(session *models.StudySession) []string {
	seen := make(map[string]struct{}, len(session.Participants)+1)
	out := make([]string, 0, len(session.Participants)+1)
	for _, p := range append(append([]string{}, session.Participants...), session.CreatorID) {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
