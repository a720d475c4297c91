package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/anonto42/studyhub/backend/internal/models"
	"github.com/anonto42/studyhub/backend/internal/repositories"
)

// LikeStatus is a user's view of one likeable item.
type LikeStatus struct {
	ParentType models.ParentType `json:"parentType"`
	ParentID   string            `json:"parentId"`
	Liked      bool              `json:"liked"`
	Count      int64             `json:"count"`
}

// LikeService records likes on any likeable variant. The like row lives in
// PostgreSQL; the denormalized counter lives on the target document.
type LikeService struct {
	likes    repositories.LikeRepository
	targets  map[models.ParentType]repositories.LikeTargetRepository
	notifier Notifier
	now      func() time.Time
}

func NewLikeService(
	likes repositories.LikeRepository,
	targets map[models.ParentType]repositories.LikeTargetRepository,
	notifier Notifier,
) *LikeService {
	return &LikeService{likes: likes, targets: targets, notifier: notifier, now: time.Now}
}

func (s *LikeService) target(kind models.ParentType, parentID string) (repositories.LikeTargetRepository, error) {
	t, ok := s.targets[kind]
	if !ok {
		return nil, invalidArgument("unknown parent type %q", kind)
	}
	if _, err := parseID(string(kind), parentID); err != nil {
		return nil, err
	}
	return t, nil
}

// Like records userID's like and bumps the target's counter. The owner is
// notified unless they liked their own item.
func (s *LikeService) Like(ctx context.Context, userID string, req models.LikeRequest) (*LikeStatus, error) {
	if err := checkUserID(userID); err != nil {
		return nil, err
	}
	t, err := s.target(req.ParentType, req.ParentID)
	if err != nil {
		return nil, err
	}

	owner, err := t.OwnerOf(ctx, req.ParentID)
	if err != nil {
		return nil, classify("like", string(req.ParentType), err)
	}

	like := &models.Like{ParentType: req.ParentType, ParentID: req.ParentID, UserID: userID, CreatedAt: s.now()}
	if err := s.likes.CreateLike(ctx, like); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, conflict("already liked")
		}
		return nil, classify("like", "like", err)
	}

	if err := t.AddLikes(ctx, req.ParentID, 1); err != nil {
		// Undo the row so the counter and the rows stay in step.
		if derr := s.likes.DeleteLike(ctx, req.ParentType, req.ParentID, userID); derr != nil {
			slog.ErrorContext(ctx, "like compensation failed",
				"parent_type", req.ParentType, "parent_id", req.ParentID, "user_id", userID, "error", derr)
		}
		return nil, classify("like", string(req.ParentType), err)
	}

	if owner != "" && owner != userID {
		notifyBestEffort(ctx, s.notifier, &models.Notification{
			UserID:      owner,
			Type:        models.NotificationLike,
			Title:       "New like",
			Description: fmt.Sprintf("Someone liked your %s", humanParentType(req.ParentType)),
			RelatedID:   req.ParentID,
			RelatedType: string(req.ParentType),
		})
	}
	return s.Status(ctx, userID, req.ParentType, req.ParentID)
}

// Unlike removes userID's like and decrements the counter.
func (s *LikeService) Unlike(ctx context.Context, userID string, req models.LikeRequest) (*LikeStatus, error) {
	if err := checkUserID(userID); err != nil {
		return nil, err
	}
	t, err := s.target(req.ParentType, req.ParentID)
	if err != nil {
		return nil, err
	}

	if err := s.likes.DeleteLike(ctx, req.ParentType, req.ParentID, userID); err != nil {
		return nil, classify("unlike", "like", err)
	}
	if err := t.AddLikes(ctx, req.ParentID, -1); err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return nil, classify("unlike", string(req.ParentType), err)
	}
	return s.Status(ctx, userID, req.ParentType, req.ParentID)
}

func (s *LikeService) Status(ctx context.Context, userID string, kind models.ParentType, parentID string) (*LikeStatus, error) {
	if _, err := s.target(kind, parentID); err != nil {
		return nil, err
	}
	liked, err := s.likes.HasUserLiked(ctx, kind, parentID, userID)
	if err != nil {
		return nil, classify("like status", "like", err)
	}
	count, err := s.likes.CountByParent(ctx, kind, parentID)
	if err != nil {
		return nil, classify("like status", "like", err)
	}
	return &LikeStatus{ParentType: kind, ParentID: parentID, Liked: liked, Count: count}, nil
}

func humanParentType(kind models.ParentType) string {
	if kind == models.ParentBlogPost {
		return "blog post"
	}
	return string(kind)
}
