package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/anonto42/studyhub/backend/internal/models"
	"github.com/anonto42/studyhub/backend/internal/repositories"
	"github.com/anonto42/studyhub/backend/pkg/metrics"
)

const (
	maxAwardPoints  = 10000
	maxReasonLength = 200
	leaderboardSize = 50
)

// PointsAwarder grants reputation points.
type PointsAwarder interface {
	AwardPoints(ctx context.Context, userID string, points int, reason string) (*models.ReputationHistory, error)
}

// ReputationService keeps the reputation ledger and the per-user aggregate
// in step. The ledger is authoritative; the aggregate can always be rebuilt
// from it.
type ReputationService struct {
	ledger  repositories.ReputationRepository
	stats   repositories.StatsRepository
	tx      repositories.TxRunner
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewReputationService(
	ledger repositories.ReputationRepository,
	stats repositories.StatsRepository,
	tx repositories.TxRunner,
	m *metrics.Metrics,
) *ReputationService {
	return &ReputationService{
		ledger:  ledger,
		stats:   stats,
		tx:      tx,
		metrics: m,
		now:     time.Now,
	}
}

// AwardPoints appends an earned entry to userID's ledger and increments the
// aggregate by the same amount. Both writes commit together or not at all.
func (s *ReputationService) AwardPoints(ctx context.Context, userID string, points int, reason string) (*models.ReputationHistory, error) {
	if err := checkUserID(userID); err != nil {
		return nil, err
	}
	if points <= 0 || points > maxAwardPoints {
		return nil, invalidArgument("points must be between 1 and %d", maxAwardPoints)
	}
	reason = strings.TrimSpace(reason)
	if reason == "" || len(reason) > maxReasonLength {
		return nil, invalidArgument("reason must be 1 to %d characters", maxReasonLength)
	}

	var entry *models.ReputationHistory
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		e := &models.ReputationHistory{
			UserID: userID,
			Points: points,
			Reason: reason,
			Type:   models.ReputationEarned,
			Date:   s.now(),
		}
		if err := s.ledger.Append(ctx, e); err != nil {
			return err
		}
		if err := s.stats.IncrementReputation(ctx, userID, points); err != nil {
			return err
		}
		entry = e
		return nil
	})
	if err != nil {
		err = classify("award points", "reputation", err)
		slog.ErrorContext(ctx, "award points failed",
			"user_id", userID, "points", points, "reason", reason, "error", err)
		return nil, err
	}

	s.metrics.Awarded(points)
	slog.InfoContext(ctx, "points awarded", "user_id", userID, "points", points, "reason", reason)
	return entry, nil
}

// RebuildAggregate recomputes userID's reputation from the ledger and
// overwrites the aggregate. Idempotent.
func (s *ReputationService) RebuildAggregate(ctx context.Context, userID string) (int, error) {
	if err := checkUserID(userID); err != nil {
		return 0, err
	}

	var total int
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		sum, err := s.ledger.Sum(ctx, userID)
		if err != nil {
			return err
		}
		if err := s.stats.SetReputation(ctx, userID, sum); err != nil {
			return err
		}
		total = sum
		return nil
	})
	if err != nil {
		return 0, classify("rebuild reputation", "reputation", err)
	}
	return total, nil
}

func (s *ReputationService) History(ctx context.Context, userID string, page, limit int) ([]models.ReputationHistory, error) {
	if err := checkUserID(userID); err != nil {
		return nil, err
	}
	skip, lim := pageBounds(page, limit)
	entries, err := s.ledger.ListByUser(ctx, userID, skip, lim)
	if err != nil {
		return nil, classify("reputation history", "reputation", err)
	}
	return entries, nil
}

func (s *ReputationService) Leaderboard(ctx context.Context, limit int) ([]models.UserStats, error) {
	if limit < 1 || limit > leaderboardSize {
		limit = leaderboardSize
	}
	top, err := s.stats.TopByReputation(ctx, int64(limit))
	if err != nil {
		return nil, classify("leaderboard", "stats", err)
	}
	return top, nil
}

// Stats returns userID's aggregates; a user with no activity gets zeroes.
func (s *ReputationService) Stats(ctx context.Context, userID string) (*models.UserStats, error) {
	if err := checkUserID(userID); err != nil {
		return nil, err
	}
	st, err := s.stats.Get(ctx, userID)
	if errors.Is(err, repositories.ErrNotFound) {
		return &models.UserStats{UserID: userID}, nil
	}
	if err != nil {
		return nil, classify("load stats", "stats", err)
	}
	return st, nil
}
