package repositories

import (
	"context"
	"errors"

	"github.com/anonto42/studyhub/backend/internal/models"
	"gorm.io/gorm"
)

// LikeRepository defines the interface for like data operations
type LikeRepository interface {
	CreateLike(ctx context.Context, like *models.Like) error
	DeleteLike(ctx context.Context, parentType models.ParentType, parentID, userID string) error
	HasUserLiked(ctx context.Context, parentType models.ParentType, parentID, userID string) (bool, error)
	CountByParent(ctx context.Context, parentType models.ParentType, parentID string) (int64, error)
}

// PostgresLikeRepository implements LikeRepository for PostgreSQL
type PostgresLikeRepository struct {
	db *gorm.DB
}

// NewPostgresLikeRepository creates a new PostgresLikeRepository
func NewPostgresLikeRepository(db *gorm.DB) *PostgresLikeRepository {
	return &PostgresLikeRepository{db: db}
}

// CreateLike inserts a like; a second like by the same user is ErrDuplicate.
func (r *PostgresLikeRepository) CreateLike(ctx context.Context, like *models.Like) error {
	err := r.db.WithContext(ctx).Create(like).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	return err
}

// DeleteLike deletes a like from PostgreSQL
func (r *PostgresLikeRepository) DeleteLike(ctx context.Context, parentType models.ParentType, parentID, userID string) error {
	res := r.db.WithContext(ctx).
		Where("parent_type = ? AND parent_id = ? AND user_id = ?", parentType, parentID, userID).
		Delete(&models.Like{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// HasUserLiked checks if a user has liked a specific parent
func (r *PostgresLikeRepository) HasUserLiked(ctx context.Context, parentType models.ParentType, parentID, userID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Like{}).
		Where("parent_type = ? AND parent_id = ? AND user_id = ?", parentType, parentID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// CountByParent retrieves the count of likes for one parent
func (r *PostgresLikeRepository) CountByParent(ctx context.Context, parentType models.ParentType, parentID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Like{}).
		Where("parent_type = ? AND parent_id = ?", parentType, parentID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
