package repository

import (
	"context"
	"errors"

	"github.com/zfogg/hushmap/internal/models"
	"github.com/zfogg/hushmap/internal/threads"
	"gorm.io/gorm"
)

// threadRepository is the store behind threads.Allocator. The unique
// indexes on thread_assignments settle concurrent claims.
type threadRepository struct {
	db *gorm.DB
}

// NewThreadRepository creates the thread assignment store
func NewThreadRepository(db *gorm.DB) threads.Store {
	return &threadRepository{db: db}
}

func (r *threadRepository) FindThreadID(ctx context.Context, postID, userID string) (int, bool, error) {
	var a models.ThreadAssignment
	err := r.db.WithContext(ctx).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Take(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return a.ThreadID, true, nil
}

func (r *threadRepository) ThreadIDTaken(ctx context.Context, postID string, threadID int) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ThreadAssignment{}).
		Where("post_id = ? AND thread_id = ?", postID, threadID).
		Count(&count).Error
	return count > 0, err
}

func (r *threadRepository) ClaimThreadID(ctx context.Context, postID string, userID *string, threadID int) error {
	err := r.db.WithContext(ctx).Create(&models.ThreadAssignment{
		PostID:   postID,
		UserID:   userID,
		ThreadID: threadID,
	}).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return threads.ErrClaimConflict
	}
	return err
}
