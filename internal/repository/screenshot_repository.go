package repository

import (
	"context"
	"time"

	"github.com/zfogg/hushmap/internal/models"
	"gorm.io/gorm"
)

// ScreenshotRepository handles reported screenshots and the lockouts they trigger
type ScreenshotRepository interface {
	RecordAttempt(ctx context.Context, attempt *models.ScreenshotAttempt) error
	CountSince(ctx context.Context, userID string, since time.Time) (int64, error)
	// ActiveLockout returns the lockout running at now with the latest end
	ActiveLockout(ctx context.Context, userID string, now time.Time) (*models.ScreenshotLockout, error)
	CreateLockout(ctx context.Context, lockout *models.ScreenshotLockout) error
}

type screenshotRepository struct {
	db *gorm.DB
}

// NewScreenshotRepository creates a new screenshot repository
func NewScreenshotRepository(db *gorm.DB) ScreenshotRepository {
	return &screenshotRepository{db: db}
}

func (r *screenshotRepository) RecordAttempt(ctx context.Context, attempt *models.ScreenshotAttempt) error {
	if attempt == nil || attempt.UserID == "" {
		return ErrInvalidInput
	}
	return r.db.WithContext(ctx).Create(attempt).Error
}

func (r *screenshotRepository) CountSince(ctx context.Context, userID string, since time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&models.ScreenshotAttempt{}).
		Where("user_id = ? AND created_at >= ?", userID, since.UTC()).
		Count(&n).Error
	return n, err
}

func (r *screenshotRepository) ActiveLockout(ctx context.Context, userID string, now time.Time) (*models.ScreenshotLockout, error) {
	var lockout models.ScreenshotLockout
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND locked_until > ?", userID, now.UTC()).
		Order("locked_until DESC").
		First(&lockout).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &lockout, nil
}

func (r *screenshotRepository) CreateLockout(ctx context.Context, lockout *models.ScreenshotLockout) error {
	if lockout == nil || lockout.UserID == "" {
		return ErrInvalidInput
	}
	return r.db.WithContext(ctx).Create(lockout).Error
}
