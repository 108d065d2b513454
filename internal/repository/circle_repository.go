package repository

import (
	"context"
	"errors"

	"github.com/zfogg/hushmap/internal/models"
	"gorm.io/gorm"
)

// CircleRepository handles viewing circles
type CircleRepository interface {
	CreateCircle(ctx context.Context, circle *models.ViewingCircle) error
	// GetUserCircle returns circleID only if userID owns it
	GetUserCircle(ctx context.Context, userID, circleID string) (*models.ViewingCircle, error)
	ListUserCircles(ctx context.Context, userID string) ([]models.ViewingCircle, error)
	GetDefaultCircle(ctx context.Context, userID string) (*models.ViewingCircle, error)
}

type circleRepository struct {
	db *gorm.DB
}

// NewCircleRepository creates a new circle repository
func NewCircleRepository(db *gorm.DB) CircleRepository {
	return &circleRepository{db: db}
}

func (r *circleRepository) CreateCircle(ctx context.Context, circle *models.ViewingCircle) error {
	if circle == nil || circle.UserID == "" {
		return ErrInvalidInput
	}
	err := r.db.WithContext(ctx).Create(circle).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	return err
}

func (r *circleRepository) GetUserCircle(ctx context.Context, userID, circleID string) (*models.ViewingCircle, error) {
	var circle models.ViewingCircle
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", circleID, userID).
		First(&circle).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &circle, nil
}

func (r *circleRepository) ListUserCircles(ctx context.Context, userID string) ([]models.ViewingCircle, error) {
	var circles []models.ViewingCircle
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&circles).Error
	return circles, err
}

func (r *circleRepository) GetDefaultCircle(ctx context.Context, userID string) (*models.ViewingCircle, error) {
	var circle models.ViewingCircle
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND type = ?", userID, models.CircleTypeDefault).
		First(&circle).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &circle, nil
}
