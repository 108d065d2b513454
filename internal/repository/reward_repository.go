package repository

import (
	"context"
	"time"

	"github.com/zfogg/hushmap/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RewardRepository handles user rewards
type RewardRepository interface {
	CreateReward(ctx context.Context, reward *models.UserReward) error
	// GetUserRewardForUpdate loads and row-locks a reward owned by userID
	GetUserRewardForUpdate(ctx context.Context, userID, rewardID string) (*models.UserReward, error)
	ListUserRewards(ctx context.Context, userID string) ([]models.UserReward, error)
	MarkClaimed(ctx context.Context, rewardID string, data models.JSONMap, claimedAt time.Time) error
	// ExpirePending marks unclaimed pending rewards past their expiry as expired
	ExpirePending(ctx context.Context, now time.Time) (int64, error)
}

type rewardRepository struct {
	db *gorm.DB
}

// NewRewardRepository creates a new reward repository
func NewRewardRepository(db *gorm.DB) RewardRepository {
	return &rewardRepository{db: db}
}

func (r *rewardRepository) CreateReward(ctx context.Context, reward *models.UserReward) error {
	if reward == nil || reward.UserID == "" {
		return ErrInvalidInput
	}
	return r.db.WithContext(ctx).Create(reward).Error
}

func (r *rewardRepository) GetUserRewardForUpdate(ctx context.Context, userID, rewardID string) (*models.UserReward, error) {
	q := r.db.WithContext(ctx)
	if q.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var reward models.UserReward
	err := q.Where("id = ? AND user_id = ?", rewardID, userID).First(&reward).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &reward, nil
}

func (r *rewardRepository) ListUserRewards(ctx context.Context, userID string) ([]models.UserReward, error) {
	var rewards []models.UserReward
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&rewards).Error
	return rewards, err
}

// MarkClaimed completes a reward. Only an unclaimed row is updated.
func (r *rewardRepository) MarkClaimed(ctx context.Context, rewardID string, data models.JSONMap, claimedAt time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&models.UserReward{}).
		Where("id = ? AND claimed_at IS NULL", rewardID).
		Updates(map[string]interface{}{
			"claimed_at":    claimedAt,
			"reward_status": models.RewardStatusCompleted,
			"reward_data":   data,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *rewardRepository) ExpirePending(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.UserReward{}).
		Where("reward_status = ? AND claimed_at IS NULL AND expires_at IS NOT NULL AND expires_at < ?", models.RewardStatusPending, now.UTC()).
		Update("reward_status", models.RewardStatusExpired)
	return res.RowsAffected, res.Error
}
