package repository

import (
	"context"
	"errors"
	"time"

	"github.com/zfogg/hushmap/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReferralRepository handles invite codes
type ReferralRepository interface {
	CreateCode(ctx context.Context, code *models.ReferralCode) error
	// GetRedeemableForUpdate loads and row-locks an unused, unexpired code
	GetRedeemableForUpdate(ctx context.Context, code string, now time.Time) (*models.ReferralCode, error)
	MarkUsed(ctx context.Context, codeID, inviteeID string, usedAt time.Time) error
}

type referralRepository struct {
	db *gorm.DB
}

// NewReferralRepository creates a new referral code repository
func NewReferralRepository(db *gorm.DB) ReferralRepository {
	return &referralRepository{db: db}
}

func (r *referralRepository) CreateCode(ctx context.Context, code *models.ReferralCode) error {
	if code == nil || code.InviterID == "" || code.Code == "" {
		return ErrInvalidInput
	}
	err := r.db.WithContext(ctx).Create(code).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	return err
}

func (r *referralRepository) GetRedeemableForUpdate(ctx context.Context, code string, now time.Time) (*models.ReferralCode, error) {
	q := r.db.WithContext(ctx)
	if q.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var row models.ReferralCode
	err := q.Where("code = ? AND invitee_id IS NULL AND expires_at >= ?", code, now.UTC()).First(&row).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &row, nil
}

// MarkUsed redeems a code. Only an unused row is updated.
func (r *referralRepository) MarkUsed(ctx context.Context, codeID, inviteeID string, usedAt time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&models.ReferralCode{}).
		Where("id = ? AND invitee_id IS NULL", codeID).
		Updates(map[string]interface{}{
			"invitee_id": inviteeID,
			"used_at":    usedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
