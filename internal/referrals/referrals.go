// Package referrals mints invite codes and turns a redeemed code into a pair
// of circle rewards, one for each side of the invite.
package referrals

import (
	"context"
	"crypto/rand"
	"encoding/base32"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zfogg/hushmap/internal/logger"
	"github.com/zfogg/hushmap/internal/metrics"
	"github.com/zfogg/hushmap/internal/models"
	"github.com/zfogg/hushmap/internal/repository"
	"github.com/zfogg/hushmap/internal/telemetry"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	codeLength = 8
	// codeAttempts bounds retries when a fresh code collides with an existing one
	codeAttempts = 5

	// CodeTTL is how long an unused code stays redeemable
	CodeTTL = 30 * 24 * time.Hour
	// RewardTTL is how long the granted rewards stay claimable
	RewardTTL = 7 * 24 * time.Hour
	// RewardRadiusKm is the radius of the circle each reward unlocks
	RewardRadiusKm = 2.0
)

var (
	ErrCodeNotRedeemable = errors.New("referral code is invalid, expired or already used")
	ErrSelfReferral      = errors.New("cannot use your own referral code")
	ErrCodeRequired      = errors.New("referral code is required")
)

// Service owns referral codes
type Service struct {
	db   *gorm.DB
	now  func() time.Time
	code func() (string, error)
}

// NewService creates a referral service. The db handle is used to open claim transactions.
func NewService(db *gorm.DB) *Service {
	return &Service{
		db:   db,
		now:  func() time.Time { return time.Now().UTC() },
		code: generateCode,
	}
}

// CreateCode mints a new code for the inviter
func (s *Service) CreateCode(ctx context.Context, inviterID string) (*models.ReferralCode, error) {
	repo := repository.NewReferralRepository(s.db)
	now := s.now()

	for attempt := 0; attempt < codeAttempts; attempt++ {
		code, err := s.code()
		if err != nil {
			return nil, fmt.Errorf("generate referral code: %w", err)
		}
		row := &models.ReferralCode{
			Code:      code,
			InviterID: inviterID,
			ExpiresAt: now.Add(CodeTTL),
			CreatedAt: now,
		}
		err = repo.CreateCode(ctx, row)
		if errors.Is(err, repository.ErrDuplicate) {
			continue
		}
		if err != nil {
			return nil, err
		}
		logger.Log.Info("Referral code created", logger.WithUserID(inviterID))
		return row, nil
	}
	return nil, fmt.Errorf("generate referral code: %d collisions in a row", codeAttempts)
}

// ClaimResult holds the rewards granted by a redeemed code
type ClaimResult struct {
	InviterReward *models.UserReward
	InviteeReward *models.UserReward
}

// Claim redeems code for the invitee. The code is marked used and both
// rewards are created in one transaction.
func (s *Service) Claim(ctx context.Context, inviteeID, code string) (result *ClaimResult, err error) {
	code = NormalizeCode(code)
	if code == "" {
		return nil, ErrCodeRequired
	}

	ctx, span := telemetry.TraceReferralClaim(ctx, inviteeID)
	defer func() { telemetry.EndSpan(span, err) }()

	now := s.now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		referrals := repository.NewReferralRepository(tx)
		rewards := repository.NewRewardRepository(tx)

		row, err := referrals.GetRedeemableForUpdate(ctx, code, now)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrCodeNotRedeemable
		}
		if err != nil {
			return err
		}
		if row.InviterID == inviteeID {
			return ErrSelfReferral
		}
		if err := referrals.MarkUsed(ctx, row.ID, inviteeID, now); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrCodeNotRedeemable
			}
			return err
		}

		expires := now.Add(RewardTTL)
		inviter := &models.UserReward{
			UserID:       row.InviterID,
			RewardType:   models.RewardTypeCircleUnlockInvite,
			RewardStatus: models.RewardStatusPending,
			Title:        "Referral Reward",
			Description:  "You have received a referral reward for inviting a friend!",
			RewardData: models.JSONMap{
				"radius":     RewardRadiusKm,
				"type":       models.CircleTypeFriendLocation,
				"invitee_id": inviteeID,
				"role":       "inviter",
			},
			ExpiresAt: &expires,
		}
		invitee := &models.UserReward{
			UserID:       inviteeID,
			RewardType:   models.RewardTypeCircleUnlockInvite,
			RewardStatus: models.RewardStatusPending,
			Title:        "Referral Reward",
			Description:  "Thanks for joining! Choose a reward to get started!",
			RewardData: models.JSONMap{
				"radius":     RewardRadiusKm,
				"type":       models.CircleTypeFriendLocation,
				"inviter_id": row.InviterID,
				"role":       "invitee",
			},
			ExpiresAt: &expires,
		}
		for _, reward := range []*models.UserReward{inviter, invitee} {
			if err := rewards.CreateReward(ctx, reward); err != nil {
				return err
			}
		}

		result = &ClaimResult{InviterReward: inviter, InviteeReward: invitee}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.Get().ReferralsClaimedTotal.Inc()
	logger.Log.Info("Referral code redeemed",
		logger.WithUserID(inviteeID),
		zap.String("inviter_reward_id", result.InviterReward.ID),
	)
	return result, nil
}

// NormalizeCode uppercases a user-typed code and restores the dash
func NormalizeCode(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) == codeLength && !strings.Contains(code, "-") {
		code = code[:codeLength/2] + "-" + code[codeLength/2:]
	}
	return code
}

// generateCode returns a random XXXX-XXXX code. Base32 avoids 0/O and 1/I.
func generateCode() (string, error) {
	raw := make([]byte, codeLength)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	encoded := base32.StdEncoding.EncodeToString(raw)[:codeLength]
	return encoded[:codeLength/2] + "-" + encoded[codeLength/2:], nil
}
