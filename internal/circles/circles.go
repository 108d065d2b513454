// Package circles resolves viewing circles to feed centers and turns circle
// rewards into new circles.
package circles

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zfogg/hushmap/internal/feed"
	"github.com/zfogg/hushmap/internal/logger"
	"github.com/zfogg/hushmap/internal/models"
	"github.com/zfogg/hushmap/internal/repository"
	"github.com/zfogg/hushmap/internal/telemetry"
	"github.com/zfogg/hushmap/internal/util"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	// DefaultRadiusKm is used for circles without a stored radius
	DefaultRadiusKm = 5.0
	// DefaultRewardRadiusKm is used when a reward does not carry a radius
	DefaultRewardRadiusKm = 2.0
)

var (
	ErrInvalidCircleType   = errors.New("invalid circle type")
	ErrRewardNotClaimable  = errors.New("reward not found or already claimed")
	ErrRewardExpired       = errors.New("reward has expired")
	ErrLocationRequired    = errors.New("latitude and longitude required for fixed circles")
	ErrInvalidCoordinates  = errors.New("invalid coordinates")
	ErrFriendRequired      = errors.New("friend user id required for friend location circles")
	ErrFriendNotFound      = errors.New("friend not found")
	ErrLocationUnavailable = errors.New("location not available")
)

// claimableRewards are the reward types that unlock a circle
var claimableRewards = map[string]bool{
	models.RewardTypeCircleUnlockInvite: true,
	models.RewardTypeGiftCircle:         true,
}

// Service owns viewing-circle logic
type Service struct {
	db      *gorm.DB
	users   repository.UserRepository
	circles repository.CircleRepository
	rewards repository.RewardRepository
	now     func() time.Time
}

// NewService creates a circle service. The db handle is used to open claim transactions.
func NewService(db *gorm.DB) *Service {
	return &Service{
		db:      db,
		users:   repository.NewUserRepository(db),
		circles: repository.NewCircleRepository(db),
		rewards: repository.NewRewardRepository(db),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// CircleView is a circle as shown to its owner. The friend's id never leaves
// the server; only their current coordinates do.
type CircleView struct {
	models.ViewingCircle
	FriendLat *float64 `json:"friend_lat,omitempty"`
	FriendLng *float64 `json:"friend_lng,omitempty"`
}

// ListCircles returns the caller's circles with friend coordinates filled in
func (s *Service) ListCircles(ctx context.Context, userID string) ([]CircleView, error) {
	circles, err := s.circles.ListUserCircles(ctx, userID)
	if err != nil {
		return nil, err
	}

	views := make([]CircleView, 0, len(circles))
	for _, c := range circles {
		view := CircleView{ViewingCircle: c}
		if c.Type == models.CircleTypeFriendLocation && c.FriendUserID != nil {
			friend, err := s.users.GetUser(ctx, *c.FriendUserID)
			switch {
			case err == nil && friend.HasLocation():
				view.FriendLat, view.FriendLng = friend.Lat, friend.Lng
			case err != nil && !errors.Is(err, repository.ErrNotFound):
				logger.Log.Warn("Failed to load friend location for circle", zap.String("circle_id", c.ID), zap.Error(err))
			}
		}
		views = append(views, view)
	}
	return views, nil
}

// GetCircle returns one of the caller's circles
func (s *Service) GetCircle(ctx context.Context, userID, circleID string) (*models.ViewingCircle, error) {
	return s.circles.GetUserCircle(ctx, userID, circleID)
}

// ResolveCenter returns the area a circle currently covers
func (s *Service) ResolveCenter(ctx context.Context, userID string, circle *models.ViewingCircle) (feed.Radius, error) {
	area := feed.Radius{RadiusKm: circle.RadiusKm}
	if area.RadiusKm <= 0 {
		area.RadiusKm = DefaultRadiusKm
	}

	switch circle.Type {
	case models.CircleTypeDefault:
		lat, lng, err := s.userLocation(ctx, userID)
		if err != nil {
			return area, fmt.Errorf("user %w", err)
		}
		area.Lat, area.Lng = lat, lng
	case models.CircleTypeFixed:
		if circle.Lat == nil || circle.Lng == nil {
			return area, fmt.Errorf("circle %w", ErrLocationUnavailable)
		}
		area.Lat, area.Lng = *circle.Lat, *circle.Lng
	case models.CircleTypeFriendLocation:
		if circle.FriendUserID == nil {
			return area, ErrFriendRequired
		}
		lat, lng, err := s.userLocation(ctx, *circle.FriendUserID)
		if err != nil {
			return area, fmt.Errorf("friend %w", err)
		}
		area.Lat, area.Lng = lat, lng
	default:
		return area, ErrInvalidCircleType
	}
	return area, nil
}

// ResolveAll returns the areas of every circle the caller can currently use.
// Circles whose center cannot be resolved are skipped.
func (s *Service) ResolveAll(ctx context.Context, userID string) ([]feed.Radius, error) {
	circles, err := s.circles.ListUserCircles(ctx, userID)
	if err != nil {
		return nil, err
	}

	areas := make([]feed.Radius, 0, len(circles))
	for i := range circles {
		area, err := s.ResolveCenter(ctx, userID, &circles[i])
		if err != nil {
			logger.Log.Debug("Skipping unresolvable circle", zap.String("circle_id", circles[i].ID), zap.Error(err))
			continue
		}
		areas = append(areas, area)
	}
	return areas, nil
}

func (s *Service) userLocation(ctx context.Context, userID string) (float64, float64, error) {
	user, err := s.users.GetUser(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return 0, 0, ErrLocationUnavailable
	}
	if err != nil {
		return 0, 0, err
	}
	if !user.HasLocation() {
		return 0, 0, ErrLocationUnavailable
	}
	return *user.Lat, *user.Lng, nil
}

// EnsureDefaultCircle creates the caller's default circle if it is missing
func (s *Service) EnsureDefaultCircle(ctx context.Context, userID string) (*models.ViewingCircle, error) {
	circle, err := s.circles.GetDefaultCircle(ctx, userID)
	if err == nil {
		return circle, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	circle = &models.ViewingCircle{UserID: userID, Type: models.CircleTypeDefault, RadiusKm: DefaultRadiusKm}
	err = s.circles.CreateCircle(ctx, circle)
	if errors.Is(err, repository.ErrDuplicate) {
		// Created concurrently
		return s.circles.GetDefaultCircle(ctx, userID)
	}
	if err != nil {
		return nil, err
	}
	return circle, nil
}

// ClaimRequest asks to turn a reward into a circle
type ClaimRequest struct {
	RewardID     string
	Type         string
	Lat          *float64
	Lng          *float64
	FriendUserID string
}

// ClaimResult is the created circle and the completed reward
type ClaimResult struct {
	Circle *models.ViewingCircle
	Reward *models.UserReward
}

// ClaimReward validates the reward, creates the circle and completes the
// reward in one transaction. Nothing is written unless every step succeeds.
func (s *Service) ClaimReward(ctx context.Context, userID string, req ClaimRequest) (result *ClaimResult, err error) {
	if req.Type != models.CircleTypeFixed && req.Type != models.CircleTypeFriendLocation {
		return nil, ErrInvalidCircleType
	}
	if req.Type == models.CircleTypeFixed {
		if req.Lat == nil || req.Lng == nil {
			return nil, ErrLocationRequired
		}
		if err := util.CheckLatLng(*req.Lat, *req.Lng); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCoordinates, err)
		}
	}
	if req.Type == models.CircleTypeFriendLocation && req.FriendUserID == "" {
		return nil, ErrFriendRequired
	}

	ctx, span := telemetry.TraceRewardClaim(ctx, req.RewardID, req.Type)
	defer func() { telemetry.EndSpan(span, err) }()

	now := s.now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rewards := repository.NewRewardRepository(tx)

		reward, err := rewards.GetUserRewardForUpdate(ctx, userID, req.RewardID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrRewardNotClaimable
		}
		if err != nil {
			return err
		}
		if !claimableRewards[reward.RewardType] || reward.ClaimedAt != nil {
			return ErrRewardNotClaimable
		}
		if reward.ExpiresAt != nil && reward.ExpiresAt.Before(now) {
			return ErrRewardExpired
		}

		circle := &models.ViewingCircle{
			UserID:   userID,
			Type:     req.Type,
			RadiusKm: rewardRadiusKm(reward.RewardData),
		}
		if req.Type == models.CircleTypeFixed {
			circle.Lat, circle.Lng = req.Lat, req.Lng
		} else {
			if _, err := repository.NewUserRepository(tx).GetUser(ctx, req.FriendUserID); err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return ErrFriendNotFound
				}
				return err
			}
			friendID := req.FriendUserID
			circle.FriendUserID = &friendID
		}
		if err := repository.NewCircleRepository(tx).CreateCircle(ctx, circle); err != nil {
			return err
		}

		data := models.JSONMap{}
		for k, v := range reward.RewardData {
			data[k] = v
		}
		data["circle_id"] = circle.ID
		data["type"] = req.Type

		if err := rewards.MarkClaimed(ctx, reward.ID, data, now); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrRewardNotClaimable
			}
			return err
		}

		reward.RewardData = data
		reward.RewardStatus = models.RewardStatusCompleted
		reward.ClaimedAt = &now
		result = &ClaimResult{Circle: circle, Reward: reward}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Log.Info("Circle reward claimed",
		logger.WithUserID(userID),
		zap.String("reward_id", req.RewardID),
		zap.String("circle_type", req.Type),
	)
	return result, nil
}

// ExpireRewards marks pending rewards past their expiry as expired
func (s *Service) ExpireRewards(ctx context.Context, now time.Time) (int64, error) {
	return s.rewards.ExpirePending(ctx, now)
}

// rewardRadiusKm reads reward_data.radius, falling back to the default
func rewardRadiusKm(data models.JSONMap) float64 {
	var r float64
	switch v := data["radius"].(type) {
	case float64:
		r = v
	case int:
		r = float64(v)
	case int64:
		r = float64(v)
	}
	if r <= 0 {
		return DefaultRewardRadiusKm
	}
	return r
}
