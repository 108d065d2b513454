package circles

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zfogg/hushmap/internal/database"
	"github.com/zfogg/hushmap/internal/models"
	"github.com/zfogg/hushmap/internal/repository"
	"gorm.io/gorm"
)

func floatPtr(v float64) *float64 { return &v }

func setup(t *testing.T) (*gorm.DB, *Service) {
	t.Helper()
	db := database.NewTestDB(t)
	return db, NewService(db)
}

func createUser(t *testing.T, db *gorm.DB, lat, lng *float64) string {
	t.Helper()
	user := &models.User{ID: uuid.NewString(), Lat: lat, Lng: lng}
	require.NoError(t, db.Create(user).Error)
	return user.ID
}

func createReward(t *testing.T, db *gorm.DB, userID, rewardType string, data models.JSONMap, expiresAt *time.Time) *models.UserReward {
	t.Helper()
	if expiresAt != nil {
		utc := expiresAt.UTC()
		expiresAt = &utc
	}
	reward := &models.UserReward{
		UserID:       userID,
		RewardType:   rewardType,
		RewardStatus: models.RewardStatusPending,
		RewardData:   data,
		Title:        "Unlock a circle",
		ExpiresAt:    expiresAt,
	}
	require.NoError(t, repository.NewRewardRepository(db).CreateReward(context.Background(), reward))
	return reward
}

func countCircles(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.ViewingCircle{}).Count(&n).Error)
	return n
}

func TestClaimFixedCircle(t *testing.T) {
	ctx := context.Background()
	db, svc := setup(t)
	userID := createUser(t, db, nil, nil)
	reward := createReward(t, db, userID, models.RewardTypeCircleUnlockInvite, models.JSONMap{"radius": 3.5, "source": "invite"}, nil)

	result, err := svc.ClaimReward(ctx, userID, ClaimRequest{
		RewardID: reward.ID,
		Type:     models.CircleTypeFixed,
		Lat:      floatPtr(40.7128),
		Lng:      floatPtr(-74.006),
	})
	require.NoError(t, err)
	assert.Equal(t, 3.5, result.Circle.RadiusKm)
	assert.Equal(t, models.CircleTypeFixed, result.Circle.Type)

	var stored models.UserReward
	require.NoError(t, db.First(&stored, "id = ?", reward.ID).Error)
	assert.Equal(t, models.RewardStatusCompleted, stored.RewardStatus)
	require.NotNil(t, stored.ClaimedAt)
	assert.Equal(t, result.Circle.ID, stored.RewardData["circle_id"])
	assert.Equal(t, models.CircleTypeFixed, stored.RewardData["type"])
	assert.Equal(t, "invite", stored.RewardData["source"])

	// A second claim of the same reward fails and creates nothing
	_, err = svc.ClaimReward(ctx, userID, ClaimRequest{
		RewardID: reward.ID,
		Type:     models.CircleTypeFixed,
		Lat:      floatPtr(1),
		Lng:      floatPtr(1),
	})
	assert.ErrorIs(t, err, ErrRewardNotClaimable)
	assert.Equal(t, int64(1), countCircles(t, db))
}

func TestClaimDefaultsRadius(t *testing.T) {
	db, svc := setup(t)
	userID := createUser(t, db, nil, nil)
	reward := createReward(t, db, userID, models.RewardTypeGiftCircle, nil, nil)

	result, err := svc.ClaimReward(context.Background(), userID, ClaimRequest{
		RewardID: reward.ID, Type: models.CircleTypeFixed, Lat: floatPtr(10), Lng: floatPtr(10),
	})
	require.NoError(t, err)
	assert.Equal(t, DefaultRewardRadiusKm, result.Circle.RadiusKm)
}

func TestClaimFriendCircle(t *testing.T) {
	ctx := context.Background()
	db, svc := setup(t)
	userID := createUser(t, db, nil, nil)
	friendID := createUser(t, db, floatPtr(51.5), floatPtr(-0.12))
	reward := createReward(t, db, userID, models.RewardTypeGiftCircle, nil, nil)

	t.Run("unknown friend rolls back", func(t *testing.T) {
		_, err := svc.ClaimReward(ctx, userID, ClaimRequest{
			RewardID: reward.ID, Type: models.CircleTypeFriendLocation, FriendUserID: uuid.NewString(),
		})
		assert.ErrorIs(t, err, ErrFriendNotFound)
		assert.Zero(t, countCircles(t, db))
	})

	t.Run("existing friend", func(t *testing.T) {
		result, err := svc.ClaimReward(ctx, userID, ClaimRequest{
			RewardID: reward.ID, Type: models.CircleTypeFriendLocation, FriendUserID: friendID,
		})
		require.NoError(t, err)
		require.NotNil(t, result.Circle.FriendUserID)
		assert.Equal(t, friendID, *result.Circle.FriendUserID)

		views, err := svc.ListCircles(ctx, userID)
		require.NoError(t, err)
		require.Len(t, views, 1)
		require.NotNil(t, views[0].FriendLat)
		assert.Equal(t, 51.5, *views[0].FriendLat)

		area, err := svc.ResolveCenter(ctx, userID, result.Circle)
		require.NoError(t, err)
		assert.Equal(t, 51.5, area.Lat)
		assert.Equal(t, -0.12, area.Lng)
	})
}

func TestClaimRejections(t *testing.T) {
	ctx := context.Background()
	db, svc := setup(t)
	userID := createUser(t, db, nil, nil)
	otherID := createUser(t, db, nil, nil)
	past := time.Now().Add(-time.Hour)

	expired := createReward(t, db, userID, models.RewardTypeGiftCircle, nil, &past)
	wrongType := createReward(t, db, userID, "streak_bonus", nil, nil)
	notMine := createReward(t, db, otherID, models.RewardTypeGiftCircle, nil, nil)
	valid := createReward(t, db, userID, models.RewardTypeGiftCircle, nil, nil)

	fixed := func(rewardID string) ClaimRequest {
		return ClaimRequest{RewardID: rewardID, Type: models.CircleTypeFixed, Lat: floatPtr(1), Lng: floatPtr(2)}
	}

	cases := []struct {
		name string
		req  ClaimRequest
		want error
	}{
		{"expired", fixed(expired.ID), ErrRewardExpired},
		{"wrong reward type", fixed(wrongType.ID), ErrRewardNotClaimable},
		{"someone else's reward", fixed(notMine.ID), ErrRewardNotClaimable},
		{"missing reward", fixed(uuid.NewString()), ErrRewardNotClaimable},
		{"bad circle type", ClaimRequest{RewardID: valid.ID, Type: models.CircleTypeDefault}, ErrInvalidCircleType},
		{"fixed without coordinates", ClaimRequest{RewardID: valid.ID, Type: models.CircleTypeFixed, Lat: floatPtr(1)}, ErrLocationRequired},
		{"fixed off the globe", ClaimRequest{RewardID: valid.ID, Type: models.CircleTypeFixed, Lat: floatPtr(91), Lng: floatPtr(0)}, ErrInvalidCoordinates},
		{"friend without id", ClaimRequest{RewardID: valid.ID, Type: models.CircleTypeFriendLocation}, ErrFriendRequired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.ClaimReward(ctx, userID, tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
	assert.Zero(t, countCircles(t, db))
}

func TestResolveCenter(t *testing.T) {
	ctx := context.Background()
	db, svc := setup(t)
	located := createUser(t, db, floatPtr(40.7), floatPtr(-74))
	unlocated := createUser(t, db, nil, nil)

	area, err := svc.ResolveCenter(ctx, located, &models.ViewingCircle{Type: models.CircleTypeDefault})
	require.NoError(t, err)
	assert.Equal(t, 40.7, area.Lat)
	assert.Equal(t, DefaultRadiusKm, area.RadiusKm)

	_, err = svc.ResolveCenter(ctx, unlocated, &models.ViewingCircle{Type: models.CircleTypeDefault})
	assert.ErrorIs(t, err, ErrLocationUnavailable)

	area, err = svc.ResolveCenter(ctx, unlocated, &models.ViewingCircle{Type: models.CircleTypeFixed, Lat: floatPtr(1), Lng: floatPtr(2), RadiusKm: 8})
	require.NoError(t, err)
	assert.Equal(t, 8.0, area.RadiusKm)

	_, err = svc.ResolveCenter(ctx, unlocated, &models.ViewingCircle{Type: models.CircleTypeFixed})
	assert.ErrorIs(t, err, ErrLocationUnavailable)

	_, err = svc.ResolveCenter(ctx, unlocated, &models.ViewingCircle{Type: "orbit"})
	assert.ErrorIs(t, err, ErrInvalidCircleType)
}

func TestEnsureDefaultCircleIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db, svc := setup(t)
	userID := createUser(t, db, floatPtr(1), floatPtr(1))

	first, err := svc.EnsureDefaultCircle(ctx, userID)
	require.NoError(t, err)
	second, err := svc.EnsureDefaultCircle(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, int64(1), countCircles(t, db))

	areas, err := svc.ResolveAll(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, areas, 1)
}

func TestExpireRewards(t *testing.T) {
	ctx := context.Background()
	db, svc := setup(t)
	userID := createUser(t, db, nil, nil)
	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)
	createReward(t, db, userID, models.RewardTypeGiftCircle, nil, &past)
	createReward(t, db, userID, models.RewardTypeGiftCircle, nil, &future)
	createReward(t, db, userID, models.RewardTypeGiftCircle, nil, nil)

	n, err := svc.ExpireRewards(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestRewardRadiusKm(t *testing.T) {
	assert.Equal(t, 2.0, rewardRadiusKm(nil))
	assert.Equal(t, 2.0, rewardRadiusKm(models.JSONMap{"radius": -1.0}))
	assert.Equal(t, 7.0, rewardRadiusKm(models.JSONMap{"radius": 7}))
	assert.Equal(t, 1.5, rewardRadiusKm(models.JSONMap{"radius": 1.5}))
}
