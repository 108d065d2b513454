package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zfogg/hushmap/internal/models"
	"gorm.io/gorm"
)

func TestMigrateCreatesTables(t *testing.T) {
	db := NewTestDB(t)

	for _, table := range []string{"posts", "replies", "thread_assignments", "pois", "poi_fetch_history", "viewing_circles", "user_rewards", "reactions", "reports", "users", "user_locations", "referral_codes", "screenshots_taken", "screenshot_lockouts"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
	require.NoError(t, Health(db))
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := NewTestDB(t)
	require.NoError(t, Migrate(db))
}

func TestThreadAssignmentUniqueness(t *testing.T) {
	db := NewTestDB(t)
	alice, bob := "alice", "bob"

	require.NoError(t, db.Create(&models.ThreadAssignment{PostID: "p1", UserID: &alice, ThreadID: 1234}).Error)

	err := db.Create(&models.ThreadAssignment{PostID: "p1", UserID: &bob, ThreadID: 1234}).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	err = db.Create(&models.ThreadAssignment{PostID: "p1", UserID: &alice, ThreadID: 4321}).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	// Same thread id on another post is fine
	require.NoError(t, db.Create(&models.ThreadAssignment{PostID: "p2", UserID: &bob, ThreadID: 1234}).Error)
}

func TestPOIArrayColumnsRoundTrip(t *testing.T) {
	db := NewTestDB(t)

	poi := models.POI{Name: "Blue Bar", Source: "openstreetmap", Category: "nightlife", Types: models.StringArray{"bar", "night club"}, Lat: 1, Lng: 2}
	require.NoError(t, db.Create(&poi).Error)

	var got models.POI
	require.NoError(t, db.First(&got, "id = ?", poi.ID).Error)
	assert.Equal(t, models.StringArray{"bar", "night club"}, got.Types)
}

func TestRewardDataRoundTrip(t *testing.T) {
	db := NewTestDB(t)

	reward := models.UserReward{
		UserID:     "3f0c1d4e-9a55-4c55-8a11-2b2f4b1f9a10",
		RewardType: models.RewardTypeGiftCircle,
		RewardData: models.JSONMap{"circle_type": "fixed", "radius_km": 1.0},
		Title:      "Extra circle",
	}
	require.NoError(t, db.Create(&reward).Error)

	var got models.UserReward
	require.NoError(t, db.First(&got, "id = ?", reward.ID).Error)
	assert.Equal(t, "fixed", got.RewardData["circle_type"])
	assert.Equal(t, 1.0, got.RewardData["radius_km"])
}
