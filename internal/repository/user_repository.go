package repository

import (
	"context"
	"time"

	"github.com/zfogg/hushmap/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepository handles the local user rows
type UserRepository interface {
	GetUser(ctx context.Context, userID string) (*models.User, error)
	// EnsureUser returns the user's row, creating an empty one if needed
	EnsureUser(ctx context.Context, userID string) (*models.User, error)
	// UpsertLocation stores the user's last known location, creating the row if needed
	UpsertLocation(ctx context.Context, userID string, lat, lng float64, countryCode string) (*models.User, error)
	UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (*models.User, error)
	// DeleteUser removes the user and their private data. Posts and replies
	// stay up, detached from the account.
	DeleteUser(ctx context.Context, userID string) error
	// Trail returns the user's most recent reported locations, newest first
	Trail(ctx context.Context, userID string, limit int) ([]models.UserLocation, error)
}

// ProfileUpdate carries the profile fields to change; nil fields are left alone
type ProfileUpdate struct {
	Gender        *string
	ExpoPushToken *string
	BranchData    models.JSONMap
	Lat           *float64
	Lng           *float64
}

// Empty reports whether the update changes nothing
func (u ProfileUpdate) Empty() bool {
	return u.Gender == nil && u.ExpoPushToken == nil && len(u.BranchData) == 0 && (u.Lat == nil || u.Lng == nil)
}

type userRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// GetUser gets a user by ID
func (r *userRepository) GetUser(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (r *userRepository) EnsureUser(ctx context.Context, userID string) (*models.User, error) {
	if userID == "" {
		return nil, ErrInvalidInput
	}
	var user models.User
	err := r.db.WithContext(ctx).
		Where(models.User{ID: userID}).
		FirstOrCreate(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) UpsertLocation(ctx context.Context, userID string, lat, lng float64, countryCode string) (*models.User, error) {
	now := r.now()
	user := models.User{ID: userID, Lat: &lat, Lng: &lng, CountryCode: countryCode, LastLocationUpdate: &now}
	updates := []string{"lat", "lng", "last_location_update", "updated_at"}
	if countryCode != "" {
		updates = append(updates, "country_code")
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns(updates),
		}).Create(&user).Error
		if err != nil {
			return err
		}
		return tx.Create(&models.UserLocation{UserID: userID, Lat: lat, Lng: lng, RecordedAt: now}).Error
	})
	if err != nil {
		return nil, err
	}
	return r.GetUser(ctx, userID)
}

func (r *userRepository) UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (*models.User, error) {
	if update.Empty() {
		return nil, ErrInvalidInput
	}
	if _, err := r.EnsureUser(ctx, userID); err != nil {
		return nil, err
	}

	now := r.now()
	updates := map[string]interface{}{}
	if update.Gender != nil {
		updates["gender"] = *update.Gender
	}
	if update.ExpoPushToken != nil {
		updates["expo_push_token"] = *update.ExpoPushToken
	}
	if len(update.BranchData) > 0 {
		updates["branch_data"] = update.BranchData
	}
	moved := update.Lat != nil && update.Lng != nil
	if moved {
		updates["lat"] = *update.Lat
		updates["lng"] = *update.Lng
		updates["last_location_update"] = now
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.User{}).Where("id = ?", userID).Updates(updates).Error; err != nil {
			return err
		}
		if !moved {
			return nil
		}
		return tx.Create(&models.UserLocation{UserID: userID, Lat: *update.Lat, Lng: *update.Lng, RecordedAt: now}).Error
	})
	if err != nil {
		return nil, err
	}
	return r.GetUser(ctx, userID)
}

func (r *userRepository) DeleteUser(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		owned := []interface{}{
			&models.ViewingCircle{},
			&models.UserReward{},
			&models.Reaction{},
			&models.UserLocation{},
			&models.ScreenshotAttempt{},
			&models.ScreenshotLockout{},
		}
		for _, m := range owned {
			if err := tx.Where("user_id = ?", userID).Delete(m).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("inviter_id = ? AND invitee_id IS NULL", userID).Delete(&models.ReferralCode{}).Error; err != nil {
			return err
		}

		for _, m := range []interface{}{&models.Post{}, &models.Reply{}, &models.ThreadAssignment{}} {
			if err := tx.Model(m).Where("user_id = ?", userID).Update("user_id", nil).Error; err != nil {
				return err
			}
		}
		return tx.Where("id = ?", userID).Delete(&models.User{}).Error
	})
}

func (r *userRepository) Trail(ctx context.Context, userID string, limit int) ([]models.UserLocation, error) {
	var points []models.UserLocation
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("recorded_at DESC").
		Limit(limit).
		Find(&points).Error
	return points, err
}
