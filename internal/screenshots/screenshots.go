// Package screenshots logs screenshots reported by clients and locks out
// users who take too many of them in a short window.
package screenshots

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zfogg/hushmap/internal/config"
	"github.com/zfogg/hushmap/internal/logger"
	"github.com/zfogg/hushmap/internal/metrics"
	"github.com/zfogg/hushmap/internal/models"
	"github.com/zfogg/hushmap/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DefaultPolicy is used for zero-valued config fields
var DefaultPolicy = config.ScreenshotConfig{
	MaxPerWindow: 3,
	Window:       24 * time.Hour,
	Lockout:      24 * time.Hour,
}

// Attempt is one screenshot as reported by a client
type Attempt struct {
	UserID    string
	DeviceID  string
	IPAddress string
	UserAgent string
}

// Status is the caller's standing under the screenshot policy
type Status struct {
	ScreenshotCount int64      `json:"screenshot_count"`
	Limit           int        `json:"limit"`
	Remaining       int64      `json:"remaining"`
	IsLocked        bool       `json:"is_locked"`
	LockedUntil     *time.Time `json:"locked_until,omitempty"`
}

// Service applies the screenshot policy
type Service struct {
	db     *gorm.DB
	policy config.ScreenshotConfig
	now    func() time.Time
}

// NewService creates a screenshot service
func NewService(db *gorm.DB, policy config.ScreenshotConfig) *Service {
	if policy.MaxPerWindow <= 0 {
		policy.MaxPerWindow = DefaultPolicy.MaxPerWindow
	}
	if policy.Window <= 0 {
		policy.Window = DefaultPolicy.Window
	}
	if policy.Lockout <= 0 {
		policy.Lockout = DefaultPolicy.Lockout
	}
	return &Service{
		db:     db,
		policy: policy,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Log records an attempt and starts a lockout once the window's limit is
// reached. The returned status already reflects the new attempt.
func (s *Service) Log(ctx context.Context, a Attempt) (*Status, error) {
	now := s.now()
	var status *Status

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := repository.NewScreenshotRepository(tx)

		err := repo.RecordAttempt(ctx, &models.ScreenshotAttempt{
			UserID:    a.UserID,
			DeviceID:  a.DeviceID,
			IPAddress: a.IPAddress,
			UserAgent: a.UserAgent,
			CreatedAt: now,
		})
		if err != nil {
			return err
		}

		status, err = s.status(ctx, repo, a.UserID, now)
		if err != nil {
			return err
		}
		if status.IsLocked || status.ScreenshotCount < int64(s.policy.MaxPerWindow) {
			return nil
		}

		until := now.Add(s.policy.Lockout)
		lockout := &models.ScreenshotLockout{
			UserID:          a.UserID,
			LockedUntil:     until,
			Reason:          fmt.Sprintf("%d screenshots within %s", status.ScreenshotCount, s.policy.Window),
			ScreenshotCount: status.ScreenshotCount,
			CreatedAt:       now,
		}
		if err := repo.CreateLockout(ctx, lockout); err != nil {
			return err
		}
		status.IsLocked = true
		status.LockedUntil = &until

		metrics.Get().ScreenshotLockouts.Inc()
		logger.Log.Warn("Screenshot lockout started",
			logger.WithUserID(a.UserID),
			zap.Int64("screenshot_count", status.ScreenshotCount),
			zap.Time("locked_until", until),
		)
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.Get().ScreenshotsTotal.Inc()
	return status, nil
}

// Status reports the user's count in the current window and any running lockout
func (s *Service) Status(ctx context.Context, userID string) (*Status, error) {
	return s.status(ctx, repository.NewScreenshotRepository(s.db), userID, s.now())
}

func (s *Service) status(ctx context.Context, repo repository.ScreenshotRepository, userID string, now time.Time) (*Status, error) {
	count, err := repo.CountSince(ctx, userID, now.Add(-s.policy.Window))
	if err != nil {
		return nil, err
	}

	status := &Status{ScreenshotCount: count, Limit: s.policy.MaxPerWindow}
	if remaining := int64(s.policy.MaxPerWindow) - count; remaining > 0 {
		status.Remaining = remaining
	}

	lockout, err := repo.ActiveLockout(ctx, userID, now)
	switch {
	case err == nil:
		status.IsLocked = true
		until := lockout.LockedUntil
		status.LockedUntil = &until
	case !errors.Is(err, repository.ErrNotFound):
		return nil, err
	}
	return status, nil
}
