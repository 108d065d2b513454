package scheduler

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/zfogg/hushmap/internal/logger"
	"github.com/zfogg/hushmap/internal/metrics"
	"github.com/zfogg/hushmap/internal/repository"
	"go.uber.org/zap"
)

// Job names
const (
	JobPOIWarm      = "poi-warm"
	JobRewardExpiry = "reward-expiry"
)

// LocationSource lists where recent activity happened
type LocationSource interface {
	RecentLocations(ctx context.Context, since time.Time, limit int) ([]repository.Location, error)
}

// POIWarmer refreshes stale POI areas
type POIWarmer interface {
	ShouldFetch(ctx context.Context, lat, lng float64) bool
	Refresh(ctx context.Context, lat, lng float64) (int, error)
}

// RewardExpirer marks overdue rewards expired
type RewardExpirer interface {
	ExpireRewards(ctx context.Context, now time.Time) (int64, error)
}

// WarmConfig bounds one warming run
type WarmConfig struct {
	Lookback  time.Duration
	MaxAreas  int
	CellSizeM float64
}

// DefaultWarmConfig warms up to 25 areas seen in the last day
func DefaultWarmConfig() WarmConfig {
	return WarmConfig{Lookback: 24 * time.Hour, MaxAreas: 25, CellSizeM: 300}
}

// POIWarmJob refreshes stale POI areas around recent posts, so the first
// reader of a busy area is served a warm cache
func POIWarmJob(posts LocationSource, warmer POIWarmer, cfg WarmConfig) Job {
	return func(ctx context.Context) error {
		locations, err := posts.RecentLocations(ctx, time.Now().UTC().Add(-cfg.Lookback), cfg.MaxAreas*10)
		if err != nil {
			return fmt.Errorf("loading recent post locations: %w", err)
		}

		refreshed, failed := 0, 0
		for _, loc := range dedupeCells(locations, cfg.CellSizeM, cfg.MaxAreas) {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if !warmer.ShouldFetch(ctx, loc.Lat, loc.Lng) {
				continue
			}
			if _, err := warmer.Refresh(ctx, loc.Lat, loc.Lng); err != nil {
				failed++
				logger.Log.Warn("POI warm refresh failed", logger.WithCoordinates(loc.Lat, loc.Lng), zap.Error(err))
				continue
			}
			refreshed++
		}

		logger.Log.Info("POI warm run finished",
			zap.Int("candidates", len(locations)),
			zap.Int("refreshed", refreshed),
			zap.Int("failed", failed))
		return nil
	}
}

// RewardExpiryJob expires pending rewards past their expiry
func RewardExpiryJob(rewards RewardExpirer) Job {
	return func(ctx context.Context) error {
		n, err := rewards.ExpireRewards(ctx, time.Now().UTC())
		if err != nil {
			return err
		}
		metrics.Get().RewardsExpired.Add(float64(n))
		if n > 0 {
			logger.Log.Info("Expired rewards", zap.Int64("count", n))
		}
		return nil
	}
}

// dedupeCells keeps the first location per grid cell of roughly cellSizeM meters
func dedupeCells(locations []repository.Location, cellSizeM float64, max int) []repository.Location {
	if cellSizeM <= 0 {
		cellSizeM = 300
	}
	// ~111km per degree of latitude; longitude cells widen toward the poles, which is fine here
	step := cellSizeM / 111000

	seen := make(map[[2]int64]bool)
	out := make([]repository.Location, 0, len(locations))
	for _, loc := range locations {
		cell := [2]int64{int64(math.Floor(loc.Lat / step)), int64(math.Floor(loc.Lng / step))}
		if seen[cell] {
			continue
		}
		seen[cell] = true
		out = append(out, loc)
		if max > 0 && len(out) >= max {
			break
		}
	}
	return out
}
