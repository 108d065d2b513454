package repository

import (
	"context"
	"time"

	"github.com/zfogg/hushmap/internal/geo"
	"github.com/zfogg/hushmap/internal/models"
	"gorm.io/gorm"
)

// FetchHistoryRepository is the append-only log of external POI fetches
type FetchHistoryRepository interface {
	Record(ctx context.Context, entry *models.POIFetchHistory) error
	// HasFetchSince reports whether a fetch within radiusMeters of the point
	// happened at or after since
	HasFetchSince(ctx context.Context, lat, lng, radiusMeters float64, since time.Time) (bool, error)
}

type fetchHistoryRepository struct {
	db *gorm.DB
}

// NewFetchHistoryRepository creates a new fetch history repository
func NewFetchHistoryRepository(db *gorm.DB) FetchHistoryRepository {
	return &fetchHistoryRepository{db: db}
}

// Record appends an entry
func (r *fetchHistoryRepository) Record(ctx context.Context, entry *models.POIFetchHistory) error {
	if entry == nil {
		return ErrInvalidInput
	}
	if entry.FetchedAt.IsZero() {
		entry.FetchedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

// HasFetchSince checks for a recent nearby fetch
func (r *fetchHistoryRepository) HasFetchSince(ctx context.Context, lat, lng, radiusMeters float64, since time.Time) (bool, error) {
	var rows []models.POIFetchHistory
	err := nearestFirst(withinBounds(r.db.WithContext(ctx).Model(&models.POIFetchHistory{}), geo.BoundsAround(lat, lng, radiusMeters)), lat, lng).
		Where("fetched_at >= ?", since.UTC()).
		Limit(maxRadiusCandidates).
		Find(&rows).Error
	if err != nil {
		return false, err
	}
	for _, row := range rows {
		if geo.Distance(lat, lng, row.Lat, row.Lng) <= radiusMeters {
			return true, nil
		}
	}
	return false, nil
}
