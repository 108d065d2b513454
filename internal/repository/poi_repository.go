package repository

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/zfogg/hushmap/internal/geo"
	"github.com/zfogg/hushmap/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// POIRepository handles all database operations for cached places
type POIRepository interface {
	// UpsertPOIs merges rows by external id and skips rows whose
	// name+coordinate already exist when they have no external id
	UpsertPOIs(ctx context.Context, pois []models.POI) error
	// InsertPOI inserts one row; false means it already existed
	InsertPOI(ctx context.Context, poi *models.POI) (bool, error)
	// Nearby returns places within radiusMeters, closest first
	Nearby(ctx context.Context, lat, lng, radiusMeters float64, limit int) ([]models.POI, error)
	// SearchByName matches name case-insensitively within radiusMeters
	SearchByName(ctx context.Context, lat, lng float64, name string, radiusMeters float64, limit int) ([]models.POI, error)
}

type poiRepository struct {
	db *gorm.DB
}

// NewPOIRepository creates a new POI repository
func NewPOIRepository(db *gorm.DB) POIRepository {
	return &poiRepository{db: db}
}

var poiMergeColumns = []string{
	"name", "source", "category", "types", "primary_type", "primary_type_display_name",
	"photos", "icon_mask_base_uri", "icon_background_color", "lat", "lng", "updated_at",
}

// UpsertPOIs writes a provider batch
func (r *poiRepository) UpsertPOIs(ctx context.Context, pois []models.POI) error {
	var withID, withoutID []models.POI
	for _, p := range pois {
		if p.ExternalPlaceID != nil && *p.ExternalPlaceID != "" {
			withID = append(withID, p)
		} else {
			p.ExternalPlaceID = nil
			withoutID = append(withoutID, p)
		}
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(withID) > 0 {
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "external_place_id"}},
				DoUpdates: clause.AssignmentColumns(poiMergeColumns),
			}).Create(&withID).Error
			if err != nil {
				return err
			}
		}
		if len(withoutID) > 0 {
			// Conflicts here come from the partial (name, lat, lng) index
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&withoutID).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// InsertPOI inserts a single row, treating a unique violation as "already there"
func (r *poiRepository) InsertPOI(ctx context.Context, poi *models.POI) (bool, error) {
	if poi == nil {
		return false, ErrInvalidInput
	}
	err := r.db.WithContext(ctx).Create(poi).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return false, nil
	}
	return err == nil, err
}

// Nearby returns places within radiusMeters of a point, closest first
func (r *poiRepository) Nearby(ctx context.Context, lat, lng, radiusMeters float64, limit int) ([]models.POI, error) {
	var candidates []models.POI
	err := nearestFirst(withinBounds(r.db.WithContext(ctx).Model(&models.POI{}), geo.BoundsAround(lat, lng, radiusMeters)), lat, lng).
		Limit(maxRadiusCandidates).
		Find(&candidates).Error
	if err != nil {
		return nil, err
	}
	return closest(candidates, lat, lng, radiusMeters, limit), nil
}

// SearchByName finds places by name near a point
func (r *poiRepository) SearchByName(ctx context.Context, lat, lng float64, name string, radiusMeters float64, limit int) ([]models.POI, error) {
	pattern := "%" + strings.ToLower(strings.TrimSpace(name)) + "%"

	var candidates []models.POI
	err := nearestFirst(withinBounds(r.db.WithContext(ctx).Model(&models.POI{}), geo.BoundsAround(lat, lng, radiusMeters)), lat, lng).
		Where("LOWER(name) LIKE ?", pattern).
		Limit(maxRadiusCandidates).
		Find(&candidates).Error
	if err != nil {
		return nil, err
	}
	return closest(candidates, lat, lng, radiusMeters, limit), nil
}

func closest(candidates []models.POI, lat, lng, radiusMeters float64, limit int) []models.POI {
	out := make([]models.POI, 0, len(candidates))
	for _, p := range candidates {
		d := geo.Distance(lat, lng, p.Lat, p.Lng)
		if d <= radiusMeters {
			p.DistanceMeters = d
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DistanceMeters < out[j].DistanceMeters
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
