// Package pois keeps a database-backed cache of nearby places in front of an
// external places provider.
//
// Reads are served from the cache. Staleness is decided per area from the
// fetch history, not from the age of individual rows, so an area whose last
// fetch returned nothing is still considered fresh.
package pois

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/zfogg/hushmap/internal/logger"
	"github.com/zfogg/hushmap/internal/metrics"
	"github.com/zfogg/hushmap/internal/models"
	"github.com/zfogg/hushmap/internal/repository"
	"github.com/zfogg/hushmap/internal/telemetry"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// Config controls fetch and freshness behavior
type Config struct {
	FetchRadiusMeters float64
	MaxAge            time.Duration
	FetchTimeout      time.Duration
	// AsyncRefresh serves stale rows immediately and refreshes in the background
	AsyncRefresh bool
	ServeLimit   int
	// ProviderRPS caps provider calls per second across the process; 0 disables the limit
	ProviderRPS float64
}

// DefaultConfig returns the production defaults
func DefaultConfig() Config {
	return Config{
		FetchRadiusMeters: 300,
		MaxAge:            30 * 24 * time.Hour,
		FetchTimeout:      10 * time.Second,
		AsyncRefresh:      true,
		ServeLimit:        50,
		ProviderRPS:       1,
	}
}

// Locker is a cross-instance mutex, satisfied by the redis client
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	Unlock(ctx context.Context, key, token string) error
}

// Service is the cache orchestrator
type Service struct {
	pois       repository.POIRepository
	history    repository.FetchHistoryRepository
	provider   PlacesProvider
	classifier *Classifier
	config     Config

	limiter *rate.Limiter
	flights singleflight.Group
	locker  Locker
	now     func() time.Time

	background sync.WaitGroup
}

// NewService wires the orchestrator
func NewService(
	poiRepo repository.POIRepository,
	history repository.FetchHistoryRepository,
	provider PlacesProvider,
	classifier *Classifier,
	cfg Config,
) *Service {
	s := &Service{
		pois:       poiRepo,
		history:    history,
		provider:   provider,
		classifier: classifier,
		config:     cfg,
		now:        func() time.Time { return time.Now().UTC() },
	}
	if cfg.ProviderRPS > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.ProviderRPS), 1)
	}
	return s
}

// WithLocker guards refreshes of the same area across instances
func (s *Service) WithLocker(l Locker) *Service {
	s.locker = l
	return s
}

// Source reports the provider's source name
func (s *Service) Source() string {
	return s.provider.Source()
}

// ShouldFetch reports whether the area around the point needs a provider call.
// A failed history lookup counts as stale.
func (s *Service) ShouldFetch(ctx context.Context, lat, lng float64) bool {
	since := s.now().Add(-s.config.MaxAge)
	fresh, err := s.history.HasFetchSince(ctx, lat, lng, s.config.FetchRadiusMeters, since)
	if err != nil {
		logger.Log.Warn("POI fetch history lookup failed, treating area as stale",
			logger.WithCoordinates(lat, lng), zap.Error(err))
		return true
	}
	return !fresh
}

// GetPOIs returns cached places around the point, closest first, and
// refreshes the area when it is stale. Only a cache read failure is returned.
func (s *Service) GetPOIs(ctx context.Context, lat, lng float64) ([]models.POI, error) {
	cached, err := s.nearby(ctx, lat, lng)
	if err != nil {
		return nil, err
	}

	if !s.ShouldFetch(ctx, lat, lng) {
		metrics.Get().POICacheLookupsTotal.WithLabelValues("fresh").Inc()
		return cached, nil
	}
	metrics.Get().POICacheLookupsTotal.WithLabelValues("stale").Inc()

	if s.config.AsyncRefresh {
		s.refreshInBackground(ctx, lat, lng)
		return cached, nil
	}

	if _, err := s.Refresh(ctx, lat, lng); err != nil {
		logger.Log.Warn("POI refresh failed, serving cached rows",
			logger.WithCoordinates(lat, lng), zap.Error(err))
		return cached, nil
	}
	refreshed, err := s.nearby(ctx, lat, lng)
	if err != nil {
		return cached, nil
	}
	return refreshed, nil
}

// Search finds cached places by name within maxDistanceKm
func (s *Service) Search(ctx context.Context, lat, lng float64, name string, maxDistanceKm float64, limit int) ([]models.POI, error) {
	return s.pois.SearchByName(ctx, lat, lng, name, maxDistanceKm*1000, limit)
}

// AlongTrail returns cached places near each trail point, in trail order and
// closest first per point, each place once. It never calls the provider.
func (s *Service) AlongTrail(ctx context.Context, trail []models.UserLocation, limit int) ([]models.POI, error) {
	out := []models.POI{}
	seen := make(map[string]bool)
	visited := make(map[string]bool)

	for _, point := range trail {
		if len(out) >= limit {
			break
		}
		key := cellKey(point.Lat, point.Lng)
		if visited[key] {
			continue
		}
		visited[key] = true

		nearby, err := s.pois.Nearby(ctx, point.Lat, point.Lng, s.config.FetchRadiusMeters, limit)
		if err != nil {
			return nil, err
		}
		for _, poi := range nearby {
			if seen[poi.ID] {
				continue
			}
			seen[poi.ID] = true
			out = append(out, poi)
			if len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

// Refresh fetches the area from the provider and stores the results. It
// returns the number of places written. Concurrent refreshes of the same
// area share one provider call.
func (s *Service) Refresh(ctx context.Context, lat, lng float64) (int, error) {
	key := cellKey(lat, lng)
	v, err, _ := s.flights.Do(key, func() (interface{}, error) {
		return s.refresh(ctx, key, lat, lng)
	})
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

// Wait blocks until background refreshes have finished
func (s *Service) Wait() {
	s.background.Wait()
}

func (s *Service) refreshInBackground(ctx context.Context, lat, lng float64) {
	s.background.Add(1)
	go func() {
		defer s.background.Done()

		// Detached from the request so the response is not held up, but bounded
		bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*s.config.FetchTimeout)
		defer cancel()

		if _, err := s.Refresh(bg, lat, lng); err != nil {
			logger.Log.Warn("Background POI refresh failed",
				logger.WithCoordinates(lat, lng),
				logger.WithSource(s.provider.Source()),
				zap.Error(err))
		}
	}()
}

func (s *Service) refresh(ctx context.Context, key string, lat, lng float64) (written int, err error) {
	source := s.provider.Source()
	ctx, span := telemetry.TracePOIRefresh(ctx, source, lat, lng, s.config.FetchRadiusMeters)
	defer func() { telemetry.EndSpan(span, err) }()

	if s.locker != nil {
		lockKey := "poi-refresh:" + key
		token, ok, lockErr := s.locker.TryLock(ctx, lockKey, 2*s.config.FetchTimeout)
		switch {
		case lockErr != nil:
			logger.WarnWithFields("POI refresh lock unavailable, refreshing without it", lockErr)
		case !ok:
			logger.Log.Debug("POI refresh already running elsewhere", zap.String("cell", key))
			return 0, nil
		default:
			defer func() {
				if err := s.locker.Unlock(context.WithoutCancel(ctx), lockKey, token); err != nil {
					logger.WarnWithFields("Failed to release POI refresh lock", err)
				}
			}()
		}
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return 0, fmt.Errorf("waiting for provider rate limit: %w", err)
		}
	}

	places, err := s.fetch(ctx, source, lat, lng)
	if err != nil {
		return 0, err
	}

	rows := s.toModels(source, places)
	written = s.store(ctx, rows)
	metrics.Get().POIsStoredTotal.WithLabelValues(source).Add(float64(written))

	entry := &models.POIFetchHistory{
		Lat:       lat,
		Lng:       lng,
		Radius:    s.config.FetchRadiusMeters,
		Source:    source,
		FetchedAt: s.now(),
	}
	if err := s.history.Record(ctx, entry); err != nil {
		logger.ErrorWithFields("Failed to record POI fetch history", err)
	}

	logger.Log.Info("POI area refreshed",
		logger.WithCoordinates(lat, lng),
		logger.WithSource(source),
		zap.Int("fetched", len(places)),
		zap.Int("written", written),
	)
	return written, nil
}

func (s *Service) fetch(ctx context.Context, source string, lat, lng float64) ([]Place, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.config.FetchTimeout)
	defer cancel()

	start := time.Now()
	places, err := s.provider.Nearby(fetchCtx, lat, lng, s.config.FetchRadiusMeters)
	metrics.Get().POIFetchDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())

	if err != nil {
		outcome := "error"
		if errors.Is(err, context.DeadlineExceeded) {
			outcome = "timeout"
		}
		metrics.Get().POIFetchesTotal.WithLabelValues(source, outcome).Inc()
		logger.Log.Warn("POI provider fetch failed",
			logger.WithSource(source),
			logger.WithCoordinates(lat, lng),
			zap.String("outcome", outcome),
			zap.Error(err))
		return nil, err
	}
	metrics.Get().POIFetchesTotal.WithLabelValues(source, "success").Inc()
	return places, nil
}

// toModels classifies places and drops duplicates within the batch
func (s *Service) toModels(source string, places []Place) []models.POI {
	seen := make(map[string]bool, len(places))
	rows := make([]models.POI, 0, len(places))

	for _, p := range places {
		dedupe := p.ExternalID
		if dedupe == "" {
			dedupe = fmt.Sprintf("%s|%f|%f", p.Name, p.Lat, p.Lng)
		}
		if seen[dedupe] {
			continue
		}
		seen[dedupe] = true

		row := models.POI{
			Source:                 source,
			Name:                   p.Name,
			Category:               s.classifier.Classify(p.ClassifyOn),
			Types:                  models.StringArray(p.Types),
			PrimaryType:            p.PrimaryType,
			PrimaryTypeDisplayName: p.PrimaryTypeDisplayName,
			Photos:                 models.StringArray(p.Photos),
			IconMaskBaseURI:        p.IconMaskBaseURI,
			IconBackgroundColor:    p.IconBackgroundColor,
			Lat:                    p.Lat,
			Lng:                    p.Lng,
		}
		if p.ExternalID != "" {
			id := p.ExternalID
			row.ExternalPlaceID = &id
		}
		rows = append(rows, row)
	}
	return rows
}

// store writes the batch in one upsert, falling back to row-by-row inserts
// that skip duplicates when the batch is rejected
func (s *Service) store(ctx context.Context, rows []models.POI) int {
	if len(rows) == 0 {
		return 0
	}

	err := s.pois.UpsertPOIs(ctx, rows)
	if err == nil {
		return len(rows)
	}
	logger.WarnWithFields("Batch POI upsert failed, inserting individually", err)

	written := 0
	for i := range rows {
		row := rows[i]
		inserted, err := s.pois.InsertPOI(ctx, &row)
		if err != nil {
			logger.Log.Warn("Failed to insert POI", zap.String("name", row.Name), zap.Error(err))
			continue
		}
		if inserted {
			written++
		}
	}
	return written
}

func (s *Service) nearby(ctx context.Context, lat, lng float64) ([]models.POI, error) {
	return s.pois.Nearby(ctx, lat, lng, s.config.FetchRadiusMeters, s.config.ServeLimit)
}

// cellKey buckets coordinates to roughly 100m so nearby requests share a refresh
func cellKey(lat, lng float64) string {
	return fmt.Sprintf("%.3f:%.3f", math.Round(lat*1000)/1000, math.Round(lng*1000)/1000)
}
