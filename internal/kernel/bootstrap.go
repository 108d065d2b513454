package kernel

import (
	"context"
	"fmt"

	"github.com/zfogg/hushmap/internal/auth"
	"github.com/zfogg/hushmap/internal/cache"
	"github.com/zfogg/hushmap/internal/config"
	"github.com/zfogg/hushmap/internal/database"
	"github.com/zfogg/hushmap/internal/logger"
	"github.com/zfogg/hushmap/internal/middleware"
	"github.com/zfogg/hushmap/internal/pois"
	"github.com/zfogg/hushmap/internal/repository"
	"github.com/zfogg/hushmap/internal/telemetry"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Build connects to the database and redis, migrates the schema and wires
// every service from cfg
func Build(cfg *config.Config) (*Kernel, error) {
	db, err := database.Open(cfg.Database.DSN(), !cfg.IsProduction())
	if err != nil {
		return nil, err
	}
	k := New(cfg)
	k.OnCleanup(func(context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	})

	if cfg.Telemetry.Enabled {
		if err := db.Use(telemetry.GORMTracingPlugin()); err != nil {
			logger.WarnWithFields("Failed to register GORM tracing plugin", err)
		}
	}

	if err := database.Migrate(db); err != nil {
		_ = k.Cleanup(context.Background())
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := Wire(k, db); err != nil {
		_ = k.Cleanup(context.Background())
		return nil, err
	}
	return k, k.Validate()
}

// Wire registers db and builds the services on top of it. Redis is used for
// rate limiting and refresh locks when configured; otherwise limits are
// counted in memory.
func Wire(k *Kernel, db *gorm.DB) error {
	cfg := k.Config()
	k.SetDB(db)

	if cfg.Redis.Enabled() {
		client, err := cache.NewRedisClient(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password)
		if err != nil {
			logger.WarnWithFields("Redis unavailable, falling back to in-memory rate limiting", err)
		} else {
			k.SetCache(client)
			k.OnCleanup(func(context.Context) error { return client.Close() })
		}
	}

	if client := k.Cache(); client != nil {
		k.SetWindowCounter(client)
	} else {
		k.SetWindowCounter(middleware.NewMemoryWindowCounter())
	}

	if cfg.Auth.JWTSecret != "" {
		k.SetVerifier(auth.NewJWTVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer))
	}

	provider, err := NewPlacesProvider(cfg.POI)
	if err != nil {
		return err
	}
	svc, err := NewPOIService(cfg.POI, db, provider)
	if err != nil {
		return err
	}
	if client := k.Cache(); client != nil {
		svc.WithLocker(client)
	}
	k.SetPOIService(svc)
	k.OnCleanup(func(context.Context) error {
		svc.Wait()
		return nil
	})
	return nil
}

// NewPlacesProvider picks the places provider named by POI_SOURCE
func NewPlacesProvider(cfg config.POIConfig) (pois.PlacesProvider, error) {
	switch cfg.Source {
	case pois.SourceOpenStreetMap:
		return pois.NewOverpassProvider(cfg.OverpassURL, cfg.FetchTimeout), nil
	case pois.SourceGooglePlaces:
		return pois.NewGooglePlacesProvider(cfg.GooglePlacesKey, cfg.FetchTimeout), nil
	default:
		return nil, fmt.Errorf("unknown POI source %q", cfg.Source)
	}
}

// NewClassifier builds the category classifier for a provider source,
// reading overrides from the rules file when one is configured
func NewClassifier(cfg config.POIConfig, source string) (*pois.Classifier, error) {
	rules := pois.RuleSet{Google: pois.DefaultGoogleRules(), OSM: pois.DefaultOSMRules()}
	if cfg.RulesFile != "" {
		loaded, err := pois.LoadRules(cfg.RulesFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load POI category rules: %w", err)
		}
		rules = loaded
		logger.Log.Info("Loaded POI category rules", zap.String("file", cfg.RulesFile))
	}

	if source == pois.SourceGooglePlaces {
		return pois.NewClassifier(pois.MatchExact, rules.Google), nil
	}
	return pois.NewClassifier(pois.MatchSubstring, rules.OSM), nil
}

// NewPOIService wires the POI cache over db with provider
func NewPOIService(cfg config.POIConfig, db *gorm.DB, provider pois.PlacesProvider) (*pois.Service, error) {
	classifier, err := NewClassifier(cfg, provider.Source())
	if err != nil {
		return nil, err
	}
	return pois.NewService(
		repository.NewPOIRepository(db),
		repository.NewFetchHistoryRepository(db),
		provider,
		classifier,
		pois.Config{
			FetchRadiusMeters: cfg.FetchRadiusMeters,
			MaxAge:            cfg.MaxAge(),
			FetchTimeout:      cfg.FetchTimeout,
			AsyncRefresh:      cfg.AsyncRefresh,
			ServeLimit:        cfg.ServeLimit,
			ProviderRPS:       cfg.ProviderRPS,
		},
	), nil
}
