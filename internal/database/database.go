package database

import (
	"fmt"
	"time"

	"github.com/zfogg/hushmap/internal/logger"
	"github.com/zfogg/hushmap/internal/models"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DB holds the database connection
var DB *gorm.DB

func gormConfig(verbose bool) *gorm.Config {
	gormLog := gormlogger.Default.LogMode(gormlogger.Warn)
	if verbose {
		gormLog = gormlogger.Default.LogMode(gormlogger.Info)
	}
	return &gorm.Config{
		Logger: gormLog,
		// Unique violations surface as gorm.ErrDuplicatedKey on every dialect
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Open connects to Postgres and configures the pool
func Open(dsn string, verbose bool) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), gormConfig(verbose))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

// Initialize opens the global connection
func Initialize(dsn string, verbose bool) error {
	db, err := Open(dsn, verbose)
	if err != nil {
		return err
	}
	DB = db
	logger.Log.Info("Database connected")
	return nil
}

// OpenSQLite opens a SQLite database. Used by tests and local tooling with
// DSNs like "file:name?mode=memory&cache=shared". The pool is pinned to one
// connection so an in-memory database is shared by every query.
func OpenSQLite(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), gormConfig(false))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

// Migrate runs auto-migration for all models and creates the indexes gorm
// tags cannot express
func Migrate(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database not initialized")
	}

	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := createIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	logger.Log.Debug("Database migrations completed", zap.String("dialect", db.Dialector.Name()))
	return nil
}

// createIndexes creates partial and expression indexes. Both dialects accept
// partial indexes; the descending and GIN variants are Postgres-only.
func createIndexes(db *gorm.DB) error {
	statements := []string{
		// Places without a provider id dedupe on name and exact coordinate
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_pois_name_location ON pois (name, lat, lng) WHERE external_place_id IS NULL",
		"CREATE INDEX IF NOT EXISTS idx_posts_visible_created ON posts (created_at) WHERE hidden = false",
		"CREATE INDEX IF NOT EXISTS idx_rewards_pending_expiry ON user_rewards (expires_at) WHERE reward_status = 'pending'",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_reactions_user_post ON reactions (user_id, post_id) WHERE post_id IS NOT NULL",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_reactions_user_reply ON reactions (user_id, reply_id) WHERE reply_id IS NOT NULL",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_circles_user_default ON viewing_circles (user_id) WHERE type = 'default'",
	}
	if db.Dialector.Name() == "postgres" {
		statements = append(statements,
			"CREATE INDEX IF NOT EXISTS idx_posts_user_created ON posts (user_id, created_at DESC)",
			"CREATE INDEX IF NOT EXISTS idx_poi_fetch_recent ON poi_fetch_history (fetched_at DESC)",
			"CREATE INDEX IF NOT EXISTS idx_pois_name_lower ON pois (LOWER(name))",
			"CREATE INDEX IF NOT EXISTS idx_pois_types ON pois USING GIN (types)",
		)
	}

	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("%s: %w", stmt, err)
		}
	}
	return nil
}

// Close closes the database connection
func Close() error {
	if DB == nil {
		return nil
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

// Health checks database connectivity
func Health(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database not initialized")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	return sqlDB.Ping()
}
