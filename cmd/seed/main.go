package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/zfogg/hushmap/internal/config"
	"github.com/zfogg/hushmap/internal/database"
	"github.com/zfogg/hushmap/internal/logger"
	"github.com/zfogg/hushmap/internal/seed"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	logger.InitializeConsole("info")
	if err != nil {
		logger.FatalWithFields("Invalid configuration", err)
	}

	command := "dev"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	var run func(s *seed.Seeder, ctx context.Context) error
	switch command {
	case "dev":
		run = (*seed.Seeder).SeedDev
	case "test":
		run = (*seed.Seeder).SeedTest
	case "clean":
		if cfg.IsProduction() {
			fmt.Println("Refusing to clean a production database")
			os.Exit(1)
		}
		run = (*seed.Seeder).Clean
	default:
		fmt.Println("Usage: seed [dev|test|clean]")
		fmt.Println("  dev   - Seed development database with realistic data")
		fmt.Println("  test  - Seed test database with minimal data")
		fmt.Println("  clean - Remove all seed data (use with caution)")
		os.Exit(1)
	}

	logger.Log.Info("🌱 Connecting to database...", zap.String("command", command))
	if err := database.Initialize(cfg.Database.DSN(), false); err != nil {
		logger.FatalWithFields("❌ Failed to connect to database", err)
	}
	defer database.Close()

	if err := database.Migrate(database.DB); err != nil {
		logger.FatalWithFields("❌ Migration failed", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	seeder := seed.NewSeeder(database.DB, uint64(time.Now().UnixNano()))
	if err := run(seeder, ctx); err != nil {
		logger.FatalWithFields("❌ Seeding failed", err)
	}
	logger.Log.Info("✅ Done", zap.String("command", command))
}
