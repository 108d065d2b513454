package main

import (
	"fmt"
	"os"

	"github.com/zfogg/hushmap/internal/config"
	"github.com/zfogg/hushmap/internal/database"
	"github.com/zfogg/hushmap/internal/logger"
)

func main() {
	cfg, err := config.Load()
	logger.InitializeConsole("info")
	if err != nil {
		logger.FatalWithFields("Invalid configuration", err)
	}

	command := "up"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	switch command {
	case "up":
		runMigrationsUp(cfg)
	case "status":
		checkConnection(cfg)
	default:
		fmt.Println("Usage: migrate [up|status]")
		fmt.Println("  up     - Create or update every table and index")
		fmt.Println("  status - Check that the database is reachable")
		os.Exit(1)
	}
}

func runMigrationsUp(cfg *config.Config) {
	logger.Log.Info("🔄 Connecting to database...")
	if err := database.Initialize(cfg.Database.DSN(), false); err != nil {
		logger.FatalWithFields("❌ Failed to connect to database", err)
	}
	defer database.Close()

	logger.Log.Info("📈 Running migrations...")
	if err := database.Migrate(database.DB); err != nil {
		logger.FatalWithFields("❌ Migration failed", err)
	}
	logger.Log.Info("✅ All migrations completed successfully!")
}

func checkConnection(cfg *config.Config) {
	if err := database.Initialize(cfg.Database.DSN(), false); err != nil {
		logger.FatalWithFields("❌ Failed to connect to database", err)
	}
	defer database.Close()

	if err := database.Health(database.DB); err != nil {
		logger.FatalWithFields("❌ Database unhealthy", err)
	}
	logger.Log.Info("✅ Database reachable")
}
