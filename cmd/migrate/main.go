package main

import (
	"studycycle/backend/internal/config"
	"studycycle/backend/internal/db"
	"studycycle/backend/internal/logger"
	"studycycle/backend/migrations"
)

func main() {
	cfg := config.Load()
	log := logger.Init(cfg.LogFormat, cfg.LogLevel)

	database, err := db.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal("open database", "error", err)
	}
	defer database.Close()

	applied, err := db.RunMigrations(database, migrations.Files)
	if err != nil {
		log.Fatal("run migrations", "error", err)
	}

	log.Info("migrations applied successfully", "count", len(applied), "files", applied)
}
