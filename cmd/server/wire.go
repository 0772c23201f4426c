// File: cmd/server/wire.go
//go:build wireinject
// +build wireinject

package main

import (
	"log"

	"github.com/google/wire"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/AryanBhardwaj123/placement-tracker/internal/app"
	"github.com/AryanBhardwaj123/placement-tracker/internal/company"
	"github.com/AryanBhardwaj123/placement-tracker/internal/config"
	"github.com/AryanBhardwaj123/placement-tracker/internal/jobs"
	"github.com/AryanBhardwaj123/placement-tracker/internal/platform/database"
	"github.com/AryanBhardwaj123/placement-tracker/internal/platform/logger"
)

// initializeServer is the main Wire injector.
func initializeServer(cfg *config.Config) (*app.Server, func(), error) {
	wire.Build(
		// Platform Layer
		logger.New,
		database.NewGORM,
		provideCleanup,

		// Companies (legacy REST surface)
		company.NewGORMRepository,
		company.NewService,
		company.NewHandler,

		// Jobs
		jobs.NewDeadlineReminderJob,

		// Application Layer
		app.NewServer,
	)
	return nil, nil, nil
}

func provideCleanup(logger *zap.Logger, db *gorm.DB) func() {
	return func() {
		logger.Info("Executing cleanup tasks...")
		database.CloseGORMDB(db)
		if err := logger.Sync(); err != nil {
			log.Printf("ERROR: Failed to sync logger during cleanup: %v", err)
		}
		log.Println("Cleanup finished.")
	}
}
