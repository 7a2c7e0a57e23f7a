package main

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"gemini-replica/internal/config"
	"gemini-replica/internal/db"
	"gemini-replica/internal/persist"
)

// openBackend opens the snapshot storage named by the configuration.
// The returned close function releases it.
func openBackend(cfg *config.Config, logger *zap.Logger) (persist.Backend, func(), error) {
	switch cfg.StorageBackend {
	case config.StorageMemory:
		logger.Warn("Using in-memory storage, the session will not survive a restart")
		return persist.NewMemoryBackend(), func() {}, nil

	case config.StorageFile:
		backend, err := persist.NewFileBackend(cfg.DataDir)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Using file storage", zap.String("dir", cfg.DataDir))
		return backend, func() {}, nil

	default:
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
			return nil, nil, fmt.Errorf("failed to create data directory: %w", err)
		}

		database, err := db.NewDB(cfg.DBDriver, cfg.DBPath, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open database: %w", err)
		}
		if err := database.Migrate(); err != nil {
			database.Close()
			return nil, nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		logger.Info("Database migrated successfully",
			zap.String("path", cfg.DBPath),
			zap.String("driver", database.Driver()))

		return persist.NewSQLBackend(database), func() {
			if err := database.Close(); err != nil {
				logger.Warn("Failed to close database", zap.Error(err))
			}
		}, nil
	}
}
