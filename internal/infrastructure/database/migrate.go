package database

import (
	"context"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"tramway-server/internal/infrastructure/database/entities"
)

// AutoMigrate applies database schema changes for the tramway domain.
func AutoMigrate(ctx context.Context, db *gorm.DB, log zerolog.Logger) error {
	if err := db.WithContext(ctx).AutoMigrate(
		&entities.Project{},
		&entities.Branch{},
		&entities.TimelineNode{},
	); err != nil {
		return err
	}

	log.Info().Msg("database schema up to date")
	return nil
}
