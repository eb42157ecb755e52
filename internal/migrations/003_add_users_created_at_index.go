package migrations

import (
	"context"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// AddUsersCreatedAtIndex adds an index on users.created_at for audit queries
func AddUsersCreatedAtIndex(ctx context.Context, tx *gorm.DB, logger zerolog.Logger) error {
	logger.Info().Msg("Adding index on users.created_at")
	return tx.Exec(`CREATE INDEX idx_users_created_at ON users(created_at)`).Error
}

// DropUsersCreatedAtIndex removes the users.created_at index
func DropUsersCreatedAtIndex(ctx context.Context, tx *gorm.DB, logger zerolog.Logger) error {
	logger.Info().Msg("Dropping index on users.created_at")
	return tx.Exec(`DROP INDEX idx_users_created_at`).Error
}
