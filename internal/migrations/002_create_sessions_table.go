package migrations

import (
	"context"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

type migrationSession struct {
	ID        uint   `gorm:"primaryKey"`
	Token     string `gorm:"uniqueIndex;not null"`
	UserID    uint   `gorm:"index;not null"`
	ExpiresAt int64  `gorm:"not null"`
	CreatedAt int64
}

func (migrationSession) TableName() string {
	return "sessions"
}

// CreateSessionsTable creates the sessions table
func CreateSessionsTable(ctx context.Context, tx *gorm.DB, logger zerolog.Logger) error {
	logger.Info().Msg("Creating sessions table")
	return tx.Migrator().CreateTable(&migrationSession{})
}

// DropSessionsTable drops the sessions table
func DropSessionsTable(ctx context.Context, tx *gorm.DB, logger zerolog.Logger) error {
	logger.Info().Msg("Dropping sessions table")
	return tx.Migrator().DropTable(&migrationSession{})
}
