package migrations

import (
	"context"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

type migrationUser struct {
	ID           uint   `gorm:"primaryKey"`
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	CreatedAt    int64
	UpdatedAt    int64
}

func (migrationUser) TableName() string {
	return "users"
}

// CreateUsersTable creates the users table
func CreateUsersTable(ctx context.Context, tx *gorm.DB, logger zerolog.Logger) error {
	logger.Info().Msg("Creating users table")
	return tx.Migrator().CreateTable(&migrationUser{})
}

// DropUsersTable drops the users table
func DropUsersTable(ctx context.Context, tx *gorm.DB, logger zerolog.Logger) error {
	logger.Info().Msg("Dropping users table")
	return tx.Migrator().DropTable(&migrationUser{})
}
