package models

import (
	"time"
)

// MigrationRecord represents a schema migration that is currently applied.
// The ledger of these records is the single source of truth for "is X applied".
type MigrationRecord struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;not null" json:"name"`
	Batch     int       `gorm:"not null" json:"batch"`
	AppliedAt time.Time `json:"applied_at"`
}

// TableName ensures consistent table naming
func (MigrationRecord) TableName() string {
	return "schema_migrations"
}
