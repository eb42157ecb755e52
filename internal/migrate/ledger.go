package migrate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/ksred/schemactl/internal/models"
	"github.com/ksred/schemactl/internal/utils"
)

// Ledger is the persistent record of applied migrations, backed by the
// schema_migrations table. It is the single source of truth for which
// migrations are currently applied.
type Ledger struct {
	db *gorm.DB
}

// NewLedger creates a ledger over the given database handle
func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// EnsureStorage provisions the backing table if absent. Idempotent, safe to
// call every run.
func (l *Ledger) EnsureStorage(ctx context.Context) error {
	if err := l.db.WithContext(ctx).AutoMigrate(&models.MigrationRecord{}); err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}
	return nil
}

// AppliedRecords returns all records in true application order: batch
// ascending, then applied_at ascending, with insertion order as tiebreak.
func (l *Ledger) AppliedRecords(ctx context.Context) ([]models.MigrationRecord, error) {
	var records []models.MigrationRecord
	err := l.db.WithContext(ctx).
		Order("batch ASC").
		Order("applied_at ASC").
		Order("id ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read applied migrations: %w", err)
	}
	return records, nil
}

// AppliedNames returns the set of applied migration names
func (l *Ledger) AppliedNames(ctx context.Context) (map[string]bool, error) {
	var names []string
	err := l.db.WithContext(ctx).
		Model(&models.MigrationRecord{}).
		Pluck("name", &names).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read applied migration names: %w", err)
	}

	applied := make(map[string]bool, len(names))
	for _, name := range names {
		applied[name] = true
	}
	return applied, nil
}

// RecordApplied inserts a record for a migration that just committed. A
// record already present means the engine's invariants were violated
// upstream, reported as a conflict.
func (l *Ledger) RecordApplied(ctx context.Context, name string, batch int) error {
	var count int64
	err := l.db.WithContext(ctx).
		Model(&models.MigrationRecord{}).
		Where("name = ?", name).
		Count(&count).Error
	if err != nil {
		return fmt.Errorf("failed to check for existing record: %w", err)
	}
	if count > 0 {
		return utils.WrapConflictError("migration", name)
	}

	record := &models.MigrationRecord{
		Name:      name,
		Batch:     batch,
		AppliedAt: time.Now().UTC(),
	}
	if err := l.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("failed to record migration '%s': %w", name, err)
	}
	return nil
}

// RemoveRecord deletes the record for a migration that was just rolled back
func (l *Ledger) RemoveRecord(ctx context.Context, name string) error {
	result := l.db.WithContext(ctx).
		Where("name = ?", name).
		Delete(&models.MigrationRecord{})
	if result.Error != nil {
		return fmt.Errorf("failed to remove migration record '%s': %w", name, result.Error)
	}
	if result.RowsAffected == 0 {
		return utils.WrapNotFoundError("migration record", name)
	}
	return nil
}

// NextBatch returns 1 + max(batch) over all records, or 1 when empty
func (l *Ledger) NextBatch(ctx context.Context) (int, error) {
	var maxBatch *int
	err := l.db.WithContext(ctx).
		Model(&models.MigrationRecord{}).
		Select("MAX(batch)").
		Scan(&maxBatch).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, fmt.Errorf("failed to compute next batch: %w", err)
	}
	if maxBatch == nil {
		return 1, nil
	}
	return *maxBatch + 1, nil
}
