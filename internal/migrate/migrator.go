package migrate

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/ksred/schemactl/internal/database"
	"github.com/ksred/schemactl/internal/models"
)

// Migrator composes source, planner, ledger and executor behind the three
// public operations: migrate up, roll back by count, roll back to a target.
// Every operation holds the run lock for its full duration so two concurrent
// invocations cannot plan against each other's stale state.
type Migrator struct {
	source   *Source
	ledger   *Ledger
	executor *Executor
	lock     database.RunLock
	logger   zerolog.Logger
}

// NewMigrator creates a migrator over the given backend
func NewMigrator(db *gorm.DB, source *Source, lock database.RunLock, logger zerolog.Logger) *Migrator {
	ledger := NewLedger(db)
	return &Migrator{
		source:   source,
		ledger:   ledger,
		executor: NewExecutor(db, ledger, logger),
		lock:     lock,
		logger:   logger,
	}
}

// Up applies all pending migrations, tagging them with a freshly minted
// batch number shared by every step of this call.
func (m *Migrator) Up(ctx context.Context) (*Result, error) {
	release, err := m.acquireLock(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	definitions, applied, err := m.prepare(ctx)
	if err != nil {
		return nil, err
	}

	appliedNames := make(map[string]bool, len(applied))
	for _, record := range applied {
		appliedNames[record.Name] = true
	}

	plan := PlanUp(definitions, appliedNames)
	if len(plan) == 0 {
		m.logger.Info().Msg("No pending migrations")
		return &Result{Success: true, Completed: []string{}}, nil
	}

	batch, err := m.ledger.NextBatch(ctx)
	if err != nil {
		return nil, err
	}

	m.logger.Info().
		Int("pending", len(plan)).
		Int("batch", batch).
		Msg("Applying pending migrations")

	return m.executor.Apply(ctx, plan, DirectionForward, batch)
}

// Down rolls back the last n applied migrations in strict reverse of
// application order. n must be at least zero; zero is a no-op.
func (m *Migrator) Down(ctx context.Context, n int) (*Result, error) {
	release, err := m.acquireLock(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	definitions, applied, err := m.prepare(ctx)
	if err != nil {
		return nil, err
	}

	plan, err := PlanDownByCount(reverse(applied), DefinitionsByName(definitions), n)
	if err != nil {
		return nil, err
	}

	m.logger.Info().Int("count", len(plan)).Msg("Rolling back migrations")

	return m.executor.Apply(ctx, plan, DirectionBackward, 0)
}

// DownTo rolls back every migration applied after target, leaving target
// itself applied. target may carry a decorative .sql or .go suffix.
func (m *Migrator) DownTo(ctx context.Context, target string) (*Result, error) {
	release, err := m.acquireLock(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	definitions, applied, err := m.prepare(ctx)
	if err != nil {
		return nil, err
	}

	target = NormalizeTarget(target)

	plan, err := PlanDownToTarget(reverse(applied), DefinitionsByName(definitions), target)
	if err != nil {
		return nil, err
	}

	m.logger.Info().
		Str("target", target).
		Int("count", len(plan)).
		Msg("Rolling back to target")

	return m.executor.Apply(ctx, plan, DirectionBackward, 0)
}

// StatusRecord describes one applied migration in a status report
type StatusRecord struct {
	Name      string    `json:"name"`
	Batch     int       `json:"batch"`
	AppliedAt time.Time `json:"applied_at"`
}

// Status reports applied and pending migrations without mutating anything
type Status struct {
	Applied []StatusRecord `json:"applied"`
	Pending []string       `json:"pending"`
}

// Status returns the current ledger state against the discovered source
func (m *Migrator) Status(ctx context.Context) (*Status, error) {
	release, err := m.acquireLock(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	definitions, applied, err := m.prepare(ctx)
	if err != nil {
		return nil, err
	}

	status := &Status{
		Applied: make([]StatusRecord, 0, len(applied)),
		Pending: []string{},
	}

	appliedNames := make(map[string]bool, len(applied))
	for _, record := range applied {
		appliedNames[record.Name] = true
		status.Applied = append(status.Applied, StatusRecord{
			Name:      record.Name,
			Batch:     record.Batch,
			AppliedAt: record.AppliedAt,
		})
	}

	for _, def := range PlanUp(definitions, appliedNames) {
		status.Pending = append(status.Pending, def.Name)
	}

	return status, nil
}

// prepare runs the read-only half of every operation: provision the ledger,
// discover the source, read applied state. Any error here happens before a
// single mutation.
func (m *Migrator) prepare(ctx context.Context) ([]Definition, []models.MigrationRecord, error) {
	if err := m.ledger.EnsureStorage(ctx); err != nil {
		return nil, nil, err
	}

	definitions, err := m.source.Discover()
	if err != nil {
		return nil, nil, err
	}

	applied, err := m.ledger.AppliedRecords(ctx)
	if err != nil {
		return nil, nil, err
	}

	return definitions, applied, nil
}

// acquireLock takes the run lock and returns its release func. Release
// errors are logged, not returned: by then the run's outcome is decided.
func (m *Migrator) acquireLock(ctx context.Context) (func(), error) {
	if err := m.lock.Acquire(ctx); err != nil {
		return nil, err
	}
	return func() {
		if err := m.lock.Release(ctx); err != nil {
			m.logger.Error().Err(err).Msg("Failed to release migration lock")
		}
	}, nil
}

// NormalizeTarget strips a decorative file extension from a rollback target
// so operators can paste names straight from a directory listing.
func NormalizeTarget(target string) string {
	for _, suffix := range []string{".sql", ".go"} {
		if strings.HasSuffix(target, suffix) {
			return strings.TrimSuffix(target, suffix)
		}
	}
	return target
}

// reverse returns records in reverse application order, most recent first
func reverse(records []models.MigrationRecord) []models.MigrationRecord {
	reversed := make([]models.MigrationRecord, len(records))
	for i, record := range records {
		reversed[len(records)-1-i] = record
	}
	return reversed
}
