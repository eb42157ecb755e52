package migrate

import (
	"context"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/ksred/schemactl/internal/utils"
)

// Direction of a run
type Direction string

const (
	DirectionForward  Direction = "forward"
	DirectionBackward Direction = "backward"
)

// Result is the machine-readable outcome of a run. Completed always mirrors
// what the ledger durably shows: a step whose ledger update did not commit
// is never reported as completed.
type Result struct {
	Success   bool     `json:"success"`
	Completed []string `json:"completed"`
	FailedAt  string   `json:"failed_at,omitempty"`
	Cause     string   `json:"cause,omitempty"`
}

// Executor applies a plan sequentially, one transaction per step, updating
// the ledger as each step commits.
type Executor struct {
	db     *gorm.DB
	ledger *Ledger
	logger zerolog.Logger
}

// NewExecutor creates an executor over the given backend and ledger
func NewExecutor(db *gorm.DB, ledger *Ledger, logger zerolog.Logger) *Executor {
	return &Executor{
		db:     db,
		ledger: ledger,
		logger: logger,
	}
}

// Apply runs the plan in order. Each step executes its operation inside its
// own transaction; on commit the ledger is updated before the next step
// starts. The first failure aborts the remaining plan. batch tags forward
// ledger records and is ignored for backward runs.
//
// The returned Result is never nil; the error carries the typed cause when
// Success is false.
func (e *Executor) Apply(ctx context.Context, plan []Definition, direction Direction, batch int) (*Result, error) {
	result := &Result{
		Success:   true,
		Completed: make([]string, 0, len(plan)),
	}

	for _, def := range plan {
		op := def.Forward
		if direction == DirectionBackward {
			op = def.Backward
		}

		e.logger.Info().
			Str("migration", def.Name).
			Str("direction", string(direction)).
			Msg("Running migration")

		txErr := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return op(ctx, tx, e.logger)
		})
		if txErr != nil {
			opErr := utils.WrapOperationError(def.Name, string(direction), txErr)
			e.logger.Error().
				Err(txErr).
				Str("migration", def.Name).
				Str("direction", string(direction)).
				Msg("Migration failed, aborting run")

			result.Success = false
			result.FailedAt = def.Name
			result.Cause = opErr.Error()
			return result, opErr
		}

		// The schema change is committed; the ledger update completes the
		// step. A failure here means the backend and ledger disagree, which
		// nothing downstream can repair.
		var ledgerErr error
		if direction == DirectionForward {
			ledgerErr = e.ledger.RecordApplied(ctx, def.Name, batch)
		} else {
			ledgerErr = e.ledger.RemoveRecord(ctx, def.Name)
		}
		if ledgerErr != nil {
			desyncErr := utils.WrapLedgerDesyncError(def.Name, ledgerErr)
			e.logger.Error().
				Err(ledgerErr).
				Str("migration", def.Name).
				Msg("Ledger update failed after committed schema change")

			result.Success = false
			result.FailedAt = def.Name
			result.Cause = desyncErr.Error()
			return result, desyncErr
		}

		result.Completed = append(result.Completed, def.Name)

		e.logger.Info().
			Str("migration", def.Name).
			Str("direction", string(direction)).
			Msg("Migration completed successfully")
	}

	return result, nil
}
