package migrate

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ksred/schemactl/internal/utils"
)

// recordingOp returns an operation that appends its tag to calls
func recordingOp(calls *[]string, tag string) OperationFunc {
	return func(ctx context.Context, tx *gorm.DB, logger zerolog.Logger) error {
		*calls = append(*calls, tag)
		return nil
	}
}

// failingOp returns an operation that always fails with cause
func failingOp(cause error) OperationFunc {
	return func(ctx context.Context, tx *gorm.DB, logger zerolog.Logger) error {
		return cause
	}
}

func setupExecutor(t *testing.T) (*Executor, *Ledger, *gorm.DB) {
	db := setupTestDB(t)
	ledger := NewLedger(db)
	require.NoError(t, ledger.EnsureStorage(context.Background()))
	return NewExecutor(db, ledger, zerolog.New(nil).Level(zerolog.Disabled)), ledger, db
}

func TestExecutorApplyForward(t *testing.T) {
	ctx := context.Background()

	t.Run("Applies every step and records each in the ledger", func(t *testing.T) {
		executor, ledger, _ := setupExecutor(t)

		var calls []string
		plan := []Definition{
			{Name: "20240101120000_a", Forward: recordingOp(&calls, "a"), Backward: noopOperation},
			{Name: "20240201120000_b", Forward: recordingOp(&calls, "b"), Backward: noopOperation},
		}

		result, err := executor.Apply(ctx, plan, DirectionForward, 1)
		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.Equal(t, []string{"20240101120000_a", "20240201120000_b"}, result.Completed)
		assert.Empty(t, result.FailedAt)
		assert.Equal(t, []string{"a", "b"}, calls)

		records, err := ledger.AppliedRecords(ctx)
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, 1, records[0].Batch)
		assert.Equal(t, 1, records[1].Batch)
	})

	t.Run("Empty plan succeeds with empty completed list", func(t *testing.T) {
		executor, _, _ := setupExecutor(t)

		result, err := executor.Apply(ctx, nil, DirectionForward, 1)
		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.Empty(t, result.Completed)
	})

	t.Run("Mid-plan failure aborts remaining steps", func(t *testing.T) {
		executor, ledger, _ := setupExecutor(t)

		var calls []string
		boom := errors.New("column already exists")
		plan := []Definition{
			{Name: "20240101120000_d", Forward: recordingOp(&calls, "d"), Backward: noopOperation},
			{Name: "20240201120000_e", Forward: failingOp(boom), Backward: noopOperation},
			{Name: "20240301120000_f", Forward: recordingOp(&calls, "f"), Backward: noopOperation},
		}

		result, err := executor.Apply(ctx, plan, DirectionForward, 1)
		require.Error(t, err)
		assert.True(t, utils.IsOperationError(err))
		assert.ErrorIs(t, err, boom)

		assert.False(t, result.Success)
		assert.Equal(t, []string{"20240101120000_d"}, result.Completed)
		assert.Equal(t, "20240201120000_e", result.FailedAt)
		assert.NotEmpty(t, result.Cause)

		// f never ran
		assert.Equal(t, []string{"d"}, calls)

		// Ledger shows exactly d applied
		records, err := ledger.AppliedRecords(ctx)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "20240101120000_d", records[0].Name)
	})

	t.Run("Failed operation rolls back its transaction", func(t *testing.T) {
		executor, _, db := setupExecutor(t)

		plan := []Definition{
			{
				Name: "20240101120000_partial",
				Forward: func(ctx context.Context, tx *gorm.DB, logger zerolog.Logger) error {
					if err := tx.Exec(`CREATE TABLE partial_artifact (id INTEGER PRIMARY KEY)`).Error; err != nil {
						return err
					}
					return errors.New("fails after creating table")
				},
				Backward: noopOperation,
			},
		}

		_, err := executor.Apply(ctx, plan, DirectionForward, 1)
		require.Error(t, err)

		assert.False(t, db.Migrator().HasTable("partial_artifact"))
	})
}

func TestExecutorApplyBackward(t *testing.T) {
	ctx := context.Background()

	t.Run("Removes ledger records as steps commit", func(t *testing.T) {
		executor, ledger, _ := setupExecutor(t)
		require.NoError(t, ledger.RecordApplied(ctx, "20240101120000_a", 1))
		require.NoError(t, ledger.RecordApplied(ctx, "20240201120000_b", 1))

		var calls []string
		plan := []Definition{
			{Name: "20240201120000_b", Forward: noopOperation, Backward: recordingOp(&calls, "down-b")},
			{Name: "20240101120000_a", Forward: noopOperation, Backward: recordingOp(&calls, "down-a")},
		}

		result, err := executor.Apply(ctx, plan, DirectionBackward, 0)
		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.Equal(t, []string{"20240201120000_b", "20240101120000_a"}, result.Completed)
		assert.Equal(t, []string{"down-b", "down-a"}, calls)

		records, err := ledger.AppliedRecords(ctx)
		require.NoError(t, err)
		assert.Empty(t, records)
	})
}

func TestExecutorLedgerDesync(t *testing.T) {
	ctx := context.Background()
	executor, _, db := setupExecutor(t)

	// Sabotage the ledger after provisioning so the post-commit update fails
	require.NoError(t, db.Exec(`DROP TABLE schema_migrations`).Error)

	var calls []string
	plan := []Definition{
		{Name: "20240101120000_a", Forward: recordingOp(&calls, "a"), Backward: noopOperation},
		{Name: "20240201120000_b", Forward: recordingOp(&calls, "b"), Backward: noopOperation},
	}

	result, err := executor.Apply(ctx, plan, DirectionForward, 1)
	require.Error(t, err)
	assert.True(t, utils.IsLedgerDesyncError(err))

	// Fatal: the run halts immediately, no further steps attempted
	assert.False(t, result.Success)
	assert.Equal(t, "20240101120000_a", result.FailedAt)
	assert.Empty(t, result.Completed)
	assert.Equal(t, []string{"a"}, calls)
}
