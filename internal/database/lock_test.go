package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksred/schemactl/internal/utils"
)

func TestLocalLock(t *testing.T) {
	ctx := context.Background()

	t.Run("Second acquire fails while held", func(t *testing.T) {
		lock := NewLocalLock()

		require.NoError(t, lock.Acquire(ctx))

		err := lock.Acquire(ctx)
		require.Error(t, err)
		assert.True(t, utils.IsLockError(err))
	})

	t.Run("Reacquirable after release", func(t *testing.T) {
		lock := NewLocalLock()

		require.NoError(t, lock.Acquire(ctx))
		require.NoError(t, lock.Release(ctx))
		require.NoError(t, lock.Acquire(ctx))
	})

	t.Run("Release without hold is harmless", func(t *testing.T) {
		lock := NewLocalLock()
		require.NoError(t, lock.Release(ctx))
	})
}
