package migrate

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ksred/schemactl/internal/utils"
)

func noopOperation(ctx context.Context, tx *gorm.DB, logger zerolog.Logger) error {
	return nil
}

func TestSourceDiscover(t *testing.T) {
	t.Run("Returns definitions ascending by sequence key", func(t *testing.T) {
		source := NewSource()
		// Registered out of order on purpose
		source.Register("20240301120000_third", noopOperation, noopOperation)
		source.Register("20240101120000_first", noopOperation, noopOperation)
		source.Register("20240201120000_second", noopOperation, noopOperation)

		defs, err := source.Discover()
		require.NoError(t, err)
		require.Len(t, defs, 3)

		assert.Equal(t, "20240101120000_first", defs[0].Name)
		assert.Equal(t, "20240201120000_second", defs[1].Name)
		assert.Equal(t, "20240301120000_third", defs[2].Name)
		assert.Less(t, defs[0].SequenceKey, defs[1].SequenceKey)
		assert.Less(t, defs[1].SequenceKey, defs[2].SequenceKey)
	})

	t.Run("Empty source yields empty list", func(t *testing.T) {
		defs, err := NewSource().Discover()
		require.NoError(t, err)
		assert.Empty(t, defs)
	})

	t.Run("Duplicate name rejected", func(t *testing.T) {
		source := NewSource()
		source.Register("20240101120000_dupe", noopOperation, noopOperation)
		source.Register("20240101120000_dupe", noopOperation, noopOperation)

		_, err := source.Discover()
		require.Error(t, err)
		assert.True(t, utils.IsDiscoveryError(err))
		assert.Contains(t, err.Error(), "duplicate")
	})

	t.Run("Sequence key collision rejected", func(t *testing.T) {
		source := NewSource()
		source.Register("20240101120000_one", noopOperation, noopOperation)
		source.Register("20240101120000_other", noopOperation, noopOperation)

		_, err := source.Discover()
		require.Error(t, err)
		assert.True(t, utils.IsDiscoveryError(err))
		assert.Contains(t, err.Error(), "collides")
	})

	t.Run("Unparseable sequence prefix rejected", func(t *testing.T) {
		source := NewSource()
		source.Register("not_a_timestamp_create_users", noopOperation, noopOperation)

		_, err := source.Discover()
		require.Error(t, err)
		assert.True(t, utils.IsDiscoveryError(err))
	})

	t.Run("Missing forward operation rejected", func(t *testing.T) {
		source := NewSource()
		source.Register("20240101120000_no_forward", nil, noopOperation)

		_, err := source.Discover()
		require.Error(t, err)
		assert.True(t, utils.IsDiscoveryError(err))
		assert.Contains(t, err.Error(), "forward")
	})

	t.Run("Missing backward operation rejected", func(t *testing.T) {
		source := NewSource()
		source.Register("20240101120000_no_backward", noopOperation, nil)

		_, err := source.Discover()
		require.Error(t, err)
		assert.True(t, utils.IsDiscoveryError(err))
		assert.Contains(t, err.Error(), "backward")
	})

	t.Run("Discovery is repeatable", func(t *testing.T) {
		source := NewSource()
		source.Register("20240101120000_only", noopOperation, noopOperation)

		first, err := source.Discover()
		require.NoError(t, err)
		second, err := source.Discover()
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})
}

func TestParseSequenceKey(t *testing.T) {
	t.Run("Valid name", func(t *testing.T) {
		key, err := ParseSequenceKey("20240115093000_create_users_table")
		require.NoError(t, err)
		assert.Equal(t, int64(20240115093000), key)
	})

	t.Run("Missing underscore separator", func(t *testing.T) {
		_, err := ParseSequenceKey("20240115093000create")
		assert.Error(t, err)
	})

	t.Run("Too short", func(t *testing.T) {
		_, err := ParseSequenceKey("2024_x")
		assert.Error(t, err)
	})

	t.Run("Digits that are not a timestamp", func(t *testing.T) {
		// Month 13 is not a valid date even though it is fourteen digits
		_, err := ParseSequenceKey("20241315093000_bad_month")
		assert.Error(t, err)
	})
}
