package migrations

import (
	"github.com/ksred/schemactl/internal/migrate"
)

// NewSource returns the project's migration source with all bundled
// migrations registered. Ordering follows the timestamp prefix of each
// name, not registration order.
func NewSource() *migrate.Source {
	source := migrate.NewSource()

	source.Register("20240115093000_create_users_table", CreateUsersTable, DropUsersTable)
	source.Register("20240115093500_create_sessions_table", CreateSessionsTable, DropSessionsTable)
	source.Register("20240210141200_add_users_created_at_index", AddUsersCreatedAtIndex, DropUsersCreatedAtIndex)

	return source
}
