// Package migrate implements the schema migration engine: it discovers
// versioned migration definitions, tracks which are applied in a persistent
// ledger, plans forward and backward runs, and executes them one transaction
// at a time.
package migrate

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/ksred/schemactl/internal/utils"
)

// OperationFunc is a forward or backward schema operation, executed inside
// the transaction the executor provides.
type OperationFunc func(ctx context.Context, tx *gorm.DB, logger zerolog.Logger) error

// Definition is an immutable migration definition produced at discovery time.
type Definition struct {
	// Name uniquely identifies the migration: a 14-digit timestamp prefix
	// followed by an underscore and a slug, e.g. 20240115093000_create_users.
	Name string

	// SequenceKey is the ordering key parsed from the timestamp prefix.
	// It establishes the total order independent of the name's string form.
	SequenceKey int64

	Forward  OperationFunc
	Backward OperationFunc
}

// Source holds registered migration definitions in registration order
type Source struct {
	definitions []Definition
}

// NewSource creates an empty migration source
func NewSource() *Source {
	return &Source{}
}

// Register adds a migration definition to the source. Validation happens in
// Discover, not here, so a malformed registration is reported with context
// rather than panicking at package init.
func (s *Source) Register(name string, forward, backward OperationFunc) {
	s.definitions = append(s.definitions, Definition{
		Name:     name,
		Forward:  forward,
		Backward: backward,
	})
}

// Discover validates all registered definitions and returns them ascending
// by sequence key. It has no side effects and is safe to call repeatedly.
func (s *Source) Discover() ([]Definition, error) {
	seen := make(map[string]bool, len(s.definitions))
	seenKeys := make(map[int64]string, len(s.definitions))

	discovered := make([]Definition, 0, len(s.definitions))
	for _, def := range s.definitions {
		if seen[def.Name] {
			return nil, utils.WrapDiscoveryError(def.Name, "duplicate migration name")
		}
		seen[def.Name] = true

		key, err := ParseSequenceKey(def.Name)
		if err != nil {
			return nil, utils.WrapDiscoveryError(def.Name, err.Error())
		}
		if other, ok := seenKeys[key]; ok {
			return nil, utils.WrapDiscoveryError(def.Name,
				fmt.Sprintf("sequence key collides with '%s'", other))
		}
		seenKeys[key] = def.Name

		if def.Forward == nil {
			return nil, utils.WrapDiscoveryError(def.Name, "missing forward operation")
		}
		if def.Backward == nil {
			return nil, utils.WrapDiscoveryError(def.Name, "missing backward operation")
		}

		def.SequenceKey = key
		discovered = append(discovered, def)
	}

	sort.Slice(discovered, func(i, j int) bool {
		return discovered[i].SequenceKey < discovered[j].SequenceKey
	})

	return discovered, nil
}

// sequenceKeyLayout is the timestamp format embedded in migration names
const sequenceKeyLayout = "20060102150405"

// ParseSequenceKey extracts and validates the ordering key from a migration
// name. The prefix must be a real timestamp, not just fourteen digits, so
// that padding mistakes cannot silently reorder migrations.
func ParseSequenceKey(name string) (int64, error) {
	if len(name) < len(sequenceKeyLayout)+2 || name[len(sequenceKeyLayout)] != '_' {
		return 0, fmt.Errorf("name must have the form <timestamp>_<slug>")
	}

	prefix := name[:len(sequenceKeyLayout)]
	if _, err := time.Parse(sequenceKeyLayout, prefix); err != nil {
		return 0, fmt.Errorf("invalid timestamp prefix '%s'", prefix)
	}

	key, err := strconv.ParseInt(prefix, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp prefix '%s'", prefix)
	}

	return key, nil
}
