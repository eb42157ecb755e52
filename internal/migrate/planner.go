package migrate

import (
	"fmt"

	"github.com/ksred/schemactl/internal/models"
	"github.com/ksred/schemactl/internal/utils"
)

// The planner is pure: it computes what to run from the discovered
// definitions and the ledger state, and never touches either.

// PlanUp returns the definitions not yet applied, ascending by sequence key.
// An up run is always a full catch-up, never partial.
func PlanUp(definitions []Definition, appliedNames map[string]bool) []Definition {
	pending := make([]Definition, 0, len(definitions))
	for _, def := range definitions {
		if !appliedNames[def.Name] {
			pending = append(pending, def)
		}
	}
	return pending
}

// PlanDownByCount returns the definitions for the n most recently applied
// migrations, newest first. appliedDesc must be in reverse application order.
// A count exceeding the applied history is rejected rather than clamped:
// rollback requests must be exact to avoid surprising schema loss.
func PlanDownByCount(appliedDesc []models.MigrationRecord, definitionsByName map[string]Definition, n int) ([]Definition, error) {
	if n < 0 {
		return nil, fmt.Errorf("rollback count must be non-negative, got %d", n)
	}
	if n > len(appliedDesc) {
		return nil, &utils.InsufficientHistoryError{
			Requested: n,
			Applied:   len(appliedDesc),
		}
	}

	return resolveDefinitions(appliedDesc[:n], definitionsByName)
}

// PlanDownToTarget returns the definitions for every migration applied more
// recently than target, newest first. The target itself stays applied
// (exclusive boundary).
func PlanDownToTarget(appliedDesc []models.MigrationRecord, definitionsByName map[string]Definition, targetName string) ([]Definition, error) {
	targetIdx := -1
	for i, record := range appliedDesc {
		if record.Name == targetName {
			targetIdx = i
			break
		}
	}
	if targetIdx == -1 {
		return nil, utils.WrapNotFoundError("applied migration", targetName)
	}

	return resolveDefinitions(appliedDesc[:targetIdx], definitionsByName)
}

// resolveDefinitions maps ledger records back to their definitions. A record
// with no matching definition means the source and ledger have drifted; the
// backward operation for it is unknowable, so planning fails.
func resolveDefinitions(records []models.MigrationRecord, definitionsByName map[string]Definition) ([]Definition, error) {
	plan := make([]Definition, 0, len(records))
	for _, record := range records {
		def, ok := definitionsByName[record.Name]
		if !ok {
			return nil, utils.WrapDiscoveryError(record.Name, "applied migration has no known definition")
		}
		plan = append(plan, def)
	}
	return plan, nil
}

// DefinitionsByName indexes discovered definitions for the down planners
func DefinitionsByName(definitions []Definition) map[string]Definition {
	byName := make(map[string]Definition, len(definitions))
	for _, def := range definitions {
		byName[def.Name] = def
	}
	return byName
}
