package orm

import (
	"context"
	"fmt"
)

// Migrate executes the DDL statements registered for the dialect of db, in
// order. ddl is keyed by Dialect.Name ("mysql", "postgresql"). Generated
// code passes the statements rendered from the schema, parents first, so
// foreign keys always reference an existing table.
func Migrate(ctx context.Context, db Querier, ddl map[string][]string) error {
	name := db.dialect().Name()
	stmts, ok := ddl[name]
	if !ok {
		return fmt.Errorf("orm: no DDL for dialect %q", name)
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("orm: migrate: %w", err)
		}
	}
	return nil
}
