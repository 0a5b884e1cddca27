package postgres

import (
	"context"
	_ "embed"
)

//go:embed schema.sql
var schema string

// Schema returns the DDL applied by Migrate.
func Schema() string {
	return schema
}

// Migrate creates the tables and indexes if they do not exist yet.
func Migrate(ctx context.Context, db DBTX) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return handlePostgresError("migrate", err)
	}
	return nil
}
