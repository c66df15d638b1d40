package db

import (
	"database/sql"
	"fmt"
)

// Migrate applies the schema. Every statement is idempotent so it runs on
// each open.
func Migrate(db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id           TEXT PRIMARY KEY,
		template     TEXT NOT NULL,
		model        TEXT NOT NULL,
		input        TEXT NOT NULL DEFAULT '',
		prompt       TEXT NOT NULL DEFAULT '',
		response     TEXT NOT NULL DEFAULT '',
		display_text TEXT NOT NULL DEFAULT '',
		status       TEXT NOT NULL
		             CHECK(status IN ('done','failed','interrupted')),
		error        TEXT NOT NULL DEFAULT '',
		duration_ms  INTEGER NOT NULL DEFAULT 0 CHECK(duration_ms >= 0),
		created_at   TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_runs_template ON runs(template)`,
}
