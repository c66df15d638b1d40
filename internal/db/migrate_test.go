package db

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := OpenDB(Memory)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func insertRun(ctx context.Context, q DBTX, id, status string) error {
	_, err := q.ExecContext(ctx, `INSERT INTO runs (id, template, model, status, created_at)
		VALUES (?, 'Passthrough', 'llama3.2', ?, '2026-01-01T00:00:00Z')`, id, status)
	return err
}

func countRuns(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM runs`).Scan(&n))
	return n
}

func TestMigrate_Idempotent(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, Migrate(db))
	require.NoError(t, Migrate(db))
}

func TestMigrate_CreatesRunsTableAndIndexes(t *testing.T) {
	db := openTestDB(t)

	for _, obj := range []struct{ kind, name string }{
		{"table", "runs"},
		{"index", "idx_runs_created"},
		{"index", "idx_runs_template"},
	} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type=? AND name=?`, obj.kind, obj.name).Scan(&name)
		require.NoError(t, err, "%s %s should exist", obj.kind, obj.name)
	}
}

func TestMigrate_StatusCheckConstraint(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, insertRun(ctx, db, "a", "done"))
	assert.Error(t, insertRun(ctx, db, "b", "pending"))
}

func TestOpenDB_FileDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.db")
	db, err := OpenDB(path)
	require.NoError(t, err)
	defer db.Close()

	var mode string
	require.NoError(t, db.QueryRow(`PRAGMA journal_mode`).Scan(&mode))
	assert.Equal(t, "wal", mode)

	var fk int
	require.NoError(t, db.QueryRow(`PRAGMA foreign_keys`).Scan(&fk))
	assert.Equal(t, 1, fk)
}

func TestWithinTx_CommitOnSuccess(t *testing.T) {
	db := openTestDB(t)

	err := WithinTx(context.Background(), db, func(ctx context.Context, tx DBTX) error {
		return insertRun(ctx, tx, "k1", "done")
	})
	require.NoError(t, err)
	assert.Equal(t, 1, countRuns(t, db))
}

func TestWithinTx_RollbackOnError(t *testing.T) {
	db := openTestDB(t)

	err := WithinTx(context.Background(), db, func(ctx context.Context, tx DBTX) error {
		if err := insertRun(ctx, tx, "k2", "done"); err != nil {
			return err
		}
		return fmt.Errorf("deliberate failure")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deliberate failure")
	assert.Equal(t, 0, countRuns(t, db))
}

func TestWithinTx_RollbackOnPanic(t *testing.T) {
	db := openTestDB(t)

	assert.Panics(t, func() {
		_ = WithinTx(context.Background(), db, func(ctx context.Context, tx DBTX) error {
			_ = insertRun(ctx, tx, "k3", "done")
			panic("boom")
		})
	})
	assert.Equal(t, 0, countRuns(t, db))
}
