package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/CJHwong/gems.sh/internal/db"
	"github.com/CJHwong/gems.sh/internal/domain"
)

// SQLiteRunRepo implements RunRepo using a SQLite database.
type SQLiteRunRepo struct {
	db db.DBTX
}

// NewSQLiteRunRepo creates a new SQLiteRunRepo.
func NewSQLiteRunRepo(conn db.DBTX) *SQLiteRunRepo {
	return &SQLiteRunRepo{db: conn}
}

const runColumns = `id, template, model, input, prompt, response, display_text,
	status, error, duration_ms, created_at`

func (r *SQLiteRunRepo) Create(ctx context.Context, run *domain.Run) error {
	query := `INSERT INTO runs (` + runColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		run.ID,
		run.Template,
		run.Model,
		run.Input,
		run.Prompt,
		run.Response,
		run.DisplayText,
		string(run.Status),
		run.Error,
		run.Duration.Milliseconds(),
		formatTime(run.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}
	return nil
}

func (r *SQLiteRunRepo) GetByID(ctx context.Context, id string) (*domain.Run, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("scanning run: %w", err)
	}
	return run, nil
}

func (r *SQLiteRunRepo) GetByPrefix(ctx context.Context, prefix string) (*domain.Run, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil, fmt.Errorf("run: empty id: %w", ErrNotFound)
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE id LIKE ? ESCAPE '\' LIMIT 2`,
		escapeLike(prefix)+"%")
	if err != nil {
		return nil, fmt.Errorf("querying run by prefix: %w", err)
	}
	runs, err := scanRuns(rows)
	if err != nil {
		return nil, err
	}
	switch len(runs) {
	case 0:
		return nil, fmt.Errorf("run %s: %w", prefix, ErrNotFound)
	case 1:
		return runs[0], nil
	default:
		return nil, fmt.Errorf("run id %q is ambiguous", prefix)
	}
}

func (r *SQLiteRunRepo) ListRecent(ctx context.Context, limit int) ([]*domain.Run, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	return scanRuns(rows)
}

func (r *SQLiteRunRepo) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM runs WHERE id NOT IN (
		SELECT id FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?
	)`, keep)
	if err != nil {
		return 0, fmt.Errorf("pruning runs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("pruning runs: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*domain.Run, error) {
	var (
		run        domain.Run
		status     string
		durationMs int64
		createdAt  string
	)
	err := s.Scan(
		&run.ID,
		&run.Template,
		&run.Model,
		&run.Input,
		&run.Prompt,
		&run.Response,
		&run.DisplayText,
		&status,
		&run.Error,
		&durationMs,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}
	run.Status = domain.RunStatus(status)
	run.Duration = time.Duration(durationMs) * time.Millisecond
	run.CreatedAt = parseTime(createdAt)
	return &run, nil
}

func scanRuns(rows *sql.Rows) ([]*domain.Run, error) {
	defer rows.Close()
	var runs []*domain.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}
	return runs, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
