package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/CJHwong/gems.sh/internal/db"
	"github.com/CJHwong/gems.sh/internal/domain"
	"github.com/CJHwong/gems.sh/internal/repository"
)

// DefaultHistoryKeep is how many runs are retained.
const DefaultHistoryKeep = 500

type historyService struct {
	db       *sql.DB
	keep     int
	observer UseCaseObserver
}

func NewHistoryService(database *sql.DB, keep int, observers ...UseCaseObserver) HistoryService {
	if keep <= 0 {
		keep = DefaultHistoryKeep
	}
	return &historyService{
		db:       database,
		keep:     keep,
		observer: useCaseObserverOrNoop(observers),
	}
}

// Record stores run and trims history to the retention limit in one
// transaction.
func (s *historyService) Record(ctx context.Context, run *domain.Run) (err error) {
	start := time.Now()
	var pruned int64
	defer func() {
		observe(ctx, s.observer, "history.record", start, err, map[string]any{
			"run_id": run.ID,
			"pruned": pruned,
		})
	}()

	return db.WithinTx(ctx, s.db, func(ctx context.Context, tx db.DBTX) error {
		repo := repository.NewSQLiteRunRepo(tx)
		if err := repo.Create(ctx, run); err != nil {
			return fmt.Errorf("recording run: %w", err)
		}
		n, err := repo.Prune(ctx, s.keep)
		if err != nil {
			return err
		}
		pruned = n
		return nil
	})
}

func (s *historyService) Recent(ctx context.Context, limit int) ([]*domain.Run, error) {
	return repository.NewSQLiteRunRepo(s.db).ListRecent(ctx, limit)
}

func (s *historyService) Show(ctx context.Context, id string) (*domain.Run, error) {
	repo := repository.NewSQLiteRunRepo(s.db)
	run, err := repo.GetByID(ctx, id)
	if err == nil {
		return run, nil
	}
	return repo.GetByPrefix(ctx, id)
}
