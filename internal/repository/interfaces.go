package repository

import (
	"context"
	"errors"

	"github.com/CJHwong/gems.sh/internal/domain"
)

var ErrNotFound = errors.New("not found")

// RunRepo stores the history of invocations.
type RunRepo interface {
	Create(ctx context.Context, r *domain.Run) error
	GetByID(ctx context.Context, id string) (*domain.Run, error)
	// GetByPrefix resolves a short display ID. An ambiguous prefix is an error.
	GetByPrefix(ctx context.Context, prefix string) (*domain.Run, error)
	ListRecent(ctx context.Context, limit int) ([]*domain.Run, error)
	// Prune keeps the newest keep runs and deletes the rest.
	Prune(ctx context.Context, keep int) (int64, error)
}
