package repository

import (
	"context"
	"testing"
	"time"

	"github.com/CJHwong/gems.sh/internal/domain"
	"github.com/CJHwong/gems.sh/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunRepo_CreateAndGetByID(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSQLiteRunRepo(db)
	ctx := context.Background()

	run := testutil.NewTestRun("Summarize",
		testutil.WithStatus(domain.RunFailed),
		testutil.WithResponse("raw", "shown"))
	run.Error = "server error (HTTP 500)"
	require.NoError(t, repo.Create(ctx, run))

	got, err := repo.GetByID(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, "Summarize", got.Template)
	assert.Equal(t, "llama3.2", got.Model)
	assert.Equal(t, run.Input, got.Input)
	assert.Equal(t, run.Prompt, got.Prompt)
	assert.Equal(t, "raw", got.Response)
	assert.Equal(t, "shown", got.DisplayText)
	assert.Equal(t, domain.RunFailed, got.Status)
	assert.Equal(t, "server error (HTTP 500)", got.Error)
	assert.Equal(t, 1500*time.Millisecond, got.Duration)
	assert.WithinDuration(t, run.CreatedAt, got.CreatedAt, time.Microsecond)
}

func TestRunRepo_GetByID_NotFound(t *testing.T) {
	repo := NewSQLiteRunRepo(testutil.NewTestDB(t))
	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRunRepo_Create_DuplicateID(t *testing.T) {
	repo := NewSQLiteRunRepo(testutil.NewTestDB(t))
	ctx := context.Background()

	run := testutil.NewTestRun("A")
	require.NoError(t, repo.Create(ctx, run))
	assert.Error(t, repo.Create(ctx, run))
}

func TestRunRepo_ListRecent_NewestFirst(t *testing.T) {
	repo := NewSQLiteRunRepo(testutil.NewTestDB(t))
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, name := range []string{"first", "second", "third"} {
		run := testutil.NewTestRun(name, testutil.WithCreatedAt(base.Add(time.Duration(i)*time.Minute)))
		require.NoError(t, repo.Create(ctx, run))
	}

	runs, err := repo.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "third", runs[0].Template)
	assert.Equal(t, "second", runs[1].Template)

	none, err := repo.ListRecent(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRunRepo_ListRecent_SubSecondOrder(t *testing.T) {
	repo := NewSQLiteRunRepo(testutil.NewTestDB(t))
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Create(ctx, testutil.NewTestRun("whole", testutil.WithCreatedAt(base))))
	require.NoError(t, repo.Create(ctx, testutil.NewTestRun("later", testutil.WithCreatedAt(base.Add(300*time.Millisecond)))))

	runs, err := repo.ListRecent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "later", runs[0].Template)
}

func TestRunRepo_GetByPrefix(t *testing.T) {
	repo := NewSQLiteRunRepo(testutil.NewTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, testutil.NewTestRun("a", testutil.WithID("abc11111-0000"))))
	require.NoError(t, repo.Create(ctx, testutil.NewTestRun("b", testutil.WithID("abc22222-0000"))))

	got, err := repo.GetByPrefix(ctx, "abc1")
	require.NoError(t, err)
	assert.Equal(t, "a", got.Template)

	_, err = repo.GetByPrefix(ctx, "abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ambiguous")

	_, err = repo.GetByPrefix(ctx, "zzz")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.GetByPrefix(ctx, "%")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRunRepo_Prune(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSQLiteRunRepo(db)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		run := testutil.NewTestRun("t", testutil.WithCreatedAt(base.Add(time.Duration(i)*time.Second)))
		require.NoError(t, repo.Create(ctx, run))
	}

	deleted, err := repo.Prune(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	runs, err := repo.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.True(t, runs[2].CreatedAt.Equal(base.Add(2*time.Second)))
}
