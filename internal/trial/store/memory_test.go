package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trialsearch/internal/trial/models"
)

func TestMemoryUnitOfWorkVisibility(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()

	uow, err := mem.Begin(ctx)
	require.NoError(t, err)

	trial := &models.Trial{NCTID: "NCT00000001", BriefTitle: "Staged"}
	require.NoError(t, uow.InsertTrial(ctx, trial))
	assert.NotZero(t, trial.ID, "insert assigns an identifier")
	assert.False(t, trial.CreatedAt.IsZero())

	_, err = mem.FindTrial(ctx, "NCT00000001")
	assert.ErrorIs(t, err, ErrNotFound, "staged writes are invisible before commit")

	found, err := uow.FindTrial(ctx, "NCT00000001")
	require.NoError(t, err)
	assert.Equal(t, "Staged", found.BriefTitle, "the unit of work sees its own writes")

	require.NoError(t, uow.Commit())

	found, err = mem.FindTrial(ctx, "NCT00000001")
	require.NoError(t, err)
	assert.Equal(t, "Staged", found.BriefTitle)
}

func TestMemoryRollbackDiscardsWrites(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()

	uow, err := mem.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, uow.InsertTrial(ctx, &models.Trial{NCTID: "NCT00000001"}))
	require.NoError(t, uow.InsertConditions(ctx, []models.Condition{{Term: "Diabetes"}}))
	require.NoError(t, uow.Rollback())

	assert.Equal(t, 0, mem.TrialCount())
	_, err = mem.FindTrial(ctx, "NCT00000001")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryDeleteThenInsertReplaces(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()

	uow, err := mem.Begin(ctx)
	require.NoError(t, err)
	first := &models.Trial{NCTID: "NCT00000001", BriefTitle: "Old"}
	require.NoError(t, uow.InsertTrial(ctx, first))
	require.NoError(t, uow.InsertConditions(ctx, []models.Condition{{TrialID: first.ID, Term: "Old Condition"}}))
	require.NoError(t, uow.Commit())

	uow, err = mem.Begin(ctx)
	require.NoError(t, err)
	existing, err := uow.FindTrial(ctx, "NCT00000001")
	require.NoError(t, err)
	require.NoError(t, uow.DeleteChildren(ctx, existing.ID))
	require.NoError(t, uow.DeleteTrial(ctx, existing.NCTID))

	_, err = uow.FindTrial(ctx, "NCT00000001")
	assert.ErrorIs(t, err, ErrNotFound, "the unit of work sees its own delete")

	replacement := &models.Trial{NCTID: "NCT00000001", BriefTitle: "New"}
	require.NoError(t, uow.InsertTrial(ctx, replacement))
	require.NoError(t, uow.Commit())

	snap := mem.Snapshot("NCT00000001")
	require.NotNil(t, snap)
	assert.Equal(t, "New", snap.Trial.BriefTitle)
	assert.Empty(t, snap.Conditions, "replacement carries no residue")
	assert.Equal(t, 1, mem.TrialCount())
}

func TestMemoryCommitIsIdempotent(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()

	uow, err := mem.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, uow.InsertTrial(ctx, &models.Trial{NCTID: "NCT00000001"}))
	require.NoError(t, uow.Commit())
	require.NoError(t, uow.Commit())
	assert.Equal(t, 1, mem.TrialCount())
}

func TestMemoryBuildSearchTokens(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()
	uow, err := mem.Begin(ctx)
	require.NoError(t, err)

	t.Run("empty text yields null payload", func(t *testing.T) {
		tokens, err := uow.BuildSearchTokens(ctx, "")
		require.NoError(t, err)
		assert.Nil(t, tokens)
	})

	t.Run("lowercases and deduplicates", func(t *testing.T) {
		tokens, err := uow.BuildSearchTokens(ctx, "Diabetes, diabetes: Obesity.")
		require.NoError(t, err)
		require.NotNil(t, tokens)
		assert.Equal(t, "diabetes obesity", *tokens)
	})
}
