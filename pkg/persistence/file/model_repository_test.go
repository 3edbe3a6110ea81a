package file

import (
	"context"
	"os"
	"path"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funcmodel/funcmodel/pkg/models"
	"github.com/funcmodel/funcmodel/pkg/persistence"
)

func newSnapshot(t *testing.T, name, owner string) *models.ModelSnapshot {
	t.Helper()

	modelName := models.NewModelName(name)
	require.True(t, modelName.IsSuccess())

	m := models.NewFunctionModel(modelName.Value(), owner)
	require.True(t, m.IsSuccess())

	stage := m.Value().AddStageNode(models.AddStageNodeRequest{
		Name:      "process",
		StageData: models.StageData{StageType: "process"},
	})
	require.True(t, stage.IsSuccess())

	return m.Value().Snapshot()
}

func TestModelRepository_SaveAndGet(t *testing.T) {
	repo := NewModelRepository(t.TempDir())
	ctx := context.Background()

	snapshot := newSnapshot(t, "Order Intake", "alice")
	require.NoError(t, repo.Save(ctx, snapshot))

	got, err := repo.GetByID(ctx, snapshot.ID)
	require.NoError(t, err)
	assert.Equal(t, snapshot.Name, got.Name)
	assert.Len(t, got.Nodes, 1)

	// The stored document rehydrates into a valid aggregate.
	rehydrated := models.ModelFromSnapshot(got)
	require.True(t, rehydrated.IsSuccess(), "rehydrate: %v", rehydrated)
	assert.Len(t, rehydrated.Value().Nodes(), 1)
}

func TestModelRepository_GetMissingIsNotFound(t *testing.T) {
	repo := NewModelRepository(t.TempDir())

	_, err := repo.GetByID(context.Background(), "00000000-0000-0000-0000-000000000000")
	require.Error(t, err)
	assert.True(t, persistence.IsModelNotFound(err))
}

func TestModelRepository_CorruptSnapshot(t *testing.T) {
	root := t.TempDir()
	repo := NewModelRepository(root)

	require.NoError(t, os.MkdirAll(path.Join(root, "models"), 0750))
	require.NoError(t, os.WriteFile(path.Join(root, "models", "broken.json"), []byte("{not json"), 0600))

	_, err := repo.GetByID(context.Background(), "broken")
	require.Error(t, err)
	assert.True(t, persistence.IsSnapshotCorrupt(err))
	assert.False(t, persistence.IsModelNotFound(err))
}

func TestModelRepository_DeleteIsIdempotent(t *testing.T) {
	repo := NewModelRepository(t.TempDir())
	ctx := context.Background()

	snapshot := newSnapshot(t, "Ephemeral", "alice")
	require.NoError(t, repo.Save(ctx, snapshot))

	require.NoError(t, repo.Delete(ctx, snapshot.ID))
	require.NoError(t, repo.Delete(ctx, snapshot.ID))

	_, err := repo.GetByID(ctx, snapshot.ID)
	assert.True(t, persistence.IsModelNotFound(err))
}

func TestModelRepository_List(t *testing.T) {
	repo := NewModelRepository(t.TempDir())
	ctx := context.Background()

	first := newSnapshot(t, "Alpha", "alice")
	second := newSnapshot(t, "Beta", "bob")
	third := newSnapshot(t, "Gamma", "alice")

	for i, snapshot := range []*models.ModelSnapshot{first, second, third} {
		// Distinct creation times so sorting is deterministic.
		snapshot.CreatedAt = time.Date(2024, 1, 1+i, 0, 0, 0, 0, time.UTC)
		require.NoError(t, repo.Save(ctx, snapshot))
	}

	t.Run("owner filter", func(t *testing.T) {
		result, err := repo.List(ctx, persistence.ListModelsOptions{Owner: "alice"})
		require.NoError(t, err)
		assert.Equal(t, int64(2), result.TotalCount)
	})

	t.Run("status filter", func(t *testing.T) {
		published := models.ModelStatusPublished
		result, err := repo.List(ctx, persistence.ListModelsOptions{Status: &published})
		require.NoError(t, err)
		assert.Equal(t, int64(0), result.TotalCount)
	})

	t.Run("sort by name ascending", func(t *testing.T) {
		result, err := repo.List(ctx, persistence.ListModelsOptions{SortBy: "name", SortOrder: "asc"})
		require.NoError(t, err)
		require.Len(t, result.Models, 3)
		assert.Equal(t, "Alpha", result.Models[0].Name)
		assert.Equal(t, "Gamma", result.Models[2].Name)
	})

	t.Run("pagination", func(t *testing.T) {
		result, err := repo.List(ctx, persistence.ListModelsOptions{SortBy: "name", SortOrder: "asc", Limit: 2})
		require.NoError(t, err)
		assert.Len(t, result.Models, 2)
		assert.True(t, result.HasNextPage)

		rest, err := repo.List(ctx, persistence.ListModelsOptions{SortBy: "name", SortOrder: "asc", Limit: 2, Offset: 2})
		require.NoError(t, err)
		assert.Len(t, rest.Models, 1)
		assert.False(t, rest.HasNextPage)
	})

	t.Run("invalid sort field rejected", func(t *testing.T) {
		_, err := repo.List(ctx, persistence.ListModelsOptions{SortBy: "owner"})
		assert.Error(t, err)
	})

	t.Run("soft-deleted excluded by default", func(t *testing.T) {
		deletedAt := time.Now().UTC()
		third.DeletedAt = &deletedAt
		require.NoError(t, repo.Save(ctx, third))

		result, err := repo.List(ctx, persistence.ListModelsOptions{})
		require.NoError(t, err)
		assert.Equal(t, int64(2), result.TotalCount)

		all, err := repo.List(ctx, persistence.ListModelsOptions{IncludeDeleted: true})
		require.NoError(t, err)
		assert.Equal(t, int64(3), all.TotalCount)
	})
}

func TestFilePersistence(t *testing.T) {
	root := t.TempDir()
	p := NewPersistence("file://" + root)
	ctx := context.Background()

	require.NoError(t, p.HealthCheck(ctx))

	snapshot := newSnapshot(t, "Via Facade", "alice")
	require.NoError(t, p.SaveModel(ctx, snapshot))

	got, err := p.ModelByID(ctx, snapshot.ID)
	require.NoError(t, err)
	assert.Equal(t, "Via Facade", got.Name)

	result, err := p.Models(ctx, persistence.ListModelsOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.TotalCount)

	require.NoError(t, p.DeleteModel(ctx, snapshot.ID))
	require.NoError(t, p.Close(ctx))
}

func TestFilePersistence_HealthCheckMissingRoot(t *testing.T) {
	p := NewPersistence(path.Join(t.TempDir(), "nope"))

	assert.Error(t, p.HealthCheck(context.Background()))
}
