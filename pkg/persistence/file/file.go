// Package file provides file-based persistence for function model snapshots.
package file

import (
	"context"
	"os"
	"strings"

	"github.com/funcmodel/funcmodel/pkg/models"
	"github.com/funcmodel/funcmodel/pkg/persistence"
)

// Persistence implements the persistence.Persistence interface using the file system.
type Persistence struct {
	root      string
	modelRepo *ModelRepository
}

// NewPersistence creates a new instance of Persistence with the specified root directory.
func NewPersistence(root string) persistence.Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root:      cleanRoot,
		modelRepo: NewModelRepository(cleanRoot),
	}
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck checks if the file persistence layer is healthy by verifying the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (fp *Persistence) Models(ctx context.Context, opts persistence.ListModelsOptions) (*persistence.ModelListResult, error) {
	return fp.modelRepo.List(ctx, opts)
}

func (fp *Persistence) SaveModel(ctx context.Context, snapshot *models.ModelSnapshot) error {
	return fp.modelRepo.Save(ctx, snapshot)
}

func (fp *Persistence) ModelByID(ctx context.Context, id string) (*models.ModelSnapshot, error) {
	return fp.modelRepo.GetByID(ctx, id)
}

func (fp *Persistence) DeleteModel(ctx context.Context, id string) error {
	return fp.modelRepo.Delete(ctx, id)
}
