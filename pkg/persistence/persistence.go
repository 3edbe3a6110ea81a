// Package persistence provides the storage abstraction for function model
// snapshots.
package persistence

import (
	"context"

	"github.com/funcmodel/funcmodel/pkg/models"
)

// ListModelsOptions filters, sorts, and paginates model listings.
type ListModelsOptions struct {
	Owner          string
	Status         *models.ModelStatus
	IncludeDeleted bool
	SortBy         string // created_at | updated_at | name
	SortOrder      string // asc | desc
	Limit          int
	Offset         int
}

// ModelListResult is one page of snapshots.
type ModelListResult struct {
	Models      []*models.ModelSnapshot
	TotalCount  int64
	HasNextPage bool
}

type Persistence interface {
	Models(ctx context.Context, opts ListModelsOptions) (*ModelListResult, error)
	SaveModel(ctx context.Context, snapshot *models.ModelSnapshot) error
	ModelByID(ctx context.Context, id string) (*models.ModelSnapshot, error)
	DeleteModel(ctx context.Context, id string) error
	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}
