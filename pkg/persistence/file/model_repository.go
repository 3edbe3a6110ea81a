package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"time"

	"github.com/funcmodel/funcmodel/pkg/models"
	"github.com/funcmodel/funcmodel/pkg/persistence"
)

// ModelRepository handles model-snapshot file operations. Each model is one
// JSON document under <root>/models.
type ModelRepository struct {
	root string
}

// NewModelRepository creates a new model repository.
func NewModelRepository(root string) *ModelRepository {
	return &ModelRepository{root: root}
}

// List returns paginated and filtered snapshots with in-memory operations.
func (mr *ModelRepository) List(ctx context.Context, opts persistence.ListModelsOptions) (*persistence.ModelListResult, error) {
	if opts.Limit <= 0 || opts.Limit > 100 {
		opts.Limit = 20
	}

	if opts.SortBy == "" {
		opts.SortBy = "created_at"
	}

	if opts.SortOrder == "" {
		opts.SortOrder = "desc"
	}

	allowedSorts := map[string]bool{
		"created_at": true,
		"updated_at": true,
		"name":       true,
	}
	if !allowedSorts[opts.SortBy] {
		return nil, fmt.Errorf("invalid sort field: %s", opts.SortBy)
	}

	root := os.DirFS(path.Join(mr.root, "models"))

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list model files: %w", err)
	}

	all := make([]*models.ModelSnapshot, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		modelID := file[:len(file)-5] // Remove .json extension

		snapshot, err := mr.GetByID(ctx, modelID)
		if err != nil {
			return nil, fmt.Errorf("failed to load model %s: %w", modelID, err)
		}

		all = append(all, snapshot)
	}

	filtered := make([]*models.ModelSnapshot, 0, len(all))

	for _, snapshot := range all {
		if snapshot.DeletedAt != nil && !opts.IncludeDeleted {
			continue
		}

		if opts.Owner != "" && snapshot.Permissions.Owner != opts.Owner {
			continue
		}

		if opts.Status != nil && snapshot.Status != *opts.Status {
			continue
		}

		filtered = append(filtered, snapshot)
	}

	mr.sortSnapshots(filtered, opts.SortBy, opts.SortOrder)

	totalCount := int64(len(filtered))
	startIdx := opts.Offset
	endIdx := opts.Offset + opts.Limit

	if startIdx >= len(filtered) {
		return &persistence.ModelListResult{
			Models:      make([]*models.ModelSnapshot, 0),
			TotalCount:  totalCount,
			HasNextPage: false,
		}, nil
	}

	if endIdx > len(filtered) {
		endIdx = len(filtered)
	}

	return &persistence.ModelListResult{
		Models:      filtered[startIdx:endIdx],
		TotalCount:  totalCount,
		HasNextPage: endIdx < len(filtered),
	}, nil
}

func (mr *ModelRepository) sortSnapshots(snapshots []*models.ModelSnapshot, sortBy, sortOrder string) {
	sort.Slice(snapshots, func(i, j int) bool {
		var less bool

		switch sortBy {
		case "updated_at":
			less = snapshots[i].UpdatedAt.Before(snapshots[j].UpdatedAt)
		case "name":
			less = snapshots[i].Name < snapshots[j].Name
		default:
			less = snapshots[i].CreatedAt.Before(snapshots[j].CreatedAt)
		}

		if sortOrder == "desc" {
			return !less
		}

		return less
	})
}

// GetByID retrieves a model snapshot by its ID from the file system.
func (mr *ModelRepository) GetByID(_ context.Context, modelID string) (*models.ModelSnapshot, error) {
	filePath := filepath.Clean(path.Join(mr.root, "models", modelID+".json"))

	body, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewModelError("ModelByID", modelID, persistence.ErrModelNotFound)
		}

		return nil, fmt.Errorf("failed to fetch model %s: %w", modelID, err)
	}

	var snapshot models.ModelSnapshot

	err = json.Unmarshal(body, &snapshot)
	if err != nil {
		return nil, &persistence.ModelError{
			Op:      "ModelByID",
			ModelID: modelID,
			Err:     persistence.ErrSnapshotCorrupt,
			Message: err.Error(),
		}
	}

	return &snapshot, nil
}

// Save writes a model snapshot to the file system.
func (mr *ModelRepository) Save(_ context.Context, snapshot *models.ModelSnapshot) error {
	err := os.MkdirAll(path.Join(mr.root, "models"), 0750)
	if err != nil {
		return fmt.Errorf("failed to create models directory: %w", err)
	}

	now := time.Now().UTC()
	if snapshot.CreatedAt.IsZero() {
		snapshot.CreatedAt = now
	}

	snapshot.UpdatedAt = now

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal model %s: %w", snapshot.ID, err)
	}

	filePath := path.Join(mr.root, "models", snapshot.ID+".json")

	return os.WriteFile(filePath, data, 0600)
}

// Delete removes a model snapshot by its ID. Deleting a missing model is not
// an error.
func (mr *ModelRepository) Delete(_ context.Context, id string) error {
	filePath := path.Join(mr.root, "models", id+".json")

	err := os.Remove(filePath)

	if err != nil && os.IsNotExist(err) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to delete model %s: %w", id, err)
	}

	return nil
}
