// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrModelNotFound indicates a model was not found by the given identifier.
	ErrModelNotFound = errors.New("model not found")

	// ErrModelAlreadyExists indicates a model with the same identifier already exists.
	ErrModelAlreadyExists = errors.New("model already exists")

	// ErrInvalidModelStatus indicates an invalid model status was provided.
	ErrInvalidModelStatus = errors.New("invalid model status")

	// ErrSnapshotCorrupt indicates a stored snapshot could not be decoded.
	ErrSnapshotCorrupt = errors.New("snapshot corrupt")
)

// ModelError wraps model-related errors with additional context.
type ModelError struct {
	Op      string // Operation being performed (e.g., "ModelByID", "Save", "Delete")
	ModelID string // Model ID if applicable
	Err     error  // Underlying error
	Message string // Additional context message
}

func (e *ModelError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s operation failed for model %s: %s (%v)", e.Op, e.ModelID, e.Message, e.Err)
	}

	return fmt.Sprintf("%s operation failed for model %s: %v", e.Op, e.ModelID, e.Err)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for model errors.
func (e *ModelError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewModelError creates a new model error with context.
func NewModelError(op, modelID string, err error) *ModelError {
	return &ModelError{
		Op:      op,
		ModelID: modelID,
		Err:     err,
	}
}

// IsModelNotFound checks if an error indicates a model was not found.
func IsModelNotFound(err error) bool {
	return errors.Is(err, ErrModelNotFound)
}

// IsSnapshotCorrupt checks if an error indicates a stored snapshot could not be decoded.
func IsSnapshotCorrupt(err error) bool {
	return errors.Is(err, ErrSnapshotCorrupt)
}
