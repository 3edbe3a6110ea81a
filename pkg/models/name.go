package models

import (
	"strings"

	"github.com/funcmodel/funcmodel/pkg/result"
)

const maxModelNameLength = 100

// ModelName is a trimmed, non-empty display name for a model.
type ModelName struct {
	value string
}

// NewModelName validates and normalizes raw into a ModelName.
func NewModelName(raw string) result.Result[ModelName] {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return result.Errf[ModelName]("model name cannot be empty: %w", ErrValidation)
	}

	if len(trimmed) > maxModelNameLength {
		return result.Errf[ModelName]("model name exceeds %d characters: %w", maxModelNameLength, ErrValidation)
	}

	return result.Ok(ModelName{value: trimmed})
}

func (n ModelName) String() string {
	return n.value
}

// Equals compares names by exact value.
func (n ModelName) Equals(other ModelName) bool {
	return n.value == other.value
}
