package contextaccess

import (
	"fmt"

	"github.com/funcmodel/funcmodel/pkg/models"
)

var (
	ErrNodeNotRegistered = fmt.Errorf("node is not registered: %w", models.ErrNotFound)
	ErrContextNotFound   = fmt.Errorf("context not found: %w", models.ErrNotFound)
	ErrAlreadyRegistered = fmt.Errorf("node is already registered: %w", models.ErrConflict)
	ErrPropertyLocked    = fmt.Errorf("property is locked by an override:false rule: %w", models.ErrConflict)
	ErrNoSourceContexts  = fmt.Errorf("merge requires at least one source context: %w", models.ErrValidation)
	ErrInvalidScope      = fmt.Errorf("unknown context scope: %w", models.ErrValidation)
	ErrInvalidAccess     = fmt.Errorf("unknown access level: %w", models.ErrValidation)
)

func errDenied(reason string) error {
	return fmt.Errorf("%s: %w", reason, models.ErrAccessDenied)
}
