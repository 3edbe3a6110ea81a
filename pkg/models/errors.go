// Package models defines the core domain model for function-model workflow
// graphs: value objects, the node hierarchy, edges, and the FunctionModel
// aggregate with its lifecycle rules.
package models

import (
	"errors"
	"fmt"
)

// Failure categories. Every failed Result in the domain wraps exactly one of
// these so callers can branch without parsing messages.
var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrAccessDenied = errors.New("access denied")
)

// Common domain errors.
var (
	ErrNodeNotFound      = fmt.Errorf("node %w", ErrNotFound)
	ErrActionNotFound    = fmt.Errorf("action node %w", ErrNotFound)
	ErrModelNotMutable   = fmt.Errorf("model is not in a mutable status: %w", ErrConflict)
	ErrModelArchived     = fmt.Errorf("model is archived: %w", ErrConflict)
	ErrDuplicateNode     = fmt.Errorf("duplicate node id: %w", ErrConflict)
	ErrDuplicateEdge     = fmt.Errorf("duplicate edge: %w", ErrValidation)
	ErrSelfLoop          = fmt.Errorf("self-referential edge: %w", ErrValidation)
	ErrCyclicDependency  = fmt.Errorf("cyclic dependency: %w", ErrValidation)
	ErrOrphanedAction    = fmt.Errorf("action node has no parent container: %w", ErrValidation)
	ErrNoContainerNodes  = fmt.Errorf("model has no container nodes: %w", ErrValidation)
	ErrInvalidTransition = fmt.Errorf("illegal status transition: %w", ErrConflict)
)

func errTransition(from, to string) error {
	return fmt.Errorf("%s -> %s: %w", from, to, ErrInvalidTransition)
}

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsNotFound reports whether err is a not-found failure.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict reports whether err is a business-rule conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsAccessDenied reports whether err is an access-control denial.
func IsAccessDenied(err error) bool {
	return errors.Is(err, ErrAccessDenied)
}
