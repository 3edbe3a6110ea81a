package models

import (
	"strings"

	"github.com/google/uuid"

	"github.com/funcmodel/funcmodel/pkg/result"
)

// NodeID identifies a node within a model. IDs are UUID v4 strings compared
// case-insensitively; the canonical form is lower case.
type NodeID struct {
	value string
}

// NewNodeID generates a fresh random NodeID.
func NewNodeID() NodeID {
	return NodeID{value: uuid.New().String()}
}

// ParseNodeID validates raw as a UUID and returns the canonical NodeID.
func ParseNodeID(raw string) result.Result[NodeID] {
	normalized, err := canonicalUUID(raw)
	if err != nil {
		return result.Errf[NodeID]("node id %q: %w", raw, err)
	}

	return result.Ok(NodeID{value: normalized})
}

func (id NodeID) String() string {
	return id.value
}

// IsZero reports whether the id is the zero value (no id).
func (id NodeID) IsZero() bool {
	return id.value == ""
}

// Equals compares two ids by canonical value.
func (id NodeID) Equals(other NodeID) bool {
	return id.value == other.value
}

// MarshalText renders the canonical form, so ids embed in JSON as strings.
func (id NodeID) MarshalText() ([]byte, error) {
	return []byte(id.value), nil
}

func (id *NodeID) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*id = NodeID{}

		return nil
	}

	parsed := ParseNodeID(string(text))
	if parsed.IsFailure() {
		return parsed.Error()
	}

	*id = parsed.Value()

	return nil
}

// ModelID identifies a FunctionModel aggregate. Same shape and comparison
// rules as NodeID.
type ModelID struct {
	value string
}

// NewModelID generates a fresh random ModelID.
func NewModelID() ModelID {
	return ModelID{value: uuid.New().String()}
}

// ParseModelID validates raw as a UUID and returns the canonical ModelID.
func ParseModelID(raw string) result.Result[ModelID] {
	normalized, err := canonicalUUID(raw)
	if err != nil {
		return result.Errf[ModelID]("model id %q: %w", raw, err)
	}

	return result.Ok(ModelID{value: normalized})
}

func (id ModelID) String() string {
	return id.value
}

// IsZero reports whether the id is the zero value.
func (id ModelID) IsZero() bool {
	return id.value == ""
}

// Equals compares two ids by canonical value.
func (id ModelID) Equals(other ModelID) bool {
	return id.value == other.value
}

// MarshalText renders the canonical form, so ids embed in JSON as strings.
func (id ModelID) MarshalText() ([]byte, error) {
	return []byte(id.value), nil
}

func (id *ModelID) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*id = ModelID{}

		return nil
	}

	parsed := ParseModelID(string(text))
	if parsed.IsFailure() {
		return parsed.Error()
	}

	*id = parsed.Value()

	return nil
}

func canonicalUUID(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", ErrValidation
	}

	parsed, err := uuid.Parse(trimmed)
	if err != nil {
		return "", ErrValidation
	}

	return strings.ToLower(parsed.String()), nil
}
