package models

import (
	"fmt"

	"github.com/funcmodel/funcmodel/pkg/schema"
)

// guardDataSchema constrains a conditional action's guard payload. The full
// operator semantics live with the execution engine; here we only pin the
// shape so malformed guards are rejected when the node is added.
var guardDataSchema = map[string]any{
	"type":     "object",
	"required": []any{"property", "operator"},
	"properties": map[string]any{
		"property": map[string]any{"type": "string", "minLength": 1},
		"operator": map[string]any{"type": "string", "minLength": 1},
	},
}

// actionDataSchemas constrains the shape of each action type's specific data.
// The payloads are interpreted by external executors, so the schemas pin the
// types of the keys the engine relies on without closing the object.
var actionDataSchemas = map[ActionType]map[string]any{
	ActionTypeTether: {
		"type": "object",
		"properties": map[string]any{
			"guard":    guardDataSchema,
			"endpoint": map[string]any{"type": "string"},
			"payload":  map[string]any{"type": "object"},
		},
	},
	ActionTypeKBReference: {
		"type": "object",
		"properties": map[string]any{
			"guard":     guardDataSchema,
			"reference": map[string]any{"type": "string"},
			"search_keywords": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
		},
	},
	ActionTypeModelContainer: {
		"type": "object",
		"properties": map[string]any{
			"guard":             guardDataSchema,
			"context_mapping":   map[string]any{"type": "object"},
			"output_extraction": map[string]any{"type": "object"},
		},
	},
}

// ValidateActionData checks an action's specific data against the schema for
// its action type. AddActionNode applies it; it is exported for re-checking
// snapshots produced outside the aggregate.
func ValidateActionData(actionType ActionType, data map[string]any) error {
	dataSchema, ok := actionDataSchemas[actionType]
	if !ok {
		return nil
	}

	if err := schema.ValidateAgainst(dataSchema, data); err != nil {
		return fmt.Errorf("%s action data: %s: %w", actionType, err, ErrValidation)
	}

	return nil
}

// ValidateIODefault checks an IO node's default value against its declared
// data schema. Nodes without a schema or without a default pass.
func ValidateIODefault(data IOData) error {
	if data.Schema == nil || data.DefaultValue == nil {
		return nil
	}

	if err := schema.ValidateAgainst(data.Schema, data.DefaultValue); err != nil {
		return fmt.Errorf("default value: %s: %w", err, ErrValidation)
	}

	return nil
}
