package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var parcelSchema = map[string]any{
	"type":     "object",
	"required": []any{"weight"},
	"properties": map[string]any{
		"weight": map[string]any{"type": "number"},
		"label":  map[string]any{"type": "string"},
	},
}

func TestAddIONode_ValidatesDefaultAgainstSchema(t *testing.T) {
	t.Run("conforming default passes", func(t *testing.T) {
		m := newTestModel(t)

		r := m.AddIONode(AddIONodeRequest{
			Name: "input",
			IOData: IOData{
				BoundaryType: IOBoundaryInput,
				DataType:     "object",
				Schema:       parcelSchema,
				DefaultValue: map[string]any{"weight": 1.5},
			},
		})

		require.True(t, r.IsSuccess(), "AddIONode: %v", r)
	})

	t.Run("violating default is rejected", func(t *testing.T) {
		m := newTestModel(t)

		r := m.AddIONode(AddIONodeRequest{
			Name: "input",
			IOData: IOData{
				BoundaryType: IOBoundaryInput,
				DataType:     "object",
				Schema:       parcelSchema,
				DefaultValue: map[string]any{"label": "no weight"},
			},
		})

		require.True(t, r.IsFailure())
		assert.True(t, IsValidation(r.Error()))
		assert.Empty(t, m.Nodes())
	})

	t.Run("no schema accepts any default", func(t *testing.T) {
		m := newTestModel(t)

		r := m.AddIONode(AddIONodeRequest{
			Name: "input",
			IOData: IOData{
				BoundaryType: IOBoundaryInput,
				DataType:     "object",
				DefaultValue: map[string]any{"anything": true},
			},
		})

		require.True(t, r.IsSuccess(), "AddIONode: %v", r)
	})
}

func TestAddActionNode_ValidatesActionData(t *testing.T) {
	t.Run("well-formed guard passes", func(t *testing.T) {
		m := newTestModel(t)
		stage := addStage(t, m, "stage")

		r := m.AddActionNode(AddActionNodeRequest{
			ParentNodeID: stage.NodeID(),
			ActionType:   ActionTypeTether,
			Name:         "guarded",
			ActionData: map[string]any{
				"guard": map[string]any{"property": "env", "operator": "equals", "value": "prod"},
			},
		})

		require.True(t, r.IsSuccess(), "AddActionNode: %v", r)
	})

	t.Run("guard of the wrong shape is rejected", func(t *testing.T) {
		m := newTestModel(t)
		stage := addStage(t, m, "stage")

		r := m.AddActionNode(AddActionNodeRequest{
			ParentNodeID: stage.NodeID(),
			ActionType:   ActionTypeTether,
			Name:         "guarded",
			ActionData:   map[string]any{"guard": "env == prod"},
		})

		require.True(t, r.IsFailure())
		assert.True(t, IsValidation(r.Error()))
		assert.Empty(t, m.Actions())
	})

	t.Run("guard missing its operator is rejected", func(t *testing.T) {
		m := newTestModel(t)
		stage := addStage(t, m, "stage")

		r := m.AddActionNode(AddActionNodeRequest{
			ParentNodeID: stage.NodeID(),
			ActionType:   ActionTypeTether,
			Name:         "guarded",
			ActionData: map[string]any{
				"guard": map[string]any{"property": "env"},
			},
		})

		require.True(t, r.IsFailure())
		assert.True(t, IsValidation(r.Error()))
	})

	t.Run("unknown keys are tolerated", func(t *testing.T) {
		m := newTestModel(t)
		stage := addStage(t, m, "stage")

		r := m.AddActionNode(AddActionNodeRequest{
			ParentNodeID: stage.NodeID(),
			ActionType:   ActionTypeKBReference,
			Name:         "lookup",
			ActionData:   map[string]any{"reference": "kb-42", "executor_hint": "fast"},
		})

		require.True(t, r.IsSuccess(), "AddActionNode: %v", r)
	})

	t.Run("typed key of the wrong type is rejected", func(t *testing.T) {
		m := newTestModel(t)
		stage := addStage(t, m, "stage")

		r := m.AddActionNode(AddActionNodeRequest{
			ParentNodeID: stage.NodeID(),
			ActionType:   ActionTypeKBReference,
			Name:         "lookup",
			ActionData:   map[string]any{"reference": 42},
		})

		require.True(t, r.IsFailure())
		assert.True(t, IsValidation(r.Error()))
	})
}
