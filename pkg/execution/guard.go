// Package execution plans and drives runs of published function models. The
// engine never performs the work itself; an external collaborator executes
// each action and reports the observed outcome through Advance.
package execution

import (
	"fmt"
	"reflect"
	"strconv"

	"github.com/funcmodel/funcmodel/pkg/models"
)

// GuardKey is the action-data key holding a conditional action's guard.
const GuardKey = "guard"

// Guard is the predicate deciding whether a conditional action is scheduled.
type Guard struct {
	Property string `json:"property"`
	Operator string `json:"operator"`
	Value    any    `json:"value,omitempty"`
}

const (
	guardOpEquals    = "equals"
	guardOpNotEquals = "not_equals"
	guardOpExists    = "exists"
	guardOpTruthy    = "truthy"
)

// parseGuard extracts the guard from an action's data. Conditional actions
// without a guard are a planning error.
func parseGuard(actionData map[string]any) (*Guard, error) {
	raw, ok := actionData[GuardKey]
	if !ok {
		return nil, fmt.Errorf("conditional action has no guard: %w", models.ErrValidation)
	}

	spec, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("guard must be an object: %w", models.ErrValidation)
	}

	guard := &Guard{Value: spec["value"]}

	if prop, ok := spec["property"].(string); ok {
		guard.Property = prop
	}

	if op, ok := spec["operator"].(string); ok {
		guard.Operator = op
	}

	if guard.Property == "" {
		return nil, fmt.Errorf("guard is missing a property: %w", models.ErrValidation)
	}

	switch guard.Operator {
	case guardOpEquals, guardOpNotEquals, guardOpExists, guardOpTruthy:
		return guard, nil
	default:
		return nil, fmt.Errorf("guard has unknown operator %q: %w", guard.Operator, models.ErrValidation)
	}
}

// Evaluate applies the guard to the plan variables.
func (g *Guard) Evaluate(vars map[string]any) (bool, error) {
	value, present := vars[g.Property]

	switch g.Operator {
	case guardOpExists:
		return present, nil
	case guardOpEquals:
		return present && reflect.DeepEqual(value, g.Value), nil
	case guardOpNotEquals:
		return !present || !reflect.DeepEqual(value, g.Value), nil
	case guardOpTruthy:
		if !present {
			return false, nil
		}

		return truthy(value)
	default:
		return false, fmt.Errorf("guard has unknown operator %q: %w", g.Operator, models.ErrValidation)
	}
}

func truthy(value any) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		if v == "" {
			return false, nil
		}

		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return false, fmt.Errorf("cannot convert string %q to boolean: %w", v, models.ErrValidation)
		}

		return parsed, nil
	case int:
		return v != 0, nil
	case int64:
		return v != 0, nil
	case float64:
		return v != 0, nil
	default:
		return false, fmt.Errorf("cannot convert %T to boolean: %w", value, models.ErrValidation)
	}
}
