// Package schema validates model data payloads against JSON Schema documents.
package schema

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ValidateAgainst checks data against a JSON Schema given as a Go map.
// Violations are reported as a single error listing every failed constraint.
func ValidateAgainst(schema map[string]any, data any) error {
	schemaLoader := gojsonschema.NewGoLoader(schema)
	dataLoader := gojsonschema.NewGoLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return fmt.Errorf("schema evaluation failed: %w", err)
	}

	if !result.Valid() {
		var violations []string
		for _, desc := range result.Errors() {
			violations = append(violations, desc.String())
		}

		return fmt.Errorf("schema violations: %s", strings.Join(violations, "; "))
	}

	return nil
}
